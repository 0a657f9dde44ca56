package config

import (
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"git.home.luguber.info/inful/docsync/internal/logfields"
)

// envFiles are probed in order; every file found is loaded.
var envFiles = []string{".env", ".env.local"}

// LoadEnvFiles loads environment variables from dotenv files in the working
// directory. Variables already present in the environment win, so exported
// values override file contents. Missing files are not an error.
func LoadEnvFiles() {
	for _, path := range envFiles {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			slog.Warn("Env file unreadable, skipping", logfields.Path(path), logfields.Error(err))
			continue
		}
		slog.Debug("Environment loaded from file", logfields.Path(path))
	}
}
