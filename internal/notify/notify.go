// Package notify publishes run completion events to NATS JetStream so
// downstream automation (chat alerts, dashboards, issue filing) can react to
// sync outcomes without polling the history database.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"git.home.luguber.info/inful/docsync/internal/retry"
)

const (
	// DefaultSubject is the subject run events are published to.
	DefaultSubject = "docsync.runs"

	// streamName is the JetStream stream owning the run event subjects.
	streamName = "DOCSYNC_RUNS"
)

// RunCompleted is the event published after every sync run, failed ones
// included.
type RunCompleted struct {
	RunID   string `json:"run_id"`
	Outcome string `json:"outcome"`

	SourceDir string `json:"source_dir"`
	OutputDir string `json:"output_dir"`

	FilesSeen        int  `json:"files_seen"`
	FilesTransformed int  `json:"files_transformed"`
	FilesCopied      int  `json:"files_copied"`
	FilesSkipped     int  `json:"files_skipped"`
	FilesFailed      int  `json:"files_failed"`
	Pages            int  `json:"pages"`
	BrokenLinks      int  `json:"broken_links"`
	ConfigWritten    bool `json:"config_written"`
	Warnings         int  `json:"warnings"`

	DurationMS int64     `json:"duration_ms"`
	Timestamp  time.Time `json:"timestamp"`
}

// Publisher manages the NATS connection for run events. A nil Publisher is
// valid and publishes nothing, so callers never branch on whether
// notifications are configured.
type Publisher struct {
	conn    *nats.Conn
	js      jetstream.JetStream
	subject string
	policy  retry.Policy
}

// NewPublisher connects to NATS and ensures the run event stream exists.
// An empty subject selects DefaultSubject.
func NewPublisher(url, subject string) (*Publisher, error) {
	if subject == "" {
		subject = DefaultSubject
	}

	conn, err := nats.Connect(url)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}

	js, err := jetstream.New(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("create JetStream context: %w", err)
	}

	p := &Publisher{
		conn:    conn,
		js:      js,
		subject: subject,
		policy:  retry.NewPolicy(retry.BackoffFixed, 500*time.Millisecond, 2*time.Second, 2),
	}
	if err := p.initStream(); err != nil {
		conn.Close()
		return nil, err
	}

	slog.Info("NATS publisher initialized", "url", url, "subject", subject)
	return p, nil
}

// initStream creates or reuses the stream holding run events. Events are
// retained for a week so consumers can be offline across a weekend.
func (p *Publisher) initStream() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if _, err := p.js.Stream(ctx, streamName); err == nil {
		return nil
	}

	_, err := p.js.CreateStream(ctx, jetstream.StreamConfig{
		Name:        streamName,
		Description: "docsync run completion events",
		Subjects:    []string{p.subject},
		MaxAge:      7 * 24 * time.Hour,
	})
	if err != nil {
		return fmt.Errorf("create run event stream: %w", err)
	}

	slog.Info("Created run event stream", "stream", streamName, "subject", p.subject)
	return nil
}

// PublishRun publishes a run event, retrying transient failures. The event
// timestamp is stamped here.
func (p *Publisher) PublishRun(event *RunCompleted) error {
	if p == nil {
		return nil
	}

	event.Timestamp = time.Now()

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal run event: %w", err)
	}

	// Overall bound covers every attempt plus the backoff waits in between.
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	err = retry.Do(ctx, p.policy, "publish run event", func() error {
		attemptCtx, attemptCancel := context.WithTimeout(ctx, 5*time.Second)
		defer attemptCancel()
		_, err := p.js.Publish(attemptCtx, p.subject, data)
		return err
	})
	if err != nil {
		return fmt.Errorf("publish run event: %w", err)
	}

	slog.Debug("Published run event", "run_id", event.RunID, "outcome", event.Outcome)
	return nil
}

// Close closes the NATS connection.
func (p *Publisher) Close() error {
	if p == nil || p.conn == nil {
		return nil
	}
	p.conn.Close()
	return nil
}
