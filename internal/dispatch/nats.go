package dispatch

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"git.home.luguber.info/inful/datainit/internal/appdata"
	"git.home.luguber.info/inful/datainit/internal/events"
	"git.home.luguber.info/inful/datainit/internal/foundation/errors"
	"git.home.luguber.info/inful/datainit/internal/logfields"
	"git.home.luguber.info/inful/datainit/internal/retry"
)

// DefaultSubjectPrefix is prepended to every event name.
const DefaultSubjectPrefix = "datainit"

// NATSConfig configures NATSPublisher.
type NATSConfig struct {
	URL           string
	SubjectPrefix string
	// JetStream publishes with acknowledgements; the stream covering the
	// subjects must already exist.
	JetStream bool
	Timeout   time.Duration
	// Retry governs connection attempts; the zero Policy tries once.
	Retry retry.Policy
}

// sender is the part of a NATS connection the publisher needs.
type sender interface {
	Publish(ctx context.Context, subject string, data []byte) error
	Close()
}

// NATSPublisher publishes events as JSON messages on "<prefix>.<event name>".
type NATSPublisher struct {
	out     sender
	prefix  string
	timeout time.Duration
}

// NewNATSPublisher connects to cfg.URL.
func NewNATSPublisher(cfg NATSConfig) (*NATSPublisher, error) {
	if cfg.URL == "" {
		return nil, errors.ConfigError("nats url is required").Build()
	}

	var conn *nats.Conn
	err := retry.Do(context.Background(), nil, cfg.Retry, "nats_connect", func(context.Context) error {
		c, err := nats.Connect(cfg.URL, nats.Name("datainit"))
		if err != nil {
			return errors.WrapError(err, errors.CategoryNetwork, "failed to connect to NATS").
				Retryable().
				WithContext("url", cfg.URL).
				Build()
		}
		conn = c
		return nil
	})
	if err != nil {
		return nil, err
	}

	var out sender = coreSender{conn: conn}
	if cfg.JetStream {
		js, err := jetstream.New(conn)
		if err != nil {
			conn.Close()
			return nil, errors.WrapError(err, errors.CategoryNetwork, "failed to create JetStream context").Build()
		}
		out = jetStreamSender{conn: conn, js: js}
	}

	slog.Info("NATS publisher connected", "url", cfg.URL, "jetstream", cfg.JetStream)
	return newNATSPublisher(out, cfg), nil
}

func newNATSPublisher(out sender, cfg NATSConfig) *NATSPublisher {
	prefix := strings.TrimSuffix(cfg.SubjectPrefix, ".")
	if prefix == "" {
		prefix = DefaultSubjectPrefix
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &NATSPublisher{out: out, prefix: prefix, timeout: timeout}
}

// Subject returns the subject an event is published on.
func (p *NATSPublisher) Subject(evt events.Event) string {
	return p.prefix + "." + evt.EventName()
}

// PublishLoadAllData implements Publisher.
func (p *NATSPublisher) PublishLoadAllData(ctx context.Context, data *appdata.Complete, omitTokens bool) error {
	evt := events.LoadAllData{Data: data, OmitTokens: omitTokens, RunID: events.RunIDFrom(ctx)}
	if omitTokens && data != nil && data.GlobalConfig.Sync.HasTokens() {
		// Credentials the receiver is told to ignore are not sent over the wire.
		stripped := data.Clone()
		stripped.GlobalConfig.Sync.AccessToken = ""
		stripped.GlobalConfig.Sync.RefreshToken = ""
		evt.Data = stripped
	}
	return p.publish(ctx, evt)
}

// PublishAllDataLoaded implements Publisher.
func (p *NATSPublisher) PublishAllDataLoaded(ctx context.Context) error {
	return p.publish(ctx, events.AllDataWasLoaded{})
}

// PublishBackupRead announces a confirmed backup read. The content is not sent.
func (p *NATSPublisher) PublishBackupRead(ctx context.Context, path string, size int) error {
	return p.publish(ctx, events.BackupRead{Path: path, Bytes: size, RunID: events.RunIDFrom(ctx)})
}

// Close closes the NATS connection.
func (p *NATSPublisher) Close() {
	p.out.Close()
}

func (p *NATSPublisher) publish(ctx context.Context, evt events.Event) error {
	subject := p.Subject(evt)
	payload, err := json.Marshal(evt)
	if err != nil {
		return errors.WrapError(err, errors.CategoryPublish, "failed to marshal event").
			WithContext("subject", subject).
			Build()
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	if err := p.out.Publish(ctx, subject, payload); err != nil {
		return errors.WrapError(err, errors.CategoryPublish, "failed to publish event").
			Retryable().
			WithContext("subject", subject).
			Build()
	}

	slog.Debug("Published event", "subject", subject, "bytes", len(payload), logfields.RunID(events.RunIDFrom(ctx)))
	return nil
}

type coreSender struct {
	conn *nats.Conn
}

func (s coreSender) Publish(ctx context.Context, subject string, data []byte) error {
	if err := s.conn.Publish(subject, data); err != nil {
		return err
	}
	return s.conn.FlushWithContext(ctx)
}

func (s coreSender) Close() { s.conn.Close() }

type jetStreamSender struct {
	conn *nats.Conn
	js   jetstream.JetStream
}

func (s jetStreamSender) Publish(ctx context.Context, subject string, data []byte) error {
	_, err := s.js.Publish(ctx, subject, data)
	return err
}

func (s jetStreamSender) Close() { s.conn.Close() }
