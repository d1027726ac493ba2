// Package dispatch delivers bootstrap notifications to downstream consumers,
// in process over an events.Bus or remotely over NATS.
package dispatch

import (
	"context"
	"log/slog"

	"git.home.luguber.info/inful/datainit/internal/appdata"
	"git.home.luguber.info/inful/datainit/internal/events"
	"git.home.luguber.info/inful/datainit/internal/logfields"
)

// Publisher is the downstream notification surface bootstrap drives.
type Publisher interface {
	PublishLoadAllData(ctx context.Context, data *appdata.Complete, omitTokens bool) error
	PublishAllDataLoaded(ctx context.Context) error
}

// BusPublisher publishes on an in-process bus.
type BusPublisher struct {
	bus *events.Bus
}

// NewBusPublisher creates a publisher over bus.
func NewBusPublisher(bus *events.Bus) *BusPublisher {
	return &BusPublisher{bus: bus}
}

// PublishLoadAllData implements Publisher.
func (p *BusPublisher) PublishLoadAllData(ctx context.Context, data *appdata.Complete, omitTokens bool) error {
	return p.bus.Publish(ctx, events.LoadAllData{Data: data, OmitTokens: omitTokens, RunID: events.RunIDFrom(ctx)})
}

// PublishAllDataLoaded implements Publisher.
func (p *BusPublisher) PublishAllDataLoaded(ctx context.Context) error {
	return p.bus.Publish(ctx, events.AllDataWasLoaded{})
}

// Multi fans every call out to all publishers. The first publisher is the
// primary: only its failure is returned. Failures of the others are logged,
// since the primary has already delivered by then.
type Multi []Publisher

func (m Multi) each(ctx context.Context, event string, call func(p Publisher) error) error {
	var primary error
	for i, p := range m {
		err := call(p)
		if err == nil {
			continue
		}
		if i == 0 {
			primary = err
			continue
		}
		slog.WarnContext(ctx, "Secondary publisher failed",
			slog.String("event", event),
			slog.Int("publisher", i),
			logfields.Error(err))
	}
	return primary
}

// PublishLoadAllData implements Publisher.
func (m Multi) PublishLoadAllData(ctx context.Context, data *appdata.Complete, omitTokens bool) error {
	return m.each(ctx, events.NameLoadAllData, func(p Publisher) error {
		return p.PublishLoadAllData(ctx, data, omitTokens)
	})
}

// PublishAllDataLoaded implements Publisher.
func (m Multi) PublishAllDataLoaded(ctx context.Context) error {
	return m.each(ctx, events.NameAllDataWasLoaded, func(p Publisher) error {
		return p.PublishAllDataLoaded(ctx)
	})
}

// PublishBackupRead announces that an operator-confirmed backup was read.
func (p *BusPublisher) PublishBackupRead(ctx context.Context, path string, size int) error {
	return p.bus.Publish(ctx, events.BackupRead{Path: path, Bytes: size, RunID: events.RunIDFrom(ctx)})
}

// PublishBackupRead forwards to every publisher that announces backup reads.
func (m Multi) PublishBackupRead(ctx context.Context, path string, size int) error {
	return m.each(ctx, events.NameBackupRead, func(p Publisher) error {
		bp, ok := p.(interface {
			PublishBackupRead(ctx context.Context, path string, size int) error
		})
		if !ok {
			return nil
		}
		return bp.PublishBackupRead(ctx, path, size)
	})
}
