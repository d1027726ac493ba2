package bootstrap

import (
	"context"
	"sync"
	"sync/atomic"

	"git.home.luguber.info/inful/datainit/internal/appdata"
	"git.home.luguber.info/inful/datainit/internal/backup"
	"git.home.luguber.info/inful/datainit/internal/foundation"
)

type fakeGateway struct {
	legacyCalls   atomic.Int32
	completeCalls atomic.Int32
	gate          chan struct{} // when set, LoadLegacyState blocks until closed
	legacyErr     error
	completeErr   error
	data          *appdata.Complete
}

func (g *fakeGateway) LoadLegacyState(ctx context.Context, _ bool) (*appdata.LegacyState, error) {
	g.legacyCalls.Add(1)
	if g.gate != nil {
		select {
		case <-g.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if g.legacyErr != nil {
		return nil, g.legacyErr
	}
	return appdata.NewLegacyState(), nil
}

func (g *fakeGateway) LoadComplete(context.Context) (*appdata.Complete, error) {
	g.completeCalls.Add(1)
	if g.completeErr != nil {
		return nil, g.completeErr
	}
	if g.data == nil {
		return appdata.NewComplete(), nil
	}
	return g.data.Clone(), nil
}

type fakeMigrator struct {
	calls atomic.Int32
	err   error
}

func (m *fakeMigrator) MigrateIfNecessary(_ context.Context, s *appdata.LegacyState) (*appdata.LegacyState, error) {
	m.calls.Add(1)
	if m.err != nil {
		return nil, m.err
	}
	return s, nil
}

type fakeValidator struct{ valid bool }

func (v fakeValidator) IsValid(*appdata.Complete) bool { return v.valid }

type fakeRepairer struct {
	confirm     bool
	asked       atomic.Int32
	repairCalls atomic.Int32
}

func (r *fakeRepairer) IsRepairPossibleAndConfirmed(context.Context, *appdata.Complete) bool {
	r.asked.Add(1)
	return r.confirm
}

func (r *fakeRepairer) Repair(data *appdata.Complete) *appdata.Complete {
	r.repairCalls.Add(1)
	out := data.Clone()
	out.Note = appdata.NewEntityState(appdata.NoteID, appdata.Note{ID: "repaired"})
	return out
}

type loadCall struct {
	data       *appdata.Complete
	omitTokens bool
}

type fakePublisher struct {
	mu         sync.Mutex
	loads      []loadCall
	allLoaded  int
	backups    []string
	publishErr error
}

func (p *fakePublisher) PublishLoadAllData(_ context.Context, data *appdata.Complete, omitTokens bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.publishErr != nil {
		return p.publishErr
	}
	p.loads = append(p.loads, loadCall{data: data, omitTokens: omitTokens})
	return nil
}

func (p *fakePublisher) PublishAllDataLoaded(context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.allLoaded++
	return nil
}

func (p *fakePublisher) PublishBackupRead(_ context.Context, path string, _ int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.backups = append(p.backups, path)
	return nil
}

func (p *fakePublisher) snapshot() ([]loadCall, int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]loadCall(nil), p.loads...), p.allLoaded
}

type fakeLocator struct {
	supported      bool
	path           string
	lookupErr      error
	content        []byte
	availableCalls atomic.Int32
	loadCalls      atomic.Int32
	panics         bool
}

func (l *fakeLocator) Supported() bool { return l.supported }

func (l *fakeLocator) IsBackupAvailable(context.Context) (foundation.Option[backup.Meta], error) {
	l.availableCalls.Add(1)
	if l.panics {
		panic("locator exploded")
	}
	if l.lookupErr != nil {
		return foundation.None[backup.Meta](), l.lookupErr
	}
	if l.path == "" {
		return foundation.None[backup.Meta](), nil
	}
	return foundation.Some(backup.Meta{Path: l.path, Size: int64(len(l.content))}), nil
}

func (l *fakeLocator) LoadBackup(context.Context, string) ([]byte, error) {
	l.loadCalls.Add(1)
	return l.content, nil
}

type recordingConfirmer struct {
	answer    bool
	mu        sync.Mutex
	questions []string
}

func (c *recordingConfirmer) Confirm(_ context.Context, q string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.questions = append(c.questions, q)
	return c.answer, nil
}

func (c *recordingConfirmer) asked() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.questions...)
}

type fakeJournal struct {
	mu    sync.Mutex
	types []string
	err   error
}

func (j *fakeJournal) Append(_ context.Context, _ string, eventType string, _ []byte, _ map[string]string) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.err != nil {
		return j.err
	}
	j.types = append(j.types, eventType)
	return nil
}

func (j *fakeJournal) recorded() []string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]string(nil), j.types...)
}

// withTasks returns a valid-looking dataset with the given number of current
// and archived tasks.
func withTasks(current, archived int) *appdata.Complete {
	data := appdata.NewComplete()
	for i := range current {
		t := appdata.Task{ID: "t" + string(rune('a'+i))}
		data.Task.IDs = append(data.Task.IDs, t.ID)
		data.Task.Entities[t.ID] = t
	}
	for i := range archived {
		t := appdata.Task{ID: "a" + string(rune('a'+i))}
		data.TaskArchive.IDs = append(data.TaskArchive.IDs, t.ID)
		data.TaskArchive.Entities[t.ID] = t
	}
	return data
}
