// Package repair fixes structurally inconsistent datasets after an operator
// has agreed to it.
package repair

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"git.home.luguber.info/inful/datainit/internal/appdata"
	"git.home.luguber.info/inful/datainit/internal/confirm"
	"git.home.luguber.info/inful/datainit/internal/foundation"
	"git.home.luguber.info/inful/datainit/internal/logfields"
)

// Checker reports the problems in a dataset.
type Checker interface {
	Validate(data *appdata.Complete) foundation.ValidationResult
}

// Decision records whether a repair can run and whether the operator agreed.
type Decision struct {
	Possible            bool
	ConfirmedByOperator bool
	Problems            []string
}

// Engine decides on and performs repairs.
type Engine struct {
	checker   Checker
	confirmer confirm.Confirmer
}

// NewEngine creates an Engine. checker is used to prove a repair would leave
// the dataset valid; confirmer is asked before every repair.
func NewEngine(checker Checker, confirmer confirm.Confirmer) *Engine {
	return &Engine{checker: checker, confirmer: confirmer}
}

// Decide inspects data and, when a repair would fix every problem, asks the
// operator. The operator is never asked about an unrepairable dataset.
func (e *Engine) Decide(ctx context.Context, data *appdata.Complete) (Decision, error) {
	if data == nil {
		return Decision{}, nil
	}
	problems := e.checker.Validate(data)
	if problems.Valid {
		return Decision{}, nil
	}

	d := Decision{Problems: problems.Codes()}
	if !e.checker.Validate(repair(data)).Valid {
		slog.Warn("Dataset cannot be repaired automatically", "problems", d.Problems)
		return d, nil
	}
	d.Possible = true

	question := fmt.Sprintf("Stored data is inconsistent (%s). Attempt automatic repair?", strings.Join(d.Problems, ", "))
	ok, err := e.confirmer.Confirm(ctx, question)
	if err != nil {
		return d, err
	}
	d.ConfirmedByOperator = ok
	return d, nil
}

// IsRepairPossibleAndConfirmed reports whether Repair should run. Confirmation
// errors count as a denial.
func (e *Engine) IsRepairPossibleAndConfirmed(ctx context.Context, data *appdata.Complete) bool {
	d, err := e.Decide(ctx, data)
	if err != nil {
		slog.Warn("Repair confirmation failed", logfields.Error(err))
		return false
	}
	return d.Possible && d.ConfirmedByOperator
}

// Repair returns a repaired deep copy of data. The input is not modified.
func (e *Engine) Repair(data *appdata.Complete) *appdata.Complete {
	out := repair(data)
	if out != nil {
		slog.Info("Dataset repaired", logfields.Tasks(out.CurrentCount()), logfields.Archived(out.ArchivedCount()))
	}
	return out
}

func repair(data *appdata.Complete) *appdata.Complete {
	if data == nil {
		return nil
	}
	out := data.Clone()

	out.Project = rebuild(out.Project, appdata.ProjectID)
	out.Tag = rebuild(out.Tag, appdata.TagID)
	out.Task = rebuild(out.Task, appdata.TaskID)
	out.TaskArchive = rebuild(out.TaskArchive, appdata.TaskID)
	out.Note = rebuild(out.Note, appdata.NoteID)

	// Current wins over archived.
	out.TaskArchive = filter(out.TaskArchive, func(id string, _ appdata.Task) bool { return !out.Task.Has(id) })

	out.Task = fixTasks(out, out.Task)
	out.TaskArchive = fixTasks(out, out.TaskArchive)

	for id, p := range out.Project.Entities {
		p.TaskIDs = keepKnown(p.TaskIDs, out.Task.Has)
		p.BacklogTaskIDs = keepKnown(p.BacklogTaskIDs, out.Task.Has)
		out.Project.Entities[id] = p
	}
	for id, tag := range out.Tag.Entities {
		tag.TaskIDs = keepKnown(tag.TaskIDs, func(taskID string) bool {
			return out.Task.Has(taskID) || out.TaskArchive.Has(taskID)
		})
		out.Tag.Entities[id] = tag
	}
	for id, n := range out.Note.Entities {
		if n.ProjectID != "" && !out.Project.Has(n.ProjectID) {
			n.ProjectID = ""
			out.Note.Entities[id] = n
		}
	}
	return out
}

// rebuild re-derives ids from entities. Existing id order is kept, entities
// without an id are appended in sorted order, and entity ids are forced to
// match their key. Empty keys are dropped.
func rebuild[T any](s appdata.EntityState[T], id func(T) string) appdata.EntityState[T] {
	out := appdata.EntityState[T]{IDs: make([]string, 0, len(s.Entities)), Entities: make(map[string]T, len(s.Entities))}
	seen := make(map[string]bool, len(s.Entities))
	for _, key := range s.IDs {
		if key == "" || seen[key] {
			continue
		}
		e, ok := s.Entities[key]
		if !ok {
			continue
		}
		seen[key] = true
		out.IDs = append(out.IDs, key)
		out.Entities[key] = e
	}
	var extra []string
	for key := range s.Entities {
		if key != "" && !seen[key] {
			extra = append(extra, key)
		}
	}
	slices.Sort(extra)
	for _, key := range extra {
		out.IDs = append(out.IDs, key)
		out.Entities[key] = s.Entities[key]
	}
	for key, e := range out.Entities {
		if id(e) != key {
			out.Entities[key] = withID(e, key)
		}
	}
	return out
}

func withID[T any](e T, key string) T {
	switch v := any(e).(type) {
	case appdata.Project:
		v.ID = key
		return any(v).(T)
	case appdata.Tag:
		v.ID = key
		return any(v).(T)
	case appdata.Task:
		v.ID = key
		return any(v).(T)
	case appdata.Note:
		v.ID = key
		return any(v).(T)
	}
	return e
}

func filter[T any](s appdata.EntityState[T], keep func(string, T) bool) appdata.EntityState[T] {
	out := appdata.EntityState[T]{IDs: make([]string, 0, len(s.IDs)), Entities: make(map[string]T, len(s.Entities))}
	for _, id := range s.IDs {
		e := s.Entities[id]
		if keep(id, e) {
			out.IDs = append(out.IDs, id)
			out.Entities[id] = e
		}
	}
	return out
}

func fixTasks(data *appdata.Complete, tasks appdata.EntityState[appdata.Task]) appdata.EntityState[appdata.Task] {
	for id, t := range tasks.Entities {
		if t.ProjectID != "" && !data.Project.Has(t.ProjectID) {
			t.ProjectID = ""
		}
		if t.ParentID != "" && !tasks.Has(t.ParentID) {
			t.ParentID = ""
		}
		t.TagIDs = keepKnown(t.TagIDs, data.Tag.Has)
		t.SubTaskIDs = keepKnown(t.SubTaskIDs, tasks.Has)
		tasks.Entities[id] = t
	}
	return tasks
}

// keepKnown drops unknown and repeated ids, keeping order.
func keepKnown(ids []string, known func(string) bool) []string {
	if ids == nil {
		return nil
	}
	out := make([]string, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if seen[id] || !known(id) {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
