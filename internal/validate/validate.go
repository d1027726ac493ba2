// Package validate checks the structural integrity of a complete dataset.
package validate

import (
	"fmt"

	"git.home.luguber.info/inful/datainit/internal/appdata"
	"git.home.luguber.info/inful/datainit/internal/foundation"
)

// Error codes reported in FieldError.Code.
const (
	CodeNilData            = "nil_data"
	CodeIDsMismatch        = "ids_mismatch"
	CodeDuplicateID        = "duplicate_id"
	CodeEntityKeyMismatch  = "entity_key_mismatch"
	CodeEmptyID            = "empty_id"
	CodeMissingProject     = "missing_project"
	CodeMissingTag         = "missing_tag"
	CodeMissingParent      = "missing_parent"
	CodeDanglingTaskRef    = "dangling_task_ref"
	CodeArchivedAndCurrent = "archived_and_current"
)

// Validator runs the dataset checks.
type Validator struct {
	chain *foundation.ValidatorChain[*appdata.Complete]
}

// New returns a Validator with every check enabled.
func New() *Validator {
	return &Validator{
		chain: foundation.NewValidatorChain[*appdata.Complete](
			checkCollections,
			checkTaskReferences,
			checkProjectReferences,
			checkTagReferences,
			checkArchiveOverlap,
		),
	}
}

// IsValid reports whether data passes every check.
func (v *Validator) IsValid(data *appdata.Complete) bool {
	return v.Validate(data).Valid
}

// Validate returns a report listing every problem found.
func (v *Validator) Validate(data *appdata.Complete) foundation.ValidationResult {
	if data == nil {
		return foundation.Invalid(foundation.NewValidationError("", CodeNilData, "dataset is missing"))
	}
	return v.chain.Validate(data)
}

func checkCollections(data *appdata.Complete) foundation.ValidationResult {
	result := foundation.Valid()
	result = result.Combine(checkEntityState("project", data.Project, appdata.ProjectID))
	result = result.Combine(checkEntityState("tag", data.Tag, appdata.TagID))
	result = result.Combine(checkEntityState("task", data.Task, appdata.TaskID))
	result = result.Combine(checkEntityState("taskArchive", data.TaskArchive, appdata.TaskID))
	result = result.Combine(checkEntityState("note", data.Note, appdata.NoteID))
	return result
}

// checkEntityState verifies that ids and entities describe the same set.
func checkEntityState[T any](field string, s appdata.EntityState[T], id func(T) string) foundation.ValidationResult {
	var errs []foundation.FieldError

	seen := make(map[string]bool, len(s.IDs))
	for _, key := range s.IDs {
		if key == "" {
			errs = append(errs, fieldErr(field+".ids", CodeEmptyID, "empty id", nil))
			continue
		}
		if seen[key] {
			errs = append(errs, fieldErr(field+".ids", CodeDuplicateID, "duplicate id", key))
			continue
		}
		seen[key] = true
		if _, ok := s.Entities[key]; !ok {
			errs = append(errs, fieldErr(field+".ids", CodeIDsMismatch, "id has no entity", key))
		}
	}
	for key, entity := range s.Entities {
		if !seen[key] {
			errs = append(errs, fieldErr(field+".entities", CodeIDsMismatch, "entity missing from ids", key))
		}
		if got := id(entity); got != key {
			errs = append(errs, fieldErr(field+".entities", CodeEntityKeyMismatch,
				fmt.Sprintf("entity stored under %q has id %q", key, got), key))
		}
	}
	return result(errs)
}

func checkTaskReferences(data *appdata.Complete) foundation.ValidationResult {
	var errs []foundation.FieldError
	for _, field := range []struct {
		name  string
		tasks appdata.EntityState[appdata.Task]
	}{{"task", data.Task}, {"taskArchive", data.TaskArchive}} {
		for id, t := range field.tasks.Entities {
			if t.ProjectID != "" && !data.Project.Has(t.ProjectID) {
				errs = append(errs, fieldErr(field.name+"."+id+".projectId", CodeMissingProject, "unknown project", t.ProjectID))
			}
			for _, tagID := range t.TagIDs {
				if !data.Tag.Has(tagID) {
					errs = append(errs, fieldErr(field.name+"."+id+".tagIds", CodeMissingTag, "unknown tag", tagID))
				}
			}
			if t.ParentID != "" && !field.tasks.Has(t.ParentID) {
				errs = append(errs, fieldErr(field.name+"."+id+".parentId", CodeMissingParent, "unknown parent task", t.ParentID))
			}
			for _, subID := range t.SubTaskIDs {
				if !field.tasks.Has(subID) {
					errs = append(errs, fieldErr(field.name+"."+id+".subTaskIds", CodeDanglingTaskRef, "unknown sub task", subID))
				}
			}
		}
	}
	return result(errs)
}

func checkProjectReferences(data *appdata.Complete) foundation.ValidationResult {
	var errs []foundation.FieldError
	for id, p := range data.Project.Entities {
		for _, taskID := range p.TaskIDs {
			if !data.Task.Has(taskID) {
				errs = append(errs, fieldErr("project."+id+".taskIds", CodeDanglingTaskRef, "unknown task", taskID))
			}
		}
		for _, taskID := range p.BacklogTaskIDs {
			if !data.Task.Has(taskID) {
				errs = append(errs, fieldErr("project."+id+".backlogTaskIds", CodeDanglingTaskRef, "unknown task", taskID))
			}
		}
	}
	for id, n := range data.Note.Entities {
		if n.ProjectID != "" && !data.Project.Has(n.ProjectID) {
			errs = append(errs, fieldErr("note."+id+".projectId", CodeMissingProject, "unknown project", n.ProjectID))
		}
	}
	return result(errs)
}

func checkTagReferences(data *appdata.Complete) foundation.ValidationResult {
	var errs []foundation.FieldError
	for id, tag := range data.Tag.Entities {
		for _, taskID := range tag.TaskIDs {
			if !data.Task.Has(taskID) && !data.TaskArchive.Has(taskID) {
				errs = append(errs, fieldErr("tag."+id+".taskIds", CodeDanglingTaskRef, "unknown task", taskID))
			}
		}
	}
	return result(errs)
}

func checkArchiveOverlap(data *appdata.Complete) foundation.ValidationResult {
	var errs []foundation.FieldError
	for id := range data.TaskArchive.Entities {
		if data.Task.Has(id) {
			errs = append(errs, fieldErr("taskArchive", CodeArchivedAndCurrent, "task is both current and archived", id))
		}
	}
	return result(errs)
}

func fieldErr(field, code, message string, value any) foundation.FieldError {
	fe := foundation.NewValidationError(field, code, message)
	fe.Value = value
	return fe
}

func result(errs []foundation.FieldError) foundation.ValidationResult {
	if len(errs) == 0 {
		return foundation.Valid()
	}
	return foundation.Invalid(errs...)
}
