package appdata

import "slices"

// Project groups tasks. TaskIDs and BacklogTaskIDs reference current tasks.
type Project struct {
	ID             string   `json:"id"`
	Title          string   `json:"title"`
	TaskIDs        []string `json:"taskIds"`
	BacklogTaskIDs []string `json:"backlogTaskIds"`
	IsArchived     bool     `json:"isArchived"`
}

// Tag labels tasks across projects.
type Tag struct {
	ID      string   `json:"id"`
	Title   string   `json:"title"`
	TaskIDs []string `json:"taskIds"`
}

// Task is a unit of work. A task with a ParentID is a sub task.
type Task struct {
	ID         string   `json:"id"`
	Title      string   `json:"title"`
	ProjectID  string   `json:"projectId,omitempty"`
	ParentID   string   `json:"parentId,omitempty"`
	SubTaskIDs []string `json:"subTaskIds"`
	TagIDs     []string `json:"tagIds"`
	IsDone     bool     `json:"isDone"`
	Created    int64    `json:"created"`
}

// Note is a free-form note optionally attached to a project.
type Note struct {
	ID        string `json:"id"`
	Content   string `json:"content"`
	ProjectID string `json:"projectId,omitempty"`
}

// SyncConfig holds remote sync settings. The tokens are credentials that an
// explicit reload may choose not to overwrite.
type SyncConfig struct {
	Provider     string `json:"provider,omitempty"`
	AccessToken  string `json:"accessToken,omitempty"`
	RefreshToken string `json:"refreshToken,omitempty"`
}

// HasTokens reports whether any credential is set.
func (s SyncConfig) HasTokens() bool {
	return s.AccessToken != "" || s.RefreshToken != ""
}

// GlobalConfig is application-wide configuration stored alongside the data.
type GlobalConfig struct {
	Sync SyncConfig     `json:"sync"`
	Misc map[string]any `json:"misc,omitempty"`
}

func (p Project) clone() Project {
	p.TaskIDs = slices.Clone(p.TaskIDs)
	p.BacklogTaskIDs = slices.Clone(p.BacklogTaskIDs)
	return p
}

func (t Tag) clone() Tag {
	t.TaskIDs = slices.Clone(t.TaskIDs)
	return t
}

func (t Task) clone() Task {
	t.SubTaskIDs = slices.Clone(t.SubTaskIDs)
	t.TagIDs = slices.Clone(t.TagIDs)
	return t
}

func (n Note) clone() Note { return n }

// ProjectID returns the entity id; used with NewEntityState.
func ProjectID(p Project) string { return p.ID }

// TagID returns the entity id; used with NewEntityState.
func TagID(t Tag) string { return t.ID }

// TaskID returns the entity id; used with NewEntityState.
func TaskID(t Task) string { return t.ID }

// NoteID returns the entity id; used with NewEntityState.
func NoteID(n Note) string { return n.ID }
