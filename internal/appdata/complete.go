package appdata

// Complete is the full application dataset as returned by the persistence gateway.
type Complete struct {
	LastLocalSyncModelChange int64                `json:"lastLocalSyncModelChange"`
	Project                  EntityState[Project] `json:"project"`
	Tag                      EntityState[Tag]     `json:"tag"`
	Task                     EntityState[Task]    `json:"task"`
	TaskArchive              EntityState[Task]    `json:"taskArchive"`
	Note                     EntityState[Note]    `json:"note"`
	GlobalConfig             GlobalConfig         `json:"globalConfig"`
}

// NewComplete returns an empty dataset with every collection initialized.
func NewComplete() *Complete {
	return &Complete{
		Project:     EntityState[Project]{IDs: []string{}, Entities: map[string]Project{}},
		Tag:         EntityState[Tag]{IDs: []string{}, Entities: map[string]Tag{}},
		Task:        EntityState[Task]{IDs: []string{}, Entities: map[string]Task{}},
		TaskArchive: EntityState[Task]{IDs: []string{}, Entities: map[string]Task{}},
		Note:        EntityState[Note]{IDs: []string{}, Entities: map[string]Note{}},
	}
}

// CurrentCount is the number of current (non-archived) tasks.
func (c *Complete) CurrentCount() int {
	if c == nil {
		return 0
	}
	return c.Task.Len()
}

// ArchivedCount is the number of archived tasks.
func (c *Complete) ArchivedCount() int {
	if c == nil {
		return 0
	}
	return c.TaskArchive.Len()
}

// HasNoTasks reports whether both the current and the archived task
// collections are empty. An otherwise valid dataset in this state usually
// means data was lost rather than never created.
func (c *Complete) HasNoTasks() bool {
	return c.CurrentCount() == 0 && c.ArchivedCount() == 0
}

// Clone returns a deep copy.
func (c *Complete) Clone() *Complete {
	if c == nil {
		return nil
	}
	out := &Complete{
		LastLocalSyncModelChange: c.LastLocalSyncModelChange,
		Project:                  cloneState(c.Project, Project.clone),
		Tag:                      cloneState(c.Tag, Tag.clone),
		Task:                     cloneState(c.Task, Task.clone),
		TaskArchive:              cloneState(c.TaskArchive, Task.clone),
		Note:                     cloneState(c.Note, Note.clone),
		GlobalConfig: GlobalConfig{
			Sync: c.GlobalConfig.Sync,
			Misc: cloneAnyMap(c.GlobalConfig.Misc),
		},
	}
	return out
}

// Summary is a count-per-collection view used for logs and CLI output.
type Summary struct {
	Projects int `json:"projects"`
	Tags     int `json:"tags"`
	Tasks    int `json:"tasks"`
	Archived int `json:"archived"`
	Notes    int `json:"notes"`
}

// Summarize counts each collection.
func (c *Complete) Summarize() Summary {
	if c == nil {
		return Summary{}
	}
	return Summary{
		Projects: c.Project.Len(),
		Tags:     c.Tag.Len(),
		Tasks:    c.Task.Len(),
		Archived: c.TaskArchive.Len(),
		Notes:    c.Note.Len(),
	}
}
