package migration

// Step upgrades every record of a legacy state from version From to To.
// Apply mutates the record in place.
type Step struct {
	From  int
	To    int
	Name  string
	Apply func(id string, record map[string]any) error
}

// DefaultSteps returns the chain from the first released schema to
// appdata.CurrentSchemaVersion.
func DefaultSteps() []Step {
	return []Step{
		{From: 0, To: 1, Name: "add-record-ids", Apply: addRecordID},
		{From: 1, To: 2, Name: "rename-name-to-title", Apply: renameNameToTitle},
		{From: 2, To: 3, Name: "archive-and-backlog", Apply: archiveAndBacklog},
	}
}

func addRecordID(id string, record map[string]any) error {
	if _, ok := record["id"]; !ok {
		record["id"] = id
	}
	return nil
}

func renameNameToTitle(_ string, record map[string]any) error {
	name, ok := record["name"]
	if !ok {
		return nil
	}
	if _, has := record["title"]; !has {
		record["title"] = name
	}
	delete(record, "name")
	return nil
}

func archiveAndBacklog(_ string, record map[string]any) error {
	if hidden, ok := record["isHidden"].(bool); ok {
		if _, has := record["isArchived"]; !has {
			record["isArchived"] = hidden
		}
		delete(record, "isHidden")
	}
	if _, ok := record["backlogTaskIds"]; !ok {
		record["backlogTaskIds"] = []any{}
	}
	if _, ok := record["taskIds"]; !ok {
		record["taskIds"] = []any{}
	}
	return nil
}

