package appdata

// CurrentSchemaVersion is the project-state model version this build reads and writes.
const CurrentSchemaVersion = 3

// LegacyState is the versioned project-state document that predates the
// complete dataset. Records are kept as raw maps so migrations can rename and
// reshape fields the current Project type no longer knows about.
type LegacyState struct {
	ModelVersion int                       `json:"__modelVersion"`
	IDs          []string                  `json:"ids"`
	Entities     map[string]map[string]any `json:"entities"`
}

// NewLegacyState returns an empty state at the current schema version.
func NewLegacyState() *LegacyState {
	return &LegacyState{
		ModelVersion: CurrentSchemaVersion,
		IDs:          []string{},
		Entities:     map[string]map[string]any{},
	}
}

// Clone returns a copy whose records can be modified independently.
func (s *LegacyState) Clone() *LegacyState {
	if s == nil {
		return nil
	}
	out := &LegacyState{
		ModelVersion: s.ModelVersion,
		IDs:          append([]string(nil), s.IDs...),
	}
	if s.Entities != nil {
		out.Entities = make(map[string]map[string]any, len(s.Entities))
		for id, rec := range s.Entities {
			out.Entities[id] = cloneAnyMap(rec)
		}
	}
	return out
}
