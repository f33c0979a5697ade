package models

import "time"

// SnapshotFormatVersion is the current snapshot payload version.
const SnapshotFormatVersion = 1

// Snapshot is the exportable content of one workspace's data store.
type Snapshot struct {
	ID            string                      `json:"id"`
	FormatVersion int                         `json:"format_version"`
	WorkspaceID   int64                       `json:"workspace_id"`
	WorkspaceName string                      `json:"workspace_name"`
	CreatedAt     time.Time                   `json:"created_at"`
	Tables        map[string][]map[string]any `json:"tables"`
}

// RowCount returns the total number of rows across all tables.
func (s *Snapshot) RowCount() int {
	n := 0
	for _, rows := range s.Tables {
		n += len(rows)
	}
	return n
}
