// Package retention decides which backups exceed the configured count.
package retention

import (
	"cmp"
	"slices"

	"github.com/Flocio/AgrisaleWS-sub002/internal/models"
)

// SelectForEviction returns the oldest len(records)-maxCount records, oldest
// first. Records are ordered by modified time, then by file name. The input
// slice is not modified. A maxCount below 1 is treated as 1.
func SelectForEviction(records []models.BackupRecord, maxCount int) []models.BackupRecord {
	maxCount = max(maxCount, 1)
	if len(records) <= maxCount {
		return []models.BackupRecord{}
	}

	sorted := SortOldestFirst(records)
	return sorted[:len(sorted)-maxCount]
}

// SortOldestFirst returns a copy of records ordered by modified time, then file name.
func SortOldestFirst(records []models.BackupRecord) []models.BackupRecord {
	sorted := slices.Clone(records)
	slices.SortStableFunc(sorted, func(a, b models.BackupRecord) int {
		if c := a.ModifiedTime.Compare(b.ModifiedTime); c != 0 {
			return c
		}
		return cmp.Compare(a.FileName, b.FileName)
	})
	return sorted
}
