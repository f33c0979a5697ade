package models

import (
	"errors"
	"fmt"
)

var (
	// ErrWorkspaceUnresolved is returned when no workspace is active.
	ErrWorkspaceUnresolved = errors.New("workspace unresolved")

	// ErrCaptureInFlight is returned when a capture or restore already holds the in-flight slot.
	ErrCaptureInFlight = errors.New("a backup operation is already in progress")

	// ErrInvalidInterval is returned for intervals outside the allowed set.
	ErrInvalidInterval = errors.New("invalid backup interval")

	// ErrInvalidMaxCount is returned for retention counts outside the allowed range.
	ErrInvalidMaxCount = errors.New("invalid backup max count")

	// ErrInvalidBackupPath is returned for paths outside the backup directory
	// or not belonging to the active workspace.
	ErrInvalidBackupPath = errors.New("invalid backup path")

	// ErrInvalidWorkspaceName is returned for names that cannot be embedded in a file name.
	ErrInvalidWorkspaceName = errors.New("invalid workspace name")

	// ErrBackupNotFound is returned when the referenced artifact does not exist.
	ErrBackupNotFound = errors.New("backup not found")
)

// StorageIOError represents a failed write, delete, list or stat on backup storage.
type StorageIOError struct {
	Op    string
	Path  string
	Cause error
}

// Error implements the error interface.
func (e *StorageIOError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("storage %s failed: %v", e.Op, e.Cause)
	}
	return fmt.Sprintf("storage %s %s failed: %v", e.Op, e.Path, e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *StorageIOError) Unwrap() error {
	return e.Cause
}

// NewStorageIOError creates a new StorageIOError.
func NewStorageIOError(op, path string, cause error) *StorageIOError {
	return &StorageIOError{Op: op, Path: path, Cause: cause}
}

// RetentionEvictionError represents a failed deletion of an evicted backup.
// It never fails the capture that triggered the eviction.
type RetentionEvictionError struct {
	Path  string
	Cause error
}

// Error implements the error interface.
func (e *RetentionEvictionError) Error() string {
	return fmt.Sprintf("evicting %s: %v", e.Path, e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *RetentionEvictionError) Unwrap() error {
	return e.Cause
}
