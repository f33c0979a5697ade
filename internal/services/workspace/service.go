// Package workspace resolves the active workspace.
package workspace

import (
	"context"
	"errors"
	"fmt"

	"github.com/Flocio/AgrisaleWS-sub002/internal/models"
	"github.com/Flocio/AgrisaleWS-sub002/internal/services/settings"
	"github.com/rs/zerolog"
)

// Resolver supplies the active workspace. It returns models.ErrWorkspaceUnresolved
// when no workspace is active.
type Resolver interface {
	Current(ctx context.Context) (models.Workspace, error)
}

// NameLookup returns the display name of a workspace id.
type NameLookup interface {
	WorkspaceName(ctx context.Context, workspaceID int64) (string, error)
}

// SettingsResolver reads current_workspace_id from the global settings scope
// and the name from the data store.
type SettingsResolver struct {
	store  settings.Store
	names  NameLookup
	logger zerolog.Logger
}

// NewSettingsResolver creates a resolver backed by the settings store.
func NewSettingsResolver(logger zerolog.Logger, store settings.Store, names NameLookup) *SettingsResolver {
	return &SettingsResolver{store: store, names: names, logger: logger}
}

// Current returns the workspace selected in settings.
func (r *SettingsResolver) Current(ctx context.Context) (models.Workspace, error) {
	id, ok, err := settings.GetInt(ctx, r.store, settings.Global(), settings.KeyCurrentWorkspaceID)
	if err != nil {
		return models.Workspace{}, fmt.Errorf("reading current workspace: %w", err)
	}
	if !ok || id <= 0 {
		return models.Workspace{}, models.ErrWorkspaceUnresolved
	}

	name, err := r.names.WorkspaceName(ctx, int64(id))
	if err != nil {
		if errors.Is(err, models.ErrWorkspaceUnresolved) {
			r.logger.Warn().Int("workspace_id", id).Msg("current workspace no longer exists")
		}
		return models.Workspace{}, err
	}
	return models.Workspace{ID: int64(id), Name: name}, nil
}

// Select stores id as the current workspace.
func (r *SettingsResolver) Select(ctx context.Context, id int64) error {
	if _, err := r.names.WorkspaceName(ctx, id); err != nil {
		return err
	}
	return settings.SetInt(ctx, r.store, settings.Global(), settings.KeyCurrentWorkspaceID, int(id))
}

// Fixed always resolves to the same workspace. A zero value resolves to nothing.
type Fixed models.Workspace

// Current returns the fixed workspace.
func (f Fixed) Current(_ context.Context) (models.Workspace, error) {
	if f.Name == "" {
		return models.Workspace{}, models.ErrWorkspaceUnresolved
	}
	return models.Workspace(f), nil
}
