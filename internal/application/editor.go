package application

import (
	"context"
	"sync"

	"marketplace-session-layer/internal/domain"

	"github.com/rs/zerolog"
)

// EditorMode is the phase of the directory editing workflow
type EditorMode string

const (
	EditorIdle    EditorMode = "idle"
	EditorAdding  EditorMode = "adding"
	EditorEditing EditorMode = "editing"
)

// EditorState is the editor's current state. Index is only meaningful while editing.
type EditorState struct {
	Mode  EditorMode `json:"mode"`
	Index int        `json:"index"`
}

// Editor drives add/edit/delete of directory entries with at most one entry
// open at a time
type Editor struct {
	directory *DirectoryService
	logger    zerolog.Logger

	mu    sync.Mutex
	state EditorState
}

// NewEditor creates an idle editor over directory
func NewEditor(directory *DirectoryService, logger zerolog.Logger) *Editor {
	return &Editor{
		directory: directory,
		logger:    logger,
		state:     EditorState{Mode: EditorIdle, Index: -1},
	}
}

// State returns the current state
func (e *Editor) State() EditorState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// BeginAdd moves Idle to Adding
func (e *Editor) BeginAdd() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state.Mode != EditorIdle {
		return domain.ErrEditorBusy
	}
	e.state = EditorState{Mode: EditorAdding, Index: -1}
	return nil
}

// BeginEdit moves Idle to Editing(index) and returns the entry being edited
func (e *Editor) BeginEdit(ctx context.Context, index int) (domain.StoreConfig, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state.Mode != EditorIdle {
		return domain.StoreConfig{}, domain.ErrEditorBusy
	}
	entry, err := e.directory.Get(ctx, index)
	if err != nil {
		return domain.StoreConfig{}, err
	}
	e.state = EditorState{Mode: EditorEditing, Index: index}
	return entry, nil
}

// Cancel returns to Idle without touching the directory
func (e *Editor) Cancel() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.state = EditorState{Mode: EditorIdle, Index: -1}
}

// Submit applies entry as the add or edit in progress. On a validation
// failure the editor stays where it is and the error names the broken rule.
func (e *Editor) Submit(ctx context.Context, entry domain.StoreConfig) (domain.StoreConfig, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	var (
		saved domain.StoreConfig
		err   error
	)
	switch e.state.Mode {
	case EditorAdding:
		saved, err = e.directory.Add(ctx, entry)
	case EditorEditing:
		saved, err = e.directory.Update(ctx, e.state.Index, entry)
	default:
		return domain.StoreConfig{}, domain.ErrEditorIdle
	}
	if err != nil {
		if verr, ok := domain.AsValidationError(err); ok {
			e.logger.Debug().
				Str("rule", string(verr.Rule)).
				Str("mode", string(e.state.Mode)).
				Msg("Store entry rejected")
		}
		return domain.StoreConfig{}, err
	}

	e.state = EditorState{Mode: EditorIdle, Index: -1}
	return saved, nil
}

// Delete removes the entry at index immediately. It is only allowed while idle.
func (e *Editor) Delete(ctx context.Context, index int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state.Mode != EditorIdle {
		return domain.ErrEditorBusy
	}
	return e.directory.Remove(ctx, index)
}
