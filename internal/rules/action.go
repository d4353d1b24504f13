package rules

import (
	"encoding/json"
	"fmt"

	"github.com/vmunix/prunarr/internal/media"
)

// Action is one step a rule performs against a matched item. The set of
// implementations is closed; the pipeline dispatches with an exhaustive type
// switch so a new action kind is a compile-checked change.
type Action interface {
	// Deferred actions run when the queue buffer expires; the rest run at
	// match time.
	Deferred() bool
	actionType() string
}

// AddToCollection stages the match into the deletion queue (and the
// media-server collection backing it).
type AddToCollection struct {
	Collection string `json:"collection"`
}

// DeleteFromLibrary removes the item from the media server library.
type DeleteFromLibrary struct{}

// DeleteFromManager removes the title from the TV or movie download manager.
type DeleteFromManager struct {
	Kind         media.Kind `json:"kind"` // show or movie
	DeleteFiles  bool       `json:"delete_files,omitempty"`
	AddExclusion bool       `json:"add_exclusion,omitempty"`
}

// Unmonitor stops the download manager from tracking the title.
type Unmonitor struct {
	Kind media.Kind `json:"kind"`
}

// ClearRequest removes any pending request record for the item.
type ClearRequest struct{}

// AddTag tags the item on the media server.
type AddTag struct {
	Tag string `json:"tag"`
}

// DeleteFiles removes the item's files on the media server.
type DeleteFiles struct{}

func (AddToCollection) Deferred() bool   { return false }
func (DeleteFromLibrary) Deferred() bool { return true }
func (DeleteFromManager) Deferred() bool { return true }
func (Unmonitor) Deferred() bool         { return false }
func (ClearRequest) Deferred() bool      { return false }
func (AddTag) Deferred() bool            { return false }
func (DeleteFiles) Deferred() bool       { return true }

func (AddToCollection) actionType() string   { return ActionAddToCollection }
func (DeleteFromLibrary) actionType() string { return ActionDeleteFromLibrary }
func (DeleteFromManager) actionType() string { return ActionDeleteFromManager }
func (Unmonitor) actionType() string         { return ActionUnmonitor }
func (ClearRequest) actionType() string      { return ActionClearRequest }
func (AddTag) actionType() string            { return ActionAddTag }
func (DeleteFiles) actionType() string       { return ActionDeleteFiles }

// Action type tags used on the wire and in storage.
const (
	ActionAddToCollection   = "add_to_collection"
	ActionDeleteFromLibrary = "delete_from_library"
	ActionDeleteFromManager = "delete_from_manager"
	ActionUnmonitor         = "unmonitor"
	ActionClearRequest      = "clear_request"
	ActionAddTag            = "add_tag"
	ActionDeleteFiles       = "delete_files"
)

// actionEnvelope is the tagged JSON form of any action.
type actionEnvelope struct {
	Type         string     `json:"type"`
	Collection   string     `json:"collection,omitempty"`
	Tag          string     `json:"tag,omitempty"`
	Kind         media.Kind `json:"kind,omitempty"`
	DeleteFiles  bool       `json:"delete_files,omitempty"`
	AddExclusion bool       `json:"add_exclusion,omitempty"`
}

// EncodeActions serializes an ordered action list to its tagged JSON form.
func EncodeActions(actions []Action) ([]byte, error) {
	envs := make([]actionEnvelope, 0, len(actions))
	for _, a := range actions {
		env := actionEnvelope{Type: a.actionType()}
		switch v := a.(type) {
		case AddToCollection:
			env.Collection = v.Collection
		case DeleteFromLibrary, ClearRequest, DeleteFiles:
		case DeleteFromManager:
			env.Kind = v.Kind
			env.DeleteFiles = v.DeleteFiles
			env.AddExclusion = v.AddExclusion
		case Unmonitor:
			env.Kind = v.Kind
		case AddTag:
			env.Tag = v.Tag
		default:
			return nil, fmt.Errorf("encode action: unknown type %T", a)
		}
		envs = append(envs, env)
	}
	return json.Marshal(envs)
}

// DecodeActions parses the tagged JSON form back into an action list.
func DecodeActions(data []byte) ([]Action, error) {
	var envs []actionEnvelope
	if err := json.Unmarshal(data, &envs); err != nil {
		return nil, fmt.Errorf("decode actions: %w", err)
	}
	actions := make([]Action, 0, len(envs))
	for _, env := range envs {
		switch env.Type {
		case ActionAddToCollection:
			actions = append(actions, AddToCollection{Collection: env.Collection})
		case ActionDeleteFromLibrary:
			actions = append(actions, DeleteFromLibrary{})
		case ActionDeleteFromManager:
			actions = append(actions, DeleteFromManager{Kind: env.Kind, DeleteFiles: env.DeleteFiles, AddExclusion: env.AddExclusion})
		case ActionUnmonitor:
			actions = append(actions, Unmonitor{Kind: env.Kind})
		case ActionClearRequest:
			actions = append(actions, ClearRequest{})
		case ActionAddTag:
			actions = append(actions, AddTag{Tag: env.Tag})
		case ActionDeleteFiles:
			actions = append(actions, DeleteFiles{})
		default:
			return nil, fmt.Errorf("decode actions: unknown type %q", env.Type)
		}
	}
	return actions, nil
}

// validateActions checks per-type required options and manager kinds.
func validateActions(actions []Action) []string {
	var errs []string
	for i, a := range actions {
		switch v := a.(type) {
		case AddToCollection:
			if v.Collection == "" {
				errs = append(errs, fmt.Sprintf("action %d: add_to_collection requires a collection name", i))
			}
		case AddTag:
			if v.Tag == "" {
				errs = append(errs, fmt.Sprintf("action %d: add_tag requires a tag", i))
			}
		case DeleteFromManager:
			if v.Kind != media.KindShow && v.Kind != media.KindMovie {
				errs = append(errs, fmt.Sprintf("action %d: delete_from_manager kind must be show or movie", i))
			}
		case Unmonitor:
			if v.Kind != media.KindShow && v.Kind != media.KindMovie {
				errs = append(errs, fmt.Sprintf("action %d: unmonitor kind must be show or movie", i))
			}
		}
	}
	return errs
}
