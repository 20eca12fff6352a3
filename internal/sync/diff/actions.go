package diff

import (
	"github.com/dl-alexandre/gitdrive/internal/source"
	"github.com/dl-alexandre/gitdrive/internal/sync/inventory"
)

type ActionType string

const (
	ActionCreate ActionType = "create"
	ActionUpdate ActionType = "update"
	ActionDelete ActionType = "delete"
)

// Action is one planned change to the destination. Create carries only
// Tracked, Update carries both sides and Delete always carries Remote, plus
// Tracked when the source still lists the path as deleted.
type Action struct {
	Type    ActionType
	Path    string
	Tracked *source.TrackedFile
	Remote  *inventory.File
}

// Fingerprint returns the fingerprint the action will stamp on the destination
func (a Action) Fingerprint() string {
	if a.Tracked != nil {
		return a.Tracked.Fingerprint
	}
	return ""
}
