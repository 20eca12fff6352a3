// Package drivestore implements the destination store on Google Drive v3.
package drivestore

import (
	"context"

	"github.com/dl-alexandre/gitdrive/internal/api"
	"github.com/dl-alexandre/gitdrive/internal/remote"
	"github.com/dl-alexandre/gitdrive/internal/types"
)

// Store talks to Drive through the retrying API client
type Store struct {
	client *api.Client
	runID  string
}

var _ remote.Store = (*Store)(nil)

// New creates a Drive-backed store; runID is attached to every request context
func New(client *api.Client, runID string) *Store {
	return &Store{client: client, runID: runID}
}

func (s *Store) request(requestType types.RequestType) *types.RequestContext {
	return api.NewRequestContext(s.runID, requestType)
}

// Hierarchy walks the tree below rootID breadth first
func (s *Store) Hierarchy(ctx context.Context, rootID string) (*remote.Hierarchy, error) {
	return newScanner(s.client, s.request(types.RequestTypeListOrSearch)).scan(ctx, rootID)
}
