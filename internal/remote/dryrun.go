package remote

import (
	"context"
	"fmt"
	"io"
	"sync/atomic"
)

// DryRunStore reads through to a real store and fakes every mutation, so a
// run can be rehearsed end to end without touching the destination.
type DryRunStore struct {
	Store
	next atomic.Int64
}

// NewDryRunStore wraps store
func NewDryRunStore(store Store) *DryRunStore {
	return &DryRunStore{Store: store}
}

func (s *DryRunStore) id() string {
	return fmt.Sprintf("dry-run-%d", s.next.Add(1))
}

// CreateFolder pretends to create a folder
func (s *DryRunStore) CreateFolder(ctx context.Context, parentID, name string) (string, error) {
	return s.id(), nil
}

// CreateFile drains content and pretends to store it
func (s *DryRunStore) CreateFile(ctx context.Context, parentID string, meta FileMeta, content io.Reader) (Ref, error) {
	if _, err := io.Copy(io.Discard, content); err != nil {
		return Ref{}, err
	}
	return Ref{ID: s.id(), WebViewLink: "about:blank"}, nil
}

// UpdateFile drains content and pretends to store it
func (s *DryRunStore) UpdateFile(ctx context.Context, fileID string, meta FileMeta, content io.Reader) (Ref, error) {
	if _, err := io.Copy(io.Discard, content); err != nil {
		return Ref{}, err
	}
	return Ref{ID: fileID}, nil
}

// TrashFile pretends to trash the file
func (s *DryRunStore) TrashFile(ctx context.Context, fileID string, meta FileMeta) (string, error) {
	return fileID, nil
}

// TrashFolder pretends to trash the folder
func (s *DryRunStore) TrashFolder(ctx context.Context, folderID string) (string, error) {
	return folderID, nil
}
