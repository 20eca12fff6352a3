// Package remote describes the destination file store as the sync core sees it.
package remote

import (
	"context"
	"io"
)

// FolderRecord is one folder of the destination hierarchy. IDPath lists the
// ancestor ids from the root down to the folder itself, so the root's IDPath
// is just its own id.
type FolderRecord struct {
	ID     string
	Name   string
	IDPath []string
}

// FileRecord is one file as listed by the store
type FileRecord struct {
	ID          string
	Name        string
	WebViewLink string
	Description string
	Properties  map[string]string
	Trashed     bool
}

// FolderListing holds the files directly inside a folder
type FolderListing struct {
	FolderID string
	Files    []FileRecord
}

// Hierarchy is the full snapshot of everything under a root folder
type Hierarchy struct {
	Folders  []FolderRecord
	Listings []FolderListing
}

// FileMeta is the metadata written alongside a file
type FileMeta struct {
	Name        string
	Description string
	Properties  map[string]string
}

// Ref identifies a stored file
type Ref struct {
	ID          string
	WebViewLink string
}

// Store is the destination file store. Every mutation returns the id the
// store confirmed; an empty id means the store did not confirm the change.
type Store interface {
	// Hierarchy lists every folder and file under rootID, including rootID
	Hierarchy(ctx context.Context, rootID string) (*Hierarchy, error)
	CreateFolder(ctx context.Context, parentID, name string) (string, error)
	CreateFile(ctx context.Context, parentID string, meta FileMeta, content io.Reader) (Ref, error)
	// UpdateFile replaces content, description and properties in place
	UpdateFile(ctx context.Context, fileID string, meta FileMeta, content io.Reader) (Ref, error)
	// TrashFile stamps description and properties, then moves the file to the trash
	TrashFile(ctx context.Context, fileID string, meta FileMeta) (string, error)
	TrashFolder(ctx context.Context, folderID string) (string, error)
}
