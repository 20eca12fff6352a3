// Package inventory mirrors the destination folder tree in memory.
package inventory

import (
	"path"
	"strings"
	"sync"

	"github.com/dl-alexandre/gitdrive/internal/remote"
	"github.com/dl-alexandre/gitdrive/internal/utils"
)

// Folder is a destination folder. FullPath is relative to the sync root,
// which itself has FullPath "".
type Folder struct {
	ID       string
	Name     string
	FullPath string
	IDPath   []string

	files []*File
}

// DisplayPath is FullPath for people: the sync root reads "/"
func (f *Folder) DisplayPath() string {
	if f.FullPath == "" {
		return "/"
	}
	return f.FullPath
}

// File is a destination file
type File struct {
	ID          string
	Name        string
	FullPath    string
	WebViewLink string
	Folder      *Folder
	Description string
	Properties  map[string]string
}

// Fingerprint returns the synced fingerprint stored on the file, if any
func (f *File) Fingerprint() string {
	return f.Properties[utils.FingerprintProperty]
}

// Inventory is the in-memory destination tree. Operations running in
// parallel mutate it through its methods, which serialize access.
type Inventory struct {
	mu      sync.RWMutex
	root    *Folder
	folders map[string]*Folder
	byID    map[string]*Folder
	files   []*File
}

// Build assembles an inventory from a hierarchy snapshot. Folder paths come
// from the names along each IDPath, skipping the root; trashed files are left
// out.
func Build(rootID string, h *remote.Hierarchy) (*Inventory, error) {
	if h == nil {
		return nil, utils.Errorf(utils.ErrCodeRetrieval, "no hierarchy returned for root folder")
	}

	names := make(map[string]string, len(h.Folders))
	for _, rec := range h.Folders {
		names[rec.ID] = rec.Name
	}

	inv := &Inventory{
		folders: make(map[string]*Folder, len(h.Folders)+1),
		byID:    make(map[string]*Folder, len(h.Folders)+1),
	}

	inv.root = &Folder{ID: rootID, Name: names[rootID], IDPath: []string{rootID}}
	inv.folders[""] = inv.root
	inv.byID[rootID] = inv.root

	for _, rec := range h.Folders {
		if rec.ID == rootID {
			continue
		}
		if len(rec.IDPath) < 2 || rec.IDPath[0] != rootID || rec.IDPath[len(rec.IDPath)-1] != rec.ID {
			return nil, utils.NewAppError(utils.NewCLIError(utils.ErrCodeRetrieval,
				"folder hierarchy is not rooted at the destination folder").
				WithContext("folderId", rec.ID).
				Build())
		}

		parts := make([]string, 0, len(rec.IDPath)-1)
		for _, id := range rec.IDPath[1:] {
			name, ok := names[id]
			if !ok {
				return nil, utils.NewAppError(utils.NewCLIError(utils.ErrCodeRetrieval,
					"folder hierarchy references an unknown folder").
					WithContext("folderId", id).
					Build())
			}
			parts = append(parts, name)
		}

		folder := &Folder{
			ID:       rec.ID,
			Name:     rec.Name,
			FullPath: strings.Join(parts, "/"),
			IDPath:   append([]string(nil), rec.IDPath...),
		}
		inv.byID[folder.ID] = folder
		// Same-named siblings share a path; the first one listed owns it.
		if _, exists := inv.folders[folder.FullPath]; !exists {
			inv.folders[folder.FullPath] = folder
		}
	}

	for _, listing := range h.Listings {
		folder, ok := inv.byID[listing.FolderID]
		if !ok {
			return nil, utils.NewAppError(utils.NewCLIError(utils.ErrCodeRetrieval,
				"file listing references an unknown folder").
				WithContext("folderId", listing.FolderID).
				Build())
		}
		for _, rec := range listing.Files {
			if rec.Trashed {
				continue
			}
			inv.attach(folder, rec.ID, rec.Name, rec.WebViewLink, rec.Description, rec.Properties)
		}
	}

	return inv, nil
}

// attach registers a file; callers hold mu or own inv exclusively
func (inv *Inventory) attach(folder *Folder, id, name, link, description string, props map[string]string) *File {
	if link == "" {
		link = utils.BadLink
	}
	properties := make(map[string]string, len(props))
	for k, v := range props {
		properties[k] = v
	}
	f := &File{
		ID:          id,
		Name:        name,
		FullPath:    path.Join(folder.FullPath, name),
		WebViewLink: link,
		Folder:      folder,
		Description: description,
		Properties:  properties,
	}
	folder.files = append(folder.files, f)
	inv.files = append(inv.files, f)
	return f
}

// NormalizePath maps "", "." and "./x" style folder paths onto inventory keys
func NormalizePath(p string) string {
	p = strings.Trim(path.Clean("/"+p), "/")
	return p
}

// Root returns the sync root folder
func (inv *Inventory) Root() *Folder {
	return inv.root
}

// Folder looks up a folder by path; "" and "." name the root
func (inv *Inventory) Folder(p string) (*Folder, bool) {
	inv.mu.RLock()
	defer inv.mu.RUnlock()
	f, ok := inv.folders[NormalizePath(p)]
	return f, ok
}

// Files returns every live file in listing order
func (inv *Inventory) Files() []*File {
	inv.mu.RLock()
	defer inv.mu.RUnlock()
	return append([]*File(nil), inv.files...)
}

// AddFolder registers a folder just created under parent
func (inv *Inventory) AddFolder(parent *Folder, id, name string) (*Folder, error) {
	inv.mu.Lock()
	defer inv.mu.Unlock()

	fullPath := path.Join(parent.FullPath, name)
	if _, exists := inv.folders[fullPath]; exists {
		return nil, utils.Errorf(utils.ErrCodeInternalError, "folder %q registered twice", fullPath)
	}
	folder := &Folder{
		ID:       id,
		Name:     name,
		FullPath: fullPath,
		IDPath:   append(append([]string(nil), parent.IDPath...), id),
	}
	inv.folders[fullPath] = folder
	inv.byID[id] = folder
	return folder, nil
}

// AddFile registers a file just created in folder
func (inv *Inventory) AddFile(folder *Folder, ref remote.Ref, meta remote.FileMeta) *File {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	return inv.attach(folder, ref.ID, meta.Name, ref.WebViewLink, meta.Description, meta.Properties)
}

// SetFileMeta records the description and properties written to f
func (inv *Inventory) SetFileMeta(f *File, meta remote.FileMeta) {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	f.Description = meta.Description
	for k, v := range meta.Properties {
		f.Properties[k] = v
	}
}

// RemoveFile drops f from its folder and from the file list
func (inv *Inventory) RemoveFile(f *File) bool {
	inv.mu.Lock()
	defer inv.mu.Unlock()

	var removed bool
	f.Folder.files, removed = without(f.Folder.files, f)
	inv.files, _ = without(inv.files, f)
	return removed
}

// RemoveFolderIf drops folder when it holds no files or subfolders and keep
// reports false, all under one lock so nothing can be added in between. The
// root is never removed.
func (inv *Inventory) RemoveFolderIf(folder *Folder, keep func(*Folder) bool) bool {
	inv.mu.Lock()
	defer inv.mu.Unlock()

	if folder == inv.root || len(folder.files) > 0 || inv.hasSubfolders(folder) {
		return false
	}
	if keep != nil && keep(folder) {
		return false
	}
	if inv.folders[folder.FullPath] == folder {
		delete(inv.folders, folder.FullPath)
	}
	delete(inv.byID, folder.ID)
	return true
}

func (inv *Inventory) hasSubfolders(folder *Folder) bool {
	depth := len(folder.IDPath)
	for _, f := range inv.byID {
		if len(f.IDPath) > depth && f.IDPath[depth-1] == folder.ID {
			return true
		}
	}
	return false
}

// Parent returns the folder containing folder, or nil for the root
func (inv *Inventory) Parent(folder *Folder) *Folder {
	if len(folder.IDPath) < 2 {
		return nil
	}
	inv.mu.RLock()
	defer inv.mu.RUnlock()
	return inv.byID[folder.IDPath[len(folder.IDPath)-2]]
}

// RestoreFolder re-registers a folder whose remote removal failed
func (inv *Inventory) RestoreFolder(folder *Folder) {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	if _, exists := inv.folders[folder.FullPath]; !exists {
		inv.folders[folder.FullPath] = folder
	}
	inv.byID[folder.ID] = folder
}

func without(files []*File, f *File) ([]*File, bool) {
	for i, candidate := range files {
		if candidate == f {
			return append(files[:i], files[i+1:]...), true
		}
	}
	return files, false
}
