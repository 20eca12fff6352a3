package mocks

import (
	"context"
	"fmt"
	"io"
	"path"
	"sort"
	"sync"
	"time"

	"github.com/dl-alexandre/gitdrive/internal/remote"
)

// MockFolder is a folder held by MockStore
type MockFolder struct {
	ID       string
	Name     string
	ParentID string
	Trashed  bool
}

// MockFile is a file held by MockStore
type MockFile struct {
	ID          string
	Name        string
	ParentID    string
	Content     []byte
	Description string
	Properties  map[string]string
	WebViewLink string
	Trashed     bool
}

// MockStore is an in-memory remote.Store
type MockStore struct {
	mu      sync.Mutex
	rootID  string
	nextID  int
	folders map[string]*MockFolder
	files   map[string]*MockFile
	calls   []string

	// FailFunc, when set, can fail any call; name is the folder or file name involved
	FailFunc func(op, name string) error
	// NoIDFunc, when set, makes a call succeed without returning an id
	NoIDFunc func(op, name string) bool
	// HierarchyErr fails Hierarchy
	HierarchyErr error
	// Delay is slept inside every mutation
	Delay time.Duration
	// OnCall observes every call before it runs
	OnCall func(op, name string)
}

var _ remote.Store = (*MockStore)(nil)

// NewMockStore creates a store holding only the root folder
func NewMockStore(rootID string) *MockStore {
	return &MockStore{
		rootID:  rootID,
		folders: map[string]*MockFolder{rootID: {ID: rootID, Name: "root"}},
		files:   map[string]*MockFile{},
	}
}

func (s *MockStore) newID(prefix string) string {
	s.nextID++
	return fmt.Sprintf("%s-%d", prefix, s.nextID)
}

// AddFolder seeds a folder and returns its id
func (s *MockStore) AddFolder(parentID, name string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.newID("folder")
	s.folders[id] = &MockFolder{ID: id, Name: name, ParentID: parentID}
	return id
}

// AddFile seeds a file and returns its id. A non-empty fingerprint is stored
// under property key.
func (s *MockStore) AddFile(parentID, name, key, fingerprint string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.newID("file")
	props := map[string]string{}
	if fingerprint != "" {
		props[key] = fingerprint
	}
	s.files[id] = &MockFile{
		ID:          id,
		Name:        name,
		ParentID:    parentID,
		Properties:  props,
		WebViewLink: "https://drive.example.com/" + id,
	}
	return id
}

// TrashSeeded marks a seeded file as trashed
func (s *MockStore) TrashSeeded(fileID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if f, ok := s.files[fileID]; ok {
		f.Trashed = true
	}
}

func (s *MockStore) enter(ctx context.Context, op, name string) (bool, error) {
	if s.OnCall != nil {
		s.OnCall(op, name)
	}
	if s.Delay > 0 {
		select {
		case <-time.After(s.Delay):
		case <-ctx.Done():
			return false, ctx.Err()
		}
	}

	s.mu.Lock()
	s.calls = append(s.calls, op+" "+name)
	s.mu.Unlock()

	if s.FailFunc != nil {
		if err := s.FailFunc(op, name); err != nil {
			return false, err
		}
	}
	return s.NoIDFunc != nil && s.NoIDFunc(op, name), nil
}

// Hierarchy implements remote.Store
func (s *MockStore) Hierarchy(ctx context.Context, rootID string) (*remote.Hierarchy, error) {
	if s.HierarchyErr != nil {
		return nil, s.HierarchyErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.folders[rootID]; !ok {
		return nil, fmt.Errorf("folder %s not found", rootID)
	}

	h := &remote.Hierarchy{}
	listings := map[string]int{}
	for _, id := range s.sortedFolderIDs() {
		f := s.folders[id]
		idPath, ok := s.idPath(id, rootID)
		if f.Trashed || !ok {
			continue
		}
		h.Folders = append(h.Folders, remote.FolderRecord{ID: id, Name: f.Name, IDPath: idPath})
		h.Listings = append(h.Listings, remote.FolderListing{FolderID: id})
		listings[id] = len(h.Listings) - 1
	}
	for _, id := range s.sortedFileIDs() {
		f := s.files[id]
		i, ok := listings[f.ParentID]
		if !ok {
			continue
		}
		listing := &h.Listings[i]
		props := make(map[string]string, len(f.Properties))
		for k, v := range f.Properties {
			props[k] = v
		}
		listing.Files = append(listing.Files, remote.FileRecord{
			ID:          f.ID,
			Name:        f.Name,
			WebViewLink: f.WebViewLink,
			Description: f.Description,
			Properties:  props,
			Trashed:     f.Trashed,
		})
	}
	return h, nil
}

// CreateFolder implements remote.Store
func (s *MockStore) CreateFolder(ctx context.Context, parentID, name string) (string, error) {
	noID, err := s.enter(ctx, "CreateFolder", name)
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.newID("folder")
	s.folders[id] = &MockFolder{ID: id, Name: name, ParentID: parentID}
	if noID {
		return "", nil
	}
	return id, nil
}

// CreateFile implements remote.Store
func (s *MockStore) CreateFile(ctx context.Context, parentID string, meta remote.FileMeta, content io.Reader) (remote.Ref, error) {
	noID, err := s.enter(ctx, "CreateFile", meta.Name)
	if err != nil {
		return remote.Ref{}, err
	}
	data, err := io.ReadAll(content)
	if err != nil {
		return remote.Ref{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.newID("file")
	f := &MockFile{
		ID:          id,
		Name:        meta.Name,
		ParentID:    parentID,
		Content:     data,
		Description: meta.Description,
		Properties:  copyProps(meta.Properties),
		WebViewLink: "https://drive.example.com/" + id,
	}
	s.files[id] = f
	if noID {
		return remote.Ref{}, nil
	}
	return remote.Ref{ID: id, WebViewLink: f.WebViewLink}, nil
}

// UpdateFile implements remote.Store
func (s *MockStore) UpdateFile(ctx context.Context, fileID string, meta remote.FileMeta, content io.Reader) (remote.Ref, error) {
	noID, err := s.enter(ctx, "UpdateFile", s.fileName(fileID))
	if err != nil {
		return remote.Ref{}, err
	}
	data, err := io.ReadAll(content)
	if err != nil {
		return remote.Ref{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.files[fileID]
	if !ok {
		return remote.Ref{}, fmt.Errorf("file %s not found", fileID)
	}
	f.Content = data
	f.Description = meta.Description
	for k, v := range meta.Properties {
		f.Properties[k] = v
	}
	if noID {
		return remote.Ref{}, nil
	}
	return remote.Ref{ID: f.ID, WebViewLink: f.WebViewLink}, nil
}

// TrashFile implements remote.Store
func (s *MockStore) TrashFile(ctx context.Context, fileID string, meta remote.FileMeta) (string, error) {
	noID, err := s.enter(ctx, "TrashFile", s.fileName(fileID))
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.files[fileID]
	if !ok {
		return "", fmt.Errorf("file %s not found", fileID)
	}
	f.Description = meta.Description
	for k, v := range meta.Properties {
		f.Properties[k] = v
	}
	f.Trashed = true
	if noID {
		return "", nil
	}
	return f.ID, nil
}

// TrashFolder implements remote.Store
func (s *MockStore) TrashFolder(ctx context.Context, folderID string) (string, error) {
	noID, err := s.enter(ctx, "TrashFolder", s.folderName(folderID))
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.folders[folderID]
	if !ok {
		return "", fmt.Errorf("folder %s not found", folderID)
	}
	f.Trashed = true
	if noID {
		return "", nil
	}
	return f.ID, nil
}

// Calls returns "<op> <name>" for every mutation, in call order
func (s *MockStore) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calls...)
}

// CallCount counts the mutations of one kind
func (s *MockStore) CallCount(op string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.calls {
		if len(c) > len(op) && c[:len(op)+1] == op+" " {
			n++
		}
	}
	return n
}

// File returns a copy of the live (untrashed) file at p, relative to the root
func (s *MockStore) File(p string) (MockFile, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, f := range s.files {
		if f.Trashed {
			continue
		}
		dir, ok := s.folderPath(f.ParentID)
		if ok && path.Join(dir, f.Name) == p {
			out := *f
			out.Properties = copyProps(f.Properties)
			return out, true
		}
	}
	return MockFile{}, false
}

// LiveFiles returns the sorted paths of every untrashed file
func (s *MockStore) LiveFiles() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for _, f := range s.files {
		if f.Trashed {
			continue
		}
		if dir, ok := s.folderPath(f.ParentID); ok {
			out = append(out, path.Join(dir, f.Name))
		}
	}
	sort.Strings(out)
	return out
}

// LiveFolders returns the sorted paths of every untrashed folder below the root
func (s *MockStore) LiveFolders() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for id := range s.folders {
		if id == s.rootID {
			continue
		}
		if p, ok := s.folderPath(id); ok {
			out = append(out, p)
		}
	}
	sort.Strings(out)
	return out
}

// folderPath resolves a live folder path below the root; callers hold mu
func (s *MockStore) folderPath(id string) (string, bool) {
	var names []string
	for id != s.rootID {
		f, ok := s.folders[id]
		if !ok || f.Trashed {
			return "", false
		}
		names = append([]string{f.Name}, names...)
		id = f.ParentID
	}
	return path.Join(names...), true
}

func (s *MockStore) idPath(id, rootID string) ([]string, bool) {
	var ids []string
	for {
		f, ok := s.folders[id]
		if !ok || f.Trashed {
			return nil, false
		}
		ids = append([]string{id}, ids...)
		if id == rootID {
			return ids, true
		}
		id = f.ParentID
	}
}

func (s *MockStore) fileName(id string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if f, ok := s.files[id]; ok {
		return f.Name
	}
	return id
}

func (s *MockStore) folderName(id string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if f, ok := s.folders[id]; ok {
		return f.Name
	}
	return id
}

func (s *MockStore) sortedFolderIDs() []string {
	ids := make([]string, 0, len(s.folders))
	for id := range s.folders {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (s *MockStore) sortedFileIDs() []string {
	ids := make([]string, 0, len(s.files))
	for id := range s.files {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func copyProps(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
