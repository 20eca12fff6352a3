package source

import (
	"strings"
	"sync"
)

// Set is the run's collection of tracked files. Records leave the set as
// their deletes complete, so folder reference checks see the current state.
type Set struct {
	mu     sync.RWMutex
	files  []TrackedFile
	byPath map[string]int
}

// NewSet indexes files by relative path; the first record for a path wins
func NewSet(files []TrackedFile) *Set {
	s := &Set{byPath: make(map[string]int, len(files))}
	for _, f := range files {
		if _, ok := s.byPath[f.RelativePath]; ok {
			continue
		}
		s.byPath[f.RelativePath] = len(s.files)
		s.files = append(s.files, f)
	}
	return s
}

// Remove drops the record for relativePath, reporting whether it was present
func (s *Set) Remove(relativePath string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := s.byPath[relativePath]
	if !ok {
		return false
	}
	s.files = append(s.files[:i], s.files[i+1:]...)
	delete(s.byPath, relativePath)
	for j := i; j < len(s.files); j++ {
		s.byPath[s.files[j].RelativePath] = j
	}
	return true
}

// HasFolderReference reports whether any record that is not deleted still
// lives in folderPath or below it
func (s *Set) HasFolderReference(folderPath string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	prefix := folderPath + "/"
	for _, f := range s.files {
		if f.Deleted() {
			continue
		}
		if f.FolderPath == folderPath || strings.HasPrefix(f.FolderPath, prefix) {
			return true
		}
	}
	return false
}
