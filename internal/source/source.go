// Package source enumerates the tracked files of a git working tree.
package source

import (
	"context"
	"path"
	"strings"

	"github.com/dl-alexandre/gitdrive/internal/sync/match"
	"github.com/dl-alexandre/gitdrive/internal/utils"
)

// Tag is the tracking action attached to a file
type Tag string

const (
	TagAdded    Tag = "A"
	TagModified Tag = "M"
	TagDeleted  Tag = "D"
)

// ParseTag decodes a one-letter tracking action
func ParseTag(s string) (Tag, bool) {
	switch Tag(strings.TrimSpace(s)) {
	case TagAdded:
		return TagAdded, true
	case TagModified:
		return TagModified, true
	case TagDeleted:
		return TagDeleted, true
	}
	return "", false
}

func (t Tag) String() string {
	switch t {
	case TagAdded:
		return "added"
	case TagModified:
		return "modified"
	case TagDeleted:
		return "deleted"
	}
	return string(t)
}

// TrackedFile is one file as known to the source tree
type TrackedFile struct {
	Name         string
	FullPath     string // relative to the tree root
	RelativePath string // relative to the sync subdirectory
	FolderPath   string // "." for files at the subdirectory root
	Fingerprint  string
	Tag          Tag
}

// Deleted reports whether the file must no longer exist at the destination
func (f TrackedFile) Deleted() bool {
	return f.Tag == TagDeleted
}

// NewTrackedFile derives the path fields of a tracked file from its path in
// the tree. subdir must be normalized and fullPath must lie beneath it.
func NewTrackedFile(fullPath, subdir, fingerprint string, tag Tag) TrackedFile {
	rel := strings.TrimPrefix(fullPath, subdir)
	return TrackedFile{
		Name:         path.Base(rel),
		FullPath:     fullPath,
		RelativePath: rel,
		FolderPath:   path.Dir(rel),
		Fingerprint:  fingerprint,
		Tag:          tag,
	}
}

// Options selects what to enumerate
type Options struct {
	Root    string // working tree root
	Origin  string // revision whose tree is listed
	Subdir  string // subdirectory to publish, "" for the whole tree
	Matcher *match.Matcher
}

// Enumerator lists the files in scope for a sync run
type Enumerator interface {
	ListTrackedFiles(ctx context.Context, opts Options) ([]TrackedFile, error)
}

// ReservedFolder is the top-level administrative folder never published
const ReservedFolder = ".github"

// NormalizeSubdir turns a configured subdirectory into a tree path prefix:
// "" or "." selects the whole tree, "./x" becomes "x/". Absolute paths are
// rejected.
func NormalizeSubdir(subdir string) (string, error) {
	subdir = strings.TrimSpace(subdir)
	if strings.HasPrefix(subdir, "/") {
		return "", utils.Errorf(utils.ErrCodeConfiguration,
			"GIT_SUBDIR must be relative to GIT_ROOT, got an absolute path")
	}
	subdir = strings.TrimPrefix(path.Clean("/"+subdir), "/")
	if subdir == "" {
		return "", nil
	}
	return subdir + "/", nil
}

// inScope reports whether fullPath belongs to the sync and returns its
// relative path
func inScope(fullPath, subdir string, matcher *match.Matcher) (string, bool) {
	if !strings.HasPrefix(fullPath, subdir) {
		return "", false
	}
	top := fullPath
	if i := strings.IndexByte(top, '/'); i >= 0 {
		top = top[:i]
	}
	if strings.EqualFold(top, ReservedFolder) {
		return "", false
	}
	rel := fullPath[len(subdir):]
	if rel == "" || !matcher.Matches(rel) {
		return "", false
	}
	return rel, true
}
