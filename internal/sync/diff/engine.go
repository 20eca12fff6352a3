// Package diff plans the changes that bring the destination in line with
// the tracked files.
package diff

import (
	"github.com/dl-alexandre/gitdrive/internal/source"
	"github.com/dl-alexandre/gitdrive/internal/sync/inventory"
)

type Result struct {
	Actions  []Action
	UpToDate []string
}

// Counts tallies the planned actions by type
func (r Result) Counts() map[ActionType]int {
	counts := make(map[ActionType]int, 3)
	for _, a := range r.Actions {
		counts[a.Type]++
	}
	return counts
}

// Empty reports whether nothing needs to change
func (r Result) Empty() bool {
	return len(r.Actions) == 0
}

// Compute pairs tracked files with remote files by path. Every delete comes
// before any create or update, so a path that is removed and re-created in
// the same run never loses its new content to a late delete. Within each
// pass the input order is kept.
func Compute(tracked []source.TrackedFile, remote []*inventory.File) Result {
	trackedByPath := make(map[string]int, len(tracked))
	for i := range tracked {
		if _, dup := trackedByPath[tracked[i].RelativePath]; !dup {
			trackedByPath[tracked[i].RelativePath] = i
		}
	}
	remoteByPath := make(map[string]*inventory.File, len(remote))
	for _, r := range remote {
		if _, dup := remoteByPath[r.FullPath]; !dup {
			remoteByPath[r.FullPath] = r
		}
	}

	var result Result

	for _, r := range remote {
		i, ok := trackedByPath[r.FullPath]
		if ok && !tracked[i].Deleted() {
			continue
		}
		action := Action{Type: ActionDelete, Path: r.FullPath, Remote: r}
		if ok {
			action.Tracked = &tracked[i]
		}
		result.Actions = append(result.Actions, action)
	}

	for i := range tracked {
		t := &tracked[i]
		if t.Deleted() || trackedByPath[t.RelativePath] != i {
			continue
		}
		r, ok := remoteByPath[t.RelativePath]
		switch {
		case !ok:
			result.Actions = append(result.Actions, Action{Type: ActionCreate, Path: t.RelativePath, Tracked: t})
		case r.Fingerprint() == t.Fingerprint:
			result.UpToDate = append(result.UpToDate, t.RelativePath)
		default:
			result.Actions = append(result.Actions, Action{Type: ActionUpdate, Path: t.RelativePath, Tracked: t, Remote: r})
		}
	}

	return result
}
