package source

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/dl-alexandre/gitdrive/internal/runlog"
	"github.com/dl-alexandre/gitdrive/internal/utils"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/spf13/afero"
)

var blobHashPattern = regexp.MustCompile(`^[0-9a-f]{40}$`)

// missingLocalFile is the public message of a listing/working tree mismatch.
// The offending path only goes to the debug trail.
const missingLocalFile = "Parsing inconsistency in git output: file looks tracked by git, but doesn't exist locally (or can't get a hash from it)"

// GitEnumerator lists the files of a revision's tree and fingerprints each
// with the git blob hash of its working copy.
type GitEnumerator struct {
	fs   afero.Fs
	log  *runlog.Log
	open func(root string) (*git.Repository, error)
}

// NewGitEnumerator reads working files through fs. A nil fs uses the OS
// filesystem.
func NewGitEnumerator(fs afero.Fs, log *runlog.Log) *GitEnumerator {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	if log == nil {
		log = runlog.New(nil)
	}
	return &GitEnumerator{
		fs:  fs,
		log: log,
		open: func(root string) (*git.Repository, error) {
			return git.PlainOpenWithOptions(root, &git.PlainOpenOptions{DetectDotGit: true})
		},
	}
}

// WithRepository makes the enumerator use repo whatever root is requested
func (e *GitEnumerator) WithRepository(repo *git.Repository) *GitEnumerator {
	e.open = func(string) (*git.Repository, error) { return repo, nil }
	return e
}

// ListTrackedFiles lists every file of opts.Origin under opts.Subdir that the
// matcher accepts. All records are tagged added; the planner decides what is
// actually new.
func (e *GitEnumerator) ListTrackedFiles(ctx context.Context, opts Options) ([]TrackedFile, error) {
	subdir, err := NormalizeSubdir(opts.Subdir)
	if err != nil {
		return nil, err
	}

	tree, err := e.tree(opts.Root, opts.Origin)
	if err != nil {
		return nil, err
	}

	e.log.Debug("Listing files of %s under %q", opts.Origin, subdir)
	if patterns := opts.Matcher.Patterns(); len(patterns) > 0 {
		e.log.Debug("Selecting paths matching %s", strings.Join(patterns, " | "))
	}

	var files []TrackedFile
	err = tree.Files().ForEach(func(f *object.File) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, ok := inScope(f.Name, subdir, opts.Matcher); !ok {
			return nil
		}
		hash, err := e.hashLocal(opts.Root, f.Name)
		if err != nil {
			return err
		}
		files = append(files, NewTrackedFile(f.Name, subdir, hash, TagAdded))
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.log.Debug("Found %d tracked files", len(files))
	return files, nil
}

func (e *GitEnumerator) tree(root, origin string) (*object.Tree, error) {
	repo, err := e.open(root)
	if err != nil {
		return nil, utils.WrapAppError(utils.NewCLIError(utils.ErrCodeParse,
			"cannot open git repository at GIT_ROOT").Build(), err)
	}

	hash, err := repo.ResolveRevision(plumbing.Revision(origin))
	if err != nil {
		return nil, utils.WrapAppError(utils.NewCLIError(utils.ErrCodeParse,
			"cannot resolve git revision "+origin).
			WithContext("origin", origin).
			Build(), err)
	}

	commit, err := repo.CommitObject(*hash)
	if err != nil {
		return nil, utils.WrapAppError(utils.NewCLIError(utils.ErrCodeParse,
			"revision does not name a commit").
			WithContext("origin", origin).
			Build(), err)
	}

	tree, err := commit.Tree()
	if err != nil {
		return nil, utils.WrapAppError(utils.NewCLIError(utils.ErrCodeParse,
			"cannot read commit tree").Build(), err)
	}
	return tree, nil
}

// hashLocal computes the blob hash `git hash-object` would print for the
// working copy of fullPath
func (e *GitEnumerator) hashLocal(root, fullPath string) (string, error) {
	hash, err := blobHash(e.fs, filepath.Join(root, filepath.FromSlash(fullPath)))
	if err != nil || !blobHashPattern.MatchString(hash) {
		e.log.Debug("Cannot hash tracked file %s: %v", fullPath, err)
		return "", utils.WrapAppError(utils.NewCLIError(utils.ErrCodeParse, missingLocalFile).Build(), err)
	}
	return hash, nil
}

func blobHash(fs afero.Fs, name string) (string, error) {
	f, err := fs.Open(name)
	if err != nil {
		return "", err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", err
	}
	if info.IsDir() {
		return "", fmt.Errorf("%s is a directory", name)
	}

	hasher := plumbing.NewHasher(plumbing.BlobObject, info.Size())
	if _, err := io.Copy(hasher, f); err != nil {
		return "", err
	}
	return hasher.Sum().String(), nil
}
