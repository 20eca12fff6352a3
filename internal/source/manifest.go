package source

import (
	"bufio"
	"context"
	"io"
	"path/filepath"
	"strings"

	"github.com/dl-alexandre/gitdrive/internal/runlog"
	"github.com/dl-alexandre/gitdrive/internal/utils"
	"github.com/spf13/afero"
)

const deletedButPresent = "Parsing inconsistency in git output: file looks deleted by git, but still exists locally"

// NameStatus is one line of a `git diff --name-status` style listing
type NameStatus struct {
	Tag  Tag
	Path string
}

// ParseNameStatus reads "<TAG>\t<path>" lines. Blank lines are skipped;
// anything else that does not parse is a ParseError.
func ParseNameStatus(r io.Reader) ([]NameStatus, error) {
	var entries []NameStatus
	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(text) == "" {
			continue
		}
		fields := strings.SplitN(text, "\t", 2)
		if len(fields) != 2 || strings.TrimSpace(fields[1]) == "" {
			return nil, utils.Errorf(utils.ErrCodeParse, "malformed listing line %d", line)
		}
		tag, ok := ParseTag(fields[0])
		if !ok {
			return nil, utils.Errorf(utils.ErrCodeParse, "unknown action %q on listing line %d", fields[0], line)
		}
		entries = append(entries, NameStatus{Tag: tag, Path: strings.TrimPrefix(fields[1], "./")})
	}
	if err := scanner.Err(); err != nil {
		return nil, utils.WrapAppError(utils.NewCLIError(utils.ErrCodeParse, "cannot read listing").Build(), err)
	}
	return entries, nil
}

// ManifestEnumerator publishes the files named by a name-status listing
// instead of a git tree. The listing must cover the whole subdirectory:
// anything it leaves out is removed from the destination.
type ManifestEnumerator struct {
	fs       afero.Fs
	log      *runlog.Log
	manifest string
}

// NewManifestEnumerator reads the listing at manifest and the working files
// through fs
func NewManifestEnumerator(fs afero.Fs, log *runlog.Log, manifest string) *ManifestEnumerator {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	if log == nil {
		log = runlog.New(nil)
	}
	return &ManifestEnumerator{fs: fs, log: log, manifest: manifest}
}

// ListTrackedFiles checks every listed file against the working tree: added
// and modified files must exist and deleted ones must be gone.
func (e *ManifestEnumerator) ListTrackedFiles(ctx context.Context, opts Options) ([]TrackedFile, error) {
	subdir, err := NormalizeSubdir(opts.Subdir)
	if err != nil {
		return nil, err
	}

	f, err := e.fs.Open(e.manifest)
	if err != nil {
		return nil, utils.WrapAppError(utils.NewCLIError(utils.ErrCodeParse, "cannot open file listing").Build(), err)
	}
	defer f.Close()

	entries, err := ParseNameStatus(f)
	if err != nil {
		return nil, err
	}

	g := &GitEnumerator{fs: e.fs, log: e.log}
	var files []TrackedFile
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if _, ok := inScope(entry.Path, subdir, opts.Matcher); !ok {
			continue
		}

		if entry.Tag == TagDeleted {
			local := filepath.Join(opts.Root, filepath.FromSlash(entry.Path))
			if exists, _ := afero.Exists(e.fs, local); exists {
				e.log.Debug("Deleted file still present: %s", entry.Path)
				return nil, utils.Errorf(utils.ErrCodeParse, "%s", deletedButPresent)
			}
			files = append(files, NewTrackedFile(entry.Path, subdir, "", TagDeleted))
			continue
		}

		hash, err := g.hashLocal(opts.Root, entry.Path)
		if err != nil {
			return nil, err
		}
		files = append(files, NewTrackedFile(entry.Path, subdir, hash, entry.Tag))
	}

	e.log.Debug("Found %d listed files", len(files))
	return files, nil
}
