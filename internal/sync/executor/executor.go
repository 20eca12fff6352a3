// Package executor applies planned actions to the destination store.
package executor

import (
	"context"
	"fmt"
	"path"
	"path/filepath"
	"sync/atomic"

	"github.com/dl-alexandre/gitdrive/internal/remote"
	"github.com/dl-alexandre/gitdrive/internal/runlog"
	"github.com/dl-alexandre/gitdrive/internal/source"
	"github.com/dl-alexandre/gitdrive/internal/sync/diff"
	"github.com/dl-alexandre/gitdrive/internal/sync/inventory"
	"github.com/dl-alexandre/gitdrive/internal/utils"
	"github.com/dustin/go-humanize"
	"github.com/spf13/afero"
)

type Executor struct {
	store   remote.Store
	inv     *inventory.Inventory
	tracked *source.Set
	folders *FolderMaterializer
	fs      afero.Fs
	log     *runlog.Log
	opts    Options

	created        atomic.Int64
	updated        atomic.Int64
	deleted        atomic.Int64
	foldersDeleted atomic.Int64
	uploaded       atomic.Int64
}

type Options struct {
	// LocalRoot is the working tree the tracked full paths are relative to
	LocalRoot string
	// AppName is stamped into file descriptions
	AppName     string
	Concurrency int
}

type Summary struct {
	Created        int
	Updated        int
	Deleted        int
	FoldersCreated int
	FoldersDeleted int
	Failed         int
	BytesUploaded  int64
}

func New(store remote.Store, inv *inventory.Inventory, tracked *source.Set, fs afero.Fs, log *runlog.Log, opts Options) *Executor {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	if log == nil {
		log = runlog.New(nil)
	}
	if tracked == nil {
		tracked = source.NewSet(nil)
	}
	if opts.AppName == "" {
		opts.AppName = utils.DefaultAppName
	}
	if opts.Concurrency == 0 {
		opts.Concurrency = utils.DefaultConcurrency
	}
	return &Executor{
		store:   store,
		inv:     inv,
		tracked: tracked,
		folders: NewFolderMaterializer(store, inv, log),
		fs:      fs,
		log:     log,
		opts:    opts,
	}
}

// Apply submits every action to a bounded pool in plan order and waits for
// all of them to settle. Failures are logged and counted; they never stop
// the remaining actions. The returned error is reserved for failures of the
// executor itself.
func (e *Executor) Apply(ctx context.Context, actions []diff.Action) (Summary, error) {
	pool, err := NewPool(e.opts.Concurrency, e.log)
	if err != nil {
		return Summary{}, err
	}

	var submitErr error
	for _, action := range actions {
		desc := fmt.Sprintf("%s %s", action.Type, action.Path)
		if err := pool.Go(ctx, desc, func(ctx context.Context) error {
			return e.run(ctx, action)
		}); err != nil {
			submitErr = err
			break
		}
	}

	failed := pool.Wait()
	return Summary{
		Created:        int(e.created.Load()),
		Updated:        int(e.updated.Load()),
		Deleted:        int(e.deleted.Load()),
		FoldersCreated: e.folders.Created(),
		FoldersDeleted: int(e.foldersDeleted.Load()),
		Failed:         failed,
		BytesUploaded:  e.uploaded.Load(),
	}, submitErr
}

func (e *Executor) run(ctx context.Context, action diff.Action) error {
	switch action.Type {
	case diff.ActionCreate:
		parent, err := e.folders.Ensure(ctx, action.Tracked.FolderPath)
		if err != nil {
			return err
		}
		_, err = e.CreateFile(ctx, *action.Tracked, parent)
		return err
	case diff.ActionUpdate:
		return e.UpdateFile(ctx, action.Remote, *action.Tracked)
	case diff.ActionDelete:
		return e.DeleteFile(ctx, action.Remote, action.Tracked)
	default:
		return utils.Errorf(utils.ErrCodeInternalError, "unknown action type %q", action.Type)
	}
}

// CreateFile uploads tracked into parent and registers the new file
func (e *Executor) CreateFile(ctx context.Context, tracked source.TrackedFile, parent *inventory.Folder) (*inventory.File, error) {
	meta := e.meta("Created", tracked.Name, tracked.Fingerprint)

	content, size, err := e.open(tracked)
	if err != nil {
		return nil, utils.WrapAppError(utils.NewCLIError(utils.ErrCodeCreation,
			"unable to read "+tracked.RelativePath).Build(), err)
	}
	defer content.Close()

	ref, err := e.store.CreateFile(ctx, parent.ID, meta, content)
	if err != nil {
		return nil, utils.WrapAppError(utils.NewCLIError(utils.ErrCodeCreation,
			"unable to create "+tracked.RelativePath).
			WithContext("parentId", parent.ID).
			Build(), err)
	}
	if ref.ID == "" {
		return nil, utils.Errorf(utils.ErrCodeCreation, "no id returned when creating %s", tracked.RelativePath)
	}

	file := e.inv.AddFile(parent, ref, meta)
	e.created.Add(1)
	e.uploaded.Add(size)
	e.log.Debug("Created file on drive: [%s] (%s)", file.FullPath, humanize.Bytes(uint64(size)))
	e.log.Notice("*[ADDED]* <%s|%s> to `%s`", file.WebViewLink, file.Name, parent.DisplayPath())
	return file, nil
}

// UpdateFile re-uploads tracked over an existing file, keeping its location
func (e *Executor) UpdateFile(ctx context.Context, file *inventory.File, tracked source.TrackedFile) error {
	meta := e.meta("Updated", file.Name, tracked.Fingerprint)

	content, size, err := e.open(tracked)
	if err != nil {
		return utils.WrapAppError(utils.NewCLIError(utils.ErrCodeUpdate,
			"unable to read "+tracked.RelativePath).Build(), err)
	}
	defer content.Close()

	ref, err := e.store.UpdateFile(ctx, file.ID, meta, content)
	if err != nil {
		return utils.WrapAppError(utils.NewCLIError(utils.ErrCodeUpdate,
			"unable to update "+file.FullPath).
			WithContext("fileId", file.ID).
			Build(), err)
	}
	if ref.ID == "" {
		return utils.Errorf(utils.ErrCodeUpdate, "no id returned when updating %s", file.FullPath)
	}

	e.inv.SetFileMeta(file, meta)
	e.updated.Add(1)
	e.uploaded.Add(size)
	e.log.Debug("Updated file on drive: [%s] (%s)", file.FullPath, humanize.Bytes(uint64(size)))
	e.log.Notice("*[MODIFIED]* <%s|%s> at `%s`", file.WebViewLink, file.Name, file.Folder.DisplayPath())
	return nil
}

// DeleteFile stamps the final fingerprint on file and trashes it. tracked is
// the source record that asked for the delete, if any. Once the file is gone
// its folder is trashed too when nothing else lives or is tracked there.
func (e *Executor) DeleteFile(ctx context.Context, file *inventory.File, tracked *source.TrackedFile) error {
	fingerprint := utils.NoFingerprint
	if tracked != nil && tracked.Fingerprint != "" {
		fingerprint = tracked.Fingerprint
	}
	meta := e.meta("Deleted", file.Name, fingerprint)

	id, err := e.store.TrashFile(ctx, file.ID, meta)
	if err != nil {
		return utils.WrapAppError(utils.NewCLIError(utils.ErrCodeDeletion,
			"unable to delete "+file.FullPath).
			WithContext("fileId", file.ID).
			Build(), err)
	}
	if id == "" {
		return utils.Errorf(utils.ErrCodeDeletion, "no id returned when deleting %s", file.FullPath)
	}

	e.inv.SetFileMeta(file, meta)
	e.inv.RemoveFile(file)
	if tracked != nil {
		e.tracked.Remove(tracked.RelativePath)
	}
	e.deleted.Add(1)
	e.log.Debug("Deleted file on drive: [%s]", file.FullPath)
	e.log.Notice("*[REMOVED]* _%s_ from `%s`", file.Name, file.Folder.DisplayPath())

	return e.pruneFolders(ctx, file.Folder)
}

// pruneFolders trashes folder and then its ancestors for as long as they are
// left without files, subfolders or tracked references
func (e *Executor) pruneFolders(ctx context.Context, folder *inventory.Folder) error {
	for folder != nil {
		parent := e.inv.Parent(folder)
		removed, err := e.DeleteFolder(ctx, folder)
		if err != nil || !removed {
			return err
		}
		folder = parent
	}
	return nil
}

// DeleteFolder trashes folder if, at this moment, it holds no files or
// subfolders and no tracked file still points into it. It reports whether
// the folder was removed.
func (e *Executor) DeleteFolder(ctx context.Context, folder *inventory.Folder) (bool, error) {
	keep := func(f *inventory.Folder) bool {
		return e.tracked.HasFolderReference(f.FullPath)
	}
	if !e.inv.RemoveFolderIf(folder, keep) {
		return false, nil
	}

	id, err := e.store.TrashFolder(ctx, folder.ID)
	if err == nil && id == "" {
		err = utils.Errorf(utils.ErrCodeDeletion, "no id returned when deleting folder %s", folder.FullPath)
	}
	if err != nil {
		e.inv.RestoreFolder(folder)
		return false, utils.WrapAppError(utils.NewCLIError(utils.ErrCodeDeletion,
			"unable to delete folder "+folder.FullPath).
			WithContext("folderId", folder.ID).
			Build(), err)
	}

	e.foldersDeleted.Add(1)
	e.log.Debug("Deleted folder on drive: [%s]", folder.FullPath)
	return true, nil
}

func (e *Executor) meta(verb, name, fingerprint string) remote.FileMeta {
	return remote.FileMeta{
		Name:        name,
		Description: fmt.Sprintf("%s by %s upon hash %s", verb, e.opts.AppName, fingerprint),
		Properties:  map[string]string{utils.FingerprintProperty: fingerprint},
	}
}

func (e *Executor) open(tracked source.TrackedFile) (afero.File, int64, error) {
	name := filepath.Join(e.opts.LocalRoot, filepath.FromSlash(path.Clean(tracked.FullPath)))
	f, err := e.fs.Open(name)
	if err != nil {
		return nil, 0, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, 0, err
	}
	return f, info.Size(), nil
}
