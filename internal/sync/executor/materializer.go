package executor

import (
	"context"
	"path"
	"sync/atomic"

	"github.com/dl-alexandre/gitdrive/internal/remote"
	"github.com/dl-alexandre/gitdrive/internal/runlog"
	"github.com/dl-alexandre/gitdrive/internal/sync/inventory"
	"github.com/dl-alexandre/gitdrive/internal/utils"
	"golang.org/x/sync/singleflight"
)

// FolderMaterializer creates destination folders on demand, one path
// component at a time. The inventory's folder index is the memo: a path
// already known is returned as is, and concurrent requests for a missing
// path share a single remote create.
type FolderMaterializer struct {
	store   remote.Store
	inv     *inventory.Inventory
	log     *runlog.Log
	group   singleflight.Group
	created atomic.Int64
}

// NewFolderMaterializer creates folders through store and registers them in inv
func NewFolderMaterializer(store remote.Store, inv *inventory.Inventory, log *runlog.Log) *FolderMaterializer {
	if log == nil {
		log = runlog.New(nil)
	}
	return &FolderMaterializer{store: store, inv: inv, log: log}
}

// Ensure returns the folder at p, creating it and any missing ancestors
func (m *FolderMaterializer) Ensure(ctx context.Context, p string) (*inventory.Folder, error) {
	p = inventory.NormalizePath(p)
	if folder, ok := m.inv.Folder(p); ok {
		return folder, nil
	}
	if p == "" {
		return nil, utils.Errorf(utils.ErrCodeCreation, "root folder not found in the destination inventory")
	}

	v, err, _ := m.group.Do(p, func() (interface{}, error) {
		if folder, ok := m.inv.Folder(p); ok {
			return folder, nil
		}

		parent, err := m.Ensure(ctx, path.Dir(p))
		if err != nil {
			return nil, err
		}

		name := path.Base(p)
		id, err := m.store.CreateFolder(ctx, parent.ID, name)
		if err != nil {
			return nil, utils.WrapAppError(utils.NewCLIError(utils.ErrCodeCreation, "unable to create folder "+p).
				WithContext("parentId", parent.ID).
				Build(), err)
		}
		if id == "" {
			return nil, utils.Errorf(utils.ErrCodeCreation, "no id returned when creating folder %s", p)
		}

		folder, err := m.inv.AddFolder(parent, id, name)
		if err != nil {
			return nil, err
		}
		m.created.Add(1)
		m.log.Debug("Created folder on drive: [%s]", p)
		return folder, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*inventory.Folder), nil
}

// Created returns how many folders Ensure created
func (m *FolderMaterializer) Created() int {
	return int(m.created.Load())
}
