package drivestore

import (
	"context"

	"github.com/dl-alexandre/gitdrive/internal/api"
	"github.com/dl-alexandre/gitdrive/internal/types"
	"github.com/dl-alexandre/gitdrive/internal/utils"
	"google.golang.org/api/drive/v3"
)

// CreateFolder creates name under parentID and returns the new folder id
func (s *Store) CreateFolder(ctx context.Context, parentID, name string) (string, error) {
	reqCtx := s.request(types.RequestTypeMutation)
	reqCtx.InvolvedParentIDs = append(reqCtx.InvolvedParentIDs, parentID)

	metadata := &drive.File{
		Name:     name,
		MimeType: utils.MimeTypeFolder,
		Parents:  []string{parentID},
	}
	call := s.client.Service().Files.Create(metadata).
		SupportsAllDrives(true).
		Fields("id").
		Context(ctx)

	result, err := api.ExecuteWithRetry(ctx, s.client, reqCtx, func() (*drive.File, error) {
		return call.Do()
	})
	if err != nil {
		return "", err
	}
	return result.Id, nil
}

// TrashFolder moves a folder, and with it anything left inside, to the trash
func (s *Store) TrashFolder(ctx context.Context, folderID string) (string, error) {
	reqCtx := s.request(types.RequestTypeMutation)
	reqCtx.InvolvedFileIDs = append(reqCtx.InvolvedFileIDs, folderID)

	call := s.client.Service().Files.Update(folderID, &drive.File{Trashed: true}).
		SupportsAllDrives(true).
		Fields("id").
		Context(ctx)

	result, err := api.ExecuteWithRetry(ctx, s.client, reqCtx, func() (*drive.File, error) {
		return call.Do()
	})
	if err != nil {
		return "", err
	}
	return result.Id, nil
}
