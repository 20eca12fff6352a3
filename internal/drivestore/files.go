package drivestore

import (
	"context"
	"io"

	"github.com/dl-alexandre/gitdrive/internal/api"
	"github.com/dl-alexandre/gitdrive/internal/remote"
	"github.com/dl-alexandre/gitdrive/internal/types"
	"github.com/dl-alexandre/gitdrive/internal/utils"
	"google.golang.org/api/drive/v3"
)

const refFields = "id,webViewLink"

// CreateFile uploads content as a new file under parentID
func (s *Store) CreateFile(ctx context.Context, parentID string, meta remote.FileMeta, content io.Reader) (remote.Ref, error) {
	reqCtx := s.request(types.RequestTypeUpload)
	reqCtx.InvolvedParentIDs = append(reqCtx.InvolvedParentIDs, parentID)

	metadata := &drive.File{
		Name:        meta.Name,
		Description: meta.Description,
		Properties:  meta.Properties,
		Parents:     []string{parentID},
	}

	result, err := api.ExecuteWithRetry(ctx, s.client, reqCtx, func() (*drive.File, error) {
		if err := rewind(content); err != nil {
			return nil, err
		}
		return s.client.Service().Files.Create(metadata).
			Media(content).
			SupportsAllDrives(true).
			Fields(refFields).
			Context(ctx).
			Do()
	})
	if err != nil {
		return remote.Ref{}, err
	}
	return remote.Ref{ID: result.Id, WebViewLink: result.WebViewLink}, nil
}

// UpdateFile replaces the content of fileID and overwrites its description
// and the given properties
func (s *Store) UpdateFile(ctx context.Context, fileID string, meta remote.FileMeta, content io.Reader) (remote.Ref, error) {
	reqCtx := s.request(types.RequestTypeUpload)
	reqCtx.InvolvedFileIDs = append(reqCtx.InvolvedFileIDs, fileID)

	metadata := &drive.File{
		Description: meta.Description,
		Properties:  meta.Properties,
	}

	result, err := api.ExecuteWithRetry(ctx, s.client, reqCtx, func() (*drive.File, error) {
		if err := rewind(content); err != nil {
			return nil, err
		}
		return s.client.Service().Files.Update(fileID, metadata).
			Media(content).
			SupportsAllDrives(true).
			Fields(refFields).
			Context(ctx).
			Do()
	})
	if err != nil {
		return remote.Ref{}, err
	}
	return remote.Ref{ID: result.Id, WebViewLink: result.WebViewLink}, nil
}

// TrashFile stamps the deletion metadata and trashes the file in one update
func (s *Store) TrashFile(ctx context.Context, fileID string, meta remote.FileMeta) (string, error) {
	reqCtx := s.request(types.RequestTypeMutation)
	reqCtx.InvolvedFileIDs = append(reqCtx.InvolvedFileIDs, fileID)

	metadata := &drive.File{
		Description: meta.Description,
		Properties:  meta.Properties,
		Trashed:     true,
	}
	call := s.client.Service().Files.Update(fileID, metadata).
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

// rewind restarts seekable content so a retried upload sends the whole body
func rewind(content io.Reader) error {
	seeker, ok := content.(io.Seeker)
	if !ok {
		return nil
	}
	if _, err := seeker.Seek(0, io.SeekStart); err != nil {
		return utils.WrapAppError(utils.NewCLIError(utils.ErrCodeInternalError, "failed to rewind upload content").Build(), err)
	}
	return nil
}
