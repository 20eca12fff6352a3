package drivestore

import (
	"context"
	"fmt"

	"github.com/dl-alexandre/gitdrive/internal/api"
	"github.com/dl-alexandre/gitdrive/internal/remote"
	"github.com/dl-alexandre/gitdrive/internal/types"
	"github.com/dl-alexandre/gitdrive/internal/utils"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
)

const fileFields = "id,name,webViewLink,description,properties,trashed"

type scanner struct {
	client *api.Client
	reqCtx *types.RequestContext
}

func newScanner(client *api.Client, reqCtx *types.RequestContext) *scanner {
	return &scanner{client: client, reqCtx: reqCtx}
}

type folderNode struct {
	ID     string
	IDPath []string
}

// scan lists folders level by level; trashed folders are not descended into,
// trashed files are reported with their flag set
func (s *scanner) scan(ctx context.Context, rootID string) (*remote.Hierarchy, error) {
	s.reqCtx.InvolvedParentIDs = append(s.reqCtx.InvolvedParentIDs, rootID)

	root, err := s.getFolder(ctx, rootID)
	if err != nil {
		return nil, err
	}

	h := &remote.Hierarchy{
		Folders: []remote.FolderRecord{{ID: rootID, Name: root.Name, IDPath: []string{rootID}}},
	}
	queue := []folderNode{{ID: rootID, IDPath: []string{rootID}}}

	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]

		subfolders, err := s.list(ctx, fmt.Sprintf("'%s' in parents and mimeType = '%s' and trashed = false", node.ID, utils.MimeTypeFolder), "id,name")
		if err != nil {
			return nil, err
		}
		for _, f := range subfolders {
			idPath := make([]string, len(node.IDPath), len(node.IDPath)+1)
			copy(idPath, node.IDPath)
			idPath = append(idPath, f.Id)

			h.Folders = append(h.Folders, remote.FolderRecord{ID: f.Id, Name: f.Name, IDPath: idPath})
			queue = append(queue, folderNode{ID: f.Id, IDPath: idPath})
		}

		files, err := s.list(ctx, fmt.Sprintf("'%s' in parents and mimeType != '%s'", node.ID, utils.MimeTypeFolder), fileFields)
		if err != nil {
			return nil, err
		}
		listing := remote.FolderListing{FolderID: node.ID, Files: make([]remote.FileRecord, 0, len(files))}
		for _, f := range files {
			listing.Files = append(listing.Files, remote.FileRecord{
				ID:          f.Id,
				Name:        f.Name,
				WebViewLink: f.WebViewLink,
				Description: f.Description,
				Properties:  f.Properties,
				Trashed:     f.Trashed,
			})
		}
		h.Listings = append(h.Listings, listing)
	}

	return h, nil
}

func (s *scanner) getFolder(ctx context.Context, folderID string) (*drive.File, error) {
	call := s.client.Service().Files.Get(folderID).
		SupportsAllDrives(true).
		Fields(googleapi.Field("id,name,mimeType,trashed")).
		Context(ctx)
	return api.ExecuteWithRetry(ctx, s.client, s.reqCtx, func() (*drive.File, error) {
		return call.Do()
	})
}

func (s *scanner) list(ctx context.Context, query, fields string) ([]*drive.File, error) {
	call := s.client.Service().Files.List().Q(query).
		SupportsAllDrives(true).
		IncludeItemsFromAllDrives(true).
		PageSize(utils.DriveListPageSize).
		Fields(googleapi.Field("nextPageToken,files(" + fields + ")")).
		Context(ctx)

	var results []*drive.File
	for {
		list, err := api.ExecuteWithRetry(ctx, s.client, s.reqCtx, func() (*drive.FileList, error) {
			return call.Do()
		})
		if err != nil {
			return nil, err
		}
		results = append(results, list.Files...)
		if list.NextPageToken == "" {
			break
		}
		call = call.PageToken(list.NextPageToken)
	}
	return results, nil
}
