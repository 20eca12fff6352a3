package inventory

import (
	"testing"

	"github.com/dl-alexandre/gitdrive/internal/remote"
	"github.com/dl-alexandre/gitdrive/internal/utils"
)

func sampleHierarchy() *remote.Hierarchy {
	return &remote.Hierarchy{
		Folders: []remote.FolderRecord{
			{ID: "f2", Name: "F2", IDPath: []string{"root", "f1", "f2"}},
			{ID: "root", Name: "Shared", IDPath: []string{"root"}},
			{ID: "f1", Name: "F1", IDPath: []string{"root", "f1"}},
		},
		Listings: []remote.FolderListing{
			{FolderID: "root", Files: []remote.FileRecord{
				{ID: "r1", Name: "README.md", Properties: map[string]string{"gitHash": "h0"}},
			}},
			{FolderID: "f2", Files: []remote.FileRecord{
				{ID: "a", Name: "a.txt", WebViewLink: "https://drive/a", Properties: map[string]string{"gitHash": "h1"}},
				{ID: "gone", Name: "gone.txt", Trashed: true},
			}},
		},
	}
}

func TestBuild_ResolvesPaths(t *testing.T) {
	inv, err := Build("root", sampleHierarchy())
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	f2, ok := inv.Folder("F1/F2")
	if !ok {
		t.Fatal("F1/F2 not found")
	}
	if f2.FullPath != "F1/F2" || len(f2.IDPath) != 3 {
		t.Errorf("unexpected folder %+v", f2)
	}
	if inv.Root().FullPath != "" || inv.Root().Name != "Shared" {
		t.Errorf("unexpected root %+v", inv.Root())
	}
	for _, p := range []string{"", ".", "./"} {
		if f, ok := inv.Folder(p); !ok || f != inv.Root() {
			t.Errorf("Folder(%q) should be the root", p)
		}
	}

	files := inv.Files()
	if len(files) != 2 {
		t.Fatalf("Files() = %d entries, want 2 (trashed excluded)", len(files))
	}
	if _, ok := fileAt(inv, "F1/F2/gone.txt"); ok {
		t.Error("trashed file present in inventory")
	}

	a, ok := fileAt(inv, "F1/F2/a.txt")
	if !ok {
		t.Fatal("F1/F2/a.txt not found")
	}
	if a.Folder != f2 || a.Fingerprint() != "h1" || a.WebViewLink != "https://drive/a" {
		t.Errorf("unexpected file %+v", a)
	}

	readme, _ := fileAt(inv, "README.md")
	if readme == nil || readme.WebViewLink != utils.BadLink {
		t.Errorf("missing link should default to placeholder, got %+v", readme)
	}
}

func TestBuild_Errors(t *testing.T) {
	tests := []struct {
		name string
		h    *remote.Hierarchy
	}{
		{"nil hierarchy", nil},
		{"unknown ancestor", &remote.Hierarchy{Folders: []remote.FolderRecord{
			{ID: "x", Name: "X", IDPath: []string{"root", "missing", "x"}},
		}}},
		{"foreign root", &remote.Hierarchy{Folders: []remote.FolderRecord{
			{ID: "x", Name: "X", IDPath: []string{"other", "x"}},
		}}},
		{"listing for unknown folder", &remote.Hierarchy{Listings: []remote.FolderListing{
			{FolderID: "nowhere"},
		}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Build("root", tt.h); !utils.HasCode(err, utils.ErrCodeRetrieval) {
				t.Errorf("Build() error = %v, want retrieval error", err)
			}
		})
	}
}

func TestBuild_RootWithoutRecord(t *testing.T) {
	inv, err := Build("root", &remote.Hierarchy{Listings: []remote.FolderListing{
		{FolderID: "root", Files: []remote.FileRecord{{ID: "1", Name: "x"}}},
	}})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if f, ok := fileAt(inv, "x"); !ok || f.Folder != inv.Root() {
		t.Errorf("file not attached to root: %+v", f)
	}
}

func TestInventory_Mutations(t *testing.T) {
	inv, err := Build("root", sampleHierarchy())
	if err != nil {
		t.Fatal(err)
	}
	f1, _ := inv.Folder("F1")

	docs, err := inv.AddFolder(f1, "d1", "docs")
	if err != nil {
		t.Fatalf("AddFolder() error = %v", err)
	}
	if docs.FullPath != "F1/docs" || docs.IDPath[len(docs.IDPath)-1] != "d1" || len(docs.IDPath) != 3 {
		t.Errorf("unexpected folder %+v", docs)
	}
	if _, err := inv.AddFolder(f1, "d2", "docs"); !utils.HasCode(err, utils.ErrCodeInternalError) {
		t.Errorf("duplicate AddFolder() error = %v", err)
	}
	if inv.Parent(docs) != f1 || inv.Parent(inv.Root()) != nil {
		t.Error("Parent() mismatch")
	}

	file := inv.AddFile(docs, remote.Ref{ID: "n1"}, remote.FileMeta{
		Name:       "new.md",
		Properties: map[string]string{"gitHash": "h9"},
	})
	if file.FullPath != "F1/docs/new.md" || file.WebViewLink != utils.BadLink {
		t.Errorf("unexpected file %+v", file)
	}

	inv.SetFileMeta(file, remote.FileMeta{Description: "Updated", Properties: map[string]string{"gitHash": "h10"}})
	if file.Fingerprint() != "h10" || file.Description != "Updated" {
		t.Errorf("SetFileMeta() not applied: %+v", file)
	}

	if inv.RemoveFolderIf(docs, nil) {
		t.Error("non-empty folder removed")
	}
	if inv.RemoveFolderIf(f1, nil) {
		t.Error("folder with subfolders removed")
	}
	if !inv.RemoveFile(file) || inv.RemoveFile(file) {
		t.Error("RemoveFile() should succeed exactly once")
	}
	if len(docs.files) != 0 {
		t.Error("folder should be empty")
	}
	if inv.RemoveFolderIf(docs, func(*Folder) bool { return true }) {
		t.Error("kept folder removed")
	}
	if !inv.RemoveFolderIf(docs, nil) {
		t.Error("empty folder not removed")
	}
	if _, ok := inv.Folder("F1/docs"); ok {
		t.Error("removed folder still indexed")
	}
	if inv.RemoveFolderIf(inv.Root(), nil) {
		t.Error("root removed")
	}

	inv.RestoreFolder(docs)
	if _, ok := inv.Folder("F1/docs"); !ok {
		t.Error("RestoreFolder() did not re-register")
	}
}

func TestNormalizePath(t *testing.T) {
	for in, want := range map[string]string{
		"":       "",
		".":      "",
		"./a/b":  "a/b",
		"a/b/":   "a/b",
		"/a//b/": "a/b",
	} {
		if got := NormalizePath(in); got != want {
			t.Errorf("NormalizePath(%q) = %q, want %q", in, got, want)
		}
	}
}

func fileAt(inv *Inventory, p string) (*File, bool) {
	for _, f := range inv.Files() {
		if f.FullPath == p {
			return f, true
		}
	}
	return nil, false
}

func TestFolder_DisplayPath(t *testing.T) {
	inv, err := Build("root", &remote.Hierarchy{})
	if err != nil {
		t.Fatal(err)
	}
	docs, err := inv.AddFolder(inv.Root(), "d1", "docs")
	if err != nil {
		t.Fatal(err)
	}
	if got := inv.Root().DisplayPath(); got != "/" {
		t.Errorf("root DisplayPath() = %q, want /", got)
	}
	if got := docs.DisplayPath(); got != "docs" {
		t.Errorf("DisplayPath() = %q, want docs", got)
	}
}
