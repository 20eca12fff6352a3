package mocks_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/dl-alexandre/gitdrive/internal/remote"
	testhelpers "github.com/dl-alexandre/gitdrive/internal/testing"
	"github.com/dl-alexandre/gitdrive/internal/testing/mocks"
)

func TestMockStore_Hierarchy(t *testing.T) {
	store := mocks.NewMockStore("root")
	docs := store.AddFolder("root", "docs")
	store.AddFile(docs, "a.md", "gitHash", "h1")
	trashed := store.AddFile(docs, "old.md", "gitHash", "h0")
	store.TrashSeeded(trashed)

	h, err := store.Hierarchy(context.Background(), "root")
	testhelpers.AssertNoError(t, err, "hierarchy")
	testhelpers.AssertEqual(t, len(h.Folders), 2, "folders")

	var files []remote.FileRecord
	for _, l := range h.Listings {
		files = append(files, l.Files...)
	}
	testhelpers.AssertEqual(t, len(files), 2, "listed files")

	if _, err := store.Hierarchy(context.Background(), "missing"); err == nil {
		t.Error("expected error for unknown root")
	}
}

func TestMockStore_Mutations(t *testing.T) {
	ctx := context.Background()
	store := mocks.NewMockStore("root")

	folderID, err := store.CreateFolder(ctx, "root", "docs")
	testhelpers.AssertNoError(t, err, "create folder")

	ref, err := store.CreateFile(ctx, folderID, remote.FileMeta{
		Name:       "a.md",
		Properties: map[string]string{"gitHash": "h1"},
	}, strings.NewReader("hello"))
	testhelpers.AssertNoError(t, err, "create file")

	f, ok := store.File("docs/a.md")
	if !ok || string(f.Content) != "hello" || f.ID != ref.ID {
		t.Fatalf("File() = %+v, %v", f, ok)
	}

	_, err = store.TrashFile(ctx, ref.ID, remote.FileMeta{Properties: map[string]string{"gitHash": "h1"}})
	testhelpers.AssertNoError(t, err, "trash file")
	if _, ok := store.File("docs/a.md"); ok {
		t.Error("trashed file still live")
	}
	testhelpers.AssertEqual(t, store.CallCount("CreateFile"), 1, "CreateFile calls")
}

func TestMockStore_Failures(t *testing.T) {
	ctx := context.Background()
	store := mocks.NewMockStore("root")
	store.FailFunc = func(op, name string) error {
		if name == "bad" {
			return errors.New("boom")
		}
		return nil
	}
	store.NoIDFunc = func(op, name string) bool { return name == "silent" }

	_, err := store.CreateFolder(ctx, "root", "bad")
	testhelpers.AssertError(t, err, "failing folder")

	id, err := store.CreateFolder(ctx, "root", "silent")
	testhelpers.AssertNoError(t, err, "silent folder")
	testhelpers.AssertEqual(t, id, "", "silent folder id")
}

func TestMockChannel(t *testing.T) {
	ch := &mocks.MockChannel{PostFunc: func(n int, text string) error {
		if n == 1 {
			return errors.New("down")
		}
		return nil
	}}
	testhelpers.AssertNoError(t, ch.Post(context.Background(), "one"))
	testhelpers.AssertError(t, ch.Post(context.Background(), "two"))
	testhelpers.AssertEqual(t, len(ch.Posts()), 2, "posts")
}
