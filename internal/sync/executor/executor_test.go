package executor

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/dl-alexandre/gitdrive/internal/remote"
	"github.com/dl-alexandre/gitdrive/internal/runlog"
	"github.com/dl-alexandre/gitdrive/internal/source"
	"github.com/dl-alexandre/gitdrive/internal/sync/diff"
	"github.com/dl-alexandre/gitdrive/internal/sync/inventory"
	testhelpers "github.com/dl-alexandre/gitdrive/internal/testing"
	"github.com/dl-alexandre/gitdrive/internal/testing/mocks"
	"github.com/dl-alexandre/gitdrive/internal/utils"
	"github.com/spf13/afero"
)

const localRoot = "/work"

type fixture struct {
	store *mocks.MockStore
	fs    afero.Fs
	log   *runlog.Log
}

func newFixture(t *testing.T, files map[string]string) *fixture {
	t.Helper()
	fs := afero.NewMemMapFs()
	for name, content := range files {
		if err := afero.WriteFile(fs, filepath.Join(localRoot, name), []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}
	return &fixture{store: mocks.NewMockStore("root"), fs: fs, log: runlog.New(nil)}
}

// sync runs one full plan/apply pass against the fixture's store
func (f *fixture) sync(t *testing.T, tracked []source.TrackedFile) (diff.Result, Summary) {
	t.Helper()
	h, err := f.store.Hierarchy(context.Background(), "root")
	testhelpers.AssertNoError(t, err, "hierarchy")
	inv, err := inventory.Build("root", h)
	testhelpers.AssertNoError(t, err, "build inventory")

	plan := diff.Compute(tracked, inv.Files())
	exec := New(f.store, inv, source.NewSet(tracked), f.fs, f.log, Options{LocalRoot: localRoot, Concurrency: 4})
	summary, err := exec.Apply(context.Background(), plan.Actions)
	testhelpers.AssertNoError(t, err, "apply")
	return plan, summary
}

func TestExecutor_Lifecycle(t *testing.T) {
	f := newFixture(t, map[string]string{"docs/a.txt": "v1"})

	// create
	plan, summary := f.sync(t, []source.TrackedFile{testhelpers.Added("docs/a.txt", "h1")})
	testhelpers.AssertEqual(t, len(plan.Actions), 1, "create actions")
	testhelpers.AssertEqual(t, summary.Created, 1, "created")
	testhelpers.AssertEqual(t, summary.FoldersCreated, 1, "folders created")

	file, ok := f.store.File("docs/a.txt")
	if !ok {
		t.Fatal("docs/a.txt not created")
	}
	testhelpers.AssertEqual(t, string(file.Content), "v1", "content")
	testhelpers.AssertEqual(t, file.Properties[utils.FingerprintProperty], "h1", "fingerprint")
	testhelpers.AssertEqual(t, file.Description, "Created by Github2Drive upon hash h1", "description")

	// converged
	plan, _ = f.sync(t, []source.TrackedFile{testhelpers.Added("docs/a.txt", "h1")})
	if !plan.Empty() {
		t.Fatalf("second run planned %d actions", len(plan.Actions))
	}

	// update
	if err := afero.WriteFile(f.fs, filepath.Join(localRoot, "docs/a.txt"), []byte("v2"), 0644); err != nil {
		t.Fatal(err)
	}
	plan, summary = f.sync(t, []source.TrackedFile{testhelpers.Tracked("docs/a.txt", "h2", source.TagModified)})
	testhelpers.AssertEqual(t, len(plan.Actions), 1, "update actions")
	testhelpers.AssertEqual(t, summary.Updated, 1, "updated")
	file, _ = f.store.File("docs/a.txt")
	testhelpers.AssertEqual(t, string(file.Content), "v2", "updated content")
	testhelpers.AssertEqual(t, file.Description, "Updated by Github2Drive upon hash h2", "description")

	// delete, taking the emptied folder with it
	deleted := testhelpers.Tracked("docs/a.txt", "h3", source.TagDeleted)
	plan, summary = f.sync(t, []source.TrackedFile{deleted})
	testhelpers.AssertEqual(t, len(plan.Actions), 1, "delete actions")
	testhelpers.AssertEqual(t, summary.Deleted, 1, "deleted")
	testhelpers.AssertEqual(t, summary.FoldersDeleted, 1, "folders deleted")
	if live := f.store.LiveFiles(); len(live) != 0 {
		t.Errorf("live files = %v", live)
	}
	if folders := f.store.LiveFolders(); len(folders) != 0 {
		t.Errorf("live folders = %v", folders)
	}

	notices := f.log.DrainNotices()
	want := []string{
		"*[ADDED]* <https://drive.example.com/",
		"*[MODIFIED]* <https://drive.example.com/",
		"*[REMOVED]* _a.txt_ from `docs`",
	}
	testhelpers.AssertEqual(t, len(notices), len(want), "notices")
	for i := range want {
		if !strings.HasPrefix(notices[i], want[i]) {
			t.Errorf("notice %d = %q, want prefix %q", i, notices[i], want[i])
		}
	}
	if !strings.HasSuffix(notices[0], "|a.txt> to `docs`") {
		t.Errorf("unexpected create notice %q", notices[0])
	}
}

func TestExecutor_DeleteStampsFingerprint(t *testing.T) {
	f := newFixture(t, nil)
	tracked := f.store.AddFile("root", "gone.txt", utils.FingerprintProperty, "old")
	untracked := f.store.AddFile("root", "manual.txt", "", "")

	f.sync(t, []source.TrackedFile{testhelpers.Tracked("gone.txt", "h9", source.TagDeleted)})

	calls := strings.Join(f.store.Calls(), ",")
	if !strings.Contains(calls, "TrashFile gone.txt") || !strings.Contains(calls, "TrashFile manual.txt") {
		t.Fatalf("calls = %s", calls)
	}
	if f.store.CallCount("TrashFolder") != 0 {
		t.Error("root folder must never be trashed")
	}

	h, _ := f.store.Hierarchy(context.Background(), "root")
	stamps := map[string]string{}
	for _, l := range h.Listings {
		for _, file := range l.Files {
			stamps[file.ID] = file.Properties[utils.FingerprintProperty] + "|" + file.Description
		}
	}
	testhelpers.AssertEqual(t, stamps[tracked], "h9|Deleted by Github2Drive upon hash h9", "tracked delete stamp")
	testhelpers.AssertEqual(t, stamps[untracked], "no-hash|Deleted by Github2Drive upon hash no-hash", "untracked delete stamp")
}

func TestExecutor_FolderKeptWhileReferenced(t *testing.T) {
	f := newFixture(t, map[string]string{"docs/new.txt": "n", "docs/deep/x.txt": "x"})
	docs := f.store.AddFolder("root", "docs")
	f.store.AddFile(docs, "old.txt", utils.FingerprintProperty, "o")
	other := f.store.AddFolder("root", "other")
	f.store.AddFile(other, "stale.txt", utils.FingerprintProperty, "s")

	_, summary := f.sync(t, []source.TrackedFile{
		testhelpers.Added("docs/new.txt", "n1"),
		testhelpers.Added("docs/deep/x.txt", "x1"),
	})

	testhelpers.AssertEqual(t, summary.Deleted, 2, "deleted")
	testhelpers.AssertEqual(t, summary.Created, 2, "created")
	testhelpers.AssertEqual(t, summary.FoldersDeleted, 1, "folders deleted")

	folders := strings.Join(f.store.LiveFolders(), ",")
	testhelpers.AssertEqual(t, folders, "docs,docs/deep", "live folders")
}

func TestExecutor_NestedFoldersPruned(t *testing.T) {
	f := newFixture(t, nil)
	a := f.store.AddFolder("root", "a")
	b := f.store.AddFolder(a, "b")
	f.store.AddFile(b, "only.txt", utils.FingerprintProperty, "x")

	_, summary := f.sync(t, nil)
	testhelpers.AssertEqual(t, summary.FoldersDeleted, 2, "folders deleted")
	if folders := f.store.LiveFolders(); len(folders) != 0 {
		t.Errorf("live folders = %v", folders)
	}
}

func TestExecutor_PartialFailure(t *testing.T) {
	files := map[string]string{}
	var tracked []source.TrackedFile
	for _, name := range []string{"a.txt", "b.txt", "c.txt", "d.txt", "e.txt"} {
		files[name] = name
		tracked = append(tracked, testhelpers.Added(name, "h-"+name))
	}
	f := newFixture(t, files)
	f.store.FailFunc = func(op, name string) error {
		if name == "c.txt" {
			return errors.New("backend error")
		}
		return nil
	}

	_, summary := f.sync(t, tracked)
	testhelpers.AssertEqual(t, summary.Created, 4, "created")
	testhelpers.AssertEqual(t, summary.Failed, 1, "failed")
	testhelpers.AssertEqual(t, len(f.store.LiveFiles()), 4, "live files")
	if !strings.Contains(f.log.Errors(), "create c.txt") {
		t.Errorf("error trail = %q", f.log.Errors())
	}
}

func TestExecutor_MissingIDIsAnError(t *testing.T) {
	tests := []struct {
		name    string
		op      string
		seed    bool
		tracked source.TrackedFile
		code    string
	}{
		{"create", "CreateFile", false, testhelpers.Added("x.txt", "h1"), utils.ErrCodeCreation},
		{"update", "UpdateFile", true, testhelpers.Added("x.txt", "h2"), utils.ErrCodeUpdate},
		{"delete", "TrashFile", true, testhelpers.Deleted("x.txt"), utils.ErrCodeDeletion},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, map[string]string{"x.txt": "x"})
			if tt.seed {
				f.store.AddFile("root", "x.txt", utils.FingerprintProperty, "h1")
			}
			f.store.NoIDFunc = func(op, name string) bool { return op == tt.op }

			_, summary := f.sync(t, []source.TrackedFile{tt.tracked})
			testhelpers.AssertEqual(t, summary.Failed, 1, "failed")
			if !strings.Contains(f.log.Errors(), tt.code) {
				t.Errorf("error trail %q lacks %s", f.log.Errors(), tt.code)
			}
		})
	}
}

func TestExecutor_UnreadableLocalFile(t *testing.T) {
	f := newFixture(t, nil)
	_, summary := f.sync(t, []source.TrackedFile{testhelpers.Added("missing.txt", "h1")})
	testhelpers.AssertEqual(t, summary.Failed, 1, "failed")
	testhelpers.AssertEqual(t, f.store.CallCount("CreateFile"), 0, "CreateFile calls")
}

func TestFolderMaterializer_Ensure(t *testing.T) {
	store := mocks.NewMockStore("root")
	existing := store.AddFolder("root", "docs")
	h, _ := store.Hierarchy(context.Background(), "root")
	inv, err := inventory.Build("root", h)
	testhelpers.AssertNoError(t, err)

	var mu sync.Mutex
	creates := map[string]int{}
	store.OnCall = func(op, name string) {
		if op == "CreateFolder" {
			mu.Lock()
			creates[name]++
			mu.Unlock()
		}
	}

	m := NewFolderMaterializer(store, inv, nil)

	root, err := m.Ensure(context.Background(), ".")
	testhelpers.AssertNoError(t, err)
	if root != inv.Root() {
		t.Error("\".\" should resolve to the root")
	}
	docs, err := m.Ensure(context.Background(), "docs/")
	testhelpers.AssertNoError(t, err)
	testhelpers.AssertEqual(t, docs.ID, existing, "existing folder reused")

	var wg sync.WaitGroup
	results := make([]*inventory.Folder, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			folder, err := m.Ensure(context.Background(), "docs/guides/setup")
			if err != nil {
				t.Errorf("Ensure() error = %v", err)
			}
			results[i] = folder
		}(i)
	}
	wg.Wait()

	for _, r := range results[1:] {
		if r != results[0] {
			t.Fatal("concurrent Ensure returned different folders")
		}
	}
	testhelpers.AssertEqual(t, results[0].FullPath, "docs/guides/setup", "full path")
	testhelpers.AssertEqual(t, creates["guides"], 1, "guides created")
	testhelpers.AssertEqual(t, creates["setup"], 1, "setup created")
	testhelpers.AssertEqual(t, m.Created(), 2, "created count")
}

func TestFolderMaterializer_Errors(t *testing.T) {
	store := mocks.NewMockStore("root")
	inv, _ := inventory.Build("root", &remote.Hierarchy{})
	m := NewFolderMaterializer(store, inv, nil)

	store.NoIDFunc = func(op, name string) bool { return name == "silent" }
	if _, err := m.Ensure(context.Background(), "silent"); !utils.HasCode(err, utils.ErrCodeCreation) {
		t.Errorf("no id: error = %v", err)
	}

	store.FailFunc = func(op, name string) error { return errors.New("denied") }
	if _, err := m.Ensure(context.Background(), "a/b"); !utils.HasCode(err, utils.ErrCodeCreation) {
		t.Errorf("failing store: error = %v", err)
	}
	if _, ok := inv.Folder("a"); ok {
		t.Error("failed folder registered")
	}
}
