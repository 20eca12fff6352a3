package source

import "testing"

func TestSet(t *testing.T) {
	s := NewSet([]TrackedFile{
		NewTrackedFile("a/one.txt", "", "1", TagAdded),
		NewTrackedFile("a/two.txt", "", "2", TagAdded),
		NewTrackedFile("b/three.txt", "", "3", TagAdded),
		NewTrackedFile("a/one.txt", "", "1b", TagModified),
		NewTrackedFile("c/x/deep.txt", "", "4", TagAdded),
		NewTrackedFile("d/gone.txt", "", "", TagDeleted),
	})

	if len(s.files) != 5 {
		t.Fatalf("set holds %d records, want 5", len(s.files))
	}
	if !s.HasFolderReference("c") {
		t.Error("folder c should be referenced by its subfolder")
	}
	if s.HasFolderReference("d") {
		t.Error("deleted records should not reference their folder")
	}
	if s.HasFolderReference("a/o") {
		t.Error("prefix of a folder name is not a reference")
	}
	if f := s.files[s.byPath["a/one.txt"]]; f.Fingerprint != "1" {
		t.Errorf("first record for a path should win, got %+v", f)
	}

	if !s.HasFolderReference("b") {
		t.Error("folder b should be referenced")
	}
	if !s.Remove("b/three.txt") {
		t.Error("Remove() = false for present record")
	}
	if s.Remove("b/three.txt") {
		t.Error("Remove() = true for absent record")
	}
	if s.HasFolderReference("b") {
		t.Error("folder b still referenced after removal")
	}

	s.Remove("a/one.txt")
	if i, ok := s.byPath["a/two.txt"]; !ok || s.files[i].Fingerprint != "2" {
		t.Errorf("index broken after removal: %d, %v", i, ok)
	}
	if len(s.files) != 3 || s.files[0].RelativePath != "a/two.txt" {
		t.Errorf("records after removal = %+v", s.files)
	}
}
