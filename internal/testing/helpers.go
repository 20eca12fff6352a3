// Package testing holds fixtures shared by the sync tests.
package testing

import (
	"fmt"
	"testing"

	"github.com/dl-alexandre/gitdrive/internal/source"
)

// Tracked creates a tracked file at relativePath in a tree published whole
func Tracked(relativePath, fingerprint string, tag source.Tag) source.TrackedFile {
	return source.NewTrackedFile(relativePath, "", fingerprint, tag)
}

// Added is Tracked with the added tag
func Added(relativePath, fingerprint string) source.TrackedFile {
	return Tracked(relativePath, fingerprint, source.TagAdded)
}

// Deleted is Tracked with the deleted tag
func Deleted(relativePath string) source.TrackedFile {
	return Tracked(relativePath, "", source.TagDeleted)
}

func label(msgAndArgs []interface{}) string {
	if len(msgAndArgs) == 0 {
		return ""
	}
	return fmt.Sprintf("%v: ", msgAndArgs[0])
}

// AssertNoError stops the test when err is set
func AssertNoError(t *testing.T, err error, msgAndArgs ...interface{}) {
	t.Helper()
	if err != nil {
		t.Fatalf("%sunexpected error: %v", label(msgAndArgs), err)
	}
}

// AssertError stops the test when err is nil
func AssertError(t *testing.T, err error, msgAndArgs ...interface{}) {
	t.Helper()
	if err == nil {
		t.Fatalf("%sexpected error but got nil", label(msgAndArgs))
	}
}

// AssertEqual compares with ==, so only comparable values may be passed
func AssertEqual(t *testing.T, got, want interface{}, msgAndArgs ...interface{}) {
	t.Helper()
	if got != want {
		t.Fatalf("%sgot %v, want %v", label(msgAndArgs), got, want)
	}
}
