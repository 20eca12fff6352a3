package mocks

import (
	"context"
	"sync"
)

// MockChannel records every posted notification batch
type MockChannel struct {
	mu    sync.Mutex
	posts []string

	// PostFunc, when set, decides the outcome of the n-th post (0-based)
	PostFunc func(n int, text string) error
}

// Post records text and returns PostFunc's verdict
func (c *MockChannel) Post(ctx context.Context, text string) error {
	c.mu.Lock()
	n := len(c.posts)
	c.posts = append(c.posts, text)
	c.mu.Unlock()

	if c.PostFunc != nil {
		return c.PostFunc(n, text)
	}
	return nil
}

// Posts returns every batch posted so far, including failed ones
func (c *MockChannel) Posts() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.posts...)
}
