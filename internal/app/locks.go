package app

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"
)

// commentLocks serialises writes per comment id. Entries are dropped once no
// writer holds or waits on them.
type commentLocks struct {
	mu      sync.Mutex
	entries map[string]*commentLock
}

type commentLock struct {
	sem  *semaphore.Weighted
	refs int
}

func newCommentLocks() *commentLocks {
	return &commentLocks{entries: make(map[string]*commentLock)}
}

// acquire blocks until the caller owns commentID or ctx is done.
func (l *commentLocks) acquire(ctx context.Context, commentID string) (func(), error) {
	l.mu.Lock()
	entry, ok := l.entries[commentID]
	if !ok {
		entry = &commentLock{sem: semaphore.NewWeighted(1)}
		l.entries[commentID] = entry
	}
	entry.refs++
	l.mu.Unlock()

	if err := entry.sem.Acquire(ctx, 1); err != nil {
		l.drop(commentID, entry)
		return nil, err
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			entry.sem.Release(1)
			l.drop(commentID, entry)
		})
	}, nil
}

func (l *commentLocks) drop(commentID string, entry *commentLock) {
	l.mu.Lock()
	defer l.mu.Unlock()
	entry.refs--
	if entry.refs == 0 {
		delete(l.entries, commentID)
	}
}

func (l *commentLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
