package report

import (
	"context"
	"sync"
)

// weekLocks реализует мьютекс на ключ недели внутри процесса, с поддержкой отмены ожидания.
type weekLocks struct {
	mu    sync.Mutex
	locks map[string]*weekLock
}

type weekLock struct {
	ch   chan struct{}
	refs int
}

func newWeekLocks() *weekLocks {
	return &weekLocks{locks: make(map[string]*weekLock)}
}

func (w *weekLocks) lock(ctx context.Context, key string) (func(), error) {
	w.mu.Lock()
	l, ok := w.locks[key]
	if !ok {
		l = &weekLock{ch: make(chan struct{}, 1)}
		w.locks[key] = l
	}
	l.refs++
	w.mu.Unlock()

	select {
	case l.ch <- struct{}{}:
		var once sync.Once
		return func() {
			once.Do(func() {
				<-l.ch
				w.release(key, l)
			})
		}, nil
	case <-ctx.Done():
		w.release(key, l)
		return nil, ctx.Err()
	}
}

func (w *weekLocks) release(key string, l *weekLock) {
	w.mu.Lock()
	defer w.mu.Unlock()
	l.refs--
	if l.refs == 0 {
		delete(w.locks, key)
	}
}
