package web

import (
	"context"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/JonMunkholm/EmployeeImport/internal/core"
)

// uploadLimiter bounds how many uploads are read and stored at once. A
// request waits up to maxWait for a slot and then gets a 429.
type uploadLimiter struct {
	slots   chan struct{}
	maxWait time.Duration
	active  atomic.Int64
}

func newUploadLimiter(maxConcurrent int, maxWait time.Duration) *uploadLimiter {
	if maxConcurrent <= 0 {
		maxConcurrent = 5
	}
	if maxWait <= 0 {
		maxWait = 30 * time.Second
	}
	return &uploadLimiter{slots: make(chan struct{}, maxConcurrent), maxWait: maxWait}
}

// acquire waits for a slot. It returns core.ErrTooManyUploads when the wait
// expires and ctx.Err() when the request goes away.
func (l *uploadLimiter) acquire(ctx context.Context) error {
	timer := time.NewTimer(l.maxWait)
	defer timer.Stop()

	select {
	case l.slots <- struct{}{}:
		l.active.Add(1)
		return nil
	case <-timer.C:
		return core.ErrTooManyUploads
	case <-ctx.Done():
		return ctx.Err()
	}
}

// release frees a slot taken by acquire.
func (l *uploadLimiter) release() {
	l.active.Add(-1)
	<-l.slots
}

// activeCount returns the uploads currently holding a slot.
func (l *uploadLimiter) activeCount() int {
	return int(l.active.Load())
}

// waitForDrain blocks until no upload holds a slot or ctx is done.
func (l *uploadLimiter) waitForDrain(ctx context.Context) error {
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for l.activeCount() > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
	return nil
}

// middleware wraps an upload handler with slot acquisition.
func (l *uploadLimiter) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := l.acquire(r.Context()); err != nil {
			w.Header().Set("Retry-After", strconv.Itoa(max(1, int(l.maxWait.Seconds()))))
			respondError(w, r, err, http.StatusTooManyRequests)
			return
		}
		defer l.release()
		next.ServeHTTP(w, r)
	})
}
