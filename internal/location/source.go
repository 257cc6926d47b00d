package location

import (
	"context"
	"fmt"
	"sync"

	"wardwatch/internal/types"
)

// PositionUpdate carries either a fix or a location failure.
type PositionUpdate struct {
	Fix types.TrackedLocation
	Err error
}

// PositionSource streams position updates until ctx is cancelled, after
// which the channel is closed.
type PositionSource interface {
	Watch(ctx context.Context) (<-chan PositionUpdate, error)
}

// NewLocationError builds a location failure. code must be one of the
// location_ error codes.
func NewLocationError(code types.ErrorCode, msg string) error {
	if msg == "" {
		msg = string(code)
	}
	return types.NewAppError(code, msg, nil)
}

// pushBuffer is the per-watcher channel capacity.
const pushBuffer = 16

type watcher struct {
	ctx context.Context
	ch  chan PositionUpdate
}

// PushSource is a PositionSource fed programmatically, by the HTTP shell or
// by tests. Push blocks while a watcher's buffer is full.
type PushSource struct {
	mu       sync.Mutex
	watchers map[int]*watcher
	nextID   int
}

var _ PositionSource = (*PushSource)(nil)

func NewPushSource() *PushSource {
	return &PushSource{watchers: make(map[int]*watcher)}
}

func (s *PushSource) Watch(ctx context.Context) (<-chan PositionUpdate, error) {
	w := &watcher{ctx: ctx, ch: make(chan PositionUpdate, pushBuffer)}

	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.watchers[id] = w
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		delete(s.watchers, id)
		close(w.ch)
		s.mu.Unlock()
	}()

	return w.ch, nil
}

// Push delivers a fix to every active watcher.
func (s *PushSource) Push(fix types.TrackedLocation) error {
	if err := types.ValidatePoint(fix.Point); err != nil {
		return err
	}
	s.broadcast(PositionUpdate{Fix: fix})
	return nil
}

// Fail delivers a location failure to every active watcher.
func (s *PushSource) Fail(code types.ErrorCode) error {
	if !types.IsLocation(types.NewAppError(code, "", nil)) {
		return types.NewAppError(types.ErrCodeValidationInvalidRequest,
			fmt.Sprintf("%q is not a location error code", code), nil)
	}
	s.broadcast(PositionUpdate{Err: NewLocationError(code, "")})
	return nil
}

// Watchers returns the number of active watchers.
func (s *PushSource) Watchers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.watchers)
}

func (s *PushSource) broadcast(u PositionUpdate) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, w := range s.watchers {
		select {
		case w.ch <- u:
		case <-w.ctx.Done():
		}
	}
}
