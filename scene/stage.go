package scene

import (
	"context"
	"sync"
	"time"

	"github.com/aukilabs/cull/models"
)

// Stage dispatches frames to the registered frame handlers at a fixed rate.
type Stage struct {
	startFrameOnce  sync.Once
	closeFrameChan  chan struct{}
	frameTicker     *time.Ticker
	frameHandlerIDs models.SequentialIDGenerator
	frameHandlers   map[uint32]func()
	frameMutex      sync.RWMutex

	closeOnce sync.Once
}

func NewStage(frameDuration time.Duration) *Stage {
	return &Stage{
		closeFrameChan: make(chan struct{}, 1),
		frameTicker:    time.NewTicker(frameDuration),
		frameHandlers:  make(map[uint32]func()),
	}
}

// HandleFrame registers a function called on each frame. Calling the
// returned function unregisters it. It must not be called from a frame
// handler.
func (s *Stage) HandleFrame(h func()) (cancel func()) {
	s.frameMutex.Lock()
	defer s.frameMutex.Unlock()

	id := s.frameHandlerIDs.New()
	s.frameHandlers[id] = h

	return func() {
		s.frameMutex.Lock()
		defer s.frameMutex.Unlock()

		delete(s.frameHandlers, id)
		s.frameHandlerIDs.Reuse(id)
	}
}

// Run dispatches frames until the context is canceled or the stage is
// closed.
func (s *Stage) Run(ctx context.Context) {
	s.startFrameOnce.Do(func() {
		for {
			select {
			case <-ctx.Done():
				return

			case <-s.closeFrameChan:
				return

			case <-s.frameTicker.C:
				s.dispatchFrame()
			}
		}
	})
}

func (s *Stage) Close() {
	s.closeOnce.Do(func() {
		s.frameTicker.Stop()
		s.closeFrameChan <- struct{}{}
	})
}

func (s *Stage) dispatchFrame() {
	s.frameMutex.RLock()
	defer s.frameMutex.RUnlock()

	for _, h := range s.frameHandlers {
		h()
	}
}
