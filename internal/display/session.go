package display

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"clinic-call-backend/config"
	"clinic-call-backend/internal/board"
)

// Session is one public screen. It follows the board and re-derives what to
// show from the latest publicCall and videoId values. Only a session with a
// player ducks video.
type Session struct {
	ID string

	board    *board.Board
	renderer Renderer
	player   VideoPlayer

	duckVolume   int
	fullVolume   int
	duckDuration time.Duration

	mu         sync.Mutex
	restore    *time.Timer
	duckGen    int
	ducks      int
	videoID    string
	lastScreen Screen
}

// NewSession creates a screen session. player may be nil for screens that
// only show text.
func NewSession(b *board.Board, renderer Renderer, player VideoPlayer, cfg *config.DisplayConfig) *Session {
	return &Session{
		ID:           uuid.NewString(),
		board:        b,
		renderer:     renderer,
		player:       player,
		duckVolume:   cfg.DuckVolume,
		fullVolume:   cfg.FullVolume,
		duckDuration: cfg.DuckDuration,
	}
}

// Run renders the current board state and then follows changes until ctx is
// done.
func (s *Session) Run(ctx context.Context) {
	snapshot, events := s.board.Subscribe(ctx)

	if raw, ok := snapshot[board.KeyPublicCall]; ok {
		s.applyCall(raw)
	} else {
		s.render(IdleScreen)
	}
	if id, ok := snapshot[board.KeyVideoID]; ok {
		s.applyVideo(id)
	}

	for ev := range events {
		switch ev.Key {
		case board.KeyPublicCall:
			s.applyCall(ev.NewValue)
		case board.KeyVideoID:
			s.applyVideo(ev.NewValue)
		}
	}
	s.cancelRestore()
}

// Screen returns what the session currently shows.
func (s *Session) Screen() Screen {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastScreen
}

func (s *Session) applyCall(raw string) {
	pc, err := board.ParsePublicCall(raw)
	if err != nil {
		log.Printf("Session %s: ignoring public call: %v", s.ID, err)
		return
	}

	switch pc.Type {
	case board.PublicCallClear:
		s.render(IdleScreen)
		s.restoreVolume()
	case board.PublicCallCall:
		s.render(CallScreen(pc))
		s.duck()
	}
}

func (s *Session) applyVideo(videoID string) {
	if s.player == nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if videoID == s.videoID {
		return
	}
	s.videoID = videoID
	if videoID == "" {
		s.player.Stop()
		return
	}
	s.player.Load(videoID)
}

func (s *Session) render(screen Screen) {
	s.mu.Lock()
	s.lastScreen = screen
	s.mu.Unlock()
	s.renderer.Render(s.ID, screen)
}

// duck lowers the video volume and schedules the restore, replacing any
// restore still pending.
func (s *Session) duck() {
	if s.player == nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.restore != nil {
		s.restore.Stop()
	}
	s.duckGen++
	s.ducks++
	gen := s.duckGen
	s.player.SetVolume(s.duckVolume)
	s.restore = time.AfterFunc(s.duckDuration, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if gen != s.duckGen {
			return
		}
		s.restore = nil
		s.player.SetVolume(s.fullVolume)
	})
}

// restoreVolume cancels a pending restore and sets full volume now.
func (s *Session) restoreVolume() {
	if s.player == nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopRestoreLocked()
	s.player.SetVolume(s.fullVolume)
}

func (s *Session) cancelRestore() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopRestoreLocked()
}

func (s *Session) stopRestoreLocked() {
	s.duckGen++
	if s.restore != nil {
		s.restore.Stop()
		s.restore = nil
	}
}

func (s *Session) restorePending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.restore != nil
}

func (s *Session) duckCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ducks
}
