// Package display implements the public display: the announcer that turns
// polled calls into speech and board updates, and the screen sessions that
// render the board.
package display

import (
	"context"
	"log"
	"sync"
	"time"

	"clinic-call-backend/internal/board"
	"clinic-call-backend/internal/model"
	"clinic-call-backend/internal/parse"
)

// ActivationPhrase is spoken once audio is enabled.
const ActivationPhrase = "Sistema de chamadas ativado."

// Announcer announces each distinct call exactly once. Speech stays off until
// EnableAudio is called by the operator.
type Announcer struct {
	board    *board.Board
	speaker  Speaker
	template string
	now      func() time.Time

	ctx    context.Context
	cancel context.CancelFunc

	mu           sync.Mutex
	lastID       int64
	announced    bool
	audioEnabled bool

	// voiceMu serializes voice lookup, which may run an external command.
	voiceMu     sync.Mutex
	voice       *Voice
	voiceLoaded bool
}

func NewAnnouncer(b *board.Board, speaker Speaker, template string) *Announcer {
	ctx, cancel := context.WithCancel(context.Background())
	return &Announcer{
		board:    b,
		speaker:  speaker,
		template: template,
		now:      time.Now,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// HandleCall announces call if its id differs from the last announced one.
// A nil call is ignored.
func (a *Announcer) HandleCall(call *model.Call) {
	if call == nil {
		return
	}

	a.mu.Lock()
	if a.announced && call.ID == a.lastID {
		a.mu.Unlock()
		return
	}
	a.lastID = call.ID
	a.announced = true
	speak := a.audioEnabled
	a.mu.Unlock()

	log.Printf("Announcing call %d: %s -> %s (%s)", call.ID, call.Name, call.Room, call.Doctor)
	a.board.PublishCall(*call)
	if speak {
		a.say(call.Phrase(a.template))
	}
}

// HandleVideo publishes the YouTube id of url. A nil or unrecognised URL
// publishes no video.
func (a *Announcer) HandleVideo(url *string) {
	id := ""
	if url != nil {
		id = parse.YouTubeID(*url)
		if id == "" {
			log.Printf("Ignoring video URL without a YouTube id: %q", *url)
		}
	}
	a.board.PublishVideo(id)
}

// EnableAudio unlocks speech. The first call speaks ActivationPhrase.
func (a *Announcer) EnableAudio() {
	a.mu.Lock()
	already := a.audioEnabled
	a.audioEnabled = true
	a.mu.Unlock()

	if already {
		return
	}
	log.Println("Audio enabled")
	a.say(ActivationPhrase)
}

// AudioEnabled reports whether speech is unlocked.
func (a *Announcer) AudioEnabled() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.audioEnabled
}

// Clear returns every screen to idle. The last announced id is kept, so the
// same call is not announced again by the next poll.
func (a *Announcer) Clear() {
	log.Println("Clearing public screens")
	a.board.PublishClear(a.now())
}

// Close stops any speech in progress.
func (a *Announcer) Close() {
	a.cancel()
}

func (a *Announcer) say(text string) {
	voice := a.pickVoice()
	if err := a.speaker.Speak(a.ctx, text, voice); err != nil {
		log.Printf("Speech failed: %v", err)
	}
}

func (a *Announcer) pickVoice() *Voice {
	a.voiceMu.Lock()
	defer a.voiceMu.Unlock()
	if a.voiceLoaded {
		return a.voice
	}
	a.voiceLoaded = true

	voices, err := a.speaker.Voices(a.ctx)
	if err != nil {
		log.Printf("Could not list voices, using the engine default: %v", err)
		return nil
	}
	a.voice = PickVoice(voices)
	if a.voice != nil {
		log.Printf("Using voice %s (%s)", a.voice.Name, a.voice.Lang)
	}
	return a.voice
}
