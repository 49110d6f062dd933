package display

import (
	"log"
	"sync"
)

// VideoPlayer controls the looping background video of a screen.
type VideoPlayer interface {
	Load(videoID string)
	Stop()
	SetVolume(volume int)
}

// LogPlayer records player commands and logs them. It stands in for a real
// embedded player on headless display hosts.
type LogPlayer struct {
	mu      sync.Mutex
	videoID string
	volume  int
}

// NewLogPlayer returns a stopped player at the given volume.
func NewLogPlayer(volume int) *LogPlayer {
	return &LogPlayer{volume: volume}
}

func (p *LogPlayer) Load(videoID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.videoID = videoID
	log.Printf("Video player: looping https://www.youtube.com/watch?v=%s", videoID)
}

func (p *LogPlayer) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.videoID = ""
	log.Println("Video player: stopped")
}

func (p *LogPlayer) SetVolume(volume int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.volume = volume
	log.Printf("Video player: volume %d", volume)
}

// State returns the loaded video id and the current volume.
func (p *LogPlayer) State() (string, int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.videoID, p.volume
}
