package display

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os/exec"
	"strings"
	"sync"
)

// Voice is one synthesis voice offered by the speech engine.
type Voice struct {
	ID     string // value passed to the engine to select the voice
	Name   string
	Lang   string
	Female bool
}

// Speaker turns text into audio.
type Speaker interface {
	Voices(ctx context.Context) ([]Voice, error)
	// Speak starts speaking text, interrupting anything still being spoken.
	// voice may be nil to use the engine default.
	Speak(ctx context.Context, text string, voice *Voice) error
}

var femaleHints = []string{"female", "feminina", "mulher", "maria", "ana", "camila", "helena", "carla", "fernanda"}

// PickVoice prefers a female pt-BR voice, then any pt-BR voice, then any
// Portuguese voice, then the first voice offered. It returns nil when voices
// is empty.
func PickVoice(voices []Voice) *Voice {
	if len(voices) == 0 {
		return nil
	}

	var brazilian, portuguese []int
	for i, v := range voices {
		lang := strings.ReplaceAll(strings.ToLower(v.Lang), "_", "-")
		switch {
		case strings.HasPrefix(lang, "pt-br"):
			brazilian = append(brazilian, i)
		case strings.HasPrefix(lang, "pt"):
			portuguese = append(portuguese, i)
		}
	}

	for _, i := range brazilian {
		if isFemale(voices[i]) {
			return &voices[i]
		}
	}
	if len(brazilian) > 0 {
		return &voices[brazilian[0]]
	}
	if len(portuguese) > 0 {
		return &voices[portuguese[0]]
	}
	return &voices[0]
}

func isFemale(v Voice) bool {
	if v.Female {
		return true
	}
	name := strings.ToLower(v.Name)
	for _, hint := range femaleHints {
		if strings.Contains(name, hint) {
			return true
		}
	}
	return false
}

// NopSpeaker is used when no speech engine is installed.
type NopSpeaker struct{}

func (NopSpeaker) Voices(context.Context) ([]Voice, error)     { return nil, nil }
func (NopSpeaker) Speak(context.Context, string, *Voice) error { return nil }

// ExecSpeaker drives an espeak-compatible command line engine.
type ExecSpeaker struct {
	path string
	lang string

	mu     sync.Mutex
	cancel context.CancelFunc
}

// NewSpeaker looks up command on PATH. When it is missing, speech is
// disabled and a NopSpeaker is returned.
func NewSpeaker(command, lang string) Speaker {
	path, err := exec.LookPath(command)
	if err != nil {
		log.Printf("Speech command %q not found, speech disabled: %v", command, err)
		return NopSpeaker{}
	}
	return &ExecSpeaker{path: path, lang: lang}
}

// Voices lists the Portuguese voices known to the engine.
func (s *ExecSpeaker) Voices(ctx context.Context) ([]Voice, error) {
	out, err := exec.CommandContext(ctx, s.path, "--voices=pt").Output()
	if err != nil {
		return nil, fmt.Errorf("failed to list voices: %w", err)
	}
	return parseVoices(string(out)), nil
}

func (s *ExecSpeaker) Speak(ctx context.Context, text string, voice *Voice) error {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	speakCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.mu.Unlock()

	voiceArg := s.lang
	if voice != nil && voice.ID != "" {
		voiceArg = voice.ID
	}

	cmd := exec.CommandContext(speakCtx, s.path, "-v", voiceArg, text)
	if err := cmd.Start(); err != nil {
		cancel()
		return fmt.Errorf("failed to start speech: %w", err)
	}
	go func() {
		_ = cmd.Wait()
		cancel()
	}()
	return nil
}

// parseVoices reads the table printed by `espeak-ng --voices`:
//
//	Pty Language       Age/Gender VoiceName          File          Other Languages
//	 5  pt-BR          --/F       Portuguese_(Brazil) roa/pt-BR
func parseVoices(out string) []Voice {
	var voices []Voice
	scanner := bufio.NewScanner(strings.NewReader(out))
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 4 || fields[0] == "Pty" {
			continue
		}
		voices = append(voices, Voice{
			ID:     fields[1],
			Lang:   fields[1],
			Female: strings.HasSuffix(fields[2], "F"),
			Name:   fields[3],
		})
	}
	return voices
}
