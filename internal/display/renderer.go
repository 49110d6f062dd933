package display

import (
	"fmt"
	"io"
	"sync"

	"clinic-call-backend/internal/board"
)

// Screen is the text shown on a public screen.
type Screen struct {
	Title    string
	Subtitle string
	Room     string
}

// IdleScreen is shown when there is no call or after a CLEAR.
var IdleScreen = Screen{
	Title:    "Aguardando chamada...",
	Subtitle: "Por favor, aguarde ser chamado no painel.",
}

// CallScreen is shown for a CALL.
func CallScreen(pc board.PublicCall) Screen {
	return Screen{
		Title:    "Paciente " + pc.Name,
		Subtitle: fmt.Sprintf("Dirija-se ao consultório do(a) %s.", pc.DoctorName),
		Room:     pc.Room,
	}
}

// Renderer draws a screen for one session.
type Renderer interface {
	Render(sessionID string, screen Screen)
}

// TerminalRenderer writes each screen as plain text lines.
type TerminalRenderer struct {
	mu sync.Mutex
	w  io.Writer
}

func NewTerminalRenderer(w io.Writer) *TerminalRenderer {
	return &TerminalRenderer{w: w}
}

func (r *TerminalRenderer) Render(sessionID string, screen Screen) {
	r.mu.Lock()
	defer r.mu.Unlock()

	short := sessionID
	if len(short) > 8 {
		short = short[:8]
	}
	fmt.Fprintf(r.w, "[%s] %s\n", short, screen.Title)
	fmt.Fprintf(r.w, "[%s] %s\n", short, screen.Subtitle)
	if screen.Room != "" {
		fmt.Fprintf(r.w, "[%s] Local: %s\n", short, screen.Room)
	}
}
