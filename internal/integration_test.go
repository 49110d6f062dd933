package internal

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clinic-call-backend/config"
	"clinic-call-backend/internal/api"
	"clinic-call-backend/internal/board"
	"clinic-call-backend/internal/db"
	"clinic-call-backend/internal/display"
	"clinic-call-backend/internal/model"
	"clinic-call-backend/internal/notification"
	"clinic-call-backend/internal/poller"
	"clinic-call-backend/internal/state"
	"clinic-call-backend/internal/store"
)

type spokenLog struct {
	mu    sync.Mutex
	texts []string
}

func (s *spokenLog) Voices(context.Context) ([]display.Voice, error) {
	return []display.Voice{{ID: "pt-BR", Name: "Portuguese_(Brazil)", Lang: "pt-BR"}}, nil
}

func (s *spokenLog) Speak(_ context.Context, text string, _ *display.Voice) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.texts = append(s.texts, text)
	return nil
}

func (s *spokenLog) Texts() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.texts...)
}

type nullRenderer struct{}

func (nullRenderer) Render(string, display.Screen) {}

// TestCallLifecycle runs a staff call from the queue through the HTTP server,
// the display poller, the announcer and a screen session.
func TestCallLifecycle(t *testing.T) {
	gin.SetMode(gin.TestMode)

	// --- Server side ---
	cfg := config.Default()
	cfg.Server.RateLimitPerSec = 1000
	cfg.Server.RateLimitBurst = 1000
	cfg.Database.DSN = "file:call_lifecycle?mode=memory&cache=shared"

	gormDB, err := db.Init(&cfg.Database)
	require.NoError(t, err)
	defer db.Close(gormDB)

	holder := state.NewMemoryHolder()
	defer holder.Close()

	handler := api.NewHandler(holder, store.NewGormStore(gormDB), notification.Fanout{}, nil)
	server := httptest.NewServer(api.NewRouter(&cfg.Server, handler))
	defer server.Close()

	post := func(path, body string) map[string]any {
		t.Helper()
		resp, err := http.Post(server.URL+path, "application/json", bytes.NewBufferString(body))
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Less(t, resp.StatusCode, 300, "POST %s", path)
		var out map[string]any
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
		return out
	}

	// --- Display side ---
	cfg.Display.ServerURL = server.URL
	cfg.Display.DuckDuration = time.Hour

	b := board.New()
	speaker := &spokenLog{}
	announcer := display.NewAnnouncer(b, speaker, cfg.Display.PhraseTemplate)
	defer announcer.Close()

	player := display.NewLogPlayer(cfg.Display.FullVolume)
	session := display.NewSession(b, nullRenderer{}, player, &cfg.Display)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go session.Run(ctx)

	svc := poller.NewService(&cfg.Display, announcer, announcer)
	announcer.EnableAudio()

	// 1. Nothing has been called yet.
	svc.PollCallOnce(ctx)
	assert.Eventually(t, func() bool { return session.Screen() == display.IdleScreen }, time.Second, 10*time.Millisecond)

	// 2. A background video is configured and picked up.
	post("/api/video", `{"url":"https://youtu.be/dQw4w9WgXcQ"}`)
	svc.PollVideoOnce(ctx)
	assert.Eventually(t, func() bool { id, _ := player.State(); return id == "dQw4w9WgXcQ" }, time.Second, 10*time.Millisecond)

	// 3. Staff add a patient and call them.
	added := post("/api/queue", `{"name":"Maria"}`)
	patientID := int64(added["patient"].(map[string]any)["id"].(float64))
	post(fmt.Sprintf("/api/queue/%d/call", patientID), `{"title":"Dr.","professional":"Souza","room":"Consultório 2"}`)

	// 4. Two polls of the same call announce it once.
	svc.PollCallOnce(ctx)
	svc.PollCallOnce(ctx)

	assert.Equal(t, []string{display.ActivationPhrase, "Paciente Maria, dirija-se ao Consultório 2."}, speaker.Texts())
	assert.Eventually(t, func() bool { return session.Screen().Title == "Paciente Maria" }, time.Second, 10*time.Millisecond)
	assert.Equal(t, "Dirija-se ao consultório do(a) Dr. Souza.", session.Screen().Subtitle)
	_, vol := player.State()
	assert.Equal(t, cfg.Display.DuckVolume, vol)

	patient, err := store.NewGormStore(gormDB).GetPatient(ctx, patientID)
	require.NoError(t, err)
	assert.Equal(t, model.PatientCalled, patient.Status)
	assert.NotNil(t, patient.CalledAt)

	// 5. The operator clears the screens; volume comes back at once.
	announcer.Clear()
	assert.Eventually(t, func() bool {
		_, vol := player.State()
		return session.Screen() == display.IdleScreen && vol == cfg.Display.FullVolume
	}, time.Second, 10*time.Millisecond)

	// 6. A direct call with a new id is announced again.
	post("/api/call", `{"name":"João","doctor":"Dra. Lima","room":"Sala 3"}`)
	svc.PollCallOnce(ctx)
	assert.Len(t, speaker.Texts(), 3)
	assert.Eventually(t, func() bool { return session.Screen().Title == "Paciente João" }, time.Second, 10*time.Millisecond)
}
