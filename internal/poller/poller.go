package poller

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"clinic-call-backend/config"
	"clinic-call-backend/internal/model"
)

const (
	currentCallPath = "/api/current-call"
	videoPath       = "/api/video"
)

// CallHandler receives every successfully fetched current call, including nil.
type CallHandler interface {
	HandleCall(call *model.Call)
}

// VideoHandler receives every successfully fetched video URL, including nil.
type VideoHandler interface {
	HandleVideo(url *string)
}

// Service polls the call server for the current call and video.
type Service struct {
	cfg    *config.DisplayConfig
	client *http.Client
	calls  CallHandler
	videos VideoHandler
}

// NewService creates a poller against cfg.ServerURL.
func NewService(cfg *config.DisplayConfig, calls CallHandler, videos VideoHandler) *Service {
	return &Service{
		cfg: cfg,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		calls:  calls,
		videos: videos,
	}
}

// Run starts both polling loops and blocks until ctx is cancelled.
func (s *Service) Run(ctx context.Context) {
	log.Printf("Starting poller against %s (call every %s, video every %s)", s.cfg.ServerURL, s.cfg.CallInterval, s.cfg.VideoInterval)

	done := make(chan struct{})
	go func() {
		defer close(done)
		s.loop(ctx, s.cfg.VideoInterval, s.PollVideoOnce)
	}()
	s.loop(ctx, s.cfg.CallInterval, s.PollCallOnce)
	<-done
	log.Println("Poller shutting down.")
}

// loop runs poll immediately and then every interval.
func (s *Service) loop(ctx context.Context, interval time.Duration, poll func(context.Context)) {
	poll(ctx)

	timer := time.NewTimer(interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			poll(ctx)
			timer.Reset(interval)
		}
	}
}

// PollCallOnce fetches the current call and hands it to the call handler.
// Failures are logged and the handler is not invoked.
func (s *Service) PollCallOnce(ctx context.Context) {
	var resp struct {
		Call *model.Call `json:"call"`
	}
	if err := s.getJSON(ctx, currentCallPath, &resp); err != nil {
		log.Printf("Error fetching current call: %v", err)
		return
	}
	s.calls.HandleCall(resp.Call)
}

// PollVideoOnce fetches the video URL and hands it to the video handler.
func (s *Service) PollVideoOnce(ctx context.Context) {
	var resp struct {
		URL *string `json:"url"`
	}
	if err := s.getJSON(ctx, videoPath, &resp); err != nil {
		log.Printf("Error fetching video: %v", err)
		return
	}
	s.videos.HandleVideo(resp.URL)
}

func (s *Service) getJSON(ctx context.Context, path string, out any) error {
	endpoint := strings.TrimRight(s.cfg.ServerURL, "/") + path
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Cache-Control", "no-store")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("received non-200 status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return nil
}
