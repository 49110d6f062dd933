// Package state owns the current call and the current background video.
//
// A Holder is created at process start, passed to the HTTP handlers, and
// closed at shutdown. Writes are last-write-wins: the holder keeps no history
// and does not order concurrent writers.
package state

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"clinic-call-backend/internal/model"
)

// ErrInvalidCall is returned when a call is missing its name, doctor or room.
var ErrInvalidCall = errors.New("name, doctor and room are required")

// Holder stores the latest call and the latest video URL.
type Holder interface {
	// SetCall validates req and replaces the current call.
	SetCall(ctx context.Context, req model.CallRequest) (model.Call, error)
	// Call returns the current call, or nil if none was set.
	Call(ctx context.Context) (*model.Call, error)
	// SetVideo replaces the video URL. A blank URL clears it and returns nil.
	SetVideo(ctx context.Context, url string) (*string, error)
	// Video returns the current video URL, or nil if none is set.
	Video(ctx context.Context) (*string, error)
	Close() error
}

// normalizeCall trims every field and rejects empty ones.
func normalizeCall(req model.CallRequest) (model.CallRequest, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Doctor = strings.TrimSpace(req.Doctor)
	req.Room = strings.TrimSpace(req.Room)
	if req.Name == "" || req.Doctor == "" || req.Room == "" {
		return model.CallRequest{}, ErrInvalidCall
	}
	return req, nil
}

func normalizeVideo(url string) *string {
	url = strings.TrimSpace(url)
	if url == "" {
		return nil
	}
	return &url
}

// idClock hands out call identifiers: the creation time in Unix milliseconds,
// bumped when needed so every identifier is greater than the previous one.
type idClock struct {
	mu   sync.Mutex
	last int64
	now  func() time.Time
}

func newIDClock() *idClock {
	return &idClock{now: time.Now}
}

// next returns a fresh identifier greater than both the last one issued and
// floor, along with the wall-clock timestamp it was derived from.
func (c *idClock) next(floor int64) (id int64, ts int64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ts = c.now().UnixMilli()
	id = ts
	if c.last > floor {
		floor = c.last
	}
	if id <= floor {
		id = floor + 1
	}
	c.last = id
	return id, ts
}
