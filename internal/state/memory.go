package state

import (
	"context"
	"sync"

	"clinic-call-backend/internal/model"
)

// MemoryHolder keeps state in process memory. State is lost on restart.
type MemoryHolder struct {
	mu    sync.RWMutex
	call  *model.Call
	video *string
	clock *idClock
}

// NewMemoryHolder creates an empty in-memory holder.
func NewMemoryHolder() *MemoryHolder {
	return &MemoryHolder{clock: newIDClock()}
}

func (h *MemoryHolder) SetCall(_ context.Context, req model.CallRequest) (model.Call, error) {
	req, err := normalizeCall(req)
	if err != nil {
		return model.Call{}, err
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	id, ts := h.clock.next(0)
	call := model.Call{
		ID:        id,
		Name:      req.Name,
		Doctor:    req.Doctor,
		Room:      req.Room,
		Timestamp: ts,
	}

	h.call = &call
	return call, nil
}

func (h *MemoryHolder) Call(context.Context) (*model.Call, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.call == nil {
		return nil, nil
	}
	c := *h.call
	return &c, nil
}

func (h *MemoryHolder) SetVideo(_ context.Context, url string) (*string, error) {
	v := normalizeVideo(url)
	h.mu.Lock()
	h.video = v
	h.mu.Unlock()
	return copyString(v), nil
}

func (h *MemoryHolder) Video(context.Context) (*string, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return copyString(h.video), nil
}

func (h *MemoryHolder) Close() error { return nil }

func copyString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
