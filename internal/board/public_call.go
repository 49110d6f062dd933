package board

import (
	"encoding/json"
	"fmt"
	"time"

	"clinic-call-backend/internal/model"
)

// PublicCallType tags the PublicCall union.
type PublicCallType string

const (
	PublicCallCall  PublicCallType = "CALL"
	PublicCallClear PublicCallType = "CLEAR"
)

// PublicCall is the value stored under KeyPublicCall: either a CALL carrying
// the patient and professional, or a CLEAR that returns screens to idle.
type PublicCall struct {
	Type       PublicCallType `json:"type"`
	Name       string         `json:"name,omitempty"`
	DoctorName string         `json:"doctorName,omitempty"`
	Room       string         `json:"room,omitempty"`
	ID         int64          `json:"id,omitempty"`
	Timestamp  int64          `json:"timestamp"`
}

// ParsePublicCall decodes and checks a stored PublicCall.
func ParsePublicCall(raw string) (PublicCall, error) {
	var pc PublicCall
	if err := json.Unmarshal([]byte(raw), &pc); err != nil {
		return PublicCall{}, fmt.Errorf("malformed public call: %w", err)
	}
	switch pc.Type {
	case PublicCallCall:
		if pc.Name == "" {
			return PublicCall{}, fmt.Errorf("public call without a name")
		}
	case PublicCallClear:
	default:
		return PublicCall{}, fmt.Errorf("unknown public call type %q", pc.Type)
	}
	return pc, nil
}

// PublishCall stores a CALL for c.
func (b *Board) PublishCall(c model.Call) {
	b.setPublicCall(PublicCall{
		Type:       PublicCallCall,
		Name:       c.Name,
		DoctorName: c.Doctor,
		Room:       c.Room,
		ID:         c.ID,
		Timestamp:  c.Timestamp,
	})
}

// PublishClear stores a CLEAR stamped with at.
func (b *Board) PublishClear(at time.Time) {
	b.setPublicCall(PublicCall{Type: PublicCallClear, Timestamp: at.UnixMilli()})
}

// PublishVideo stores the YouTube id to loop. "" means no video.
func (b *Board) PublishVideo(videoID string) {
	b.Set(KeyVideoID, videoID)
}

func (b *Board) setPublicCall(pc PublicCall) {
	raw, err := json.Marshal(pc)
	if err != nil {
		return
	}
	b.Set(KeyPublicCall, string(raw))
}
