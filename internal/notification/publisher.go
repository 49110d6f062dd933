package notification

import (
	"clinic-call-backend/internal/model"
)

// Publisher receives every accepted state change. Implementations must not
// block the caller for long; delivery is best effort.
type Publisher interface {
	PublishCall(call model.Call)
	PublishVideo(url *string)
}

// Fanout forwards each change to every publisher in order.
type Fanout []Publisher

func (f Fanout) PublishCall(call model.Call) {
	for _, p := range f {
		p.PublishCall(call)
	}
}

func (f Fanout) PublishVideo(url *string) {
	for _, p := range f {
		p.PublishVideo(url)
	}
}
