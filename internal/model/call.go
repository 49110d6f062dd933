package model

import "strings"

// Call is a single "please proceed" announcement for one patient.
// ID and Timestamp are Unix milliseconds; ID is strictly increasing per holder.
type Call struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Doctor    string `json:"doctor"`
	Room      string `json:"room"`
	Timestamp int64  `json:"timestamp"`
}

// CallRequest carries the staff-submitted fields of a call.
type CallRequest struct {
	Name   string `json:"name"`
	Doctor string `json:"doctor"`
	Room   string `json:"room"`
}

// Phrase renders the announcement for c from a template using the {name},
// {doctor} and {room} placeholders.
func (c Call) Phrase(template string) string {
	return strings.NewReplacer(
		"{name}", c.Name,
		"{doctor}", c.Doctor,
		"{room}", c.Room,
	).Replace(template)
}
