package transcript

import "time"

// Entry is one transcript line. Entries are append-only per session and never
// mutated; ordering is arrival order.
type Entry struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	Role      string    `json:"role"` // user | assistant
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}
