package models

import "time"

// Message is a logged chat message: a candidate support ticket or a staff reply.
type Message struct {
	ID          int64
	ChatID      int64
	CandidateID *string
	Content     string
	FromStaff   bool
	SentAt      time.Time
}
