package models

// Contact identifies where a notification about a candidate can be delivered.
type Contact struct {
	CandidateID string
	Name        string
	Email       string
	ChatID      *int64
}

// Notification template keys.
const (
	NotifyInvitation        = "invitation"
	NotifyCandidateAccepted = "candidate_accepted"
	NotifyCandidateRejected = "candidate_rejected"
	NotifySupportTicket     = "support_ticket"
)

// NotificationIntent is a decision that a notification should be sent.
// Delivery is left to a notifier and never affects the state change that
// produced the intent.
type NotificationIntent struct {
	Contact     Contact
	TemplateKey string
	Vars        map[string]string
}
