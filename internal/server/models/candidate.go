package models

import "time"

// CandidateStatus is the persisted lifecycle status of a candidate.
// Values match the status ids stored in hr.candidates.status_id.
type CandidateStatus int

const (
	CandidateInvited     CandidateStatus = 2
	CandidateRegistered  CandidateStatus = 3
	CandidateUnderReview CandidateStatus = 5
	CandidateAccepted    CandidateStatus = 7
	CandidateRejected    CandidateStatus = 8
)

// IsTerminal reports whether no further transition is allowed.
func (s CandidateStatus) IsTerminal() bool {
	return s == CandidateAccepted || s == CandidateRejected
}

func (s CandidateStatus) String() string {
	switch s {
	case CandidateInvited:
		return "invited"
	case CandidateRegistered:
		return "registered"
	case CandidateUnderReview:
		return "under_review"
	case CandidateAccepted:
		return "accepted"
	case CandidateRejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// Candidate is a person going through onboarding.
type Candidate struct {
	ID                  string
	FirstName           string
	LastName            string
	Email               string
	Sex                 bool
	InvitationCode      string
	ChatID              *int64
	Status              CandidateStatus
	TutorID             *string
	Notes               string
	AgreementAccepted   bool
	AgreementAcceptedAt *time.Time
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// FullName joins first and last name.
func (c *Candidate) FullName() string {
	switch {
	case c.FirstName == "":
		return c.LastName
	case c.LastName == "":
		return c.FirstName
	default:
		return c.FirstName + " " + c.LastName
	}
}

// Contact returns the addresses a notification about c can be sent to.
func (c *Candidate) Contact() Contact {
	return Contact{CandidateID: c.ID, Name: c.FullName(), Email: c.Email, ChatID: c.ChatID}
}

// NewCandidate carries the staff-entered fields of a candidate to create.
type NewCandidate struct {
	FirstName string  `json:"first_name"`
	LastName  string  `json:"last_name"`
	Email     string  `json:"email"`
	Sex       bool    `json:"sex"`
	TutorID   *string `json:"tutor_uuid,omitempty"`
}

// ArchivedCandidate is the projection kept for candidates in a terminal status.
type ArchivedCandidate struct {
	CandidateID string
	FirstName   string
	LastName    string
	Email       string
	Status      CandidateStatus
	ArchivedAt  time.Time
}
