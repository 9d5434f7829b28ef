package models

import "time"

// DocumentStatus is the persisted lifecycle status of a candidate document.
type DocumentStatus int

const (
	DocumentNotSubmitted          DocumentStatus = 1
	DocumentOrdered               DocumentStatus = 2
	DocumentPendingReview         DocumentStatus = 3
	DocumentVerified              DocumentStatus = 4
	DocumentResubmissionRequested DocumentStatus = 5
)

func (s DocumentStatus) String() string {
	switch s {
	case DocumentNotSubmitted:
		return "not_submitted"
	case DocumentOrdered:
		return "ordered"
	case DocumentPendingReview:
		return "pending_review"
	case DocumentVerified:
		return "verified"
	case DocumentResubmissionRequested:
		return "resubmission_requested"
	default:
		return "unknown"
	}
}

// AcceptsUpload reports whether a candidate may upload a file in this status.
func (s DocumentStatus) AcceptsUpload() bool {
	return s == DocumentNotSubmitted || s == DocumentOrdered || s == DocumentResubmissionRequested
}

// HasFile reports whether a stored file is expected for this status.
func (s DocumentStatus) HasFile() bool {
	return s == DocumentPendingReview || s == DocumentVerified
}

// Template codes are the stable identities of seeded templates.
const (
	TemplatePassport      = "passport"
	TemplateINN           = "inn"
	TemplateSNILS         = "snils"
	TemplateBankStatement = "bank_statement"
)

// DocumentTemplate is reference data describing one required document.
type DocumentTemplate struct {
	ID             int
	Code           string
	Name           string
	Description    string
	Instructions   string
	IsRequired     bool
	ProcessingDays int
	OrderPosition  int
}

// StoredObject describes a blob already placed in the object store.
type StoredObject struct {
	Bucket      string
	Key         string
	Size        int64
	ContentType string
}

// CandidateDocument is one candidate's instance of one template. Template
// fields are denormalized from the join for display.
type CandidateDocument struct {
	ID           string
	CandidateID  string
	TemplateID   int
	TemplateCode string
	TemplateName string
	Instructions string
	Status       DocumentStatus
	Object       *StoredObject
	SubmittedAt  *time.Time
	Notes        string
	UpdatedAt    time.Time
}

// IsBankStatement reports whether uploads for d go through tabular ingestion.
func (d *CandidateDocument) IsBankStatement() bool {
	return d.TemplateCode == TemplateBankStatement
}

// DocumentHistory is one append-only audit row per status change.
type DocumentHistory struct {
	ID         int64
	DocumentID string
	Status     DocumentStatus
	CreatedAt  time.Time
}
