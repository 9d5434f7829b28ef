package lifecycle

import (
	"fmt"

	"github.com/dmitrijs2005/hronboard/internal/common"
	"github.com/dmitrijs2005/hronboard/internal/server/models"
)

// CandidateAction is an action applied to a candidate.
type CandidateAction string

const (
	ActionAuthenticate    CandidateAction = "authenticate"
	ActionBeginReview     CandidateAction = "begin_review"
	ActionAccept          CandidateAction = "accept"
	ActionRejectCandidate CandidateAction = "reject"
)

type candidateEdge struct {
	from   models.CandidateStatus
	action CandidateAction
}

type candidateTarget struct {
	to        models.CandidateStatus
	staffOnly bool
}

var candidateEdges = map[candidateEdge]candidateTarget{
	{models.CandidateInvited, ActionAuthenticate}:        {to: models.CandidateRegistered},
	{models.CandidateRegistered, ActionBeginReview}:      {to: models.CandidateUnderReview, staffOnly: true},
	{models.CandidateUnderReview, ActionAccept}:          {to: models.CandidateAccepted, staffOnly: true},
	{models.CandidateUnderReview, ActionRejectCandidate}: {to: models.CandidateRejected, staffOnly: true},
}

// CandidateTransition is an accepted candidate status change. Notification is
// set when the candidate must be told about the outcome.
type CandidateTransition struct {
	From         models.CandidateStatus
	To           models.CandidateStatus
	Notification *models.NotificationIntent
}

// ParseCandidateAction validates an action name coming from outside.
func ParseCandidateAction(s string) (CandidateAction, error) {
	switch a := CandidateAction(s); a {
	case ActionAuthenticate, ActionBeginReview, ActionAccept, ActionRejectCandidate:
		return a, nil
	default:
		return "", fmt.Errorf("%w: unknown candidate action %q", common.ErrIllegalTransition, s)
	}
}

// NextCandidateStatus returns the status a candidate moves to. Any action on
// a terminal candidate fails with common.ErrTerminalState.
func NextCandidateStatus(current models.CandidateStatus, action CandidateAction, actor Actor) (models.CandidateStatus, error) {
	if current.IsTerminal() {
		return current, fmt.Errorf("%w: candidate is already %s", common.ErrTerminalState, current)
	}
	target, ok := candidateEdges[candidateEdge{from: current, action: action}]
	if !ok {
		return current, fmt.Errorf("%w: cannot %s a candidate in status %s", common.ErrIllegalTransition, action, current)
	}
	if target.staffOnly && actor != ActorStaff {
		return current, fmt.Errorf("%w: %s is reserved for staff", common.ErrIllegalTransition, action)
	}
	return target.to, nil
}

// ApplyCandidate computes the transition for c and, for terminal outcomes,
// the notification intent addressed to the candidate.
func ApplyCandidate(c *models.Candidate, action CandidateAction, actor Actor) (*CandidateTransition, error) {
	next, err := NextCandidateStatus(c.Status, action, actor)
	if err != nil {
		return nil, err
	}
	tr := &CandidateTransition{From: c.Status, To: next}
	if key := statusTemplate(next); key != "" {
		tr.Notification = &models.NotificationIntent{
			Contact:     c.Contact(),
			TemplateKey: key,
			Vars: map[string]string{
				"name":   c.FullName(),
				"status": next.String(),
			},
		}
	}
	return tr, nil
}

func statusTemplate(s models.CandidateStatus) string {
	switch s {
	case models.CandidateAccepted:
		return models.NotifyCandidateAccepted
	case models.CandidateRejected:
		return models.NotifyCandidateRejected
	default:
		return ""
	}
}
