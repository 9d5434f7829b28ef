package lifecycle

import (
	"fmt"

	"github.com/dmitrijs2005/hronboard/internal/common"
	"github.com/dmitrijs2005/hronboard/internal/server/models"
)

// DocumentAction is an action applied to a candidate document.
type DocumentAction string

const (
	ActionMarkOrdered         DocumentAction = "mark_ordered"
	ActionUpload              DocumentAction = "upload"
	ActionApprove             DocumentAction = "approve"
	ActionReject              DocumentAction = "reject"
	ActionRequestResubmission DocumentAction = "request_resubmission"
)

type documentEdge struct {
	from   models.DocumentStatus
	action DocumentAction
}

type documentTarget struct {
	to        models.DocumentStatus
	staffOnly bool
}

var documentEdges = map[documentEdge]documentTarget{
	{models.DocumentNotSubmitted, ActionMarkOrdered}:     {to: models.DocumentOrdered},
	{models.DocumentNotSubmitted, ActionUpload}:          {to: models.DocumentPendingReview},
	{models.DocumentOrdered, ActionUpload}:               {to: models.DocumentPendingReview},
	{models.DocumentResubmissionRequested, ActionUpload}: {to: models.DocumentPendingReview},
	{models.DocumentPendingReview, ActionApprove}:        {to: models.DocumentVerified, staffOnly: true},
	{models.DocumentPendingReview, ActionReject}:         {to: models.DocumentResubmissionRequested, staffOnly: true},
	{models.DocumentVerified, ActionRequestResubmission}: {to: models.DocumentResubmissionRequested, staffOnly: true},
}

// ParseDocumentAction validates an action name coming from outside.
func ParseDocumentAction(s string) (DocumentAction, error) {
	switch a := DocumentAction(s); a {
	case ActionMarkOrdered, ActionUpload, ActionApprove, ActionReject, ActionRequestResubmission:
		return a, nil
	default:
		return "", fmt.Errorf("%w: unknown document action %q", common.ErrIllegalTransition, s)
	}
}

// NextDocumentStatus returns the status a document moves to when actor
// applies action in status current. Every pair not in the transition graph is
// rejected with common.ErrIllegalTransition; nothing is silently ignored.
func NextDocumentStatus(current models.DocumentStatus, action DocumentAction, actor Actor) (models.DocumentStatus, error) {
	target, ok := documentEdges[documentEdge{from: current, action: action}]
	if !ok {
		return current, fmt.Errorf("%w: cannot %s a document in status %s", common.ErrIllegalTransition, action, current)
	}
	if target.staffOnly && actor != ActorStaff {
		return current, fmt.Errorf("%w: %s is reserved for staff", common.ErrIllegalTransition, action)
	}
	return target.to, nil
}
