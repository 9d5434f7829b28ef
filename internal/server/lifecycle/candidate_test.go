package lifecycle

import (
	"testing"

	"github.com/dmitrijs2005/hronboard/internal/common"
	"github.com/dmitrijs2005/hronboard/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var allCandidateActions = []CandidateAction{ActionAuthenticate, ActionBeginReview, ActionAccept, ActionRejectCandidate}

func TestNextCandidateStatus_Edges(t *testing.T) {
	tests := []struct {
		name    string
		from    models.CandidateStatus
		action  CandidateAction
		actor   Actor
		want    models.CandidateStatus
		wantErr error
	}{
		{"authenticate", models.CandidateInvited, ActionAuthenticate, ActorCandidate, models.CandidateRegistered, nil},
		{"begin review", models.CandidateRegistered, ActionBeginReview, ActorStaff, models.CandidateUnderReview, nil},
		{"accept", models.CandidateUnderReview, ActionAccept, ActorStaff, models.CandidateAccepted, nil},
		{"reject", models.CandidateUnderReview, ActionRejectCandidate, ActorStaff, models.CandidateRejected, nil},
		{"accept needs review", models.CandidateRegistered, ActionAccept, ActorStaff, models.CandidateRegistered, common.ErrIllegalTransition},
		{"candidate cannot accept", models.CandidateUnderReview, ActionAccept, ActorCandidate, models.CandidateUnderReview, common.ErrIllegalTransition},
		{"re-authenticate", models.CandidateRegistered, ActionAuthenticate, ActorCandidate, models.CandidateRegistered, common.ErrIllegalTransition},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NextCandidateStatus(tt.from, tt.action, tt.actor)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNextCandidateStatus_TerminalRejectsEverything(t *testing.T) {
	for _, s := range []models.CandidateStatus{models.CandidateAccepted, models.CandidateRejected} {
		for _, a := range allCandidateActions {
			for _, actor := range []Actor{ActorCandidate, ActorStaff} {
				_, err := NextCandidateStatus(s, a, actor)
				require.ErrorIs(t, err, common.ErrTerminalState, "%s %s", s, a)
			}
		}
	}
}

func TestApplyCandidate_TerminalEmitsExactlyOneIntent(t *testing.T) {
	chat := int64(99)
	c := &models.Candidate{
		ID: "c1", FirstName: "Anna", LastName: "Ivanova", Email: "anna@example.com",
		ChatID: &chat, Status: models.CandidateUnderReview,
	}

	tr, err := ApplyCandidate(c, ActionAccept, ActorStaff)
	require.NoError(t, err)
	require.NotNil(t, tr.Notification)
	assert.Equal(t, models.CandidateUnderReview, tr.From)
	assert.Equal(t, models.CandidateAccepted, tr.To)
	assert.Equal(t, models.NotifyCandidateAccepted, tr.Notification.TemplateKey)
	assert.Equal(t, "anna@example.com", tr.Notification.Contact.Email)
	assert.Equal(t, &chat, tr.Notification.Contact.ChatID)
	assert.Equal(t, "Anna Ivanova", tr.Notification.Vars["name"])

	c.Status = tr.To
	_, err = ApplyCandidate(c, ActionRejectCandidate, ActorStaff)
	require.ErrorIs(t, err, common.ErrTerminalState)
}

func TestApplyCandidate_RejectIntent(t *testing.T) {
	c := &models.Candidate{ID: "c1", Email: "x@example.com", Status: models.CandidateUnderReview}

	tr, err := ApplyCandidate(c, ActionRejectCandidate, ActorStaff)
	require.NoError(t, err)
	require.NotNil(t, tr.Notification)
	assert.Equal(t, models.NotifyCandidateRejected, tr.Notification.TemplateKey)
	assert.Nil(t, tr.Notification.Contact.ChatID)
}

func TestApplyCandidate_NonTerminalHasNoIntent(t *testing.T) {
	c := &models.Candidate{ID: "c1", Status: models.CandidateInvited}

	tr, err := ApplyCandidate(c, ActionAuthenticate, ActorCandidate)
	require.NoError(t, err)
	assert.Nil(t, tr.Notification)
	assert.Equal(t, models.CandidateRegistered, tr.To)
}

func TestParseCandidateAction(t *testing.T) {
	a, err := ParseCandidateAction("begin_review")
	require.NoError(t, err)
	assert.Equal(t, ActionBeginReview, a)

	_, err = ParseCandidateAction("promote")
	assert.ErrorIs(t, err, common.ErrIllegalTransition)
}
