package bot

import (
	"encoding/json"
	"fmt"
)

// State is the conversation state of one chat. Each variant carries only the
// data meaningful in that state.
type State interface {
	Name() string
}

type Unauthenticated struct{}

type AwaitingCode struct{}

type AwaitingPrivacyAccept struct {
	CandidateID string
}

type Authenticated struct {
	CandidateID string
}

type AwaitingDocumentAction struct {
	CandidateID string
	Offset      int
}

type AwaitingFileUpload struct {
	CandidateID  string
	DocumentID   string
	TemplateCode string
	TemplateName string
}

type AwaitingLocation struct {
	CandidateID string
}

type AwaitingSupportMessage struct {
	CandidateID string
}

func (Unauthenticated) Name() string        { return "unauthenticated" }
func (AwaitingCode) Name() string           { return "awaiting_code" }
func (AwaitingPrivacyAccept) Name() string  { return "awaiting_privacy_accept" }
func (Authenticated) Name() string          { return "authenticated" }
func (AwaitingDocumentAction) Name() string { return "awaiting_document_action" }
func (AwaitingFileUpload) Name() string     { return "awaiting_file_upload" }
func (AwaitingLocation) Name() string       { return "awaiting_location" }
func (AwaitingSupportMessage) Name() string { return "awaiting_support_message" }

// candidateOf returns the candidate a state belongs to and whether the chat
// has completed authentication and privacy acceptance.
func candidateOf(s State) (string, bool) {
	switch st := s.(type) {
	case Authenticated:
		return st.CandidateID, true
	case AwaitingDocumentAction:
		return st.CandidateID, true
	case AwaitingFileUpload:
		return st.CandidateID, true
	case AwaitingLocation:
		return st.CandidateID, true
	case AwaitingSupportMessage:
		return st.CandidateID, true
	default:
		return "", false
	}
}

// snapshot is the serialized form of a State.
type snapshot struct {
	State        string `json:"state"`
	CandidateID  string `json:"candidate_id,omitempty"`
	DocumentID   string `json:"document_id,omitempty"`
	TemplateCode string `json:"template_code,omitempty"`
	TemplateName string `json:"template_name,omitempty"`
	Offset       int    `json:"offset,omitempty"`
}

func encodeState(s State) ([]byte, error) {
	snap := snapshot{State: s.Name()}
	switch st := s.(type) {
	case AwaitingPrivacyAccept:
		snap.CandidateID = st.CandidateID
	case Authenticated:
		snap.CandidateID = st.CandidateID
	case AwaitingDocumentAction:
		snap.CandidateID, snap.Offset = st.CandidateID, st.Offset
	case AwaitingFileUpload:
		snap.CandidateID, snap.DocumentID = st.CandidateID, st.DocumentID
		snap.TemplateCode, snap.TemplateName = st.TemplateCode, st.TemplateName
	case AwaitingLocation:
		snap.CandidateID = st.CandidateID
	case AwaitingSupportMessage:
		snap.CandidateID = st.CandidateID
	}
	return json.Marshal(snap)
}

func decodeState(data []byte) (State, error) {
	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	switch snap.State {
	case Unauthenticated{}.Name():
		return Unauthenticated{}, nil
	case AwaitingCode{}.Name():
		return AwaitingCode{}, nil
	case AwaitingPrivacyAccept{}.Name():
		return AwaitingPrivacyAccept{CandidateID: snap.CandidateID}, nil
	case Authenticated{}.Name():
		return Authenticated{CandidateID: snap.CandidateID}, nil
	case AwaitingDocumentAction{}.Name():
		return AwaitingDocumentAction{CandidateID: snap.CandidateID, Offset: snap.Offset}, nil
	case AwaitingFileUpload{}.Name():
		return AwaitingFileUpload{
			CandidateID:  snap.CandidateID,
			DocumentID:   snap.DocumentID,
			TemplateCode: snap.TemplateCode,
			TemplateName: snap.TemplateName,
		}, nil
	case AwaitingLocation{}.Name():
		return AwaitingLocation{CandidateID: snap.CandidateID}, nil
	case AwaitingSupportMessage{}.Name():
		return AwaitingSupportMessage{CandidateID: snap.CandidateID}, nil
	default:
		return nil, fmt.Errorf("decode session: unknown state %q", snap.State)
	}
}
