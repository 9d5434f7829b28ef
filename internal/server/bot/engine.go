package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/hronboard/internal/common"
	"github.com/dmitrijs2005/hronboard/internal/logging"
	"github.com/dmitrijs2005/hronboard/internal/server/ingest"
	"github.com/dmitrijs2005/hronboard/internal/server/models"
	"github.com/dmitrijs2005/hronboard/internal/server/services"
)

type Candidates interface {
	Authenticate(ctx context.Context, code string, chatID int64) (*models.Candidate, error)
	ByChat(ctx context.Context, chatID int64) (*models.Candidate, error)
	Get(ctx context.Context, id string) (*models.Candidate, error)
	AcceptPrivacy(ctx context.Context, candidateID string) (*models.Candidate, error)
	SaveLocation(ctx context.Context, loc *models.Location) error
	Profile(ctx context.Context, candidateID string) (*services.Profile, error)
}

type Documents interface {
	List(ctx context.Context, candidateID string) ([]*models.CandidateDocument, error)
	MarkOrdered(ctx context.Context, candidateID, documentID string) (*models.CandidateDocument, error)
	Upload(ctx context.Context, candidateID, documentID string, file services.FileUpload) (*models.CandidateDocument, error)
	Download(ctx context.Context, candidateID, documentID string) ([]byte, string, error)
}

type BankStatements interface {
	Ingest(ctx context.Context, candidateID, documentID string, file services.FileUpload) (*services.IngestResult, error)
}

type Support interface {
	SubmitSupport(ctx context.Context, c *models.Candidate, chatID int64, text string) (*models.Message, error)
}

// Observer is told about every handled event.
type Observer interface {
	ObserveEvent(kind, state string, err error)
}

// Engine runs one step of a chat's conversation per event. It must not be
// called concurrently for the same chat; Dispatcher guarantees that.
type Engine struct {
	candidates Candidates
	documents  Documents
	statements BankStatements
	support    Support
	sessions   SessionStore
	transport  Transport
	observer   Observer
	logger     logging.Logger
}

func NewEngine(candidates Candidates, documents Documents, statements BankStatements, support Support,
	sessions SessionStore, transport Transport, logger logging.Logger,
) *Engine {
	return &Engine{
		candidates: candidates,
		documents:  documents,
		statements: statements,
		support:    support,
		sessions:   sessions,
		transport:  transport,
		logger:     logger.With("module", "bot"),
	}
}

// SetObserver installs an observer, e.g. a metrics collector.
func (e *Engine) SetObserver(o Observer) {
	e.observer = o
}

// Handle processes one event. The step's replies are buffered: the new state
// is saved first and only then are the replies sent, so a failed send never
// leaves the session behind the store. Send failures are logged and dropped.
// When a store call of the step fails the chat stays where it was and gets an
// error message instead.
func (e *Engine) Handle(ctx context.Context, ev Event) error {
	state, err := e.load(ctx, ev.ChatID)
	if err != nil {
		e.observe(ev, "unknown", err)
		e.logger.Error(ctx, "session load failed", "chat_id", ev.ChatID, "error", err)
		out := &outbox{}
		out.say(msgTryAgain, nil)
		e.flush(ctx, ev.ChatID, out)
		return nil
	}

	out := &outbox{}
	next, err := e.step(ctx, state, ev, out)
	e.observe(ev, state.Name(), err)
	if err != nil {
		e.flush(ctx, ev.ChatID, e.fail(ctx, ev.ChatID, state, err))
		return nil
	}

	var saveErr error
	if next != nil && next != state {
		e.logger.Debug(ctx, "session transition", "chat_id", ev.ChatID, "from", state.Name(), "to", next.Name())
		if saveErr = e.sessions.Save(ctx, ev.ChatID, next); saveErr != nil {
			e.logger.Error(ctx, "session save failed", "chat_id", ev.ChatID, "error", saveErr)
		}
	}
	e.flush(ctx, ev.ChatID, out)
	return saveErr
}

func (e *Engine) observe(ev Event, state string, err error) {
	if e.observer != nil {
		e.observer.ObserveEvent(string(ev.Kind), state, err)
	}
}

// load returns the saved session, or rebuilds it from the candidate bound to
// the chat.
func (e *Engine) load(ctx context.Context, chatID int64) (State, error) {
	s, ok, err := e.sessions.Load(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if ok {
		return s, nil
	}

	c, err := e.candidates.ByChat(ctx, chatID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return Unauthenticated{}, nil
		}
		return nil, err
	}
	if !c.AgreementAccepted {
		return AwaitingPrivacyAccept{CandidateID: c.ID}, nil
	}
	return Authenticated{CandidateID: c.ID}, nil
}

// fail tells the user why the step was rejected.
func (e *Engine) fail(ctx context.Context, chatID int64, state State, err error) *outbox {
	var mce *ingest.MissingColumnsError
	var text string
	switch {
	case errors.As(err, &mce):
		text = missingColumnsText(mce.Columns)
	case errors.Is(err, common.ErrMalformedTable):
		text = msgMalformed
	case errors.Is(err, common.ErrAlreadyBound):
		text = msgCodeBound
	case errors.Is(err, common.ErrNotFound):
		if _, ok := state.(AwaitingCode); ok {
			text = msgCodeNotFound
		} else {
			text = msgNotFound
		}
	case errors.Is(err, common.ErrTerminalState):
		text = msgTerminal
	case errors.Is(err, common.ErrIllegalTransition):
		text = msgIllegal
	default:
		e.logger.Error(ctx, "conversation step failed", "chat_id", chatID, "state", state.Name(), "error", err)
		text = msgTryAgain
	}
	out := &outbox{}
	out.say(text, nil)
	return out
}

// flush sends the buffered replies in order. The first failed send drops the
// rest, since later replies make no sense without the earlier ones.
func (e *Engine) flush(ctx context.Context, chatID int64, out *outbox) {
	for _, m := range out.items {
		var err error
		if m.file != nil {
			err = e.transport.SendFile(ctx, chatID, m.file, m.filename, m.filename)
		} else {
			err = e.transport.SendMessage(ctx, chatID, m.text, m.kb)
		}
		if err != nil {
			err = fmt.Errorf("%w: %v", common.ErrTransport, err)
			e.logger.Error(ctx, "send failed", "chat_id", chatID, "error", err)
			return
		}
	}
}

// step returns the next state, or the current one when nothing changes.
// Replies go to out and are sent by Handle.
func (e *Engine) step(ctx context.Context, state State, ev Event, out *outbox) (State, error) {
	if ev.Kind == KindCommand && ev.Command == cmdStart {
		return e.start(state, out), nil
	}

	if candidateID, ok := candidateOf(state); ok {
		if next, handled, err := e.menuAction(ctx, candidateID, ev, out); handled {
			return next, err
		}
	}

	switch st := state.(type) {
	case Unauthenticated:
		out.say(msgAuthFirst, nil)
		return st, nil
	case AwaitingCode:
		return e.onCode(ctx, st, ev, out)
	case AwaitingPrivacyAccept:
		return e.onPrivacy(ctx, st, ev, out)
	case AwaitingDocumentAction:
		return e.onDocumentAction(ctx, st, ev, out)
	case AwaitingFileUpload:
		return e.onFileUpload(ctx, st, ev, out)
	case AwaitingLocation:
		return e.onLocation(ctx, st, ev, out)
	case AwaitingSupportMessage:
		return e.onSupport(ctx, st, ev, out)
	default:
		out.say(msgUseMenu, menuKeyboard())
		return state, nil
	}
}

func (e *Engine) start(state State, out *outbox) State {
	if candidateID, ok := candidateOf(state); ok {
		out.say(msgMenu, menuKeyboard())
		return Authenticated{CandidateID: candidateID}
	}
	if st, ok := state.(AwaitingPrivacyAccept); ok {
		out.say(msgPrivacy, privacyKeyboard())
		return st
	}
	out.say(msgAskCode, nil)
	return AwaitingCode{}
}

// menuAction handles the menu entries and the back transition, which are
// valid in every authenticated state.
func (e *Engine) menuAction(ctx context.Context, candidateID string, ev Event, out *outbox) (State, bool, error) {
	action := ""
	switch {
	case ev.Kind == KindCommand:
		action = ev.Command
	case ev.Kind == KindCallback && ev.Data == cbBack:
		action = cmdMenu
	case ev.Kind == KindText && ev.Text == btnBack:
		// reply keyboards send the button label as text
		action = cmdMenu
	case ev.Kind == KindCallback && strings.HasPrefix(ev.Data, "menu:"):
		action = strings.TrimPrefix(ev.Data, "menu:")
	}

	switch action {
	case cmdMenu:
		out.say(msgMenu, menuKeyboard())
		return Authenticated{CandidateID: candidateID}, true, nil
	case cmdDocs:
		next, err := e.showDocuments(ctx, candidateID, 0, out)
		return next, true, err
	case cmdLocation:
		out.say(msgAskLocation, &Keyboard{RequestLocation: btnShareLoc, Rows: backKeyboard().Rows})
		return AwaitingLocation{CandidateID: candidateID}, true, nil
	case cmdProfile:
		p, err := e.candidates.Profile(ctx, candidateID)
		if err != nil {
			return nil, true, err
		}
		out.say(profileText(p), menuKeyboard())
		return Authenticated{CandidateID: candidateID}, true, nil
	case cmdSupport:
		out.say(msgAskSupport, backKeyboard())
		return AwaitingSupportMessage{CandidateID: candidateID}, true, nil
	default:
		return nil, false, nil
	}
}

func (e *Engine) showDocuments(ctx context.Context, candidateID string, offset int, out *outbox) (State, error) {
	docs, err := e.documents.List(ctx, candidateID)
	if err != nil {
		return nil, err
	}
	offset = clampOffset(offset, len(docs))
	out.say(documentPage(docs, offset))
	return AwaitingDocumentAction{CandidateID: candidateID, Offset: offset}, nil
}

func (e *Engine) onCode(ctx context.Context, st AwaitingCode, ev Event, out *outbox) (State, error) {
	if ev.Kind != KindText {
		out.say(msgAuthFirst, nil)
		return st, nil
	}

	c, err := e.candidates.Authenticate(ctx, ev.Text, ev.ChatID)
	if err != nil {
		return nil, err
	}
	if c.AgreementAccepted {
		out.say(msgMenu, menuKeyboard())
		return Authenticated{CandidateID: c.ID}, nil
	}
	out.say(msgPrivacy, privacyKeyboard())
	return AwaitingPrivacyAccept{CandidateID: c.ID}, nil
}

func (e *Engine) onPrivacy(ctx context.Context, st AwaitingPrivacyAccept, ev Event, out *outbox) (State, error) {
	if ev.Kind != KindCallback {
		out.say(msgUseMenu, privacyKeyboard())
		return st, nil
	}

	switch ev.Data {
	case cbPrivacyAccept:
		if _, err := e.candidates.AcceptPrivacy(ctx, st.CandidateID); err != nil {
			return nil, err
		}
		out.say(msgPrivacyAccepted+"\n\n"+msgMenu, menuKeyboard())
		return Authenticated{CandidateID: st.CandidateID}, nil
	case cbPrivacyDecline:
		out.say(msgPrivacyDeclined, nil)
		return Unauthenticated{}, nil
	default:
		out.say(msgUseMenu, privacyKeyboard())
		return st, nil
	}
}

// findDocument returns the candidate's document with id.
func (e *Engine) findDocument(ctx context.Context, candidateID, id string) (*models.CandidateDocument, error) {
	docs, err := e.documents.List(ctx, candidateID)
	if err != nil {
		return nil, err
	}
	for _, d := range docs {
		if d.ID == id {
			return d, nil
		}
	}
	return nil, fmt.Errorf("document %s: %w", id, common.ErrNotFound)
}

func (e *Engine) onDocumentAction(ctx context.Context, st AwaitingDocumentAction, ev Event, out *outbox) (State, error) {
	if ev.Kind != KindCallback {
		out.say(msgUseMenu, nil)
		return st, nil
	}

	switch {
	case strings.HasPrefix(ev.Data, cbPagePrefix):
		offset, err := strconv.Atoi(strings.TrimPrefix(ev.Data, cbPagePrefix))
		if err != nil {
			out.say(msgUseMenu, nil)
			return st, nil
		}
		return e.showDocuments(ctx, st.CandidateID, offset, out)

	case strings.HasPrefix(ev.Data, cbDocPrefix):
		d, err := e.findDocument(ctx, st.CandidateID, strings.TrimPrefix(ev.Data, cbDocPrefix))
		if err != nil {
			return nil, err
		}
		if d.Status.AcceptsUpload() {
			out.say(uploadPrompt(d))
			return AwaitingFileUpload{
				CandidateID:  st.CandidateID,
				DocumentID:   d.ID,
				TemplateCode: d.TemplateCode,
				TemplateName: d.TemplateName,
			}, nil
		}
		out.say(downloadOffer(d))
		return st, nil

	case strings.HasPrefix(ev.Data, cbOrderPrefix):
		return e.markOrdered(ctx, st.CandidateID, strings.TrimPrefix(ev.Data, cbOrderPrefix), st.Offset, out)

	case strings.HasPrefix(ev.Data, cbDownloadPrefix):
		data, filename, err := e.documents.Download(ctx, st.CandidateID, strings.TrimPrefix(ev.Data, cbDownloadPrefix))
		if err != nil {
			return nil, err
		}
		out.attach(data, filename)
		return st, nil

	default:
		out.say(msgUseMenu, nil)
		return st, nil
	}
}

// markOrdered records the order and shows the list again. The order is
// committed before the list is read, so a failed read still leaves the chat
// consistent with the store.
func (e *Engine) markOrdered(ctx context.Context, candidateID, documentID string, offset int, out *outbox) (State, error) {
	d, err := e.documents.MarkOrdered(ctx, candidateID, documentID)
	if err != nil {
		return nil, err
	}
	out.say(fmt.Sprintf(msgOrdered, d.TemplateName), nil)
	next, err := e.showDocuments(ctx, candidateID, offset, out)
	if err != nil {
		e.logger.Error(ctx, "document list failed", "candidate_id", candidateID, "error", err)
		out.say(msgMenu, menuKeyboard())
		return Authenticated{CandidateID: candidateID}, nil
	}
	return next, nil
}

func (e *Engine) onFileUpload(ctx context.Context, st AwaitingFileUpload, ev Event, out *outbox) (State, error) {
	switch {
	case ev.Kind == KindCallback && ev.Data == cbOrderPrefix+st.DocumentID:
		return e.markOrdered(ctx, st.CandidateID, st.DocumentID, 0, out)
	case ev.Kind != KindFile || ev.File == nil:
		out.say(msgSendFile, backKeyboard())
		return st, nil
	}

	data, err := ev.File.Fetch(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: fetch file: %v", common.ErrTransport, err)
	}
	upload := services.FileUpload{Name: ev.File.Name, ContentType: ev.File.ContentType, Data: data}

	var text string
	if st.TemplateCode == models.TemplateBankStatement {
		res, err := e.statements.Ingest(ctx, st.CandidateID, st.DocumentID, upload)
		if err != nil {
			return nil, err
		}
		text = res.Summary
	} else {
		d, err := e.documents.Upload(ctx, st.CandidateID, st.DocumentID, upload)
		if err != nil {
			return nil, err
		}
		text = fmt.Sprintf(msgUploaded, d.TemplateName)
	}
	out.say(text, menuKeyboard())
	return Authenticated{CandidateID: st.CandidateID}, nil
}

func (e *Engine) onLocation(ctx context.Context, st AwaitingLocation, ev Event, out *outbox) (State, error) {
	if ev.Kind != KindLocation || ev.Location == nil {
		out.say(msgAskLocation, nil)
		return st, nil
	}

	loc := &models.Location{
		CandidateID: st.CandidateID,
		Latitude:    ev.Location.Latitude,
		Longitude:   ev.Location.Longitude,
		Accuracy:    ev.Location.Accuracy,
	}
	if err := e.candidates.SaveLocation(ctx, loc); err != nil {
		return nil, err
	}
	out.say(msgLocationSaved, menuKeyboard())
	return Authenticated{CandidateID: st.CandidateID}, nil
}

func (e *Engine) onSupport(ctx context.Context, st AwaitingSupportMessage, ev Event, out *outbox) (State, error) {
	if ev.Kind != KindText {
		out.say(msgAskSupport, backKeyboard())
		return st, nil
	}

	c, err := e.candidates.Get(ctx, st.CandidateID)
	if err != nil {
		return nil, err
	}
	if _, err := e.support.SubmitSupport(ctx, c, ev.ChatID, ev.Text); err != nil {
		return nil, err
	}
	out.say(msgSupportSent, menuKeyboard())
	return Authenticated{CandidateID: st.CandidateID}, nil
}

// outbox collects the replies of one step.
type outbox struct {
	items []outgoing
}

type outgoing struct {
	text     string
	kb       *Keyboard
	file     []byte
	filename string
}

func (o *outbox) say(text string, kb *Keyboard) {
	o.items = append(o.items, outgoing{text: text, kb: kb})
}

func (o *outbox) attach(data []byte, filename string) {
	if data == nil {
		data = []byte{}
	}
	o.items = append(o.items, outgoing{file: data, filename: filename})
}
