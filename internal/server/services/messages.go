package services

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"

	"github.com/dmitrijs2005/hronboard/internal/common"
	"github.com/dmitrijs2005/hronboard/internal/logging"
	sc "github.com/dmitrijs2005/hronboard/internal/server/config"
	"github.com/dmitrijs2005/hronboard/internal/server/models"
	"github.com/dmitrijs2005/hronboard/internal/server/notify"
	"github.com/dmitrijs2005/hronboard/internal/server/repositories/repomanager"
)

// DefaultMessageLimit bounds a chat log listing.
const DefaultMessageLimit = 100

// MessageService logs the chat between candidates and staff.
type MessageService struct {
	db           *sql.DB
	repomanager  repomanager.RepositoryManager
	sender       notify.ChatSender
	notifier     notify.Notifier
	supportEmail string
	logger       logging.Logger
}

func NewMessageService(db *sql.DB, repomanager repomanager.RepositoryManager, sender notify.ChatSender,
	notifier notify.Notifier, config *sc.Config, logger logging.Logger,
) *MessageService {
	return &MessageService{
		db:           db,
		repomanager:  repomanager,
		sender:       sender,
		notifier:     notifier,
		supportEmail: config.SupportEmail,
		logger:       logger.With("module", "messages"),
	}
}

// SubmitSupport stores a candidate's support request and raises a support
// ticket notification for staff.
func (s *MessageService) SubmitSupport(ctx context.Context, c *models.Candidate, chatID int64, text string) (*models.Message, error) {
	text = sanitizeText(text)
	if text == "" {
		return nil, fmt.Errorf("%w: empty support message", common.ErrIllegalTransition)
	}

	m := &models.Message{ChatID: chatID, CandidateID: &c.ID, Content: text}
	if err := s.repomanager.Messages(s.db).Create(ctx, m); err != nil {
		return nil, err
	}

	err := s.notifier.Notify(ctx,
		models.Contact{CandidateID: c.ID, Name: c.FullName(), Email: s.supportEmail},
		models.NotifySupportTicket,
		map[string]string{"name": c.FullName(), "chat_id": strconv.FormatInt(chatID, 10), "text": text},
	)
	if err != nil {
		s.logger.Error(ctx, "support ticket notification failed", "candidate_id", c.ID, "error", err)
	}
	return m, nil
}

// Reply sends a staff message to the candidate's chat and logs it. The
// message is logged only after the chat accepted it.
func (s *MessageService) Reply(ctx context.Context, candidateID, text string) (*models.Message, error) {
	text = sanitizeText(text)
	if text == "" {
		return nil, fmt.Errorf("%w: empty reply", common.ErrIllegalTransition)
	}

	c, err := s.repomanager.Candidates(s.db).GetByID(ctx, candidateID)
	if err != nil {
		return nil, err
	}
	if c.ChatID == nil {
		return nil, fmt.Errorf("chat of candidate %s: %w", candidateID, common.ErrNotFound)
	}

	if err := s.sender.SendText(ctx, *c.ChatID, text); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrTransport, err)
	}

	m := &models.Message{ChatID: *c.ChatID, CandidateID: &c.ID, Content: text, FromStaff: true}
	if err := s.repomanager.Messages(s.db).Create(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

func (s *MessageService) List(ctx context.Context, candidateID string, limit int) ([]*models.Message, error) {
	if limit <= 0 || limit > DefaultMessageLimit {
		limit = DefaultMessageLimit
	}
	return s.repomanager.Messages(s.db).ListByCandidate(ctx, candidateID, limit)
}
