// Package notify delivers notification intents. Delivery is best effort:
// callers log failures and never roll back the change that caused them.
package notify

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/hronboard/internal/logging"
	"github.com/dmitrijs2005/hronboard/internal/server/models"
)

type Notifier interface {
	Notify(ctx context.Context, to models.Contact, templateKey string, vars map[string]string) error
}

// Send delivers intent through n. A nil intent is a no-op.
func Send(ctx context.Context, n Notifier, intent *models.NotificationIntent) error {
	if intent == nil {
		return nil
	}
	return n.Notify(ctx, intent.Contact, intent.TemplateKey, intent.Vars)
}

// Multi fans a notification out to every notifier and joins their errors.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, to models.Contact, templateKey string, vars map[string]string) error {
	var errs []error
	for _, n := range m {
		if err := n.Notify(ctx, to, templateKey, vars); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// LogNotifier records notifications in the log only.
type LogNotifier struct {
	logger logging.Logger
}

func NewLogNotifier(logger logging.Logger) *LogNotifier {
	return &LogNotifier{logger: logger.With("module", "notify")}
}

func (n *LogNotifier) Notify(ctx context.Context, to models.Contact, templateKey string, vars map[string]string) error {
	n.logger.Info(ctx, "notification", "template", templateKey, "candidate_id", to.CandidateID, "email", to.Email)
	return nil
}
