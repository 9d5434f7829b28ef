package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dmitrijs2005/hronboard/internal/common"
	"github.com/dmitrijs2005/hronboard/internal/logging"
	"github.com/dmitrijs2005/hronboard/internal/server/models"
	"github.com/segmentio/kafka-go"
)

// publishTimeout bounds how long a caller waits to hand a notification over.
const publishTimeout = 2 * time.Second

// messageWriter is the subset of *kafka.Writer used by KafkaNotifier.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Event is the payload published for the external mail delivery service.
type Event struct {
	Template    string            `json:"template"`
	CandidateID string            `json:"candidate_id,omitempty"`
	Name        string            `json:"name"`
	Email       string            `json:"email"`
	ChatID      *int64            `json:"chat_id,omitempty"`
	Subject     string            `json:"subject"`
	Text        string            `json:"text"`
	Vars        map[string]string `json:"vars,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
}

// KafkaNotifier publishes rendered notifications to a topic.
type KafkaNotifier struct {
	writer    messageWriter
	catalogue *Catalogue
	now       func() time.Time
}

// NewKafkaWriter builds an async writer for topic. WriteMessages only queues
// the message; delivery failures are reported to logger.
func NewKafkaWriter(brokers []string, topic string, logger logging.Logger) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		AllowAutoTopicCreation: true,
		RequiredAcks:           kafka.RequireAll,
		Balancer:               &kafka.Hash{},
		Async:                  true,
		BatchTimeout:           50 * time.Millisecond,
		Completion:             completionLogger(topic, logger),
	}
}

func completionLogger(topic string, logger logging.Logger) func([]kafka.Message, error) {
	return func(msgs []kafka.Message, err error) {
		if err != nil {
			logger.Error(context.Background(), "notification publish failed",
				"topic", topic, "messages", len(msgs), "error", err)
		}
	}
}

func NewKafkaNotifier(writer messageWriter, catalogue *Catalogue) *KafkaNotifier {
	return &KafkaNotifier{writer: writer, catalogue: catalogue, now: time.Now}
}

func (n *KafkaNotifier) Notify(ctx context.Context, to models.Contact, templateKey string, vars map[string]string) error {
	msg, err := n.catalogue.Render(templateKey, vars)
	if err != nil {
		return err
	}

	payload, err := json.Marshal(Event{
		Template:    templateKey,
		CandidateID: to.CandidateID,
		Name:        to.Name,
		Email:       to.Email,
		ChatID:      to.ChatID,
		Subject:     msg.Subject,
		Text:        msg.Text,
		Vars:        vars,
		CreatedAt:   n.now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	err = n.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(to.CandidateID),
		Value: payload,
	})
	if err != nil {
		return fmt.Errorf("%w: publish %s: %v", common.ErrTransport, templateKey, err)
	}
	return nil
}

func (n *KafkaNotifier) Close() error {
	return n.writer.Close()
}
