// Package telegram connects the conversation engine to the Telegram Bot API.
package telegram

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/time/rate"

	"github.com/dmitrijs2005/hronboard/internal/logging"
	"github.com/dmitrijs2005/hronboard/internal/server/bot"
)

// maxFileSize is the largest file the Bot API lets a bot download.
const maxFileSize = 20 << 20

// botAPI is the subset of *tgbotapi.BotAPI used by the adapter.
type botAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	GetFileDirectURL(fileID string) (string, error)
	StopReceivingUpdates()
}

var newBotAPI = func(token string) (botAPI, error) {
	return tgbotapi.NewBotAPI(token)
}

// Adapter receives updates as bot events and sends replies. Outbound calls
// share one rate limiter so that bursts stay under the Bot API limits.
type Adapter struct {
	api     botAPI
	limiter *rate.Limiter
	http    *http.Client
	logger  logging.Logger
}

func New(token string, ratePerSecond int, logger logging.Logger) (*Adapter, error) {
	api, err := newBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram init error: %w", err)
	}
	return newAdapter(api, ratePerSecond, logger), nil
}

func newAdapter(api botAPI, ratePerSecond int, logger logging.Logger) *Adapter {
	if ratePerSecond <= 0 {
		ratePerSecond = 1
	}
	return &Adapter{
		api:     api,
		limiter: rate.NewLimiter(rate.Limit(ratePerSecond), ratePerSecond),
		http:    &http.Client{Timeout: time.Minute},
		logger:  logger.With("module", "telegram"),
	}
}

// Events long-polls for updates until ctx is done. The returned channel is
// closed when polling stops.
func (a *Adapter) Events(ctx context.Context) <-chan bot.Event {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := a.api.GetUpdatesChan(u)

	out := make(chan bot.Event)
	go func() {
		defer close(out)
		defer a.api.StopReceivingUpdates()
		for {
			select {
			case <-ctx.Done():
				return
			case upd, ok := <-updates:
				if !ok {
					return
				}
				if upd.CallbackQuery != nil {
					a.answerCallback(ctx, upd.CallbackQuery.ID)
				}
				ev, ok := toEvent(upd, a.fetcher)
				if !ok {
					continue
				}
				select {
				case out <- ev:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out
}

// answerCallback stops the client's progress indicator on the pressed button.
func (a *Adapter) answerCallback(ctx context.Context, id string) {
	if _, err := a.api.Request(tgbotapi.NewCallback(id, "")); err != nil {
		a.logger.Warn(ctx, "answer callback failed", "error", err)
	}
}

func (a *Adapter) SendMessage(ctx context.Context, chatID int64, text string, kb *bot.Keyboard) error {
	if err := a.limiter.Wait(ctx); err != nil {
		return err
	}
	msg := tgbotapi.NewMessage(chatID, text)
	if markup := replyMarkup(kb); markup != nil {
		msg.ReplyMarkup = markup
	}
	if _, err := a.api.Send(msg); err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	return nil
}

// SendText sends a plain staff reply.
func (a *Adapter) SendText(ctx context.Context, chatID int64, text string) error {
	return a.SendMessage(ctx, chatID, text, nil)
}

func (a *Adapter) SendFile(ctx context.Context, chatID int64, data []byte, filename, caption string) error {
	if err := a.limiter.Wait(ctx); err != nil {
		return err
	}
	doc := tgbotapi.NewDocument(chatID, tgbotapi.FileBytes{Name: filename, Bytes: data})
	doc.Caption = caption
	if _, err := a.api.Send(doc); err != nil {
		return fmt.Errorf("send file: %w", err)
	}
	return nil
}

// fetcher returns a lazy download of a file sent to the bot.
func (a *Adapter) fetcher(fileID string) func(ctx context.Context) ([]byte, error) {
	return func(ctx context.Context) ([]byte, error) {
		url, err := a.api.GetFileDirectURL(fileID)
		if err != nil {
			return nil, fmt.Errorf("resolve file: %w", err)
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, err
		}
		resp, err := a.http.Do(req)
		if err != nil {
			return nil, fmt.Errorf("download file: %w", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("download file: status %d", resp.StatusCode)
		}
		data, err := io.ReadAll(io.LimitReader(resp.Body, maxFileSize+1))
		if err != nil {
			return nil, fmt.Errorf("download file: %w", err)
		}
		if len(data) > maxFileSize {
			return nil, fmt.Errorf("download file: larger than %d bytes", maxFileSize)
		}
		return data, nil
	}
}
