package telegram

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	backoff "github.com/cenkalti/backoff/v4"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/gurujiofficial51-wq/info1/internal/conversation"
	"github.com/gurujiofficial51-wq/info1/internal/metrics"
)

// requester is the subset of *tgbotapi.BotAPI used to deliver replies.
type requester interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

const (
	maxSendAttempts = 4
	maxRetryAfter   = 30 * time.Second
)

// Sender implements conversation.Replier. Outbound calls share one rate
// limiter and transient failures are retried with exponential backoff.
type Sender struct {
	api     requester
	limiter *rate.Limiter
	newBack func() backoff.BackOff
	log     zerolog.Logger
}

var _ conversation.Replier = (*Sender)(nil)

// NewSender caps outbound traffic at perSecond messages.
func NewSender(api requester, perSecond float64, log zerolog.Logger) *Sender {
	burst := int(perSecond)
	if burst < 1 {
		burst = 1
	}
	return &Sender{
		api:     api,
		limiter: rate.NewLimiter(rate.Limit(perSecond), burst),
		newBack: func() backoff.BackOff {
			exp := backoff.NewExponentialBackOff()
			exp.InitialInterval = 200 * time.Millisecond
			exp.MaxInterval = 5 * time.Second
			exp.MaxElapsedTime = 30 * time.Second
			return exp
		},
		log: log.With().Str("component", "telegram_sender").Logger(),
	}
}

// Send delivers one reply. A Markdown message rejected for its formatting is
// resent once as plain text.
func (s *Sender) Send(ctx context.Context, r conversation.Reply) error {
	err := s.deliver(ctx, buildMessage(r))
	if err != nil && r.Markdown && isParseError(err) {
		s.log.Warn().Err(err).Int64("chat_id", r.ChatID).Msg("markdown rejected, resending as plain text")
		plain := r
		plain.Markdown = false
		err = s.deliver(ctx, buildMessage(plain))
	}
	if err != nil {
		metrics.MessagesSentTotal.WithLabelValues("failed").Inc()
		return fmt.Errorf("send to chat %d: %w", r.ChatID, err)
	}
	metrics.MessagesSentTotal.WithLabelValues("ok").Inc()
	return nil
}

// AnswerCallback clears the loading state of an inline button.
func (s *Sender) AnswerCallback(ctx context.Context, callbackID string) error {
	return s.retry(ctx, func() error {
		_, err := s.api.Request(tgbotapi.NewCallback(callbackID, ""))
		return err
	})
}

func (s *Sender) deliver(ctx context.Context, msg tgbotapi.MessageConfig) error {
	return s.retry(ctx, func() error {
		_, err := s.api.Send(msg)
		return err
	})
}

func (s *Sender) retry(ctx context.Context, call func() error) error {
	b := backoff.WithContext(backoff.WithMaxRetries(s.newBack(), maxSendAttempts-1), ctx)
	return backoff.Retry(func() error {
		if err := s.limiter.Wait(ctx); err != nil {
			return backoff.Permanent(err)
		}
		err := call()
		if err == nil {
			return nil
		}
		if !retryable(err) {
			return backoff.Permanent(err)
		}
		if wait := retryAfter(err); wait > 0 {
			s.log.Warn().Dur("retry_after", wait).Msg("rate limited by telegram")
			select {
			case <-time.After(wait):
			case <-ctx.Done():
				return backoff.Permanent(ctx.Err())
			}
		}
		return err
	}, b)
}

// retryable reports whether err is worth another attempt: transport
// failures, 429 and 5xx.
func retryable(err error) bool {
	var apiErr *tgbotapi.Error
	if errors.As(err, &apiErr) {
		return apiErr.Code == http.StatusTooManyRequests || apiErr.Code >= http.StatusInternalServerError
	}
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}

func retryAfter(err error) time.Duration {
	var apiErr *tgbotapi.Error
	if !errors.As(err, &apiErr) || apiErr.RetryAfter <= 0 {
		return 0
	}
	return min(time.Duration(apiErr.RetryAfter)*time.Second, maxRetryAfter)
}

func isParseError(err error) bool {
	var apiErr *tgbotapi.Error
	return errors.As(err, &apiErr) && apiErr.Code == http.StatusBadRequest &&
		strings.Contains(strings.ToLower(apiErr.Message), "parse entities")
}
