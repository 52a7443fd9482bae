package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/AnshRaj112/visitor-backend/internal/logging"
	"github.com/AnshRaj112/visitor-backend/internal/models"
	"golang.org/x/sync/errgroup"
)

const (
	NewVisitorTitle        = "🚨 New Visitor Entry"
	defaultPushConcurrency = 16
	defaultPushTimeout     = 10 * time.Second
)

// PushMessage is one notification addressed to one device token.
type PushMessage struct {
	Token string
	Title string
	Body  string
	Data  map[string]string
}

// PushSender delivers a single message. Implementations must honor ctx.
type PushSender interface {
	Send(ctx context.Context, msg PushMessage) error
}

// DeliveryResult is the outcome for one token.
type DeliveryResult struct {
	Token string
	Err   error
}

// DispatchReport summarizes a fan-out. Failures never abort the other deliveries.
type DispatchReport struct {
	Succeeded int
	Failed    int
	Results   []DeliveryResult
}

// Dispatcher fans a notification out to every registered token.
type Dispatcher struct {
	registry    *TokenRegistry
	sender      PushSender
	concurrency int
	timeout     time.Duration
}

func NewDispatcher(registry *TokenRegistry, sender PushSender, concurrency int, timeout time.Duration) *Dispatcher {
	if concurrency <= 0 {
		concurrency = defaultPushConcurrency
	}
	if timeout <= 0 {
		timeout = defaultPushTimeout
	}
	return &Dispatcher{
		registry:    registry,
		sender:      sender,
		concurrency: concurrency,
		timeout:     timeout,
	}
}

// NewVisitorMessage builds the alert shown to admins for a pending visitor.
func NewVisitorMessage(token, visitorName string) PushMessage {
	body := fmt.Sprintf("%s is waiting for approval.", visitorName)
	return PushMessage{
		Token: token,
		Title: NewVisitorTitle,
		Body:  body,
		Data: map[string]string{
			"title": NewVisitorTitle,
			"body":  body,
		},
	}
}

// NotifyNewVisitor sends the new-visitor alert to every active token and waits
// for all attempts to settle.
func (d *Dispatcher) NotifyNewVisitor(ctx context.Context, visitorName string) DispatchReport {
	logger := logging.FromContext(ctx)

	tokens, err := d.activeTokens(ctx)
	if err != nil {
		logger.Error("failed to read push tokens", "error", err)
		return DispatchReport{}
	}
	if len(tokens) == 0 {
		return DispatchReport{Results: []DeliveryResult{}}
	}

	results := make([]DeliveryResult, len(tokens))
	var g errgroup.Group
	g.SetLimit(d.concurrency)
	for i, t := range tokens {
		i, t := i, t
		g.Go(func() error {
			results[i] = d.deliver(ctx, logger, t, visitorName)
			return nil
		})
	}
	_ = g.Wait()

	report := DispatchReport{Results: results}
	for _, r := range results {
		if r.Err != nil {
			report.Failed++
		} else {
			report.Succeeded++
		}
	}
	return report
}

func (d *Dispatcher) activeTokens(ctx context.Context) ([]models.PushToken, error) {
	sctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()
	return d.registry.Active(sctx)
}

func (d *Dispatcher) deliver(ctx context.Context, logger *slog.Logger, t models.PushToken, visitorName string) DeliveryResult {
	sctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	if err := d.sender.Send(sctx, NewVisitorMessage(t.Token, visitorName)); err != nil {
		logger.Warn("push delivery failed", "token", maskToken(t.Token), "error", err)
		return DeliveryResult{Token: t.Token, Err: err}
	}

	if err := d.registry.MarkUsed(sctx, t); err != nil {
		logger.Warn("failed to refresh token last use", "token", maskToken(t.Token), "error", err)
	}
	return DeliveryResult{Token: t.Token}
}

// maskToken keeps enough of a device token to correlate logs.
func maskToken(token string) string {
	if len(token) <= 12 {
		return "***"
	}
	return token[:6] + "..." + token[len(token)-4:]
}
