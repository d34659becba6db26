package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"approval_engine/internal/domain"
)

type ChannelType string

const (
	ChannelWebhook   ChannelType = "webhook"
	ChannelEmail     ChannelType = "email"
	ChannelMessenger ChannelType = "messenger"
)

// NotificationDispatcher forwards the notification messages a policy
// decision raises to the configured delivery sinks. Rendering, templating
// and retries live with the external notification collaborator; this
// dispatcher only fans the decided events out.
type NotificationDispatcher struct {
	webhookSink   WebhookSink
	emailSink     EmailSink
	messengerSink MessengerSink
	messageQueue  chan NotificationMessage
	workers       int
	shutdownChan  chan struct{}
	wg            sync.WaitGroup
	logger        *slog.Logger
}

type NotificationMessage struct {
	Channel   ChannelType
	Recipient string
	Subject   string
	Message   string
	Priority  int
	Metadata  map[string]string
	CreatedAt time.Time
}

type WebhookSink interface {
	Post(target, payload string) error
}

type EmailSink interface {
	SendEmail(to, subject, body string) error
}

type MessengerSink interface {
	SendMessage(channel, message string) error
}

func NewNotificationDispatcher(
	webhookSink WebhookSink,
	emailSink EmailSink,
	messengerSink MessengerSink,
	workers int,
	logger *slog.Logger,
) *NotificationDispatcher {
	if logger == nil {
		logger = slog.Default()
	}

	dispatcher := &NotificationDispatcher{
		webhookSink:   webhookSink,
		emailSink:     emailSink,
		messengerSink: messengerSink,
		messageQueue:  make(chan NotificationMessage, 1000),
		workers:       workers,
		shutdownChan:  make(chan struct{}),
		logger:        logger,
	}

	dispatcher.startWorkers()

	return dispatcher
}

// DispatchDecision queues one message per notification the decision carries,
// enriched with the context the external renderer needs. A blocked decision
// additionally raises a high-priority alert to the security channel.
func (d *NotificationDispatcher) DispatchDecision(
	ctx context.Context,
	ec *domain.EvaluationContext,
	decision *domain.PolicyDecision,
) error {
	metadata := map[string]string{
		"amount":    ec.Amount.String(),
		"currency":  ec.Currency,
		"approvers": fmt.Sprintf("%v", decision.RequiredApprovers),
	}
	if ec.TransactionType != "" {
		metadata["transaction_type"] = ec.TransactionType
	}

	for _, message := range decision.Notifications {
		notification := NotificationMessage{
			Channel:   ChannelMessenger,
			Recipient: "#approvals",
			Subject:   "Approval policy notification",
			Message:   message,
			Priority:  5,
			Metadata:  metadata,
			CreatedAt: time.Now(),
		}

		select {
		case d.messageQueue <- notification:
			d.logger.InfoContext(ctx, "Notification queued",
				slog.String("channel", string(notification.Channel)),
				slog.String("message", message))
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	if decision.Blocked {
		alert := NotificationMessage{
			Channel:   ChannelEmail,
			Recipient: "security@example.com",
			Subject:   "Blocked withdrawal request",
			Message: fmt.Sprintf("A withdrawal of %s %s was blocked by policy. Initiator: %s",
				ec.Amount, ec.Currency, ec.Initiator),
			Priority:  10,
			Metadata:  metadata,
			CreatedAt: time.Now(),
		}

		select {
		case d.messageQueue <- alert:
			d.logger.WarnContext(ctx, "Blocked-transaction alert queued",
				slog.String("amount", ec.Amount.String()),
				slog.String("currency", ec.Currency))
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	return nil
}

func (d *NotificationDispatcher) startWorkers() {
	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.worker(i)
	}
}

func (d *NotificationDispatcher) worker(id int) {
	defer d.wg.Done()

	d.logger.Info("Notification worker started", slog.Int("worker_id", id))

	for {
		select {
		case msg := <-d.messageQueue:
			d.deliver(msg, id)
		case <-d.shutdownChan:
			d.drain(id)
			d.logger.Info("Notification worker stopping", slog.Int("worker_id", id))
			return
		}
	}
}

// drain empties the queue before the worker returns so messages accepted
// before shutdown are still delivered.
func (d *NotificationDispatcher) drain(id int) {
	for {
		select {
		case msg := <-d.messageQueue:
			d.deliver(msg, id)
		default:
			return
		}
	}
}

func (d *NotificationDispatcher) deliver(msg NotificationMessage, workerID int) {
	startTime := time.Now()
	var err error

	switch msg.Channel {
	case ChannelWebhook:
		if d.webhookSink != nil {
			err = d.webhookSink.Post(msg.Recipient, msg.Message)
		}
	case ChannelEmail:
		if d.emailSink != nil {
			err = d.emailSink.SendEmail(msg.Recipient, msg.Subject, msg.Message)
		}
	case ChannelMessenger:
		if d.messengerSink != nil {
			err = d.messengerSink.SendMessage(msg.Recipient, msg.Message)
		}
	default:
		err = fmt.Errorf("unknown notification channel: %s", msg.Channel)
	}

	duration := time.Since(startTime)

	if err != nil {
		d.logger.Error("Failed to deliver notification",
			slog.String("channel", string(msg.Channel)),
			slog.String("recipient", msg.Recipient),
			slog.String("error", err.Error()),
			slog.Int("worker_id", workerID),
			slog.Duration("duration", duration))
	} else {
		d.logger.Info("Notification delivered",
			slog.String("channel", string(msg.Channel)),
			slog.String("recipient", msg.Recipient),
			slog.Int("worker_id", workerID),
			slog.Duration("duration", duration))
	}
}

func (d *NotificationDispatcher) Shutdown(ctx context.Context) error {
	close(d.shutdownChan)

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		d.logger.Info("Notification dispatcher shutdown complete")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

type MockMessengerSink struct {
	mu   sync.Mutex
	Sent []struct {
		Channel string
		Message string
	}
}

func (m *MockMessengerSink) SendMessage(channel, message string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Sent = append(m.Sent, struct {
		Channel string
		Message string
	}{channel, message})
	return nil
}

type MockEmailSink struct {
	mu   sync.Mutex
	Sent []struct {
		To      string
		Subject string
		Body    string
	}
}

func (m *MockEmailSink) SendEmail(to, subject, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Sent = append(m.Sent, struct {
		To      string
		Subject string
		Body    string
	}{to, subject, body})
	return nil
}
