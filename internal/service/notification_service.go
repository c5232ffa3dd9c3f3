package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/markhet/agri-crm/internal/events"
	"github.com/markhet/agri-crm/internal/notify"
)

// NotificationService reacts to ticket events: it logs every event and
// pings the linked farmer on WhatsApp for webhook-created tickets.
type NotificationService struct {
	dispatcher events.Dispatcher
	whatsapp   *notify.WhatsAppSender
	logger     *zap.Logger
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, whatsapp *notify.WhatsAppSender, logger *zap.Logger) *NotificationService {
	return &NotificationService{
		dispatcher: dispatcher,
		whatsapp:   whatsapp,
		logger:     logger,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventTicketCreated, n.handleTicketCreated)
	n.dispatcher.Subscribe(events.EventTicketStatusChanged, n.handleTicketStatusChanged)
	n.dispatcher.Subscribe(events.EventTicketAssigned, n.handleTicketAssigned)
	n.dispatcher.Subscribe(events.EventTicketRemarkAdded, n.logEvent)
	n.dispatcher.Subscribe(events.EventTicketsDeleted, n.logEvent)
}

func (n *NotificationService) handleTicketCreated(ctx context.Context, event events.Event) error {
	n.logger.Info("TicketCreated", zap.String("ticket_id", event.TicketID), zap.Any("payload", event.Payload))

	payload, ok := event.Payload.(events.TicketCreatedPayload)
	if !ok || !payload.Webhook || payload.Number == "" {
		return nil
	}
	body := "Thanks for reaching out. Our team has logged your request and an agent will call you back shortly."
	if err := n.whatsapp.Send(payload.Number, body); err != nil {
		n.logger.Warn("whatsapp send failed", zap.String("number", payload.Number), zap.Error(err))
	}
	return nil
}

func (n *NotificationService) handleTicketStatusChanged(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketStatusChangedPayload)
	if !ok {
		return n.logEvent(ctx, event)
	}
	n.logger.Info("TicketStatusChanged",
		zap.String("ticket_id", event.TicketID),
		zap.String("old", string(payload.OldStatus)),
		zap.String("new", string(payload.NewStatus)),
	)
	return nil
}

func (n *NotificationService) handleTicketAssigned(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketAssignedPayload)
	if !ok {
		return n.logEvent(ctx, event)
	}
	n.logger.Info("TicketAssigned",
		zap.String("ticket_id", event.TicketID),
		zap.String("assigned_to", fmt.Sprintf("%v", payload.AssignedTo)),
	)
	return nil
}

func (n *NotificationService) logEvent(_ context.Context, event events.Event) error {
	n.logger.Info(string(event.Type), zap.String("ticket_id", event.TicketID), zap.Any("payload", event.Payload))
	return nil
}
