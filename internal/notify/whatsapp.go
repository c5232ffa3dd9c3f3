package notify

import (
	"fmt"

	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"

	"github.com/markhet/agri-crm/internal/config"
)

// WhatsAppSender sends WhatsApp messages through Twilio. A nil sender is
// valid and drops messages, so the service runs without credentials in
// development.
type WhatsAppSender struct {
	client *twilio.RestClient
	from   string
}

// NewWhatsAppSender builds a sender when credentials are configured,
// otherwise returns nil.
func NewWhatsAppSender(cfg config.TwilioConfig) *WhatsAppSender {
	if cfg.AccountSID == "" || cfg.AuthToken == "" || cfg.WhatsAppFrom == "" {
		return nil
	}
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: cfg.AccountSID,
		Password: cfg.AuthToken,
	})
	return &WhatsAppSender{client: client, from: cfg.WhatsAppFrom}
}

// Send delivers a plain WhatsApp message to the given number.
func (w *WhatsAppSender) Send(to, body string) error {
	if w == nil || w.client == nil {
		return nil
	}
	params := &twilioApi.CreateMessageParams{}
	params.SetFrom(w.from)
	params.SetTo(fmt.Sprintf("whatsapp:+91%s", to))
	params.SetBody(body)

	_, err := w.client.Api.CreateMessage(params)
	return err
}
