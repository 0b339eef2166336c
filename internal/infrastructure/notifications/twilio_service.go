package notifications

import (
	"context"
	"fmt"
	"strings"

	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
	"go.uber.org/zap"

	"github.com/you/branchauth/domain"
)

// TwilioNotifier implements domain.Notifier. Message bodies are resolved
// here from the kind and parameters; callers only see pass/fail.
type TwilioNotifier struct {
	client     *twilio.RestClient
	fromNumber string
	logger     *zap.Logger
}

// NewTwilioNotifier creates a new Twilio-backed notifier
func NewTwilioNotifier(accountSID, authToken, fromNumber string, logger *zap.Logger) domain.Notifier {
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSID,
		Password: authToken,
	})

	return &TwilioNotifier{
		client:     client,
		fromNumber: fromNumber,
		logger:     logger,
	}
}

// Send implements domain.Notifier
func (t *TwilioNotifier) Send(ctx context.Context, kind domain.MessageKind, address string, params map[string]string) error {
	body, err := renderBody(kind, params)
	if err != nil {
		return err
	}

	// SMS only works for phone-shaped addresses; everything else goes
	// through the mock channel until an email provider is wired in.
	if t.fromNumber == "" || !strings.HasPrefix(address, "+") {
		t.logger.Info("mock notification",
			zap.String("kind", string(kind)),
			zap.String("address", address),
			zap.String("body", body))
		return nil
	}

	msgParams := &twilioApi.CreateMessageParams{}
	msgParams.SetTo(address)
	msgParams.SetFrom(t.fromNumber)
	msgParams.SetBody(body)

	if _, err := t.client.Api.CreateMessage(msgParams); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrNotifierFailed, err)
	}

	return nil
}

func renderBody(kind domain.MessageKind, params map[string]string) (string, error) {
	switch kind {
	case domain.MessageVerification:
		return fmt.Sprintf("Hello %s, verify your account with this link: %s (valid until %s)",
			params["display_name"], params["link"], params["expires_at"]), nil
	case domain.MessageReset:
		return fmt.Sprintf("Hello %s, reset your password with this link: %s (valid until %s)",
			params["display_name"], params["link"], params["expires_at"]), nil
	case domain.MessageConfirmation:
		return fmt.Sprintf("Hello %s, your password was changed. If this was not you, contact support.",
			params["display_name"]), nil
	default:
		return "", fmt.Errorf("unknown message kind %q", kind)
	}
}
