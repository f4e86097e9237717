package notify

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

const defaultTwilioURL = "https://api.twilio.com"

// WhatsAppConfig holds the Twilio account used to send WhatsApp messages.
type WhatsAppConfig struct {
	AccountSID string
	AuthToken  string
	// From is the Twilio WhatsApp sender number.
	From    string
	BaseURL string
	// RatePerSec caps outbound messages; Twilio queues beyond roughly one
	// per second per sender.
	RatePerSec float64
}

// WhatsApp sends messages through the Twilio Messages API.
type WhatsApp struct {
	cfg     WhatsAppConfig
	client  *http.Client
	limiter *rate.Limiter
}

// NewWhatsApp creates a Twilio sender.
func NewWhatsApp(cfg WhatsAppConfig) *WhatsApp {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultTwilioURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.RatePerSec <= 0 {
		cfg.RatePerSec = 1
	}
	return &WhatsApp{
		cfg:     cfg,
		client:  &http.Client{Timeout: 30 * time.Second},
		limiter: rate.NewLimiter(rate.Limit(cfg.RatePerSec), 1),
	}
}

// WhatsAppAddress prefixes a phone number with the whatsapp: scheme.
func WhatsAppAddress(phone string) string {
	phone = strings.TrimSpace(phone)
	if strings.HasPrefix(phone, "whatsapp:") {
		return phone
	}
	return "whatsapp:" + phone
}

type twilioError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Send posts t.Body to the phone number to.
func (w *WhatsApp) Send(ctx context.Context, to string, t Text) error {
	if strings.TrimSpace(strings.TrimPrefix(to, "whatsapp:")) == "" {
		return eris.Wrap(ErrInvalidRecipient, "whatsapp: empty phone number")
	}
	if err := w.limiter.Wait(ctx); err != nil {
		return eris.Wrap(err, "whatsapp: rate limit wait")
	}

	form := url.Values{
		"From": {WhatsAppAddress(w.cfg.From)},
		"To":   {WhatsAppAddress(to)},
		"Body": {t.Body},
	}
	endpoint := w.cfg.BaseURL + "/2010-04-01/Accounts/" + url.PathEscape(w.cfg.AccountSID) + "/Messages.json"

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return eris.Wrap(err, "whatsapp: create request")
	}
	req.SetBasicAuth(w.cfg.AccountSID, w.cfg.AuthToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := w.client.Do(req)
	if err != nil {
		return eris.Wrap(err, "whatsapp: send")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		var te twilioError
		if json.Unmarshal(body, &te) == nil && te.Message != "" {
			return eris.Errorf("whatsapp: twilio returned %d (code %d): %s", resp.StatusCode, te.Code, te.Message)
		}
		return eris.Errorf("whatsapp: twilio returned %d: %s", resp.StatusCode, string(body))
	}
	return nil
}
