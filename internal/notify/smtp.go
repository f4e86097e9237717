package notify

import (
	"context"
	"fmt"
	"mime"
	"net"
	"net/mail"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
)

// SMTPConfig holds the mail relay settings.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	FromName string
}

type sendMailFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// SMTP sends plain-text mail. net/smtp upgrades to STARTTLS when the relay
// offers it, which PlainAuth requires for non-local hosts.
type SMTP struct {
	cfg      SMTPConfig
	sendMail sendMailFunc
}

// NewSMTP creates an SMTP sender.
func NewSMTP(cfg SMTPConfig) *SMTP {
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	return &SMTP{cfg: cfg, sendMail: smtp.SendMail}
}

// Send delivers t to the address to.
func (s *SMTP) Send(ctx context.Context, to string, t Text) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	// Senders usually arrive as "Name <addr@host>".
	parsed, err := mail.ParseAddress(to)
	if err != nil {
		return eris.Wrapf(ErrInvalidRecipient, "smtp: %q", to)
	}
	rcpt := parsed.Address

	from := s.cfg.From
	if from == "" {
		from = s.cfg.Username
	}

	var auth smtp.Auth
	if s.cfg.Username != "" {
		// App passwords are often pasted with spaces.
		auth = smtp.PlainAuth("", s.cfg.Username, strings.ReplaceAll(s.cfg.Password, " ", ""), s.cfg.Host)
	}

	addr := net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))
	if err := s.sendMail(addr, auth, from, []string{rcpt}, s.compose(from, rcpt, t)); err != nil {
		return eris.Wrapf(err, "smtp: send to %s", rcpt)
	}
	return nil
}

func (s *SMTP) compose(from, to string, t Text) []byte {
	fromHeader := from
	if s.cfg.FromName != "" {
		fromHeader = fmt.Sprintf("%s <%s>", mime.QEncoding.Encode("utf-8", s.cfg.FromName), from)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "From: %s\r\n", fromHeader)
	fmt.Fprintf(&sb, "To: %s\r\n", to)
	fmt.Fprintf(&sb, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", t.Subject))
	fmt.Fprintf(&sb, "Date: %s\r\n", time.Now().Format(time.RFC1123Z))
	fmt.Fprintf(&sb, "Message-ID: <%s@%s>\r\n", uuid.NewString(), s.cfg.Host)
	sb.WriteString("MIME-Version: 1.0\r\n")
	sb.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	sb.WriteString("Content-Transfer-Encoding: 8bit\r\n\r\n")
	sb.WriteString(strings.ReplaceAll(t.Body, "\n", "\r\n"))
	sb.WriteString("\r\n")
	return []byte(sb.String())
}
