// Package email implements an SMTP-based email notifier
package email

import (
	"context"
	"fmt"
	"html"
	"net/smtp"
	"strings"

	"github.com/newthinker/orion/internal/config"
	"github.com/newthinker/orion/internal/core"
	"github.com/newthinker/orion/internal/format"
)

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// Email implements the Notifier interface for SMTP email
type Email struct {
	host     string
	port     int
	username string
	password string
	from     string
	to       []string
	send     sendFunc
}

// New creates a new Email notifier
func New(host string, port int, username, password, from string, to []string) *Email {
	return &Email{
		host:     host,
		port:     port,
		username: username,
		password: password,
		from:     from,
		to:       to,
		send:     smtp.SendMail,
	}
}

func (e *Email) Name() string { return "email" }

func (e *Email) Init(cfg config.NotifierConfig) error {
	if cfg.Host != "" {
		e.host = cfg.Host
	}
	if cfg.Port != 0 {
		e.port = cfg.Port
	}
	if cfg.Username != "" {
		e.username = cfg.Username
	}
	if cfg.Password != "" {
		e.password = cfg.Password
	}
	if cfg.From != "" {
		e.from = cfg.From
	}
	if len(cfg.To) > 0 {
		e.to = cfg.To
	}
	if e.port == 0 {
		e.port = 587
	}
	if e.send == nil {
		e.send = smtp.SendMail
	}

	if e.host == "" || e.from == "" || len(e.to) == 0 {
		return core.WrapError(core.ErrNotifierNotConfigured, fmt.Errorf("email: host, from, and to are required"))
	}
	return nil
}

// Send mails the signal. net/smtp has no context support, so ctx is only
// checked before dialing.
func (e *Email) Send(ctx context.Context, signal core.Signal) error {
	if err := ctx.Err(); err != nil {
		return core.WrapError(core.ErrNotifierFailed, err)
	}

	subject := fmt.Sprintf("ORION Signal: %s %s %s",
		signal.Symbol, strings.ToUpper(string(signal.Direction)), strings.ToUpper(string(signal.Status)))
	body := "<html><body>" + e.formatSignalHTML(signal) + "</body></html>"

	if err := e.sendEmail(subject, body); err != nil {
		return core.WrapError(core.ErrNotifierFailed, fmt.Errorf("email: %w", err))
	}
	return nil
}

func (e *Email) formatSignalHTML(s core.Signal) string {
	directionColor := "#28a745" // green for long
	if !s.IsLong() {
		directionColor = "#dc3545" // red for short
	}

	var tps strings.Builder
	for i, tp := range s.TakeProfits {
		tps.WriteString(fmt.Sprintf("<li>%s: %s</li>",
			html.EscapeString(s.TPLabel(i)), format.Price(s.Symbol, tp)))
	}

	return fmt.Sprintf(`
<div style="margin: 10px 0;">
  <h3 style="color: %s;">%s - %s</h3>
  <p><strong>Entry:</strong> %s</p>
  <p><strong>Stop Loss:</strong> %s</p>
  <ul>%s</ul>
  <p><strong>Confidence:</strong> %s</p>
  <p><strong>R:R:</strong> %.2f:1</p>
  <p><strong>Killzone:</strong> %s</p>
  <p><strong>Reason:</strong> %s</p>
  <p><small>%s</small></p>
</div>
`,
		directionColor,
		html.EscapeString(s.Symbol),
		strings.ToUpper(string(s.Direction)),
		format.Price(s.Symbol, s.EntryPrice),
		format.Price(s.Symbol, s.StopLoss),
		tps.String(),
		format.Percent(s.Confidence),
		s.RRTarget,
		html.EscapeString(strings.ToUpper(s.Killzone)),
		html.EscapeString(s.Reason),
		format.Stamp(s.EntryTime),
	)
}

func (e *Email) sendEmail(subject, body string) error {
	addr := fmt.Sprintf("%s:%d", e.host, e.port)

	var auth smtp.Auth
	if e.username != "" {
		auth = smtp.PlainAuth("", e.username, e.password, e.host)
	}

	msg := fmt.Sprintf("From: %s\r\n"+
		"To: %s\r\n"+
		"Subject: %s\r\n"+
		"MIME-Version: 1.0\r\n"+
		"Content-Type: text/html; charset=UTF-8\r\n"+
		"\r\n"+
		"%s",
		e.from,
		strings.Join(e.to, ","),
		subject,
		body,
	)

	return e.send(addr, auth, e.from, e.to, []byte(msg))
}
