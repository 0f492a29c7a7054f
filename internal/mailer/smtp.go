package mailer

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/emersion/go-message/mail"
	"github.com/emersion/go-sasl"
	"github.com/emersion/go-smtp"
)

// SendFunc matches smtp.SendMail. It is a field on SMTPMailer so tests can
// capture the composed message without a server.
type SendFunc func(addr string, a sasl.Client, from string, to []string, r io.Reader) error

// SMTPMailer composes a multipart/alternative message and submits it to an
// SMTP relay. PLAIN auth is used when a username is configured.
type SMTPMailer struct {
	addr     string
	from     string
	auth     sasl.Client
	renderer *Renderer
	send     SendFunc
}

func NewSMTPMailer(addr, from, username, password string, renderer *Renderer) *SMTPMailer {
	var auth sasl.Client
	if username != "" {
		auth = sasl.NewPlainClient("", username, password)
	}
	return &SMTPMailer{
		addr:     addr,
		from:     from,
		auth:     auth,
		renderer: renderer,
		send:     smtp.SendMail,
	}
}

// WithSendFunc replaces the SMTP submission function.
func (m *SMTPMailer) WithSendFunc(fn SendFunc) *SMTPMailer {
	m.send = fn
	return m
}

func (m *SMTPMailer) SendDigest(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	body, err := m.compose(msg)
	if err != nil {
		return err
	}

	if err := m.send(m.addr, m.auth, m.from, []string{msg.To}, bytes.NewReader(body)); err != nil {
		return fmt.Errorf("smtp send to %s: %w", msg.To, err)
	}
	return nil
}

func (m *SMTPMailer) compose(msg Message) ([]byte, error) {
	rendered, err := m.renderer.Render(msg.Digest)
	if err != nil {
		return nil, err
	}

	var h mail.Header
	h.SetDate(time.Now())
	h.SetSubject(rendered.Subject)
	h.SetAddressList("From", []*mail.Address{{Address: m.from}})
	h.SetAddressList("To", []*mail.Address{{Address: msg.To}})

	var buf bytes.Buffer
	mw, err := mail.CreateWriter(&buf, h)
	if err != nil {
		return nil, fmt.Errorf("create message: %w", err)
	}

	tw, err := mw.CreateInline()
	if err != nil {
		return nil, fmt.Errorf("create inline part: %w", err)
	}
	if err := writePart(tw, "text/plain", rendered.Text); err != nil {
		return nil, err
	}
	if err := writePart(tw, "text/html", rendered.HTML); err != nil {
		return nil, err
	}
	if err := tw.Close(); err != nil {
		return nil, fmt.Errorf("close inline part: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("close message: %w", err)
	}
	return buf.Bytes(), nil
}

func writePart(tw *mail.InlineWriter, contentType, body string) error {
	var ph mail.InlineHeader
	ph.SetContentType(contentType, map[string]string{"charset": "utf-8"})
	w, err := tw.CreatePart(ph)
	if err != nil {
		return fmt.Errorf("create %s part: %w", contentType, err)
	}
	if _, err := io.WriteString(w, body); err != nil {
		return fmt.Errorf("write %s part: %w", contentType, err)
	}
	return w.Close()
}

var _ Mailer = (*SMTPMailer)(nil)
