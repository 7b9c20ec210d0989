package mailer

import (
	"bytes"
	"fmt"
	"mime"
	"mime/quotedprintable"
	"net/mail"
	"time"
)

// Message is a single HTML e-mail.
type Message struct {
	To        string
	From      string
	FromName  string
	Subject   string
	HTMLBody  string
	MessageID string
}

// Validate checks that the addresses parse.
func (m Message) Validate() error {
	if _, err := mail.ParseAddress(m.To); err != nil {
		return fmt.Errorf("%w: %v", ErrNoRecipient, err)
	}
	if _, err := mail.ParseAddress(m.From); err != nil {
		return fmt.Errorf("invalid sender %q: %w", m.From, err)
	}
	return nil
}

// Bytes renders the message as an RFC 5322 document with a quoted-printable
// HTML body.
func (m Message) Bytes(now time.Time) []byte {
	from := (&mail.Address{Name: m.FromName, Address: m.From}).String()
	encodedSubject := mime.QEncoding.Encode("utf-8", m.Subject)

	var body bytes.Buffer
	qp := quotedprintable.NewWriter(&body)
	// 写入 bytes.Buffer 不会失败
	_, _ = qp.Write([]byte(m.HTMLBody))
	_ = qp.Close()

	return fmt.Appendf(nil,
		"Message-ID: %s\r\n"+
			"Date: %s\r\n"+
			"To: %s\r\n"+
			"From: %s\r\n"+
			"Subject: %s\r\n"+
			"MIME-Version: 1.0\r\n"+
			"Content-Type: text/html; charset=\"utf-8\"\r\n"+
			"Content-Transfer-Encoding: quoted-printable\r\n"+
			"\r\n"+
			"%s",
		m.MessageID, now.Format(time.RFC1123Z), m.To, from, encodedSubject, body.Bytes(),
	)
}
