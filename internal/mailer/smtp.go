package mailer

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/smtp"
	"os"
	"time"

	"go.uber.org/zap"
)

// SMTPConfig holds connection settings for SMTPTransport.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
}

// SMTPTransport sends mail through an SMTP relay. Port 465 uses implicit TLS,
// any other port is upgraded with STARTTLS when the server offers it.
type SMTPTransport struct {
	cfg SMTPConfig
	log *zap.Logger
	now func() time.Time
}

// NewSMTPTransport builds an SMTPTransport.
func NewSMTPTransport(cfg SMTPConfig, log *zap.Logger) *SMTPTransport {
	if log == nil {
		log = zap.NewNop()
	}
	return &SMTPTransport{cfg: cfg, log: log, now: time.Now}
}

// Send delivers msg. The connection deadline follows ctx; a deadline hit on
// the connection is reported as context.DeadlineExceeded.
func (t *SMTPTransport) Send(ctx context.Context, msg Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}

	err := t.send(ctx, msg)
	if err == nil {
		return nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return fmt.Errorf("%w: %v", context.DeadlineExceeded, err)
	}
	return err
}

func (t *SMTPTransport) send(ctx context.Context, msg Message) error {
	address := net.JoinHostPort(t.cfg.Host, fmt.Sprint(t.cfg.Port))
	conn, err := t.dial(ctx, address)
	if err != nil {
		t.log.Error("failed to connect to SMTP server", zap.String("address", address), zap.Error(err))
		return err
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		if err := conn.SetDeadline(deadline); err != nil {
			return err
		}
	}

	// 连接建立后 ctx 被取消时，关闭连接以打断阻塞中的读写
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	client, err := smtp.NewClient(conn, t.cfg.Host)
	if err != nil {
		t.log.Error("failed to create SMTP client", zap.Error(err))
		return err
	}
	defer client.Close()

	if t.cfg.Port != 465 {
		if ok, _ := client.Extension("STARTTLS"); ok {
			if err := client.StartTLS(&tls.Config{ServerName: t.cfg.Host}); err != nil {
				t.log.Error("failed to start TLS", zap.Error(err))
				return err
			}
		}
	}

	return t.sendViaClient(client, msg)
}

func (t *SMTPTransport) dial(ctx context.Context, address string) (net.Conn, error) {
	dialer := &net.Dialer{}
	if t.cfg.Port == 465 {
		tlsDialer := &tls.Dialer{NetDialer: dialer, Config: &tls.Config{ServerName: t.cfg.Host}}
		return tlsDialer.DialContext(ctx, "tcp", address)
	}
	return dialer.DialContext(ctx, "tcp", address)
}

// sendViaClient performs auth, sets sender/recipient, and sends the message body.
func (t *SMTPTransport) sendViaClient(client *smtp.Client, msg Message) error {
	if t.cfg.Username != "" {
		auth := smtp.PlainAuth("", t.cfg.Username, t.cfg.Password, t.cfg.Host)
		if err := client.Auth(auth); err != nil {
			t.log.Error("SMTP authentication failed", zap.Error(err))
			return err
		}
	}

	if err := client.Mail(msg.From); err != nil {
		t.log.Error("failed to set sender", zap.String("from", msg.From), zap.Error(err))
		return err
	}

	if err := client.Rcpt(msg.To); err != nil {
		t.log.Error("failed to set recipient", zap.String("recipient", msg.To), zap.Error(err))
		return err
	}

	w, err := client.Data()
	if err != nil {
		t.log.Error("failed to get data writer", zap.Error(err))
		return err
	}

	if _, err := w.Write(msg.Bytes(t.now())); err != nil {
		t.log.Error("failed to write message", zap.Error(err))
		return err
	}

	if err := w.Close(); err != nil {
		t.log.Error("failed to close data writer", zap.Error(err))
		return err
	}

	return client.Quit()
}
