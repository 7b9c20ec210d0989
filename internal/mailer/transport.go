package mailer

import (
	"context"

	"go.uber.org/zap"
)

// Transport delivers a message. Implementations must honour ctx cancellation.
type Transport interface {
	Send(ctx context.Context, msg Message) error
}

// TransportFunc adapts a function to Transport.
type TransportFunc func(ctx context.Context, msg Message) error

func (f TransportFunc) Send(ctx context.Context, msg Message) error {
	return f(ctx, msg)
}

// LogTransport writes messages to the log instead of sending them. Used when no SMTP host is configured.
type LogTransport struct {
	Log *zap.Logger
}

func (t LogTransport) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	log := t.Log
	if log == nil {
		log = zap.NewNop()
	}
	log.Info("mail (log transport)",
		zap.String("to", msg.To),
		zap.String("from", msg.From),
		zap.String("subject", msg.Subject),
		zap.String("message_id", msg.MessageID),
		zap.Int("body_bytes", len(msg.HTMLBody)))
	return nil
}
