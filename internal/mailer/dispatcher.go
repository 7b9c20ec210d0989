package mailer

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/quillpost/internal/db"
	"github.com/quillpost/internal/metrics"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DispatcherConfig tunes outbox delivery.
type DispatcherConfig struct {
	Workers      int
	MaxAttempts  int
	SendTimeout  time.Duration
	PollInterval time.Duration
	BatchSize    int
}

func (c DispatcherConfig) withDefaults() DispatcherConfig {
	if c.Workers <= 0 {
		c.Workers = 1
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 5
	}
	if c.SendTimeout <= 0 {
		c.SendTimeout = 10 * time.Second
	}
	if c.PollInterval <= 0 {
		c.PollInterval = 5 * time.Second
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 50
	}
	return c
}

// Dispatcher queues reply notifications in the outbox table and delivers them
// with a pool of workers. Delivery is at-least-once: a row is marked sent only
// after the transport accepted it, and a resent mail keeps its Message-ID.
type Dispatcher struct {
	db        *gorm.DB
	composer  *ReplyComposer
	transport Transport
	cfg       DispatcherConfig
	log       *zap.Logger
	now       func() time.Time
	wake      chan struct{}
}

// NewDispatcher creates a Dispatcher.
func NewDispatcher(gdb *gorm.DB, composer *ReplyComposer, transport Transport, cfg DispatcherConfig, log *zap.Logger) *Dispatcher {
	if log == nil {
		log = zap.NewNop()
	}
	return &Dispatcher{
		db:        gdb,
		composer:  composer,
		transport: transport,
		cfg:       cfg.withDefaults(),
		log:       log,
		now:       time.Now,
		wake:      make(chan struct{}, 1),
	}
}

// NotifyReply composes the notification for a reply and stores it in the
// outbox. Composition failures, such as a parent author without e-mail, are
// returned as *NotificationError. Enqueuing the same comment twice is a no-op.
func (d *Dispatcher) NotifyReply(ctx context.Context, comment *db.Comment) error {
	var commentID uint
	if comment != nil {
		commentID = comment.ID
	}

	msg, err := d.composer.Compose(comment)
	if err != nil {
		return d.fail(&NotificationError{CommentID: commentID, Err: err})
	}

	row := db.Notification{
		ID:        uuid.NewString(),
		CommentID: commentID,
		Recipient: msg.To,
		Subject:   msg.Subject,
		HTMLBody:  msg.HTMLBody,
		MessageID: msg.MessageID,
		Status:    db.NotificationPending,
	}

	result := d.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "comment_id"}}, DoNothing: true}).
		Create(&row)
	if result.Error != nil {
		return d.fail(&NotificationError{CommentID: commentID, Err: result.Error})
	}

	if result.RowsAffected > 0 {
		metrics.NotificationsEnqueued.Inc()
		d.log.Debug("reply notification queued", zap.Uint("comment_id", commentID), zap.String("notification_id", row.ID))
	}

	select {
	case d.wake <- struct{}{}:
	default:
	}
	return nil
}

// Run polls the outbox until ctx is cancelled.
func (d *Dispatcher) Run(ctx context.Context) error {
	ticker := time.NewTicker(d.cfg.PollInterval)
	defer ticker.Stop()

	d.log.Info("mail dispatcher started", zap.Int("workers", d.cfg.Workers))
	for {
		if _, err := d.ProcessPending(ctx); err != nil && ctx.Err() == nil {
			d.log.Error("process outbox", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			d.log.Info("mail dispatcher stopped")
			return nil
		case <-ticker.C:
		case <-d.wake:
		}
	}
}

// ProcessPending delivers one batch of due notifications and reports how many were sent.
func (d *Dispatcher) ProcessPending(ctx context.Context) (int, error) {
	var rows []db.Notification
	if err := d.db.WithContext(ctx).
		Where("status = ? AND attempts < ?", db.NotificationPending, d.cfg.MaxAttempts).
		Order("created_at asc").
		Limit(d.cfg.BatchSize).
		Find(&rows).Error; err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, nil
	}

	jobs := make(chan db.Notification)
	var sent atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(jobs)
		for _, row := range rows {
			select {
			case jobs <- row:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
		return nil
	})

	for i := 0; i < d.cfg.Workers; i++ {
		g.Go(func() error {
			for row := range jobs {
				ok, err := d.deliver(gctx, row)
				if err != nil {
					return err
				}
				if ok {
					sent.Add(1)
				}
			}
			return nil
		})
	}

	err := g.Wait()
	if errors.Is(err, context.Canceled) && ctx.Err() != nil {
		err = nil
	}
	return int(sent.Load()), err
}

// deliver sends a single row. Transport failures are recorded on the row and
// are not returned; only bookkeeping errors are.
func (d *Dispatcher) deliver(ctx context.Context, row db.Notification) (bool, error) {
	msg := Message{
		To:        row.Recipient,
		From:      d.composer.sender.Address,
		FromName:  d.composer.sender.Name,
		Subject:   row.Subject,
		HTMLBody:  row.HTMLBody,
		MessageID: row.MessageID,
	}

	sendCtx, cancel := context.WithTimeout(ctx, d.cfg.SendTimeout)
	sendErr := d.transport.Send(sendCtx, msg)
	cancel()

	// 关闭过程中被取消的发送不计入重试次数
	if sendErr != nil && ctx.Err() != nil {
		return false, nil
	}

	store := d.db.WithContext(context.WithoutCancel(ctx)).Model(&db.Notification{}).Where("id = ?", row.ID)
	attempts := row.Attempts + 1

	if sendErr == nil {
		sentAt := d.now().UTC()
		if err := store.Updates(map[string]interface{}{
			"status":     db.NotificationSent,
			"attempts":   attempts,
			"sent_at":    sentAt,
			"last_error": "",
		}).Error; err != nil {
			return true, err
		}
		metrics.NotificationsSent.Inc()
		d.log.Info("reply notification sent", zap.Uint("comment_id", row.CommentID), zap.String("message_id", row.MessageID))
		return true, nil
	}

	notifyErr := d.fail(&NotificationError{CommentID: row.CommentID, Err: sendErr})

	status := db.NotificationPending
	if attempts >= d.cfg.MaxAttempts {
		status = db.NotificationFailed
	}
	if err := store.Updates(map[string]interface{}{
		"status":     status,
		"attempts":   attempts,
		"last_error": notifyErr.Error(),
	}).Error; err != nil {
		return false, err
	}
	return false, nil
}

func (d *Dispatcher) fail(err *NotificationError) *NotificationError {
	metrics.NotificationsFailed.WithLabelValues(err.reason()).Inc()
	d.log.Warn("reply notification failed", zap.Uint("comment_id", err.CommentID), zap.Error(err))
	return err
}
