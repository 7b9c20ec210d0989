package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/quillpost/internal/db"
	"github.com/quillpost/internal/mailer"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ReplyNotifier is told about every newly persisted reply comment.
type ReplyNotifier interface {
	NotifyReply(ctx context.Context, comment *db.Comment) error
}

// CommentService handles comment creation and listing.
type CommentService struct {
	db       *gorm.DB
	notifier ReplyNotifier
	clock    Clock
	log      *zap.Logger
}

// CommentInput represents a submitted comment.
type CommentInput struct {
	PostSlug  string
	Content   string `validate:"required,max=5000"`
	Guestname string `validate:"max=64"`
	ParentID  *uint
}

// NewCommentService creates a CommentService. notifier may be nil, in which case replies are not announced.
func NewCommentService(gdb *gorm.DB, notifier ReplyNotifier, log *zap.Logger, opts ...Option) *CommentService {
	o := applyOptions(opts)
	if log == nil {
		log = zap.NewNop()
	}
	return &CommentService{db: gdb, notifier: notifier, clock: o.clock, log: log}
}

// Create persists a comment on the post identified by input.PostSlug.
//
// When the comment is a reply the notifier is invoked after the comment is
// stored. A notifier failure does not undo the comment: the saved comment is
// returned together with a *mailer.NotificationError.
func (s *CommentService) Create(ctx context.Context, identity *Identity, input CommentInput) (*db.Comment, error) {
	if err := validateStruct(input); err != nil {
		return nil, err
	}
	content := strings.TrimSpace(input.Content)
	if content == "" {
		return nil, fieldError("content", "content is required")
	}

	var post db.Post
	if err := s.db.WithContext(ctx).Where("slug = ?", input.PostSlug).First(&post).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{Resource: "post", Key: input.PostSlug}
		}
		return nil, err
	}

	comment := &db.Comment{
		Content: content,
		PostID:  post.ID,
		Created: s.clock.Now().UTC(),
	}

	if identity != nil {
		userID := identity.ID
		comment.UserID = &userID
	} else {
		guestname := strings.TrimSpace(input.Guestname)
		if guestname == "" {
			return nil, fieldError("guestname", "guestname is required")
		}
		comment.Guestname = guestname
	}

	if input.ParentID != nil {
		var parent db.Comment
		if err := s.db.WithContext(ctx).First(&parent, *input.ParentID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, fieldError("parent_id", "replied comment does not exist")
			}
			return nil, err
		}
		if parent.PostID != post.ID {
			return nil, fieldError("parent_id", "replied comment belongs to another post")
		}
		parentID := parent.ID
		comment.ParentID = &parentID
	}

	if err := s.db.WithContext(ctx).Create(comment).Error; err != nil {
		return nil, &ValidationError{Err: fmt.Errorf("save comment: %w", err)}
	}

	if !comment.IsReply() || s.notifier == nil {
		return comment, nil
	}

	if err := s.notify(ctx, comment.ID); err != nil {
		s.log.Warn("reply notification failed",
			zap.Uint("comment_id", comment.ID),
			zap.Uint("post_id", post.ID),
			zap.Error(err))
		return comment, err
	}
	return comment, nil
}

func (s *CommentService) notify(ctx context.Context, commentID uint) error {
	var loaded db.Comment
	if err := s.db.WithContext(ctx).
		Preload("User").
		Preload("Post").
		Preload("Parent.User").
		First(&loaded, commentID).Error; err != nil {
		return &mailer.NotificationError{CommentID: commentID, Err: err}
	}

	err := s.notifier.NotifyReply(ctx, &loaded)
	if err == nil {
		return nil
	}

	var notifyErr *mailer.NotificationError
	if errors.As(err, &notifyErr) {
		return err
	}
	return &mailer.NotificationError{CommentID: commentID, Err: err}
}

// ListForPost returns the comments of a post in chronological order.
func (s *CommentService) ListForPost(ctx context.Context, postID uint) ([]db.Comment, error) {
	var comments []db.Comment
	if err := s.db.WithContext(ctx).
		Preload("User").
		Where("post_id = ?", postID).
		Order("created asc").
		Order("id asc").
		Find(&comments).Error; err != nil {
		return nil, err
	}
	return comments, nil
}
