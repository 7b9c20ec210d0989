package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/quillpost/internal/db"
	"gorm.io/gorm"
)

const (
	// RecentLimit caps the number of posts in the recent window.
	RecentLimit = 3
	// RecentWindowDays is the lookback of the recent window in calendar days.
	RecentWindowDays = 7
	// DefaultPageSize is used when no page size is configured.
	DefaultPageSize = 20
)

// PostService wraps post related database operations.
type PostService struct {
	db       *gorm.DB
	authz    Authorizer
	clock    Clock
	pageSize int
}

// PostListResult aggregates paginated list data.
type PostListResult struct {
	Posts      []db.Post
	Total      int64
	TotalPages int
	Page       int
	PerPage    int
}

// PostInput represents fields accepted when creating a post.
type PostInput struct {
	Title string `validate:"required,max=255"`
	Body  string `validate:"required"`
}

// Option customises a service.
type Option func(*options)

type options struct {
	clock    Clock
	pageSize int
}

// WithClock replaces the system clock.
func WithClock(clock Clock) Option {
	return func(o *options) {
		if clock != nil {
			o.clock = clock
		}
	}
}

// WithPageSize sets the default page size used by List.
func WithPageSize(size int) Option {
	return func(o *options) {
		if size > 0 {
			o.pageSize = size
		}
	}
}

func applyOptions(opts []Option) options {
	o := options{clock: SystemClock, pageSize: DefaultPageSize}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// NewPostService creates a PostService instance.
func NewPostService(gdb *gorm.DB, authz Authorizer, opts ...Option) *PostService {
	o := applyOptions(opts)
	if authz == nil {
		authz = RoleAuthorizer{}
	}
	return &PostService{db: gdb, authz: authz, clock: o.clock, pageSize: o.pageSize}
}

// PageSize reports the configured default page size.
func (s *PostService) PageSize() int {
	return s.pageSize
}

// RecentBoundary returns the earliest creation time included in the recent window.
// The subtraction is done in US Eastern calendar days, so DST shifts do not move it.
// The boundary keeps the current time of day instead of snapping to midnight:
// posts created earlier on the seventh day back fall outside the window.
func RecentBoundary(now time.Time) time.Time {
	return now.In(EasternZone).AddDate(0, 0, -RecentWindowDays)
}

// Recent returns up to three posts created within the last week, newest first.
func (s *PostService) Recent(ctx context.Context) ([]db.Post, error) {
	boundary := RecentBoundary(s.clock.Now())

	var posts []db.Post
	if err := s.db.WithContext(ctx).
		Where("created >= ?", boundary.UTC()).
		Order("created desc").
		Order("id asc").
		Limit(RecentLimit).
		Find(&posts).Error; err != nil {
		return nil, err
	}
	return posts, nil
}

// List returns all posts ordered by creation time descending, one page at a time.
func (s *PostService) List(ctx context.Context, page, perPage int) (*PostListResult, error) {
	result := &PostListResult{Page: page, PerPage: perPage}
	if result.Page <= 0 {
		result.Page = 1
	}
	if result.PerPage <= 0 {
		result.PerPage = s.pageSize
	}

	if err := s.db.WithContext(ctx).Model(&db.Post{}).Count(&result.Total).Error; err != nil {
		return nil, err
	}

	offset := (result.Page - 1) * result.PerPage

	var posts []db.Post
	if err := s.db.WithContext(ctx).
		Order("created desc").
		Order("id asc").
		Limit(result.PerPage).
		Offset(offset).
		Find(&posts).Error; err != nil {
		return nil, err
	}

	if result.Total == 0 {
		result.TotalPages = 1
	} else {
		result.TotalPages = int((result.Total + int64(result.PerPage) - 1) / int64(result.PerPage))
	}

	result.Posts = posts
	return result, nil
}

// GetBySlug fetches the post whose slug matches exactly.
func (s *PostService) GetBySlug(ctx context.Context, slug string) (*db.Post, error) {
	var post db.Post
	if err := s.db.WithContext(ctx).Where("slug = ?", slug).Order("id asc").First(&post).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{Resource: "post", Key: slug}
		}
		return nil, err
	}
	return &post, nil
}

// CanCreate reports whether identity may create posts.
func (s *PostService) CanCreate(identity *Identity) error {
	return s.authz.Authorize(identity, CapabilityBeAdmin)
}

// Create persists a new post on behalf of an admin identity.
//
// The slug is derived from the raw title before title casing. On a validation
// or save failure the unsaved post is returned together with a *ValidationError
// so the caller can re-render the form.
func (s *PostService) Create(ctx context.Context, identity *Identity, input PostInput) (*db.Post, error) {
	if err := s.CanCreate(identity); err != nil {
		return nil, err
	}

	post := &db.Post{
		Title: TitleCase(input.Title),
		Slug:  Slugify(input.Title),
		Body:  input.Body,
	}

	if err := validateStruct(input); err != nil {
		return post, err
	}
	if strings.TrimSpace(input.Title) == "" {
		return post, fieldError("title", "title is required")
	}

	post.Created = s.clock.Now().UTC()

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		slug, err := uniqueSlug(tx, post.Slug)
		if err != nil {
			return err
		}
		post.Slug = slug
		return tx.Create(post).Error
	})
	if err != nil {
		post.ID = 0
		return post, &ValidationError{Err: fmt.Errorf("save post: %w", err)}
	}

	return post, nil
}

// uniqueSlug appends -2, -3, ... to base until no stored post (soft-deleted included) uses it.
func uniqueSlug(tx *gorm.DB, base string) (string, error) {
	candidate := base
	for n := 2; ; n++ {
		var count int64
		if err := tx.Unscoped().Model(&db.Post{}).Where("slug = ?", candidate).Count(&count).Error; err != nil {
			return "", err
		}
		if count == 0 {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d", base, n)
	}
}
