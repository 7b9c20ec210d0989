package mailer

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"strings"

	"github.com/google/uuid"
	"github.com/quillpost/internal/db"
)

// ReplySubject is the subject line of every reply notification.
const ReplySubject = "Someone replied to your comment"

//go:embed templates/*.html
var templateFS embed.FS

var replyTemplate = template.Must(template.ParseFS(templateFS, "templates/reply.html"))

// replyNamespace seeds deterministic Message-IDs so a resent notification is recognisably the same mail.
var replyNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("quillpost:reply-notification"))

// PostURLer builds the canonical URL of a post from its slug.
type PostURLer interface {
	PostURL(slug string) string
}

// Sender is the fixed From address of notifications.
type Sender struct {
	Address string
	Name    string
}

// ReplyComposer turns a reply comment into a notification message.
type ReplyComposer struct {
	sender Sender
	urls   PostURLer
}

// NewReplyComposer creates a ReplyComposer.
func NewReplyComposer(sender Sender, urls PostURLer) *ReplyComposer {
	return &ReplyComposer{sender: sender, urls: urls}
}

type replyView struct {
	Replier string
	PostURL string
	Content string
}

// Compose builds the notification for comment. The comment must have Post,
// Parent and Parent.User loaded, and User when it was written by a member.
func (c *ReplyComposer) Compose(comment *db.Comment) (Message, error) {
	if comment == nil || !comment.IsReply() {
		return Message{}, ErrNotReply
	}

	recipient, err := replyTarget(comment)
	if err != nil {
		return Message{}, err
	}

	if comment.Post == nil {
		return Message{}, fmt.Errorf("comment %d has no post loaded", comment.ID)
	}

	view := replyView{
		Replier: replierName(comment),
		PostURL: c.urls.PostURL(comment.Post.Slug),
		Content: comment.Content,
	}

	var body bytes.Buffer
	if err := replyTemplate.Execute(&body, view); err != nil {
		return Message{}, fmt.Errorf("render reply template: %w", err)
	}

	msg := Message{
		To:        recipient,
		From:      c.sender.Address,
		FromName:  c.sender.Name,
		Subject:   ReplySubject,
		HTMLBody:  body.String(),
		MessageID: ReplyMessageID(comment.ID, c.sender.Address),
	}
	if err := msg.Validate(); err != nil {
		return Message{}, err
	}
	return msg, nil
}

// ReplyMessageID returns the stable Message-ID for the notification of commentID.
func ReplyMessageID(commentID uint, senderAddress string) string {
	domain := "localhost"
	if at := strings.LastIndex(senderAddress, "@"); at >= 0 && at < len(senderAddress)-1 {
		domain = senderAddress[at+1:]
	}
	id := uuid.NewSHA1(replyNamespace, []byte(fmt.Sprintf("comment-%d", commentID)))
	return fmt.Sprintf("<%s@%s>", id.String(), domain)
}

// replyTarget resolves the e-mail of the replied-to comment's registered author.
func replyTarget(comment *db.Comment) (string, error) {
	parent := comment.Parent
	if parent == nil || parent.UserID == nil || parent.User == nil {
		return "", ErrNoRecipient
	}
	email := strings.TrimSpace(parent.User.Email)
	if email == "" {
		return "", ErrNoRecipient
	}
	return email, nil
}

// replierName is the display name of the reply's own author.
func replierName(comment *db.Comment) string {
	if name := comment.AuthorName(); name != "" {
		return name
	}
	return "Someone"
}
