package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/quillpost/internal/mailer"
	"github.com/quillpost/internal/service"
)

// CreateComment 在文章下发表评论。回复通知失败不影响评论本身，仅给出提示。
func (a *API) CreateComment(c *gin.Context) {
	slug := c.Param("slug")
	form := commentFormState{
		guestname: c.PostForm("guestname"),
		content:   c.PostForm("content"),
	}

	input := service.CommentInput{
		PostSlug:  slug,
		Content:   form.content,
		Guestname: form.guestname,
	}
	if raw := strings.TrimSpace(c.PostForm("parent_id")); raw != "" {
		input.ParentID = parseOptionalUint(raw)
		if input.ParentID == nil {
			a.rejectComment(c, slug, form, map[string]string{"parent_id": "replied comment is invalid"})
			return
		}
	}

	_, err := a.comments.Create(c.Request.Context(), currentIdentity(c), input)
	var notifyErr *mailer.NotificationError
	switch {
	case err == nil:
		addFlash(c, flashSuccess, flashCommentAdded)
	case errors.As(err, &notifyErr):
		addFlash(c, flashWarning, flashReplyNotified)
	case errors.Is(err, service.ErrValidation):
		a.rejectComment(c, slug, form, validationFields(err))
		return
	default:
		a.renderError(c, err)
		return
	}

	a.saveFlashes(c)
	c.Redirect(http.StatusFound, service.PostPath(slug))
}

func (a *API) rejectComment(c *gin.Context, slug string, form commentFormState, fields map[string]string) {
	post, err := a.posts.GetBySlug(c.Request.Context(), slug)
	if err != nil {
		a.renderError(c, err)
		return
	}
	form.errors = fields
	addFlash(c, flashError, "Your comment could not be posted.")
	a.renderPost(c, http.StatusUnprocessableEntity, post, form)
}
