package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/quillpost/internal/db"
	"github.com/quillpost/internal/service"
	"github.com/quillpost/internal/view"
	"go.uber.org/zap"
)

const (
	flashPostAdded     = "Successfully added a new post!"
	flashPostNotAdded  = "Could not add a new post"
	flashCommentAdded  = "Your comment has been posted."
	flashReplyNotified = "Your comment has been posted, but the author of the replied comment could not be notified."
)

// postSummary 是列表中的单篇文章。
type postSummary struct {
	Title   string
	Slug    string
	URL     string
	Created string
}

func (a *API) summarize(posts []db.Post) []postSummary {
	items := make([]postSummary, 0, len(posts))
	for _, post := range posts {
		items = append(items, postSummary{
			Title:   post.Title,
			Slug:    post.Slug,
			URL:     service.PostPath(post.Slug),
			Created: post.Created.In(a.location).Format(view.PostTimeLayout),
		})
	}
	return items
}

// ShowIndex 渲染首页：最近一周内的文章、分页的全部文章以及当前用户。
func (a *API) ShowIndex(c *gin.Context) {
	ctx := c.Request.Context()

	recent, err := a.posts.Recent(ctx)
	if err != nil {
		a.renderError(c, err)
		return
	}

	page := parsePositiveInt(c.DefaultQuery("page", "1"), 1)
	list, err := a.posts.List(ctx, page, 0)
	if err != nil {
		a.renderError(c, err)
		return
	}

	identity := currentIdentity(c)
	a.renderHTML(c, http.StatusOK, "index.html", gin.H{
		"title":       "Posts",
		"recentPosts": a.summarize(recent),
		"posts":       a.summarize(list.Posts),
		"page":        list.Page,
		"totalPages":  list.TotalPages,
		"hasPrev":     list.Page > 1,
		"hasMore":     list.Page < list.TotalPages,
		"canAddPost":  a.posts.CanCreate(identity) == nil,
	})
}

// ShowPost 渲染文章详情页与评论。
func (a *API) ShowPost(c *gin.Context) {
	post, err := a.posts.GetBySlug(c.Request.Context(), c.Param("slug"))
	if err != nil {
		a.renderError(c, err)
		return
	}
	a.renderPost(c, http.StatusOK, post, commentFormState{})
}

// commentFormState 保存评论表单的回填数据。
type commentFormState struct {
	guestname string
	content   string
	errors    map[string]string
}

func (a *API) renderPost(c *gin.Context, status int, post *db.Post, form commentFormState) {
	comments, err := a.comments.ListForPost(c.Request.Context(), post.ID)
	if err != nil {
		a.renderError(c, err)
		return
	}

	detail, err := view.BuildPostDetail(view.PostDetailInput{
		Post:       post,
		Comments:   comments,
		Viewer:     currentIdentity(c),
		Location:   a.location,
		FormAction: service.PostPath(post.Slug) + "/comments",
		Guestname:  form.guestname,
		Content:    form.content,
		FormErrors: form.errors,
	})
	if err != nil {
		a.renderError(c, err)
		return
	}

	a.renderHTML(c, status, "view.html", gin.H{
		"title": post.Title,
		"post":  detail,
	})
}

// ShowAddPost 渲染新建文章表单，仅管理员可见。
func (a *API) ShowAddPost(c *gin.Context) {
	if err := a.posts.CanCreate(currentIdentity(c)); err != nil {
		a.renderError(c, err)
		return
	}
	a.renderHTML(c, http.StatusOK, "add.html", gin.H{
		"title": "Add Post",
		"post":  service.PostInput{},
	})
}

// AddPost 创建文章。成功后跳转到列表页；校验或保存失败时带着已填写的内容重新渲染表单。
func (a *API) AddPost(c *gin.Context) {
	input := service.PostInput{
		Title: c.PostForm("title"),
		Body:  c.PostForm("body"),
	}

	identity := currentIdentity(c)
	post, err := a.posts.Create(c.Request.Context(), identity, input)
	if err != nil {
		if !errors.Is(err, service.ErrValidation) {
			a.renderError(c, err)
			return
		}

		a.log.Info("post rejected", zap.Error(err))
		addFlash(c, flashError, flashPostNotAdded)
		a.renderHTML(c, http.StatusUnprocessableEntity, "add.html", gin.H{
			"title":  "Add Post",
			"post":   input,
			"errors": validationFields(err),
		})
		return
	}

	a.log.Info("post created", zap.Uint("post_id", post.ID), zap.String("slug", post.Slug), zap.String("author", identity.Username))
	addFlash(c, flashSuccess, flashPostAdded)
	a.saveFlashes(c)
	c.Redirect(http.StatusFound, "/posts")
}
