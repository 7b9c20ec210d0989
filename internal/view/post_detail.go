package view

import (
	"html/template"
	"time"

	"github.com/quillpost/internal/db"
	"github.com/quillpost/internal/service"
)

const (
	// CommentTimeLayout 是评论时间的固定展示格式（YYYY/MM/DD-HH:MM:SS）。
	CommentTimeLayout = "2006/01/02-15:04:05"
	// PostTimeLayout 是文章创建时间的展示格式。
	PostTimeLayout = time.RFC850
	// NoCommentsMessage 在没有评论时代替评论列表展示。
	NoCommentsMessage = "No comments so far... Please dump any comment (-_-)"
)

// CommentView 是单条评论的展示数据。
type CommentView struct {
	ID      uint
	Author  string
	Created string
	Content string
	IsReply bool
}

// CommentForm 描述评论表单。Username 非空表示已登录：用户名字段预填并禁用；
// 否则展示可编辑的访客名字段。
type CommentForm struct {
	Action    string
	Username  *string
	Guestname string
	Content   string
	Errors    map[string]string
}

// Authenticated 报告表单是否面向已登录用户。
func (f CommentForm) Authenticated() bool {
	return f.Username != nil
}

// PostDetail 是文章详情页的视图模型。
type PostDetail struct {
	Title        string
	Slug         string
	Created      string
	BodyHTML     template.HTML
	Comments     []CommentView
	EmptyMessage string
	Form         CommentForm
}

// HasComments 报告是否存在评论。
func (p PostDetail) HasComments() bool {
	return len(p.Comments) > 0
}

// PostDetailInput 汇总构建详情页所需的数据。
type PostDetailInput struct {
	Post     *db.Post
	Comments []db.Comment
	Viewer   *service.Identity
	Location *time.Location
	// FormAction 为评论提交地址。
	FormAction string
	// Guestname 与 Content 用于校验失败后回填表单。
	Guestname  string
	Content    string
	FormErrors map[string]string
}

// BuildPostDetail 组装文章详情页的视图模型，评论按传入顺序展示。
func BuildPostDetail(in PostDetailInput) (PostDetail, error) {
	loc := in.Location
	if loc == nil {
		loc = service.EasternZone
	}

	body, err := RenderBody(in.Post.Body)
	if err != nil {
		return PostDetail{}, err
	}

	comments := make([]CommentView, 0, len(in.Comments))
	for i := range in.Comments {
		c := &in.Comments[i]
		comments = append(comments, CommentView{
			ID:      c.ID,
			Author:  c.AuthorName(),
			Created: c.Created.In(loc).Format(CommentTimeLayout),
			Content: c.Content,
			IsReply: c.IsReply(),
		})
	}

	form := CommentForm{
		Action:    in.FormAction,
		Guestname: in.Guestname,
		Content:   in.Content,
		Errors:    in.FormErrors,
	}
	if in.Viewer != nil {
		username := in.Viewer.Username
		form.Username = &username
		form.Guestname = ""
	}

	detail := PostDetail{
		Title:    in.Post.Title,
		Slug:     in.Post.Slug,
		Created:  in.Post.Created.In(loc).Format(PostTimeLayout),
		BodyHTML: body,
		Comments: comments,
		Form:     form,
	}
	if len(comments) == 0 {
		detail.EmptyMessage = NoCommentsMessage
	}
	return detail, nil
}
