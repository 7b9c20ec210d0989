package handler

import (
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/quillpost/internal/service"
	"go.uber.org/zap"
)

// API bundles shared dependencies for HTTP handlers.
type API struct {
	posts    *service.PostService
	comments *service.CommentService
	users    *service.UserService
	siteName string
	location *time.Location
	log      *zap.Logger
}

// Options 为 NewAPI 的可选配置。
type Options struct {
	SiteName string
	// Location 用于页面上的时间展示，默认美东时区。
	Location *time.Location
	Logger   *zap.Logger
}

// NewAPI constructs a handler set with shared services.
func NewAPI(posts *service.PostService, comments *service.CommentService, users *service.UserService, opts Options) *API {
	if opts.SiteName == "" {
		opts.SiteName = "Quillpost"
	}
	if opts.Location == nil {
		opts.Location = service.EasternZone
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &API{
		posts:    posts,
		comments: comments,
		users:    users,
		siteName: opts.SiteName,
		location: opts.Location,
		log:      opts.Logger,
	}
}

// renderHTML 渲染模板，并附加站点名称、当前用户与一次性提示消息。
func (a *API) renderHTML(c *gin.Context, status int, template string, data gin.H) {
	payload := gin.H{}
	for key, value := range data {
		payload[key] = value
	}

	if _, exists := payload["siteName"]; !exists {
		payload["siteName"] = a.siteName
	}

	identity := currentIdentity(c)
	payload["currentUser"] = identity
	if _, exists := payload["thisUser"]; !exists {
		payload["thisUser"] = identity.OriginalData()
	}

	payload["flashes"] = a.consumeFlashes(c)
	payload["year"] = time.Now().In(a.location).Year()

	c.HTML(status, template, payload)
}

// flashView 是模板中展示的一条提示消息。
type flashView struct {
	Kind    string
	Message string
}

func (a *API) consumeFlashes(c *gin.Context) []flashView {
	session := sessions.Default(c)

	var flashes []flashView
	for _, kind := range []string{flashSuccess, flashWarning, flashError} {
		for _, raw := range session.Flashes(kind) {
			if message, ok := raw.(string); ok {
				flashes = append(flashes, flashView{Kind: kind, Message: message})
			}
		}
	}
	if len(flashes) > 0 {
		if err := session.Save(); err != nil {
			a.log.Warn("failed to save session after reading flashes", zap.Error(err))
		}
	}
	return flashes
}
