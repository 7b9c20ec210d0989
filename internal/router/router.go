package router

import (
	"html/template"
	"net/http"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/quillpost/internal/handler"
	"github.com/quillpost/internal/metrics"
	"github.com/quillpost/web"
	"go.uber.org/zap"
)

const sessionCookieName = "quillpost_session"

// Options 为 SetupRouter 的配置。
type Options struct {
	SessionSecret string
	// SecureCookies 为 true 时会话 Cookie 仅通过 HTTPS 发送，并附加 HSTS 头。
	SecureCookies bool
	Logger        *zap.Logger
}

// SetupRouter 配置 Gin 引擎和路由
func SetupRouter(api *handler.API, opts Options) (*gin.Engine, error) {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	r := gin.New()
	// slug 可能含有 '/'，按原始路径匹配后再解码参数
	r.UseRawPath = true
	r.UnescapePathValues = true
	r.Use(requestLogger(log), gin.Recovery(), metrics.Middleware(), securityHeaders(opts.SecureCookies))

	// 配置会话中间件
	store := cookie.NewStore([]byte(opts.SessionSecret))
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   7 * 24 * 60 * 60,
		HttpOnly: true,
		Secure:   opts.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
	r.Use(sessions.Sessions(sessionCookieName, store))
	r.Use(api.LoadIdentity())

	// 加载模板并添加自定义函数
	templates, err := web.Templates(template.FuncMap{
		"add": func(a, b int) int {
			return a + b
		},
		"sub": func(a, b int) int {
			return a - b
		},
	})
	if err != nil {
		return nil, err
	}
	r.SetHTMLTemplate(templates)

	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "pong",
		})
	})
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	r.GET("/", api.ShowIndex)
	r.GET("/login", api.ShowLoginPage)
	r.POST("/login", api.Login)
	r.GET("/logout", api.Logout)

	posts := r.Group("/posts")
	{
		posts.GET("", api.ShowIndex)
		posts.GET("/index", api.ShowIndex)
		posts.GET("/view/:slug", api.ShowPost)
		posts.POST("/view/:slug/comments", api.CreateComment)
		posts.GET("/add", api.ShowAddPost)
		posts.POST("/add", api.AddPost)
	}

	return r, nil
}

// requestLogger 以结构化字段记录每个请求。
func requestLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		}
		if errs := c.Errors.ByType(gin.ErrorTypePrivate).String(); errs != "" {
			fields = append(fields, zap.String("errors", errs))
		}

		switch status := c.Writer.Status(); {
		case status >= http.StatusInternalServerError:
			log.Error("request", fields...)
		case status >= http.StatusBadRequest:
			log.Warn("request", fields...)
		default:
			log.Info("request", fields...)
		}
	}
}

func securityHeaders(https bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		headers := c.Writer.Header()
		headers.Set("X-Frame-Options", "DENY")
		headers.Set("X-Content-Type-Options", "nosniff")
		headers.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		if https {
			headers.Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}
		c.Next()
	}
}
