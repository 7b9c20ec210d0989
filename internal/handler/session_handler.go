package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/quillpost/internal/service"
	"go.uber.org/zap"
)

const (
	sessionUserIDKey   = "user_id"
	identityContextKey = "__identity"

	flashSuccess = "success"
	flashWarning = "warning"
	flashError   = "error"
)

// LoadIdentity 从会话中恢复当前登录用户，并放入请求上下文。
// 会话中的用户不存在时清空会话，按匿名访问处理。
func (a *API) LoadIdentity() gin.HandlerFunc {
	return func(c *gin.Context) {
		session := sessions.Default(c)
		userID, ok := session.Get(sessionUserIDKey).(uint)
		if !ok || userID == 0 {
			c.Next()
			return
		}

		identity, err := a.users.IdentityByID(c.Request.Context(), userID)
		switch {
		case err == nil:
			c.Set(identityContextKey, identity)
		case errors.Is(err, service.ErrNotFound):
			session.Clear()
			if err := session.Save(); err != nil {
				a.log.Warn("failed to clear stale session", zap.Error(err))
			}
		default:
			a.log.Error("failed to load session identity", zap.Uint("user_id", userID), zap.Error(err))
		}
		c.Next()
	}
}

// currentIdentity 返回当前请求的登录用户，匿名访问时为 nil。
func currentIdentity(c *gin.Context) *service.Identity {
	value, exists := c.Get(identityContextKey)
	if !exists {
		return nil
	}
	identity, _ := value.(*service.Identity)
	return identity
}

func addFlash(c *gin.Context, kind, message string) {
	sessions.Default(c).AddFlash(message, kind)
}

// saveFlashes 持久化会话中的提示消息，供重定向后的页面展示。
func (a *API) saveFlashes(c *gin.Context) {
	if err := sessions.Default(c).Save(); err != nil {
		a.log.Warn("failed to save flash messages", zap.Error(err))
	}
}

// ShowLoginPage 渲染登录页面
func (a *API) ShowLoginPage(c *gin.Context) {
	a.renderHTML(c, http.StatusOK, "login.html", gin.H{
		"title":    "Login",
		"redirect": safeRedirect(c.Query("redirect")),
	})
}

// Login 校验用户名与密码，成功后写入会话并跳转。
func (a *API) Login(c *gin.Context) {
	username := c.PostForm("username")
	password := c.PostForm("password")
	redirect := safeRedirect(c.PostForm("redirect"))

	identity, err := a.users.Authenticate(c.Request.Context(), username, password)
	if err != nil {
		status := http.StatusUnauthorized
		message := "Invalid username or password"
		if !errors.Is(err, service.ErrInvalidLogin) {
			a.log.Error("login failed", zap.String("username", username), zap.Error(err))
			status = http.StatusInternalServerError
			message = "Login is unavailable right now"
		}
		a.renderHTML(c, status, "login.html", gin.H{
			"title":    "Login",
			"error":    message,
			"username": username,
			"redirect": redirect,
		})
		return
	}

	session := sessions.Default(c)
	session.Set(sessionUserIDKey, identity.ID)
	if err := session.Save(); err != nil {
		a.renderError(c, err)
		return
	}

	a.log.Info("user logged in", zap.String("username", identity.Username))
	c.Redirect(http.StatusFound, redirect)
}

// Logout 清空会话
func (a *API) Logout(c *gin.Context) {
	session := sessions.Default(c)
	session.Clear()
	if err := session.Save(); err != nil {
		a.log.Warn("failed to clear session", zap.Error(err))
	}
	c.Redirect(http.StatusFound, "/posts")
}

// safeRedirect 只接受站内路径，防止开放重定向。
func safeRedirect(target string) string {
	target = strings.TrimSpace(target)
	if !strings.HasPrefix(target, "/") || strings.HasPrefix(target, "//") || strings.HasPrefix(target, "/\\") {
		return "/posts"
	}
	return target
}
