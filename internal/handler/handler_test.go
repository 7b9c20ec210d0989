package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/render"
	"github.com/quillpost/internal/db"
	"github.com/quillpost/internal/service"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type stubHTMLRender struct {
	mu       sync.Mutex
	name     string
	data     gin.H
	rendered int
}

type stubHTMLInstance struct{}

func (r *stubHTMLRender) Instance(name string, data interface{}) render.Render {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.name = name
	r.data, _ = data.(gin.H)
	r.rendered++
	return &stubHTMLInstance{}
}

func (r *stubHTMLRender) last() (string, gin.H) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.name, r.data
}

func (r *stubHTMLInstance) Render(http.ResponseWriter) error {
	return nil
}

func (r *stubHTMLInstance) WriteContentType(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
}

type handlerEnv struct {
	router *gin.Engine
	db     *gorm.DB
	html   *stubHTMLRender
	now    time.Time
}

type failingNotifier struct{}

func (failingNotifier) NotifyReply(context.Context, *db.Comment) error {
	return errors.New("smtp relay unreachable")
}

func setupHandlerEnv(t *testing.T, notifier service.ReplyNotifier) *handlerEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:handler-%d?mode=memory&cache=shared", time.Now().UnixNano())
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	if err := db.Migrate(gdb); err != nil {
		t.Fatalf("failed to migrate test db: %v", err)
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	clock := service.WithClock(service.ClockFunc(func() time.Time { return now }))

	env := &handlerEnv{db: gdb, html: &stubHTMLRender{}, now: now}
	api := NewAPI(
		service.NewPostService(gdb, nil, clock),
		service.NewCommentService(gdb, notifier, nil, clock),
		service.NewUserService(gdb),
		Options{Location: time.UTC},
	)

	r := gin.New()
	r.HTMLRender = env.html
	r.Use(sessions.Sessions("quillpost_session", cookie.NewStore([]byte("test-secret"))))
	r.Use(api.LoadIdentity())
	r.GET("/posts", api.ShowIndex)
	r.GET("/posts/view/:slug", api.ShowPost)
	r.POST("/posts/view/:slug/comments", api.CreateComment)
	r.GET("/posts/add", api.ShowAddPost)
	r.POST("/posts/add", api.AddPost)
	r.POST("/login", api.Login)
	r.GET("/logout", api.Logout)
	env.router = r
	return env
}

func (e *handlerEnv) createUser(t *testing.T, username string, admin bool) db.User {
	t.Helper()
	hashed, err := bcrypt.GenerateFromPassword([]byte("password"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	user := db.User{Username: username, Email: username + "@example.com", Password: string(hashed), IsAdmin: admin}
	if err := e.db.Create(&user).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	return user
}

// login 登录并返回会话 Cookie。
func (e *handlerEnv) login(t *testing.T, username string) []*http.Cookie {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/login", url.Values{"username": {username}, "password": {"password"}}, nil)
	if rec.Code != http.StatusFound {
		t.Fatalf("login %s: expected 302, got %d", username, rec.Code)
	}
	cookies := rec.Result().Cookies()
	if len(cookies) == 0 {
		t.Fatalf("login %s: no session cookie", username)
	}
	return cookies
}

func (e *handlerEnv) do(t *testing.T, method, target string, form url.Values, cookies []*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if form != nil {
		req = httptest.NewRequest(method, target, strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func (e *handlerEnv) seedPost(t *testing.T, title string, created time.Time) db.Post {
	t.Helper()
	post := db.Post{Title: service.TitleCase(title), Slug: service.Slugify(title), Body: "Body of " + title, Created: created}
	require.NoError(t, e.db.Create(&post).Error)
	return post
}

// mergeCookies 用响应中更新过的 Cookie 覆盖旧值。
func mergeCookies(current []*http.Cookie, rec *httptest.ResponseRecorder) []*http.Cookie {
	byName := map[string]*http.Cookie{}
	for _, c := range current {
		byName[c.Name] = c
	}
	for _, c := range rec.Result().Cookies() {
		byName[c.Name] = c
	}
	merged := make([]*http.Cookie, 0, len(byName))
	for _, c := range byName {
		merged = append(merged, c)
	}
	return merged
}
