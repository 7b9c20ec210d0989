package handler

import (
	"net/http"
	"net/url"
	"testing"

	"github.com/quillpost/internal/db"
	"github.com/quillpost/internal/service"
	"github.com/quillpost/internal/view"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShowIndexListsRecentAndAllPosts(t *testing.T) {
	env := setupHandlerEnv(t, nil)
	env.seedPost(t, "fresh post", env.now.AddDate(0, 0, -1))
	env.seedPost(t, "old post", env.now.AddDate(0, 0, -30))

	rec := env.do(t, http.MethodGet, "/posts", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	name, data := env.html.last()
	assert.Equal(t, "index.html", name)

	recent := data["recentPosts"].([]postSummary)
	require.Len(t, recent, 1)
	assert.Equal(t, "Fresh Post", recent[0].Title)
	assert.Equal(t, "/posts/view/fresh-post", recent[0].URL)

	all := data["posts"].([]postSummary)
	require.Len(t, all, 2)
	assert.Equal(t, "fresh-post", all[0].Slug)
	assert.Equal(t, "old-post", all[1].Slug)

	assert.Nil(t, data["thisUser"])
	assert.Equal(t, false, data["canAddPost"])
}

func TestShowIndexExposesLoggedInUser(t *testing.T) {
	env := setupHandlerEnv(t, nil)
	env.createUser(t, "admin", true)
	cookies := env.login(t, "admin")

	rec := env.do(t, http.MethodGet, "/posts", nil, cookies)
	require.Equal(t, http.StatusOK, rec.Code)

	_, data := env.html.last()
	thisUser, ok := data["thisUser"].(map[string]interface{})
	require.True(t, ok, "thisUser should carry the identity attributes")
	assert.Equal(t, "admin", thisUser["username"])
	assert.Equal(t, true, thisUser["is_admin"])
	assert.Equal(t, true, data["canAddPost"])
}

func TestShowPostRendersDetail(t *testing.T) {
	env := setupHandlerEnv(t, nil)
	post := env.seedPost(t, "hello world", env.now)
	require.NoError(t, env.db.Create(&db.Comment{PostID: post.ID, Content: "first!", Guestname: "visitor", Created: env.now}).Error)

	rec := env.do(t, http.MethodGet, "/posts/view/hello-world", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	name, data := env.html.last()
	assert.Equal(t, "view.html", name)

	detail := data["post"].(view.PostDetail)
	assert.Equal(t, "Hello World", detail.Title)
	require.True(t, detail.HasComments())
	assert.Equal(t, "visitor", detail.Comments[0].Author)
	assert.Equal(t, "2025/06/15-12:00:00", detail.Comments[0].Created)
	assert.Equal(t, "/posts/view/hello-world/comments", detail.Form.Action)
	assert.False(t, detail.Form.Authenticated())
}

func TestShowPostUnknownSlugIs404(t *testing.T) {
	env := setupHandlerEnv(t, nil)

	rec := env.do(t, http.MethodGet, "/posts/view/missing", nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	name, data := env.html.last()
	assert.Equal(t, "error.html", name)
	assert.Equal(t, http.StatusNotFound, data["status"])
}

func TestAddPostRequiresAdmin(t *testing.T) {
	env := setupHandlerEnv(t, nil)
	env.createUser(t, "member", false)
	member := env.login(t, "member")

	cases := map[string][]*http.Cookie{"anonymous": nil, "member": member}
	for name, cookies := range cases {
		t.Run(name, func(t *testing.T) {
			rec := env.do(t, http.MethodGet, "/posts/add", nil, cookies)
			assert.Equal(t, http.StatusForbidden, rec.Code)

			rec = env.do(t, http.MethodPost, "/posts/add", url.Values{"title": {"sneaky"}, "body": {"x"}}, cookies)
			assert.Equal(t, http.StatusForbidden, rec.Code)
		})
	}

	var count int64
	require.NoError(t, env.db.Model(&db.Post{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestAddPostCreatesAndRedirects(t *testing.T) {
	env := setupHandlerEnv(t, nil)
	env.createUser(t, "admin", true)
	cookies := env.login(t, "admin")

	rec := env.do(t, http.MethodGet, "/posts/add", nil, cookies)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodPost, "/posts/add", url.Values{"title": {"this is a title"}, "body": {"some body"}}, cookies)
	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/posts", rec.Header().Get("Location"))

	var stored db.Post
	require.NoError(t, env.db.Where("slug = ?", "this-is-a-title").First(&stored).Error)
	assert.Equal(t, "This Is A Title", stored.Title)

	cookies = mergeCookies(cookies, rec)
	rec = env.do(t, http.MethodGet, "/posts", nil, cookies)
	require.Equal(t, http.StatusOK, rec.Code)
	_, data := env.html.last()
	flashes := data["flashes"].([]flashView)
	require.Len(t, flashes, 1)
	assert.Equal(t, flashView{Kind: flashSuccess, Message: flashPostAdded}, flashes[0])
}

func TestAddPostRerendersFormOnValidationError(t *testing.T) {
	env := setupHandlerEnv(t, nil)
	env.createUser(t, "admin", true)
	cookies := env.login(t, "admin")

	rec := env.do(t, http.MethodPost, "/posts/add", url.Values{"title": {"   "}, "body": {"keep me"}}, cookies)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	name, data := env.html.last()
	assert.Equal(t, "add.html", name)
	assert.Equal(t, service.PostInput{Title: "   ", Body: "keep me"}, data["post"])
	assert.Contains(t, data["errors"], "title")

	flashes := data["flashes"].([]flashView)
	require.Len(t, flashes, 1)
	assert.Equal(t, flashView{Kind: flashError, Message: flashPostNotAdded}, flashes[0])
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	env := setupHandlerEnv(t, nil)
	env.createUser(t, "admin", true)

	rec := env.do(t, http.MethodPost, "/login", url.Values{"username": {"admin"}, "password": {"nope"}}, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	name, data := env.html.last()
	assert.Equal(t, "login.html", name)
	assert.Equal(t, "admin", data["username"])
	assert.NotEmpty(t, data["error"])
}

func TestLogoutClearsIdentity(t *testing.T) {
	env := setupHandlerEnv(t, nil)
	env.createUser(t, "admin", true)
	cookies := env.login(t, "admin")

	rec := env.do(t, http.MethodGet, "/logout", nil, cookies)
	require.Equal(t, http.StatusFound, rec.Code)
	cookies = mergeCookies(cookies, rec)

	rec = env.do(t, http.MethodGet, "/posts/add", nil, cookies)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestSafeRedirect(t *testing.T) {
	cases := map[string]string{
		"":                   "/posts",
		"/posts/add":         "/posts/add",
		"//evil.example.com": "/posts",
		"https://evil.com":   "/posts",
		"/\\evil.example":    "/posts",
	}
	for in, want := range cases {
		assert.Equal(t, want, safeRedirect(in), "input %q", in)
	}
}

