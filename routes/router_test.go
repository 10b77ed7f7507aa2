package routes

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/cppla/teyvattales/config"
	"github.com/cppla/teyvattales/models"
	"github.com/cppla/teyvattales/storage"
	"github.com/cppla/teyvattales/utils"
)

const cookieName = "teyvat_sid"

func newTestRouter(t *testing.T) (*gin.Engine, *gorm.DB) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, config.Migrate(db))

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	cfg := config.AppConfig{
		ForumName:          "Teyvat Tales",
		GinMode:            "test",
		RateLimitPerMinute: 1000,
		AllowedOrigins:     []string{"*"},
		SessionCookieName:  cookieName,
	}
	r, err := SetupRouter(cfg, Deps{
		DB:       db,
		Sessions: utils.NewSessionStore(rdb, "test-secret", 10*time.Minute),
		Files:    storage.NewLocalStore(t.TempDir(), "/uploads", 1<<20),
	})
	require.NoError(t, err)
	return r, db
}

// client replays the session cookie the way a browser would.
type client struct {
	t      *testing.T
	r      *gin.Engine
	cookie *http.Cookie
}

func (c *client) do(req *http.Request) *httptest.ResponseRecorder {
	c.t.Helper()
	if c.cookie != nil {
		req.AddCookie(c.cookie)
	}
	w := httptest.NewRecorder()
	c.r.ServeHTTP(w, req)
	for _, ck := range w.Result().Cookies() {
		if ck.Name != cookieName {
			continue
		}
		if ck.MaxAge < 0 {
			c.cookie = nil
		} else {
			c.cookie = ck
		}
	}
	return w
}

func (c *client) get(path string) *httptest.ResponseRecorder {
	return c.do(httptest.NewRequest(http.MethodGet, path, nil))
}

func (c *client) postForm(path string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.do(req)
}

func (c *client) postMultipart(path string, fields map[string]string, fileField, filename string, file []byte) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(c.t, mw.WriteField(k, v))
	}
	if fileField != "" {
		part, err := mw.CreateFormFile(fileField, filename)
		require.NoError(c.t, err)
		_, err = part.Write(file)
		require.NoError(c.t, err)
	}
	require.NoError(c.t, mw.Close())
	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return c.do(req)
}

func (c *client) registerAndLogin(username string) {
	c.t.Helper()
	w := c.postForm("/register", url.Values{
		"first": {"F"}, "last": {"L"}, "email": {username + "@x.com"}, "username": {username}, "password": {"pw-" + username},
	})
	require.Equal(c.t, http.StatusOK, w.Code)
	require.Contains(c.t, w.Body.String(), "Welcome "+username+"!")
	w = c.postForm("/login", url.Values{"username": {username}, "password": {"pw-" + username}})
	require.Equal(c.t, http.StatusFound, w.Code)
	require.NotNil(c.t, c.cookie)
}

func messageOf(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Message string `json:"message"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body.Message
}

func TestPagesAndOperationalEndpoints(t *testing.T) {
	r, _ := newTestRouter(t)
	anon := &client{t: t, r: r}

	for _, path := range []string{"/", "/about", "/contact", "/characters", "/login", "/register", "/posts"} {
		w := anon.get(path)
		assert.Equal(t, http.StatusOK, w.Code, path)
		assert.Contains(t, w.Body.String(), "Teyvat Tales", path)
	}

	w := anon.get("/health")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())

	w = anon.get("/metrics")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "teyvat_http_requests_total")

	w = anon.get("/no-such-page")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "Page not found")

	for _, path := range []string{"/createPost", "/myAccount", "/edit-post/1"} {
		w = anon.get(path)
		assert.Equal(t, http.StatusFound, w.Code, path)
		assert.Equal(t, "/login", w.Header().Get("Location"), path)
	}
}

func TestRegisterAndLoginForms(t *testing.T) {
	r, _ := newTestRouter(t)
	c := &client{t: t, r: r}
	c.registerAndLogin("alice")

	other := &client{t: t, r: r}
	w := other.postForm("/register", url.Values{"email": {"alice@x.com"}, "username": {"someoneelse"}, "password": {"x"}})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Email is already in use")

	w = other.postForm("/register", url.Values{"email": {"nope"}, "username": {"carol"}, "password": {"x"}})
	assert.Contains(t, w.Body.String(), "Please enter a valid email address")

	w = other.postForm("/login", url.Values{"username": {"alice"}, "password": {"wrong"}})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Incorrect username or password")
	assert.Nil(t, other.cookie)

	w = other.postForm("/login", url.Values{"username": {"ghost"}, "password": {"x"}})
	assert.Contains(t, w.Body.String(), "User not found. Please try again.")

	w = c.get("/")
	assert.Contains(t, w.Body.String(), "/logout")

	w = c.get("/logout")
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Nil(t, c.cookie)
	w = c.get("/myAccount")
	assert.Equal(t, http.StatusFound, w.Code)
}

func TestPostLifecycle(t *testing.T) {
	r, db := newTestRouter(t)
	alice := &client{t: t, r: r}
	alice.registerAndLogin("alice")
	bob := &client{t: t, r: r}
	bob.registerAndLogin("bob")
	anon := &client{t: t, r: r}

	w := alice.postMultipart("/createPost", map[string]string{"title": "", "tag": "mondstadt", "description": "x"}, "", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Title is required")

	w = alice.postMultipart("/createPost",
		map[string]string{"title": "Dandelion wine", "tag": "mondstadt", "description": "A <b>fine</b> vintage"},
		"thumbnail", "wine.png", []byte("png"))
	require.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/posts", w.Header().Get("Location"))

	var post models.Post
	require.NoError(t, db.Where("title = ?", "Dandelion wine").First(&post).Error)
	postPath := strconv.FormatUint(uint64(post.ID), 10)

	w = anon.get("/posts")
	assert.Contains(t, w.Body.String(), "Dandelion wine")
	w = anon.get("/posts/tag/mondstadt")
	assert.Contains(t, w.Body.String(), "Dandelion wine")
	w = anon.get("/search-posts?term=VINTAGE")
	assert.Contains(t, w.Body.String(), "Dandelion wine")
	w = anon.get("/search-posts?term=")
	assert.Contains(t, w.Body.String(), "No posts found")

	w = anon.get("/view-post/" + postPath)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "<b>fine</b>")

	w = anon.get(post.Thumbnail)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "png", w.Body.String())

	// Only the owner may edit, update or delete
	w = bob.get("/edit-post/" + postPath)
	assert.Equal(t, http.StatusForbidden, w.Code)
	w = bob.postMultipart("/update-post/"+postPath, map[string]string{"title": "Stolen"}, "", "", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "You are not authorized to update this post", messageOf(t, w))
	w = bob.get("/delete-post/" + postPath)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "You are not authorized to delete this post", messageOf(t, w))

	w = alice.get("/edit-post/" + postPath)
	assert.Equal(t, http.StatusOK, w.Code)
	w = alice.postMultipart("/update-post/"+postPath, map[string]string{"title": "Dandelion wine, aged"}, "", "", nil)
	require.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/view-post/"+postPath, w.Header().Get("Location"))
	require.NoError(t, db.First(&post, post.ID).Error)
	assert.Equal(t, "Dandelion wine, aged", post.Title)
	assert.True(t, post.Edited)

	w = alice.get("/myAccount")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Create post")
	assert.Contains(t, w.Body.String(), "Update post")
	assert.Contains(t, w.Body.String(), models.DefaultProfileImage)

	w = alice.postForm("/delete-post/"+postPath, nil)
	require.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/", w.Header().Get("Location"))

	w = anon.get("/posts")
	assert.Contains(t, w.Body.String(), "No posts found")
	w = anon.get("/view-post/" + postPath)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Post not found", messageOf(t, w))

	w = alice.get("/myAccount")
	assert.Contains(t, w.Body.String(), "Delete post")
}

func TestComments(t *testing.T) {
	r, db := newTestRouter(t)
	alice := &client{t: t, r: r}
	alice.registerAndLogin("alice")
	bob := &client{t: t, r: r}
	bob.registerAndLogin("bob")
	anon := &client{t: t, r: r}

	w := alice.postMultipart("/createPost", map[string]string{"title": "Tea", "tag": "liyue", "description": "Jade"}, "", "", nil)
	require.Equal(t, http.StatusFound, w.Code)
	var post models.Post
	require.NoError(t, db.First(&post).Error)
	postPath := strconv.FormatUint(uint64(post.ID), 10)

	w = anon.postForm("/add-comment", url.Values{"postId": {postPath}, "comment": {"hi"}})
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/login", w.Header().Get("Location"))

	w = alice.postForm("/add-comment", url.Values{"postId": {postPath}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Add required fields", messageOf(t, w))

	w = alice.postForm("/add-comment", url.Values{"postId": {"9999"}, "comment": {"hello"}})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = alice.postForm("/add-comment", url.Values{"postId": {postPath}, "comment": {"first!"}})
	require.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/view-post/"+postPath, w.Header().Get("Location"))
	w = bob.postForm("/add-comment", url.Values{"postId": {postPath}, "comment": {"second"}})
	require.Equal(t, http.StatusFound, w.Code)

	w = anon.get("/post-comments/" + postPath)
	require.Equal(t, http.StatusOK, w.Code)
	var listed struct {
		Comments []models.CommentView `json:"comments"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &listed))
	require.Len(t, listed.Comments, 2)
	assert.Equal(t, "first!", listed.Comments[0].Comment)
	assert.Equal(t, "alice", listed.Comments[0].Username)

	w = anon.get("/post-comments/" + postPath + "?order=desc")
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &listed))
	assert.Equal(t, "second", listed.Comments[0].Comment)

	aliceComment := listed.Comments[1].ID
	path := "/delete-comment/" + strconv.FormatUint(uint64(aliceComment), 10)

	w = anon.do(httptest.NewRequest(http.MethodDelete, path, nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = bob.do(httptest.NewRequest(http.MethodDelete, path, nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "No comment found or you do not have permission to delete this comment", messageOf(t, w))

	w = alice.do(httptest.NewRequest(http.MethodDelete, path, nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"success":true,"message":"Comment deleted successfully"}`, w.Body.String())

	w = anon.get("/post-comments/" + postPath)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &listed))
	require.Len(t, listed.Comments, 1)
	assert.Equal(t, "bob", listed.Comments[0].Username)
}

func TestAccountManagement(t *testing.T) {
	r, db := newTestRouter(t)
	alice := &client{t: t, r: r}
	alice.registerAndLogin("alice")

	w := alice.postMultipart("/update-profile-image", nil, "", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = alice.postMultipart("/update-profile-image", nil, "profileImage", "me.gif", []byte("gif"))
	require.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/myAccount", w.Header().Get("Location"))

	var user models.User
	require.NoError(t, db.Where("username = ?", "alice").First(&user).Error)
	require.NotNil(t, user.ProfileImage)
	w = alice.get("/myAccount")
	assert.Contains(t, w.Body.String(), *user.ProfileImage)

	w = alice.postMultipart("/createPost", map[string]string{"title": "Bye", "tag": "t", "description": "d"}, "", "", nil)
	require.Equal(t, http.StatusFound, w.Code)

	w = alice.postForm("/delete-account", nil)
	require.Equal(t, http.StatusFound, w.Code)
	assert.Nil(t, alice.cookie)

	var users int64
	require.NoError(t, db.Model(&models.User{}).Count(&users).Error)
	assert.Zero(t, users)
	var live int64
	require.NoError(t, db.Model(&models.Post{}).Where("isDeleted = ?", false).Count(&live).Error)
	assert.Zero(t, live)

	w = alice.postForm("/login", url.Values{"username": {"alice"}, "password": {"pw-alice"}})
	assert.Contains(t, w.Body.String(), "User not found. Please try again.")
}

func TestSpecialCharactersRoundTrip(t *testing.T) {
	r, _ := newTestRouter(t)
	c := &client{t: t, r: r}

	w := c.postForm("/register", url.Values{"email": {"oneil@x.com"}, "username": {"O'Neil"}, "password": {"pw"}})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Welcome o&#39;neil!")

	w = c.postForm("/login", url.Values{"username": {"o'neil"}, "password": {"pw"}})
	require.Equal(t, http.StatusFound, w.Code)
	require.NotNil(t, c.cookie)

	w = c.postMultipart("/createPost", map[string]string{"title": "Tom's <i>guide</i>", "tag": "Q&A", "description": "tea & cake"}, "", "", nil)
	require.Equal(t, http.StatusFound, w.Code)

	for _, path := range []string{"/posts/tag/Q&A", "/search-posts?term=" + url.QueryEscape("Tom's"), "/search-posts?term=" + url.QueryEscape("tea & cake")} {
		w = c.get(path)
		require.Equal(t, http.StatusOK, w.Code, path)
		assert.Contains(t, w.Body.String(), "Tom&#39;s &lt;i&gt;guide&lt;/i&gt;", path)
		assert.NotContains(t, w.Body.String(), "No posts found", path)
	}
}

func TestMalformedFormIsRejected(t *testing.T) {
	r, db := newTestRouter(t)
	c := &client{t: t, r: r}
	c.registerAndLogin("alice")

	for _, path := range []string{"/login", "/register", "/createPost", "/add-comment"} {
		req := httptest.NewRequest(http.MethodPost, path, strings.NewReader("garbage"))
		req.Header.Set("Content-Type", "multipart/form-data")
		w := c.do(req)
		assert.Equal(t, http.StatusBadRequest, w.Code, path)
		assert.Equal(t, "Invalid form data", messageOf(t, w), path)
	}

	var posts int64
	require.NoError(t, db.Model(&models.Post{}).Count(&posts).Error)
	assert.Zero(t, posts)
}
