package router

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"Vid_Community/internal/config"
	"Vid_Community/internal/handler"
	"Vid_Community/internal/middleware"
	"Vid_Community/internal/model"
	"Vid_Community/internal/repository/mysql"
	"Vid_Community/internal/repository/redis"
	"Vid_Community/internal/service"
	"Vid_Community/internal/testutil"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type server struct {
	t       *testing.T
	engine  *gin.Engine
	db      *gorm.DB
	storage *testutil.FakeStorage
}

func newServer(t *testing.T) *server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	db := testutil.NewTestDB(t)
	rdb, _ := testutil.NewTestRedis(t)
	storage := testutil.NewFakeStorage()
	log := zerolog.Nop()
	jwtCfg := testutil.JWTConfig()

	userRepo := mysql.NewUserRepository(db)
	videoRepo := mysql.NewVideoRepository(db)
	users := service.NewUserService(userRepo, redis.NewTokenRepository(rdb), testutil.NewIssuer(), &jwtCfg, log)

	engine, err := InitRouter(Params{
		Config:       &config.ServiceConfig{MaxUploadMB: 10},
		Logger:       log,
		Users:        users,
		Limiter:      middleware.NewIPRateLimiter(&config.RateLimitConfig{TokenPerSecond: 1000, TokenBurst: 1000}),
		User:         handler.NewUserHandler(users),
		Video:        handler.NewVideoHandler(service.NewVideoService(videoRepo, storage, log)),
		Post:         handler.NewPostHandler(service.NewPostService(mysql.NewPostRepository(db), storage, log)),
		Comment:      handler.NewCommentHandler(service.NewCommentService(mysql.NewCommentRepository(db), videoRepo)),
		Subscription: handler.NewSubscriptionHandler(service.NewSubscriptionService(mysql.NewSubscriptionRepository(db), userRepo, log)),
	})
	require.NoError(t, err)
	return &server{t: t, engine: engine, db: db, storage: storage}
}

func (s *server) do(method, path, token string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	return w
}

func (s *server) json(method, path, token string, payload any) *httptest.ResponseRecorder {
	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		require.NoError(s.t, err)
		body = bytes.NewReader(b)
	}
	return s.do(method, path, token, body, "application/json")
}

func (s *server) login(username string) string {
	w := s.json(http.MethodPost, "/api/token/", "", map[string]string{"username": username, "password": username + "-pass"})
	require.Equal(s.t, http.StatusOK, w.Code, w.Body.String())
	var pair map[string]string
	require.NoError(s.t, json.Unmarshal(w.Body.Bytes(), &pair))
	return pair["access"]
}

func (s *server) uploadVideo(token, title string) map[string]any {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("video", "clip.mp4")
	require.NoError(s.t, err)
	_, _ = fw.Write([]byte("video-bytes"))
	require.NoError(s.t, mw.WriteField("title", title))
	require.NoError(s.t, mw.WriteField("desc", "a description"))
	require.NoError(s.t, mw.Close())

	w := s.do(http.MethodPost, "/api/videos/", token, &buf, mw.FormDataContentType())
	require.Equal(s.t, http.StatusCreated, w.Code, w.Body.String())
	return decode(s.t, w)
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func countUsers(t *testing.T, db *gorm.DB) int64 {
	var n int64
	require.NoError(t, db.Model(&model.User{}).Count(&n).Error)
	return n
}

func TestRegister(t *testing.T) {
	s := newServer(t)

	w := s.json(http.MethodPost, "/api/register/", "", map[string]string{
		"username": "testuser", "email": "test@example.com", "first_name": "Test", "last_name": "User", "password": "testpass123",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	body := decode(t, w)
	assert.Equal(t, "testuser", body["username"])
	assert.Equal(t, "Test", body["first_name"])
	assert.NotContains(t, body, "password")

	var u model.User
	require.NoError(t, s.db.Where("username = ?", "testuser").First(&u).Error)
	assert.NotEqual(t, "testpass123", u.Password)

	w = s.json(http.MethodPost, "/api/register/", "", map[string]string{
		"username": "testuser", "email": "other@example.com", "password": "x",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decode(t, w), "username")
}

func TestRegister_MissingFields(t *testing.T) {
	s := newServer(t)

	w := s.json(http.MethodPost, "/api/register/", "", map[string]string{"first_name": "Nobody"})
	require.Equal(t, http.StatusBadRequest, w.Code)
	body := decode(t, w)
	for _, f := range []string{"username", "email", "password"} {
		assert.Contains(t, body, f)
	}
	assert.Zero(t, countUsers(t, s.db))

	w = s.do(http.MethodPost, "/api/register/", "", nil, "application/json")
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, []any{"This field is required."}, decode(t, w)["username"])
}

func TestRegister_InvalidEmail(t *testing.T) {
	s := newServer(t)

	w := s.json(http.MethodPost, "/api/register/", "", map[string]string{
		"username": "testuser", "email": "not-an-email", "password": "testpass123",
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, []any{"Enter a valid email address."}, decode(t, w)["email"])
	assert.Zero(t, countUsers(t, s.db))

	w = s.json(http.MethodPost, "/api/register/", "", map[string]string{
		"username": "bad name!", "email": "ok@example.com", "password": "testpass123",
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decode(t, w), "username")
}

func TestToken(t *testing.T) {
	s := newServer(t)
	testutil.CreateUser(t, s.db, "alice", false)

	w := s.json(http.MethodPost, "/api/token/", "", map[string]string{"username": "alice", "password": "alice-pass"})
	require.Equal(t, http.StatusOK, w.Code)
	pair := decode(t, w)
	assert.NotEmpty(t, pair["access"])
	assert.NotEmpty(t, pair["refresh"])

	w = s.json(http.MethodPost, "/api/token/", "", map[string]string{"username": "alice", "password": "wrong"})
	require.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "No active account found with the given credentials", decode(t, w)["detail"])

	refresh := pair["refresh"].(string)
	w = s.json(http.MethodPost, "/api/token/refresh/", "", map[string]string{"refresh": refresh})
	require.Equal(t, http.StatusOK, w.Code)
	rotated := decode(t, w)
	assert.NotEmpty(t, rotated["access"])
	assert.NotEmpty(t, rotated["refresh"])

	w = s.json(http.MethodPost, "/api/token/refresh/", "", map[string]string{"refresh": refresh})
	require.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "token_not_valid", decode(t, w)["code"])

	w = s.json(http.MethodPost, "/api/token/blacklist/", "", map[string]string{"refresh": rotated["refresh"].(string)})
	require.Equal(t, http.StatusOK, w.Code)
	w = s.json(http.MethodPost, "/api/token/refresh/", "", map[string]string{"refresh": rotated["refresh"].(string)})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestProtectedEndpointsRequireAuth(t *testing.T) {
	s := newServer(t)
	for _, path := range []string{"/api/videos/", "/api/posts/", "/api/comments/", "/api/subscriptions/"} {
		w := s.do(http.MethodGet, path, "", nil, "")
		assert.Equal(t, http.StatusUnauthorized, w.Code, path)
		assert.Equal(t, "Authentication credentials were not provided.", decode(t, w)["detail"])

		w = s.do(http.MethodGet, path, "garbage", nil, "")
		assert.Equal(t, http.StatusUnauthorized, w.Code, path)
	}
}

func TestVideos(t *testing.T) {
	s := newServer(t)
	testutil.CreateUser(t, s.db, "owner", false)
	testutil.CreateUser(t, s.db, "stranger", false)
	testutil.CreateUser(t, s.db, "admin", true)
	owner, stranger, admin := s.login("owner"), s.login("stranger"), s.login("admin")

	video := s.uploadVideo(owner, "first")
	assert.Equal(t, "owner", video["creator"])
	assert.Equal(t, []any{}, video["comments"])
	assert.Contains(t, video["video"], "http://media.test/media/uploads/")
	id := uint64(video["id"].(float64))
	path := fmt.Sprintf("/api/videos/%d/", id)

	w := s.json(http.MethodPost, "/api/comments/", owner, map[string]any{"comment": "nice", "the_video": id})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	commentID := uint64(decode(t, w)["id"].(float64))

	w = s.do(http.MethodGet, path, stranger, nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []any{fmt.Sprintf("http://example.com/api/comments/%d/", commentID)}, decode(t, w)["comments"])

	w = s.json(http.MethodPut, path, stranger, map[string]string{"title": "x", "desc": "y"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.json(http.MethodPut, path, owner, map[string]string{"title": "second", "desc": "updated"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	updated := decode(t, w)
	assert.Equal(t, "second", updated["title"])
	assert.NotEqual(t, video["created_at"], updated["created_at"])
	assert.Equal(t, video["video"], updated["video"])

	w = s.json(http.MethodPut, path, owner, map[string]string{"title": "this title is definitely longer than forty characters", "desc": "d"})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, []any{"Ensure this field has no more than 40 characters."}, decode(t, w)["title"])

	w = s.do(http.MethodDelete, path, stranger, nil, "")
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(http.MethodDelete, path, owner, nil, "")
	assert.Equal(t, http.StatusNoContent, w.Code)

	// 评论随视频删除
	w = s.do(http.MethodGet, fmt.Sprintf("/api/comments/%d/", commentID), owner, nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = s.do(http.MethodGet, path, owner, nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	other := s.uploadVideo(owner, "second")
	w = s.do(http.MethodDelete, fmt.Sprintf("/api/videos/%d/", uint64(other["id"].(float64))), admin, nil, "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, s.storage.Objects)
}

func TestVideos_CreateValidation(t *testing.T) {
	s := newServer(t)
	testutil.CreateUser(t, s.db, "owner", false)
	token := s.login("owner")

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("title", "no file"))
	require.NoError(t, mw.Close())

	w := s.do(http.MethodPost, "/api/videos/", token, &buf, mw.FormDataContentType())
	require.Equal(t, http.StatusBadRequest, w.Code)
	body := decode(t, w)
	assert.Equal(t, []any{"No file was submitted."}, body["video"])
	assert.Contains(t, body, "desc")

	w = s.do(http.MethodGet, "/api/videos/abc/", token, nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestPosts(t *testing.T) {
	s := newServer(t)
	testutil.CreateUser(t, s.db, "owner", false)
	testutil.CreateUser(t, s.db, "stranger", false)
	testutil.CreateUser(t, s.db, "admin", true)
	owner, stranger, admin := s.login("owner"), s.login("stranger"), s.login("admin")

	w := s.json(http.MethodPost, "/api/posts/", owner, map[string]string{"post": "hello world"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	post := decode(t, w)
	assert.Nil(t, post["post_image"])
	assert.Equal(t, "owner", post["creator"])
	path := fmt.Sprintf("/api/posts/%d/", uint64(post["id"].(float64)))

	w = s.json(http.MethodPut, path, owner, map[string]string{"post": "edited"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "edited", decode(t, w)["post"])

	w = s.do(http.MethodDelete, path, stranger, nil, "")
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "You do not have permission to perform this action.", decode(t, w)["detail"])

	w = s.do(http.MethodDelete, path, owner, nil, "")
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = s.json(http.MethodPost, "/api/posts/", owner, map[string]string{"post": "second"})
	require.Equal(t, http.StatusCreated, w.Code)
	w = s.do(http.MethodDelete, fmt.Sprintf("/api/posts/%d/", uint64(decode(t, w)["id"].(float64))), admin, nil, "")
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestPosts_WithImage(t *testing.T) {
	s := newServer(t)
	testutil.CreateUser(t, s.db, "owner", false)
	token := s.login("owner")

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("post", "with picture"))
	fw, err := mw.CreateFormFile("post_image", "pic.PNG")
	require.NoError(t, err)
	_, _ = fw.Write(testutil.PNG(t))
	require.NoError(t, mw.Close())

	w := s.do(http.MethodPost, "/api/posts/", token, &buf, mw.FormDataContentType())
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	img, ok := decode(t, w)["post_image"].(string)
	require.True(t, ok)
	assert.Contains(t, img, "/post_images/")
	assert.Contains(t, img, ".png")
}

func TestUploads_RejectBadFiles(t *testing.T) {
	s := newServer(t)
	testutil.CreateUser(t, s.db, "owner", false)
	token := s.login("owner")

	form := func(field, filename string, content []byte, fields map[string]string) (*bytes.Buffer, string) {
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		for k, v := range fields {
			require.NoError(t, mw.WriteField(k, v))
		}
		fw, err := mw.CreateFormFile(field, filename)
		require.NoError(t, err)
		_, _ = fw.Write(content)
		require.NoError(t, mw.Close())
		return &buf, mw.FormDataContentType()
	}

	body, ct := form("post_image", "evil.txt", []byte("not an image at all"), map[string]string{"post": "x"})
	w := s.do(http.MethodPost, "/api/posts/", token, body, ct)
	require.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
	assert.Equal(t, []any{"Upload a valid image. The file you uploaded was either not an image or a corrupted image."}, decode(t, w)["post_image"])

	body, ct = form("post_image", "empty.png", nil, map[string]string{"post": "x"})
	w = s.do(http.MethodPost, "/api/posts/", token, body, ct)
	require.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
	assert.Equal(t, []any{"The submitted file is empty."}, decode(t, w)["post_image"])

	body, ct = form("video", "clip.mp4", nil, map[string]string{"title": "t", "desc": "d"})
	w = s.do(http.MethodPost, "/api/videos/", token, body, ct)
	require.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
	assert.Equal(t, []any{"The submitted file is empty."}, decode(t, w)["video"])

	assert.Empty(t, s.storage.Objects)
}

func TestComments(t *testing.T) {
	s := newServer(t)
	testutil.CreateUser(t, s.db, "owner", false)
	testutil.CreateUser(t, s.db, "stranger", false)
	owner, stranger := s.login("owner"), s.login("stranger")

	w := s.json(http.MethodPost, "/api/comments/", owner, map[string]any{"comment": "hi", "the_video": 999})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, []any{`Invalid pk "999" - object does not exist.`}, decode(t, w)["the_video"])

	w = s.json(http.MethodPost, "/api/comments/", owner, map[string]any{"comment": "hi", "the_video": "abc"})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, []any{"A valid integer is required."}, decode(t, w)["the_video"])

	video := s.uploadVideo(owner, "v")
	w = s.json(http.MethodPost, "/api/comments/", stranger, map[string]any{"comment": "first!", "the_video": video["id"]})
	require.Equal(t, http.StatusCreated, w.Code)
	comment := decode(t, w)
	assert.Equal(t, "stranger", comment["creator"])
	path := fmt.Sprintf("/api/comments/%d/", uint64(comment["id"].(float64)))

	w = s.do(http.MethodGet, "/api/comments/", owner, nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	var list []map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	assert.Len(t, list, 1)

	w = s.do(http.MethodDelete, path, owner, nil, "")
	assert.Equal(t, http.StatusForbidden, w.Code)
	w = s.do(http.MethodDelete, path, stranger, nil, "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = s.do(http.MethodDelete, path, stranger, nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSubscriptions(t *testing.T) {
	s := newServer(t)
	alice := testutil.CreateUser(t, s.db, "alice", false)
	bob := testutil.CreateUser(t, s.db, "bob", false)
	testutil.CreateUser(t, s.db, "admin", true)
	at, bt, admin := s.login("alice"), s.login("bob"), s.login("admin")

	w := s.json(http.MethodPost, "/api/subscriptions/", at, map[string]any{"subscribed_to": alice.ID})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, []any{"cannot subscribe to yourself"}, decode(t, w)["non_field_errors"])
	var n int64
	require.NoError(t, s.db.Model(&model.Subscription{}).Count(&n).Error)
	assert.Zero(t, n)

	w = s.json(http.MethodPost, "/api/subscriptions/", at, map[string]any{"subscribed_to": bob.ID})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	sub := decode(t, w)
	assert.Equal(t, float64(alice.ID), sub["subscriber"])
	path := fmt.Sprintf("/api/subscriptions/%d/", uint64(sub["id"].(float64)))

	w = s.json(http.MethodPost, "/api/subscriptions/", at, map[string]any{"subscribed_to": bob.ID})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decode(t, w), "non_field_errors")

	w = s.do(http.MethodGet, "/api/subscriptions/", bt, nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())

	w = s.do(http.MethodDelete, path, bt, nil, "")
	require.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "You cannot delete someone else's subscription.", decode(t, w)["detail"])
	w = s.do(http.MethodDelete, path, admin, nil, "")
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(http.MethodDelete, path, at, nil, "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = s.do(http.MethodDelete, path, at, nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHealthAndMetrics(t *testing.T) {
	s := newServer(t)
	w := s.do(http.MethodGet, "/healthz", "", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)
	w = s.do(http.MethodGet, "/metrics", "", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "http_requests_total")
}

func TestTokenRateLimit(t *testing.T) {
	limited, err := InitRouter(Params{
		Config:  &config.ServiceConfig{MaxUploadMB: 1},
		Logger:  zerolog.Nop(),
		Limiter: middleware.NewIPRateLimiter(&config.RateLimitConfig{TokenPerSecond: 0.001, TokenBurst: 1}),
		User:    handler.NewUserHandler(nil),
	})
	require.NoError(t, err)

	req := func() int {
		w := httptest.NewRecorder()
		limited.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/token/", bytes.NewReader([]byte(`{}`))))
		return w.Code
	}
	assert.Equal(t, http.StatusBadRequest, req())
	assert.Equal(t, http.StatusTooManyRequests, req())
}
