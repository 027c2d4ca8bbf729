package upload

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"filedrop/internal/database"
	"filedrop/internal/domain"
	"filedrop/internal/domain/auth"
	"filedrop/internal/middleware"
	"filedrop/internal/pkg/jwt"
	"filedrop/internal/repository"

	"github.com/gin-gonic/gin"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR fake image payload")

type testEnv struct {
	router  *gin.Engine
	storage *Storage
	users   *repository.UserRepository
	tokens  *jwt.Service
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
	Code    string          `json:"code"`
}

type filePart struct {
	field, name, contentType string
	body                     []byte
}

func setupTestRouter(t *testing.T, limits Limits) *testEnv {
	t.Helper()
	return setupTestRouterWithDeadline(t, limits, time.Minute)
}

func setupTestRouterWithDeadline(t *testing.T, limits Limits, deadline time.Duration) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := database.Connect(filepath.Join(t.TempDir(), "upload_test.db"))
	require.NoError(t, err)
	require.NoError(t, repository.Migrate(db))

	users := repository.NewUserRepository(db)
	storage := NewStorage(afero.NewMemMapFs())
	tokens := jwt.New("test-secret", time.Hour)

	h := NewHandler(NewService(storage, users), limits, "")
	r := gin.New()
	RegisterRoutes(r, h, middleware.JWTAuth(auth.NewVerifier(tokens)), middleware.Deadline(deadline))

	return &testEnv{router: r, storage: storage, users: users, tokens: tokens}
}

func defaultLimits() Limits {
	return Limits{MaxBodyBytes: 1 << 20, MaxFileBytes: 512 << 10, MaxFiles: 3}
}

func multipartBody(t *testing.T, parts ...filePart) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for _, p := range parts {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`, p.field, p.name))
		if p.contentType != "" {
			h.Set("Content-Type", p.contentType)
		}
		pw, err := w.CreatePart(h)
		require.NoError(t, err)
		_, err = pw.Write(p.body)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

func (e *testEnv) post(t *testing.T, path, token string, parts ...filePart) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	body, contentType := multipartBody(t, parts...)
	req := httptest.NewRequest(http.MethodPost, path, body)
	req.Header.Set("Content-Type", contentType)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return e.do(t, req)
}

func (e *testEnv) do(t *testing.T, req *http.Request) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	rr := httptest.NewRecorder()
	e.router.ServeHTTP(rr, req)

	var env envelope
	if strings.HasPrefix(rr.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &env))
	}
	return rr, env
}

func (e *testEnv) get(t *testing.T, path string) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	e.router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
	return rr
}

func (e *testEnv) createUser(t *testing.T, username string) (*domain.User, string) {
	t.Helper()
	u := &domain.User{Username: username, Email: username + "@example.com", FullName: strings.ToUpper(username)}
	require.NoError(t, e.users.Create(context.Background(), u))
	token, err := e.tokens.GenerateToken(u.ID)
	require.NoError(t, err)
	return u, token
}

func (e *testEnv) fileCount(t *testing.T, dir string) int {
	t.Helper()
	return countFiles(t, e.storage, dir)
}

func png(field, name string) filePart {
	return filePart{field: field, name: name, contentType: "image/png", body: pngBytes}
}

func TestUploadSingle_Success(t *testing.T) {
	env := setupTestRouter(t, defaultLimits())

	rr, resp := env.post(t, "/files/uploads", "", png("image", "cat.png"))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.True(t, resp.Success)

	var data struct {
		URL string `json:"url"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &data))
	assert.True(t, strings.HasPrefix(data.URL, "http://example.com/files/"), data.URL)
	assert.True(t, strings.HasSuffix(data.URL, "-cat.png"), data.URL)
	assert.Equal(t, 1, env.fileCount(t, FilesDir))

	got := env.get(t, strings.TrimPrefix(data.URL, "http://example.com"))
	assert.Equal(t, http.StatusOK, got.Code)
	assert.Equal(t, pngBytes, got.Body.Bytes())
}

func TestUploadSingle_RejectsSecondPart(t *testing.T) {
	env := setupTestRouter(t, defaultLimits())

	rr, resp := env.post(t, "/files/uploads", "", png("image", "a.png"), png("image", "b.png"))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.False(t, resp.Success)
	assert.Equal(t, "TOO_MANY_FILES", resp.Code)
	assert.Equal(t, 0, env.fileCount(t, FilesDir))
}

func TestUploadSingle_WrongField(t *testing.T) {
	env := setupTestRouter(t, defaultLimits())

	rr, resp := env.post(t, "/files/uploads", "", png("picture", "a.png"))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "NO_FILE", resp.Code)
	assert.NotEmpty(t, resp.Message)
}

func TestUploadSingle_SniffsMissingContentType(t *testing.T) {
	env := setupTestRouter(t, defaultLimits())

	rr, _ := env.post(t, "/files/uploads", "", filePart{field: "image", name: "noext", body: pngBytes})
	assert.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	rr, resp := env.post(t, "/files/uploads", "", filePart{field: "image", name: "notes", body: []byte("plain text, not an image")})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "UNSUPPORTED_TYPE", resp.Code)
}

func TestUploadMulti_ReturnsURLsInOrder(t *testing.T) {
	env := setupTestRouter(t, defaultLimits())

	rr, resp := env.post(t, "/files/uploadMulti", "", png("image", "a.png"), png("image", "b.png"))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var data struct {
		URLs []string `json:"urls"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &data))
	require.Len(t, data.URLs, 2)
	assert.True(t, strings.HasSuffix(data.URLs[0], "-a.png"))
	assert.True(t, strings.HasSuffix(data.URLs[1], "-b.png"))
}

func TestUploadBatch_RequiresAuth(t *testing.T) {
	env := setupTestRouter(t, defaultLimits())

	rr, resp := env.post(t, "/files/upload-multiple", "", png("files", "a.png"))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, "AUTH_HEADER_MISSING", resp.Code)

	rr, resp = env.post(t, "/files/upload-multiple", "not-a-token", png("files", "a.png"))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, "INVALID_TOKEN", resp.Code)

	assert.Equal(t, 0, env.fileCount(t, ImagesDir))
}

func TestUploadBatch_PreservesOrder(t *testing.T) {
	env := setupTestRouter(t, defaultLimits())
	_, token := env.createUser(t, "alice")

	rr, resp := env.post(t, "/files/upload-multiple", token, png("files", "a.png"), png("files", "b.png"), png("files", "c.png"))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var stored []StoredFile
	require.NoError(t, json.Unmarshal(resp.Data, &stored))
	require.Len(t, stored, 3)
	for i, want := range []string{"a.png", "b.png", "c.png"} {
		assert.Equal(t, want, stored[i].OriginalName)
		assert.Equal(t, "/images/"+stored[i].GeneratedName, stored[i].RelativePath)
		assert.Equal(t, "http://example.com"+stored[i].RelativePath, stored[i].AbsoluteURL)
		assert.Equal(t, "image/png", stored[i].MimeType)
		assert.Equal(t, int64(len(pngBytes)), stored[i].Size)
	}
	assert.Equal(t, 3, env.fileCount(t, ImagesDir))
}

func TestUploadBatch_DisallowedTypeWritesNothing(t *testing.T) {
	env := setupTestRouter(t, defaultLimits())
	_, token := env.createUser(t, "bob")

	rr, resp := env.post(t, "/files/upload-multiple", token,
		png("files", "a.png"),
		filePart{field: "files", name: "evil.sh", contentType: "application/x-sh", body: []byte("#!/bin/sh")},
	)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "UNSUPPORTED_TYPE", resp.Code)
	assert.Equal(t, 0, env.fileCount(t, ImagesDir))
}

func TestUploadBatch_TooManyWritesNothing(t *testing.T) {
	env := setupTestRouter(t, defaultLimits())
	_, token := env.createUser(t, "carol")

	rr, resp := env.post(t, "/files/upload-multiple", token,
		png("files", "1.png"), png("files", "2.png"), png("files", "3.png"), png("files", "4.png"))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "TOO_MANY_FILES", resp.Code)
	assert.Equal(t, 0, env.fileCount(t, ImagesDir))
}

func TestUploadBatch_ResubmitCreatesNewFiles(t *testing.T) {
	env := setupTestRouter(t, defaultLimits())
	_, token := env.createUser(t, "dave")

	_, first := env.post(t, "/files/upload-multiple", token, png("files", "same.png"))
	_, second := env.post(t, "/files/upload-multiple", token, png("files", "same.png"))

	var a, b []StoredFile
	require.NoError(t, json.Unmarshal(first.Data, &a))
	require.NoError(t, json.Unmarshal(second.Data, &b))
	assert.NotEqual(t, a[0].GeneratedName, b[0].GeneratedName)
	assert.Equal(t, 2, env.fileCount(t, ImagesDir))
}

func TestUploadAvatar_RoundTrip(t *testing.T) {
	env := setupTestRouter(t, defaultLimits())
	user, token := env.createUser(t, "erin")

	rr, resp := env.post(t, "/users/upload-avatar", token, png("avatar", "me.png"))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var data struct {
		Message   string `json:"message"`
		AvatarURL string `json:"avatarURL"`
		User      struct {
			ID        int64  `json:"id"`
			Username  string `json:"username"`
			Email     string `json:"email"`
			FullName  string `json:"fullName"`
			AvatarURL string `json:"avatarURL"`
		} `json:"user"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &data))
	assert.NotEmpty(t, data.Message)
	assert.True(t, strings.HasPrefix(data.AvatarURL, "/images/"))
	assert.Equal(t, user.ID, data.User.ID)
	assert.Equal(t, "erin", data.User.Username)
	assert.Equal(t, "ERIN", data.User.FullName)
	assert.Equal(t, data.AvatarURL, data.User.AvatarURL)

	saved, err := env.users.GetByID(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, data.AvatarURL, saved.AvatarURL)

	first := env.get(t, data.AvatarURL)
	second := env.get(t, data.AvatarURL)
	require.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, pngBytes, first.Body.Bytes())
	assert.Equal(t, first.Body.Bytes(), second.Body.Bytes())
}

func TestUploadAvatar_UserNotFound(t *testing.T) {
	env := setupTestRouter(t, defaultLimits())
	token, err := env.tokens.GenerateToken(999)
	require.NoError(t, err)

	rr, resp := env.post(t, "/users/upload-avatar", token, png("avatar", "me.png"))
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "USER_NOT_FOUND", resp.Code)
	assert.Equal(t, 0, env.fileCount(t, ImagesDir))
}

func TestUploadAvatar_MissingToken(t *testing.T) {
	env := setupTestRouter(t, defaultLimits())

	rr, resp := env.post(t, "/users/upload-avatar", "", png("avatar", "me.png"))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, "AUTH_HEADER_MISSING", resp.Code)
	assert.Equal(t, 0, env.fileCount(t, ImagesDir))
}

func TestUpload_MalformedBody(t *testing.T) {
	env := setupTestRouter(t, defaultLimits())

	req := httptest.NewRequest(http.MethodPost, "/files/uploads", strings.NewReader(`{"image":"x"}`))
	req.Header.Set("Content-Type", "application/json")
	rr, resp := env.do(t, req)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "MALFORMED_BODY", resp.Code)
}

func TestUpload_BodyTooLarge(t *testing.T) {
	env := setupTestRouter(t, Limits{MaxBodyBytes: 64, MaxFileBytes: 64, MaxFiles: 3})

	rr, resp := env.post(t, "/files/uploads", "", png("image", "big.png"))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rr.Code)
	assert.Equal(t, "TOO_LARGE", resp.Code)
	assert.Equal(t, 0, env.fileCount(t, FilesDir))
}

func TestUpload_UnknownLengthBodyTooLarge(t *testing.T) {
	env := setupTestRouter(t, Limits{MaxBodyBytes: 64, MaxFileBytes: 64, MaxFiles: 3})

	body, contentType := multipartBody(t, png("image", "big.png"), png("image", "bigger.png"))
	req := httptest.NewRequest(http.MethodPost, "/files/uploadMulti", body)
	req.Header.Set("Content-Type", contentType)
	req.ContentLength = -1

	rr, resp := env.do(t, req)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rr.Code)
	assert.Equal(t, "TOO_LARGE", resp.Code)
	assert.Equal(t, 0, env.fileCount(t, FilesDir))
}

// slowBody holds back the first read, like a client that stops sending.
type slowBody struct {
	delay  time.Duration
	r      io.Reader
	waited bool
}

func (s *slowBody) Read(p []byte) (int, error) {
	if !s.waited {
		time.Sleep(s.delay)
		s.waited = true
	}
	return s.r.Read(p)
}

func TestUpload_StalledBodyHitsDeadline(t *testing.T) {
	env := setupTestRouterWithDeadline(t, defaultLimits(), 50*time.Millisecond)

	body, contentType := multipartBody(t, png("image", "slow.png"))
	req := httptest.NewRequest(http.MethodPost, "/files/uploads", &slowBody{delay: 400 * time.Millisecond, r: body})
	req.Header.Set("Content-Type", contentType)

	start := time.Now()
	rr, resp := env.do(t, req)
	elapsed := time.Since(start)

	assert.Equal(t, http.StatusRequestTimeout, rr.Code, rr.Body.String())
	assert.Equal(t, "UPLOAD_TIMEOUT", resp.Code)
	assert.Less(t, elapsed, 300*time.Millisecond)
	assert.Equal(t, 0, env.fileCount(t, FilesDir))
}

func TestUpload_ForwardedProto(t *testing.T) {
	env := setupTestRouter(t, defaultLimits())

	cases := []struct {
		header string
		want   string
	}{
		{"https", "https://example.com/files/"},
		{"HTTPS, http", "https://example.com/files/"},
		{"javascript", "http://example.com/files/"},
		{"ftp", "http://example.com/files/"},
	}
	for _, tc := range cases {
		body, contentType := multipartBody(t, png("image", "cat.png"))
		req := httptest.NewRequest(http.MethodPost, "/files/uploads", body)
		req.Header.Set("Content-Type", contentType)
		req.Header.Set("X-Forwarded-Proto", tc.header)

		rr, resp := env.do(t, req)
		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

		var data struct {
			URL string `json:"url"`
		}
		require.NoError(t, json.Unmarshal(resp.Data, &data))
		assert.True(t, strings.HasPrefix(data.URL, tc.want), "%s: %s", tc.header, data.URL)
	}
}

func TestServeFile_NotFound(t *testing.T) {
	env := setupTestRouter(t, defaultLimits())

	for _, path := range []string{"/files/missing.png", "/images/missing.png", "/files/.env"} {
		rr := env.get(t, path)
		assert.Equal(t, http.StatusNotFound, rr.Code, path)
		assert.Contains(t, rr.Body.String(), "NOT_FOUND")
	}
}
