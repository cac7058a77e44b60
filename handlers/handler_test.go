package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	mw "github.com/padraicbc/demoapi/middleware"
	"github.com/padraicbc/demoapi/models"
	"github.com/padraicbc/demoapi/service"
	"github.com/padraicbc/demoapi/store"
	"github.com/padraicbc/demoapi/token"
)

// stubUsers records what the handlers pass in and returns canned results.
type stubUsers struct {
	users map[int64]*models.User
	err   error
	token string

	created   *service.NewUser
	creds     *service.Credentials
	filter    *store.UserFilter
	patch     *service.UserPatch
	requester token.Claims
	deleted   []int64
}

func (s *stubUsers) Create(_ context.Context, nu service.NewUser) (*models.User, string, error) {
	s.created = &nu
	if s.err != nil {
		return nil, "", s.err
	}
	return &models.User{ID: 1, Username: nu.Username, Email: nu.Email}, s.token, nil
}

func (s *stubUsers) Authenticate(_ context.Context, c service.Credentials) (string, error) {
	s.creds = &c
	if s.err != nil {
		return "", s.err
	}
	return s.token, nil
}

func (s *stubUsers) ByID(_ context.Context, id int64) (*models.User, error) {
	if s.err != nil {
		return nil, s.err
	}
	u, ok := s.users[id]
	if !ok {
		return nil, fmt.Errorf("stub: %w", service.ErrUserNotFound)
	}
	return u, nil
}

func (s *stubUsers) List(_ context.Context, f store.UserFilter) ([]models.User, error) {
	s.filter = &f
	if s.err != nil {
		return nil, s.err
	}
	var out []models.User
	for _, u := range s.users {
		out = append(out, *u)
	}
	return out, nil
}

func (s *stubUsers) Update(_ context.Context, id int64, patch service.UserPatch, requester token.Claims) (*models.User, error) {
	s.patch = &patch
	s.requester = requester
	if s.err != nil {
		return nil, s.err
	}
	return s.users[id], nil
}

func (s *stubUsers) Delete(_ context.Context, id int64) error {
	if s.err != nil {
		return s.err
	}
	s.deleted = append(s.deleted, id)
	return nil
}

type stubDemos struct {
	uploads []service.UploadedFile
	calls   int
	err     error
	demos   []models.Demo
}

func (s *stubDemos) Upload(_ context.Context, userID int64, uploads []service.UploadedFile) ([]string, error) {
	s.calls++
	s.uploads = uploads
	if s.err != nil {
		return nil, s.err
	}
	paths := []string{}
	for _, u := range uploads {
		paths = append(paths, fmt.Sprintf("demos/%d/%s", userID, u.Filename))
	}
	return paths, nil
}

func (s *stubDemos) List(context.Context, int64) ([]models.Demo, error) {
	return s.demos, s.err
}

// trusting accepts every verified token as current.
type trusting struct{}

func (trusting) CheckClaims(context.Context, token.Claims) error { return nil }

type testServer struct {
	e     *echo.Echo
	codec *token.Codec
}

func newServer(t *testing.T, users UserService, demos DemoService, temp TempStore, limits UploadLimits) *testServer {
	t.Helper()
	codec, err := token.New([]byte("secret"))
	require.NoError(t, err)

	e := echo.New()
	e.Validator = NewValidator()
	e.HTTPErrorHandler = ErrorHandler(zaptest.NewLogger(t))

	New(users, demos, temp, limits).Mount(e.Group("/api"), mw.JWT(codec, trusting{}))
	return &testServer{e: e, codec: codec}
}

func (s *testServer) tokenFor(t *testing.T, claims token.Claims) string {
	t.Helper()
	tok, err := s.codec.Issue(claims)
	require.NoError(t, err)
	return tok
}

func (s *testServer) do(t *testing.T, method, path string, body io.Reader, contentType string, as *token.Claims) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set(echo.HeaderContentType, contentType)
	}
	if as != nil {
		req.Header.Set(mw.TokenHeader, s.tokenFor(t, *as))
	}
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) sendJSON(t *testing.T, method, path string, body interface{}, as *token.Claims) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(b)
	}
	return s.do(t, method, path, r, echo.MIMEApplicationJSON, as)
}

type upload struct {
	name    string
	content string
}

func multipartBody(t *testing.T, files ...upload) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for _, f := range files {
		part, err := w.CreateFormFile(DemoFormField, f.name)
		require.NoError(t, err)
		_, err = part.Write([]byte(f.content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

func errorKey(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Error
}
