package handlers

import (
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/padraicbc/demoapi/files"
	"github.com/padraicbc/demoapi/models"
	"github.com/padraicbc/demoapi/service"
)

var limits = UploadLimits{Extensions: []string{".mvd"}, MaxFileSize: 16, MaxFiles: 2}

func newUploadServer(t *testing.T, demos *stubDemos) (*testServer, afero.Fs, *files.Store) {
	t.Helper()
	fs := afero.NewMemMapFs()
	fstore := files.New(fs, "demos")
	return newServer(t, newUsers(), demos, fstore, limits), fs, fstore
}

func TestUploadDemos(t *testing.T) {
	demos := &stubDemos{}
	s, fs, fstore := newUploadServer(t, demos)

	body, ct := multipartBody(t, upload{"a.mvd", "first"}, upload{"B.MVD", "second"})
	rec := s.do(t, http.MethodPost, "/api/demos", body, ct, plain)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"paths":["demos/2/a.mvd","demos/2/B.MVD"]}`, rec.Body.String())

	require.Len(t, demos.uploads, 2)
	for i, want := range []struct{ name, content string }{{"a.mvd", "first"}, {"B.MVD", "second"}} {
		got := demos.uploads[i]
		assert.Equal(t, want.name, got.Filename)
		assert.True(t, strings.HasPrefix(got.TempPath, fstore.TempDir(2)), got.TempPath)

		b, err := afero.ReadFile(fs, got.TempPath)
		require.NoError(t, err)
		assert.Equal(t, want.content, string(b))
	}
}

func TestUploadDemosRejected(t *testing.T) {
	tests := []struct {
		name  string
		files []upload
		key   string
	}{
		{"extension", []upload{{"a.mvd", "ok"}, {"b.txt", "no"}}, "error_file_format_not_accepted"},
		{"no extension", []upload{{"demo", "no"}}, "error_file_format_not_accepted"},
		{"size", []upload{{"a.mvd", "ok"}, {"big.mvd", strings.Repeat("x", 17)}}, "error_file_too_large"},
		{"count", []upload{{"a.mvd", "1"}, {"b.mvd", "2"}, {"c.mvd", "3"}}, "error_too_many_files"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			demos := &stubDemos{}
			s, fs, fstore := newUploadServer(t, demos)

			body, ct := multipartBody(t, tt.files...)
			rec := s.do(t, http.MethodPost, "/api/demos", body, ct, plain)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, tt.key, errorKey(t, rec))
			assert.Zero(t, demos.calls)

			exists, err := afero.DirExists(fs, fstore.TempDir(2))
			require.NoError(t, err)
			assert.False(t, exists)
		})
	}
}

func TestUploadDemosEmpty(t *testing.T) {
	demos := &stubDemos{}
	s, _, _ := newUploadServer(t, demos)

	body, ct := multipartBody(t)
	rec := s.do(t, http.MethodPost, "/api/demos", body, ct, plain)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"paths":[]}`, rec.Body.String())
	assert.Empty(t, demos.uploads)
}

func TestUploadDemosServiceErrors(t *testing.T) {
	tests := map[error]int{
		service.ErrStorage:    http.StatusInternalServerError,
		service.ErrDemoExists: http.StatusBadRequest,
	}
	for sentinel, status := range tests {
		t.Run(sentinel.Error(), func(t *testing.T) {
			demos := &stubDemos{err: fmt.Errorf("upload: %w", sentinel)}
			s, fs, _ := newUploadServer(t, demos)

			body, ct := multipartBody(t, upload{"a.mvd", "x"}, upload{"b.mvd", "y"})
			rec := s.do(t, http.MethodPost, "/api/demos", body, ct, plain)
			assert.Equal(t, status, rec.Code)

			require.Len(t, demos.uploads, 2)
			for _, u := range demos.uploads {
				exists, err := afero.Exists(fs, u.TempPath)
				require.NoError(t, err)
				assert.False(t, exists, u.TempPath)
			}
		})
	}
}

func TestUploadDemosRequiresAuth(t *testing.T) {
	demos := &stubDemos{}
	s, _, _ := newUploadServer(t, demos)

	body, ct := multipartBody(t, upload{"a.mvd", "x"})
	rec := s.do(t, http.MethodPost, "/api/demos", body, ct, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Zero(t, demos.calls)
}

func TestUploadDemosNotMultipart(t *testing.T) {
	s, _, _ := newUploadServer(t, &stubDemos{})

	rec := s.sendJSON(t, http.MethodPost, "/api/demos", map[string]string{"a": "b"}, plain)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListDemos(t *testing.T) {
	demos := &stubDemos{demos: []models.Demo{{ID: 1, Path: "demos/2/a.mvd", CreateUser: 2, MD5Sum: "abc"}}}
	s, _, _ := newUploadServer(t, demos)

	rec := s.sendJSON(t, http.MethodGet, "/api/demos", nil, plain)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"path":"demos/2/a.mvd"`)
	assert.Contains(t, rec.Body.String(), `"createUser":2`)

	demos.demos = nil
	rec = s.sendJSON(t, http.MethodGet, "/api/demos", nil, plain)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}
