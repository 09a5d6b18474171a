package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"tiered_social/internal/pkg/uploader"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeUploader struct {
	calls atomic.Int32
}

func (f *fakeUploader) UploadFile(_ context.Context, folder string, file *multipart.FileHeader) (string, error) {
	f.calls.Add(1)
	if file.Filename == "bad.exe" {
		return "", fmt.Errorf("%w: %q", uploader.ErrUnsupportedType, ".exe")
	}
	return "https://cdn.test/" + folder + "/" + file.Filename, nil
}

func multipartBody(t *testing.T, names ...string) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	for _, name := range names {
		part, err := w.CreateFormFile("files", name)
		require.NoError(t, err)
		_, err = part.Write([]byte("data"))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return body, w.FormDataContentType()
}

func setupUploadRouter(up uploader.Uploader) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h := NewCommonHandler(up, nil, nil, zap.NewNop())
	r.POST("/upload", h.Upload)
	return r
}

func TestUpload(t *testing.T) {
	t.Run("keeps request order", func(t *testing.T) {
		up := &fakeUploader{}
		r := setupUploadRouter(up)
		body, ct := multipartBody(t, "a.png", "b.jpg", "c.mp4")

		req := httptest.NewRequest(http.MethodPost, "/upload?folder=avatar", body)
		req.Header.Set("Content-Type", ct)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		var resp struct {
			Data []string `json:"data"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, []string{
			"https://cdn.test/avatar/a.png",
			"https://cdn.test/avatar/b.jpg",
			"https://cdn.test/avatar/c.mp4",
		}, resp.Data)
		assert.Equal(t, int32(3), up.calls.Load())
	})

	t.Run("unsupported type is a bad request", func(t *testing.T) {
		r := setupUploadRouter(&fakeUploader{})
		body, ct := multipartBody(t, "bad.exe")

		req := httptest.NewRequest(http.MethodPost, "/upload", body)
		req.Header.Set("Content-Type", ct)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("unknown folder", func(t *testing.T) {
		r := setupUploadRouter(&fakeUploader{})
		body, ct := multipartBody(t, "a.png")

		req := httptest.NewRequest(http.MethodPost, "/upload?folder=etc", body)
		req.Header.Set("Content-Type", ct)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("not configured", func(t *testing.T) {
		r := setupUploadRouter(nil)
		req := httptest.NewRequest(http.MethodPost, "/upload", nil)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})
}
