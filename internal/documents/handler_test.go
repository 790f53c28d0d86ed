package documents

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resumegen-api/internal/shared/server/middleware"
)

func newTestRouter(svc *Service) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(middleware.Auth("dev"))
	NewHandler(svc).RegisterRoutes(r.Group("/api/v1"))
	return r
}

func postFile(t *testing.T, r *gin.Engine, field, name string, content []byte) *httptest.ResponseRecorder {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	if field != "" {
		fw, err := writer.CreateFormFile(field, name)
		require.NoError(t, err)
		_, err = fw.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/upload", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("X-Guest-Id", "test-guest")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestUploadHandlerReturnsExtractedContent(t *testing.T) {
	svc, _ := newTestService(t)
	r := newTestRouter(svc)

	rec := postFile(t, r, "file", "resume.docx", docxBytes(t, "Jane Doe", "Platform team lead"))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var out Upload
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, "resume.docx", out.Filename)
	assert.Equal(t, "Jane Doe\nPlatform team lead", out.Content)
}

func TestUploadHandlerErrors(t *testing.T) {
	svc, _ := newTestService(t)
	r := newTestRouter(svc)

	cases := []struct {
		name   string
		field  string
		file   string
		body   []byte
		status int
		code   string
	}{
		{name: "missing file", status: http.StatusBadRequest, code: "validation_error"},
		{name: "image", field: "file", file: "me.png", body: []byte("\x89PNG\r\n\x1a\n0000"), status: http.StatusUnsupportedMediaType, code: "unsupported_file_type"},
		{name: "blank text", field: "file", file: "cv.txt", body: []byte("  "), status: http.StatusUnprocessableEntity, code: "extraction_failed"},
		{name: "too large", field: "file", file: "cv.txt", body: bytes.Repeat([]byte("a"), MaxUploadBytes+1), status: http.StatusRequestEntityTooLarge, code: "file_too_large"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := postFile(t, r, tc.field, tc.file, tc.body)
			require.Equal(t, tc.status, rec.Code, rec.Body.String())

			var body struct {
				Error struct {
					Code string `json:"code"`
				} `json:"error"`
			}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tc.code, body.Error.Code)
		})
	}
}

func TestListRequiresLogin(t *testing.T) {
	svc, _ := newTestService(t)
	r := newTestRouter(svc)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/documents", nil)
	req.Header.Set("X-Guest-Id", "test-guest")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
