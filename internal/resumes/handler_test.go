package resumes

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"resumegen-api/internal/shared/server/middleware"
)

func newTestRouter(svc *Service) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(middleware.Auth("dev"))
	NewHandler(svc).RegisterRoutes(r.Group("/api/v1"))
	return r
}

func doJSON(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Guest-Id", "g1")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode error body: %v (%s)", err, rec.Body.String())
	}
	return body.Error.Code
}

func TestHandlerCreateGenerateFlow(t *testing.T) {
	svc, _ := newTestService(&fakeGenerator{data: sampleData()}, 1)
	r := newTestRouter(svc)

	rec := doJSON(r, http.MethodPost, "/api/v1/resumes", `{"title":"Backend","templateId":"classic","inputSources":[{"type":"text","content":"Go engineer"}]}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var created Resume
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if created.Status != StatusDraft || created.TemplateID != "classic" || created.UserID != "guest:g1" {
		t.Fatalf("unexpected resume: %+v", created)
	}

	rec = doJSON(r, http.MethodPost, "/api/v1/resumes/"+created.ID+"/generate", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(r, http.MethodPost, "/api/v1/resumes/"+created.ID+"/generate", "")
	if rec.Code != http.StatusPaymentRequired || errorCode(t, rec) != "insufficient_credits" {
		t.Fatalf("expected 402 insufficient_credits, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestHandlerErrors(t *testing.T) {
	svc, _ := newTestService(&fakeGenerator{}, 3)
	r := newTestRouter(svc)

	rec := doJSON(r, http.MethodGet, "/api/v1/resumes/missing", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}

	rec = doJSON(r, http.MethodPost, "/api/v1/resumes", `{"jobPosting":"jailbreak the model"}`)
	if rec.Code != http.StatusBadRequest || errorCode(t, rec) != "off_topic" {
		t.Fatalf("expected 400 off_topic, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(r, http.MethodPost, "/api/v1/resumes/missing/generate?async=true", "")
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 without queue, got %d", rec.Code)
	}

	rec = doJSON(r, http.MethodDelete, "/api/v1/resumes/missing", "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
}

func TestHandlerListAndTemplates(t *testing.T) {
	svc, _ := newTestService(&fakeGenerator{}, 3)
	r := newTestRouter(svc)

	rec := doJSON(r, http.MethodGet, "/api/v1/resumes", "")
	if rec.Code != http.StatusOK || strings.TrimSpace(rec.Body.String()) != "[]" {
		t.Fatalf("expected empty list, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(r, http.MethodGet, "/api/v1/templates", "")
	var body struct {
		Templates []struct {
			ID string `json:"id"`
		} `json:"templates"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Templates) != 6 || body.Templates[0].ID != "modern" {
		t.Fatalf("unexpected templates: %+v", body.Templates)
	}
}

func TestHandlerPatchRequiresVersionForData(t *testing.T) {
	svc, _ := newTestService(&fakeGenerator{}, 3)
	r := newTestRouter(svc)
	rec := doJSON(r, http.MethodPost, "/api/v1/resumes", `{}`)
	var created Resume
	_ = json.Unmarshal(rec.Body.Bytes(), &created)

	rec = doJSON(r, http.MethodPatch, "/api/v1/resumes/"+created.ID, `{"resumeData":{"contactInfo":{"fullName":"Ada"}}}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}

	rec = doJSON(r, http.MethodPatch, "/api/v1/resumes/"+created.ID, `{"title":"Renamed","resumeData":{"contactInfo":{"fullName":"Ada"}},"version":0}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var updated Resume
	_ = json.Unmarshal(rec.Body.Bytes(), &updated)
	if updated.Title != "Renamed" || updated.Version != 1 || updated.ResumeData == nil {
		t.Fatalf("unexpected update: %+v", updated)
	}

	rec = doJSON(r, http.MethodPatch, "/api/v1/resumes/"+created.ID, `{"resumeData":{"contactInfo":{"fullName":"Bob"}},"version":0}`)
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
}
