package httpadapter

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/kirillkom/collector-appraisal/internal/config"
	"github.com/kirillkom/collector-appraisal/internal/core/domain"
)

func TestHealthzEndpoint(t *testing.T) {
	handler := newTestHandler(config.Config{})
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	if res.Header().Get(requestIDHeader) == "" {
		t.Fatalf("expected request id header")
	}
}

func TestAppraiseReturnsRecord(t *testing.T) {
	handler := newTestHandler(config.Config{})
	body, contentType := multipartImages(t, "jpeg-bytes")

	req := httptest.NewRequest(http.MethodPost, "/v1/appraisals", body)
	req.Header.Set("Content-Type", contentType)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}
	var record map[string]any
	if err := json.NewDecoder(res.Body).Decode(&record); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if record["category"] != "cards" || record["has_text"] != true {
		t.Fatalf("unexpected record: %+v", record)
	}
	price, ok := record["price_estimate_SEK"].(map[string]any)
	if !ok || price["mid"] != float64(800) {
		t.Fatalf("unexpected price: %+v", record["price_estimate_SEK"])
	}
}

func TestAppraiseMissingMultipartField(t *testing.T) {
	handler := newTestHandler(config.Config{})

	req := httptest.NewRequest(http.MethodPost, "/v1/appraisals", bytes.NewBufferString("plain-text"))
	req.Header.Set("Content-Type", "text/plain")
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
}

func TestAppraiseUndecodableImageReturns415(t *testing.T) {
	handler := newTestHandler(config.Config{})
	body, contentType := multipartImages(t, "bad")

	req := httptest.NewRequest(http.MethodPost, "/v1/appraisals", body)
	req.Header.Set("Content-Type", contentType)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusUnsupportedMediaType {
		t.Fatalf("expected 415, got %d", res.Code)
	}
}

func TestAppraiseOversizedUploadReturns413(t *testing.T) {
	handler := newTestHandler(config.Config{MaxUploadBytes: 64})
	body, contentType := multipartImages(t, strings.Repeat("x", 4096))

	req := httptest.NewRequest(http.MethodPost, "/v1/appraisals", body)
	req.Header.Set("Content-Type", contentType)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d", res.Code)
	}
}

func TestAppraiseRejectsGet(t *testing.T) {
	handler := newTestHandler(config.Config{})
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/v1/appraisals", nil))

	if res.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", res.Code)
	}
}

func TestAppraiseUnexpectedErrorReturns500(t *testing.T) {
	handler := routerDeps{appraiser: appraiserFake{err: errors.New("model crashed")}}.handler()
	body, contentType := multipartImages(t, "jpeg-bytes")

	req := httptest.NewRequest(http.MethodPost, "/v1/appraisals", body)
	req.Header.Set("Content-Type", contentType)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", res.Code)
	}
}

func TestAppraiseBatchReportsPerItemErrors(t *testing.T) {
	handler := newTestHandler(config.Config{})
	body, contentType := multipartImages(t, "first", "bad", "third")

	req := httptest.NewRequest(http.MethodPost, "/v1/appraisals/batch", body)
	req.Header.Set("Content-Type", contentType)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}
	var resp struct {
		Items []domain.BatchItem `json:"items"`
	}
	if err := json.NewDecoder(res.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Items) != 3 {
		t.Fatalf("expected 3 items, got %d", len(resp.Items))
	}
	if resp.Items[0].Record == nil || resp.Items[2].Record == nil {
		t.Fatalf("expected records for valid images: %+v", resp.Items)
	}
	if resp.Items[1].Record != nil || !strings.Contains(resp.Items[1].Error, "unsupported image format") {
		t.Fatalf("expected decode error for second item: %+v", resp.Items[1])
	}
}

func TestAppraiseBatchRejectsTooManyImages(t *testing.T) {
	handler := newTestHandler(config.Config{})
	payloads := make([]string, 21)
	for i := range payloads {
		payloads[i] = "img"
	}
	body, contentType := multipartImages(t, payloads...)

	req := httptest.NewRequest(http.MethodPost, "/v1/appraisals/batch", body)
	req.Header.Set("Content-Type", contentType)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
}

func TestGradingCriteriaEndpoint(t *testing.T) {
	handler := newTestHandler(config.Config{})
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/v1/categories/coin/grading", nil))

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	var resp struct {
		Category    string                 `json:"category"`
		Criteria    domain.GradingCriteria `json:"criteria"`
		Explanation string                 `json:"explanation"`
	}
	if err := json.NewDecoder(res.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Category != "coin" || resp.Criteria.Thresholds[0].Grade != "MS70" {
		t.Fatalf("unexpected criteria: %+v", resp)
	}
	if !strings.Contains(resp.Explanation, "Sheldon") {
		t.Fatalf("unexpected explanation %q", resp.Explanation)
	}
}

func TestGradingCriteriaUnknownCategory(t *testing.T) {
	handler := newTestHandler(config.Config{})
	for _, path := range []string{"/v1/categories/spoons/grading", "/v1/categories/coin"} {
		res := httptest.NewRecorder()
		handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, path, nil))
		if res.Code != http.StatusNotFound {
			t.Fatalf("%s: expected 404, got %d", path, res.Code)
		}
	}
}
