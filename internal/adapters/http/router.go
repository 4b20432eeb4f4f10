package httpadapter

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/kirillkom/collector-appraisal/internal/config"
	"github.com/kirillkom/collector-appraisal/internal/core/domain"
	"github.com/kirillkom/collector-appraisal/internal/core/ports"
	"github.com/kirillkom/collector-appraisal/internal/core/usecase"
)

const (
	imageField       = "image"
	multipartMemory  = 32 << 20
	defaultMaxUpload = 20 << 20
	serviceName      = "collector-api"
)

// MetricsRecorder is the optional metrics sink of the router.
type MetricsRecorder interface {
	Middleware(service string, next http.Handler) http.Handler
	Handler() http.Handler
	RecordUpload(service, path string, size int64)
	ObserveAppraisal(mode string, duration time.Duration)
}

type Router struct {
	cfg       config.Config
	appraiser ports.Appraiser
	ingestor  ports.ScanIngestor
	scans     ports.ScanReader
	catalog   ports.GradingCatalog
	decoder   ports.ImageDecoder
	metrics   MetricsRecorder
}

type RouterOption func(*Router)

func WithMetrics(metrics MetricsRecorder) RouterOption {
	return func(rt *Router) {
		rt.metrics = metrics
	}
}

func NewRouter(
	cfg config.Config,
	appraiser ports.Appraiser,
	ingestor ports.ScanIngestor,
	scans ports.ScanReader,
	catalog ports.GradingCatalog,
	decoder ports.ImageDecoder,
	opts ...RouterOption,
) *Router {
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = defaultMaxUpload
	}
	rt := &Router{
		cfg:       cfg,
		appraiser: appraiser,
		ingestor:  ingestor,
		scans:     scans,
		catalog:   catalog,
		decoder:   decoder,
	}
	for _, opt := range opts {
		opt(rt)
	}
	return rt
}

func (rt *Router) Handler() http.Handler {
	api := http.NewServeMux()
	api.HandleFunc("/v1/appraisals", rt.appraise)
	api.HandleFunc("/v1/appraisals/batch", rt.appraiseBatch)
	api.HandleFunc("/v1/scans", rt.captureScan)
	api.HandleFunc("/v1/scans/", rt.getScanByID)
	api.HandleFunc("/v1/categories/", rt.gradingCriteria)

	var limited http.Handler = api
	limited = backpressureMiddleware(limited, rt.cfg.APIMaxInFlight, rt.cfg.APIInFlightWait)
	limited = rateLimitMiddleware(limited, rt.cfg.APIRateLimitRPS, rt.cfg.APIRateLimitBurst)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.Handle("/v1/", limited)

	var handler http.Handler = mux
	if rt.metrics != nil {
		mux.Handle("/metrics", rt.metrics.Handler())
		handler = rt.metrics.Middleware(serviceName, handler)
	}
	return requestIDMiddleware(accessLogMiddleware(handler))
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) appraise(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	files, err := rt.imageParts(w, r)
	if err != nil {
		writeError(w, err)
		return
	}
	raw, err := rt.readPart(r, files[0])
	if err != nil {
		writeError(w, err)
		return
	}
	image, err := rt.decoder.Decode(raw)
	if err != nil {
		writeError(w, err)
		return
	}

	start := time.Now()
	record, err := rt.appraiser.ProduceAppraisal(r.Context(), image)
	if err != nil {
		writeError(w, err)
		return
	}
	rt.observeAppraisal("sync", time.Since(start))
	writeJSON(w, http.StatusOK, record)
}

func (rt *Router) appraiseBatch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	files, err := rt.imageParts(w, r)
	if err != nil {
		writeError(w, err)
		return
	}
	if len(files) > usecase.MaxBatchSize {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": fmt.Sprintf("at most %d images per batch", usecase.MaxBatchSize),
		})
		return
	}

	// Images that fail to decode are passed on as nil and reported per item.
	images := make([]*domain.Image, len(files))
	decodeErrs := make([]error, len(files))
	for i, fh := range files {
		raw, err := rt.readPart(r, fh)
		if err == nil {
			images[i], err = rt.decoder.Decode(raw)
		}
		decodeErrs[i] = err
	}

	start := time.Now()
	items, err := rt.appraiser.ProduceBatch(r.Context(), images)
	if err != nil {
		writeError(w, err)
		return
	}
	for i := range items {
		if i < len(decodeErrs) && decodeErrs[i] != nil {
			items[i].Record = nil
			items[i].Error = decodeErrs[i].Error()
		}
	}
	rt.observeAppraisal("batch", time.Since(start))
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (rt *Router) captureScan(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	files, err := rt.imageParts(w, r)
	if err != nil {
		writeError(w, err)
		return
	}
	fileHeader := files[0]
	file, err := fileHeader.Open()
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "cannot open uploaded image"})
		return
	}
	defer file.Close()
	rt.recordUpload(r, fileHeader.Size)

	scan, err := rt.ingestor.Capture(
		r.Context(),
		fileHeader.Filename,
		fileHeader.Header.Get("Content-Type"),
		file,
	)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, scan)
}

func (rt *Router) getScanByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/v1/scans/")
	if id == "" || strings.Contains(id, "/") {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "scan id is required"})
		return
	}

	scan, err := rt.scans.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, scan)
}

func (rt *Router) gradingCriteria(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	rest := strings.TrimPrefix(r.URL.Path, "/v1/categories/")
	name, suffix, ok := strings.Cut(rest, "/")
	if !ok || suffix != "grading" {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
		return
	}
	category, known := domain.ParseCategory(name)
	if !known {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown category " + name})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"category":    category,
		"criteria":    rt.catalog.Criteria(category),
		"explanation": rt.catalog.GradingExplanation(category),
	})
}

// imageParts returns the uploaded "image" parts, enforcing the request size limit.
func (rt *Router) imageParts(w http.ResponseWriter, r *http.Request) ([]*multipart.FileHeader, error) {
	r.Body = http.MaxBytesReader(w, r.Body, rt.cfg.MaxUploadBytes)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			return nil, err
		}
		return nil, domain.WrapError(domain.ErrInvalidInput, "parse upload", fmt.Errorf("multipart field '%s' is required", imageField))
	}
	files := r.MultipartForm.File[imageField]
	if len(files) == 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "parse upload", fmt.Errorf("multipart field '%s' is required", imageField))
	}
	return files, nil
}

func (rt *Router) readPart(r *http.Request, fh *multipart.FileHeader) ([]byte, error) {
	file, err := fh.Open()
	if err != nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "open upload", err)
	}
	defer file.Close()

	raw, err := io.ReadAll(file)
	if err != nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "read upload", err)
	}
	rt.recordUpload(r, int64(len(raw)))
	return raw, nil
}

func (rt *Router) recordUpload(r *http.Request, size int64) {
	if rt.metrics != nil {
		rt.metrics.RecordUpload(serviceName, r.URL.Path, size)
	}
}

func (rt *Router) observeAppraisal(mode string, d time.Duration) {
	if rt.metrics != nil {
		rt.metrics.ObserveAppraisal(mode, d)
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
