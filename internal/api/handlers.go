package api

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"transcriber/internal/archive"
	"transcriber/internal/config"
	"transcriber/internal/metrics"
	"transcriber/internal/models"
	"transcriber/internal/ratelimit"
	"transcriber/internal/storage"
	"transcriber/internal/transcribe"
	"transcriber/internal/upload"
)

// Handler wires HTTP routes to the upload/transcription pipeline.
type Handler struct {
	rules        *upload.Rules
	orchestrator *transcribe.Orchestrator
	limiter      *ratelimit.Limiter
	metrics      *metrics.Metrics
	tempBase     string
	staticDir    string
}

// NewHandler constructs a Handler instance. The transcriber is injected so
// tests can substitute a double for the provider client.
func NewHandler(t transcribe.Transcriber, cfg *config.Config, limiter *ratelimit.Limiter, m *metrics.Metrics) *Handler {
	if m != nil {
		t = &instrumentedTranscriber{inner: t, metrics: m}
	}
	return &Handler{
		rules:        upload.NewRules(cfg.Upload),
		orchestrator: transcribe.NewOrchestrator(t, cfg.Transcription.MaxConcurrent),
		limiter:      limiter,
		metrics:      m,
		tempBase:     cfg.BasicConfig.TempBaseDir,
		staticDir:    "static",
	}
}

// RegisterRoutes attaches all HTTP routes to the router.
func (h *Handler) RegisterRoutes(router *gin.Engine) {
	if h.metrics != nil {
		router.Use(h.countRequests())
	}
	if h.limiter != nil {
		router.POST("/transcribe", h.limiter.Middleware(), h.transcribeBatch)
	} else {
		router.POST("/transcribe", h.transcribeBatch)
	}
	router.GET("/healthz", h.healthz)
	router.GET("/", h.serveIndex)
}

func (h *Handler) countRequests() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		h.metrics.HTTPRequests.WithLabelValues(strconv.Itoa(c.Writer.Status())).Inc()
	}
}

func (h *Handler) healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) serveIndex(c *gin.Context) {
	index := filepath.Join(h.staticDir, "index.html")
	if _, err := os.Stat(index); err != nil {
		c.String(http.StatusNotFound, "UI files not found")
		return
	}
	c.File(index)
}

func (h *Handler) transcribeBatch(c *gin.Context) {
	apiKey, ok := bearerToken(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "API key must be provided in the Authorization header as 'Bearer <api_key>'"})
		return
	}

	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid multipart form"})
		return
	}
	language := strings.TrimSpace(c.PostForm("language"))
	headers := form.File["files"]

	if err := h.rules.ValidateRequest(language, len(headers)); err != nil {
		var reqErr *upload.RequestError
		if errors.As(err, &reqErr) {
			c.JSON(http.StatusBadRequest, gin.H{"error": reqErr.Error(), "problems": reqErr.Problems})
		} else {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		}
		return
	}

	candidates := make([]*models.UploadCandidate, 0, len(headers))
	for _, header := range headers {
		candidates = append(candidates, &models.UploadCandidate{
			Filename: filepath.Base(header.Filename),
			MimeType: header.Header.Get("Content-Type"),
			Size:     header.Size,
			Header:   header,
		})
	}
	if h.metrics != nil {
		h.metrics.UploadsReceived.Add(float64(len(candidates)))
	}

	verdicts := h.rules.ValidateFiles(candidates)
	rejections := make([]models.Rejection, 0, len(verdicts))
	admitted := make([]models.Verdict, 0, len(verdicts))
	for _, v := range verdicts {
		if v.Admitted {
			admitted = append(admitted, v)
			continue
		}
		rejections = append(rejections, models.Rejection{Filename: v.Candidate.Filename, Reason: v.Reason})
	}
	if h.metrics != nil {
		h.metrics.UploadsRejected.Add(float64(len(rejections)))
	}
	if len(admitted) == 0 {
		reasons := make([]string, 0, len(rejections))
		for _, rej := range rejections {
			reasons = append(reasons, rej.Reason)
		}
		c.JSON(http.StatusBadRequest, gin.H{
			"error":    "no valid audio files were provided",
			"problems": reasons,
		})
		return
	}

	run, err := storage.NewRun(h.tempBase)
	if err != nil {
		log.Printf("create run directory: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "temporary storage unavailable"})
		return
	}
	// Covers every exit path below: materialized uploads and the archive
	// all live inside the run directory.
	defer run.Cleanup()

	// Materialization failures are per-file outcomes; outcome order stays
	// the original upload order.
	outcomes := make([]models.Outcome, len(admitted))
	files := make([]*models.MaterializedFile, 0, len(admitted))
	positions := make([]int, 0, len(admitted))
	for i, v := range admitted {
		mf, err := upload.Materialize(run, v.Candidate.Header, i, h.rules.MaxFileBytes())
		if err != nil {
			log.Printf("materialize upload: %v", err)
			outcomes[i] = models.Outcome{Filename: v.Candidate.Filename, Err: err}
			continue
		}
		files = append(files, mf)
		positions = append(positions, i)
	}

	transcribed, err := h.orchestrator.Run(c.Request.Context(), files, apiKey, language)
	if err != nil {
		if transcribe.IsAuthentication(err) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	for i, outcome := range transcribed {
		outcomes[positions[i]] = outcome
	}

	batch := &models.Batch{Outcomes: outcomes, Rejections: rejections}
	zipPath, err := archive.BuildZip(run, batch)
	if err != nil {
		if errors.Is(err, archive.ErrEmptyBatch) {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error":    err.Error(),
				"failures": failureReasons(batch),
			})
			return
		}
		log.Printf("assemble archive: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to assemble archive"})
		return
	}
	if h.metrics != nil {
		if info, statErr := os.Stat(zipPath); statErr == nil {
			h.metrics.ArchiveBytes.Observe(float64(info.Size()))
		}
	}

	c.FileAttachment(zipPath, archive.ArchiveName)
}

// bearerToken extracts the provider credential from the Authorization header.
func bearerToken(c *gin.Context) (string, bool) {
	authHeader := c.GetHeader("Authorization")
	if !strings.HasPrefix(strings.ToLower(authHeader), "bearer ") {
		return "", false
	}
	token := strings.TrimSpace(authHeader[7:])
	return token, token != ""
}

func failureReasons(batch *models.Batch) []string {
	reasons := make([]string, 0, len(batch.Outcomes)+len(batch.Rejections))
	for _, rej := range batch.Rejections {
		reasons = append(reasons, rej.Reason)
	}
	for _, outcome := range batch.Outcomes {
		if !outcome.Succeeded() {
			reasons = append(reasons, outcome.Filename+": "+outcome.Err.Error())
		}
	}
	return reasons
}

// instrumentedTranscriber records per-call duration and result class.
type instrumentedTranscriber struct {
	inner   transcribe.Transcriber
	metrics *metrics.Metrics
}

func (t *instrumentedTranscriber) Transcribe(ctx context.Context, req transcribe.Request) (string, error) {
	start := time.Now()
	text, err := t.inner.Transcribe(ctx, req)
	t.metrics.TranscriptionDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		var pe *transcribe.ProviderError
		class := "unknown"
		if errors.As(err, &pe) {
			class = string(pe.Class)
		}
		t.metrics.TranscriptionFailures.WithLabelValues(class).Inc()
		return text, err
	}
	t.metrics.TranscriptionSuccesses.Inc()
	return text, nil
}
