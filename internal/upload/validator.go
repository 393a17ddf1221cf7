package upload

import (
	"fmt"
	"path/filepath"
	"strings"

	"transcriber/internal/config"
	"transcriber/internal/models"
)

// RequestError is a structural problem with the whole request (bad language,
// no files, too many files). It short-circuits before any per-file work.
type RequestError struct {
	Problems []string
}

func (e *RequestError) Error() string {
	return strings.Join(e.Problems, "; ")
}

// Rules holds the admission policy derived from configuration.
type Rules struct {
	maxFileBytes int64
	maxFiles     int
	languages    map[string]struct{}
	extensions   map[string]struct{}
	mimeTypes    map[string]struct{}
}

// NewRules builds the admission policy from the upload config section.
func NewRules(cfg config.UploadConfig) *Rules {
	r := &Rules{
		maxFileBytes: cfg.MaxFileBytes,
		maxFiles:     cfg.MaxFiles,
		languages:    make(map[string]struct{}, len(cfg.Languages)),
		extensions:   make(map[string]struct{}, len(cfg.AllowedExtensions)),
		mimeTypes:    make(map[string]struct{}, len(cfg.AllowedMimeTypes)),
	}
	for _, l := range cfg.Languages {
		r.languages[strings.ToLower(l)] = struct{}{}
	}
	for _, ext := range cfg.AllowedExtensions {
		r.extensions[strings.ToLower(ext)] = struct{}{}
	}
	for _, mt := range cfg.AllowedMimeTypes {
		r.mimeTypes[strings.ToLower(mt)] = struct{}{}
	}
	return r
}

// MaxFileBytes returns the per-file size cap.
func (r *Rules) MaxFileBytes() int64 {
	return r.maxFileBytes
}

// ValidateRequest performs the structural checks that reject the whole
// request before any file is looked at. Every problem found is reported,
// not just the first one.
func (r *Rules) ValidateRequest(language string, fileCount int) error {
	var problems []string
	if _, ok := r.languages[strings.ToLower(language)]; !ok {
		problems = append(problems, fmt.Sprintf("unsupported language %q", language))
	}
	if fileCount == 0 {
		problems = append(problems, "no files were provided")
	}
	if fileCount > r.maxFiles {
		problems = append(problems, fmt.Sprintf("a maximum of %d files can be processed at once, got %d", r.maxFiles, fileCount))
	}
	if len(problems) > 0 {
		return &RequestError{Problems: problems}
	}
	return nil
}

// ValidateFiles produces one verdict per candidate. All candidates are
// evaluated even after an earlier one fails so the caller gets the complete
// picture in one round trip. No file I/O happens here.
func (r *Rules) ValidateFiles(candidates []*models.UploadCandidate) []models.Verdict {
	verdicts := make([]models.Verdict, 0, len(candidates))
	for _, cand := range candidates {
		verdicts = append(verdicts, r.validateOne(cand))
	}
	return verdicts
}

// validateOne applies the extension, MIME and size checks. Extension and
// MIME are independent and both must pass: a spoofed MIME type with a
// disallowed extension is rejected, and vice versa.
func (r *Rules) validateOne(cand *models.UploadCandidate) models.Verdict {
	if cand.Filename == "" {
		return rejected(cand, "file has no filename")
	}
	ext := strings.ToLower(filepath.Ext(cand.Filename))
	if _, ok := r.extensions[ext]; !ok {
		return rejected(cand, fmt.Sprintf("file %s has invalid extension %q", cand.Filename, ext))
	}
	mt := strings.ToLower(strings.TrimSpace(cand.MimeType))
	if i := strings.IndexByte(mt, ';'); i >= 0 {
		mt = strings.TrimSpace(mt[:i])
	}
	if _, ok := r.mimeTypes[mt]; !ok {
		return rejected(cand, fmt.Sprintf("file %s has invalid MIME type %q", cand.Filename, cand.MimeType))
	}
	if cand.Size > r.maxFileBytes {
		return rejected(cand, fmt.Sprintf("file %s exceeds maximum size of %d MB", cand.Filename, r.maxFileBytes/(1<<20)))
	}
	return models.Verdict{Candidate: cand, Admitted: true}
}

func rejected(cand *models.UploadCandidate, reason string) models.Verdict {
	return models.Verdict{Candidate: cand, Reason: reason}
}
