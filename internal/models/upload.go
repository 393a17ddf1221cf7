package models

import "mime/multipart"

// UploadCandidate is one uploaded file before validation.
type UploadCandidate struct {
	Filename string
	MimeType string
	Size     int64
	Header   *multipart.FileHeader
}

// Rejection records why a candidate was turned away by validation.
type Rejection struct {
	Filename string `json:"filename"`
	Reason   string `json:"reason"`
}

// Verdict is the validation outcome for one candidate.
type Verdict struct {
	Candidate *UploadCandidate
	Admitted  bool
	Reason    string // set only when rejected
}

// MaterializedFile is an admitted upload persisted to the run directory.
type MaterializedFile struct {
	Filename string // original upload name
	Path     string // absolute temp path
	Size     int64
}
