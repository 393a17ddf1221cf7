package models

// Outcome is the result of attempting to transcribe one materialized file.
// Exactly one outcome exists per file; outcomes are independent of each other.
type Outcome struct {
	Filename string
	Text     string // present only on success
	Err      error  // present only on failure
}

// Succeeded reports whether the transcription produced text.
func (o Outcome) Succeeded() bool {
	return o.Err == nil
}

// Batch aggregates every per-file outcome and rejection for one request,
// in original upload order.
type Batch struct {
	Outcomes   []Outcome
	Rejections []Rejection
}

// SuccessCount returns the number of succeeded outcomes.
func (b *Batch) SuccessCount() int {
	n := 0
	for _, o := range b.Outcomes {
		if o.Succeeded() {
			n++
		}
	}
	return n
}
