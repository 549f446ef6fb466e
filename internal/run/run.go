// Package run provides the Run aggregate, which tracks one split of a
// recording into per-verse files, and the Service that drives it through
// decoding, segmentation and export.
package run

import (
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/maauso/versesplit/internal/export"
	"github.com/maauso/versesplit/internal/segment"
)

// Status represents the current state of a Run.
type Status string

const (
	// StatusPending indicates the run was created but no audio was touched yet.
	StatusPending Status = "PENDING"
	// StatusSegmenting indicates the recording is being decoded and segmented.
	StatusSegmenting Status = "SEGMENTING"
	// StatusExporting indicates segments are being written.
	StatusExporting Status = "EXPORTING"
	// StatusCompleted indicates every verse was exported.
	StatusCompleted Status = "COMPLETED"
	// StatusFailed indicates the run stopped or at least one verse failed to export.
	StatusFailed Status = "FAILED"
)

// ErrInvalidTransition is returned when an invalid state transition is attempted.
var ErrInvalidTransition = errors.New("invalid state transition")

var validTransitions = map[Status][]Status{
	StatusPending:    {StatusSegmenting, StatusFailed},
	StatusSegmenting: {StatusExporting, StatusFailed},
	StatusExporting:  {StatusCompleted, StatusFailed},
	StatusCompleted:  {},
	StatusFailed:     {},
}

func canTransition(from, to Status) bool {
	return slices.Contains(validTransitions[from], to)
}

// IsTerminal returns true if the status is final.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// VerseStatus represents the export state of a single verse.
type VerseStatus string

const (
	// VerseStatusPending indicates the verse has no segment yet or is not exported.
	VerseStatusPending VerseStatus = "PENDING"
	// VerseStatusExported indicates the verse file was written (and published, if enabled).
	VerseStatusExported VerseStatus = "EXPORTED"
	// VerseStatusFailed indicates the verse could not be exported.
	VerseStatusFailed VerseStatus = "FAILED"
)

// VerseResult is the per-verse outcome of a run.
type VerseResult struct {
	// Index is the verse's position in the verse list.
	Index   int
	VerseID string
	Status  VerseStatus
	// StartMs and EndMs are the source range of the segment.
	StartMs    int64
	EndMs      int64
	DurationMs int64
	// File is the exported file path.
	File string
	// URL is the published object URL, if publishing is enabled.
	URL   string
	Error string
}

// Run is one split of a recording into per-verse files.
type Run struct {
	mu sync.RWMutex

	// ID is the unique identifier for this run.
	ID string
	// Method is the segmentation strategy in use.
	Method segment.Method
	// SourcePath is the recording being split.
	SourcePath string
	// VersesPath is the verse list document.
	VersesPath string
	// Status is the current run state.
	Status Status
	// SourceDurationMs is the decoded recording length.
	SourceDurationMs int64
	// Verses holds one result per verse, in verse order, once segmented.
	Verses []VerseResult
	// Error contains the failure message if the run failed.
	Error string

	CreatedAt   time.Time
	UpdatedAt   time.Time
	StartedAt   time.Time
	CompletedAt time.Time
}

// New creates a Run with a random ID in PENDING status.
func New(method segment.Method, sourcePath, versesPath string) *Run {
	return NewWithID(uuid.NewString(), method, sourcePath, versesPath)
}

// NewWithID creates a Run with the specified ID in PENDING status.
func NewWithID(runID string, method segment.Method, sourcePath, versesPath string) *Run {
	now := time.Now()
	return &Run{
		ID:         runID,
		Method:     method,
		SourcePath: sourcePath,
		VersesPath: versesPath,
		Status:     StatusPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// TransitionTo attempts to change the run status to the specified state.
// Returns ErrInvalidTransition if the transition is not allowed.
func (r *Run) TransitionTo(status Status) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.transitionLocked(status)
}

func (r *Run) transitionLocked(status Status) error {
	if !canTransition(r.Status, status) {
		return ErrInvalidTransition
	}

	r.Status = status
	r.UpdatedAt = time.Now()

	switch status {
	case StatusSegmenting:
		r.StartedAt = r.UpdatedAt
	case StatusCompleted, StatusFailed:
		r.CompletedAt = r.UpdatedAt
	}
	return nil
}

// Complete transitions the run to COMPLETED.
func (r *Run) Complete() error {
	return r.TransitionTo(StatusCompleted)
}

// Fail transitions the run to FAILED with an error message.
func (r *Run) Fail(errMsg string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.transitionLocked(StatusFailed); err != nil {
		return err
	}
	r.Error = errMsg
	return nil
}

// GetStatus returns the current run status (thread-safe).
func (r *Run) GetStatus() Status {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.Status
}

// IsTerminal returns true if the run is in a terminal state.
func (r *Run) IsTerminal() bool {
	return r.GetStatus().IsTerminal()
}

// SetSourceDuration records the decoded recording length.
func (r *Run) SetSourceDuration(ms int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.SourceDurationMs = ms
	r.UpdatedAt = time.Now()
}

// SetSegments records one pending result per segment.
func (r *Run) SetSegments(segments []segment.Segment) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.Verses = make([]VerseResult, len(segments))
	for i, s := range segments {
		r.Verses[i] = VerseResult{
			Index:      i,
			VerseID:    s.VerseID,
			Status:     VerseStatusPending,
			StartMs:    s.Timeline.Start,
			EndMs:      s.Timeline.End,
			DurationMs: s.Timeline.Duration(),
		}
		if s.Audio != nil {
			r.Verses[i].DurationMs = s.Audio.Duration()
		}
	}
	r.UpdatedAt = time.Now()
}

// RecordExport applies exporter results, matched by position.
func (r *Run) RecordExport(results []export.Result) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, res := range results {
		if i >= len(r.Verses) {
			break
		}
		v := &r.Verses[i]
		v.File = res.Path
		v.URL = res.URL
		if res.Err != nil {
			v.Status = VerseStatusFailed
			v.Error = res.Err.Error()
			continue
		}
		v.Status = VerseStatusExported
	}
	r.UpdatedAt = time.Now()
}

// Counts returns how many verses were exported and how many failed.
func (r *Run) Counts() (exported, failed int) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, v := range r.Verses {
		switch v.Status {
		case VerseStatusExported:
			exported++
		case VerseStatusFailed:
			failed++
		}
	}
	return exported, failed
}

// Clone creates a deep copy of the run for safe reads.
func (r *Run) Clone() *Run {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return &Run{
		ID:               r.ID,
		Method:           r.Method,
		SourcePath:       r.SourcePath,
		VersesPath:       r.VersesPath,
		Status:           r.Status,
		SourceDurationMs: r.SourceDurationMs,
		Verses:           slices.Clone(r.Verses),
		Error:            r.Error,
		CreatedAt:        r.CreatedAt,
		UpdatedAt:        r.UpdatedAt,
		StartedAt:        r.StartedAt,
		CompletedAt:      r.CompletedAt,
	}
}
