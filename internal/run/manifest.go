package run

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// ManifestFile is the name of the manifest written into the output directory.
const ManifestFile = "manifest.json"

// Manifest describes the outcome of a run for downstream tooling.
type Manifest struct {
	RunID            string          `json:"run_id"`
	Method           string          `json:"method"`
	Source           string          `json:"source"`
	VersesFile       string          `json:"verses_file"`
	Format           string          `json:"format"`
	Status           Status          `json:"status"`
	SourceDurationMs int64           `json:"source_duration_ms"`
	CreatedAt        time.Time       `json:"created_at"`
	CompletedAt      *time.Time      `json:"completed_at,omitempty"`
	Error            string          `json:"error,omitempty"`
	Verses           []ManifestVerse `json:"verses"`
}

// ManifestVerse is one verse entry of a Manifest.
type ManifestVerse struct {
	ID         string `json:"id"`
	Status     string `json:"status"`
	File       string `json:"file,omitempty"`
	URL        string `json:"url,omitempty"`
	StartMs    int64  `json:"start_ms"`
	EndMs      int64  `json:"end_ms"`
	DurationMs int64  `json:"duration_ms"`
	Error      string `json:"error,omitempty"`
}

// NewManifest builds a manifest from a run. File paths are made relative
// to outDir when possible.
func NewManifest(r *Run, format, outDir string) Manifest {
	snap := r.Clone()
	m := Manifest{
		RunID:            snap.ID,
		Method:           string(snap.Method),
		Source:           snap.SourcePath,
		VersesFile:       snap.VersesPath,
		Format:           format,
		Status:           snap.Status,
		SourceDurationMs: snap.SourceDurationMs,
		CreatedAt:        snap.CreatedAt,
		Error:            snap.Error,
		Verses:           make([]ManifestVerse, len(snap.Verses)),
	}
	if !snap.CompletedAt.IsZero() {
		completed := snap.CompletedAt
		m.CompletedAt = &completed
	}
	for i, v := range snap.Verses {
		file := v.File
		if rel, err := filepath.Rel(outDir, v.File); err == nil && v.File != "" {
			file = rel
		}
		m.Verses[i] = ManifestVerse{
			ID:         v.VerseID,
			Status:     string(v.Status),
			File:       file,
			URL:        v.URL,
			StartMs:    v.StartMs,
			EndMs:      v.EndMs,
			DurationMs: v.DurationMs,
			Error:      v.Error,
		}
	}
	return m
}

// WriteManifest writes m as indented JSON to <outDir>/manifest.json and
// returns the path.
func WriteManifest(outDir string, m Manifest) (string, error) {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal manifest: %w", err)
	}
	path := filepath.Join(outDir, ManifestFile)
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil { // #nosec G306 - manifest is meant to be shared
		return "", fmt.Errorf("write manifest: %w", err)
	}
	return path, nil
}
