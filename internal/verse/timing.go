package verse

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// TimingEntry maps a verse id to explicit boundaries, in seconds.
type TimingEntry struct {
	ID        ID      `json:"id" validate:"required"`
	StartTime float64 `json:"start_time"`
	EndTime   float64 `json:"end_time"`
	// Sanskrit is a truncated preview of the verse text to help manual editing.
	Sanskrit string `json:"sanskrit"`
}

// TimingDocument is the timing file: {"verses": [...]}.
type TimingDocument struct {
	Verses []TimingEntry `json:"verses" validate:"required,dive"`
}

// ByID indexes the entries by id.
func (d *TimingDocument) ByID() map[string]TimingEntry {
	out := make(map[string]TimingEntry, len(d.Verses))
	for _, e := range d.Verses {
		out[e.ID.String()] = e
	}
	return out
}

// ParseTiming decodes and validates a timing document. Boundaries are not
// range-checked here; that needs the recording's duration.
func ParseTiming(r io.Reader) (*TimingDocument, error) {
	var d TimingDocument
	if err := json.NewDecoder(r).Decode(&d); err != nil {
		return nil, fmt.Errorf("%w: decode timing: %w", ErrInvalidDocument, err)
	}
	if err := validate.Struct(&d); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDocument, err)
	}
	if err := checkUnique(len(d.Verses), func(i int) ID { return d.Verses[i].ID }); err != nil {
		return nil, err
	}
	return &d, nil
}

// LoadTiming reads the timing document at path.
func LoadTiming(path string) (*TimingDocument, error) {
	f, err := os.Open(path) // #nosec G304 - path is provided by trusted caller
	if err != nil {
		return nil, fmt.Errorf("open timing file: %w", err)
	}
	defer func() { _ = f.Close() }()

	d, err := ParseTiming(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return d, nil
}

// WriteTiming encodes d with two-space indentation and unescaped Unicode.
func WriteTiming(w io.Writer, d *TimingDocument) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(d); err != nil {
		return fmt.Errorf("encode timing: %w", err)
	}
	return nil
}

// SaveTiming writes d to path, replacing any existing file.
func SaveTiming(path string, d *TimingDocument) error {
	f, err := os.Create(path) // #nosec G304 - path is provided by trusted caller
	if err != nil {
		return fmt.Errorf("create timing file: %w", err)
	}
	if err := WriteTiming(f, d); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close timing file: %w", err)
	}
	return nil
}

// DefaultTimingPath derives the template name from the verse file:
// "data/gayatri.json" -> "timing-gayatri.json".
func DefaultTimingPath(versePath string) string {
	base := filepath.Base(versePath)
	return "timing-" + strings.TrimSuffix(base, filepath.Ext(base)) + ".json"
}
