// Package verse loads and validates the structured inputs of a split run:
// the verse collection that defines segment order, and the timing document
// used for explicit, manually corrected boundaries.
package verse

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Static errors for document loading.
var (
	// ErrInvalidDocument is returned when a document is malformed or fails validation.
	ErrInvalidDocument = errors.New("invalid document")
	// ErrDuplicateID is returned when two entries of a document share an id.
	ErrDuplicateID = errors.New("duplicate verse id")
)

// ID identifies a verse. Source documents use JSON strings or numbers; the
// original token is kept so documents written back keep the same shape.
type ID struct {
	raw  json.RawMessage
	text string
}

// NewID returns a string-typed ID.
func NewID(s string) ID {
	return ID{text: s}
}

// String returns the textual form of the id: "v1" for "v1", "3" for 3.
func (id ID) String() string { return id.text }

// IsZero reports whether the id is absent or empty.
func (id ID) IsZero() bool { return id.text == "" }

// UnmarshalJSON accepts a JSON string or number.
func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*id = ID{}
		return nil
	}

	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID{raw: append(json.RawMessage(nil), data...), text: s}
	default:
		var n json.Number
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.UseNumber()
		if err := dec.Decode(&n); err != nil {
			return fmt.Errorf("id must be a string or number, got %s", data)
		}
		*id = ID{raw: append(json.RawMessage(nil), data...), text: n.String()}
	}
	return nil
}

// MarshalJSON writes the id back in its original JSON form.
func (id ID) MarshalJSON() ([]byte, error) {
	if len(id.raw) > 0 {
		return id.raw, nil
	}
	return json.Marshal(id.text)
}

// Verse is one addressable unit of the recited text.
type Verse struct {
	// ID is unique within a collection.
	ID ID `json:"id" validate:"required"`
	// Sanskrit is the verse text.
	Sanskrit string `json:"sanskrit" validate:"required"`
	// Extra holds every other field of the source record, untouched.
	Extra map[string]json.RawMessage `json:"-"`
}

// Text returns the verse text.
func (v Verse) Text() string { return v.Sanskrit }

// UnmarshalJSON decodes the known fields and keeps the rest in Extra.
func (v *Verse) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}

	var out Verse
	if raw, ok := fields["id"]; ok {
		if err := json.Unmarshal(raw, &out.ID); err != nil {
			return fmt.Errorf("verse id: %w", err)
		}
		delete(fields, "id")
	}
	if raw, ok := fields["sanskrit"]; ok {
		if err := json.Unmarshal(raw, &out.Sanskrit); err != nil {
			return fmt.Errorf("verse %s text: %w", out.ID, err)
		}
		delete(fields, "sanskrit")
	}
	if len(fields) > 0 {
		out.Extra = fields
	}
	*v = out
	return nil
}

// Collection is the verse source document: {"verses": [...]}.
type Collection struct {
	Title  string  `json:"title,omitempty"`
	Verses []Verse `json:"verses" validate:"required,min=1,dive"`
}

// IDs returns the verse ids in canonical order.
func (c *Collection) IDs() []string {
	ids := make([]string, len(c.Verses))
	for i, v := range c.Verses {
		ids[i] = v.ID.String()
	}
	return ids
}

// Parse decodes and validates a collection.
func Parse(r io.Reader) (*Collection, error) {
	var c Collection
	if err := json.NewDecoder(r).Decode(&c); err != nil {
		return nil, fmt.Errorf("%w: decode verses: %w", ErrInvalidDocument, err)
	}
	if err := validate.Struct(&c); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDocument, err)
	}
	if err := checkUnique(len(c.Verses), func(i int) ID { return c.Verses[i].ID }); err != nil {
		return nil, err
	}
	return &c, nil
}

// Load reads the collection at path.
func Load(path string) (*Collection, error) {
	f, err := os.Open(path) // #nosec G304 - path is provided by trusted caller
	if err != nil {
		return nil, fmt.Errorf("open verse file: %w", err)
	}
	defer func() { _ = f.Close() }()

	c, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

func checkUnique(n int, idAt func(int) ID) error {
	seen := make(map[string]int, n)
	for i := 0; i < n; i++ {
		id := idAt(i).String()
		if prev, ok := seen[id]; ok {
			return fmt.Errorf("%w: %q at positions %d and %d", ErrDuplicateID, id, prev, i)
		}
		seen[id] = i
	}
	return nil
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	v.RegisterCustomTypeFunc(func(field reflect.Value) any {
		if id, ok := field.Interface().(ID); ok {
			return id.String()
		}
		return nil
	}, ID{})
	return v
}
