package verse

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	t.Run("string and numeric ids", func(t *testing.T) {
		doc := `{"title": "Gayatri", "verses": [
			{"id": 1, "sanskrit": "ॐ भूर्भुवः स्वः", "translation": "Om"},
			{"id": "v2", "sanskrit": "तत्सवितुर्वरेण्यं"}
		]}`

		c, err := Parse(strings.NewReader(doc))
		require.NoError(t, err)

		assert.Equal(t, "Gayatri", c.Title)
		assert.Equal(t, []string{"1", "v2"}, c.IDs())
		assert.Equal(t, "ॐ भूर्भुवः स्वः", c.Verses[0].Text())
		assert.JSONEq(t, `"Om"`, string(c.Verses[0].Extra["translation"]))
		assert.Nil(t, c.Verses[1].Extra)
	})

	tests := []struct {
		name    string
		doc     string
		wantErr error
	}{
		{"malformed json", `{"verses": [`, ErrInvalidDocument},
		{"no verses", `{"verses": []}`, ErrInvalidDocument},
		{"missing verses key", `{}`, ErrInvalidDocument},
		{"missing id", `{"verses": [{"sanskrit": "a"}]}`, ErrInvalidDocument},
		{"empty text", `{"verses": [{"id": 1, "sanskrit": ""}]}`, ErrInvalidDocument},
		{"boolean id", `{"verses": [{"id": true, "sanskrit": "a"}]}`, ErrInvalidDocument},
		{"duplicate id", `{"verses": [{"id": 1, "sanskrit": "a"}, {"id": "1", "sanskrit": "b"}]}`, ErrDuplicateID},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(tt.doc))
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestID_MarshalKeepsOriginalShape(t *testing.T) {
	var ids []ID
	require.NoError(t, json.Unmarshal([]byte(`[7, "v7"]`), &ids))

	out, err := json.Marshal(append(ids, NewID("x")))
	require.NoError(t, err)
	assert.JSONEq(t, `[7, "v7", "x"]`, string(out))
	assert.True(t, ID{}.IsZero())
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "verses.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"verses": [{"id": 1, "sanskrit": "a"}]}`), 0o600))

	c, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, c.Verses, 1)

	_, err = Load(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)
}

func TestTimingDocument_SaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "timing.json")
	doc := &TimingDocument{Verses: []TimingEntry{
		{ID: NewID("v1"), StartTime: 0, EndTime: 2.5, Sanskrit: "ॐ"},
		{ID: NewID("v2"), StartTime: 2.5, EndTime: 6},
	}}

	require.NoError(t, SaveTiming(path, doc))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "\"sanskrit\": \"ॐ\"", "unicode must not be escaped")
	assert.Contains(t, string(raw), "\n  \"verses\"")

	loaded, err := LoadTiming(path)
	require.NoError(t, err)
	byID := loaded.ByID()
	assert.Equal(t, 2.5, byID["v1"].EndTime)
	assert.Equal(t, 6.0, byID["v2"].EndTime)
}

func TestParseTiming_Errors(t *testing.T) {
	_, err := ParseTiming(strings.NewReader(`{"verses": [{"id": 1}, {"id": 1}]}`))
	assert.ErrorIs(t, err, ErrDuplicateID)

	_, err = ParseTiming(strings.NewReader(`{"verses": [{"start_time": 1}]}`))
	assert.ErrorIs(t, err, ErrInvalidDocument)

	_, err = ParseTiming(strings.NewReader(`not json`))
	assert.ErrorIs(t, err, ErrInvalidDocument)
}

func TestWriteTiming_NumericIDs(t *testing.T) {
	c, err := Parse(strings.NewReader(`{"verses": [{"id": 3, "sanskrit": "a"}]}`))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteTiming(&buf, &TimingDocument{Verses: []TimingEntry{{ID: c.Verses[0].ID}}}))
	assert.Contains(t, buf.String(), `"id": 3`)
}

func TestDefaultTimingPath(t *testing.T) {
	assert.Equal(t, "timing-gayatri.json", DefaultTimingPath("src/data/gayatri.json"))
	assert.Equal(t, "timing-verses.json", DefaultTimingPath("verses"))
}
