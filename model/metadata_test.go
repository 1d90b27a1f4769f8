package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetadataScan(t *testing.T) {
	t.Run("Scan from JSONB bytes", func(t *testing.T) {
		var m Metadata
		err := m.Scan([]byte(`{"line": 3, "raw_text": "foo()"}`))
		require.NoError(t, err, "Expected Scan to not return an error")
		assert.Equal(t, float64(3), m["line"], "Expected JSON numbers to decode as float64")
		assert.Equal(t, "foo()", m["raw_text"])
	})

	t.Run("Scan from string", func(t *testing.T) {
		var m Metadata
		err := m.Scan(`{"column": 4}`)
		require.NoError(t, err, "Expected Scan to accept a string")
		assert.Equal(t, float64(4), m["column"])
	})

	t.Run("Scan nil gives empty metadata", func(t *testing.T) {
		var m Metadata
		require.NoError(t, m.Scan(nil))
		assert.NotNil(t, m, "Expected empty non-nil metadata")
		assert.Empty(t, m)
	})

	t.Run("Scan unsupported type", func(t *testing.T) {
		var m Metadata
		err := m.Scan(42)
		assert.Error(t, err, "Expected error for integer input")
	})
}

func TestMetadataMerge(t *testing.T) {
	t.Run("Other overwrites existing keys", func(t *testing.T) {
		base := Metadata{"line": 1, "raw_text": "a()"}
		merged := base.Merge(Metadata{"line": 7, "column": 2})

		assert.Equal(t, 7, merged["line"], "Expected line from other")
		assert.Equal(t, 2, merged["column"], "Expected new key from other")
		assert.Equal(t, "a()", merged["raw_text"], "Expected untouched key from base")
		assert.Equal(t, 1, base["line"], "Expected base to stay unchanged")
	})
}
