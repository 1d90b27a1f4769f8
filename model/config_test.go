package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultSearchConfig(t *testing.T) {
	t.Run("Returns correct default values", func(t *testing.T) {
		config := DefaultSearchConfig()
		assert.Equal(t, 5, config.TopK, "Default TopK should be 5")
	})
}
