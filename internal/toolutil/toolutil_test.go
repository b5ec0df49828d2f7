package toolutil

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/anatolykoptev/go_vault/internal/engine/youtube"
)

func TestNormAction(t *testing.T) {
	assert.Equal(t, "stats", NormAction("", "stats"))
	assert.Equal(t, "clear", NormAction("  CLEAR ", "stats"))
}

func TestProviderOrder(t *testing.T) {
	assert.Nil(t, ProviderOrder(""))
	assert.Equal(t, []youtube.ProviderName{youtube.ProviderDecodo, youtube.ProviderDirect},
		ProviderOrder("decodo, bogus ,DIRECT"))
}

func TestNewRequestID(t *testing.T) {
	a, b := NewRequestID(), NewRequestID()
	assert.Len(t, a, 8)
	assert.NotEqual(t, a, b)
}
