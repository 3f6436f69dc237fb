package consensus

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTierOfAcceptsTitlesAndProviderKeys(t *testing.T) {
	assert.Equal(t, 1, tierOf("Pinnacle"))
	assert.Equal(t, 1, tierOf("circasports"))
	assert.Equal(t, 2, tierOf("betonlineag"))
	assert.Equal(t, tierOf("William Hill"), tierOf("williamhill_us"))
}

func TestTierOfUnknownBookIsCatchAll(t *testing.T) {
	assert.Equal(t, catchAllTier, tierOf("corner bodega"))
	assert.Equal(t, catchAllTier, tierOf(""))
}
