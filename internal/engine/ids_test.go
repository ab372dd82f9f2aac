package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRingID_DeterministicAndSensitiveToIdentity(t *testing.T) {
	a := ringID("cycle|A,B,C")
	b := ringID("cycle|A,B,C")
	c := ringID("cycle|A,B,D")

	assert.Equal(t, a, b, "same identity must hash to the same id")
	assert.NotEqual(t, a, c, "different identity must hash to a different id")
	assert.Len(t, a, 32, "id is a hex-encoded 16-byte sha256 prefix")
}
