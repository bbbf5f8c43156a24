package fingerprint

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestComputeIsStable(t *testing.T) {
	data := []byte("quarterly report contents")
	assert.Equal(t, Compute(data), Compute(data))
}

func TestComputeKnownDigest(t *testing.T) {
	// sha256("") is a fixed vector.
	assert.Equal(t,
		"e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855",
		Compute(nil),
	)
}

func TestComputeDiffersOnContent(t *testing.T) {
	assert.NotEqual(t, Compute([]byte("a")), Compute([]byte("b")))
}
