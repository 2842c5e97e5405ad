package bookings

import (
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateBookingReference(t *testing.T) {
	pattern := regexp.MustCompile(`^EVT-\d{8}-[A-Z]{6}$`)

	ref, err := generateBookingReference()
	require.NoError(t, err)
	assert.Regexp(t, pattern, ref)
	assert.Contains(t, ref, time.Now().Format("20060102"))
}

func TestGenerateBookingReferenceVaries(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		ref, err := generateBookingReference()
		require.NoError(t, err)
		seen[ref] = true
	}
	// 26^6 combinations; 50 draws colliding down to one value would mean
	// the generator is broken
	assert.Greater(t, len(seen), 1)
}
