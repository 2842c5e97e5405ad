package bookings

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"
)

// generateBookingReference generates a human-readable booking reference:
// timestamp plus random suffix. Collisions are improbable, not impossible;
// the unique constraint on booking_ref is the real defense.
func generateBookingReference() (string, error) {
	timestamp := time.Now().Format("20060102")

	const letters = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	randomPart := make([]byte, 6)

	for i := range randomPart {
		num, err := rand.Int(rand.Reader, big.NewInt(int64(len(letters))))
		if err != nil {
			return "", err
		}
		randomPart[i] = letters[num.Int64()]
	}

	return fmt.Sprintf("EVT-%s-%s", timestamp, string(randomPart)), nil
}
