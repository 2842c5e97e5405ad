package notifications

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// IntentType identifies what the recipient should be told.
type IntentType string

const (
	IntentSpotAvailable IntentType = "SPOT_AVAILABLE"
)

// Intent is a delivery-agnostic notification request. Actual delivery
// (email, SMS, push) is owned by a downstream consumer; this service only
// records that a user must be told something.
type Intent struct {
	ID              uuid.UUID  `json:"id"`
	Type            IntentType `json:"type"`
	UserID          uuid.UUID  `json:"user_id"`
	EventID         uuid.UUID  `json:"event_id"`
	WaitlistEntryID uuid.UUID  `json:"waitlist_entry_id,omitempty"`
	Quantity        int        `json:"quantity,omitempty"`
	ExpiresAt       *time.Time `json:"expires_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}

// NewSpotAvailableIntent builds the intent emitted when waitlist promotion
// frees capacity for a user.
func NewSpotAvailableIntent(userID, eventID, entryID uuid.UUID, quantity int, expiresAt *time.Time) *Intent {
	return &Intent{
		ID:              uuid.New(),
		Type:            IntentSpotAvailable,
		UserID:          userID,
		EventID:         eventID,
		WaitlistEntryID: entryID,
		Quantity:        quantity,
		ExpiresAt:       expiresAt,
		CreatedAt:       time.Now(),
	}
}

func (i *Intent) ToJSON() ([]byte, error) {
	return json.Marshal(i)
}

// PartitionKey keeps all intents for one event on one partition so a
// consumer sees them in order.
func (i *Intent) PartitionKey() string {
	return i.EventID.String()
}

func IntentFromJSON(data []byte) (*Intent, error) {
	var intent Intent
	if err := json.Unmarshal(data, &intent); err != nil {
		return nil, err
	}
	return &intent, nil
}
