package queue

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// AdmissionJob is a deferred booking request. Jobs for the same event are
// keyed to the same partition, so one worker processes them in order.
type AdmissionJob struct {
	JobID      uuid.UUID `json:"job_id"`
	UserID     uuid.UUID `json:"user_id"`
	EventID    uuid.UUID `json:"event_id"`
	Quantity   int       `json:"quantity"`
	EnqueuedAt time.Time `json:"enqueued_at"`
}

// PromotionJob asks a worker to run a waitlist promotion scan after capacity
// was freed. At-least-once delivery is fine: the scan only looks at current
// queue state, so a replay notifies nobody twice.
type PromotionJob struct {
	JobID         uuid.UUID `json:"job_id"`
	EventID       uuid.UUID `json:"event_id"`
	FreedQuantity int       `json:"freed_quantity"`
	EnqueuedAt    time.Time `json:"enqueued_at"`
}

func (j *AdmissionJob) ToJSON() ([]byte, error) {
	return json.Marshal(j)
}

func (j *PromotionJob) ToJSON() ([]byte, error) {
	return json.Marshal(j)
}

func AdmissionJobFromJSON(data []byte) (*AdmissionJob, error) {
	var job AdmissionJob
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, err
	}
	return &job, nil
}

func PromotionJobFromJSON(data []byte) (*PromotionJob, error) {
	var job PromotionJob
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, err
	}
	return &job, nil
}
