package jobqueue

import (
	"encoding/json"
	"time"
)

// JobType defines the type of job
type JobType string

const (
	JobTypeHoldExpiry   JobType = "hold_expiry"
	JobTypePaymentEvent JobType = "payment_event"
	JobTypeNotification JobType = "notification"
)

// JobStatus defines the status of a job
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
	JobStatusRetrying   JobStatus = "retrying"
)

// Job represents a background job
type Job struct {
	ID          string                 `json:"id"`
	Type        JobType                `json:"type"`
	Status      JobStatus              `json:"status"`
	Payload     map[string]interface{} `json:"payload"`
	DedupKey    string                 `json:"dedup_key,omitempty"`
	RunAt       *time.Time             `json:"run_at,omitempty"`
	CreatedAt   time.Time              `json:"created_at"`
	UpdatedAt   time.Time              `json:"updated_at"`
	ProcessedAt *time.Time             `json:"processed_at,omitempty"`
	CompletedAt *time.Time             `json:"completed_at,omitempty"`
	ErrorMsg    string                 `json:"error_msg,omitempty"`
	RetryCount  int                    `json:"retry_count"`
	MaxRetries  int                    `json:"max_retries"`
}

// HoldExpiryJobPayload contains the payload for deferred hold-expiry jobs
type HoldExpiryJobPayload struct {
	HoldID    uint `json:"hold_id"`
	BookingID uint `json:"booking_id"`
	SlotID    uint `json:"slot_id"`
}

// ToMap converts the payload to a map for storage
func (p HoldExpiryJobPayload) ToMap() map[string]interface{} {
	return map[string]interface{}{
		"hold_id":    p.HoldID,
		"booking_id": p.BookingID,
		"slot_id":    p.SlotID,
	}
}

// HoldExpiryJobPayloadFromMap creates a payload from a map
func HoldExpiryJobPayloadFromMap(data map[string]interface{}) (*HoldExpiryJobPayload, error) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	var payload HoldExpiryJobPayload
	err = json.Unmarshal(jsonData, &payload)
	return &payload, err
}

// PaymentEventJobPayload contains the payload for webhook event processing jobs
type PaymentEventJobPayload struct {
	ProviderEventID string `json:"provider_event_id"`
}

// ToMap converts the payload to a map for storage
func (p PaymentEventJobPayload) ToMap() map[string]interface{} {
	return map[string]interface{}{
		"provider_event_id": p.ProviderEventID,
	}
}

// PaymentEventJobPayloadFromMap creates a payload from a map
func PaymentEventJobPayloadFromMap(data map[string]interface{}) (*PaymentEventJobPayload, error) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	var payload PaymentEventJobPayload
	err = json.Unmarshal(jsonData, &payload)
	return &payload, err
}

// NotificationJobPayload contains the payload for customer notification jobs
type NotificationJobPayload struct {
	Kind      string `json:"kind"`
	BookingID uint   `json:"booking_id"`
	Email     string `json:"email"`
}

// ToMap converts the payload to a map for storage
func (p NotificationJobPayload) ToMap() map[string]interface{} {
	return map[string]interface{}{
		"kind":       p.Kind,
		"booking_id": p.BookingID,
		"email":      p.Email,
	}
}

// NotificationJobPayloadFromMap creates a payload from a map
func NotificationJobPayloadFromMap(data map[string]interface{}) (*NotificationJobPayload, error) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	var payload NotificationJobPayload
	err = json.Unmarshal(jsonData, &payload)
	return &payload, err
}

// IsRetryable checks if the job can be retried
func (j *Job) IsRetryable() bool {
	return j.Status == JobStatusFailed && j.RetryCount < j.MaxRetries
}

// MarkAsProcessing updates the job status to processing
func (j *Job) MarkAsProcessing() {
	now := time.Now()
	j.Status = JobStatusProcessing
	j.UpdatedAt = now
	j.ProcessedAt = &now
}

// MarkAsCompleted updates the job status to completed
func (j *Job) MarkAsCompleted() {
	now := time.Now()
	j.Status = JobStatusCompleted
	j.UpdatedAt = now
	j.CompletedAt = &now
	j.ErrorMsg = ""
}

// MarkAsFailed updates the job status to failed
func (j *Job) MarkAsFailed(errorMsg string) {
	j.Status = JobStatusFailed
	j.UpdatedAt = time.Now()
	j.ErrorMsg = errorMsg
	j.RetryCount++
}

// MarkAsRetrying updates the job status to retrying
func (j *Job) MarkAsRetrying() {
	j.Status = JobStatusRetrying
	j.UpdatedAt = time.Now()
}
