package wsmodels

import (
	"time"
)

type OfferPayload struct {
	OfferID     string    `json:"offer_id"`
	JobID       string    `json:"job_id"`
	RecruiterID string    `json:"recruiter_id"`
	CandidateID string    `json:"candidate_id"`
	AutoSent    bool      `json:"auto_sent"`
	Message     string    `json:"message,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

type OfferResponsePayload struct {
	OfferID string `json:"offer_id"`
	JobID   string `json:"job_id"`
}

type StageChangePayload struct {
	JobID string `json:"job_id"`
	Stage string `json:"stage"`
}

type TimerPayload struct {
	JobID          string  `json:"job_id"`
	HourlyRate     float64 `json:"hourly_rate"`
	ElapsedSeconds int64   `json:"elapsed_seconds"`
}

type PaymentRequestedPayload struct {
	JobID         string    `json:"job_id"`
	RequestedBy   string    `json:"requested_by"`
	HourlyRate    float64   `json:"hourly_rate"`
	ExpectedHours float64   `json:"expected_hours"`
	StartTime     time.Time `json:"start_time"`
	EndTime       time.Time `json:"end_time"`
}

// CodeGeneratedPayload уходит контрагенту без самого кода: код передаётся
// между сторонами только вручную, вне канала.
type CodeGeneratedPayload struct {
	JobID         string    `json:"job_id"`
	CodeExpiresAt time.Time `json:"code_expires_at"`
}

type JobCompletedPayload struct {
	JobID string `json:"job_id"`
}
