package qsapimodels

import (
	"fmt"
	"time"

	"quicksearch-backend/models"
)

// Снимки состояния для экранов. Экраны только читают снимки и вызывают
// команды, переходы состояний живут в lib/quicksearch.

type OfferView struct {
	ID          string     `json:"id"`
	JobID       string     `json:"job_id"`
	CandidateID string     `json:"candidate_id"`
	Status      string     `json:"status"`
	AutoSent    bool       `json:"auto_sent"`
	Message     string     `json:"message,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	RespondedAt *time.Time `json:"responded_at,omitempty"`
}

type TimerSnapshot struct {
	Status         string  `json:"status"`
	ElapsedSeconds int64   `json:"elapsed_seconds"`
	HourlyRate     float64 `json:"hourly_rate"`
	Cost           string  `json:"cost"`
}

type PaymentView struct {
	State         string     `json:"state"`
	RequestedBy   string     `json:"requested_by,omitempty"`
	Code          string     `json:"code,omitempty"`
	CodeExpiresAt *time.Time `json:"code_expires_at,omitempty"`
	CodeShared    bool       `json:"code_shared"`
	ProofNumber   string     `json:"proof_number,omitempty"`
	ProofIssuedAt *time.Time `json:"proof_issued_at,omitempty"`
}

type JobContextView struct {
	JobID   string        `json:"job_id"`
	Offer   *OfferView    `json:"offer,omitempty"`
	Stage   string        `json:"stage"`
	Timer   TimerSnapshot `json:"timer"`
	Payment PaymentView   `json:"payment"`
}

// FormatCost округление стоимости выполняется только здесь, на уровне
// представления, чтобы не копить ошибку округления между чтениями.
func FormatCost(cost float64) string {
	return fmt.Sprintf("$%.2f", cost)
}

func FormatElapsed(elapsedSeconds int64) string {
	duration := time.Duration(elapsedSeconds) * time.Second
	return duration.String()
}

func OfferConvert(offer *models.Offer) *OfferView {
	if offer == nil {
		return nil
	}
	return &OfferView{
		ID:          offer.ID,
		JobID:       offer.JobID,
		CandidateID: offer.CandidateID,
		Status:      string(offer.Status),
		AutoSent:    offer.AutoSent,
		Message:     offer.Message,
		CreatedAt:   offer.CreatedAt,
		RespondedAt: offer.RespondedAt,
	}
}

func TimerConvert(timer models.TimerState, now time.Time) TimerSnapshot {
	return TimerSnapshot{
		Status:         string(timer.Status),
		ElapsedSeconds: timer.Elapsed(now),
		HourlyRate:     timer.HourlyRate,
		Cost:           FormatCost(timer.Cost(now)),
	}
}

func PaymentConvert(payment models.PaymentNegotiation) PaymentView {
	return PaymentView{
		State:         string(payment.State),
		RequestedBy:   string(payment.RequestedBy),
		Code:          payment.Code,
		CodeExpiresAt: payment.CodeExpiresAt,
		CodeShared:    payment.CodeShared,
		ProofNumber:   payment.ProofNumber,
		ProofIssuedAt: payment.ProofIssuedAt,
	}
}

func ContextConvert(ctx *models.JobContext, now time.Time) JobContextView {
	return JobContextView{
		JobID:   ctx.JobID,
		Offer:   OfferConvert(ctx.Offer),
		Stage:   string(ctx.Stage),
		Timer:   TimerConvert(ctx.Timer, now),
		Payment: PaymentConvert(ctx.Payment),
	}
}
