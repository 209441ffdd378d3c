package models

import (
	"time"
)

type Offer struct {
	ID          string
	JobID       string
	CandidateID string
	Status      OfferStatus
	AutoSent    bool
	Message     string
	CreatedAt   time.Time
	RespondedAt *time.Time
}

type AgreementDetails struct {
	HourlyRate    float64
	ExpectedHours float64
	StartTime     time.Time
	EndTime       time.Time
}

type TimerState struct {
	Status         TimerStatus
	ElapsedSeconds int64
	HourlyRate     float64
	StartedAt      *time.Time
}

// Elapsed секунды на момент now, без мутации состояния
func (t TimerState) Elapsed(now time.Time) int64 {
	elapsed := t.ElapsedSeconds
	if t.Status == TimerStatusRunning && t.StartedAt != nil {
		elapsed += int64(now.Sub(*t.StartedAt).Seconds())
	}
	return elapsed
}

// Cost стоимость по текущему тарифу, округление только на уровне представления
func (t TimerState) Cost(now time.Time) float64 {
	return float64(t.Elapsed(now)) / 3600 * t.HourlyRate
}

type PaymentNegotiation struct {
	State           PaymentState
	RequestedBy     PaymentParty
	Agreement       AgreementDetails
	Code            string
	CodeGeneratedAt *time.Time
	CodeExpiresAt   *time.Time
	CodeShared      bool
	CodeSharedBy    PaymentParty
	VerifiedBy      PaymentParty
	ProofNumber     string
	ProofIssuedAt   *time.Time
}

// CodeValid код существует и его срок действия не истёк на момент now
func (p PaymentNegotiation) CodeValid(now time.Time) bool {
	if p.Code == "" || p.CodeExpiresAt == nil {
		return false
	}
	return now.Before(*p.CodeExpiresAt)
}

// JobContext всё состояние координации по одной работе.
// Владелец контекста — координатор, доступ сериализуется по jobID.
type JobContext struct {
	JobID       string
	RecruiterID string
	Offer       *Offer
	Stage       LocationStage
	Timer       TimerState
	Payment     PaymentNegotiation
	UpdatedAt   time.Time
}

func NewJobContext(jobID string) *JobContext {
	return &JobContext{
		JobID: jobID,
		Stage: LocationStageUnknown,
		Timer: TimerState{
			Status: TimerStatusStopped,
		},
		Payment: PaymentNegotiation{
			State: PaymentStateIdle,
		},
	}
}
