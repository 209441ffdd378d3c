package dbmodels

import (
	"time"

	"quicksearch-backend/models"
)

// QuickSearchJob снимок контекста координации для восстановления после
// рестарта процесса. Источник истины — контекст в памяти, запись обновляется
// вслед за ним.
type QuickSearchJob struct {
	BaseModel
	JobID string `gorm:"uniqueIndex" json:"job_id"`

	RecruiterID      string     `json:"recruiter_id"`
	OfferID          string     `json:"offer_id"`
	CandidateID      string     `json:"candidate_id"`
	OfferStatus      string     `json:"offer_status"`
	OfferAutoSent    bool       `json:"offer_auto_sent"`
	OfferMessage     string     `json:"offer_message"`
	OfferCreatedAt   *time.Time `json:"offer_created_at"`
	OfferRespondedAt *time.Time `json:"offer_responded_at"`

	Stage string `json:"stage"`

	TimerStatus    string     `json:"timer_status"`
	ElapsedSeconds int64      `json:"elapsed_seconds"`
	HourlyRate     float64    `json:"hourly_rate"`
	StartedAt      *time.Time `json:"started_at"`

	PaymentState    string     `json:"payment_state"`
	RequestedBy     string     `json:"requested_by"`
	AgreeHourlyRate float64    `json:"agree_hourly_rate"`
	AgreeHours      float64    `json:"agree_hours"`
	AgreeStartTime  *time.Time `json:"agree_start_time"`
	AgreeEndTime    *time.Time `json:"agree_end_time"`
	Code            string     `json:"code"`
	CodeGeneratedAt *time.Time `json:"code_generated_at"`
	CodeExpiresAt   *time.Time `json:"code_expires_at"`
	CodeShared      bool       `json:"code_shared"`
	CodeSharedBy    string     `json:"code_shared_by"`
	VerifiedBy      string     `json:"verified_by"`
	ProofNumber     string     `json:"proof_number"`
	ProofIssuedAt   *time.Time `json:"proof_issued_at"`
}

func (r QuickSearchJob) ToContext() *models.JobContext {
	ctx := models.NewJobContext(r.JobID)
	ctx.RecruiterID = r.RecruiterID
	if r.OfferID != "" {
		createdAt := time.Time{}
		if r.OfferCreatedAt != nil {
			createdAt = *r.OfferCreatedAt
		}
		ctx.Offer = &models.Offer{
			ID:          r.OfferID,
			JobID:       r.JobID,
			CandidateID: r.CandidateID,
			Status:      models.OfferStatus(r.OfferStatus),
			AutoSent:    r.OfferAutoSent,
			Message:     r.OfferMessage,
			CreatedAt:   createdAt,
			RespondedAt: r.OfferRespondedAt,
		}
	}
	if r.Stage != "" {
		ctx.Stage = models.LocationStage(r.Stage)
	}
	if r.TimerStatus != "" {
		ctx.Timer = models.TimerState{
			Status:         models.TimerStatus(r.TimerStatus),
			ElapsedSeconds: r.ElapsedSeconds,
			HourlyRate:     r.HourlyRate,
			StartedAt:      r.StartedAt,
		}
	}
	if r.PaymentState != "" {
		ctx.Payment = models.PaymentNegotiation{
			State:       models.PaymentState(r.PaymentState),
			RequestedBy: models.PaymentParty(r.RequestedBy),
			Agreement: models.AgreementDetails{
				HourlyRate:    r.AgreeHourlyRate,
				ExpectedHours: r.AgreeHours,
			},
			Code:            r.Code,
			CodeGeneratedAt: r.CodeGeneratedAt,
			CodeExpiresAt:   r.CodeExpiresAt,
			CodeShared:      r.CodeShared,
			CodeSharedBy:    models.PaymentParty(r.CodeSharedBy),
			VerifiedBy:      models.PaymentParty(r.VerifiedBy),
			ProofNumber:     r.ProofNumber,
			ProofIssuedAt:   r.ProofIssuedAt,
		}
		if r.AgreeStartTime != nil {
			ctx.Payment.Agreement.StartTime = *r.AgreeStartTime
		}
		if r.AgreeEndTime != nil {
			ctx.Payment.Agreement.EndTime = *r.AgreeEndTime
		}
	}
	return ctx
}

func FromContext(ctx *models.JobContext) QuickSearchJob {
	rec := QuickSearchJob{
		JobID:          ctx.JobID,
		RecruiterID:    ctx.RecruiterID,
		Stage:          string(ctx.Stage),
		TimerStatus:    string(ctx.Timer.Status),
		ElapsedSeconds: ctx.Timer.ElapsedSeconds,
		HourlyRate:     ctx.Timer.HourlyRate,
		StartedAt:      ctx.Timer.StartedAt,

		PaymentState:    string(ctx.Payment.State),
		RequestedBy:     string(ctx.Payment.RequestedBy),
		AgreeHourlyRate: ctx.Payment.Agreement.HourlyRate,
		AgreeHours:      ctx.Payment.Agreement.ExpectedHours,
		Code:            ctx.Payment.Code,
		CodeGeneratedAt: ctx.Payment.CodeGeneratedAt,
		CodeExpiresAt:   ctx.Payment.CodeExpiresAt,
		CodeShared:      ctx.Payment.CodeShared,
		CodeSharedBy:    string(ctx.Payment.CodeSharedBy),
		VerifiedBy:      string(ctx.Payment.VerifiedBy),
		ProofNumber:     ctx.Payment.ProofNumber,
		ProofIssuedAt:   ctx.Payment.ProofIssuedAt,
	}
	if !ctx.Payment.Agreement.StartTime.IsZero() {
		startTime := ctx.Payment.Agreement.StartTime
		rec.AgreeStartTime = &startTime
	}
	if !ctx.Payment.Agreement.EndTime.IsZero() {
		endTime := ctx.Payment.Agreement.EndTime
		rec.AgreeEndTime = &endTime
	}
	if ctx.Offer != nil {
		createdAt := ctx.Offer.CreatedAt
		rec.OfferID = ctx.Offer.ID
		rec.CandidateID = ctx.Offer.CandidateID
		rec.OfferStatus = string(ctx.Offer.Status)
		rec.OfferAutoSent = ctx.Offer.AutoSent
		rec.OfferMessage = ctx.Offer.Message
		rec.OfferCreatedAt = &createdAt
		rec.OfferRespondedAt = ctx.Offer.RespondedAt
	}
	return rec
}
