package paymenthandler

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"quicksearch-backend/lib/notification"
	"quicksearch-backend/lib/wallet"
	wschannel "quicksearch-backend/lib/ws/channel"
	"quicksearch-backend/models"
	wsmodels "quicksearch-backend/models/ws"
)

var nowFn = time.Now

// генерация равномерного 6-значного кода; уникальность между работами не
// требуется, код живёт в рамках одной работы
var codeFn = defaultCodeFn

func defaultCodeFn() string {
	return fmt.Sprintf("%06d", rand.Intn(1000000))
}

// ProofArchiver опциональный конвейер артефактов подтверждения (pdf + s3);
// его сбой не откатывает переход, деньги к этому моменту уже переведены.
type ProofArchiver interface {
	Archive(ctx context.Context, jobCtx *models.JobContext) error
}

type Provider interface {
	RequestPayment(jobCtx *models.JobContext, requestedBy models.PaymentParty, agreement models.AgreementDetails) error
	ShareCode(jobCtx *models.JobContext, by models.PaymentParty) error
	VerifyCode(ctx context.Context, jobCtx *models.JobContext, enteredCode string, by models.PaymentParty) error
	GenerateProof(ctx context.Context, jobCtx *models.JobContext) (proofNumber string, err error)
	ApplyRemoteRequest(jobCtx *models.JobContext, payload wsmodels.PaymentRequestedPayload)
	ApplyRemoteCode(jobCtx *models.JobContext, payload wsmodels.CodeGeneratedPayload)
}

func NewHandler(notifier notification.Provider, channel wschannel.Provider, walletClient wallet.Provider, codeTTL time.Duration, archiver ProofArchiver) Provider {
	return &impl{
		notifier: notifier,
		channel:  channel,
		wallet:   walletClient,
		codeTTL:  codeTTL,
		archiver: archiver,
	}
}

type impl struct {
	notifier notification.Provider
	channel  wschannel.Provider
	wallet   wallet.Provider
	codeTTL  time.Duration
	archiver ProofArchiver
}

func (i *impl) getLogger(jobCtx *models.JobContext) *log.Entry {
	return log.
		WithField("job_id", jobCtx.JobID).
		WithField("payment_state", string(jobCtx.Payment.State))
}

// RequestPayment перезапрос из requested/code_generated законен и немедленно
// гасит прежний код: после пересогласования условий старый код не должен
// сработать даже в пределах своего исходного окна.
func (i *impl) RequestPayment(jobCtx *models.JobContext, requestedBy models.PaymentParty, agreement models.AgreementDetails) error {
	switch jobCtx.Payment.State {
	case models.PaymentStateIdle, models.PaymentStateRequested, models.PaymentStateCodeGenerated:
	default:
		return models.ErrInvalidTransition
	}
	now := nowFn()
	expiresAt := now.Add(i.codeTTL)
	jobCtx.Payment = models.PaymentNegotiation{
		State:           models.PaymentStateRequested,
		RequestedBy:     requestedBy,
		Agreement:       agreement,
		CodeGeneratedAt: &now,
		CodeExpiresAt:   &expiresAt,
	}
	i.notifier.NotifyJob(jobCtx, models.GetPushPaymentRequested(jobCtx.JobID, requestedBy))
	i.channel.Send(wsmodels.EventPaymentRequested, wsmodels.PaymentRequestedPayload{
		JobID:         jobCtx.JobID,
		RequestedBy:   string(requestedBy),
		HourlyRate:    agreement.HourlyRate,
		ExpectedHours: agreement.ExpectedHours,
		StartTime:     agreement.StartTime,
		EndTime:       agreement.EndTime,
	})

	jobCtx.Payment.Code = codeFn()
	jobCtx.Payment.State = models.PaymentStateCodeGenerated
	i.notifier.NotifyJob(jobCtx, models.GetPushCodeGenerated(jobCtx.JobID, expiresAt.Format("15:04:05")))
	// сам код в канал не уходит: его передают между сторонами вручную,
	// человек в цепочке — сознательное трение перед оплатой
	i.channel.Send(wsmodels.EventCodeGenerated, wsmodels.CodeGeneratedPayload{
		JobID:         jobCtx.JobID,
		CodeExpiresAt: expiresAt,
	})
	return nil
}

// ShareCode информационная отметка, состояние не меняет
func (i *impl) ShareCode(jobCtx *models.JobContext, by models.PaymentParty) error {
	if jobCtx.Payment.State != models.PaymentStateCodeGenerated {
		return models.ErrInvalidTransition
	}
	jobCtx.Payment.CodeShared = true
	jobCtx.Payment.CodeSharedBy = by
	return nil
}

// VerifyCode сверка точным совпадением в пределах окна действия; промах не
// мутирует состояние, счётчика попыток нет — защита только короткий TTL.
func (i *impl) VerifyCode(ctx context.Context, jobCtx *models.JobContext, enteredCode string, by models.PaymentParty) error {
	if jobCtx.Payment.State != models.PaymentStateCodeGenerated {
		return models.ErrInvalidTransition
	}
	now := nowFn()
	if jobCtx.Payment.CodeExpiresAt == nil || !now.Before(*jobCtx.Payment.CodeExpiresAt) {
		return models.ErrCodeExpired
	}
	if jobCtx.Payment.Code == "" || jobCtx.Payment.Code != enteredCode {
		return models.ErrCodeMismatch
	}
	if err := i.holdFunds(ctx, jobCtx); err != nil {
		return err
	}
	jobCtx.Payment.State = models.PaymentStateVerified
	jobCtx.Payment.VerifiedBy = by
	i.notifier.NotifyJob(jobCtx, models.GetPushPaymentVerified(jobCtx.JobID))
	return nil
}

// GenerateProof терминальный шаг: перевод средств и опознаваемый номер
// подтверждения
func (i *impl) GenerateProof(ctx context.Context, jobCtx *models.JobContext) (string, error) {
	if jobCtx.Payment.State != models.PaymentStateVerified {
		return "", models.ErrInvalidTransition
	}
	if err := i.transferFunds(ctx, jobCtx); err != nil {
		return "", err
	}
	now := nowFn()
	jobCtx.Payment.State = models.PaymentStateProofAvailable
	jobCtx.Payment.ProofNumber = uuid.NewString()
	jobCtx.Payment.ProofIssuedAt = &now
	i.notifier.NotifyJob(jobCtx, models.GetPushProofGenerated(jobCtx.JobID, jobCtx.Payment.ProofNumber))

	if i.archiver != nil {
		if err := i.archiver.Archive(ctx, jobCtx); err != nil {
			i.getLogger(jobCtx).WithError(err).Error("ошибка архивации подтверждения оплаты")
		}
	}
	return jobCtx.Payment.ProofNumber, nil
}

func (i *impl) ApplyRemoteRequest(jobCtx *models.JobContext, payload wsmodels.PaymentRequestedPayload) {
	switch jobCtx.Payment.State {
	case models.PaymentStateIdle, models.PaymentStateRequested, models.PaymentStateCodeGenerated:
	default:
		return
	}
	jobCtx.Payment = models.PaymentNegotiation{
		State:       models.PaymentStateRequested,
		RequestedBy: models.PaymentParty(payload.RequestedBy),
		Agreement: models.AgreementDetails{
			HourlyRate:    payload.HourlyRate,
			ExpectedHours: payload.ExpectedHours,
			StartTime:     payload.StartTime,
			EndTime:       payload.EndTime,
		},
	}
	i.notifier.NotifyJob(jobCtx, models.GetPushPaymentRequested(jobCtx.JobID, jobCtx.Payment.RequestedBy))
}

// ApplyRemoteCode код контрагента сюда не приходит, только окно действия:
// экран второй стороны показывает форму ввода. Из code_generated событие
// не принимается: живой локальный код своё окно не двигает, а пересмотр
// условий всегда приходит через payment_requested.
func (i *impl) ApplyRemoteCode(jobCtx *models.JobContext, payload wsmodels.CodeGeneratedPayload) {
	switch jobCtx.Payment.State {
	case models.PaymentStateIdle, models.PaymentStateRequested:
	default:
		return
	}
	now := nowFn()
	expiresAt := payload.CodeExpiresAt
	jobCtx.Payment.State = models.PaymentStateCodeGenerated
	jobCtx.Payment.CodeGeneratedAt = &now
	jobCtx.Payment.CodeExpiresAt = &expiresAt
	i.notifier.NotifyJob(jobCtx, models.GetPushCodeGenerated(jobCtx.JobID, expiresAt.Format("15:04:05")))
}

func (i *impl) holdFunds(ctx context.Context, jobCtx *models.JobContext) error {
	if i.wallet == nil || jobCtx.RecruiterID == "" {
		return nil
	}
	amount := jobCtx.Payment.Agreement.HourlyRate * jobCtx.Payment.Agreement.ExpectedHours
	if amount <= 0 {
		return nil
	}
	balance, err := i.wallet.CheckBalance(ctx, jobCtx.RecruiterID)
	if err != nil {
		return err
	}
	if balance < amount {
		return &wallet.PaymentServiceError{Op: "hold_coins", Reason: "недостаточно средств"}
	}
	return i.wallet.HoldCoins(ctx, jobCtx.RecruiterID, amount)
}

func (i *impl) transferFunds(ctx context.Context, jobCtx *models.JobContext) error {
	if i.wallet == nil || jobCtx.RecruiterID == "" || jobCtx.Offer == nil {
		return nil
	}
	amount := jobCtx.Payment.Agreement.HourlyRate * jobCtx.Payment.Agreement.ExpectedHours
	if amount <= 0 {
		return nil
	}
	return i.wallet.TransferCoins(ctx, jobCtx.RecruiterID, jobCtx.Offer.CandidateID, amount)
}
