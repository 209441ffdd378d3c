package offerhandler

import (
	"time"

	log "github.com/sirupsen/logrus"

	"quicksearch-backend/lib/notification"
	wschannel "quicksearch-backend/lib/ws/channel"
	"quicksearch-backend/models"
	wsmodels "quicksearch-backend/models/ws"
)

var nowFn = time.Now

type Provider interface {
	RecordOffer(jobCtx *models.JobContext, payload wsmodels.OfferPayload)
	Respond(jobCtx *models.JobContext, decision models.OfferDecision) error
	ApplyRemoteDecision(jobCtx *models.JobContext, status models.OfferStatus)
	Expire(jobCtx *models.JobContext) error
	ExpireDue(jobCtx *models.JobContext, now time.Time) bool
}

func NewHandler(notifier notification.Provider, channel wschannel.Provider, offerTTL time.Duration) Provider {
	return &impl{
		notifier: notifier,
		channel:  channel,
		offerTTL: offerTTL,
	}
}

type impl struct {
	notifier notification.Provider
	channel  wschannel.Provider
	offerTTL time.Duration
}

func (i *impl) getLogger(jobCtx *models.JobContext) *log.Entry {
	return log.WithField("job_id", jobCtx.JobID)
}

// RecordOffer фиксирует новое предложение. Повтор по тому же id — no-op,
// защита от дублей при переподключении.
func (i *impl) RecordOffer(jobCtx *models.JobContext, payload wsmodels.OfferPayload) {
	if jobCtx.Offer != nil && jobCtx.Offer.ID == payload.OfferID {
		return
	}
	if jobCtx.Offer != nil && !jobCtx.Offer.Status.IsTerminal() {
		i.getLogger(jobCtx).
			WithField("offer_id", payload.OfferID).
			Warn("новое предложение поверх необработанного, старое замещено")
	}
	createdAt := payload.CreatedAt
	if createdAt.IsZero() {
		createdAt = nowFn()
	}
	jobCtx.RecruiterID = payload.RecruiterID
	jobCtx.Offer = &models.Offer{
		ID:          payload.OfferID,
		JobID:       jobCtx.JobID,
		CandidateID: payload.CandidateID,
		Status:      models.OfferStatusPending,
		AutoSent:    payload.AutoSent,
		Message:     payload.Message,
		CreatedAt:   createdAt,
	}
	i.notifier.Notify(payload.CandidateID, models.GetPushNewOffer(jobCtx.JobID, payload.CandidateID))
}

// Respond принять или отклонить может только живое предложение; решённое
// предложение неизменно, повторный ответ — ожидаемый отказ, не авария.
func (i *impl) Respond(jobCtx *models.JobContext, decision models.OfferDecision) error {
	if jobCtx.Offer == nil {
		return models.ErrUnknownJob
	}
	if jobCtx.Offer.Status.IsTerminal() {
		return models.ErrOfferResolved
	}
	respondedAt := nowFn()
	jobCtx.Offer.RespondedAt = &respondedAt

	outType := wsmodels.EventOfferAccepted
	if decision == models.OfferDecisionAccept {
		jobCtx.Offer.Status = models.OfferStatusAccepted
		i.notifier.Notify(jobCtx.RecruiterID, models.GetPushOfferAccepted(jobCtx.Offer.CandidateID, jobCtx.JobID))
	} else {
		jobCtx.Offer.Status = models.OfferStatusDeclined
		outType = wsmodels.EventOfferDeclined
		i.notifier.Notify(jobCtx.RecruiterID, models.GetPushOfferDeclined(jobCtx.Offer.CandidateID, jobCtx.JobID))
	}
	i.channel.Send(outType, wsmodels.OfferResponsePayload{
		OfferID: jobCtx.Offer.ID,
		JobID:   jobCtx.JobID,
	})
	return nil
}

// ApplyRemoteDecision сведение контекста по событию контрагента,
// без обратного пуша в канал.
func (i *impl) ApplyRemoteDecision(jobCtx *models.JobContext, status models.OfferStatus) {
	if jobCtx.Offer == nil || jobCtx.Offer.Status.IsTerminal() {
		return
	}
	respondedAt := nowFn()
	jobCtx.Offer.Status = status
	jobCtx.Offer.RespondedAt = &respondedAt
	if status == models.OfferStatusAccepted {
		i.notifier.NotifyJob(jobCtx, models.GetPushOfferAccepted(jobCtx.Offer.CandidateID, jobCtx.JobID))
		return
	}
	i.notifier.NotifyJob(jobCtx, models.GetPushOfferDeclined(jobCtx.Offer.CandidateID, jobCtx.JobID))
}

// Expire системный перевод в expired; для решённого предложения no-op.
// Исходящего события нет: обе стороны считают срок от createdAt сами.
func (i *impl) Expire(jobCtx *models.JobContext) error {
	if jobCtx.Offer == nil || jobCtx.Offer.Status.IsTerminal() {
		return nil
	}
	jobCtx.Offer.Status = models.OfferStatusExpired
	i.getLogger(jobCtx).
		WithField("offer_id", jobCtx.Offer.ID).
		Info("предложение просрочено")
	i.notifier.NotifyJob(jobCtx, models.GetPushOfferExpired(jobCtx.JobID))
	return nil
}

// ExpireDue ленивая проверка срока: вызывается при каждом касании контекста
func (i *impl) ExpireDue(jobCtx *models.JobContext, now time.Time) bool {
	if jobCtx.Offer == nil || jobCtx.Offer.Status.IsTerminal() {
		return false
	}
	if now.Before(jobCtx.Offer.CreatedAt.Add(i.offerTTL)) {
		return false
	}
	_ = i.Expire(jobCtx)
	return true
}
