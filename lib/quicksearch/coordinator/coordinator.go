package coordinator

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	pdfexport "quicksearch-backend/lib/export/pdf"
	xlsexport "quicksearch-backend/lib/export/xls"
	"quicksearch-backend/lib/notification"
	contextstore "quicksearch-backend/lib/quicksearch/context-store"
	offerhandler "quicksearch-backend/lib/quicksearch/offer"
	paymenthandler "quicksearch-backend/lib/quicksearch/payment"
	proofarchive "quicksearch-backend/lib/quicksearch/proof-archive"
	stagehandler "quicksearch-backend/lib/quicksearch/stage"
	timerhandler "quicksearch-backend/lib/quicksearch/timer"
	"quicksearch-backend/lib/utils/lock"
	"quicksearch-backend/lib/wallet"
	wschannel "quicksearch-backend/lib/ws/channel"
	"quicksearch-backend/models"
	qsapimodels "quicksearch-backend/models/api/quicksearch"
	wsmodels "quicksearch-backend/models/ws"
)

var nowFn = time.Now

// сколько фоновая проверка сроков готова ждать занятый контекст
const sweepLockWait = time.Second

type Options struct {
	OfferTTL time.Duration
	CodeTTL  time.Duration
}

// Provider владелец контекстов координации: один контекст на jobID,
// создаётся первым относящимся событием и живёт до конца работы.
// Экраны читают снимки и зовут команды, переходами владеют обработчики.
type Provider interface {
	Start()
	Stop()

	AcceptOffer(jobID string) error
	DeclineOffer(jobID string) error
	ReportStage(jobID string, stage models.LocationStage) error
	StartClock(jobID string, hourlyRate float64) error
	StopClock(jobID string) (qsapimodels.TimerSnapshot, error)
	ResumeClock(jobID string) error
	RequestPayment(jobID string, requestedBy models.PaymentParty, agreement models.AgreementDetails) error
	ShareCode(jobID string, by models.PaymentParty) error
	VerifyCode(ctx context.Context, jobID, enteredCode string, by models.PaymentParty) error
	GenerateProof(ctx context.Context, jobID string) (proofNumber string, err error)

	Snapshot(jobID string) (qsapimodels.JobContextView, error)
	ProofReceipt(ctx context.Context, jobID string) ([]byte, error)
	SweepExpired(ctx context.Context)
	ExportTimesheet() ([]byte, error)
}

func NewCoordinator(
	channel wschannel.Provider,
	notifier notification.Provider,
	walletClient wallet.Provider,
	store contextstore.Provider,
	archiver proofarchive.Provider,
	opts Options,
) Provider {
	return &impl{
		channel:  channel,
		store:    store,
		offer:    offerhandler.NewHandler(notifier, channel, opts.OfferTTL),
		stage:    stagehandler.NewHandler(notifier, channel),
		timer:    timerhandler.NewHandler(notifier, channel),
		payment:  paymenthandler.NewHandler(notifier, channel, walletClient, opts.CodeTTL, archiver),
		notifier: notifier,
		archiver: archiver,
		contexts: map[string]*models.JobContext{},
	}
}

type subRef struct {
	eventType wsmodels.EventType
	id        int
}

type impl struct {
	channel  wschannel.Provider
	store    contextstore.Provider
	offer    offerhandler.Provider
	stage    stagehandler.Provider
	timer    timerhandler.Provider
	payment  paymenthandler.Provider
	notifier notification.Provider
	archiver proofarchive.Provider

	ctxMu    sync.Mutex
	contexts map[string]*models.JobContext
	subs     []subRef
}

// Start подписывает координатор на входящие события канала.
// Обработчики канала зовутся в порядке получения, сериализация по jobID
// обеспечивается общим замком с командами экранов.
func (c *impl) Start() {
	c.sub(wsmodels.EventNewOffer, c.onNewOffer)
	c.sub(wsmodels.EventOfferAccepted, func(p json.RawMessage) { c.onOfferDecision(p, models.OfferStatusAccepted) })
	c.sub(wsmodels.EventOfferDeclined, func(p json.RawMessage) { c.onOfferDecision(p, models.OfferStatusDeclined) })
	c.sub(wsmodels.EventLocationUpdate, c.onLocationUpdate)
	c.sub(wsmodels.EventStageChange, c.onStageChange)
	c.sub(wsmodels.EventTimerStarted, func(p json.RawMessage) { c.onTimerEvent(p, wsmodels.EventTimerStarted) })
	c.sub(wsmodels.EventTimerStopped, func(p json.RawMessage) { c.onTimerEvent(p, wsmodels.EventTimerStopped) })
	c.sub(wsmodels.EventTimerResumed, func(p json.RawMessage) { c.onTimerEvent(p, wsmodels.EventTimerResumed) })
	c.sub(wsmodels.EventPaymentRequested, c.onPaymentRequested)
	c.sub(wsmodels.EventCodeGenerated, c.onCodeGenerated)
	c.sub(wsmodels.EventJobCompleted, c.onJobCompleted)
}

func (c *impl) Stop() {
	c.ctxMu.Lock()
	subs := c.subs
	c.subs = nil
	c.ctxMu.Unlock()
	for _, ref := range subs {
		c.channel.Off(ref.eventType, ref.id)
	}
}

func (c *impl) sub(eventType wsmodels.EventType, handler wschannel.Handler) {
	id := c.channel.On(eventType, handler)
	c.ctxMu.Lock()
	c.subs = append(c.subs, subRef{eventType: eventType, id: id})
	c.ctxMu.Unlock()
}

// --- команды экранов ---

func (c *impl) AcceptOffer(jobID string) error {
	return c.touch(jobID, func(jobCtx *models.JobContext) error {
		return c.offer.Respond(jobCtx, models.OfferDecisionAccept)
	})
}

func (c *impl) DeclineOffer(jobID string) error {
	return c.touch(jobID, func(jobCtx *models.JobContext) error {
		return c.offer.Respond(jobCtx, models.OfferDecisionDecline)
	})
}

func (c *impl) ReportStage(jobID string, stage models.LocationStage) error {
	return c.touch(jobID, func(jobCtx *models.JobContext) error {
		return c.stage.Report(jobCtx, stage)
	})
}

func (c *impl) StartClock(jobID string, hourlyRate float64) error {
	return c.touch(jobID, func(jobCtx *models.JobContext) error {
		return c.timer.Start(jobCtx, hourlyRate)
	})
}

func (c *impl) StopClock(jobID string) (snapshot qsapimodels.TimerSnapshot, err error) {
	err = c.touch(jobID, func(jobCtx *models.JobContext) error {
		var stopErr error
		snapshot, stopErr = c.timer.Stop(jobCtx)
		return stopErr
	})
	return snapshot, err
}

func (c *impl) ResumeClock(jobID string) error {
	return c.touch(jobID, func(jobCtx *models.JobContext) error {
		return c.timer.Resume(jobCtx)
	})
}

func (c *impl) RequestPayment(jobID string, requestedBy models.PaymentParty, agreement models.AgreementDetails) error {
	return c.touch(jobID, func(jobCtx *models.JobContext) error {
		return c.payment.RequestPayment(jobCtx, requestedBy, agreement)
	})
}

func (c *impl) ShareCode(jobID string, by models.PaymentParty) error {
	return c.touch(jobID, func(jobCtx *models.JobContext) error {
		return c.payment.ShareCode(jobCtx, by)
	})
}

func (c *impl) VerifyCode(ctx context.Context, jobID, enteredCode string, by models.PaymentParty) error {
	return c.touch(jobID, func(jobCtx *models.JobContext) error {
		return c.payment.VerifyCode(ctx, jobCtx, enteredCode, by)
	})
}

func (c *impl) GenerateProof(ctx context.Context, jobID string) (proofNumber string, err error) {
	err = c.touch(jobID, func(jobCtx *models.JobContext) error {
		var proofErr error
		proofNumber, proofErr = c.payment.GenerateProof(ctx, jobCtx)
		return proofErr
	})
	return proofNumber, err
}

// Snapshot чистое чтение для ui-тика; контекст при чтении не создаётся
// и не сохраняется, запись в хранилище только если ленивая проверка
// сроков что-то погасила
func (c *impl) Snapshot(jobID string) (view qsapimodels.JobContextView, err error) {
	c.ctxMu.Lock()
	_, known := c.contexts[jobID]
	c.ctxMu.Unlock()
	if !known {
		return qsapimodels.JobContextView{}, models.ErrUnknownJob
	}
	err = c.inspect(jobID, func(jobCtx *models.JobContext) error {
		view = qsapimodels.ContextConvert(jobCtx, nowFn())
		return nil
	})
	return view, err
}

// ProofReceipt pdf-квитанция подтверждённой оплаты; отдаётся из архива,
// без архива формируется на месте
func (c *impl) ProofReceipt(ctx context.Context, jobID string) (file []byte, err error) {
	c.ctxMu.Lock()
	_, known := c.contexts[jobID]
	c.ctxMu.Unlock()
	if !known {
		return nil, models.ErrUnknownJob
	}
	err = c.inspect(jobID, func(jobCtx *models.JobContext) error {
		if jobCtx.Payment.State != models.PaymentStateProofAvailable {
			return models.ErrInvalidTransition
		}
		var receiptErr error
		if c.archiver != nil {
			file, receiptErr = c.archiver.Receipt(ctx, jobCtx)
		} else {
			file, receiptErr = pdfexport.GenerateProofReceipt(jobCtx)
		}
		return receiptErr
	})
	return file, err
}

// SweepExpired активная проверка сроков для оперативности ui;
// корректность от неё не зависит, сроки проверяются и лениво.
// Занятый контекст пропускается до следующего прохода, чтобы воркер
// не завис на чужом замке.
func (c *impl) SweepExpired(ctx context.Context) {
	for _, jobID := range c.jobIDs() {
		checked, err := lock.WithDelay(ctx, jobID, sweepLockWait, func() error {
			return c.touchLocked(jobID, false, func(jobCtx *models.JobContext) error {
				return nil
			})
		})
		if err != nil {
			log.WithError(err).WithField("job_id", jobID).Error("ошибка проверки сроков")
		}
		if !checked {
			log.WithField("job_id", jobID).Debug("контекст занят, проверка сроков отложена")
		}
	}
}

func (c *impl) ExportTimesheet() ([]byte, error) {
	c.ctxMu.Lock()
	list := make([]*models.JobContext, 0, len(c.contexts))
	for _, jobCtx := range c.contexts {
		list = append(list, jobCtx)
	}
	c.ctxMu.Unlock()
	return xlsexport.GenerateTimesheet(list, nowFn())
}

// --- входящие события канала ---

func (c *impl) onNewOffer(payload json.RawMessage) {
	p := wsmodels.OfferPayload{}
	if !c.decode(payload, &p, wsmodels.EventNewOffer) {
		return
	}
	c.handleEvent(p.JobID, wsmodels.EventNewOffer, func(jobCtx *models.JobContext) error {
		c.offer.RecordOffer(jobCtx, p)
		return nil
	})
}

func (c *impl) onOfferDecision(payload json.RawMessage, status models.OfferStatus) {
	p := wsmodels.OfferResponsePayload{}
	if !c.decode(payload, &p, wsmodels.EventOfferAccepted) {
		return
	}
	c.handleEvent(p.JobID, wsmodels.EventOfferAccepted, func(jobCtx *models.JobContext) error {
		c.offer.ApplyRemoteDecision(jobCtx, status)
		return nil
	})
}

// onLocationUpdate сырые координаты этапом не управляют, этап двигает
// только stage_change
func (c *impl) onLocationUpdate(payload json.RawMessage) {
	log.Debug("location_update получен и пропущен")
}

func (c *impl) onStageChange(payload json.RawMessage) {
	p := wsmodels.StageChangePayload{}
	if !c.decode(payload, &p, wsmodels.EventStageChange) {
		return
	}
	c.handleEvent(p.JobID, wsmodels.EventStageChange, func(jobCtx *models.JobContext) error {
		c.stage.Apply(jobCtx, models.LocationStage(p.Stage))
		return nil
	})
}

func (c *impl) onTimerEvent(payload json.RawMessage, eventType wsmodels.EventType) {
	p := wsmodels.TimerPayload{}
	if !c.decode(payload, &p, eventType) {
		return
	}
	c.handleEvent(p.JobID, eventType, func(jobCtx *models.JobContext) error {
		c.timer.Apply(jobCtx, eventType, p)
		return nil
	})
}

func (c *impl) onPaymentRequested(payload json.RawMessage) {
	p := wsmodels.PaymentRequestedPayload{}
	if !c.decode(payload, &p, wsmodels.EventPaymentRequested) {
		return
	}
	c.handleEvent(p.JobID, wsmodels.EventPaymentRequested, func(jobCtx *models.JobContext) error {
		c.payment.ApplyRemoteRequest(jobCtx, p)
		return nil
	})
}

func (c *impl) onCodeGenerated(payload json.RawMessage) {
	p := wsmodels.CodeGeneratedPayload{}
	if !c.decode(payload, &p, wsmodels.EventCodeGenerated) {
		return
	}
	c.handleEvent(p.JobID, wsmodels.EventCodeGenerated, func(jobCtx *models.JobContext) error {
		c.payment.ApplyRemoteCode(jobCtx, p)
		return nil
	})
}

func (c *impl) onJobCompleted(payload json.RawMessage) {
	p := wsmodels.JobCompletedPayload{}
	if !c.decode(payload, &p, wsmodels.EventJobCompleted) {
		return
	}
	c.handleEvent(p.JobID, wsmodels.EventJobCompleted, func(jobCtx *models.JobContext) error {
		_, err := c.timer.Stop(jobCtx)
		if err != nil && !errors.Is(err, models.ErrInvalidTransition) {
			return err
		}
		c.notifier.NotifyJob(jobCtx, models.GetPushJobCompleted(jobCtx.JobID))
		return nil
	})
}

// --- внутреннее ---

func (c *impl) decode(payload json.RawMessage, target interface{}, eventType wsmodels.EventType) bool {
	if err := json.Unmarshal(payload, target); err != nil {
		log.WithError(err).
			WithField("event_type", string(eventType)).
			Error("некорректное тело события, пропущено")
		return false
	}
	return true
}

func (c *impl) handleEvent(jobID string, eventType wsmodels.EventType, fn func(jobCtx *models.JobContext) error) {
	if jobID == "" {
		log.WithField("event_type", string(eventType)).Warn("событие без job_id, пропущено")
		return
	}
	if err := c.touch(jobID, fn); err != nil {
		log.WithError(err).
			WithField("event_type", string(eventType)).
			WithField("job_id", jobID).
			Error("ошибка обработки события")
	}
}

// touch все мутации контекста идут через общий замок по jobID;
// заодно лениво проверяются сроки предложения
func (c *impl) touch(jobID string, fn func(jobCtx *models.JobContext) error) error {
	return lock.WithJob(jobID, func() error {
		return c.touchLocked(jobID, true, fn)
	})
}

// inspect чтение под тем же замком, но без записи в хранилище:
// сохраняется только контекст, изменённый ленивой проверкой сроков
func (c *impl) inspect(jobID string, fn func(jobCtx *models.JobContext) error) error {
	return lock.WithJob(jobID, func() error {
		return c.touchLocked(jobID, false, fn)
	})
}

func (c *impl) touchLocked(jobID string, mutating bool, fn func(jobCtx *models.JobContext) error) error {
	jobCtx := c.getContext(jobID)
	expired := c.offer.ExpireDue(jobCtx, nowFn())
	err := fn(jobCtx)
	if mutating || expired {
		jobCtx.UpdatedAt = nowFn()
		c.save(jobCtx)
	}
	return err
}

func (c *impl) getContext(jobID string) *models.JobContext {
	c.ctxMu.Lock()
	jobCtx, ok := c.contexts[jobID]
	c.ctxMu.Unlock()
	if ok {
		return jobCtx
	}
	if c.store != nil {
		stored, err := c.store.Load(jobID)
		if err != nil {
			log.WithError(err).WithField("job_id", jobID).Error("ошибка восстановления контекста")
		}
		if stored != nil {
			jobCtx = stored
		}
	}
	if jobCtx == nil {
		jobCtx = models.NewJobContext(jobID)
	}
	c.ctxMu.Lock()
	c.contexts[jobID] = jobCtx
	c.ctxMu.Unlock()
	return jobCtx
}

func (c *impl) save(jobCtx *models.JobContext) {
	if c.store == nil {
		return
	}
	if err := c.store.Save(jobCtx); err != nil {
		log.WithError(err).WithField("job_id", jobCtx.JobID).Error("ошибка сохранения контекста")
	}
}

func (c *impl) jobIDs() []string {
	c.ctxMu.Lock()
	defer c.ctxMu.Unlock()
	ids := make([]string, 0, len(c.contexts))
	for jobID := range c.contexts {
		ids = append(ids, jobID)
	}
	return ids
}
