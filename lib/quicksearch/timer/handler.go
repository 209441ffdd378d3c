package timerhandler

import (
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"quicksearch-backend/lib/notification"
	wschannel "quicksearch-backend/lib/ws/channel"
	"quicksearch-backend/models"
	qsapimodels "quicksearch-backend/models/api/quicksearch"
	wsmodels "quicksearch-backend/models/ws"
)

var nowFn = time.Now

type Provider interface {
	Start(jobCtx *models.JobContext, hourlyRate float64) error
	Stop(jobCtx *models.JobContext) (qsapimodels.TimerSnapshot, error)
	Resume(jobCtx *models.JobContext) error
	Snapshot(jobCtx *models.JobContext) qsapimodels.TimerSnapshot
	Apply(jobCtx *models.JobContext, eventType wsmodels.EventType, payload wsmodels.TimerPayload)
}

func NewHandler(notifier notification.Provider, channel wschannel.Provider) Provider {
	return &impl{
		notifier: notifier,
		channel:  channel,
	}
}

type impl struct {
	notifier notification.Provider
	channel  wschannel.Provider
}

func (i *impl) Start(jobCtx *models.JobContext, hourlyRate float64) error {
	if hourlyRate < 0 {
		return errors.New("ставка не может быть отрицательной")
	}
	err := i.run(jobCtx, hourlyRate)
	if err != nil {
		return err
	}
	i.notifier.NotifyJob(jobCtx, models.GetPushTimerStarted(jobCtx.JobID, qsapimodels.FormatCost(hourlyRate)))
	i.channel.Send(wsmodels.EventTimerStarted, i.outPayload(jobCtx))
	return nil
}

// Stop накапливает now-startedAt в elapsedSeconds и возвращает итог
func (i *impl) Stop(jobCtx *models.JobContext) (qsapimodels.TimerSnapshot, error) {
	if jobCtx.Timer.Status != models.TimerStatusRunning {
		return qsapimodels.TimerSnapshot{}, models.ErrInvalidTransition
	}
	now := nowFn()
	if jobCtx.Timer.StartedAt != nil {
		jobCtx.Timer.ElapsedSeconds += int64(now.Sub(*jobCtx.Timer.StartedAt).Seconds())
	}
	jobCtx.Timer.Status = models.TimerStatusStopped
	jobCtx.Timer.StartedAt = nil

	snapshot := qsapimodels.TimerConvert(jobCtx.Timer, now)
	i.notifier.NotifyJob(jobCtx, models.GetPushTimerStopped(
		jobCtx.JobID,
		qsapimodels.FormatElapsed(snapshot.ElapsedSeconds),
		snapshot.Cost,
	))
	i.channel.Send(wsmodels.EventTimerStopped, i.outPayload(jobCtx))
	return snapshot, nil
}

// Resume продолжение с накопленным временем по прежней ставке
func (i *impl) Resume(jobCtx *models.JobContext) error {
	err := i.run(jobCtx, jobCtx.Timer.HourlyRate)
	if err != nil {
		return err
	}
	i.channel.Send(wsmodels.EventTimerResumed, i.outPayload(jobCtx))
	return nil
}

// Snapshot чистое чтение: ничего не мутирует, безопасно дёргать из
// ui-тика сколько угодно раз.
func (i *impl) Snapshot(jobCtx *models.JobContext) qsapimodels.TimerSnapshot {
	return qsapimodels.TimerConvert(jobCtx.Timer, nowFn())
}

// Apply сведение по событию контрагента. Время считается от стены,
// подвешенный счётчик тиков после suspend не используется.
func (i *impl) Apply(jobCtx *models.JobContext, eventType wsmodels.EventType, payload wsmodels.TimerPayload) {
	switch eventType {
	case wsmodels.EventTimerStarted, wsmodels.EventTimerResumed:
		if jobCtx.Timer.Status == models.TimerStatusRunning {
			return
		}
		startedAt := nowFn()
		jobCtx.Timer.Status = models.TimerStatusRunning
		jobCtx.Timer.HourlyRate = payload.HourlyRate
		jobCtx.Timer.StartedAt = &startedAt
	case wsmodels.EventTimerStopped:
		jobCtx.Timer.Status = models.TimerStatusStopped
		jobCtx.Timer.ElapsedSeconds = payload.ElapsedSeconds
		jobCtx.Timer.StartedAt = nil
	default:
		log.WithField("event_type", string(eventType)).Warn("неожиданное событие счётчика")
	}
}

func (i *impl) run(jobCtx *models.JobContext, hourlyRate float64) error {
	if jobCtx.Timer.Status == models.TimerStatusRunning {
		return models.ErrInvalidTransition
	}
	startedAt := nowFn()
	jobCtx.Timer.Status = models.TimerStatusRunning
	jobCtx.Timer.HourlyRate = hourlyRate
	jobCtx.Timer.StartedAt = &startedAt
	return nil
}

func (i *impl) outPayload(jobCtx *models.JobContext) wsmodels.TimerPayload {
	return wsmodels.TimerPayload{
		JobID:          jobCtx.JobID,
		HourlyRate:     jobCtx.Timer.HourlyRate,
		ElapsedSeconds: jobCtx.Timer.ElapsedSeconds,
	}
}
