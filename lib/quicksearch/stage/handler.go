package stagehandler

import (
	log "github.com/sirupsen/logrus"

	"quicksearch-backend/lib/notification"
	wschannel "quicksearch-backend/lib/ws/channel"
	"quicksearch-backend/models"
	wsmodels "quicksearch-backend/models/ws"
)

type Provider interface {
	Report(jobCtx *models.JobContext, stage models.LocationStage) error
	Apply(jobCtx *models.JobContext, stage models.LocationStage) bool
	GetStage(jobCtx *models.JobContext) models.LocationStage
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

// Report локальная команда исполнителя: двигает этап и сообщает серверу
func (i *impl) Report(jobCtx *models.JobContext, stage models.LocationStage) error {
	changed, err := i.advance(jobCtx, stage)
	if err != nil {
		return err
	}
	if !changed {
		return nil
	}
	i.notifier.NotifyJob(jobCtx, models.GetPushStageChanged(jobCtx.JobID, stage))
	i.channel.Send(wsmodels.EventStageChange, wsmodels.StageChangePayload{
		JobID: jobCtx.JobID,
		Stage: string(stage),
	})
	return nil
}

// Apply входящее событие этапа с другой стороны, без обратного пуша
func (i *impl) Apply(jobCtx *models.JobContext, stage models.LocationStage) bool {
	changed, err := i.advance(jobCtx, stage)
	if err != nil {
		log.WithField("job_id", jobCtx.JobID).
			WithField("stage", string(stage)).
			Warn("событие с неизвестным этапом пропущено")
		return false
	}
	if changed {
		i.notifier.NotifyJob(jobCtx, models.GetPushStageChanged(jobCtx.JobID, stage))
	}
	return changed
}

func (i *impl) GetStage(jobCtx *models.JobContext) models.LocationStage {
	return jobCtx.Stage
}

// advance этап двигается только вперёд: дубль — no-op, откат игнорируется
// (защита от переупорядоченной доставки), перескок допускается, но логируется.
func (i *impl) advance(jobCtx *models.JobContext, stage models.LocationStage) (changed bool, err error) {
	rank := stage.Rank()
	if rank <= 0 {
		return false, models.ErrInvalidTransition
	}
	current := jobCtx.Stage.Rank()
	if rank <= current {
		return false, nil
	}
	if rank > current+1 {
		log.WithField("job_id", jobCtx.JobID).
			WithField("from", string(jobCtx.Stage)).
			WithField("to", string(stage)).
			Warn("этап перескочил через шаг")
	}
	jobCtx.Stage = stage
	return true, nil
}
