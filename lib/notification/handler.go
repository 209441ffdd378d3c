package notification

import (
	log "github.com/sirupsen/logrus"

	"quicksearch-backend/lib/smtp"
	"quicksearch-backend/models"
)

// Provider сток уведомлений: отправил и забыл, собственного состояния нет.
// Ошибки доставки логируются и не влияют на переходы состояний.
type Provider interface {
	Notify(userID string, data models.NotificationData)
	NotifyJob(jobCtx *models.JobContext, data models.NotificationData)
}

// EmailResolver отдаёт адрес пользователя; учётные данные живут во внешнем
// модуле сессий, библиотека знает только userID.
type EmailResolver func(userID string) (email string, ok bool)

func NewHandler(emailFrom string, resolveEmail EmailResolver) Provider {
	return &impl{
		emailFrom:    emailFrom,
		resolveEmail: resolveEmail,
	}
}

type impl struct {
	emailFrom    string
	resolveEmail EmailResolver
}

func (i impl) getLogger(userID string, code models.PushCode) *log.Entry {
	logger := log.
		WithField("user_id", userID).
		WithField("event_code", string(code))
	return logger
}

func (i impl) Notify(userID string, data models.NotificationData) {
	if userID == "" {
		return
	}
	logger := i.getLogger(userID, data.Code)
	logger.WithField("push_msg", data.Msg).Info("уведомление")
	if i.resolveEmail == nil || smtp.Instance == nil {
		return
	}
	email, ok := i.resolveEmail(userID)
	if !ok || email == "" {
		return
	}
	go func() {
		err := smtp.Instance.SendEMail(i.emailFrom, email, data.Msg, data.Title)
		if err != nil {
			logger.WithError(err).Error("ошибка отправки email уведомления")
		}
	}()
}

// NotifyJob уведомление обеих сторон работы
func (i impl) NotifyJob(jobCtx *models.JobContext, data models.NotificationData) {
	i.Notify(jobCtx.RecruiterID, data)
	if jobCtx.Offer != nil {
		i.Notify(jobCtx.Offer.CandidateID, data)
	}
}
