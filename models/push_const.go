package models

import "fmt"

type PushCode string

type PushTpl struct {
	Name  string
	Title string
	Msg   string
}

var PushCodeMap = map[PushCode]PushTpl{
	PushNewOffer:      {Name: "Новое предложение по квик-серчу", Title: "Новое предложение", Msg: "По работе «%v» поступило предложение для кандидата %v."},
	PushOfferAccepted: {Name: "Предложение принято", Title: "Предложение принято", Msg: "Кандидат %v принял предложение по работе «%v»."},
	PushOfferDeclined: {Name: "Предложение отклонено", Title: "Предложение отклонено", Msg: "Кандидат %v отклонил предложение по работе «%v»."},
	PushOfferExpired:  {Name: "Предложение просрочено", Title: "Предложение просрочено", Msg: "Срок предложения по работе «%v» истёк без ответа."},

	PushStageChanged: {Name: "Кандидат сменил этап в пути", Title: "Кандидат в пути", Msg: "Кандидат по работе «%v» перешёл на этап «%v»."},

	PushTimerStarted: {Name: "Счётчик времени запущен", Title: "Счётчик запущен", Msg: "По работе «%v» запущен учёт времени, ставка %v/час."},
	PushTimerStopped: {Name: "Счётчик времени остановлен", Title: "Счётчик остановлен", Msg: "По работе «%v» остановлен учёт времени: %v, к оплате %v."},

	PushPaymentRequested: {Name: "Запрошена оплата через платформу", Title: "Запрос оплаты", Msg: "По работе «%v» сторона %v запросила оплату через платформу."},
	PushCodeGenerated:    {Name: "Сформирован код подтверждения", Title: "Код подтверждения", Msg: "По работе «%v» сформирован код подтверждения оплаты, действует до %v."},
	PushPaymentVerified:  {Name: "Оплата подтверждена кодом", Title: "Оплата подтверждена", Msg: "По работе «%v» код подтверждения принят."},
	PushProofGenerated:   {Name: "Сформировано подтверждение оплаты", Title: "Подтверждение оплаты", Msg: "По работе «%v» сформировано подтверждение оплаты №%v."},

	PushJobCompleted: {Name: "Работа завершена", Title: "Работа завершена", Msg: "Работа «%v» отмечена завершённой."},
}

const (
	PushNewOffer      PushCode = "PushNewOffer"
	PushOfferAccepted PushCode = "PushOfferAccepted"
	PushOfferDeclined PushCode = "PushOfferDeclined"
	PushOfferExpired  PushCode = "PushOfferExpired"

	PushStageChanged PushCode = "PushStageChanged"

	PushTimerStarted PushCode = "PushTimerStarted"
	PushTimerStopped PushCode = "PushTimerStopped"

	PushPaymentRequested PushCode = "PushPaymentRequested"
	PushCodeGenerated    PushCode = "PushCodeGenerated"
	PushPaymentVerified  PushCode = "PushPaymentVerified"
	PushProofGenerated   PushCode = "PushProofGenerated"

	PushJobCompleted PushCode = "PushJobCompleted"
)

type NotificationData struct {
	Code  PushCode
	Title string
	Msg   string
}

func newNotification(code PushCode, args ...interface{}) NotificationData {
	return NotificationData{
		Code:  code,
		Title: PushCodeMap[code].Title,
		Msg:   fmt.Sprintf(PushCodeMap[code].Msg, args...),
	}
}

func GetPushNewOffer(jobID, candidateID string) NotificationData {
	return newNotification(PushNewOffer, jobID, candidateID)
}

func GetPushOfferAccepted(candidateID, jobID string) NotificationData {
	return newNotification(PushOfferAccepted, candidateID, jobID)
}

func GetPushOfferDeclined(candidateID, jobID string) NotificationData {
	return newNotification(PushOfferDeclined, candidateID, jobID)
}

func GetPushOfferExpired(jobID string) NotificationData {
	return newNotification(PushOfferExpired, jobID)
}

func GetPushStageChanged(jobID string, stage LocationStage) NotificationData {
	return newNotification(PushStageChanged, jobID, stage)
}

func GetPushTimerStarted(jobID, rate string) NotificationData {
	return newNotification(PushTimerStarted, jobID, rate)
}

func GetPushTimerStopped(jobID, elapsed, cost string) NotificationData {
	return newNotification(PushTimerStopped, jobID, elapsed, cost)
}

func GetPushPaymentRequested(jobID string, requestedBy PaymentParty) NotificationData {
	return newNotification(PushPaymentRequested, jobID, requestedBy)
}

func GetPushCodeGenerated(jobID, expiresAt string) NotificationData {
	return newNotification(PushCodeGenerated, jobID, expiresAt)
}

func GetPushPaymentVerified(jobID string) NotificationData {
	return newNotification(PushPaymentVerified, jobID)
}

func GetPushProofGenerated(jobID, proofNumber string) NotificationData {
	return newNotification(PushProofGenerated, jobID, proofNumber)
}

func GetPushJobCompleted(jobID string) NotificationData {
	return newNotification(PushJobCompleted, jobID)
}
