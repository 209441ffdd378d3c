package models

type OfferStatus string

const (
	OfferStatusPending  OfferStatus = "pending"
	OfferStatusAccepted OfferStatus = "accepted"
	OfferStatusDeclined OfferStatus = "declined"
	OfferStatusExpired  OfferStatus = "expired"
)

// IsTerminal пока статус pending — предложение живое, любой другой статус финальный
func (s OfferStatus) IsTerminal() bool {
	return s != OfferStatusPending
}

type OfferDecision string

const (
	OfferDecisionAccept  OfferDecision = "accept"
	OfferDecisionDecline OfferDecision = "decline"
)

type LocationStage string

const (
	LocationStageUnknown     LocationStage = "unknown"
	LocationStagePreparing   LocationStage = "preparing"
	LocationStageEnRoute     LocationStage = "en_route"
	LocationStageApproaching LocationStage = "approaching"
	LocationStageArrived     LocationStage = "arrived"
)

var stageRank = map[LocationStage]int{
	LocationStageUnknown:     0,
	LocationStagePreparing:   1,
	LocationStageEnRoute:     2,
	LocationStageApproaching: 3,
	LocationStageArrived:     4,
}

// Rank порядковый номер этапа, -1 для неизвестного значения
func (s LocationStage) Rank() int {
	rank, ok := stageRank[s]
	if !ok {
		return -1
	}
	return rank
}

type TimerStatus string

const (
	TimerStatusStopped TimerStatus = "stopped"
	TimerStatusRunning TimerStatus = "running"
)

type PaymentState string

const (
	PaymentStateIdle           PaymentState = "idle"
	PaymentStateRequested      PaymentState = "requested"
	PaymentStateCodeGenerated  PaymentState = "code_generated"
	PaymentStateVerified       PaymentState = "verified"
	PaymentStateProofAvailable PaymentState = "proof_available"
)

type PaymentParty string

const (
	PaymentPartyRecruiter PaymentParty = "recruiter"
	PaymentPartyJobSeeker PaymentParty = "jobseeker"
)
