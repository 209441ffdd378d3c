package offerhandler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	wschannel "quicksearch-backend/lib/ws/channel"
	"quicksearch-backend/models"
	wsmodels "quicksearch-backend/models/ws"
)

type fakeNotifier struct {
	sent []models.NotificationData
}

func (f *fakeNotifier) Notify(userID string, data models.NotificationData) {
	f.sent = append(f.sent, data)
}

func (f *fakeNotifier) NotifyJob(jobCtx *models.JobContext, data models.NotificationData) {
	f.sent = append(f.sent, data)
}

type sentMsg struct {
	eventType wsmodels.EventType
	payload   interface{}
}

type fakeChannel struct {
	sent []sentMsg
}

func (f *fakeChannel) Connect(ctx context.Context, userID, token string) error { return nil }
func (f *fakeChannel) Disconnect()                                             {}
func (f *fakeChannel) On(eventType wsmodels.EventType, handler wschannel.Handler) int {
	return 0
}
func (f *fakeChannel) Off(eventType wsmodels.EventType, subID int) {}
func (f *fakeChannel) IsConnected() bool                           { return true }
func (f *fakeChannel) Send(eventType wsmodels.EventType, payload interface{}) {
	f.sent = append(f.sent, sentMsg{eventType: eventType, payload: payload})
}

func newOfferPayload() wsmodels.OfferPayload {
	return wsmodels.OfferPayload{
		OfferID:     "offer-1",
		JobID:       "42",
		RecruiterID: "recruiter-1",
		CandidateID: "candidate-1",
		CreatedAt:   time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestOfferHandler(t *testing.T) {
	baseTime := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	nowFn = func() time.Time { return baseTime }
	defer func() { nowFn = time.Now }()

	t.Run(`RecordOffer creates pending offer check`, func(t *testing.T) {
		channel := &fakeChannel{}
		handler := NewHandler(&fakeNotifier{}, channel, 15*time.Minute)
		jobCtx := models.NewJobContext("42")

		handler.RecordOffer(jobCtx, newOfferPayload())
		require.NotNil(t, jobCtx.Offer)
		require.Equal(t, models.OfferStatusPending, jobCtx.Offer.Status)
		require.Equal(t, "recruiter-1", jobCtx.RecruiterID)
		require.Equal(t, 0, len(channel.sent))
	})

	t.Run(`RecordOffer replay with same id is no-op check`, func(t *testing.T) {
		notifier := &fakeNotifier{}
		handler := NewHandler(notifier, &fakeChannel{}, 15*time.Minute)
		jobCtx := models.NewJobContext("42")

		handler.RecordOffer(jobCtx, newOfferPayload())
		require.Nil(t, handler.Respond(jobCtx, models.OfferDecisionAccept))
		handler.RecordOffer(jobCtx, newOfferPayload())
		require.Equal(t, models.OfferStatusAccepted, jobCtx.Offer.Status)
	})

	t.Run(`Respond accept pushes decision check`, func(t *testing.T) {
		channel := &fakeChannel{}
		handler := NewHandler(&fakeNotifier{}, channel, 15*time.Minute)
		jobCtx := models.NewJobContext("42")
		handler.RecordOffer(jobCtx, newOfferPayload())

		err := handler.Respond(jobCtx, models.OfferDecisionAccept)
		require.Nil(t, err)
		require.Equal(t, models.OfferStatusAccepted, jobCtx.Offer.Status)
		require.NotNil(t, jobCtx.Offer.RespondedAt)
		require.Equal(t, 1, len(channel.sent))
		require.Equal(t, wsmodels.EventOfferAccepted, channel.sent[0].eventType)
	})

	t.Run(`Respond decline pushes decision check`, func(t *testing.T) {
		channel := &fakeChannel{}
		handler := NewHandler(&fakeNotifier{}, channel, 15*time.Minute)
		jobCtx := models.NewJobContext("42")
		handler.RecordOffer(jobCtx, newOfferPayload())

		err := handler.Respond(jobCtx, models.OfferDecisionDecline)
		require.Nil(t, err)
		require.Equal(t, models.OfferStatusDeclined, jobCtx.Offer.Status)
		require.Equal(t, wsmodels.EventOfferDeclined, channel.sent[0].eventType)
	})

	t.Run(`Respond on resolved offer fails check`, func(t *testing.T) {
		handler := NewHandler(&fakeNotifier{}, &fakeChannel{}, 15*time.Minute)
		jobCtx := models.NewJobContext("42")
		handler.RecordOffer(jobCtx, newOfferPayload())

		require.Nil(t, handler.Respond(jobCtx, models.OfferDecisionAccept))
		err := handler.Respond(jobCtx, models.OfferDecisionDecline)
		require.Equal(t, models.ErrOfferResolved, err)
		require.Equal(t, models.OfferStatusAccepted, jobCtx.Offer.Status)
	})

	t.Run(`Respond without offer fails check`, func(t *testing.T) {
		handler := NewHandler(&fakeNotifier{}, &fakeChannel{}, 15*time.Minute)
		jobCtx := models.NewJobContext("42")
		err := handler.Respond(jobCtx, models.OfferDecisionAccept)
		require.Equal(t, models.ErrUnknownJob, err)
	})

	t.Run(`ApplyRemoteDecision does not push back check`, func(t *testing.T) {
		channel := &fakeChannel{}
		handler := NewHandler(&fakeNotifier{}, channel, 15*time.Minute)
		jobCtx := models.NewJobContext("42")
		handler.RecordOffer(jobCtx, newOfferPayload())

		handler.ApplyRemoteDecision(jobCtx, models.OfferStatusAccepted)
		require.Equal(t, models.OfferStatusAccepted, jobCtx.Offer.Status)
		require.Equal(t, 0, len(channel.sent))

		// решённое предложение событием не меняется
		handler.ApplyRemoteDecision(jobCtx, models.OfferStatusDeclined)
		require.Equal(t, models.OfferStatusAccepted, jobCtx.Offer.Status)
	})

	t.Run(`ExpireDue before ttl keeps offer check`, func(t *testing.T) {
		handler := NewHandler(&fakeNotifier{}, &fakeChannel{}, 15*time.Minute)
		jobCtx := models.NewJobContext("42")
		handler.RecordOffer(jobCtx, newOfferPayload())

		expired := handler.ExpireDue(jobCtx, baseTime.Add(14*time.Minute))
		require.Equal(t, false, expired)
		require.Equal(t, models.OfferStatusPending, jobCtx.Offer.Status)
	})

	t.Run(`ExpireDue after ttl expires offer check`, func(t *testing.T) {
		handler := NewHandler(&fakeNotifier{}, &fakeChannel{}, 15*time.Minute)
		jobCtx := models.NewJobContext("42")
		handler.RecordOffer(jobCtx, newOfferPayload())

		expired := handler.ExpireDue(jobCtx, baseTime.Add(15*time.Minute))
		require.Equal(t, true, expired)
		require.Equal(t, models.OfferStatusExpired, jobCtx.Offer.Status)

		err := handler.Respond(jobCtx, models.OfferDecisionAccept)
		require.Equal(t, models.ErrOfferResolved, err)
	})

	t.Run(`ExpireDue skips resolved offer check`, func(t *testing.T) {
		handler := NewHandler(&fakeNotifier{}, &fakeChannel{}, 15*time.Minute)
		jobCtx := models.NewJobContext("42")
		handler.RecordOffer(jobCtx, newOfferPayload())
		require.Nil(t, handler.Respond(jobCtx, models.OfferDecisionAccept))

		expired := handler.ExpireDue(jobCtx, baseTime.Add(time.Hour))
		require.Equal(t, false, expired)
		require.Equal(t, models.OfferStatusAccepted, jobCtx.Offer.Status)
	})
}
