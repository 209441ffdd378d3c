package coordinator

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"quicksearch-backend/lib/utils/lock"
	wschannel "quicksearch-backend/lib/ws/channel"
	"quicksearch-backend/models"
	wsmodels "quicksearch-backend/models/ws"
)

type fakeNotifier struct {
	mu   sync.Mutex
	sent []models.NotificationData
}

func (f *fakeNotifier) Notify(userID string, data models.NotificationData) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, data)
}

func (f *fakeNotifier) NotifyJob(jobCtx *models.JobContext, data models.NotificationData) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, data)
}

type fakeSub struct {
	id      int
	handler wschannel.Handler
}

type sentMsg struct {
	eventType wsmodels.EventType
	payload   interface{}
}

// fakeChannel синхронная шина вместо сокета: emit зовёт подписчиков в
// вызывающей горутине, ассерты после emit видят результат сразу
type fakeChannel struct {
	mu       sync.Mutex
	nextID   int
	handlers map[wsmodels.EventType][]fakeSub
	sent     []sentMsg
}

func newFakeChannel() *fakeChannel {
	return &fakeChannel{
		handlers: map[wsmodels.EventType][]fakeSub{},
	}
}

func (f *fakeChannel) Connect(ctx context.Context, userID, token string) error { return nil }
func (f *fakeChannel) Disconnect()                                             {}
func (f *fakeChannel) IsConnected() bool                                       { return true }

func (f *fakeChannel) On(eventType wsmodels.EventType, handler wschannel.Handler) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	f.handlers[eventType] = append(f.handlers[eventType], fakeSub{id: f.nextID, handler: handler})
	return f.nextID
}

func (f *fakeChannel) Off(eventType wsmodels.EventType, subID int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	subs := f.handlers[eventType]
	for k, sub := range subs {
		if sub.id == subID {
			f.handlers[eventType] = append(subs[:k], subs[k+1:]...)
			return
		}
	}
}

func (f *fakeChannel) Send(eventType wsmodels.EventType, payload interface{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentMsg{eventType: eventType, payload: payload})
}

func (f *fakeChannel) emit(eventType wsmodels.EventType, payload interface{}) {
	body, _ := json.Marshal(payload)
	f.mu.Lock()
	subs := append([]fakeSub(nil), f.handlers[eventType]...)
	f.mu.Unlock()
	for _, sub := range subs {
		sub.handler(body)
	}
}

func (f *fakeChannel) sentTypes() []wsmodels.EventType {
	f.mu.Lock()
	defer f.mu.Unlock()
	types := make([]wsmodels.EventType, 0, len(f.sent))
	for _, msg := range f.sent {
		types = append(types, msg.eventType)
	}
	return types
}

type fakeStore struct {
	mu    sync.Mutex
	saves int
	data  map[string]*models.JobContext
}

func (f *fakeStore) Load(jobID string) (*models.JobContext, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.data[jobID], nil
}

func (f *fakeStore) Save(jobCtx *models.JobContext) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.data == nil {
		f.data = map[string]*models.JobContext{}
	}
	f.data[jobCtx.JobID] = jobCtx
	f.saves++
	return nil
}

func (f *fakeStore) saveCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.saves
}

type fakeArchive struct {
	receipt []byte
	fetched int
}

func (f *fakeArchive) Archive(ctx context.Context, jobCtx *models.JobContext) error { return nil }

func (f *fakeArchive) Receipt(ctx context.Context, jobCtx *models.JobContext) ([]byte, error) {
	f.fetched++
	return f.receipt, nil
}

func newTestCoordinator(channel *fakeChannel, opts Options) Provider {
	coord := NewCoordinator(channel, &fakeNotifier{}, nil, nil, nil, opts)
	coord.Start()
	return coord
}

func defaultOptions() Options {
	return Options{
		OfferTTL: 15 * time.Minute,
		CodeTTL:  10 * time.Minute,
	}
}

func emitOffer(channel *fakeChannel, jobID string) {
	channel.emit(wsmodels.EventNewOffer, wsmodels.OfferPayload{
		OfferID:     "offer-" + jobID,
		JobID:       jobID,
		RecruiterID: "recruiter-1",
		CandidateID: "candidate-1",
		CreatedAt:   time.Now(),
	})
}

func TestCoordinator(t *testing.T) {
	t.Run(`new_offer event creates job context check`, func(t *testing.T) {
		channel := newFakeChannel()
		coord := newTestCoordinator(channel, defaultOptions())

		_, err := coord.Snapshot("42")
		require.Equal(t, models.ErrUnknownJob, err)

		emitOffer(channel, "42")
		view, err := coord.Snapshot("42")
		require.Nil(t, err)
		require.NotNil(t, view.Offer)
		require.Equal(t, string(models.OfferStatusPending), view.Offer.Status)
		require.Equal(t, string(models.LocationStageUnknown), view.Stage)
	})

	t.Run(`accept command pushes decision to channel check`, func(t *testing.T) {
		channel := newFakeChannel()
		coord := newTestCoordinator(channel, defaultOptions())
		emitOffer(channel, "42")

		require.Nil(t, coord.AcceptOffer("42"))
		view, err := coord.Snapshot("42")
		require.Nil(t, err)
		require.Equal(t, string(models.OfferStatusAccepted), view.Offer.Status)
		require.Equal(t, []wsmodels.EventType{wsmodels.EventOfferAccepted}, channel.sentTypes())

		err = coord.DeclineOffer("42")
		require.Equal(t, models.ErrOfferResolved, err)
	})

	t.Run(`inbound stage_change advances stage check`, func(t *testing.T) {
		channel := newFakeChannel()
		coord := newTestCoordinator(channel, defaultOptions())
		emitOffer(channel, "42")

		channel.emit(wsmodels.EventStageChange, wsmodels.StageChangePayload{JobID: "42", Stage: "en_route"})
		view, err := coord.Snapshot("42")
		require.Nil(t, err)
		require.Equal(t, string(models.LocationStageEnRoute), view.Stage)

		// откат назад игнорируется
		channel.emit(wsmodels.EventStageChange, wsmodels.StageChangePayload{JobID: "42", Stage: "preparing"})
		view, err = coord.Snapshot("42")
		require.Nil(t, err)
		require.Equal(t, string(models.LocationStageEnRoute), view.Stage)
	})

	t.Run(`event without job_id is dropped check`, func(t *testing.T) {
		channel := newFakeChannel()
		coord := newTestCoordinator(channel, defaultOptions())

		channel.emit(wsmodels.EventStageChange, wsmodels.StageChangePayload{Stage: "en_route"})
		_, err := coord.Snapshot("")
		require.Equal(t, models.ErrUnknownJob, err)
	})

	t.Run(`payment flow end to end check`, func(t *testing.T) {
		channel := newFakeChannel()
		coord := newTestCoordinator(channel, defaultOptions())
		emitOffer(channel, "42")
		require.Nil(t, coord.AcceptOffer("42"))

		agreement := models.AgreementDetails{HourlyRate: 40, ExpectedHours: 2}
		require.Nil(t, coord.RequestPayment("42", models.PaymentPartyRecruiter, agreement))
		view, err := coord.Snapshot("42")
		require.Nil(t, err)
		require.Equal(t, string(models.PaymentStateCodeGenerated), view.Payment.State)
		require.Equal(t, 6, len(view.Payment.Code))

		err = coord.VerifyCode(context.Background(), "42", "000000", models.PaymentPartyJobSeeker)
		if view.Payment.Code != "000000" {
			require.Equal(t, models.ErrCodeMismatch, err)
		}

		require.Nil(t, coord.ShareCode("42", models.PaymentPartyRecruiter))
		require.Nil(t, coord.VerifyCode(context.Background(), "42", view.Payment.Code, models.PaymentPartyJobSeeker))

		proofNumber, err := coord.GenerateProof(context.Background(), "42")
		require.Nil(t, err)
		require.NotEqual(t, "", proofNumber)

		view, err = coord.Snapshot("42")
		require.Nil(t, err)
		require.Equal(t, string(models.PaymentStateProofAvailable), view.Payment.State)
		require.Equal(t, proofNumber, view.Payment.ProofNumber)
	})

	t.Run(`job_completed stops running clock check`, func(t *testing.T) {
		channel := newFakeChannel()
		coord := newTestCoordinator(channel, defaultOptions())
		emitOffer(channel, "42")
		require.Nil(t, coord.StartClock("42", 40))

		channel.emit(wsmodels.EventJobCompleted, wsmodels.JobCompletedPayload{JobID: "42"})
		view, err := coord.Snapshot("42")
		require.Nil(t, err)
		require.Equal(t, string(models.TimerStatusStopped), view.Timer.Status)
	})

	t.Run(`sweep expires stale offers check`, func(t *testing.T) {
		channel := newFakeChannel()
		coord := newTestCoordinator(channel, Options{
			OfferTTL: time.Millisecond,
			CodeTTL:  10 * time.Minute,
		})
		emitOffer(channel, "42")

		time.Sleep(5 * time.Millisecond)
		coord.SweepExpired(context.Background())
		view, err := coord.Snapshot("42")
		require.Nil(t, err)
		require.Equal(t, string(models.OfferStatusExpired), view.Offer.Status)
	})

	t.Run(`sweep skips busy job context check`, func(t *testing.T) {
		channel := newFakeChannel()
		coord := newTestCoordinator(channel, Options{
			OfferTTL: time.Millisecond,
			CodeTTL:  10 * time.Minute,
		})
		emitOffer(channel, "busy-1")

		release := make(chan struct{})
		held := make(chan struct{})
		go func() {
			_ = lock.WithJob("busy-1", func() error {
				close(held)
				<-release
				return nil
			})
		}()
		<-held
		defer close(release)

		time.Sleep(5 * time.Millisecond)
		done := make(chan struct{})
		go func() {
			coord.SweepExpired(context.Background())
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			t.Fatal("проверка сроков зависла на занятом контексте")
		}
	})

	t.Run(`snapshot reads do not rewrite stored context check`, func(t *testing.T) {
		channel := newFakeChannel()
		store := &fakeStore{}
		coord := NewCoordinator(channel, &fakeNotifier{}, nil, store, nil, defaultOptions())
		coord.Start()
		emitOffer(channel, "42")
		require.Nil(t, coord.AcceptOffer("42"))
		require.Nil(t, coord.StartClock("42", 40))

		before := store.saveCount()
		for k := 0; k < 5; k++ {
			_, err := coord.Snapshot("42")
			require.Nil(t, err)
		}
		require.Equal(t, before, store.saveCount())

		require.Nil(t, coord.ReportStage("42", models.LocationStageEnRoute))
		require.Equal(t, before+1, store.saveCount())
	})

	t.Run(`lazily expired offer is persisted on read check`, func(t *testing.T) {
		channel := newFakeChannel()
		store := &fakeStore{}
		coord := NewCoordinator(channel, &fakeNotifier{}, nil, store, nil, Options{
			OfferTTL: time.Millisecond,
			CodeTTL:  10 * time.Minute,
		})
		coord.Start()
		emitOffer(channel, "42")
		before := store.saveCount()

		time.Sleep(5 * time.Millisecond)
		view, err := coord.Snapshot("42")
		require.Nil(t, err)
		require.Equal(t, string(models.OfferStatusExpired), view.Offer.Status)
		require.Equal(t, before+1, store.saveCount())
	})

	t.Run(`proof receipt served from archive check`, func(t *testing.T) {
		channel := newFakeChannel()
		archive := &fakeArchive{receipt: []byte("pdf")}
		coord := NewCoordinator(channel, &fakeNotifier{}, nil, nil, archive, defaultOptions())
		coord.Start()
		emitOffer(channel, "42")
		require.Nil(t, coord.AcceptOffer("42"))

		_, err := coord.ProofReceipt(context.Background(), "42")
		require.Equal(t, models.ErrInvalidTransition, err)

		agreement := models.AgreementDetails{HourlyRate: 40, ExpectedHours: 2}
		require.Nil(t, coord.RequestPayment("42", models.PaymentPartyRecruiter, agreement))
		view, err := coord.Snapshot("42")
		require.Nil(t, err)
		require.Nil(t, coord.VerifyCode(context.Background(), "42", view.Payment.Code, models.PaymentPartyJobSeeker))
		_, err = coord.GenerateProof(context.Background(), "42")
		require.Nil(t, err)

		file, err := coord.ProofReceipt(context.Background(), "42")
		require.Nil(t, err)
		require.Equal(t, []byte("pdf"), file)
		require.Equal(t, 1, archive.fetched)

		_, err = coord.ProofReceipt(context.Background(), "99")
		require.Equal(t, models.ErrUnknownJob, err)
	})

	t.Run(`stop unsubscribes from channel check`, func(t *testing.T) {
		channel := newFakeChannel()
		coord := newTestCoordinator(channel, defaultOptions())
		coord.Stop()

		emitOffer(channel, "42")
		_, err := coord.Snapshot("42")
		require.Equal(t, models.ErrUnknownJob, err)
	})
}
