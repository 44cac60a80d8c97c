package bookings

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/momentworks/consultbook/internal/consultants"
	"github.com/momentworks/consultbook/internal/observability/metrics"
	"github.com/momentworks/consultbook/pkg/logging"
)

type recordingNotifier struct {
	mu           sync.Mutex
	requested    []string
	paymentURLs  []string
	confirmed    []string
	requestErr   error
	confirmErr   error
	sawCancelled bool
}

func (n *recordingNotifier) NotifyBookingRequested(ctx context.Context, c *consultants.Consultant, b *Booking, paymentURL string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if ctx.Err() != nil {
		n.sawCancelled = true
	}
	n.requested = append(n.requested, b.ID)
	n.paymentURLs = append(n.paymentURLs, paymentURL)
	return n.requestErr
}

func (n *recordingNotifier) NotifyBookingConfirmed(ctx context.Context, c *consultants.Consultant, b *Booking) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.confirmed = append(n.confirmed, b.ID)
	return n.confirmErr
}

type failingStore struct {
	*MemoryStore
	err error
}

func (s *failingStore) Insert(ctx context.Context, b *Booking) (*Booking, error) {
	return nil, s.err
}

type failingConsultants struct{ err error }

func (f failingConsultants) GetByID(ctx context.Context, id string) (*consultants.Consultant, error) {
	return nil, f.err
}

type serviceFixture struct {
	service    *Service
	store      *MemoryStore
	notifier   *recordingNotifier
	consultant *consultants.Consultant
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()
	repo := consultants.NewInMemoryRepository()
	c := repo.Put(&consultants.Consultant{
		Name:        "Taro Yamada",
		PaymentLink: "https://buy.stripe.com/test_1",
		MeetURL:     "https://meet.google.com/abc",
		Email:       "taro@example.com",
	})
	store := NewMemoryStore()
	notifier := &recordingNotifier{}
	m := metrics.NewBookingMetrics(prometheus.NewRegistry())
	return &serviceFixture{
		service:    NewService(store, repo, notifier, m, logging.Default()),
		store:      store,
		notifier:   notifier,
		consultant: c,
	}
}

func (f *serviceFixture) request() CreateRequest {
	req := validRequest()
	req.ConsultantID = f.consultant.ID
	return req
}

func TestServiceCreatePersistsPendingAndNotifies(t *testing.T) {
	f := newServiceFixture(t)

	b, err := f.service.Create(context.Background(), f.request())
	require.NoError(t, err)
	assert.Equal(t, StatusPending, b.Status)
	assert.Nil(t, b.PaymentSessionRef)

	stored, err := f.store.GetByID(context.Background(), b.ID)
	require.NoError(t, err)
	assert.Equal(t, "jane@example.com", stored.ClientEmail)

	require.Equal(t, []string{b.ID}, f.notifier.requested)
	assert.Equal(t, "https://buy.stripe.com/test_1?client_reference_id="+b.ID, f.notifier.paymentURLs[0])
}

func TestServiceCreateSucceedsWhenNotificationsFail(t *testing.T) {
	f := newServiceFixture(t)
	f.notifier.requestErr = errors.New("provider down")

	b, err := f.service.Create(context.Background(), f.request())
	require.NoError(t, err)
	_, err = f.store.GetByID(context.Background(), b.ID)
	require.NoError(t, err)
}

func TestServiceCreateNotifiesAfterCallerCancels(t *testing.T) {
	f := newServiceFixture(t)
	ctx, cancel := context.WithCancel(context.Background())

	// Cancel once the booking is persisted but before the notifier runs.
	f.service.store = &cancelOnInsertStore{MemoryStore: f.store, cancel: cancel}
	_, err := f.service.Create(ctx, f.request())
	require.NoError(t, err)
	require.Len(t, f.notifier.requested, 1)
	assert.False(t, f.notifier.sawCancelled)
}

type cancelOnInsertStore struct {
	*MemoryStore
	cancel context.CancelFunc
}

func (s *cancelOnInsertStore) Insert(ctx context.Context, b *Booking) (*Booking, error) {
	out, err := s.MemoryStore.Insert(ctx, b)
	s.cancel()
	return out, err
}

func TestServiceCreateValidationPersistsNothing(t *testing.T) {
	f := newServiceFixture(t)
	req := f.request()
	req.ClientEmail = "nope"

	_, err := f.service.Create(context.Background(), req)
	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	assert.True(t, ve.HasField("clientEmail"))

	list, err := f.store.List(context.Background(), ListFilter{})
	require.NoError(t, err)
	assert.Empty(t, list)
	assert.Empty(t, f.notifier.requested)
}

func TestServiceCreateUnknownConsultant(t *testing.T) {
	f := newServiceFixture(t)
	req := f.request()
	req.ConsultantID = testConsultantID

	_, err := f.service.Create(context.Background(), req)
	assert.ErrorIs(t, err, ErrNotFound)

	list, _ := f.store.List(context.Background(), ListFilter{})
	assert.Empty(t, list)
}

func TestServiceCreateConsultantWithoutPaymentLink(t *testing.T) {
	repo := consultants.NewInMemoryRepository()
	c := repo.Put(&consultants.Consultant{Name: "No Link"})
	svc := NewService(NewMemoryStore(), repo, nil, nil, nil)

	req := validRequest()
	req.ConsultantID = c.ID
	_, err := svc.Create(context.Background(), req)
	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	assert.True(t, ve.HasField("consultantId"))
}

func TestServiceCreatePersistenceErrors(t *testing.T) {
	f := newServiceFixture(t)
	cause := errors.New("db down")
	svc := NewService(&failingStore{MemoryStore: NewMemoryStore(), err: cause}, consultants.NewInMemoryRepository(f.consultant), f.notifier, nil, nil)

	_, err := svc.Create(context.Background(), f.request())
	var pe *PersistenceError
	require.True(t, errors.As(err, &pe))
	assert.ErrorIs(t, err, cause)
	assert.Empty(t, f.notifier.requested)

	svc = NewService(NewMemoryStore(), failingConsultants{err: cause}, f.notifier, nil, nil)
	_, err = svc.Create(context.Background(), f.request())
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, "load consultant", pe.Op)
}

func TestServiceResendConfirmation(t *testing.T) {
	f := newServiceFixture(t)
	b, err := f.service.Create(context.Background(), f.request())
	require.NoError(t, err)

	err = f.service.ResendConfirmation(context.Background(), b.ID)
	assert.ErrorIs(t, err, ErrNotConfirmed)

	_, err = f.store.ConfirmPayment(context.Background(), b.ID, "cs_test_1")
	require.NoError(t, err)
	require.NoError(t, f.service.ResendConfirmation(context.Background(), b.ID))
	assert.Equal(t, []string{b.ID}, f.notifier.confirmed)

	f.notifier.confirmErr = errors.New("sendgrid 500")
	assert.Error(t, f.service.ResendConfirmation(context.Background(), b.ID))

	assert.ErrorIs(t, f.service.ResendConfirmation(context.Background(), "missing"), ErrNotFound)
}

func TestPaymentURL(t *testing.T) {
	assert.Equal(t, "https://buy.stripe.com/x?client_reference_id=abc", PaymentURL("https://buy.stripe.com/x", "abc"))
	assert.Equal(t, "https://buy.stripe.com/x?locale=ja&client_reference_id=abc", PaymentURL("https://buy.stripe.com/x?locale=ja", "abc"))
}

// blockingNotifier holds every send until its context is done.
type blockingNotifier struct{}

func (blockingNotifier) NotifyBookingRequested(ctx context.Context, c *consultants.Consultant, b *Booking, paymentURL string) error {
	<-ctx.Done()
	return ctx.Err()
}

func (blockingNotifier) NotifyBookingConfirmed(ctx context.Context, c *consultants.Consultant, b *Booking) error {
	<-ctx.Done()
	return ctx.Err()
}

func TestServiceCreateBoundsSlowNotifications(t *testing.T) {
	f := newServiceFixture(t)
	f.service.notifier = blockingNotifier{}
	f.service.notifyTimeout = 20 * time.Millisecond

	start := time.Now()
	b, err := f.service.Create(context.Background(), f.request())
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 2*time.Second)

	stored, err := f.store.GetByID(context.Background(), b.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, stored.Status)
}

func TestNotifyTimeoutDefault(t *testing.T) {
	f := newServiceFixture(t)
	assert.Equal(t, NotifyTimeout, f.service.notifyTimeout)
}
