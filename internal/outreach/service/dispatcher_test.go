package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"estate_crm_backend/internal/domain"
	"estate_crm_backend/internal/events"
	irepo "estate_crm_backend/internal/interactions/repository"
	leadrepo "estate_crm_backend/internal/leads/repository"
	"estate_crm_backend/internal/outreach/provider"
	"estate_crm_backend/internal/outreach/repository"
	"estate_crm_backend/internal/outreach/transport"
	prefrepo "estate_crm_backend/internal/preferences/repository"
	prefservice "estate_crm_backend/internal/preferences/service"
	"estate_crm_backend/platform/apperr"
	"estate_crm_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ---- fakes ----

type fakeAttemptStore struct {
	attempts map[uuid.UUID]*repository.Attempt
}

func newFakeAttemptStore() *fakeAttemptStore {
	return &fakeAttemptStore{attempts: make(map[uuid.UUID]*repository.Attempt)}
}

func (f *fakeAttemptStore) Create(_ context.Context, params repository.CreateParams) (repository.Attempt, error) {
	attempt := repository.Attempt{
		ID:          uuid.New(),
		TenantID:    params.TenantID,
		LeadID:      params.LeadID,
		Channel:     params.Channel,
		Message:     params.Message,
		TemplateID:  params.TemplateID,
		Status:      params.Status,
		ScheduledAt: params.ScheduledAt,
		CreatedAt:   time.Now(),
	}
	f.attempts[attempt.ID] = &attempt
	return attempt, nil
}

func (f *fakeAttemptStore) get(id, tenantID uuid.UUID) (*repository.Attempt, error) {
	attempt, ok := f.attempts[id]
	if !ok || attempt.TenantID != tenantID {
		return nil, repository.ErrNotFound
	}
	return attempt, nil
}

func (f *fakeAttemptStore) GetByID(_ context.Context, id, tenantID uuid.UUID) (repository.Attempt, error) {
	attempt, err := f.get(id, tenantID)
	if err != nil {
		return repository.Attempt{}, err
	}
	return *attempt, nil
}

func (f *fakeAttemptStore) GetByProviderMessageID(_ context.Context, pmid string) (repository.Attempt, error) {
	for _, attempt := range f.attempts {
		if attempt.ProviderMessageID != nil && *attempt.ProviderMessageID == pmid {
			return *attempt, nil
		}
	}
	return repository.Attempt{}, repository.ErrNotFound
}

func (f *fakeAttemptStore) ListByLead(_ context.Context, leadID, tenantID uuid.UUID, _, _ int) ([]repository.Attempt, error) {
	out := make([]repository.Attempt, 0)
	for _, attempt := range f.attempts {
		if attempt.LeadID == leadID && attempt.TenantID == tenantID {
			out = append(out, *attempt)
		}
	}
	return out, nil
}

func (f *fakeAttemptStore) ClaimForSend(_ context.Context, id, tenantID uuid.UUID) (repository.Attempt, error) {
	attempt, err := f.get(id, tenantID)
	if err != nil {
		return repository.Attempt{}, err
	}
	if attempt.Status != domain.AttemptPending && attempt.Status != domain.AttemptScheduled {
		return repository.Attempt{}, repository.ErrStaleState
	}
	now := time.Now()
	attempt.Status = domain.AttemptSent
	attempt.SentAt = &now
	return *attempt, nil
}

func (f *fakeAttemptStore) ClaimForRetry(_ context.Context, id, tenantID uuid.UUID, ceiling int) (repository.Attempt, error) {
	attempt, err := f.get(id, tenantID)
	if err != nil {
		return repository.Attempt{}, err
	}
	if attempt.Status != domain.AttemptFailed || attempt.RetryCount >= ceiling {
		return repository.Attempt{}, repository.ErrStaleState
	}
	now := time.Now()
	attempt.Status = domain.AttemptSent
	attempt.SentAt = &now
	attempt.RetryCount++
	attempt.LastRetryAt = &now
	attempt.ErrorMessage = nil
	return *attempt, nil
}

func (f *fakeAttemptStore) Cancel(_ context.Context, id, tenantID uuid.UUID) (repository.Attempt, error) {
	attempt, err := f.get(id, tenantID)
	if err != nil {
		return repository.Attempt{}, err
	}
	if attempt.Status != domain.AttemptPending && attempt.Status != domain.AttemptScheduled {
		return repository.Attempt{}, repository.ErrStaleState
	}
	attempt.Status = domain.AttemptCancelled
	return *attempt, nil
}

func (f *fakeAttemptStore) MarkFailed(_ context.Context, id, tenantID uuid.UUID, message string) (repository.Attempt, error) {
	attempt, err := f.get(id, tenantID)
	if err != nil {
		return repository.Attempt{}, err
	}
	if attempt.Status != domain.AttemptSent {
		return repository.Attempt{}, repository.ErrStaleState
	}
	attempt.Status = domain.AttemptFailed
	attempt.ErrorMessage = &message
	return *attempt, nil
}

func (f *fakeAttemptStore) MarkDelivered(_ context.Context, id, tenantID uuid.UUID) (repository.Attempt, error) {
	attempt, err := f.get(id, tenantID)
	if err != nil {
		return repository.Attempt{}, err
	}
	if attempt.Status != domain.AttemptSent {
		return repository.Attempt{}, repository.ErrStaleState
	}
	now := time.Now()
	attempt.Status = domain.AttemptDelivered
	attempt.DeliveredAt = &now
	return *attempt, nil
}

func (f *fakeAttemptStore) MarkRead(_ context.Context, id, tenantID uuid.UUID) (repository.Attempt, error) {
	attempt, err := f.get(id, tenantID)
	if err != nil {
		return repository.Attempt{}, err
	}
	if attempt.Status != domain.AttemptDelivered {
		return repository.Attempt{}, repository.ErrStaleState
	}
	now := time.Now()
	attempt.Status = domain.AttemptRead
	attempt.ReadAt = &now
	return *attempt, nil
}

func (f *fakeAttemptStore) SetProviderMessageID(_ context.Context, id, tenantID uuid.UUID, pmid string) error {
	attempt, err := f.get(id, tenantID)
	if err != nil {
		return err
	}
	attempt.ProviderMessageID = &pmid
	return nil
}

type fakeLeads struct {
	lead leadrepo.Lead
}

func (f *fakeLeads) GetByID(_ context.Context, id, tenantID uuid.UUID) (leadrepo.Lead, error) {
	if id != f.lead.ID || tenantID != f.lead.TenantID {
		return leadrepo.Lead{}, leadrepo.ErrNotFound
	}
	return f.lead, nil
}

type fakePolicy struct {
	prefs     prefrepo.Preferences
	sentToday int
}

func (f *fakePolicy) Resolve(_ context.Context, tenantID uuid.UUID) (prefrepo.Preferences, error) {
	prefs := f.prefs
	prefs.TenantID = tenantID
	return prefs, nil
}

func (f *fakePolicy) UnderDailyCap(_ context.Context, prefs prefrepo.Preferences, _ time.Time) (bool, int, error) {
	return f.sentToday < prefs.MaxDailyOutreach, f.sentToday, nil
}

type fakeInteractions struct {
	recorded   []irepo.CreateParams
	audits     []irepo.CreateParams
	deliveries []string
}

func (f *fakeInteractions) RecordSystem(_ context.Context, params irepo.CreateParams) (irepo.Interaction, error) {
	f.recorded = append(f.recorded, params)
	return irepo.Interaction{ID: uuid.New()}, nil
}

func (f *fakeInteractions) RecordAudit(_ context.Context, params irepo.CreateParams) (irepo.Interaction, error) {
	f.audits = append(f.audits, params)
	return irepo.Interaction{ID: uuid.New()}, nil
}

func (f *fakeInteractions) MarkDelivery(_ context.Context, _ uuid.UUID, _, status string) error {
	f.deliveries = append(f.deliveries, status)
	return nil
}

type fakeProvider struct {
	channel   domain.Channel
	messageID string
	err       error
	delivered []provider.Message
}

func (f *fakeProvider) Channel() domain.Channel { return f.channel }

func (f *fakeProvider) Deliver(_ context.Context, msg provider.Message) (provider.Result, error) {
	if f.err != nil {
		return provider.Result{}, f.err
	}
	f.delivered = append(f.delivered, msg)
	return provider.Result{ProviderMessageID: f.messageID}, nil
}

type fakeEnqueuer struct {
	dispatches []uuid.UUID
	retries    []time.Duration
}

func (f *fakeEnqueuer) EnqueueDispatch(_ context.Context, attemptID, _ uuid.UUID, _ time.Time) error {
	f.dispatches = append(f.dispatches, attemptID)
	return nil
}

func (f *fakeEnqueuer) EnqueueRetry(_ context.Context, _, _ uuid.UUID, in time.Duration) error {
	f.retries = append(f.retries, in)
	return nil
}

type captureBus struct {
	published []events.Event
}

func (b *captureBus) Publish(_ context.Context, e events.Event) {
	b.published = append(b.published, e)
}

func (b *captureBus) PublishSync(_ context.Context, e events.Event) error {
	b.published = append(b.published, e)
	return nil
}

func (b *captureBus) Subscribe(string, events.Handler) {}

func (b *captureBus) transitions() []events.OutreachAttemptTransitioned {
	var out []events.OutreachAttemptTransitioned
	for _, e := range b.published {
		if t, ok := e.(events.OutreachAttemptTransitioned); ok {
			out = append(out, t)
		}
	}
	return out
}

type testOutreachConfig struct{}

func (testOutreachConfig) GetOutreachRetryCeiling() int          { return 3 }
func (testOutreachConfig) GetOutreachBackoffBase() time.Duration { return 2 * time.Second }
func (testOutreachConfig) GetOutreachBackoffMax() time.Duration  { return time.Minute }

// ---- fixture ----

type fixture struct {
	dispatcher   *Dispatcher
	store        *fakeAttemptStore
	policy       *fakePolicy
	email        *fakeProvider
	enqueuer     *fakeEnqueuer
	interactions *fakeInteractions
	bus          *captureBus
	tenantID     uuid.UUID
	leadID       uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	tenantID := uuid.New()
	leadID := uuid.New()
	email := "lead@example.com"
	phoneNumber := "+14155552671"

	store := newFakeAttemptStore()
	policy := &fakePolicy{prefs: prefservice.Defaults(tenantID)}
	// Keep the policy window always open so tests control time freely.
	policy.prefs.WorkingHoursStart = "00:00"
	policy.prefs.WorkingHoursEnd = "00:00"

	emailProvider := &fakeProvider{channel: domain.ChannelEmail, messageID: "msg-1"}
	smsProvider := &fakeProvider{channel: domain.ChannelSMS, messageID: "sms-1"}
	enqueuer := &fakeEnqueuer{}
	interactions := &fakeInteractions{}
	bus := &captureBus{}

	dispatcher := NewDispatcher(
		store,
		&fakeLeads{lead: leadrepo.Lead{ID: leadID, TenantID: tenantID, Email: &email, Phone: &phoneNumber}},
		policy,
		interactions,
		provider.NewRegistry(emailProvider, smsProvider),
		enqueuer,
		bus,
		testOutreachConfig{},
		logger.New("development"),
	)

	return &fixture{
		dispatcher:   dispatcher,
		store:        store,
		policy:       policy,
		email:        emailProvider,
		enqueuer:     enqueuer,
		interactions: interactions,
		bus:          bus,
		tenantID:     tenantID,
		leadID:       leadID,
	}
}

// ---- tests ----

func TestSendDeliversAndRecordsInteraction(t *testing.T) {
	f := newFixture(t)

	attempt, err := f.dispatcher.Send(context.Background(), f.tenantID, transport.SendRequest{
		LeadID:  f.leadID,
		Channel: "email",
		Message: "hello there",
	})
	require.NoError(t, err)

	assert.Equal(t, domain.AttemptSent, attempt.Status)
	require.NotNil(t, attempt.ProviderMessageID)
	assert.Equal(t, "msg-1", *attempt.ProviderMessageID)
	require.Len(t, f.email.delivered, 1)
	assert.Equal(t, "lead@example.com", f.email.delivered[0].Recipient)
	require.Len(t, f.interactions.recorded, 1)
	assert.Equal(t, domain.OutcomePending, f.interactions.recorded[0].Outcome)
}

func TestSendUsesDefaultChannelWhenUnspecified(t *testing.T) {
	f := newFixture(t)

	attempt, err := f.dispatcher.Send(context.Background(), f.tenantID, transport.SendRequest{
		LeadID:  f.leadID,
		Message: "hello",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.ChannelEmail, attempt.Channel)
}

func TestSendRejectsDailyCapViolation(t *testing.T) {
	f := newFixture(t)
	f.policy.sentToday = f.policy.prefs.MaxDailyOutreach

	_, err := f.dispatcher.Send(context.Background(), f.tenantID, transport.SendRequest{
		LeadID:  f.leadID,
		Channel: "email",
		Message: "hello",
	})
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindPolicyViolation))
	assert.Empty(t, f.store.attempts, "no attempt row may exist after a policy violation")
}

func TestSendRejectsOutsideWorkingHours(t *testing.T) {
	f := newFixture(t)
	f.policy.prefs.WorkingHoursStart = "09:00"
	f.policy.prefs.WorkingHoursEnd = "17:00"
	f.dispatcher.now = func() time.Time {
		return time.Date(2026, 3, 2, 22, 0, 0, 0, time.UTC)
	}

	_, err := f.dispatcher.Send(context.Background(), f.tenantID, transport.SendRequest{
		LeadID:  f.leadID,
		Channel: "email",
		Message: "hello",
	})
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindPolicyViolation))
}

func TestSendProviderFailureSchedulesRetry(t *testing.T) {
	f := newFixture(t)
	f.email.err = errors.New("smtp timeout")

	attempt, err := f.dispatcher.Send(context.Background(), f.tenantID, transport.SendRequest{
		LeadID:  f.leadID,
		Channel: "email",
		Message: "hello",
	})
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindProviderFailure))
	assert.Equal(t, domain.AttemptFailed, attempt.Status)
	require.Len(t, f.enqueuer.retries, 1)
	assert.Equal(t, 2*time.Second, f.enqueuer.retries[0])
}

func TestRetryBumpsCountOnSameRow(t *testing.T) {
	f := newFixture(t)
	f.email.err = errors.New("smtp timeout")

	failed, _ := f.dispatcher.Send(context.Background(), f.tenantID, transport.SendRequest{
		LeadID:  f.leadID,
		Channel: "email",
		Message: "hello",
	})

	f.email.err = nil
	retried, err := f.dispatcher.Retry(context.Background(), failed.ID, f.tenantID)
	require.NoError(t, err)

	assert.Equal(t, failed.ID, retried.ID, "retry must reuse the same attempt row")
	assert.Equal(t, domain.AttemptSent, retried.Status)
	assert.Equal(t, 1, retried.RetryCount)
	assert.Len(t, f.store.attempts, 1)
}

func TestRetryCeilingIsTerminal(t *testing.T) {
	f := newFixture(t)
	f.email.err = errors.New("smtp down")

	failed, _ := f.dispatcher.Send(context.Background(), f.tenantID, transport.SendRequest{
		LeadID:  f.leadID,
		Channel: "email",
		Message: "hello",
	})

	// Exhaust the retry budget (ceiling 3).
	for i := 0; i < 3; i++ {
		_, err := f.dispatcher.Retry(context.Background(), failed.ID, f.tenantID)
		require.Error(t, err)
		assert.True(t, apperr.Is(err, apperr.KindProviderFailure))
	}

	_, err := f.dispatcher.Retry(context.Background(), failed.ID, f.tenantID)
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindInvalidTransition))

	final := f.store.attempts[failed.ID]
	assert.Equal(t, domain.AttemptFailed, final.Status)
	assert.Equal(t, 3, final.RetryCount)
}

func TestRetryRejectsNonFailedAttempt(t *testing.T) {
	f := newFixture(t)

	sent, err := f.dispatcher.Send(context.Background(), f.tenantID, transport.SendRequest{
		LeadID:  f.leadID,
		Channel: "email",
		Message: "hello",
	})
	require.NoError(t, err)

	_, err = f.dispatcher.Retry(context.Background(), sent.ID, f.tenantID)
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindInvalidTransition))
}

func TestScheduleCreatesScheduledAttempt(t *testing.T) {
	f := newFixture(t)
	future := time.Now().Add(2 * time.Hour).UTC().Format(time.RFC3339)

	attempt, err := f.dispatcher.Schedule(context.Background(), f.tenantID, transport.ScheduleRequest{
		LeadID:      f.leadID,
		Channel:     "email",
		Message:     "later",
		ScheduledAt: future,
	})
	require.NoError(t, err)

	assert.Equal(t, domain.AttemptScheduled, attempt.Status)
	require.NotNil(t, attempt.ScheduledAt)
	assert.Equal(t, []uuid.UUID{attempt.ID}, f.enqueuer.dispatches)
}

func TestScheduleRejectsPastTime(t *testing.T) {
	f := newFixture(t)
	past := time.Now().Add(-time.Hour).UTC().Format(time.RFC3339)

	_, err := f.dispatcher.Schedule(context.Background(), f.tenantID, transport.ScheduleRequest{
		LeadID:      f.leadID,
		Channel:     "email",
		Message:     "later",
		ScheduledAt: past,
	})
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}

func TestScheduleRejectsDailyCapViolation(t *testing.T) {
	f := newFixture(t)
	f.policy.sentToday = f.policy.prefs.MaxDailyOutreach
	future := time.Now().Add(2 * time.Hour).UTC().Format(time.RFC3339)

	_, err := f.dispatcher.Schedule(context.Background(), f.tenantID, transport.ScheduleRequest{
		LeadID:      f.leadID,
		Channel:     "email",
		Message:     "later",
		ScheduledAt: future,
	})
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindPolicyViolation))
	assert.Empty(t, f.store.attempts, "no attempt row may exist after a policy violation")
	assert.Empty(t, f.enqueuer.dispatches)
}

func TestScheduleRejectsTimeOutsideWorkingHours(t *testing.T) {
	f := newFixture(t)
	f.policy.prefs.WorkingHoursStart = "09:00"
	f.policy.prefs.WorkingHoursEnd = "17:00"
	f.dispatcher.now = func() time.Time {
		return time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	}

	_, err := f.dispatcher.Schedule(context.Background(), f.tenantID, transport.ScheduleRequest{
		LeadID:      f.leadID,
		Channel:     "email",
		Message:     "later",
		ScheduledAt: "2026-03-02T22:00:00Z",
	})
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindPolicyViolation))
	assert.Empty(t, f.store.attempts)
}

func TestCancelScheduledAttempt(t *testing.T) {
	f := newFixture(t)
	future := time.Now().Add(time.Hour).UTC().Format(time.RFC3339)

	attempt, err := f.dispatcher.Schedule(context.Background(), f.tenantID, transport.ScheduleRequest{
		LeadID:      f.leadID,
		Channel:     "email",
		Message:     "later",
		ScheduledAt: future,
	})
	require.NoError(t, err)

	cancelled, err := f.dispatcher.Cancel(context.Background(), attempt.ID, f.tenantID)
	require.NoError(t, err)
	assert.Equal(t, domain.AttemptCancelled, cancelled.Status)
}

func TestCancelSentAttemptIsInvalidTransition(t *testing.T) {
	f := newFixture(t)

	sent, err := f.dispatcher.Send(context.Background(), f.tenantID, transport.SendRequest{
		LeadID:  f.leadID,
		Channel: "email",
		Message: "hello",
	})
	require.NoError(t, err)

	_, err = f.dispatcher.Cancel(context.Background(), sent.ID, f.tenantID)
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindInvalidTransition))

	current := f.store.attempts[sent.ID]
	assert.Equal(t, domain.AttemptSent, current.Status, "failed cancel must not mutate state")
}

func TestCancelIsIdempotentlyRejectedAfterCancel(t *testing.T) {
	f := newFixture(t)
	future := time.Now().Add(time.Hour).UTC().Format(time.RFC3339)

	attempt, _ := f.dispatcher.Schedule(context.Background(), f.tenantID, transport.ScheduleRequest{
		LeadID:      f.leadID,
		Channel:     "email",
		Message:     "later",
		ScheduledAt: future,
	})

	_, err := f.dispatcher.Cancel(context.Background(), attempt.ID, f.tenantID)
	require.NoError(t, err)

	_, err = f.dispatcher.Cancel(context.Background(), attempt.ID, f.tenantID)
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindInvalidTransition))
}

func TestScheduleThenCancelLandsInInteractionLog(t *testing.T) {
	f := newFixture(t)
	future := time.Now().Add(time.Hour).UTC().Format(time.RFC3339)

	attempt, err := f.dispatcher.Schedule(context.Background(), f.tenantID, transport.ScheduleRequest{
		LeadID:      f.leadID,
		Channel:     "email",
		Message:     "later",
		ScheduledAt: future,
	})
	require.NoError(t, err)

	_, err = f.dispatcher.Cancel(context.Background(), attempt.ID, f.tenantID)
	require.NoError(t, err)

	require.Len(t, f.interactions.audits, 2)
	assert.Equal(t, domain.OutcomePending, f.interactions.audits[0].Outcome)
	assert.Equal(t, domain.OutcomeNoResponse, f.interactions.audits[1].Outcome)
	require.NotNil(t, f.interactions.audits[1].Notes)
	assert.Contains(t, *f.interactions.audits[1].Notes, "cancelled")
}

func TestFailedHandoffLandsInInteractionLog(t *testing.T) {
	f := newFixture(t)
	f.email.err = errors.New("smtp timeout")

	_, err := f.dispatcher.Send(context.Background(), f.tenantID, transport.SendRequest{
		LeadID:  f.leadID,
		Channel: "email",
		Message: "hello",
	})
	require.Error(t, err)

	require.Len(t, f.interactions.audits, 1)
	assert.Equal(t, domain.OutcomeFailed, f.interactions.audits[0].Outcome)
	require.NotNil(t, f.interactions.audits[0].Notes)
	assert.Contains(t, *f.interactions.audits[0].Notes, "smtp timeout")
}

func TestTransitionEventsCarryPriorStatus(t *testing.T) {
	f := newFixture(t)
	future := time.Now().Add(time.Hour).UTC().Format(time.RFC3339)

	attempt, err := f.dispatcher.Schedule(context.Background(), f.tenantID, transport.ScheduleRequest{
		LeadID:      f.leadID,
		Channel:     "email",
		Message:     "later",
		ScheduledAt: future,
	})
	require.NoError(t, err)

	_, err = f.dispatcher.Cancel(context.Background(), attempt.ID, f.tenantID)
	require.NoError(t, err)

	transitions := f.bus.transitions()
	require.Len(t, transitions, 2)
	assert.Equal(t, domain.AttemptPending, transitions[0].OldStatus)
	assert.Equal(t, domain.AttemptScheduled, transitions[0].NewStatus)
	assert.Equal(t, domain.AttemptScheduled, transitions[1].OldStatus)
	assert.Equal(t, domain.AttemptCancelled, transitions[1].NewStatus)
}

func TestRetryTransitionReportsFailedOrigin(t *testing.T) {
	f := newFixture(t)
	f.email.err = errors.New("smtp timeout")

	failed, _ := f.dispatcher.Send(context.Background(), f.tenantID, transport.SendRequest{
		LeadID:  f.leadID,
		Channel: "email",
		Message: "hello",
	})

	f.email.err = nil
	_, err := f.dispatcher.Retry(context.Background(), failed.ID, f.tenantID)
	require.NoError(t, err)

	transitions := f.bus.transitions()
	require.NotEmpty(t, transitions)
	last := transitions[len(transitions)-1]
	assert.Equal(t, domain.AttemptFailed, last.OldStatus)
	assert.Equal(t, domain.AttemptSent, last.NewStatus)
}

func TestDeliveryCallbackAdvancesState(t *testing.T) {
	f := newFixture(t)

	sent, err := f.dispatcher.Send(context.Background(), f.tenantID, transport.SendRequest{
		LeadID:  f.leadID,
		Channel: "email",
		Message: "hello",
	})
	require.NoError(t, err)

	require.NoError(t, f.dispatcher.HandleDeliveryStatus(context.Background(), "msg-1", "delivered"))
	assert.Equal(t, domain.AttemptDelivered, f.store.attempts[sent.ID].Status)

	require.NoError(t, f.dispatcher.HandleDeliveryStatus(context.Background(), "msg-1", "read"))
	assert.Equal(t, domain.AttemptRead, f.store.attempts[sent.ID].Status)

	assert.Equal(t, []string{"delivered", "read"}, f.interactions.deliveries)
}

func TestDeliveryCallbackReadBeforeDelivered(t *testing.T) {
	f := newFixture(t)

	sent, err := f.dispatcher.Send(context.Background(), f.tenantID, transport.SendRequest{
		LeadID:  f.leadID,
		Channel: "email",
		Message: "hello",
	})
	require.NoError(t, err)

	// Read receipt arrives without a prior delivered receipt.
	require.NoError(t, f.dispatcher.HandleDeliveryStatus(context.Background(), "msg-1", "read"))
	assert.Equal(t, domain.AttemptRead, f.store.attempts[sent.ID].Status)
}

func TestDeliveryCallbackUnknownMessageIsIgnored(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.dispatcher.HandleDeliveryStatus(context.Background(), "no-such-id", "delivered"))
}

func TestBackoffGrowsAndCaps(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		retryCount int
		want       time.Duration
	}{
		{0, 2 * time.Second},
		{1, 4 * time.Second},
		{2, 8 * time.Second},
		{10, time.Minute},
	}
	for _, tt := range tests {
		if got := f.dispatcher.backoff(tt.retryCount); got != tt.want {
			t.Errorf("backoff(%d) = %v, want %v", tt.retryCount, got, tt.want)
		}
	}
}
