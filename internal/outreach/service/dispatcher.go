// Package service implements the outreach dispatcher: the state machine that
// takes an attempt from creation through provider handoff, delivery receipts,
// retries, and cancellation. Policy checks (working hours, daily cap) run
// before any provider is called.
package service

import (
	"context"
	"fmt"
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
	"estate_crm_backend/platform/config"
	"estate_crm_backend/platform/logger"

	"github.com/google/uuid"
)

// AttemptStore is the attempt persistence surface the dispatcher drives.
// Satisfied by the outreach repository.
type AttemptStore interface {
	Create(ctx context.Context, params repository.CreateParams) (repository.Attempt, error)
	GetByID(ctx context.Context, id, tenantID uuid.UUID) (repository.Attempt, error)
	GetByProviderMessageID(ctx context.Context, providerMessageID string) (repository.Attempt, error)
	ListByLead(ctx context.Context, leadID, tenantID uuid.UUID, limit, offset int) ([]repository.Attempt, error)
	ClaimForSend(ctx context.Context, id, tenantID uuid.UUID) (repository.Attempt, error)
	ClaimForRetry(ctx context.Context, id, tenantID uuid.UUID, ceiling int) (repository.Attempt, error)
	Cancel(ctx context.Context, id, tenantID uuid.UUID) (repository.Attempt, error)
	MarkFailed(ctx context.Context, id, tenantID uuid.UUID, errorMessage string) (repository.Attempt, error)
	MarkDelivered(ctx context.Context, id, tenantID uuid.UUID) (repository.Attempt, error)
	MarkRead(ctx context.Context, id, tenantID uuid.UUID) (repository.Attempt, error)
	SetProviderMessageID(ctx context.Context, id, tenantID uuid.UUID, providerMessageID string) error
}

// LeadContacts resolves lead contact data; satisfied by the leads repository.
type LeadContacts interface {
	GetByID(ctx context.Context, id, tenantID uuid.UUID) (leadrepo.Lead, error)
}

// Policy resolves tenant preferences and the daily cap; satisfied by the
// preferences service.
type Policy interface {
	Resolve(ctx context.Context, tenantID uuid.UUID) (prefrepo.Preferences, error)
	UnderDailyCap(ctx context.Context, prefs prefrepo.Preferences, now time.Time) (bool, int, error)
}

// InteractionLog records outreach sends in the interaction log; satisfied by
// the interactions service.
type InteractionLog interface {
	RecordSystem(ctx context.Context, params irepo.CreateParams) (irepo.Interaction, error)
	RecordAudit(ctx context.Context, params irepo.CreateParams) (irepo.Interaction, error)
	MarkDelivery(ctx context.Context, tenantID uuid.UUID, providerMessageID, deliveryStatus string) error
}

// Providers resolves the gateway for a channel; satisfied by provider.Registry.
type Providers interface {
	For(channel domain.Channel) (provider.Provider, error)
}

// Enqueuer hands scheduled sends and retries to the background worker;
// satisfied by the scheduler client. Nil means no background processing
// (retries and scheduled sends then rely on the sweep alone).
type Enqueuer interface {
	EnqueueDispatch(ctx context.Context, attemptID, tenantID uuid.UUID, at time.Time) error
	EnqueueRetry(ctx context.Context, attemptID, tenantID uuid.UUID, in time.Duration) error
}

type Dispatcher struct {
	attempts     AttemptStore
	leads        LeadContacts
	policy       Policy
	interactions InteractionLog
	providers    Providers
	enqueuer     Enqueuer
	bus          events.Bus
	log          *logger.Logger
	retryCeiling int
	backoffBase  time.Duration
	backoffMax   time.Duration
	now          func() time.Time
}

func NewDispatcher(attempts AttemptStore, leads LeadContacts, policy Policy, interactions InteractionLog, providers Providers, enqueuer Enqueuer, bus events.Bus, cfg config.OutreachConfig, log *logger.Logger) *Dispatcher {
	return &Dispatcher{
		attempts:     attempts,
		leads:        leads,
		policy:       policy,
		interactions: interactions,
		providers:    providers,
		enqueuer:     enqueuer,
		bus:          bus,
		log:          log,
		retryCeiling: cfg.GetOutreachRetryCeiling(),
		backoffBase:  cfg.GetOutreachBackoffBase(),
		backoffMax:   cfg.GetOutreachBackoffMax(),
		now:          time.Now,
	}
}

// Send creates an attempt and dispatches it immediately. Policy violations
// surface before any attempt row exists.
func (d *Dispatcher) Send(ctx context.Context, tenantID uuid.UUID, req transport.SendRequest) (repository.Attempt, error) {
	prefs, channel, recipient, templateID, err := d.prepare(ctx, tenantID, req.LeadID, req.Channel, req.TemplateID)
	if err != nil {
		return repository.Attempt{}, err
	}

	now := d.now().UTC()
	if err := d.checkPolicy(ctx, prefs, now); err != nil {
		return repository.Attempt{}, err
	}

	attempt, err := d.attempts.Create(ctx, repository.CreateParams{
		TenantID:   tenantID,
		LeadID:     req.LeadID,
		Channel:    channel,
		Message:    req.Message,
		TemplateID: templateID,
		Status:     domain.AttemptPending,
	})
	if err != nil {
		return repository.Attempt{}, apperr.Wrap(apperr.KindInternal, "create attempt", err)
	}

	return d.deliver(ctx, attempt, recipient)
}

// Schedule creates an attempt in the scheduled state and enqueues its
// dispatch for the requested time. Policy is checked against the scheduled
// time before the row is created, and again when the send fires.
func (d *Dispatcher) Schedule(ctx context.Context, tenantID uuid.UUID, req transport.ScheduleRequest) (repository.Attempt, error) {
	prefs, channel, _, templateID, err := d.prepare(ctx, tenantID, req.LeadID, req.Channel, req.TemplateID)
	if err != nil {
		return repository.Attempt{}, err
	}

	scheduledAt, err := time.Parse(time.RFC3339, req.ScheduledAt)
	if err != nil {
		return repository.Attempt{}, apperr.Validation("scheduledAt must be RFC3339")
	}
	scheduledAt = scheduledAt.UTC()
	if !scheduledAt.After(d.now().UTC()) {
		return repository.Attempt{}, apperr.Validation("scheduledAt must be in the future")
	}

	if err := d.checkPolicy(ctx, prefs, scheduledAt); err != nil {
		return repository.Attempt{}, err
	}

	attempt, err := d.attempts.Create(ctx, repository.CreateParams{
		TenantID:    tenantID,
		LeadID:      req.LeadID,
		Channel:     channel,
		Message:     req.Message,
		TemplateID:  templateID,
		Status:      domain.AttemptScheduled,
		ScheduledAt: &scheduledAt,
	})
	if err != nil {
		return repository.Attempt{}, apperr.Wrap(apperr.KindInternal, "create scheduled attempt", err)
	}

	if d.enqueuer != nil {
		if err := d.enqueuer.EnqueueDispatch(ctx, attempt.ID, tenantID, scheduledAt); err != nil {
			// The sweep will pick the attempt up; losing the eager task only
			// delays delivery.
			d.log.Error("enqueue scheduled dispatch failed", "error", err, "attemptId", attempt.ID)
		}
	}

	d.recordAuditInteraction(ctx, attempt, domain.OutcomePending,
		"outreach scheduled for "+scheduledAt.Format(time.RFC3339))
	d.publishTransition(ctx, attempt, domain.AttemptPending, domain.AttemptScheduled)
	return attempt, nil
}

// Cancel withdraws an attempt that is still pending or scheduled. Anything
// further along reports an invalid transition and leaves state untouched.
func (d *Dispatcher) Cancel(ctx context.Context, id, tenantID uuid.UUID) (repository.Attempt, error) {
	attempt, err := d.attempts.Cancel(ctx, id, tenantID)
	if err == repository.ErrNotFound {
		return repository.Attempt{}, apperr.NotFound("attempt not found")
	}
	if err == repository.ErrStaleState {
		return repository.Attempt{}, apperr.InvalidTransition("attempt can no longer be cancelled")
	}
	if err != nil {
		return repository.Attempt{}, apperr.Wrap(apperr.KindInternal, "cancel attempt", err)
	}

	// A scheduled_at timestamp means the attempt left pending before the
	// cancel landed.
	from := domain.AttemptPending
	if attempt.ScheduledAt != nil {
		from = domain.AttemptScheduled
	}

	d.log.OutreachEvent("cancelled", string(attempt.Channel), attempt.ID.String(), tenantID.String())
	d.recordAuditInteraction(ctx, attempt, domain.OutcomeNoResponse, "outreach cancelled before send")
	d.publishTransition(ctx, attempt, from, domain.AttemptCancelled)
	return attempt, nil
}

// Retry re-dispatches a failed attempt, bumping retry_count on the same row.
// Exceeding the ceiling is terminal.
func (d *Dispatcher) Retry(ctx context.Context, id, tenantID uuid.UUID) (repository.Attempt, error) {
	attempt, err := d.attempts.ClaimForRetry(ctx, id, tenantID, d.retryCeiling)
	if err == repository.ErrNotFound {
		return repository.Attempt{}, apperr.NotFound("attempt not found")
	}
	if err == repository.ErrStaleState {
		current, getErr := d.attempts.GetByID(ctx, id, tenantID)
		if getErr == nil && current.Status == domain.AttemptFailed {
			return repository.Attempt{}, apperr.InvalidTransition(
				fmt.Sprintf("retry ceiling of %d reached", d.retryCeiling))
		}
		return repository.Attempt{}, apperr.InvalidTransition("only failed attempts can be retried")
	}
	if err != nil {
		return repository.Attempt{}, apperr.Wrap(apperr.KindInternal, "claim retry", err)
	}

	recipient, err := d.recipientFor(ctx, attempt.TenantID, attempt.LeadID, attempt.Channel)
	if err != nil {
		return repository.Attempt{}, err
	}

	return d.handoff(ctx, attempt, recipient, domain.AttemptFailed)
}

// Dispatch performs the background send of a scheduled attempt. Called by
// the worker when the scheduled time arrives; policy is enforced here.
func (d *Dispatcher) Dispatch(ctx context.Context, id, tenantID uuid.UUID) (repository.Attempt, error) {
	attempt, err := d.attempts.GetByID(ctx, id, tenantID)
	if err == repository.ErrNotFound {
		return repository.Attempt{}, apperr.NotFound("attempt not found")
	}
	if err != nil {
		return repository.Attempt{}, apperr.Wrap(apperr.KindInternal, "load attempt", err)
	}
	if attempt.Status != domain.AttemptScheduled && attempt.Status != domain.AttemptPending {
		// Cancelled or already claimed by a concurrent sweep; nothing to do.
		return attempt, nil
	}

	recipient, err := d.recipientFor(ctx, tenantID, attempt.LeadID, attempt.Channel)
	if err != nil {
		return repository.Attempt{}, err
	}

	return d.deliver(ctx, attempt, recipient)
}

// HandleDeliveryStatus applies a provider callback (delivered, read, failed)
// to the attempt carrying the provider message id.
func (d *Dispatcher) HandleDeliveryStatus(ctx context.Context, providerMessageID, rawStatus string) error {
	attempt, err := d.attempts.GetByProviderMessageID(ctx, providerMessageID)
	if err == repository.ErrNotFound {
		// Callback for a message this system did not send; ignore.
		d.log.Warn("delivery callback for unknown message", "provider_message_id", providerMessageID)
		return nil
	}
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "lookup attempt by provider id", err)
	}

	var updated repository.Attempt
	switch rawStatus {
	case "delivered":
		updated, err = d.attempts.MarkDelivered(ctx, attempt.ID, attempt.TenantID)
	case "read":
		updated, err = d.attempts.MarkRead(ctx, attempt.ID, attempt.TenantID)
		if err == repository.ErrStaleState && attempt.Status == domain.AttemptSent {
			// Read receipts can arrive before the delivery receipt.
			if _, derr := d.attempts.MarkDelivered(ctx, attempt.ID, attempt.TenantID); derr == nil {
				updated, err = d.attempts.MarkRead(ctx, attempt.ID, attempt.TenantID)
			}
		}
	case "failed":
		updated, err = d.attempts.MarkFailed(ctx, attempt.ID, attempt.TenantID, "provider reported delivery failure")
		if err == nil {
			d.scheduleRetry(ctx, updated)
		}
	default:
		return apperr.Validation(fmt.Sprintf("unknown delivery status %q", rawStatus))
	}

	if err == repository.ErrStaleState {
		// Out-of-order or duplicate callback; the attempt already moved on.
		return nil
	}
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "apply delivery status", err)
	}

	if logErr := d.interactions.MarkDelivery(ctx, attempt.TenantID, providerMessageID, rawStatus); logErr != nil {
		d.log.Error("interaction delivery update failed", "error", logErr, "attemptId", attempt.ID)
	}

	d.publishTransition(ctx, updated, attempt.Status, updated.Status)
	return nil
}

func (d *Dispatcher) GetByID(ctx context.Context, id, tenantID uuid.UUID) (repository.Attempt, error) {
	attempt, err := d.attempts.GetByID(ctx, id, tenantID)
	if err == repository.ErrNotFound {
		return repository.Attempt{}, apperr.NotFound("attempt not found")
	}
	if err != nil {
		return repository.Attempt{}, apperr.Wrap(apperr.KindInternal, "get attempt", err)
	}
	return attempt, nil
}

func (d *Dispatcher) ListByLead(ctx context.Context, leadID, tenantID uuid.UUID, limit, offset int) ([]repository.Attempt, error) {
	attempts, err := d.attempts.ListByLead(ctx, leadID, tenantID, limit, offset)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "list attempts", err)
	}
	return attempts, nil
}

// prepare resolves preferences, the effective channel, the recipient address,
// and the effective template for a new attempt.
func (d *Dispatcher) prepare(ctx context.Context, tenantID, leadID uuid.UUID, rawChannel string, rawTemplateID *string) (prefrepo.Preferences, domain.Channel, string, *string, error) {
	prefs, err := d.policy.Resolve(ctx, tenantID)
	if err != nil {
		return prefrepo.Preferences{}, "", "", nil, err
	}

	channel := prefs.DefaultChannel
	if rawChannel != "" {
		channel, err = domain.ParseChannel(rawChannel)
		if err != nil {
			return prefrepo.Preferences{}, "", "", nil, apperr.Validation(err.Error())
		}
	}

	recipient, err := d.recipientFor(ctx, tenantID, leadID, channel)
	if err != nil {
		return prefrepo.Preferences{}, "", "", nil, err
	}

	templateID := rawTemplateID
	if templateID == nil {
		if configured, ok := prefservice.TemplateFor(prefs, channel); ok {
			templateID = &configured
		}
	}

	return prefs, channel, recipient, templateID, nil
}

func (d *Dispatcher) recipientFor(ctx context.Context, tenantID, leadID uuid.UUID, channel domain.Channel) (string, error) {
	lead, err := d.leads.GetByID(ctx, leadID, tenantID)
	if err == leadrepo.ErrNotFound {
		return "", apperr.NotFound("lead not found")
	}
	if err != nil {
		return "", apperr.Wrap(apperr.KindInternal, "load lead", err)
	}

	if channel == domain.ChannelEmail {
		if lead.Email == nil || *lead.Email == "" {
			return "", apperr.Validation("lead has no email address")
		}
		return *lead.Email, nil
	}

	if lead.Phone == nil || *lead.Phone == "" {
		return "", apperr.Validation("lead has no phone number")
	}
	return *lead.Phone, nil
}

func (d *Dispatcher) checkPolicy(ctx context.Context, prefs prefrepo.Preferences, now time.Time) error {
	if !prefservice.IsWithinWindow(prefs, now) {
		return apperr.PolicyViolation(fmt.Sprintf(
			"outside working hours %s-%s", prefs.WorkingHoursStart, prefs.WorkingHoursEnd))
	}

	under, count, err := d.policy.UnderDailyCap(ctx, prefs, now)
	if err != nil {
		return err
	}
	if !under {
		return apperr.PolicyViolation(fmt.Sprintf(
			"daily outreach cap of %d reached (%d sent today)", prefs.MaxDailyOutreach, count))
	}
	return nil
}

// deliver enforces policy, claims the attempt, and hands it to the provider.
func (d *Dispatcher) deliver(ctx context.Context, attempt repository.Attempt, recipient string) (repository.Attempt, error) {
	prefs, err := d.policy.Resolve(ctx, attempt.TenantID)
	if err != nil {
		return repository.Attempt{}, err
	}
	if err := d.checkPolicy(ctx, prefs, d.now().UTC()); err != nil {
		return repository.Attempt{}, err
	}

	from := attempt.Status
	claimed, err := d.attempts.ClaimForSend(ctx, attempt.ID, attempt.TenantID)
	if err == repository.ErrNotFound {
		return repository.Attempt{}, apperr.NotFound("attempt not found")
	}
	if err == repository.ErrStaleState {
		return repository.Attempt{}, apperr.InvalidTransition("attempt was already dispatched or cancelled")
	}
	if err != nil {
		return repository.Attempt{}, apperr.Wrap(apperr.KindInternal, "claim attempt", err)
	}

	return d.handoff(ctx, claimed, recipient, from)
}

// handoff calls the channel provider for a claimed (sent-status) attempt and
// records the outcome. from is the status the attempt was claimed out of.
func (d *Dispatcher) handoff(ctx context.Context, attempt repository.Attempt, recipient string, from domain.AttemptStatus) (repository.Attempt, error) {
	gateway, err := d.providers.For(attempt.Channel)
	if err != nil {
		failed := d.markFailed(ctx, attempt, err.Error())
		return failed, apperr.ProviderFailure("no gateway for channel", err)
	}

	templateID := ""
	if attempt.TemplateID != nil {
		templateID = *attempt.TemplateID
	}

	result, err := gateway.Deliver(ctx, provider.Message{
		Recipient:  recipient,
		Body:       attempt.Message,
		TemplateID: templateID,
	})
	if err != nil {
		d.log.ProviderError(string(attempt.Channel), attempt.ID.String(), err)
		failed := d.markFailed(ctx, attempt, err.Error())
		d.scheduleRetry(ctx, failed)
		return failed, apperr.ProviderFailure("delivery failed", err)
	}

	if result.ProviderMessageID != "" {
		if err := d.attempts.SetProviderMessageID(ctx, attempt.ID, attempt.TenantID, result.ProviderMessageID); err != nil {
			d.log.Error("store provider message id failed", "error", err, "attemptId", attempt.ID)
		}
		pmid := result.ProviderMessageID
		attempt.ProviderMessageID = &pmid
	}

	d.log.OutreachEvent("sent", string(attempt.Channel), attempt.ID.String(), attempt.TenantID.String())
	d.recordSendInteraction(ctx, attempt)
	d.publishTransition(ctx, attempt, from, domain.AttemptSent)

	attempt.Status = domain.AttemptSent
	return attempt, nil
}

func (d *Dispatcher) markFailed(ctx context.Context, attempt repository.Attempt, message string) repository.Attempt {
	from := attempt.Status
	failed, err := d.attempts.MarkFailed(ctx, attempt.ID, attempt.TenantID, message)
	if err != nil {
		d.log.Error("mark attempt failed errored", "error", err, "attemptId", attempt.ID)
		attempt.Status = domain.AttemptFailed
		return attempt
	}
	d.recordAuditInteraction(ctx, failed, domain.OutcomeFailed, "outreach failed: "+message)
	d.publishTransition(ctx, failed, from, domain.AttemptFailed)
	return failed
}

// scheduleRetry enqueues the next automatic retry with exponential backoff,
// unless the attempt already consumed its retry budget.
func (d *Dispatcher) scheduleRetry(ctx context.Context, attempt repository.Attempt) {
	if d.enqueuer == nil || attempt.RetryCount >= d.retryCeiling {
		return
	}

	delay := d.backoff(attempt.RetryCount)
	if err := d.enqueuer.EnqueueRetry(ctx, attempt.ID, attempt.TenantID, delay); err != nil {
		d.log.Error("enqueue retry failed", "error", err, "attemptId", attempt.ID)
		return
	}
	d.log.OutreachEvent("retry_scheduled", string(attempt.Channel), attempt.ID.String(), attempt.TenantID.String())
}

func (d *Dispatcher) backoff(retryCount int) time.Duration {
	delay := d.backoffBase
	for i := 0; i < retryCount; i++ {
		delay *= 2
		if delay >= d.backoffMax {
			return d.backoffMax
		}
	}
	if delay > d.backoffMax {
		return d.backoffMax
	}
	return delay
}

func (d *Dispatcher) recordSendInteraction(ctx context.Context, attempt repository.Attempt) {
	if _, err := d.interactions.RecordSystem(ctx, irepo.CreateParams{
		TenantID:          attempt.TenantID,
		LeadID:            attempt.LeadID,
		Channel:           attempt.Channel,
		Outcome:           domain.OutcomePending,
		ProviderMessageID: attempt.ProviderMessageID,
	}); err != nil {
		d.log.Error("record outreach interaction failed", "error", err, "attemptId", attempt.ID)
	}
}

// recordAuditInteraction appends a lifecycle entry to the interaction log
// without advancing the lead's contact timestamp.
func (d *Dispatcher) recordAuditInteraction(ctx context.Context, attempt repository.Attempt, outcome domain.InteractionOutcome, note string) {
	if _, err := d.interactions.RecordAudit(ctx, irepo.CreateParams{
		TenantID: attempt.TenantID,
		LeadID:   attempt.LeadID,
		Channel:  attempt.Channel,
		Outcome:  outcome,
		Notes:    &note,
	}); err != nil {
		d.log.Error("record outreach audit failed", "error", err, "attemptId", attempt.ID)
	}
}

func (d *Dispatcher) publishTransition(ctx context.Context, attempt repository.Attempt, from, to domain.AttemptStatus) {
	d.bus.Publish(ctx, events.OutreachAttemptTransitioned{
		BaseEvent: events.NewBaseEvent(),
		AttemptID: attempt.ID,
		LeadID:    attempt.LeadID,
		TenantID:  attempt.TenantID,
		Channel:   attempt.Channel,
		OldStatus: from,
		NewStatus: to,
	})
}
