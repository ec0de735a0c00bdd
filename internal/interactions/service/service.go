// Package service implements the append-only interaction log: recording
// contact moments, correcting outcomes, stamping provider delivery statuses,
// and attaching call recordings.
package service

import (
	"context"
	"errors"
	"io"
	"time"

	"estate_crm_backend/internal/adapters/storage"
	"estate_crm_backend/internal/domain"
	"estate_crm_backend/internal/events"
	"estate_crm_backend/internal/interactions/repository"
	"estate_crm_backend/internal/interactions/transport"
	"estate_crm_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

const pgForeignKeyViolation = "23503"

// RecordingStore stores call recordings; satisfied by storage.RecordingStore.
type RecordingStore interface {
	Upload(ctx context.Context, tenantID, interactionID uuid.UUID, fileName, contentType string, reader io.Reader, size int64) (string, error)
	DownloadURL(ctx context.Context, fileKey string) (*storage.PresignedURL, error)
}

// LeadToucher updates a lead's last-contact timestamp; satisfied by the
// leads repository.
type LeadToucher interface {
	TouchLastContacted(ctx context.Context, id, tenantID uuid.UUID, at time.Time) error
}

type Service struct {
	repo       *repository.Repository
	bus        events.Bus
	recordings RecordingStore
	leads      LeadToucher
}

func New(repo *repository.Repository, bus events.Bus, recordings RecordingStore, leads LeadToucher) *Service {
	return &Service{repo: repo, bus: bus, recordings: recordings, leads: leads}
}

// Record appends an interaction to the lead's log. The lead's
// last_contacted_at is advanced and an InteractionRecorded event is published
// so the scoring engine picks it up.
func (s *Service) Record(ctx context.Context, tenantID, leadID uuid.UUID, req transport.RecordInteractionRequest) (repository.Interaction, error) {
	channel, err := domain.ParseChannel(req.Channel)
	if err != nil {
		return repository.Interaction{}, apperr.Validation(err.Error())
	}
	outcome, err := domain.ParseInteractionOutcome(req.Outcome)
	if err != nil {
		return repository.Interaction{}, apperr.Validation(err.Error())
	}

	startTime := time.Now().UTC()
	if req.StartTime != nil {
		parsed, err := time.Parse(time.RFC3339, *req.StartTime)
		if err != nil {
			return repository.Interaction{}, apperr.Validation("startTime must be RFC3339")
		}
		startTime = parsed.UTC()
	}

	return s.record(ctx, repository.CreateParams{
		TenantID:          tenantID,
		LeadID:            leadID,
		Channel:           channel,
		Outcome:           outcome,
		StartTime:         startTime,
		DurationSeconds:   req.DurationSeconds,
		ProviderMessageID: req.ProviderMessageID,
		Notes:             req.Notes,
	})
}

// RecordSystem appends an interaction on behalf of another module (the
// outreach dispatcher logs one per sent message). Inputs are already typed,
// so no wire-level validation happens here.
func (s *Service) RecordSystem(ctx context.Context, params repository.CreateParams) (repository.Interaction, error) {
	if params.StartTime.IsZero() {
		params.StartTime = time.Now().UTC()
	}
	return s.record(ctx, params)
}

// RecordAudit appends an attempt-lifecycle entry (scheduled, cancelled,
// failed) to the log. Unlike Record, it neither advances the lead's
// last_contacted_at nor publishes an event, since no contact happened.
func (s *Service) RecordAudit(ctx context.Context, params repository.CreateParams) (repository.Interaction, error) {
	if params.StartTime.IsZero() {
		params.StartTime = time.Now().UTC()
	}

	item, err := s.repo.Create(ctx, params)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgForeignKeyViolation {
			return repository.Interaction{}, apperr.NotFound("lead not found")
		}
		return repository.Interaction{}, apperr.Wrap(apperr.KindInternal, "record audit interaction", err)
	}
	return item, nil
}

func (s *Service) record(ctx context.Context, params repository.CreateParams) (repository.Interaction, error) {
	item, err := s.repo.Create(ctx, params)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgForeignKeyViolation {
			return repository.Interaction{}, apperr.NotFound("lead not found")
		}
		return repository.Interaction{}, apperr.Wrap(apperr.KindInternal, "record interaction", err)
	}

	if err := s.leads.TouchLastContacted(ctx, params.LeadID, params.TenantID, item.StartTime); err != nil {
		return repository.Interaction{}, apperr.Wrap(apperr.KindInternal, "touch lead", err)
	}

	s.bus.Publish(ctx, events.InteractionRecorded{
		BaseEvent:     events.NewBaseEvent(),
		InteractionID: item.ID,
		LeadID:        item.LeadID,
		TenantID:      item.TenantID,
		Channel:       item.Channel,
		Outcome:       item.Outcome,
	})

	return item, nil
}

func (s *Service) GetByID(ctx context.Context, id, tenantID uuid.UUID) (repository.Interaction, error) {
	item, err := s.repo.GetByID(ctx, id, tenantID)
	if err == repository.ErrNotFound {
		return repository.Interaction{}, apperr.NotFound("interaction not found")
	}
	if err != nil {
		return repository.Interaction{}, apperr.Wrap(apperr.KindInternal, "get interaction", err)
	}
	return item, nil
}

func (s *Service) ListByLead(ctx context.Context, leadID, tenantID uuid.UUID, limit, offset int) ([]repository.Interaction, error) {
	items, err := s.repo.ListByLead(ctx, leadID, tenantID, limit, offset)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "list interactions", err)
	}
	return items, nil
}

// UpdateOutcome corrects a previously recorded outcome and republishes the
// interaction so scores refresh.
func (s *Service) UpdateOutcome(ctx context.Context, id, tenantID uuid.UUID, rawOutcome string) (repository.Interaction, error) {
	outcome, err := domain.ParseInteractionOutcome(rawOutcome)
	if err != nil {
		return repository.Interaction{}, apperr.Validation(err.Error())
	}

	item, err := s.repo.UpdateOutcome(ctx, id, tenantID, outcome)
	if err == repository.ErrNotFound {
		return repository.Interaction{}, apperr.NotFound("interaction not found")
	}
	if err != nil {
		return repository.Interaction{}, apperr.Wrap(apperr.KindInternal, "update outcome", err)
	}

	s.bus.Publish(ctx, events.InteractionRecorded{
		BaseEvent:     events.NewBaseEvent(),
		InteractionID: item.ID,
		LeadID:        item.LeadID,
		TenantID:      item.TenantID,
		Channel:       item.Channel,
		Outcome:       item.Outcome,
	})

	return item, nil
}

// MarkDelivery stamps the provider delivery status on the interaction that
// carries the provider message id. Called from the outreach webhook path.
func (s *Service) MarkDelivery(ctx context.Context, tenantID uuid.UUID, providerMessageID, deliveryStatus string) error {
	_, err := s.repo.UpdateDeliveryByProviderID(ctx, tenantID, providerMessageID, deliveryStatus)
	if err == repository.ErrNotFound {
		// Delivery callbacks can outrun the interaction insert; drop silently.
		return nil
	}
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "mark delivery", err)
	}
	return nil
}

// AttachRecording uploads a call recording and links it to the interaction.
// Only call interactions carry recordings.
func (s *Service) AttachRecording(ctx context.Context, id, tenantID uuid.UUID, fileName, contentType string, reader io.Reader, size int64) (repository.Interaction, error) {
	if s.recordings == nil {
		return repository.Interaction{}, apperr.Internal("recording storage is not configured")
	}

	item, err := s.GetByID(ctx, id, tenantID)
	if err != nil {
		return repository.Interaction{}, err
	}
	if item.Channel != domain.ChannelCall {
		return repository.Interaction{}, apperr.Validation("recordings are only supported for call interactions")
	}

	key, err := s.recordings.Upload(ctx, tenantID, id, fileName, contentType, reader, size)
	if err != nil {
		return repository.Interaction{}, apperr.Wrap(apperr.KindInternal, "upload recording", err)
	}

	if err := s.repo.SetRecordingKey(ctx, id, tenantID, key); err != nil {
		return repository.Interaction{}, apperr.Wrap(apperr.KindInternal, "attach recording", err)
	}

	item.RecordingKey = &key
	return item, nil
}

// RecordingURL returns a presigned download link for the interaction's recording.
func (s *Service) RecordingURL(ctx context.Context, id, tenantID uuid.UUID) (*storage.PresignedURL, error) {
	if s.recordings == nil {
		return nil, apperr.Internal("recording storage is not configured")
	}

	item, err := s.GetByID(ctx, id, tenantID)
	if err != nil {
		return nil, err
	}
	if item.RecordingKey == nil {
		return nil, apperr.NotFound("interaction has no recording")
	}

	url, err := s.recordings.DownloadURL(ctx, *item.RecordingKey)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "presign recording", err)
	}
	return url, nil
}
