package scheduler

import (
	"context"
	"fmt"

	outreachservice "estate_crm_backend/internal/outreach/service"
	"estate_crm_backend/platform/apperr"
	"estate_crm_backend/platform/config"
	"estate_crm_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// Worker consumes outreach tasks and drives the dispatcher. The dispatcher
// it runs must be wired with the scheduler client so provider failures can
// enqueue their own retries.
type Worker struct {
	server     *asynq.Server
	mux        *asynq.ServeMux
	dispatcher *outreachservice.Dispatcher
	log        *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, dispatcher *outreachservice.Dispatcher, log *logger.Logger) (*Worker, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	queue := cfg.GetAsynqQueueName()
	if queue == "" {
		queue = "default"
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queue: 1,
		},
	})

	mux := asynq.NewServeMux()
	w := &Worker{
		server:     server,
		mux:        mux,
		dispatcher: dispatcher,
		log:        log,
	}

	mux.HandleFunc(TaskOutreachDispatch, w.handleOutreachDispatch)
	mux.HandleFunc(TaskOutreachRetry, w.handleOutreachRetry)

	return w, nil
}

func (w *Worker) handleOutreachDispatch(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseOutreachDispatchPayload(task)
	if err != nil {
		return err
	}

	attemptID, tenantID, err := parseIDs(payload.AttemptID, payload.TenantID)
	if err != nil {
		return err
	}

	_, err = w.dispatcher.Dispatch(ctx, attemptID, tenantID)
	return w.settle("dispatch", attemptID, err)
}

func (w *Worker) handleOutreachRetry(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseOutreachRetryPayload(task)
	if err != nil {
		return err
	}

	attemptID, tenantID, err := parseIDs(payload.AttemptID, payload.TenantID)
	if err != nil {
		return err
	}

	_, err = w.dispatcher.Retry(ctx, attemptID, tenantID)
	return w.settle("retry", attemptID, err)
}

// settle decides whether a dispatcher error should fail the task. Terminal
// outcomes are dropped so asynq does not replay them; policy violations
// surface as errors so the task is retried once the window reopens.
func (w *Worker) settle(op string, attemptID uuid.UUID, err error) error {
	if err == nil {
		return nil
	}

	switch apperr.GetKind(err) {
	case apperr.KindNotFound, apperr.KindInvalidTransition:
		// Attempt gone, cancelled, or already handled elsewhere.
		w.log.Info("outreach task dropped", "op", op, "attempt_id", attemptID, "reason", err.Error())
		return nil
	case apperr.KindProviderFailure:
		// The dispatcher already marked the attempt failed and scheduled
		// its own backoff retry.
		w.log.Warn("outreach task hit provider failure", "op", op, "attempt_id", attemptID, "error", err)
		return nil
	default:
		return err
	}
}

func parseIDs(rawAttemptID, rawTenantID string) (uuid.UUID, uuid.UUID, error) {
	attemptID, err := uuid.Parse(rawAttemptID)
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	tenantID, err := uuid.Parse(rawTenantID)
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	return attemptID, tenantID, nil
}

func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", "error", err)
	}
}
