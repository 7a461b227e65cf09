package generate

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"gen-gallery/internal/breaker"
	"gen-gallery/internal/logging"
	"gen-gallery/internal/metrics"
	"gen-gallery/internal/store"
	"gen-gallery/internal/thumbnail"
	"gen-gallery/internal/workers"
)

// Breaker keys. Each remote operation trips independently so a flaky status
// endpoint cannot block image generation.
const (
	BreakerImage       = "image-generate"
	BreakerVideoSubmit = "video-generate"
	BreakerVideoStatus = "video-status"
)

// MaxBatchSize bounds how many images a single job may request.
const MaxBatchSize = 8

// Remote is the generation service surface the orchestrator drives.
type Remote interface {
	GenerateImages(ctx context.Context, prompt string, count int, aspectRatio string, editImage []byte) ([]ImageSlot, error)
	SubmitVideo(ctx context.Context, prompt, aspectRatio string) (string, error)
	PollVideo(ctx context.Context, requestID string) (PollStatus, error)
}

// Job status values.
const (
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusPartial   = "partial"
	StatusFailed    = "failed"
	StatusCancelled = "cancelled"
)

// Request describes one generation job.
type Request struct {
	Type        store.ArtifactType
	Prompt      string
	Count       int
	AspectRatio string
	FolderID    *string
	EditImage   []byte
}

// Placeholder is a pending gallery slot for a result that has not arrived yet.
// Its ID becomes the artifact ID if the slot resolves successfully.
type Placeholder struct {
	ID          string             `json:"id"`
	JobID       string             `json:"jobId"`
	Prompt      string             `json:"prompt"`
	Type        store.ArtifactType `json:"type"`
	AspectRatio string             `json:"aspectRatio"`
	CreatedAt   time.Time          `json:"createdAt"`
}

// Job tracks one in-flight or finished generation.
type Job struct {
	ID           string
	Type         store.ArtifactType
	Prompt       string
	Count        int
	AspectRatio  string
	CreatedAt    time.Time
	Placeholders []string

	mu         sync.Mutex
	status     string
	requestID  string
	saved      int
	err        error
	finishedAt time.Time

	cancel context.CancelFunc
	done   chan struct{}
}

// View is a point-in-time snapshot of a job, safe to serialize.
type View struct {
	ID           string             `json:"id"`
	Type         store.ArtifactType `json:"type"`
	Prompt       string             `json:"prompt"`
	Count        int                `json:"count"`
	Status       string             `json:"status"`
	RequestID    string             `json:"requestId,omitempty"`
	Saved        int                `json:"saved"`
	Error        string             `json:"error,omitempty"`
	CreatedAt    time.Time          `json:"createdAt"`
	AspectRatio  string             `json:"aspectRatio"`
	Placeholders []string           `json:"placeholders"`
}

// Done is closed when the job reaches a terminal status.
func (j *Job) Done() <-chan struct{} { return j.done }

// Err returns the terminal error, nil while running or on success.
func (j *Job) Err() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.err
}

// View snapshots the job under its lock.
func (j *Job) View() View {
	j.mu.Lock()
	defer j.mu.Unlock()
	v := View{
		ID:           j.ID,
		Type:         j.Type,
		Prompt:       j.Prompt,
		Count:        j.Count,
		Status:       j.status,
		RequestID:    j.requestID,
		Saved:        j.saved,
		CreatedAt:    j.CreatedAt,
		AspectRatio:  j.AspectRatio,
		Placeholders: j.Placeholders,
	}
	if j.err != nil {
		v.Error = j.err.Error()
	}
	return v
}

// Options configures an Orchestrator.
type Options struct {
	Remote       Remote
	Store        *store.Store
	Thumbnails   *thumbnail.Pipeline
	Breakers     *breaker.Registry
	PollInterval time.Duration
	PollTimeout  time.Duration
	JobRetention time.Duration
}

// Orchestrator runs generation jobs. It registers placeholders synchronously
// at submit time, drives the remote service behind the circuit breaker
// registry, and persists each result in its own storage transaction.
type Orchestrator struct {
	remote       Remote
	store        *store.Store
	thumbs       *thumbnail.Pipeline
	breakers     *breaker.Registry
	pollInterval time.Duration
	pollTimeout  time.Duration
	retention    time.Duration

	mu           sync.Mutex
	jobs         map[string]*Job
	placeholders map[string]Placeholder

	wg       sync.WaitGroup
	baseCtx  context.Context
	shutdown context.CancelFunc
}

func New(opts Options) *Orchestrator {
	if opts.PollInterval <= 0 {
		opts.PollInterval = 5 * time.Second
	}
	if opts.PollTimeout <= 0 {
		opts.PollTimeout = 5 * time.Minute
	}
	if opts.JobRetention <= 0 {
		opts.JobRetention = time.Hour
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Orchestrator{
		remote:       opts.Remote,
		store:        opts.Store,
		thumbs:       opts.Thumbnails,
		breakers:     opts.Breakers,
		pollInterval: opts.PollInterval,
		pollTimeout:  opts.PollTimeout,
		retention:    opts.JobRetention,
		jobs:         make(map[string]*Job),
		placeholders: make(map[string]Placeholder),
		baseCtx:      ctx,
		shutdown:     cancel,
	}
}

// Submit validates the request, registers its placeholders before any network
// activity, and starts the job in the background. The returned job is already
// visible via Placeholders and Job.
func (o *Orchestrator) Submit(req Request) (*Job, error) {
	if req.Prompt == "" {
		return nil, fmt.Errorf("prompt is required")
	}
	switch req.Type {
	case store.TypeImage:
		if req.Count <= 0 {
			req.Count = 1
		}
		if req.Count > MaxBatchSize {
			return nil, fmt.Errorf("count %d exceeds batch limit %d", req.Count, MaxBatchSize)
		}
	case store.TypeVideo:
		req.Count = 1
		if len(req.EditImage) > 0 {
			return nil, fmt.Errorf("edit image is not supported for video generation")
		}
	default:
		return nil, fmt.Errorf("unknown artifact type %q", req.Type)
	}

	ctx, cancel := context.WithCancel(o.baseCtx)
	job := &Job{
		ID:          uuid.NewString(),
		Type:        req.Type,
		Prompt:      req.Prompt,
		Count:       req.Count,
		AspectRatio: req.AspectRatio,
		CreatedAt:   time.Now(),
		status:      StatusRunning,
		cancel:      cancel,
		done:        make(chan struct{}),
	}

	slots := make([]Placeholder, req.Count)
	o.mu.Lock()
	o.evictFinishedLocked(time.Now())
	o.jobs[job.ID] = job
	for i := range slots {
		slots[i] = Placeholder{
			ID:          uuid.NewString(),
			JobID:       job.ID,
			Prompt:      req.Prompt,
			Type:        req.Type,
			AspectRatio: req.AspectRatio,
			CreatedAt:   job.CreatedAt,
		}
		o.placeholders[slots[i].ID] = slots[i]
		job.Placeholders = append(job.Placeholders, slots[i].ID)
	}
	metrics.PlaceholdersActive.Set(float64(len(o.placeholders)))
	o.mu.Unlock()

	logging.Info("Generation job %s submitted: type=%s count=%d", job.ID, job.Type, job.Count)

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		start := time.Now()
		if req.Type == store.TypeImage {
			o.runImage(ctx, job, req, slots)
		} else {
			o.runVideo(ctx, job, req, slots[0])
		}
		metrics.GenerationDuration.WithLabelValues(string(job.Type)).Observe(time.Since(start).Seconds())
	}()
	return job, nil
}

// Cancel requests cooperative cancellation of a running job. Cancelling a
// finished job is a no-op; unknown or evicted ids return ErrJobNotFound.
func (o *Orchestrator) Cancel(id string) error {
	o.mu.Lock()
	job, ok := o.jobs[id]
	o.mu.Unlock()
	if !ok {
		return ErrJobNotFound
	}
	job.cancel()
	return nil
}

// Job returns a snapshot of the identified job. Terminal jobs stay
// queryable until the retention window evicts them.
func (o *Orchestrator) Job(id string) (View, error) {
	o.mu.Lock()
	job, ok := o.jobs[id]
	o.mu.Unlock()
	if !ok {
		return View{}, ErrJobNotFound
	}
	return job.View(), nil
}

// evictFinishedLocked drops terminal jobs older than the retention window
// so the job map does not grow without bound. Caller must hold o.mu.
func (o *Orchestrator) evictFinishedLocked(now time.Time) {
	cutoff := now.Add(-o.retention)
	for id, job := range o.jobs {
		if job.finishedBefore(cutoff) {
			delete(o.jobs, id)
		}
	}
}

func (j *Job) finishedBefore(cutoff time.Time) bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return !j.finishedAt.IsZero() && j.finishedAt.Before(cutoff)
}

// Placeholders lists unresolved placeholders in no particular order.
func (o *Orchestrator) Placeholders() []Placeholder {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]Placeholder, 0, len(o.placeholders))
	for _, p := range o.placeholders {
		out = append(out, p)
	}
	return out
}

// Close cancels every running job and waits for their goroutines to exit.
func (o *Orchestrator) Close() {
	o.shutdown()
	o.wg.Wait()
}

func (o *Orchestrator) runImage(ctx context.Context, job *Job, req Request, slots []Placeholder) {
	if !o.breakers.CanProceed(BreakerImage) {
		o.finish(job, slots, Wrap(ErrServiceUnavailable, "image", "circuit open", nil), "failed")
		return
	}

	results, err := o.remote.GenerateImages(ctx, req.Prompt, req.Count, req.AspectRatio, req.EditImage)
	if err != nil {
		if ctx.Err() != nil {
			o.finish(job, slots, Wrap(ErrCancelled, "image", "", ctx.Err()), "cancelled")
			return
		}
		o.breakers.RecordFailure(BreakerImage)
		o.finish(job, slots, err, "failed")
		return
	}
	o.breakers.RecordSuccess(BreakerImage)

	if len(results) < len(slots) {
		padded := make([]ImageSlot, len(slots))
		copy(padded, results)
		for i := len(results); i < len(slots); i++ {
			padded[i].Err = Wrap(ErrDecode, "image", fmt.Sprintf("slot %d: no image returned", i), nil)
		}
		results = padded
	}

	// Each slot resolves independently so one bad entry never blocks the
	// rest of the batch.
	outcomes := make([]slotResult, len(slots))
	sem := make(chan struct{}, workers.Count(len(slots)))
	var wg sync.WaitGroup
	for i := range slots {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			outcomes[i] = o.resolveImageSlot(ctx, slots[i], req, results[i])
		}(i)
	}
	wg.Wait()

	saved := 0
	var slotErr error
	for i, out := range outcomes {
		o.dropPlaceholder(slots[i].ID, out.disposition)
		if out.disposition == "saved" {
			saved++
		} else if out.err != nil && slotErr == nil {
			slotErr = out.err
		}
	}

	job.mu.Lock()
	job.saved = saved
	job.mu.Unlock()

	switch {
	case ctx.Err() != nil && saved < len(slots):
		o.finishBare(job, Wrap(ErrCancelled, "image", "", ctx.Err()))
	case saved == len(slots):
		o.finishBare(job, nil)
	case saved > 0:
		o.finishPartial(job, slotErr)
	default:
		if slotErr == nil {
			slotErr = Wrap(ErrDecode, "image", "no decodable results", nil)
		}
		o.finishBare(job, slotErr)
	}
}

// slotResult is the per-slot disposition recorded on the slot counter.
type slotResult struct {
	disposition string
	err         error
}

func (o *Orchestrator) resolveImageSlot(ctx context.Context, slot Placeholder, req Request, result ImageSlot) slotResult {
	if ctx.Err() != nil {
		return slotResult{disposition: "cancelled"}
	}
	if result.Err != nil {
		logging.Warn("Job %s slot %s skipped: %v", slot.JobID, slot.ID, result.Err)
		return slotResult{"decode_error", result.Err}
	}

	thumb, err := o.thumbs.Generate(result.Data)
	if err != nil {
		logging.Warn("Job %s slot %s thumbnail failed: %v", slot.JobID, slot.ID, err)
		return slotResult{"decode_error", Wrap(ErrDecode, "thumbnail", "", err)}
	}

	meta := store.Artifact{
		ID:          slot.ID,
		Prompt:      req.Prompt,
		Type:        store.TypeImage,
		AspectRatio: req.AspectRatio,
		FolderID:    req.FolderID,
		CreatedAt:   time.Now(),
	}
	if err := o.store.SaveImage(ctx, meta, result.Data, thumb); err != nil {
		if ctx.Err() != nil {
			return slotResult{disposition: "cancelled"}
		}
		logging.Error("Job %s slot %s save failed: %v", slot.JobID, slot.ID, err)
		return slotResult{"failed", Wrap(ErrStorage, "save image", "", err)}
	}
	return slotResult{disposition: "saved"}
}

func (o *Orchestrator) runVideo(ctx context.Context, job *Job, req Request, slot Placeholder) {
	slots := []Placeholder{slot}

	if !o.breakers.CanProceed(BreakerVideoSubmit) {
		o.finish(job, slots, Wrap(ErrServiceUnavailable, "video submit", "circuit open", nil), "failed")
		return
	}

	requestID, err := o.remote.SubmitVideo(ctx, req.Prompt, req.AspectRatio)
	if err != nil {
		if ctx.Err() != nil {
			o.finish(job, slots, Wrap(ErrCancelled, "video submit", "", ctx.Err()), "cancelled")
			return
		}
		o.breakers.RecordFailure(BreakerVideoSubmit)
		o.finish(job, slots, err, "failed")
		return
	}
	o.breakers.RecordSuccess(BreakerVideoSubmit)

	job.mu.Lock()
	job.requestID = requestID
	job.mu.Unlock()
	logging.Info("Job %s submitted video request %s", job.ID, requestID)

	deadline := time.Now().Add(o.pollTimeout)
	ticker := time.NewTicker(o.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			o.finish(job, slots, Wrap(ErrCancelled, "video poll", "", ctx.Err()), "cancelled")
			return
		case <-ticker.C:
		}

		if time.Now().After(deadline) {
			o.finish(job, slots, &TimeoutError{RequestID: requestID, Elapsed: o.pollTimeout}, "failed")
			return
		}
		if !o.breakers.CanProceed(BreakerVideoStatus) {
			o.finish(job, slots, Wrap(ErrServiceUnavailable, "video status", "circuit open", nil), "failed")
			return
		}

		metrics.PollIterationsTotal.Inc()
		status, err := o.remote.PollVideo(ctx, requestID)
		if err != nil {
			if ctx.Err() != nil {
				o.finish(job, slots, Wrap(ErrCancelled, "video poll", "", ctx.Err()), "cancelled")
				return
			}
			o.breakers.RecordFailure(BreakerVideoStatus)
			if errors.Is(err, ErrRemote) {
				o.finish(job, slots, err, "failed")
				return
			}
			// Transport hiccups keep polling; the breaker decides
			// when to give up.
			logging.Warn("Job %s poll failed, retrying: %v", job.ID, err)
			continue
		}
		o.breakers.RecordSuccess(BreakerVideoStatus)

		if !status.Done {
			continue
		}

		meta := store.Artifact{
			ID:          slot.ID,
			Prompt:      req.Prompt,
			Type:        store.TypeVideo,
			AspectRatio: req.AspectRatio,
			FolderID:    req.FolderID,
			ExternalURL: status.URL,
			CreatedAt:   time.Now(),
		}
		if err := o.store.SaveVideo(ctx, meta); err != nil {
			if ctx.Err() != nil {
				o.finish(job, slots, Wrap(ErrCancelled, "video save", "", ctx.Err()), "cancelled")
				return
			}
			o.finish(job, slots, Wrap(ErrStorage, "save video", "", err), "failed")
			return
		}
		job.mu.Lock()
		job.saved = 1
		job.mu.Unlock()
		o.dropPlaceholder(slot.ID, "saved")
		o.finishBare(job, nil)
		return
	}
}

// dropPlaceholder removes one placeholder from the ledger and records its
// disposition.
func (o *Orchestrator) dropPlaceholder(id, disposition string) {
	o.mu.Lock()
	delete(o.placeholders, id)
	metrics.PlaceholdersActive.Set(float64(len(o.placeholders)))
	o.mu.Unlock()
	metrics.GenerationSlotsTotal.WithLabelValues(disposition).Inc()
}

// finish drops every remaining placeholder for the job and records its
// terminal state.
func (o *Orchestrator) finish(job *Job, slots []Placeholder, err error, disposition string) {
	o.mu.Lock()
	for _, p := range slots {
		if _, ok := o.placeholders[p.ID]; ok {
			delete(o.placeholders, p.ID)
			metrics.GenerationSlotsTotal.WithLabelValues(disposition).Inc()
		}
	}
	metrics.PlaceholdersActive.Set(float64(len(o.placeholders)))
	o.mu.Unlock()
	o.finishBare(job, err)
}

func (o *Orchestrator) finishBare(job *Job, err error) {
	job.mu.Lock()
	switch {
	case err == nil:
		job.status = StatusCompleted
	case errors.Is(err, ErrCancelled):
		job.status = StatusCancelled
	default:
		job.status = StatusFailed
	}
	job.err = err
	job.finishedAt = time.Now()
	job.mu.Unlock()

	outcome := OutcomeLabel(err)
	metrics.GenerationsTotal.WithLabelValues(string(job.Type), outcome).Inc()
	close(job.done)

	if err != nil {
		logging.Warn("Generation job %s finished: %s (%v)", job.ID, outcome, err)
	} else {
		logging.Info("Generation job %s completed", job.ID)
	}
}

func (o *Orchestrator) finishPartial(job *Job, err error) {
	job.mu.Lock()
	job.status = StatusPartial
	job.err = err
	job.finishedAt = time.Now()
	job.mu.Unlock()

	metrics.GenerationsTotal.WithLabelValues(string(job.Type), "partial").Inc()
	close(job.done)
	logging.Warn("Generation job %s completed partially: %v", job.ID, err)
}
