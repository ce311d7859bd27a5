package httpserver

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/scholarly/openalex-cache/internal/domain"
	"github.com/scholarly/openalex-cache/internal/entities"
)

// Job states.
const (
	jobPending   = "pending"
	jobRunning   = "running"
	jobCompleted = "completed"
	jobFailed    = "failed"
)

// job tracks one asynchronous bulk fetch.
type job struct {
	ID        uuid.UUID
	Status    string
	Request   entities.Request
	Table     *domain.Table
	Err       error
	CreatedAt time.Time
	DoneAt    time.Time
}

// jobManager runs bulk fetches in the background. Fetches execute one at a
// time: the upstream API is paged politely in a single stream, and the
// service's progress state tracks a single fetch anyway.
type jobManager struct {
	service EntityService
	logger  zerolog.Logger

	mu   sync.RWMutex
	jobs map[uuid.UUID]*job

	// slot serializes fetch execution.
	slot chan struct{}
}

func newJobManager(service EntityService, logger zerolog.Logger) *jobManager {
	return &jobManager{
		service: service,
		logger:  logger.With().Str("component", "job-manager").Logger(),
		jobs:    make(map[uuid.UUID]*job),
		slot:    make(chan struct{}, 1),
	}
}

// Submit registers a fetch job and starts it in the background.
func (m *jobManager) Submit(req entities.Request) uuid.UUID {
	j := &job{
		ID:        uuid.New(),
		Status:    jobPending,
		Request:   req,
		CreatedAt: time.Now(),
	}

	m.mu.Lock()
	m.jobs[j.ID] = j
	m.mu.Unlock()

	go m.run(j)
	return j.ID
}

// run executes the fetch once the serialization slot frees up.
func (m *jobManager) run(j *job) {
	m.slot <- struct{}{}
	defer func() { <-m.slot }()

	m.setStatus(j.ID, jobRunning)
	m.logger.Info().
		Str("job_id", j.ID.String()).
		Str("category", j.Request.Category.String()).
		Str("seed_id", j.Request.SeedID).
		Msg("fetch job started")

	table, err := m.service.FetchEntities(context.Background(), j.Request)

	m.mu.Lock()
	j.DoneAt = time.Now()
	if err != nil {
		j.Status = jobFailed
		j.Err = err
	} else {
		j.Status = jobCompleted
		j.Table = table
	}
	m.mu.Unlock()

	if err != nil {
		m.logger.Error().Err(err).Str("job_id", j.ID.String()).Msg("fetch job failed")
		return
	}
	m.logger.Info().
		Str("job_id", j.ID.String()).
		Int("rows", table.NumRows()).
		Msg("fetch job completed")
}

// Get returns a snapshot of the job, or nil when unknown.
func (m *jobManager) Get(id uuid.UUID) *job {
	m.mu.RLock()
	defer m.mu.RUnlock()

	j, ok := m.jobs[id]
	if !ok {
		return nil
	}
	snapshot := *j
	return &snapshot
}

func (m *jobManager) setStatus(id uuid.UUID, status string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if j, ok := m.jobs[id]; ok {
		j.Status = status
	}
}
