package httpserver

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/scholarly/openalex-cache/internal/domain"
	"github.com/scholarly/openalex-cache/internal/entities"
)

// startFetchRequest is the body of POST /api/v1/fetches.
type startFetchRequest struct {
	// Category is the target entity category name (works, authors, ...).
	Category string `json:"category" validate:"required"`
	// SeedID scopes the fetch to entities related to this entity.
	SeedID string `json:"seed_id"`
	// ExtraFilters are merged over the seed-derived filter.
	ExtraFilters map[string]any `json:"extra_filters"`
	// MaxEntities caps the fetch; omit for the service default, negative
	// for unbounded.
	MaxEntities *int `json:"max_entities"`
	// LoadOnlyColumns narrows the returned table.
	LoadOnlyColumns []string `json:"load_only_columns"`
}

// lookupIDsRequest is the body of POST /api/v1/lookup/ids.
type lookupIDsRequest struct {
	Category string   `json:"category" validate:"required"`
	IDs      []string `json:"ids" validate:"required,min=1,max=10000"`
	Ordered  bool     `json:"ordered"`
}

// lookupDOIsRequest is the body of POST /api/v1/lookup/dois.
type lookupDOIsRequest struct {
	DOIs    []string `json:"dois" validate:"required,min=1,max=10000"`
	Ordered bool     `json:"ordered"`
}

// startFetch accepts a bulk fetch request and returns a job ID to poll.
func (s *Server) startFetch(w http.ResponseWriter, r *http.Request) {
	var req startFetchRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}

	category, err := domain.ParseCategory(req.Category)
	if err != nil {
		writeError(w, http.StatusBadRequest, "unknown category: "+req.Category)
		return
	}
	if req.SeedID != "" {
		if _, err := domain.CategoryFromID(req.SeedID); err != nil {
			writeError(w, http.StatusBadRequest, "unrecognized seed id: "+req.SeedID)
			return
		}
	}

	jobID := s.jobs.Submit(entities.Request{
		Category:        category,
		SeedID:          req.SeedID,
		ExtraFilters:    entities.FetchQuery(req.ExtraFilters),
		MaxEntities:     req.MaxEntities,
		LoadOnlyColumns: req.LoadOnlyColumns,
	})

	writeJSON(w, http.StatusAccepted, startFetchResponse{
		JobID:  jobID.String(),
		Status: jobPending,
	})
}

// getFetch returns the state of a fetch job, including its table once done.
func (s *Server) getFetch(w http.ResponseWriter, r *http.Request) {
	j, ok := s.jobByParam(w, r)
	if !ok {
		return
	}

	resp := fetchStatusResponse{
		JobID:     j.ID.String(),
		Status:    j.Status,
		CreatedAt: j.CreatedAt,
	}
	switch j.Status {
	case jobRunning:
		resp.Progress = s.service.Progress()
		resp.ProgressText = s.service.ProgressText()
	case jobCompleted:
		resp.Progress = 1
		resp.Table = tableResponseFrom(j.Table)
	case jobFailed:
		resp.Error = j.Err.Error()
	}

	writeJSON(w, http.StatusOK, resp)
}

// getFetchProgress returns just the progress fields, cheap to poll.
func (s *Server) getFetchProgress(w http.ResponseWriter, r *http.Request) {
	j, ok := s.jobByParam(w, r)
	if !ok {
		return
	}

	resp := progressResponse{Status: j.Status}
	switch j.Status {
	case jobRunning:
		resp.Progress = s.service.Progress()
		resp.ProgressText = s.service.ProgressText()
	case jobCompleted:
		resp.Progress = 1
	}
	writeJSON(w, http.StatusOK, resp)
}

// lookupByIDs performs a synchronous batch lookup by OpenAlex IDs.
func (s *Server) lookupByIDs(w http.ResponseWriter, r *http.Request) {
	var req lookupIDsRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}

	category, err := domain.ParseCategory(req.Category)
	if err != nil {
		writeError(w, http.StatusBadRequest, "unknown category: "+req.Category)
		return
	}

	table, err := s.service.GetMultipleByIDAsTable(r.Context(), category, req.IDs, req.Ordered)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tableResponseFrom(table))
}

// lookupByDOIs performs a synchronous batch lookup of works by DOI.
func (s *Server) lookupByDOIs(w http.ResponseWriter, r *http.Request) {
	var req lookupDOIsRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}

	table, err := s.service.GetMultipleByDOIAsTable(r.Context(), req.DOIs, req.Ordered)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tableResponseFrom(table))
}

// getEntity returns a single entity's record, narrowed to the fields named
// in the comma-separated ?fields= query parameter when present.
func (s *Server) getEntity(w http.ResponseWriter, r *http.Request) {
	var fields []string
	if raw := r.URL.Query().Get("fields"); raw != "" {
		for _, field := range strings.Split(raw, ",") {
			if field = strings.TrimSpace(field); field != "" {
				fields = append(fields, field)
			}
		}
	}

	record, err := s.service.GetEntityInfo(r.Context(), chi.URLParam(r, "entityID"), fields)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, record)
}

// getEntityName returns a single entity's display name.
func (s *Server) getEntityName(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "entityID")
	name, err := s.service.GetEntityName(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entityNameResponse{ID: id, Name: name})
}

// getEntityExists reports whether OpenAlex knows the entity.
func (s *Server) getEntityExists(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "entityID")
	exists, err := s.service.EntityExists(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entityExistsResponse{ID: id, Exists: exists})
}

// decodeAndValidate decodes the JSON body into v and validates it, writing
// a 400 response on failure.
func (s *Server) decodeAndValidate(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return false
	}
	if err := s.validate.Struct(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request: "+err.Error())
		return false
	}
	return true
}

// jobByParam resolves the jobID URL parameter, writing error responses on
// failure.
func (s *Server) jobByParam(w http.ResponseWriter, r *http.Request) (*job, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "jobID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid job id")
		return nil, false
	}

	j := s.jobs.Get(id)
	if j == nil {
		writeError(w, http.StatusNotFound, "unknown job id")
		return nil, false
	}
	return j, true
}

// writeServiceError maps domain errors to HTTP status codes.
func (s *Server) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidIdentifier), errors.Is(err, domain.ErrConfiguration):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		s.logger.Error().Err(err).Msg("request failed")
		writeError(w, http.StatusBadGateway, err.Error())
	}
}
