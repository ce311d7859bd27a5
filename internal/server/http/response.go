package httpserver

import (
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/scholarly/openalex-cache/internal/domain"
)

type startFetchResponse struct {
	JobID  string `json:"job_id"`
	Status string `json:"status"`
}

type fetchStatusResponse struct {
	JobID        string         `json:"job_id"`
	Status       string         `json:"status"`
	Progress     float64        `json:"progress"`
	ProgressText string         `json:"progress_text,omitempty"`
	Error        string         `json:"error,omitempty"`
	Table        *tableResponse `json:"table,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
}

type progressResponse struct {
	Status       string  `json:"status"`
	Progress     float64 `json:"progress"`
	ProgressText string  `json:"progress_text,omitempty"`
}

type tableResponse struct {
	Columns []string `json:"columns"`
	Rows    [][]any  `json:"rows"`
	NumRows int      `json:"num_rows"`
}

type entityNameResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type entityExistsResponse struct {
	ID     string `json:"id"`
	Exists bool   `json:"exists"`
}

// tableResponseFrom converts a table into its response shape.
func tableResponseFrom(table *domain.Table) *tableResponse {
	if table == nil {
		return nil
	}
	return &tableResponse{
		Columns: table.Columns,
		Rows:    table.Rows,
		NumRows: table.NumRows(),
	}
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	// Best-effort; headers are already sent.
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]string{
		"error": message,
	})
}
