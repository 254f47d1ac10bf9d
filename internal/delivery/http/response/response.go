package response

import "time"

// RunResponse is returned by a manual run.
type RunResponse struct {
	Checked  int `json:"checked"`
	Notified int `json:"notified"`
}

// RunStatusResponse is a DTO for the last run, mirroring entity.RunReport.
type RunStatusResponse struct {
	Trigger    string    `json:"trigger"` // "periodic" or "manual"
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	DurationMS int64     `json:"duration_ms"`
	Checked    int       `json:"checked"`
	Notified   int       `json:"notified"`
	Failed     int       `json:"failed"`
	Error      string    `json:"error,omitempty"`
	// PeriodicActive tells whether the periodic trigger is currently running.
	PeriodicActive bool `json:"periodic_active"`
}

// HealthResponse maps each dependency to "healthy" or "unhealthy".
type HealthResponse struct {
	Status       string            `json:"status"`
	Dependencies map[string]string `json:"dependencies,omitempty"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
