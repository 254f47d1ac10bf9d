package entity

import "time"

// Run triggers.
const (
	TriggerPeriodic = "periodic"
	TriggerManual   = "manual"
)

// RunResult is what a single scheduler pass returns to its caller.
type RunResult struct {
	Checked  int `json:"checked"`
	Notified int `json:"notified"`
}

// RunReport is the stored summary of the most recent pass.
type RunReport struct {
	Trigger    string    `json:"trigger"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Checked    int       `json:"checked"`
	Notified   int       `json:"notified"`
	Failed     int       `json:"failed"`
	Error      string    `json:"error,omitempty"`
}
