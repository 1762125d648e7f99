// Package id provides unique identifier generation for synthesis jobs.
// The job id doubles as the workspace directory name, so uniqueness is
// what keeps concurrent jobs from sharing filesystem state.
package id

import (
	"github.com/google/uuid"
)

// Generate creates a new unique job id.
// Format: output_<uuid>, matching the artifact URL shape
// /voice/output_<uuid>/final_output.wav.
func Generate() string {
	return "output_" + uuid.NewString()
}
