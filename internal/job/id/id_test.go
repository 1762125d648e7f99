package id

import (
	"strings"
	"testing"
)

func TestGenerate(t *testing.T) {
	jobID := Generate()

	// Check format
	if !strings.HasPrefix(jobID, "output_") {
		t.Errorf("expected ID to start with 'output_', got %s", jobID)
	}
	if strings.ContainsAny(jobID, `/\`) {
		t.Errorf("ID must be safe as a directory name, got %s", jobID)
	}

	// Check uniqueness
	if jobID == Generate() {
		t.Error("expected different IDs for consecutive calls")
	}
}

func TestGenerate_Uniqueness(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		jobID := Generate()
		if seen[jobID] {
			t.Errorf("duplicate ID generated: %s", jobID)
		}
		seen[jobID] = true
	}
}
