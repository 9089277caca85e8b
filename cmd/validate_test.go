package cmd

import (
	"errors"
	"testing"
)

func TestPrintOutcomeRefused(t *testing.T) {
	if err := printOutcome("report", true); !errors.Is(err, errValidationFailed) {
		t.Errorf("printOutcome(refused) = %v, want errValidationFailed", err)
	}
}

func TestPrintOutcomeClean(t *testing.T) {
	if err := printOutcome("report", false); err != nil {
		t.Errorf("printOutcome(clean) = %v, want nil", err)
	}
}
