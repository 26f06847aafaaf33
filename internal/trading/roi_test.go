package trading

import (
	"testing"
	"time"
)

func TestROITableMinReturn(t *testing.T) {
	table := ROITable{
		{After: 72 * time.Hour, MinReturn: 0.0},
		{After: 0, MinReturn: 0.10},
		{After: 24 * time.Hour, MinReturn: 0.05},
	}.Normalize()

	tests := []struct {
		held  time.Duration
		want  float64
		found bool
	}{
		{0, 0.10, true},
		{12 * time.Hour, 0.10, true},
		{24 * time.Hour, 0.05, true},
		{48 * time.Hour, 0.05, true},
		{72 * time.Hour, 0.0, true},
		{200 * time.Hour, 0.0, true},
	}
	for _, tt := range tests {
		got, found := table.MinReturn(tt.held)
		if got != tt.want || found != tt.found {
			t.Errorf("MinReturn(%v) = (%v, %v), want (%v, %v)", tt.held, got, found, tt.want, tt.found)
		}
	}
}

func TestROITableEmptyDisablesRule(t *testing.T) {
	var table ROITable
	if _, found := table.MinReturn(100 * time.Hour); found {
		t.Error("empty table reported an applicable step")
	}
}

func TestROITableNoStepAppliesYet(t *testing.T) {
	table := ROITable{{After: 24 * time.Hour, MinReturn: 0.05}}.Normalize()
	if _, found := table.MinReturn(time.Hour); found {
		t.Error("step applied before its hold duration")
	}
}

func TestROITableNormalizeDoesNotMutate(t *testing.T) {
	original := ROITable{
		{After: 48 * time.Hour, MinReturn: 0.02},
		{After: 0, MinReturn: 0.10},
	}
	_ = original.Normalize()
	if original[0].After != 48*time.Hour {
		t.Error("Normalize mutated its receiver")
	}
}
