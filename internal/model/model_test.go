package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTableNames(t *testing.T) {
	tests := []struct {
		name     string
		model    interface{ TableName() string }
		expected string
	}{
		{"EngineInfo", &EngineInfo{}, "engine_infos"},
		{"EnginePerformance", &EnginePerformance{}, "engine_performances"},
		{"Ship", &Ship{}, "ships"},
		{"Hull", &Hull{}, "hulls"},
		{"MainBattery", &MainBattery{}, "main_batteries"},
		{"Shell", &Shell{}, "shells"},
		{"SweepRun", &SweepRun{}, "sweep_runs"},
		{"Engagement", &Engagement{}, "engagements"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.model.TableName())
		})
	}
}
