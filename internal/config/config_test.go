package config

import "testing"

func TestLodDistanceScaleClamp(t *testing.T) {
	defer SetLodDistanceScale(GetLodDistanceScale())

	SetLodDistanceScale(0.25)
	if got := GetLodDistanceScale(); got != 1 {
		t.Errorf("Expected scale clamped to 1, got %v", got)
	}
	SetLodDistanceScale(1000)
	if got := GetLodDistanceScale(); got != 64 {
		t.Errorf("Expected scale clamped to 64, got %v", got)
	}
	SetLodDistanceScale(8)
	if got := GetLodDistanceScale(); got != 8 {
		t.Errorf("Expected scale 8, got %v", got)
	}
}

func TestMaxSplitLevelClamp(t *testing.T) {
	defer SetMaxSplitLevel(GetMaxSplitLevel())

	tests := []struct {
		in, want int
	}{
		{-3, 0},
		{0, 0},
		{7, 7},
		{14, 14},
		{15, 14},
	}
	for _, tt := range tests {
		SetMaxSplitLevel(tt.in)
		if got := GetMaxSplitLevel(); got != tt.want {
			t.Errorf("SetMaxSplitLevel(%d): expected %d, got %d", tt.in, tt.want, got)
		}
	}
}

func TestFrameLimitClamp(t *testing.T) {
	defer SetFrameLimit(GetFrameLimit())

	SetFrameLimit(-1)
	if got := GetFrameLimit(); got != 0 {
		t.Errorf("Expected limit 0, got %d", got)
	}
	SetFrameLimit(144)
	if got := GetFrameLimit(); got != 144 {
		t.Errorf("Expected limit 144, got %d", got)
	}
}
