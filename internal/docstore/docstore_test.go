package docstore

import (
	"testing"
	"time"
)

func TestValidate(t *testing.T) {
	now := time.Now()

	rec := &FileRecord{
		Path:     "/docs/a.md",
		ModTimes: []time.Time{now, now},
		Angles:   []float64{0, 0.4},
	}
	if err := rec.Validate(); err != nil {
		t.Errorf("valid record rejected: %v", err)
	}

	rec = &FileRecord{Path: "", ModTimes: []time.Time{now}, Angles: []float64{0}}
	if err := rec.Validate(); err == nil {
		t.Error("empty path should be rejected")
	}

	rec = &FileRecord{Path: "/docs/a.md", ModTimes: []time.Time{now, now}, Angles: []float64{0}}
	if err := rec.Validate(); err == nil {
		t.Error("mismatched mod_time_list/angle_list lengths should be rejected")
	}
}

func TestHistoryAccessors(t *testing.T) {
	empty := &FileRecord{Path: "/docs/a.md"}
	if _, ok := empty.LatestAngle(); ok {
		t.Error("empty record has no latest angle")
	}
	if _, ok := empty.PreviousAngle(); ok {
		t.Error("empty record has no previous angle")
	}
	if _, ok := empty.LatestModTime(); ok {
		t.Error("empty record has no latest mod time")
	}

	t1 := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	t2 := t1.Add(time.Hour)
	rec := &FileRecord{
		Path:     "/docs/a.md",
		ModTimes: []time.Time{t1, t2},
		Angles:   []float64{0, 0.7},
	}

	if angle, ok := rec.LatestAngle(); !ok || angle != 0.7 {
		t.Errorf("latest angle = %v, %v", angle, ok)
	}
	if prev, ok := rec.PreviousAngle(); !ok || prev != 0 {
		t.Errorf("previous angle = %v, %v", prev, ok)
	}
	if mod, ok := rec.LatestModTime(); !ok || !mod.Equal(t2) {
		t.Errorf("latest mod time = %v, %v", mod, ok)
	}
}
