package logging

import "testing"

func TestNewProgressSampler(t *testing.T) {
	tests := []struct {
		name       string
		bucketSize float64
		wantSize   float64
	}{
		{"default bucket size for zero", 0, 10},
		{"default bucket size for negative", -1, 10},
		{"custom bucket size", 5, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewProgressSampler(tt.bucketSize)
			if s.step != tt.wantSize {
				t.Errorf("step = %v, want %v", s.step, tt.wantSize)
			}
			if s.seen != -1 {
				t.Errorf("seen = %d, want -1", s.seen)
			}
		})
	}
}

func TestProgressSampler_NilSampler(t *testing.T) {
	var s *ProgressSampler
	if !s.ShouldLog(50, "a.mkv") {
		t.Error("ShouldLog on nil sampler should always return true")
	}
	s.Reset()
}

func TestProgressSampler_JobChange(t *testing.T) {
	s := NewProgressSampler(10)
	if !s.ShouldLog(0, "a.mkv") {
		t.Error("first job should log")
	}
	if s.ShouldLog(3, "a.mkv") {
		t.Error("same job within bucket should not log")
	}
	if !s.ShouldLog(3, "b.mkv") {
		t.Error("new job should log")
	}
	if s.job != "b.mkv" {
		t.Errorf("job = %q, want b.mkv", s.job)
	}
}

func TestProgressSampler_Buckets(t *testing.T) {
	s := NewProgressSampler(10)
	var logged []float64
	for _, pct := range []float64{0, 4, 9.9, 10, 15, 22, 22, 99, 100, 100} {
		if s.ShouldLog(pct, "a.mkv") {
			logged = append(logged, pct)
		}
	}
	want := []float64{0, 10, 22, 99, 100}
	if len(logged) != len(want) {
		t.Fatalf("logged = %v, want %v", logged, want)
	}
	for i := range want {
		if logged[i] != want[i] {
			t.Fatalf("logged = %v, want %v", logged, want)
		}
	}
}

func TestProgressSampler_UnknownPercent(t *testing.T) {
	s := NewProgressSampler(10)
	if !s.ShouldLog(-1, "a.mkv") {
		t.Error("job change should log even with unknown percent")
	}
	if s.ShouldLog(-1, "a.mkv") {
		t.Error("unknown percent on same job should not log")
	}
	s.Reset()
	if !s.ShouldLog(-1, "a.mkv") {
		t.Error("reset should allow the job to log again")
	}
}
