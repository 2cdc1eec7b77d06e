package models

import "testing"

func TestRunStatusInFlight(t *testing.T) {
	tests := []struct {
		status   RunStatus
		inFlight bool
	}{
		{RunSubmitted, true},
		{RunRunning, true},
		{RunCompleted, false},
		{RunFailed, false},
		{RunCanceled, false},
		{RunStatus("SOMETHING_NEW"), false},
	}

	for _, tt := range tests {
		if got := tt.status.IsInFlight(); got != tt.inFlight {
			t.Fatalf("%s: expected IsInFlight %v, got %v", tt.status, tt.inFlight, got)
		}
		if got := tt.status.IsTerminal(); got == tt.inFlight {
			t.Fatalf("%s: expected IsTerminal %v, got %v", tt.status, !tt.inFlight, got)
		}
	}
}

func TestValidateUID(t *testing.T) {
	run := &Run{UID: "0c605f6a-07c6-4e27-9e3d-0d3ee2d5d9a0"}
	if err := run.ValidateUID(); err != nil {
		t.Fatalf("expected valid uid, got %v", err)
	}

	run = &Run{UID: "not-a-uuid"}
	if err := run.ValidateUID(); err == nil {
		t.Fatal("expected error for malformed uid")
	}
}

func TestFormatElapsed(t *testing.T) {
	tests := []struct {
		seconds float64
		want    string
	}{
		{0, "00:00"},
		{59.4, "00:59"},
		{60, "01:00"},
		{119.6, "02:00"},
		{3599, "59:59"},
	}

	for _, tt := range tests {
		run := &Run{ElapsedSeconds: tt.seconds}
		if got := run.FormatElapsed(); got != tt.want {
			t.Fatalf("%.1fs: expected %q, got %q", tt.seconds, tt.want, got)
		}
	}
}

func TestPrettyBytes(t *testing.T) {
	tests := []struct {
		size int64
		want string
	}{
		{0, "0 B"},
		{999, "999 B"},
		{1000, "1.0 kB"},
		{1536000, "1.5 MB"},
		{2000000000, "2.0 GB"},
	}

	for _, tt := range tests {
		if got := PrettyBytes(tt.size); got != tt.want {
			t.Fatalf("%d: expected %q, got %q", tt.size, tt.want, got)
		}
	}
}

func TestLatestRun(t *testing.T) {
	if LatestRun(nil) != nil {
		t.Fatal("expected nil for empty history")
	}

	runs := []*Run{
		{UID: "newest", Status: RunRunning},
		{UID: "older", Status: RunCompleted},
	}
	latest := LatestRun(runs)
	if latest == nil || latest.UID != "newest" {
		t.Fatalf("expected newest run, got %+v", latest)
	}
}
