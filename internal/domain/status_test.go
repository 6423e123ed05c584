package domain

import "testing"

func TestExecutionStatus_IsTerminal(t *testing.T) {
	tests := []struct {
		status   ExecutionStatus
		terminal bool
	}{
		{ExecutionStatusPending, false},
		{ExecutionStatusRunning, false},
		{ExecutionStatusSucceeded, true},
		{ExecutionStatusFailed, true},
	}

	for _, tt := range tests {
		if got := tt.status.IsTerminal(); got != tt.terminal {
			t.Errorf("%s: expected terminal=%v, got %v", tt.status, tt.terminal, got)
		}
	}
}

func TestExecutionStatus_CanTransitionTo(t *testing.T) {
	allowed := map[ExecutionStatus][]ExecutionStatus{
		ExecutionStatusPending: {ExecutionStatusRunning},
		ExecutionStatusRunning: {ExecutionStatusSucceeded, ExecutionStatusFailed},
	}
	all := []ExecutionStatus{
		ExecutionStatusPending,
		ExecutionStatusRunning,
		ExecutionStatusSucceeded,
		ExecutionStatusFailed,
	}

	for _, from := range all {
		for _, to := range all {
			want := false
			for _, a := range allowed[from] {
				if a == to {
					want = true
				}
			}
			if got := from.CanTransitionTo(to); got != want {
				t.Errorf("%s → %s: expected %v, got %v", from, to, want, got)
			}
		}
	}
}

func TestTerminalStatus(t *testing.T) {
	if TerminalStatus(true) != ExecutionStatusSucceeded {
		t.Error("success should map to SUCCEEDED")
	}
	if TerminalStatus(false) != ExecutionStatusFailed {
		t.Error("failure should map to FAILED")
	}
}

func TestParseExecutionStatus(t *testing.T) {
	if s, ok := ParseExecutionStatus("RUNNING"); !ok || s != ExecutionStatusRunning {
		t.Errorf("expected RUNNING, got %q (ok=%v)", s, ok)
	}
	if s, ok := ParseExecutionStatus("failed"); !ok || s != ExecutionStatusFailed {
		t.Errorf("expected FAILED, got %q (ok=%v)", s, ok)
	}
	if _, ok := ParseExecutionStatus("CANCELLED"); ok {
		t.Error("CANCELLED should not be a valid execution status")
	}
}

func TestNewExecution(t *testing.T) {
	e := NewExecution("https://example.com", 5)

	if e.Status != ExecutionStatusPending {
		t.Errorf("expected PENDING, got %s", e.Status)
	}
	if e.MaxRetries != 5 {
		t.Errorf("expected max retries 5, got %d", e.MaxRetries)
	}
	if e.Attempts() != 0 {
		t.Errorf("new execution should have no attempts, got %d", e.Attempts())
	}
	if e.IsFinished() {
		t.Error("new execution should not be finished")
	}
}
