package models

import "testing"

func TestRouteStatusCanTransition(t *testing.T) {
	tests := []struct {
		name string
		from RouteStatus
		to   RouteStatus
		want bool
	}{
		{"pending to in-progress", RouteStatusPending, RouteStatusInProgress, true},
		{"pending to completed", RouteStatusPending, RouteStatusCompleted, true},
		{"in-progress to completed", RouteStatusInProgress, RouteStatusCompleted, true},
		{"same state is allowed", RouteStatusInProgress, RouteStatusInProgress, true},
		{"completed stays completed", RouteStatusCompleted, RouteStatusCompleted, true},
		{"in-progress back to pending", RouteStatusInProgress, RouteStatusPending, false},
		{"completed back to in-progress", RouteStatusCompleted, RouteStatusInProgress, false},
		{"completed back to pending", RouteStatusCompleted, RouteStatusPending, false},
		{"unknown target", RouteStatusPending, RouteStatus("cancelled"), false},
		{"unknown source", RouteStatus("bogus"), RouteStatusPending, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.from.CanTransition(tt.to); got != tt.want {
				t.Errorf("CanTransition(%q -> %q) = %v, want %v", tt.from, tt.to, got, tt.want)
			}
		})
	}
}

func TestRouteStatusValid(t *testing.T) {
	for _, s := range []RouteStatus{RouteStatusPending, RouteStatusInProgress, RouteStatusCompleted} {
		if !s.Valid() {
			t.Errorf("expected %q to be valid", s)
		}
	}
	if RouteStatus("cancelled").Valid() {
		t.Error("expected 'cancelled' to be invalid")
	}
}
