package domain

import "testing"

func TestTableNames(t *testing.T) {
	cases := map[string]string{
		Session{}.TableName():           "sessions",
		SubmissionRequest{}.TableName(): "submission_requests",
		Martyr{}.TableName():            "martyrs",
		AbuseCounter{}.TableName():      "abuse_counters",
	}
	for got, want := range cases {
		if got != want {
			t.Errorf("TableName = %q; want %q", got, want)
		}
	}
}

func TestSessionIsEditing(t *testing.T) {
	tests := []struct {
		flow FlowType
		want bool
	}{
		{FlowAdd, false},
		{FlowEdit, true},
		{FlowPendingEdit, true},
	}
	for _, tt := range tests {
		s := &Session{Flow: tt.flow}
		if got := s.IsEditing(); got != tt.want {
			t.Errorf("IsEditing() with flow %q = %v; want %v", tt.flow, got, tt.want)
		}
	}
}

func TestStatusAndTypeValues(t *testing.T) {
	// The wire/database encodings are load-bearing: sessions and requests
	// persisted by earlier deployments must keep decoding.
	if StatusPending != "pending" || StatusApproved != "approved" || StatusRejected != "rejected" {
		t.Fatalf("unexpected status encodings: %v %v %v", StatusPending, StatusApproved, StatusRejected)
	}
	if RequestAdd != "add" || RequestEdit != "edit" || RequestDelete != "delete" {
		t.Fatalf("unexpected request type encodings: %v %v %v", RequestAdd, RequestEdit, RequestDelete)
	}
	if FlowAdd != "add" || FlowEdit != "edit" || FlowPendingEdit != "pending_edit" {
		t.Fatalf("unexpected flow encodings: %v %v %v", FlowAdd, FlowEdit, FlowPendingEdit)
	}
}
