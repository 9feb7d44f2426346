package episode

import (
	"testing"

	"loreline/internal/segment"
)

func TestStateTransitions(t *testing.T) {
	tests := []struct {
		name    string
		start   State
		records []segment.Segment
		want    State
	}{
		{"last id parsed", State{1, 1}, []segment.Segment{{ID: "E2.C1.S1"}, {ID: "E2.C2.S7"}}, State{2, 8}},
		{"trusts returned id", State{3, 40}, []segment.Segment{{ID: "E2.C1.S2"}}, State{1, 3}},
		{"unparseable last id", State{1, 5}, []segment.Segment{{ID: "E2.C1.S5"}, {ID: "oops"}, {ID: ""}}, State{1, 8}},
		{"suffix ignored", State{1, 1}, []segment.Segment{{ID: "E2.C4.S10b"}}, State{4, 11}},
		{"no records", State{2, 3}, nil, State{2, 3}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.start.Next(tc.records); got != tc.want {
				t.Fatalf("Next() = %+v, want %+v", got, tc.want)
			}
		})
	}
}

func TestStateAfterFallbackAndID(t *testing.T) {
	s := State{Chapter: 3, Segment: 9}
	if got := s.AfterFallback(); got != (State{3, 10}) {
		t.Fatalf("AfterFallback() = %+v", got)
	}
	if s != (State{3, 9}) {
		t.Fatal("state must not be mutated")
	}
	if got := s.ID(7); got != "E7.C3.S9" {
		t.Fatalf("ID() = %q", got)
	}
	if Initial() != (State{1, 1}) {
		t.Fatalf("Initial() = %+v", Initial())
	}
}
