package trace

import (
	"testing"
	"time"
)

func TestQuery_Validate(t *testing.T) {
	now := time.Now()
	earlier := now.Add(-time.Hour)

	tests := []struct {
		name    string
		query   Query
		wantErr bool
	}{
		{"empty", Query{}, false},
		{"full", Query{Since: &earlier, Until: &now, Provider: "anthropic", Outcome: OutcomeSuccess, Limit: 10}, false},
		{"negative limit", Query{Limit: -1}, true},
		{"negative offset", Query{Offset: -5}, true},
		{"unknown outcome", Query{Outcome: "pending"}, true},
		{"inverted range", Query{Since: &now, Until: &earlier}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.query.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestQuery_Matches(t *testing.T) {
	now := time.Now()
	record := &Record{
		ID:             "rec-1",
		Time:           now,
		RequestedModel: "claude-3-5-haiku",
		ResolvedModel:  "claude-sonnet-4-5",
		Provider:       "anthropic",
		Outcome:        OutcomeSuccess,
	}

	hourAgo := now.Add(-time.Hour)
	hourAhead := now.Add(time.Hour)

	tests := []struct {
		name  string
		query Query
		want  bool
	}{
		{"empty matches", Query{}, true},
		{"in range", Query{Since: &hourAgo, Until: &hourAhead}, true},
		{"before range", Query{Since: &hourAhead}, false},
		{"after range", Query{Until: &hourAgo}, false},
		{"provider match", Query{Provider: "anthropic"}, true},
		{"provider mismatch", Query{Provider: "openrouter"}, false},
		{"resolved model match", Query{Model: "claude-sonnet-4-5"}, true},
		{"requested model does not match", Query{Model: "claude-3-5-haiku"}, false},
		{"outcome match", Query{Outcome: OutcomeSuccess}, true},
		{"outcome mismatch", Query{Outcome: OutcomeFailed}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.query.Matches(record); got != tt.want {
				t.Errorf("Matches() = %v, want %v", got, tt.want)
			}
		})
	}
}
