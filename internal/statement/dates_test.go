package statement

import (
	"testing"

	"cloud.google.com/go/civil"
)

func TestResolveDate(t *testing.T) {
	january := civil.Date{Year: 2025, Month: 1, Day: 31}

	tests := []struct {
		name  string
		token string
		want  civil.Date
	}{
		{"same month", "09/ENE", civil.Date{Year: 2025, Month: 1, Day: 9}},
		{"previous year rollback", "28/DIC", civil.Date{Year: 2024, Month: 12, Day: 28}},
		{"lowercase month", "09/ene", civil.Date{Year: 2025, Month: 1, Day: 9}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolveDate(tt.token, january)
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestResolveDate_Invalid(t *testing.T) {
	statementMonth := civil.Date{Year: 2025, Month: 1, Day: 31}

	for _, token := range []string{"09/XXX", "32/ENE", "09-ENE", "ENE/09", ""} {
		if _, err := ResolveDate(token, statementMonth); err == nil {
			t.Errorf("Expected error for token %q", token)
		}
	}
}

func TestWithinStatementWindow(t *testing.T) {
	statementMonth := civil.Date{Year: 2025, Month: 1, Day: 31}

	tests := []struct {
		name string
		date civil.Date
		want bool
	}{
		{"inside statement month", civil.Date{Year: 2025, Month: 1, Day: 15}, true},
		{"previous month", civil.Date{Year: 2024, Month: 12, Day: 28}, true},
		{"half a year earlier", civil.Date{Year: 2024, Month: 7, Day: 1}, false},
		{"far future", civil.Date{Year: 2025, Month: 6, Day: 1}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := WithinStatementWindow(tt.date, statementMonth); got != tt.want {
				t.Errorf("Expected %v for %v, got %v", tt.want, tt.date, got)
			}
		})
	}
}
