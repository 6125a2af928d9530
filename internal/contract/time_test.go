package contract

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRelativeTime(t *testing.T) {
	fixedNow := time.Date(2026, time.March, 15, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name        string
		input       string
		expected    time.Time
		expectError bool
	}{
		{"days", "3 days ago", fixedNow.Add(-3 * 24 * time.Hour), false},
		{"singular week", "1 week ago", fixedNow.Add(-7 * 24 * time.Hour), false},
		{"months", "2 months ago", fixedNow.AddDate(0, -2, 0), false},
		{"years", "1 year ago", fixedNow.AddDate(-1, 0, 0), false},
		{"minutes", "30 minutes ago", fixedNow.Add(-30 * time.Minute), false},
		{"mixed case", "5 HOURS AGO", fixedNow.Add(-5 * time.Hour), false},
		{"missing ago", "3 days", time.Time{}, true},
		{"bad unit", "3 decades ago", time.Time{}, true},
		{"empty", "", time.Time{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseRelativeTime(tt.input, fixedNow)
			if tt.expectError {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestParseTimeBound(t *testing.T) {
	now := time.Date(2026, time.March, 15, 12, 0, 0, 0, time.UTC)

	got, err := ParseTimeBound("", now)
	require.NoError(t, err)
	assert.True(t, got.IsZero())

	got, err = ParseTimeBound("2026-01-02T03:04:05Z", now)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC), got)

	got, err = ParseTimeBound("1 day ago", now)
	require.NoError(t, err)
	assert.Equal(t, now.Add(-24*time.Hour), got)

	_, err = ParseTimeBound("yesterday", now)
	assert.Error(t, err)
}

func TestParseLookbackDuration(t *testing.T) {
	const day = 24 * time.Hour

	tests := []struct {
		name      string
		input     string
		want      time.Duration
		expectErr bool
	}{
		{"go duration", "720h", 720 * time.Hour, false},
		{"seconds", "30s", 30 * time.Second, false},
		{"1 minute", "1 minute", time.Minute, false},
		{"3 hours", "3 hours", 3 * time.Hour, false},
		{"7 days", "7 days", 7 * day, false},
		{"4 weeks", "4 weeks", 4 * 7 * day, false},
		{"1 month approx", "1 month", 30 * day, false},
		{"2 years approx", "2 years", 2 * 365 * day, false},
		{"mixed case", "3 MoNtHs", 3 * 30 * day, false},
		{"extra space", " 1  day ", day, false},
		{"missing unit", "3", 0, true},
		{"invalid unit", "3 decades", 0, true},
		{"zero quantity", "0 days", 0, true},
		{"zero go duration", "0s", 0, true},
		{"non-integer quantity", "1.5 days", 0, true},
		{"empty string", "", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseLookbackDuration(tt.input)
			if tt.expectErr {
				assert.Error(t, err, "Expected an error for input: %q", tt.input)
			} else if assert.NoError(t, err, "Did not expect an error for input: %q", tt.input) {
				assert.Equal(t, tt.want, got, "Duration mismatch for input: %q", tt.input)
			}
		})
	}
}
