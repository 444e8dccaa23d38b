package subscription

import (
	"errors"
	"testing"
	"time"
)

var now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func at(t time.Time) *time.Time { return &t }

func TestExtend(t *testing.T) {
	tests := []struct {
		name    string
		account Account
		grant   time.Duration
		wantEnd time.Time
		wantErr error
	}{
		{
			name:    "First grant starts now",
			account: Account{ID: "1", Status: StatusExpired},
			grant:   DefaultGrant,
			wantEnd: now.Add(30 * 24 * time.Hour),
		},
		{
			name:    "Running window stacks",
			account: Account{ID: "1", Status: StatusActive, SubscriptionEnd: at(now.Add(10 * 24 * time.Hour))},
			grant:   DefaultGrant,
			wantEnd: now.Add(40 * 24 * time.Hour),
		},
		{
			name:    "Lapsed window restarts",
			account: Account{ID: "1", Status: StatusExpired, SubscriptionEnd: at(now.Add(-5 * 24 * time.Hour))},
			grant:   DefaultGrant,
			wantEnd: now.Add(30 * 24 * time.Hour),
		},
		{
			name:    "Window ending exactly now restarts",
			account: Account{ID: "1", Status: StatusActive, SubscriptionEnd: at(now)},
			grant:   DefaultGrant,
			wantEnd: now.Add(30 * 24 * time.Hour),
		},
		{
			name:    "Active but lapsed restarts",
			account: Account{ID: "1", Status: StatusActive, SubscriptionEnd: at(now.Add(-time.Hour))},
			grant:   time.Hour,
			wantEnd: now.Add(time.Hour),
		},
		{
			name:    "Zero grant",
			account: Account{ID: "1"},
			grant:   0,
			wantErr: ErrNonPositiveGrant,
		},
		{
			name:    "Negative grant",
			account: Account{ID: "1"},
			grant:   -time.Hour,
			wantErr: ErrNonPositiveGrant,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Extend(tt.account, now, tt.grant)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Extend() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr != nil {
				return
			}
			if got.Status != StatusActive {
				t.Errorf("Extend() status = %v, want %v", got.Status, StatusActive)
			}
			if got.SubscriptionEnd == nil || !got.SubscriptionEnd.Equal(tt.wantEnd) {
				t.Errorf("Extend() end = %v, want %v", got.SubscriptionEnd, tt.wantEnd)
			}
			if !got.SubscriptionEnd.After(now) {
				t.Errorf("Extend() end %v is not after now", got.SubscriptionEnd)
			}
		})
	}
}

func TestExtendDoesNotMutateInput(t *testing.T) {
	end := now.Add(24 * time.Hour)
	account := Account{ID: "1", Status: StatusActive, SubscriptionEnd: &end}

	if _, err := Extend(account, now, DefaultGrant); err != nil {
		t.Fatal(err)
	}
	if !account.SubscriptionEnd.Equal(now.Add(24 * time.Hour)) {
		t.Errorf("input end changed to %v", account.SubscriptionEnd)
	}
}

func TestIsExpiredAndCanAccess(t *testing.T) {
	end := now.Add(time.Hour)
	tests := []struct {
		name        string
		account     Account
		at          time.Time
		wantExpired bool
	}{
		{"Never subscribed", Account{Status: StatusExpired}, now, true},
		{"Active without end", Account{Status: StatusActive}, now, true},
		{"Active before end", Account{Status: StatusActive, SubscriptionEnd: &end}, now, false},
		{"Active one tick before end", Account{Status: StatusActive, SubscriptionEnd: &end}, end.Add(-time.Nanosecond), false},
		{"Active at end", Account{Status: StatusActive, SubscriptionEnd: &end}, end, true},
		{"Active after end", Account{Status: StatusActive, SubscriptionEnd: &end}, end.Add(time.Second), true},
		{"Expired with future end", Account{Status: StatusExpired, SubscriptionEnd: &end}, now, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsExpired(tt.account, tt.at); got != tt.wantExpired {
				t.Errorf("IsExpired() = %v, want %v", got, tt.wantExpired)
			}
			if got := CanAccess(tt.account, tt.at); got != !tt.wantExpired {
				t.Errorf("CanAccess() = %v, want %v", got, !tt.wantExpired)
			}
		})
	}
}
