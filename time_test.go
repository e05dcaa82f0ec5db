package identity_test

import (
	"testing"
	"time"

	identity "github.com/airlog/go-identity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsOutsideThresholdPeriod(t *testing.T) {
	tests := []struct {
		name    string
		t       time.Time
		period  string
		want    bool
		wantErr bool
	}{
		{"inside the window", time.Now().Add(-time.Hour), "24h", false, false},
		{"outside the window", time.Now().Add(-25 * time.Hour), "24h", true, false},
		{"just inside", time.Now().Add(-59 * time.Minute), "1h", false, false},
		{"bad duration", time.Now(), "one day", false, true},
		{"empty duration", time.Now(), "", false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := identity.IsOutsideThresholdPeriod(tt.t, tt.period)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
