// internal/wait/policy_test.go
package wait

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPolicy(t *testing.T) {
	cases := []struct {
		name        string
		timeout     time.Duration
		poll        time.Duration
		wantTimeout time.Duration
		wantPoll    time.Duration
		wantErr     bool
	}{
		{"defaults", 15 * time.Second, time.Second, 15 * time.Second, time.Second, false},
		{"equal", time.Second, time.Second, time.Second, time.Second, false},
		{"zero poll", 5 * time.Second, 0, 5 * time.Second, 0, false},
		{"all zero", 0, 0, 0, 0, false},
		{"timeout shorter than poll", time.Second, 2 * time.Second, 0, 0, true},
		{"negative poll clamps to zero", time.Second, -time.Second, time.Second, 0, false},
		{"negative timeout clamps then fails", -time.Second, time.Millisecond, 0, 0, true},
		{"both negative", -time.Second, -time.Minute, 0, 0, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p, err := NewPolicy(tc.timeout, tc.poll)
			if tc.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrConfiguration)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.wantTimeout, p.Timeout())
			assert.Equal(t, tc.wantPoll, p.Poll())
		})
	}
}

func TestDefaultPolicy(t *testing.T) {
	p := DefaultPolicy()
	assert.Equal(t, 15*time.Second, p.Timeout())
	assert.Equal(t, time.Second, p.Poll())
	assert.Equal(t, "timeout=15s poll=1s", p.String())
}
