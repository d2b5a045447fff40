package model

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRole(t *testing.T) {
	tests := []struct {
		in      string
		want    Role
		wantErr bool
	}{
		{in: "Doctor", want: RoleDoctor},
		{in: "hospital", want: RoleHospital},
		{in: "  ADMIN ", want: RoleAdmin},
		{in: "Government", want: RoleGovernment},
		{in: "Nurse", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseRole(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrInvalidRole))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRoleFromMetadata(t *testing.T) {
	assert.Equal(t, RoleDoctor, RoleFromMetadata("Doctor"))
	assert.Equal(t, RoleUnknown, RoleFromMetadata("Janitor"))
	assert.Equal(t, RoleUnknown, RoleFromMetadata(nil))
	assert.Equal(t, RoleUnknown, RoleFromMetadata(42))
	assert.Equal(t, "Unknown", RoleUnknown.String())
	assert.False(t, RoleUnknown.Valid())
	assert.True(t, RoleAdmin.Valid())
}

func TestParseExecutionMode(t *testing.T) {
	mode, err := ParseExecutionMode("read_only")
	require.NoError(t, err)
	assert.Equal(t, ExecutionModeReadOnly, mode)

	_, err = ParseExecutionMode("yolo")
	assert.Error(t, err)
}

func TestDatabaseError_SingleLine(t *testing.T) {
	cause := errors.New("syntax error at or near \"SELEC\"\nLINE 1: SELEC 1\n        ^")
	dbErr := NewDatabaseError(cause)

	assert.NotContains(t, dbErr.Message, "\n")
	assert.Equal(t, `syntax error at or near "SELEC" LINE 1: SELEC 1 ^`, dbErr.Message)
	assert.ErrorIs(t, dbErr, cause)
}

func TestSession_Expired(t *testing.T) {
	now := time.Date(2026, 2, 10, 12, 0, 0, 0, time.UTC)
	s := Session{ExpiresAt: now.Add(time.Minute)}

	assert.False(t, s.Expired(now))
	assert.True(t, s.Expired(now.Add(time.Minute)))
}
