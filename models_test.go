package matchcore

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProfileAge(t *testing.T) {
	now := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		birth time.Time
		want  int
	}{
		{"birthday passed this year", time.Date(1995, 3, 1, 0, 0, 0, 0, time.UTC), 30},
		{"birthday later this year", time.Date(1995, 11, 1, 0, 0, 0, 0, time.UTC), 29},
		{"birthday today", time.Date(1995, 6, 15, 0, 0, 0, 0, time.UTC), 30},
		{"unset birth date", time.Time{}, 0},
		{"future birth date", time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC), 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			p := Profile{BirthDate: tc.birth}
			assert.Equal(t, tc.want, p.Age(now))
		})
	}
}

func TestSplitSet(t *testing.T) {
	assert.Nil(t, SplitSet(""))
	assert.Nil(t, SplitSet("   "))
	assert.Equal(t, []string{"mumbai"}, SplitSet("Mumbai"))
	assert.Equal(t, []string{"mumbai", "pune"}, SplitSet(" Mumbai , PUNE "))
	assert.Equal(t, []string{"delhi"}, SplitSet(",Delhi,,"))
}

func TestParseLedgerStatus(t *testing.T) {
	for _, s := range []LedgerStatus{
		StatusCandidate, StatusSent, StatusMutual,
		StatusDeclinedByRecipient, StatusWithdrawnByViewer,
	} {
		got, err := ParseLedgerStatus(string(s))
		require.NoError(t, err)
		assert.Equal(t, s, got)
	}

	_, err := ParseLedgerStatus("FROZEN")
	require.Error(t, err)
	assert.True(t, IsInvalidRequest(err))
}

func TestParseRequestAction(t *testing.T) {
	got, err := ParseRequestAction(" accept ")
	require.NoError(t, err)
	assert.Equal(t, ActionAccept, got)

	got, err = ParseRequestAction("REJECT")
	require.NoError(t, err)
	assert.Equal(t, ActionReject, got)

	_, err = ParseRequestAction("maybe")
	require.Error(t, err)
	assert.True(t, IsInvalidRequest(err))
}

func TestLedgerRowCounterpart(t *testing.T) {
	row := LedgerRow{ViewerUserID: 7, CandidateUserID: 11}
	assert.Equal(t, 11, row.Counterpart(7))
	assert.Equal(t, 7, row.Counterpart(11))
}
