package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rotisserie/eris"
)

func TestTrackerSingleRun(t *testing.T) {
	tr := NewTracker()
	assert.Equal(t, StateIdle, tr.Status().State)

	id, err := tr.Begin()
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	assert.Equal(t, StateRunning, tr.Status().State)

	_, err = tr.Begin()
	assert.ErrorIs(t, err, ErrRunInProgress)

	tr.End(nil)
	assert.Equal(t, StateCompleted, tr.Status().State)

	// The slot is free again.
	id2, err := tr.Begin()
	require.NoError(t, err)
	assert.NotEqual(t, id, id2)
	tr.End(nil)
}

func TestTrackerRecordsFailure(t *testing.T) {
	tr := NewTracker()
	_, err := tr.Begin()
	require.NoError(t, err)

	tr.End(eris.New("scrape blew up"))
	st := tr.Status()
	assert.Equal(t, StateFailed, st.State)
	assert.Contains(t, st.LastError, "scrape blew up")
	require.NotNil(t, st.FinishedAt)
}

func TestTrackerProgress(t *testing.T) {
	tr := NewTracker()
	_, err := tr.Begin()
	require.NoError(t, err)

	tr.SetNiche("plumber")
	tr.AddLeads(3)
	tr.AddLeads(2)

	st := tr.Status()
	assert.Equal(t, "plumber", st.CurrentNiche)
	assert.Equal(t, 5, st.LeadsFound)

	tr.End(nil)
	assert.Empty(t, tr.Status().CurrentNiche)
}

func TestTrackerBeginResetsCounters(t *testing.T) {
	tr := NewTracker()
	_, err := tr.Begin()
	require.NoError(t, err)
	tr.AddLeads(7)
	tr.End(nil)

	_, err = tr.Begin()
	require.NoError(t, err)
	assert.Zero(t, tr.Status().LeadsFound)
	tr.End(nil)
}
