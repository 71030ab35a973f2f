package fins_test

import (
	"testing"
	"time"

	"github.com/havrevik/finsgo/fins"
	"github.com/havrevik/finsgo/mapping"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSequenceManagerAddCompletesInOrder(t *testing.T) {
	m := fins.NewSequenceManager()
	seq, err := m.Add(mapping.CommandCodeMemoryAreaRead)
	require.NoError(t, err)
	assert.Equal(t, 1, m.ActiveCount())

	m.ConfirmSent(seq.SID(), time.Second)
	ok := m.Complete(seq.SID(), fins.Response{})
	assert.True(t, ok)
	assert.Equal(t, 0, m.ActiveCount())

	result := <-seq.Wait()
	assert.NoError(t, result.Err)
}

func TestSequenceManagerTimeout(t *testing.T) {
	m := fins.NewSequenceManager()
	seq, err := m.Add(mapping.CommandCodeMemoryAreaRead)
	require.NoError(t, err)

	m.ConfirmSent(seq.SID(), 10*time.Millisecond)
	result := <-seq.Wait()
	require.Error(t, result.Err)

	var timeoutErr fins.TimeoutError
	assert.ErrorAs(t, result.Err, &timeoutErr)
	assert.Equal(t, 0, m.ActiveCount())
}

func TestSequenceManagerQueueFull(t *testing.T) {
	m := fins.NewSequenceManager()
	for i := 0; i < 254; i++ {
		_, err := m.Add(mapping.CommandCodeMemoryAreaRead)
		require.NoError(t, err)
	}
	_, err := m.Add(mapping.CommandCodeMemoryAreaRead)
	assert.Error(t, err)
	var full fins.QueueFullError
	assert.ErrorAs(t, err, &full)
}

func TestSequenceManagerSnapshotAfterSamples(t *testing.T) {
	m := fins.NewSequenceManager()
	for i := 0; i < 5; i++ {
		seq, err := m.Add(mapping.CommandCodeMemoryAreaRead)
		require.NoError(t, err)
		m.ConfirmSent(seq.SID(), time.Second)
		m.Complete(seq.SID(), fins.Response{})
		<-seq.Wait()
	}
	stats := m.Snapshot()
	assert.Equal(t, 5, stats.SampleCount)
	assert.Equal(t, 0, stats.ActiveCount)
}
