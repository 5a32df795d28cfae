package testing

import (
	"context"
	"errors"
	"testing"

	"github.com/rileyhilliard/edgewatch/pkg/sshutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockRunnerCannedResponses(t *testing.T) {
	m := NewMockRunner().
		Respond("uptime", "up 3 days").
		FailCommand("version", errors.New("timed out"))

	results, err := m.RunCommands(context.Background(), []sshutil.Command{
		{Name: "uptime", Line: "uptime"},
		{Name: "version", Line: "show system image"},
		{Name: "unregistered", Line: "true"},
	})
	require.NoError(t, err)

	assert.Equal(t, "up 3 days", results["uptime"].Output)
	assert.Error(t, results["version"].Err)
	assert.Empty(t, results["unregistered"].Output)
	assert.Equal(t, 1, m.CallCount())
}

func TestMockRunnerBatchFailure(t *testing.T) {
	batchErr := errors.New("connection refused")
	m := NewMockRunner().FailBatch(batchErr)

	results, err := m.RunCommands(context.Background(), []sshutil.Command{{Name: "uptime"}})
	assert.Nil(t, results)
	assert.Equal(t, batchErr, err)
}

func TestMockRunnerContextCancellation(t *testing.T) {
	m := NewMockRunner()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := m.RunCommands(ctx, []sshutil.Command{{Name: "uptime"}})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMockRunnerLifecycle(t *testing.T) {
	m := NewMockRunner()
	m.Drop()
	m.Drop()
	require.NoError(t, m.Close())

	assert.Equal(t, 2, m.DropCount())
	assert.True(t, m.Closed())
}
