package control

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/khaledhikmat/vs-segmenter/model"
)

func TestScriptedDeliversInOrder(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	transitions := []model.StateTransition{
		{Actions: []model.NodeAction{{Node: "a", Action: "activate"}}},
		{Actions: []model.NodeAction{{Node: "a", Action: "reset"}}},
	}

	svc := NewScripted(ctx, time.Millisecond, transitions)
	stream, err := svc.Subscribe()
	require.NoError(t, err)

	for _, want := range transitions {
		select {
		case got := <-stream:
			assert.Equal(t, want, got)
		case <-time.After(2 * time.Second):
			t.Fatal("transition not delivered")
		}
	}

	require.NoError(t, svc.Unsubscribe())
}

func TestScriptedSubscribeTwice(t *testing.T) {
	svc := NewScripted(context.Background(), time.Hour, nil)

	_, err := svc.Subscribe()
	require.NoError(t, err)

	_, err = svc.Subscribe()
	assert.Error(t, err)

	require.NoError(t, svc.Unsubscribe())
	assert.Error(t, svc.Unsubscribe())

	_, err = svc.Subscribe()
	assert.NoError(t, err)
	require.NoError(t, svc.Unsubscribe())
}

func TestScriptedStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	svc := NewScripted(ctx, 10*time.Millisecond, []model.StateTransition{{}})
	stream, err := svc.Subscribe()
	require.NoError(t, err)
	cancel()

	select {
	case <-stream:
		// The timer may have fired before cancellation was observed.
	case <-time.After(50 * time.Millisecond):
	}
}

func TestDecode(t *testing.T) {
	st, err := Decode([]byte(`{"actions":[{"node":"image_processor_node","action":"reset"}]}`))
	require.NoError(t, err)

	action, ok := st.ActionFor("image_processor_node")
	assert.True(t, ok)
	assert.Equal(t, "reset", action)

	_, err = Decode([]byte(`{"actions":`))
	assert.Error(t, err)
}
