package reconcile

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/avsessiond/internal/audiosvc"
	"github.com/jmylchreest/avsessiond/internal/model"
	"github.com/jmylchreest/avsessiond/internal/store"
)

func TestAttemptEntry(t *testing.T) {
	at := time.Now()
	ok := Attempt{Trigger: "routeChange", Reason: "newDeviceAvailable", Revision: "rev", At: at, Duration: time.Millisecond}
	e := ok.Entry()
	assert.Equal(t, "routeChange", e.Trigger)
	assert.Equal(t, "newDeviceAvailable", e.Reason)
	assert.Equal(t, "rev", e.Revision)
	assert.Equal(t, at, e.At)
	assert.True(t, e.OK)
	assert.Empty(t, e.Error)

	failed := Attempt{Trigger: TriggerSet, Err: &model.ServiceError{Step: model.StepActive, Err: errors.New("busy")}}
	e = failed.Entry()
	assert.False(t, e.OK)
	assert.Equal(t, "audio service rejected active: busy", e.Error)
}

func TestRecord(t *testing.T) {
	history := store.NewHistory(16)
	e, svc := newTestEngine(t, audiosvc.DefaultProfile(), WithObserver(Record(history, nil)))

	_, err := e.Set(requestA)
	require.NoError(t, err)

	svc.FailOn(model.StepCategory, errors.New("device busy"))
	inject(t, svc, audiosvc.EventRouteChange)

	entries := history.All()
	require.Len(t, entries, 2)
	assert.Equal(t, "routeChange", entries[0].Trigger)
	assert.False(t, entries[0].OK)
	assert.Contains(t, entries[0].Error, "device busy")
	assert.Equal(t, "set", entries[1].Trigger)
	assert.True(t, entries[1].OK)
	assert.Equal(t, 1, history.Failures())

	require.NoError(t, history.Close())
	inject(t, svc, audiosvc.EventInterruption)
	assert.Len(t, history.All(), 2, "closed history drops attempts")
}

func TestObservers(t *testing.T) {
	var order []string
	obs := Observers(
		func(a Attempt) { order = append(order, "first:"+string(a.Trigger)) },
		nil,
		func(a Attempt) { order = append(order, "second:"+string(a.Trigger)) },
	)

	obs(Attempt{Trigger: TriggerEnableAutoReapply})
	assert.Equal(t, []string{"first:enableAutoReapply", "second:enableAutoReapply"}, order)
}
