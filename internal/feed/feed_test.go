package feed

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"EGXTicker/internal/model"
)

type recordingSink struct {
	name string
	err  error
	got  []string
}

func (s *recordingSink) Name() string { return s.name }

func (s *recordingSink) Publish(ctx context.Context, res model.Result) error {
	if _, ok := ctx.Deadline(); !ok {
		return errors.New("publish without deadline")
	}
	s.got = append(s.got, res.ID)
	return s.err
}

func TestDeliver_ReplacesLatest(t *testing.T) {
	f := New(context.Background())
	_, ok := f.Latest()
	assert.False(t, ok)

	f.Deliver(model.Result{ID: "a", Outcome: model.OutcomeLive, Snapshot: model.Snapshot{{ShortName: "x"}, {ShortName: "y"}}})
	f.Deliver(model.Result{ID: "b", Outcome: model.OutcomeSynthetic, Snapshot: model.Snapshot{{ShortName: "z"}}})

	got, ok := f.Latest()
	require.True(t, ok)
	assert.Equal(t, "b", got.ID)
	assert.Len(t, got.Snapshot, 1, "snapshots replace, never merge")
}

func TestDeliver_SkippedIsDropped(t *testing.T) {
	s := &recordingSink{name: "rec"}
	f := New(context.Background(), s)
	f.Deliver(model.Result{ID: "a", Outcome: model.OutcomeLive})
	f.Deliver(model.Result{ID: "k", Outcome: model.OutcomeSkipped})

	got, _ := f.Latest()
	assert.Equal(t, "a", got.ID)
	assert.Equal(t, []string{"a"}, s.got)
}

func TestDeliver_SinkErrorsDoNotStopFanOut(t *testing.T) {
	bad := &recordingSink{name: "bad", err: errors.New("connection refused")}
	good := &recordingSink{name: "good"}
	f := New(context.Background(), bad)
	f.AddSink(good)

	f.Deliver(model.Result{ID: "a", Outcome: model.OutcomeLive})
	f.Deliver(model.Result{ID: "b", Outcome: model.OutcomeLive})
	assert.Equal(t, []string{"a", "b"}, bad.got)
	assert.Equal(t, []string{"a", "b"}, good.got)
}
