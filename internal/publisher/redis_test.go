package publisher

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"EGXTicker/internal/model"
)

func TestEncodeDecode(t *testing.T) {
	at := time.Date(2026, time.October, 18, 11, 0, 0, 0, time.UTC)
	res := model.Result{
		ID:        "cycle-1",
		Outcome:   model.OutcomeLive,
		Snapshot:  model.Snapshot{{ShortName: "مينا فارم للأدوية", LastPrice: model.Number(252)}},
		FetchedAt: at,
	}

	data, err := encode(res)
	require.NoError(t, err)

	var raw map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.JSONEq(t, `"live"`, string(raw["outcome"]))
	assert.JSONEq(t, `1`, string(raw["count"]))

	got, err := decode(data)
	require.NoError(t, err)
	assert.Equal(t, res.ID, got.ID)
	assert.Equal(t, res.Outcome, got.Outcome)
	assert.True(t, at.Equal(got.FetchedAt))
	assert.Equal(t, res.Snapshot, got.Snapshot)
}

func TestNewRedisPublisher_Defaults(t *testing.T) {
	p := NewRedisPublisher(redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"}), "", "", 0)
	defer p.Close()
	assert.Equal(t, DefaultKey, p.Key)
	assert.Equal(t, DefaultChannel, p.Channel)
	assert.Equal(t, DefaultTTL, p.TTL)
	assert.Equal(t, "redis", p.Name())
}

func TestPublish_UnreachableServerReturnsError(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		MaxRetries:  -1,
		DialTimeout: 200 * time.Millisecond,
	})
	p := NewRedisPublisher(client, "k", "c", time.Minute)
	defer p.Close()

	err := p.Publish(context.Background(), model.Result{ID: "a", Outcome: model.OutcomeLive})
	assert.Error(t, err)
}
