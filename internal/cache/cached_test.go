package cache

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Yates-Labs/sleuth/internal/config"
)

type result struct {
	Text   string `json:"text"`
	Failed bool   `json:"failed"`
}

func isFailed(r result) bool { return r.Failed }

func TestCached_Do_MissThenHit(t *testing.T) {
	ctx := context.Background()
	cached := New[result](NewMemoryStore(), DefaultPolicy(), isFailed, nil)

	calls := 0
	fn := func(context.Context) (result, error) {
		calls++
		return result{Text: "the butler"}, nil
	}

	first, err := cached.Do(ctx, "k", fn)
	require.NoError(t, err)
	second, err := cached.Do(ctx, "k", fn)
	require.NoError(t, err)

	assert.Equal(t, 1, calls, "second call should be served from cache")
	assert.Equal(t, first, second)
	assert.Equal(t, "the butler", second.Text)
}

func TestCached_Do_ErrorNotCached(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	cached := New[result](store, DefaultPolicy(), isFailed, nil)

	boom := errors.New("boom")
	_, err := cached.Do(ctx, "k", func(context.Context) (result, error) {
		return result{}, boom
	})

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, store.Len())
}

func TestCached_Do_TTLByOutcome(t *testing.T) {
	ctx := context.Background()
	db, mock := redismock.NewClientMock()
	policy := Policy{DataTTL: 30 * 24 * time.Hour, NoDataTTL: time.Hour}
	cached := New[result](NewRedisStore(db), policy, isFailed, nil)

	t.Run("data", func(t *testing.T) {
		mock.ExpectGet("data").SetErr(redis.Nil)
		mock.ExpectSet("data", `{"text":"ok","failed":false}`, policy.DataTTL).SetVal("OK")

		_, err := cached.Do(ctx, "data", func(context.Context) (result, error) {
			return result{Text: "ok"}, nil
		})
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("no data", func(t *testing.T) {
		mock.ExpectGet("nodata").SetErr(redis.Nil)
		mock.ExpectSet("nodata", `{"text":"","failed":true}`, policy.NoDataTTL).SetVal("OK")

		_, err := cached.Do(ctx, "nodata", func(context.Context) (result, error) {
			return result{Failed: true}, nil
		})
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestCached_Do_StoreFailuresFallThrough(t *testing.T) {
	ctx := context.Background()
	db, mock := redismock.NewClientMock()
	cached := New[result](NewRedisStore(db), DefaultPolicy(), nil, nil)

	mock.ExpectGet("k").SetErr(errors.New("redis down"))
	mock.ExpectSet("k", `{"text":"still works","failed":false}`, DefaultPolicy().DataTTL).SetErr(errors.New("redis down"))

	got, err := cached.Do(ctx, "k", func(context.Context) (result, error) {
		return result{Text: "still works"}, nil
	})

	assert.NoError(t, err)
	assert.Equal(t, "still works", got.Text)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCached_Do_NilCallsThrough(t *testing.T) {
	var cached *Cached[result]

	calls := 0
	for i := 0; i < 2; i++ {
		_, err := cached.Do(context.Background(), "k", func(context.Context) (result, error) {
			calls++
			return result{}, nil
		})
		require.NoError(t, err)
	}

	assert.Equal(t, 2, calls)
}

func TestPolicyFromConfig(t *testing.T) {
	p := PolicyFromConfig(config.CacheConfig{NoDataTTL: 5 * time.Minute})
	assert.Equal(t, DefaultPolicy().DataTTL, p.DataTTL)
	assert.Equal(t, 5*time.Minute, p.NoDataTTL)
}

func TestGenerateKey(t *testing.T) {
	attrs := []Attr{{Name: "engine", Value: "microsoft/phi-4"}, {Name: "temperature", Value: 0.7}}

	key, err := GenerateKey("rits", "inference", attrs, "who did it?")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(key, "sleuth:rits:inference:engine=microsoft/phi-4_temperature=0.7:"), key)

	same, err := GenerateKey("rits", "inference", attrs, "who did it?")
	require.NoError(t, err)
	assert.Equal(t, key, same)

	otherPrompt, err := GenerateKey("rits", "inference", attrs, "where?")
	require.NoError(t, err)
	assert.NotEqual(t, key, otherPrompt)

	otherAttrs, err := GenerateKey("rits", "inference", []Attr{{Name: "engine", Value: "microsoft/phi-4"}, {Name: "temperature", Value: 0.2}}, "who did it?")
	require.NoError(t, err)
	assert.NotEqual(t, key, otherAttrs)

	bare, err := GenerateKey("hf", "inference", nil, "x")
	require.NoError(t, err)
	assert.Equal(t, 4, len(strings.Split(bare, ":")))
}

func TestGenerateKey_Unencodable(t *testing.T) {
	_, err := GenerateKey("rits", "inference", nil, make(chan int))
	assert.Error(t, err)
}
