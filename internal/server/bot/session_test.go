package bot

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRedis struct {
	data   map[string]string
	ttl    map[string]time.Duration
	getErr error
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{data: map[string]string{}, ttl: map[string]time.Duration{}}
}

func (f *fakeRedis) Get(_ context.Context, key string) *redis.StringCmd {
	if f.getErr != nil {
		return redis.NewStringResult("", f.getErr)
	}
	v, ok := f.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (f *fakeRedis) Set(_ context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd {
	switch v := value.(type) {
	case []byte:
		f.data[key] = string(v)
	case string:
		f.data[key] = v
	}
	f.ttl[key] = expiration
	return redis.NewStatusResult("OK", nil)
}

func TestStateSnapshots(t *testing.T) {
	states := []State{
		Unauthenticated{},
		AwaitingCode{},
		AwaitingPrivacyAccept{CandidateID: "c"},
		Authenticated{CandidateID: "c"},
		AwaitingDocumentAction{CandidateID: "c", Offset: 10},
		AwaitingFileUpload{CandidateID: "c", DocumentID: "d", TemplateCode: "passport", TemplateName: "Паспорт"},
		AwaitingLocation{CandidateID: "c"},
		AwaitingSupportMessage{CandidateID: "c"},
	}
	for _, s := range states {
		t.Run(s.Name(), func(t *testing.T) {
			data, err := encodeState(s)
			require.NoError(t, err)
			got, err := decodeState(data)
			require.NoError(t, err)
			assert.Equal(t, s, got)
		})
	}

	_, err := decodeState([]byte(`{"state":"nope"}`))
	assert.Error(t, err)
}

func TestCandidateOf(t *testing.T) {
	_, ok := candidateOf(AwaitingPrivacyAccept{CandidateID: "c"})
	assert.False(t, ok)
	_, ok = candidateOf(Unauthenticated{})
	assert.False(t, ok)
	id, ok := candidateOf(AwaitingLocation{CandidateID: "c"})
	assert.True(t, ok)
	assert.Equal(t, "c", id)
}

func TestRedisSessionStore(t *testing.T) {
	ctx := context.Background()
	fake := newFakeRedis()
	store := &RedisSessionStore{client: fake, prefix: "hr:session:", ttl: time.Hour}

	_, ok, err := store.Load(ctx, 7)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Save(ctx, 7, AwaitingDocumentAction{CandidateID: "c", Offset: 5}))
	assert.Equal(t, time.Hour, fake.ttl["hr:session:7"])

	s, ok, err := store.Load(ctx, 7)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, AwaitingDocumentAction{CandidateID: "c", Offset: 5}, s)
}

func TestRedisSessionStore_UndecodableSnapshotIsMiss(t *testing.T) {
	fake := newFakeRedis()
	fake.data["hr:session:7"] = "garbage"
	store := &RedisSessionStore{client: fake, prefix: "hr:session:", ttl: time.Hour}

	_, ok, err := store.Load(context.Background(), 7)

	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisSessionStore_Error(t *testing.T) {
	fake := newFakeRedis()
	fake.getErr = errors.New("connection refused")
	store := &RedisSessionStore{client: fake, prefix: "hr:session:", ttl: time.Hour}

	_, _, err := store.Load(context.Background(), 7)

	assert.Error(t, err)
}

func TestMemorySessionStore(t *testing.T) {
	ctx := context.Background()
	store := NewMemorySessionStore()

	_, ok, err := store.Load(ctx, 1)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Save(ctx, 1, Authenticated{CandidateID: "c"}))
	s, ok, _ := store.Load(ctx, 1)
	assert.True(t, ok)
	assert.Equal(t, Authenticated{CandidateID: "c"}, s)
}
