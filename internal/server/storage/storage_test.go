package storage

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/hronboard/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObjectKey(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		want     string
	}{
		{"pdf", "passport.pdf", "c1/d1.pdf"},
		{"uppercase", "Scan.JPG", "c1/d1.jpg"},
		{"no extension", "scan", "c1/d1.bin"},
		{"double extension", "statement.tar.gz", "c1/d1.gz"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ObjectKey("c1", "d1", tt.filename))
		})
	}
}

func TestContentTypeFor(t *testing.T) {
	assert.Equal(t, "application/pdf", ContentTypeFor("a.PDF"))
	assert.Equal(t, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", ContentTypeFor("b.xlsx"))
	assert.Equal(t, "application/octet-stream", ContentTypeFor("c"))
}

func TestMemoryStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()

	err := m.PutObject(ctx, "b", "k", []byte("x"), "text/plain")
	require.ErrorIs(t, err, common.ErrStorage)

	require.NoError(t, m.EnsureBucket(ctx, "b"))
	require.NoError(t, m.EnsureBucket(ctx, "b"))
	require.NoError(t, m.PutObject(ctx, "b", "k", []byte("x"), "text/plain"))

	got, err := m.GetObject(ctx, "b", "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("x"), got)

	_, err = m.GetObject(ctx, "b", "missing")
	require.ErrorIs(t, err, common.ErrNotFound)

	url, err := m.PresignGet(ctx, "b", "k", time.Minute)
	require.NoError(t, err)
	assert.Contains(t, url, "b/k")
	assert.Equal(t, []string{"k"}, m.Keys("b"))
}

func TestMemoryStore_ConcurrentEnsure(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, m.EnsureBucket(ctx, "b"))
		}()
	}
	wg.Wait()
	require.NoError(t, m.PutObject(ctx, "b", "k", nil, ""))
}
