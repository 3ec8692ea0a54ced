package cache

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"telegram-chat-analyzer/internal/domain"
)

func sampleResult() *domain.AnalysisResult {
	return &domain.AnalysisResult{
		Aggregates: &domain.AggregateReport{ChatID: "chat1"},
	}
}

func TestCacheStore_PutAndGet(t *testing.T) {
	cs := NewCacheStore()
	cs.Put("hash1", sampleResult(), time.Minute)

	item, ok := cs.Get("hash1")
	require.True(t, ok)
	require.NotNil(t, item.Data)
	assert.Equal(t, "chat1", item.Data.Aggregates.ChatID)
}

func TestCacheStore_GetMissing(t *testing.T) {
	cs := NewCacheStore()

	item, ok := cs.Get("unknown")
	assert.False(t, ok)
	assert.Nil(t, item)
}

func TestCacheStore_GetExpired(t *testing.T) {
	cs := NewCacheStore()
	cs.Put("hash1", sampleResult(), -time.Second)

	_, ok := cs.Get("hash1")
	assert.False(t, ok, "просроченный элемент не должен возвращаться")
}

func TestCacheStore_CleanupExpired(t *testing.T) {
	cs := NewCacheStore()
	cs.Put("expired", sampleResult(), -time.Second)
	cs.Put("alive", sampleResult(), time.Minute)

	cs.CleanupExpired()

	assert.Len(t, cs.cache, 1)
	_, ok := cs.Get("alive")
	assert.True(t, ok)
}

func TestCalculateFileHash(t *testing.T) {
	t.Run("одинаковое содержимое дает одинаковый хеш", func(t *testing.T) {
		dir := t.TempDir()
		a := filepath.Join(dir, "a.json")
		b := filepath.Join(dir, "b.json")
		require.NoError(t, os.WriteFile(a, []byte(`{"messages":[]}`), 0644))
		require.NoError(t, os.WriteFile(b, []byte(`{"messages":[]}`), 0644))

		hashA, err := CalculateFileHash(a)
		require.NoError(t, err)
		hashB, err := CalculateFileHash(b)
		require.NoError(t, err)

		assert.Equal(t, hashA, hashB)
		assert.Len(t, hashA, 64)
	})

	t.Run("разное содержимое дает разные хеши", func(t *testing.T) {
		dir := t.TempDir()
		a := filepath.Join(dir, "a.json")
		b := filepath.Join(dir, "b.json")
		require.NoError(t, os.WriteFile(a, []byte("one"), 0644))
		require.NoError(t, os.WriteFile(b, []byte("two"), 0644))

		hashA, err := CalculateFileHash(a)
		require.NoError(t, err)
		hashB, err := CalculateFileHash(b)
		require.NoError(t, err)

		assert.NotEqual(t, hashA, hashB)
	})

	t.Run("несуществующий файл — ошибка", func(t *testing.T) {
		_, err := CalculateFileHash(filepath.Join(t.TempDir(), "nope.json"))
		assert.Error(t, err)
	})
}
