package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mitfusco98/health-prep-sub002/types"
)

func TestSonicCodecRoundTrip(t *testing.T) {
	codec := NewSonicCodec()

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	entry := &types.CacheEntry{
		Key:       "screening_types:active",
		Value:     map[string]interface{}{"id": float64(1), "name": "Mammogram"},
		TTL:       time.Minute,
		CreatedAt: now,
		ExpiresAt: now.Add(time.Minute),
		Tags:      []string{TagScreeningTypes, TagActiveScreeningTypes},
		Version:   3,
	}

	data, err := codec.Encode(entry)
	require.NoError(t, err)

	var decoded types.CacheEntry
	require.NoError(t, codec.Decode(data, &decoded))

	require.Equal(t, entry.Key, decoded.Key)
	require.Equal(t, entry.Value, decoded.Value)
	require.Equal(t, entry.Tags, decoded.Tags)
	require.Equal(t, entry.Version, decoded.Version)
	require.True(t, entry.ExpiresAt.Equal(decoded.ExpiresAt))
}

func TestSonicCodecUnserializableValue(t *testing.T) {
	codec := NewSonicCodec()

	_, err := codec.Encode(&types.CacheEntry{
		Key:   "bad",
		Value: make(chan int),
	})
	require.Error(t, err)
}

func TestSonicCodecDecodeGarbage(t *testing.T) {
	codec := NewSonicCodec()

	var decoded types.CacheEntry
	require.Error(t, codec.Decode([]byte("{not json"), &decoded))
}
