package tools

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BaSui01/toolflow/internal/cache"
	"github.com/BaSui01/toolflow/types"
)

func TestWeather_ReportSatisfiesContract(t *testing.T) {
	w, err := NewWeather(WeatherOptions{Seed: 42})
	require.NoError(t, err)

	out, err := w.Invoke(context.Background(), map[string]any{"city": "London"})
	require.NoError(t, err)

	m := out.(map[string]any)
	assert.Equal(t, "London", m["city"])
	assert.Equal(t, "celsius", m["units"])
	assert.Equal(t, true, m["simulated"])
	assert.Contains(t, weatherConditions, m["condition"])

	temp := m["temperature"].(float64)
	assert.GreaterOrEqual(t, temp, -5.0)
	assert.LessOrEqual(t, temp, 35.0)
}

func TestWeather_SeedIsReproducible(t *testing.T) {
	a, err := NewWeather(WeatherOptions{Seed: 7})
	require.NoError(t, err)
	b, err := NewWeather(WeatherOptions{Seed: 7})
	require.NoError(t, err)

	in := map[string]any{"city": "Paris", "units": "fahrenheit"}
	outA, err := a.Invoke(context.Background(), in)
	require.NoError(t, err)
	outB, err := b.Invoke(context.Background(), in)
	require.NoError(t, err)

	assert.Equal(t, outA, outB)
	assert.Equal(t, "fahrenheit", outA.(map[string]any)["units"])
}

func TestWeather_InputContract(t *testing.T) {
	w, err := NewWeather(WeatherOptions{Seed: 1})
	require.NoError(t, err)

	_, err = w.Invoke(context.Background(), map[string]any{"units": "kelvin"})
	require.Error(t, err)
	assert.Equal(t, types.ErrContractViolation, types.GetErrorCode(err))
	assert.Contains(t, err.Error(), "city: required field is missing")
	assert.Contains(t, err.Error(), "units: value must be one of")
}

func TestWeather_BlankCityFailsExecution(t *testing.T) {
	w, err := NewWeather(WeatherOptions{Seed: 1})
	require.NoError(t, err)

	_, err = w.Invoke(context.Background(), map[string]any{"city": "   "})
	assert.Equal(t, types.ErrToolExecution, types.GetErrorCode(err))
}

func TestWeather_LatencyHonorsCancellation(t *testing.T) {
	w, err := NewWeather(WeatherOptions{Seed: 1, Latency: time.Hour})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = w.Invoke(ctx, map[string]any{"city": "Rome"})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, types.ErrToolExecution, types.GetErrorCode(err))
}

func TestWeather_CacheServesRepeatLookups(t *testing.T) {
	mr := miniredis.RunT(t)
	c, err := cache.NewManager(cache.Config{Addr: mr.Addr(), KeyPrefix: "tf:"}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	first, err := NewWeather(WeatherOptions{Seed: 1, Cache: c, CacheTTL: time.Minute})
	require.NoError(t, err)
	second, err := NewWeather(WeatherOptions{Seed: 999, Cache: c, CacheTTL: time.Minute})
	require.NoError(t, err)

	ctx := context.Background()
	outA, err := first.Invoke(ctx, map[string]any{"city": "Berlin"})
	require.NoError(t, err)
	outB, err := second.Invoke(ctx, map[string]any{"city": "berlin"})
	require.NoError(t, err)

	assert.Equal(t, outA.(map[string]any)["temperature"], outB.(map[string]any)["temperature"])
	assert.True(t, mr.Exists("tf:weather:berlin:celsius"))
	assert.Equal(t, uint64(1), c.Stats().Hits)
}

func TestWeather_ConcurrentInvocations(t *testing.T) {
	w, err := NewWeather(WeatherOptions{Seed: 3, Latency: 5 * time.Millisecond})
	require.NoError(t, err)

	cities := []string{"London", "Paris", "Tokyo", "London", "Paris", "Tokyo"}
	var wg sync.WaitGroup
	for _, city := range cities {
		wg.Add(1)
		go func(city string) {
			defer wg.Done()
			out, err := w.Invoke(context.Background(), map[string]any{"city": city})
			assert.NoError(t, err)
			assert.Equal(t, city, out.(map[string]any)["city"])
		}(city)
	}
	wg.Wait()
}

func TestWeather_CancelledCallerDoesNotFailSharedLookup(t *testing.T) {
	w, err := NewWeather(WeatherOptions{Seed: 5, Latency: 150 * time.Millisecond})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup
	var firstErr, secondErr error
	var second any

	wg.Add(2)
	go func() {
		defer wg.Done()
		_, firstErr = w.Invoke(ctx, map[string]any{"city": "Oslo"})
	}()
	time.Sleep(20 * time.Millisecond)
	go func() {
		defer wg.Done()
		second, secondErr = w.Invoke(context.Background(), map[string]any{"city": "Oslo"})
	}()
	time.Sleep(20 * time.Millisecond)
	cancel()
	wg.Wait()

	assert.ErrorIs(t, firstErr, context.Canceled)
	require.NoError(t, secondErr)
	assert.Equal(t, "Oslo", second.(map[string]any)["city"])
}
