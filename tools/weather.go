package tools

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/BaSui01/toolflow/contract"
	"github.com/BaSui01/toolflow/tool"
)

// WeatherToolID is the id of the simulated weather tool.
const WeatherToolID = "weather"

// Cache is the subset of the JSON cache used by the weather tool.
// internal/cache.Manager satisfies it.
type Cache interface {
	GetJSON(ctx context.Context, key string, dest any) error
	SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error
}

// WeatherOptions configures the simulated weather tool.
type WeatherOptions struct {
	// Seed makes the simulation reproducible. Zero means time-seeded.
	Seed uint64
	// Latency simulates upstream delay; the wait honors ctx cancellation.
	Latency time.Duration
	// Cache, when set, memoizes reports per city and units for CacheTTL.
	Cache    Cache
	CacheTTL time.Duration
	Logger   *zap.Logger
}

// WeatherReport is the weather tool output.
type WeatherReport struct {
	City        string  `json:"city"`
	Temperature float64 `json:"temperature"`
	Units       string  `json:"units"`
	Condition   string  `json:"condition"`
	Humidity    float64 `json:"humidity"`
	WindSpeed   float64 `json:"windSpeed"`
	Simulated   bool    `json:"simulated"`
}

func (r WeatherReport) asMap() map[string]any {
	return map[string]any{
		"city":        r.City,
		"temperature": r.Temperature,
		"units":       r.Units,
		"condition":   r.Condition,
		"humidity":    r.Humidity,
		"windSpeed":   r.WindSpeed,
		"simulated":   r.Simulated,
	}
}

var weatherConditions = []any{"sunny", "partly cloudy", "cloudy", "rainy", "windy", "snowy"}

// WeatherInput is the input contract of the weather tool.
func WeatherInput() *contract.Descriptor {
	return contract.Object().
		Prop("city", contract.String().WithDescription("City name")).
		Prop("units", contract.Enum("celsius", "fahrenheit").WithDefault("celsius")).
		Require("city")
}

// WeatherOutput is the output contract of the weather tool.
func WeatherOutput() *contract.Descriptor {
	return contract.Object().
		Prop("city", contract.String()).
		Prop("temperature", contract.Number()).
		Prop("units", contract.Enum("celsius", "fahrenheit")).
		Prop("condition", contract.String().WithEnum(weatherConditions...)).
		Prop("humidity", contract.Number()).
		Prop("windSpeed", contract.Number()).
		Prop("simulated", contract.Boolean()).
		Require("city", "temperature", "units", "condition")
}

// NewWeather builds the simulated weather tool.
//
// The tool keeps private state across calls: a pseudo-random source behind
// a mutex, a singleflight group collapsing concurrent lookups for the same
// city, and the optional cache client. None of it is reachable from outside
// the tool.
func NewWeather(opts WeatherOptions) (*tool.Tool, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("component", "weather_tool"))

	seed := opts.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	sim := &weatherSim{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}

	var group singleflight.Group
	ttl := opts.CacheTTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}

	execute := func(ctx context.Context, in map[string]any) (any, error) {
		city := strings.TrimSpace(in["city"].(string))
		if city == "" {
			return nil, fmt.Errorf("city must not be blank")
		}
		units := in["units"].(string)
		key := "weather:" + strings.ToLower(city) + ":" + units

		if err := ctx.Err(); err != nil {
			return nil, err
		}
		// 合并后的查询不受任何单个调用方取消的影响，各调用方只按自己的 ctx 退出
		work := context.WithoutCancel(ctx)
		ch := group.DoChan(key, func() (any, error) {
			ctx := work
			if opts.Cache != nil {
				var cached WeatherReport
				if err := opts.Cache.GetJSON(ctx, key, &cached); err == nil {
					logger.Debug("weather cache hit", zap.String("city", city))
					return cached, nil
				}
			}

			if err := sleepCtx(ctx, opts.Latency); err != nil {
				return nil, err
			}
			report := sim.report(city, units)

			if opts.Cache != nil {
				if err := opts.Cache.SetJSON(ctx, key, report, ttl); err != nil {
					logger.Warn("weather cache write failed", zap.String("city", city), zap.Error(err))
				}
			}
			return report, nil
		})

		var res singleflight.Result
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case res = <-ch:
		}
		if res.Err != nil {
			return nil, res.Err
		}
		v := res.Val
		if res.Shared {
			logger.Debug("weather lookup shared", zap.String("city", city))
		}
		return v.(WeatherReport).asMap(), nil
	}

	return tool.New(tool.Definition{
		ID:          WeatherToolID,
		Description: "Get current weather information for a city (simulated)",
		Input:       WeatherInput(),
		Output:      WeatherOutput(),
		Execute:     execute,
	})
}

type weatherSim struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func (s *weatherSim) report(city, units string) WeatherReport {
	s.mu.Lock()
	celsius := -5 + s.rng.Float64()*40
	condition := weatherConditions[s.rng.IntN(len(weatherConditions))].(string)
	humidity := 20 + s.rng.Float64()*75
	wind := s.rng.Float64() * 40
	s.mu.Unlock()

	temp := celsius
	if units == "fahrenheit" {
		temp = celsius*9/5 + 32
	}

	return WeatherReport{
		City:        city,
		Temperature: round1(temp),
		Units:       units,
		Condition:   condition,
		Humidity:    math.Round(humidity),
		WindSpeed:   round1(wind),
		Simulated:   true,
	}
}

func renderWeather(data any, _ map[string]any) string {
	m, ok := data.(map[string]any)
	if !ok {
		return ""
	}
	symbol := "°C"
	if m["units"] == "fahrenheit" {
		symbol = "°F"
	}
	return fmt.Sprintf("The weather in %v is %v with a temperature of %v%s.", m["city"], m["condition"], m["temperature"], symbol)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
