package geo

import (
	"context"

	"go.uber.org/zap"

	"marketBack/internal/metrics"
)

// RouteProvider is the external routing and geocoding backend.
type RouteProvider interface {
	TravelTime(ctx context.Context, from, to Location) (Route, error)
	ReverseGeocode(ctx context.Context, at Location) (string, error)
}

// Cache keeps lookup results between requests. Failures are ignored.
type Cache interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
}

// Estimator answers travel-time and place-name questions, falling back to
// local heuristics whenever the routing backend cannot.
type Estimator struct {
	routes RouteProvider
	cache  Cache
	log    *zap.SugaredLogger
}

// NewEstimator wires an estimator. routes and cache may be nil.
func NewEstimator(routes RouteProvider, cache Cache, log *zap.SugaredLogger) *Estimator {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Estimator{routes: routes, cache: cache, log: log}
}

// TravelTime returns a human-readable travel time between two points, or
// "Unknown" when either point is unknown. It never fails.
func (e *Estimator) TravelTime(ctx context.Context, from, to Location) string {
	km, ok := DistanceKm(from, to)
	if !ok {
		return UnknownText
	}

	key := etaKey(from, to)
	if v, hit := e.cached(ctx, key); hit {
		return v
	}

	if e.routes != nil {
		route, err := e.routes.TravelTime(ctx, from, to)
		if err == nil && route.DurationText != "" {
			e.store(ctx, key, route.DurationText)
			return route.DurationText
		}
		if err != nil {
			e.log.Debugw("routing lookup failed, using estimate", "err", err)
		}
	}

	metrics.GeoFallback("travel_time")
	return EstimateTravelTime(km)
}

// LocationName reverse-geocodes a point, falling back to its coordinates.
func (e *Estimator) LocationName(ctx context.Context, at Location) string {
	if !at.Known {
		return UnknownText
	}

	key := nameKey(at)
	if v, hit := e.cached(ctx, key); hit {
		return v
	}

	if e.routes != nil {
		name, err := e.routes.ReverseGeocode(ctx, at)
		if err == nil && name != "" {
			e.store(ctx, key, name)
			return name
		}
		if err != nil {
			e.log.Debugw("reverse geocode failed", "err", err)
		}
	}

	metrics.GeoFallback("location_name")
	return fallbackName(at)
}

func (e *Estimator) cached(ctx context.Context, key string) (string, bool) {
	if e.cache == nil {
		return "", false
	}
	v, ok, err := e.cache.Get(ctx, key)
	if err != nil {
		e.log.Debugw("geo cache read failed", "key", key, "err", err)
		return "", false
	}
	return v, ok
}

func (e *Estimator) store(ctx context.Context, key, value string) {
	if e.cache == nil {
		return
	}
	if err := e.cache.Set(ctx, key, value); err != nil {
		e.log.Debugw("geo cache write failed", "key", key, "err", err)
	}
}
