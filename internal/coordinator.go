package internal

import (
	"context"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"

	"github.com/rm-hull/prix-carburant/internal/models"
)

var (
	ErrInvalidStationID     = errors.New("invalid_station_id")
	ErrStationAlreadyExists = errors.New("station_already_exists")
	ErrStationNotFound      = errors.New("station_not_found")
	ErrNoDiscoveryInput     = errors.New("neither a station list nor a reference point is configured")
)

type CoordinatorOptions struct {
	// Stations switches discovery to list mode when not empty.
	Stations       []int
	ManualStations []int
	Reference      *models.Coordinates
	MaxKm          int
}

// RefreshListener is called with a snapshot of the registry after every successful cycle.
type RefreshListener func(ctx context.Context, stations models.Stations, updated time.Time)

// Coordinator runs refresh cycles against the registry: discovery, manual additions,
// then price refresh. Cycles never overlap.
type Coordinator struct {
	registry StationRegistry
	logger   zerolog.Logger

	cycle sync.Mutex

	mu        sync.RWMutex
	opts      CoordinatorOptions
	listeners []RefreshListener
}

func NewCoordinator(registry StationRegistry, opts CoordinatorOptions, logger zerolog.Logger) *Coordinator {
	opts.Stations = slices.Clone(opts.Stations)
	opts.ManualStations = slices.Clone(opts.ManualStations)
	return &Coordinator{
		registry: registry,
		opts:     opts,
		logger:   logger.With().Str("component", "coordinator").Logger(),
	}
}

func (c *Coordinator) Registry() StationRegistry {
	return c.registry
}

func (c *Coordinator) OnRefresh(listener RefreshListener) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners = append(c.listeners, listener)
}

func (c *Coordinator) ManualStations() []int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.opts.ManualStations)
}

func (c *Coordinator) Reference() *models.Coordinates {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.opts.Reference == nil {
		return nil
	}
	ref := *c.opts.Reference
	return &ref
}

func (c *Coordinator) Refresh(ctx context.Context) error {
	c.cycle.Lock()
	defer c.cycle.Unlock()

	c.mu.RLock()
	opts := c.opts
	opts.Stations = slices.Clone(c.opts.Stations)
	opts.ManualStations = slices.Clone(c.opts.ManualStations)
	listeners := slices.Clone(c.listeners)
	c.mu.RUnlock()

	start := time.Now()
	switch {
	case len(opts.Stations) > 0:
		if err := c.registry.InitFromList(ctx, opts.Stations, opts.Reference); err != nil {
			return errors.Wrap(err, "station discovery by id failed")
		}
	case opts.Reference != nil:
		if err := c.registry.InitFromLocation(ctx, *opts.Reference, opts.MaxKm); err != nil {
			return errors.Wrap(err, "station discovery by location failed")
		}
	default:
		return ErrNoDiscoveryInput
	}

	if len(opts.ManualStations) > 0 {
		if err := c.registry.AddManualStations(ctx, opts.ManualStations, opts.Reference); err != nil {
			return errors.Wrap(err, "manual station addition failed")
		}
	}

	if err := c.registry.UpdatePrices(ctx); err != nil {
		return errors.Wrap(err, "price refresh failed")
	}

	updated := time.Now()
	if last := c.registry.LastUpdated(); last != nil {
		updated = *last
	}
	lastRefreshTimestamp.Set(float64(updated.Unix()))

	stations := c.registry.Stations()
	c.logger.Info().
		Int("stations", len(stations)).
		Dur("duration", time.Since(start)).
		Msg("refresh cycle completed")

	for _, listener := range listeners {
		listener(ctx, stations.Clone(), updated)
	}
	return nil
}

// AddManualStation validates a user supplied station id against the catalog, appends it
// to the manual list and runs a refresh cycle. Connection failures during validation
// are reported as ErrStationNotFound.
func (c *Coordinator) AddManualStation(ctx context.Context, raw string) (int, error) {
	id, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, errors.Wrapf(ErrInvalidStationID, "%q", raw)
	}

	c.mu.RLock()
	manual := slices.Contains(c.opts.ManualStations, id)
	c.mu.RUnlock()
	if _, tracked := c.registry.Station(id); manual || tracked {
		return id, errors.Wrapf(ErrStationAlreadyExists, "station %d", id)
	}

	exists, err := c.registry.StationExists(ctx, id)
	if err != nil {
		c.logger.Warn().Err(err).Int("id", id).Msg("station validation failed")
		return id, errors.WithSecondaryError(errors.Wrapf(ErrStationNotFound, "station %d", id), err)
	}
	if !exists {
		return id, errors.Wrapf(ErrStationNotFound, "station %d", id)
	}

	c.mu.Lock()
	if !slices.Contains(c.opts.ManualStations, id) {
		c.opts.ManualStations = append(c.opts.ManualStations, id)
	}
	c.mu.Unlock()

	c.logger.Info().Int("id", id).Msg("manual station added")
	return id, c.Refresh(ctx)
}

// RemoveManualStations drops ids from the manual list and runs a refresh cycle.
func (c *Coordinator) RemoveManualStations(ctx context.Context, ids []int) error {
	c.mu.Lock()
	before := len(c.opts.ManualStations)
	c.opts.ManualStations = slices.DeleteFunc(c.opts.ManualStations, func(id int) bool {
		return slices.Contains(ids, id)
	})
	removed := before - len(c.opts.ManualStations)
	c.mu.Unlock()

	if removed == 0 {
		return errors.Wrapf(ErrStationNotFound, "stations %v are not manual stations", ids)
	}

	c.logger.Info().Ints("ids", ids).Int("removed", removed).Msg("manual stations removed")
	return c.Refresh(ctx)
}
