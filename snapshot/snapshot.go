// Package snapshot builds the ranked list of stations and free-floating vehicles around
// a point.
package snapshot

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/semanticallynull/gbfs-nearby/bike"
	"github.com/semanticallynull/gbfs-nearby/gbfs"
	"github.com/semanticallynull/gbfs-nearby/geo"
	"github.com/semanticallynull/gbfs-nearby/internal/metrics"
)

const (
	DefaultStationRadius = 800.0
	// DefaultVehicleRadius is three quarters of a mile.
	DefaultVehicleRadius = 1207.1
	DefaultLimit         = 5
)

// Config holds the ranking thresholds. Zero values fall back to the defaults.
type Config struct {
	StationRadius float64
	VehicleRadius float64
	Limit         int
}

func (c Config) withDefaults() Config {
	if c.StationRadius <= 0 {
		c.StationRadius = DefaultStationRadius
	}
	if c.VehicleRadius <= 0 {
		c.VehicleRadius = DefaultVehicleRadius
	}
	if c.Limit <= 0 {
		c.Limit = DefaultLimit
	}
	return c
}

// Station is a docking station joined with its status.
type Station struct {
	ID                        string  `json:"-"`
	Name                      string  `json:"name"`
	Lat                       float64 `json:"lat"`
	Lon                       float64 `json:"lon"`
	Distance                  float64 `json:"distance"`
	NumberOfAvailableVehicles int     `json:"numberOfAvailableVehicles"`
	NumberOfBikes             int     `json:"numberOfBikes"`
	NumberOfEBikes            int     `json:"numberOfEBikes"`
	NumberOfScooters          int     `json:"numberOfScooters"`
}

// Vehicle is a free-floating vehicle annotated with its distance from the query point.
type Vehicle struct {
	BikeID             string    `json:"bike_id"`
	IsReserved         bool      `json:"is_reserved"`
	IsDisabled         bool      `json:"is_disabled"`
	VehicleTypeID      bike.Type `json:"vehicle_type_id"`
	Lat                float64   `json:"lat"`
	Lon                float64   `json:"lon"`
	CurrentRangeMeters float64   `json:"current_range_meters"`
	Distance           float64   `json:"distance"`
}

// Snapshot is what is near a point at the moment it was built. Both lists are sorted
// by ascending distance.
type Snapshot struct {
	Stations []Station `json:"nearby_stations"`
	Vehicles []Vehicle `json:"nearby_free_vehicles"`
}

type Builder struct {
	feeds   gbfs.Client
	cfg     Config
	metrics *metrics.Collector
	tracer  trace.Tracer
}

func NewBuilder(feeds gbfs.Client, cfg Config, m *metrics.Collector) *Builder {
	return &Builder{
		feeds:   feeds,
		cfg:     cfg.withDefaults(),
		metrics: m,
		tracer:  otel.Tracer("snapshot"),
	}
}

// Config returns the thresholds in use.
func (b *Builder) Config() Config {
	return b.cfg
}

// Build fetches the three feeds of location in parallel and ranks what lies around
// lat/lon. A failure of any feed aborts the build.
func (b *Builder) Build(ctx context.Context, lat, lon float64, location string) (Snapshot, error) {
	ctx, span := b.tracer.Start(ctx, "snapshot.Build", trace.WithAttributes(
		attribute.String("gbfs.location", location),
		attribute.Float64("geo.lat", lat),
		attribute.Float64("geo.lon", lon),
	))
	defer span.End()
	start := time.Now()

	var (
		information []gbfs.StationInformation
		statuses    []gbfs.StationStatus
		bikes       []gbfs.FreeBike
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		information, err = b.feeds.StationInformation(gctx, location)
		return err
	})
	g.Go(func() error {
		var err error
		statuses, err = b.feeds.StationStatus(gctx, location)
		return err
	})
	g.Go(func() error {
		var err error
		bikes, err = b.feeds.FreeBikeStatus(gctx, location)
		return err
	})
	if err := g.Wait(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Snapshot{}, fmt.Errorf("failed to fetch feeds for %s: %w", location, err)
	}

	s := Snapshot{
		Stations: b.nearbyStations(lat, lon, information, statuses),
		Vehicles: b.nearbyVehicles(lat, lon, bikes),
	}

	b.metrics.ObserveSnapshot(time.Since(start))
	span.SetAttributes(
		attribute.Int("snapshot.stations", len(s.Stations)),
		attribute.Int("snapshot.vehicles", len(s.Vehicles)),
	)
	return s, nil
}

func (b *Builder) nearbyStations(lat, lon float64, information []gbfs.StationInformation, statuses []gbfs.StationStatus) []Station {
	byID := make(map[string]gbfs.StationStatus, len(statuses))
	for _, s := range statuses {
		if _, ok := byID[s.StationID]; !ok {
			byID[s.StationID] = s
		}
	}

	stations := make([]Station, 0)
	for _, info := range information {
		distance := geo.Distance(lat, lon, info.Lat, info.Lon)
		if distance > b.cfg.StationRadius {
			continue
		}

		status, ok := byID[info.StationID]
		if !ok {
			continue
		}

		stations = append(stations, join(info, status, distance))
	}

	sort.SliceStable(stations, func(i, j int) bool {
		return stations[i].Distance < stations[j].Distance
	})
	if len(stations) > b.cfg.Limit {
		stations = stations[:b.cfg.Limit]
	}
	return stations
}

func (b *Builder) nearbyVehicles(lat, lon float64, bikes []gbfs.FreeBike) []Vehicle {
	vehicles := make([]Vehicle, 0)
	for _, fb := range bikes {
		distance := geo.Distance(lat, lon, fb.Lat, fb.Lon)
		if distance > b.cfg.VehicleRadius {
			continue
		}

		vehicles = append(vehicles, Vehicle{
			BikeID:             fb.BikeID,
			IsReserved:         bool(fb.IsReserved),
			IsDisabled:         bool(fb.IsDisabled),
			VehicleTypeID:      fb.VehicleTypeID,
			Lat:                fb.Lat,
			Lon:                fb.Lon,
			CurrentRangeMeters: fb.CurrentRangeMeters,
			Distance:           distance,
		})
	}

	sort.SliceStable(vehicles, func(i, j int) bool {
		return vehicles[i].Distance < vehicles[j].Distance
	})
	if len(vehicles) > b.cfg.Limit {
		vehicles = vehicles[:b.cfg.Limit]
	}
	return vehicles
}

func join(info gbfs.StationInformation, status gbfs.StationStatus, distance float64) Station {
	s := Station{
		ID:       info.StationID,
		Name:     info.Name,
		Lat:      info.Lat,
		Lon:      info.Lon,
		Distance: distance,
	}

	for _, vt := range status.VehicleTypesAvailable {
		s.NumberOfAvailableVehicles += vt.Count
		switch vt.VehicleTypeID.Kind() {
		case bike.Bike:
			s.NumberOfBikes += vt.Count
		case bike.EBike:
			s.NumberOfEBikes += vt.Count
		case bike.Scooter:
			s.NumberOfScooters += vt.Count
		}
	}
	return s
}
