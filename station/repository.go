// Package station looks up live docking station status.
package station

import (
	"context"
	"errors"

	"github.com/semanticallynull/gbfs-nearby/gbfs"
)

var ErrNotFound = errors.New("station not found")

type Repository struct {
	feeds gbfs.Client
}

func NewRepository(feeds gbfs.Client) *Repository {
	return &Repository{
		feeds: feeds,
	}
}

// GetStations returns the status of every station in a location.
func (r *Repository) GetStations(ctx context.Context, location string) ([]gbfs.StationStatus, error) {
	return r.feeds.StationStatus(ctx, location)
}

// GetStation returns the status of a single station, or ErrNotFound.
func (r *Repository) GetStation(ctx context.Context, location, id string) (gbfs.StationStatus, error) {
	stations, err := r.GetStations(ctx, location)
	if err != nil {
		return gbfs.StationStatus{}, err
	}

	for _, s := range stations {
		if s.StationID == id {
			return s, nil
		}
	}
	return gbfs.StationStatus{}, ErrNotFound
}
