// Package gbfs reads the General Bikeshare Feed Specification datasets of an operator.
package gbfs

import (
	"bytes"
	"fmt"

	"github.com/goccy/go-json"

	"github.com/semanticallynull/gbfs-nearby/bike"
)

// Feed names a GBFS dataset. The value is the file name without the .json suffix.
type Feed string

const (
	FeedStationInformation Feed = "station_information"
	FeedStationStatus      Feed = "station_status"
	FeedFreeBikeStatus     Feed = "free_bike_status"
)

// envelope is the common wrapper around every GBFS dataset.
type envelope[T any] struct {
	LastUpdated int64  `json:"last_updated"`
	TTL         int    `json:"ttl"`
	Version     string `json:"version"`
	Data        T      `json:"data"`
}

// Flag is a GBFS boolean. Version 1 feeds publish 0/1 integers, later versions booleans.
type Flag bool

func (f *Flag) UnmarshalJSON(b []byte) error {
	switch string(bytes.TrimSpace(b)) {
	case "true", "1", `"true"`, `"1"`:
		*f = true
	case "false", "0", "null", `"false"`, `"0"`:
		*f = false
	default:
		return fmt.Errorf("gbfs: invalid boolean %s", b)
	}
	return nil
}

func (f Flag) MarshalJSON() ([]byte, error) {
	return json.Marshal(bool(f))
}

// RentalURIs are the deep links an app uses to start a rental.
type RentalURIs struct {
	Android string `json:"android"`
	IOS     string `json:"ios"`
}

// StationInformation is the static metadata of a docking station.
type StationInformation struct {
	StationID  string     `json:"station_id"`
	Name       string     `json:"name"`
	Lat        float64    `json:"lat"`
	Lon        float64    `json:"lon"`
	Capacity   int        `json:"capacity"`
	RentalURIs RentalURIs `json:"rental_uris"`
}

// VehicleTypeAvailable counts the vehicles of one type docked at a station.
type VehicleTypeAvailable struct {
	VehicleTypeID bike.Type `json:"vehicle_type_id"`
	Count         int       `json:"count"`
}

// StationStatus is the live state of a docking station. It joins StationInformation
// on StationID.
type StationStatus struct {
	StationID             string                 `json:"station_id"`
	NumBikesAvailable     int                    `json:"num_bikes_available"`
	NumDocksAvailable     int                    `json:"num_docks_available"`
	IsInstalled           Flag                   `json:"is_installed"`
	IsRenting             Flag                   `json:"is_renting"`
	IsReturning           Flag                   `json:"is_returning"`
	LastReported          int64                  `json:"last_reported"`
	VehicleTypesAvailable []VehicleTypeAvailable `json:"vehicle_types_available,omitempty"`
}

// FreeBike is a dockless vehicle from free_bike_status.
type FreeBike struct {
	BikeID             string    `json:"bike_id"`
	IsReserved         Flag      `json:"is_reserved"`
	IsDisabled         Flag      `json:"is_disabled"`
	VehicleTypeID      bike.Type `json:"vehicle_type_id"`
	Lat                float64   `json:"lat"`
	Lon                float64   `json:"lon"`
	CurrentRangeMeters float64   `json:"current_range_meters"`
}
