// Package bike describes the vehicle types published in a GBFS feed.
package bike

import (
	"strings"
)

// Kind is the family a vehicle type belongs to.
type Kind int

const (
	Unknown Kind = iota
	Bike
	EBike
	Scooter
)

func (k Kind) String() string {
	return [...]string{"unknown", "bike", "ebike", "scooter"}[k]
}

// Type is a GBFS vehicle_type_id as published by the operator (e.g. "bbe").
type Type string

// kinds maps the operator's vehicle_type_id values onto a Kind. Station status feeds
// use "beryl_bike" while free_bike_status uses "bb" for the same pedal bike.
var kinds = map[Type]Kind{
	"beryl_bike": Bike,
	"bb":         Bike,
	"bbe":        EBike,
	"scooter":    Scooter,
}

// Kind classifies the vehicle type. Unrecognised ids are Unknown.
func (t Type) Kind() Kind {
	return kinds[t]
}

// DisplayName is the human readable label used in digests.
func (t Type) DisplayName() string {
	switch t.Kind() {
	case Bike:
		return "Bike"
	case EBike:
		return "Electric Bike"
	case Scooter:
		return "Scooter"
	}
	return "Unknown"
}

// Icon returns an emoji for the vehicle type, or an empty string when none fits.
func (t Type) Icon() string {
	id := strings.ToLower(string(t))
	switch {
	case strings.Contains(id, "scooter"):
		return "🛴"
	case strings.Contains(id, "bb"):
		return "🚲"
	}
	return ""
}
