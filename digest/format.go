// Package digest renders the nearby snapshot as an HTML email and delivers it.
package digest

import (
	_ "embed"
	"fmt"
	"html/template"
	"sort"
	"strings"
	"time"

	"github.com/semanticallynull/gbfs-nearby/snapshot"
)

const metersToMiles = 0.000621371

//go:embed template.html
var templateHTML string

var emailTemplate = template.Must(template.New("digest").Parse(templateHTML))

// FormatterConfig controls the branding and clock of the digest.
type FormatterConfig struct {
	// Brand is the operator name shown in the heading (e.g. "Beryl")
	Brand string
	// Location is the timezone used for the greeting and date
	Location *time.Location
	// LiveFeedURL is linked from the footer when set
	LiveFeedURL string
}

type Formatter struct {
	cfg FormatterConfig
}

func NewFormatter(cfg FormatterConfig) *Formatter {
	if cfg.Brand == "" {
		cfg.Brand = "Beryl"
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	return &Formatter{cfg: cfg}
}

type view struct {
	Brand       string
	Greeting    string
	Date        string
	Primary     *stationView
	Vehicles    []vehicleView
	LiveFeedURL string
}

type stationView struct {
	Name     string
	Bikes    int
	Scooters int
	Miles    string
}

type vehicleView struct {
	Icon   string
	Label  string
	MapURL string
}

// Format renders s as the body of a digest email sent at now.
func (f *Formatter) Format(s snapshot.Snapshot, now time.Time) (string, error) {
	local := now.In(f.cfg.Location)

	v := view{
		Brand:       f.cfg.Brand,
		Greeting:    Greeting(local),
		Date:        local.Format("Monday 2 January 2006"),
		LiveFeedURL: f.cfg.LiveFeedURL,
	}

	if primary, ok := PrimaryStation(s.Stations); ok {
		v.Primary = &stationView{
			Name:     primary.Name,
			Bikes:    primary.NumberOfBikes,
			Scooters: primary.NumberOfScooters,
			Miles:    Miles(primary.Distance),
		}
	}

	for _, vh := range s.Vehicles {
		v.Vehicles = append(v.Vehicles, vehicleView{
			Icon:   vh.VehicleTypeID.Icon(),
			Label:  fmt.Sprintf("%s - %s miles away", vh.VehicleTypeID.DisplayName(), Miles(vh.Distance)),
			MapURL: fmt.Sprintf("https://maps.google.com/?q=%v,%v", vh.Lat, vh.Lon),
		})
	}

	var b strings.Builder
	if err := emailTemplate.Execute(&b, v); err != nil {
		return "", fmt.Errorf("failed to render digest: %w", err)
	}
	return b.String(), nil
}

// Greeting names the part of the day of t: morning before noon, afternoon before
// five, evening after.
func Greeting(t time.Time) string {
	switch h := t.Hour(); {
	case h < 12:
		return "morning"
	case h < 17:
		return "afternoon"
	}
	return "evening"
}

// PrimaryStation picks the nearest station, preferring the nearest one with scooters
// when the nearest has none.
func PrimaryStation(stations []snapshot.Station) (snapshot.Station, bool) {
	if len(stations) == 0 {
		return snapshot.Station{}, false
	}

	sorted := append([]snapshot.Station(nil), stations...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Distance < sorted[j].Distance
	})

	if sorted[0].NumberOfScooters > 0 {
		return sorted[0], true
	}
	for _, s := range sorted {
		if s.NumberOfScooters > 0 {
			return s, true
		}
	}
	return sorted[0], true
}

// Miles converts meters to miles with two decimals.
func Miles(meters float64) string {
	return fmt.Sprintf("%.2f", meters*metersToMiles)
}
