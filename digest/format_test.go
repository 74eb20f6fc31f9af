package digest

import (
	"strings"
	"testing"
	"time"

	"github.com/semanticallynull/gbfs-nearby/snapshot"
)

func london(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("Europe/London")
	if err != nil {
		t.Fatalf("failed to load timezone: %v", err)
	}
	return loc
}

func TestGreeting(t *testing.T) {
	tests := []struct {
		hour     int
		expected string
	}{
		{0, "morning"},
		{7, "morning"},
		{11, "morning"},
		{12, "afternoon"},
		{16, "afternoon"},
		{17, "evening"},
		{23, "evening"},
	}

	for _, tc := range tests {
		got := Greeting(time.Date(2026, 10, 19, tc.hour, 30, 0, 0, time.UTC))
		if got != tc.expected {
			t.Errorf("Greeting(%02d:30) = %q, expected %q", tc.hour, got, tc.expected)
		}
	}
}

func TestPrimaryStation(t *testing.T) {
	tests := []struct {
		name     string
		stations []snapshot.Station
		expected string
		ok       bool
	}{
		{
			name:     "empty",
			stations: nil,
			ok:       false,
		},
		{
			name: "nearest has scooters",
			stations: []snapshot.Station{
				{Name: "A", Distance: 10, NumberOfScooters: 1},
				{Name: "B", Distance: 20, NumberOfScooters: 5},
			},
			expected: "A",
			ok:       true,
		},
		{
			name: "falls back to nearest with scooters",
			stations: []snapshot.Station{
				{Name: "A", Distance: 10},
				{Name: "C", Distance: 300, NumberOfScooters: 2},
				{Name: "B", Distance: 20, NumberOfScooters: 1},
			},
			expected: "B",
			ok:       true,
		},
		{
			name: "no scooters anywhere keeps nearest",
			stations: []snapshot.Station{
				{Name: "B", Distance: 20},
				{Name: "A", Distance: 10},
			},
			expected: "A",
			ok:       true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := PrimaryStation(tc.stations)
			if ok != tc.ok {
				t.Fatalf("expected ok=%v, got %v", tc.ok, ok)
			}
			if ok && got.Name != tc.expected {
				t.Errorf("expected %s, got %s", tc.expected, got.Name)
			}
		})
	}
}

func TestMiles(t *testing.T) {
	tests := []struct {
		meters   float64
		expected string
	}{
		{0, "0.00"},
		{1609.34, "1.00"},
		{800, "0.50"},
		{123.45, "0.08"},
	}

	for _, tc := range tests {
		if got := Miles(tc.meters); got != tc.expected {
			t.Errorf("Miles(%v) = %s, expected %s", tc.meters, got, tc.expected)
		}
	}
}

func TestFormat(t *testing.T) {
	f := NewFormatter(FormatterConfig{
		Brand:       "Beryl",
		Location:    london(t),
		LiveFeedURL: "https://tracker.example.com/",
	})
	// 06:15 UTC is 07:15 in London during BST.
	now := time.Date(2026, 6, 1, 6, 15, 0, 0, time.UTC)

	html, err := f.Format(snapshot.Snapshot{
		Stations: []snapshot.Station{
			{Name: "Castle Meadow", Distance: 120, NumberOfBikes: 2},
			{Name: "Tombland", Distance: 400, NumberOfBikes: 0, NumberOfScooters: 3},
		},
		Vehicles: []snapshot.Vehicle{
			{BikeID: "b-1", VehicleTypeID: "bbe", Lat: 52.63, Lon: 1.29, Distance: 1609.34},
			{BikeID: "b-2", VehicleTypeID: "scooter", Lat: 52.64, Lon: 1.3, Distance: 800},
		},
	}, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expected := []string{
		"Your Beryl Snapshot",
		"Good morning,",
		"Monday 1 June 2026",
		"Tombland",
		"0 bikes",
		"3 scooters",
		"0.25 miles away",
		"Electric Bike - 1.00 miles away",
		"Scooter - 0.50 miles away",
		"https://maps.google.com/?q=52.63,1.29",
		"🛴",
		"🚲",
		"https://tracker.example.com/",
	}
	for _, s := range expected {
		if !strings.Contains(html, s) {
			t.Errorf("expected digest to contain %q", s)
		}
	}

	if strings.Contains(html, "Castle Meadow") {
		t.Errorf("expected scooter fallback to replace the nearest station")
	}
	if !strings.Contains(html, "color:#ff4d4f;\">0 bikes") {
		t.Errorf("expected zero bikes to be highlighted red")
	}
	if !strings.Contains(html, "color:#73d13d;\">3 scooters") {
		t.Errorf("expected available scooters to be highlighted green")
	}
}

func TestFormat_EmptySnapshot(t *testing.T) {
	f := NewFormatter(FormatterConfig{Location: london(t)})

	html, err := f.Format(snapshot.Snapshot{}, time.Date(2026, 12, 24, 18, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, s := range []string{"Good evening,", "Thursday 24 December 2026", "No stations within range", "No free-floating vehicles nearby"} {
		if !strings.Contains(html, s) {
			t.Errorf("expected digest to contain %q", s)
		}
	}
	if strings.Contains(html, "Live feed") {
		t.Errorf("expected no footer link without a live feed URL")
	}
}

func TestFormat_EscapesStationNames(t *testing.T) {
	f := NewFormatter(FormatterConfig{})

	html, err := f.Format(snapshot.Snapshot{
		Stations: []snapshot.Station{{Name: "<script>alert(1)</script>", NumberOfScooters: 1}},
	}, time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if strings.Contains(html, "<script>") {
		t.Errorf("expected station name to be escaped")
	}
}
