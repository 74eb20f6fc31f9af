package acceptance

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/semanticallynull/gbfs-nearby/api"
	"github.com/semanticallynull/gbfs-nearby/bike"
	"github.com/semanticallynull/gbfs-nearby/digest"
	"github.com/semanticallynull/gbfs-nearby/gbfs"
	"github.com/semanticallynull/gbfs-nearby/internal/metrics"
	"github.com/semanticallynull/gbfs-nearby/internal/o11y"
	"github.com/semanticallynull/gbfs-nearby/internal/resend"
	"github.com/semanticallynull/gbfs-nearby/snapshot"
	"github.com/semanticallynull/gbfs-nearby/station"
)

const (
	originLat = 52.6286
	originLon = 1.2924
	// metersPerDegreeLat is the length of one degree of latitude on a 6371 km sphere.
	metersPerDegreeLat = 111194.93
)

type TestServer struct {
	API     *api.API
	Handler http.Handler
	Feeds   *gbfs.FakeClient
	Mailer  *resend.FakeMailer
	Logs    *syncBuffer
}

// syncBuffer collects logs written by background digests.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func NewTestServer(t *testing.T, configure ...func(*api.Options)) *TestServer {
	t.Helper()

	gin.SetMode(gin.TestMode)

	logs := &syncBuffer{}
	obs := &o11y.Observability{
		Logger:   slog.New(slog.NewJSONHandler(logs, nil)),
		Registry: prometheus.NewRegistry(),
	}
	m := metrics.NewCollector(obs.Registry)

	feeds := gbfs.NewFakeClient()
	mailer := resend.NewFakeMailer()
	mailer.Sent = make(chan resend.Email, 10)

	sb := snapshot.NewBuilder(feeds, snapshot.Config{}, m)
	job := digest.NewJob(sb, digest.NewFormatter(digest.FormatterConfig{}), mailer, digest.JobConfig{
		Lat:      originLat,
		Lon:      originLon,
		Location: "Norwich",
		From:     "digest@example.com",
		To:       []string{"rider@example.com"},
		Subject:  "Nearby",
	}, obs.Logger, m)

	opts := api.Options{}
	for _, c := range configure {
		c(&opts)
	}

	a := api.New(station.NewRepository(feeds), sb, job, obs, opts)

	ts := &TestServer{
		API:     a,
		Handler: a.Handler(),
		Feeds:   feeds,
		Mailer:  mailer,
		Logs:    logs,
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.Wait(ctx); err != nil {
			t.Errorf("background digests did not finish: %v", err)
		}
	})
	return ts
}

// Helper methods for making requests
func (ts *TestServer) GET(path string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	ts.Handler.ServeHTTP(w, req)
	return w
}

// north returns the latitude that lies m meters north of the origin.
func north(m float64) float64 {
	return originLat + m/metersPerDegreeLat
}

// AddStation registers a station m meters north of the origin.
func (ts *TestServer) AddStation(id, name string, m float64, types ...gbfs.VehicleTypeAvailable) {
	ts.Feeds.AddStation(
		gbfs.StationInformation{StationID: id, Name: name, Lat: north(m), Lon: originLon, Capacity: 10},
		gbfs.StationStatus{
			NumBikesAvailable:     total(types),
			IsInstalled:           true,
			IsRenting:             true,
			IsReturning:           true,
			LastReported:          1760000000,
			VehicleTypesAvailable: types,
		},
	)
}

// AddVehicle registers a free-floating vehicle m meters north of the origin.
func (ts *TestServer) AddVehicle(id string, typeID bike.Type, m float64) {
	ts.Feeds.Bikes = append(ts.Feeds.Bikes, gbfs.FreeBike{
		BikeID:             id,
		VehicleTypeID:      typeID,
		Lat:                north(m),
		Lon:                originLon,
		CurrentRangeMeters: 12000,
	})
}

func total(types []gbfs.VehicleTypeAvailable) int {
	n := 0
	for _, t := range types {
		n += t.Count
	}
	return n
}

// vehicles builds vehicle_types_available in a fixed order.
func vehicles(counts map[string]int) []gbfs.VehicleTypeAvailable {
	var types []gbfs.VehicleTypeAvailable
	for _, id := range []string{"beryl_bike", "bbe", "scooter"} {
		if n, ok := counts[id]; ok {
			types = append(types, gbfs.VehicleTypeAvailable{VehicleTypeID: bike.Type(id), Count: n})
		}
	}
	return types
}
