package api

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"golang.org/x/time/rate"

	"github.com/semanticallynull/gbfs-nearby/internal/middleware"
	"github.com/semanticallynull/gbfs-nearby/internal/o11y"
	"github.com/semanticallynull/gbfs-nearby/snapshot"
	"github.com/semanticallynull/gbfs-nearby/station"
)

// DefaultLocation is the GBFS system queried when a request names none.
const DefaultLocation = "Norwich"

// DigestRunner sends one digest. Failures are handled by the runner. A nil runner
// leaves the manual trigger unrouted.
type DigestRunner interface {
	Run(ctx context.Context)
}

type Options struct {
	DefaultLocation string
	// DigestLimiter throttles the manual digest trigger. Nil disables throttling.
	DigestLimiter   *rate.Limiter
	MetricsUsername string
	MetricsPassword string
	AllowedOrigins  []string
}

type API struct {
	r      *gin.Engine
	sr     *station.Repository
	sb     *snapshot.Builder
	digest DigestRunner
	opts   Options

	// in-flight digests started by the manual trigger
	wg sync.WaitGroup
}

func New(sr *station.Repository, sb *snapshot.Builder, digest DigestRunner, obs *o11y.Observability, opts Options) *API {
	if opts.DefaultLocation == "" {
		opts.DefaultLocation = DefaultLocation
	}

	a := &API{
		r:      gin.New(),
		sr:     sr,
		sb:     sb,
		digest: digest,
		opts:   opts,
	}
	// Handlers pass *gin.Context downstream; this keeps the request's trace and
	// cancellation visible through it.
	a.r.ContextWithFallback = true

	a.r.Use(
		middleware.Tracing(),
		middleware.Logging(obs.Logger),
		middleware.Metrics(obs.Registry),
		gin.Recovery(),
	)

	a.r.GET("/", a.helpHandler)
	a.r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	a.r.GET("/stations", a.stationsHandler)
	a.r.GET("/stations/", a.stationsHandler)
	a.r.GET("/nearme", a.nearMeHandler)
	a.r.GET("/nearme/", a.nearMeHandler)

	if digest != nil {
		trigger := []gin.HandlerFunc{}
		if opts.DigestLimiter != nil {
			trigger = append(trigger, middleware.RateLimit(opts.DigestLimiter))
		}
		a.r.GET("/digest/test", append(trigger, a.digestTestHandler)...)
	}

	metrics := gin.WrapH(promhttp.HandlerFor(obs.Registry, promhttp.HandlerOpts{}))
	if opts.MetricsUsername != "" {
		a.r.GET("/metrics", gin.BasicAuth(gin.Accounts{opts.MetricsUsername: opts.MetricsPassword}), metrics)
	} else {
		a.r.GET("/metrics", metrics)
	}

	a.r.NoRoute(func(c *gin.Context) {
		c.JSON(404, gin.H{"error": "Not found"})
	})

	return a
}

func (a *API) Router() *gin.Engine {
	return a.r
}

// Handler wraps the router with CORS. An empty origin list allows any origin.
func (a *API) Handler() http.Handler {
	return cors.New(cors.Options{
		AllowedOrigins: a.opts.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodHead},
	}).Handler(a.r)
}

// Wait blocks until digests started by the manual trigger finish or ctx is done.
func (a *API) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		a.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (a *API) location(c *gin.Context) string {
	if l := c.Query("location"); l != "" {
		return l
	}
	return a.opts.DefaultLocation
}

func (a *API) helpHandler(c *gin.Context) {
	endpoints := gin.H{
		"/stations": "Get all stations or filter by stationId",
		"/nearme":   fmt.Sprintf("Get %d closest stations to a lat/lon", a.sb.Config().Limit),
		"/health":   "Liveness check",
		"/":         "This help message",
	}
	if a.digest != nil {
		endpoints["/digest/test"] = "Send the nearby digest email now"
	}
	c.JSON(200, gin.H{"endpoints": endpoints})
}
