package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"
	"golang.org/x/time/rate"

	"github.com/semanticallynull/gbfs-nearby/api"
	"github.com/semanticallynull/gbfs-nearby/digest"
	"github.com/semanticallynull/gbfs-nearby/gbfs"
	"github.com/semanticallynull/gbfs-nearby/internal/metrics"
	"github.com/semanticallynull/gbfs-nearby/internal/o11y"
	"github.com/semanticallynull/gbfs-nearby/internal/resend"
	"github.com/semanticallynull/gbfs-nearby/internal/scheduler"
	"github.com/semanticallynull/gbfs-nearby/snapshot"
	"github.com/semanticallynull/gbfs-nearby/station"
)

var cli = struct {
	Port int `name:"port" env:"PORT" default:"8080"`

	GBFSBaseURL     string        `name:"gbfs-base-url" env:"GBFS_BASE_URL" default:"https://beryl-gbfs-production.web.app/v2_2"`
	DefaultLocation string        `name:"default-location" env:"DEFAULT_LOCATION" default:"Norwich"`
	FetchTimeout    time.Duration `name:"fetch-timeout" env:"FETCH_TIMEOUT" default:"10s"`
	StationRadius   float64       `name:"station-radius" env:"STATION_RADIUS" default:"800" help:"Meters."`
	VehicleRadius   float64       `name:"vehicle-radius" env:"VEHICLE_RADIUS" default:"1207.1" help:"Meters."`
	ResultLimit     int           `name:"result-limit" env:"RESULT_LIMIT" default:"5"`

	AllowedOrigins []string `name:"allowed-origins" env:"ALLOWED_ORIGINS" help:"Empty allows any origin."`

	LogLevel     string  `name:"log-level" env:"LOG_LEVEL" default:"info" enum:"debug,info,warn,error"`
	OTLPEndpoint string  `name:"otlp-endpoint" env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	SampleRatio  float64 `name:"trace-sample-ratio" env:"TRACE_SAMPLE_RATIO" default:"1"`

	MetricsUsername string `name:"metrics-username" env:"METRICS_USERNAME"`
	MetricsPassword string `name:"metrics-password" env:"METRICS_PASSWORD"`

	ResendAPIKey  string   `name:"resend-api-key" env:"RESEND_API_KEY" help:"Empty disables the digest."`
	ResendBaseURL string   `name:"resend-base-url" env:"RESEND_BASE_URL" default:"https://api.resend.com"`
	DigestFrom    string   `name:"digest-from" env:"DIGEST_FROM" default:"Beryl Digest <digest@resend.dev>"`
	DigestTo      []string `name:"digest-to" env:"DIGEST_TO"`
	DigestSubject string   `name:"digest-subject" env:"DIGEST_SUBJECT" default:"Your nearby bikes and scooters"`
	DigestBrand   string   `name:"digest-brand" env:"DIGEST_BRAND" default:"Beryl"`
	DigestLiveURL string   `name:"digest-live-url" env:"DIGEST_LIVE_URL"`

	DigestLat      float64 `name:"digest-lat" env:"DIGEST_LAT" default:"52.6286"`
	DigestLon      float64 `name:"digest-lon" env:"DIGEST_LON" default:"1.2924"`
	DigestLocation string  `name:"digest-location" env:"DIGEST_LOCATION" default:"Norwich"`
	DigestSchedule string  `name:"digest-schedule" env:"DIGEST_SCHEDULE" default:"0 7 * * *" help:"Cron expression, empty disables."`
	DigestTimezone string  `name:"digest-timezone" env:"DIGEST_TIMEZONE" default:"Europe/London"`

	DigestTriggerInterval time.Duration `name:"digest-trigger-interval" env:"DIGEST_TRIGGER_INTERVAL" default:"1m" help:"Minimum gap between manual digests, 0 disables throttling."` //nolint:lll
}{}

func main() {
	if err := run(); err != nil {
		log.Fatalf("unexpected error: %v", err)
	}
}

func run() error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load .env: %w", err)
	}
	kong.Parse(&cli,
		kong.Name("gbfs-nearby"),
		kong.Description("Nearby bike share stations and vehicles over HTTP and email."),
	)

	obs, cleanup, err := o11y.Setup(ctx, o11y.Options{
		LogLevel:     cli.LogLevel,
		OTLPEndpoint: cli.OTLPEndpoint,
		SampleRatio:  cli.SampleRatio,
	})
	defer cleanup()
	if err != nil {
		return err
	}
	logger := obs.Logger

	m := metrics.NewCollector(obs.Registry)
	feeds := gbfs.NewHTTPClient(cli.GBFSBaseURL, cli.FetchTimeout, m)
	sr := station.NewRepository(feeds)
	sb := snapshot.NewBuilder(feeds, snapshot.Config{
		StationRadius: cli.StationRadius,
		VehicleRadius: cli.VehicleRadius,
		Limit:         cli.ResultLimit,
	}, m)

	tz, err := time.LoadLocation(cli.DigestTimezone)
	if err != nil {
		return fmt.Errorf("invalid digest timezone: %w", err)
	}

	var runner api.DigestRunner
	sched := &scheduler.Scheduler{}
	if cli.ResendAPIKey != "" && len(cli.DigestTo) > 0 {
		job := digest.NewJob(
			sb,
			digest.NewFormatter(digest.FormatterConfig{
				Brand:       cli.DigestBrand,
				Location:    tz,
				LiveFeedURL: cli.DigestLiveURL,
			}),
			resend.NewHTTPClient(cli.ResendBaseURL, cli.ResendAPIKey),
			digest.JobConfig{
				Lat:      cli.DigestLat,
				Lon:      cli.DigestLon,
				Location: cli.DigestLocation,
				From:     cli.DigestFrom,
				To:       cli.DigestTo,
				Subject:  cli.DigestSubject,
			},
			logger,
			m,
		)
		runner = job

		sched, err = scheduler.New(cli.DigestSchedule, tz, job, logger)
		if err != nil {
			return err
		}
	} else {
		logger.Warn("digest disabled, set RESEND_API_KEY and DIGEST_TO to enable")
	}

	var limiter *rate.Limiter
	if cli.DigestTriggerInterval > 0 {
		limiter = rate.NewLimiter(rate.Every(cli.DigestTriggerInterval), 1)
	}

	a := api.New(sr, sb, runner, obs, api.Options{
		DefaultLocation: cli.DefaultLocation,
		DigestLimiter:   limiter,
		MetricsUsername: cli.MetricsUsername,
		MetricsPassword: cli.MetricsPassword,
		AllowedOrigins:  cli.AllowedOrigins,
	})

	serv := http.Server{
		Addr:              fmt.Sprintf(":%d", cli.Port),
		Handler:           a.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := serv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("failed to start server: %v", err)
		}
	}()
	sched.Start()
	logger.Info("server started", "port", cli.Port, "next_digest", sched.Next())

	<-ctx.Done()
	ctx, cancel = context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err = serv.Shutdown(ctx)
	if err != nil {
		return err
	}
	if err := sched.Stop(ctx); err != nil {
		return err
	}
	return a.Wait(ctx)
}
