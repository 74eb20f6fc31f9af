package digest

import (
	"context"
	"log/slog"
	"time"

	"github.com/semanticallynull/gbfs-nearby/internal/metrics"
	"github.com/semanticallynull/gbfs-nearby/internal/resend"
	"github.com/semanticallynull/gbfs-nearby/snapshot"
)

// SnapshotBuilder builds the snapshot a digest is rendered from.
type SnapshotBuilder interface {
	Build(ctx context.Context, lat, lon float64, location string) (snapshot.Snapshot, error)
}

// JobConfig is where the digest looks and who receives it.
type JobConfig struct {
	Lat      float64
	Lon      float64
	Location string

	From    string
	To      []string
	Subject string
}

// Job builds, renders and mails a digest. It never reports failures to its caller;
// they are logged and counted.
type Job struct {
	builder   SnapshotBuilder
	formatter *Formatter
	mailer    resend.Mailer
	cfg       JobConfig
	logger    *slog.Logger
	metrics   *metrics.Collector

	now func() time.Time
}

func NewJob(builder SnapshotBuilder, formatter *Formatter, mailer resend.Mailer, cfg JobConfig, logger *slog.Logger, m *metrics.Collector) *Job {
	if logger == nil {
		logger = slog.Default()
	}
	return &Job{
		builder:   builder,
		formatter: formatter,
		mailer:    mailer,
		cfg:       cfg,
		logger:    logger.With(slog.String("job", "digest")),
		metrics:   m,
		now:       time.Now,
	}
}

func (j *Job) Run(ctx context.Context) {
	logger := j.logger.With(
		slog.String("location", j.cfg.Location),
		slog.Float64("lat", j.cfg.Lat),
		slog.Float64("lon", j.cfg.Lon),
	)

	s, err := j.builder.Build(ctx, j.cfg.Lat, j.cfg.Lon, j.cfg.Location)
	if err != nil {
		logger.ErrorContext(ctx, "failed to fetch GBFS data", "error", err)
		j.metrics.ObserveDelivery(err)
		return
	}

	html, err := j.formatter.Format(s, j.now())
	if err != nil {
		logger.ErrorContext(ctx, "failed to format digest", "error", err)
		j.metrics.ObserveDelivery(err)
		return
	}

	id, err := j.mailer.Send(ctx, resend.Email{
		From:    j.cfg.From,
		To:      j.cfg.To,
		Subject: j.cfg.Subject,
		HTML:    html,
	})
	j.metrics.ObserveDelivery(err)
	if err != nil {
		logger.ErrorContext(ctx, "failed to send digest", "error", err)
		return
	}

	logger.InfoContext(ctx, "digest sent",
		slog.String("email_id", id),
		slog.Int("stations", len(s.Stations)),
		slog.Int("vehicles", len(s.Vehicles)),
	)
}
