// Package main is the entry point for the gridlink daemon. It loads the unit
// key, enrolls with the directory, serves the loopback API and reports
// recorded access point sightings in the background.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"gridlink.unit/gridlink/internal/api"
	"gridlink.unit/gridlink/internal/config"
	"gridlink.unit/gridlink/internal/docs"
	"gridlink.unit/gridlink/internal/journal"
	"gridlink.unit/gridlink/internal/logger"
	"gridlink.unit/gridlink/internal/metrics"
	"gridlink.unit/gridlink/internal/reporter"
	"gridlink.unit/gridlink/internal/types"
	"gridlink.unit/gridlink/internal/unit"
	"gridlink.unit/gridlink/internal/web"
)

func main() {
	cfgPath := os.Getenv("GRIDLINK_CONFIG")
	if cfgPath == "" {
		cfgPath = config.DefaultFile
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		logrus.Fatalf("Failed to load configuration: %v", err)
	}

	ring := logger.NewRing(200)
	l, err := logger.New(cfg.LogLevel, ring)
	if err != nil {
		logrus.Fatalf("Invalid log level %q: %v", cfg.LogLevel, err)
	}
	log := logrus.NewEntry(l)
	log.WithFields(logrus.Fields{"version": types.Version, "build": types.BuildTime}).Info("gridlink starting")

	m := metrics.New()

	client, err := unit.Open(cfg, log, m)
	if err != nil {
		log.Fatalf("Failed to initialize unit: %v", err)
	}
	log.WithField("identity", client.Identity()).Info("unit identity loaded")

	j, err := journal.Open(cfg.JournalFile, m)
	if err != nil {
		log.Fatalf("Failed to open sighting journal: %v", err)
	}
	defer j.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.AutoEnroll {
		enroll(ctx, client, m, log)
	}

	rep := reporter.New(cfg.ReportInterval, cfg.ReportBatch, client, j, log, m)
	go rep.Run(ctx)

	apiService := api.NewService(client, j, rep, log, m)
	server, err := web.NewServer(cfg.Listen, apiService, docs.NewService(nil), m, ring, log)
	if err != nil {
		log.Fatalf("Failed to initialize web server: %v", err)
	}
	serverErrors, err := server.Start()
	if err != nil {
		log.Fatalf("Failed to listen on %s: %v", cfg.Listen, err)
	}

	select {
	case <-ctx.Done():
	case err := <-serverErrors:
		if err != nil {
			log.WithError(err).Error("web server exited")
		}
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("web server shutdown")
	}
}

type enroller interface {
	Enroll(ctx context.Context, data any) (string, error)
}

// enroll tries once. A failure leaves the daemon unauthenticated; the API
// can retry through POST /api/v1/enroll.
func enroll(ctx context.Context, client enroller, m *metrics.Metrics, log *logrus.Entry) {
	callCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if _, err := client.Enroll(callCtx, unit.EnrollmentData()); err != nil {
		log.WithError(err).Warn("enrollment failed, continuing unauthenticated")
		m.SetEnrolled(false)
		return
	}
	m.SetEnrolled(true)
}
