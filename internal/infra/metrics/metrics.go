package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

var (
	EventsIngested = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "zapgoals_events_ingested_total",
		Help: "Events passed through the ingestion pipeline by category and outcome",
	}, []string{"category", "outcome"})

	StoreRecords = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "zapgoals_store_records",
		Help: "Records held by the normalized store",
	}, []string{"collection"})

	LoadPhase = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "zapgoals_load_ready",
		Help: "1 once the initial load finished",
	})

	RelayConnected = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "zapgoals_relay_connected",
		Help: "Relay connection state, 1 when connected",
	}, []string{"relay"})

	SubscriptionsOpen = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "zapgoals_subscriptions_open",
		Help: "Subscriptions currently open against the relay pool",
	})

	ResubscribesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "zapgoals_resubscribes_total",
		Help: "Subscriptions reopened after their stream ended",
	}, []string{"stream"})

	PublishJobs = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "zapgoals_publish_jobs_total",
		Help: "Publish jobs by final status",
	}, []string{"status"})

	FundedNotifications = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "zapgoals_funded_notifications_total",
		Help: "Goals announced as fully funded",
	})

	NetworkRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "network_request_duration_seconds",
		Help:    "Network request latency",
		Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 15, 20, 30, 60},
	}, []string{"component", "operation", "target", "status"})

	NetworkRequestTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "network_request_total",
		Help: "Network requests",
	}, []string{"component", "operation", "target", "status"})
)

// MustRegister registers all collectors.
func MustRegister(registerer prometheus.Registerer) {
	registerer.MustRegister(
		EventsIngested,
		StoreRecords,
		LoadPhase,
		RelayConnected,
		SubscriptionsOpen,
		ResubscribesTotal,
		PublishJobs,
		FundedNotifications,
		NetworkRequestDuration,
		NetworkRequestTotal,
	)
}

// StartServer serves /metrics on addr until ctx is done.
func StartServer(ctx context.Context, logger zerolog.Logger, addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	}

	shutdownCtx, cancel := context.WithCancel(context.Background())
	go func() {
		select {
		case <-ctx.Done():
		case <-shutdownCtx.Done():
		}
		shutdownTimeout, timeoutCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer timeoutCancel()
		if err := srv.Shutdown(shutdownTimeout); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("metrics: graceful shutdown failed")
		}
	}()

	go func() {
		logger.Info().Str("addr", addr).Msg("metrics: server started")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("metrics: server stopped")
		}
		cancel()
	}()
}

// ObserveNetworkRequest records latency and status of an outbound call.
func ObserveNetworkRequest(component, operation, target string, start time.Time, err error) {
	if component == "" {
		component = "unknown"
	}
	if operation == "" {
		operation = "unknown"
	}
	if target == "" {
		target = "unknown"
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	duration := time.Since(start).Seconds()
	NetworkRequestDuration.WithLabelValues(component, operation, target, status).Observe(duration)
	NetworkRequestTotal.WithLabelValues(component, operation, target, status).Inc()
}

// ObserveIngest counts one event outcome.
func ObserveIngest(category, outcome string) {
	EventsIngested.WithLabelValues(category, outcome).Inc()
}

// SetStoreSize publishes the size of one store collection.
func SetStoreSize(collection string, n int) {
	StoreRecords.WithLabelValues(collection).Set(float64(n))
}

// SetReady flags the end of the initial load.
func SetReady(ready bool) {
	if ready {
		LoadPhase.Set(1)
		return
	}
	LoadPhase.Set(0)
}

// SetRelayConnected publishes the connection state of a relay.
func SetRelayConnected(relay string, connected bool) {
	v := 0.0
	if connected {
		v = 1
	}
	RelayConnected.WithLabelValues(relay).Set(v)
}

// ObservePublish counts a publish job by status.
func ObservePublish(status string) {
	PublishJobs.WithLabelValues(status).Inc()
}
