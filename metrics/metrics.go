// Package metrics exposes process-wide counters for the gateway, resolver,
// and installer over OpenTelemetry's Prometheus exporter, the same stack
// and registration pattern the teacher uses for its own download/upload
// counters.
package metrics

import (
	"context"
	"fmt"
	"net/http"

	promclient "github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// Metrics holds every counter solvent's core emits.
type Metrics struct {
	RepodataFetchesTotal    metric.Int64Counter
	RepodataCacheHitTotal   metric.Int64Counter
	ResolverDecisionsTotal  metric.Int64Counter
	ResolverBacktracksTotal metric.Int64Counter
	InstallerLinksTotal     metric.Int64Counter
	InstallerUnlinksTotal   metric.Int64Counter
	ClobbersTotal           metric.Int64Counter
}

// New registers a meter provider against a fresh Prometheus exporter and
// creates every counter. Call ListenAndServe to expose /metrics.
func New() (m Metrics, err error) {
	exporter, err := prometheus.New()
	if err != nil {
		return Metrics{}, fmt.Errorf("create prometheus exporter: %w", err)
	}

	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))
	otel.SetMeterProvider(provider)

	meter := provider.Meter("github.com/a-h/solvent")

	if m.RepodataFetchesTotal, err = meter.Int64Counter("repodata_fetches_total", metric.WithDescription("Total repodata fetches issued by the gateway, by outcome")); err != nil {
		return Metrics{}, fmt.Errorf("create repodata_fetches_total counter: %w", err)
	}
	if m.RepodataCacheHitTotal, err = meter.Int64Counter("repodata_cache_hit_total", metric.WithDescription("Total HTTP cache reads served without a network round trip")); err != nil {
		return Metrics{}, fmt.Errorf("create repodata_cache_hit_total counter: %w", err)
	}
	if m.ResolverDecisionsTotal, err = meter.Int64Counter("resolver_decisions_total", metric.WithDescription("Total branching decisions made by the SAT core")); err != nil {
		return Metrics{}, fmt.Errorf("create resolver_decisions_total counter: %w", err)
	}
	if m.ResolverBacktracksTotal, err = meter.Int64Counter("resolver_backtracks_total", metric.WithDescription("Total conflict-driven backtracks")); err != nil {
		return Metrics{}, fmt.Errorf("create resolver_backtracks_total counter: %w", err)
	}
	if m.InstallerLinksTotal, err = meter.Int64Counter("installer_links_total", metric.WithDescription("Total files linked into a prefix")); err != nil {
		return Metrics{}, fmt.Errorf("create installer_links_total counter: %w", err)
	}
	if m.InstallerUnlinksTotal, err = meter.Int64Counter("installer_unlinks_total", metric.WithDescription("Total files removed from a prefix")); err != nil {
		return Metrics{}, fmt.Errorf("create installer_unlinks_total counter: %w", err)
	}
	if m.ClobbersTotal, err = meter.Int64Counter("clobbers_total", metric.WithDescription("Total clobbered (suffix-renamed) file installs")); err != nil {
		return Metrics{}, fmt.Errorf("create clobbers_total counter: %w", err)
	}

	return m, nil
}

// ListenAndServe exposes the Prometheus scrape endpoint at addr.
func ListenAndServe(addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promclient.Handler())
	return http.ListenAndServe(addr, mux)
}

func (m Metrics) IncrementRepodataFetch(ctx context.Context, outcome string) {
	if m.RepodataFetchesTotal == nil {
		return
	}
	m.RepodataFetchesTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

func (m Metrics) IncrementRepodataCacheHit(ctx context.Context) {
	if m.RepodataCacheHitTotal == nil {
		return
	}
	m.RepodataCacheHitTotal.Add(ctx, 1)
}

func (m Metrics) IncrementResolverDecision(ctx context.Context) {
	if m.ResolverDecisionsTotal == nil {
		return
	}
	m.ResolverDecisionsTotal.Add(ctx, 1)
}

func (m Metrics) IncrementResolverBacktrack(ctx context.Context) {
	if m.ResolverBacktracksTotal == nil {
		return
	}
	m.ResolverBacktracksTotal.Add(ctx, 1)
}

func (m Metrics) IncrementInstallerLinks(ctx context.Context, n int64) {
	if m.InstallerLinksTotal == nil {
		return
	}
	m.InstallerLinksTotal.Add(ctx, n)
}

func (m Metrics) IncrementInstallerUnlinks(ctx context.Context, n int64) {
	if m.InstallerUnlinksTotal == nil {
		return
	}
	m.InstallerUnlinksTotal.Add(ctx, n)
}

func (m Metrics) IncrementClobbers(ctx context.Context, n int64) {
	if m.ClobbersTotal == nil {
		return
	}
	m.ClobbersTotal.Add(ctx, n)
}
