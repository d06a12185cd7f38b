package metrics

import (
	"net/http"
	"strconv"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "noteprops"

// PrometheusRecorder implements Recorder with Prometheus collectors.
type PrometheusRecorder struct {
	buildDuration prom.Histogram
	documents     *prom.CounterVec
	registrySlugs prom.Gauge
	registryLinks prom.Gauge
	indexChanged  prom.Counter
	indexRemoved  prom.Counter
	httpRequests  *prom.CounterVec
}

// NewPrometheusRecorder creates the collectors and registers them on reg.
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{
		buildDuration: prom.NewHistogram(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "build_duration_seconds",
			Help:      "Duration of full content builds",
			Buckets:   prom.DefBuckets,
		}),
		documents: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "documents_processed_total",
			Help:      "Documents processed by result",
		}, []string{"result"}),
		registrySlugs: prom.NewGauge(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "registry_slugs",
			Help:      "Known path identifiers after the last build",
		}),
		registryLinks: prom.NewGauge(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "registry_link_owners",
			Help:      "Documents declaring frontmatter links after the last build",
		}),
		indexChanged: prom.NewCounter(prom.CounterOpts{
			Namespace: namespace,
			Name:      "index_upserts_total",
			Help:      "Documents written to the index",
		}),
		indexRemoved: prom.NewCounter(prom.CounterOpts{
			Namespace: namespace,
			Name:      "index_deletes_total",
			Help:      "Stale documents removed from the index",
		}),
		httpRequests: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route pattern and status",
		}, []string{"route", "status"}),
	}
	reg.MustRegister(pr.buildDuration, pr.documents, pr.registrySlugs, pr.registryLinks,
		pr.indexChanged, pr.indexRemoved, pr.httpRequests)
	return pr
}

func (p *PrometheusRecorder) ObserveBuildDuration(d time.Duration) {
	if p == nil {
		return
	}
	p.buildDuration.Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncDocument(result Result) {
	if p == nil {
		return
	}
	p.documents.WithLabelValues(string(result)).Inc()
}

func (p *PrometheusRecorder) SetRegistrySize(slugs, linkOwners int) {
	if p == nil {
		return
	}
	p.registrySlugs.Set(float64(slugs))
	p.registryLinks.Set(float64(linkOwners))
}

func (p *PrometheusRecorder) IncIndexSync(changed, removed int) {
	if p == nil {
		return
	}
	p.indexChanged.Add(float64(changed))
	p.indexRemoved.Add(float64(removed))
}

func (p *PrometheusRecorder) IncHTTPRequest(route string, status int) {
	if p == nil {
		return
	}
	p.httpRequests.WithLabelValues(route, strconv.Itoa(status)).Inc()
}

// HTTPHandler serves the metrics gathered by reg.
func HTTPHandler(reg *prom.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{EnableOpenMetrics: true})
}
