/*
Copyright The Database Backup Orchestrator Contributors

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package metrics exposes the scheduler's Prometheus counters and gauges
// for continuous-mode deployments, in the orchestrator's own registry
// rather than the global default one, so the CLI's one-shot commands never
// have to touch it.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Registry is the collector set a continuous-mode run exposes.
type Registry struct {
	registry *prometheus.Registry

	JobsRun       *prometheus.CounterVec
	RetriesTotal  *prometheus.CounterVec
	ClaimMisses   prometheus.Counter
	DueGauge      prometheus.Gauge
	PassDuration  prometheus.Histogram
}

// NewRegistry builds and registers the scheduler's metrics.
func NewRegistry() *Registry {
	registry := prometheus.NewRegistry()

	r := &Registry{
		registry: registry,
		JobsRun: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dbbackup",
			Name:      "jobs_run_total",
			Help:      "Total scheduled backup jobs run, labeled by outcome.",
		}, []string{"outcome"}),
		RetriesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dbbackup",
			Name:      "schedule_retries_total",
			Help:      "Total retry attempts recorded by the backoff state machine.",
		}, []string{"schedule_id"}),
		ClaimMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "dbbackup",
			Name:      "claim_misses_total",
			Help:      "Total claim attempts that lost the race to another worker.",
		}),
		DueGauge: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "dbbackup",
			Name:      "due_schedules",
			Help:      "Number of schedules due at the start of the most recent pass.",
		}),
		PassDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "dbbackup",
			Name:      "pass_duration_seconds",
			Help:      "Wall-clock duration of a full scheduler pass.",
			Buckets:   prometheus.DefBuckets,
		}),
	}

	registry.MustRegister(r.JobsRun, r.RetriesTotal, r.ClaimMisses, r.DueGauge, r.PassDuration)
	return r
}

// Gatherer exposes the registry for wiring into an HTTP handler.
func (r *Registry) Gatherer() prometheus.Gatherer { return r.registry }
