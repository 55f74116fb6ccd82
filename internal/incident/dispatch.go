package incident

import (
	"context"
	"sync"

	"github.com/linnemanlabs/go-core/log"
)

// HistorySink records a finished incident in the durable history store.
type HistorySink interface {
	SaveIncident(ctx context.Context, inc *Incident) error
}

// VectorSink embeds and upserts a finished incident into a similarity index.
type VectorSink interface {
	IndexIncident(ctx context.Context, inc *Incident) error
}

// AlertSink notifies humans about a finished incident.
type AlertSink interface {
	NotifyIncident(ctx context.Context, inc *Incident) error
}

// DispatchHooks are optional observation points per sink attempt.
type DispatchHooks struct {
	OnSink func(sink string, ok bool)
}

// Dispatcher fires the follow-on writes when an incident reaches its
// diagnosis. Every sink is fail-soft: a failure is logged and counted but
// never blocks the other sinks or the user-visible response. Optional sinks
// are resolved into capability flags at construction, not nil checks at
// dispatch time.
type Dispatcher struct {
	history HistorySink
	vector  VectorSink
	alerts  AlertSink

	hasHistory bool
	hasVector  bool
	hasAlerts  bool

	hooks  DispatchHooks
	logger log.Logger
}

// NewDispatcher creates a dispatcher. Any sink may be nil, which disables
// that capability.
func NewDispatcher(history HistorySink, vector VectorSink, alerts AlertSink, hooks DispatchHooks, logger log.Logger) *Dispatcher {
	return &Dispatcher{
		history:    history,
		vector:     vector,
		alerts:     alerts,
		hasHistory: history != nil,
		hasVector:  vector != nil,
		hasAlerts:  alerts != nil,
		hooks:      hooks,
		logger:     logger,
	}
}

// Dispatch fires the sinks for an incident that just entered RECOMMEND. The
// history write goes first since it is the authoritative record; the index
// upsert and alert then run concurrently. Alerts only go out for CRITICAL
// and HIGH severities.
func (d *Dispatcher) Dispatch(ctx context.Context, inc *Incident) {
	if inc.Diagnosis == nil {
		return
	}
	L := d.logger.With("incident_id", inc.ID, "severity", string(inc.Diagnosis.Severity))

	if d.hasHistory {
		d.run(ctx, L, "history", func() error {
			return d.history.SaveIncident(ctx, inc)
		})
	}

	var wg sync.WaitGroup
	if d.hasVector {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d.run(ctx, L, "vector", func() error {
				return d.vector.IndexIncident(ctx, inc)
			})
		}()
	}
	if d.hasAlerts && alertWorthy(inc.Diagnosis.Severity) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d.run(ctx, L, "alert", func() error {
				return d.alerts.NotifyIncident(ctx, inc)
			})
		}()
	}
	wg.Wait()
}

func (d *Dispatcher) run(ctx context.Context, L log.Logger, sink string, fn func() error) {
	err := fn()
	if err != nil {
		L.Error(ctx, err, "dispatch sink failed", "sink", sink)
	}
	if d.hooks.OnSink != nil {
		d.hooks.OnSink(sink, err == nil)
	}
}

func alertWorthy(s Severity) bool {
	return s == SeverityCritical || s == SeverityHigh
}
