// Package progressmetrics exports progress trackers as Prometheus metrics.
//
// Gauges mirror the progress registry after every check; counters follow
// the completed and restarted events the progress plugins emit.
package progressmetrics

import (
	"context"
	"fmt"
	"strings"
	"sync"

	cloudevents "github.com/cloudevents/sdk-go/v2"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/GoCodeAlone/stepper"
	"github.com/GoCodeAlone/stepper/modules/progress"
)

// PluginName is the plugin and config section name.
const PluginName = "progressmetrics"

// SetRefresh is the PostUpdate set that refreshes the gauges. It runs after
// progress.SetCheck.
const SetRefresh = "progressmetrics.refresh"

// Plugin exports progress metrics to a prometheus.Registerer.
type Plugin struct {
	registerer prometheus.Registerer
	config     *Config
	logger     stepper.Logger

	tick        prometheus.Gauge
	done        *prometheus.GaugeVec
	required    *prometheus.GaugeVec
	fraction    *prometheus.GaugeVec
	completions *prometheus.CounterVec
	restarts    *prometheus.CounterVec

	mu    sync.Mutex
	known map[string]bool
}

// NewPlugin creates a metrics plugin registering against reg, or against
// prometheus.DefaultRegisterer when reg is nil.
func NewPlugin(reg prometheus.Registerer) *Plugin {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	return &Plugin{
		registerer: reg,
		config:     &Config{},
		known:      make(map[string]bool),
	}
}

func (p *Plugin) Name() string { return PluginName }

// RegisterConfig registers the "progressmetrics" section.
func (p *Plugin) RegisterConfig(app *stepper.App) error {
	app.RegisterConfigSection(PluginName, stepper.NewStdConfigProvider(p.config))
	return nil
}

// Build creates and registers the collectors, adds the refresh system and
// subscribes to progress events.
func (p *Plugin) Build(app *stepper.App) error {
	if app == nil {
		return stepper.ErrApplicationNil
	}
	p.logger = app.Logger()
	ns := p.config.Namespace

	p.tick = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: ns,
		Name:      "tick",
		Help:      "Last tick whose progress was checked.",
	})
	p.done = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: ns,
		Name:      "progress_done",
		Help:      "Units of work reported done in the last tick with reports.",
	}, []string{"tag"})
	p.required = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: ns,
		Name:      "progress_required",
		Help:      "Units of work required in the last tick with reports.",
	}, []string{"tag"})
	p.fraction = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: ns,
		Name:      "progress_fraction",
		Help:      "Completed fraction of work, from 0 to 1.",
	}, []string{"tag"})
	p.completions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: ns,
		Name:      "progress_completions_total",
		Help:      "Completed tracking episodes.",
	}, []string{"tag"})
	p.restarts = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: ns,
		Name:      "progress_restarts_total",
		Help:      "Restarted tracking episodes.",
	}, []string{"tag"})

	for _, collector := range p.collectors() {
		if err := p.registerer.Register(collector); err != nil {
			return fmt.Errorf("register progress collector: %w", err)
		}
	}

	app.OrderSets(stepper.PostUpdate, progress.SetCheck, SetRefresh)
	if err := app.AddSystems(stepper.PostUpdate, stepper.NewSystem("progressmetrics.refresh", p.refresh).InSet(SetRefresh)); err != nil {
		return err
	}
	if err := app.RegisterObserver(p, progress.EventTypeCompleted, progress.EventTypeRestarted); err != nil {
		return err
	}
	p.logger.Info("Progress metrics registered", "namespace", ns, "excludeEntities", p.config.ExcludeEntities)
	return nil
}

// Stop unregisters the collectors so that a new app can register them again.
func (p *Plugin) Stop(context.Context) error {
	for _, collector := range p.collectors() {
		p.registerer.Unregister(collector)
	}
	return nil
}

func (p *Plugin) collectors() []prometheus.Collector {
	return []prometheus.Collector{p.tick, p.done, p.required, p.fraction, p.completions, p.restarts}
}

func (p *Plugin) refresh(ctx *stepper.Context) error {
	p.tick.Set(float64(ctx.Tick))

	seen := make(map[string]bool)
	for _, snap := range progress.RegistryOf(ctx.App).Snapshots() {
		if !p.exported(snap.Tag) {
			continue
		}
		seen[snap.Tag] = true
		p.done.WithLabelValues(snap.Tag).Set(float64(snap.Done))
		p.required.WithLabelValues(snap.Tag).Set(float64(snap.Required))
		p.fraction.WithLabelValues(snap.Tag).Set(snap.Fraction)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	for tag := range p.known {
		if !seen[tag] {
			p.done.DeleteLabelValues(tag)
			p.required.DeleteLabelValues(tag)
			p.fraction.DeleteLabelValues(tag)
		}
	}
	p.known = seen
	return nil
}

func (p *Plugin) exported(tag string) bool {
	return !p.config.ExcludeEntities || !strings.Contains(tag, "@")
}

// OnEvent counts completions and restarts.
func (p *Plugin) OnEvent(_ context.Context, event cloudevents.Event) error {
	switch event.Type() {
	case progress.EventTypeCompleted:
		var data progress.CompletedEvent
		if err := event.DataAs(&data); err != nil {
			return fmt.Errorf("decode %s: %w", event.Type(), err)
		}
		if data.Entity == stepper.NoEntity || !p.config.ExcludeEntities {
			p.completions.WithLabelValues(data.Tag).Inc()
		}
	case progress.EventTypeRestarted:
		var data progress.RestartedEvent
		if err := event.DataAs(&data); err != nil {
			return fmt.Errorf("decode %s: %w", event.Type(), err)
		}
		if data.Entity == stepper.NoEntity || !p.config.ExcludeEntities {
			p.restarts.WithLabelValues(data.Tag).Inc()
		}
	}
	return nil
}

// ObserverID implements stepper.Observer.
func (p *Plugin) ObserverID() string {
	return PluginName
}

var _ stepper.Observer = (*Plugin)(nil)
