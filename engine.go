package goSecretQ

import (
	"context"
	"log"
	"strconv"
	"time"

	"github.com/MrEthical07/goSecretQ/answer"
	"github.com/MrEthical07/goSecretQ/internal/audit"
	"github.com/MrEthical07/goSecretQ/internal/i18n"
	"github.com/MrEthical07/goSecretQ/marker"
)

// Engine defines a public type used by goSecretQ APIs.
//
// Engine instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Engine struct {
	config   Config
	store    CredentialStore
	devices  DeviceCredentialCreator
	renderer Renderer
	comparer answer.Comparer
	marker   *marker.Issuer
	catalog  *i18n.Catalog
	logger   *log.Logger
	audit    *audit.Dispatcher
	metrics  *Metrics
}

// Close describes the close operation and its observable behavior.
//
// Close stops the audit dispatcher after flushing queued events. It is safe to call more than once.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// AuditDropped describes the auditdropped operation and its observable behavior.
//
// AuditDropped does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot describes the metricssnapshot operation and its observable behavior.
//
// MetricsSnapshot does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

// Metadata describes the credential type for host registries. Display name
// and help text are resolved for the default locale.
func (e *Engine) Metadata() CredentialTypeMetadata {
	var locale string
	var catalog *i18n.Catalog
	if e != nil {
		locale = e.config.Locale.Default
		catalog = e.catalog
	}
	return CredentialTypeMetadata{
		Type:         CredentialType,
		Category:     CredentialCategory,
		DisplayName:  catalog.T(locale, i18n.MsgDisplayName),
		HelpText:     HelpTextKey,
		CreateAction: RequiredActionID,
		Removeable:   false,
	}
}

// ConfigProperties lists the per-authenticator options read from
// [StepRequest.AuthenticatorConfig].
func (e *Engine) ConfigProperties() []ConfigProperty {
	def := marker.DefaultMaxAge
	if e != nil {
		def = e.config.Bypass.DefaultMaxAge
	}
	return []ConfigProperty{
		{
			Name:         ConfigMaxAge,
			Label:        "Cookie max age",
			HelpText:     "Lifetime of the answered marker cookie, in seconds.",
			DefaultValue: formatSeconds(def),
		},
	}
}

// RequiredActionsFor returns the enrollment action when userID has no
// secret question yet.
func (e *Engine) RequiredActionsFor(ctx context.Context, userID string) ([]string, error) {
	ok, err := e.IsConfigured(ctx, userID)
	if err != nil {
		return nil, err
	}
	if ok {
		return nil, nil
	}
	return []string{RequiredActionID}, nil
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

func (e *Engine) metricObserve(id MetricID, d time.Duration) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Observe(id, d)
}

func (e *Engine) translate(locale, messageID string) string {
	if locale == "" {
		locale = e.config.Locale.Default
	}
	return e.catalog.T(locale, messageID)
}

func (e *Engine) logMalformed(credentialID string, err error) {
	if e == nil || e.logger == nil {
		return
	}
	e.logger.Printf("goSecretQ: malformed secret question credential id=%s: %v", credentialID, err)
}

func formatSeconds(d time.Duration) string {
	return strconv.Itoa(int(d / time.Second))
}
