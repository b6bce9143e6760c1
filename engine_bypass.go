package goSecretQ

import (
	"fmt"
	"net/http"

	"github.com/MrEthical07/goSecretQ/internal/flows"
)

// RealmBasePath returns the escaped cookie path "<base path>/realms/<realm>".
func (e *Engine) RealmBasePath(baseURI, realm string) (string, error) {
	return markerPath(StepRequest{BaseURI: baseURI, Realm: realm})
}

// IssueMarker creates the answered-marker cookie for req without running the
// challenge. Max age comes from req.AuthenticatorConfig like in Action.
func (e *Engine) IssueMarker(req StepRequest) (*http.Cookie, error) {
	if e == nil || e.marker == nil {
		return nil, ErrEngineNotReady
	}
	maxAge, err := flows.ResolveMaxAge(req.AuthenticatorConfig, e.config.Bypass.DefaultMaxAge, ErrConfiguration)
	if err != nil {
		return nil, err
	}
	path, err := markerPath(req)
	if err != nil {
		return nil, err
	}
	c, err := e.marker.Issue(path, maxAge)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMarkerIssue, err)
	}
	e.metricInc(MetricBypassIssued)
	return c, nil
}

// HasMarker reports whether req carries a live marker for its realm.
func (e *Engine) HasMarker(req StepRequest) bool {
	if e == nil || e.marker == nil {
		return false
	}
	path, err := markerPath(req)
	if err != nil {
		return false
	}
	return e.marker.Present(req.Cookies, path)
}
