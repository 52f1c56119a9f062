package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestInviteCounters(t *testing.T) {
	m := New()

	m.InviteIssued()
	m.InviteIssued()
	m.InviteAccepted()
	m.InviteRejected(ReasonInvalidToken)
	m.InviteRejected(ReasonInvalidToken)
	m.InviteRejected(ReasonHasFamily)
	m.InvitesPurged(3)
	m.InvitesPurged(0)

	tests := []struct {
		name string
		got  float64
		want float64
	}{
		{"issued", testutil.ToFloat64(m.invitesIssued), 2},
		{"accepted", testutil.ToFloat64(m.invitesAccepted), 1},
		{"rejected invalid", testutil.ToFloat64(m.invitesRejected.WithLabelValues(ReasonInvalidToken)), 2},
		{"rejected has family", testutil.ToFloat64(m.invitesRejected.WithLabelValues(ReasonHasFamily)), 1},
		{"purged", testutil.ToFloat64(m.invitesPurged), 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("%s = %v, want %v", tt.name, tt.got, tt.want)
			}
		})
	}
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.InviteIssued()
	m.InviteAccepted()
	m.InviteRejected(ReasonEmailMismatch)
	m.InvitesPurged(1)
	m.ObserveRequest("GET", "/health", 200, time.Millisecond)
}

func TestHandlerExposesRequests(t *testing.T) {
	m := New()
	m.ObserveRequest("GET", "/api/lists/active", 200, 5*time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body := rec.Body.String()
	want := `familycart_http_requests_total{method="GET",route="/api/lists/active",status="200"} 1`
	if !strings.Contains(body, want) {
		t.Errorf("metrics output missing %q", want)
	}
}
