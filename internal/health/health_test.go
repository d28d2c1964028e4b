package health

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func phaseCheck(status Status, phase string) CheckFunc {
	return func(ctx context.Context) Check {
		return Check{
			Status:    status,
			Timestamp: time.Now(),
			Details:   map[string]interface{}{"phase": phase},
		}
	}
}

func TestChecker_CheckHealth(t *testing.T) {
	tests := []struct {
		name       string
		checks     map[string]CheckFunc
		wantStatus Status
		wantNames  []string
	}{
		{
			name:       "no checks",
			wantStatus: StatusHealthy,
		},
		{
			name: "polling run",
			checks: map[string]CheckFunc{
				"orchestrator": phaseCheck(StatusHealthy, "polling"),
				"storage":      phaseCheck(StatusHealthy, ""),
			},
			wantStatus: StatusHealthy,
			wantNames:  []string{"orchestrator", "storage"},
		},
		{
			name: "timed out run",
			checks: map[string]CheckFunc{
				"orchestrator": phaseCheck(StatusUnhealthy, "timed_out"),
				"storage":      phaseCheck(StatusHealthy, ""),
			},
			wantStatus: StatusUnhealthy,
			wantNames:  []string{"orchestrator", "storage"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checker := NewChecker()
			for name, fn := range tt.checks {
				checker.RegisterCheck(name, fn)
			}

			report := checker.CheckHealth(context.Background())
			if report.Status != tt.wantStatus {
				t.Errorf("Status = %q, want %q", report.Status, tt.wantStatus)
			}
			if len(report.Checks) != len(tt.checks) {
				t.Errorf("got %d checks, want %d", len(report.Checks), len(tt.checks))
			}

			names := checker.Names()
			if len(names) != len(tt.wantNames) {
				t.Fatalf("Names() = %v, want %v", names, tt.wantNames)
			}
			for i := range names {
				if names[i] != tt.wantNames[i] {
					t.Errorf("Names() = %v, want %v", names, tt.wantNames)
				}
			}
		})
	}
}

func TestChecker_RegisterReplaces(t *testing.T) {
	checker := NewChecker()
	checker.RegisterCheck("orchestrator", phaseCheck(StatusUnhealthy, "failed"))
	checker.RegisterCheck("orchestrator", phaseCheck(StatusHealthy, "done"))

	report := checker.CheckHealth(context.Background())
	if report.Status != StatusHealthy {
		t.Errorf("Status = %q, want healthy", report.Status)
	}
	if got := report.Checks["orchestrator"].Details["phase"]; got != "done" {
		t.Errorf("phase = %v, want done", got)
	}
}

func TestChecker_Handler(t *testing.T) {
	tests := []struct {
		name     string
		status   Status
		phase    string
		wantCode int
	}{
		{name: "healthy", status: StatusHealthy, phase: "downloading", wantCode: http.StatusOK},
		{name: "unhealthy", status: StatusUnhealthy, phase: "artifact_unavailable", wantCode: http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checker := NewChecker()
			checker.RegisterCheck("orchestrator", phaseCheck(tt.status, tt.phase))

			rr := httptest.NewRecorder()
			checker.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

			if rr.Code != tt.wantCode {
				t.Errorf("status code = %d, want %d", rr.Code, tt.wantCode)
			}
			if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
				t.Errorf("Content-Type = %q, want application/json", ct)
			}

			var report Report
			if err := json.NewDecoder(rr.Body).Decode(&report); err != nil {
				t.Fatalf("failed to decode report: %v", err)
			}
			if report.Status != tt.status {
				t.Errorf("report status = %q, want %q", report.Status, tt.status)
			}
			if got := report.Checks["orchestrator"].Details["phase"]; got != tt.phase {
				t.Errorf("phase = %v, want %q", got, tt.phase)
			}
		})
	}
}

func TestProbeHandlers(t *testing.T) {
	tests := []struct {
		path    string
		handler http.HandlerFunc
		want    string
	}{
		{path: "/ready", handler: ReadinessHandler(), want: "ready\n"},
		{path: "/live", handler: LivenessHandler(), want: "alive\n"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rr := httptest.NewRecorder()
			tt.handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, tt.path, nil))

			if rr.Code != http.StatusOK {
				t.Errorf("status code = %d, want %d", rr.Code, http.StatusOK)
			}
			if rr.Body.String() != tt.want {
				t.Errorf("body = %q, want %q", rr.Body.String(), tt.want)
			}
		})
	}
}
