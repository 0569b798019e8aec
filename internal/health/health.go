// Package health reports liveness and basic system information for the
// backend. The mock has no external dependencies that can fail, so the
// status is "ok" whenever the process answers; the value of the endpoint is
// the timestamp and resource details it carries.
package health

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
)

// Status represents the overall health status
type Status string

const StatusOK Status = "ok"

// Report is the health endpoint payload
type Report struct {
	Status Status         `json:"status"`
	Time   string         `json:"time"`
	Uptime float64        `json:"uptime_seconds"`
	System map[string]any `json:"system,omitempty"`
}

// Checker produces health reports
type Checker struct {
	startTime time.Time
}

// NewChecker creates a health checker
func NewChecker() *Checker {
	return &Checker{startTime: time.Now()}
}

// Report generates the current health report. System details are best
// effort: a probe failure drops the field rather than failing the request.
func (c *Checker) Report() Report {
	report := Report{
		Status: StatusOK,
		Time:   time.Now().UTC().Format(time.RFC3339),
		Uptime: time.Since(c.startTime).Seconds(),
	}

	system := make(map[string]any)
	if vm, err := mem.VirtualMemory(); err == nil {
		system["memory_total_bytes"] = vm.Total
		system["memory_used_bytes"] = vm.Used
		system["memory_used_percent"] = vm.UsedPercent
	}
	if uptime, err := host.Uptime(); err == nil {
		system["host_uptime_seconds"] = uptime
	}
	if len(system) > 0 {
		report.System = system
	}

	return report
}

// HTTPHandler creates an HTTP handler for the health endpoint
func (c *Checker) HTTPHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(c.Report())
	}
}
