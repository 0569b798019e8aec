// Package catalog holds the fixed device/metric tree served by the mock
// backend. The tree is immutable after construction and safe for concurrent
// reads from all requests.
package catalog

import "sort"

// Metric describes a single measurable signal on a device
type Metric struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Unit       string `json:"unit"`
	SourceType string `json:"sourceType"`
	AxisID     string `json:"axisId"`
	AxisName   string `json:"axisName"`
}

// Device groups metrics under a machine identifier
type Device struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	Metrics []Metric `json:"metrics"`
}

// DeviceRef is the short listing form of a device
type DeviceRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Catalog is the read-only device tree
type Catalog struct {
	devices []Device
	refPool []string
}

// Source protocol labels used by the catalog
const (
	SourceHTTP  = "http"
	SourceMQTT  = "mqtt"
	SourceOPCUA = "opcua"
)

// Default returns the built-in catalog
func Default() *Catalog {
	return New([]Device{
		{
			ID:   "POAM1",
			Name: "POAM1",
			Metrics: []Metric{
				{ID: "Z.MA", Name: "MA", Unit: "A", SourceType: SourceHTTP, AxisID: "Z", AxisName: "Z"},
				{ID: "Z.MSD", Name: "MSD", Unit: "μm", SourceType: SourceMQTT, AxisID: "Z", AxisName: "Z"},
				{ID: "Z.VEL", Name: "Velocity", Unit: "mm/s", SourceType: SourceOPCUA, AxisID: "Z", AxisName: "Z"},
				{ID: "Rx.MA_3A", Name: "MA_3A", Unit: "A", SourceType: SourceOPCUA, AxisID: "Rx", AxisName: "Rx"},
				{ID: "Rx.POS", Name: "Position", Unit: "deg", SourceType: SourceMQTT, AxisID: "Rx", AxisName: "Rx"},
				{ID: "Ry.TRQ", Name: "Torque", Unit: "Nm", SourceType: SourceHTTP, AxisID: "Ry", AxisName: "Ry"},
			},
		},
		{
			ID:   "POAM2",
			Name: "POAM2",
			Metrics: []Metric{
				{ID: "X.CUR", Name: "Current", Unit: "A", SourceType: SourceHTTP, AxisID: "X", AxisName: "X"},
				{ID: "X.ERR", Name: "Error", Unit: "μm", SourceType: SourceMQTT, AxisID: "X", AxisName: "X"},
				{ID: "Y.CUR", Name: "Current", Unit: "A", SourceType: SourceHTTP, AxisID: "Y", AxisName: "Y"},
			},
		},
		{
			ID:   "LENS_TESTER",
			Name: "LENS_TESTER",
			Metrics: []Metric{
				{ID: "Main.TEMP", Name: "Temperature", Unit: "°C", SourceType: SourceOPCUA, AxisID: "Main", AxisName: "Main"},
				{ID: "Main.HUM", Name: "Humidity", Unit: "%", SourceType: SourceMQTT, AxisID: "Main", AxisName: "Main"},
			},
		},
	})
}

// New builds a catalog from a device tree and precomputes the event
// reference pool
func New(devices []Device) *Catalog {
	c := &Catalog{devices: devices}
	c.refPool = buildRefPool(devices)
	return c
}

// Devices returns id/name pairs for all devices in tree order
func (c *Catalog) Devices() []DeviceRef {
	refs := make([]DeviceRef, 0, len(c.devices))
	for _, d := range c.devices {
		refs = append(refs, DeviceRef{ID: d.ID, Name: d.Name})
	}
	return refs
}

// Tree returns the full device tree
func (c *Catalog) Tree() []Device {
	return c.devices
}

// Metrics returns the metrics of a device, or an empty slice for an unknown
// device id. Unknown devices are not an error.
func (c *Catalog) Metrics(deviceID string) []Metric {
	for _, d := range c.devices {
		if d.ID == deviceID {
			return d.Metrics
		}
	}
	return []Metric{}
}

// EventRefPool returns every reference an event can point at: each device id,
// each <device>.<metric> pair, and each distinct <device>.<axis> pair. Axis
// ids are sorted per device so the pool order is deterministic.
func (c *Catalog) EventRefPool() []string {
	return c.refPool
}

func buildRefPool(devices []Device) []string {
	var pool []string
	for _, d := range devices {
		pool = append(pool, d.ID)

		axisSeen := make(map[string]bool)
		var axisIDs []string
		for _, m := range d.Metrics {
			if m.AxisID != "" && !axisSeen[m.AxisID] {
				axisSeen[m.AxisID] = true
				axisIDs = append(axisIDs, m.AxisID)
			}
			if m.ID != "" {
				pool = append(pool, d.ID+"."+m.ID)
			}
		}

		sort.Strings(axisIDs)
		for _, axisID := range axisIDs {
			pool = append(pool, d.ID+"."+axisID)
		}
	}
	return pool
}
