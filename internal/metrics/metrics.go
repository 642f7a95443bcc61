// Package metrics exposes a single prometheus.Collector that gathers
// photoacoustic core metrics at scrape time from whatever subsystems are
// wired in: graph node timings, action driver health, thermal regulator
// telemetry, and the Modbus/TCP request counter.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// GraphNodeTiming is one node's execution statistics as of the last scrape.
type GraphNodeTiming struct {
	NodeID       string
	NodeType     string
	Executions   uint64
	Errors       uint64
	LastDuration time.Duration
}

// GraphNodeTimingProvider exposes per-node execution timings for one
// processing graph; internal/graph.Graph's GraphID and NodeTimings
// methods satisfy it.
type GraphNodeTimingProvider interface {
	GraphID() string
	NodeTimings() []GraphNodeTiming
}

// DriverStatusEntry is one action driver's last known health, as reported
// by its own GetStatus call.
type DriverStatusEntry struct {
	DriverType string
	Healthy    bool
}

// DriverStatusProvider exposes the health of every configured action
// driver. Implementations are expected to poll Driver.GetStatus on their
// own schedule and cache the result — Collect must never block on I/O.
type DriverStatusProvider interface {
	GetAllDriverStatuses() []DriverStatusEntry
}

// ThermalTelemetryEntry is one regulator's last observed temperature and
// fault state.
type ThermalTelemetryEntry struct {
	RegulatorID     string
	Setpoint        float64
	LastTemperature float64
	Faulted         bool
}

// ThermalTelemetryProvider exposes every configured regulator's status.
type ThermalTelemetryProvider interface {
	GetAllThermalStatuses() []ThermalTelemetryEntry
}

// ModbusRequestCounter exposes cumulative Modbus/TCP request counts by
// function code and outcome, maintained by internal/modbus.Server.
type ModbusRequestCounter interface {
	RequestCounts() map[string]uint64 // keyed "function_code:outcome"
}

// Collector is a prometheus.Collector that gathers photoacoustic core
// metrics at scrape time. Any provider may be nil if that subsystem isn't
// wired into the running process (e.g. no thermal regulators configured).
type Collector struct {
	graphs    []GraphNodeTimingProvider
	drivers   DriverStatusProvider
	thermal   ThermalTelemetryProvider
	modbus    ModbusRequestCounter
	startTime time.Time

	nodeExecutionsDesc   *prometheus.Desc
	nodeErrorsDesc       *prometheus.Desc
	nodeLastDurationDesc *prometheus.Desc
	driverHealthDesc     *prometheus.Desc
	thermalSetpointDesc  *prometheus.Desc
	thermalTempDesc      *prometheus.Desc
	thermalFaultedDesc   *prometheus.Desc
	modbusRequestsDesc   *prometheus.Desc
	uptimeDesc           *prometheus.Desc
}

// NewCollector creates a new metrics collector. Any provider may be nil.
func NewCollector(
	graphs []GraphNodeTimingProvider,
	drivers DriverStatusProvider,
	thermal ThermalTelemetryProvider,
	modbus ModbusRequestCounter,
	startTime time.Time,
) *Collector {
	return &Collector{
		graphs:    graphs,
		drivers:   drivers,
		thermal:   thermal,
		modbus:    modbus,
		startTime: startTime,

		nodeExecutionsDesc: prometheus.NewDesc(
			"photoacoustic_graph_node_executions_total",
			"Total executions of a processing graph node",
			[]string{"graph_id", "node_id", "node_type"}, nil,
		),
		nodeErrorsDesc: prometheus.NewDesc(
			"photoacoustic_graph_node_errors_total",
			"Total errors raised by a processing graph node",
			[]string{"graph_id", "node_id", "node_type"}, nil,
		),
		nodeLastDurationDesc: prometheus.NewDesc(
			"photoacoustic_graph_node_last_duration_seconds",
			"Wall-clock duration of a node's most recent execution",
			[]string{"graph_id", "node_id", "node_type"}, nil,
		),
		driverHealthDesc: prometheus.NewDesc(
			"photoacoustic_action_driver_healthy",
			"Action driver health as of its last status poll (1=healthy, 0=unhealthy)",
			[]string{"driver_type"}, nil,
		),
		thermalSetpointDesc: prometheus.NewDesc(
			"photoacoustic_thermal_setpoint_celsius",
			"Configured setpoint of a thermal regulator",
			[]string{"regulator_id"}, nil,
		),
		thermalTempDesc: prometheus.NewDesc(
			"photoacoustic_thermal_temperature_celsius",
			"Last observed temperature of a thermal regulator",
			[]string{"regulator_id"}, nil,
		),
		thermalFaultedDesc: prometheus.NewDesc(
			"photoacoustic_thermal_faulted",
			"Whether a thermal regulator's safety monitor has latched a fault (1=faulted)",
			[]string{"regulator_id"}, nil,
		),
		modbusRequestsDesc: prometheus.NewDesc(
			"photoacoustic_modbus_requests_total",
			"Total Modbus/TCP requests handled, by function code and outcome",
			[]string{"function_code", "outcome"}, nil,
		),
		uptimeDesc: prometheus.NewDesc(
			"photoacoustic_uptime_seconds",
			"Seconds since the photoacoustic core process started",
			nil, nil,
		),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.nodeExecutionsDesc
	ch <- c.nodeErrorsDesc
	ch <- c.nodeLastDurationDesc
	ch <- c.driverHealthDesc
	ch <- c.thermalSetpointDesc
	ch <- c.thermalTempDesc
	ch <- c.thermalFaultedDesc
	ch <- c.modbusRequestsDesc
	ch <- c.uptimeDesc
}

// Collect implements prometheus.Collector. It queries all providers at
// scrape time; every provider is expected to return cached state rather
// than perform I/O inline.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	for _, g := range c.graphs {
		graphID := g.GraphID()
		for _, t := range g.NodeTimings() {
			ch <- prometheus.MustNewConstMetric(
				c.nodeExecutionsDesc, prometheus.CounterValue,
				float64(t.Executions), graphID, t.NodeID, t.NodeType,
			)
			ch <- prometheus.MustNewConstMetric(
				c.nodeErrorsDesc, prometheus.CounterValue,
				float64(t.Errors), graphID, t.NodeID, t.NodeType,
			)
			ch <- prometheus.MustNewConstMetric(
				c.nodeLastDurationDesc, prometheus.GaugeValue,
				t.LastDuration.Seconds(), graphID, t.NodeID, t.NodeType,
			)
		}
	}

	if c.drivers != nil {
		for _, d := range c.drivers.GetAllDriverStatuses() {
			val := 0.0
			if d.Healthy {
				val = 1.0
			}
			ch <- prometheus.MustNewConstMetric(
				c.driverHealthDesc, prometheus.GaugeValue, val, d.DriverType,
			)
		}
	}

	if c.thermal != nil {
		for _, t := range c.thermal.GetAllThermalStatuses() {
			ch <- prometheus.MustNewConstMetric(
				c.thermalSetpointDesc, prometheus.GaugeValue,
				t.Setpoint, t.RegulatorID,
			)
			ch <- prometheus.MustNewConstMetric(
				c.thermalTempDesc, prometheus.GaugeValue,
				t.LastTemperature, t.RegulatorID,
			)
			faulted := 0.0
			if t.Faulted {
				faulted = 1.0
			}
			ch <- prometheus.MustNewConstMetric(
				c.thermalFaultedDesc, prometheus.GaugeValue,
				faulted, t.RegulatorID,
			)
		}
	}

	if c.modbus != nil {
		for key, count := range c.modbus.RequestCounts() {
			fc, outcome := splitRequestKey(key)
			ch <- prometheus.MustNewConstMetric(
				c.modbusRequestsDesc, prometheus.CounterValue,
				float64(count), fc, outcome,
			)
		}
	}

	ch <- prometheus.MustNewConstMetric(
		c.uptimeDesc, prometheus.GaugeValue,
		time.Since(c.startTime).Seconds(),
	)
}

// splitRequestKey splits a "function_code:outcome" key, defaulting outcome
// to "unknown" if the key wasn't built with the expected separator.
func splitRequestKey(key string) (functionCode, outcome string) {
	for i := 0; i < len(key); i++ {
		if key[i] == ':' {
			return key[:i], key[i+1:]
		}
	}
	return key, "unknown"
}
