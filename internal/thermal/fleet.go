package thermal

import "github.com/sctg-development/photoacoustic-core/internal/metrics"

// Fleet is a named set of regulators, the same keying the HTTP status/
// setpoint endpoints use, adapted here into a metrics.ThermalTelemetryProvider
// so the collector can scrape every regulator's last reading in one pass.
type Fleet map[string]*Regulator

// GetAllThermalStatuses satisfies metrics.ThermalTelemetryProvider.
func (f Fleet) GetAllThermalStatuses() []metrics.ThermalTelemetryEntry {
	out := make([]metrics.ThermalTelemetryEntry, 0, len(f))
	for _, r := range f {
		s := r.Status()
		out = append(out, metrics.ThermalTelemetryEntry{
			RegulatorID:     s.ID,
			Setpoint:        s.Setpoint,
			LastTemperature: s.LastTemperature,
			Faulted:         s.Faulted,
		})
	}
	return out
}
