package action

import "github.com/sctg-development/photoacoustic-core/internal/metrics"

// Registry names the dispatchers running in a process, keyed by the
// driver kind each one serves ("https", "redis", "kafka", "push"),
// adapted into a
// metrics.DriverStatusProvider.
type Registry map[string]*Dispatcher

// GetAllDriverStatuses satisfies metrics.DriverStatusProvider.
func (r Registry) GetAllDriverStatuses() []metrics.DriverStatusEntry {
	out := make([]metrics.DriverStatusEntry, 0, len(r))
	for _, d := range r {
		out = append(out, metrics.DriverStatusEntry{
			DriverType: d.DriverType(),
			Healthy:    d.Healthy(),
		})
	}
	return out
}
