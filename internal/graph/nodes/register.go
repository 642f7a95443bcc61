package nodes

import (
	"fmt"
	"time"

	"github.com/sctg-development/photoacoustic-core/internal/action"
	"github.com/sctg-development/photoacoustic-core/internal/dsp/filter"
	"github.com/sctg-development/photoacoustic-core/internal/graph"
)

// Register wires factories for every standard node kind into b, the
// same kind-string-to-constructor dispatch a media pipeline's node
// builder uses, generalized here to return concrete graph.Node values
// instead of pipeline element strings. action_universal nodes built
// this way never reach a live driver; use RegisterWithDispatchers when
// the topology includes configured action drivers.
func Register(b *graph.Builder) {
	RegisterWithDispatchers(b, nil)
}

// RegisterWithDispatchers behaves like Register, except that an
// action_universal node whose spec sets params.driver to a key present
// in dispatchers is wired to that live action.Dispatcher instead of
// running in history-only mode.
func RegisterWithDispatchers(b *graph.Builder, dispatchers map[string]*action.Dispatcher) {
	b.RegisterFactory("input", func(spec graph.NodeSpec, shared *graph.SharedData) (graph.Node, error) {
		return NewInputNode(spec.ID), nil
	})

	b.RegisterFactory("channel_selector", func(spec graph.NodeSpec, shared *graph.SharedData) (graph.Node, error) {
		channel, _ := spec.Params["channel"].(string)
		return NewChannelSelectorNode(spec.ID, channel), nil
	})

	b.RegisterFactory("channel_mixer", func(spec graph.NodeSpec, shared *graph.SharedData) (graph.Node, error) {
		wa := paramFloat32(spec.Params, "weight_a", 0.5)
		wb := paramFloat32(spec.Params, "weight_b", 0.5)
		return NewChannelMixerNode(spec.ID, wa, wb), nil
	})

	b.RegisterFactory("differential", func(spec graph.NodeSpec, shared *graph.SharedData) (graph.Node, error) {
		return NewDifferentialNode(spec.ID), nil
	})

	b.RegisterFactory("fft", func(spec graph.NodeSpec, shared *graph.SharedData) (graph.Node, error) {
		size := paramInt(spec.Params, "window_size", 2048)
		return NewFFTNode(spec.ID, size), nil
	})

	b.RegisterFactory("filter", func(spec graph.NodeSpec, shared *graph.SharedData) (graph.Node, error) {
		f, err := buildFilter(spec.Params)
		if err != nil {
			return nil, fmt.Errorf("filter %s: %w", spec.ID, err)
		}
		return NewFilterNode(spec.ID, f), nil
	})

	b.RegisterFactory("peak_finder", func(spec graph.NodeSpec, shared *graph.SharedData) (graph.Node, error) {
		resonance := paramFloat64(spec.Params, "expected_resonance_hz", 1000)
		window := paramFloat64(spec.Params, "search_window_hz", 50)
		return NewPeakFinderNode(spec.ID, shared, resonance, window), nil
	})

	b.RegisterFactory("concentration", func(spec graph.NodeSpec, shared *graph.SharedData) (graph.Node, error) {
		maxPPM := paramFloat64(spec.Params, "max_ppm", 5000)
		if coeffs, ok := spec.Params["polynomial"].([]float64); ok {
			return NewConcentrationPolynomialNode(spec.ID, shared, coeffs, maxPPM), nil
		}
		return NewConcentrationPolynomialNode(spec.ID, shared, []float64{0, 1}, maxPPM), nil
	})

	b.RegisterFactory("action_universal", func(spec graph.NodeSpec, shared *graph.SharedData) (graph.Node, error) {
		capacity := paramInt(spec.Params, "history_capacity", 100)
		hist := action.NewHistory(capacity)
		throttleMs := paramInt(spec.Params, "throttle_ms", 1000)
		throttle := action.NewThrottle(durationMs(throttleMs))

		var thresholds action.Thresholds
		if v, ok := spec.Params["concentration_threshold_ppm"]; ok {
			f := paramFloat64(map[string]any{"v": v}, "v", 0)
			thresholds.ConcentrationPPM = &f
		}

		var dispatcher *action.Dispatcher
		if driverKey, ok := spec.Params["driver"].(string); ok {
			dispatcher = dispatchers[driverKey]
		}

		a := action.NewNode(spec.ID, hist, thresholds, throttle, dispatcher)
		return NewActionUniversalNode(spec.ID, shared, a), nil
	})
}

func buildFilter(params map[string]any) (filter.Filter, error) {
	kind, _ := params["filter_type"].(string)
	sampleRate := uint32(paramInt(params, "sample_rate", 48000))
	order := paramInt(params, "order", 2)

	switch kind {
	case "bandpass", "":
		center := paramFloat32(params, "center_freq", 1000)
		bandwidth := paramFloat32(params, "bandwidth", 200)
		return filter.NewBandpassFilter(center, bandwidth).WithSampleRate(sampleRate).WithOrder(order), nil
	case "lowpass":
		cutoff := paramFloat32(params, "cutoff_freq", 1000)
		return filter.NewLowpassFilter(cutoff).WithSampleRate(sampleRate).WithOrder(order), nil
	case "highpass":
		cutoff := paramFloat32(params, "cutoff_freq", 100)
		return filter.NewHighpassFilter(cutoff).WithSampleRate(sampleRate).WithOrder(order), nil
	default:
		return nil, fmt.Errorf("unknown filter_type %q", kind)
	}
}

func paramFloat32(params map[string]any, key string, def float32) float32 {
	v, err := toFloat32(params[key])
	if err != nil {
		return def
	}
	return v
}

func paramFloat64(params map[string]any, key string, def float64) float64 {
	v, err := toFloat64(params[key])
	if err != nil {
		return def
	}
	return v
}

func paramInt(params map[string]any, key string, def int) int {
	v, err := toInt(params[key])
	if err != nil {
		return def
	}
	return v
}

func durationMs(ms int) time.Duration {
	return time.Duration(ms) * time.Millisecond
}
