// Package graph implements the hot-reconfigurable DAG of DSP and
// analytical nodes that turns acquired audio frames into peak and
// concentration estimates, mirroring the node/graph split of the
// original photoacoustic processing pipeline in Go idiom: nodes are
// interfaces, the graph owns scheduling and telemetry, and
// reconfiguration is a diff against the live node set rather than a
// full rebuild.
package graph

import (
	"time"

	"github.com/sctg-development/photoacoustic-core/internal/acquisition"
)

// Kind identifies the variant currently held by a ProcessingData value.
type Kind int

const (
	KindEmpty Kind = iota
	KindAudioFrame
	KindDualChannel
	KindSingleChannel
	KindSpectrum
)

func (k Kind) String() string {
	switch k {
	case KindAudioFrame:
		return "AudioFrame"
	case KindDualChannel:
		return "DualChannel"
	case KindSingleChannel:
		return "SingleChannel"
	case KindSpectrum:
		return "Spectrum"
	default:
		return "Empty"
	}
}

// ProcessingData is the tagged-union value flowing between graph
// nodes. Only the field matching Kind is meaningful; the others are
// left zero. A single concrete type (rather than an interface) keeps
// node implementations free of type assertions on every hop and
// matches how the original ProcessingData enum is consumed by pattern
// matching at each node boundary.
type ProcessingData struct {
	Kind Kind

	Frame acquisition.AudioFrame

	ChannelA []float32
	ChannelB []float32

	Samples []float32

	Bins []complex64

	SampleRate uint32
	FrameNo    uint64
}

// Empty is the canonical zero-value ProcessingData.
var Empty = ProcessingData{Kind: KindEmpty}

// FromAudioFrame lifts a raw acquisition frame into the graph's
// tagged-union representation, the conversion performed by the input
// node.
func FromAudioFrame(f acquisition.AudioFrame) ProcessingData {
	return ProcessingData{
		Kind:       KindAudioFrame,
		Frame:      f,
		SampleRate: f.SampleRate,
		FrameNo:    f.FrameIndex,
	}
}

// DualChannel constructs a DualChannel variant.
func DualChannel(a, b []float32, rate uint32, frameNo uint64) ProcessingData {
	return ProcessingData{Kind: KindDualChannel, ChannelA: a, ChannelB: b, SampleRate: rate, FrameNo: frameNo}
}

// SingleChannel constructs a SingleChannel variant.
func SingleChannel(samples []float32, rate uint32, frameNo uint64) ProcessingData {
	return ProcessingData{Kind: KindSingleChannel, Samples: samples, SampleRate: rate, FrameNo: frameNo}
}

// SpectrumData constructs a Spectrum variant.
func SpectrumData(bins []complex64, rate uint32, frameNo uint64) ProcessingData {
	return ProcessingData{Kind: KindSpectrum, Bins: bins, SampleRate: rate, FrameNo: frameNo}
}

// PeakReading is the most recent spectral peak published to shared
// state by a PeakFinderNode.
type PeakReading struct {
	FrequencyHz float64
	Amplitude   float64
	FrameNo     uint64
	At          time.Time
}

// ConcentrationReading is the most recent concentration estimate
// derived from a PeakReading.
type ConcentrationReading struct {
	PPM     float64
	FrameNo uint64
	At      time.Time
}

// NodeTelemetry captures per-node execution statistics surfaced
// through the graph's serializable view.
type NodeTelemetry struct {
	NodeID       string
	NodeType     string
	Executions   uint64
	Errors       uint64
	LastDuration time.Duration
	LastOutput   Kind
	LastError    string
	LastRunAt    time.Time
}
