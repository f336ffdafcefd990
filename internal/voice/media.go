package voice

import (
	"math"
	"time"
)

// Frame is one chunk of captured audio: the encoded payload handed to the
// outbound track plus the raw samples used for local activity analysis.
type Frame struct {
	Data     []byte
	PCM      []int16
	Duration time.Duration
}

// Device identifies one audio input or output device.
type Device struct {
	ID    string
	Label string
}

// CaptureSource produces audio frames from one input device. Read blocks
// until the next frame is available.
type CaptureSource interface {
	Read() (Frame, error)
	Label() string
	Close() error
}

// DeviceManager enumerates audio devices and opens capture sources.
type DeviceManager interface {
	Inputs() ([]Device, error)
	Outputs() ([]Device, error)
	OpenInput(id string) (CaptureSource, error)
}

// ---------------------------------------------------------------------------
// Local activity analysis
// ---------------------------------------------------------------------------

const analysisWindow = 64 // samples per DFT window

// analyzer estimates voice activity from recent PCM via frequency-domain
// energy averaging. It keeps only the latest window; the VAD timer samples
// it at a low rate, trading detection latency for CPU cost.
type analyzer struct {
	window [analysisWindow]int16
	n      int
}

// write folds new samples into the analysis window.
func (a *analyzer) write(pcm []int16) {
	for _, s := range pcm {
		a.window[a.n%analysisWindow] = s
		a.n++
	}
}

// level returns the average DFT magnitude over the low-frequency bins of
// the latest window, normalized to [0, 1] for full-scale input.
func (a *analyzer) level() float64 {
	if a.n == 0 {
		return 0
	}
	const bins = analysisWindow / 4
	var sum float64
	for k := 1; k <= bins; k++ {
		var re, im float64
		for n := 0; n < analysisWindow; n++ {
			phase := 2 * math.Pi * float64(k) * float64(n) / analysisWindow
			v := float64(a.window[n]) / 32768.0
			re += v * math.Cos(phase)
			im -= v * math.Sin(phase)
		}
		sum += math.Hypot(re, im)
	}
	return sum / float64(bins) / analysisWindow
}

// ---------------------------------------------------------------------------
// Null devices
// ---------------------------------------------------------------------------

// NullDeviceManager provides a single silent input. Headless clients use it
// so the mesh still negotiates and carries (empty) audio.
type NullDeviceManager struct{}

func (NullDeviceManager) Inputs() ([]Device, error) {
	return []Device{{ID: "null", Label: "Null capture"}}, nil
}

func (NullDeviceManager) Outputs() ([]Device, error) {
	return nil, nil
}

func (NullDeviceManager) OpenInput(id string) (CaptureSource, error) {
	return &silentSource{label: id, interval: 20 * time.Millisecond, done: make(chan struct{})}, nil
}

// silentSource paces out empty 20 ms frames.
type silentSource struct {
	label    string
	interval time.Duration
	done     chan struct{}
}

func (s *silentSource) Read() (Frame, error) {
	select {
	case <-time.After(s.interval):
		return Frame{PCM: make([]int16, 960), Duration: s.interval}, nil
	case <-s.done:
		return Frame{}, errSourceClosed
	}
}

func (s *silentSource) Label() string { return s.label }

func (s *silentSource) Close() error {
	select {
	case <-s.done:
	default:
		close(s.done)
	}
	return nil
}
