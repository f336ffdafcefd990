package voice

import (
	"fmt"
	"time"

	"github.com/lo0pH0L3z/fpsditchworld-sub001/internal/event"
	"github.com/lo0pH0L3z/fpsditchworld-sub001/internal/util"
)

// ---------------------------------------------------------------------------
// Device management
// ---------------------------------------------------------------------------

// SetInputDevice switches capture to a new input. The old source is stopped
// and the new one feeds every existing link through the pump; connections
// are never renegotiated for a device switch.
func (m *Manager) SetInputDevice(id string) error {
	src, err := m.devices.OpenInput(id)
	if err != nil {
		return fmt.Errorf("voice: open input %q: %w", id, err)
	}

	m.mu.Lock()
	if m.disabled || !m.ready {
		m.mu.Unlock()
		_ = src.Close()
		return fmt.Errorf("voice: not initialized")
	}
	old := m.source
	m.source = src
	m.mu.Unlock()

	if old != nil {
		_ = old.Close()
	}
	util.LogInfo("voice: input switched to %s", src.Label())
	return nil
}

// SetOutputDevice selects where remote audio plays. Applied per sink,
// best-effort: environments without output routing keep their default.
func (m *Manager) SetOutputDevice(id string) {
	m.mu.Lock()
	m.outputID = id
	entries := make([]*peerEntry, 0, len(m.links))
	for _, e := range m.links {
		entries = append(entries, e)
	}
	m.mu.Unlock()

	for _, e := range entries {
		if err := e.link.SetOutput(id); err != nil {
			util.LogDebug("voice: output routing for %s: %v", e.id, err)
		}
	}
}

// ---------------------------------------------------------------------------
// Capture pump
// ---------------------------------------------------------------------------

// pumpLoop moves frames from the current capture source into the analyzer
// and every connected link. A source swapped mid-session simply becomes the
// next read target; a closed source's read error re-fetches it.
func (m *Manager) pumpLoop() {
	for {
		select {
		case <-m.stop:
			return
		default:
		}

		m.mu.Lock()
		src := m.source
		m.mu.Unlock()
		if src == nil {
			time.Sleep(20 * time.Millisecond)
			continue
		}

		frame, err := src.Read()
		if err != nil {
			continue // device switch or shutdown; loop re-checks
		}

		m.mu.Lock()
		m.analyzer.write(frame.PCM)
		targets := make([]*peerEntry, 0, len(m.links))
		for _, e := range m.links {
			if e.state == LinkConnected {
				targets = append(targets, e)
			}
		}
		m.mu.Unlock()

		for _, e := range targets {
			if err := e.link.WriteFrame(frame); err != nil {
				util.LogDebug("voice: frame to %s dropped: %v", e.id, err)
			}
		}
	}
}

// ---------------------------------------------------------------------------
// Voice activity detection
// ---------------------------------------------------------------------------

// vadLoop samples local and remote audio energy on a fixed low-rate timer
// rather than every frame. A level crossing toggles the speaking flag for
// that identity; the timer granularity is the only debounce. The loop runs
// for the life of the manager, stopping only on Close.
func (m *Manager) vadLoop() {
	ticker := time.NewTicker(m.vadInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			for _, u := range m.sampleActivity() {
				m.bus.Publish(event.VoiceSpeaking, u)
			}
		case <-m.stop:
			return
		}
	}
}

// sampleActivity computes the current speaking flags and returns only the
// ones that toggled.
func (m *Manager) sampleActivity() []SpeakingUpdate {
	m.mu.Lock()
	defer m.mu.Unlock()

	var updates []SpeakingUpdate

	local := m.analyzer.level() > m.vadThreshold
	if local != m.localSpeaking && m.localID != "" {
		m.localSpeaking = local
		updates = append(updates, SpeakingUpdate{PeerID: m.localID, Speaking: local})
	}

	for _, e := range m.links {
		if e.state != LinkConnected {
			continue
		}
		speaking := e.link.RemoteLevel() > m.vadThreshold
		if speaking != e.speaking {
			e.speaking = speaking
			updates = append(updates, SpeakingUpdate{PeerID: e.id, Speaking: speaking})
		}
	}
	return updates
}
