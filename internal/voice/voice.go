// Package voice negotiates a full mesh of peer-to-peer audio links using the
// session channel purely as a signaling relay. Local capture is asynchronous
// and may finish after roster events have already arrived, so peers and
// inbound signals seen too early are queued and replayed, in arrival order,
// exactly once when media becomes ready.
package voice

import (
	"sync"
	"time"

	"github.com/lo0pH0L3z/fpsditchworld-sub001/internal/event"
	"github.com/lo0pH0L3z/fpsditchworld-sub001/internal/protocol"
	"github.com/lo0pH0L3z/fpsditchworld-sub001/internal/util"
)

// Defaults for the activity detector.
const (
	DefaultVADInterval  = 100 * time.Millisecond
	DefaultVADThreshold = 0.05
)

// Signaler relays voice signaling messages to a peer through the session
// channel. *session.Manager implements it.
type Signaler interface {
	SendVoiceSignal(kind string, sig protocol.VoiceSignal) error
}

// SpeakingUpdate is the voice-speaking event payload. PeerID is the local
// identity for local microphone activity.
type SpeakingUpdate struct {
	PeerID   string
	Speaking bool
}

type pendingSignal struct {
	kind string
	sig  protocol.VoiceSignal
}

// peerEntry tracks one mesh link and its negotiation state.
type peerEntry struct {
	id       string
	state    LinkState
	link     link
	speaking bool
}

// Manager owns every peer link, the capture source, and the activity
// detector. One instance per process, constructed at start.
type Manager struct {
	sig     Signaler
	bus     *event.Bus
	devices DeviceManager
	newLink linkFactory

	vadInterval  time.Duration
	vadThreshold float64

	mu             sync.Mutex
	ready          bool
	disabled       bool
	localID        string
	source         CaptureSource
	outputID       string
	links          map[string]*peerEntry
	pendingPeers   fifo[string]
	pendingSignals fifo[pendingSignal]
	analyzer       analyzer
	localSpeaking  bool

	stop     chan struct{}
	stopOnce sync.Once
}

// Option adjusts manager construction.
type Option func(*Manager)

// WithVADInterval overrides the activity-detection timer period.
func WithVADInterval(d time.Duration) Option {
	return func(m *Manager) { m.vadInterval = d }
}

// WithVADThreshold overrides the speaking level threshold.
func WithVADThreshold(v float64) Option {
	return func(m *Manager) { m.vadThreshold = v }
}

// NewManager creates a voice mesh manager signaling through sig and
// publishing speaking updates on bus.
func NewManager(sig Signaler, bus *event.Bus, devices DeviceManager, opts ...Option) *Manager {
	m := &Manager{
		sig:          sig,
		bus:          bus,
		devices:      devices,
		newLink:      newPionLink,
		vadInterval:  DefaultVADInterval,
		vadThreshold: DefaultVADThreshold,
		links:        make(map[string]*peerEntry),
		stop:         make(chan struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// ---------------------------------------------------------------------------
// Lifecycle
// ---------------------------------------------------------------------------

// Init acquires the default capture device and drains both pending queues,
// in arrival order, exactly once. Capture failure disables voice for the
// session; the game continues without it. The pump and detector goroutines
// live until Close.
func (m *Manager) Init() error {
	inputs, err := m.devices.Inputs()
	if err != nil || len(inputs) == 0 {
		m.disable("no capture device available: %v", err)
		return nil
	}

	src, err := m.devices.OpenInput(inputs[0].ID)
	if err != nil {
		m.disable("opening %q failed: %v", inputs[0].Label, err)
		return nil
	}

	m.mu.Lock()
	m.source = src
	m.ready = true
	peers := m.pendingPeers.Drain()
	signals := m.pendingSignals.Drain()
	m.mu.Unlock()

	util.LogInfo("voice: capture ready (%s), replaying %d peers and %d signals",
		src.Label(), len(peers), len(signals))

	for _, id := range peers {
		m.initiate(id)
	}
	for _, ps := range signals {
		m.process(ps.kind, ps.sig)
	}

	go m.pumpLoop()
	go m.vadLoop()
	return nil
}

func (m *Manager) disable(format string, args ...interface{}) {
	m.mu.Lock()
	m.disabled = true
	m.mu.Unlock()
	util.LogWarning("voice: disabled — "+format, args...)
}

// SetLocalID records the server-assigned identity, used to tag local
// speaking updates.
func (m *Manager) SetLocalID(id string) {
	m.mu.Lock()
	m.localID = id
	m.mu.Unlock()
}

// Close tears down every link and the capture source, immediately and
// unconditionally.
func (m *Manager) Close() {
	m.stopOnce.Do(func() { close(m.stop) })

	m.mu.Lock()
	src := m.source
	m.source = nil
	entries := make([]*peerEntry, 0, len(m.links))
	for _, e := range m.links {
		entries = append(entries, e)
	}
	m.links = make(map[string]*peerEntry)
	m.ready = false
	m.mu.Unlock()

	if src != nil {
		_ = src.Close()
	}
	for _, e := range entries {
		_ = e.link.Close()
	}
}

// ---------------------------------------------------------------------------
// Roster events
// ---------------------------------------------------------------------------

// PeerJoined starts (or queues) the link toward a newly known peer.
func (m *Manager) PeerJoined(id string) {
	m.mu.Lock()
	if m.disabled || id == m.localID {
		m.mu.Unlock()
		return
	}
	if !m.ready {
		m.pendingPeers.Push(id)
		m.mu.Unlock()
		return
	}
	m.mu.Unlock()

	m.initiate(id)
}

// PeerLeft tears down the link for a departed peer.
func (m *Manager) PeerLeft(id string) {
	m.mu.Lock()
	entry := m.links[id]
	delete(m.links, id)
	m.mu.Unlock()

	if entry != nil {
		m.closeEntry(entry)
	}
}

// HandleSignal ingests one relayed offer/answer/candidate. Before media is
// ready signals are buffered; afterwards they are processed inline on the
// session read goroutine, preserving arrival order.
func (m *Manager) HandleSignal(kind string, sig protocol.VoiceSignal) {
	m.mu.Lock()
	if m.disabled {
		m.mu.Unlock()
		return
	}
	if !m.ready {
		m.pendingSignals.Push(pendingSignal{kind: kind, sig: sig})
		m.mu.Unlock()
		return
	}
	m.mu.Unlock()

	m.process(kind, sig)
}

// ---------------------------------------------------------------------------
// Negotiation
// ---------------------------------------------------------------------------

// initiate creates a link for id and sends the offer. A link that already
// exists is left alone; the remote side's competing offer, if any, will
// replace it through the offer path.
func (m *Manager) initiate(id string) {
	m.mu.Lock()
	if _, exists := m.links[id]; exists {
		m.mu.Unlock()
		return
	}
	m.mu.Unlock()

	entry, ok := m.createEntry(id)
	if !ok {
		return
	}

	offer, err := entry.link.CreateOffer()
	if err != nil {
		util.LogWarning("voice: offer for %s failed: %v", id, err)
		m.teardown(entry)
		return
	}

	m.setState(entry, LinkOfferSent)
	m.sendSignal(protocol.MsgVoiceOffer, protocol.VoiceSignal{To: id, SDP: offer})
}

func (m *Manager) process(kind string, sig protocol.VoiceSignal) {
	from := sig.From

	switch kind {
	case protocol.MsgVoiceOffer:
		// An offer for a peer that already has a link means a stale
		// leftover from a race: both sides initiated, or the remote
		// restarted. Replace, never layer.
		m.mu.Lock()
		stale := m.links[from]
		delete(m.links, from)
		m.mu.Unlock()
		if stale != nil {
			util.LogDebug("voice: replacing existing link for %s (state %s)", from, stale.state)
			m.closeEntry(stale)
		}

		entry, ok := m.createEntry(from)
		if !ok {
			return
		}
		m.setState(entry, LinkOfferReceived)

		answer, err := entry.link.HandleOffer(sig.SDP)
		if err != nil {
			util.LogWarning("voice: answering %s failed: %v", from, err)
			m.teardown(entry)
			return
		}
		m.sendSignal(protocol.MsgVoiceAnswer, protocol.VoiceSignal{To: from, SDP: answer})

	case protocol.MsgVoiceAnswer:
		m.mu.Lock()
		entry := m.links[from]
		m.mu.Unlock()
		if entry == nil || entry.state != LinkOfferSent {
			util.LogDebug("voice: dropping stale answer from %s", from)
			return
		}
		if err := entry.link.HandleAnswer(sig.SDP); err != nil {
			util.LogWarning("voice: answer from %s rejected: %v", from, err)
			m.teardown(entry)
		}

	case protocol.MsgVoiceICE:
		m.mu.Lock()
		entry := m.links[from]
		m.mu.Unlock()
		if entry == nil {
			util.LogDebug("voice: dropping candidate for unknown link %s", from)
			return
		}
		if err := entry.link.AddCandidate(sig.Candidate); err != nil {
			util.LogDebug("voice: candidate from %s rejected: %v", from, err)
		}
	}
}

// createEntry builds and registers a wired link for id.
func (m *Manager) createEntry(id string) (*peerEntry, bool) {
	l, err := m.newLink(id)
	if err != nil {
		util.LogWarning("voice: link for %s failed: %v", id, err)
		return nil, false
	}

	entry := &peerEntry{id: id, state: LinkNew, link: l}

	l.OnCandidate(func(candidate string) {
		m.sendSignal(protocol.MsgVoiceICE, protocol.VoiceSignal{To: id, Candidate: candidate})
	})
	l.OnConnected(func() {
		m.setState(entry, LinkConnected)
		util.LogInfo("voice: link to %s connected", id)
	})
	l.OnClosed(func() {
		m.teardown(entry)
	})

	m.mu.Lock()
	m.links[id] = entry
	outputID := m.outputID
	m.mu.Unlock()

	if outputID != "" {
		if err := l.SetOutput(outputID); err != nil {
			util.LogDebug("voice: output routing for %s: %v", id, err)
		}
	}
	return entry, true
}

func (m *Manager) setState(entry *peerEntry, s LinkState) {
	m.mu.Lock()
	if m.links[entry.id] == entry && entry.state != LinkClosed {
		entry.state = s
	}
	m.mu.Unlock()
}

// teardown removes entry if it is still the registered link for its peer.
// Safe against racing recreates: a newer entry under the same id survives.
func (m *Manager) teardown(entry *peerEntry) {
	m.mu.Lock()
	if m.links[entry.id] == entry {
		delete(m.links, entry.id)
	}
	m.mu.Unlock()
	m.closeEntry(entry)
}

func (m *Manager) closeEntry(entry *peerEntry) {
	m.mu.Lock()
	entry.state = LinkClosed
	wasSpeaking := entry.speaking
	entry.speaking = false
	m.mu.Unlock()

	_ = entry.link.Close()
	if wasSpeaking {
		m.bus.Publish(event.VoiceSpeaking, SpeakingUpdate{PeerID: entry.id, Speaking: false})
	}
}

func (m *Manager) sendSignal(kind string, sig protocol.VoiceSignal) {
	if err := m.sig.SendVoiceSignal(kind, sig); err != nil {
		util.LogWarning("voice: signaling %s to %s failed: %v", kind, sig.To, err)
	}
}

// ---------------------------------------------------------------------------
// Introspection
// ---------------------------------------------------------------------------

// Speaking reports the current voice-activity flag for a peer (or the local
// player when id is the local identity).
func (m *Manager) Speaking(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if id == m.localID {
		return m.localSpeaking
	}
	if e, ok := m.links[id]; ok {
		return e.speaking
	}
	return false
}

// LinkStates returns the negotiation state of every live link.
func (m *Manager) LinkStates() map[string]LinkState {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]LinkState, len(m.links))
	for id, e := range m.links {
		out[id] = e.state
	}
	return out
}

// Pending reports the queued peer and signal counts (zero after Init).
func (m *Manager) Pending() (peers, signals int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pendingPeers.Len(), m.pendingSignals.Len()
}
