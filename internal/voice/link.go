package voice

import "errors"

var (
	errSourceClosed = errors.New("voice: capture source closed")

	// ErrOutputUnsupported is returned by links whose environment cannot
	// route audio to a chosen output device. Output selection is
	// best-effort by design.
	ErrOutputUnsupported = errors.New("voice: output routing not supported")
)

// LinkState is the negotiation phase of one peer link.
type LinkState int

const (
	LinkNew LinkState = iota
	LinkOfferSent
	LinkOfferReceived
	LinkConnected
	LinkClosed
)

func (s LinkState) String() string {
	switch s {
	case LinkNew:
		return "new"
	case LinkOfferSent:
		return "offer-sent"
	case LinkOfferReceived:
		return "offer-received"
	case LinkConnected:
		return "connected"
	default:
		return "closed"
	}
}

// link is the negotiation and media surface of one peer connection.
// pionLink wraps a real PeerConnection; tests substitute a fake.
type link interface {
	// CreateOffer generates and applies a local offer, returning its SDP.
	CreateOffer() (string, error)
	// HandleOffer applies a remote offer and returns the local answer SDP.
	HandleOffer(sdp string) (string, error)
	// HandleAnswer applies a remote answer.
	HandleAnswer(sdp string) error
	// AddCandidate ingests a JSON-encoded remote ICE candidate.
	AddCandidate(candidate string) error
	// WriteFrame pushes one captured frame onto the outbound track.
	WriteFrame(f Frame) error
	// RemoteLevel reports inbound audio activity since the previous call.
	RemoteLevel() float64
	// SetOutput routes remote audio to the given output device, if the
	// environment supports it.
	SetOutput(deviceID string) error

	OnCandidate(fn func(candidate string))
	OnConnected(fn func())
	OnClosed(fn func())

	Close() error
}

// linkFactory builds the link for one peer. The default factory creates
// pion-backed links.
type linkFactory func(peerID string) (link, error)
