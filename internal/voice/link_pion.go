package voice

import (
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/pion/webrtc/v4"
	"github.com/pion/webrtc/v4/pkg/media"

	"github.com/lo0pH0L3z/fpsditchworld-sub001/internal/util"
	webrtcpkg "github.com/lo0pH0L3z/fpsditchworld-sub001/internal/webrtc"
)

// pionLink is the production link: one PeerConnection carrying a local Opus
// track and, once negotiated, the peer's remote audio.
type pionLink struct {
	pc    *webrtc.PeerConnection
	track *webrtc.TrackLocalStaticSample

	mu        sync.Mutex
	remoteSet bool
	pending   []webrtc.ICECandidateInit // candidates received before the remote description

	recvBytes atomic.Int64
	prevBytes int64

	onConnected func()
	onClosed    func()

	closeOnce sync.Once
}

// newPionLink creates a link for peerID with its outbound track attached.
func newPionLink(peerID string) (link, error) {
	pc, err := webrtcpkg.NewPeerConnection()
	if err != nil {
		return nil, fmt.Errorf("voice: peer connection for %s: %w", peerID, err)
	}

	track, err := webrtcpkg.NewVoiceTrack()
	if err != nil {
		pc.Close()
		return nil, fmt.Errorf("voice: track for %s: %w", peerID, err)
	}
	if _, err := pc.AddTrack(track); err != nil {
		pc.Close()
		return nil, fmt.Errorf("voice: attach track for %s: %w", peerID, err)
	}

	l := &pionLink{pc: pc, track: track}

	// pion keeps a single state-change callback, so connect/close interest
	// is dispatched from one registration.
	pc.OnConnectionStateChange(func(state webrtc.PeerConnectionState) {
		util.LogDebug("voice: link %s state %s", peerID, state)
		l.mu.Lock()
		connected, closed := l.onConnected, l.onClosed
		l.mu.Unlock()

		switch state {
		case webrtc.PeerConnectionStateConnected:
			if connected != nil {
				connected()
			}
		case webrtc.PeerConnectionStateFailed, webrtc.PeerConnectionStateClosed:
			if closed != nil {
				closed()
			}
		}
	})

	pc.OnTrack(func(remote *webrtc.TrackRemote, _ *webrtc.RTPReceiver) {
		// Count inbound payload bytes. With Opus DTX the payload rate
		// collapses during silence, so the byte rate tracks voice activity
		// without decoding.
		go func() {
			for {
				pkt, _, err := remote.ReadRTP()
				if err != nil {
					return
				}
				l.recvBytes.Add(int64(len(pkt.Payload)))
			}
		}()
	})

	return l, nil
}

func (l *pionLink) CreateOffer() (string, error) {
	offer, err := l.pc.CreateOffer(nil)
	if err != nil {
		return "", err
	}
	if err := l.pc.SetLocalDescription(offer); err != nil {
		return "", err
	}
	return offer.SDP, nil
}

func (l *pionLink) HandleOffer(sdp string) (string, error) {
	if err := l.pc.SetRemoteDescription(webrtc.SessionDescription{
		Type: webrtc.SDPTypeOffer, SDP: sdp,
	}); err != nil {
		return "", err
	}
	l.flushCandidates()

	answer, err := l.pc.CreateAnswer(nil)
	if err != nil {
		return "", err
	}
	if err := l.pc.SetLocalDescription(answer); err != nil {
		return "", err
	}
	return answer.SDP, nil
}

func (l *pionLink) HandleAnswer(sdp string) error {
	if err := l.pc.SetRemoteDescription(webrtc.SessionDescription{
		Type: webrtc.SDPTypeAnswer, SDP: sdp,
	}); err != nil {
		return err
	}
	l.flushCandidates()
	return nil
}

func (l *pionLink) AddCandidate(candidate string) error {
	var init webrtc.ICECandidateInit
	if err := json.Unmarshal([]byte(candidate), &init); err != nil {
		return fmt.Errorf("voice: parse candidate: %w", err)
	}

	l.mu.Lock()
	if !l.remoteSet {
		// Candidates can outrun the offer/answer through the relay; hold
		// them until the remote description lands.
		l.pending = append(l.pending, init)
		l.mu.Unlock()
		return nil
	}
	l.mu.Unlock()

	return l.pc.AddICECandidate(init)
}

func (l *pionLink) flushCandidates() {
	l.mu.Lock()
	l.remoteSet = true
	pending := l.pending
	l.pending = nil
	l.mu.Unlock()

	for _, init := range pending {
		if err := l.pc.AddICECandidate(init); err != nil {
			util.LogDebug("voice: buffered candidate rejected: %v", err)
		}
	}
}

func (l *pionLink) WriteFrame(f Frame) error {
	if len(f.Data) == 0 {
		return nil
	}
	return l.track.WriteSample(media.Sample{Data: f.Data, Duration: f.Duration})
}

// RemoteLevel returns inbound payload bytes since the previous call, scaled
// so typical speech at the 100 ms VAD cadence lands well above the default
// threshold.
func (l *pionLink) RemoteLevel() float64 {
	total := l.recvBytes.Load()
	l.mu.Lock()
	delta := total - l.prevBytes
	l.prevBytes = total
	l.mu.Unlock()
	return float64(delta) / 1000.0
}

// SetOutput is unsupported here: playout happens outside the peer
// connection, so routing is the audio layer's concern.
func (l *pionLink) SetOutput(string) error {
	return ErrOutputUnsupported
}

func (l *pionLink) OnCandidate(fn func(string)) {
	l.pc.OnICECandidate(func(c *webrtc.ICECandidate) {
		if c == nil {
			return // end of gathering
		}
		data, err := json.Marshal(c.ToJSON())
		if err != nil {
			return
		}
		fn(string(data))
	})
}

func (l *pionLink) OnConnected(fn func()) {
	l.mu.Lock()
	l.onConnected = fn
	l.mu.Unlock()
}

func (l *pionLink) OnClosed(fn func()) {
	l.mu.Lock()
	l.onClosed = fn
	l.mu.Unlock()
}

func (l *pionLink) Close() error {
	var err error
	l.closeOnce.Do(func() {
		err = l.pc.Close()
	})
	return err
}
