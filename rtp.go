package rtms

import (
	"fmt"
	"sync"

	"github.com/pion/rtp"
	"github.com/pion/rtp/codecs"
)

// DefaultMTU is the RTP packet size limit used when none is given.
const DefaultMTU = 1200

// rtpHeaderSize is the fixed RTP header without CSRCs or extensions.
const rtpHeaderSize = 12

// RTPWriter receives forwarded packets. *webrtc.TrackLocalStaticRTP
// satisfies it.
type RTPWriter interface {
	WriteRTP(packet *rtp.Packet) error
}

// RTPForwarderStats counts what a forwarder has written.
type RTPForwarderStats struct {
	PacketsSent uint64
	BytesSent   uint64
	FramesSent  uint64
	WriteErrors uint64
}

// RTPForwarder repacketizes media delivered by a Session and writes it as
// RTP. Session timestamps are in milliseconds and are scaled to the codec
// clock.
type RTPForwarder struct {
	mu        sync.Mutex
	w         RTPWriter
	payloader rtp.Payloader
	sequencer rtp.Sequencer
	ssrc      uint32
	pt        uint8
	mtu       int
	clockRate uint32
	audio     bool
	swapL16   bool
	stats     RTPForwarderStats
}

// NewAudioForwarder creates a forwarder for audio payloads. pt of zero
// selects the codec's default payload type and mtu of zero DefaultMTU.
func NewAudioForwarder(w RTPWriter, codec AudioCodec, rate SampleRate, ssrc uint32, pt uint8, mtu int) (*RTPForwarder, error) {
	var payloader rtp.Payloader
	switch codec {
	case AudioCodecOpus:
		payloader = &codecs.OpusPayloader{}
	case AudioCodecG711, AudioCodecL16:
		payloader = &codecs.G711Payloader{}
	case AudioCodecG722:
		payloader = &codecs.G722Payloader{}
	default:
		return nil, fmt.Errorf("%w: audio %s", ErrUnsupportedCodec, codec)
	}
	if pt == 0 {
		pt = codec.DefaultPayloadType()
	}
	f := newForwarder(w, payloader, ssrc, pt, mtu, codec.ClockRate(rate))
	f.audio = true
	f.swapL16 = codec == AudioCodecL16
	return f, nil
}

// NewVideoForwarder creates a forwarder for H.264 video or deskshare
// payloads. Still-image codecs have no RTP mapping.
func NewVideoForwarder(w RTPWriter, codec VideoCodec, ssrc uint32, pt uint8, mtu int) (*RTPForwarder, error) {
	if codec != VideoCodecH264 {
		return nil, fmt.Errorf("%w: video %s", ErrUnsupportedCodec, codec)
	}
	if pt == 0 {
		pt = 96
	}
	return newForwarder(w, &codecs.H264Payloader{}, ssrc, pt, mtu, 90000), nil
}

func newForwarder(w RTPWriter, payloader rtp.Payloader, ssrc uint32, pt uint8, mtu int, clockRate uint32) *RTPForwarder {
	if mtu <= 0 {
		mtu = DefaultMTU
	}
	return &RTPForwarder{
		w:         w,
		payloader: payloader,
		sequencer: rtp.NewRandomSequencer(),
		ssrc:      ssrc,
		pt:        pt,
		mtu:       mtu,
		clockRate: clockRate,
	}
}

// Packetize splits one media payload into RTP packets without writing them.
func (f *RTPForwarder) Packetize(data []byte, timestampMs uint32) []*rtp.Packet {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.packetizeLocked(data, timestampMs)
}

func (f *RTPForwarder) packetizeLocked(data []byte, timestampMs uint32) []*rtp.Packet {
	if len(data) == 0 {
		return nil
	}
	if f.swapL16 {
		// L16 is big-endian on the wire.
		be := make([]byte, len(data))
		copy(be, data)
		swap16(be)
		data = be
	}

	payloads := f.payloader.Payload(uint16(f.mtu-rtpHeaderSize), data)
	ts := uint32(uint64(timestampMs) * uint64(f.clockRate) / 1000)

	packets := make([]*rtp.Packet, len(payloads))
	for i, payload := range payloads {
		packets[i] = &rtp.Packet{
			Header: rtp.Header{
				Version:        2,
				Marker:         f.audio || i == len(payloads)-1,
				PayloadType:    f.pt,
				SequenceNumber: f.sequencer.NextSequenceNumber(),
				Timestamp:      ts,
				SSRC:           f.ssrc,
			},
			Payload: payload,
		}
	}
	return packets
}

// Forward packetizes data and writes every packet. It stops at the first
// write error.
func (f *RTPForwarder) Forward(data []byte, timestampMs uint32) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	packets := f.packetizeLocked(data, timestampMs)
	if len(packets) == 0 {
		return nil
	}
	for _, pkt := range packets {
		if err := f.w.WriteRTP(pkt); err != nil {
			f.stats.WriteErrors++
			return fmt.Errorf("write rtp: %w", err)
		}
		f.stats.PacketsSent++
		f.stats.BytesSent += uint64(len(pkt.Payload))
	}
	f.stats.FramesSent++
	return nil
}

// DataHandler returns a callback for OnAudioData, OnDeskshareData or
// OnTranscriptData that forwards every payload. Write errors are logged.
func (f *RTPForwarder) DataHandler() DataFunc {
	return func(data []byte, timestamp uint32, md Metadata) {
		if err := f.Forward(data, timestamp); err != nil {
			logger().Warn().Err(err).Str("user", md.UserName).Int("user_id", md.UserID).Msg("rtp forward failed")
		}
	}
}

// VideoHandler returns a callback for OnVideoData that forwards every payload.
func (f *RTPForwarder) VideoHandler() VideoDataFunc {
	return func(data []byte, timestamp uint32, sessionID string, md Metadata) {
		if err := f.Forward(data, timestamp); err != nil {
			logger().Warn().Err(err).Str("rtms_session", sessionID).Int("user_id", md.UserID).Msg("rtp forward failed")
		}
	}
}

// Stats returns a copy of the counters.
func (f *RTPForwarder) Stats() RTPForwarderStats {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stats
}

func (f *RTPForwarder) SSRC() uint32       { f.mu.Lock(); defer f.mu.Unlock(); return f.ssrc }
func (f *RTPForwarder) PayloadType() uint8 { f.mu.Lock(); defer f.mu.Unlock(); return f.pt }
func (f *RTPForwarder) ClockRate() uint32  { f.mu.Lock(); defer f.mu.Unlock(); return f.clockRate }
