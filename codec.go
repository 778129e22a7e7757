package rtms

import "github.com/pion/webrtc/v4"

// AudioCodec identifies the codec of delivered audio payloads.
type AudioCodec int32

const (
	AudioCodecUndefined AudioCodec = iota
	AudioCodecL16
	AudioCodecG711 // μ-law
	AudioCodecG722
	AudioCodecOpus
)

func (c AudioCodec) String() string {
	switch c {
	case AudioCodecL16:
		return "L16"
	case AudioCodecG711:
		return "G711"
	case AudioCodecG722:
		return "G722"
	case AudioCodecOpus:
		return "Opus"
	default:
		return "Undefined"
	}
}

// MimeType returns the MIME type for this codec.
func (c AudioCodec) MimeType() string {
	switch c {
	case AudioCodecL16:
		return "audio/L16"
	case AudioCodecG711:
		return webrtc.MimeTypePCMU
	case AudioCodecG722:
		return webrtc.MimeTypeG722
	case AudioCodecOpus:
		return webrtc.MimeTypeOpus
	default:
		return ""
	}
}

// ClockRate returns the RTP clock rate for this codec at the given sample rate.
func (c AudioCodec) ClockRate(rate SampleRate) uint32 {
	switch c {
	case AudioCodecOpus:
		return 48000
	case AudioCodecG711, AudioCodecG722:
		// RFC 3551: G.722 uses an 8 kHz RTP clock.
		return 8000
	default:
		return uint32(rate.Hz())
	}
}

// DefaultPayloadType returns a typical payload type for this codec.
func (c AudioCodec) DefaultPayloadType() uint8 {
	switch c {
	case AudioCodecG711:
		return 0
	case AudioCodecG722:
		return 9
	case AudioCodecOpus:
		return 111
	default:
		return 96
	}
}

// Capability describes the codec the way pion/webrtc expects it.
func (c AudioCodec) Capability(rate SampleRate, channels AudioChannel) webrtc.RTPCodecCapability {
	return webrtc.RTPCodecCapability{
		MimeType:  c.MimeType(),
		ClockRate: c.ClockRate(rate),
		Channels:  uint16(channels),
	}
}

// VideoCodec identifies the codec of delivered video and deskshare payloads.
type VideoCodec int32

const (
	VideoCodecUndefined VideoCodec = 0
	VideoCodecJPG       VideoCodec = 5
	VideoCodecPNG       VideoCodec = 6
	VideoCodecH264      VideoCodec = 7
)

func (c VideoCodec) String() string {
	switch c {
	case VideoCodecJPG:
		return "JPG"
	case VideoCodecPNG:
		return "PNG"
	case VideoCodecH264:
		return "H264"
	default:
		return "Undefined"
	}
}

// MimeType returns the MIME type for this codec.
func (c VideoCodec) MimeType() string {
	switch c {
	case VideoCodecJPG:
		return "image/jpeg"
	case VideoCodecPNG:
		return "image/png"
	case VideoCodecH264:
		return webrtc.MimeTypeH264
	default:
		return ""
	}
}

// IsStill reports whether the codec delivers individual images rather than a stream.
func (c VideoCodec) IsStill() bool {
	return c == VideoCodecJPG || c == VideoCodecPNG
}

// SampleRate is the native sample rate enumeration.
type SampleRate int32

const (
	SampleRate8K SampleRate = iota
	SampleRate16K
	SampleRate32K
	SampleRate48K
)

var sampleRateHz = [...]int{8000, 16000, 32000, 48000}

// Hz returns the sample rate in hertz, or 0 for values outside the enumeration.
func (r SampleRate) Hz() int {
	if r < 0 || int(r) >= len(sampleRateHz) {
		return 0
	}
	return sampleRateHz[r]
}

func (r SampleRate) String() string {
	switch r {
	case SampleRate8K:
		return "8kHz"
	case SampleRate16K:
		return "16kHz"
	case SampleRate32K:
		return "32kHz"
	case SampleRate48K:
		return "48kHz"
	default:
		return "unknown"
	}
}

// AudioChannel is the channel layout of delivered audio.
type AudioChannel int32

const (
	AudioChannelMono   AudioChannel = 1
	AudioChannelStereo AudioChannel = 2
)

// ContentType describes how payloads are framed by the SDK.
type ContentType int32

const (
	ContentTypeUndefined ContentType = iota
	ContentTypeRTP
	ContentTypeRawAudio
	ContentTypeFileStream
	ContentTypeText
	ContentTypeRawVideo
)

// DataOption selects mixed or per-participant delivery.
type DataOption int32

const (
	DataOptionUndefined DataOption = iota
	DataOptionMixedStream
	DataOptionMultiStreams
)

// Resolution is the requested video resolution.
type Resolution int32

const (
	ResolutionUndefined Resolution = iota
	ResolutionSD
	ResolutionHD
	ResolutionFHD
	ResolutionQHD
)

func (r Resolution) String() string {
	switch r {
	case ResolutionSD:
		return "SD"
	case ResolutionHD:
		return "HD"
	case ResolutionFHD:
		return "FHD"
	case ResolutionQHD:
		return "QHD"
	default:
		return "Undefined"
	}
}
