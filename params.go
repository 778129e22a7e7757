package rtms

import (
	"fmt"
	"runtime"
	"unsafe"
)

// BaseParams holds the fields shared by every media parameter block.
type BaseParams struct {
	ContentType ContentType
	Codec       int32
	DataOpt     DataOption
}

// AudioParams configures the audio stream.
type AudioParams struct {
	ContentType ContentType
	Codec       AudioCodec
	SampleRate  SampleRate
	Channel     AudioChannel
	DataOpt     DataOption
	Duration    int // ms per frame
	FrameSize   int // samples per frame
}

// Base returns the shared fields.
func (p AudioParams) Base() BaseParams {
	return BaseParams{ContentType: p.ContentType, Codec: int32(p.Codec), DataOpt: p.DataOpt}
}

// Validate checks the block before it is handed to the SDK.
func (p AudioParams) Validate() error {
	if p.ContentType == ContentTypeUndefined {
		return fmt.Errorf("%w: audio content type must be set", ErrInvalidParams)
	}
	if p.Codec == AudioCodecUndefined {
		return fmt.Errorf("%w: audio codec must be set", ErrInvalidParams)
	}
	if p.Channel == 0 {
		return fmt.Errorf("%w: audio channel must be set", ErrInvalidParams)
	}
	if p.DataOpt == DataOptionUndefined {
		return fmt.Errorf("%w: audio data option must be set", ErrInvalidParams)
	}
	if p.Duration < 0 {
		return fmt.Errorf("%w: audio duration must not be negative, got %d", ErrInvalidParams, p.Duration)
	}
	if p.FrameSize < 0 {
		return fmt.Errorf("%w: audio frame size must not be negative, got %d", ErrInvalidParams, p.FrameSize)
	}
	hz := p.SampleRate.Hz()
	if hz == 0 {
		return fmt.Errorf("%w: unknown audio sample rate %d", ErrInvalidParams, p.SampleRate)
	}
	if p.Codec == AudioCodecOpus && p.SampleRate != SampleRate48K {
		return fmt.Errorf("%w: opus requires a 48kHz sample rate, got %s", ErrInvalidParams, p.SampleRate)
	}
	if p.Duration > 0 && p.FrameSize > 0 {
		if want := hz * p.Duration / 1000; p.FrameSize != want {
			return fmt.Errorf("%w: frame size %d does not match %d ms at %d Hz: expected %d",
				ErrInvalidParams, p.FrameSize, p.Duration, hz, want)
		}
	}
	return nil
}

func (p AudioParams) toNative() *cAudioParameters {
	return &cAudioParameters{
		contentType: int32(p.ContentType),
		codec:       int32(p.Codec),
		sampleRate:  int32(p.SampleRate),
		channel:     int32(p.Channel),
		dataOpt:     int32(p.DataOpt),
		duration:    int32(p.Duration),
		frameSize:   int32(p.FrameSize),
	}
}

// VideoParams configures the camera video stream.
type VideoParams struct {
	ContentType ContentType
	Codec       VideoCodec
	Resolution  Resolution
	DataOpt     DataOption
	Fps         int
}

// Base returns the shared fields.
func (p VideoParams) Base() BaseParams {
	return BaseParams{ContentType: p.ContentType, Codec: int32(p.Codec), DataOpt: p.DataOpt}
}

// Validate checks the block before it is handed to the SDK.
func (p VideoParams) Validate() error {
	return validateVisual("video", p.ContentType, p.Codec, p.Fps)
}

func (p VideoParams) toNative() *cVideoParameters {
	return &cVideoParameters{
		contentType: int32(p.ContentType),
		codec:       int32(p.Codec),
		resolution:  int32(p.Resolution),
		dataOpt:     int32(p.DataOpt),
		fps:         int32(p.Fps),
	}
}

// DeskshareParams configures the screen share stream.
type DeskshareParams struct {
	ContentType ContentType
	Codec       VideoCodec
	Resolution  Resolution
	Fps         int
}

// Base returns the shared fields. Deskshare has no data option.
func (p DeskshareParams) Base() BaseParams {
	return BaseParams{ContentType: p.ContentType, Codec: int32(p.Codec)}
}

// Validate checks the block before it is handed to the SDK.
func (p DeskshareParams) Validate() error {
	return validateVisual("deskshare", p.ContentType, p.Codec, p.Fps)
}

func (p DeskshareParams) toNative() *cDeskshareParameters {
	return &cDeskshareParameters{
		contentType: int32(p.ContentType),
		codec:       int32(p.Codec),
		resolution:  int32(p.Resolution),
		fps:         int32(p.Fps),
	}
}

func validateVisual(kind string, ct ContentType, codec VideoCodec, fps int) error {
	if ct == ContentTypeUndefined {
		return fmt.Errorf("%w: %s content type must be set", ErrInvalidParams, kind)
	}
	if codec == VideoCodecUndefined {
		return fmt.Errorf("%w: %s codec must be set", ErrInvalidParams, kind)
	}
	if fps < 0 {
		return fmt.Errorf("%w: %s fps must not be negative, got %d", ErrInvalidParams, kind, fps)
	}
	return nil
}

// ParameterBundle holds at most one block per media kind. Nil blocks are
// absent and are not sent to the SDK.
type ParameterBundle struct {
	Audio     *AudioParams
	Video     *VideoParams
	Deskshare *DeskshareParams
}

// Validate checks every present block.
func (b ParameterBundle) Validate() error {
	if b.Audio != nil {
		if err := b.Audio.Validate(); err != nil {
			return err
		}
	}
	if b.Video != nil {
		if err := b.Video.Validate(); err != nil {
			return err
		}
	}
	if b.Deskshare != nil {
		if err := b.Deskshare.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// clone deep-copies the bundle so stored state never aliases caller memory.
func (b ParameterBundle) clone() ParameterBundle {
	var out ParameterBundle
	if b.Audio != nil {
		a := *b.Audio
		out.Audio = &a
	}
	if b.Video != nil {
		v := *b.Video
		out.Video = &v
	}
	if b.Deskshare != nil {
		d := *b.Deskshare
		out.Deskshare = &d
	}
	return out
}

// toNative builds struct media_parameters for the present blocks and pins
// it. The returned address is valid until unpin is called, which the caller
// does as soon as the native call returns.
func (b ParameterBundle) toNative() (params uintptr, unpin func()) {
	var pinner runtime.Pinner
	mp := &cMediaParameters{}
	if b.Audio != nil {
		mp.audio = b.Audio.toNative()
		pinner.Pin(mp.audio)
	}
	if b.Video != nil {
		mp.video = b.Video.toNative()
		pinner.Pin(mp.video)
	}
	if b.Deskshare != nil {
		mp.deskshare = b.Deskshare.toNative()
		pinner.Pin(mp.deskshare)
	}
	pinner.Pin(mp)
	return uintptr(unsafe.Pointer(mp)), pinner.Unpin
}
