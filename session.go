package rtms

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// State is the lifecycle stage of a Session.
type State int32

const (
	StateCreated State = iota
	StateConfigured
	StateJoined
	StateReleased
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateConfigured:
		return "configured"
	case StateJoined:
		return "joined"
	case StateReleased:
		return "released"
	default:
		return "unknown"
	}
}

// Session is one native RTMS session and the callbacks that receive its
// events. Callbacks run on the goroutine that is inside Poll; they may
// replace callbacks, toggle media kinds or Release the session.
//
// Lock order: callMu, then mu, then the registry lock. mu is never held
// while a user callback runs or while the native SDK is polled or joined.
type Session struct {
	id     string
	lib    nativeLib
	handle Handle

	callMu sync.Mutex // serializes poll, join and release on the native session

	mu             sync.RWMutex
	native         uintptr
	state          State
	cb             callbacks
	media          mediaConfig
	meetingUUID    string
	streamID       string
	polling        bool
	releasePending bool
	stopPoll       context.CancelFunc

	pollErrors atomic.Uint64
}

// NewSession allocates a native session and registers it for dispatch.
func NewSession() (*Session, error) {
	lib, err := library()
	if err != nil {
		return nil, err
	}
	native := lib.alloc()
	if native == 0 {
		return nil, ErrAllocFailed
	}

	s := &Session{
		id:     uuid.NewString(),
		lib:    lib,
		native: native,
	}
	s.handle = sessions.register(native, s)
	s.log().Debug().Msg("session created")
	return s, nil
}

// log derives the session logger from the current package logger, so
// ConfigureLogger and SetLogger also apply to sessions created earlier.
func (s *Session) log() *zerolog.Logger {
	l := logger().With().Str("session", s.id).Stringer("handle", s.handle).Logger()
	return &l
}

// ID returns the process-local label used in log records.
func (s *Session) ID() string { return s.id }

// Handle returns the registry handle. It stops resolving once the session
// is released.
func (s *Session) Handle() Handle { return s.handle }

// State returns the current lifecycle stage.
func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// UUID returns the meeting UUID recorded by a successful Join.
func (s *Session) UUID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.meetingUUID
}

// StreamID returns the stream id recorded by a successful Join.
func (s *Session) StreamID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.streamID
}

// MediaTypes returns the mask that is, or will be, sent to the SDK.
func (s *Session) MediaTypes() MediaType {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.media.current()
}

// PollErrors returns how many polls reported a non-OK status.
func (s *Session) PollErrors() uint64 { return s.pollErrors.Load() }

// Configure validates bundle and pushes it to the SDK together with mask.
// Media kinds implied by registered data callbacks are always included.
func (s *Session) Configure(bundle ParameterBundle, mask MediaType, ale bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateReleased {
		return ErrReleased
	}
	if err := s.media.configure(s.lib, s.native, bundle, mask, ale); err != nil {
		s.log().Error().Err(err).Stringer("media", mask).Msg("configure failed")
		return err
	}
	if s.state == StateCreated {
		s.state = StateConfigured
	}
	s.log().Debug().Stringer("media", s.media.last).Bool("ale", ale).Msg("configured")
	return nil
}

// Join installs the dispatch table, applies any pending configuration and
// joins the stream. timeoutMs of -1 selects the SDK default. On failure the
// session keeps its previous state and no identity is recorded.
func (s *Session) Join(meetingUUID, streamID, signature, serverURL string, timeoutMs int) error {
	if meetingUUID == "" || streamID == "" {
		return fmt.Errorf("%w: meeting uuid and stream id are required", ErrInvalidParams)
	}
	if err := s.joinable(); err != nil {
		return err
	}
	if err := ensureInitialized(); err != nil {
		return err
	}

	s.callMu.Lock()
	defer s.callMu.Unlock()

	native, err := s.prepareJoin()
	if err != nil {
		return err
	}

	s.log().Info().Str("meeting_uuid", meetingUUID).Str("stream_id", streamID).Str("server", serverURL).Msg("joining")
	code := s.lib.join(native, meetingUUID, streamID, signature, serverURL, int32(timeoutMs))
	if err := check("join", code); err != nil {
		s.log().Error().Err(err).Str("meeting_uuid", meetingUUID).Msg("join failed")
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateReleased {
		return ErrReleased
	}
	s.meetingUUID = meetingUUID
	s.streamID = streamID
	s.state = StateJoined
	s.log().Info().Str("meeting_uuid", meetingUUID).Msg("joined")
	return nil
}

func (s *Session) joinable() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.joinableLocked()
}

func (s *Session) joinableLocked() error {
	switch s.state {
	case StateReleased:
		return ErrReleased
	case StateJoined:
		return ErrAlreadyJoined
	}
	return nil
}

// prepareJoin registers the trampolines and pushes the configuration if
// Configure was never called. That default requests every kind except those
// disabled with Enable*; registered data callbacks never narrow it.
func (s *Session) prepareJoin() (uintptr, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.joinableLocked(); err != nil {
		return 0, err
	}
	if err := check("set callbacks", s.lib.setCallbacks(s.native)); err != nil {
		return 0, err
	}
	if !s.media.applied {
		if err := s.media.configure(s.lib, s.native, s.media.params, s.media.pending(), s.media.ale); err != nil {
			return 0, err
		}
	}
	return s.native, nil
}

// JoinOptions are the inputs of JoinWithOptions.
type JoinOptions struct {
	MeetingUUID string
	StreamID    string
	ServerURLs  string

	// Signature is used as is when set; otherwise it is generated from
	// ClientID and ClientSecret.
	Signature    string
	ClientID     string
	ClientSecret string

	// CA is the certificate bundle for SDK initialization when the SDK has
	// not been initialized yet.
	CA string

	Timeout time.Duration // zero selects the SDK default

	// PollInterval starts a background poll loop after a successful join
	// when positive. The loop stops when ctx is done or on Leave.
	PollInterval time.Duration
}

// JoinWithOptions initializes the SDK if needed, resolves the signature and
// joins. See JoinOptions for the optional background poll loop.
func (s *Session) JoinWithOptions(ctx context.Context, opts JoinOptions) error {
	if opts.CA != "" && !IsInitialized() {
		if err := Initialize(opts.CA); err != nil {
			return err
		}
	}

	sig := opts.Signature
	if sig == "" {
		var err error
		sig, err = GenerateSignature(SignatureParams{
			ClientID:     opts.ClientID,
			ClientSecret: opts.ClientSecret,
			MeetingUUID:  opts.MeetingUUID,
			StreamID:     opts.StreamID,
		})
		if err != nil {
			return err
		}
	}

	timeout := -1
	if opts.Timeout > 0 {
		timeout = int(opts.Timeout.Milliseconds())
	}
	if err := s.Join(opts.MeetingUUID, opts.StreamID, sig, opts.ServerURLs, timeout); err != nil {
		return err
	}

	if opts.PollInterval > 0 {
		pollCtx, cancel := context.WithCancel(ctx)
		s.mu.Lock()
		s.stopPoll = cancel
		s.mu.Unlock()
		go func() {
			defer cancel()
			_ = s.Run(pollCtx, opts.PollInterval)
		}()
	}
	return nil
}

// Poll lets the SDK deliver pending events; callbacks run before it returns.
// A non-OK status is logged and counted rather than returned. Poll is a
// no-op unless the session is joined, and a nested call from inside a
// callback returns immediately.
func (s *Session) Poll() {
	s.mu.RLock()
	nested := s.polling
	s.mu.RUnlock()
	if nested {
		s.log().Debug().Msg("poll already in progress")
		return
	}

	s.callMu.Lock()
	defer s.callMu.Unlock()

	s.mu.Lock()
	if s.state != StateJoined {
		s.mu.Unlock()
		return
	}
	s.polling = true
	native := s.native
	s.mu.Unlock()

	code := s.lib.poll(native)

	s.mu.Lock()
	s.polling = false
	pending := s.releasePending
	if pending {
		s.releasePending = false
		s.native = 0
	}
	s.mu.Unlock()

	if err := check("poll", code); err != nil {
		s.pollErrors.Add(1)
		s.log().Warn().Err(err).Msg("poll failed")
	}
	if pending {
		if err := s.releaseNative(native); err != nil {
			s.log().Error().Err(err).Msg("deferred release failed")
		}
	}
}

// Release retires the handle, so no further events are dispatched, and frees
// the native session. When a poll is in progress, including a call from
// inside a callback, the native release runs as soon as that poll returns.
// Releasing an already released session returns nil.
func (s *Session) Release() error {
	s.mu.Lock()
	if s.state == StateReleased {
		s.mu.Unlock()
		return nil
	}
	s.state = StateReleased
	s.cb = callbacks{}
	stop := s.stopPoll
	s.stopPoll = nil
	native := s.native
	sessions.unregister(s.handle, native)

	if s.polling {
		s.releasePending = true
		s.mu.Unlock()
		if stop != nil {
			stop()
		}
		s.log().Debug().Msg("release deferred until poll returns")
		return nil
	}
	s.native = 0
	s.mu.Unlock()
	if stop != nil {
		stop()
	}

	s.callMu.Lock()
	defer s.callMu.Unlock()
	return s.releaseNative(native)
}

// Leave is Release with the outcome logged, for callers that tear down in
// deferred cleanup and have nowhere to return an error.
func (s *Session) Leave() {
	s.log().Info().Str("meeting_uuid", s.UUID()).Msg("leaving")
	if err := s.Release(); err != nil {
		s.log().Warn().Err(err).Msg("left with errors")
		return
	}
	s.log().Info().Msg("left")
}

func (s *Session) releaseNative(native uintptr) error {
	if native == 0 {
		return nil
	}
	if err := check("release", s.lib.release(native)); err != nil {
		return err
	}
	s.log().Debug().Msg("session released")
	return nil
}

// callbackSnapshot copies the callback slots for one dispatch.
func (s *Session) callbackSnapshot() (callbacks, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state == StateReleased {
		return callbacks{}, false
	}
	return s.cb, true
}

// setCallback stores a handler under the session lock. A non-nil data
// handler also activates its media kind.
func (s *Session) setCallback(kind MediaType, store func(*callbacks) bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateReleased {
		return
	}
	if set := store(&s.cb); set && kind != 0 {
		s.media.imply(s.lib, s.native, kind)
	}
}

func (s *Session) OnJoinConfirm(fn JoinConfirmFunc) {
	s.setCallback(0, func(c *callbacks) bool { c.joinConfirm = fn; return fn != nil })
}

func (s *Session) OnSessionUpdate(fn SessionUpdateFunc) {
	s.setCallback(0, func(c *callbacks) bool { c.sessionUpdate = fn; return fn != nil })
}

func (s *Session) OnUserUpdate(fn UserUpdateFunc) {
	s.setCallback(0, func(c *callbacks) bool { c.userUpdate = fn; return fn != nil })
}

// OnAudioData sets the audio handler and enables audio.
func (s *Session) OnAudioData(fn DataFunc) {
	s.setCallback(MediaAudio, func(c *callbacks) bool { c.audioData = fn; return fn != nil })
}

// OnVideoData sets the video handler and enables video.
func (s *Session) OnVideoData(fn VideoDataFunc) {
	s.setCallback(MediaVideo, func(c *callbacks) bool { c.videoData = fn; return fn != nil })
}

// OnDeskshareData sets the screen share handler and enables deskshare.
func (s *Session) OnDeskshareData(fn DataFunc) {
	s.setCallback(MediaDeskshare, func(c *callbacks) bool { c.deskshareData = fn; return fn != nil })
}

// OnTranscriptData sets the transcript handler and enables transcripts.
func (s *Session) OnTranscriptData(fn DataFunc) {
	s.setCallback(MediaTranscript, func(c *callbacks) bool { c.transcript = fn; return fn != nil })
}

func (s *Session) OnLeave(fn LeaveFunc) {
	s.setCallback(0, func(c *callbacks) bool { c.leave = fn; return fn != nil })
}

// OnEventEx sets the handler for extended JSON events.
func (s *Session) OnEventEx(fn EventExFunc) {
	s.setCallback(0, func(c *callbacks) bool { c.eventEx = fn; return fn != nil })
}

func (s *Session) enable(kind MediaType, on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateReleased {
		return
	}
	s.media.enable(s.lib, s.native, kind, on)
}

func (s *Session) EnableAudio(on bool)      { s.enable(MediaAudio, on) }
func (s *Session) EnableVideo(on bool)      { s.enable(MediaVideo, on) }
func (s *Session) EnableDeskshare(on bool)  { s.enable(MediaDeskshare, on) }
func (s *Session) EnableTranscript(on bool) { s.enable(MediaTranscript, on) }
func (s *Session) EnableChat(on bool)       { s.enable(MediaChat, on) }

// setParams replaces one parameter block. Before the first configuration
// the block is only stored; afterwards it is pushed with the current mask.
func (s *Session) setParams(validate func() error, apply func(*ParameterBundle)) error {
	if err := validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateReleased {
		return ErrReleased
	}
	bundle := s.media.params.clone()
	apply(&bundle)
	if !s.media.applied {
		s.media.params = bundle
		return nil
	}
	return s.media.configure(s.lib, s.native, bundle, s.media.enabled, s.media.ale)
}

func (s *Session) SetAudioParams(p AudioParams) error {
	return s.setParams(p.Validate, func(b *ParameterBundle) { b.Audio = &p })
}

func (s *Session) SetVideoParams(p VideoParams) error {
	return s.setParams(p.Validate, func(b *ParameterBundle) { b.Video = &p })
}

func (s *Session) SetDeskshareParams(p DeskshareParams) error {
	return s.setParams(p.Validate, func(b *ParameterBundle) { b.Deskshare = &p })
}
