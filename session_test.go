package rtms

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestSession_EndToEndAudio(t *testing.T) {
	f := withFakeLib(t)
	s := newTestSession(t)

	type delivery struct {
		data []byte
		ts   uint32
		md   Metadata
	}
	var got []delivery
	s.OnAudioData(func(data []byte, ts uint32, md Metadata) {
		got = append(got, delivery{data, ts, md})
	})

	if err := s.Join("m1", "s1", "sig", "wss://x", -1); err != nil {
		t.Fatalf("Join() error = %v", err)
	}
	if len(f.joins) != 1 {
		t.Fatalf("native join calls = %d, want 1", len(f.joins))
	}
	j := f.joins[0]
	if j.meetingUUID != "m1" || j.streamID != "s1" || j.signature != "sig" || j.server != "wss://x" || j.timeout != -1 {
		t.Errorf("join call = %+v", j)
	}
	if s.UUID() != "m1" || s.StreamID() != "s1" {
		t.Errorf("identity = %q/%q, want m1/s1", s.UUID(), s.StreamID())
	}
	if s.State() != StateJoined {
		t.Errorf("State() = %v, want joined", s.State())
	}

	var mem nativeMem
	onAudioDataTrampoline(s.native, mem.bytes([]byte{1, 2, 3}), 3, 100, mem.metadata("Bob", 7))
	mem.keepAlive()

	if len(got) != 1 {
		t.Fatalf("callback invoked %d times, want 1", len(got))
	}
	if !bytes.Equal(got[0].data, []byte{1, 2, 3}) {
		t.Errorf("data = %v, want [1 2 3]", got[0].data)
	}
	if got[0].ts != 100 {
		t.Errorf("timestamp = %d, want 100", got[0].ts)
	}
	if got[0].md.UserName != "Bob" || got[0].md.UserID != 7 {
		t.Errorf("metadata = %+v, want Bob/7", got[0].md)
	}
}

func TestSession_ImpliedMediaSurvivesZeroMask(t *testing.T) {
	f := withFakeLib(t)
	s := newTestSession(t)

	s.OnAudioData(func([]byte, uint32, Metadata) {})
	if err := s.Configure(ParameterBundle{}, 0, false); err != nil {
		t.Fatalf("Configure() error = %v", err)
	}
	if got := f.lastConfig(t).mask; !got.Has(MediaAudio) {
		t.Errorf("applied mask = %v, want audio set", got)
	}
}

func TestSession_JoinPushesPendingConfig(t *testing.T) {
	tests := []struct {
		name  string
		setup func(s *Session)
		want  MediaType
	}{
		{"nothing enabled", func(*Session) {}, MediaAll},
		{"audio callback", func(s *Session) { s.OnAudioData(func([]byte, uint32, Metadata) {}) }, MediaAll},
		{"all data callbacks", func(s *Session) {
			s.OnAudioData(func([]byte, uint32, Metadata) {})
			s.OnVideoData(func([]byte, uint32, string, Metadata) {})
			s.OnTranscriptData(func([]byte, uint32, Metadata) {})
		}, MediaAll},
		{"explicit enables", func(s *Session) {
			s.EnableVideo(true)
			s.EnableChat(true)
		}, MediaAll},
		{"explicit disables", func(s *Session) {
			s.EnableChat(false)
			s.EnableDeskshare(false)
		}, MediaAudio | MediaVideo | MediaTranscript},
		{"disable overrides callback", func(s *Session) {
			s.OnAudioData(func([]byte, uint32, Metadata) {})
			s.EnableAudio(false)
		}, MediaAll &^ MediaAudio},
		{"re-enabled after disable", func(s *Session) {
			s.EnableVideo(false)
			s.EnableVideo(true)
		}, MediaAll},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := withFakeLib(t)
			s := newTestSession(t)
			tt.setup(s)
			if f.configCount() != 0 {
				t.Fatalf("config pushed before join: %d calls", f.configCount())
			}
			if got := s.MediaTypes(); got != tt.want {
				t.Errorf("MediaTypes() before join = %v, want %v", got, tt.want)
			}
			if err := s.Join("m", "s", "sig", "wss://x", -1); err != nil {
				t.Fatalf("Join() error = %v", err)
			}
			if got := f.lastConfig(t).mask; got != tt.want {
				t.Errorf("mask at join = %v, want %v", got, tt.want)
			}
			if len(f.callbackSets) != 1 || f.callbackSets[0] != s.native {
				t.Errorf("set_callbacks calls = %v", f.callbackSets)
			}
		})
	}
}

func TestSession_JoinSkipsConfigWhenConfigured(t *testing.T) {
	f := withFakeLib(t)
	s := newTestSession(t)

	if err := s.Configure(ParameterBundle{}, MediaTranscript, true); err != nil {
		t.Fatalf("Configure() error = %v", err)
	}
	if s.State() != StateConfigured {
		t.Errorf("State() = %v, want configured", s.State())
	}
	if err := s.Join("m", "s", "sig", "wss://x", 5000); err != nil {
		t.Fatalf("Join() error = %v", err)
	}
	if n := f.configCount(); n != 1 {
		t.Errorf("config calls = %d, want 1", n)
	}
	if c := f.lastConfig(t); c.mask != MediaTranscript || !c.ale {
		t.Errorf("config = %+v, want transcript with ale", c)
	}
}

func TestSession_JoinFailure(t *testing.T) {
	f := withFakeLib(t)
	f.joinCode = int32(StatusTimeout)
	s := newTestSession(t)

	err := s.Join("m1", "s1", "sig", "wss://x", -1)
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("Join() error = %v, want timeout", err)
	}
	var nerr *Error
	if !errors.As(err, &nerr) || nerr.Code() != 1 {
		t.Errorf("error code = %v, want 1", err)
	}
	if !strings.Contains(err.Error(), "join") {
		t.Errorf("error %q does not name the operation", err)
	}
	if s.UUID() != "" || s.StreamID() != "" {
		t.Errorf("identity recorded after failed join: %q/%q", s.UUID(), s.StreamID())
	}
	if s.State() != StateCreated {
		t.Errorf("State() = %v, want created", s.State())
	}

	f.joinCode = int32(StatusOK)
	if err := s.Join("m1", "s1", "sig", "wss://x", -1); err != nil {
		t.Fatalf("retry Join() error = %v", err)
	}
}

func TestSession_JoinErrors(t *testing.T) {
	withFakeLib(t)
	s := newTestSession(t)

	if err := s.Join("", "s", "sig", "wss://x", -1); !errors.Is(err, ErrInvalidParams) {
		t.Errorf("Join(empty uuid) error = %v, want ErrInvalidParams", err)
	}
	if err := s.Join("m", "s", "sig", "wss://x", -1); err != nil {
		t.Fatalf("Join() error = %v", err)
	}
	if err := s.Join("m", "s", "sig", "wss://x", -1); !errors.Is(err, ErrAlreadyJoined) {
		t.Errorf("second Join() error = %v, want ErrAlreadyJoined", err)
	}
	_ = s.Release()
	if err := s.Join("m", "s", "sig", "wss://x", -1); !errors.Is(err, ErrReleased) {
		t.Errorf("Join() after release error = %v, want ErrReleased", err)
	}
}

func TestSession_JoinInitializesOnce(t *testing.T) {
	f := withFakeLib(t)
	a := newTestSession(t)
	b := newTestSession(t)

	if err := a.Join("m", "a", "sig", "wss://x", -1); err != nil {
		t.Fatalf("Join() error = %v", err)
	}
	if err := b.Join("m", "b", "sig", "wss://x", -1); err != nil {
		t.Fatalf("Join() error = %v", err)
	}
	if n := len(f.initCalls); n != 1 {
		t.Errorf("init calls = %d, want 1", n)
	}
}

func TestSession_JoinInitFailure(t *testing.T) {
	f := withFakeLib(t)
	f.initCode = int32(StatusFailure)
	s := newTestSession(t)

	if err := s.Join("m", "s", "sig", "wss://x", -1); !errors.Is(err, ErrFailure) {
		t.Errorf("Join() error = %v, want ErrFailure", err)
	}
	if len(f.joins) != 0 {
		t.Error("native join called after failed initialization")
	}
}

func TestNewSession_AllocFailure(t *testing.T) {
	f := withFakeLib(t)
	f.allocFails = true
	if _, err := NewSession(); !errors.Is(err, ErrAllocFailed) {
		t.Errorf("NewSession() error = %v, want ErrAllocFailed", err)
	}
}

func TestSession_DistinctHandlesNoCrossTalk(t *testing.T) {
	withFakeLib(t)

	var (
		wg   sync.WaitGroup
		made [2]*Session
		errs [2]error
	)
	for i := range made {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			made[i], errs[i] = NewSession()
		}(i)
	}
	wg.Wait()
	for _, s := range made {
		if s != nil {
			t.Cleanup(func() { _ = s.Release() })
		}
	}
	for i, err := range errs {
		if err != nil {
			t.Fatalf("NewSession() #%d error = %v", i, err)
		}
	}
	a, b := made[0], made[1]

	if a.Handle() == b.Handle() {
		t.Fatalf("handles are equal: %v", a.Handle())
	}
	var gotA, gotB int
	a.OnAudioData(func([]byte, uint32, Metadata) { gotA++ })
	b.OnAudioData(func([]byte, uint32, Metadata) { gotB++ })

	var mem nativeMem
	onAudioDataTrampoline(a.native, mem.bytes([]byte{1}), 1, 1, 0)
	onAudioDataTrampoline(a.native, mem.bytes([]byte{2}), 1, 2, 0)
	onAudioDataTrampoline(b.native, mem.bytes([]byte{3}), 1, 3, 0)
	mem.keepAlive()

	if gotA != 2 || gotB != 1 {
		t.Errorf("deliveries = %d/%d, want 2/1", gotA, gotB)
	}
}

func TestSession_ReleaseTwice(t *testing.T) {
	f := withFakeLib(t)
	s := newTestSession(t)
	native, h := s.native, s.Handle()

	if err := s.Release(); err != nil {
		t.Fatalf("Release() error = %v", err)
	}
	if err := s.Release(); err != nil {
		t.Errorf("second Release() error = %v, want nil", err)
	}
	if n := f.releasedCount(native); n != 1 {
		t.Errorf("native release calls = %d, want 1", n)
	}
	if _, ok := sessions.resolve(h); ok {
		t.Error("handle still resolves after release")
	}
	if _, ok := sessions.lookup(native); ok {
		t.Error("native pointer still registered after release")
	}
	if s.State() != StateReleased {
		t.Errorf("State() = %v, want released", s.State())
	}
}

func TestSession_ReleaseError(t *testing.T) {
	f := withFakeLib(t)
	f.releaseCode = int32(StatusInvalidStatus)
	s := newTestSession(t)

	if err := s.Release(); !errors.Is(err, ErrInvalidStatus) {
		t.Errorf("Release() error = %v, want ErrInvalidStatus", err)
	}
	if _, ok := sessions.resolve(s.Handle()); ok {
		t.Error("handle resolves after failed native release")
	}
}

func TestSession_ReleaseStopsDispatch(t *testing.T) {
	withFakeLib(t)
	s := newTestSession(t)
	native := s.native

	calls := 0
	s.OnAudioData(func([]byte, uint32, Metadata) { calls++ })
	_ = s.Release()

	var mem nativeMem
	onAudioDataTrampoline(native, mem.bytes([]byte{1}), 1, 1, 0)
	mem.keepAlive()
	if calls != 0 {
		t.Errorf("callback ran %d times after release", calls)
	}
}

func TestSession_ReleaseInsideCallback(t *testing.T) {
	f := withFakeLib(t)
	s := newTestSession(t)
	native := s.native

	var mem nativeMem
	releasedDuringPoll := -1
	f.onPoll = func(sdk uintptr) {
		onLeaveTrampoline(sdk, 3)
		onAudioDataTrampoline(sdk, mem.bytes([]byte{1}), 1, 1, 0)
		releasedDuringPoll = f.releasedCount(sdk)
	}
	leaves, audio := 0, 0
	s.OnLeave(func(reason int) {
		leaves++
		if err := s.Release(); err != nil {
			t.Errorf("Release() inside callback error = %v", err)
		}
	})
	s.OnAudioData(func([]byte, uint32, Metadata) { audio++ })

	if err := s.Join("m", "s", "sig", "wss://x", -1); err != nil {
		t.Fatalf("Join() error = %v", err)
	}
	s.Poll()
	mem.keepAlive()

	if leaves != 1 {
		t.Errorf("leave callbacks = %d, want 1", leaves)
	}
	if audio != 0 {
		t.Errorf("audio delivered after release: %d", audio)
	}
	if releasedDuringPoll != 0 {
		t.Errorf("native release ran inside poll")
	}
	if n := f.releasedCount(native); n != 1 {
		t.Errorf("native release calls = %d, want 1", n)
	}

	s.Poll()
	if n := len(f.polls); n != 1 {
		t.Errorf("native polls = %d, want 1", n)
	}
}

func TestSession_PollFailSoft(t *testing.T) {
	f := withFakeLib(t)
	f.pollCode = int32(StatusFailure)
	s := newTestSession(t)

	s.Poll()
	if len(f.polls) != 0 {
		t.Errorf("native poll ran before join")
	}

	if err := s.Join("m", "s", "sig", "wss://x", -1); err != nil {
		t.Fatalf("Join() error = %v", err)
	}
	s.Poll()
	s.Poll()
	if got := s.PollErrors(); got != 2 {
		t.Errorf("PollErrors() = %d, want 2", got)
	}
	if s.State() != StateJoined {
		t.Errorf("State() = %v, want joined", s.State())
	}
}

func TestSession_NestedPollIgnored(t *testing.T) {
	f := withFakeLib(t)
	s := newTestSession(t)
	f.onPoll = func(sdk uintptr) { onJoinConfirmTrampoline(sdk, 0) }
	s.OnJoinConfirm(func(int) { s.Poll() })

	if err := s.Join("m", "s", "sig", "wss://x", -1); err != nil {
		t.Fatalf("Join() error = %v", err)
	}
	s.Poll()
	if n := len(f.polls); n != 1 {
		t.Errorf("native polls = %d, want 1", n)
	}
}

func TestSession_ReplaceCallbackInsideCallback(t *testing.T) {
	withFakeLib(t)
	s := newTestSession(t)

	var order []string
	second := func(int) { order = append(order, "second") }
	s.OnJoinConfirm(func(int) {
		order = append(order, "first")
		s.OnJoinConfirm(second)
	})

	onJoinConfirmTrampoline(s.native, 0)
	onJoinConfirmTrampoline(s.native, 0)

	if strings.Join(order, ",") != "first,second" {
		t.Errorf("order = %v, want [first second]", order)
	}
}

func TestSession_CallbackPanicRecovered(t *testing.T) {
	withFakeLib(t)
	s := newTestSession(t)

	calls := 0
	s.OnEventEx(func(string) {
		calls++
		panic("boom")
	})
	var mem nativeMem
	payload := []byte(`{"type":"x"}`)
	onEventExTrampoline(s.native, mem.bytes(payload), int32(len(payload)))
	onEventExTrampoline(s.native, mem.bytes(payload), int32(len(payload)))
	mem.keepAlive()

	if calls != 2 {
		t.Errorf("callback ran %d times, want 2", calls)
	}
}

func TestSession_EnableReconfigures(t *testing.T) {
	f := withFakeLib(t)
	s := newTestSession(t)

	s.EnableVideo(true)
	if f.configCount() != 0 {
		t.Fatal("toggle pushed config before the first configure")
	}
	if err := s.Configure(ParameterBundle{}, MediaAudio, false); err != nil {
		t.Fatalf("Configure() error = %v", err)
	}

	steps := []struct {
		toggle func()
		want   MediaType
	}{
		{func() { s.EnableVideo(true) }, MediaAudio | MediaVideo},
		{func() { s.EnableAudio(false) }, MediaVideo},
		{func() { s.EnableDeskshare(true) }, MediaVideo | MediaDeskshare},
		{func() { s.EnableTranscript(true) }, MediaVideo | MediaDeskshare | MediaTranscript},
	}
	for i, st := range steps {
		st.toggle()
		if got := f.lastConfig(t).mask; got != st.want {
			t.Errorf("step %d: mask = %v, want %v", i, got, st.want)
		}
	}

	n := f.configCount()
	s.EnableVideo(true)
	if f.configCount() != n {
		t.Error("unchanged mask was pushed again")
	}
}

func TestSession_DisableClearsImplied(t *testing.T) {
	f := withFakeLib(t)
	s := newTestSession(t)

	s.OnAudioData(func([]byte, uint32, Metadata) {})
	if err := s.Configure(ParameterBundle{}, 0, false); err != nil {
		t.Fatalf("Configure() error = %v", err)
	}
	s.EnableAudio(false)
	if got := f.lastConfig(t).mask; got != 0 {
		t.Errorf("mask after disable = %v, want none", got)
	}
	if got := s.MediaTypes(); got != 0 {
		t.Errorf("MediaTypes() = %v, want none", got)
	}
}

func TestSession_EnableFailureIsLogged(t *testing.T) {
	f := withFakeLib(t)
	s := newTestSession(t)

	if err := s.Configure(ParameterBundle{}, MediaAudio, false); err != nil {
		t.Fatalf("Configure() error = %v", err)
	}
	f.configCode = int32(StatusWrongType)
	s.EnableVideo(true)
	if got := s.MediaTypes(); !got.Has(MediaVideo) {
		t.Errorf("MediaTypes() = %v, want video kept", got)
	}
}

func TestSession_ConfigureFailureKeepsState(t *testing.T) {
	f := withFakeLib(t)
	f.configCode = int32(StatusInvalidArgs)
	s := newTestSession(t)

	err := s.Configure(ParameterBundle{}, MediaAudio, false)
	if !errors.Is(err, ErrInvalidArgs) {
		t.Fatalf("Configure() error = %v, want ErrInvalidArgs", err)
	}
	if s.State() != StateCreated {
		t.Errorf("State() = %v, want created", s.State())
	}
	// Nothing was applied, so join would still request every kind.
	if got := s.MediaTypes(); got != MediaAll {
		t.Errorf("MediaTypes() = %v, want all", got)
	}
}

func TestSession_ConfigureRejectsInvalidParams(t *testing.T) {
	f := withFakeLib(t)
	s := newTestSession(t)

	bundle := ParameterBundle{Audio: &AudioParams{
		ContentType: ContentTypeRawAudio,
		Codec:       AudioCodecOpus,
		SampleRate:  SampleRate16K,
		Channel:     AudioChannelMono,
		DataOpt:     DataOptionMixedStream,
	}}
	if err := s.Configure(bundle, MediaAudio, false); !errors.Is(err, ErrInvalidParams) {
		t.Errorf("Configure() error = %v, want ErrInvalidParams", err)
	}
	if f.configCount() != 0 {
		t.Error("invalid parameters reached the SDK")
	}
}

func TestSession_SetParams(t *testing.T) {
	f := withFakeLib(t)
	s := newTestSession(t)

	audio := AudioParams{
		ContentType: ContentTypeRawAudio,
		Codec:       AudioCodecL16,
		SampleRate:  SampleRate16K,
		Channel:     AudioChannelMono,
		DataOpt:     DataOptionMixedStream,
		Duration:    20,
		FrameSize:   320,
	}
	if err := s.SetAudioParams(audio); err != nil {
		t.Fatalf("SetAudioParams() error = %v", err)
	}
	if f.configCount() != 0 {
		t.Fatal("parameters pushed before the first configuration")
	}
	if err := s.Join("m", "s", "sig", "wss://x", -1); err != nil {
		t.Fatalf("Join() error = %v", err)
	}
	c := f.lastConfig(t)
	if c.audio == nil || c.audio.frameSize != 320 || c.audio.sampleRate != int32(SampleRate16K) {
		t.Fatalf("audio block at join = %+v", c.audio)
	}
	if c.video != nil || c.deskshare != nil {
		t.Error("absent blocks were sent")
	}

	err := s.SetVideoParams(VideoParams{
		ContentType: ContentTypeRawVideo,
		Codec:       VideoCodecH264,
		Resolution:  ResolutionHD,
		DataOpt:     DataOptionMixedStream,
		Fps:         25,
	})
	if err != nil {
		t.Fatalf("SetVideoParams() error = %v", err)
	}
	c = f.lastConfig(t)
	if c.video == nil || c.video.fps != 25 || c.audio == nil {
		t.Errorf("config after SetVideoParams = %+v", c)
	}

	if err := s.SetDeskshareParams(DeskshareParams{Codec: VideoCodecJPG}); !errors.Is(err, ErrInvalidParams) {
		t.Errorf("SetDeskshareParams(no content type) error = %v, want ErrInvalidParams", err)
	}
}

func TestSession_Run(t *testing.T) {
	f := withFakeLib(t)
	s := newTestSession(t)
	if err := s.Join("m", "s", "sig", "wss://x", -1); err != nil {
		t.Fatalf("Join() error = %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := s.Run(ctx, time.Millisecond); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Run() error = %v, want deadline exceeded", err)
	}
	f.mu.Lock()
	polls := len(f.polls)
	f.mu.Unlock()
	if polls == 0 {
		t.Error("Run() never polled")
	}

	_ = s.Release()
	done := make(chan error, 1)
	go func() { done <- s.Run(context.Background(), time.Millisecond) }()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run() after release error = %v, want nil", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Run() did not return after release")
	}
}

func TestSession_JoinWithOptions(t *testing.T) {
	t.Setenv("ZM_RTMS_CLIENT", "")
	t.Setenv("ZM_RTMS_SECRET", "")
	f := withFakeLib(t)
	s := newTestSession(t)

	polled := make(chan struct{}, 1)
	f.onPoll = func(uintptr) {
		select {
		case polled <- struct{}{}:
		default:
		}
	}

	err := s.JoinWithOptions(context.Background(), JoinOptions{
		MeetingUUID:  "m1",
		StreamID:     "s1",
		ServerURLs:   "wss://x",
		ClientID:     "client",
		ClientSecret: "secret",
		Timeout:      3 * time.Second,
		PollInterval: time.Millisecond,
	})
	if err != nil {
		t.Fatalf("JoinWithOptions() error = %v", err)
	}

	want, _ := GenerateSignature(SignatureParams{ClientID: "client", ClientSecret: "secret", MeetingUUID: "m1", StreamID: "s1"})
	f.mu.Lock()
	j := f.joins[0]
	f.mu.Unlock()
	if j.signature != want {
		t.Errorf("signature = %q, want %q", j.signature, want)
	}
	if j.timeout != 3000 {
		t.Errorf("timeout = %d, want 3000", j.timeout)
	}

	select {
	case <-polled:
	case <-time.After(time.Second):
		t.Fatal("background poll loop did not run")
	}
	s.Leave()
	if s.State() != StateReleased {
		t.Errorf("State() = %v, want released", s.State())
	}
}

func TestSession_JoinWithOptionsMissingCredentials(t *testing.T) {
	t.Setenv("ZM_RTMS_CLIENT", "")
	t.Setenv("ZM_RTMS_SECRET", "")
	f := withFakeLib(t)
	s := newTestSession(t)

	err := s.JoinWithOptions(context.Background(), JoinOptions{MeetingUUID: "m", StreamID: "s"})
	if !errors.Is(err, ErrMissingClientID) {
		t.Errorf("JoinWithOptions() error = %v, want ErrMissingClientID", err)
	}
	if len(f.joins) != 0 {
		t.Error("native join called without a signature")
	}
}
