package rtms

import (
	"sync"
	"unsafe"
)

// Layouts mirror rtms_common.h / rtms_csdk.h. Field order and widths must not change.

type cSessionInfo struct {
	sessionID uintptr // char*
	statTime  int32
	status    int32
}

type cParticipantInfo struct {
	participantID   int32
	participantName uintptr // char*
}

type cMetadata struct {
	userName uintptr // char*
	userID   int32
}

type cAudioParameters struct {
	contentType int32
	codec       int32
	sampleRate  int32
	channel     int32
	dataOpt     int32
	duration    int32
	frameSize   int32
}

type cVideoParameters struct {
	contentType int32
	codec       int32
	resolution  int32
	dataOpt     int32
	fps         int32
}

type cDeskshareParameters struct {
	contentType int32
	codec       int32
	resolution  int32
	fps         int32
}

type cMediaParameters struct {
	audio     *cAudioParameters
	video     *cVideoParameters
	deskshare *cDeskshareParameters
}

// cOps is struct rtms_csdk_ops: one function pointer per trampoline.
type cOps struct {
	onJoinConfirm    uintptr
	onSessionUpdate  uintptr
	onUserUpdate     uintptr
	onDeskshareData  uintptr
	onAudioData      uintptr
	onVideoData      uintptr
	onTranscriptData uintptr
	onLeave          uintptr
	onEventEx        uintptr
}

// nativeLib is the C ABI surface of the SDK. Pointers are passed as uintptr;
// every struct handed across must stay pinned for the duration of the call.
type nativeLib interface {
	init(caPath string) int32
	uninit()
	alloc() uintptr
	config(sdk uintptr, params uintptr, mediaTypes int32, ale int32) int32
	setCallbacks(sdk uintptr) int32
	join(sdk uintptr, meetingUUID, streamID, signature, serverURL string, timeout int32) int32
	poll(sdk uintptr) int32
	release(sdk uintptr) int32
}

var (
	libOnce sync.Once
	libInst nativeLib
	libErr  error

	// libOverride replaces the dynamically loaded library; set by tests.
	libOverride nativeLib
)

// library returns the process-wide native library, loading it on first use.
func library() (nativeLib, error) {
	if libOverride != nil {
		return libOverride, nil
	}
	libOnce.Do(func() {
		libInst, libErr = loadNativeLib()
	})
	return libInst, libErr
}

// IsAvailable reports whether the native SDK library can be loaded.
func IsAvailable() bool {
	_, err := library()
	return err == nil
}

// copyBytes copies size bytes of native memory into a fresh Go slice.
func copyBytes(buf uintptr, size int32) []byte {
	if buf == 0 || size <= 0 {
		return []byte{}
	}
	out := make([]byte, size)
	copy(out, unsafe.Slice((*byte)(unsafe.Pointer(buf)), int(size)))
	return out
}

func readMetadata(md uintptr) Metadata {
	if md == 0 {
		return Metadata{}
	}
	m := (*cMetadata)(unsafe.Pointer(md))
	return Metadata{
		UserName: goStringFromPtr(m.userName),
		UserID:   int(m.userID),
	}
}

func readSessionInfo(p uintptr) SessionInfo {
	if p == 0 {
		return SessionInfo{}
	}
	s := (*cSessionInfo)(unsafe.Pointer(p))
	status := SessionStatus(s.status)
	return SessionInfo{
		SessionID: goStringFromPtr(s.sessionID),
		StatTime:  int(s.statTime),
		Status:    status,
		IsActive:  status == SessionStatusActive,
		IsPaused:  status == SessionStatusPaused,
	}
}

func readParticipantInfo(p uintptr) ParticipantInfo {
	if p == 0 {
		return ParticipantInfo{}
	}
	pi := (*cParticipantInfo)(unsafe.Pointer(p))
	return ParticipantInfo{
		ID:   int(pi.participantID),
		Name: goStringFromPtr(pi.participantName),
	}
}
