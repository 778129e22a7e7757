package rtms

import "runtime/debug"

// Trampolines are the functions the native SDK calls. Each one only
// unmarshals its native arguments into owned Go values and routes them to
// the session's current callback. They run on the goroutine that is inside
// Session.Poll.

// guard runs fn and stops any panic from unwinding into native frames.
func guard(event string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			logger().Error().
				Str("event", event).
				Interface("panic", r).
				Str("stack", string(debug.Stack())).
				Msg("callback panicked")
		}
	}()
	fn()
}

// route returns the callbacks of the live session that owns sdk. Unknown or
// released sessions yield false and the event is dropped.
func route(sdk uintptr) (callbacks, bool) {
	s, ok := sessions.lookup(sdk)
	if !ok {
		return callbacks{}, false
	}
	return s.callbackSnapshot()
}

func onJoinConfirmTrampoline(sdk uintptr, reason int32) {
	guard("join_confirm", func() {
		cb, ok := route(sdk)
		if !ok || cb.joinConfirm == nil {
			return
		}
		cb.joinConfirm(int(reason))
	})
}

func onSessionUpdateTrampoline(sdk uintptr, op int32, info uintptr) {
	guard("session_update", func() {
		cb, ok := route(sdk)
		if !ok || cb.sessionUpdate == nil {
			return
		}
		cb.sessionUpdate(SessionEvent(op), readSessionInfo(info))
	})
}

func onUserUpdateTrampoline(sdk uintptr, op int32, participant uintptr) {
	guard("user_update", func() {
		cb, ok := route(sdk)
		if !ok || cb.userUpdate == nil {
			return
		}
		cb.userUpdate(UserEvent(op), readParticipantInfo(participant))
	})
}

func onDeskshareDataTrampoline(sdk uintptr, buf uintptr, size int32, timestamp uint32, md uintptr) {
	guard("deskshare_data", func() {
		cb, ok := route(sdk)
		if !ok || cb.deskshareData == nil {
			return
		}
		cb.deskshareData(copyBytes(buf, size), timestamp, readMetadata(md))
	})
}

func onAudioDataTrampoline(sdk uintptr, buf uintptr, size int32, timestamp uint32, md uintptr) {
	guard("audio_data", func() {
		cb, ok := route(sdk)
		if !ok || cb.audioData == nil {
			return
		}
		cb.audioData(copyBytes(buf, size), timestamp, readMetadata(md))
	})
}

func onVideoDataTrampoline(sdk uintptr, buf uintptr, size int32, timestamp uint32, sessionID uintptr, md uintptr) {
	guard("video_data", func() {
		cb, ok := route(sdk)
		if !ok || cb.videoData == nil {
			return
		}
		cb.videoData(copyBytes(buf, size), timestamp, goStringFromPtr(sessionID), readMetadata(md))
	})
}

func onTranscriptDataTrampoline(sdk uintptr, buf uintptr, size int32, timestamp uint32, md uintptr) {
	guard("transcript_data", func() {
		cb, ok := route(sdk)
		if !ok || cb.transcript == nil {
			return
		}
		cb.transcript(copyBytes(buf, size), timestamp, readMetadata(md))
	})
}

func onLeaveTrampoline(sdk uintptr, reason int32) {
	guard("leave", func() {
		cb, ok := route(sdk)
		if !ok || cb.leave == nil {
			return
		}
		cb.leave(int(reason))
	})
}

func onEventExTrampoline(sdk uintptr, buf uintptr, size int32) {
	guard("event_ex", func() {
		cb, ok := route(sdk)
		if !ok || cb.eventEx == nil {
			return
		}
		cb.eventEx(string(copyBytes(buf, size)))
	})
}
