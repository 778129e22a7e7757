package rtms

import "strings"

// MediaType is a bitmask of media kinds delivered by a session.
type MediaType int32

const (
	MediaAudio      MediaType = 1 << iota // 0x01
	MediaVideo                            // 0x02
	MediaDeskshare                        // 0x04
	MediaTranscript                       // 0x08
	MediaChat                             // 0x10

	MediaAll = MediaAudio | MediaVideo | MediaDeskshare | MediaTranscript | MediaChat
)

// Has returns true if all bits of kind are set.
func (m MediaType) Has(kind MediaType) bool { return m&kind == kind }

// With returns m with kind set or cleared.
func (m MediaType) With(kind MediaType, on bool) MediaType {
	if on {
		return m | kind
	}
	return m &^ kind
}

var mediaNames = []struct {
	kind MediaType
	name string
}{
	{MediaAudio, "audio"},
	{MediaVideo, "video"},
	{MediaDeskshare, "deskshare"},
	{MediaTranscript, "transcript"},
	{MediaChat, "chat"},
}

func (m MediaType) String() string {
	if m == 0 {
		return "none"
	}
	if m == MediaAll {
		return "all"
	}
	var parts []string
	for _, n := range mediaNames {
		if m.Has(n.kind) {
			parts = append(parts, n.name)
		}
	}
	if len(parts) == 0 {
		return "unknown"
	}
	return strings.Join(parts, "|")
}

// SessionEvent is the op passed to session update callbacks.
type SessionEvent int32

const (
	SessionAdd SessionEvent = iota + 1
	SessionStop
	SessionPause
	SessionResume
)

func (e SessionEvent) String() string {
	switch e {
	case SessionAdd:
		return "add"
	case SessionStop:
		return "stop"
	case SessionPause:
		return "pause"
	case SessionResume:
		return "resume"
	default:
		return "unknown"
	}
}

// UserEvent is the op passed to user update callbacks.
type UserEvent int32

const (
	UserJoin UserEvent = iota
	UserLeave
)

func (e UserEvent) String() string {
	switch e {
	case UserJoin:
		return "join"
	case UserLeave:
		return "leave"
	default:
		return "unknown"
	}
}

// SessionStatus is the status carried in SessionInfo.
type SessionStatus int32

const (
	SessionStatusActive SessionStatus = iota
	SessionStatusPaused
)
