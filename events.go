package rtms

// Metadata identifies the participant a media payload belongs to.
type Metadata struct {
	UserName string
	UserID   int
}

// SessionInfo is a snapshot of a session update.
type SessionInfo struct {
	SessionID string
	StatTime  int // Unix seconds
	Status    SessionStatus
	IsActive  bool
	IsPaused  bool
}

// ParticipantInfo is a snapshot of a user update.
type ParticipantInfo struct {
	ID   int
	Name string
}

// Callback types. Byte slices handed to data callbacks are owned by the
// callee; they are copied out of native memory before the call.
type (
	JoinConfirmFunc   func(reason int)
	SessionUpdateFunc func(op SessionEvent, info SessionInfo)
	UserUpdateFunc    func(op UserEvent, participant ParticipantInfo)
	DataFunc          func(data []byte, timestamp uint32, md Metadata)
	VideoDataFunc     func(data []byte, timestamp uint32, sessionID string, md Metadata)
	LeaveFunc         func(reason int)
	EventExFunc       func(payload string)
)

// callbacks holds a session's replaceable handler slots.
type callbacks struct {
	joinConfirm   JoinConfirmFunc
	sessionUpdate SessionUpdateFunc
	userUpdate    UserUpdateFunc
	deskshareData DataFunc
	audioData     DataFunc
	videoData     VideoDataFunc
	transcript    DataFunc
	leave         LeaveFunc
	eventEx       EventExFunc
}
