// Package rtms provides Go bindings for the Zoom Realtime Media Streams C
// SDK (librtms_csdk).
//
// Key pieces include:
//   - Session: join a stream, register typed callbacks, poll, release
//   - Default, Join and Leave: a package-level session polled in the background
//   - Parameter blocks for audio, video and deskshare delivery
//   - Signature generation and CA discovery for joining
//   - RTPForwarder and PCM helpers for consuming delivered media
//   - Package webhook: an HTTP(S) listener for stream announcements
//
// # Architecture
//
//	NewSession -> On* callbacks -> Configure (optional) -> Join -> Poll ... -> Release
//
// The SDK invokes callbacks only from inside Poll, on the polling goroutine.
// Run polls on an interval until the context is done or the session is
// released. Payloads are copied out of native memory before a callback sees
// them, and a panicking callback is logged rather than propagated.
//
// Without a Configure call, Join requests every media kind except those
// turned off with Enable*. Registering a data callback never narrows it.
//
// # Native Library
//
// The SDK is loaded at runtime with purego, so the package builds with
// CGO_ENABLED=0. Set ZM_RTMS_LIB_PATH or call SetLibraryPath to point at the
// directory containing librtms_csdk. Only darwin and linux are supported.
//
// # Configuration
//
// LoadConfig reads ZM_RTMS_* environment variables: CA, CLIENT, SECRET,
// LIB_PATH, POLL_INTERVAL, LOG_LEVEL, LOG_FORMAT, LOG_ENABLED and, for the
// webhook listener, PORT, PATH, CERT, KEY and CA_WEBHOOK.
package rtms
