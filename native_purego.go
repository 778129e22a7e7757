//go:build darwin || linux

// The RTMS C SDK (librtms_csdk) is loaded at runtime with purego, so the
// package builds without CGO and without the SDK present.

package rtms

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"unsafe"

	"github.com/ebitengine/purego"
)

// librtms_csdk function pointers
var (
	rtmsInit         func(caPath string) int32
	rtmsUninit       func()
	rtmsAlloc        func() uintptr
	rtmsConfig       func(sdk, params uintptr, mediaTypes, ale int32) int32
	rtmsSetCallbacks func(sdk, ops uintptr) int32
	rtmsJoin         func(sdk uintptr, meetingUUID, streamID, signature, serverURL string, timeout int32) int32
	rtmsPoll         func(sdk uintptr) int32
	rtmsRelease      func(sdk uintptr) int32
)

// nativeOps is handed to rtms_set_callbacks for every session. Package-level
// storage keeps its address stable for the life of the process.
var nativeOps cOps

type puregoLib struct {
	handle uintptr
}

func loadNativeLib() (nativeLib, error) {
	paths := getRTMSLibPaths()

	var lastErr error
	for _, path := range paths {
		handle, err := purego.Dlopen(path, purego.RTLD_NOW|purego.RTLD_GLOBAL)
		if err != nil {
			lastErr = err
			continue
		}
		if err := loadRTMSSymbols(handle); err != nil {
			purego.Dlclose(handle)
			lastErr = err
			continue
		}
		installTrampolines()
		logger().Debug().Str("path", path).Msg("loaded native library")
		return &puregoLib{handle: handle}, nil
	}

	if lastErr != nil {
		return nil, fmt.Errorf("%w: %w", ErrLibraryNotFound, lastErr)
	}
	return nil, ErrLibraryNotFound
}

func rtmsLibName() string {
	if runtime.GOOS == "darwin" {
		return "librtms_csdk.dylib"
	}
	return "librtms_csdk.so"
}

func getRTMSLibPaths() []string {
	var paths []string
	libName := rtmsLibName()

	if libraryPath != "" {
		paths = append(paths, libraryPath, filepath.Join(libraryPath, libName))
	}
	if envPath := os.Getenv("ZM_RTMS_LIB_PATH"); envPath != "" {
		paths = append(paths, envPath, filepath.Join(envPath, libName))
	}

	if exe, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exe)
		paths = append(paths,
			filepath.Join(exeDir, libName),
			filepath.Join(exeDir, "..", "lib", libName),
		)
	}

	if root := findModuleRoot(); root != "" {
		paths = append(paths,
			filepath.Join(root, "lib", libName),
			filepath.Join(root, "build", libName),
		)
	}

	switch runtime.GOOS {
	case "darwin":
		paths = append(paths,
			libName,
			"/usr/local/lib/"+libName,
			"/opt/homebrew/lib/"+libName,
		)
	case "linux":
		paths = append(paths,
			libName,
			"/usr/local/lib/"+libName,
			"/usr/lib/"+libName,
		)
	}

	return paths
}

func loadRTMSSymbols(handle uintptr) error {
	syms := []struct {
		fptr any
		name string
	}{
		{&rtmsInit, "rtms_init"},
		{&rtmsUninit, "rtms_uninit"},
		{&rtmsAlloc, "rtms_alloc"},
		{&rtmsConfig, "rtms_config"},
		{&rtmsSetCallbacks, "rtms_set_callbacks"},
		{&rtmsJoin, "rtms_join"},
		{&rtmsPoll, "rtms_poll"},
		{&rtmsRelease, "rtms_release"},
	}
	for _, s := range syms {
		if _, err := purego.Dlsym(handle, s.name); err != nil {
			return fmt.Errorf("missing symbol %s: %w", s.name, err)
		}
	}
	for _, s := range syms {
		purego.RegisterLibFunc(s.fptr, handle, s.name)
	}
	return nil
}

// installTrampolines creates the native-callable function pointers. purego
// callbacks are never freed, so this runs once per process.
func installTrampolines() {
	nativeOps = cOps{
		onJoinConfirm:    purego.NewCallback(onJoinConfirmTrampoline),
		onSessionUpdate:  purego.NewCallback(onSessionUpdateTrampoline),
		onUserUpdate:     purego.NewCallback(onUserUpdateTrampoline),
		onDeskshareData:  purego.NewCallback(onDeskshareDataTrampoline),
		onAudioData:      purego.NewCallback(onAudioDataTrampoline),
		onVideoData:      purego.NewCallback(onVideoDataTrampoline),
		onTranscriptData: purego.NewCallback(onTranscriptDataTrampoline),
		onLeave:          purego.NewCallback(onLeaveTrampoline),
		onEventEx:        purego.NewCallback(onEventExTrampoline),
	}
}

func (l *puregoLib) init(caPath string) int32 { return rtmsInit(caPath) }
func (l *puregoLib) uninit()                  { rtmsUninit() }
func (l *puregoLib) alloc() uintptr           { return rtmsAlloc() }

func (l *puregoLib) config(sdk, params uintptr, mediaTypes, ale int32) int32 {
	return rtmsConfig(sdk, params, mediaTypes, ale)
}

func (l *puregoLib) setCallbacks(sdk uintptr) int32 {
	return rtmsSetCallbacks(sdk, uintptr(unsafe.Pointer(&nativeOps)))
}

func (l *puregoLib) join(sdk uintptr, meetingUUID, streamID, signature, serverURL string, timeout int32) int32 {
	return rtmsJoin(sdk, meetingUUID, streamID, signature, serverURL, timeout)
}

func (l *puregoLib) poll(sdk uintptr) int32    { return rtmsPoll(sdk) }
func (l *puregoLib) release(sdk uintptr) int32 { return rtmsRelease(sdk) }
