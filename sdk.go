package rtms

import (
	"os"
	"sync"
)

var (
	initMu      sync.Mutex
	initialized bool

	// libraryPath is searched before the default locations.
	libraryPath string
)

// SetLibraryPath sets a file or directory to search first for the native
// library. It has no effect once the library has been loaded.
func SetLibraryPath(path string) {
	libraryPath = path
}

// Initialize performs the process-wide SDK initialization. caPath is passed
// through FindCACertificate, so an empty value selects a system bundle.
// Calling it again after success is a no-op.
func Initialize(caPath string) error {
	initMu.Lock()
	defer initMu.Unlock()

	if initialized {
		logger().Debug().Msg("SDK already initialized")
		return nil
	}
	lib, err := library()
	if err != nil {
		return err
	}

	certPath := FindCACertificate(caPath)
	logger().Info().Str("ca", certPath).Msg("initializing RTMS SDK")
	if err := check("initialize", lib.init(certPath)); err != nil {
		logger().Error().Err(err).Msg("failed to initialize RTMS SDK")
		return err
	}
	initialized = true
	return nil
}

// Uninitialize releases process-wide SDK state. Sessions must be released first.
func Uninitialize() {
	initMu.Lock()
	defer initMu.Unlock()

	if !initialized {
		return
	}
	if lib, err := library(); err == nil {
		lib.uninit()
	}
	initialized = false
	logger().Info().Msg("RTMS SDK uninitialized")
}

// IsInitialized reports whether Initialize has succeeded.
func IsInitialized() bool {
	initMu.Lock()
	defer initMu.Unlock()
	return initialized
}

func ensureInitialized() error {
	if IsInitialized() {
		return nil
	}
	return Initialize(os.Getenv("ZM_RTMS_CA"))
}

var systemCALocations = []string{
	"/etc/ssl/certs/ca-certificates.crt", // Debian/Ubuntu
	"/etc/pki/tls/certs/ca-bundle.crt",   // Fedora/RHEL
	"/etc/ssl/ca-bundle.pem",             // OpenSUSE
	"/etc/pki/tls/cacert.pem",            // CentOS
	"/etc/ssl/cert.pem",                  // Alpine, macOS
	"/usr/local/etc/openssl/cert.pem",    // Homebrew OpenSSL
	"/opt/homebrew/etc/openssl/cert.pem", // Apple Silicon Homebrew
}

// FindCACertificate returns the first existing CA bundle among path,
// $ZM_RTMS_CA and the common system locations, or "" if none exists.
func FindCACertificate(path string) string {
	if path != "" && fileExists(path) {
		return path
	}
	if env := os.Getenv("ZM_RTMS_CA"); env != "" && fileExists(env) {
		return env
	}
	for _, loc := range systemCALocations {
		if fileExists(loc) {
			return loc
		}
	}
	logger().Warn().Msg("no CA certificate found, TLS verification may fail")
	return ""
}

func fileExists(path string) bool {
	st, err := os.Stat(path)
	return err == nil && !st.IsDir()
}
