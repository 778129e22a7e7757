package rtms

// mediaConfig tracks the active media kinds and parameter blocks of one
// session and keeps the native configuration in sync with them. It is
// guarded by the owning Session's mutex.
type mediaConfig struct {
	enabled MediaType // explicit enable/disable and configure masks
	implied MediaType // kinds activated by registering a data callback
	toggled MediaType // kinds touched by enable before the first configuration
	params  ParameterBundle
	ale     bool
	applied bool // configure has succeeded at least once
	last    MediaType
}

// effective is the mask sent to the SDK.
func (m *mediaConfig) effective() MediaType {
	return m.enabled | m.implied
}

// pending is the mask a join applies when no configuration has been
// applied yet: every kind, minus those explicitly disabled.
func (m *mediaConfig) pending() MediaType {
	return MediaAll&^m.toggled | m.enabled
}

// current is the mask that is, or will be at join, sent to the SDK.
func (m *mediaConfig) current() MediaType {
	if !m.applied {
		return m.pending() | m.implied
	}
	return m.effective()
}

// configure pushes bundle and mask to the SDK. Stored state only changes
// when the SDK accepts the configuration.
func (m *mediaConfig) configure(lib nativeLib, sdk uintptr, bundle ParameterBundle, mask MediaType, ale bool) error {
	if err := bundle.Validate(); err != nil {
		return err
	}
	bundle = bundle.clone()
	eff := mask | m.implied

	params, unpin := bundle.toNative()
	code := lib.config(sdk, params, int32(eff), boolToInt32(ale))
	unpin()
	if err := check("configure", code); err != nil {
		return err
	}

	m.params = bundle
	m.enabled = mask
	m.ale = ale
	m.applied = true
	m.last = eff
	return nil
}

// reapply re-sends the stored configuration after a mask change.
func (m *mediaConfig) reapply(lib nativeLib, sdk uintptr) error {
	return m.configure(lib, sdk, m.params, m.enabled, m.ale)
}

// enable flips kind. Once a configuration has been applied the change is
// pushed immediately and a failure is only logged.
func (m *mediaConfig) enable(lib nativeLib, sdk uintptr, kind MediaType, on bool) {
	m.enabled = m.enabled.With(kind, on)
	m.toggled |= kind
	if !on {
		m.implied = m.implied.With(kind, false)
	}
	if !m.applied || sdk == 0 || m.effective() == m.last {
		return
	}
	if err := m.reapply(lib, sdk); err != nil {
		logger().Warn().Err(err).Stringer("kind", kind).Bool("on", on).Msg("media reconfiguration failed")
	}
}

// imply marks kind active because a data callback was registered for it.
func (m *mediaConfig) imply(lib nativeLib, sdk uintptr, kind MediaType) {
	if m.implied.Has(kind) {
		return
	}
	m.implied |= kind
	if !m.applied || sdk == 0 || m.effective() == m.last {
		return
	}
	if err := m.reapply(lib, sdk); err != nil {
		logger().Warn().Err(err).Stringer("kind", kind).Msg("media reconfiguration failed")
	}
}

func boolToInt32(b bool) int32 {
	if b {
		return 1
	}
	return 0
}
