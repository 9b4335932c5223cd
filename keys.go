package lorawan

// MACVersion selects which protocol generation a message, key set or session
// belongs to.
type MACVersion int

const (
	MACVersion102 MACVersion = iota
	MACVersion11
)

// RootKeys holds the long-term keys provisioned on a device, polymorphic
// over protocol version. Each key carries a presence flag set by the
// constructors and setters; a key that was never set is treated as unset
// (even a zero-valued key passed to a constructor counts as set), and
// accessors on a dissected message fail with MissingKey rather than
// silently using an unset key.
type RootKeys struct {
	version MACVersion

	appEUISet bool
	appEUI    [8]byte

	joinEUISet bool
	joinEUI    [8]byte

	devEUISet bool
	devEUI    [8]byte

	appKeySet bool
	appKey    AES128Key

	nwkKeySet bool
	nwkKey AES128Key
}

// NewRootKeys102 builds the 1.0.2 root key set: AppEUI, AppKey, DevEUI.
func NewRootKeys102(appEUI, devEUI [8]byte, appKey AES128Key) RootKeys {
	return RootKeys{
		version:   MACVersion102,
		appEUISet: true, appEUI: appEUI,
		devEUISet: true, devEUI: devEUI,
		appKeySet: true, appKey: appKey,
	}
}

// NewRootKeys11 builds the 1.1 root key set: JoinEUI, NwkKey, DevEUI (AppKey
// is optional under 1.1 and may be added with SetAppKey).
func NewRootKeys11(joinEUI, devEUI [8]byte, nwkKey AES128Key) RootKeys {
	return RootKeys{
		version:    MACVersion11,
		joinEUISet: true, joinEUI: joinEUI,
		devEUISet: true, devEUI: devEUI,
		nwkKeySet: true, nwkKey: nwkKey,
	}
}

// SetAppKey attaches an AppKey to a 1.1 root key set (used for legacy
// join-accept re-encryption when NwkKey alone is insufficient).
func (k *RootKeys) SetAppKey(key AES128Key) {
	k.appKeySet = true
	k.appKey = key
}

// AppEUI returns the 1.0.2 AppEUI, or MissingKey if unset.
func (k RootKeys) AppEUI() ([8]byte, error) {
	if !k.appEUISet {
		return [8]byte{}, ErrMissingKey("AppEUI")
	}
	return k.appEUI, nil
}

// JoinEUI returns the 1.1 JoinEUI, or MissingKey if unset.
func (k RootKeys) JoinEUI() ([8]byte, error) {
	if !k.joinEUISet {
		return [8]byte{}, ErrMissingKey("JoinEUI")
	}
	return k.joinEUI, nil
}

// DevEUI returns the device EUI, or MissingKey if unset.
func (k RootKeys) DevEUI() ([8]byte, error) {
	if !k.devEUISet {
		return [8]byte{}, ErrMissingKey("DevEUI")
	}
	return k.devEUI, nil
}

// AppKey returns the AppKey (1.0.2 join key, or optional 1.1 application
// key), or MissingKey if unset.
func (k RootKeys) AppKey() (AES128Key, error) {
	if !k.appKeySet {
		return AES128Key{}, ErrMissingKey("AppKey")
	}
	return k.appKey, nil
}

// NwkKey returns the 1.1 join key, or MissingKey if unset.
func (k RootKeys) NwkKey() (AES128Key, error) {
	if !k.nwkKeySet {
		return AES128Key{}, ErrMissingKey("NwkKey")
	}
	return k.nwkKey, nil
}

// Session holds the per-activation session keys and frame counters,
// polymorphic over protocol version.
type Session struct {
	version MACVersion

	devAddrSet bool
	devAddr    [4]byte

	nwkSKeySet bool
	nwkSKey    AES128Key

	appSKeySet bool
	appSKey    AES128Key

	fNwkSIntKeySet bool
	fNwkSIntKey    AES128Key

	sNwkSIntKeySet bool
	sNwkSIntKey    AES128Key

	nwkSEncKeySet bool
	nwkSEncKey    AES128Key

	FCntUp   uint32
	FCntDown uint32
}

// NewSession102 builds a 1.0.2 session: DevAddr, NwkSKey, AppSKey.
func NewSession102(devAddr [4]byte, nwkSKey, appSKey AES128Key) Session {
	return Session{
		version:    MACVersion102,
		devAddrSet: true, devAddr: devAddr,
		nwkSKeySet: true, nwkSKey: nwkSKey,
		appSKeySet: true, appSKey: appSKey,
	}
}

// NewSession11 builds a 1.1 session: DevAddr, AppSKey, FNwkSIntKey,
// SNwkSIntKey, NwkSEncKey.
func NewSession11(devAddr [4]byte, appSKey, fNwkSIntKey, sNwkSIntKey, nwkSEncKey AES128Key) Session {
	return Session{
		version:    MACVersion11,
		devAddrSet: true, devAddr: devAddr,
		appSKeySet:     true, appSKey: appSKey,
		fNwkSIntKeySet: true, fNwkSIntKey: fNwkSIntKey,
		sNwkSIntKeySet: true, sNwkSIntKey: sNwkSIntKey,
		nwkSEncKeySet:  true, nwkSEncKey: nwkSEncKey,
	}
}

// DevAddr returns the session's device address, or MissingKey if unset.
func (s Session) DevAddr() ([4]byte, error) {
	if !s.devAddrSet {
		return [4]byte{}, ErrMissingKey("DevAddr")
	}
	return s.devAddr, nil
}

// NwkSKey returns the 1.0.2 network session key, or MissingKey if unset.
func (s Session) NwkSKey() (AES128Key, error) {
	if !s.nwkSKeySet {
		return AES128Key{}, ErrMissingKey("NwkSKey")
	}
	return s.nwkSKey, nil
}

// AppSKey returns the application session key, or MissingKey if unset.
func (s Session) AppSKey() (AES128Key, error) {
	if !s.appSKeySet {
		return AES128Key{}, ErrMissingKey("AppSKey")
	}
	return s.appSKey, nil
}

// FNwkSIntKey returns the 1.1 forwarding network session integrity key, or
// MissingKey if unset.
func (s Session) FNwkSIntKey() (AES128Key, error) {
	if !s.fNwkSIntKeySet {
		return AES128Key{}, ErrMissingKey("FNwkSIntKey")
	}
	return s.fNwkSIntKey, nil
}

// SNwkSIntKey returns the 1.1 serving network session integrity key, or
// MissingKey if unset.
func (s Session) SNwkSIntKey() (AES128Key, error) {
	if !s.sNwkSIntKeySet {
		return AES128Key{}, ErrMissingKey("SNwkSIntKey")
	}
	return s.sNwkSIntKey, nil
}

// NwkSEncKey returns the 1.1 network session encryption key, or MissingKey
// if unset.
func (s Session) NwkSEncKey() (AES128Key, error) {
	if !s.nwkSEncKeySet {
		return AES128Key{}, ErrMissingKey("NwkSEncKey")
	}
	return s.nwkSEncKey, nil
}

// AES128Key is a 16-byte AES key, presented big-endian to the caller.
type AES128Key [16]byte
