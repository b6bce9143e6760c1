package internal

import (
	"crypto/sha256"
	"encoding/hex"
)

const derivedDeviceNamePrefix = "device-"

// HashBindingValue returns the SHA-256 digest of v.
func HashBindingValue(v string) [32]byte {
	return sha256.Sum256([]byte(v))
}

// DeriveDeviceName builds a stable, per-device name from the fingerprint notes
// captured during device registration. It returns "" when both inputs are empty,
// since every such device would collapse to the same name.
func DeriveDeviceName(cpuid, visitorID string) string {
	if cpuid == "" && visitorID == "" {
		return ""
	}
	sum := HashBindingValue(cpuid + "\x00" + visitorID)
	return derivedDeviceNamePrefix + hex.EncodeToString(sum[:8])
}
