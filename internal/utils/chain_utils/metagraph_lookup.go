package chainutils

import "github.com/chaininsights/validator/internal/ledger"

// IsRegistered reports whether key is a registered module of the subnet.
func IsRegistered(modules map[string]ledger.ModuleInfo, key string) bool {
	_, ok := modules[key]
	return ok
}

// KeyForUID returns the module key registered under uid.
func KeyForUID(modules map[string]ledger.ModuleInfo, uid int) (string, bool) {
	for key, m := range modules {
		if m.UID == uid {
			return key, true
		}
	}
	return "", false
}
