package visitor

import (
	"strings"

	"github.com/ttacon/libphonenumber"
)

// NormalizePhone formats a valid number for region as E.164 and returns
// anything else trimmed but otherwise untouched.
func NormalizePhone(raw, region string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	num, err := libphonenumber.Parse(raw, region)
	if err != nil || !libphonenumber.IsValidNumber(num) {
		return raw
	}
	return libphonenumber.Format(num, libphonenumber.E164)
}
