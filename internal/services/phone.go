package services

import "strings"

// DefaultCountryPrefix is prepended to numbers given without an international prefix
const DefaultCountryPrefix = "+91"

// NormalizePhone returns the canonical form of raw: a "+"-prefixed number is
// kept as-is, anything else is treated as domestic and gets prefix.
// The result of NormalizePhone is a fixed point of NormalizePhone.
func NormalizePhone(raw, prefix string) string {
	phone := strings.TrimSpace(raw)
	if phone == "" {
		return ""
	}
	if strings.HasPrefix(phone, "+") {
		return phone
	}
	return normalizePrefix(prefix) + phone
}

func normalizePrefix(prefix string) string {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return DefaultCountryPrefix
	}
	if !strings.HasPrefix(prefix, "+") {
		prefix = "+" + prefix
	}
	return prefix
}
