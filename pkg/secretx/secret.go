// Package secretx wraps sensitive strings (passwords, signing keys) so they
// cannot leak through formatting, logging or JSON encoding. Reading the raw
// value requires an explicit Expose call.
package secretx

import "log/slog"

// Redacted is what every formatting path prints instead of the value.
const Redacted = "[REDACTED]"

// Secret holds a sensitive string. The zero value is an empty secret.
type Secret struct {
	value string
}

// New wraps a raw sensitive value.
func New(value string) Secret {
	return Secret{value: value}
}

// Expose returns the raw value. Call sites should be easy to audit; never
// pass the result to a logger.
func (s Secret) Expose() string {
	return s.value
}

// IsEmpty reports whether the secret holds no value.
func (s Secret) IsEmpty() bool {
	return s.value == ""
}

// String implements fmt.Stringer and always redacts.
func (s Secret) String() string {
	return Redacted
}

// GoString redacts %#v output as well.
func (s Secret) GoString() string {
	return Redacted
}

// MarshalJSON redacts the value in any encoded payload.
func (s Secret) MarshalJSON() ([]byte, error) {
	return []byte(`"` + Redacted + `"`), nil
}

// UnmarshalJSON accepts a plain JSON string, e.g. form/config decoding.
func (s *Secret) UnmarshalJSON(data []byte) error {
	// Strip the surrounding quotes without pulling in encoding/json for a
	// value this small; invalid payloads are kept verbatim-empty.
	if len(data) >= 2 && data[0] == '"' && data[len(data)-1] == '"' {
		s.value = string(data[1 : len(data)-1])
		return nil
	}
	s.value = string(data)
	return nil
}

// LogValue implements slog.LogValuer so structured logs redact automatically.
func (s Secret) LogValue() slog.Value {
	return slog.StringValue(Redacted)
}
