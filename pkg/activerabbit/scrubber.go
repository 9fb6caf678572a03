// scrubber.go implements sensitive-data redaction for outbound payloads.

package activerabbit

import (
	"regexp"
	"strconv"
	"strings"
)

// Redacted is the marker substituted for scrubbed values.
const Redacted = "[FILTERED]"

// DefaultSensitiveFields are the field names whose values are redacted
// wholesale. Matching is a case-insensitive substring test, so "user_email"
// and "Email" both match "email".
func DefaultSensitiveFields() []string {
	return []string{
		"password",
		"passwd",
		"secret",
		"token",
		"api_key",
		"apikey",
		"access_key",
		"auth",
		"credential",
		"email",
		"ssn",
		"social_security",
		"credit_card",
		"card_number",
		"cvv",
		"pin",
	}
}

// Compiled patterns for string scrubbing (compiled once at package init).
var (
	emailPattern = regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`)

	// Four phone formats: dashed, dotted, parenthesized area code, and
	// +1-prefixed international.
	phonePatterns = []*regexp.Regexp{
		regexp.MustCompile(`\+1[-.\s]?\d{3}[-.\s]?\d{3}[-.\s]?\d{4}\b`),
		regexp.MustCompile(`\(\d{3}\)\s?\d{3}[-.\s]?\d{4}\b`),
		regexp.MustCompile(`\b\d{3}-\d{3}-\d{4}\b`),
		regexp.MustCompile(`\b\d{3}\.\d{3}\.\d{4}\b`),
	}

	// Candidate card numbers: 13-19 digits, optionally grouped by single
	// spaces or hyphens. Replaced only when the digits pass Luhn, so order
	// numbers and other long ids survive.
	cardPattern = regexp.MustCompile(`\b\d(?:[ -]?\d){12,18}\b`)

	// Social-security shapes: dashed, spaced, and bare nine digits.
	ssnPatterns = []*regexp.Regexp{
		regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`),
		regexp.MustCompile(`\b\d{3} \d{2} \d{4}\b`),
		regexp.MustCompile(`\b\d{9}\b`),
	}

	ipv4Pattern = regexp.MustCompile(`\b(\d{1,3})\.(\d{1,3})\.(\d{1,3})\.(\d{1,3})\b`)

	digitOnly = regexp.MustCompile(`\D`)
)

// ScrubberConfig controls scrubbing behavior.
type ScrubberConfig struct {
	// SensitiveFields are the field names redacted wholesale. Empty means
	// DefaultSensitiveFields.
	SensitiveFields []string
}

// Scrubber redacts sensitive data from arbitrary nested values. It is a pure
// function of its input and configuration and is safe for concurrent use.
type Scrubber struct {
	fields []string
}

// NewScrubber creates a scrubber with the given configuration.
func NewScrubber(cfg ScrubberConfig) *Scrubber {
	fields := cfg.SensitiveFields
	if len(fields) == 0 {
		fields = DefaultSensitiveFields()
	}
	lowered := make([]string, len(fields))
	for i, f := range fields {
		lowered[i] = strings.ToLower(f)
	}
	return &Scrubber{fields: lowered}
}

// Scrub recursively redacts sensitive data, preserving structure and key
// identity. Maps with sensitive keys have those values replaced wholesale;
// strings get pattern-based redaction; other scalars pass through unchanged.
// Input of an unexpected shape is returned as-is.
func (s *Scrubber) Scrub(value any) any {
	switch v := value.(type) {
	case map[string]any:
		result := make(map[string]any, len(v))
		for key, val := range v {
			if s.isSensitiveKey(key) {
				result[key] = Redacted
			} else {
				result[key] = s.Scrub(val)
			}
		}
		return result
	case map[string]string:
		result := make(map[string]string, len(v))
		for key, val := range v {
			if s.isSensitiveKey(key) {
				result[key] = Redacted
			} else {
				result[key] = s.ScrubString(val)
			}
		}
		return result
	case []any:
		result := make([]any, len(v))
		for i, val := range v {
			result[i] = s.Scrub(val)
		}
		return result
	case []string:
		result := make([]string, len(v))
		for i, val := range v {
			result[i] = s.ScrubString(val)
		}
		return result
	case string:
		return s.ScrubString(v)
	default:
		// Numbers, booleans, nil, and anything else pass through.
		return v
	}
}

// ScrubString applies the pattern passes to a single string, in sequence:
// emails, phone numbers, Luhn-valid card numbers, SSN shapes, IPv4 masking.
func (s *Scrubber) ScrubString(str string) string {
	if str == "" {
		return str
	}

	result := emailPattern.ReplaceAllString(str, Redacted)

	for _, p := range phonePatterns {
		result = p.ReplaceAllString(result, Redacted)
	}

	result = cardPattern.ReplaceAllStringFunc(result, func(match string) string {
		digits := digitOnly.ReplaceAllString(match, "")
		if len(digits) < 13 || len(digits) > 19 {
			return match
		}
		if !luhnValid(digits) {
			return match
		}
		return Redacted
	})

	for _, p := range ssnPatterns {
		result = p.ReplaceAllStringFunc(result, func(match string) string {
			digits := digitOnly.ReplaceAllString(match, "")
			if allSameDigit(digits) {
				return match
			}
			return Redacted
		})
	}

	result = ipv4Pattern.ReplaceAllStringFunc(result, maskIPv4)

	return result
}

// ScrubTags redacts a tag map without changing its type.
func (s *Scrubber) ScrubTags(tags map[string]string) map[string]string {
	if tags == nil {
		return nil
	}
	return s.Scrub(tags).(map[string]string)
}

// ScrubProperties redacts a properties map without changing its type.
func (s *Scrubber) ScrubProperties(props map[string]any) map[string]any {
	if props == nil {
		return nil
	}
	return s.Scrub(props).(map[string]any)
}

// ScrubRequest redacts the variable parts of a request snapshot.
func (s *Scrubber) ScrubRequest(rc *RequestContext) *RequestContext {
	if rc == nil {
		return nil
	}
	out := *rc
	out.Path = s.ScrubString(rc.Path)
	out.IP = s.ScrubString(rc.IP)
	out.Params = s.ScrubTags(rc.Params)
	return &out
}

// isSensitiveKey reports whether a map key matches the sensitive-field list.
func (s *Scrubber) isSensitiveKey(key string) bool {
	keyLower := strings.ToLower(key)
	for _, f := range s.fields {
		if strings.Contains(keyLower, f) {
			return true
		}
	}
	return false
}

// maskIPv4 keeps the first octet and blanks the rest, but only when every
// octet is a valid 0-255 value; anything else is left untouched.
func maskIPv4(match string) string {
	parts := strings.Split(match, ".")
	if len(parts) != 4 {
		return match
	}
	for _, part := range parts {
		n, err := strconv.Atoi(part)
		if err != nil || n < 0 || n > 255 {
			return match
		}
	}
	return parts[0] + ".xxx.xxx.xxx"
}

// luhnValid reports whether a digit string passes the Luhn checksum.
func luhnValid(digits string) bool {
	sum := 0
	double := false
	for i := len(digits) - 1; i >= 0; i-- {
		d := int(digits[i] - '0')
		if double {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		double = !double
	}
	return sum%10 == 0
}

// allSameDigit reports whether every character equals the first, catching
// obviously fake sequences like 000000000 or 111-11-1111.
func allSameDigit(digits string) bool {
	if digits == "" {
		return true
	}
	for i := 1; i < len(digits); i++ {
		if digits[i] != digits[0] {
			return false
		}
	}
	return true
}
