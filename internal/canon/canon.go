// Package canon provides canonicalization helpers shared across the
// pipeline: UTC time normalization, stable JSON serialization, checksums,
// composite dedupe keys, and identifier-token cleaning.
package canon

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/mail"
	"strings"
	"time"
)

// timeLayouts are tried in order when normalizing a string timestamp.
// RFC1123Z covers the RFC 2822 Date header format.
var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	time.RFC1123Z,
	time.RFC1123,
	"Mon, 2 Jan 2006 15:04:05 -0700",
	"2006-01-02T15:04:05Z",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ToUTC normalizes a heterogeneous timestamp into UTC. It accepts
// time.Time, integer/float epoch values (milliseconds when the magnitude
// says so, otherwise seconds), and strings in RFC3339, RFC2822 and a few
// common layouts.
func ToUTC(v any) (time.Time, error) {
	switch t := v.(type) {
	case time.Time:
		return t.UTC(), nil
	case int64:
		return FromEpoch(t), nil
	case int:
		return FromEpoch(int64(t)), nil
	case float64:
		return FromEpoch(int64(t)), nil
	case string:
		s := strings.TrimSpace(t)
		// Date headers sometimes carry a trailing "(TZ)" comment.
		if i := strings.LastIndex(s, " ("); i > 0 && strings.HasSuffix(s, ")") {
			s = s[:i]
		}
		for _, layout := range timeLayouts {
			if parsed, err := time.Parse(layout, s); err == nil {
				return parsed.UTC(), nil
			}
		}
		return time.Time{}, fmt.Errorf("unrecognized timestamp %q", t)
	default:
		return time.Time{}, fmt.Errorf("unsupported timestamp type %T", v)
	}
}

// FromEpoch converts an epoch value to UTC, treating values with
// millisecond magnitude (>= 1e12) as milliseconds and the rest as seconds.
func FromEpoch(v int64) time.Time {
	if v >= 1_000_000_000_000 {
		return time.UnixMilli(v).UTC()
	}
	return time.Unix(v, 0).UTC()
}

// StableJSON serializes v with deterministic key order, so checksums over
// the output are reproducible across runs.
func StableJSON(v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	// Round-trip through an untyped value: encoding/json sorts map keys
	// on marshal, which normalizes struct field order too.
	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return nil, err
	}
	return json.Marshal(generic)
}

// Checksum returns the lowercase hex SHA-256 of the payload.
func Checksum(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// ChecksumJSON returns the SHA-256 of the stable JSON serialization of v.
func ChecksumJSON(v any) (string, error) {
	data, err := StableJSON(v)
	if err != nil {
		return "", err
	}
	return Checksum(data), nil
}

// DedupeKey builds a composite hash over identity-defining fields. The
// unit separator keeps ("ab","c") distinct from ("a","bc").
func DedupeKey(parts ...string) string {
	return Checksum([]byte(strings.Join(parts, "\x1f")))
}

// CleanTokens trims each token, drops blanks, and deduplicates
// case-insensitively while preserving first-seen order.
func CleanTokens(tokens []string) []string {
	var out []string
	seen := make(map[string]bool, len(tokens))
	for _, tok := range tokens {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			continue
		}
		key := strings.ToLower(tok)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, tok)
	}
	return out
}

// ParseAddressList extracts lowercase email addresses from an address
// header value. Falls back to a comma split when the header does not parse
// as RFC 5322.
func ParseAddressList(header string) []string {
	header = strings.TrimSpace(header)
	if header == "" {
		return nil
	}
	if addrs, err := mail.ParseAddressList(header); err == nil {
		out := make([]string, 0, len(addrs))
		for _, a := range addrs {
			out = append(out, strings.ToLower(a.Address))
		}
		return out
	}
	var out []string
	for _, piece := range strings.Split(header, ",") {
		piece = strings.TrimSpace(piece)
		if i := strings.LastIndex(piece, "<"); i >= 0 {
			piece = strings.TrimSuffix(piece[i+1:], ">")
		}
		if strings.Contains(piece, "@") {
			out = append(out, strings.ToLower(piece))
		}
	}
	return out
}

// CarrierDomain derives a matchable domain token from a carrier name.
// Names containing "@" use the portion after it verbatim; otherwise the
// name is stripped of non-alphanumerics and ".com" is appended.
func CarrierDomain(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	if i := strings.Index(name, "@"); i >= 0 {
		return strings.ToLower(name[i+1:])
	}
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return ""
	}
	return b.String() + ".com"
}

// AddressFragment reduces a postal address to its street portion: the
// text before the first comma or unit marker, so "123 Oak St, Tampa FL"
// becomes "123 Oak St". The fragment carries no punctuation of its own,
// so it appears verbatim in text quoting either the full address or just
// the street.
func AddressFragment(addr string) string {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return ""
	}
	if i := strings.IndexAny(addr, ",#"); i >= 0 {
		addr = addr[:i]
	}
	return strings.TrimSpace(addr)
}

// LastName returns the final whitespace-separated token of a name.
func LastName(name string) string {
	fields := strings.Fields(name)
	if len(fields) == 0 {
		return ""
	}
	return fields[len(fields)-1]
}
