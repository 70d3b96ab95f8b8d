package hasher

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"
	"unicode/utf16"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// Integers beyond this magnitude cannot round-trip through a float64.
const maxSafeInteger = 1<<53 - 1

// Canonical returns the canonical JSON encoding of v.
//
// v may be anything encoding/json can marshal, including json.RawMessage.
// The output follows RFC 8785: no insignificant whitespace, object members
// ordered by the UTF-16 code units of their keys, ECMAScript number
// formatting and minimal string escaping. Keys and strings are additionally
// NFC-normalized. Integer literals beyond ±2^53 are rejected.
func Canonical(v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, &SerializationError{Err: err}
	}
	if !utf8.Valid(raw) {
		return nil, &SerializationError{Err: errors.New("invalid UTF-8")}
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var tree any
	if err := dec.Decode(&tree); err != nil {
		return nil, &SerializationError{Err: err}
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, &SerializationError{Err: errors.New("trailing data after value")}
	}

	var buf bytes.Buffer
	if err := encode(&buf, tree); err != nil {
		return nil, &SerializationError{Err: err}
	}
	return buf.Bytes(), nil
}

type member struct {
	key   string
	units []uint16
	val   any
}

func encode(buf *bytes.Buffer, v any) error {
	switch t := v.(type) {
	case nil:
		buf.WriteString("null")
	case bool:
		if t {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
	case json.Number:
		s, err := formatNumber(t)
		if err != nil {
			return err
		}
		buf.WriteString(s)
	case string:
		writeString(buf, norm.NFC.String(t))
	case []any:
		buf.WriteByte('[')
		for i, e := range t {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := encode(buf, e); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case map[string]any:
		members := make([]member, 0, len(t))
		seen := make(map[string]struct{}, len(t))
		for k, val := range t {
			nk := norm.NFC.String(k)
			if _, dup := seen[nk]; dup {
				return fmt.Errorf("duplicate key %q after normalization", nk)
			}
			seen[nk] = struct{}{}
			members = append(members, member{key: nk, units: utf16.Encode([]rune(nk)), val: val})
		}
		sort.Slice(members, func(i, j int) bool {
			return lessUnits(members[i].units, members[j].units)
		})
		buf.WriteByte('{')
		for i, m := range members {
			if i > 0 {
				buf.WriteByte(',')
			}
			writeString(buf, m.key)
			buf.WriteByte(':')
			if err := encode(buf, m.val); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	default:
		return fmt.Errorf("unsupported type %T", v)
	}
	return nil
}

func lessUnits(a, b []uint16) bool {
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return len(a) < len(b)
}

func formatNumber(n json.Number) (string, error) {
	lit := n.String()
	f, err := strconv.ParseFloat(lit, 64)
	if err != nil {
		return "", fmt.Errorf("number %s: %w", lit, err)
	}
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return "", fmt.Errorf("number %s is not finite", lit)
	}
	if !strings.ContainsAny(lit, ".eE") && math.Abs(f) > maxSafeInteger {
		return "", fmt.Errorf("integer %s exceeds 2^53", lit)
	}
	if f == 0 {
		return "0", nil
	}

	format := byte('f')
	if abs := math.Abs(f); abs < 1e-6 || abs >= 1e21 {
		format = 'e'
	}
	s := strconv.FormatFloat(f, format, -1, 64)
	if format == 'e' {
		// ECMAScript writes 1e-7, Go writes 1e-07.
		if n := len(s); n >= 4 && s[n-4] == 'e' && s[n-3] == '-' && s[n-2] == '0' {
			s = s[:n-2] + s[n-1:]
		}
	}
	return s, nil
}

func writeString(buf *bytes.Buffer, s string) {
	buf.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			buf.WriteString(`\"`)
		case '\\':
			buf.WriteString(`\\`)
		case '\b':
			buf.WriteString(`\b`)
		case '\f':
			buf.WriteString(`\f`)
		case '\n':
			buf.WriteString(`\n`)
		case '\r':
			buf.WriteString(`\r`)
		case '\t':
			buf.WriteString(`\t`)
		default:
			if r < 0x20 {
				fmt.Fprintf(buf, `\u%04x`, r)
			} else {
				buf.WriteRune(r)
			}
		}
	}
	buf.WriteByte('"')
}
