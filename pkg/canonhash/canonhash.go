// Package canonhash fingerprints nested data independently of map key order.
//
// Values are first reduced to the JSON data model (null, bool, number, string,
// list, map), then written in a canonical form: map keys sorted bytewise,
// list order preserved, numbers in a single textual encoding. The SHA-256 of
// that form is returned as 64 lowercase hex characters.
package canonhash

import (
	"bytes"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"reflect"
	"sort"
	"strconv"
	"unicode/utf8"
)

// DigestLength is the length of every digest returned by Hash.
const DigestLength = sha256.Size * 2

// ErrInvalidUTF8 is returned for strings and map keys that are not valid
// UTF-8. JSON encoding would replace the bad bytes with U+FFFD, so distinct
// values would share a digest.
var ErrInvalidUTF8 = errors.New("canonhash: invalid UTF-8 in string")

// maxSafeInteger bounds floats that are printed as integers.
const maxSafeInteger = 1 << 53

// Hash returns the canonical SHA-256 digest of v.
func Hash(v any) (string, error) {
	b, err := Canonicalize(v)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:]), nil
}

// MustHash is Hash for values known to be JSON-representable.
func MustHash(v any) string {
	h, err := Hash(v)
	if err != nil {
		panic(err)
	}
	return h
}

// Verify reports whether digest is the canonical hash of v.
func Verify(v any, digest string) bool {
	h, err := Hash(v)
	if err != nil || len(digest) != DigestLength {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(h), []byte(digest)) == 1
}

// Canonicalize returns the canonical byte form of v.
func Canonicalize(v any) ([]byte, error) {
	normalized, err := normalize(v)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := write(&buf, normalized); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// normalize reduces v to the JSON data model. Plain generic values pass
// through untouched; anything else (structs, typed maps, typed slices) takes a
// JSON round trip so struct tags and custom marshalers are honoured.
func normalize(v any) (any, error) {
	switch v.(type) {
	case nil, bool, string, json.Number, map[string]any, []any,
		int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64,
		float32, float64:
		return v, nil
	}
	if err := checkUTF8(reflect.ValueOf(v)); err != nil {
		return nil, err
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("canonhash: marshal %T: %w", v, err)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var out any
	if err := dec.Decode(&out); err != nil {
		return nil, fmt.Errorf("canonhash: decode %T: %w", v, err)
	}
	return out, nil
}

func write(buf *bytes.Buffer, v any) error {
	switch t := v.(type) {
	case nil:
		buf.WriteString("null")
	case bool:
		buf.WriteString(strconv.FormatBool(t))
	case string:
		return writeString(buf, t)
	case json.Number:
		s, err := formatNumber(t)
		if err != nil {
			return err
		}
		buf.WriteString(s)
	case int:
		buf.WriteString(strconv.FormatInt(int64(t), 10))
	case int8:
		buf.WriteString(strconv.FormatInt(int64(t), 10))
	case int16:
		buf.WriteString(strconv.FormatInt(int64(t), 10))
	case int32:
		buf.WriteString(strconv.FormatInt(int64(t), 10))
	case int64:
		buf.WriteString(strconv.FormatInt(t, 10))
	case uint:
		buf.WriteString(strconv.FormatUint(uint64(t), 10))
	case uint8:
		buf.WriteString(strconv.FormatUint(uint64(t), 10))
	case uint16:
		buf.WriteString(strconv.FormatUint(uint64(t), 10))
	case uint32:
		buf.WriteString(strconv.FormatUint(uint64(t), 10))
	case uint64:
		buf.WriteString(strconv.FormatUint(t, 10))
	case float32:
		s, err := formatFloat(float64(t))
		if err != nil {
			return err
		}
		buf.WriteString(s)
	case float64:
		s, err := formatFloat(t)
		if err != nil {
			return err
		}
		buf.WriteString(s)
	case []any:
		buf.WriteByte('[')
		for i, el := range t {
			if i > 0 {
				buf.WriteByte(',')
			}
			n, err := normalize(el)
			if err != nil {
				return err
			}
			if err := write(buf, n); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		buf.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeString(buf, k); err != nil {
				return err
			}
			buf.WriteByte(':')
			n, err := normalize(t[k])
			if err != nil {
				return err
			}
			if err := write(buf, n); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	default:
		return fmt.Errorf("canonhash: unsupported type %T", v)
	}
	return nil
}

// checkUTF8 walks the exported strings and map keys of v before the JSON
// round trip in normalize can rewrite them.
func checkUTF8(v reflect.Value) error {
	switch v.Kind() {
	case reflect.String:
		if !utf8.ValidString(v.String()) {
			return ErrInvalidUTF8
		}
	case reflect.Pointer, reflect.Interface:
		if !v.IsNil() {
			return checkUTF8(v.Elem())
		}
	case reflect.Slice, reflect.Array:
		if v.Type().Elem().Kind() == reflect.Uint8 {
			// []byte marshals as base64, which is lossless.
			return nil
		}
		for i := 0; i < v.Len(); i++ {
			if err := checkUTF8(v.Index(i)); err != nil {
				return err
			}
		}
	case reflect.Map:
		iter := v.MapRange()
		for iter.Next() {
			if err := checkUTF8(iter.Key()); err != nil {
				return err
			}
			if err := checkUTF8(iter.Value()); err != nil {
				return err
			}
		}
	case reflect.Struct:
		t := v.Type()
		for i := 0; i < v.NumField(); i++ {
			if !t.Field(i).IsExported() {
				continue
			}
			if err := checkUTF8(v.Field(i)); err != nil {
				return err
			}
		}
	}
	return nil
}

func writeString(buf *bytes.Buffer, s string) error {
	if !utf8.ValidString(s) {
		return ErrInvalidUTF8
	}
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return err
	}
	// Encode appends a newline.
	buf.Truncate(buf.Len() - 1)
	return nil
}

// formatNumber gives every numeric literal one spelling, so 1, 1.0 and 1e0
// hash identically.
func formatNumber(n json.Number) (string, error) {
	if i, err := strconv.ParseInt(string(n), 10, 64); err == nil {
		return strconv.FormatInt(i, 10), nil
	}
	f, err := strconv.ParseFloat(string(n), 64)
	if err != nil {
		return "", fmt.Errorf("canonhash: invalid number %q: %w", n, err)
	}
	return formatFloat(f)
}

func formatFloat(f float64) (string, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return "", fmt.Errorf("canonhash: non-finite number %v", f)
	}
	if f == math.Trunc(f) && math.Abs(f) < maxSafeInteger {
		return strconv.FormatInt(int64(f), 10), nil
	}
	return strconv.FormatFloat(f, 'g', -1, 64), nil
}
