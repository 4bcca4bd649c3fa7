// Package gameid generates sortable identifiers for tables and hands.
//
// An id is a UUIDv7 rendered as 26 characters of Crockford base32, the
// same suffix format TypeID uses, optionally behind a "prefix_" such as
// "table_". Ids created later sort after ids created earlier.
package gameid

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Base32 alphabet used by TypeID (Crockford's base32)
const alphabet = "0123456789abcdefghjkmnpqrstvwxyz"

const encodedLen = 26

// Well-known prefixes.
const (
	TablePrefix = "table"
	HandPrefix  = "hand"
)

// Generate creates a bare 26-character id.
func Generate() string {
	return encode(newUUID())
}

// New creates an id of the form prefix_<26 chars>.
func New(prefix string) string {
	if prefix == "" {
		return Generate()
	}
	return prefix + "_" + Generate()
}

// NewTableID creates a table id.
func NewTableID() string {
	return New(TablePrefix)
}

func newUUID() uuid.UUID {
	id, err := uuid.NewV7()
	if err != nil {
		// NewV7 only fails when the random source does
		panic("gameid: failed to generate UUIDv7: " + err.Error())
	}
	return id
}

// encode writes 128 bits as 26 base32 characters. The first character
// carries only 3 bits, so it is always 0-7.
func encode(id uuid.UUID) string {
	out := make([]byte, encodedLen)
	var acc uint16
	bits := 2 // two implicit leading zero bits pad 128 to 130
	pos := 0
	for _, b := range id {
		acc = acc<<8 | uint16(b)
		bits += 8
		for bits >= 5 {
			bits -= 5
			out[pos] = alphabet[(acc>>bits)&0x1f]
			pos++
		}
	}
	return string(out)
}

// Parse splits an id into its prefix and UUID.
func Parse(id string) (prefix string, u uuid.UUID, err error) {
	suffix := id
	if i := strings.LastIndexByte(id, '_'); i >= 0 {
		prefix, suffix = id[:i], id[i+1:]
		if prefix == "" {
			return "", uuid.Nil, fmt.Errorf("id %q has an empty prefix", id)
		}
	}
	if err := Validate(suffix); err != nil {
		return "", uuid.Nil, err
	}

	var acc uint16
	bits := -2 // drop the two padding bits
	n := 0
	for i := 0; i < encodedLen; i++ {
		v := strings.IndexByte(alphabet, suffix[i])
		acc = acc<<5 | uint16(v)
		bits += 5
		if bits >= 8 {
			bits -= 8
			u[n] = byte(acc >> bits)
			n++
		}
	}
	return prefix, u, nil
}

// Validate checks a bare 26-character id.
func Validate(id string) error {
	if len(id) != encodedLen {
		return fmt.Errorf("game ID must be exactly %d characters, got %d", encodedLen, len(id))
	}
	if id[0] > '7' {
		return fmt.Errorf("game ID first character must be 0-7, got %c", id[0])
	}
	for i := 0; i < len(id); i++ {
		if strings.IndexByte(alphabet, id[i]) < 0 {
			return fmt.Errorf("invalid character %c at position %d", id[i], i)
		}
	}
	return nil
}
