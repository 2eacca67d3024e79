package abidec

import (
	"bytes"

	"github.com/holiman/uint256"
)

// ScanWords walks data word by word looking for anything shaped like a
// length-prefixed printable string. It is the last decoding resort for
// event bodies whose layout is unknown; "" means nothing plausible was
// found.
func ScanWords(data string) string {
	raw, ok := cleanHex(data)
	if !ok {
		return ""
	}
	for pos := 0; pos+wordBytes <= len(raw); pos += wordBytes {
		s, ok := stringAt(raw, pos)
		if !ok {
			continue
		}
		if printable(s) {
			return s
		}
	}
	return ""
}

// stringAt reads a length-prefixed string whose length word starts at
// pos, applying the same length bound and null-terminator convention as
// the typed decoders.
func stringAt(raw []byte, pos int) (string, bool) {
	length, ok := wordUint(raw, pos)
	if !ok || length == 0 || length > maxCodeBytes {
		return "", false
	}
	start := pos + wordBytes
	end := start + int(length)
	if end > len(raw) {
		return "", false
	}
	buf := raw[start:end]
	if i := bytes.IndexByte(buf, 0); i >= 0 {
		buf = buf[:i]
	}
	if len(buf) == 0 {
		return "", false
	}
	return string(buf), true
}

// wordUint reads the 32-byte word starting at pos as a uint64, rejecting
// words that do not fit.
func wordUint(raw []byte, pos int) (uint64, bool) {
	if pos < 0 || pos+wordBytes > len(raw) {
		return 0, false
	}
	w := new(uint256.Int).SetBytes(raw[pos : pos+wordBytes])
	if !w.IsUint64() {
		return 0, false
	}
	return w.Uint64(), true
}

func printable(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < 0x20 || s[i] > 0x7e {
			return false
		}
	}
	return true
}
