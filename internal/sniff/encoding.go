package sniff

import (
	"bytes"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

// Encoding labels reported alongside decoded text. The label travels into the
// produced profile, so downstream consumers see exactly what was detected.
const (
	EncodingUTF8    = "utf-8"
	EncodingUTF8BOM = "utf-8-bom"
	EncodingUTF16LE = "utf-16le"
	EncodingUTF16BE = "utf-16be"
	EncodingLatin1  = "latin1"
)

var (
	bomUTF8    = []byte{0xEF, 0xBB, 0xBF}
	bomUTF16LE = []byte{0xFF, 0xFE}
	bomUTF16BE = []byte{0xFE, 0xFF}
)

// DecodeText converts raw bytes into text using a three-tier strategy:
// BOM markers first, then strict UTF-8, then Latin-1. Latin-1 accepts any
// byte sequence, so this never fails.
func DecodeText(buf []byte) (string, string) {
	switch {
	case bytes.HasPrefix(buf, bomUTF8):
		return string(buf[3:]), EncodingUTF8BOM
	case bytes.HasPrefix(buf, bomUTF16LE):
		return decodeUTF16(buf[2:], unicode.LittleEndian), EncodingUTF16LE
	case bytes.HasPrefix(buf, bomUTF16BE):
		return decodeUTF16(buf[2:], unicode.BigEndian), EncodingUTF16BE
	}
	if utf8.Valid(buf) {
		return string(buf), EncodingUTF8
	}
	// Latin-1 maps every byte to a code point, so decoding cannot error.
	out, _ := charmap.ISO8859_1.NewDecoder().Bytes(buf)
	return string(out), EncodingLatin1
}

func decodeUTF16(buf []byte, endian unicode.Endianness) string {
	dec := unicode.UTF16(endian, unicode.IgnoreBOM).NewDecoder()
	out, err := dec.Bytes(buf)
	if err != nil {
		// UTF-16 decode only fails on odd-length input; keep what decoded.
		return string(out)
	}
	return string(out)
}
