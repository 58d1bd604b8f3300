package ingest

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// Encoding names understood by the normalizer.
const (
	EncodingUTF8BOM     = "utf-8-sig"
	EncodingUTF8        = "utf-8"
	EncodingLatin1      = "latin-1"
	EncodingWindows1252 = "windows-1252"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

type decodeFunc func([]byte) (string, error)

var decoders = map[string]decodeFunc{
	EncodingUTF8BOM:     decodeUTF8BOM,
	EncodingUTF8:        decodeUTF8,
	EncodingLatin1:      decodeLatin1,
	EncodingWindows1252: decodeWindows1252,
}

var encodingAliases = map[string]string{
	"utf-8-sig":    EncodingUTF8BOM,
	"utf8-sig":     EncodingUTF8BOM,
	"utf-8-bom":    EncodingUTF8BOM,
	"utf8bom":      EncodingUTF8BOM,
	"utf-8":        EncodingUTF8,
	"utf8":         EncodingUTF8,
	"latin-1":      EncodingLatin1,
	"latin1":       EncodingLatin1,
	"iso-8859-1":   EncodingLatin1,
	"iso8859-1":    EncodingLatin1,
	"windows-1252": EncodingWindows1252,
	"cp1252":       EncodingWindows1252,
	"win1252":      EncodingWindows1252,
}

// CanonicalEncoding maps an encoding label to the name used by the normalizer.
func CanonicalEncoding(name string) (string, bool) {
	canonical, ok := encodingAliases[strings.ToLower(strings.TrimSpace(name))]
	return canonical, ok
}

// encodingPlan puts the preferred encoding first, then the configured order, without repeats.
func encodingPlan(preferred string, configured []string) ([]string, error) {
	plan := make([]string, 0, len(configured)+1)
	seen := map[string]bool{}
	add := func(name string) error {
		canonical, ok := CanonicalEncoding(name)
		if !ok {
			return fmt.Errorf("unsupported encoding %q", name)
		}
		if !seen[canonical] {
			seen[canonical] = true
			plan = append(plan, canonical)
		}
		return nil
	}
	if strings.TrimSpace(preferred) != "" {
		if err := add(preferred); err != nil {
			return nil, err
		}
	}
	for _, name := range configured {
		if err := add(name); err != nil {
			return nil, err
		}
	}
	return plan, nil
}

func decodeUTF8BOM(src []byte) (string, error) {
	return decodeUTF8(src)
}

// decodeUTF8 drops a leading byte order mark so the first header label still matches its
// aliases when utf-8 is tried ahead of utf-8-sig.
func decodeUTF8(src []byte) (string, error) {
	src = bytes.TrimPrefix(src, utf8BOM)
	if !utf8.Valid(src) {
		return "", errors.New("invalid utf-8 byte sequence")
	}
	return string(src), nil
}

// decodeLatin1 refuses C1 control bytes: real exports never contain them, while
// Windows-1252 text uses that range for printable characters.
func decodeLatin1(src []byte) (string, error) {
	for i, b := range src {
		if b >= 0x80 && b <= 0x9F {
			return "", fmt.Errorf("c1 control byte 0x%02X at offset %d", b, i)
		}
	}
	out, err := charmap.ISO8859_1.NewDecoder().Bytes(src)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func decodeWindows1252(src []byte) (string, error) {
	out, err := charmap.Windows1252.NewDecoder().Bytes(src)
	if err != nil {
		return "", err
	}
	return string(out), nil
}
