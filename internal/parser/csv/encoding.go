package csv

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

// decodeReader wraps r so its bytes come out as UTF-8. Partner feeds have
// shipped in Latin-1 and Windows-1252 before; UTF-8 passes through untouched.
func decodeReader(r io.Reader, name string) (io.Reader, error) {
	var dec *encoding.Decoder
	switch strings.ToLower(name) {
	case "", "utf8", "utf-8":
		return r, nil
	case "latin1", "latin-1", "iso-8859-1":
		dec = charmap.ISO8859_1.NewDecoder()
	case "windows-1252", "cp1252":
		dec = charmap.Windows1252.NewDecoder()
	default:
		return nil, fmt.Errorf("unsupported encoding %q", name)
	}
	return transform.NewReader(r, dec), nil
}
