package flags

import (
	"golang.org/x/text/encoding/unicode"
)

// EncodeName converts a Go string naming a Windows section object to
// null-terminated UTF-16LE, the wire form CreateFileMappingW and
// OpenFileMappingW expect. POSIX builds never call this; named
// mappings are a Windows-only construction path.
func EncodeName(name string) ([]uint16, error) {
	enc := unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM).NewEncoder()
	encoded, err := enc.String(name)
	if err != nil {
		return nil, err
	}
	units := make([]uint16, 0, len(encoded)/2+1)
	for i := 0; i+1 < len(encoded); i += 2 {
		units = append(units, uint16(encoded[i])|uint16(encoded[i+1])<<8)
	}
	units = append(units, 0)
	return units, nil
}
