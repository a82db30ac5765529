package emotion

import (
	"encoding/base64"
	"fmt"
	"os"
	"strings"
)

// ResolvePayload turns an input item's file reference into image bytes.
// A "data:image/..." URI is decoded inline; anything else is treated as the
// path of a previously stored upload and read from disk.
func ResolvePayload(file string) ([]byte, error) {
	if strings.HasPrefix(file, "data:image") {
		idx := strings.Index(file, ",")
		if idx < 0 {
			return nil, fmt.Errorf("data uri has no payload separator")
		}
		data, err := base64.StdEncoding.DecodeString(file[idx+1:])
		if err != nil {
			return nil, fmt.Errorf("decode inline image: %w", err)
		}
		return data, nil
	}

	data, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("read stored image: %w", err)
	}
	return data, nil
}
