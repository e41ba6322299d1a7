package fetcher

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"
)

const maxBodyBytes = 20 << 20

// readBody reads at most maxBodyBytes and decodes it by Content-Encoding.
// The body is always closed.
func readBody(resp *http.Response) (string, error) {
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", fmt.Errorf("failed to read body: %w", err)
	}

	decoded, err := decode(raw, resp.Header.Get("Content-Encoding"))
	if err != nil {
		return "", err
	}

	return string(decoded), nil
}

// decode undoes gzip, brotli or deflate content coding. Gzip is also detected by its magic
// bytes, since some servers compress without announcing it.
func decode(raw []byte, encoding string) ([]byte, error) {
	var (
		r   io.Reader
		err error
	)

	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "br":
		r = brotli.NewReader(bytes.NewReader(raw))
	case "gzip", "x-gzip":
		r, err = gzip.NewReader(bytes.NewReader(raw))
	case "deflate":
		// Most servers send zlib-wrapped deflate, a few send it raw.
		r, err = zlib.NewReader(bytes.NewReader(raw))
		if errors.Is(err, zlib.ErrHeader) {
			r, err = flate.NewReader(bytes.NewReader(raw)), nil
		}
	default:
		if !isGzip(raw) {
			return raw, nil
		}
		r, err = gzip.NewReader(bytes.NewReader(raw))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open %q decoder: %w", encoding, err)
	}

	out, err := io.ReadAll(io.LimitReader(r, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to decode %q body: %w", encoding, err)
	}

	return out, nil
}

func isGzip(b []byte) bool {
	return len(b) >= 2 && b[0] == 0x1f && b[1] == 0x8b
}
