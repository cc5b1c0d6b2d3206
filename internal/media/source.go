package media

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"strings"

	bderrors "github.com/soundbed/backdrop/internal/errors"
)

// bytesReadCloser adapts an in-memory buffer to the read/seek/close shape
// the decoders expect.
type bytesReadCloser struct {
	*bytes.Reader
}

func (bytesReadCloser) Close() error { return nil }

// mimeToExt reverses the resolver's extension table so data: URIs decode
// with the right codec.
var mimeToExt = map[string]string{
	"audio/mpeg": ".mp3",
	"audio/wav":  ".wav",
	"audio/ogg":  ".ogg",
	"audio/flac": ".flac",
	"audio/mp4":  ".m4a",
	"audio/aac":  ".aac",
}

// openSource turns a resolved URI into a seekable byte stream plus a file
// extension hint for codec selection.
func openSource(ctx context.Context, uri string, client *http.Client) (io.ReadSeekCloser, string, error) {
	switch {
	case strings.HasPrefix(uri, "data:"):
		return openDataURI(uri)
	case strings.HasPrefix(uri, "http://"), strings.HasPrefix(uri, "https://"):
		return openRemote(ctx, uri, client)
	case strings.HasPrefix(uri, "file://"):
		u, err := url.Parse(uri)
		if err != nil {
			return nil, "", fmt.Errorf("parse file uri: %w", err)
		}
		return openLocal(u.Path)
	default:
		return openLocal(uri)
	}
}

func openLocal(p string) (io.ReadSeekCloser, string, error) {
	f, err := os.Open(p)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, "", fmt.Errorf("%w: %s", bderrors.ErrTrackNotFound, p)
		}
		return nil, "", err
	}
	return f, strings.ToLower(path.Ext(p)), nil
}

// openRemote fetches the whole resource into memory. Decoders need random
// access for seeking, which a network body cannot provide.
func openRemote(ctx context.Context, uri string, client *http.Client) (io.ReadSeekCloser, string, error) {
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return nil, "", err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("fetch %s: %w", uri, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("fetch %s: unexpected status %s", uri, resp.Status)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("fetch %s: %w", uri, err)
	}

	ext := ""
	if u, err := url.Parse(uri); err == nil {
		ext = strings.ToLower(path.Ext(u.Path))
	}
	if ext == "" {
		if e, ok := mimeToExt[mediaType(resp.Header.Get("Content-Type"))]; ok {
			ext = e
		}
	}
	return bytesReadCloser{bytes.NewReader(data)}, ext, nil
}

// openDataURI decodes a data:<mime>;base64,<payload> URI.
func openDataURI(uri string) (io.ReadSeekCloser, string, error) {
	rest := strings.TrimPrefix(uri, "data:")
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return nil, "", fmt.Errorf("malformed data uri")
	}

	mime, _, _ := strings.Cut(meta, ";")
	ext := mimeToExt[mime]

	var data []byte
	var err error
	if strings.Contains(meta, "base64") {
		data, err = base64.StdEncoding.DecodeString(payload)
		if err != nil {
			return nil, "", fmt.Errorf("decode data uri: %w", err)
		}
	} else {
		unescaped, uerr := url.QueryUnescape(payload)
		if uerr != nil {
			return nil, "", fmt.Errorf("decode data uri: %w", uerr)
		}
		data = []byte(unescaped)
	}

	return bytesReadCloser{bytes.NewReader(data)}, ext, nil
}

func mediaType(contentType string) string {
	mt, _, _ := strings.Cut(contentType, ";")
	return strings.TrimSpace(strings.ToLower(mt))
}
