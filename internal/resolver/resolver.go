// Package resolver turns logical track references into playable URIs.
package resolver

import (
	"context"
	"encoding/base64"
	"path"
	"strings"

	"go.uber.org/zap"
)

// Vault is the host-application file collaborator: it resolves a logical
// path to raw bytes.
type Vault interface {
	ReadBinary(ctx context.Context, path string) ([]byte, error)
	Exists(path string) bool
}

// mimeByExt maps audio file extensions to content types. Unknown
// extensions fall back to audio/mpeg.
var mimeByExt = map[string]string{
	".mp3":  "audio/mpeg",
	".wav":  "audio/wav",
	".ogg":  "audio/ogg",
	".flac": "audio/flac",
	".m4a":  "audio/mp4",
	".aac":  "audio/aac",
}

const defaultMIME = "audio/mpeg"

// MIMEForPath returns the content type for a track path.
func MIMEForPath(p string) string {
	if mime, ok := mimeByExt[strings.ToLower(path.Ext(p))]; ok {
		return mime
	}
	return defaultMIME
}

// Resolver resolves track references against a vault with a best-effort
// URL fallback.
type Resolver struct {
	vault   Vault
	baseURL string
	log     *zap.Logger
}

// New creates a resolver. vault may be nil, in which case local references
// go straight to the fallback path.
func New(vault Vault, baseURL string, log *zap.Logger) *Resolver {
	if log == nil {
		log = zap.NewNop()
	}
	return &Resolver{vault: vault, baseURL: strings.TrimRight(baseURL, "/"), log: log}
}

// Resolve turns a logical track reference into a playable URI.
//
// Remote URLs and inline data URIs pass through unchanged. Anything else is
// treated as a local reference: the vault's bytes are wrapped as an inline
// data URI; if the read fails, a URL is constructed from the configured
// base; with no base the raw input is returned as a last resort, and the
// caller must treat eventual playback failure as an expected outcome.
func (r *Resolver) Resolve(ctx context.Context, ref string) string {
	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") ||
		strings.HasPrefix(ref, "data:") {
		return ref
	}

	if r.vault != nil {
		data, err := r.vault.ReadBinary(ctx, ref)
		if err == nil {
			return "data:" + MIMEForPath(ref) + ";base64," + base64.StdEncoding.EncodeToString(data)
		}
		r.log.Warn("vault read failed, using fallback",
			zap.String("path", ref),
			zap.Error(err),
		)
	}

	if r.baseURL != "" {
		return r.baseURL + "/" + strings.TrimLeft(ref, "/")
	}

	r.log.Warn("no base url configured, returning raw reference", zap.String("path", ref))
	return ref
}
