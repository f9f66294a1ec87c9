// Package fetch retrieves raw telemetry resources by relative path.
//
// Two implementations exist: HTTP for remote data servers and Dir for local
// datasets and tests. Both return the payload with an xxh3 fingerprint so
// diagnostics can identify exactly which content a load saw.
//
// A resolved payload that looks like a markup document (an error or
// redirect page served with status 200) is rejected here, identically to a
// failed fetch; the aligner substitutes zeros for it downstream.
package fetch

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/flowscope/flowscope/config"
	"github.com/flowscope/flowscope/internal/errors"
	"github.com/zeebo/xxh3"
)

// Result carries one fetched payload.
type Result struct {
	Path        string
	Payload     []byte
	Fingerprint uint64
}

// Fetcher retrieves one resource by relative path.
type Fetcher interface {
	Fetch(ctx context.Context, relPath string) (Result, error)
}

// LooksLikeMarkup reports whether a payload is structurally a markup
// document rather than tabular data. No legitimate telemetry CSV begins
// with an angle bracket.
func LooksLikeMarkup(payload []byte) bool {
	head := bytes.TrimLeft(payload, " \t\r\n")
	return len(head) > 0 && head[0] == '<'
}

func finish(relPath string, payload []byte) (Result, error) {
	if LooksLikeMarkup(payload) {
		return Result{}, errors.NewMalformed(relPath, "payload is a markup document")
	}
	return Result{
		Path:        relPath,
		Payload:     payload,
		Fingerprint: xxh3.Hash(payload),
	}, nil
}

// =============================================================================
// HTTP Fetcher
// =============================================================================

// HTTP fetches resources relative to a base URL.
type HTTP struct {
	base      *url.URL
	client    *http.Client
	userAgent string
	maxSize   int64
}

// NewHTTP builds an HTTP fetcher. cfg supplies timeout, user agent, and the
// payload size cap.
func NewHTTP(baseURL string, cfg config.FetchConfig) (*HTTP, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("base url %q is not absolute", baseURL)
	}

	maxSize := cfg.MaxPayloadSize
	if maxSize <= 0 {
		maxSize = config.DefaultMaxPayloadSize
	}
	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = config.DefaultUserAgent
	}

	return &HTTP{
		base:      base,
		client:    &http.Client{Timeout: cfg.Timeout},
		userAgent: userAgent,
		maxSize:   maxSize,
	}, nil
}

// Fetch implements Fetcher.
func (h *HTTP) Fetch(ctx context.Context, relPath string) (Result, error) {
	u := *h.base
	u.Path = path.Join(u.Path, relPath)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return Result{}, errors.NewUnavailable(relPath, err)
	}
	req.Header.Set("User-Agent", h.userAgent)

	resp, err := h.client.Do(req)
	if err != nil {
		return Result{}, errors.NewUnavailable(relPath, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Result{}, errors.NewUnavailable(relPath, fmt.Errorf("status %s", resp.Status))
	}

	payload, err := io.ReadAll(io.LimitReader(resp.Body, h.maxSize+1))
	if err != nil {
		return Result{}, errors.NewUnavailable(relPath, err)
	}
	if int64(len(payload)) > h.maxSize {
		return Result{}, errors.NewMalformed(relPath, fmt.Sprintf("payload exceeds %d bytes", h.maxSize))
	}

	return finish(relPath, payload)
}

// =============================================================================
// Dir Fetcher
// =============================================================================

// Dir fetches resources from a local directory tree.
type Dir struct {
	root    string
	maxSize int64
}

// NewDir builds a directory fetcher rooted at root.
func NewDir(root string, cfg config.FetchConfig) *Dir {
	maxSize := cfg.MaxPayloadSize
	if maxSize <= 0 {
		maxSize = config.DefaultMaxPayloadSize
	}
	return &Dir{root: root, maxSize: maxSize}
}

// Fetch implements Fetcher.
func (d *Dir) Fetch(ctx context.Context, relPath string) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, errors.NewUnavailable(relPath, err)
	}

	full := filepath.Join(d.root, filepath.FromSlash(relPath))
	rel, err := filepath.Rel(d.root, full)
	if err != nil || strings.HasPrefix(rel, "..") {
		return Result{}, errors.NewUnavailable(relPath, fmt.Errorf("path escapes data root"))
	}

	info, err := os.Stat(full)
	if err != nil {
		return Result{}, errors.NewUnavailable(relPath, err)
	}
	if info.Size() > d.maxSize {
		return Result{}, errors.NewMalformed(relPath, fmt.Sprintf("payload exceeds %d bytes", d.maxSize))
	}

	payload, err := os.ReadFile(full)
	if err != nil {
		return Result{}, errors.NewUnavailable(relPath, err)
	}

	return finish(relPath, payload)
}
