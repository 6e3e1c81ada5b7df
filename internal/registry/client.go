package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/oshokin/vercel-cli/internal/logger"
	"github.com/oshokin/vercel-cli/internal/progressbar"
)

// LatestTag is the dist-tag npm points at the newest stable release.
const LatestTag = "latest"

// errorBodyLimit caps how much of a failed response body is kept.
const errorBodyLimit = 4 * 1024

var (
	// errBaseURLRequired is returned when no registry URL is configured.
	errBaseURLRequired = errors.New("registry URL must be provided")
	// errPackageRequired is returned when no package name is given.
	errPackageRequired = errors.New("package name must be provided")
	// errMissingVersion is returned when metadata carries no version.
	errMissingVersion = errors.New("registry metadata has no version")
	// errMissingTarball is returned when metadata carries no tarball URL.
	errMissingTarball = errors.New("registry metadata has no tarball URL")
)

// Dist describes the published tarball of a package version.
type Dist struct {
	// Integrity is the Subresource Integrity string, e.g. "sha512-<base64>".
	Integrity string `json:"integrity"`
	// Shasum is the hex SHA-1 of the tarball.
	Shasum string `json:"shasum"`
	// Tarball is the download URL.
	Tarball string `json:"tarball"`
}

// PackageVersion is the subset of version metadata the updater needs.
type PackageVersion struct {
	Name    string `json:"name"`
	Version string `json:"version"`
	Dist    Dist   `json:"dist"`
}

// StatusError is returned for non-2XX responses.
type StatusError struct {
	URL        string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: unexpected HTTP status %d %s, body=%q",
		e.URL, e.StatusCode, http.StatusText(e.StatusCode), e.Body)
}

// Client resolves metadata and downloads tarballs from one registry.
type Client struct {
	// baseURL is the registry root without a trailing slash.
	baseURL string
	// http performs the requests.
	http *http.Client
	// callTimeout bounds metadata requests.
	callTimeout time.Duration
	// progress receives the download progress bar; nil hides it.
	progress io.Writer
}

// Option configures client behaviour.
type Option func(*Client)

// WithCallTimeout sets a timeout for metadata requests.
func WithCallTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.callTimeout = timeout
		}
	}
}

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithProgress draws download progress to w when it is a terminal.
func WithProgress(w io.Writer) Option {
	return func(c *Client) {
		c.progress = w
	}
}

// New creates a client for the registry at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, errBaseURLRequired
	}

	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, fmt.Errorf("invalid registry URL: %w", err)
	}

	client := &Client{
		baseURL: baseURL,
		http:    http.DefaultClient,
	}

	for _, opt := range opts {
		opt(client)
	}

	return client, nil
}

// MetadataURL returns the URL of the version document for pkg at version.
// Scoped package names keep their slash escaped, as the registry expects.
func (c *Client) MetadataURL(pkg, version string) string {
	return c.baseURL + "/" + url.PathEscape(pkg) + "/" + url.PathEscape(version)
}

// Metadata resolves version, which may be an exact version or a dist-tag.
func (c *Client) Metadata(ctx context.Context, pkg, version string) (*PackageVersion, error) {
	pkg = strings.TrimSpace(pkg)
	if pkg == "" {
		return nil, errPackageRequired
	}

	version = strings.TrimSpace(version)
	if version == "" {
		version = LatestTag
	}

	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	target := c.MetadataURL(pkg, version)

	logger.DebugKV(ctx, "Resolving package metadata", "url", target)

	resp, err := c.get(callCtx, target)
	if err != nil {
		return nil, fmt.Errorf("resolve %s@%s: %w", pkg, version, err)
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	var meta PackageVersion
	if err = json.NewDecoder(resp.Body).Decode(&meta); err != nil {
		return nil, fmt.Errorf("decode metadata for %s@%s: %w", pkg, version, err)
	}

	if meta.Version == "" {
		return nil, fmt.Errorf("%s@%s: %w", pkg, version, errMissingVersion)
	}

	if meta.Dist.Tarball == "" {
		return nil, fmt.Errorf("%s@%s: %w", pkg, meta.Version, errMissingTarball)
	}

	return &meta, nil
}

// Latest resolves the latest dist-tag of pkg.
func (c *Client) Latest(ctx context.Context, pkg string) (*PackageVersion, error) {
	return c.Metadata(ctx, pkg, LatestTag)
}

// Download fetches source into the file dst and returns the number of bytes written.
// The file is removed when the download fails.
func (c *Client) Download(ctx context.Context, source, dst string) (int64, error) {
	logger.DebugKV(ctx, "Downloading", "url", source, "path", dst)

	resp, err := c.get(ctx, source)
	if err != nil {
		return 0, fmt.Errorf("download: %w", err)
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	bar, err := progressbar.New(resp.ContentLength, c.progress)
	if err != nil {
		return 0, err
	}

	out, err := os.Create(filepath.Clean(dst))
	if err != nil {
		return 0, err
	}

	bar.Start()
	written, err := io.Copy(out, bar.NewProxyReader(resp.Body))
	bar.Finish()

	if err == nil {
		err = out.Sync()
	}

	if closeErr := out.Close(); err == nil {
		err = closeErr
	}

	if err != nil {
		_ = os.Remove(dst)
		return 0, fmt.Errorf("download %s: %w", source, err)
	}

	return written, nil
}

// get performs a GET and verifies that the status code is 2XX.
func (c *Client) get(ctx context.Context, target string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, http.NoBody)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode/100 != 2 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyLimit))
		_ = resp.Body.Close()

		return nil, &StatusError{URL: target, StatusCode: resp.StatusCode, Body: string(body)}
	}

	return resp, nil
}

// callContext returns a context with the client's call timeout if configured,
// otherwise a cancellable child context without a deadline.
func (c *Client) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.callTimeout <= 0 {
		return context.WithCancel(ctx)
	}

	return context.WithTimeout(ctx, c.callTimeout)
}
