// Package nuget queries a NuGet v3 flat container feed for package versions
// and their target frameworks.
package nuget

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/felixgeelhaar/uplift/internal/domain/deps"
	"github.com/felixgeelhaar/uplift/internal/domain/tfm"
	"github.com/felixgeelhaar/uplift/internal/ports"
	"golang.org/x/time/rate"
)

// DefaultFeed is the nuget.org flat container base address.
const DefaultFeed = "https://api.nuget.org/v3-flatcontainer/"

const (
	defaultTimeout  = 30 * time.Second
	defaultRate     = 10
	defaultBurst    = 5
	maxResponseSize = 8 << 20
)

// Client is a deps.Registry backed by a NuGet feed. Responses are cached for
// the lifetime of the client.
type Client struct {
	feed    string
	http    *http.Client
	limiter *rate.Limiter
	log     ports.Logger

	mu       sync.Mutex
	versions map[string][]string
	specs    map[string]nuspec
}

var _ deps.Registry = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithFeed overrides the flat container base address.
func WithFeed(feed string) Option {
	return func(c *Client) {
		if !strings.HasSuffix(feed, "/") {
			feed += "/"
		}
		c.feed = feed
	}
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithRateLimit caps requests per second.
func WithRateLimit(perSecond float64, burst int) Option {
	return func(c *Client) { c.limiter = rate.NewLimiter(rate.Limit(perSecond), burst) }
}

// WithLogger sets the logger.
func WithLogger(log ports.Logger) Option {
	return func(c *Client) { c.log = log }
}

// NewClient creates a Client for nuget.org unless WithFeed says otherwise.
func NewClient(opts ...Option) *Client {
	c := &Client{
		feed:     DefaultFeed,
		http:     &http.Client{Timeout: defaultTimeout},
		limiter:  rate.NewLimiter(defaultRate, defaultBurst),
		log:      ports.Discard,
		versions: make(map[string][]string),
		specs:    make(map[string]nuspec),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type versionIndex struct {
	Versions []string `json:"versions"`
}

type nuspec struct {
	Metadata struct {
		ID           string `xml:"id"`
		Version      string `xml:"version"`
		Dependencies struct {
			Groups []struct {
				TargetFramework string `xml:"targetFramework,attr"`
			} `xml:"group"`
		} `xml:"dependencies"`
		FrameworkAssemblies struct {
			Items []struct {
				TargetFramework string `xml:"targetFramework,attr"`
			} `xml:"frameworkAssembly"`
		} `xml:"frameworkAssemblies"`
	} `xml:"metadata"`
}

// frameworks returns the frameworks the package declares groups for. An
// empty result means the package does not say and is assumed portable.
func (n nuspec) frameworks() []tfm.Framework {
	var out []tfm.Framework
	add := func(name string) {
		if fw, ok := ParseFrameworkName(name); ok {
			out = append(out, fw)
		}
	}
	for _, g := range n.Metadata.Dependencies.Groups {
		add(g.TargetFramework)
	}
	for _, a := range n.Metadata.FrameworkAssemblies.Items {
		for _, name := range strings.Split(a.TargetFramework, ",") {
			add(name)
		}
	}
	return out
}

// get fetches path relative to the feed. A 404 reports found=false.
func (c *Client) get(ctx context.Context, path string) (body []byte, found bool, err error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, false, err
	}

	u := c.feed + path
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, false, err
	}
	req.Header.Set("User-Agent", "uplift")

	c.log.Debug(ctx, "nuget request", ports.F("url", u))
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, false, fmt.Errorf("nuget request %s: %w", u, err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, false, nil
	case resp.StatusCode != http.StatusOK:
		return nil, false, fmt.Errorf("nuget request %s: %s", u, resp.Status)
	}

	body, err = io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, false, fmt.Errorf("nuget request %s: %w", u, err)
	}
	return body, true, nil
}

// Versions returns every published version of name in feed order.
func (c *Client) Versions(ctx context.Context, name string) ([]string, error) {
	id := strings.ToLower(name)

	c.mu.Lock()
	cached, ok := c.versions[id]
	c.mu.Unlock()
	if ok {
		return cached, nil
	}

	body, found, err := c.get(ctx, url.PathEscape(id)+"/index.json")
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("%w: %s", deps.ErrPackageNotFound, name)
	}

	var index versionIndex
	if err := json.Unmarshal(body, &index); err != nil {
		return nil, fmt.Errorf("nuget versions of %s: %w", name, err)
	}

	c.mu.Lock()
	c.versions[id] = index.Versions
	c.mu.Unlock()
	return index.Versions, nil
}

// spec fetches the nuspec of a version. The feed only serves normalized
// versions, so 4.5 is requested as 4.5.0 and 1.0.0.0 as 1.0.0.
func (c *Client) spec(ctx context.Context, name, version string) (nuspec, error) {
	id := strings.ToLower(name)
	ver := strings.ToLower(normalizeVersion(version))
	key := id + "/" + ver

	c.mu.Lock()
	cached, ok := c.specs[key]
	c.mu.Unlock()
	if ok {
		return cached, nil
	}

	path := fmt.Sprintf("%s/%s/%s.nuspec", url.PathEscape(id), url.PathEscape(ver), url.PathEscape(id))
	body, found, err := c.get(ctx, path)
	if err != nil {
		return nuspec{}, err
	}
	if !found {
		return nuspec{}, fmt.Errorf("%w: %s %s", deps.ErrVersionNotFound, name, version)
	}

	var spec nuspec
	if err := xml.Unmarshal(body, &spec); err != nil {
		return nuspec{}, fmt.Errorf("nuget nuspec of %s %s: %w", name, version, err)
	}

	c.mu.Lock()
	c.specs[key] = spec
	c.mu.Unlock()
	return spec, nil
}

// normalizeVersion returns the normalized form of version, or version
// itself when it does not parse.
func normalizeVersion(version string) string {
	v, err := deps.ParseVersion(version)
	if err != nil {
		return strings.TrimSpace(version)
	}
	return v.Normalized()
}

// sortedVersions parses and orders versions ascending, dropping ones that do
// not parse.
func sortedVersions(raw []string) []deps.Version {
	out := make([]deps.Version, 0, len(raw))
	for _, r := range raw {
		if v, err := deps.ParseVersion(r); err == nil {
			out = append(out, v)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Compare(out[j]) < 0 })
	return out
}

// GetLatestVersion implements deps.Registry.
func (c *Client) GetLatestVersion(ctx context.Context, name string, targets []tfm.Framework) (string, error) {
	raw, err := c.Versions(ctx, name)
	if err != nil {
		return "", err
	}
	versions := sortedVersions(raw)
	for i := len(versions) - 1; i >= 0; i-- {
		if versions[i].IsPrerelease() {
			continue
		}
		ok, err := c.DoesPackageSupportTargets(ctx, deps.PackageReference{Name: name, Version: versions[i].String()}, targets)
		if err != nil {
			return "", err
		}
		if ok {
			return versions[i].String(), nil
		}
	}
	return "", fmt.Errorf("%w: %s for %s", deps.ErrNoCompatibleVersion, name, tfm.Join(targets))
}

// GetNewerVersions implements deps.Registry.
func (c *Client) GetNewerVersions(ctx context.Context, name, current string) ([]string, error) {
	cur, err := deps.ParseVersion(current)
	if err != nil {
		return nil, err
	}
	raw, err := c.Versions(ctx, name)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, v := range sortedVersions(raw) {
		if v.Compare(cur) > 0 {
			out = append(out, v.String())
		}
	}
	return out, nil
}

// DoesPackageSupportTargets implements deps.Registry.
func (c *Client) DoesPackageSupportTargets(ctx context.Context, ref deps.PackageReference, targets []tfm.Framework) (bool, error) {
	spec, err := c.spec(ctx, ref.Name, ref.Version)
	if err != nil {
		return false, err
	}
	assets := spec.frameworks()
	if len(assets) == 0 {
		return true, nil
	}
	for _, target := range targets {
		ok := false
		for _, asset := range assets {
			if tfm.CompatibleWith(asset, target) {
				ok = true
				break
			}
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

// ParseFrameworkName converts nuspec framework names such as
// ".NETFramework4.5", ".NETStandard2.0", "net6.0" or "net8.0-windows7.0" to
// a Framework.
func ParseFrameworkName(name string) (tfm.Framework, bool) {
	s := strings.TrimSpace(name)
	if s == "" {
		return tfm.Framework{}, false
	}

	lower := strings.ToLower(s)
	for prefix, short := range map[string]string{
		".netframework": "net",
		".netstandard":  "netstandard",
		".netcoreapp":   "netcoreapp",
	} {
		if !strings.HasPrefix(lower, prefix) {
			continue
		}
		version := strings.TrimPrefix(lower, prefix)
		if short == "net" {
			version = strings.ReplaceAll(version, ".", "")
		}
		lower = short + version
		break
	}

	base, platform, hasPlatform := strings.Cut(lower, "-")
	if hasPlatform {
		platform = strings.TrimRight(platform, "0123456789.")
		lower = base + "-" + platform
	}

	fw, err := tfm.Parse(lower)
	if err != nil {
		return tfm.Framework{}, false
	}
	return fw, true
}
