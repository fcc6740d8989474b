package mirror

import (
	"fmt"
	"net"
	"net/url"
	"regexp"
	"strconv"
	"strings"
)

const (
	DefaultMirrorScheme    = "http"
	DefaultMirrorHost      = "localhost"
	DefaultMirrorPort      = 8000
	DefaultMirrorNamespace = "third-part"

	FileScheme = "file"
)

var DefaultUpstreamHosts = []string{"github.com"}

// scp-like git addresses: [user@]host:owner/repo
var scpLikeRegex = regexp.MustCompile(`^(?:[A-Za-z0-9._~-]+@)?([A-Za-z0-9.-]+):([^/][^\s]*)$`)

// Resolver maps an upstream remote URL onto the internal mirror gateway.
type Resolver struct {
	Hosts     []string
	Scheme    string
	Host      string
	Port      int
	Namespace string
}

func NewResolver() Resolver {
	return Resolver{
		Hosts:     DefaultUpstreamHosts,
		Scheme:    DefaultMirrorScheme,
		Host:      DefaultMirrorHost,
		Port:      DefaultMirrorPort,
		Namespace: DefaultMirrorNamespace,
	}
}

// FindUpstream returns the first remote URL, in listing order, that points at
// a recognised upstream host. The remote named skip is never considered.
func (r Resolver) FindUpstream(remotes []Remote, skip string) (string, bool) {
	for _, remote := range remotes {
		if remote.Name == skip {
			continue
		}
		if _, err := r.parse(remote.URL); err == nil {
			return remote.URL, true
		}
	}
	return "", false
}

func (r Resolver) Resolve(upstream string) (Resolution, error) {
	parsed, err := r.parse(upstream)
	if err != nil {
		return Resolution{}, err
	}

	// a file gateway is a local directory; host and port do not apply
	hostPort := ""
	if !strings.EqualFold(r.Scheme, FileScheme) {
		hostPort = r.Host
		if r.Port > 0 && r.Host != "" {
			hostPort = net.JoinHostPort(r.Host, strconv.Itoa(r.Port))
		}
	}

	var b strings.Builder
	b.WriteString(r.Scheme)
	b.WriteString("://")
	b.WriteString(hostPort)
	if namespace := strings.Trim(r.Namespace, "/"); namespace != "" {
		b.WriteString("/")
		b.WriteString(namespace)
	}
	b.WriteString(parsed.path)

	return Resolution{
		UpstreamURL: parsed.display,
		MirrorURL:   b.String(),
	}, nil
}

type upstreamURL struct {
	host    string
	path    string
	display string
}

func (r Resolver) parse(raw string) (upstreamURL, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return upstreamURL{}, ErrInvalidUpstreamURL
	}

	var parsed upstreamURL
	if !strings.Contains(raw, "://") {
		match := scpLikeRegex.FindStringSubmatch(raw)
		if match == nil {
			return upstreamURL{}, fmt.Errorf("%w: %q", ErrInvalidUpstreamURL, raw)
		}
		parsed = upstreamURL{host: match[1], path: "/" + match[2], display: raw}
	} else {
		u, err := url.Parse(raw)
		if err != nil {
			return upstreamURL{}, fmt.Errorf("%w: %v", ErrInvalidUpstreamURL, err)
		}
		switch strings.ToLower(u.Scheme) {
		case "https", "http", "ssh", "git":
		default:
			return upstreamURL{}, fmt.Errorf("%w: unsupported scheme %q", ErrInvalidUpstreamURL, u.Scheme)
		}
		parsed = upstreamURL{host: u.Hostname(), path: u.EscapedPath(), display: u.Redacted()}
	}

	if parsed.path == "" || parsed.path == "/" {
		return upstreamURL{}, fmt.Errorf("%w: empty path in %q", ErrInvalidUpstreamURL, raw)
	}
	if !r.knownHost(parsed.host) {
		return upstreamURL{}, fmt.Errorf("%w: host %q", ErrNoUpstream, parsed.host)
	}

	return parsed, nil
}

func (r Resolver) knownHost(host string) bool {
	for _, known := range r.Hosts {
		if strings.EqualFold(strings.TrimSpace(known), host) {
			return true
		}
	}
	return false
}
