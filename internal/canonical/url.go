// Package canonical reduces raw URLs to the single string form used as the
// identity key of a bookmark. Two inputs denote the same resource exactly when
// they canonicalize to the same string.
package canonical

import (
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
)

// Kind classifies why a URL was rejected.
type Kind string

// Rejection kinds reported by Canonicalize.
const (
	KindEmpty             Kind = "EmptyUrl"
	KindMalformed         Kind = "MalformedUrl"
	KindUnsupportedScheme Kind = "UnsupportedScheme"
	KindMissingHost       Kind = "MissingHost"
	KindLocalAddress      Kind = "LocalAddress"
)

// Error is the validation failure returned by Canonicalize.
type Error struct {
	Kind   Kind
	Input  string
	Detail string
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindEmpty:
		return "URL cannot be empty"
	case KindMalformed:
		if e.Detail != "" {
			return fmt.Sprintf("invalid URL format: %s", e.Detail)
		}
		return "invalid URL format"
	case KindUnsupportedScheme:
		return fmt.Sprintf("unsupported URL scheme: %q", e.Detail)
	case KindMissingHost:
		return "URL must have a host"
	case KindLocalAddress:
		return "local addresses not allowed"
	default:
		return "invalid URL"
	}
}

// IsKind reports whether err is a canonicalization failure of the given kind.
func IsKind(err error, kind Kind) bool {
	var cErr *Error
	return errors.As(err, &cErr) && cErr.Kind == kind
}

// HostFilter reports whether a lower-cased host must be rejected as local.
type HostFilter func(host string) bool

// PrefixHostFilter is the default local-address policy: "localhost" plus the
// 127., 192.168. and 10. prefixes. It is a coarse filter, not an RFC 1918
// classifier: 172.16.0.0/12 and IPv6 loopback pass through.
func PrefixHostFilter(host string) bool {
	return host == "localhost" ||
		strings.HasPrefix(host, "127.") ||
		strings.HasPrefix(host, "192.168.") ||
		strings.HasPrefix(host, "10.")
}

var defaultPorts = map[string]string{
	"http":  "80",
	"https": "443",
}

// Canonicalizer applies the canonicalization pipeline with a configurable
// local-host policy.
type Canonicalizer struct {
	isLocal HostFilter
}

// Option customizes a Canonicalizer.
type Option func(*Canonicalizer)

// WithHostFilter replaces the local-address policy. A nil filter disables it.
func WithHostFilter(filter HostFilter) Option {
	return func(c *Canonicalizer) {
		c.isLocal = filter
	}
}

// New builds a Canonicalizer using PrefixHostFilter unless overridden.
func New(opts ...Option) *Canonicalizer {
	c := &Canonicalizer{isLocal: PrefixHostFilter}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

var std = New()

// Canonicalize runs the default Canonicalizer.
func Canonicalize(raw string) (string, error) {
	return std.Canonicalize(raw)
}

// Canonicalize validates raw and returns its canonical form:
// scheme://host[:port]path[?k1=v1&k2=v2...] with a lower-cased host, no
// default port, no fragment, no trailing slash outside the root path and
// query keys sorted ascending (last duplicate wins).
func (c *Canonicalizer) Canonicalize(raw string) (string, error) {
	if raw == "" {
		return "", &Error{Kind: KindEmpty}
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", &Error{Kind: KindMalformed, Input: raw, Detail: raw}
	}
	if u.Scheme == "" {
		return "", &Error{Kind: KindMalformed, Input: raw, Detail: raw}
	}
	defaultPort, ok := defaultPorts[u.Scheme]
	if !ok {
		return "", &Error{Kind: KindUnsupportedScheme, Input: raw, Detail: u.Scheme}
	}

	host := strings.ToLower(u.Hostname())
	if host == "" {
		return "", &Error{Kind: KindMissingHost, Input: raw}
	}
	if c.isLocal != nil && c.isLocal(host) {
		return "", &Error{Kind: KindLocalAddress, Input: raw, Detail: host}
	}

	port, err := normalizePort(u.Port(), defaultPort)
	if err != nil {
		return "", &Error{Kind: KindMalformed, Input: raw, Detail: err.Error()}
	}

	query := foldQuery(u.RawQuery)

	var b strings.Builder
	b.WriteString(u.Scheme)
	b.WriteString("://")
	b.WriteString(formatHost(host))
	if port != "" {
		b.WriteByte(':')
		b.WriteString(port)
	}
	b.WriteString(normalizePath(u.EscapedPath()))
	if query != "" {
		b.WriteByte('?')
		b.WriteString(query)
	}
	return b.String(), nil
}

func normalizePort(port, defaultPort string) (string, error) {
	if port == "" {
		return "", nil
	}
	n, err := strconv.ParseUint(port, 10, 16)
	if err != nil || n == 0 {
		return "", fmt.Errorf("invalid port %q", port)
	}
	port = strconv.FormatUint(n, 10)
	if port == defaultPort {
		return "", nil
	}
	return port, nil
}

func formatHost(host string) string {
	if !strings.Contains(host, ":") {
		return host
	}
	// IPv6 literal; zone separators must stay escaped.
	return "[" + strings.ReplaceAll(host, "%", "%25") + "]"
}

// normalizePath keeps "/" as the only path allowed to end in a slash. Every
// trailing slash is removed, not just the last one, so "/p//" and "/p/" both
// become "/p" and a second pass never changes the result.
func normalizePath(p string) string {
	trimmed := strings.TrimRight(p, "/")
	if trimmed == "" {
		return "/"
	}
	return trimmed
}

// foldQuery decodes the query into a key-sorted map (last occurrence wins) and
// re-encodes it. Keys with empty values render bare.
func foldQuery(raw string) string {
	if raw == "" {
		return ""
	}
	params := make(map[string]string)
	for _, pair := range strings.Split(raw, "&") {
		if pair == "" {
			continue
		}
		rawKey, rawValue, _ := strings.Cut(pair, "=")
		key := unescapeQuery(rawKey)
		value := unescapeQuery(rawValue)
		if key == "" && value == "" {
			continue
		}
		params[key] = value
	}
	if len(params) == 0 {
		return ""
	}

	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		v := params[k]
		if v == "" {
			parts = append(parts, url.QueryEscape(k))
			continue
		}
		parts = append(parts, url.QueryEscape(k)+"="+url.QueryEscape(v))
	}
	return strings.Join(parts, "&")
}

// unescapeQuery decodes form-encoded text the way browsers do: '+' is a
// space and a '%' not followed by two hex digits stays literal.
func unescapeQuery(s string) string {
	if !strings.ContainsAny(s, "%+") {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		switch c := s[i]; {
		case c == '+':
			b.WriteByte(' ')
		case c == '%' && i+2 < len(s) && isHex(s[i+1]) && isHex(s[i+2]):
			b.WriteByte(unhex(s[i+1])<<4 | unhex(s[i+2]))
			i += 2
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

func isHex(c byte) bool {
	return '0' <= c && c <= '9' || 'a' <= c && c <= 'f' || 'A' <= c && c <= 'F'
}

func unhex(c byte) byte {
	switch {
	case c <= '9':
		return c - '0'
	case c <= 'F':
		return c - 'A' + 10
	default:
		return c - 'a' + 10
	}
}
