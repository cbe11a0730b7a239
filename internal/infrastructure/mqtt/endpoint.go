package mqtt

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
)

// Accepted broker URL schemes.
const (
	SchemeMQTT = "mqtt"
	SchemeWS   = "ws"
)

// Endpoint is a resolved broker address.
//
// An Endpoint is derived once at startup from the configured broker URL and
// never changes afterwards.
type Endpoint struct {
	// Scheme is the lower-cased URL scheme, SchemeMQTT or SchemeWS.
	Scheme string

	Host string
	Port int

	// Username and Password come from URL-embedded user info.
	// Both are empty when the URL carries none.
	Username string
	Password string

	// Path is only meaningful for websocket endpoints.
	Path string
}

// ParseEndpoint resolves a broker URL of the form
// scheme://[user[:password]@]host:port[/path].
//
// Only the mqtt and ws schemes are accepted (case-insensitive). The host must
// be non-empty and the port must be present and within 1-65535.
//
// Parameters:
//   - raw: The broker URL from configuration
//
// Returns:
//   - Endpoint: The resolved endpoint
//   - error: Wraps ErrInvalidEndpoint when the URL is unusable
func ParseEndpoint(raw string) (Endpoint, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return Endpoint{}, fmt.Errorf("%w: %w", ErrInvalidEndpoint, err)
	}

	scheme := strings.ToLower(u.Scheme)
	if scheme != SchemeMQTT && scheme != SchemeWS {
		return Endpoint{}, fmt.Errorf("%w: unsupported scheme %q", ErrInvalidEndpoint, u.Scheme)
	}

	host := u.Hostname()
	if host == "" {
		return Endpoint{}, fmt.Errorf("%w: missing host", ErrInvalidEndpoint)
	}

	portStr := u.Port()
	if portStr == "" {
		return Endpoint{}, fmt.Errorf("%w: missing port", ErrInvalidEndpoint)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil || port < 1 || port > 65535 {
		return Endpoint{}, fmt.Errorf("%w: invalid port %q", ErrInvalidEndpoint, portStr)
	}

	ep := Endpoint{
		Scheme: scheme,
		Host:   host,
		Port:   port,
		Path:   u.Path,
	}
	if u.User != nil {
		ep.Username = u.User.Username()
		ep.Password, _ = u.User.Password()
	}

	return ep, nil
}

// Address returns host:port, bracketing IPv6 literals.
func (e Endpoint) Address() string {
	return net.JoinHostPort(e.Host, strconv.Itoa(e.Port))
}

// BrokerURL returns the URL paho dials: tcp://host:port for mqtt endpoints
// and ws://host:port[/path] for websocket endpoints.
func (e Endpoint) BrokerURL() string {
	if e.Scheme == SchemeWS {
		return "ws://" + e.Address() + e.Path
	}
	return "tcp://" + e.Address()
}

// HasCredentials reports whether the URL carried a user name.
func (e Endpoint) HasCredentials() bool {
	return e.Username != ""
}

// String returns the endpoint without its password, safe for logging.
func (e Endpoint) String() string {
	var b strings.Builder
	b.WriteString(e.Scheme)
	b.WriteString("://")
	if e.Username != "" {
		b.WriteString(e.Username)
		b.WriteString("@")
	}
	b.WriteString(e.Address())
	b.WriteString(e.Path)
	return b.String()
}
