package provisioning

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"code.rereg.org/golang/internal/transport"
)

const (
	DefaultKeepAliveInterval = 30 * time.Second
	DefaultAddressTimeout    = 10 * time.Second
	DefaultLifespan          = 90 * time.Second

	SocketPath = "/v1/websocket/provisioning/"
)

// Config holds the settings of a provisioning Session.
type Config struct {
	// ServiceURL is the http(s) url of the messaging service.
	ServiceURL string

	// HostHeader if set overrides the Host header of the socket upgrade request.
	HostHeader string

	KeepAliveInterval time.Duration
	AddressTimeout    time.Duration
	Lifespan          time.Duration

	// Dialer defaults to transport.WebSocketDialer.
	Dialer transport.Dialer
}

// WithDefaults returns a copy of the Config where zero fields are set to their default.
func (self Config) WithDefaults() Config {
	if 0 == self.KeepAliveInterval {
		self.KeepAliveInterval = DefaultKeepAliveInterval
	}
	if 0 == self.AddressTimeout {
		self.AddressTimeout = DefaultAddressTimeout
	}
	if 0 == self.Lifespan {
		self.Lifespan = DefaultLifespan
	}
	if nil == self.Dialer {
		self.Dialer = transport.WebSocketDialer{}
	}
	return self
}

// Check returns an error if the Config is not usable.
func (self Config) Check() error {
	if _, err := ConnectionURL(self.ServiceURL); nil != err {
		return err
	}
	if self.KeepAliveInterval < 0 || self.AddressTimeout < 0 || self.Lifespan < 0 {
		return newError(ErrConfig, "negative duration")
	}
	return nil
}

func (self Config) header() http.Header {
	header := http.Header{}
	if "" != self.HostHeader {
		header.Set("Host", self.HostHeader)
	}
	return header
}

// ConnectionURL returns the provisioning socket url of the service.
// https is mapped to wss, http to ws.
func ConnectionURL(serviceURL string) (string, error) {
	u, err := url.Parse(serviceURL)
	if nil != err {
		return "", wrapError(err, ErrConfig, "invalid service url %q", serviceURL)
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	case "http":
		u.Scheme = "ws"
	default:
		return "", newError(ErrConfig, "unsupported service url scheme %q", u.Scheme)
	}
	if "" == u.Host {
		return "", newError(ErrConfig, "service url %q has no host", serviceURL)
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + SocketPath
	u.RawPath = ""

	return u.String(), nil
}
