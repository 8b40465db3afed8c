package restore

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"code.rereg.org/golang/internal/observability"
	"code.rereg.org/golang/internal/transport"
)

const (
	DefaultTimeout = 30 * time.Second
	MinTimeout     = time.Second
	MaxTimeout     = 300 * time.Second

	// DefaultRetryAfter is used by PollRestoreMethod when a 429 response has no Retry-After header.
	DefaultRetryAfter = 5 * time.Second

	// MinPollInterval is the minimum delay between the starts of two PollRestoreMethod long polls.
	MinPollInterval = time.Second

	RestoreAccountPath = "/v1/devices/restore_account/"
)

// httpClient is a private interface that simplify mocking http.Client.
type httpClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// ClientCfg holds the settings of a Client.
type ClientCfg struct {
	// ServiceURL is the http(s) url of the messaging service.
	ServiceURL string

	// HostHeader if set overrides the Host of the requests.
	HostHeader string

	// Username & Password if set are sent using basic authentication.
	Username string
	Password string

	// HTTP defaults to http.DefaultClient.
	HTTP httpClient
}

// Check returns an error if the ClientCfg is not usable.
func (self ClientCfg) Check() error {
	u, err := url.Parse(self.ServiceURL)
	if nil != err {
		return wrapError(err, ErrInvalidRequest, "invalid service url")
	}
	if !slices.Contains([]string{"http", "https"}, u.Scheme) {
		return newError(ErrInvalidRequest, "invalid service url scheme %q", u.Scheme)
	}
	if "" == u.Host {
		return newError(ErrInvalidRequest, "service url has no host")
	}
	return nil
}

// Client queries the restore_account endpoints of the messaging service.
type Client struct {
	cfg  ClientCfg
	base *url.URL
	srz  transport.JSONSerializer
}

// NewClient returns a Client. It errors if cfg is invalid.
func NewClient(cfg ClientCfg) (*Client, error) {
	if err := cfg.Check(); nil != err {
		return nil, err
	}
	if nil == cfg.HTTP {
		cfg.HTTP = http.DefaultClient
	}
	base, _ := url.Parse(cfg.ServiceURL)
	base.Path = strings.TrimSuffix(base.Path, "/")

	return &Client{cfg: cfg, base: base}, nil
}

func (self *Client) endpoint(token string) string {
	return self.base.JoinPath(RestoreAccountPath, url.PathEscape(token)).String()
}

// WaitForRestoreMethod long polls the service for the RestoreMethod chosen on the new device.
//
// timeout bounds the server side wait, 0 means DefaultTimeout; it must be within [MinTimeout, MaxTimeout].
// When the new device has not chosen yet, WaitForRestoreMethod returns Decline and an
// error wrapping ErrNoAnswer, the caller may call it again. A 429 response is returned
// as a *RateLimitError wrapping ErrRateLimited.
func (self *Client) WaitForRestoreMethod(ctx context.Context, token string, timeout time.Duration) (RestoreMethod, error) {
	if "" == token {
		return Decline, newError(ErrInvalidRequest, "empty token")
	}
	if 0 == timeout {
		timeout = DefaultTimeout
	}
	if timeout < MinTimeout || timeout > MaxTimeout {
		return Decline, newError(ErrInvalidRequest, "timeout %s out of [%s, %s]", timeout, MinTimeout, MaxTimeout)
	}

	target := self.endpoint(token) + "?timeout=" + strconv.Itoa(int(timeout/time.Second))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if nil != err {
		return Decline, wrapError(err, ErrInvalidRequest, "failed instantiating http Request")
	}
	self.prepare(req)

	log := observability.GetObservability(ctx).Log()
	log.Debug("waiting for restore method", "timeout", timeout)

	resp, err := self.cfg.HTTP.Do(req)
	if nil != err {
		return Decline, wrapError(err, ErrTransport, "failed http GET request")
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		data, err := io.ReadAll(resp.Body)
		if nil != err {
			return Decline, wrapError(err, ErrTransport, "failed reading resp.Body")
		}
		var body MethodBody
		if err = self.srz.Unmarshal(data, &body); nil != err {
			return Decline, wrapError(err, ErrServer, "failed decoding restore method")
		}
		method := ParseRestoreMethod(string(body.Method))
		log.Debug("restore method received", "method", method)
		return method, nil
	case http.StatusNoContent:
		return Decline, newError(ErrNoAnswer, "no restore method within %s", timeout)
	case http.StatusBadRequest:
		return Decline, newError(ErrInvalidRequest, "server rejected token or timeout")
	case http.StatusTooManyRequests:
		retry := parseRetryAfter(resp.Header.Get("Retry-After"), time.Now())
		log.Warn("restore method polling rate limited", "retryAfter", retry)
		return Decline, &RateLimitError{RetryAfter: retry}
	default:
		return Decline, newError(ErrServer, "unexpected http status %d", resp.StatusCode)
	}
}

// PollRestoreMethod calls WaitForRestoreMethod until the new device answers.
//
// A long poll answered early is paced so that polls start at most every MinPollInterval.
// It waits for the server Retry-After delay (or DefaultRetryAfter) when rate limited
// and returns any other error.
func (self *Client) PollRestoreMethod(ctx context.Context, token string, timeout time.Duration) (RestoreMethod, error) {
	log := observability.GetObservability(ctx).Log()
	for {
		begin := time.Now()
		method, err := self.WaitForRestoreMethod(ctx, token, timeout)
		if nil == err {
			return method, nil
		}

		var delay time.Duration
		var rle *RateLimitError
		switch {
		case errors.Is(err, ErrNoAnswer):
			delay = MinPollInterval - time.Since(begin)
			log.Debug("no restore method yet, polling again", "delay", max(delay, 0))
			if delay <= 0 {
				continue
			}
		case errors.As(err, &rle):
			delay = rle.RetryAfter
			if delay <= 0 {
				delay = DefaultRetryAfter
			}
		default:
			return method, err
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return Decline, wrapError(context.Cause(ctx), Error, "restore method polling cancelled")
		case <-timer.C:
		}
	}
}

// SetRestoreMethod publishes the RestoreMethod chosen on the new device.
func (self *Client) SetRestoreMethod(ctx context.Context, token string, method RestoreMethod) error {
	if "" == token {
		return newError(ErrInvalidRequest, "empty token")
	}
	if !method.Valid() {
		return newError(ErrInvalidRequest, "invalid restore method %q", method)
	}
	data, err := self.srz.Marshal(MethodBody{Method: method})
	if nil != err {
		return wrapError(err, Error, "failed serializing restore method")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, self.endpoint(token), bytes.NewReader(data))
	if nil != err {
		return wrapError(err, ErrInvalidRequest, "failed instantiating http Request")
	}
	req.Header.Set("Content-Type", "application/json")
	self.prepare(req)

	resp, err := self.cfg.HTTP.Do(req)
	if nil != err {
		return wrapError(err, ErrTransport, "failed http PUT request")
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case http.StatusBadRequest == resp.StatusCode:
		return newError(ErrInvalidRequest, "server rejected restore method")
	case http.StatusTooManyRequests == resp.StatusCode:
		return &RateLimitError{RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After"), time.Now())}
	default:
		return newError(ErrServer, "unexpected http status %d", resp.StatusCode)
	}
}

func (self *Client) prepare(req *http.Request) {
	if "" != self.cfg.HostHeader {
		req.Host = self.cfg.HostHeader
	}
	if "" != self.cfg.Username {
		req.SetBasicAuth(self.cfg.Username, self.cfg.Password)
	}
}

// parseRetryAfter accepts delay seconds or an http date. It returns 0 for invalid values.
func parseRetryAfter(value string, now time.Time) time.Duration {
	if "" == value {
		return 0
	}
	if secs, err := strconv.Atoi(value); nil == err {
		if secs < 0 {
			return 0
		}
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(value); nil == err && at.After(now) {
		return at.Sub(now)
	}
	return 0
}
