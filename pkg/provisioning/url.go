package provisioning

import (
	"encoding/base64"
	"net/url"
)

const (
	urlScheme = "sgnl"
	urlHost   = "rereg"
)

// BuildProvisioningURL returns the QR code payload advertising a provisioning socket.
func BuildProvisioningURL(address string, publicKey []byte) string {
	return urlScheme + "://" + urlHost +
		"?uuid=" + url.QueryEscape(address) +
		"&pub_key=" + url.QueryEscape(base64.RawStdEncoding.EncodeToString(publicKey))
}

// ParseProvisioningURL extracts the address and public key from a provisioning url.
func ParseProvisioningURL(rawURL string) (string, []byte, error) {
	u, err := url.Parse(rawURL)
	if nil != err {
		return "", nil, wrapError(err, Error, "invalid provisioning url")
	}
	if urlScheme != u.Scheme || urlHost != u.Host {
		return "", nil, newError(Error, "not a provisioning url, %s://%s", u.Scheme, u.Host)
	}
	q := u.Query()
	address := q.Get("uuid")
	if "" == address {
		return "", nil, newError(Error, "provisioning url has no uuid")
	}
	publicKey, err := base64.RawStdEncoding.DecodeString(q.Get("pub_key"))
	if nil != err {
		return "", nil, wrapError(err, Error, "provisioning url has an invalid pub_key")
	}
	if 0 == len(publicKey) {
		return "", nil, newError(Error, "provisioning url has no pub_key")
	}

	return address, publicKey, nil
}
