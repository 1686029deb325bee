package objcache

import (
	"bytes"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"time"

	http3 "github.com/quic-go/quic-go/http3"
)

// Client fetches and stores object files against a Server.
type Client struct {
	base string
	hc   *http.Client
}

// NewClient returns a client for the cache server at addr (host:port); the
// QUIC connection is dialed on the first request, not here. tlsCfg follows the
// same "caller supplies its own trust policy" contract as the teacher's
// HTTP3Client helper.
func NewClient(addr string, tlsCfg *tls.Config, timeout time.Duration) *Client {
	tr := &http3.Transport{TLSClientConfig: tlsCfg}

	return &Client{
		base: "https://" + addr,
		hc:   &http.Client{Transport: tr, Timeout: timeout},
	}
}

// Close releases the underlying QUIC transport.
func (c *Client) Close() {
	if tr, ok := c.hc.Transport.(*http3.Transport); ok {
		_ = tr.Close()
	}
}

// Fetch returns the cached bytes for key, or ok=false on a cache miss.
func (c *Client) Fetch(key string) (data []byte, ok bool, err error) {
	resp, err := c.hc.Get(c.base + "/objects/" + key)
	if err != nil {
		return nil, false, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, false, nil
	}

	if resp.StatusCode != http.StatusOK {
		return nil, false, fmt.Errorf("objcache: unexpected status %d fetching %s", resp.StatusCode, key)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, false, err
	}

	return body, true, nil
}

// Store uploads data under key, overwriting any prior value.
func (c *Client) Store(key string, data []byte) error {
	req, err := http.NewRequest(http.MethodPut, c.base+"/objects/"+key, bytes.NewReader(data))
	if err != nil {
		return err
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("objcache: unexpected status %d storing %s", resp.StatusCode, key)
	}

	return nil
}
