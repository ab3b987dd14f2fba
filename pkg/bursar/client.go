package bursar

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"k8s.io/klog/v2"
)

const authHeader = "x-auth-hpcbursar"

var (
	ErrUnauthorized    = errors.New("unauthorized to query the grant registry")
	ErrInvalidResponse = errors.New("invalid response from the grant registry")
)

// Client fetches grant data from the bursar registry. Every failure is fatal
// for the run: quota changes must never be derived from partial data.
type Client struct {
	baseURL string
	service string
	tokens  TokenSource
	http    *http.Client
}

// NewClient builds a registry client. certPath, when non-empty, points at the
// PEM bundle used to verify the registry's TLS certificate.
func NewClient(baseURL, service, certPath string, tokens TokenSource) (*Client, error) {
	transport := &http.Transport{}
	if certPath != "" {
		pem, err := os.ReadFile(certPath)
		if err != nil {
			return nil, fmt.Errorf("read registry CA bundle: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, fmt.Errorf("no certificates found in %s", certPath)
		}
		transport.TLSClientConfig = &tls.Config{RootCAs: pool}
	}
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		service: service,
		tokens:  tokens,
		http:    &http.Client{Timeout: 30 * time.Second, Transport: transport},
	}, nil
}

// FetchGrantData retrieves the full group and grant listing.
func (c *Client) FetchGrantData(ctx context.Context) (*GrantData, error) {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("generate registry token: %w", err)
	}

	url := c.baseURL + "/" + c.service + "/"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set(authHeader, token)

	klog.V(4).InfoS("Fetching grant data", "url", url)
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("query grant registry: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusForbidden:
		return nil, ErrUnauthorized
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return nil, fmt.Errorf("%w: status %d", ErrInvalidResponse, resp.StatusCode)
	}

	var data GrantData
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	klog.V(2).InfoS("Fetched grant data", "groups", len(data.Groups), "grants", len(data.Grants))
	return &data, nil
}
