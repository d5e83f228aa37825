package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"prism/internal/domain"
)

// HTTPClient talks to a relay over HTTP.
type HTTPClient struct {
	Base string
	HTTP *http.Client
}

// NewHTTP returns a client for the relay at base. A nil hc uses
// http.DefaultClient.
func NewHTTP(base string, hc *http.Client) *HTTPClient {
	if hc == nil {
		hc = http.DefaultClient
	}
	return &HTTPClient{Base: strings.TrimRight(base, "/"), HTTP: hc}
}

// Post enqueues env in mailbox.
func (c *HTTPClient) Post(ctx context.Context, mailbox string, env domain.Envelope) error {
	return c.post(ctx, mailboxPath(mailbox), env, nil)
}

// Fetch returns up to limit queued envelopes without removing them.
func (c *HTTPClient) Fetch(ctx context.Context, mailbox string, limit int) ([]domain.Envelope, error) {
	path := mailboxPath(mailbox)
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	var envs []domain.Envelope
	if err := c.getJSON(ctx, path, &envs); err != nil {
		return nil, err
	}
	return envs, nil
}

// Ack drops the first count envelopes of mailbox.
func (c *HTTPClient) Ack(ctx context.Context, mailbox string, count int) error {
	return c.post(ctx, mailboxPath(mailbox)+"/ack", ackRequest{Count: count}, nil)
}

type ackRequest struct {
	Count int `json:"count"`
}

func mailboxPath(mailbox string) string { return "/mailbox/" + url.PathEscape(mailbox) }

func (c *HTTPClient) post(ctx context.Context, path string, in any, out any) error {
	buf := new(bytes.Buffer)
	if err := json.NewEncoder(buf).Encode(in); err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Base+path, buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("relay post %s: %s", path, resp.Status)
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func (c *HTTPClient) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.Base+path, nil)
	if err != nil {
		return err
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("relay get %s: %s", path, resp.Status)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

var _ domain.RelayClient = (*HTTPClient)(nil)
