// Package client talks to the Shopify Admin API. It covers the three calls
// the bridge needs: the OAuth code exchange, the shop profile, and the
// product listing.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const apiVersion = "2023-10"

// Client is a minimal Shopify Admin API client. Product payloads pass
// through as raw JSON; this service never interprets them.
type Client struct {
	http      *http.Client
	apiKey    string
	apiSecret string
}

func New(apiKey, apiSecret string) *Client {
	return &Client{
		http:      &http.Client{Timeout: 15 * time.Second},
		apiKey:    apiKey,
		apiSecret: apiSecret,
	}
}

// ExchangeCode trades an OAuth authorization code for a shop access token.
func (c *Client) ExchangeCode(ctx context.Context, shop, code string) (string, error) {
	body, err := json.Marshal(map[string]string{
		"client_id":     c.apiKey,
		"client_secret": c.apiSecret,
		"code":          code,
	})
	if err != nil {
		return "", fmt.Errorf("marshal token request: %w", err)
	}

	url := fmt.Sprintf("https://%s/admin/oauth/access_token", shop)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	var resp struct {
		AccessToken string `json:"access_token"`
	}
	if err := c.do(req, &resp); err != nil {
		return "", err
	}
	if resp.AccessToken == "" {
		return "", fmt.Errorf("token exchange for %s returned no access token", shop)
	}
	return resp.AccessToken, nil
}

// Shop is the subset of the shop profile the bridge records.
type Shop struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// FetchShop reads the shop profile with a freshly issued access token.
func (c *Client) FetchShop(ctx context.Context, shop, accessToken string) (Shop, error) {
	url := fmt.Sprintf("https://%s/admin/api/%s/shop.json", shop, apiVersion)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Shop{}, fmt.Errorf("build shop request: %w", err)
	}
	req.Header.Set("X-Shopify-Access-Token", accessToken)

	var resp struct {
		Shop Shop `json:"shop"`
	}
	if err := c.do(req, &resp); err != nil {
		return Shop{}, err
	}
	return resp.Shop, nil
}

// FetchProducts proxies the product listing for a connected shop.
func (c *Client) FetchProducts(ctx context.Context, shop, accessToken string) (json.RawMessage, error) {
	url := fmt.Sprintf("https://%s/admin/api/%s/products.json", shop, apiVersion)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build products request: %w", err)
	}
	req.Header.Set("X-Shopify-Access-Token", accessToken)

	var resp struct {
		Products json.RawMessage `json:"products"`
	}
	if err := c.do(req, &resp); err != nil {
		return nil, err
	}
	return resp.Products, nil
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("shopify request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("shopify request %s: unexpected status %d", req.URL.Path, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("read shopify response: %w", err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode shopify response: %w", err)
	}
	return nil
}
