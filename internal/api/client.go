package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	nethttp "net/http"
	"net/url"
	"strconv"

	"github.com/shelf-labs/shelfctl/internal/models"
)

// Client provides the typed Shelf API operations on top of the Gateway.
type Client struct {
	gw *Gateway

	// plainClient fetches presigned object URLs. Those point at storage, not
	// the API, so no bearer token or correlation id is attached.
	plainClient *nethttp.Client
}

// NewClient creates a Client dispatching through gw.
func NewClient(gw *Gateway) *Client {
	return &Client{
		gw:          gw,
		plainClient: &nethttp.Client{Transport: newTransport(), Timeout: requestTimeout},
	}
}

// Gateway returns the underlying Gateway.
func (c *Client) Gateway() *Gateway {
	return c.gw
}

// Signup registers a new account. A non-2xx response comes back as a
// StatusError with the server's validation message.
func (c *Client) Signup(ctx context.Context, email, password string) error {
	payload, err := json.Marshal(map[string]string{"email": email, "password": password})
	if err != nil {
		return fmt.Errorf("failed to marshal signup request: %w", err)
	}

	resp, err := c.gw.Dispatch(ctx, nethttp.MethodPost, "/auth/signup", bytes.NewReader(payload), "application/json")
	if err != nil {
		return err
	}
	if !isSuccess(resp.StatusCode) {
		return ReadError(resp)
	}
	Drain(resp)
	return nil
}

// Login exchanges credentials for a bearer token. The endpoint takes a
// form-encoded body with the email in the username field.
func (c *Client) Login(ctx context.Context, email, password string) (string, error) {
	form := url.Values{}
	form.Set("username", email)
	form.Set("password", password)

	resp, err := c.gw.Dispatch(ctx, nethttp.MethodPost, "/auth/login", bytes.NewReader([]byte(form.Encode())), "application/x-www-form-urlencoded")
	if err != nil {
		return "", err
	}
	if !isSuccess(resp.StatusCode) {
		return "", ReadError(resp)
	}

	var token models.TokenResponse
	if err := decodeJSON(resp, &token); err != nil {
		return "", err
	}
	if token.AccessToken == "" {
		return "", errors.New("login response carried no access token")
	}
	return token.AccessToken, nil
}

// Logout invalidates the session server-side. Callers clear local state
// regardless of the outcome, so any error here is advisory.
func (c *Client) Logout(ctx context.Context) error {
	resp, err := c.gw.Dispatch(ctx, nethttp.MethodPost, "/auth/logout", nil, "")
	if err != nil {
		return err
	}
	if !isSuccess(resp.StatusCode) {
		return ReadError(resp)
	}
	Drain(resp)
	return nil
}

// ListFiles fetches one page of the file collection.
func (c *Client) ListFiles(ctx context.Context, q models.PageQuery) (*models.FilePage, error) {
	params := url.Values{}
	params.Set("limit", strconv.Itoa(q.Limit))
	params.Set("offset", strconv.Itoa(q.Offset))
	params.Set("sort", string(q.Sort))

	resp, err := c.gw.Dispatch(ctx, nethttp.MethodGet, "/files?"+params.Encode(), nil, "")
	if err != nil {
		return nil, err
	}
	if !isSuccess(resp.StatusCode) {
		return nil, ReadError(resp)
	}

	var page models.FilePage
	if err := decodeJSON(resp, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// Rename updates a file's display name.
func (c *Client) Rename(ctx context.Context, fileID, displayName string) error {
	payload, err := json.Marshal(map[string]string{"display_name": displayName})
	if err != nil {
		return fmt.Errorf("failed to marshal rename request: %w", err)
	}

	resp, err := c.gw.Dispatch(ctx, nethttp.MethodPut, "/files/"+url.PathEscape(fileID), bytes.NewReader(payload), "application/json")
	if err != nil {
		return err
	}
	if !isSuccess(resp.StatusCode) {
		return ReadError(resp)
	}
	Drain(resp)
	return nil
}

// Delete removes a file. The server answers 204 on success.
func (c *Client) Delete(ctx context.Context, fileID string) error {
	resp, err := c.gw.Dispatch(ctx, nethttp.MethodDelete, "/files/"+url.PathEscape(fileID), nil, "")
	if err != nil {
		return err
	}
	if !isSuccess(resp.StatusCode) {
		return ReadError(resp)
	}
	Drain(resp)
	return nil
}

// Download starts a download for a file. The endpoint may answer with a JSON
// locator pointing at storage or with the bytes directly, so the raw
// response is returned and the caller branches on Content-Type. The caller
// owns closing the body.
func (c *Client) Download(ctx context.Context, fileID string) (*nethttp.Response, error) {
	resp, err := c.gw.Dispatch(ctx, nethttp.MethodGet, "/files/"+url.PathEscape(fileID)+"/download", nil, "")
	if err != nil {
		return nil, err
	}
	if !isSuccess(resp.StatusCode) {
		return nil, ReadError(resp)
	}
	return resp, nil
}

// Thumbnail resolves the presigned thumbnail locator for a file.
func (c *Client) Thumbnail(ctx context.Context, fileID string) (*models.ThumbnailDescriptor, error) {
	resp, err := c.gw.Dispatch(ctx, nethttp.MethodGet, "/files/"+url.PathEscape(fileID)+"/thumbnail", nil, "")
	if err != nil {
		return nil, err
	}
	if !isSuccess(resp.StatusCode) {
		return nil, ReadError(resp)
	}

	var desc models.ThumbnailDescriptor
	if err := decodeJSON(resp, &desc); err != nil {
		return nil, err
	}
	if desc.URL == "" {
		return nil, errors.New("thumbnail response carried no url")
	}
	return &desc, nil
}

// FetchURL downloads the content behind a presigned object URL.
func (c *Client) FetchURL(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := nethttp.NewRequestWithContext(ctx, nethttp.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.plainClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if !isSuccess(resp.StatusCode) {
		return nil, &StatusError{Status: resp.StatusCode, Message: GenericErrorNotice}
	}
	return io.ReadAll(resp.Body)
}

func isSuccess(status int) bool {
	return status >= 200 && status < 300
}

// decodeJSON decodes and closes a response body. A decode failure is a
// transport-level error, not a StatusError; callers fall back to their own
// operation notice.
func decodeJSON(resp *nethttp.Response, v interface{}) error {
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// Drain discards a response body so the connection can be reused.
func Drain(resp *nethttp.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<20))
	resp.Body.Close()
}
