package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"
)

// Gateway is the outbound surface the dispatcher and workflow engine
// depend on. Both calls may fail transiently and are never retried by
// callers within a pass; repeating either can duplicate messages.
type Gateway interface {
	OpenConversation(ctx context.Context, token, userID string) (string, error)
	PostMessage(ctx context.Context, token, channelID, text string) error
}

// APIError is a Slack-level failure (HTTP succeeded, ok=false).
type APIError struct {
	Method string
	Reason string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("slack %s failed: %s", e.Method, e.Reason)
}

// Client talks to the Slack Web API. All write calls share a token
// bucket so concurrent passes cannot burst past the configured rate.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
}

func NewClient(baseURL string, sendRatePerSec int) *Client {
	if sendRatePerSec <= 0 {
		sendRatePerSec = 1
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		limiter:    rate.NewLimiter(rate.Limit(sendRatePerSec), sendRatePerSec),
	}
}

type openConversationResponse struct {
	OK      bool   `json:"ok"`
	Error   string `json:"error"`
	Channel *struct {
		ID string `json:"id"`
	} `json:"channel"`
}

func (c *Client) OpenConversation(ctx context.Context, token, userID string) (string, error) {
	var resp openConversationResponse
	err := c.post(ctx, token, "conversations.open", map[string]interface{}{"users": userID}, &resp)
	if err != nil {
		return "", err
	}
	if !resp.OK || resp.Channel == nil || resp.Channel.ID == "" {
		reason := resp.Error
		if reason == "" {
			reason = "no conversation returned"
		}
		return "", &APIError{Method: "conversations.open", Reason: reason}
	}
	return resp.Channel.ID, nil
}

type postMessageResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
}

func (c *Client) PostMessage(ctx context.Context, token, channelID, text string) error {
	var resp postMessageResponse
	err := c.post(ctx, token, "chat.postMessage", map[string]interface{}{
		"channel": channelID,
		"text":    text,
	}, &resp)
	if err != nil {
		return err
	}
	if !resp.OK {
		reason := resp.Error
		if reason == "" {
			reason = "unknown error"
		}
		return &APIError{Method: "chat.postMessage", Reason: reason}
	}
	return nil
}

// Member is one entry of users.list.
type Member struct {
	ID      string `json:"id"`
	IsBot   bool   `json:"is_bot"`
	Deleted bool   `json:"deleted"`
	Created int64  `json:"created"`
	Profile struct {
		DisplayName string `json:"display_name"`
		RealName    string `json:"real_name"`
	} `json:"profile"`
}

type usersListResponse struct {
	OK      bool     `json:"ok"`
	Error   string   `json:"error"`
	Members []Member `json:"members"`
}

func (c *Client) ListUsers(ctx context.Context, token string) ([]Member, error) {
	var resp usersListResponse
	if err := c.get(ctx, token, "users.list", url.Values{"limit": {"200"}}, &resp); err != nil {
		return nil, err
	}
	if !resp.OK {
		return nil, &APIError{Method: "users.list", Reason: resp.Error}
	}
	return resp.Members, nil
}

// ChannelInfo is one entry of conversations.list.
type ChannelInfo struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	IsPrivate  bool   `json:"is_private"`
	IsArchived bool   `json:"is_archived"`
}

type conversationsListResponse struct {
	OK       bool          `json:"ok"`
	Error    string        `json:"error"`
	Channels []ChannelInfo `json:"channels"`
}

func (c *Client) ListChannels(ctx context.Context, token string) ([]ChannelInfo, error) {
	var resp conversationsListResponse
	params := url.Values{"types": {"public_channel"}, "limit": {"200"}}
	if err := c.get(ctx, token, "conversations.list", params, &resp); err != nil {
		return nil, err
	}
	if !resp.OK {
		return nil, &APIError{Method: "conversations.list", Reason: resp.Error}
	}
	return resp.Channels, nil
}

func (c *Client) JoinChannel(ctx context.Context, token, channelID string) error {
	var resp postMessageResponse
	err := c.post(ctx, token, "conversations.join", map[string]interface{}{"channel": channelID}, &resp)
	if err != nil {
		return err
	}
	if !resp.OK {
		return &APIError{Method: "conversations.join", Reason: resp.Error}
	}
	return nil
}

func (c *Client) post(ctx context.Context, token, method string, body map[string]interface{}, out interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/"+method, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	return c.do(req, method, out)
}

func (c *Client) get(ctx context.Context, token, method string, params url.Values, out interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	endpoint := c.baseURL + "/" + method
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	return c.do(req, method, out)
}

func (c *Client) do(req *http.Request, method string, out interface{}) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("slack %s: %w", method, err)
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("slack %s: decode response: %w", method, err)
	}
	return nil
}

var _ Gateway = (*Client)(nil)
