// Package dapr はDaprサイドカーのHTTP APIを呼び出すクライアントを提供します。
package dapr

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"todo-chatbot/backend/internal/events"
	"todo-chatbot/backend/internal/models"
)

const (
	defaultHTTPPort   = "3500"
	defaultStateStore = "statestore"
	defaultPubsub     = "kafka-pubsub"
)

var ErrNotFound = errors.New("dapr: key not found")

// Client はlocalhost上のDaprサイドカーと通信します。
// state store・pub/sub・secret・service invocationを薄くラップします。
type Client struct {
	baseURL    string
	stateStore string
	pubsub     string
	httpClient *http.Client
}

// NewClient はDAPR_HTTP_PORT(未設定時3500)からクライアントを作成します。
func NewClient() *Client {
	port := os.Getenv("DAPR_HTTP_PORT")
	if port == "" {
		port = defaultHTTPPort
	}
	return NewClientWithBaseURL("http://localhost:" + port)
}

func NewClientWithBaseURL(baseURL string) *Client {
	return &Client{
		baseURL:    baseURL,
		stateStore: defaultStateStore,
		pubsub:     defaultPubsub,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// SaveState はキーに値を保存します。値はJSONに変換されます。
func (c *Client) SaveState(ctx context.Context, key string, value any) error {
	body, err := json.Marshal([]map[string]any{{"key": key, "value": value}})
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	url := fmt.Sprintf("%s/v1.0/state/%s", c.baseURL, c.stateStore)
	return c.do(ctx, http.MethodPost, url, body, nil)
}

// GetState はキーの値を取得してoutへデコードします。
// キーが存在しない場合は ErrNotFound を返します。
func (c *Client) GetState(ctx context.Context, key string, out any) error {
	url := fmt.Sprintf("%s/v1.0/state/%s/%s", c.baseURL, c.stateStore, key)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("dapr request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	// Daprは未登録キーに404または空ボディの200を返します。
	if resp.StatusCode == http.StatusNoContent || resp.StatusCode == http.StatusNotFound || len(body) == 0 {
		return ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("dapr returned status %d: %s", resp.StatusCode, body)
	}

	return json.Unmarshal(body, out)
}

// DeleteState はキーを削除します。存在しないキーでもエラーになりません。
func (c *Client) DeleteState(ctx context.Context, key string) error {
	url := fmt.Sprintf("%s/v1.0/state/%s/%s", c.baseURL, c.stateStore, key)
	return c.do(ctx, http.MethodDelete, url, nil, nil)
}

// GetSecret はシークレットストアからキーを取得します。
func (c *Client) GetSecret(ctx context.Context, store, key string) (map[string]string, error) {
	url := fmt.Sprintf("%s/v1.0/secrets/%s/%s", c.baseURL, store, key)

	var secret map[string]string
	if err := c.do(ctx, http.MethodGet, url, nil, &secret); err != nil {
		return nil, err
	}
	return secret, nil
}

// Invoke は他サービスのメソッドをDapr経由で呼び出します。
func (c *Client) Invoke(ctx context.Context, appID, method string, payload any, out any) error {
	var body []byte
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal payload: %w", err)
		}
		body = b
	}

	url := fmt.Sprintf("%s/v1.0/invoke/%s/method/%s", c.baseURL, appID, method)
	return c.do(ctx, http.MethodPost, url, body, out)
}

// Healthz はサイドカーの死活を確認します。
func (c *Client) Healthz(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1.0/healthz", nil)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("dapr sidecar unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("dapr healthz returned status %d", resp.StatusCode)
	}
	return nil
}

// Publish はDaprのpub/sub経由でイベントを発行します。
// events.Publisher を満たすので、Kafkaへ直接つなぐ代わりに使えます。
func (c *Client) Publish(ctx context.Context, event *models.Event) error {
	if err := event.Validate(); err != nil {
		return err
	}

	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	topic := events.TopicFor(event.EventType)
	url := fmt.Sprintf("%s/v1.0/publish/%s/%s", c.baseURL, c.pubsub, topic)
	return c.do(ctx, http.MethodPost, url, body, nil)
}

// Close は events.Publisher を満たすためのno-opです。
func (c *Client) Close() error {
	return nil
}

func (c *Client) do(ctx context.Context, method, url string, body []byte, out any) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("dapr request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("dapr returned status %d: %s", resp.StatusCode, respBody)
	}

	if out != nil && len(respBody) > 0 {
		return json.Unmarshal(respBody, out)
	}
	return nil
}
