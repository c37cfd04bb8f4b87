// Package transport 是各 TTS 服务共用的 HTTP 调用层：
// 负责拼接请求、附加认证头、校验状态码并记录指标。
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/iabetor/speech-engine/internal/logger"
	"github.com/iabetor/speech-engine/internal/metrics"
)

// DefaultTimeout 是未显式指定时的单次请求超时。
const DefaultTimeout = 30 * time.Second

// StatusError 表示服务端返回了非 2xx 状态码。
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Body)
}

// Request 描述一次出站调用。
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Header map[string]string
	// JSON 非空时序列化为请求体并设置 Content-Type: application/json。
	JSON any
	// Form 非空时作为 application/x-www-form-urlencoded 请求体。
	Form string
}

// Client 绑定某个服务的 base URL 与认证头。
type Client struct {
	provider   string
	baseURL    string
	header     map[string]string
	httpClient *http.Client
}

// New 创建服务客户端。header 会附加到每个请求上（通常是认证头）。
func New(provider, baseURL string, httpClient *http.Client, header map[string]string) *Client {
	return &Client{
		provider:   provider,
		baseURL:    strings.TrimRight(baseURL, "/"),
		header:     header,
		httpClient: httpClient,
	}
}

// BaseURL 返回去掉末尾斜杠的 base URL。
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Do 发送请求并返回完整响应体。非 2xx 返回 *StatusError。
func (c *Client) Do(ctx context.Context, r Request) ([]byte, error) {
	var body io.Reader
	contentType := ""
	switch {
	case r.JSON != nil:
		b, err := json.Marshal(r.JSON)
		if err != nil {
			return nil, fmt.Errorf("[transport] 序列化请求体失败: %w", err)
		}
		body = bytes.NewReader(b)
		contentType = "application/json"
	case r.Form != "":
		body = strings.NewReader(r.Form)
		contentType = "application/x-www-form-urlencoded;charset=utf-8"
	}

	target := c.baseURL + r.Path
	if len(r.Query) > 0 {
		target += "?" + r.Query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, r.Method, target, body)
	if err != nil {
		return nil, fmt.Errorf("[transport] 创建请求失败: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	for k, v := range c.header {
		req.Header.Set(k, v)
	}
	for k, v := range r.Header {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("[transport] %s 请求失败: %w", c.provider, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("[transport] %s 读取响应失败: %w", c.provider, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: string(data)}
	}
	return data, nil
}

// NewHTTPClient 创建带指标与调试日志的 http.Client。
// base 为 nil 时使用 http.DefaultTransport。
func NewHTTPClient(provider string, timeout time.Duration, m *metrics.Metrics, base http.RoundTripper) *http.Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &http.Client{
		Timeout:   timeout,
		Transport: Instrument(provider, m, base),
	}
}

// Instrument 包装 RoundTripper，记录每个请求的状态码与耗时。
func Instrument(provider string, m *metrics.Metrics, base http.RoundTripper) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}
	return &instrumentedTransport{provider: provider, next: base, metrics: m}
}

type instrumentedTransport struct {
	provider string
	next     http.RoundTripper
	metrics  *metrics.Metrics
}

func (t *instrumentedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()
	resp, err := t.next.RoundTrip(req)
	elapsed := time.Since(start)

	code := 0
	if resp != nil {
		code = resp.StatusCode
	}
	t.metrics.ObserveRequest(t.provider, req.Method, code, elapsed)

	// 只记录路径，query 中可能带有密钥
	if err != nil {
		logger.Debugf("[transport] %s %s %s 失败 (%s): %v", t.provider, req.Method, req.URL.Path, elapsed, err)
	} else {
		logger.Debugf("[transport] %s %s %s -> %d (%s)", t.provider, req.Method, req.URL.Path, code, elapsed)
	}
	return resp, err
}
