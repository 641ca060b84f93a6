package graph

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/bitfantasy/sheetform/internal/sheet"
)

// DefaultBaseURL Graph API 基础地址
const DefaultBaseURL = "https://graph.microsoft.com/v1.0"

// =============================================================================
// Client Graph API 基础客户端
// 提供通用HTTP请求和工作簿地址解析，令牌由注入的 TokenProvider 提供
// =============================================================================

// Options 客户端配置
type Options struct {
	BaseURL  string
	Timeout  time.Duration
	Tokens   TokenProvider
	Cache    redis.Cmdable // 可为nil，nil时不缓存地址解析结果
	CacheTTL time.Duration
	Logger   *zap.Logger
}

// Client Graph客户端
type Client struct {
	baseURL    string
	httpClient *http.Client
	tokens     TokenProvider
	cache      redis.Cmdable
	cacheTTL   time.Duration
	logger     *zap.Logger
}

// NewClient 创建Graph客户端实例
func NewClient(opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = time.Hour
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Client{
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		httpClient: &http.Client{Timeout: opts.Timeout},
		tokens:     opts.Tokens,
		cache:      opts.Cache,
		cacheTTL:   opts.CacheTTL,
		logger:     opts.Logger,
	}
}

// Session 一次抽取运行的会话，持有本次获取的令牌，运行结束即丢弃
type Session struct {
	c     *Client
	token string
}

// Session 获取令牌并开启会话
func (c *Client) Session(ctx context.Context) (*Session, error) {
	if c.tokens == nil {
		return nil, sheet.Upstream("token", fmt.Errorf("no token provider configured"))
	}
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, sheet.Upstream("token", err)
	}
	return &Session{c: c, token: token}, nil
}

// StatusError 非成功HTTP状态
type StatusError struct {
	Status  int
	Code    string
	Message string
	Path    string
}

func (e *StatusError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("graph API error[%d %s]: %s (path=%s)", e.Status, e.Code, e.Message, e.Path)
	}
	return fmt.Sprintf("graph API error[%d] (path=%s)", e.Status, e.Path)
}

// IsStatus reports whether err carries the given HTTP status.
func IsStatus(err error, status int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Status == status
}

// url 拼接完整地址，path 可以是绝对地址
func (c *Client) url(path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	return c.baseURL + path
}

// doRequest 执行Graph API请求
// 404 映射为 sheet.NotFound，其他非2xx状态和传输错误映射为 sheet.UpstreamUnavailable
// result 为nil时丢弃响应体
func (s *Session) doRequest(ctx context.Context, op, method, path string, body, result any) error {
	data, err := s.do(ctx, op, method, path, body)
	if err != nil {
		return err
	}
	if result == nil {
		return nil
	}
	if err := json.Unmarshal(data, result); err != nil {
		return sheet.Upstream(op, fmt.Errorf("解析响应体失败: %w", err))
	}
	return nil
}

func (s *Session) do(ctx context.Context, op, method, path string, body any) ([]byte, error) {
	var bodyReader io.Reader
	if body != nil {
		bodyBytes, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("序列化请求体失败: %w", err)
		}
		bodyReader = bytes.NewReader(bodyBytes)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.c.url(path), bodyReader)
	if err != nil {
		return nil, fmt.Errorf("创建HTTP请求失败: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json; charset=utf-8")
	}

	resp, err := s.c.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, sheet.Upstream(op, fmt.Errorf("HTTP请求失败: %w", err))
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, sheet.Upstream(op, fmt.Errorf("读取响应体失败: %w", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		se := &StatusError{Status: resp.StatusCode, Path: path}
		var er ErrorResponse
		if json.Unmarshal(respBody, &er) == nil {
			se.Code, se.Message = er.Error.Code, er.Error.Message
		}
		if resp.StatusCode == http.StatusNotFound {
			return nil, sheet.NewError(sheet.NotFound, op, "", se)
		}
		return nil, sheet.Upstream(op, se)
	}
	return respBody, nil
}
