package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultAuthorityURL 默认认证地址
const DefaultAuthorityURL = "https://login.microsoftonline.com"

// TokenProvider 提供 Graph 访问令牌
type TokenProvider interface {
	Token(ctx context.Context) (string, error)
}

// StaticToken 固定令牌，用于CLI和测试
type StaticToken string

// Token implements TokenProvider.
func (t StaticToken) Token(context.Context) (string, error) {
	if t == "" {
		return "", fmt.Errorf("empty static token")
	}
	return string(t), nil
}

// ClientCredentials 应用凭据（client credentials grant）
// 每次调用都请求新令牌，由 Session 在一次运行内复用
type ClientCredentials struct {
	AuthorityURL string
	TenantID     string
	ClientID     string
	ClientSecret string
	Scope        string
	HTTPClient   *http.Client
}

// Token 获取应用访问令牌
func (c *ClientCredentials) Token(ctx context.Context) (string, error) {
	authority := c.AuthorityURL
	if authority == "" {
		authority = DefaultAuthorityURL
	}
	scope := c.Scope
	if scope == "" {
		scope = "https://graph.microsoft.com/.default"
	}
	httpClient := c.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}

	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("client_id", c.ClientID)
	form.Set("client_secret", c.ClientSecret)
	form.Set("scope", scope)

	endpoint := fmt.Sprintf("%s/%s/oauth2/v2.0/token", strings.TrimRight(authority, "/"), c.TenantID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("创建token请求失败: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("请求token失败: %w", err)
	}
	defer resp.Body.Close()

	var result struct {
		AccessToken      string `json:"access_token"`
		ExpiresIn        int    `json:"expires_in"`
		Error            string `json:"error"`
		ErrorDescription string `json:"error_description"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("解析token响应失败: %w", err)
	}
	if result.AccessToken == "" {
		return "", fmt.Errorf("token错误[%d %s]: %s", resp.StatusCode, result.Error, result.ErrorDescription)
	}
	return result.AccessToken, nil
}
