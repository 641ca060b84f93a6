package graph

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"strings"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/bitfantasy/sheetform/internal/sheet"
)

// ErrInvalidURL SharePoint地址无法解析
var ErrInvalidURL = errors.New("invalid sharepoint url")

const cacheKeyPrefix = "sheetform:graph:item:"

// libraryNames 默认文档库在URL中的名字
var libraryNames = map[string]bool{
	"shared documents": true,
	"documents":        true,
}

// Location 解析后的SharePoint文件位置
type Location struct {
	Host     string
	SitePath string // sites/<name>
	FilePath string // 文档库内的相对路径
}

// FileName 文件名
func (l Location) FileName() string {
	return path.Base(l.FilePath)
}

// ParseURL 解析 https://host/sites/<site>/<library>/<path> 形式的地址
// 也接受 _layouts/.../Doc.aspx?file=<name> 形式，此时只知道文件名
func ParseURL(raw string) (Location, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" {
		return Location{}, fmt.Errorf("%w: %q", ErrInvalidURL, raw)
	}
	segs := strings.FieldsFunc(u.Path, func(r rune) bool { return r == '/' })
	idx := -1
	for i, s := range segs {
		if (s == "sites" || s == "teams") && i+1 < len(segs) {
			idx = i
			break
		}
	}
	if idx < 0 {
		return Location{}, fmt.Errorf("%w: no site in %q", ErrInvalidURL, raw)
	}
	loc := Location{Host: u.Host, SitePath: segs[idx] + "/" + segs[idx+1]}

	rest := segs[idx+2:]
	if len(rest) > 0 && rest[0] == "_layouts" {
		loc.FilePath = u.Query().Get("file")
	} else {
		if len(rest) > 0 && libraryNames[strings.ToLower(rest[0])] {
			rest = rest[1:]
		}
		loc.FilePath = strings.Join(rest, "/")
	}
	if loc.FilePath == "" {
		return Location{}, fmt.Errorf("%w: no file in %q", ErrInvalidURL, raw)
	}
	return loc, nil
}

// Item 已解析的文档库条目，Path 可直接拼接 /workbook 或 /content
type Item struct {
	Path   string
	Cached bool // 来自Redis缓存，文件移动后可能已失效
}

// Workbook 工作簿地址
func (i Item) Workbook() string {
	return i.Path + "/workbook"
}

// Worksheet 工作表地址
func (i Item) Worksheet(name string) string {
	return fmt.Sprintf("%s/worksheets('%s')", i.Workbook(), escapeName(name))
}

// Content 文件下载地址
func (i Item) Content() string {
	return i.Path + "/content"
}

func escapeName(name string) string {
	return url.PathEscape(strings.ReplaceAll(name, "'", "''"))
}

func escapePath(p string) string {
	parts := strings.Split(p, "/")
	for i, s := range parts {
		parts[i] = url.PathEscape(s)
	}
	return strings.Join(parts, "/")
}

// Resolve 将SharePoint地址解析为文档库条目
// 依次尝试：默认文档库根路径、documents 文档库路径、按文件名搜索；成功的结果写入Redis缓存
func (s *Session) Resolve(ctx context.Context, rawURL string) (Item, error) {
	loc, err := ParseURL(rawURL)
	if err != nil {
		return Item{}, err
	}
	if p := s.c.cacheGet(ctx, rawURL); p != "" {
		return Item{Path: p, Cached: true}, nil
	}

	var site Site
	sitePath := fmt.Sprintf("/sites/%s:/%s", loc.Host, escapePath(loc.SitePath))
	if err := s.doRequest(ctx, "resolve_site", http.MethodGet, sitePath, nil, &site); err != nil {
		if ctx.Err() != nil {
			return Item{}, ctx.Err()
		}
		return Item{}, sheet.Upstream("resolve_site", err)
	}

	candidates := []string{
		fmt.Sprintf("/sites/%s/drive/root:/%s:", site.ID, escapePath(loc.FilePath)),
		fmt.Sprintf("/sites/%s/drives/documents/root:/%s:", site.ID, escapePath(loc.FilePath)),
	}
	for _, cand := range candidates {
		var item DriveItem
		err := s.doRequest(ctx, "resolve_item", http.MethodGet, cand, nil, &item)
		if err == nil {
			return s.remember(ctx, rawURL, Item{Path: cand}), nil
		}
		if ctx.Err() != nil {
			return Item{}, ctx.Err()
		}
		s.c.logger.Debug("workbook path candidate failed", zap.String("path", cand), zap.Error(err))
	}

	item, err := s.search(ctx, site.ID, loc.FileName())
	if err != nil {
		if ctx.Err() != nil {
			return Item{}, ctx.Err()
		}
		return Item{}, sheet.Upstream("resolve_item", err)
	}
	return s.remember(ctx, rawURL, item), nil
}

func (s *Session) search(ctx context.Context, siteID, name string) (Item, error) {
	q := strings.ReplaceAll(name, "'", "''")
	searchPath := fmt.Sprintf("/sites/%s/drive/root/search(q='%s')", siteID, url.PathEscape(q))
	var res collection[DriveItem]
	if err := s.doRequest(ctx, "search_item", http.MethodGet, searchPath, nil, &res); err != nil {
		return Item{}, err
	}
	for _, it := range res.Value {
		if sheet.EqualFold(it.Name, name) {
			return Item{Path: fmt.Sprintf("/sites/%s/drive/items/%s", siteID, it.ID)}, nil
		}
	}
	return Item{}, fmt.Errorf("file %q not found on site", name)
}

func (s *Session) remember(ctx context.Context, rawURL string, item Item) Item {
	if s.c.cache != nil {
		if err := s.c.cache.Set(ctx, cacheKeyPrefix+rawURL, item.Path, s.c.cacheTTL).Err(); err != nil {
			s.c.logger.Warn("cache workbook path failed", zap.Error(err))
		}
	}
	return item
}

func (c *Client) cacheGet(ctx context.Context, rawURL string) string {
	if c.cache == nil {
		return ""
	}
	p, err := c.cache.Get(ctx, cacheKeyPrefix+rawURL).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("read cached workbook path failed", zap.Error(err))
		}
		return ""
	}
	return p
}

// Forget 删除缓存的解析结果，缓存地址返回404时调用
func (c *Client) Forget(ctx context.Context, rawURL string) error {
	if c.cache == nil {
		return nil
	}
	return c.cache.Del(ctx, cacheKeyPrefix+rawURL).Err()
}
