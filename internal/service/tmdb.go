package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/user/filmdiary/internal/config"
	"github.com/user/filmdiary/internal/model"
	"github.com/user/filmdiary/internal/utils"
)

const (
	// ImageBaseURL TMDB 图片服务
	ImageBaseURL = "https://image.tmdb.org/t/p"
	// PlaceholderImage 没有海报时使用
	PlaceholderImage = "/placeholder-movie.jpg"
)

// ImageSizes TMDB 支持的图片尺寸
var ImageSizes = []string{"w92", "w154", "w200", "w300", "w500", "original"}

// 常用类型 ID
const (
	GenreAction      = 28
	GenreAdventure   = 12
	GenreAnimation   = 16
	GenreComedy      = 35
	GenreCrime       = 80
	GenreDocumentary = 99
	GenreDrama       = 18
	GenreFamily      = 10751
	GenreFantasy     = 14
	GenreHistory     = 36
	GenreHorror      = 27
	GenreMusic       = 10402
	GenreMystery     = 9648
	GenreRomance     = 10749
	GenreSciFi       = 878
	GenreThriller    = 53
	GenreWar         = 10752
	GenreWestern     = 37
)

// ListingCategories 电影列表分类与对应接口
var ListingCategories = map[string]string{
	"popular":     "/movie/popular",
	"top_rated":   "/movie/top_rated",
	"now_playing": "/movie/now_playing",
	"upcoming":    "/movie/upcoming",
}

// APIError TMDB 返回非 2xx
type APIError struct {
	StatusCode int
}

func (e *APIError) Error() string {
	return fmt.Sprintf("TMDB API Error: %d", e.StatusCode)
}

// ImageURL 拼接图片地址，空路径返回占位图，绝对地址原样返回
func ImageURL(path, size string) string {
	if path == "" {
		return PlaceholderImage
	}
	return PosterURL(path, size)
}

// PosterURL 同 ImageURL，但空路径返回空串（由页面显示“无图”）
func PosterURL(path, size string) string {
	if path == "" {
		return ""
	}
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	if !validSize(size) {
		size = "w500"
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return ImageBaseURL + "/" + size + path
}

func validSize(size string) bool {
	for _, s := range ImageSizes {
		if s == size {
			return true
		}
	}
	return false
}

// TMDBClient TMDB 元数据客户端：无缓存、无重试
type TMDBClient struct {
	http     *utils.HTTPClient
	apiKey   string
	language string
	baseURL  string
}

// NewTMDBClient 创建客户端
func NewTMDBClient(cfg *config.Config) *TMDBClient {
	return &TMDBClient{
		http:     utils.NewHTTPClient(cfg.TMDBTimeout),
		apiKey:   cfg.TMDBAPIKey,
		language: cfg.TMDBLanguage,
		baseURL:  strings.TrimRight(cfg.TMDBBaseURL, "/"),
	}
}

// Configured 是否配置了 API Key
func (c *TMDBClient) Configured() bool {
	return c.apiKey != ""
}

// Popular 热门电影
func (c *TMDBClient) Popular(ctx context.Context, page int) (*model.Page, error) {
	return c.Listing(ctx, "popular", page)
}

// TopRated 高分电影
func (c *TMDBClient) TopRated(ctx context.Context, page int) (*model.Page, error) {
	return c.Listing(ctx, "top_rated", page)
}

// NowPlaying 正在上映
func (c *TMDBClient) NowPlaying(ctx context.Context, page int) (*model.Page, error) {
	return c.Listing(ctx, "now_playing", page)
}

// Upcoming 即将上映
func (c *TMDBClient) Upcoming(ctx context.Context, page int) (*model.Page, error) {
	return c.Listing(ctx, "upcoming", page)
}

// Listing 按分类名获取电影列表
func (c *TMDBClient) Listing(ctx context.Context, category string, page int) (*model.Page, error) {
	endpoint, ok := ListingCategories[category]
	if !ok {
		return nil, fmt.Errorf("unknown listing category: %s", category)
	}
	var result model.Page
	if err := c.fetch(ctx, endpoint, pageParams(page), &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Search 按标题搜索
func (c *TMDBClient) Search(ctx context.Context, query string, page int) (*model.Page, error) {
	params := pageParams(page)
	params.Set("query", query)

	var result model.Page
	if err := c.fetch(ctx, "/search/movie", params, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// MovieDetails 电影详情
func (c *TMDBClient) MovieDetails(ctx context.Context, movieID int) (*model.MovieDetails, error) {
	var result model.MovieDetails
	if err := c.fetch(ctx, "/movie/"+strconv.Itoa(movieID), url.Values{}, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ByGenre 按类型发现电影
func (c *TMDBClient) ByGenre(ctx context.Context, genreID, page int) (*model.Page, error) {
	params := pageParams(page)
	params.Set("with_genres", strconv.Itoa(genreID))

	var result model.Page
	if err := c.fetch(ctx, "/discover/movie", params, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *TMDBClient) fetch(ctx context.Context, endpoint string, params url.Values, target any) error {
	params.Set("api_key", c.apiKey)
	params.Set("language", c.language)

	err := c.http.GetJSON(ctx, c.baseURL+endpoint+"?"+params.Encode(), target)
	var statusErr *utils.StatusError
	if errors.As(err, &statusErr) {
		return &APIError{StatusCode: statusErr.StatusCode}
	}
	return err
}

func pageParams(page int) url.Values {
	if page < 1 {
		page = 1
	}
	return url.Values{"page": {strconv.Itoa(page)}}
}
