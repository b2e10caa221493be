package handler

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/user/filmdiary/internal/config"
	"github.com/user/filmdiary/internal/logging"
	"github.com/user/filmdiary/internal/model"
	"github.com/user/filmdiary/internal/service"
	"github.com/user/filmdiary/internal/utils"
)

// listingCacheTTL TMDB 列表、搜索结果的缓存时间
const listingCacheTTL = 10 * time.Minute

// Handler HTTP 处理器
type Handler struct {
	Store    *service.DiaryStore
	TMDB     *service.TMDBClient
	Enricher *service.Enricher
	Cache    *utils.ResponseCache
	Config   *config.Config
	log      zerolog.Logger
}

// NewHandler 创建处理器
func NewHandler(store *service.DiaryStore, cfg *config.Config) *Handler {
	log := logging.Component("handler")
	if err := RegisterValidators(); err != nil {
		log.Error().Err(err).Msg("注册校验规则失败")
	}

	tmdb := service.NewTMDBClient(cfg)
	return &Handler{
		Store:    store,
		TMDB:     tmdb,
		Enricher: service.NewEnricher(tmdb, cfg.TMDBRateLimit),
		Cache:    utils.NewResponseCache(listingCacheTTL),
		Config:   cfg,
		log:      log,
	}
}

// RenderData 统一封装公共渲染数据
func (h *Handler) RenderData(c *gin.Context, data gin.H) gin.H {
	res := gin.H{
		"SiteName":   h.Config.SiteName,
		"SiteUrl":    h.Config.SiteUrl,
		"Path":       c.Request.URL.Path,
		"ActiveMenu": h.getActiveMenu(c.Request.URL.Path),
		"Loaded":     h.Store.Loaded(),
	}

	// 一次性提示
	session := sessions.Default(c)
	success := session.Flashes(flashSuccess)
	failure := session.Flashes(flashError)
	if len(success) > 0 || len(failure) > 0 {
		res["FlashSuccess"] = success
		res["FlashError"] = failure
		if err := session.Save(); err != nil {
			h.log.Warn().Err(err).Msg("保存 session 失败")
		}
	}

	for k, v := range data {
		res[k] = v
	}
	return res
}

// getActiveMenu 根据路径判断当前高亮菜单
func (h *Handler) getActiveMenu(path string) string {
	switch {
	case path == "/":
		return "diary"
	case path == "/dashboard":
		return "dashboard"
	case strings.HasPrefix(path, "/lists"):
		return "lists"
	case path == "/map":
		return "map"
	case path == "/search", strings.HasPrefix(path, "/movie/"):
		return "search"
	default:
		return ""
	}
}

const (
	flashSuccess = "flash_success"
	flashError   = "flash_error"
)

// flash 写入一次性提示并重定向
func (h *Handler) flash(c *gin.Context, key, message, target string) {
	session := sessions.Default(c)
	session.AddFlash(message, key)
	if err := session.Save(); err != nil {
		h.log.Warn().Err(err).Msg("保存 session 失败")
	}
	c.Redirect(http.StatusSeeOther, target)
}

// flashResult 根据写操作结果给出提示
func (h *Handler) flashResult(c *gin.Context, err error, ok, target string) {
	if err != nil {
		h.flash(c, flashError, storeErrorMessage(err), target)
		return
	}
	h.flash(c, flashSuccess, ok, target)
}

// ==================== 页面 ====================

// Diary 首页：观影日记
func (h *Handler) Diary(c *gin.Context) {
	doc := h.Store.Snapshot()

	c.HTML(http.StatusOK, "diary.html", h.RenderData(c, gin.H{
		"Title": "观影日记 - " + h.Config.SiteName,
		"Rows":  service.BuildDiary(doc.Watchlist),
	}))
}

// Dashboard 统计面板
func (h *Handler) Dashboard(c *gin.Context) {
	doc := h.Store.Snapshot()
	stats := h.stats(c.Request.Context(), doc.Watchlist)

	c.HTML(http.StatusOK, "dashboard.html", h.RenderData(c, gin.H{
		"Title":   "统计 - " + h.Config.SiteName,
		"Stats":   stats,
		"Ratings": recentRatings(doc.Ratings),
	}))
}

// Lists 片单浏览
func (h *Handler) Lists(c *gin.Context) {
	doc := h.Store.Snapshot()
	data := gin.H{
		"Title":     "片单 - " + h.Config.SiteName,
		"Summaries": service.SummarizeLists(doc.CustomLists),
	}

	if name := c.Query("name"); name != "" {
		list, ok := doc.CustomLists[name]
		if !ok {
			h.NotFound(c)
			return
		}
		data["Selected"] = name
		data["SelectedList"] = list
	}

	c.HTML(http.StatusOK, "lists.html", h.RenderData(c, data))
}

// Map 取景地地图
func (h *Handler) Map(c *gin.Context) {
	c.HTML(http.StatusOK, "map.html", h.RenderData(c, gin.H{
		"Title":     "取景地 - " + h.Config.SiteName,
		"Locations": service.Locations(),
	}))
}

// Movie 电影详情页
func (h *Handler) Movie(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		h.NotFound(c)
		return
	}

	doc := h.Store.Snapshot()
	data := gin.H{
		"MovieID":   id,
		"ListNames": listNames(doc.CustomLists),
		"InLists":   listsContaining(doc.CustomLists, id),
		"Today":     model.NewDate(time.Now()).String(),
	}
	if rec, ok := doc.Ratings[strconv.Itoa(id)]; ok {
		data["Rating"] = rec
	}
	if i := doc.EntryIndex(id); i >= 0 {
		data["Entry"] = doc.Watchlist[i]
	}

	if !h.TMDB.Configured() {
		data["Title"] = "电影 - " + h.Config.SiteName
		data["Error"] = "未配置 TMDB_API_KEY，无法获取电影信息"
		c.HTML(http.StatusOK, "movie.html", h.RenderData(c, data))
		return
	}

	details, err := h.Enricher.Details(c.Request.Context(), id)
	if err != nil {
		var apiErr *service.APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
			h.NotFound(c)
			return
		}
		h.log.Warn().Err(err).Int("movie_id", id).Msg("获取电影详情失败")
		data["Title"] = "电影 - " + h.Config.SiteName
		data["Error"] = "TMDB 暂时不可用"
		c.HTML(http.StatusBadGateway, "movie.html", h.RenderData(c, data))
		return
	}

	data["Title"] = details.Title + " - " + h.Config.SiteName
	data["Movie"] = details
	c.HTML(http.StatusOK, "movie.html", h.RenderData(c, data))
}

// Search 搜索页
func (h *Handler) Search(c *gin.Context) {
	query := strings.TrimSpace(c.Query("q"))
	page := pageParam(c)
	data := gin.H{
		"Title": "搜索 - " + h.Config.SiteName,
		"Query": query,
	}

	if query != "" {
		if !h.TMDB.Configured() {
			data["Error"] = "未配置 TMDB_API_KEY，无法搜索"
		} else if results, err := h.search(c.Request.Context(), query, page); err != nil {
			h.log.Warn().Err(err).Str("query", query).Msg("搜索失败")
			data["Error"] = "TMDB 暂时不可用"
		} else {
			data["Results"] = results
			data["NextPage"] = nextPage(results)
		}
	}

	c.HTML(http.StatusOK, "search.html", h.RenderData(c, data))
}

// NotFound 404 页面，/api 下返回 JSON
func (h *Handler) NotFound(c *gin.Context) {
	if strings.HasPrefix(c.Request.URL.Path, "/api/") {
		utils.NotFound(c, "")
		return
	}
	c.HTML(http.StatusNotFound, "404.html", h.RenderData(c, gin.H{
		"Title": "404 - " + h.Config.SiteName,
	}))
}

// ==================== 页面表单 ====================

type rateForm struct {
	Rating *float64 `form:"rating" binding:"required,halfstar"`
	Title  string   `form:"title" binding:"max=300"`
	Review string   `form:"review" binding:"max=2000"`
}

// RateMovie 评分表单
func (h *Handler) RateMovie(c *gin.Context) {
	id := c.Param("id")
	target := "/movie/" + url.PathEscape(id)

	var form rateForm
	if err := c.ShouldBind(&form); err != nil {
		h.flash(c, flashError, "评分必须在 0-5 之间，步长 0.5", target)
		return
	}

	err := h.Store.Rate(c.Request.Context(), id, *form.Rating, form.Title, form.Review)
	h.flashResult(c, err, "评分已保存", target)
}

// UnrateMovie 删除评分
func (h *Handler) UnrateMovie(c *gin.Context) {
	id := c.Param("id")
	err := h.Store.Unrate(c.Request.Context(), id)
	h.flashResult(c, err, "评分已删除", "/movie/"+url.PathEscape(id))
}

type logForm struct {
	Title       string   `form:"title" binding:"required,max=300"`
	Year        int      `form:"year" binding:"gte=0"`
	PosterPath  string   `form:"poster_path"`
	Rating      float64  `form:"rating" binding:"halfstar"`
	Liked       bool     `form:"liked"`
	WatchedDate string   `form:"watched_date" binding:"required"`
	Runtime     int      `form:"runtime" binding:"gte=0"`
	Genres      []string `form:"genres"`
}

// LogMovie 记录观影
func (h *Handler) LogMovie(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		h.NotFound(c)
		return
	}
	target := "/movie/" + strconv.Itoa(id)

	var form logForm
	if err := c.ShouldBind(&form); err != nil {
		h.flash(c, flashError, "请填写标题和观看日期，评分为 0-5 的半星", target)
		return
	}
	watched, err := model.ParseDate(form.WatchedDate)
	if err != nil {
		h.flash(c, flashError, "观看日期格式应为 YYYY-MM-DD", target)
		return
	}

	err = h.Store.LogEntry(c.Request.Context(), model.DiaryEntry{
		ID:          id,
		Title:       form.Title,
		Year:        form.Year,
		PosterPath:  form.PosterPath,
		Rating:      form.Rating,
		Liked:       form.Liked,
		WatchedDate: watched,
		Runtime:     form.Runtime,
		Genres:      form.Genres,
	})
	h.flashResult(c, err, "已记录到日记", target)
}

// RemoveDiaryEntryForm 从日记删除
func (h *Handler) RemoveDiaryEntryForm(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		h.flash(c, flashError, "无效的电影 ID", "/")
		return
	}
	err = h.Store.RemoveEntry(c.Request.Context(), id)
	h.flashResult(c, err, "已从日记删除", "/")
}

type addToListForm struct {
	List        string  `form:"list"`
	NewList     string  `form:"new_list" binding:"max=100"`
	Title       string  `form:"title"`
	PosterPath  string  `form:"poster_path"`
	ReleaseDate string  `form:"release_date"`
	VoteAverage float64 `form:"vote_average"`
}

// AddMovieToList 加入片单表单；填写了新片单名时先创建再加入
func (h *Handler) AddMovieToList(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		h.NotFound(c)
		return
	}
	target := "/movie/" + strconv.Itoa(id)

	var form addToListForm
	if err := c.ShouldBind(&form); err != nil {
		h.flash(c, flashError, "片单名称过长", target)
		return
	}
	name := form.List
	if strings.TrimSpace(form.NewList) != "" {
		name = form.NewList
	}
	if strings.TrimSpace(name) == "" {
		h.flash(c, flashError, "请选择或新建一个片单", target)
		return
	}

	err = h.Store.AddToList(c.Request.Context(), name, model.Movie{
		ID:          id,
		Title:       form.Title,
		PosterPath:  form.PosterPath,
		ReleaseDate: form.ReleaseDate,
		VoteAverage: form.VoteAverage,
	})
	h.flashResult(c, err, "已加入片单「"+name+"」", target)
}

type createListForm struct {
	Name        string `form:"name" binding:"max=100"`
	Description string `form:"description" binding:"max=500"`
}

// CreateListForm 新建片单
func (h *Handler) CreateListForm(c *gin.Context) {
	var form createListForm
	if err := c.ShouldBind(&form); err != nil {
		h.flash(c, flashError, "片单名称或描述过长", "/lists")
		return
	}
	name := form.Name
	if strings.TrimSpace(name) == "" {
		h.flash(c, flashError, "片单名称不能为空", "/lists")
		return
	}

	err := h.Store.CreateList(c.Request.Context(), name, strings.TrimSpace(form.Description))
	h.flashResult(c, err, "片单已创建", "/lists?name="+url.QueryEscape(name))
}

// DeleteListForm 删除片单
func (h *Handler) DeleteListForm(c *gin.Context) {
	err := h.Store.DeleteList(c.Request.Context(), c.Param("name"))
	h.flashResult(c, err, "片单已删除", "/lists")
}

// RemoveListMovieForm 从片单移除电影
func (h *Handler) RemoveListMovieForm(c *gin.Context) {
	name := c.Param("name")
	target := "/lists?name=" + url.QueryEscape(name)

	id, err := strconv.Atoi(c.Param("movieId"))
	if err != nil {
		h.flash(c, flashError, "无效的电影 ID", target)
		return
	}
	err = h.Store.RemoveFromList(c.Request.Context(), name, id)
	h.flashResult(c, err, "已从片单移除", target)
}

// ==================== 辅助 ====================

// stats 仪表盘统计；配置了 TMDB 时先补全缺失的时长和类型
func (h *Handler) stats(ctx context.Context, entries []model.DiaryEntry) model.Stats {
	if h.TMDB.Configured() {
		entries = h.Enricher.Enrich(ctx, entries)
	}
	return service.ComputeStats(entries)
}

// search 带缓存的 TMDB 搜索
func (h *Handler) search(ctx context.Context, query string, page int) (*model.Page, error) {
	key := "search:" + strings.ToLower(query) + ":" + strconv.Itoa(page)
	return h.cachedPage(key, func() (*model.Page, error) {
		return h.TMDB.Search(ctx, query, page)
	})
}

// cachedPage 命中缓存直接返回，否则请求 TMDB 并缓存
func (h *Handler) cachedPage(key string, load func() (*model.Page, error)) (*model.Page, error) {
	v, err := h.Cache.Remember(key, func() (any, error) {
		return load()
	})
	if err != nil {
		return nil, err
	}
	return v.(*model.Page), nil
}

// RatingRow 仪表盘评分列表
type RatingRow struct {
	MovieID string
	model.RatingRecord
}

// recentRatings 按观看日期倒序
func recentRatings(ratings map[string]model.RatingRecord) []RatingRow {
	rows := make([]RatingRow, 0, len(ratings))
	for id, r := range ratings {
		rows = append(rows, RatingRow{MovieID: id, RatingRecord: r})
	}
	sort.Slice(rows, func(i, j int) bool {
		if !rows[i].WatchDate.Equal(rows[j].WatchDate.Time) {
			return rows[j].WatchDate.Before(rows[i].WatchDate)
		}
		return rows[i].MovieID < rows[j].MovieID
	})
	return rows
}

func listNames(lists map[string]model.MovieList) []string {
	names := make([]string, 0, len(lists))
	for name := range lists {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func listsContaining(lists map[string]model.MovieList, movieID int) map[string]bool {
	in := make(map[string]bool)
	for name, list := range lists {
		if list.Contains(movieID) {
			in[name] = true
		}
	}
	return in
}

func pageParam(c *gin.Context) int {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		return 1
	}
	return page
}

func nextPage(p *model.Page) int {
	if p == nil || p.Page >= p.TotalPages {
		return 0
	}
	return p.Page + 1
}

// storeErrorMessage 写操作错误对应的提示
func storeErrorMessage(err error) string {
	switch {
	case errors.Is(err, service.ErrNotLoaded):
		return "用户数据暂时不可读，已停止写入"
	case errors.Is(err, service.ErrInvalidRating):
		return "评分必须在 0-5 之间，步长 0.5"
	case errors.Is(err, service.ErrEmptyMovieID):
		return "缺少电影 ID"
	case errors.Is(err, service.ErrMissingWatchDate):
		return "缺少观看日期"
	default:
		return "保存失败"
	}
}
