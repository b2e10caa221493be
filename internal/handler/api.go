package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/user/filmdiary/internal/model"
	"github.com/user/filmdiary/internal/service"
	"github.com/user/filmdiary/internal/utils"
)

// ==================== 用户文档 ====================

// GetDocument 整份用户文档
func (h *Handler) GetDocument(c *gin.Context) {
	utils.Success(c, h.Store.Snapshot())
}

// ListDiary 日记表格数据（已排序、已分组）
func (h *Handler) ListDiary(c *gin.Context) {
	utils.Success(c, service.BuildDiary(h.Store.Snapshot().Watchlist))
}

type diaryEntryRequest struct {
	ID          int      `json:"id" binding:"required,gt=0"`
	Title       string   `json:"title" binding:"required,max=300"`
	Year        int      `json:"year" binding:"gte=0"`
	PosterPath  string   `json:"poster_path"`
	Rating      float64  `json:"rating" binding:"halfstar"`
	Liked       bool     `json:"liked"`
	WatchedDate string   `json:"watchedDate" binding:"required"`
	Runtime     int      `json:"runtime" binding:"gte=0"`
	Genres      []string `json:"genres"`
}

// CreateDiaryEntry 记录一次观影
func (h *Handler) CreateDiaryEntry(c *gin.Context) {
	var req diaryEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, "无效的请求数据")
		return
	}
	watched, err := model.ParseDate(req.WatchedDate)
	if err != nil {
		utils.BadRequest(c, "watchedDate 格式应为 YYYY-MM-DD")
		return
	}

	entry := model.DiaryEntry{
		ID:          req.ID,
		Title:       req.Title,
		Year:        req.Year,
		PosterPath:  req.PosterPath,
		Rating:      req.Rating,
		Liked:       req.Liked,
		WatchedDate: watched,
		Runtime:     req.Runtime,
		Genres:      req.Genres,
	}
	if err := h.Store.LogEntry(c.Request.Context(), entry); err != nil {
		h.storeError(c, err)
		return
	}
	utils.Success(c, entry)
}

// DeleteDiaryEntry 删除日记条目
func (h *Handler) DeleteDiaryEntry(c *gin.Context) {
	id, ok := intParam(c, "id")
	if !ok {
		return
	}
	if err := h.Store.RemoveEntry(c.Request.Context(), id); err != nil {
		h.storeError(c, err)
		return
	}
	utils.Success(c, nil)
}

// GetStats 仪表盘统计
func (h *Handler) GetStats(c *gin.Context) {
	utils.Success(c, h.stats(c.Request.Context(), h.Store.Snapshot().Watchlist))
}

// ==================== 评分 ====================

// ListRatings 全部评分
func (h *Handler) ListRatings(c *gin.Context) {
	utils.Success(c, h.Store.Ratings())
}

type rateRequest struct {
	Rating     *float64 `json:"rating" binding:"required,halfstar"`
	MovieTitle string   `json:"movieTitle" binding:"max=300"`
	Review     string   `json:"review" binding:"max=2000"`
}

// PutRating 新增或覆盖评分
func (h *Handler) PutRating(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))

	var req rateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, "评分必须在 0-5 之间，步长 0.5")
		return
	}
	if err := h.Store.Rate(c.Request.Context(), id, *req.Rating, req.MovieTitle, req.Review); err != nil {
		h.storeError(c, err)
		return
	}
	utils.Success(c, h.Store.Ratings()[id])
}

// DeleteRating 删除评分
func (h *Handler) DeleteRating(c *gin.Context) {
	if err := h.Store.Unrate(c.Request.Context(), c.Param("id")); err != nil {
		h.storeError(c, err)
		return
	}
	utils.Success(c, nil)
}

// ==================== 片单 ====================

// ListLists 全部片单及其摘要
func (h *Handler) ListLists(c *gin.Context) {
	lists := h.Store.Lists()
	utils.Success(c, gin.H{
		"lists":     lists,
		"summaries": service.SummarizeLists(lists),
	})
}

type createListRequest struct {
	Name        string `json:"name" binding:"max=100"`
	Description string `json:"description" binding:"max=500"`
}

// CreateList 新建片单，同名覆盖
func (h *Handler) CreateList(c *gin.Context) {
	var req createListRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, "无效的请求数据")
		return
	}
	name := req.Name
	if strings.TrimSpace(name) == "" {
		utils.BadRequest(c, "片单名称不能为空")
		return
	}
	if err := h.Store.CreateList(c.Request.Context(), name, req.Description); err != nil {
		h.storeError(c, err)
		return
	}
	utils.SuccessWithMessage(c, "片单已创建", h.Store.Lists()[name])
}

// DeleteList 删除片单
func (h *Handler) DeleteList(c *gin.Context) {
	if err := h.Store.DeleteList(c.Request.Context(), c.Param("name")); err != nil {
		h.storeError(c, err)
		return
	}
	utils.SuccessWithMessage(c, "片单已删除", nil)
}

type movieRequest struct {
	ID          int     `json:"id" binding:"required,gt=0"`
	Title       string  `json:"title"`
	PosterPath  string  `json:"poster_path"`
	ReleaseDate string  `json:"release_date"`
	VoteAverage float64 `json:"vote_average"`
}

func (r movieRequest) toMovie() model.Movie {
	return model.Movie{
		ID:          r.ID,
		Title:       r.Title,
		PosterPath:  r.PosterPath,
		ReleaseDate: r.ReleaseDate,
		VoteAverage: r.VoteAverage,
	}
}

// AddListMovie 加入片单，已存在时不变
func (h *Handler) AddListMovie(c *gin.Context) {
	name := c.Param("name")

	var req movieRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, "无效的电影数据")
		return
	}
	if err := h.Store.AddToList(c.Request.Context(), name, req.toMovie()); err != nil {
		h.storeError(c, err)
		return
	}
	utils.Success(c, h.Store.Lists()[name])
}

// RemoveListMovie 从片单移除
func (h *Handler) RemoveListMovie(c *gin.Context) {
	id, ok := intParam(c, "movieId")
	if !ok {
		return
	}
	if err := h.Store.RemoveFromList(c.Request.Context(), c.Param("name"), id); err != nil {
		h.storeError(c, err)
		return
	}
	utils.Success(c, nil)
}

// OpenListModal 通知已打开的页面为该电影弹出“加入片单”
func (h *Handler) OpenListModal(c *gin.Context) {
	var req movieRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, "无效的电影数据")
		return
	}
	delivered := h.Store.RequestListModal(req.toMovie())
	utils.Success(c, gin.H{"delivered": delivered})
}

// ==================== 地图 ====================

// GetLocations 取景地
func (h *Handler) GetLocations(c *gin.Context) {
	utils.Success(c, service.Locations())
}

// ==================== TMDB ====================

// GetMovies 分类列表：popular、top_rated、now_playing、upcoming
func (h *Handler) GetMovies(c *gin.Context) {
	category := c.Param("category")
	if _, ok := service.ListingCategories[category]; !ok {
		utils.BadRequest(c, "未知的分类: "+category)
		return
	}
	if !h.requireTMDB(c) {
		return
	}

	page := pageParam(c)
	ctx := c.Request.Context()
	result, err := h.cachedPage("listing:"+category+":"+strconv.Itoa(page), func() (*model.Page, error) {
		return h.TMDB.Listing(ctx, category, page)
	})
	if err != nil {
		h.tmdbError(c, err)
		return
	}
	utils.Success(c, result)
}

// SearchMovies 按标题搜索
func (h *Handler) SearchMovies(c *gin.Context) {
	query := strings.TrimSpace(c.Query("q"))
	if query == "" {
		utils.BadRequest(c, "搜索关键词不能为空")
		return
	}
	if !h.requireTMDB(c) {
		return
	}

	result, err := h.search(c.Request.Context(), query, pageParam(c))
	if err != nil {
		h.tmdbError(c, err)
		return
	}
	utils.Success(c, result)
}

// GetMovie 电影详情，附带本地评分与所在片单
func (h *Handler) GetMovie(c *gin.Context) {
	id, ok := intParam(c, "id")
	if !ok {
		return
	}
	if !h.requireTMDB(c) {
		return
	}

	details, err := h.Enricher.Details(c.Request.Context(), id)
	if err != nil {
		h.tmdbError(c, err)
		return
	}

	doc := h.Store.Snapshot()
	data := gin.H{
		"movie":   details,
		"rating":  nil,
		"inLists": inListNames(doc.CustomLists, id),
	}
	if rec, ok := doc.Ratings[strconv.Itoa(id)]; ok {
		data["rating"] = rec
	}
	utils.Success(c, data)
}

// GetGenreMovies 按类型发现
func (h *Handler) GetGenreMovies(c *gin.Context) {
	genreID, ok := intParam(c, "id")
	if !ok {
		return
	}
	if !h.requireTMDB(c) {
		return
	}

	page := pageParam(c)
	ctx := c.Request.Context()
	result, err := h.cachedPage("genre:"+strconv.Itoa(genreID)+":"+strconv.Itoa(page), func() (*model.Page, error) {
		return h.TMDB.ByGenre(ctx, genreID, page)
	})
	if err != nil {
		h.tmdbError(c, err)
		return
	}
	utils.Success(c, result)
}

// ==================== 错误映射 ====================

func (h *Handler) storeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrNotLoaded):
		utils.ServiceUnavailable(c, storeErrorMessage(err))
	case errors.Is(err, service.ErrInvalidRating),
		errors.Is(err, service.ErrEmptyMovieID),
		errors.Is(err, service.ErrMissingWatchDate):
		utils.BadRequest(c, storeErrorMessage(err))
	default:
		h.log.Error().Err(err).Str("path", c.Request.URL.Path).Msg("写入用户文档失败")
		utils.InternalServerError(c, "")
	}
}

func (h *Handler) tmdbError(c *gin.Context, err error) {
	var apiErr *service.APIError
	if errors.As(err, &apiErr) {
		if apiErr.StatusCode == http.StatusNotFound {
			utils.NotFound(c, "电影不存在")
			return
		}
		utils.BadGateway(c, apiErr.Error())
		return
	}
	h.log.Warn().Err(err).Str("path", c.Request.URL.Path).Msg("TMDB 请求失败")
	utils.BadGateway(c, "TMDB 请求失败")
}

func (h *Handler) requireTMDB(c *gin.Context) bool {
	if h.TMDB.Configured() {
		return true
	}
	utils.ServiceUnavailable(c, "未配置 TMDB_API_KEY")
	return false
}

func intParam(c *gin.Context, name string) (int, bool) {
	id, err := strconv.Atoi(c.Param(name))
	if err != nil || id <= 0 {
		utils.BadRequest(c, "无效的 "+name)
		return 0, false
	}
	return id, true
}

func inListNames(lists map[string]model.MovieList, movieID int) []string {
	names := make([]string, 0)
	for _, name := range listNames(lists) {
		if lists[name].Contains(movieID) {
			names = append(names, name)
		}
	}
	return names
}
