package router

import (
	"fmt"
	"html/template"
	"net/http"
	"path/filepath"

	"github.com/gin-contrib/multitemplate"
	"github.com/gin-gonic/gin"
	"github.com/user/filmdiary/internal/handler"
	"github.com/user/filmdiary/internal/middleware"
	"github.com/user/filmdiary/internal/service"
)

// RegisterRoutes 注册所有路由
func RegisterRoutes(r *gin.Engine, h *handler.Handler) {
	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		status := "ok"
		if !h.Store.Loaded() {
			status = "degraded"
		}
		c.JSON(http.StatusOK, gin.H{
			"status":    status,
			"tmdb":      h.TMDB.Configured(),
			"listeners": h.Store.Notifier().Subscribers(),
		})
	})

	writeGuard := middleware.RequireLoaded(h.Store)

	// ==================== 页面 ====================
	r.GET("/", h.Diary)
	r.GET("/dashboard", h.Dashboard)
	r.GET("/lists", h.Lists)
	r.GET("/map", h.Map)
	r.GET("/movie/:id", h.Movie)
	r.GET("/search", h.Search)

	// ==================== 页面表单 ====================
	forms := r.Group("/", writeGuard)
	{
		forms.POST("/movie/:id/rate", h.RateMovie)
		forms.POST("/movie/:id/unrate", h.UnrateMovie)
		forms.POST("/movie/:id/log", h.LogMovie)
		forms.POST("/movie/:id/lists", h.AddMovieToList)
		forms.POST("/diary/:id/delete", h.RemoveDiaryEntryForm)
		forms.POST("/lists", h.CreateListForm)
		forms.POST("/lists/:name/delete", h.DeleteListForm)
		forms.POST("/lists/:name/movies/:movieId/delete", h.RemoveListMovieForm)
	}

	// ==================== JSON API ====================
	api := r.Group("/api")
	{
		api.GET("/document", h.GetDocument)
		api.GET("/diary", h.ListDiary)
		api.GET("/stats", h.GetStats)
		api.GET("/ratings", h.ListRatings)
		api.GET("/lists", h.ListLists)
		api.GET("/events", h.Events)
		api.GET("/locations", h.GetLocations)
		api.POST("/list-modal", h.OpenListModal)

		api.GET("/movies/search", h.SearchMovies)
		api.GET("/movies/:category", h.GetMovies)
		api.GET("/movie/:id", h.GetMovie)
		api.GET("/genres/:id/movies", h.GetGenreMovies)
	}

	write := api.Group("", writeGuard)
	{
		write.POST("/diary", h.CreateDiaryEntry)
		write.DELETE("/diary/:id", h.DeleteDiaryEntry)
		write.PUT("/ratings/:id", h.PutRating)
		write.DELETE("/ratings/:id", h.DeleteRating)
		write.POST("/lists", h.CreateList)
		write.DELETE("/lists/:name", h.DeleteList)
		write.POST("/lists/:name/movies", h.AddListMovie)
		write.DELETE("/lists/:name/movies/:movieId", h.RemoveListMovie)
	}

	r.NoRoute(h.NotFound)
}

// LoadTemplates 使用 multitemplate 加载模板，解决模板继承问题
func LoadTemplates(templatesDir string) multitemplate.Renderer {
	r := multitemplate.NewRenderer()

	// 获取布局和局部模板
	layouts, err := filepath.Glob(templatesDir + "/layouts/*.html")
	if err != nil {
		panic(err)
	}

	partials, err := filepath.Glob(templatesDir + "/partials/*.html")
	if err != nil {
		panic(err)
	}

	// 组装模板文件列表
	assemble := func(view string) []string {
		files := make([]string, 0, len(layouts)+len(partials)+1)
		files = append(files, layouts...)
		files = append(files, partials...)
		files = append(files, view)
		return files
	}

	// 注册所有页面模板
	pages := []string{"diary", "dashboard", "lists", "map", "movie", "search", "404"}

	for _, page := range pages {
		viewPath := templatesDir + "/pages/" + page + ".html"
		r.AddFromFilesFuncs(page+".html", FuncMap(), assemble(viewPath)...)
	}

	return r
}

// FuncMap 模板函数
func FuncMap() template.FuncMap {
	return template.FuncMap{
		"dict": func(values ...any) (map[string]any, error) {
			if len(values)%2 != 0 {
				return nil, fmt.Errorf("invalid dict call")
			}
			dict := make(map[string]any, len(values)/2)
			for i := 0; i < len(values); i += 2 {
				key, ok := values[i].(string)
				if !ok {
					return nil, fmt.Errorf("dict keys must be strings")
				}
				dict[key] = values[i+1]
			}
			return dict, nil
		},
		"default": func(defaultValue, value any) any {
			switch v := value.(type) {
			case string:
				if v == "" {
					return defaultValue
				}
			case int:
				if v == 0 {
					return defaultValue
				}
			case nil:
				return defaultValue
			}
			return value
		},
		// image 空路径返回占位图
		"image": service.ImageURL,
		// poster 空路径返回空串
		"poster": service.PosterURL,
		"stars":  stars,
	}
}

// stars 4.5 -> ★★★★½
func stars(rating float64) string {
	if rating <= 0 {
		return ""
	}
	out := ""
	for i := 1.0; i <= rating; i++ {
		out += "★"
	}
	if rating-float64(int(rating)) >= 0.5 {
		out += "½"
	}
	return out
}
