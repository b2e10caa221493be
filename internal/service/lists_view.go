package service

import (
	"sort"

	"github.com/user/filmdiary/internal/model"
)

const (
	// ListPosterSize 片单卡片的海报尺寸
	ListPosterSize = "w154"
	// ListPreviewPosters 每个片单叠放的海报数
	ListPreviewPosters = 5
)

// SummarizeLists 片单浏览页数据，最新创建的在前
func SummarizeLists(lists map[string]model.MovieList) []model.ListSummary {
	out := make([]model.ListSummary, 0, len(lists))
	for name, list := range lists {
		posters := make([]string, 0, ListPreviewPosters)
		for _, m := range list.Movies {
			if len(posters) == ListPreviewPosters {
				break
			}
			if url := PosterURL(m.PosterPath, ListPosterSize); url != "" {
				posters = append(posters, url)
			}
		}
		out = append(out, model.ListSummary{
			Name:        name,
			Description: list.Description,
			Count:       len(list.Movies),
			CreatedAt:   list.CreatedAt,
			Posters:     posters,
		})
	}

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].Name < out[j].Name
	})
	return out
}
