package service

import (
	"math"
	"sort"

	"github.com/user/filmdiary/internal/model"
)

// TopGenres 仪表盘展示的类型数量
const TopGenres = 5

// ComputeStats 根据观影记录计算仪表盘统计
// 缺失的时长、类型、评分一律按 0/空处理。
func ComputeStats(movies []model.DiaryEntry) model.Stats {
	stats := model.Stats{
		TotalMovies: len(movies),
		GenreData:   []model.GenreCount{},
	}
	if len(movies) == 0 {
		return stats
	}

	totalMinutes := 0
	ratedSum, ratedCount := 0.0, 0
	counts := make(map[string]int)
	var order []string

	for _, m := range movies {
		totalMinutes += m.Runtime
		if m.Rating > 0 {
			ratedSum += m.Rating
			ratedCount++
		}
		for _, g := range m.Genres {
			if _, seen := counts[g]; !seen {
				order = append(order, g)
			}
			counts[g]++
		}
	}

	stats.TotalHours = round1(float64(totalMinutes) / 60)
	if ratedCount > 0 {
		stats.AvgRating = round1(ratedSum / float64(ratedCount))
	}

	genres := make([]model.GenreCount, 0, len(order))
	for _, name := range order {
		genres = append(genres, model.GenreCount{Name: name, Value: counts[name]})
	}
	// 稳定排序：次数相同保持首次出现的顺序
	sort.SliceStable(genres, func(i, j int) bool {
		return genres[i].Value > genres[j].Value
	})
	if len(genres) > TopGenres {
		genres = genres[:TopGenres]
	}
	stats.GenreData = genres

	return stats
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
