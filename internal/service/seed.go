package service

import (
	"time"

	"github.com/user/filmdiary/internal/model"
)

// DemoDocument 演示数据：一段时间的观影日记与几条评分
func DemoDocument(now time.Time) *model.UserDocument {
	doc := model.NewUserDocument(now)

	doc.Watchlist = []model.DiaryEntry{
		{ID: 346698, Title: "Barbie", Year: 2023, Rating: 4, Liked: true, WatchedDate: model.MustDate("2025-12-10"), Runtime: 114, Genres: []string{"Comedy", "Fantasy"}},
		{ID: 603, Title: "The Matrix", Year: 1999, Rating: 5, Liked: true, WatchedDate: model.MustDate("2025-12-09"), PosterPath: "/f89U3ADr1oiB1s9GkdPOEpXUk5H.jpg", Runtime: 136, Genres: []string{"Sci-Fi", "Action"}},
		{ID: 693134, Title: "Dune: Part Two", Year: 2024, Rating: 5, Liked: true, WatchedDate: model.MustDate("2025-12-09"), PosterPath: "/1pdfLvkbY9ohJlCjQH2CZjjYVvJ.jpg", Runtime: 166, Genres: []string{"Sci-Fi", "Adventure"}},
		{ID: 872585, Title: "Oppenheimer", Year: 2023, Rating: 4.5, WatchedDate: model.MustDate("2025-11-20"), Runtime: 180, Genres: []string{"Drama", "History"}},
		{ID: 239, Title: "Some Like It Hot", Year: 1959, Rating: 5, Liked: true, WatchedDate: model.MustDate("2025-11-08"), Runtime: 121, Genres: []string{"Comedy", "Romance"}},
		{ID: 335984, Title: "Blade Runner 2049", Year: 2017, Rating: 4, WatchedDate: model.MustDate("2025-10-01"), Runtime: 164, Genres: []string{"Sci-Fi", "Drama"}},
		{ID: 76341, Title: "Mad Max: Fury Road", Year: 2015, Rating: 4.5, WatchedDate: model.MustDate("2025-09-15"), Runtime: 120, Genres: []string{"Action", "Sci-Fi"}},
	}

	doc.Ratings = map[string]model.RatingRecord{
		"550": {Rating: 4.5, WatchDate: model.MustDate("2025-12-10"), MovieTitle: "Fight Club", Review: "Una obra maestra de cine"},
		"278": {Rating: 5, WatchDate: model.MustDate("2025-12-09"), MovieTitle: "The Shawshank Redemption", Review: "Increíble"},
		"238": {Rating: 4.5, WatchDate: model.MustDate("2025-12-08"), MovieTitle: "The Godfather", Review: "Clásico absoluto"},
		"240": {Rating: 4, WatchDate: model.MustDate("2025-12-07"), MovieTitle: "The Godfather Part II", Review: "Excelente secuela"},
		"424": {Rating: 4.5, WatchDate: model.MustDate("2025-12-06"), MovieTitle: "Schindler's List", Review: "Impactante"},
	}

	return doc
}
