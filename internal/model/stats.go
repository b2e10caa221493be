package model

// Stats 仪表盘统计
type Stats struct {
	TotalHours  float64      `json:"totalHours"`
	AvgRating   float64      `json:"avgRating"`
	TotalMovies int          `json:"totalMovies"`
	GenreData   []GenreCount `json:"genreData"`
}

// GenreCount 类型出现次数
type GenreCount struct {
	Name  string `json:"name"`
	Value int    `json:"value"`
}
