package model

import (
	"bytes"
	"time"

	"github.com/goccy/go-json"
)

// MovieList 自定义片单，名称即身份（存放在 customLists 的键上）
type MovieList struct {
	Movies      []ListMovieRef `json:"movies"`
	Description string         `json:"description"`
	CreatedAt   time.Time      `json:"createdAt"`

	// Legacy 读取时是否为旧版裸数组格式，写回时一律输出包装格式
	Legacy bool `json:"-"`
}

// ListMovieRef 片单中的电影（冗余存储展示所需字段）
type ListMovieRef struct {
	ID          int       `json:"id"`
	Title       string    `json:"title"`
	PosterPath  string    `json:"posterPath"`
	ReleaseDate string    `json:"releaseDate"`
	VoteAverage float64   `json:"voteAverage"`
	AddedAt     time.Time `json:"addedAt"`
}

type movieListWrapper struct {
	Movies      []ListMovieRef `json:"movies"`
	Description string         `json:"description"`
	CreatedAt   time.Time      `json:"createdAt"`
}

// UnmarshalJSON 同时兼容包装对象与旧版裸数组两种格式
func (l *MovieList) UnmarshalJSON(b []byte) error {
	trimmed := bytes.TrimSpace(b)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*l = MovieList{Movies: []ListMovieRef{}}
		return nil
	}

	if trimmed[0] == '[' {
		var movies []ListMovieRef
		if err := json.Unmarshal(trimmed, &movies); err != nil {
			return err
		}
		if movies == nil {
			movies = []ListMovieRef{}
		}
		*l = MovieList{Movies: movies, Legacy: true}
		return nil
	}

	var w movieListWrapper
	if err := json.Unmarshal(trimmed, &w); err != nil {
		return err
	}
	if w.Movies == nil {
		w.Movies = []ListMovieRef{}
	}
	*l = MovieList{Movies: w.Movies, Description: w.Description, CreatedAt: w.CreatedAt}
	return nil
}

// MarshalJSON 永远写出包装格式
func (l MovieList) MarshalJSON() ([]byte, error) {
	movies := l.Movies
	if movies == nil {
		movies = []ListMovieRef{}
	}
	return json.Marshal(movieListWrapper{
		Movies:      movies,
		Description: l.Description,
		CreatedAt:   l.CreatedAt,
	})
}

// Normalized 返回规范形态：旧版列表补上创建时间
func (l MovieList) Normalized(now time.Time) MovieList {
	if l.Movies == nil {
		l.Movies = []ListMovieRef{}
	}
	if l.CreatedAt.IsZero() {
		l.CreatedAt = now.UTC()
	}
	l.Legacy = false
	return l
}

// Contains 片单中是否已有该电影
func (l MovieList) Contains(movieID int) bool {
	for _, m := range l.Movies {
		if m.ID == movieID {
			return true
		}
	}
	return false
}

// Clone 深拷贝
func (l MovieList) Clone() MovieList {
	out := l
	out.Movies = append(make([]ListMovieRef, 0, len(l.Movies)), l.Movies...)
	return out
}
