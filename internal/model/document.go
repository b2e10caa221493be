package model

import "time"

// DefaultListName 首次初始化时自带的列表
const DefaultListName = "Mis Favoritas"

// UserDocument 用户数据文档（整体持久化在一个存储键下）
type UserDocument struct {
	Watchlist   []DiaryEntry            `json:"watchlist"`
	Ratings     map[string]RatingRecord `json:"ratings"`
	CustomLists map[string]MovieList    `json:"customLists"`
}

// DiaryEntry 观影日记条目
type DiaryEntry struct {
	ID          int      `json:"id"`
	Title       string   `json:"title"`
	Year        int      `json:"year,omitempty"`
	PosterPath  string   `json:"poster_path,omitempty"` // 绝对 URL 或 TMDB 相对路径
	Rating      float64  `json:"rating"`
	Liked       bool     `json:"liked"`
	WatchedDate Date     `json:"watchedDate"`
	Runtime     int      `json:"runtime,omitempty"` // 分钟
	Genres      []string `json:"genres,omitempty"`
}

// RatingRecord 评分记录
type RatingRecord struct {
	Rating     float64 `json:"rating"`
	MovieTitle string  `json:"movieTitle"`
	Review     string  `json:"review"`
	WatchDate  Date    `json:"watchDate"`
}

// NewUserDocument 创建默认空文档
func NewUserDocument(now time.Time) *UserDocument {
	return &UserDocument{
		Watchlist: []DiaryEntry{},
		Ratings:   map[string]RatingRecord{},
		CustomLists: map[string]MovieList{
			DefaultListName: {Movies: []ListMovieRef{}, CreatedAt: now.UTC()},
		},
	}
}

// Normalize 补齐缺失的集合字段，保证后续逻辑只面对规范形态
func (d *UserDocument) Normalize(now time.Time) {
	if d.Watchlist == nil {
		d.Watchlist = []DiaryEntry{}
	}
	if d.Ratings == nil {
		d.Ratings = map[string]RatingRecord{}
	}
	if d.CustomLists == nil {
		d.CustomLists = map[string]MovieList{}
	}
	for name, list := range d.CustomLists {
		d.CustomLists[name] = list.Normalized(now)
	}
}

// Clone 深拷贝
func (d *UserDocument) Clone() *UserDocument {
	if d == nil {
		return nil
	}
	out := &UserDocument{
		Watchlist:   make([]DiaryEntry, len(d.Watchlist)),
		Ratings:     make(map[string]RatingRecord, len(d.Ratings)),
		CustomLists: make(map[string]MovieList, len(d.CustomLists)),
	}
	for i, e := range d.Watchlist {
		if e.Genres != nil {
			e.Genres = append([]string(nil), e.Genres...)
		}
		out.Watchlist[i] = e
	}
	for id, r := range d.Ratings {
		out.Ratings[id] = r
	}
	for name, list := range d.CustomLists {
		out.CustomLists[name] = list.Clone()
	}
	return out
}

// EntryIndex 返回日记中该电影的位置，不存在返回 -1
func (d *UserDocument) EntryIndex(movieID int) int {
	for i, e := range d.Watchlist {
		if e.ID == movieID {
			return i
		}
	}
	return -1
}
