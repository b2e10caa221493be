package model

import "time"

// DiaryRow 日记表格的一行（每次渲染重新计算，不持久化）
type DiaryRow struct {
	Entry      DiaryEntry `json:"entry"`
	PosterURL  string     `json:"posterUrl"`
	Day        string     `json:"day"`
	Month      string     `json:"month"`
	Year       int        `json:"year"`
	MonthLabel string     `json:"monthLabel"`
	ShowMonth  bool       `json:"showMonth"`
}

// ListSummary 片单浏览页的摘要
type ListSummary struct {
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Count       int       `json:"count"`
	CreatedAt   time.Time `json:"createdAt"`
	Posters     []string  `json:"posters"`
}
