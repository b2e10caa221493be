package service

import (
	"fmt"
	"sort"

	"github.com/user/filmdiary/internal/model"
)

var monthNames = [12]string{"JAN", "FEB", "MAR", "APR", "MAY", "JUN", "JUL", "AUG", "SEP", "OCT", "NOV", "DEC"}

// DiaryPosterSize 日记表格的小海报尺寸
const DiaryPosterSize = "w92"

// BuildDiary 生成日记表格：按观看日期倒序，同年同月只在第一行显示月份
func BuildDiary(entries []model.DiaryEntry) []model.DiaryRow {
	sorted := make([]model.DiaryEntry, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[j].WatchedDate.Before(sorted[i].WatchedDate)
	})

	rows := make([]model.DiaryRow, 0, len(sorted))
	for i, e := range sorted {
		month := monthNames[e.WatchedDate.Month()-1]

		rows = append(rows, model.DiaryRow{
			Entry:      e,
			PosterURL:  PosterURL(e.PosterPath, DiaryPosterSize),
			Day:        fmt.Sprintf("%02d", e.WatchedDate.Day()),
			Month:      month,
			Year:       e.WatchedDate.Year(),
			MonthLabel: fmt.Sprintf("%s %d", month, e.WatchedDate.Year()),
			ShowMonth:  i == 0 || !e.WatchedDate.SameMonth(sorted[i-1].WatchedDate),
		})
	}
	return rows
}
