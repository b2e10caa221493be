package model

// Location 取景地
type Location struct {
	ID     int        `json:"id"`
	Title  string     `json:"title"`
	Place  string     `json:"place"`
	Coords [2]float64 `json:"coords"` // [纬度, 经度]
	Image  string     `json:"image"`
	Desc   string     `json:"desc"`
}
