package service

import "github.com/user/filmdiary/internal/model"

var filmingLocations = []model.Location{
	{
		ID:     1,
		Title:  "El Señor de los Anillos",
		Place:  "Hobbiton (Matamata, Nueva Zelanda)",
		Coords: [2]float64{-37.8577, 175.6806},
		Image:  "https://encrypted-tbn0.gstatic.com/images?q=tbn:ANd9GcTiiKXWkAIUlZ47rDI6kpHZMbr4gjrc1HmeIA&s",
		Desc:   "La Comarca, hogar de Bilbo y Frodo Bolsón.",
	},
	{
		ID:     2,
		Title:  "Joker",
		Place:  "Joker Stairs (Bronx, NY)",
		Coords: [2]float64{40.8359, -73.9240},
		Image:  "https://image.tmdb.org/t/p/w200/udDclJoHjfjb8Ekgsd4FDteOkCU.jpg",
		Desc:   "Las famosas escaleras donde Arthur Fleck baila.",
	},
	{
		ID:     3,
		Title:  "Harry Potter",
		Place:  "Estación King's Cross (Londres)",
		Coords: [2]float64{51.5316, -0.1246},
		Image:  "https://image.tmdb.org/t/p/w200/wuMc08IPKEatf9rnMNXvIDxqP4W.jpg",
		Desc:   "Plataforma 9 ¾, la entrada al mundo mágico.",
	},
	{
		ID:     4,
		Title:  "Game of Thrones",
		Place:  "Dubrovnik (Croacia)",
		Coords: [2]float64{42.6507, 18.0944},
		Image:  "https://image.tmdb.org/t/p/w200/1XS1oqL89opfnbGw83trZrcr5bb.jpg",
		Desc:   "King's Landing (Desembarco del Rey).",
	},
	{
		ID:     5,
		Title:  "Jurassic Park",
		Place:  "Kualoa Ranch (Hawaii)",
		Coords: [2]float64{21.5209, -157.8373},
		Image:  "https://encrypted-tbn0.gstatic.com/images?q=tbn:ANd9GcQNXvyph0pfPxmwIhT0xvDIia4o4VNzPQnoog&s",
		Desc:   "El valle donde corren los Gallimimus.",
	},
	{
		ID:     6,
		Title:  "La Casa de Papel",
		Place:  "Fábrica Nacional de Moneda (Madrid)",
		Coords: [2]float64{40.4223, -3.6696},
		Image:  "https://image.tmdb.org/t/p/w200/reEMJA1uzscCbkpeRJeTT2bjqUp.jpg",
		Desc:   "El lugar del primer gran atraco.",
	},
}

// Locations 地图页的取景地
func Locations() []model.Location {
	out := make([]model.Location, len(filmingLocations))
	copy(out, filmingLocations)
	return out
}
