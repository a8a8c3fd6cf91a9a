package game

import "fmt"

// Tile is one satellite image cell in a level grid
type Tile struct {
	ID           string
	ImageName    string
	CorrectLabel LandCover
}

// Level is one playable puzzle: a grid of tiles and the labels available
// to drop onto them.
type Level struct {
	ID              int
	Title           string
	GridSize        int // tiles per side
	Tiles           []Tile
	AvailableLabels []LandCover
	RequiredStars   int // total stars needed before the level unlocks
}

// levelSpec drives deterministic tile generation for the catalogue
type levelSpec struct {
	title    string
	gridSize int
	labels   []LandCover
	required int
}

var levelSpecs = []levelSpec{
	{"Forest and Water", 2, []LandCover{Forest, Water}, 0},
	{"Growing Cities", 2, []LandCover{Forest, Water, Urban}, 0},
	{"Field Patterns", 3, []LandCover{Forest, Water, Farmland}, 2},
	{"Town and Country", 3, []LandCover{Urban, Farmland, Forest}, 4},
	{"Dry Lands", 3, []LandCover{Desert, Farmland, Water}, 6},
	{"Mixed Terrain", 4, []LandCover{Forest, Water, Urban, Farmland}, 9},
	{"Edge of the Desert", 4, []LandCover{Desert, Urban, Farmland, Water}, 12},
	{"The Whole Map", 4, AllLandCovers, 15},
}

// Levels returns the full level catalogue. Tiles are generated
// deterministically so every client sees the same puzzles.
func Levels() []Level {
	levels := make([]Level, 0, len(levelSpecs))
	for i, spec := range levelSpecs {
		id := i + 1
		tileCount := spec.gridSize * spec.gridSize
		tiles := make([]Tile, 0, tileCount)
		for t := 0; t < tileCount; t++ {
			label := spec.labels[t%len(spec.labels)]
			tiles = append(tiles, Tile{
				ID:           fmt.Sprintf("l%d_t%d", id, t),
				ImageName:    fmt.Sprintf("%s_%d.jpg", label, t/len(spec.labels)+1),
				CorrectLabel: label,
			})
		}
		levels = append(levels, Level{
			ID:              id,
			Title:           spec.title,
			GridSize:        spec.gridSize,
			Tiles:           tiles,
			AvailableLabels: spec.labels,
			RequiredStars:   spec.required,
		})
	}
	return levels
}

// LevelByID returns the level with the given id, or nil
func LevelByID(id int) *Level {
	levels := Levels()
	if id < 1 || id > len(levels) {
		return nil
	}
	level := levels[id-1]
	return &level
}

// LevelCount returns the number of levels in the catalogue
func LevelCount() int {
	return len(levelSpecs)
}
