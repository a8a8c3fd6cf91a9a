package game

// LandCover is one of the five labels a player can drop onto a tile
type LandCover string

const (
	Forest   LandCover = "forest"
	Water    LandCover = "water"
	Urban    LandCover = "urban"
	Farmland LandCover = "farmland"
	Desert   LandCover = "desert"
)

// AllLandCovers lists every label in display order
var AllLandCovers = []LandCover{Forest, Water, Urban, Farmland, Desert}

// landCoverNames maps labels to their display names
var landCoverNames = map[LandCover]string{
	Forest:   "Forest",
	Water:    "Water",
	Urban:    "Urban",
	Farmland: "Farmland",
	Desert:   "Desert",
}

// DisplayName returns the human-readable name for a label
func (lc LandCover) DisplayName() string {
	if name, ok := landCoverNames[lc]; ok {
		return name
	}
	return string(lc)
}

// Valid reports whether lc is one of the known labels
func (lc LandCover) Valid() bool {
	_, ok := landCoverNames[lc]
	return ok
}
