package models

import "time"

// Badge is one achievement in the fixed badge set. The full set is always
// stored with the progress blob; earning flips the Earned flag in place.
type Badge struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
	Earned      bool   `json:"earned"`
}

// LevelStatistics tracks per-level play history inside the progress blob
type LevelStatistics struct {
	Attempts         int     `json:"attempts"`
	Completions      int     `json:"completions"`
	FailedAttempts   int     `json:"failedAttempts"`
	AverageScore     float64 `json:"averageScore"`
	AverageTimeSpent float64 `json:"averageTimeSpent"`
}

// GameProgress is the single serialized structure holding a user's
// unlocked levels, star ratings, badges, and per-level statistics.
// It is stored as one JSON blob per user and always replaced wholesale.
//
// Invariants: TotalStars equals the sum of LevelStars values at save time;
// UnlockedLevels never decreases except on explicit reset.
type GameProgress struct {
	UnlockedLevels  int                     `json:"unlockedLevels"`
	LevelStars      map[int]int             `json:"levelStars"`
	TotalStars      int                     `json:"totalStars"`
	Badges          []Badge                 `json:"badges"`
	LevelStatistics map[int]LevelStatistics `json:"levelStatistics"`
}

// SumLevelStars returns the sum of all per-level star ratings
func (p *GameProgress) SumLevelStars() int {
	total := 0
	for _, stars := range p.LevelStars {
		total += stars
	}
	return total
}

// HighestLevel returns the highest level with a recorded star rating, or 0
func (p *GameProgress) HighestLevel() int {
	highest := 0
	for level := range p.LevelStars {
		if level > highest {
			highest = level
		}
	}
	return highest
}

// StoredProgress is a progress blob row as persisted for one user
type StoredProgress struct {
	UserID      string       `json:"user_id"`
	Progress    GameProgress `json:"game_progress"`
	LastUpdated time.Time    `json:"last_updated"`
}
