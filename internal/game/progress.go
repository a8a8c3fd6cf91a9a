package game

import "terratiles/internal/models"

// Badge ids
const (
	BadgeForestGuardian    = "forest-guardian"
	BadgeWaterWatcher      = "water-watcher"
	BadgeCityPlanner       = "city-planner"
	BadgeFarmExpert        = "farm-expert"
	BadgeDesertExplorer    = "desert-explorer"
	BadgePerfectClassifier = "perfect-classifier"
	BadgeMasterClassifier  = "master-classifier"
)

// collectorBadgeThreshold is how many correct tiles of one label earn its
// collector badge.
const collectorBadgeThreshold = 10

// masterStarsThreshold is the total-star count that earns master-classifier
const masterStarsThreshold = 15

// collectorBadges maps label to its collector badge id
var collectorBadges = map[LandCover]string{
	Forest:   BadgeForestGuardian,
	Water:    BadgeWaterWatcher,
	Urban:    BadgeCityPlanner,
	Farmland: BadgeFarmExpert,
	Desert:   BadgeDesertExplorer,
}

// InitialBadges returns the fixed badge set, all unearned
func InitialBadges() []models.Badge {
	return []models.Badge{
		{ID: BadgeForestGuardian, Name: "Forest Guardian", Description: "Classified 10 forest tiles correctly", Icon: "🌳"},
		{ID: BadgeWaterWatcher, Name: "Water Watcher", Description: "Classified 10 water tiles correctly", Icon: "💧"},
		{ID: BadgeCityPlanner, Name: "City Planner", Description: "Classified 10 urban tiles correctly", Icon: "🏙️"},
		{ID: BadgeFarmExpert, Name: "Farm Expert", Description: "Classified 10 farmland tiles correctly", Icon: "🌾"},
		{ID: BadgeDesertExplorer, Name: "Desert Explorer", Description: "Classified 10 desert tiles correctly", Icon: "🏜️"},
		{ID: BadgePerfectClassifier, Name: "Perfect Classifier", Description: "Complete a level with 3 stars", Icon: "⭐"},
		{ID: BadgeMasterClassifier, Name: "Master Classifier", Description: "Complete all levels", Icon: "🏆"},
	}
}

// NewProgress returns the default progress: level 1 unlocked, no stars,
// all badges unearned.
func NewProgress() models.GameProgress {
	return models.GameProgress{
		UnlockedLevels:  1,
		LevelStars:      map[int]int{},
		TotalStars:      0,
		Badges:          InitialBadges(),
		LevelStatistics: map[int]models.LevelStatistics{},
	}
}

// CalculateStars converts a correct/total ratio into a 0-3 star rating.
// Boundaries are inclusive: exactly 90% earns 3 stars, 70% earns 2, 50%
// earns 1.
func CalculateStars(correct, total int) int {
	if total <= 0 {
		return 0
	}
	percentage := float64(correct) / float64(total) * 100
	switch {
	case percentage >= 90:
		return 3
	case percentage >= 70:
		return 2
	case percentage >= 50:
		return 1
	default:
		return 0
	}
}

// Score returns the points gained for finishing a level with the given stars
func Score(level, stars int) int {
	return stars*100 + level*10
}

// CompletionResult is the delta produced by completing a level, carried to
// the results screen for display.
type CompletionResult struct {
	Level       int
	Stars       int // stored stars after max-merging with any earlier rating
	ScoreGained int
	NewBadges   []models.Badge
}

// CompleteLevel applies a level completion to a progress value and returns
// the updated progress plus the delta. The input is not mutated.
//
// The total-star invariant is enforced here: TotalStars is recomputed from
// the per-level map rather than trusted from the caller. UnlockedLevels
// only ever rises.
func CompleteLevel(p models.GameProgress, level, stars, playTimeMinutes int, labelCorrect map[LandCover]int) (models.GameProgress, CompletionResult) {
	next := cloneProgress(p)

	prevStars := next.LevelStars[level]
	if stars > prevStars {
		next.LevelStars[level] = stars
	} else if _, ok := next.LevelStars[level]; !ok {
		next.LevelStars[level] = stars
	}

	next.TotalStars = next.SumLevelStars()

	if unlocked := level + 1; unlocked > next.UnlockedLevels {
		next.UnlockedLevels = unlocked
	}

	scoreGained := Score(level, stars)
	next.LevelStatistics[level] = updateStatistics(next.LevelStatistics[level], stars, scoreGained, playTimeMinutes)

	result := CompletionResult{
		Level:       level,
		Stars:       next.LevelStars[level],
		ScoreGained: scoreGained,
	}

	earned := map[string]bool{}
	if stars == 3 {
		earned[BadgePerfectClassifier] = true
	}
	if next.TotalStars >= masterStarsThreshold {
		earned[BadgeMasterClassifier] = true
	}
	for label, count := range labelCorrect {
		if count >= collectorBadgeThreshold {
			if id, ok := collectorBadges[label]; ok {
				earned[id] = true
			}
		}
	}

	for i, badge := range next.Badges {
		if earned[badge.ID] && !badge.Earned {
			next.Badges[i].Earned = true
			result.NewBadges = append(result.NewBadges, next.Badges[i])
		}
	}

	return next, result
}

func updateStatistics(stats models.LevelStatistics, stars, score, playTimeMinutes int) models.LevelStatistics {
	stats.Attempts++
	if stars > 0 {
		stats.Completions++
	} else {
		stats.FailedAttempts++
	}
	n := float64(stats.Attempts)
	stats.AverageScore += (float64(score) - stats.AverageScore) / n
	stats.AverageTimeSpent += (float64(playTimeMinutes) - stats.AverageTimeSpent) / n
	return stats
}

func cloneProgress(p models.GameProgress) models.GameProgress {
	next := p
	next.LevelStars = make(map[int]int, len(p.LevelStars))
	for k, v := range p.LevelStars {
		next.LevelStars[k] = v
	}
	next.LevelStatistics = make(map[int]models.LevelStatistics, len(p.LevelStatistics))
	for k, v := range p.LevelStatistics {
		next.LevelStatistics[k] = v
	}
	next.Badges = make([]models.Badge, len(p.Badges))
	copy(next.Badges, p.Badges)
	if len(next.Badges) == 0 {
		next.Badges = InitialBadges()
	}
	return next
}
