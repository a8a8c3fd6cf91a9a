package models

import "time"

// ErrorCount is one aggregated error message with its frequency
type ErrorCount struct {
	Message string `json:"error"`
	Count   int    `json:"count"`
}

// ImageFailure aggregates failed classifications of one image
type ImageFailure struct {
	ImageName      string `json:"imageName"`
	AttemptedLabel string `json:"attemptedLabel"`
	CorrectLabel   string `json:"correctLabel"`
	GameLevel      int    `json:"gameLevel"`
	FailureCount   int    `json:"failureCount"`
	UsersAffected  int    `json:"usersAffected"`
}

// LevelDifficulty is a naive per-level difficulty estimate from error counts
type LevelDifficulty struct {
	Level          int     `json:"level"`
	ErrorCount     int     `json:"errorCount"`
	UsersAffected  int     `json:"usersAffected"`
	CompletionRate float64 `json:"completionRate"`
}

// DashboardMetrics is the admin overview, computed on demand. Each field
// comes from an independent query; a failing sub-query leaves its field at
// the zero value instead of blanking the whole response.
type DashboardMetrics struct {
	TotalUsers             int               `json:"totalUsers"`
	ActiveUsers            int               `json:"activeUsers"`
	TotalGames             int               `json:"totalGames"`
	AverageSessionDuration float64           `json:"averageSessionDuration"`
	TopErrors              []ErrorCount      `json:"topErrors"`
	TopImageFailures       []ImageFailure    `json:"topImageFailures"`
	LevelDifficulty        []LevelDifficulty `json:"levelDifficulty"`
}

// UserStatsRow is one row of the admin user listing
type UserStatsRow struct {
	UserID           string     `json:"userId"`
	Username         string     `json:"username"`
	Email            string     `json:"email"`
	TotalGamesPlayed int        `json:"totalGamesPlayed"`
	TotalScore       int        `json:"totalScore"`
	AverageScore     float64    `json:"averageScore"`
	HighestLevel     int        `json:"highestLevel"`
	TotalErrors      int        `json:"totalErrors"`
	LastActive       *time.Time `json:"lastActive,omitempty"`
	RegistrationDate time.Time  `json:"registrationDate"`
	IsActive         bool       `json:"isActive"`
}

// UserListing is a paginated admin user listing
type UserListing struct {
	Users      []UserStatsRow `json:"users"`
	Total      int            `json:"total"`
	Page       int            `json:"page"`
	TotalPages int            `json:"totalPages"`
}

// UserDetail is the per-user admin view: the user record plus the most
// recent sessions and telemetry events.
type UserDetail struct {
	User           User             `json:"user"`
	RecentSessions []GameSession    `json:"recentSessions"`
	RecentEvents   []TelemetryEvent `json:"recentEvents"`
}

// ConfusionPair aggregates one "said X, should be Y" misclassification pattern
type ConfusionPair struct {
	UserSaid      string `json:"userSaid"`
	ShouldBe      string `json:"shouldBe"`
	Frequency     int    `json:"frequency"`
	UsersAffected int    `json:"usersAffected"`
}

// ProblemImage aggregates mistakes against a single image
type ProblemImage struct {
	ImageName     string `json:"imageName"`
	CorrectLabel  string `json:"correctLabel"`
	MistakeCount  int    `json:"mistakeCount"`
	UsersAffected int    `json:"usersAffected"`
}

// ClassificationSummary holds overall classification accuracy figures.
// Accuracy is a percentage rounded to one decimal.
type ClassificationSummary struct {
	CorrectCount   int     `json:"correctCount"`
	IncorrectCount int     `json:"incorrectCount"`
	UniqueUsers    int     `json:"uniqueUsers"`
	TotalAttempts  int     `json:"totalAttempts"`
	Accuracy       float64 `json:"accuracy"`
}

// ClassificationAnalytics is the admin classification report
type ClassificationAnalytics struct {
	Logs          []TelemetryEvent      `json:"logs"`
	Summary       ClassificationSummary `json:"summary"`
	Patterns      []ConfusionPair       `json:"patterns"`
	ProblemImages []ProblemImage        `json:"problemImages"`
}
