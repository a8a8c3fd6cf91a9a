package repository

import (
	"database/sql"
	"fmt"
	"math"
	"strings"
	"time"

	"terratiles/internal/database"
	"terratiles/internal/models"
)

// AdminRepository runs the read-only aggregation queries behind the
// dashboard. Sort and filter inputs are validated against closed
// allow-lists; user input is never interpolated into SQL.
type AdminRepository struct {
	db *database.DB
}

// NewAdminRepository creates a new admin repository
func NewAdminRepository(db *database.DB) *AdminRepository {
	return &AdminRepository{db: db}
}

// DefaultSortKey is applied when a requested sort key is not recognised
const DefaultSortKey = "totalScore"

// sortColumns is the closed allow-list of sortable columns for the user
// listing, keyed by the API's camelCase names.
var sortColumns = map[string]string{
	"totalScore":       "u.total_score",
	"totalGamesPlayed": "u.total_games_played",
	"highestLevel":     "u.highest_level",
	"lastActive":       "u.last_active",
	"registrationDate": "u.registration_date",
	"username":         "u.username",
	"averageScore":     "average_score",
	"totalErrors":      "total_errors",
}

// ResolveSortKey maps a requested sort key to its SQL expression, falling
// back to the default (total score) for unknown keys.
func ResolveSortKey(sortBy string) string {
	if column, ok := sortColumns[sortBy]; ok {
		return column
	}
	return sortColumns[DefaultSortKey]
}

// ResolveSortOrder restricts the order input to ASC or DESC, defaulting to
// DESC.
func ResolveSortOrder(order string) string {
	if strings.EqualFold(order, "asc") {
		return "ASC"
	}
	return "DESC"
}

// ListUsers returns one page of the admin user listing
func (r *AdminRepository) ListUsers(page, limit int, sortBy, sortOrder string) (*models.UserListing, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 200 {
		limit = 50
	}
	offset := (page - 1) * limit

	query := `
		SELECT
			u.user_id,
			u.username,
			u.email,
			u.total_games_played,
			u.total_score,
			COALESCE(s.avg_score, 0) AS average_score,
			u.highest_level,
			COALESCE(e.error_count, 0) AS total_errors,
			u.last_active,
			u.registration_date,
			u.is_active
		FROM users u
		LEFT JOIN (
			SELECT user_id, AVG(score_gained) AS avg_score
			FROM sessions
			GROUP BY user_id
		) s ON u.user_id = s.user_id
		LEFT JOIN (
			SELECT user_id, COUNT(*) AS error_count
			FROM telemetry
			WHERE severity = 'error'
			GROUP BY user_id
		) e ON u.user_id = e.user_id
	`

	// Sort column and order come from closed allow-lists, never from raw
	// request input.
	query += fmt.Sprintf(" ORDER BY %s %s", ResolveSortKey(sortBy), ResolveSortOrder(sortOrder))
	query += " LIMIT ? OFFSET ?"

	rows, err := r.db.Query(query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	listing := &models.UserListing{Users: []models.UserStatsRow{}, Page: page}
	for rows.Next() {
		var row models.UserStatsRow
		var lastActive sql.NullTime
		err := rows.Scan(
			&row.UserID,
			&row.Username,
			&row.Email,
			&row.TotalGamesPlayed,
			&row.TotalScore,
			&row.AverageScore,
			&row.HighestLevel,
			&row.TotalErrors,
			&lastActive,
			&row.RegistrationDate,
			&row.IsActive,
		)
		if err != nil {
			return nil, err
		}
		if lastActive.Valid {
			row.LastActive = &lastActive.Time
		}
		listing.Users = append(listing.Users, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := r.db.QueryRow("SELECT COUNT(*) FROM users").Scan(&listing.Total); err != nil {
		return nil, fmt.Errorf("failed to count users: %w", err)
	}
	listing.TotalPages = int(math.Ceil(float64(listing.Total) / float64(limit)))
	return listing, nil
}

// TopErrors returns the most frequent error messages
func (r *AdminRepository) TopErrors(limit int) ([]models.ErrorCount, error) {
	query := `
		SELECT message, COUNT(*) AS count
		FROM telemetry
		WHERE severity = 'error'
		GROUP BY message
		ORDER BY count DESC
		LIMIT ?
	`
	rows, err := r.db.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query top errors: %w", err)
	}
	defer rows.Close()

	var counts []models.ErrorCount
	for rows.Next() {
		var c models.ErrorCount
		if err := rows.Scan(&c.Message, &c.Count); err != nil {
			return nil, err
		}
		counts = append(counts, c)
	}
	return counts, rows.Err()
}

// TopImageFailures returns the most-failed image classifications, grouped
// by image, attempted label, correct label and level.
func (r *AdminRepository) TopImageFailures(limit int) ([]models.ImageFailure, error) {
	query := `
		SELECT
			image_name,
			attempted_label,
			correct_label,
			COALESCE(game_level, 0),
			COUNT(*) AS failure_count,
			COUNT(DISTINCT user_id) AS users_affected
		FROM telemetry
		WHERE kind = ? AND image_name <> ''
		GROUP BY image_name, attempted_label, correct_label, game_level
		ORDER BY failure_count DESC, game_level ASC
		LIMIT ?
	`
	rows, err := r.db.Query(query, models.EventClassificationFailure, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query image failures: %w", err)
	}
	defer rows.Close()

	var failures []models.ImageFailure
	for rows.Next() {
		var f models.ImageFailure
		err := rows.Scan(&f.ImageName, &f.AttemptedLabel, &f.CorrectLabel, &f.GameLevel, &f.FailureCount, &f.UsersAffected)
		if err != nil {
			return nil, err
		}
		failures = append(failures, f)
	}
	return failures, rows.Err()
}

// LevelDifficulty derives a naive difficulty estimate from per-level error
// counts.
func (r *AdminRepository) LevelDifficulty() ([]models.LevelDifficulty, error) {
	query := `
		SELECT
			game_level,
			COUNT(*) AS error_count,
			COUNT(DISTINCT user_id) AS users_affected
		FROM telemetry
		WHERE kind = ? AND game_level IS NOT NULL AND game_level > 0
		GROUP BY game_level
		ORDER BY game_level
	`
	rows, err := r.db.Query(query, models.EventClassificationFailure)
	if err != nil {
		return nil, fmt.Errorf("failed to query level difficulty: %w", err)
	}
	defer rows.Close()

	var levels []models.LevelDifficulty
	for rows.Next() {
		var l models.LevelDifficulty
		if err := rows.Scan(&l.Level, &l.ErrorCount, &l.UsersAffected); err != nil {
			return nil, err
		}
		l.CompletionRate = math.Max(0, 1-float64(l.ErrorCount)/100)
		levels = append(levels, l)
	}
	return levels, rows.Err()
}

// ClassificationSummary aggregates overall accuracy figures. Accuracy is
// correct/(correct+incorrect)*100 rounded to one decimal; an empty table
// yields zeros.
func (r *AdminRepository) ClassificationSummary() (models.ClassificationSummary, error) {
	query := `
		SELECT
			COUNT(CASE WHEN kind = ? THEN 1 END) AS correct_count,
			COUNT(CASE WHEN kind = ? THEN 1 END) AS incorrect_count,
			COUNT(DISTINCT user_id) AS unique_users,
			COUNT(*) AS total_attempts
		FROM telemetry
		WHERE kind IN (?, ?)
	`
	var summary models.ClassificationSummary
	err := r.db.QueryRow(query,
		models.EventClassificationSuccess,
		models.EventClassificationFailure,
		models.EventClassificationSuccess,
		models.EventClassificationFailure,
	).Scan(&summary.CorrectCount, &summary.IncorrectCount, &summary.UniqueUsers, &summary.TotalAttempts)
	if err != nil {
		return summary, fmt.Errorf("failed to query classification summary: %w", err)
	}

	if summary.TotalAttempts > 0 {
		summary.Accuracy = math.Round(float64(summary.CorrectCount)/float64(summary.TotalAttempts)*1000) / 10
	}
	return summary, nil
}

// ConfusionPatterns returns the most frequent "said X, should be Y" pairs
func (r *AdminRepository) ConfusionPatterns(limit int) ([]models.ConfusionPair, error) {
	query := `
		SELECT
			attempted_label,
			correct_label,
			COUNT(*) AS frequency,
			COUNT(DISTINCT user_id) AS users_affected
		FROM telemetry
		WHERE kind = ? AND attempted_label <> '' AND correct_label <> ''
		GROUP BY attempted_label, correct_label
		ORDER BY frequency DESC
		LIMIT ?
	`
	rows, err := r.db.Query(query, models.EventClassificationFailure, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query confusion patterns: %w", err)
	}
	defer rows.Close()

	var pairs []models.ConfusionPair
	for rows.Next() {
		var p models.ConfusionPair
		if err := rows.Scan(&p.UserSaid, &p.ShouldBe, &p.Frequency, &p.UsersAffected); err != nil {
			return nil, err
		}
		pairs = append(pairs, p)
	}
	return pairs, rows.Err()
}

// ProblemImages returns the images players misclassify most often
func (r *AdminRepository) ProblemImages(limit int) ([]models.ProblemImage, error) {
	query := `
		SELECT
			image_name,
			correct_label,
			COUNT(*) AS mistake_count,
			COUNT(DISTINCT user_id) AS users_affected
		FROM telemetry
		WHERE kind = ? AND image_name <> ''
		GROUP BY image_name, correct_label
		ORDER BY mistake_count DESC
		LIMIT ?
	`
	rows, err := r.db.Query(query, models.EventClassificationFailure, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query problem images: %w", err)
	}
	defer rows.Close()

	var images []models.ProblemImage
	for rows.Next() {
		var img models.ProblemImage
		if err := rows.Scan(&img.ImageName, &img.CorrectLabel, &img.MistakeCount, &img.UsersAffected); err != nil {
			return nil, err
		}
		images = append(images, img)
	}
	return images, rows.Err()
}

// ActiveUsersSince counts users whose last activity is after the cutoff
func (r *AdminRepository) ActiveUsersSince(cutoff time.Time) (int, error) {
	var count int
	err := r.db.QueryRow("SELECT COUNT(*) FROM users WHERE last_active IS NOT NULL AND last_active >= ?", cutoff).Scan(&count)
	return count, err
}
