package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Preview regeneration rate limit: attempts per trailing-hour window.
const (
	MaxRegensPerHour = 10
	RegenWindow      = time.Hour
)

// AllowRegeneration consumes one regeneration attempt from the user's
// current window, opening a new window if the last one aged out. The
// increment is guarded in SQL (regen_count < ceiling), so concurrent callers
// can never push the count past the ceiling. A denied call consumes nothing.
func (c *Client) AllowRegeneration(userID uuid.UUID) (bool, int, error) {
	cutoff := time.Now().Add(-RegenWindow)

	var windowStart time.Time
	var count int
	err := c.db.QueryRow(`
		SELECT window_start, regen_count
		FROM preview_rate_limits
		WHERE user_id = $1 AND window_start >= $2
		ORDER BY window_start DESC
		LIMIT 1
	`, userID, cutoff).Scan(&windowStart, &count)

	if err == sql.ErrNoRows {
		_, err := c.db.Exec(`
			INSERT INTO preview_rate_limits (user_id, window_start, regen_count)
			VALUES ($1, NOW(), 1)
		`, userID)
		if err != nil {
			return false, 0, fmt.Errorf("failed to open rate limit window: %w", err)
		}
		return true, MaxRegensPerHour - 1, nil
	}
	if err != nil {
		return false, 0, fmt.Errorf("failed to read rate limit window: %w", err)
	}

	if count >= MaxRegensPerHour {
		return false, 0, nil
	}

	var newCount int
	err = c.db.QueryRow(`
		UPDATE preview_rate_limits
		SET regen_count = regen_count + 1
		WHERE user_id = $1 AND window_start = $2 AND regen_count < $3
		RETURNING regen_count
	`, userID, windowStart, MaxRegensPerHour).Scan(&newCount)
	if err == sql.ErrNoRows {
		return false, 0, nil
	}
	if err != nil {
		return false, 0, fmt.Errorf("failed to increment rate limit window: %w", err)
	}

	return true, MaxRegensPerHour - newCount, nil
}
