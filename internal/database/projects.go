package database

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"snapstage-backend/internal/models"
)

func (c *Client) CreateProject(userID uuid.UUID, name string) (*models.Project, error) {
	var project models.Project
	err := c.db.QueryRow(`
		INSERT INTO projects (id, user_id, name, status)
		VALUES ($1, $2, $3, $4)
		RETURNING id, user_id, name, status, error_message, created_at, updated_at
	`, uuid.New(), userID, name, models.ProjectDraft).Scan(
		&project.ID, &project.UserID, &project.Name, &project.Status,
		&project.ErrorMessage, &project.CreatedAt, &project.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create project: %w", err)
	}

	return &project, nil
}

func (c *Client) GetProject(projectID, userID uuid.UUID) (*models.Project, error) {
	var project models.Project
	err := c.db.QueryRow(`
		SELECT id, user_id, name, status, error_message, created_at, updated_at
		FROM projects
		WHERE id = $1 AND user_id = $2
	`, projectID, userID).Scan(
		&project.ID, &project.UserID, &project.Name, &project.Status,
		&project.ErrorMessage, &project.CreatedAt, &project.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get project: %w", err)
	}

	return &project, nil
}

func (c *Client) ListProjects(userID uuid.UUID) ([]models.Project, error) {
	rows, err := c.db.Query(`
		SELECT id, user_id, name, status, error_message, created_at, updated_at
		FROM projects
		WHERE user_id = $1
		ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	defer rows.Close()

	var projects []models.Project
	for rows.Next() {
		var project models.Project
		err := rows.Scan(
			&project.ID, &project.UserID, &project.Name, &project.Status,
			&project.ErrorMessage, &project.CreatedAt, &project.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan project: %w", err)
		}
		projects = append(projects, project)
	}

	return projects, nil
}

func (c *Client) UpdateProjectStatus(projectID uuid.UUID, status string) error {
	_, err := c.db.Exec(`
		UPDATE projects
		SET status = $1, updated_at = NOW()
		WHERE id = $2
	`, status, projectID)
	if err != nil {
		return fmt.Errorf("failed to update project status: %w", err)
	}

	return nil
}
