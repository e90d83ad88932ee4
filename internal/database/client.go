package database

import (
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/lib/pq"
)

// ErrNotFound is returned when a record does not exist or is not visible to
// the requesting user.
var ErrNotFound = errors.New("record not found")

// ErrConflict is returned when a conditional update matched no rows because
// the record changed since it was read (optimistic-lock collision or an
// illegal state transition).
var ErrConflict = errors.New("concurrent update conflict")

// ErrInsufficientCredits is returned by DebitCredits when the balance does
// not cover the requested amount.
var ErrInsufficientCredits = errors.New("insufficient credits")

type Client struct {
	db *sql.DB
}

func NewClient(connectionString string) (*Client, error) {
	db, err := sql.Open("postgres", connectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Client{db: db}, nil
}

func (c *Client) Close() error {
	return c.db.Close()
}
