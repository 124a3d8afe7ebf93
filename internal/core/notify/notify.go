// Package notify defines notification records and the bounded queue that
// presents them.
package notify

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Level represents the severity of a notification.
type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelWarning Level = "warning"
	LevelDanger  Level = "danger"
)

// ErrUnknownLevel is returned by ParseLevel for values outside the level set.
var ErrUnknownLevel = errors.New("unknown notification level")

// ParseLevel converts a wire value into a Level. An empty value maps to
// LevelInfo.
func ParseLevel(s string) (Level, error) {
	switch l := Level(s); l {
	case "":
		return LevelInfo, nil
	case LevelInfo, LevelSuccess, LevelWarning, LevelDanger:
		return l, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownLevel, s)
	}
}

// Valid reports whether l is one of the known levels.
func (l Level) Valid() bool {
	switch l {
	case LevelInfo, LevelSuccess, LevelWarning, LevelDanger:
		return true
	}
	return false
}

// Record is a single notification owned by the Queue while visible.
type Record struct {
	ID        string
	Title     string
	Message   string
	Level     Level
	CreatedAt time.Time
}

// Store persists notification history to durable storage.
type Store interface {
	Save(ctx context.Context, r Record) error
	List(ctx context.Context, limit int) ([]Record, error)
	Clear(ctx context.Context) error
	Count(ctx context.Context) (int64, error)
}
