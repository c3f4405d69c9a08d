package domain

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

// Palette is the fixed set of colours a category may use.
var Palette = []string{
	"#22c55e",
	"#16a34a",
	"#ef4444",
	"#dc2626",
	"#3b82f6",
	"#8b5cf6",
	"#f59e0b",
	"#ec4899",
	"#06b6d4",
	"#6366f1",
}

// DefaultColor is used when a category is created without a colour.
var DefaultColor = Palette[0]

// Category groups transactions of one type for one user.
type Category struct {
	ID        string          `json:"id"`
	UserID    string          `json:"user_id"`
	Name      string          `json:"name"`
	Type      TransactionType `json:"type"`
	Color     string          `json:"color"`
	CreatedAt time.Time       `json:"created_at,omitempty"`
}

// Normalize trims the name and lower-cases the colour, applying the default
// colour when none is set.
func (c *Category) Normalize() {
	c.Name = strings.TrimSpace(c.Name)
	c.Color = strings.ToLower(strings.TrimSpace(c.Color))
	if c.Color == "" {
		c.Color = DefaultColor
	}
}

// Validate checks a normalized category.
func (c Category) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("%w: category name is required", ErrInvalidInput)
	}
	if !c.Type.Valid() {
		return fmt.Errorf("%w: unknown category type %q", ErrInvalidInput, c.Type)
	}
	if !ValidColor(c.Color) {
		return fmt.Errorf("%w: color %q is not in the palette", ErrInvalidInput, c.Color)
	}
	return nil
}

// ValidColor reports whether color belongs to the palette.
func ValidColor(color string) bool {
	return slices.Contains(Palette, strings.ToLower(color))
}
