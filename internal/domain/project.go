package domain

import (
	"fmt"
	"regexp"
	"time"
)

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)

// Project represents a knowledge-base project scoped to a user
type Project struct {
	ID        string
	UserID    string
	Name      string
	Slug      string
	CreatedAt time.Time
}

// NewProject creates a new Project instance
func NewProject(id, userID, name, slug string, createdAt time.Time) *Project {
	return &Project{
		ID:        id,
		UserID:    userID,
		Name:      name,
		Slug:      slug,
		CreatedAt: createdAt,
	}
}

// ValidateProject validates a Project instance
func ValidateProject(p *Project) error {
	if p == nil {
		return fmt.Errorf("project cannot be nil")
	}

	if p.ID == "" {
		return fmt.Errorf("project ID is required")
	}

	if p.UserID == "" {
		return fmt.Errorf("project UserID is required")
	}

	if p.Name == "" {
		return fmt.Errorf("project Name is required")
	}

	if !IsValidSlug(p.Slug) {
		return fmt.Errorf("project Slug is invalid: %s", p.Slug)
	}

	return nil
}

// IsValidSlug checks that a slug is lowercase alphanumeric with hyphens
func IsValidSlug(slug string) bool {
	return slug != "" && slugPattern.MatchString(slug)
}
