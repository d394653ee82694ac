package domain

import (
	"fmt"
	"time"
)

// GapType classifies an unanswered query as a reported problem or a question
type GapType string

const (
	GapTypeIssue   GapType = "issue"
	GapTypeInquiry GapType = "inquiry"
)

// Issue severity and status defaults for auto-detected gaps
const (
	GapSeverityMedium = "medium"
	GapStatusOpen     = "open"
)

// gapTitleQueryLen bounds the query excerpt embedded in a derived title;
// longer queries are truncated with an ellipsis.
const gapTitleQueryLen = 24

// DefaultGapTags marks records created by automatic gap detection.
var DefaultGapTags = []string{"ai-gap", "needs-review", "auto-detected"}

// GapRecord captures a query that retrieval could not answer. Issue records
// additionally carry Severity and Status; inquiry records leave them empty.
// Records are immutable once created by this subsystem.
type GapRecord struct {
	ID          string
	Type        GapType
	Title       string
	Description string
	Tags        []string
	Severity    string
	Status      string
	ProjectID   string
	UserID      string
	CreatedAt   time.Time
}

// NewGapRecord creates a GapRecord for the given query. The title is the
// query truncated to 24 characters (plus ellipsis when longer), prefixed with
// "Knowledge Gap:"; the description keeps the full query text.
func NewGapRecord(id string, gapType GapType, query, projectID, userID string, now time.Time) *GapRecord {
	rec := &GapRecord{
		ID:          id,
		Type:        gapType,
		Title:       GapTitle(query),
		Description: query,
		Tags:        append([]string(nil), DefaultGapTags...),
		ProjectID:   projectID,
		UserID:      userID,
		CreatedAt:   now,
	}
	if gapType == GapTypeIssue {
		rec.Severity = GapSeverityMedium
		rec.Status = GapStatusOpen
	}
	return rec
}

// GapTitle derives the bounded record title from a query string.
func GapTitle(query string) string {
	const prefix = "Knowledge Gap: "
	runes := []rune(query)
	if len(runes) > gapTitleQueryLen {
		return prefix + string(runes[:gapTitleQueryLen]) + "..."
	}
	return prefix + string(runes)
}

// ValidateGapRecord validates a GapRecord instance
func ValidateGapRecord(g *GapRecord) error {
	if g == nil {
		return fmt.Errorf("gap record cannot be nil")
	}

	if g.ID == "" {
		return fmt.Errorf("gap record ID is required")
	}

	if !IsValidGapType(g.Type) {
		return fmt.Errorf("gap record Type is invalid: %s", g.Type)
	}

	if g.Title == "" {
		return fmt.Errorf("gap record Title is required")
	}

	if g.Description == "" {
		return fmt.Errorf("gap record Description is required")
	}

	if g.ProjectID == "" {
		return fmt.Errorf("gap record ProjectID is required")
	}

	if g.UserID == "" {
		return fmt.Errorf("gap record UserID is required")
	}

	return nil
}

// IsValidGapType checks if a GapType is valid
func IsValidGapType(t GapType) bool {
	return t == GapTypeIssue || t == GapTypeInquiry
}

// ChatRole identifies the author of a chat turn
type ChatRole string

const (
	ChatRoleUser      ChatRole = "user"
	ChatRoleAssistant ChatRole = "assistant"
)

// ChatTurn is one entry in an append-only conversation history. The history
// is owned by the calling session; the core never persists it.
type ChatTurn struct {
	Role      ChatRole  `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp,omitempty"`
}

// IsValidChatRole checks if a ChatRole is valid
func IsValidChatRole(r ChatRole) bool {
	return r == ChatRoleUser || r == ChatRoleAssistant
}
