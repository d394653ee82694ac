package service

import (
	"context"
	"log"
	"regexp"
	"strings"
	"time"

	"github.com/lumenkb/lumen/internal/domain"
	"github.com/lumenkb/lumen/internal/pagination"
	"github.com/lumenkb/lumen/internal/telemetry"
)

// minSubstantialLength and minSubstantialWords gate out queries too short to
// describe a real knowledge gap.
const (
	minSubstantialLength = 15
	minSubstantialWords  = 4
)

// greetings are rejected on exact match of the trimmed, lower-cased query.
var greetings = map[string]struct{}{
	"hi": {}, "hello": {}, "hey": {}, "thanks": {}, "thank you": {},
	"help me": {}, "ok": {}, "okay": {}, "yes": {}, "no": {}, "bye": {},
	"goodbye": {}, "good morning": {}, "good afternoon": {}, "good evening": {},
}

// genericHelpPattern matches polite help requests with no actual content.
var genericHelpPattern = regexp.MustCompile(`(?i)\b(can|could|would|will|please)\b.*\b(help|assist)\b`)

// responseEchoPatterns match replies to the assistant rather than new
// questions.
var responseEchoPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(didn'?t|doesn'?t|did not|does not)\s+(help|work|answer)\b`),
	regexp.MustCompile(`(?i)\bcontact\s+(support|us|the\s+team)\b`),
	regexp.MustCompile(`(?i)^\s*i\s+(have|got|am\s+having)\s+(an?\s+)?(issue|problem)[\s.!?]*$`),
	regexp.MustCompile(`(?i)^\s*(that|this)\s+(is\s+)?(not\s+)?(it|right|what\s+i\s+meant)[\s.!?]*$`),
}

var issueKeywords = map[string]struct{}{
	"error": {}, "errors": {}, "bug": {}, "bugs": {}, "broken": {},
	"crash": {}, "crashes": {}, "crashed": {}, "fails": {}, "failed": {},
	"failing": {}, "failure": {}, "wrong": {}, "stuck": {}, "freeze": {},
	"frozen": {}, "unable": {}, "cannot": {}, "malfunction": {}, "defect": {},
	"glitch": {},
}

var inquiryKeywords = map[string]struct{}{
	"how": {}, "what": {}, "why": {}, "when": {}, "where": {}, "who": {},
	"which": {}, "can": {}, "could": {}, "would": {}, "should": {},
	"explain": {}, "guide": {}, "tutorial": {}, "example": {}, "difference": {},
	"setup": {}, "configure": {}, "learn": {}, "understand": {},
}

// IsSubstantialQuery is the gap filter: a chain of predicates deciding
// whether an unanswered query warrants logging. Each gate short-circuits;
// misses are preferred over spurious gap records.
func IsSubstantialQuery(query string) bool {
	trimmed := strings.TrimSpace(query)

	if len(trimmed) < minSubstantialLength {
		return false
	}

	if len(strings.Fields(trimmed)) < minSubstantialWords {
		return false
	}

	if _, greeting := greetings[strings.ToLower(trimmed)]; greeting {
		return false
	}

	if genericHelpPattern.MatchString(trimmed) {
		return false
	}

	for _, pattern := range responseEchoPatterns {
		if pattern.MatchString(trimmed) {
			return false
		}
	}

	return true
}

// GapClassifier decides whether an unanswered query reports a problem or
// asks a question.
type GapClassifier interface {
	Classify(ctx context.Context, query string) (domain.GapType, error)
}

// KeywordClassifier tallies issue and inquiry keywords; issue wins only on a
// strictly higher score, ties go to inquiry.
type KeywordClassifier struct{}

// Classify never fails.
func (c *KeywordClassifier) Classify(_ context.Context, query string) (domain.GapType, error) {
	issueScore, inquiryScore := 0, 0

	for _, token := range strings.Fields(strings.ToLower(query)) {
		token = strings.TrimFunc(token, func(r rune) bool {
			return !('a' <= r && r <= 'z') && r != '\''
		})
		if _, ok := issueKeywords[token]; ok {
			issueScore++
		}
		if _, ok := inquiryKeywords[token]; ok {
			inquiryScore++
		}
	}

	if issueScore > inquiryScore {
		return domain.GapTypeIssue, nil
	}
	return domain.GapTypeInquiry, nil
}

const classifierSystemPrompt = `Classify the user query as exactly one of ISSUE or INQUIRY.
ISSUE: the user reports something broken, failing, or behaving incorrectly.
INQUIRY: the user asks how something works or requests information.
Respond with the single word ISSUE or INQUIRY.`

// LLMClassifier asks the text oracle for a verdict, failing safe to inquiry
// on any error or unparseable response.
type LLMClassifier struct {
	oracle CompletionClient
}

func NewLLMClassifier(oracle CompletionClient) *LLMClassifier {
	return &LLMClassifier{oracle: oracle}
}

func (c *LLMClassifier) Classify(ctx context.Context, query string) (domain.GapType, error) {
	raw, err := c.oracle.Complete(ctx, classifierSystemPrompt, query)
	if err != nil {
		return domain.GapTypeInquiry, nil
	}

	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "ISSUE":
		return domain.GapTypeIssue, nil
	case "INQUIRY":
		return domain.GapTypeInquiry, nil
	}
	return domain.GapTypeInquiry, nil
}

// GapRepositoryInterface defines the repository interface for gap record
// persistence
type GapRepositoryInterface interface {
	Create(ctx context.Context, record *domain.GapRecord) error
	ListByProjectWithCursor(ctx context.Context, projectID, userID string, gapType *domain.GapType, cursor *pagination.Cursor, limit int) (*GapPageResult, error)
}

type GapPageResult struct {
	Items      []*domain.GapRecord
	NextCursor string
	HasMore    bool
}

// GapService detects and logs knowledge gaps for unanswered queries.
type GapService struct {
	repo       GapRepositoryInterface
	classifier GapClassifier
	uuidGen    UUIDGenerator
}

// NewGapService creates a new GapService instance
func NewGapService(repo GapRepositoryInterface, classifier GapClassifier, uuidGen UUIDGenerator) *GapService {
	if classifier == nil {
		classifier = &KeywordClassifier{}
	}
	if uuidGen == nil {
		uuidGen = &DefaultUUIDGenerator{}
	}
	return &GapService{
		repo:       repo,
		classifier: classifier,
		uuidGen:    uuidGen,
	}
}

// DetectAndLog runs the gap filter and, for substantial queries, classifies
// and persists a GapRecord. Persistence is best-effort: failures are logged
// and swallowed so they never block the chat answer. Returns the record (nil
// when filtered out) and whether a gap was detected.
func (s *GapService) DetectAndLog(ctx context.Context, query, projectID, userID string) (*domain.GapRecord, bool) {
	ctx, span := telemetry.StartSpan(ctx, "GapService.DetectAndLog", telemetry.SpanAttributes{
		UserID:    userID,
		ProjectID: projectID,
		Operation: "detect_gap",
	})
	defer span.End()

	if !IsSubstantialQuery(query) {
		return nil, false
	}

	gapType, err := s.classifier.Classify(ctx, query)
	if err != nil || !domain.IsValidGapType(gapType) {
		gapType = domain.GapTypeInquiry
	}

	record := domain.NewGapRecord(s.uuidGen.NewString(), gapType, query, projectID, userID, time.Now().UTC())

	if err := s.repo.Create(ctx, record); err != nil {
		log.Printf("gap: failed to persist %s record for project %s: %v", gapType, projectID, err)
		telemetry.CaptureError(ctx, err)
	}

	return record, true
}

// List returns gap records for a project, newest first, cursor-paginated.
func (s *GapService) List(ctx context.Context, projectID, userID string, gapType *domain.GapType, cursorToken string, limit int) (*GapPageResult, error) {
	if limit <= 0 {
		limit = 20
	}
	if gapType != nil && !domain.IsValidGapType(*gapType) {
		return nil, domain.ErrInvalidGapType
	}

	cursor, err := pagination.Decode(cursorToken)
	if err != nil {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "invalid cursor")
	}

	return s.repo.ListByProjectWithCursor(ctx, projectID, userID, gapType, cursor, limit)
}
