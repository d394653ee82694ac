package service

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/lumenkb/lumen/internal/domain"
)

// DefaultMaxChunkWords bounds a chunk to roughly 2-5 sentences.
const DefaultMaxChunkWords = 75

const chunkingSystemPrompt = `You are a text segmentation assistant. Split the provided content into semantically self-contained chunks.

Requirements:
- Each chunk must be at most the given word limit (roughly 2-5 sentences).
- Prefer breaking on sentence and paragraph boundaries.
- Each chunk needs a short one-sentence summary.
- Each chunk needs up to 5 representative keywords.

Respond with a JSON array only, each element shaped as:
{"content": "...", "summary": "...", "keywords": ["..."]}`

// sentenceEnd matches end-of-sentence punctuation followed by whitespace or
// end of input.
var sentenceEnd = regexp.MustCompile(`[.!?]+(\s+|$)`)

var fallbackStopwords = map[string]struct{}{
	"this": {}, "that": {}, "these": {}, "those": {}, "with": {}, "from": {},
	"have": {}, "has": {}, "what": {}, "when": {}, "where": {}, "which": {},
	"will": {}, "would": {}, "could": {}, "should": {}, "about": {},
	"there": {}, "their": {}, "they": {}, "them": {}, "then": {}, "than": {},
	"your": {}, "been": {}, "were": {}, "into": {}, "because": {}, "also": {},
	"just": {}, "only": {}, "some": {}, "more": {}, "most": {}, "other": {},
	"such": {}, "very": {}, "over": {}, "does": {}, "doing": {}, "being": {},
}

// ChunkingService splits raw content into bounded chunks with summaries and
// keywords. The model-assisted path is preferred; any failure there routes to
// a deterministic sentence-based fallback, so Chunk never fails for non-empty
// input.
type ChunkingService struct {
	oracle CompletionClient
}

// NewChunkingService creates a ChunkingService. A nil oracle disables the
// model-assisted path and always uses the fallback.
func NewChunkingService(oracle CompletionClient) *ChunkingService {
	return &ChunkingService{oracle: oracle}
}

// Chunk splits content into chunks of at most maxWords words each. Returns an
// empty slice for blank input. maxWords <= 0 uses DefaultMaxChunkWords.
func (s *ChunkingService) Chunk(ctx context.Context, content string, maxWords int) []domain.Chunk {
	if strings.TrimSpace(content) == "" {
		return []domain.Chunk{}
	}
	if maxWords <= 0 {
		maxWords = DefaultMaxChunkWords
	}

	if s.oracle != nil {
		if chunks, err := s.chunkWithOracle(ctx, content, maxWords); err == nil {
			return chunks
		}
	}

	return fallbackChunk(content, maxWords)
}

func (s *ChunkingService) chunkWithOracle(ctx context.Context, content string, maxWords int) ([]domain.Chunk, error) {
	prompt := fmt.Sprintf("Word limit per chunk: %d\n\nContent:\n%s", maxWords, content)
	raw, err := s.oracle.Complete(ctx, chunkingSystemPrompt, prompt)
	if err != nil {
		return nil, err
	}

	parsed, err := extractChunkArray(raw)
	if err != nil {
		return nil, err
	}
	if len(parsed) == 0 {
		return nil, fmt.Errorf("oracle returned no chunks")
	}

	chunks := make([]domain.Chunk, 0, len(parsed))
	for _, p := range parsed {
		c := strings.TrimSpace(p.Content)
		if c == "" {
			return nil, fmt.Errorf("oracle returned chunk with empty content")
		}
		keywords := p.Keywords
		if len(keywords) > domain.MaxChunkKeywords {
			keywords = keywords[:domain.MaxChunkKeywords]
		}
		chunks = append(chunks, domain.Chunk{
			Content:  c,
			Summary:  strings.TrimSpace(p.Summary),
			Keywords: keywords,
		})
	}

	return numberChunks(chunks), nil
}

type oracleChunk struct {
	Content  string   `json:"content"`
	Summary  string   `json:"summary"`
	Keywords []string `json:"keywords"`
}

// extractChunkArray recovers the first valid JSON array from a completion,
// tolerating surrounding prose.
func extractChunkArray(raw string) ([]oracleChunk, error) {
	for i := 0; i < len(raw); i++ {
		if raw[i] != '[' {
			continue
		}
		dec := json.NewDecoder(strings.NewReader(raw[i:]))
		var parsed []oracleChunk
		if err := dec.Decode(&parsed); err == nil {
			return parsed, nil
		}
	}
	return nil, fmt.Errorf("no valid JSON array in oracle response")
}

// fallbackChunk greedily packs whole sentences into chunks. A sentence is
// never split, so a single sentence longer than maxWords becomes its own
// oversized chunk.
func fallbackChunk(content string, maxWords int) []domain.Chunk {
	sentences := splitSentences(content)
	if len(sentences) == 0 {
		return []domain.Chunk{}
	}

	var chunks []domain.Chunk
	var current []string
	currentWords := 0

	flush := func() {
		if len(current) == 0 {
			return
		}
		text := strings.Join(current, " ")
		chunks = append(chunks, domain.Chunk{
			Content:  text,
			Summary:  current[0],
			Keywords: extractKeywords(text),
		})
		current = nil
		currentWords = 0
	}

	for _, sentence := range sentences {
		words := len(strings.Fields(sentence))
		if currentWords > 0 && currentWords+words > maxWords {
			flush()
		}
		current = append(current, sentence)
		currentWords += words
	}
	flush()

	return numberChunks(chunks)
}

func splitSentences(text string) []string {
	var sentences []string
	remaining := strings.TrimSpace(text)
	for remaining != "" {
		loc := sentenceEnd.FindStringIndex(remaining)
		if loc == nil {
			sentences = append(sentences, remaining)
			break
		}
		sentence := strings.TrimSpace(remaining[:loc[1]])
		if sentence != "" {
			sentences = append(sentences, sentence)
		}
		remaining = strings.TrimSpace(remaining[loc[1]:])
	}
	return sentences
}

// extractKeywords lower-cases, strips punctuation, drops short tokens and
// stopwords, dedupes preserving first-seen order, and keeps the first 5.
func extractKeywords(text string) []string {
	seen := make(map[string]struct{})
	keywords := make([]string, 0, domain.MaxChunkKeywords)

	for _, token := range strings.Fields(strings.ToLower(text)) {
		token = strings.TrimFunc(token, func(r rune) bool {
			return !('a' <= r && r <= 'z') && !('0' <= r && r <= '9')
		})
		if len(token) <= 3 {
			continue
		}
		if _, stop := fallbackStopwords[token]; stop {
			continue
		}
		if _, dup := seen[token]; dup {
			continue
		}
		seen[token] = struct{}{}
		keywords = append(keywords, token)
		if len(keywords) == domain.MaxChunkKeywords {
			break
		}
	}

	return keywords
}

// numberChunks assigns 1-based chunkIndex and a uniform totalChunks after the
// full sequence is known.
func numberChunks(chunks []domain.Chunk) []domain.Chunk {
	for i := range chunks {
		chunks[i].ChunkIndex = i + 1
		chunks[i].TotalChunks = len(chunks)
	}
	return chunks
}
