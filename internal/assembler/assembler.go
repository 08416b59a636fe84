// Package assembler turns a raw user query into ranked source passages and a
// token-bounded message list ready for a completion request.
package assembler

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/AbdulwahidHusein/LawChat/internal/domain"
	"github.com/AbdulwahidHusein/LawChat/internal/logger"
)

// Query length bounds, in characters after trimming.
const (
	MinQueryLength = 3
	MaxQueryLength = 500
)

// Ellipsis marks a source passage that was truncated for context assembly.
const Ellipsis = "..."

// Assembler retrieves relevant passages and builds the outgoing message list.
type Assembler struct {
	embedder           domain.Embedder
	index              domain.VectorIndex
	topK               int
	maxSources         int
	maxCharsPerSource  int
	maxHistoryMessages int
}

// Options bounds the assembly step.
type Options struct {
	TopK               int
	MaxSources         int
	MaxCharsPerSource  int
	MaxHistoryMessages int
}

// Result is what one assembly call produces: the ranked sources that went
// into the system message, and the message list to send for completion.
// Citations in the generated answer are positional within Sources.
type Result struct {
	Sources  []domain.RetrievedSource
	Messages []domain.Message
}

// New creates an assembler over the given embedder and index.
func New(embedder domain.Embedder, index domain.VectorIndex, opts Options) *Assembler {
	a := &Assembler{
		embedder:           embedder,
		index:              index,
		topK:               opts.TopK,
		maxSources:         opts.MaxSources,
		maxCharsPerSource:  opts.MaxCharsPerSource,
		maxHistoryMessages: opts.MaxHistoryMessages,
	}
	if a.topK <= 0 {
		a.topK = 3
	}
	if a.maxSources <= 0 {
		a.maxSources = 9
	}
	if a.maxCharsPerSource <= 0 {
		a.maxCharsPerSource = 2000
	}
	if a.maxHistoryMessages <= 0 {
		a.maxHistoryMessages = 6
	}
	return a
}

// ValidateQuery rejects queries outside the length bounds. Lengths are in
// runes, not bytes, so non-Latin scripts are measured correctly. Callers use
// it to fail before any remote call is made.
func ValidateQuery(query string) error {
	trimmed := strings.TrimSpace(query)
	n := utf8.RuneCountInString(trimmed)
	if n < MinQueryLength {
		return fmt.Errorf("%w: at least %d characters required", domain.ErrInvalidQuery, MinQueryLength)
	}
	if n > MaxQueryLength {
		return fmt.Errorf("%w: at most %d characters allowed", domain.ErrInvalidQuery, MaxQueryLength)
	}
	return nil
}

// Assemble embeds the query, retrieves and bounds the best-matching
// passages, and builds the outgoing message list: exactly one system message
// carrying the labeled sources, followed by at most the configured number of
// recent non-system history entries.
func (a *Assembler) Assemble(ctx context.Context, query string, history []domain.Message) (Result, error) {
	if err := ValidateQuery(query); err != nil {
		return Result{}, err
	}

	vector, err := a.embedder.Embed(ctx, query)
	if err != nil {
		return Result{}, err
	}
	sources, err := a.index.Query(ctx, vector, a.topK)
	if err != nil {
		return Result{}, err
	}
	if len(sources) > a.maxSources {
		sources = sources[:a.maxSources]
	}
	for i := range sources {
		sources[i].Text = truncate(sources[i].Text, a.maxCharsPerSource)
	}
	logger.Debug("retrieved %d sources for query", len(sources))

	messages := make([]domain.Message, 0, 1+a.maxHistoryMessages)
	messages = append(messages, domain.Message{
		Role:    domain.RoleSystem,
		Content: systemPrompt(sources),
	})
	messages = append(messages, boundedHistory(history, a.maxHistoryMessages)...)

	return Result{Sources: sources, Messages: messages}, nil
}

// boundedHistory removes system-role entries first, then keeps the most
// recent limit messages. Filtering before slicing matters: a system entry
// near the boundary must not displace a user or assistant message.
func boundedHistory(history []domain.Message, limit int) []domain.Message {
	filtered := make([]domain.Message, 0, len(history))
	for _, m := range history {
		if m.Role == domain.RoleSystem {
			continue
		}
		filtered = append(filtered, m)
	}
	if len(filtered) > limit {
		filtered = filtered[len(filtered)-limit:]
	}
	return filtered
}

// truncate cuts text to maxChars runes. Cutting on a rune boundary keeps the
// result valid UTF-8 regardless of script.
func truncate(text string, maxChars int) string {
	if utf8.RuneCountInString(text) <= maxChars {
		return text
	}
	return string([]rune(text)[:maxChars]) + Ellipsis
}

// systemPrompt labels each retained source with its 1-based rank so the
// model's [Source N] citations resolve positionally within this retrieval.
func systemPrompt(sources []domain.RetrievedSource) string {
	var b strings.Builder
	for i, src := range sources {
		fmt.Fprintf(&b, "\nSource %d [%s]: %s\n", i+1, src.SourceID, src.Text)
	}
	return fmt.Sprintf(`You are LawChat, a helpful legal research assistant.
You have access to the following relevant legal documents:

%s

Please use this context to answer the user's questions about legal matters.
When you reference specific information from these sources, cite the source as [Source X].
If the information is not in the provided context, acknowledge that and provide general legal information,
but make it clear that this is general information and not specific legal advice.
Always maintain a professional, helpful tone and format your responses clearly.
`, b.String())
}
