// Package service orchestrates one chat turn end to end: validate, consult
// the session cache, retrieve and assemble context, request a completion and
// record the exchange.
package service

import (
	"context"

	"github.com/AbdulwahidHusein/LawChat/internal/assembler"
	"github.com/AbdulwahidHusein/LawChat/internal/citation"
	"github.com/AbdulwahidHusein/LawChat/internal/domain"
	"github.com/AbdulwahidHusein/LawChat/internal/logger"
	"github.com/AbdulwahidHusein/LawChat/internal/session"
)

// Answer is the outcome of one successful chat turn.
type Answer struct {
	Text      string
	Sources   []domain.RetrievedSource
	Citations []citation.Citation
	Cached    bool
}

// Assistant answers queries against the indexed corpus. It holds no
// per-conversation state; everything conversational lives in the session
// passed to Ask.
type Assistant struct {
	assembler *assembler.Assembler
	completer domain.Completer
	model     string
	// credentialID namespaces cache keys per credential. It is the name of
	// the env var holding the key, never the key itself.
	credentialID string
}

// New creates an assistant.
func New(asm *assembler.Assembler, completer domain.Completer, model, credentialID string) *Assistant {
	return &Assistant{
		assembler:    asm,
		completer:    completer,
		model:        model,
		credentialID: credentialID,
	}
}

// Ask runs one query through the pipeline. The session is only written on
// success: a failed turn appends no history, so failures are never recorded
// as answered. Invalid queries are rejected before any remote call.
func (a *Assistant) Ask(ctx context.Context, sess *session.Session, query string) (Answer, error) {
	if err := assembler.ValidateQuery(query); err != nil {
		return Answer{}, err
	}

	key := session.CacheKey(query, a.model, a.credentialID)
	if entry, ok := sess.Cache().Get(key); ok {
		logger.Debug("cache hit for query")
		cited, _ := citation.Resolve(entry.Answer, entry.Sources)
		a.commit(sess, query, entry.Answer, entry.Sources)
		return Answer{Text: entry.Answer, Sources: entry.Sources, Citations: cited, Cached: true}, nil
	}

	// The current question reaches the model through history, so assemble
	// over the would-be history including it. Nothing is committed to the
	// session until the turn succeeds.
	history := append(append([]domain.Message{}, sess.Messages()...),
		domain.Message{Role: domain.RoleUser, Content: query})

	result, err := a.assembler.Assemble(ctx, query, history)
	if err != nil {
		return Answer{}, err
	}
	text, err := a.completer.Complete(ctx, result.Messages)
	if err != nil {
		return Answer{}, err
	}

	cited, unresolved := citation.Resolve(text, result.Sources)
	if len(unresolved) > 0 {
		logger.Warn("answer cites %d sources outside the retrieved set", len(unresolved))
	}

	a.commit(sess, query, text, result.Sources)
	sess.Cache().Put(key, session.CacheEntry{Answer: text, Sources: result.Sources})
	return Answer{Text: text, Sources: result.Sources, Citations: cited}, nil
}

func (a *Assistant) commit(sess *session.Session, query, answer string, sources []domain.RetrievedSource) {
	sess.Append(domain.RoleUser, query)
	sess.Append(domain.RoleAssistant, answer)
	sess.IncrementChatCount()
	sess.SetLastSources(sources)
	sess.RecordSearch(query, answer)
}
