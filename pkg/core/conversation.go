package core

import (
	"context"
	"log"
	"time"

	"github.com/datasage-ai/membank-go/pkg/metastore"
	"github.com/datasage-ai/membank-go/pkg/scoring"
)

// ConversationMemory is the dialogue-memory policy over a shared Manager.
//
// It scopes every operation to conversation records and adds the decay and
// reinforcement rules: relevance erodes over time and strengthens on access.
//
// Scoring always applies decay lazily from the stored relevance and its
// decay base; ApplyDecay and ApplyDecayToAll are explicit write-back
// compaction passes that callers may trigger, never a prerequisite for
// correct retrieval ordering.
type ConversationMemory struct {
	manager *Manager
}

// NewConversationMemory creates the conversation policy over a manager.
// Multiple policies may share one manager instance.
func NewConversationMemory(manager *Manager) *ConversationMemory {
	return &ConversationMemory{manager: manager}
}

// Store stores a conversation memory and returns its id.
func (c *ConversationMemory) Store(ctx context.Context, text, userID string, opts ...StoreOption) (string, error) {
	opts = append(opts, WithKind(KindConversation))
	return c.manager.Store(ctx, text, userID, opts...)
}

// Retrieve returns the user's conversation memories ranked by blended score.
func (c *ConversationMemory) Retrieve(ctx context.Context, query, userID string, opts ...RetrieveOption) ([]*Result, error) {
	opts = append(opts, WithKindFilter(KindConversation))
	return c.manager.Retrieve(ctx, query, userID, opts...)
}

// Update merges fields into a conversation memory. See Manager.Update.
func (c *ConversationMemory) Update(ctx context.Context, id string, updates map[string]interface{}) (bool, error) {
	return c.manager.Update(ctx, id, updates)
}

// Delete removes a conversation memory. See Manager.Delete.
func (c *ConversationMemory) Delete(ctx context.Context, id string) (bool, error) {
	return c.manager.Delete(ctx, id)
}

// ApplyDecay writes back a decayed relevance score for one record and
// stamps the decay base, so later lazy scoring continues from this point
// instead of compounding the decay.
//
// A non-positive decayRate uses the manager default. Returns (false, nil)
// when the id is unknown.
func (c *ConversationMemory) ApplyDecay(ctx context.Context, id string, decayRate float64) (bool, error) {
	if decayRate <= 0 {
		decayRate = c.manager.defaults.DecayRate
	}

	now := time.Now().UTC()
	ok, err := c.manager.mutate(ctx, id, func(record *metastore.Record) {
		record.RelevanceScore = scoring.Decay(record.RelevanceScore, storeDecayBase(record), now, decayRate)
		t := now
		record.DecayedAt = &t
	})
	if err != nil {
		return false, NewMemoryError("ApplyDecay", err)
	}
	return ok, nil
}

// ApplyDecayToAll runs the decay write-back over every conversation record
// owned by userID. Returns the number of records updated.
func (c *ConversationMemory) ApplyDecayToAll(ctx context.Context, userID string, decayRate float64) (int, error) {
	if userID == "" {
		return 0, NewMemoryError("ApplyDecayToAll", ErrInvalidInput)
	}

	records, err := c.manager.store.Query(ctx, map[string]interface{}{
		"user_id": userID,
		"kind":    KindConversation,
	})
	if err != nil {
		return 0, NewMemoryError("ApplyDecayToAll", err)
	}

	updated := 0
	for id := range records {
		ok, err := c.ApplyDecay(ctx, id, decayRate)
		if err != nil {
			return updated, err
		}
		if ok {
			updated++
		}
	}
	log.Printf("applied decay to %d conversation memories for user %s", updated, userID)
	return updated, nil
}

// Reinforce strengthens a memory when it is accessed:
//
//	relevance = min(1.0, relevance + amount)
//
// It also increments the access count and refreshes the last-accessed
// timestamp. A non-positive amount uses the manager default (0.1).
// Returns (false, nil) when the id is unknown.
func (c *ConversationMemory) Reinforce(ctx context.Context, id string, amount float64) (bool, error) {
	if amount <= 0 {
		amount = c.manager.defaults.ReinforceAmount
	}

	now := time.Now().UTC()
	ok, err := c.manager.mutate(ctx, id, func(record *metastore.Record) {
		record.RelevanceScore = clampScore(record.RelevanceScore + amount)
		record.AccessCount++
		record.LastAccessedAt = now
	})
	if err != nil {
		return false, NewMemoryError("Reinforce", err)
	}
	return ok, nil
}
