// Package service exposes the memory store to a surrounding orchestrator as
// four operations with JSON-serializable inputs and outputs.
package service

import (
	"context"

	"github.com/datasage-ai/membank-go/pkg/core"
)

// Defaults applied when a caller passes a non-positive max result count.
const (
	defaultMemoryResults   = 5
	defaultArtifactResults = 3
)

// Service is the orchestrator-facing facade over the memory store.
//
// It wires the conversation and artifact policies over one shared manager,
// so conversation memories and their derived artifacts live in the same
// substrate and ids are unique across both kinds.
type Service struct {
	manager       *core.Manager
	conversations *core.ConversationMemory
	artifacts     *core.ArtifactMemory
}

// New creates a service over a memory manager.
func New(manager *core.Manager) *Service {
	return &Service{
		manager:       manager,
		conversations: core.NewConversationMemory(manager),
		artifacts:     core.NewArtifactMemory(manager),
	}
}

// Conversations returns the underlying conversation policy, for callers
// that need decay or reinforcement beyond the four wire operations.
func (s *Service) Conversations() *core.ConversationMemory {
	return s.conversations
}

// Artifacts returns the underlying artifact policy.
func (s *Service) Artifacts() *core.ArtifactMemory {
	return s.artifacts
}

// Memory is one conversation retrieval result on the wire.
type Memory struct {
	MemoryID  string  `json:"memory_id"`
	Text      string  `json:"text"`
	Type      string  `json:"type"`
	Relevance float64 `json:"relevance"`
}

// ConversationContext is the result envelope of RetrieveConversationContext.
type ConversationContext struct {
	Memories []Memory `json:"memories"`
}

// Artifact is one artifact retrieval result on the wire. DataContent
// carries the full stored payload so the orchestrator can reuse it without
// a second lookup.
type Artifact struct {
	ArtifactID  string  `json:"artifact_id"`
	MemoryID    string  `json:"memory_id"`
	DataType    string  `json:"data_type"`
	Summary     string  `json:"summary"`
	Relevance   float64 `json:"relevance"`
	DataContent string  `json:"data_content"`
}

// ArtifactList is the result envelope of RetrieveDataArtifacts.
type ArtifactList struct {
	Artifacts []Artifact `json:"artifacts"`
}

// StoreMemory stores a conversation memory and returns its id.
//
// memoryType defaults to "conversation" and is surfaced as the "type" field
// on retrieval.
func (s *Service) StoreMemory(ctx context.Context, text, userID, memoryType string) (string, error) {
	if memoryType == "" {
		memoryType = "conversation"
	}
	return s.conversations.Store(ctx, text, userID, core.WithMemoryType(memoryType))
}

// StoreDataArtifact stores a data artifact linked to an existing
// conversation memory and returns the artifact id.
//
// The artifact's owner is resolved from the linked memory, so a duplicate
// payload stored against any of a user's memories returns the same artifact
// id. An unknown memoryID yields ErrNotFound.
func (s *Service) StoreDataArtifact(ctx context.Context, memoryID, dataType, dataContent, summary string) (string, error) {
	linked, err := s.manager.Get(ctx, memoryID)
	if err != nil {
		return "", err
	}

	opts := []core.StoreOption{
		core.WithDataType(dataType),
		core.WithLinkedMemoryID(memoryID),
	}
	if summary != "" {
		opts = append(opts, core.WithSummary(summary))
	}
	return s.artifacts.Store(ctx, dataContent, linked.UserID, opts...)
}

// RetrieveConversationContext returns the user's conversation memories most
// relevant to the query, ranked by blended score. Zero matches yield an
// empty list, never an error.
func (s *Service) RetrieveConversationContext(ctx context.Context, query, userID string, maxResults int) (*ConversationContext, error) {
	if maxResults <= 0 {
		maxResults = defaultMemoryResults
	}

	results, err := s.conversations.Retrieve(ctx, query, userID, core.WithLimit(maxResults))
	if err != nil {
		return nil, err
	}

	out := &ConversationContext{Memories: make([]Memory, 0, len(results))}
	for _, result := range results {
		out.Memories = append(out.Memories, Memory{
			MemoryID:  result.Record.ID,
			Text:      result.Record.Content,
			Type:      result.Record.MemoryType(),
			Relevance: result.Score,
		})
	}
	return out, nil
}

// RetrieveDataArtifacts returns the user's data artifacts most relevant to
// the query, ranked by blended score. Zero matches yield an empty list,
// never an error.
func (s *Service) RetrieveDataArtifacts(ctx context.Context, query, userID string, maxResults int) (*ArtifactList, error) {
	if maxResults <= 0 {
		maxResults = defaultArtifactResults
	}

	results, err := s.artifacts.Retrieve(ctx, query, userID, core.WithLimit(maxResults))
	if err != nil {
		return nil, err
	}

	out := &ArtifactList{Artifacts: make([]Artifact, 0, len(results))}
	for _, result := range results {
		out.Artifacts = append(out.Artifacts, Artifact{
			ArtifactID:  result.Record.ID,
			MemoryID:    result.Record.LinkedMemoryID,
			DataType:    result.Record.DataType,
			Summary:     result.Record.Summary,
			Relevance:   result.Score,
			DataContent: result.Record.Content,
		})
	}
	return out, nil
}
