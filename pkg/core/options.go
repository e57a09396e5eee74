package core

import "github.com/datasage-ai/membank-go/pkg/scoring"

// StoreOption is a function type for configuring Store operations.
//
// Options are applied using the functional options pattern, allowing
// flexible configuration without requiring all parameters.
type StoreOption func(*StoreOptions)

// StoreOptions contains configuration options for Store operations.
type StoreOptions struct {
	// Kind is the record kind (KindConversation or KindArtifact).
	// Defaults to KindConversation.
	Kind string

	// Metadata contains additional metadata stored with the record.
	Metadata map[string]interface{}

	// MemoryType is a caller-supplied type attribute surfaced by
	// conversation retrieval (e.g. "conversation", "fact", "preference").
	MemoryType string

	// Summary is a human-readable description of the content.
	Summary string

	// DataType describes an artifact payload (e.g. "table").
	DataType string

	// LinkedMemoryID links an artifact back to the conversation memory
	// that produced it.
	LinkedMemoryID string

	// ContentHash is the digest of canonicalized artifact content.
	ContentHash string

	// EmbedText overrides the embedding source. When empty, the record
	// content is embedded. Artifact storage sets this to the summary.
	EmbedText string
}

// WithKind sets the record kind for Store operations.
func WithKind(kind string) StoreOption {
	return func(opts *StoreOptions) {
		opts.Kind = kind
	}
}

// WithMetadata sets additional metadata for Store operations.
//
// Example:
//
//	id, _ := manager.Store(ctx, "content", "user_001",
//	    core.WithMetadata(map[string]interface{}{"source": "chat"}))
func WithMetadata(metadata map[string]interface{}) StoreOption {
	return func(opts *StoreOptions) {
		opts.Metadata = metadata
	}
}

// WithMemoryType sets the memory type attribute for Store operations.
func WithMemoryType(memoryType string) StoreOption {
	return func(opts *StoreOptions) {
		opts.MemoryType = memoryType
	}
}

// WithSummary sets the summary for Store operations.
func WithSummary(summary string) StoreOption {
	return func(opts *StoreOptions) {
		opts.Summary = summary
	}
}

// WithDataType sets the artifact data type for Store operations.
func WithDataType(dataType string) StoreOption {
	return func(opts *StoreOptions) {
		opts.DataType = dataType
	}
}

// WithLinkedMemoryID links the stored artifact to a conversation memory.
func WithLinkedMemoryID(memoryID string) StoreOption {
	return func(opts *StoreOptions) {
		opts.LinkedMemoryID = memoryID
	}
}

// WithContentHash sets the content hash for Store operations.
func WithContentHash(hash string) StoreOption {
	return func(opts *StoreOptions) {
		opts.ContentHash = hash
	}
}

// WithEmbedText overrides the embedding source text for Store operations.
func WithEmbedText(text string) StoreOption {
	return func(opts *StoreOptions) {
		opts.EmbedText = text
	}
}

// applyStoreOptions applies store options to a default options struct.
func applyStoreOptions(opts []StoreOption) *StoreOptions {
	options := &StoreOptions{Kind: KindConversation}
	for _, opt := range opts {
		opt(options)
	}
	return options
}

// RetrieveOption is a function type for configuring Retrieve operations.
type RetrieveOption func(*RetrieveOptions)

// RetrieveOptions contains configuration options for Retrieve operations.
type RetrieveOptions struct {
	// Limit sets the maximum number of results to return.
	Limit int

	// Threshold is the minimum blended score for results.
	Threshold float64

	// HasThreshold marks Threshold as explicitly set, so a zero threshold
	// is distinguishable from an unset one.
	HasThreshold bool

	// DecayRate is the per-day relevance decay applied at scoring time.
	DecayRate float64

	// Kind restricts candidates to one record kind.
	Kind string
}

// WithLimit sets the maximum number of results for Retrieve operations.
//
// Example:
//
//	results, _ := manager.Retrieve(ctx, "query", "user_001", core.WithLimit(10))
func WithLimit(limit int) RetrieveOption {
	return func(opts *RetrieveOptions) {
		opts.Limit = limit
	}
}

// WithThreshold sets the minimum blended score for Retrieve operations.
func WithThreshold(threshold float64) RetrieveOption {
	return func(opts *RetrieveOptions) {
		opts.Threshold = threshold
		opts.HasThreshold = true
	}
}

// WithDecayRate sets the per-day decay rate for Retrieve operations.
func WithDecayRate(decayRate float64) RetrieveOption {
	return func(opts *RetrieveOptions) {
		opts.DecayRate = decayRate
	}
}

// WithKindFilter restricts Retrieve candidates to one record kind.
func WithKindFilter(kind string) RetrieveOption {
	return func(opts *RetrieveOptions) {
		opts.Kind = kind
	}
}

// applyRetrieveOptions applies retrieve options over the manager defaults.
func applyRetrieveOptions(opts []RetrieveOption, defaults MemoryDefaults) *RetrieveOptions {
	options := &RetrieveOptions{}
	for _, opt := range opts {
		opt(options)
	}
	if options.Limit <= 0 {
		options.Limit = defaults.Limit
	}
	if !options.HasThreshold {
		options.Threshold = defaults.Threshold
	}
	if options.DecayRate == 0 {
		options.DecayRate = defaults.DecayRate
	}
	return options
}

// MemoryDefaults holds the manager-level defaults applied when a retrieve
// or reinforcement call does not specify its own values.
type MemoryDefaults struct {
	// Limit is the default maximum result count. Default: 5.
	Limit int

	// Threshold is the default minimum blended score. Default: 0.5.
	Threshold float64

	// DecayRate is the default per-day decay rate. Default: 0.01.
	DecayRate float64

	// ReinforceAmount is the default relevance increase on access.
	// Default: 0.1.
	ReinforceAmount float64
}

// DefaultMemoryDefaults returns the standard defaults.
func DefaultMemoryDefaults() MemoryDefaults {
	return MemoryDefaults{
		Limit:           5,
		Threshold:       0.5,
		DecayRate:       scoring.DefaultDecayRate,
		ReinforceAmount: 0.1,
	}
}
