package complaint

import "context"

// Document namespaces. Raw holds intake records exactly as submitted;
// analyzed holds the enriched records the lifecycle mutates thereafter.
const (
	NamespaceRaw      = "raw"
	NamespaceAnalyzed = "analyzed"
)

// Store is the persistence interface for complaint documents. Documents are
// replaced wholesale: a concurrent reader sees either the old or the new
// document, never a mix. A missing document is (nil, false, nil), not an
// error.
type Store interface {
	// Put upserts the document under (namespace, id). Last writer wins.
	Put(ctx context.Context, namespace, id string, c *Complaint) error

	// PutRev upserts only if the stored revision equals expected
	// (0 = must not exist yet). Returns ErrConflict on mismatch.
	PutRev(ctx context.Context, namespace, id string, c *Complaint, expected int64) error

	// Get returns the document and its current revision.
	Get(ctx context.Context, namespace, id string) (*Complaint, bool, error)

	// ListIDs returns all identifiers in the namespace under the prefix.
	ListIDs(ctx context.Context, namespace, prefix string) ([]string, error)
}

// ProofStore persists resolution evidence blobs and returns a stable URL.
type ProofStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) (url string, err error)
}

// Summarizer is the external AI enrichment contract. Implementations must
// tolerate being absent entirely; callers degrade to a truncated
// description when Summarize fails.
type Summarizer interface {
	Summarize(ctx context.Context, title, description string) (*Summary, error)
}

// Notifier receives analyzed complaints that warrant operator attention.
type Notifier interface {
	Send(ctx context.Context, c *Complaint) error
}
