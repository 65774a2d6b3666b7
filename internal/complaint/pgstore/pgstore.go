// Package pgstore provides a PostgreSQL implementation of complaint.Store.
// Documents are stored as whole JSONB values keyed by (namespace, id), with
// a revision column backing the optional compare-and-swap write path.
package pgstore

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/linnemanlabs/redress/internal/complaint"
)

var tracer = otel.Tracer("github.com/linnemanlabs/redress/internal/complaint/pgstore")

//go:embed schema.sql
var schema string

// Store persists complaint documents in PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

// New applies the schema and returns a ready Store.
func New(ctx context.Context, pool *pgxpool.Pool) (*Store, error) {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{pool: pool}, nil
}

// Put upserts the document wholesale, bumping its revision.
func (s *Store) Put(ctx context.Context, namespace, id string, c *complaint.Complaint) error {
	ctx, span := s.startSpan(ctx, "pgstore.Put", "INSERT")
	defer span.End()

	doc, err := json.Marshal(c)
	if err != nil {
		return recordErr(span, fmt.Errorf("marshal document: %w", err))
	}

	const query = `
		INSERT INTO complaint_docs (namespace, id, doc, revision, updated_at)
		VALUES ($1, $2, $3, 1, now())
		ON CONFLICT (namespace, id) DO UPDATE
		SET doc = EXCLUDED.doc,
		    revision = complaint_docs.revision + 1,
		    updated_at = now()`
	if _, err := s.pool.Exec(ctx, query, namespace, id, doc); err != nil {
		return recordErr(span, fmt.Errorf("upsert document: %w", err))
	}
	return nil
}

// PutRev upserts only when the stored revision equals expected (0 = the
// document must not exist yet). Returns complaint.ErrConflict on mismatch.
func (s *Store) PutRev(ctx context.Context, namespace, id string, c *complaint.Complaint, expected int64) error {
	ctx, span := s.startSpan(ctx, "pgstore.PutRev", "UPDATE")
	defer span.End()

	doc, err := json.Marshal(c)
	if err != nil {
		return recordErr(span, fmt.Errorf("marshal document: %w", err))
	}

	if expected == 0 {
		const insert = `
			INSERT INTO complaint_docs (namespace, id, doc, revision, updated_at)
			VALUES ($1, $2, $3, 1, now())
			ON CONFLICT (namespace, id) DO NOTHING`
		tag, err := s.pool.Exec(ctx, insert, namespace, id, doc)
		if err != nil {
			return recordErr(span, fmt.Errorf("insert document: %w", err))
		}
		if tag.RowsAffected() == 0 {
			return complaint.ErrConflict
		}
		return nil
	}

	const update = `
		UPDATE complaint_docs
		SET doc = $3, revision = revision + 1, updated_at = now()
		WHERE namespace = $1 AND id = $2 AND revision = $4`
	tag, err := s.pool.Exec(ctx, update, namespace, id, doc, expected)
	if err != nil {
		return recordErr(span, fmt.Errorf("update document: %w", err))
	}
	if tag.RowsAffected() == 0 {
		return complaint.ErrConflict
	}
	return nil
}

// Get retrieves a document and its revision.
func (s *Store) Get(ctx context.Context, namespace, id string) (*complaint.Complaint, bool, error) {
	ctx, span := s.startSpan(ctx, "pgstore.Get", "SELECT")
	defer span.End()

	const query = `SELECT doc, revision FROM complaint_docs WHERE namespace = $1 AND id = $2`

	var (
		doc      []byte
		revision int64
	)
	err := s.pool.QueryRow(ctx, query, namespace, id).Scan(&doc, &revision)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, recordErr(span, fmt.Errorf("select document: %w", err))
	}

	var c complaint.Complaint
	if err := json.Unmarshal(doc, &c); err != nil {
		return nil, false, recordErr(span, fmt.Errorf("unmarshal document: %w", err))
	}
	c.Revision = revision
	return &c, true, nil
}

// ListIDs returns all identifiers in the namespace under the prefix.
func (s *Store) ListIDs(ctx context.Context, namespace, prefix string) ([]string, error) {
	ctx, span := s.startSpan(ctx, "pgstore.ListIDs", "SELECT")
	defer span.End()

	const query = `
		SELECT id FROM complaint_docs
		WHERE namespace = $1 AND id LIKE $2 || '%'
		ORDER BY id`
	rows, err := s.pool.Query(ctx, query, namespace, prefix)
	if err != nil {
		return nil, recordErr(span, fmt.Errorf("select ids: %w", err))
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, recordErr(span, fmt.Errorf("scan id: %w", err))
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, recordErr(span, fmt.Errorf("iterate ids: %w", err))
	}
	return ids, nil
}

func (s *Store) startSpan(ctx context.Context, name, op string) (context.Context, trace.Span) {
	return tracer.Start(ctx, name, trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation.name", op),
	))
}

func recordErr(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
