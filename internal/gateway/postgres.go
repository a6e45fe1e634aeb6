package gateway

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresDocumentStore stores documents as JSONB rows in the documents
// table, one insert per document.
type PostgresDocumentStore struct {
	pool *pgxpool.Pool
}

// NewPostgresDocumentStore creates a document store over the pool.
func NewPostgresDocumentStore(pool *pgxpool.Pool) *PostgresDocumentStore {
	return &PostgresDocumentStore{pool: pool}
}

// CreateDocument inserts one document and returns its generated id.
func (s *PostgresDocumentStore) CreateDocument(ctx context.Context, collection string, record any) (string, error) {
	body, err := json.Marshal(record)
	if err != nil {
		return "", fmt.Errorf("marshal document: %w", err)
	}
	const query = `INSERT INTO documents (id, collection, body)
		VALUES (gen_random_uuid(), $1, $2)
		RETURNING id`
	var id uuid.UUID
	if err := s.pool.QueryRow(ctx, query, collection, body).Scan(&id); err != nil {
		return "", fmt.Errorf("insert document: %w", err)
	}
	return id.String(), nil
}
