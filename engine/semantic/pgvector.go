package semantic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/WessleyAI/tourvec/engine/filter"
	"github.com/pgvector/pgvector-go"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// identRe guards every name interpolated into SQL: table names and metadata
// keys.
var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// PGVectorStore is a Backend on PostgreSQL with the pgvector extension. One
// table per collection; metadata lives in a jsonb column.
type PGVectorStore struct {
	db    *gorm.DB
	table string
}

// NewPGVector opens a PostgreSQL connection for the given collection.
func NewPGVector(dsn, collection string) (*PGVectorStore, error) {
	if !identRe.MatchString(collection) {
		return nil, fmt.Errorf("semantic: invalid collection name %q", collection)
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("semantic: open postgres: %w", err)
	}
	return NewPGVectorWithDB(db, collection)
}

// NewPGVectorWithDB wraps an existing gorm handle.
func NewPGVectorWithDB(db *gorm.DB, collection string) (*PGVectorStore, error) {
	if !identRe.MatchString(collection) {
		return nil, fmt.Errorf("semantic: invalid collection name %q", collection)
	}
	return &PGVectorStore{db: db, table: strings.ToLower(collection)}, nil
}

func (s *PGVectorStore) EnsureCollection(ctx context.Context, dims int) error {
	db := s.db.WithContext(ctx)
	stmts := []string{
		"CREATE EXTENSION IF NOT EXISTS vector",
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			document TEXT NOT NULL DEFAULT '',
			metadata JSONB NOT NULL DEFAULT '{}',
			embedding vector(%d) NOT NULL
		)`, s.table, dims),
		fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s_embedding_idx ON %s USING hnsw (embedding vector_cosine_ops)", s.table, s.table),
	}
	for _, q := range stmts {
		if err := db.Exec(q).Error; err != nil {
			return fmt.Errorf("semantic: ensure table %s: %w", s.table, err)
		}
	}
	return nil
}

func (s *PGVectorStore) Count(ctx context.Context) (int, error) {
	var n int64
	if err := s.db.WithContext(ctx).Raw("SELECT count(*) FROM " + s.table).Scan(&n).Error; err != nil {
		return 0, fmt.Errorf("semantic: count: %w", err)
	}
	return int(n), nil
}

func (s *PGVectorStore) Upsert(ctx context.Context, records []VectorRecord) error {
	if len(records) == 0 {
		return nil
	}
	q := fmt.Sprintf(`INSERT INTO %s (id, document, metadata, embedding)
		VALUES (?, ?, CAST(? AS JSONB), ?)
		ON CONFLICT (id) DO UPDATE SET
			document = EXCLUDED.document,
			metadata = EXCLUDED.metadata,
			embedding = EXCLUDED.embedding`, s.table)

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, r := range records {
			meta, err := json.Marshal(r.Metadata)
			if err != nil {
				return fmt.Errorf("semantic: encode metadata %s: %w", r.ID, err)
			}
			if err := tx.Exec(q, r.ID, r.Document, string(meta), pgvector.NewVector(r.Embedding)).Error; err != nil {
				return fmt.Errorf("semantic: upsert %s: %w", r.ID, err)
			}
		}
		return nil
	})
}

// SetMetadata merges with jsonb concatenation, so keys not in the patch keep
// their stored values.
func (s *PGVectorStore) SetMetadata(ctx context.Context, records []Record) error {
	q := fmt.Sprintf("UPDATE %s SET metadata = metadata || CAST(? AS JSONB) WHERE id = ?", s.table)
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, r := range records {
			meta, err := json.Marshal(r.Metadata)
			if err != nil {
				return fmt.Errorf("semantic: encode metadata %s: %w", r.ID, err)
			}
			if err := tx.Exec(q, string(meta), r.ID).Error; err != nil {
				return fmt.Errorf("semantic: set metadata %s: %w", r.ID, err)
			}
		}
		return nil
	})
}

type pgRow struct {
	ID       string
	Document string
	Metadata string
	Distance float64
}

func (s *PGVectorStore) Get(ctx context.Context, where *filter.Predicate) ([]Record, error) {
	cond, args, err := whereSQL(where)
	if err != nil {
		return nil, err
	}
	q := fmt.Sprintf("SELECT id, document, metadata::text AS metadata FROM %s%s ORDER BY id", s.table, cond)

	var rows []pgRow
	if err := s.db.WithContext(ctx).Raw(q, args...).Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("semantic: get: %w", err)
	}
	out := make([]Record, 0, len(rows))
	for _, row := range rows {
		rec, err := row.record()
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

func (s *PGVectorStore) Search(ctx context.Context, embedding []float32, where *filter.Predicate, limit int) ([]Hit, error) {
	cond, args, err := whereSQL(where)
	if err != nil {
		return nil, err
	}
	q := fmt.Sprintf(`SELECT id, document, metadata::text AS metadata, embedding <=> ? AS distance
		FROM %s%s ORDER BY distance LIMIT ?`, s.table, cond)

	all := make([]any, 0, len(args)+2)
	all = append(all, pgvector.NewVector(embedding))
	all = append(all, args...)
	all = append(all, limit)

	var rows []pgRow
	if err := s.db.WithContext(ctx).Raw(q, all...).Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("semantic: search: %w", err)
	}
	hits := make([]Hit, 0, len(rows))
	for _, row := range rows {
		h, err := row.hit()
		if err != nil {
			return nil, err
		}
		hits = append(hits, h)
	}
	return hits, nil
}

func (s *PGVectorStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// hit keeps the double precision distance computed by <=>.
func (r pgRow) hit() (Hit, error) {
	rec, err := r.record()
	if err != nil {
		return Hit{}, err
	}
	return Hit{Record: rec, Distance: r.Distance}, nil
}

func (r pgRow) record() (Record, error) {
	meta, err := decodeMetadata(r.Metadata)
	if err != nil {
		return Record{}, fmt.Errorf("semantic: decode metadata %s: %w", r.ID, err)
	}
	return Record{ID: r.ID, Document: r.Document, Metadata: meta}, nil
}

// decodeMetadata keeps integers as int64 so created_at survives the jsonb
// round trip with its type.
func decodeMetadata(s string) (map[string]any, error) {
	meta := map[string]any{}
	if s == "" {
		return meta, nil
	}
	dec := json.NewDecoder(bytes.NewReader([]byte(s)))
	dec.UseNumber()
	if err := dec.Decode(&meta); err != nil {
		return nil, err
	}
	for k, v := range meta {
		n, ok := v.(json.Number)
		if !ok {
			continue
		}
		if i, err := n.Int64(); err == nil {
			meta[k] = i
		} else if f, err := n.Float64(); err == nil {
			meta[k] = f
		}
	}
	return meta, nil
}

// whereSQL renders a predicate as a WHERE clause over the metadata column.
// The result is empty for a nil predicate.
func whereSQL(p *filter.Predicate) (string, []any, error) {
	if p == nil {
		return "", nil, nil
	}
	cond, args, err := condSQL(p)
	if err != nil {
		return "", nil, err
	}
	return " WHERE " + cond, args, nil
}

func condSQL(p *filter.Predicate) (string, []any, error) {
	if p.Op != filter.OpAnd && !identRe.MatchString(p.Field) {
		return "", nil, fmt.Errorf("semantic: invalid metadata key %q", p.Field)
	}
	switch p.Op {
	case filter.OpEq:
		return fmt.Sprintf("metadata->>'%s' = ?", p.Field), []any{p.Values[0]}, nil
	case filter.OpIn:
		return fmt.Sprintf("metadata->>'%s' IN ?", p.Field), []any{p.Values}, nil
	case filter.OpGte:
		return fmt.Sprintf("CAST(metadata->>'%s' AS BIGINT) >= ?", p.Field), []any{p.Bound}, nil
	case filter.OpLte:
		return fmt.Sprintf("CAST(metadata->>'%s' AS BIGINT) <= ?", p.Field), []any{p.Bound}, nil
	case filter.OpAnd:
		parts := make([]string, 0, len(p.Clauses))
		var args []any
		for _, c := range p.Clauses {
			s, a, err := condSQL(c)
			if err != nil {
				return "", nil, err
			}
			parts = append(parts, s)
			args = append(args, a...)
		}
		return "(" + strings.Join(parts, " AND ") + ")", args, nil
	}
	return "", nil, fmt.Errorf("semantic: unsupported operator %q", p.Op)
}

var _ Backend = (*PGVectorStore)(nil)
