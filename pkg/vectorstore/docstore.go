package vectorstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
)

// DocStore is a sqlite-backed shadow of a collection's documents (content,
// path/line metadata, and the dense/sparse vectors themselves), grounded on
// the teacher's dual cgo/purego sqlite driver split
// (internal/storage/build_cgo.go / build_purego.go) and on
// dshills-gocontext-mcp's internal/storage/sqlite.go for the WAL +
// single-writer connection settings. It backs HNSWStore's optional
// persistence mode: the hnsw graph itself is always in-memory, but a
// collection's documents (and therefore its vectors) survive a process
// restart when a DocStore is attached.
type DocStore struct {
	db *sql.DB
}

const docStoreSchema = `
CREATE TABLE IF NOT EXISTS collections (
	name      TEXT PRIMARY KEY,
	dimension INTEGER NOT NULL,
	hybrid    INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS documents (
	collection     TEXT NOT NULL,
	id             TEXT NOT NULL,
	content        TEXT NOT NULL,
	relative_path  TEXT NOT NULL,
	start_line     INTEGER NOT NULL,
	end_line       INTEGER NOT NULL,
	file_extension TEXT NOT NULL,
	metadata       TEXT NOT NULL,
	vector         TEXT NOT NULL,
	sparse         TEXT NOT NULL,
	PRIMARY KEY (collection, id)
);`

// OpenDocStore opens (creating if absent) a sqlite database at path.
func OpenDocStore(path string) (*DocStore, error) {
	db, err := sql.Open(sqliteDriverName, path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1) // sqlite benefits from a single writer
	db.SetMaxIdleConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("vectorstore: enabling WAL mode: %w", err)
	}
	if _, err := db.Exec(docStoreSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("vectorstore: applying schema: %w", err)
	}
	return &DocStore{db: db}, nil
}

// PutCollection records (or updates) a collection's dimension and kind.
func (d *DocStore) PutCollection(ctx context.Context, name string, dimension int, hybrid bool) error {
	_, err := d.db.ExecContext(ctx, `
		INSERT INTO collections (name, dimension, hybrid) VALUES (?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET dimension = excluded.dimension, hybrid = excluded.hybrid`,
		name, dimension, boolToInt(hybrid))
	return err
}

// DropCollection deletes a collection's row and every document under it.
func (d *DocStore) DropCollection(ctx context.Context, name string) error {
	if _, err := d.db.ExecContext(ctx, `DELETE FROM documents WHERE collection = ?`, name); err != nil {
		return err
	}
	_, err := d.db.ExecContext(ctx, `DELETE FROM collections WHERE name = ?`, name)
	return err
}

// PutDocuments upserts docs under collection, one transaction per call.
func (d *DocStore) PutDocuments(ctx context.Context, collection string, docs []Document) error {
	if len(docs) == 0 {
		return nil
	}
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO documents (collection, id, content, relative_path, start_line, end_line, file_extension, metadata, vector, sparse)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(collection, id) DO UPDATE SET
			content = excluded.content, relative_path = excluded.relative_path,
			start_line = excluded.start_line, end_line = excluded.end_line,
			file_extension = excluded.file_extension, metadata = excluded.metadata,
			vector = excluded.vector, sparse = excluded.sparse`)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	defer stmt.Close()

	for _, doc := range docs {
		vecJSON, err := json.Marshal(doc.Vector)
		if err != nil {
			_ = tx.Rollback()
			return err
		}
		sparseJSON, err := json.Marshal(doc.Sparse)
		if err != nil {
			_ = tx.Rollback()
			return err
		}
		if _, err := stmt.ExecContext(ctx, collection, doc.ID, doc.Content, doc.RelativePath,
			doc.StartLine, doc.EndLine, doc.FileExtension, doc.Metadata, string(vecJSON), string(sparseJSON)); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// DeleteDocuments removes ids from collection. Ids that don't exist are
// silently skipped.
func (d *DocStore) DeleteDocuments(ctx context.Context, collection string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx, `DELETE FROM documents WHERE collection = ? AND id = ?`)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	defer stmt.Close()
	for _, id := range ids {
		if _, err := stmt.ExecContext(ctx, collection, id); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// persistedCollection is one collection's rehydrated state.
type persistedCollection struct {
	Name      string
	Dimension int
	Hybrid    bool
	Documents []Document
}

// LoadAll returns every persisted collection and its documents, for
// rehydrating an HNSWStore at construction time.
func (d *DocStore) LoadAll(ctx context.Context) ([]persistedCollection, error) {
	rows, err := d.db.QueryContext(ctx, `SELECT name, dimension, hybrid FROM collections`)
	if err != nil {
		return nil, err
	}
	var cols []persistedCollection
	for rows.Next() {
		var c persistedCollection
		var hybridInt int
		if err := rows.Scan(&c.Name, &c.Dimension, &hybridInt); err != nil {
			rows.Close()
			return nil, err
		}
		c.Hybrid = hybridInt != 0
		cols = append(cols, c)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range cols {
		docs, err := d.loadDocuments(ctx, cols[i].Name)
		if err != nil {
			return nil, err
		}
		cols[i].Documents = docs
	}
	return cols, nil
}

func (d *DocStore) loadDocuments(ctx context.Context, collection string) ([]Document, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT id, content, relative_path, start_line, end_line, file_extension, metadata, vector, sparse
		FROM documents WHERE collection = ?`, collection)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		var doc Document
		var vecJSON, sparseJSON string
		if err := rows.Scan(&doc.ID, &doc.Content, &doc.RelativePath, &doc.StartLine, &doc.EndLine,
			&doc.FileExtension, &doc.Metadata, &vecJSON, &sparseJSON); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(vecJSON), &doc.Vector); err != nil {
			return nil, fmt.Errorf("vectorstore: decoding persisted vector: %w", err)
		}
		if err := json.Unmarshal([]byte(sparseJSON), &doc.Sparse); err != nil {
			return nil, fmt.Errorf("vectorstore: decoding persisted sparse vector: %w", err)
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// Close closes the underlying database.
func (d *DocStore) Close() error {
	return d.db.Close()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
