// Package store owns the SQL schema and every read/write primitive the
// indexer uses, backed by a pure-Go SQLite driver so the whole project
// stays cgo-free outside of the parser binding. Grounded in
// josephgoksu-TaskWing's internal/codeintel (Repository-over-*sql.DB) and
// internal/memory (schema bootstrap, PRAGMA foreign_keys=ON) packages,
// generalized from their code-intelligence schema to the files / refs /
// includes / symbols model of spec §3.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	yerrors "github.com/kubinux/yacbi-go/internal/errors"

	_ "modernc.org/sqlite"
)

// Store wraps the on-disk database file. All mutation happens through a
// single Tx opened for the duration of one update run (spec §5: one
// transaction per update run); read-only queries (the §6 external
// interface) run directly against Store.
type Store struct {
	db *sql.DB
}

// Open opens (creating if absent) the SQLite database at path and
// ensures the schema exists.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, yerrors.NewStoreError("open", err)
	}
	db.SetMaxOpenConns(1) // single-writer embedded store, spec §5

	if _, err := db.Exec("PRAGMA foreign_keys = ON;"); err != nil {
		db.Close()
		return nil, yerrors.NewStoreError("enable foreign keys", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, yerrors.NewStoreError("create schema", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Tx is the single enclosing transaction for one update run (§5). Every
// write primitive of §4.3 is a method on Tx so that an uncaught error
// anywhere rolls the whole run back, leaving the store at its previous
// consistent state (§7).
type Tx struct {
	tx *sql.Tx
}

// BeginUpdate opens the one transaction an `update` run commits at the
// end (or rolls back on error).
func (s *Store) BeginUpdate(ctx context.Context) (*Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, yerrors.NewStoreError("begin", err)
	}
	return &Tx{tx: tx}, nil
}

// Commit commits the enclosing transaction.
func (t *Tx) Commit() error {
	if err := t.tx.Commit(); err != nil {
		return yerrors.NewStoreError("commit", err)
	}
	return nil
}

// Rollback discards every write made during this transaction.
func (t *Tx) Rollback() error {
	return t.tx.Rollback()
}

// UpsertFile inserts or updates a files row, returning its id.
func (t *Tx) UpsertFile(path, cwd string, now time.Time, isIncluded bool) (int64, error) {
	id, found, err := t.fileIDByPath(path)
	if err != nil {
		return 0, err
	}
	ts := now.UTC().Format(time.RFC3339Nano)
	if !found {
		res, err := t.tx.Exec(
			`INSERT INTO files (path, working_dir, last_update, is_included) VALUES (?, ?, ?, ?)`,
			path, cwd, ts, isIncluded)
		if err != nil {
			return 0, yerrors.NewStoreError("upsert_file insert", err)
		}
		return res.LastInsertId()
	}
	if _, err := t.tx.Exec(
		`UPDATE files SET working_dir = ?, last_update = ?, is_included = ? WHERE id = ?`,
		cwd, ts, isIncluded, id); err != nil {
		return 0, yerrors.NewStoreError("upsert_file update", err)
	}
	return id, nil
}

// ReplaceArgs deletes and re-inserts a file's ordered compile_args, so
// that (by id ascending) they reproduce the argv used to parse it.
func (t *Tx) ReplaceArgs(fileID int64, argv []string) error {
	if _, err := t.tx.Exec(`DELETE FROM compile_args WHERE file_id = ?`, fileID); err != nil {
		return yerrors.NewStoreError("replace_args delete", err)
	}
	stmt, err := t.tx.Prepare(`INSERT INTO compile_args (file_id, arg) VALUES (?, ?)`)
	if err != nil {
		return yerrors.NewStoreError("replace_args prepare", err)
	}
	defer stmt.Close()
	for _, arg := range argv {
		if _, err := stmt.Exec(fileID, arg); err != nil {
			return yerrors.NewStoreError("replace_args insert", err)
		}
	}
	return nil
}

// ReplaceRefs deletes a file's refs and re-inserts refsByUSR, interning
// each USR into the symbols table on demand.
func (t *Tx) ReplaceRefs(fileID int64, refsByUSR map[string]map[RefLocation]RefValue) error {
	if _, err := t.tx.Exec(`DELETE FROM refs WHERE file_id = ?`, fileID); err != nil {
		return yerrors.NewStoreError("replace_refs delete", err)
	}
	stmt, err := t.tx.Prepare(
		`INSERT INTO refs (symbol_id, file_id, line, column, kind, is_definition) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return yerrors.NewStoreError("replace_refs prepare", err)
	}
	defer stmt.Close()

	for usr, refs := range refsByUSR {
		symbolID, err := t.internSymbol(usr)
		if err != nil {
			return err
		}
		for loc, ref := range refs {
			if _, err := stmt.Exec(symbolID, fileID, loc.Line, loc.Column, ref.Kind, ref.IsDefinition); err != nil {
				return yerrors.NewStoreError("replace_refs insert", err)
			}
		}
	}
	return nil
}

// ResolvedInclude is an include edge whose target has already been
// resolved to a file id by the caller (File Manager phase B, §4.4).
type ResolvedInclude struct {
	IncludedFileID int64
	Line           int
	Column         int
}

// ReplaceIncludes deletes and re-inserts a file's outbound includes edges.
func (t *Tx) ReplaceIncludes(fileID int64, edges []ResolvedInclude) error {
	if _, err := t.tx.Exec(`DELETE FROM includes WHERE including_file_id = ?`, fileID); err != nil {
		return yerrors.NewStoreError("replace_includes delete", err)
	}
	stmt, err := t.tx.Prepare(
		`INSERT INTO includes (including_file_id, included_file_id, line, column) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return yerrors.NewStoreError("replace_includes prepare", err)
	}
	defer stmt.Close()
	for _, e := range edges {
		if _, err := stmt.Exec(fileID, e.IncludedFileID, e.Line, e.Column); err != nil {
			return yerrors.NewStoreError("replace_includes insert", err)
		}
	}
	return nil
}

// DeleteOrDemote implements spec §4.3: if any includes edge still targets
// this file, demote it (is_included := true); otherwise delete it
// (cascading to its args, refs, and includes edges).
func (t *Tx) DeleteOrDemote(path string) error {
	id, found, err := t.fileIDByPath(path)
	if err != nil || !found {
		return err
	}
	var stillIncluded bool
	row := t.tx.QueryRow(`SELECT EXISTS (SELECT 1 FROM includes WHERE included_file_id = ? LIMIT 1)`, id)
	if err := row.Scan(&stillIncluded); err != nil {
		return yerrors.NewStoreError("delete_or_demote check", err)
	}
	if stillIncluded {
		_, err := t.tx.Exec(`UPDATE files SET is_included = 1 WHERE id = ?`, id)
		if err != nil {
			return yerrors.NewStoreError("delete_or_demote demote", err)
		}
		return nil
	}
	if _, err := t.tx.Exec(`DELETE FROM files WHERE id = ?`, id); err != nil {
		return yerrors.NewStoreError("delete_or_demote delete", err)
	}
	return nil
}

// IncludedFileIDs returns the id of every file row currently marked
// is_included, for the File Manager's orphan-reclamation fixpoint.
func (t *Tx) IncludedFileIDs() ([]int64, error) {
	rows, err := t.tx.Query(`SELECT id FROM files WHERE is_included = 1`)
	if err != nil {
		return nil, yerrors.NewStoreError("included_file_ids", err)
	}
	defer rows.Close()
	return scanIDs(rows)
}

// DistinctIncludedTargets returns every file id that is the target of
// at least one includes edge.
func (t *Tx) DistinctIncludedTargets() ([]int64, error) {
	rows, err := t.tx.Query(`SELECT DISTINCT included_file_id FROM includes`)
	if err != nil {
		return nil, yerrors.NewStoreError("distinct_included_targets", err)
	}
	defer rows.Close()
	return scanIDs(rows)
}

// DeleteFileByID unconditionally deletes one files row (and, via
// cascade, its args/refs/includes edges).
func (t *Tx) DeleteFileByID(id int64) error {
	if _, err := t.tx.Exec(`DELETE FROM files WHERE id = ?`, id); err != nil {
		return yerrors.NewStoreError("delete_file_by_id", err)
	}
	return nil
}

func scanIDs(rows *sql.Rows) ([]int64, error) {
	var out []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, yerrors.NewStoreError("scan id", err)
		}
		out = append(out, id)
	}
	return out, nil
}

// ExistingFiles returns every files row, for the File Manager's diff
// against the compilation database and the filesystem.
func (t *Tx) ExistingFiles() ([]FileRow, error) {
	rows, err := t.tx.Query(`SELECT id, path, working_dir, last_update, is_included FROM files`)
	if err != nil {
		return nil, yerrors.NewStoreError("existing_files", err)
	}
	defer rows.Close()
	return scanFileRows(rows)
}

// QueryArgsByFileID returns the ordered argv for one file id, or nil if
// the file has no recorded args.
func (t *Tx) QueryArgsByFileID(fileID int64) ([]string, error) {
	rows, err := t.tx.Query(`SELECT arg FROM compile_args WHERE file_id = ? ORDER BY id`, fileID)
	if err != nil {
		return nil, yerrors.NewStoreError("query_args", err)
	}
	defer rows.Close()
	return scanArgs(rows)
}

// IncludingFileRows returns the full row of every file with an includes
// edge targeting includedFileID, for the File Manager's inline-header
// host resolution (spec §4.4).
func (t *Tx) IncludingFileRows(includedFileID int64) ([]FileRow, error) {
	rows, err := t.tx.Query(`
		SELECT DISTINCT f.id, f.path, f.working_dir, f.last_update, f.is_included
		FROM files f JOIN includes i ON i.including_file_id = f.id
		WHERE i.included_file_id = ?`, includedFileID)
	if err != nil {
		return nil, yerrors.NewStoreError("including_file_rows", err)
	}
	defer rows.Close()
	return scanFileRows(rows)
}

// FileIDByPath resolves a path to its file id.
func (t *Tx) FileIDByPath(path string) (int64, bool, error) {
	return t.fileIDByPath(path)
}

func (t *Tx) fileIDByPath(path string) (int64, bool, error) {
	var id int64
	err := t.tx.QueryRow(`SELECT id FROM files WHERE path = ?`, path).Scan(&id)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, yerrors.NewStoreError("file_id_by_path", err)
	}
	return id, true, nil
}

func (t *Tx) internSymbol(usr string) (int64, error) {
	var id int64
	err := t.tx.QueryRow(`SELECT id FROM symbols WHERE usr = ?`, usr).Scan(&id)
	if err == nil {
		return id, nil
	}
	if err != sql.ErrNoRows {
		return 0, yerrors.NewStoreError("intern_symbol select", err)
	}
	res, err := t.tx.Exec(`INSERT INTO symbols (usr) VALUES (?)`, usr)
	if err != nil {
		return 0, yerrors.NewStoreError("intern_symbol insert", err)
	}
	return res.LastInsertId()
}

// --- read-only query surface (spec §6), run outside any update transaction ---

// QueryArgs returns the ordered argv last used to parse path, or nil if
// path is not in the store.
func (s *Store) QueryArgs(path string) ([]string, error) {
	var id int64
	err := s.db.QueryRow(`SELECT id FROM files WHERE path = ?`, path).Scan(&id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, yerrors.NewStoreError("query_args", err)
	}
	rows, err := s.db.Query(`SELECT arg FROM compile_args WHERE file_id = ? ORDER BY id`, id)
	if err != nil {
		return nil, yerrors.NewStoreError("query_args", err)
	}
	defer rows.Close()
	return scanArgs(rows)
}

// QueryDefinitions returns every definition site of usr, ordered by
// path/line/column.
func (s *Store) QueryDefinitions(usr string) ([]Ref, error) {
	symbolID, ok, err := s.symbolID(usr)
	if err != nil || !ok {
		return nil, err
	}
	rows, err := s.db.Query(`
		SELECT f.path, r.line, r.column, r.kind
		FROM refs r JOIN files f ON r.file_id = f.id
		WHERE r.is_definition = 1 AND r.symbol_id = ?
		ORDER BY f.path ASC, r.line ASC, r.column ASC`, symbolID)
	if err != nil {
		return nil, yerrors.NewStoreError("query_definitions", err)
	}
	defer rows.Close()

	var out []Ref
	for rows.Next() {
		var r Ref
		if err := rows.Scan(&r.Path, &r.Line, &r.Column, &r.Kind); err != nil {
			return nil, yerrors.NewStoreError("query_definitions scan", err)
		}
		r.IsDefinition = true
		r.Description = DescribeKind(r.Kind)
		out = append(out, r)
	}
	return out, nil
}

// QueryReferences returns every occurrence of usr (definitions first),
// ordered by is_definition desc, path, line, column.
func (s *Store) QueryReferences(usr string) ([]Ref, error) {
	symbolID, ok, err := s.symbolID(usr)
	if err != nil || !ok {
		return nil, err
	}
	rows, err := s.db.Query(`
		SELECT f.path, r.line, r.column, r.kind, r.is_definition
		FROM refs r JOIN files f ON r.file_id = f.id
		WHERE r.symbol_id = ?
		ORDER BY r.is_definition DESC, f.path ASC, r.line ASC, r.column ASC`, symbolID)
	if err != nil {
		return nil, yerrors.NewStoreError("query_references", err)
	}
	defer rows.Close()

	var out []Ref
	for rows.Next() {
		var r Ref
		if err := rows.Scan(&r.Path, &r.Line, &r.Column, &r.Kind, &r.IsDefinition); err != nil {
			return nil, yerrors.NewStoreError("query_references scan", err)
		}
		r.Description = DescribeKind(r.Kind)
		out = append(out, r)
	}
	return out, nil
}

// QuerySubtypes returns every base-specifier ref for usr — the subtype
// relation of spec §6.
func (s *Store) QuerySubtypes(usr string) ([]Ref, error) {
	symbolID, ok, err := s.symbolID(usr)
	if err != nil || !ok {
		return nil, err
	}
	rows, err := s.db.Query(`
		SELECT f.path, r.line, r.column, r.kind, r.is_definition
		FROM refs r JOIN files f ON r.file_id = f.id
		WHERE r.symbol_id = ? AND r.kind = ?
		ORDER BY f.path ASC, r.line ASC, r.column ASC`, symbolID, KindBaseSpecifier)
	if err != nil {
		return nil, yerrors.NewStoreError("query_subtypes", err)
	}
	defer rows.Close()

	var out []Ref
	for rows.Next() {
		var r Ref
		if err := rows.Scan(&r.Path, &r.Line, &r.Column, &r.Kind, &r.IsDefinition); err != nil {
			return nil, yerrors.NewStoreError("query_subtypes scan", err)
		}
		r.Description = DescribeKind(r.Kind)
		out = append(out, r)
	}
	return out, nil
}

// QueryIncludingFiles returns every file that includes path, most
// recently updated first is not required by spec — ordered by path/line.
func (s *Store) QueryIncludingFiles(path string) ([]IncludingFile, error) {
	var id int64
	err := s.db.QueryRow(`SELECT id FROM files WHERE path = ?`, path).Scan(&id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, yerrors.NewStoreError("query_including_files", err)
	}
	rows, err := s.db.Query(`
		SELECT f.path, i.line
		FROM includes i JOIN files f ON i.including_file_id = f.id
		WHERE i.included_file_id = ?
		ORDER BY f.path ASC, i.line ASC`, id)
	if err != nil {
		return nil, yerrors.NewStoreError("query_including_files", err)
	}
	defer rows.Close()

	var out []IncludingFile
	for rows.Next() {
		var e IncludingFile
		if err := rows.Scan(&e.Path, &e.Line); err != nil {
			return nil, yerrors.NewStoreError("query_including_files scan", err)
		}
		out = append(out, e)
	}
	return out, nil
}

func (s *Store) symbolID(usr string) (int64, bool, error) {
	var id int64
	err := s.db.QueryRow(`SELECT id FROM symbols WHERE usr = ?`, usr).Scan(&id)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, yerrors.NewStoreError("symbol_id", err)
	}
	return id, true, nil
}

func scanFileRows(rows *sql.Rows) ([]FileRow, error) {
	var out []FileRow
	for rows.Next() {
		var f FileRow
		var ts string
		if err := rows.Scan(&f.ID, &f.Path, &f.WorkingDir, &ts, &f.IsIncluded); err != nil {
			return nil, yerrors.NewStoreError("existing_files scan", err)
		}
		t, err := time.Parse(time.RFC3339Nano, ts)
		if err != nil {
			return nil, fmt.Errorf("parse last_update %q: %w", ts, err)
		}
		f.LastUpdate = t
		out = append(out, f)
	}
	return out, nil
}

func scanArgs(rows *sql.Rows) ([]string, error) {
	var out []string
	for rows.Next() {
		var arg string
		if err := rows.Scan(&arg); err != nil {
			return nil, yerrors.NewStoreError("scan arg", err)
		}
		out = append(out, arg)
	}
	return out, nil
}
