// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

// Package sqlite persists variable snapshots in a SQLite database.
//
package sqlite

import (
	"context"
	"database/sql"

	"github.com/db47h/fupsim"
	"github.com/pkg/errors"

	_ "modernc.org/sqlite" // "sqlite" driver
)

// Repository stores variable snapshots.
//
type Repository struct {
	db *sql.DB
}

// New opens or creates the database at path. Use ":memory:" for a transient
// database.
//
func New(path string) (*Repository, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrap(err, "open database")
	}
	// a single connection keeps ":memory:" databases alive and serializes
	// writers.
	db.SetMaxOpenConns(1)
	r := &Repository{db: db}
	if err = r.migrate(); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "migrate database")
	}
	return r, nil
}

func (r *Repository) migrate() error {
	const schema = `
	CREATE TABLE IF NOT EXISTS variables (
		name TEXT PRIMARY KEY,
		kind TEXT NOT NULL,
		value INTEGER NOT NULL DEFAULT 0,
		seq INTEGER NOT NULL,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_variables_seq ON variables(seq);
	`
	_, err := r.db.Exec(schema)
	return err
}

// Close closes the database.
//
func (r *Repository) Close() error { return r.db.Close() }

// SaveVariables replaces the stored snapshot with vs.
//
func (r *Repository) SaveVariables(ctx context.Context, vs []fupsim.Variable) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin")
	}
	defer tx.Rollback()

	if _, err = tx.ExecContext(ctx, `DELETE FROM variables`); err != nil {
		return errors.Wrap(err, "clear variables")
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO variables (name, kind, value, seq) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return errors.Wrap(err, "prepare insert")
	}
	defer stmt.Close()
	for i, v := range vs {
		kind, err := v.Kind.MarshalText()
		if err != nil {
			return errors.Wrapf(err, "variable %q", v.Name)
		}
		if _, err = stmt.ExecContext(ctx, v.Name, string(kind), v.Value, i); err != nil {
			return errors.Wrapf(err, "insert variable %q", v.Name)
		}
	}
	return errors.Wrap(tx.Commit(), "commit")
}

// LoadVariables returns the stored snapshot in the order it was saved.
//
func (r *Repository) LoadVariables(ctx context.Context) ([]fupsim.Variable, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT name, kind, value FROM variables ORDER BY seq`)
	if err != nil {
		return nil, errors.Wrap(err, "query variables")
	}
	defer rows.Close()

	var vs []fupsim.Variable
	for rows.Next() {
		var (
			v    fupsim.Variable
			kind string
		)
		if err = rows.Scan(&v.Name, &kind, &v.Value); err != nil {
			return nil, errors.Wrap(err, "scan variable")
		}
		if err = v.Kind.UnmarshalText([]byte(kind)); err != nil {
			return nil, errors.Wrapf(err, "variable %q", v.Name)
		}
		vs = append(vs, v)
	}
	return vs, errors.Wrap(rows.Err(), "iterate variables")
}

// Restore sets the values of the variables of s found in vs. Variables of vs
// unknown to s are created.
//
func Restore(s *fupsim.Sim, vs []fupsim.Variable) error {
	st := s.Store()
	for _, v := range vs {
		var err error
		if _, ok := st.Get(v.Name); ok {
			err = st.SetValue(v.Name, v.Value)
		} else {
			err = st.Create(v.Name, v.Kind, v.Value)
		}
		if err != nil {
			return errors.Wrapf(err, "restore %q", v.Name)
		}
	}
	return nil
}
