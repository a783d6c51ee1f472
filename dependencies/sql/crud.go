package sql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/saba2003/devcamper-api/dependencies/database"
	"github.com/saba2003/devcamper-api/tools/snowflake"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// queryer the subset of *sql.DB and *sql.Tx used by the statements
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func convertError(d Dialect, table string, err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}
	if errors.Is(err, context.Canceled) {
		return status.Errorf(codes.Canceled, "%s error for %s", table, err.Error())
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return status.Errorf(codes.DeadlineExceeded, "%s timeout for %s", table, err.Error())
	}
	converted := d.ConvertError(err)
	if _, ok := status.FromError(converted); ok {
		return converted
	}
	return status.Errorf(codes.Internal, "%s db error %s", table, err)
}

func (s *SQL) exec(ctx context.Context, q queryer, table, query string, args ...any) (sql.Result, error) {
	ret, err := q.ExecContext(ctx, s.dialect.Rebind(query), args...)
	if err != nil {
		return nil, convertError(s.dialect, table, err)
	}
	return ret, nil
}

// InsertOne insert one doc, _id is generated when missing
func (s *SQL) InsertOne(ctx context.Context, table string, doc database.M) error {
	if err := s.ensureTable(ctx, table); err != nil {
		return err
	}
	return s.insertOne(ctx, s.DB, table, doc)
}

func (s *SQL) insertOne(ctx context.Context, q queryer, table string, doc database.M) error {
	if doc.ID() == "" {
		doc[database.IDKey] = snowflake.NewID()
	}
	raw, err := encodeDocument(doc)
	if err != nil {
		return status.Errorf(codes.InvalidArgument, "encode %s document error %s", table, err)
	}
	query := fmt.Sprintf("INSERT INTO %s (id, doc) VALUES (?, ?)", s.dialect.Quote(table))
	_, err = s.exec(ctx, q, table, query, doc.ID(), raw)
	return err
}

// Insert  documents in one transaction, nothing is written on error
func (s *SQL) Insert(ctx context.Context, table string, docs []database.M) (count int, err error) {
	if len(docs) == 0 {
		return 0, nil
	}
	if err = s.ensureTable(ctx, table); err != nil {
		return 0, err
	}
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return 0, convertError(s.dialect, table, err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()
	for _, doc := range docs {
		if err = s.insertOne(ctx, tx, table, doc); err != nil {
			return 0, err
		}
	}
	if err = tx.Commit(); err != nil {
		return 0, convertError(s.dialect, table, err)
	}
	return len(docs), nil
}

// UpdateOne merge doc into the first match, nil values remove the field
func (s *SQL) UpdateOne(ctx context.Context, table string, conds database.C, doc database.M) (count int, err error) {
	if err = s.ensureTable(ctx, table); err != nil {
		return 0, err
	}
	where, args, err := s.where(conds)
	if err != nil {
		return 0, err
	}
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return 0, convertError(s.dialect, table, err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()
	query := fmt.Sprintf("SELECT id, doc FROM %s%s%s%s", s.dialect.Quote(table), where,
		s.dialect.LimitOffset(1, 0), s.dialect.ForUpdate())
	rows, err := s.queryDocuments(ctx, tx, table, query, args...)
	if err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, status.Errorf(codes.NotFound, "condition %s not found", conds)
	}
	current := rows[0]
	for k, v := range doc {
		if k == database.IDKey {
			continue
		}
		if v == nil {
			delete(current, k)
			continue
		}
		current[k] = v
	}
	raw, err := encodeDocument(current)
	if err != nil {
		return 0, status.Errorf(codes.InvalidArgument, "encode %s document error %s", table, err)
	}
	update := fmt.Sprintf("UPDATE %s SET doc = ? WHERE id = ?", s.dialect.Quote(table))
	if _, err = s.exec(ctx, tx, table, update, raw, current.ID()); err != nil {
		return 0, err
	}
	if err = tx.Commit(); err != nil {
		return 0, convertError(s.dialect, table, err)
	}
	return 1, nil
}

// Delete delete all matched documents
func (s *SQL) Delete(ctx context.Context, table string, conds database.C) (int, error) {
	if err := s.ensureTable(ctx, table); err != nil {
		return 0, err
	}
	where, args, err := s.where(conds)
	if err != nil {
		return 0, err
	}
	ret, err := s.exec(ctx, s.DB, table, "DELETE FROM "+s.dialect.Quote(table)+where, args...)
	if err != nil {
		return 0, err
	}
	n, _ := ret.RowsAffected()
	return int(n), nil
}

// DeleteOne delete the first matched document
func (s *SQL) DeleteOne(ctx context.Context, table string, conds database.C) (int, error) {
	if err := s.ensureTable(ctx, table); err != nil {
		return 0, err
	}
	where, args, err := s.where(conds)
	if err != nil {
		return 0, err
	}
	query := fmt.Sprintf("SELECT id, doc FROM %s%s%s", s.dialect.Quote(table), where, s.dialect.LimitOffset(1, 0))
	rows, err := s.queryDocuments(ctx, s.DB, table, query, args...)
	if err != nil || len(rows) == 0 {
		return 0, err
	}
	ret, err := s.exec(ctx, s.DB, table, "DELETE FROM "+s.dialect.Quote(table)+" WHERE id = ?", rows[0].ID())
	if err != nil {
		return 0, err
	}
	n, _ := ret.RowsAffected()
	return int(n), nil
}

// Find apply the query, the projection is applied after decoding
func (s *SQL) Find(ctx context.Context, table string, q *database.Query) ([]database.M, error) {
	if err := s.ensureTable(ctx, table); err != nil {
		return nil, err
	}
	where, args, err := s.where(q.Filter())
	if err != nil {
		return nil, err
	}
	order, err := s.orderBy(q.SortBy())
	if err != nil {
		return nil, err
	}
	query := "SELECT id, doc FROM " + s.dialect.Quote(table) + where + order + s.dialect.LimitOffset(q.Size(), q.Offset())
	rows, err := s.queryDocuments(ctx, s.DB, table, query, args...)
	if err != nil {
		return nil, err
	}
	fields := q.Fields()
	for i, row := range rows {
		rows[i] = database.Project(row, fields)
	}
	return rows, nil
}

// FindOne find the first matched document
func (s *SQL) FindOne(ctx context.Context, table string, conds database.C) (database.M, error) {
	if err := s.ensureTable(ctx, table); err != nil {
		return nil, err
	}
	where, args, err := s.where(conds)
	if err != nil {
		return nil, err
	}
	query := "SELECT id, doc FROM " + s.dialect.Quote(table) + where + s.dialect.LimitOffset(1, 0)
	rows, err := s.queryDocuments(ctx, s.DB, table, query, args...)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, status.Errorf(codes.NotFound, "%s not found", table)
	}
	return rows[0], nil
}

// Count the matched documents
func (s *SQL) Count(ctx context.Context, table string, conds database.C) (int64, error) {
	if err := s.ensureTable(ctx, table); err != nil {
		return 0, err
	}
	where, args, err := s.where(conds)
	if err != nil {
		return 0, err
	}
	query := s.dialect.Rebind("SELECT COUNT(*) FROM " + s.dialect.Quote(table) + where)
	var count int64
	if err = s.DB.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, convertError(s.dialect, table, err)
	}
	return count, nil
}

func (s *SQL) queryDocuments(ctx context.Context, q queryer, table, query string, args ...any) ([]database.M, error) {
	rows, err := q.QueryContext(ctx, s.dialect.Rebind(query), args...)
	if err != nil {
		return nil, convertError(s.dialect, table, err)
	}
	defer rows.Close()
	out := make([]database.M, 0)
	for rows.Next() {
		var id string
		var raw []byte
		if err = rows.Scan(&id, &raw); err != nil {
			return nil, convertError(s.dialect, table, err)
		}
		doc, err := decodeDocument(raw)
		if err != nil {
			return nil, status.Errorf(codes.Internal, "decode %s document %s error %s", table, id, err)
		}
		doc[database.IDKey] = id
		out = append(out, doc)
	}
	if err = rows.Err(); err != nil {
		return nil, convertError(s.dialect, table, err)
	}
	return out, nil
}

func (s *SQL) orderBy(sortBy []string) (string, error) {
	if len(sortBy) == 0 {
		return "", nil
	}
	parts := make([]string, len(sortBy))
	for i, v := range sortBy {
		desc := strings.HasPrefix(v, "-")
		v = strings.TrimPrefix(v, "-")
		if v == database.IDKey {
			parts[i] = "id"
			if desc {
				parts[i] += " DESC"
			}
			continue
		}
		path, err := splitPath(v)
		if err != nil {
			return "", err
		}
		parts[i] = s.dialect.Order(path, desc)
	}
	return " ORDER BY " + strings.Join(parts, ", "), nil
}
