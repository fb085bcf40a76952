// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0
package sqldb

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"time"

	"github.com/molecula/histql"
	"github.com/molecula/histql/catalog"
	"github.com/molecula/histql/codec"
	"github.com/molecula/histql/errors"
	"github.com/molecula/histql/logger"
	"github.com/molecula/histql/stats"
	"github.com/molecula/histql/tracing"
	"github.com/molecula/histql/wire"
)

// Ensure type implements interface.
var _ histql.Session = (*Session)(nil)

var (
	boolType     = codec.MustLookup("bool")
	checksumType = codec.MustLookup("checksum256")
)

// Session runs every call on one connection.
type Session struct {
	db     *DB
	conn   *sql.Conn
	logger logger.Logger
}

func (s *Session) Close() error {
	return s.conn.Close()
}

// FillStatus reads the first row of the schema's fill_status table.
func (s *Session) FillStatus(ctx context.Context) (histql.FillStatus, error) {
	var fs histql.FillStatus
	var headID, irreversibleID interface{}
	err := s.conn.QueryRowContext(ctx, s.db.dialect.fillStatusQuery(s.db.Schema)).
		Scan(&fs.Head, &headID, &fs.Irreversible, &irreversibleID, &fs.First)
	if err == sql.ErrNoRows {
		err = histql.NewErrFillStatusMissing()
	} else if err != nil {
		err = s.db.dialect.wrap(err, "reading fill status")
	} else if err = scanChecksum(&fs.HeadID, headID); err != nil {
		err = errors.Wrap(err, "head_id")
	} else if err = scanChecksum(&fs.IrreversibleID, irreversibleID); err != nil {
		err = errors.Wrap(err, "irreversible_id")
	}
	if err != nil {
		stats.ObserveError(s.db.dialect.name, err)
		return histql.FillStatus{}, err
	}
	return fs, nil
}

func (s *Session) BlockID(ctx context.Context, blockNum uint32) (histql.Checksum256, bool, error) {
	var id histql.Checksum256
	var v interface{}
	err := s.conn.QueryRowContext(ctx, s.db.dialect.blockIDQuery(s.db.Schema), int64(blockNum)).Scan(&v)
	if err == sql.ErrNoRows {
		return id, false, nil
	} else if err != nil {
		err = s.db.dialect.wrap(err, fmt.Sprintf("reading id of block %d", blockNum))
		stats.ObserveError(s.db.dialect.name, err)
		return id, false, err
	}
	if err := scanChecksum(&id, v); err != nil {
		return id, false, errors.Wrap(err, "block_id")
	}
	return id, true, nil
}

// scanChecksum converts a column holding a checksum as raw bytes or hex text.
func scanChecksum(c *histql.Checksum256, v interface{}) error {
	buf, err := checksumType.NativeToBin(nil, v)
	if err != nil {
		return err
	}
	copy(c[:], buf)
	return nil
}

// QueryDatabase calls the query's stored function in a read-only
// transaction and converts the returned rows.
func (s *Session) QueryDatabase(ctx context.Context, queryBin []byte, head uint32) ([]byte, error) {
	span, ctx := tracing.StartSpanFromContext(ctx, "sqldb.QueryDatabase")
	defer span.Finish()

	start := time.Now()
	var name string
	result, n, err := s.queryDatabase(ctx, queryBin, head, &name)
	span.LogKV("query", name, "rows", n)
	stats.ObserveQuery(s.db.dialect.name, name, n, start, err)
	if err != nil {
		if errors.Is(err, errors.ErrBackend) {
			s.logger.Errorf("query '%s': %v", name, err)
		}
		return nil, err
	}
	return result, nil
}

func (s *Session) queryDatabase(ctx context.Context, queryBin []byte, head uint32, name *string) ([]byte, int, error) {
	q, stmt, args, err := s.compile(queryBin, head)
	if q != nil {
		*name = q.Name.String()
	}
	if err != nil {
		return nil, 0, err
	}
	s.logger.Debugf("query '%s': %s %v", q.Name, stmt, args)

	tx, err := s.conn.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, 0, s.db.dialect.wrap(err, "beginning transaction")
	}
	defer func() { _ = tx.Rollback() }()

	rows, err := tx.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, 0, s.db.dialect.wrap(err, "calling "+q.Function)
	}
	result, err := s.convertRows(q, rows)
	if err != nil {
		return nil, 0, err
	}
	if err := tx.Commit(); err != nil {
		return nil, 0, s.db.dialect.wrap(err, "committing")
	}

	buf, err := result.Bytes()
	if err != nil {
		return nil, 0, err
	}
	return buf, result.Len(), nil
}

// compile decodes a request into the statement calling q's function and its
// parameters: the snapshot block, the arguments, the range start and end
// values, and the row cap.
func (s *Session) compile(queryBin []byte, head uint32) (*catalog.Query, string, []interface{}, error) {
	qname, r, err := catalog.RequestName(queryBin)
	if err != nil {
		return nil, "", nil, err
	}
	q, err := s.db.catalog.Lookup(qname)
	if err != nil {
		return nil, "", nil, err
	}

	var args []interface{}
	if q.HasBlockSnapshot {
		requested, err := r.ReadUint32()
		if err != nil {
			return q, "", nil, errors.Wrap(err, "reading snapshot block")
		}
		args = append(args, int64(catalog.Snapshot(requested, head)))
	}
	appendArg := func(t codec.Type, what string) error {
		v, err := t.BinToNative(r)
		if err != nil {
			return errors.Wrap(err, what)
		}
		args = append(args, v)
		return nil
	}
	for i, t := range q.ArgTypes {
		if err := appendArg(t, fmt.Sprintf("argument %d", i)); err != nil {
			return q, "", nil, err
		}
	}
	for _, bound := range []string{"start", "end"} {
		for _, f := range q.Index.RangeFields {
			if err := appendArg(f.Type, fmt.Sprintf("range %s '%s'", bound, f.Name)); err != nil {
				return q, "", nil, err
			}
		}
	}
	requested, err := r.ReadUint32()
	if err != nil {
		return q, "", nil, errors.Wrap(err, "reading max results")
	}
	if err := catalog.RequestEnd(r); err != nil {
		return q, "", nil, err
	}
	args = append(args, int64(q.EffectiveMax(requested)))

	return q, s.db.dialect.call(s.db.dialect, s.db.Schema, q.Function, len(args)), args, nil
}

// convertRows reads every row of rows and closes it.
func (s *Session) convertRows(q *catalog.Query, rows *sql.Rows) (*wire.Result, error) {
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, s.db.dialect.wrap(err, "reading columns")
	}
	if want := columnCount(q.ResultFields); len(cols) != want {
		return nil, errors.New(errors.ErrSchema, fmt.Sprintf("function '%s' returns %d columns, query '%s' expects %d", q.Function, len(cols), q.Name, want))
	}

	vals := make([]interface{}, len(cols))
	for i := range vals {
		vals[i] = new(interface{})
	}

	var result wire.Result
	for rows.Next() {
		if err := rows.Scan(vals...); err != nil {
			return nil, s.db.dialect.wrap(err, "scanning row")
		}
		row, err := convertRow(q.ResultFields, vals)
		if err != nil {
			return nil, errors.Wrapf(err, "row %d", result.Len())
		}
		if err := result.Append(row); err != nil {
			return nil, err
		}
	}
	if err := rows.Err(); err != nil {
		return nil, s.db.dialect.wrap(err, "reading rows")
	}
	return &result, nil
}

// columnCount is the number of columns a function returns for fields: one
// per field plus a presence column per optional block.
func columnCount(fields []*catalog.Field) int {
	n := len(fields)
	for _, f := range fields {
		if f.BeginOptional {
			n++
		}
	}
	return n
}

// convertRow builds the wire row for one set of scanned columns. A false
// presence column leaves out every field of its block, and their columns are
// ignored.
func convertRow(fields []*catalog.Field, vals []interface{}) ([]byte, error) {
	var row []byte
	var err error
	col := 0
	for i := 0; i < len(fields); i++ {
		f := fields[i]
		if f.BeginOptional {
			if row, err = boolType.NativeToBin(row, column(vals, col)); err != nil {
				return nil, errors.Wrapf(err, "presence of '%s'", f.Name)
			}
			col++
			if row[len(row)-1] == 0 {
				for ; i < len(fields); i++ {
					col++
					if fields[i].EndOptional {
						break
					}
				}
				continue
			}
		}
		if row, err = f.Type.NativeToBin(row, column(vals, col)); err != nil {
			return nil, errors.Wrapf(err, "field '%s'", f.Name)
		}
		col++
	}
	return row, nil
}

func column(vals []interface{}, i int) driver.Value {
	return *(vals[i].(*interface{}))
}
