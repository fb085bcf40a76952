// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0
package sqldb

import (
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
	"github.com/molecula/histql/errors"
)

// Supported dialects.
const (
	DialectPostgres = "postgres"
	DialectMySQL    = "mysql"
)

// dialect is what differs between the relational servers: how identifiers
// are quoted, how placeholders are written and how a stored function is
// called.
type dialect struct {
	name        string
	driver      string
	quote       func(string) string
	placeholder func(i int) string

	// call returns a statement calling fn with n placeholders.
	call func(d *dialect, schema, fn string, n int) string

	// describe renders a server error for logs and error messages.
	describe func(err error) (string, bool)
}

var dialects = map[string]*dialect{
	DialectPostgres: {
		name:        DialectPostgres,
		driver:      "postgres",
		quote:       pq.QuoteIdentifier,
		placeholder: func(i int) string { return fmt.Sprintf("$%d", i+1) },
		call: func(d *dialect, schema, fn string, n int) string {
			return "select * from " + d.qualify(schema, fn) + "(" + d.placeholders(n) + ")"
		},
		describe: func(err error) (string, bool) {
			var pqErr *pq.Error
			if !errors.As(err, &pqErr) {
				return "", false
			}
			return fmt.Sprintf("postgres %s (%s): %s", pqErr.Code, pqErr.Code.Name(), pqErr.Message), true
		},
	},
	DialectMySQL: {
		name:        DialectMySQL,
		driver:      "mysql",
		quote:       quoteBacktick,
		placeholder: func(int) string { return "?" },
		call: func(d *dialect, schema, fn string, n int) string {
			return "CALL " + d.qualify(schema, fn) + "(" + d.placeholders(n) + ")"
		},
		describe: func(err error) (string, bool) {
			var myErr *mysql.MySQLError
			if !errors.As(err, &myErr) {
				return "", false
			}
			return fmt.Sprintf("mysql %d: %s", myErr.Number, myErr.Message), true
		},
	},
}

func lookupDialect(name string) (*dialect, error) {
	d, ok := dialects[name]
	if !ok {
		return nil, errors.New(errors.ErrBackend, fmt.Sprintf("unknown sql dialect '%s'", name))
	}
	return d, nil
}

func quoteBacktick(s string) string {
	return "`" + strings.ReplaceAll(s, "`", "``") + "`"
}

func (d *dialect) qualify(schema, name string) string {
	return d.quote(schema) + "." + d.quote(name)
}

func (d *dialect) placeholders(n int) string {
	ps := make([]string, n)
	for i := range ps {
		ps[i] = d.placeholder(i)
	}
	return strings.Join(ps, ", ")
}

func (d *dialect) fillStatusQuery(schema string) string {
	return "select head, head_id, irreversible, irreversible_id, first from " + d.qualify(schema, "fill_status")
}

func (d *dialect) blockIDQuery(schema string) string {
	return "select block_id from " + d.qualify(schema, "block_info") + " where block_num = " + d.placeholder(0)
}

// wrap codes err as a backend error, naming the server's error when there is
// one.
func (d *dialect) wrap(err error, msg string) error {
	if desc, ok := d.describe(err); ok {
		msg += ": " + desc
	}
	return errors.WithCode(err, errors.ErrBackend, msg)
}
