// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0
package catalog

import (
	"fmt"

	"github.com/molecula/histql/errors"
	"github.com/molecula/histql/wire"
)

// Request is a query request with its values given as text, as typed on a
// command line or written in a test.
type Request struct {
	Snapshot uint32
	Args     []string

	// First and Last bound the index range. A nil Last repeats First, which
	// asks for an exact match.
	First      []string
	Last       []string
	MaxResults uint32
}

// EncodeRequest builds the binary form of req for q: the query name, the
// snapshot block when q takes one, the arguments, the range start and end
// values, and the requested row cap.
func (q *Query) EncodeRequest(req Request) ([]byte, error) {
	if len(req.Args) != len(q.ArgTypes) {
		return nil, errors.New(errors.ErrDecode, fmt.Sprintf("query '%s' takes %d arguments, got %d", q.Name, len(q.ArgTypes), len(req.Args)))
	}
	last := req.Last
	if len(last) == 0 {
		last = req.First
	}
	for _, bound := range [][]string{req.First, last} {
		if len(bound) != len(q.Index.RangeFields) {
			return nil, errors.New(errors.ErrDecode, fmt.Sprintf("query '%s' takes %d range values, got %d", q.Name, len(q.Index.RangeFields), len(bound)))
		}
	}

	buf := wire.AppendName(nil, q.Name)
	if q.HasBlockSnapshot {
		buf = wire.AppendUint32(buf, req.Snapshot)
	}
	var err error
	for i, typ := range q.ArgTypes {
		if buf, err = typ.Parse(buf, req.Args[i]); err != nil {
			return nil, errors.Wrapf(err, "argument %d", i)
		}
	}
	for _, bound := range [][]string{req.First, last} {
		for i, f := range q.Index.RangeFields {
			if buf, err = f.Type.Parse(buf, bound[i]); err != nil {
				return nil, errors.Wrapf(err, "range field '%s'", f.Name)
			}
		}
	}
	return wire.AppendUint32(buf, req.MaxResults), nil
}

// RequestName reads the query name which starts every request.
func RequestName(queryBin []byte) (wire.Name, *wire.Reader, error) {
	r := wire.NewReader(queryBin)
	name, err := r.ReadName()
	if err != nil {
		return 0, nil, errors.Wrap(err, "reading query name")
	}
	return name, r, nil
}

// RequestEnd fails when r holds bytes past the end of a request.
func RequestEnd(r *wire.Reader) error {
	if n := r.Len(); n > 0 {
		return errors.New(errors.ErrDecode, fmt.Sprintf("%d unexpected bytes after request", n))
	}
	return nil
}
