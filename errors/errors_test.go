// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0
package errors_test

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/molecula/histql/errors"
	"github.com/stretchr/testify/assert"
)

const (
	errFieldNotFound errors.Code = "FieldNotFound"
	errTableNotFound errors.Code = "TableNotFound"
)

func TestErrors(t *testing.T) {
	t.Run("Is", func(t *testing.T) {
		uncoded := errors.New(errors.ErrUncoded, "uncoded error")
		fnf := errors.New(errFieldNotFound, "field 'fld' not found")
		tnf := errors.New(errTableNotFound, "table 'tbl' not found")

		tests := []struct {
			err    error
			target errors.Code
			exp    bool
		}{
			{
				err:    uncoded,
				target: errors.ErrUncoded,
				exp:    true,
			},
			{
				err:    uncoded,
				target: errFieldNotFound,
				exp:    false,
			},
			{
				err:    fnf,
				target: errFieldNotFound,
				exp:    true,
			},
			{
				err:    fnf,
				target: errTableNotFound,
				exp:    false,
			},
			{
				err:    errors.Wrap(tnf, "with message"),
				target: errTableNotFound,
				exp:    true,
			},
			{
				err:    errors.WithCode(stderrors.New("connection refused"), errors.ErrBackend, "opening session"),
				target: errors.ErrBackend,
				exp:    true,
			},
			{
				err:    stderrors.New("plain"),
				target: errors.ErrBackend,
				exp:    false,
			},
		}

		for i, test := range tests {
			t.Run(fmt.Sprintf("test-%d", i), func(t *testing.T) {
				got := errors.Is(test.err, test.target)
				assert.Equal(t, test.exp, got)
			})
		}
	})

	t.Run("WithCode", func(t *testing.T) {
		cause := stderrors.New("connection refused")
		err := errors.WithCode(cause, errors.ErrBackend, "opening session")

		assert.Equal(t, "opening session: connection refused", err.Error())
		assert.True(t, stderrors.Is(err, cause))
		assert.Nil(t, errors.WithCode(nil, errors.ErrBackend, "nothing"))
	})

	t.Run("CodeOf", func(t *testing.T) {
		assert.Equal(t, errors.ErrDecode, errors.CodeOf(errors.Wrap(errors.New(errors.ErrDecode, "short"), "reading")))
		assert.Equal(t, errors.ErrUncoded, errors.CodeOf(stderrors.New("plain")))
	})
}
