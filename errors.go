// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0
package histql

import (
	"fmt"

	"github.com/molecula/histql/errors"
)

// The following are helper functions for constructing coded errors containing
// relevant information about the specific error.

func NewErrUnknownQuery(name fmt.Stringer) error {
	return errors.New(
		errors.ErrSchema,
		fmt.Sprintf("unknown query '%s'", name),
	)
}

func NewErrUnsupportedQuery(name fmt.Stringer, reason string) error {
	return errors.New(
		errors.ErrUnsupportedQuery,
		fmt.Sprintf("query '%s' is not supported: %s", name, reason),
	)
}

func NewErrFillStatusMissing() error {
	return errors.New(
		errors.ErrBackend,
		"fill status is missing; the store has not been filled yet",
	)
}

func NewErrUnknownPosition(field string) error {
	return errors.New(
		errors.ErrDecode,
		fmt.Sprintf("field '%s' has unknown position", field),
	)
}
