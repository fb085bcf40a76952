// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0
package histql_test

import (
	"runtime"
	"testing"

	"github.com/molecula/histql"
	"github.com/stretchr/testify/assert"
)

func TestVersionInfo(t *testing.T) {
	defer func(v, c, b string) {
		histql.Version, histql.Commit, histql.BuildTime = v, c, b
	}(histql.Version, histql.Commit, histql.BuildTime)

	histql.Version, histql.Commit, histql.BuildTime = "", "", ""
	assert.Equal(t, "histql v0.x "+runtime.Version(), histql.VersionInfo())

	histql.Version, histql.Commit = "v1.2.0", "abc123"
	assert.Equal(t, "histql v1.2.0 (abc123) "+runtime.Version(), histql.VersionInfo())
}
