// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0
package logger_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/molecula/histql/logger"
	"github.com/stretchr/testify/assert"
)

func TestStandardLogger(t *testing.T) {
	var buf bytes.Buffer
	l := logger.NewStandardLogger(&buf)
	l.Debugf("hidden %d", 1)
	l.Infof("shown %d", 2)
	l.WithPrefix("sqldb: ").Errorf("failed")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "INFO:  shown 2")
	assert.Contains(t, out, "sqldb: ERROR: failed")
	assert.Equal(t, 2, strings.Count(out, "\n"))
}

func TestVerboseLogger(t *testing.T) {
	var buf bytes.Buffer
	logger.New(&buf, true).Debugf("query %s", "get.account")
	assert.Contains(t, buf.String(), "DEBUG: query get.account")
}

func TestBufferLogger(t *testing.T) {
	l := logger.NewBufferLogger()
	l.Debugf("dropped")
	l.Warnf("careful")
	assert.Equal(t, "WARN:  careful\n", l.String())
}
