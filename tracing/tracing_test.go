// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0
package tracing_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/molecula/histql/logger"
	"github.com/molecula/histql/tracing"
	"github.com/stretchr/testify/assert"
)

func TestLogTracer(t *testing.T) {
	var buf bytes.Buffer
	tracer := tracing.NewLogTracer(logger.NewVerboseLogger(&buf))

	parent, ctx := tracer.StartSpanFromContext(context.Background(), "QueryDatabase")
	child, _ := tracer.StartSpanFromContext(ctx, "scan")
	child.LogKV("rows", 2, "dangling")
	child.Finish()
	parent.Finish()

	out := buf.String()
	assert.Contains(t, out, "DEBUG: span QueryDatabase/scan took ")
	assert.Contains(t, out, "rows=2")
	assert.NotContains(t, out, "dangling")
	assert.Contains(t, out, "span QueryDatabase took ")
}

func TestGlobalTracer(t *testing.T) {
	span, ctx := tracing.StartSpanFromContext(context.Background(), "nop")
	span.LogKV("k", "v")
	span.Finish()
	assert.Equal(t, context.Background(), ctx)
}
