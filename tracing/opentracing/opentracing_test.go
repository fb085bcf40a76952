// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0
package opentracing_test

import (
	"context"
	"testing"

	"github.com/molecula/histql/tracing/opentracing"
	"github.com/opentracing/opentracing-go/mocktracer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTracer(t *testing.T) {
	mock := mocktracer.New()
	tracer := opentracing.NewTracer(mock)

	parent, ctx := tracer.StartSpanFromContext(context.Background(), "QueryDatabase")
	child, _ := tracer.StartSpanFromContext(ctx, "scan")
	child.LogKV("rows", 2)
	child.Finish()
	parent.Finish()

	spans := mock.FinishedSpans()
	require.Len(t, spans, 2)
	assert.Equal(t, "scan", spans[0].OperationName)
	assert.Equal(t, "QueryDatabase", spans[1].OperationName)
	assert.Equal(t, spans[1].SpanContext.SpanID, spans[0].ParentID)
	require.Len(t, spans[0].Logs(), 1)
}
