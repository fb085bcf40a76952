// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0
package tracing

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/molecula/histql/logger"
)

// GlobalTracer is a single, global instance of Tracer.
var GlobalTracer Tracer = NopTracer()

// StartSpanFromContext returns a new child span and context from a given
// context using the global tracer.
func StartSpanFromContext(ctx context.Context, operationName string) (Span, context.Context) {
	return GlobalTracer.StartSpanFromContext(ctx, operationName)
}

// Tracer implements a generic distributed tracing interface.
type Tracer interface {
	// Returns a new child span and context from a given context.
	StartSpanFromContext(ctx context.Context, operationName string) (Span, context.Context)
}

// Span represents a single span in a distributed trace.
type Span interface {
	// Sets the end timestamp and finalizes Span state.
	Finish()

	// Adds key/value pairs to the span.
	LogKV(alternatingKeyValues ...interface{})
}

// NopTracer returns a tracer that doesn't do anything.
func NopTracer() Tracer {
	return &nopTracer{}
}

type nopTracer struct{}

func (t *nopTracer) StartSpanFromContext(ctx context.Context, operationName string) (Span, context.Context) {
	return &nopSpan{}, ctx
}

type nopSpan struct{}

func (s *nopSpan) Finish()                                   {}
func (s *nopSpan) LogKV(alternatingKeyValues ...interface{}) {}

// LogTracer writes each finished span, with its duration and key/values,
// to a logger at debug level.
type LogTracer struct {
	logger logger.Logger
}

// NewLogTracer returns a new instance of LogTracer.
func NewLogTracer(l logger.Logger) *LogTracer {
	return &LogTracer{logger: l}
}

func (t *LogTracer) StartSpanFromContext(ctx context.Context, operationName string) (Span, context.Context) {
	name := operationName
	if parent, ok := ctx.Value(logSpanKey).(*logSpan); ok {
		name = parent.name + "/" + operationName
	}
	span := &logSpan{logger: t.logger, name: name, begin: time.Now()}
	return span, context.WithValue(ctx, logSpanKey, span)
}

type logSpanKeyType int

var logSpanKey logSpanKeyType

type logSpan struct {
	logger logger.Logger
	name   string
	begin  time.Time
	kv     []string
}

func (s *logSpan) Finish() {
	s.logger.Debugf("span %s took %s %s", s.name, time.Since(s.begin), strings.Join(s.kv, " "))
}

func (s *logSpan) LogKV(alternatingKeyValues ...interface{}) {
	for i := 0; i < len(alternatingKeyValues)-1; i += 2 {
		s.kv = append(s.kv, fmt.Sprintf("%v=%v", alternatingKeyValues[i], alternatingKeyValues[i+1]))
	}
}
