// Copyright 2020-2021 Dolthub, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package sql

import (
	"context"
	"time"

	opentracing "github.com/opentracing/opentracing-go"
	"github.com/satori/go.uuid"
	"github.com/sirupsen/logrus"
)

// CompileIDLogField is the logrus field carrying the id of a plan compilation.
const CompileIDLogField = "compileID"

// Context of a single plan compilation.
type Context struct {
	context.Context
	compileID   uuid.UUID
	compileTime time.Time
	query       string
	tracer      opentracing.Tracer
	rootSpan    opentracing.Span
	logger      *logrus.Entry
}

// ContextOption is a function to configure the context.
type ContextOption func(*Context)

// WithTracer adds the given tracer to the context.
func WithTracer(t opentracing.Tracer) ContextOption {
	return func(ctx *Context) {
		ctx.tracer = t
	}
}

// WithQuery adds the textual form of the query being compiled to the context.
func WithQuery(q string) ContextOption {
	return func(ctx *Context) {
		ctx.query = q
	}
}

// WithRootSpan sets the root span of the context.
func WithRootSpan(s opentracing.Span) ContextOption {
	return func(ctx *Context) {
		ctx.rootSpan = s
	}
}

// WithLogger sets the base log entry used by the context.
func WithLogger(l *logrus.Entry) ContextOption {
	return func(ctx *Context) {
		ctx.logger = l
	}
}

// NewContext creates a new compilation context. Options can be passed to
// configure the context. By default, the context has a noop tracer, a fresh
// compile id and logs through the standard logrus logger.
func NewContext(
	ctx context.Context,
	opts ...ContextOption,
) *Context {
	c := &Context{
		Context:     ctx,
		compileID:   uuid.NewV4(),
		compileTime: time.Now(),
		tracer:      opentracing.NoopTracer{},
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.logger == nil {
		c.logger = logrus.NewEntry(logrus.StandardLogger())
	}
	c.logger = c.logger.WithField(CompileIDLogField, c.compileID.String())

	return c
}

// NewEmptyContext returns a default context with default values.
func NewEmptyContext() *Context { return NewContext(context.TODO()) }

// CompileID returns the unique id of this compilation.
func (c *Context) CompileID() uuid.UUID { return c.compileID }

// Query returns the query text associated with this context, if any.
func (c *Context) Query() string { return c.query }

// CompileTime returns the time the context was created.
func (c *Context) CompileTime() time.Time { return c.compileTime }

// Logger returns the log entry for this compilation.
func (c *Context) Logger() *logrus.Entry { return c.logger }

// RootSpan returns the root span of the context, if any.
func (c *Context) RootSpan() opentracing.Span { return c.rootSpan }

// Span creates a new tracing span with the given context.
// It will return the span and a new context that should be passed to all
// children of this span.
func (c *Context) Span(
	opName string,
	opts ...opentracing.StartSpanOption,
) (opentracing.Span, *Context) {
	parentSpan := opentracing.SpanFromContext(c.Context)
	if parentSpan != nil {
		opts = append(opts, opentracing.ChildOf(parentSpan.Context()))
	}
	span := c.tracer.StartSpan(opName, opts...)
	ctx := opentracing.ContextWithSpan(c.Context, span)

	return span, c.WithContext(ctx)
}

// WithContext returns a new context with the given underlying context.
func (c *Context) WithContext(ctx context.Context) *Context {
	nc := *c
	nc.Context = ctx
	return &nc
}
