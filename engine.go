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


package plancompiler // import "github.com/dolthub/go-plancompiler"

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"
	"gopkg.in/src-d/go-errors.v1"

	"github.com/dolthub/go-plancompiler/sql"
	"github.com/dolthub/go-plancompiler/sql/itree"
	"github.com/dolthub/go-plancompiler/sql/metadata"
	compiler "github.com/dolthub/go-plancompiler/sql/plancompiler"
)

var (
	// ErrModelAlreadyLoaded is returned when a model with the same name as a
	// loaded one is added.
	ErrModelAlreadyLoaded = errors.NewKind("model %q is already loaded")

	// ErrEmptyCommand is returned when compiling a command without a tree.
	ErrEmptyCommand = errors.NewKind("command has no tree to compile")
)

// Engine compiles query trees over a set of models.
type Engine struct {
	Config   *Config
	Compiler *compiler.Compiler
	Logger   *logrus.Logger

	mu     sync.RWMutex
	models map[string]*metadata.EntityContainer
}

// New creates a new Engine with the given configuration and loads its
// models. A nil configuration means DefaultConfig.
func New(cfg *Config) (*Engine, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	logger, err := NewLogger(cfg)
	if err != nil {
		return nil, err
	}

	c, err := compiler.NewBuilder().WithOptions(cfg.Options()).Build()
	if err != nil {
		return nil, err
	}

	e := &Engine{
		Config:   cfg,
		Compiler: c,
		Logger:   logger,
		models:   make(map[string]*metadata.EntityContainer),
	}
	for _, path := range cfg.Models {
		if _, err := e.LoadModel(path); err != nil {
			return nil, err
		}
	}

	return e, nil
}

// NewDefault creates a new Engine with the default configuration.
func NewDefault() (*Engine, error) {
	return New(nil)
}

// LoadModel reads the model file at path and adds it to the engine.
func (e *Engine) LoadModel(path string) (*metadata.EntityContainer, error) {
	c, err := metadata.LoadContainer(path)
	if err != nil {
		return nil, err
	}
	if err := e.AddModel(c); err != nil {
		return nil, err
	}
	return c, nil
}

// AddModel adds the given model to the engine and computes its foreign
// keys.
func (e *Engine) AddModel(c *metadata.EntityContainer) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.models[c.Name]; ok {
		return ErrModelAlreadyLoaded.New(c.Name)
	}
	if err := e.Compiler.ConstraintManager().LoadRelationships(c); err != nil {
		return err
	}
	e.models[c.Name] = c

	e.Logger.WithFields(logrus.Fields{
		"model":         c.Name,
		"entity_sets":   len(c.EntitySets),
		"relationships": len(c.RelationshipSets),
	}).Info("model loaded")
	return nil
}

// Model returns the loaded model with the given name.
func (e *Engine) Model(name string) (*metadata.EntityContainer, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	c, ok := e.models[name]
	return c, ok
}

// NewContext returns a compilation context logging through the engine
// logger.
func (e *Engine) NewContext(ctx context.Context, opts ...sql.ContextOption) *sql.Context {
	opts = append([]sql.ContextOption{sql.WithLogger(logrus.NewEntry(e.Logger))}, opts...)
	return sql.NewContext(ctx, opts...)
}

// Compile rewrites the tree of cmd and returns the compiled plan.
func (e *Engine) Compile(ctx *sql.Context, cmd *itree.Command) (*compiler.CompiledPlan, error) {
	if cmd == nil || cmd.Root == nil {
		return nil, ErrEmptyCommand.New()
	}

	plan, err := e.Compiler.Compile(ctx, cmd)
	if err != nil {
		return nil, err
	}

	ctx.Logger().WithFields(logrus.Fields{
		"changed":  plan.Changed,
		"commands": len(plan.Commands),
	}).Debug("plan compiled")
	return plan, nil
}
