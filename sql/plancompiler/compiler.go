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

package plancompiler

import (
	"os"
	"strings"

	opentracing "github.com/opentracing/opentracing-go"
	"github.com/sirupsen/logrus"

	"github.com/dolthub/go-plancompiler/internal/similartext"
	"github.com/dolthub/go-plancompiler/sql"
	"github.com/dolthub/go-plancompiler/sql/itree"
)

const debugPlanCompilerKey = "DEBUG_PLAN_COMPILER"

const (
	maxRuleIterations        = 1000
	maxJoinEliminationPasses = 10
	defaultConstraintCache   = 16
)

// Names of the compilation phases, in the order they run.
const (
	PhaseNullSemantics     = "null_semantics"
	PhaseAggregatePushdown = "aggregate_pushdown"
	PhaseTransformations   = "transformations"
	PhaseJoinElimination   = "join_elimination"
	PhaseProjectionPruning = "projection_pruning"
	PhaseNullabilityRules  = "nullability_rules"
	PhaseCodeGen           = "codegen"
)

// Phases lists every phase name.
var Phases = []string{
	PhaseNullSemantics,
	PhaseAggregatePushdown,
	PhaseTransformations,
	PhaseJoinElimination,
	PhaseProjectionPruning,
	PhaseNullabilityRules,
	PhaseCodeGen,
}

// Options tune a Compiler.
type Options struct {
	// Whether to log various debugging messages
	Debug bool
	// Whether to output the tree after each phase that changed it
	Verbose bool
	// MaxRuleIterations bounds the passes of a rule table over a tree.
	MaxRuleIterations int
	// MaxJoinEliminationPasses bounds the join elimination loop.
	MaxJoinEliminationPasses int
	// UseDatabaseNullSemantics skips the null semantics phase.
	UseDatabaseNullSemantics bool
	// DisabledPhases are skipped.
	DisabledPhases []string
	// ConstraintCacheSize is the number of entity containers whose
	// constraints are kept in memory.
	ConstraintCacheSize int
}

// DefaultOptions returns the options of NewDefault.
func DefaultOptions() Options {
	return Options{
		MaxRuleIterations:        maxRuleIterations,
		MaxJoinEliminationPasses: maxJoinEliminationPasses,
		ConstraintCacheSize:      defaultConstraintCache,
	}
}

// Builder provides an easy way to generate a Compiler with custom rules and
// options.
type Builder struct {
	opts       Options
	debug      bool
	verbose    bool
	extraRules []Rule
	nextRuleId RuleId
}

// NewBuilder creates a new Builder with the default options.
func NewBuilder() *Builder {
	return &Builder{opts: DefaultOptions(), nextRuleId: customRuleIdStart}
}

// WithDebug activates debug logging on the Compiler.
func (b *Builder) WithDebug() *Builder {
	b.debug = true
	return b
}

// WithVerbose makes the Compiler log the tree after each phase.
func (b *Builder) WithVerbose() *Builder {
	b.verbose = true
	return b
}

// WithOptions replaces the options of the Compiler. Zero limits are replaced
// by their defaults.
func (b *Builder) WithOptions(opts Options) *Builder {
	b.opts = opts
	return b
}

// AddRule adds a rule run with the default transformations on every node of
// type op.
func (b *Builder) AddRule(name string, op itree.OpType, fn RuleFunc) *Builder {
	b.extraRules = append(b.extraRules, &SimpleRule{id: b.nextRuleId, name: name, opType: op, fn: fn})
	b.nextRuleId++
	return b
}

// Build creates a new Compiler using all previous data set on the Builder.
func (b *Builder) Build() (*Compiler, error) {
	_, debug := os.LookupEnv(debugPlanCompilerKey)

	opts := b.opts
	opts.Debug = opts.Debug || debug || b.debug
	opts.Verbose = opts.Verbose || b.verbose
	if opts.MaxRuleIterations <= 0 {
		opts.MaxRuleIterations = maxRuleIterations
	}
	if opts.MaxJoinEliminationPasses <= 0 {
		opts.MaxJoinEliminationPasses = maxJoinEliminationPasses
	}
	if opts.ConstraintCacheSize <= 0 {
		opts.ConstraintCacheSize = defaultConstraintCache
	}
	for _, p := range opts.DisabledPhases {
		if !isPhase(p) {
			return nil, sql.ErrInvalidConfig.New("disabled_phases", p+similartext.Find(Phases, p))
		}
	}

	constraints, err := NewConstraintManager(opts.ConstraintCacheSize)
	if err != nil {
		return nil, err
	}

	rules := getTransformationRules()
	tables := ruleTables{
		all:                 rules.AllRules,
		postJoinElimination: rules.PostJoinEliminationRules,
		project:             rules.ProjectRules,
		nullability:         rules.NullabilityRules,
	}
	if len(b.extraRules) > 0 {
		tables.all = rules.AllRules.Clone()
		tables.all.Add(b.extraRules...)
	}

	return &Compiler{
		Options:     opts,
		constraints: constraints,
		tables:      tables,
	}, nil
}

func isPhase(name string) bool {
	for _, p := range Phases {
		if p == name {
			return true
		}
	}
	return false
}

type ruleTables struct {
	all                 *RuleTable
	postJoinElimination *RuleTable
	project             *RuleTable
	nullability         *RuleTable
}

// Compiler rewrites query trees into their final form. A Compiler is safe
// for concurrent use; each call to Compile works on its own PlanCompiler.
type Compiler struct {
	Options
	constraints *ConstraintManager
	tables      ruleTables
}

// NewDefault creates a Compiler with the default rules and options.
func NewDefault() (*Compiler, error) {
	return NewBuilder().Build()
}

// ConstraintManager returns the foreign key cache shared by compilations.
func (c *Compiler) ConstraintManager() *ConstraintManager {
	return c.constraints
}

// CompiledPlan is the result of a compilation.
type CompiledPlan struct {
	// Root is the rewritten tree.
	Root *itree.Node
	// Commands are the commands to hand to the backend. Empty when the tree
	// is not rooted at a PhysicalProject.
	Commands []*ProviderCommandInfo
	// ColumnMap assembles results from the columns of Commands.
	ColumnMap itree.ColumnMap
	// ColumnCount is the number of columns of the first command.
	ColumnCount int
	// Changed tells whether any phase rewrote the tree.
	Changed bool
}

// Compile runs every phase over the tree of cmd. The tree is rewritten in
// place. Internal errors raised by Assert abort the compilation and are
// returned.
func (c *Compiler) Compile(ctx *sql.Context, cmd *itree.Command) (plan *CompiledPlan, err error) {
	span, ctx := ctx.Span("compile_plan")
	pc := newPlanCompiler(c, ctx, cmd)

	defer func() {
		if r := recover(); r != nil {
			e, ok := r.(error)
			if !ok || !sql.ErrInternal.Is(e) {
				span.Finish()
				panic(r)
			}
			pc.logger.Errorf("compilation aborted: %s", e)
			span.SetTag("error", true)
			plan, err = nil, e
		}
		span.SetTag("plan.changed", pc.changed)
		span.Finish()
	}()

	return pc.compile()
}

// PlanCompiler holds the state of one compilation.
type PlanCompiler struct {
	*Compiler
	Command *itree.Command

	ctx      *sql.Context
	logger   *logrus.Entry
	debugCtx []string
	changed  bool

	projectionPruningRequired bool
	reapplyNullabilityRules   bool
	hasSortingOnNullSentinels bool
}

func newPlanCompiler(c *Compiler, ctx *sql.Context, cmd *itree.Command) *PlanCompiler {
	return &PlanCompiler{
		Compiler: c,
		Command:  cmd,
		ctx:      ctx,
		logger:   ctx.Logger(),
		debugCtx: make([]string, 0),
	}
}

// Context returns the context of the compilation.
func (pc *PlanCompiler) Context() *sql.Context { return pc.ctx }

// Log prints an INFO message with the given message and args if the
// compiler is in debug mode.
func (pc *PlanCompiler) Log(msg string, args ...interface{}) {
	if pc != nil && pc.Debug {
		if len(pc.debugCtx) > 0 {
			ctx := strings.Join(pc.debugCtx, "/")
			pc.logger.Infof("%s: "+msg, append([]interface{}{ctx}, args...)...)
		} else {
			pc.logger.Infof(msg, args...)
		}
	}
}

// LogNode prints the tree given if Verbose logging is enabled.
func (pc *PlanCompiler) LogNode(n *itree.Node) {
	if pc != nil && n != nil && pc.Verbose {
		if len(pc.debugCtx) > 0 {
			ctx := strings.Join(pc.debugCtx, "/")
			pc.logger.Infof("%s:\n%s", ctx, itree.Dump(n))
		} else {
			pc.logger.Infof("\n%s", itree.Dump(n))
		}
	}
}

// PushDebugContext pushes the given context string onto the context stack,
// to use when logging debug messages.
func (pc *PlanCompiler) PushDebugContext(msg string) {
	if pc != nil {
		pc.debugCtx = append(pc.debugCtx, msg)
	}
}

// PopDebugContext pops a context message off the context stack.
func (pc *PlanCompiler) PopDebugContext() {
	if pc != nil && len(pc.debugCtx) > 0 {
		pc.debugCtx = pc.debugCtx[:len(pc.debugCtx)-1]
	}
}

// MarkProjectionPruningRequired asks for a projection pruning pass before
// the compilation ends.
func (pc *PlanCompiler) MarkProjectionPruningRequired() {
	pc.projectionPruningRequired = true
}

// IsPhaseDisabled reports whether the named phase is configured off.
func (pc *PlanCompiler) IsPhaseDisabled(name string) bool {
	for _, p := range pc.DisabledPhases {
		if p == name {
			return true
		}
	}
	return false
}

func (pc *PlanCompiler) compile() (*CompiledPlan, error) {
	Assert(pc.Command.Root != nil, "command has no root")
	pc.Log("starting compilation of tree rooted at %s", pc.Command.Root.OpType())
	pc.LogNode(pc.Command.Root)

	pc.hasSortingOnNullSentinels = hasSortingOnNullSentinels(pc.Command.Root)

	err := pc.runPhase(PhaseNullSemantics, func() (bool, error) {
		if pc.UseDatabaseNullSemantics {
			return false, nil
		}
		return NewNullSemantics(pc).Process(), nil
	})
	if err != nil {
		return nil, err
	}

	err = pc.runPhase(PhaseAggregatePushdown, func() (bool, error) {
		return NewAggregatePushdown(pc).Process(), nil
	})
	if err != nil {
		return nil, err
	}

	err = pc.runPhase(PhaseTransformations, func() (bool, error) {
		return pc.applyTransformations(pc.tables.all)
	})
	if err != nil {
		return nil, err
	}

	if err = pc.runPhase(PhaseJoinElimination, pc.eliminateJoins); err != nil {
		return nil, err
	}

	if pc.projectionPruningRequired {
		err = pc.runPhase(PhaseProjectionPruning, func() (bool, error) {
			pruned := pc.pruneProjections()
			changed, err := pc.applyTransformations(pc.tables.project)
			return pruned || changed, err
		})
		if err != nil {
			return nil, err
		}
	}

	if pc.reapplyNullabilityRules {
		err = pc.runPhase(PhaseNullabilityRules, func() (bool, error) {
			return pc.applyTransformations(pc.tables.nullability)
		})
		if err != nil {
			return nil, err
		}
	}

	plan := &CompiledPlan{Root: pc.Command.Root}
	if pc.Command.Root.OpType() == itree.OpPhysicalProject {
		err = pc.runPhase(PhaseCodeGen, func() (bool, error) {
			var err error
			plan, err = NewCodeGen(pc).Process()
			return false, err
		})
		if err != nil {
			return nil, err
		}
	}
	plan.Changed = pc.changed
	return plan, nil
}

func (pc *PlanCompiler) runPhase(name string, fn func() (bool, error)) error {
	if pc.IsPhaseDisabled(name) {
		pc.Log("skipping disabled phase %s", name)
		return nil
	}

	span, ctx := pc.ctx.Span(name)
	prev := pc.ctx
	pc.ctx = ctx
	pc.PushDebugContext(name)
	defer func() {
		pc.PopDebugContext()
		pc.ctx = prev
		span.Finish()
	}()

	changed, err := fn()
	span.LogKV("changed", changed)
	if changed {
		pc.changed = true
		pc.Log("tree changed")
		pc.LogNode(pc.Command.Root)
	}
	return err
}

func (pc *PlanCompiler) applyTransformations(tables ...*RuleTable) (bool, error) {
	span, ctx := pc.ctx.Span("apply_rules", opentracing.Tags{"tables": len(tables)})
	defer span.Finish()

	trc := NewTransformationRulesContext(pc)
	proc := NewRuleProcessor(pc.MaxRuleIterations)
	root, changed, err := proc.ApplyRulesToSubtree(trc, tables, pc.Command.Root)
	pc.Command.Root = root
	trc.Finish()

	pc.projectionPruningRequired = pc.projectionPruningRequired || trc.ProjectionPruningRequired()
	pc.reapplyNullabilityRules = pc.reapplyNullabilityRules || trc.ReapplyNullabilityRules()
	pc.Log("%d rules fired in %d passes", proc.Firings(), proc.Passes())
	span.SetTag("firings", proc.Firings())

	if ErrMaxRuleIterations.Is(err) {
		ctx.Logger().Warn(err.Error())
		return changed, nil
	}
	return changed, err
}

func (pc *PlanCompiler) eliminateJoins() (bool, error) {
	changed := false
	for i := 0; i < pc.MaxJoinEliminationPasses; i++ {
		if pc.projectionPruningRequired && !pc.IsPhaseDisabled(PhaseProjectionPruning) {
			pc.pruneProjections()
		}
		if !NewJoinElimination(pc).Process() {
			break
		}
		changed = true
		pc.projectionPruningRequired = true
		if _, err := pc.applyTransformations(pc.tables.postJoinElimination); err != nil {
			return changed, err
		}
	}
	return changed, nil
}

func (pc *PlanCompiler) pruneProjections() bool {
	changed := NewProjectionPruner(pc).Process()
	pc.projectionPruningRequired = false
	return changed
}

// hasSortingOnNullSentinels reports whether some sort orders by a var
// defined as a null sentinel.
func hasSortingOnNullSentinels(root *itree.Node) bool {
	sentinels := make(map[*itree.Var]bool)
	var sortKeys []*itree.SortKey
	var walk func(n *itree.Node)
	walk = func(n *itree.Node) {
		switch op := n.Op.(type) {
		case *itree.VarDefOp:
			if n.Child0().OpType() == itree.OpNullSentinel {
				sentinels[op.Var] = true
			}
		case *itree.SortOp:
			sortKeys = append(sortKeys, op.Keys...)
		case *itree.ConstrainedSortOp:
			sortKeys = append(sortKeys, op.Keys...)
		}
		for _, child := range n.Children {
			walk(child)
		}
	}
	walk(root)

	for _, k := range sortKeys {
		if sentinels[k.Var] {
			return true
		}
	}
	return false
}
