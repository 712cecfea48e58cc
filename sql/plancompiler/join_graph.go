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
	"strings"

	"github.com/dolthub/go-plancompiler/sql/itree"
)

// JoinGraph is the shadow of one join subtree, with the equijoin edges
// between its tables. It decides which tables can be removed and rebuilds
// the subtree without them.
type JoinGraph struct {
	cmd         *itree.Command
	constraints *ConstraintManager
	remapper    *VarRemapper
	root        *itree.Node
	// outsideRefs are the vars read outside of the join subtree.
	outsideRefs *itree.VarVec

	nodes  []augmentedNode
	tables map[*itree.Table]*AugmentedTableNode
	edges  []*JoinEdge
}

// NewJoinGraph builds the graph of the join subtree rooted at root.
// Eliminated columns are mapped to their replacements in remapper.
func NewJoinGraph(
	cmd *itree.Command,
	constraints *ConstraintManager,
	remapper *VarRemapper,
	root *itree.Node,
	outsideRefs *itree.VarVec,
) *JoinGraph {
	g := &JoinGraph{
		cmd:         cmd,
		constraints: constraints,
		remapper:    remapper,
		root:        root,
		outsideRefs: outsideRefs,
		tables:      make(map[*itree.Table]*AugmentedTableNode),
	}
	g.build(root, -1)
	g.generateEdges()
	g.generateTransitiveEdges()
	return g
}

func (g *JoinGraph) build(n *itree.Node, parent int) int {
	id := len(g.nodes)
	node := AugmentedNode{Id: id, Node: n, Parent: parent}
	switch {
	case n.OpType() == itree.OpScanTable:
		t := &AugmentedTableNode{
			AugmentedNode:    node,
			Table:            n.Op.(*itree.ScanTableOp).Table,
			ReplacementTable: id,
			FirstVisibleId:   -1,
			NewLocationId:    id,
		}
		g.nodes = append(g.nodes, t)
		g.tables[t.Table] = t
	case n.OpType().IsJoin():
		j := &AugmentedJoinNode{AugmentedNode: node, JoinType: n.OpType()}
		g.nodes = append(g.nodes, j)
		inputs := n.Children
		if j.JoinType != itree.OpCrossJoin {
			inputs = n.Children[:2]
		}
		for _, input := range inputs {
			j.Children = append(j.Children, g.build(input, id))
		}
		if j.JoinType != itree.OpCrossJoin {
			g.splitPredicate(j, n.Child2())
		}
	default:
		g.nodes = append(g.nodes, &node)
	}
	return id
}

func (g *JoinGraph) splitPredicate(j *AugmentedJoinNode, pred *itree.Node) {
	for _, conjunct := range splitConjuncts(pred) {
		if c, ok := conjunct.Op.(*itree.ConstantPredicateOp); ok && c.IsTrue() {
			continue
		}
		if left, right, ok := g.equiJoinPair(j, conjunct); ok {
			j.LeftVars = append(j.LeftVars, left)
			j.RightVars = append(j.RightVars, right)
			j.pairPredicates = append(j.pairPredicates, conjunct)
			g.markVisible(left, j)
			g.markVisible(right, j)
			continue
		}
		j.OtherPredicate = g.cmd.BuildAnd(j.OtherPredicate, conjunct)
		for _, v := range g.cmd.GetNodeInfo(conjunct).ExternalReferences.Vars() {
			g.markVisible(v, j)
		}
	}
}

// equiJoinPair matches EQ(VarRef(l), VarRef(r)), or its mirror, where l is
// a column of a table on the left of j and r one on the right.
func (g *JoinGraph) equiJoinPair(j *AugmentedJoinNode, pred *itree.Node) (*itree.Var, *itree.Var, bool) {
	if pred.OpType() != itree.OpEQ {
		return nil, nil, false
	}
	a, ok := pred.Child0().Op.(*itree.VarRefOp)
	if !ok {
		return nil, nil, false
	}
	b, ok := pred.Child1().Op.(*itree.VarRefOp)
	if !ok {
		return nil, nil, false
	}
	ta, tb := g.tableOf(a.Var), g.tableOf(b.Var)
	if ta == nil || tb == nil {
		return nil, nil, false
	}

	left, right := j.Children[0], j.Children[1]
	switch {
	case g.isUnder(ta.Id, left) && g.isUnder(tb.Id, right):
		return a.Var, b.Var, true
	case g.isUnder(tb.Id, left) && g.isUnder(ta.Id, right):
		return b.Var, a.Var, true
	}
	return nil, nil, false
}

func (g *JoinGraph) tableOf(v *itree.Var) *AugmentedTableNode {
	if v.VarType != itree.ColumnVarType {
		return nil
	}
	return g.tables[v.Table]
}

// markVisible records that the table of v is read by the predicate of j.
// Predicates are split bottom up, so the first join marking a table is the
// lowest one.
func (g *JoinGraph) markVisible(v *itree.Var, j *AugmentedJoinNode) {
	if t := g.tableOf(v); t != nil && t.FirstVisibleId < 0 {
		t.FirstVisibleId = j.Id
	}
}

// readsBelow reports whether the predicate of a join strictly below j reads
// a column of t.
func (g *JoinGraph) readsBelow(t *AugmentedTableNode, j *AugmentedJoinNode) bool {
	return t.FirstVisibleId >= 0 && t.FirstVisibleId != j.Id && g.isUnder(t.FirstVisibleId, j.Id)
}

// lowerJoin returns whichever of the joins a and b lies under the other.
// Either may be -1.
func (g *JoinGraph) lowerJoin(a, b int) int {
	switch {
	case a < 0:
		return b
	case b < 0 || g.isUnder(a, b):
		return a
	}
	return b
}

// isUnder reports whether node id is ancestor or lies beneath it.
func (g *JoinGraph) isUnder(id, ancestor int) bool {
	for ; id >= 0; id = g.nodes[id].base().Parent {
		if id == ancestor {
			return true
		}
	}
	return false
}

func (g *JoinGraph) generateEdges() {
	for _, n := range g.nodes {
		j, ok := n.(*AugmentedJoinNode)
		if !ok {
			continue
		}
		var kind JoinKind
		switch j.JoinType {
		case itree.OpInnerJoin:
			kind = InnerJoinKind
		case itree.OpLeftOuterJoin:
			kind = LeftOuterJoinKind
		default:
			continue
		}
		for i := range j.LeftVars {
			left, right := g.tableOf(j.LeftVars[i]), g.tableOf(j.RightVars[i])
			e := g.findEdge(j, left, right)
			if e == nil {
				e = &JoinEdge{Left: left, Right: right, Kind: kind, Join: j}
				g.edges = append(g.edges, e)
			}
			e.addPair(j.LeftVars[i], j.RightVars[i])
		}
	}
}

func (g *JoinGraph) findEdge(j *AugmentedJoinNode, left, right *AugmentedTableNode) *JoinEdge {
	for _, e := range g.edges {
		if e.Join == j && e.Left == left && e.Right == right {
			return e
		}
	}
	return nil
}

func (g *JoinGraph) hasEdge(a, b *AugmentedTableNode) bool {
	for _, e := range g.edges {
		if e.Touches(a) && e.Touches(b) {
			return true
		}
	}
	return false
}

// generateTransitiveEdges adds x.a = z.c for every pair of inner edges
// x.a = y.b and y.b = z.c joining on the same columns of y. Only one round
// is made: inferred edges do not produce further edges.
func (g *JoinGraph) generateTransitiveEdges() {
	n := len(g.edges)
	for i := 0; i < n; i++ {
		for k := i + 1; k < n; k++ {
			e1, e2 := g.edges[i], g.edges[k]
			if e1.Kind != InnerJoinKind || e2.Kind != InnerJoinKind {
				continue
			}
			for _, shared := range []*AugmentedTableNode{e1.Left, e1.Right} {
				if !e2.Touches(shared) {
					continue
				}
				x, z := e1.Other(shared), e2.Other(shared)
				if x == z || g.hasEdge(x, z) {
					continue
				}
				if e := transitiveEdge(e1, e2, shared); e != nil {
					g.edges = append(g.edges, e)
				}
			}
		}
	}
}

func transitiveEdge(e1, e2 *JoinEdge, shared *AugmentedTableNode) *JoinEdge {
	x, z := e1.Other(shared), e2.Other(shared)
	e1Shared, e1Other := e1.VarsOn(shared), e1.VarsOn(x)
	e2Shared, e2Other := e2.VarsOn(shared), e2.VarsOn(z)
	if len(e1Shared) != len(e2Shared) {
		return nil
	}

	byShared := make(map[*itree.Var]*itree.Var, len(e1Shared))
	for i, v := range e1Shared {
		byShared[v] = e1Other[i]
	}
	e := &JoinEdge{Left: x, Right: z, Kind: InnerJoinKind}
	for i, v := range e2Shared {
		xv, ok := byShared[v]
		if !ok {
			return nil
		}
		delete(byShared, v)
		e.addPair(xv, e2Other[i])
	}
	return e
}

// DoJoinElimination removes every table it can and returns the rebuilt
// subtree. The subtree is returned unchanged when nothing is removed.
func (g *JoinGraph) DoJoinElimination() (*itree.Node, bool) {
	changed := false
	for progress := true; progress; {
		progress = false
		for _, e := range g.edges {
			if e.IsEliminated() {
				continue
			}
			if g.tryEliminate(e) {
				progress, changed = true, true
			}
		}
	}
	if !changed {
		return g.root, false
	}
	return g.rebuild(0), true
}

func (g *JoinGraph) tryEliminate(e *JoinEdge) bool {
	if e.Kind == LeftOuterJoinKind {
		return g.tryEliminateTable(e, e.Left, e.Right)
	}
	return g.tryEliminateTable(e, e.Left, e.Right) || g.tryEliminateTable(e, e.Right, e.Left)
}

// tryEliminateTable removes drop, joined to keep by e, below the join j the
// tables meet at. For an inner edge, both tables must reach j through inner
// and cross joins only, so that none of their rows are null extended. When
// a join between drop and j reads drop, keep takes the place of drop, which
// requires that no join between keep and j reads keep. For a left outer
// edge, drop must be the right input of j.
func (g *JoinGraph) tryEliminateTable(e *JoinEdge, keep, drop *AugmentedTableNode) bool {
	j := e.Join
	if j == nil {
		j = g.lowestCommonJoin(keep, drop)
	}
	if j == nil {
		return false
	}

	outer := e.Kind == LeftOuterJoinKind
	if outer {
		if j.JoinType != itree.OpLeftOuterJoin || drop.Parent != j.Id || j.Children[1] != drop.NewLocationId {
			return false
		}
	} else if !g.isInnerPath(keep.Id, j.Id) || !g.isInnerPath(drop.Id, j.Id) {
		return false
	} else if g.readsBelow(drop, j) && g.readsBelow(keep, j) {
		return false
	}

	referenced := g.referencedColumns(e, j, drop)
	return g.tryEliminateSelfJoin(e, j, keep, drop, referenced) ||
		g.tryEliminateParent(e, j, keep, drop, referenced) ||
		g.tryEliminateUniqueOuter(e, drop, referenced)
}

func (g *JoinGraph) lowestCommonJoin(a, b *AugmentedTableNode) *AugmentedJoinNode {
	for id := a.Parent; id >= 0; id = g.nodes[id].base().Parent {
		if g.isUnder(b.Id, id) {
			j, _ := g.nodes[id].(*AugmentedJoinNode)
			return j
		}
	}
	return nil
}

// isInnerPath reports whether every join from id up to ancestor, both
// included, is an inner or cross join.
func (g *JoinGraph) isInnerPath(id, ancestor int) bool {
	for id = g.nodes[id].base().Parent; id >= 0; id = g.nodes[id].base().Parent {
		j := g.nodes[id].(*AugmentedJoinNode)
		if j.JoinType != itree.OpInnerJoin && j.JoinType != itree.OpCrossJoin {
			return false
		}
		if id == ancestor {
			return true
		}
	}
	return false
}

// referencedColumns returns the columns of drop read anywhere but in the
// pairs of e. The predicate of a left outer join goes away with its right
// input, so it is not counted when e comes from one.
func (g *JoinGraph) referencedColumns(e *JoinEdge, j *AugmentedJoinNode, drop *AugmentedTableNode) *itree.VarVec {
	refs := g.cmd.CreateVarVec().Or(g.outsideRefs)
	for _, n := range g.nodes {
		jn, ok := n.(*AugmentedJoinNode)
		if !ok {
			continue
		}
		if jn.OtherPredicate != nil && !(e.Kind == LeftOuterJoinKind && jn == j) {
			refs.Or(g.cmd.GetNodeInfo(jn.OtherPredicate).ExternalReferences)
		}
		for i := range jn.LeftVars {
			if jn == e.Join && g.tableOf(jn.LeftVars[i]) == e.Left && g.tableOf(jn.RightVars[i]) == e.Right {
				continue
			}
			refs.Set(jn.LeftVars[i]).Set(jn.RightVars[i])
		}
	}

	res := g.cmd.CreateVarVec()
	for _, v := range refs.Vars() {
		if mv := g.remapper.Map(v); mv.Table == drop.Table {
			res.Set(mv)
		}
	}
	return res
}

// tryEliminateSelfJoin removes drop when it is joined on its whole key to
// another instance of the same table. Every column of drop is replaced by
// the same column of keep.
func (g *JoinGraph) tryEliminateSelfJoin(e *JoinEdge, j *AugmentedJoinNode, keep, drop *AugmentedTableNode, referenced *itree.VarVec) bool {
	if keep.Table.MD != drop.Table.MD || len(drop.Table.MD.Keys) == 0 {
		return false
	}
	keepVars, dropVars := e.VarsOn(keep), e.VarsOn(drop)
	covered := make(map[*itree.ColumnMD]bool)
	for i := range keepVars {
		if keepVars[i].Column != dropVars[i].Column {
			return false
		}
		covered[dropVars[i].Column] = true
	}
	for _, k := range drop.Table.MD.Keys {
		if !covered[k] {
			return false
		}
		if !keep.Table.NonNullableColumns.IsSet(keep.Table.ColumnVarFor(k)) {
			return false
		}
	}
	if e.Kind == LeftOuterJoinKind && j.OtherPredicate != nil && !referenced.IsEmpty() {
		return false
	}

	mapping := itree.NewVarMap()
	for _, v := range drop.Table.Columns {
		mapping.Add(v, keep.Table.ColumnVarFor(v.Column))
	}
	g.eliminate(j, keep, drop, mapping, e.Kind == LeftOuterJoinKind)
	return true
}

// tryEliminateParent removes drop when it is the parent of keep in a
// foreign key matched by the pairs of e, and no column of drop but its key
// is read. The key columns of drop are replaced by the foreign key columns
// of keep.
func (g *JoinGraph) tryEliminateParent(e *JoinEdge, j *AugmentedJoinNode, keep, drop *AugmentedTableNode, referenced *itree.VarVec) bool {
	if g.constraints == nil || keep.Table.MD.Extent == nil || drop.Table.MD.Extent == nil {
		return false
	}
	fks, ok := g.constraints.IsParentChildRelationship(drop.Table.MD.Extent, keep.Table.MD.Extent)
	if !ok {
		return false
	}

	keepVars, dropVars := e.VarsOn(keep), e.VarsOn(drop)
	for _, fk := range fks {
		if !pairsMatchForeignKey(fk, keepVars, dropVars) || !coversKey(drop.Table, dropVars) {
			continue
		}
		if e.Kind == InnerJoinKind {
			nonNull := true
			for _, v := range keepVars {
				nonNull = nonNull && keep.Table.NonNullableColumns.IsSet(v)
			}
			if !nonNull {
				continue
			}
		}
		if !g.cmd.CreateVarVec(dropVars...).Subsumes(referenced) {
			continue
		}
		if e.Kind == LeftOuterJoinKind && j.OtherPredicate != nil && !referenced.IsEmpty() {
			continue
		}

		mapping := itree.NewVarMap()
		for i := range dropVars {
			mapping.Add(dropVars[i], keepVars[i])
		}
		g.eliminate(j, keep, drop, mapping, e.Kind == LeftOuterJoinKind)
		return true
	}
	return false
}

// tryEliminateUniqueOuter removes the right input of a left outer join
// matched on its whole key when none of its columns are read. Every row of
// the left input then produces exactly one row.
func (g *JoinGraph) tryEliminateUniqueOuter(e *JoinEdge, drop *AugmentedTableNode, referenced *itree.VarVec) bool {
	if e.Kind != LeftOuterJoinKind || !referenced.IsEmpty() || !coversKey(drop.Table, e.VarsOn(drop)) {
		return false
	}
	g.eliminate(e.Join, e.Left, drop, itree.NewVarMap(), true)
	return true
}

func pairsMatchForeignKey(fk *ForeignKeyConstraint, childVars, parentVars []*itree.Var) bool {
	if len(childVars) != len(fk.ChildKeys) {
		return false
	}
	matched := make(map[string]bool, len(childVars))
	for i := range childVars {
		parentKey, ok := fk.GetParentProperty(childVars[i].Column.Name)
		if !ok || parentKey != parentVars[i].Column.Name {
			return false
		}
		matched[childVars[i].Column.Name] = true
	}
	return len(matched) == len(fk.ChildKeys)
}

func coversKey(t *itree.Table, vars []*itree.Var) bool {
	if len(t.MD.Keys) == 0 {
		return false
	}
	for _, k := range t.MD.Keys {
		found := false
		for _, v := range vars {
			found = found || v.Column == k
		}
		if !found {
			return false
		}
	}
	return true
}

func (g *JoinGraph) eliminate(j *AugmentedJoinNode, keep, drop *AugmentedTableNode, mapping *itree.VarMap, outer bool) {
	drop.ReplacementTable = keep.Id
	for _, old := range mapping.Keys() {
		nv, _ := mapping.Get(old)
		if drop.Table.ReferencedColumns.IsSet(old) {
			keep.Table.ReferencedColumns.Set(nv)
		}
		g.remapper.AddMapping(old, nv)
	}
	if !outer && g.readsBelow(drop, j) {
		g.relocate(keep, drop)
	}
	keep.FirstVisibleId = g.lowerJoin(keep.FirstVisibleId, drop.FirstVisibleId)
	if outer {
		j.rightEliminated = true
	}
}

// relocate moves keep to the slot of drop, so that the joins reading the
// columns of drop still see their replacements.
func (g *JoinGraph) relocate(keep, drop *AugmentedTableNode) {
	keep.NewLocationId = drop.NewLocationId
	keep.Parent = drop.Parent
}

func (g *JoinGraph) rebuild(id int) *itree.Node {
	switch n := g.nodes[id].(type) {
	case *AugmentedTableNode:
		for _, t := range g.tables {
			if t.NewLocationId == id && !t.IsEliminated() {
				g.cmd.RecomputeNodeInfo(t.Node)
				return t.Node
			}
		}
		return nil
	case *AugmentedJoinNode:
		return g.rebuildJoin(n)
	default:
		return n.base().Node
	}
}

func (g *JoinGraph) rebuildJoin(j *AugmentedJoinNode) *itree.Node {
	var inputs []*itree.Node
	for _, c := range j.Children {
		if input := g.rebuild(c); input != nil {
			inputs = append(inputs, input)
		}
	}
	if j.rightEliminated {
		Assert(len(inputs) == 1, "left outer join %d has %d inputs after removing its right input", j.Id, len(inputs))
		return inputs[0]
	}

	pred := j.OtherPredicate
	for i := range j.LeftVars {
		// pairs of an eliminated edge now compare a column to itself
		if g.remapper.Map(j.LeftVars[i]) == g.remapper.Map(j.RightVars[i]) {
			continue
		}
		pred = g.cmd.BuildAnd(pred, j.pairPredicates[i])
	}

	switch {
	case len(inputs) == 1:
		if pred == nil {
			return inputs[0]
		}
		return g.cmd.CreateNode(itree.NewFilterOp(), inputs[0], pred)
	case j.JoinType == itree.OpCrossJoin:
		return g.cmd.CreateNode(j.Node.Op, inputs...)
	case pred == nil && j.JoinType == itree.OpInnerJoin:
		return g.cmd.CreateNode(itree.NewJoinOp(itree.OpCrossJoin), inputs...)
	case pred == nil:
		pred = g.cmd.CreateConstantPredicateNode(true)
	}
	return g.cmd.CreateNode(j.Node.Op, inputs[0], inputs[1], pred)
}

// InputNodes returns the inputs of the join subtree that are neither joins
// nor table scans.
func (g *JoinGraph) InputNodes() []*itree.Node {
	var res []*itree.Node
	for _, n := range g.nodes {
		if an, ok := n.(*AugmentedNode); ok {
			res = append(res, an.Node)
		}
	}
	return res
}

// Predicates returns the join predicates that are not equijoin pairs.
func (g *JoinGraph) Predicates() []*itree.Node {
	var res []*itree.Node
	for _, n := range g.nodes {
		if j, ok := n.(*AugmentedJoinNode); ok && j.OtherPredicate != nil {
			res = append(res, j.OtherPredicate)
		}
	}
	return res
}

func (g *JoinGraph) String() string {
	var sb strings.Builder
	for _, n := range g.nodes {
		sb.WriteString(n.String())
		sb.WriteString("\n")
	}
	for _, e := range g.edges {
		sb.WriteString(e.String())
		sb.WriteString("\n")
	}
	return sb.String()
}
