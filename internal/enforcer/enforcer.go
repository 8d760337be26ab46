// Package enforcer synthesizes the control subplans that check
// ON_QUERY unique and foreign-key constraints around a Modify
// (component C8): one subplan per constraint, unioned together and
// attached to a ConstraintEnforcer node. ON_COMMIT-timed constraints
// are skipped here; internal/txncoord's Coordinator.Commit only runs
// an on-commit check function its caller supplies, and nothing in this
// module builds one from the catalog's ON_COMMIT constraints.
package enforcer

import (
	"fmt"

	"polyplan/internal/algebra"
	"polyplan/internal/catalog"
	"polyplan/internal/config"
	"polyplan/internal/types"
)

// ScanProvider returns a full-row scan of tableID's current contents
// (typically the post-modification, routed scan the caller already
// built) along with a lookup from catalog column id to that scan's
// row index, so the enforcer can reference specific columns without
// owning any routing logic itself.
type ScanProvider func(tableID catalog.ID) (algebra.RelNode, map[catalog.ID]int, error)

var eqOperator = algebra.Operator{
	Name:      "EQ",
	InferType: boolInfer,
}

var gtOperator = algebra.Operator{
	Name:      "GT",
	InferType: boolInfer,
}

var andOperator = algebra.Operator{
	Name:      "AND",
	InferType: boolInfer,
}

var isNullOperator = algebra.Operator{
	Name:      "IS_NULL",
	InferType: boolInfer,
}

func boolInfer(f *types.Factory, operands []*types.Type) (*types.Type, error) {
	return f.Simple(types.Boolean), nil
}

// sentinelRow is the single-column row every per-constraint subplan is
// reprojected down to before the UNION ALL: "pos" identifies which
// ErrorKinds/ErrorMessages entry a produced row corresponds to.
func sentinelRow(f *types.Factory) algebra.RowType {
	return algebra.RowType{{Name: "pos", Type: f.Simple(types.Integer)}}
}

// Build assembles the ConstraintEnforcer wrapping modify: one subplan
// per ON_QUERY unique constraint and foreign key touching tableID,
// unioned together (spec.md §4.8). cfg.UniqueConstraintEnforcement and
// cfg.ForeignKeyEnforcement let an operator disable a whole class of
// checking without editing the catalog's constraint rows.
func Build(factory *types.Factory, snapshot *catalog.Snapshot, modify *algebra.Modify, tableID catalog.ID, scan ScanProvider, cfg config.RuntimeConfig) (*algebra.ConstraintEnforcer, error) {
	row, colIdx, err := scan(tableID)
	if err != nil {
		return nil, fmt.Errorf("enforcer: scan table %d: %w", tableID, err)
	}

	var subplans []algebra.RelNode
	var kinds []algebra.ErrorKind
	var messages []string

	if cfg.UniqueConstraintEnforcement {
		for _, key := range snapshot.GetKeysForTable(tableID) {
			if key.EnforcementTime != catalog.EnforceOnQuery {
				continue
			}
			for _, c := range snapshot.GetConstraintsForTable(tableID) {
				if c.KeyID != key.ID || c.Type != catalog.ConstraintUnique {
					continue
				}
				sub, err := buildUniqueSubplan(factory, snapshot, row, colIdx, key, len(kinds))
				if err != nil {
					return nil, fmt.Errorf("enforcer: unique constraint %q: %w", c.Name, err)
				}
				subplans = append(subplans, sub)
				kinds = append(kinds, algebra.ErrorUniqueViolation)
				messages = append(messages, fmt.Sprintf("unique constraint %q violated", c.Name))
			}
		}
	}

	if cfg.ForeignKeyEnforcement {
		for _, fk := range snapshot.GetForeignKeys(tableID) {
			localKey, err := snapshot.GetKey(fk.KeyID)
			if err != nil {
				return nil, fmt.Errorf("enforcer: foreign key %q: %w", fk.Name, err)
			}
			if localKey.EnforcementTime != catalog.EnforceOnQuery {
				continue
			}
			refKey, err := snapshot.GetKey(fk.ReferencedKeyID)
			if err != nil {
				return nil, fmt.Errorf("enforcer: foreign key %q: %w", fk.Name, err)
			}
			parentRow, parentColIdx, err := scan(refKey.TableID)
			if err != nil {
				return nil, fmt.Errorf("enforcer: foreign key %q: scan parent table: %w", fk.Name, err)
			}
			sub, err := buildForeignKeySubplan(factory, snapshot, row, colIdx, localKey, parentRow, parentColIdx, refKey, len(kinds))
			if err != nil {
				return nil, fmt.Errorf("enforcer: foreign key %q: %w", fk.Name, err)
			}
			subplans = append(subplans, sub)
			kinds = append(kinds, algebra.ErrorForeignKeyViolation)
			messages = append(messages, fmt.Sprintf("foreign key %q violated", fk.Name))
		}
	}

	var control algebra.RelNode
	if len(subplans) == 0 {
		control = algebra.EmptyValues(sentinelRow(factory))
	} else {
		control = algebra.SimplifySetOp(algebra.SetOpUnion, true, subplans)
	}

	return algebra.NewConstraintEnforcer(modify, control, kinds, messages), nil
}

// buildUniqueSubplan re-scans the target table, projects the key's
// columns, groups by them, counts, and keeps groups with count > 1
// (spec.md §4.8 step 1) — a nonempty result means the constraint is
// violated.
func buildUniqueSubplan(factory *types.Factory, snapshot *catalog.Snapshot, scan algebra.RelNode, colIdx map[catalog.ID]int, key *catalog.Key, pos int) (algebra.RelNode, error) {
	projects := make([]algebra.RexNode, len(key.ColumnIDs))
	row := make(algebra.RowType, len(key.ColumnIDs))
	for i, cid := range key.ColumnIDs {
		idx, ok := colIdx[cid]
		if !ok {
			return nil, fmt.Errorf("column %d missing from scan", cid)
		}
		col, err := snapshot.GetColumn(cid)
		if err != nil {
			return nil, err
		}
		projects[i] = algebra.NewIndexRef(idx, col.Type)
		row[i] = algebra.Field{Name: col.Name, Type: col.Type}
	}
	proj := algebra.NewProject(scan, projects, row)

	intType := factory.Simple(types.Integer)
	groupKeys := make([]int, len(key.ColumnIDs))
	for i := range groupKeys {
		groupKeys[i] = i
	}
	aggRow := append(append(algebra.RowType(nil), row...), algebra.Field{Name: "cnt", Type: intType})
	agg := algebra.NewAggregate(proj, groupKeys, nil, []algebra.AggCall{{FuncName: "COUNT"}}, aggRow)

	countRef := algebra.NewIndexRef(len(key.ColumnIDs), intType)
	one := algebra.NewLiteral(1, intType)
	cond, err := algebra.NewCall(factory, gtOperator, countRef, one)
	if err != nil {
		return nil, err
	}
	filter := algebra.NewFilter(agg, cond)

	return sentinelProject(factory, filter, pos)
}

// buildForeignKeySubplan left-joins the child's key-column projection
// against the parent's referenced-key projection and keeps rows where
// the parent side is NULL — an orphaned child row (spec.md §4.8 step
// 2).
func buildForeignKeySubplan(factory *types.Factory, snapshot *catalog.Snapshot, childScan algebra.RelNode, childColIdx map[catalog.ID]int, localKey *catalog.Key, parentScan algebra.RelNode, parentColIdx map[catalog.ID]int, refKey *catalog.Key, pos int) (algebra.RelNode, error) {
	childProjects := make([]algebra.RexNode, len(localKey.ColumnIDs))
	childRow := make(algebra.RowType, len(localKey.ColumnIDs))
	for i, cid := range localKey.ColumnIDs {
		idx, ok := childColIdx[cid]
		if !ok {
			return nil, fmt.Errorf("child column %d missing from scan", cid)
		}
		col, err := snapshot.GetColumn(cid)
		if err != nil {
			return nil, err
		}
		childProjects[i] = algebra.NewIndexRef(idx, col.Type)
		childRow[i] = algebra.Field{Name: col.Name, Type: col.Type}
	}
	childProj := algebra.NewProject(childScan, childProjects, childRow)

	parentProjects := make([]algebra.RexNode, len(refKey.ColumnIDs))
	parentRow := make(algebra.RowType, len(refKey.ColumnIDs))
	for i, cid := range refKey.ColumnIDs {
		idx, ok := parentColIdx[cid]
		if !ok {
			return nil, fmt.Errorf("parent column %d missing from scan", cid)
		}
		col, err := snapshot.GetColumn(cid)
		if err != nil {
			return nil, err
		}
		parentProjects[i] = algebra.NewIndexRef(idx, col.Type)
		parentRow[i] = algebra.Field{Name: col.Name, Type: col.Type}
	}
	parentProj := algebra.NewProject(parentScan, parentProjects, parentRow)

	conds := make([]algebra.RexNode, len(localKey.ColumnIDs))
	for i := range localKey.ColumnIDs {
		left := algebra.NewIndexRef(i, childRow[i].Type)
		right := algebra.NewIndexRef(len(childRow)+i, parentRow[i].Type)
		eq, err := algebra.NewCall(factory, eqOperator, left, right)
		if err != nil {
			return nil, err
		}
		conds[i] = eq
	}
	var joinCond algebra.RexNode = conds[0]
	if len(conds) > 1 {
		and, err := algebra.NewCall(factory, andOperator, conds...)
		if err != nil {
			return nil, err
		}
		joinCond = and
	}

	join := algebra.NewJoin(childProj, parentProj, joinCond, algebra.JoinLeft)

	orphanCheck := algebra.NewIndexRef(len(childRow), parentRow[0].Type)
	isOrphan, err := algebra.NewCall(factory, isNullOperator, orphanCheck)
	if err != nil {
		return nil, err
	}
	filter := algebra.NewFilter(join, isOrphan)

	return sentinelProject(factory, filter, pos)
}

func sentinelProject(factory *types.Factory, input algebra.RelNode, pos int) (algebra.RelNode, error) {
	posLit := algebra.NewLiteral(pos, factory.Simple(types.Integer))
	return algebra.NewProject(input, []algebra.RexNode{posLit}, sentinelRow(factory)), nil
}
