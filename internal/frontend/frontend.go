// Package frontend is the thin adapter between parsed SQL and this
// module's own metamodel: it turns github.com/pingcap/tidb/pkg/parser
// ast.Node output into catalog mutations (CREATE TABLE, component C2)
// and algebra Modify nodes (INSERT/UPDATE/DELETE, components C3/C8).
// It does not implement a SQL dialect itself — spec.md's non-goal —
// it only consumes the parser's AST contract, the same relationship
// the teacher's internal/parser/mysql package has to TiDB's parser.
package frontend

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pingcap/tidb/pkg/parser"
	"github.com/pingcap/tidb/pkg/parser/ast"
	"github.com/pingcap/tidb/pkg/parser/format"
	"github.com/pingcap/tidb/pkg/parser/opcode"
	_ "github.com/pingcap/tidb/pkg/parser/test_driver"

	"polyplan/internal/algebra"
	"polyplan/internal/catalog"
	"polyplan/internal/types"
)

// Frontend wraps a TiDB parser instance and the type factory its
// conversions intern logical types against.
type Frontend struct {
	factory *types.Factory
	parser  *parser.Parser
}

// New returns a Frontend that interns every logical type it produces
// in factory.
func New(factory *types.Factory) *Frontend {
	return &Frontend{factory: factory, parser: parser.New()}
}

// Parse splits sql into statement nodes.
func (f *Frontend) Parse(sql string) ([]ast.StmtNode, error) {
	stmts, _, err := f.parser.Parse(sql, "", "")
	if err != nil {
		return nil, fmt.Errorf("frontend: parse: %w", err)
	}
	return stmts, nil
}

// CreateTable converts a parsed CREATE TABLE statement into catalog
// mutations against tx, inside schemaID. Only the shapes needed to
// exercise the catalog are handled: column types, NOT NULL, PRIMARY
// KEY and UNIQUE KEY at both the column and table level.
func (f *Frontend) CreateTable(tx *catalog.Tx, schemaID, ownerID catalog.ID, stmt *ast.CreateTableStmt) (*catalog.Table, error) {
	table, err := tx.AddTable(stmt.Table.Name.O, schemaID, ownerID, catalog.TableRegular, "")
	if err != nil {
		return nil, fmt.Errorf("frontend: create table %q: %w", stmt.Table.Name.O, err)
	}

	var pkColumns []catalog.ID
	colIDs := make(map[string]catalog.ID, len(stmt.Cols))

	for i, colDef := range stmt.Cols {
		t, err := f.columnType(colDef)
		if err != nil {
			return nil, fmt.Errorf("frontend: column %q: %w", colDef.Name.Name.O, err)
		}

		nullable := true
		var uniqueAlone, primaryAlone bool
		for _, opt := range colDef.Options {
			switch opt.Tp {
			case ast.ColumnOptionNotNull:
				nullable = false
			case ast.ColumnOptionPrimaryKey:
				nullable = false
				primaryAlone = true
			case ast.ColumnOptionUniqKey:
				uniqueAlone = true
			}
		}

		col, err := tx.AddColumn(colDef.Name.Name.O, table.ID, i+1, t, -1, -1, nullable, "")
		if err != nil {
			return nil, fmt.Errorf("frontend: add column %q: %w", colDef.Name.Name.O, err)
		}
		colIDs[colDef.Name.Name.O] = col.ID

		if primaryAlone {
			pkColumns = append(pkColumns, col.ID)
		}
		if uniqueAlone {
			key, err := tx.AddKey(table.ID, []catalog.ID{col.ID}, catalog.EnforceOnQuery)
			if err != nil {
				return nil, err
			}
			if _, err := tx.AddConstraint(key.ID, catalog.ConstraintUnique, fmt.Sprintf("uq_%s_%s", table.Name, colDef.Name.Name.O)); err != nil {
				return nil, err
			}
		}
	}

	for _, c := range stmt.Constraints {
		switch c.Tp {
		case ast.ConstraintPrimaryKey:
			pkColumns = pkColumns[:0]
			for _, key := range c.Keys {
				id, ok := colIDs[key.Column.Name.O]
				if !ok {
					return nil, fmt.Errorf("frontend: primary key references unknown column %q", key.Column.Name.O)
				}
				pkColumns = append(pkColumns, id)
			}
		case ast.ConstraintUniq, ast.ConstraintUniqKey, ast.ConstraintUniqIndex:
			cols := make([]catalog.ID, 0, len(c.Keys))
			for _, key := range c.Keys {
				id, ok := colIDs[key.Column.Name.O]
				if !ok {
					return nil, fmt.Errorf("frontend: unique constraint references unknown column %q", key.Column.Name.O)
				}
				cols = append(cols, id)
			}
			key, err := tx.AddKey(table.ID, cols, catalog.EnforceOnQuery)
			if err != nil {
				return nil, err
			}
			name := c.Name
			if name == "" {
				name = fmt.Sprintf("uq_%s", table.Name)
			}
			if _, err := tx.AddConstraint(key.ID, catalog.ConstraintUnique, name); err != nil {
				return nil, err
			}
		}
	}

	if len(pkColumns) > 0 {
		key, err := tx.AddKey(table.ID, pkColumns, catalog.EnforceOnQuery)
		if err != nil {
			return nil, err
		}
		if err := tx.SetPrimaryKey(table.ID, key.ID); err != nil {
			return nil, err
		}
	}

	return table, nil
}

// columnType maps a parsed column's raw type text to the catalog's
// logical type system via ParseTypeName.
func (f *Frontend) columnType(colDef *ast.ColumnDef) (*types.Type, error) {
	return f.ParseTypeName(colDef.Tp.String())
}

// ParseTypeName maps a raw SQL type string ("int(11)", "varchar(255)",
// "decimal(10,2)") to the catalog's logical type system by substring
// match — the same normalization technique the teacher's
// core.NormalizeDataType applies to a TypeRaw string
// (internal/core/schema.go), generalized to return a *types.Type
// rather than the teacher's own DataType enum. Exported so callers
// outside a parsed AST (e.g. cmd/polyctl's catalog bootstrap) can
// reuse the same mapping for a bare type name.
func (f *Frontend) ParseTypeName(rawType string) (*types.Type, error) {
	raw := strings.ToLower(rawType)
	length, precision, scale := typeArgs(raw)
	switch {
	case strings.Contains(raw, "tinyint(1)"), strings.Contains(raw, "bool"):
		return f.factory.Simple(types.Boolean), nil
	case strings.Contains(raw, "tinyint"):
		return f.factory.Simple(types.TinyInt), nil
	case strings.Contains(raw, "smallint"):
		return f.factory.Simple(types.SmallInt), nil
	case strings.Contains(raw, "bigint"):
		return f.factory.Simple(types.BigInt), nil
	case strings.Contains(raw, "int"):
		return f.factory.Simple(types.Integer), nil
	case strings.Contains(raw, "decimal"), strings.Contains(raw, "numeric"):
		if precision <= 0 {
			precision = 10
		}
		return f.factory.DecimalType(precision, scale)
	case strings.Contains(raw, "double"):
		return f.factory.Simple(types.Double), nil
	case strings.Contains(raw, "float"), strings.Contains(raw, "real"):
		return f.factory.Simple(types.Real), nil
	case strings.Contains(raw, "varchar"):
		return f.factory.Sized(types.VarChar, orDefault(length, 255)), nil
	case strings.Contains(raw, "char"):
		return f.factory.Sized(types.Char, orDefault(length, 255)), nil
	case strings.Contains(raw, "text"), strings.Contains(raw, "json"), strings.Contains(raw, "enum"):
		return f.factory.Simple(types.Text), nil
	case strings.Contains(raw, "varbinary"):
		return f.factory.Sized(types.VarBinary, orDefault(length, 255)), nil
	case strings.Contains(raw, "binary"), strings.Contains(raw, "blob"):
		return f.factory.Simple(types.Binary), nil
	case strings.Contains(raw, "datetime"), strings.Contains(raw, "timestamp"):
		return f.factory.Simple(types.Timestamp), nil
	case strings.Contains(raw, "date"):
		return f.factory.Simple(types.Date), nil
	case strings.Contains(raw, "time"):
		return f.factory.Simple(types.Time), nil
	default:
		return nil, fmt.Errorf("frontend: unsupported column type %q", raw)
	}
}

// typeArgs extracts the parenthesized argument(s) of a raw type string,
// e.g. "decimal(10,2)" -> (10, 10, 2), "varchar(255)" -> (255, 255, 0);
// the first argument fills both length and precision.
func typeArgs(raw string) (length, precision, scale int) {
	open := strings.IndexByte(raw, '(')
	close := strings.IndexByte(raw, ')')
	if open < 0 || close < 0 || close < open {
		return 0, 0, 0
	}
	parts := strings.Split(raw[open+1:close], ",")
	nums := make([]int, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return 0, 0, 0
		}
		nums = append(nums, n)
	}
	switch len(nums) {
	case 1:
		return nums[0], nums[0], 0
	case 2:
		return nums[0], nums[0], nums[1]
	default:
		return 0, 0, 0
	}
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

// Insert converts a parsed INSERT statement into a Modify(INSERT) over
// a literal Values source, grounded on spec.md §4.3's Modify shape.
func (f *Frontend) Insert(table *catalog.Table, columns []*catalog.Column, stmt *ast.InsertStmt) (*algebra.Modify, error) {
	colNames := make([]string, len(stmt.Columns))
	for i, c := range stmt.Columns {
		colNames[i] = c.Name.O
	}
	if len(colNames) == 0 {
		colNames = make([]string, len(columns))
		for i, c := range columns {
			colNames[i] = c.Name
		}
	}

	row := make(algebra.RowType, len(colNames))
	for i, name := range colNames {
		t, err := columnTypeByName(columns, name)
		if err != nil {
			return nil, err
		}
		row[i] = algebra.Field{Name: name, Type: t}
	}

	rows := make([][]algebra.RexNode, len(stmt.Lists))
	for ri, list := range stmt.Lists {
		if len(list) != len(colNames) {
			return nil, fmt.Errorf("frontend: insert row %d has %d values, expected %d", ri, len(list), len(colNames))
		}
		vals := make([]algebra.RexNode, len(list))
		for i, expr := range list {
			v, err := f.literal(expr, row[i].Type)
			if err != nil {
				return nil, err
			}
			vals[i] = v
		}
		rows[ri] = vals
	}

	source := algebra.NewValues(row, rows)
	return algebra.NewModify(table.Name, algebra.ModifyInsert, source, colNames, nil), nil
}

// Update converts a parsed UPDATE statement into a Modify(UPDATE) whose
// Source is the target table scan, filtered by the WHERE clause when
// present.
func (f *Frontend) Update(table *catalog.Table, columns []*catalog.Column, stmt *ast.UpdateStmt) (*algebra.Modify, error) {
	row := tableRowType(columns)
	source, err := f.filteredScan(table.Name, row, stmt.Where)
	if err != nil {
		return nil, err
	}

	colNames := make([]string, len(stmt.List))
	exprs := make([]algebra.RexNode, len(stmt.List))
	for i, asn := range stmt.List {
		colNames[i] = asn.Column.Name.O
		t, err := columnTypeByName(columns, colNames[i])
		if err != nil {
			return nil, err
		}
		v, err := f.literal(asn.Expr, t)
		if err != nil {
			return nil, err
		}
		exprs[i] = v
	}

	return algebra.NewModify(table.Name, algebra.ModifyUpdate, source, colNames, exprs), nil
}

// Delete converts a parsed DELETE statement into a Modify(DELETE) whose
// Source is the target table scan, filtered by the WHERE clause when
// present.
func (f *Frontend) Delete(table *catalog.Table, columns []*catalog.Column, stmt *ast.DeleteStmt) (*algebra.Modify, error) {
	row := tableRowType(columns)
	source, err := f.filteredScan(table.Name, row, stmt.Where)
	if err != nil {
		return nil, err
	}
	return algebra.NewModify(table.Name, algebra.ModifyDelete, source, nil, nil), nil
}

func (f *Frontend) filteredScan(entityRef string, row algebra.RowType, where ast.ExprNode) (algebra.RelNode, error) {
	scan := algebra.NewTableScan(entityRef, row, algebra.TraitSet{Convention: algebra.ConventionLogical}, 0)
	if where == nil {
		return scan, nil
	}
	cond, err := f.predicate(where, row)
	if err != nil {
		return nil, err
	}
	return algebra.SimplifyFilter(scan, cond), nil
}

// predicate converts a conjunction of simple column/literal
// comparisons into a RexNode. Anything beyond that (subqueries,
// functions, OR) is rejected — scalar expression execution is a
// non-goal; the control flow here only needs to recognize the target
// row set, not evaluate arbitrary SQL.
func (f *Frontend) predicate(expr ast.ExprNode, row algebra.RowType) (algebra.RexNode, error) {
	bin, ok := expr.(*ast.BinaryOperationExpr)
	if !ok {
		return nil, fmt.Errorf("frontend: unsupported WHERE expression %T", expr)
	}

	if bin.Op == opcode.LogicAnd {
		left, err := f.predicate(bin.L, row)
		if err != nil {
			return nil, err
		}
		right, err := f.predicate(bin.R, row)
		if err != nil {
			return nil, err
		}
		call, err := algebra.NewCall(f.factory, andOperator, left, right)
		if err != nil {
			return nil, err
		}
		return call, nil
	}

	op, ok := comparisonOperators[bin.Op]
	if !ok {
		return nil, fmt.Errorf("frontend: unsupported WHERE operator %v", bin.Op)
	}

	colExpr, ok := bin.L.(*ast.ColumnNameExpr)
	if !ok {
		return nil, fmt.Errorf("frontend: WHERE clause must compare a column to a literal")
	}
	idx, t, err := findRowField(row, colExpr.Name.Name.O)
	if err != nil {
		return nil, err
	}
	lit, err := f.literal(bin.R, t)
	if err != nil {
		return nil, err
	}
	return algebra.NewCall(f.factory, op, algebra.NewIndexRef(idx, t), lit)
}

// literal renders expr back to SQL text via format.Restore — the same
// technique the teacher's exprToString helper
// (internal/parser/mysql/column.go) uses — and parses the result
// according to t's family, rather than inspecting the parser's
// internal literal-node representation directly.
func (f *Frontend) literal(expr ast.ExprNode, t *types.Type) (algebra.RexNode, error) {
	var sb strings.Builder
	ctx := format.NewRestoreCtx(format.DefaultRestoreFlags, &sb)
	if err := expr.Restore(ctx); err != nil {
		return nil, fmt.Errorf("frontend: restore literal: %w", err)
	}
	text := strings.TrimSpace(sb.String())

	if strings.EqualFold(text, "null") {
		return algebra.NewLiteral(nil, t), nil
	}

	switch t.Family() {
	case types.FamilyNumeric:
		if s, ok := unquote(text); ok {
			text = s
		}
		if t.Code == types.Integer || t.Code == types.BigInt || t.Code == types.SmallInt || t.Code == types.TinyInt {
			n, err := strconv.ParseInt(text, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("frontend: parse integer literal %q: %w", text, err)
			}
			return algebra.NewLiteral(n, t), nil
		}
		n, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return nil, fmt.Errorf("frontend: parse numeric literal %q: %w", text, err)
		}
		return algebra.NewLiteral(n, t), nil
	case types.FamilyBoolean:
		b, err := strconv.ParseBool(text)
		if err != nil {
			return nil, fmt.Errorf("frontend: parse boolean literal %q: %w", text, err)
		}
		return algebra.NewLiteral(b, t), nil
	default:
		if s, ok := unquote(text); ok {
			return algebra.NewLiteral(s, t), nil
		}
		return algebra.NewLiteral(text, t), nil
	}
}

func unquote(s string) (string, bool) {
	if len(s) >= 2 && s[0] == '\'' && s[len(s)-1] == '\'' {
		return strings.ReplaceAll(s[1:len(s)-1], "''", "'"), true
	}
	return "", false
}

func tableRowType(columns []*catalog.Column) algebra.RowType {
	row := make(algebra.RowType, len(columns))
	for i, c := range columns {
		row[i] = algebra.Field{Name: c.Name, Type: c.Type}
	}
	return row
}

func columnTypeByName(columns []*catalog.Column, name string) (*types.Type, error) {
	for _, c := range columns {
		if c.Name == name {
			return c.Type, nil
		}
	}
	return nil, fmt.Errorf("frontend: unknown column %q", name)
}

func findRowField(row algebra.RowType, name string) (int, *types.Type, error) {
	for i, f := range row {
		if f.Name == name {
			return i, f.Type, nil
		}
	}
	return 0, nil, fmt.Errorf("frontend: unknown column %q", name)
}

var andOperator = algebra.Operator{
	Name: "AND",
	InferType: func(fac *types.Factory, operands []*types.Type) (*types.Type, error) {
		return fac.Simple(types.Boolean), nil
	},
}

var comparisonOperators = map[opcode.Op]algebra.Operator{
	opcode.EQ: {Name: "EQ", InferType: boolInfer},
	opcode.NE: {Name: "NE", InferType: boolInfer},
	opcode.LT: {Name: "LT", InferType: boolInfer},
	opcode.LE: {Name: "LE", InferType: boolInfer},
	opcode.GT: {Name: "GT", InferType: boolInfer},
	opcode.GE: {Name: "GE", InferType: boolInfer},
}

func boolInfer(f *types.Factory, operands []*types.Type) (*types.Type, error) {
	return f.Simple(types.Boolean), nil
}
