package storage

import (
	"database/sql"

	"github.com/yuan-shuo/decoder/internal/graph"
)

const edgeColumns = `id, caller_id, callee_id, call_line, call_type,
	is_conditional, condition, is_loop, is_try_block, is_except_handler`

// InsertEdge inserts an edge and returns its ID
func (db *DB) InsertEdge(e *graph.Edge) (int64, error) {
	var condition interface{}
	if e.Condition != "" {
		condition = e.Condition
	}
	result, err := db.conn.Exec(
		`INSERT INTO edges (caller_id, callee_id, call_line, call_type,
			is_conditional, condition, is_loop, is_try_block, is_except_handler)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.CallerID, e.CalleeID, e.CallLine, e.Kind,
		e.IsConditional, condition, e.IsLoop, e.IsTry, e.IsExcept,
	)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

// GetAllEdges returns every edge in the database
func (db *DB) GetAllEdges() ([]*graph.Edge, error) {
	rows, err := db.conn.Query(`SELECT ` + edgeColumns + ` FROM edges ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEdges(rows)
}

// GetEdgesFrom returns all edges whose caller is the given symbol
func (db *DB) GetEdgesFrom(callerID int64) ([]*graph.Edge, error) {
	rows, err := db.conn.Query(
		`SELECT `+edgeColumns+` FROM edges WHERE caller_id = ? ORDER BY call_line`,
		callerID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEdges(rows)
}

// GetEdgesTo returns all edges whose callee is the given symbol
func (db *DB) GetEdgesTo(calleeID int64) ([]*graph.Edge, error) {
	rows, err := db.conn.Query(
		`SELECT `+edgeColumns+` FROM edges WHERE callee_id = ? ORDER BY call_line`,
		calleeID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEdges(rows)
}

// CallSite pairs a neighboring symbol with the edge connecting it
type CallSite struct {
	Symbol *graph.Symbol
	Edge   *graph.Edge
}

const callSiteColumns = `s.id, s.name, s.qualified_name, s.file, s.line, s.end_line, s.type, s.parent_id,
	e.id, e.caller_id, e.callee_id, e.call_line, e.call_type,
	e.is_conditional, e.condition, e.is_loop, e.is_try_block, e.is_except_handler`

// GetCallers returns the direct callers of a symbol with their call
// sites, ordered by file then call line. Edges of every kind are
// included; duplicate same-line edges from one caller collapse to one.
func (db *DB) GetCallers(symbolID int64) ([]CallSite, error) {
	rows, err := db.conn.Query(
		`SELECT `+callSiteColumns+`
		 FROM symbols s
		 JOIN edges e ON e.caller_id = s.id
		 WHERE e.callee_id = ?
		 GROUP BY e.caller_id, e.call_line
		 ORDER BY s.file, e.call_line`,
		symbolID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanCallSites(rows)
}

// GetCallees returns the symbols a symbol directly references with
// their call sites, ordered by call line. Edges of every kind are
// included; duplicate same-line edges to one callee collapse to one.
func (db *DB) GetCallees(symbolID int64) ([]CallSite, error) {
	rows, err := db.conn.Query(
		`SELECT `+callSiteColumns+`
		 FROM symbols s
		 JOIN edges e ON e.callee_id = s.id
		 WHERE e.caller_id = ?
		 GROUP BY e.callee_id, e.call_line
		 ORDER BY e.call_line`,
		symbolID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanCallSites(rows)
}

func scanCallSites(rows *sql.Rows) ([]CallSite, error) {
	var sites []CallSite
	for rows.Next() {
		var s graph.Symbol
		var e graph.Edge
		var endLine, parentID sql.NullInt64
		var condition sql.NullString
		err := rows.Scan(
			&s.ID, &s.Name, &s.QualifiedName, &s.File, &s.Line, &endLine, &s.Kind, &parentID,
			&e.ID, &e.CallerID, &e.CalleeID, &e.CallLine, &e.Kind,
			&e.IsConditional, &condition, &e.IsLoop, &e.IsTry, &e.IsExcept,
		)
		if err != nil {
			return nil, err
		}
		if endLine.Valid {
			v := int(endLine.Int64)
			s.EndLine = &v
		}
		if parentID.Valid {
			v := parentID.Int64
			s.ParentID = &v
		}
		if condition.Valid {
			e.Condition = condition.String
		}
		sites = append(sites, CallSite{Symbol: &s, Edge: &e})
	}
	return sites, rows.Err()
}

func scanEdges(rows *sql.Rows) ([]*graph.Edge, error) {
	var edges []*graph.Edge
	for rows.Next() {
		var e graph.Edge
		var condition sql.NullString
		if err := rows.Scan(&e.ID, &e.CallerID, &e.CalleeID, &e.CallLine, &e.Kind,
			&e.IsConditional, &condition, &e.IsLoop, &e.IsTry, &e.IsExcept); err != nil {
			return nil, err
		}
		if condition.Valid {
			e.Condition = condition.String
		}
		edges = append(edges, &e)
	}
	return edges, rows.Err()
}
