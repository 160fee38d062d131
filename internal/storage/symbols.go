package storage

import (
	"database/sql"

	"github.com/yuan-shuo/decoder/internal/graph"
)

const symbolColumns = `id, name, qualified_name, file, line, end_line, type, parent_id`

// InsertSymbol inserts a symbol and returns its ID
func (db *DB) InsertSymbol(s *graph.Symbol) (int64, error) {
	var endLine, parentID interface{}
	if s.EndLine != nil {
		endLine = *s.EndLine
	}
	if s.ParentID != nil {
		parentID = *s.ParentID
	}
	result, err := db.conn.Exec(
		`INSERT INTO symbols (name, qualified_name, file, line, end_line, type, parent_id)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		s.Name, s.QualifiedName, s.File, s.Line, endLine, s.Kind, parentID,
	)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

// GetSymbolByID returns a symbol by its ID
func (db *DB) GetSymbolByID(id int64) (*graph.Symbol, error) {
	row := db.conn.QueryRow(
		`SELECT `+symbolColumns+` FROM symbols WHERE id = ?`, id,
	)
	return scanSymbol(row)
}

// GetSymbolByQualifiedName returns a symbol by its fully qualified name
func (db *DB) GetSymbolByQualifiedName(qualifiedName string) (*graph.Symbol, error) {
	row := db.conn.QueryRow(
		`SELECT `+symbolColumns+` FROM symbols WHERE qualified_name = ? LIMIT 1`,
		qualifiedName,
	)
	return scanSymbol(row)
}

// FindSymbolsByName returns symbols with an exact short name. kind
// filters by symbol type when non-empty.
func (db *DB) FindSymbolsByName(name string, kind graph.SymbolKind) ([]*graph.Symbol, error) {
	var rows *sql.Rows
	var err error
	if kind != "" {
		rows, err = db.conn.Query(
			`SELECT `+symbolColumns+` FROM symbols WHERE name = ? AND type = ? ORDER BY qualified_name`,
			name, kind,
		)
	} else {
		rows, err = db.conn.Query(
			`SELECT `+symbolColumns+` FROM symbols WHERE name = ? ORDER BY qualified_name`,
			name,
		)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSymbols(rows)
}

// FindSymbolsByPattern returns symbols matching a name pattern (using LIKE)
// Results are sorted by match quality: exact name match > qualified name
// ends with pattern > contains pattern
func (db *DB) FindSymbolsByPattern(pattern string, kind graph.SymbolKind) ([]*graph.Symbol, error) {
	query := `SELECT ` + symbolColumns + ` FROM symbols
		 WHERE qualified_name LIKE ?`
	args := []interface{}{"%" + pattern + "%"}
	if kind != "" {
		query += ` AND type = ?`
		args = append(args, kind)
	}
	query += `
		 ORDER BY
			CASE
				WHEN name = ? THEN 0
				WHEN qualified_name LIKE '%.' || ? THEN 1
				ELSE 2
			END,
			length(qualified_name) ASC`
	args = append(args, pattern, pattern)

	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSymbols(rows)
}

// GetSymbolsInFile returns all symbols defined in a file, ordered by line
func (db *DB) GetSymbolsInFile(file string) ([]*graph.Symbol, error) {
	rows, err := db.conn.Query(
		`SELECT `+symbolColumns+` FROM symbols WHERE file = ? ORDER BY line`, file,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSymbols(rows)
}

// GetSymbolAtLine returns the innermost symbol whose span covers the
// given file position
func (db *DB) GetSymbolAtLine(file string, line int) (*graph.Symbol, error) {
	row := db.conn.QueryRow(
		`SELECT `+symbolColumns+` FROM symbols
		 WHERE file = ? AND line <= ? AND (end_line IS NULL OR end_line >= ?)
		 ORDER BY line DESC LIMIT 1`,
		file, line, line,
	)
	return scanSymbol(row)
}

// GetAllSymbols returns every symbol in the database
func (db *DB) GetAllSymbols() ([]*graph.Symbol, error) {
	rows, err := db.conn.Query(`SELECT ` + symbolColumns + ` FROM symbols ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSymbols(rows)
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSymbolFields(r rowScanner) (*graph.Symbol, error) {
	var s graph.Symbol
	var endLine, parentID sql.NullInt64
	err := r.Scan(&s.ID, &s.Name, &s.QualifiedName, &s.File, &s.Line, &endLine, &s.Kind, &parentID)
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
	return &s, nil
}

func scanSymbol(row *sql.Row) (*graph.Symbol, error) {
	s, err := scanSymbolFields(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return s, err
}

func scanSymbols(rows *sql.Rows) ([]*graph.Symbol, error) {
	var symbols []*graph.Symbol
	for rows.Next() {
		s, err := scanSymbolFields(rows)
		if err != nil {
			return nil, err
		}
		symbols = append(symbols, s)
	}
	return symbols, rows.Err()
}
