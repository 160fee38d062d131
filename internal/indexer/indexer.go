// Package indexer coordinates parsing and storage. Indexing runs in
// two passes: symbols from every file are inserted first, then edges
// are resolved against the full symbol table, so cross-file references
// resolve regardless of file order.
package indexer

import (
	"context"
	"io/fs"
	"path/filepath"
	"sort"
	"time"

	"github.com/yuan-shuo/decoder/internal/graph"
	"github.com/yuan-shuo/decoder/internal/parser"
	"github.com/yuan-shuo/decoder/internal/storage"
)

// ProgressFunc is called after each file in a directory walk
type ProgressFunc func(path string, current, total int)

// Options control a directory indexing run
type Options struct {
	// Excludes are glob patterns matched against path components, in
	// addition to DefaultExcludes
	Excludes []string
	// Force re-indexes files even when their content hash is unchanged
	Force      bool
	OnProgress ProgressFunc
}

// Stats summarizes an indexing run
type Stats struct {
	FilesIndexed int           `json:"files_indexed"`
	FilesSkipped int           `json:"files_skipped"`
	Unchanged    int           `json:"files_unchanged"`
	Symbols      int           `json:"symbols"`
	Edges        int           `json:"edges"`
	Errors       []string      `json:"errors,omitempty"`
	Duration     time.Duration `json:"-"`
}

// Indexer parses Python files and writes symbols and edges to storage
type Indexer struct {
	db     *storage.DB
	parser *parser.Parser

	// cache maps qualified names to symbol IDs for everything inserted
	// by this Indexer instance
	cache map[string]int64
}

// New creates an indexer writing to the given database
func New(db *storage.DB) *Indexer {
	return &Indexer{
		db:     db,
		parser: parser.New(),
		cache:  make(map[string]int64),
	}
}

type fileResult struct {
	path   string
	result *parser.ParseResult
}

// Index walks a directory tree and indexes every Python file in it
func (ix *Indexer) Index(ctx context.Context, dir string, opts Options) (*Stats, error) {
	start := time.Now()
	stats := &Stats{}

	excludes := append(append([]string{}, DefaultExcludes...), opts.Excludes...)
	gi := loadGitignore(dir)

	files, err := listPythonFiles(dir)
	if err != nil {
		return nil, err
	}
	total := len(files)

	var results []fileResult

	for i, rel := range files {
		progress := func() {
			if opts.OnProgress != nil {
				opts.OnProgress(rel, i+1, total)
			}
		}

		if shouldExclude(rel, excludes) || (gi != nil && gi.MatchesPath(rel)) {
			stats.FilesSkipped++
			progress()
			continue
		}

		hash, err := storage.ComputeFileHash(filepath.Join(dir, rel))
		if err != nil {
			stats.Errors = append(stats.Errors, err.Error())
			progress()
			continue
		}

		if !opts.Force {
			needs, err := ix.db.NeedsReindex(rel, hash)
			if err != nil {
				return nil, err
			}
			if !needs {
				stats.Unchanged++
				progress()
				continue
			}
		}

		if err := ix.db.DeleteFileData(rel); err != nil {
			return nil, err
		}

		result, err := ix.parser.ParseFile(ctx, dir, rel)
		if err != nil {
			stats.Errors = append(stats.Errors, err.Error())
			progress()
			continue
		}

		inserted, err := ix.insertSymbols(result)
		if err != nil {
			return nil, err
		}
		stats.Symbols += inserted

		if err := ix.db.UpsertFile(rel, hash); err != nil {
			return nil, err
		}

		results = append(results, fileResult{path: rel, result: result})
		stats.FilesIndexed++
		progress()
	}

	for _, fr := range results {
		n, err := ix.insertEdges(fr.result)
		if err != nil {
			return nil, err
		}
		stats.Edges += n
	}

	stats.Duration = time.Since(start)
	return stats, nil
}

// IndexFile indexes a single file. rel is the file's path relative to
// the project root.
func (ix *Indexer) IndexFile(ctx context.Context, root, rel string) (*Stats, error) {
	start := time.Now()
	stats := &Stats{FilesIndexed: 1}

	if err := ix.db.DeleteFileData(rel); err != nil {
		return nil, err
	}

	result, err := ix.parser.ParseFile(ctx, root, rel)
	if err != nil {
		return nil, err
	}

	inserted, err := ix.insertSymbols(result)
	if err != nil {
		return nil, err
	}
	stats.Symbols = inserted

	n, err := ix.insertEdges(result)
	if err != nil {
		return nil, err
	}
	stats.Edges = n

	hash, err := storage.ComputeFileHash(filepath.Join(root, rel))
	if err != nil {
		return nil, err
	}
	if err := ix.db.UpsertFile(rel, hash); err != nil {
		return nil, err
	}

	stats.Duration = time.Since(start)
	return stats, nil
}

// insertSymbols inserts a file's symbols in source order so parents
// are always cached before their children
func (ix *Indexer) insertSymbols(result *parser.ParseResult) (int, error) {
	count := 0
	for _, raw := range result.Symbols {
		sym := &graph.Symbol{
			Name:          raw.Name,
			QualifiedName: raw.QualifiedName,
			File:          result.Path,
			Line:          raw.Line,
			Kind:          raw.Kind,
		}
		if raw.EndLine > 0 {
			end := raw.EndLine
			sym.EndLine = &end
		}
		if raw.Parent != "" {
			if parentID, ok := ix.cache[raw.Parent]; ok {
				sym.ParentID = &parentID
			}
		}
		id, err := ix.db.InsertSymbol(sym)
		if err != nil {
			return count, err
		}
		ix.cache[raw.QualifiedName] = id
		count++
	}
	return count, nil
}

// insertEdges resolves and inserts a file's edges. Edges whose caller
// or callee cannot be resolved are dropped.
func (ix *Indexer) insertEdges(result *parser.ParseResult) (int, error) {
	count := 0
	for _, raw := range result.Edges {
		calleeID, ok := ix.resolveCallee(raw.Callee, raw.Caller, result)
		if !ok {
			continue
		}
		callerID, ok := ix.cache[raw.Caller]
		if !ok {
			continue
		}
		edge := &graph.Edge{
			CallerID:      callerID,
			CalleeID:      calleeID,
			CallLine:      raw.Line,
			Kind:          raw.Kind,
			IsConditional: raw.Context.Conditional,
			Condition:     raw.Context.Condition,
			IsLoop:        raw.Context.Loop,
			IsTry:         raw.Context.Try,
			IsExcept:      raw.Context.Except,
		}
		if _, err := ix.db.InsertEdge(edge); err != nil {
			return count, err
		}
		count++
	}
	return count, nil
}

// listPythonFiles returns the relative paths of all .py files under
// dir in lexical order
func listPythonFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() || filepath.Ext(path) != ".py" {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return nil
		}
		files = append(files, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}
