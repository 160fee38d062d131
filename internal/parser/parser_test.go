package parser

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yuan-shuo/decoder/internal/graph"
)

func parse(t *testing.T, path, src string) *ParseResult {
	t.Helper()
	res, err := New().Parse(context.Background(), path, []byte(src))
	require.NoError(t, err)
	return res
}

func findSymbol(res *ParseResult, qualified string) *RawSymbol {
	for i := range res.Symbols {
		if res.Symbols[i].QualifiedName == qualified {
			return &res.Symbols[i]
		}
	}
	return nil
}

func edgesTo(res *ParseResult, callee string) []RawEdge {
	var out []RawEdge
	for _, e := range res.Edges {
		if e.Callee == callee {
			out = append(out, e)
		}
	}
	return out
}

func TestModuleName(t *testing.T) {
	assert.Equal(t, "app", moduleName("app.py"))
	assert.Equal(t, "app.models.user", moduleName("app/models/user.py"))
	assert.Equal(t, "app.main", moduleName("src/app/main.py"))
	assert.Equal(t, "srcutil", moduleName("srcutil.py"))
}

func TestSupports(t *testing.T) {
	p := New()
	assert.True(t, p.Supports("a.py"))
	assert.True(t, p.Supports("pkg/mod.py"))
	assert.False(t, p.Supports("a.go"))
	assert.False(t, p.Supports("a.pyc"))
}

func TestParseErrors(t *testing.T) {
	t.Run("syntax error", func(t *testing.T) {
		_, err := New().Parse(context.Background(), "bad.py", []byte("def f(:\n"))
		var perr *ParseError
		require.ErrorAs(t, err, &perr)
		assert.Equal(t, "bad.py", perr.Path)
		assert.Contains(t, perr.Error(), "syntax error")
	})

	t.Run("invalid utf8", func(t *testing.T) {
		_, err := New().Parse(context.Background(), "bin.py", []byte{0xff, 0xfe, 0x00})
		var perr *ParseError
		require.ErrorAs(t, err, &perr)
		assert.Contains(t, perr.Error(), "UTF-8")
	})
}

func TestSymbols(t *testing.T) {
	src := `
VERSION = "1.0"
x, y = 1, 2

class Service:
    default_timeout = 30

    def __init__(self):
        self.started = False

    def run(self):
        pass

def helper():
    local = 1
`
	res := parse(t, "app/core.py", src)
	assert.Equal(t, "app.core", res.Module)

	version := findSymbol(res, "app.core.VERSION")
	require.NotNil(t, version)
	assert.Equal(t, graph.KindVariable, version.Kind)
	assert.Equal(t, 2, version.Line)
	assert.Empty(t, version.Parent)

	assert.NotNil(t, findSymbol(res, "app.core.x"))
	assert.NotNil(t, findSymbol(res, "app.core.y"))

	svc := findSymbol(res, "app.core.Service")
	require.NotNil(t, svc)
	assert.Equal(t, graph.KindClass, svc.Kind)
	assert.Equal(t, "Service", svc.Name)

	timeout := findSymbol(res, "app.core.Service.default_timeout")
	require.NotNil(t, timeout)
	assert.Equal(t, graph.KindVariable, timeout.Kind)
	assert.Equal(t, "app.core.Service", timeout.Parent)

	run := findSymbol(res, "app.core.Service.run")
	require.NotNil(t, run)
	assert.Equal(t, graph.KindMethod, run.Kind)
	assert.Equal(t, "app.core.Service", run.Parent)

	helper := findSymbol(res, "app.core.helper")
	require.NotNil(t, helper)
	assert.Equal(t, graph.KindFunction, helper.Kind)

	// Function locals are not symbols
	assert.Nil(t, findSymbol(res, "app.core.helper.local"))
	// self attribute assignments are not symbols either
	assert.Nil(t, findSymbol(res, "app.core.Service.__init__.started"))
}

func TestCallEdges(t *testing.T) {
	src := `
setup()

def main():
    helper()
    svc.process()
    chain().next()
`
	res := parse(t, "app.py", src)

	// Module-level calls are attributed to the module itself
	setup := edgesTo(res, "setup")
	require.Len(t, setup, 1)
	assert.Equal(t, "app", setup[0].Caller)
	assert.Equal(t, graph.EdgeCall, setup[0].Kind)
	assert.Equal(t, 2, setup[0].Line)

	helper := edgesTo(res, "helper")
	require.Len(t, helper, 1)
	assert.Equal(t, "app.main", helper[0].Caller)

	require.Len(t, edgesTo(res, "svc.process"), 1)

	// chain().next() records both the outer attribute call and the inner call
	require.Len(t, edgesTo(res, "chain.next"), 1)
	require.Len(t, edgesTo(res, "chain"), 1)
}

func TestImports(t *testing.T) {
	src := `
import os.path
import numpy as np
from app.models import User, Session as DBSession
from os import *
`
	res := parse(t, "app.py", src)

	assert.Equal(t, "os.path", res.Imports["os"])
	assert.Equal(t, "numpy", res.Imports["np"])
	assert.Equal(t, "app.models.User", res.Imports["User"])
	assert.Equal(t, "app.models.Session", res.Imports["DBSession"])
	assert.Equal(t, []string{"os"}, res.StarImports)

	for _, callee := range []string{"os.path", "numpy", "app.models.User", "app.models.Session", "os.*"} {
		edges := edgesTo(res, callee)
		require.Len(t, edges, 1, callee)
		assert.Equal(t, graph.EdgeImport, edges[0].Kind)
	}
}

func TestRelativeImports(t *testing.T) {
	src := `
from . import siblings
from .util import helper
from ..shared import Config
`
	res := parse(t, "pkg/sub/mod.py", src)

	assert.Equal(t, "pkg.sub.siblings", res.Imports["siblings"])
	assert.Equal(t, "pkg.sub.util.helper", res.Imports["helper"])
	assert.Equal(t, "pkg.shared.Config", res.Imports["Config"])
}

func TestRelativeImportBeyondRoot(t *testing.T) {
	res := parse(t, "mod.py", "from ...far import thing\n")
	// More dots than module components falls back to the bare name
	assert.Equal(t, "far.thing", res.Imports["thing"])
}

func TestInheritance(t *testing.T) {
	src := `
class Animal:
    pass

class Dog(Animal, base.Pet):
    pass
`
	res := parse(t, "zoo.py", src)

	animal := edgesTo(res, "Animal")
	require.Len(t, animal, 1)
	assert.Equal(t, graph.EdgeInherit, animal[0].Kind)
	// Inherit edges originate from the scope enclosing the class
	assert.Equal(t, "zoo", animal[0].Caller)

	pet := edgesTo(res, "base.Pet")
	require.Len(t, pet, 1)
	assert.Equal(t, graph.EdgeInherit, pet[0].Kind)
}

func TestDecorators(t *testing.T) {
	src := `
@register
class Handler:
    @property
    def name(self):
        return self._name

    @staticmethod
    def parse():
        pass

@lru_cache(maxsize=1)
def compute():
    pass
`
	res := parse(t, "app.py", src)

	register := edgesTo(res, "register")
	require.Len(t, register, 1)
	assert.Equal(t, graph.EdgeCall, register[0].Kind)
	assert.Equal(t, "app", register[0].Caller)

	// property is descriptor plumbing, not a call worth tracking
	assert.Empty(t, edgesTo(res, "property"))

	static := edgesTo(res, "staticmethod")
	require.Len(t, static, 1)
	assert.Equal(t, "app.Handler", static[0].Caller)

	cache := edgesTo(res, "lru_cache")
	require.Len(t, cache, 1)

	// Decorated definitions still register their symbols
	assert.NotNil(t, findSymbol(res, "app.Handler"))
	assert.NotNil(t, findSymbol(res, "app.Handler.name"))
	assert.NotNil(t, findSymbol(res, "app.compute"))
}

func TestTypedVars(t *testing.T) {
	src := `
class Worker:
    def __init__(self, queue: Queue, retries: int = 3):
        self.queue = queue
        self.retries = retries

    def run(self, job: Annotated[Job, "pending"]):
        pass

def submit(w: Worker):
    pass
`
	res := parse(t, "app.py", src)

	byName := make(map[string]TypedVar)
	for _, tv := range res.TypedVars {
		byName[tv.Scope+"|"+tv.Name] = tv
	}

	queue, ok := byName["app.Worker.__init__|queue"]
	require.True(t, ok)
	assert.Equal(t, "Queue", queue.Type)

	selfQueue, ok := byName["app.Worker|self.queue"]
	require.True(t, ok)
	assert.Equal(t, "Queue", selfQueue.Type)

	selfRetries, ok := byName["app.Worker|self.retries"]
	require.True(t, ok)
	assert.Equal(t, "int", selfRetries.Type)

	job, ok := byName["app.Worker.run|job"]
	require.True(t, ok)
	assert.Equal(t, "Job", job.Type)

	w, ok := byName["app.submit|w"]
	require.True(t, ok)
	assert.Equal(t, "Worker", w.Type)

	// self is never a typed var
	_, ok = byName["app.Worker.__init__|self"]
	assert.False(t, ok)
}

func TestConditionalContext(t *testing.T) {
	src := `
def main(a):
    if a > 0:
        f1()
    elif a < 0:
        f2()
    else:
        f3()
    f4()
`
	res := parse(t, "app.py", src)

	f1 := edgesTo(res, "f1")
	require.Len(t, f1, 1)
	assert.True(t, f1[0].Context.Conditional)
	assert.Equal(t, "a > 0", f1[0].Context.Condition)

	// Branches after the first run under the negation of the first test
	f2 := edgesTo(res, "f2")
	require.Len(t, f2, 1)
	assert.True(t, f2[0].Context.Conditional)
	assert.Equal(t, "not (a > 0)", f2[0].Context.Condition)

	f3 := edgesTo(res, "f3")
	require.Len(t, f3, 1)
	assert.True(t, f3[0].Context.Conditional)
	assert.Equal(t, "not (a > 0)", f3[0].Context.Condition)

	f4 := edgesTo(res, "f4")
	require.Len(t, f4, 1)
	assert.True(t, f4[0].Context.IsZero())
}

func TestLongConditionNegatesToElse(t *testing.T) {
	src := `
def main(value):
    if value is not None and value.enabled and value.ready:
        f1()
    else:
        f2()
`
	res := parse(t, "app.py", src)

	f2 := edgesTo(res, "f2")
	require.Len(t, f2, 1)
	assert.Equal(t, "else", f2[0].Context.Condition)
}

func TestLoopContext(t *testing.T) {
	src := `
def main(items):
    for item in items:
        handle(item)
    while pending():
        drain()
    else:
        after()
`
	res := parse(t, "app.py", src)

	handle := edgesTo(res, "handle")
	require.Len(t, handle, 1)
	assert.True(t, handle[0].Context.Loop)

	// The while condition is evaluated outside the loop body
	pending := edgesTo(res, "pending")
	require.Len(t, pending, 1)
	assert.False(t, pending[0].Context.Loop)

	drain := edgesTo(res, "drain")
	require.Len(t, drain, 1)
	assert.True(t, drain[0].Context.Loop)

	after := edgesTo(res, "after")
	require.Len(t, after, 1)
	assert.True(t, after[0].Context.IsZero())
}

func TestTryContext(t *testing.T) {
	src := `
def main():
    try:
        risky()
    except ValueError:
        recover()
    else:
        confirm()
    finally:
        cleanup()
    with open("f") as f:
        read(f)
`
	res := parse(t, "app.py", src)

	risky := edgesTo(res, "risky")
	require.Len(t, risky, 1)
	assert.True(t, risky[0].Context.Try)
	assert.False(t, risky[0].Context.Except)

	recover := edgesTo(res, "recover")
	require.Len(t, recover, 1)
	assert.True(t, recover[0].Context.Except)
	assert.False(t, recover[0].Context.Try)

	for _, name := range []string{"confirm", "cleanup"} {
		edges := edgesTo(res, name)
		require.Len(t, edges, 1, name)
		assert.True(t, edges[0].Context.IsZero(), name)
	}

	// with blocks count as try context
	read := edgesTo(res, "read")
	require.Len(t, read, 1)
	assert.True(t, read[0].Context.Try)
}

func TestNestedContextMerges(t *testing.T) {
	src := `
def main(items, flag):
    for item in items:
        if flag:
            try:
                work(item)
            except KeyError:
                skip(item)
`
	res := parse(t, "app.py", src)

	work := edgesTo(res, "work")
	require.Len(t, work, 1)
	assert.True(t, work[0].Context.Loop)
	assert.True(t, work[0].Context.Conditional)
	assert.Equal(t, "flag", work[0].Context.Condition)
	assert.True(t, work[0].Context.Try)
	assert.False(t, work[0].Context.Except)

	skip := edgesTo(res, "skip")
	require.Len(t, skip, 1)
	assert.True(t, skip[0].Context.Loop)
	assert.True(t, skip[0].Context.Except)
	assert.False(t, skip[0].Context.Try)
}

func TestMultilineConditionCollapses(t *testing.T) {
	src := `
def main(a, b):
    if (a
            and b):
        f1()
`
	res := parse(t, "app.py", src)

	f1 := edgesTo(res, "f1")
	require.Len(t, f1, 1)
	assert.Equal(t, "(a and b)", f1[0].Context.Condition)
}

func TestParseFileMissing(t *testing.T) {
	_, err := New().ParseFile(context.Background(), t.TempDir(), "missing.py")
	var perr *ParseError
	assert.True(t, errors.As(err, &perr))
}
