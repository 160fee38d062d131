// Package display renders call graph structures as text.
package display

import (
	"fmt"
	"strings"

	"github.com/yuan-shuo/decoder/internal/graph"
)

// MaxConditionDisplay caps the length of condition text in annotations
const MaxConditionDisplay = 30

// TruncateCondition shortens a condition for display
func TruncateCondition(cond string) string {
	if len(cond) <= MaxConditionDisplay {
		return cond
	}
	return cond[:MaxConditionDisplay-3] + "..."
}

// FormatEdgeContext renders the control-flow context of an edge as an
// annotation like "[if x > 0, in loop]". Returns "" for plain calls.
func FormatEdgeContext(e *graph.Edge) string {
	var parts []string
	if e.IsConditional {
		if e.Condition != "" {
			parts = append(parts, "if "+TruncateCondition(e.Condition))
		} else {
			parts = append(parts, "conditional")
		}
	}
	if e.IsLoop {
		parts = append(parts, "in loop")
	}
	if e.IsTry {
		parts = append(parts, "in try")
	}
	if e.IsExcept {
		parts = append(parts, "in except")
	}
	if len(parts) == 0 {
		return ""
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// formatNodeContext is the compact annotation used in tree output
func formatNodeContext(e *graph.Edge) string {
	if e == nil {
		return ""
	}
	var parts []string
	if e.IsConditional {
		if e.Condition != "" {
			parts = append(parts, "if "+TruncateCondition(e.Condition))
		} else {
			parts = append(parts, "conditional")
		}
	}
	if e.IsLoop {
		parts = append(parts, "loop")
	}
	if e.IsTry {
		parts = append(parts, "try")
	}
	if len(parts) == 0 {
		return ""
	}
	return " [" + strings.Join(parts, ", ") + "]"
}

// FormatCalleeTree renders a callee tree top-down with box-drawing
// branches. The root itself is not printed; callers print it as the
// selected symbol.
func FormatCalleeTree(root *graph.TreeNode) string {
	var sb strings.Builder
	for i, child := range root.Children {
		writeCalleeNode(&sb, child, "", i == len(root.Children)-1)
	}
	return sb.String()
}

func writeCalleeNode(sb *strings.Builder, node *graph.TreeNode, prefix string, isLast bool) {
	branch := "├─"
	if isLast {
		branch = "└─"
	}
	fmt.Fprintf(sb, "%s%s %s%s  %s:%d\n",
		prefix, branch, node.Symbol.Name, formatNodeContext(node.Edge),
		node.Symbol.File, node.Symbol.Line)

	childPrefix := prefix + "│  "
	if isLast {
		childPrefix = prefix + "   "
	}
	for i, child := range node.Children {
		writeCalleeNode(sb, child, childPrefix, i == len(node.Children)-1)
	}
}

// FormatCallerTree renders a caller tree with the outermost callers
// first, so reading downward follows the call direction
func FormatCallerTree(root *graph.TreeNode) string {
	var sb strings.Builder
	writeCallerChildren(&sb, root, "", true)
	return sb.String()
}

func writeCallerChildren(sb *strings.Builder, node *graph.TreeNode, prefix string, isLast bool) {
	for i, child := range node.Children {
		isChildLast := i == len(node.Children)-1
		childPrefix := prefix + "│  "
		if isLast {
			childPrefix = prefix + "   "
		}
		// Deeper callers print first
		writeCallerChildren(sb, child, childPrefix, isChildLast)

		branch := "├─"
		if isChildLast {
			branch = "└─"
		}
		fmt.Fprintf(sb, "%s%s %s%s  %s:%d\n",
			prefix, branch, child.Symbol.Name, formatNodeContext(child.Edge),
			child.Symbol.File, child.Symbol.Line)
	}
}

// FormatPath renders a path as a one-per-line chain of arrows
func FormatPath(p *graph.Path) string {
	var sb strings.Builder
	for i, sym := range p.Symbols {
		indent := strings.Repeat("  ", i)
		if i == 0 {
			fmt.Fprintf(&sb, "%s%s  %s:%d\n", indent, sym.Name, sym.File, sym.Line)
			continue
		}
		ctx := ""
		if i-1 < len(p.Edges) {
			ctx = formatNodeContext(p.Edges[i-1])
		}
		fmt.Fprintf(&sb, "%s└─> %s%s  %s:%d\n", indent, sym.Name, ctx, sym.File, sym.Line)
	}
	return sb.String()
}

// FormatCycle renders a cycle as a closed arrow chain
func FormatCycle(cycle []*graph.Symbol) string {
	names := make([]string, 0, len(cycle)+1)
	for _, s := range cycle {
		names = append(names, s.Name)
	}
	if len(cycle) > 0 {
		names = append(names, cycle[0].Name)
	}
	return strings.Join(names, " -> ")
}
