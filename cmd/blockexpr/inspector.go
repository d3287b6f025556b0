package main

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"blockexpr/pkg/ast"
	"blockexpr/pkg/eval"
)

type ProgramInsights struct {
	// Assigned are the names the program binds itself.
	Assigned []string
	// Free are names read but never bound, which must be parameters.
	Free  []string
	Calls []CallInfo
	Loops int
}

type CallInfo struct {
	Name  string
	Arity int
}

func (c CallInfo) String() string {
	return fmt.Sprintf("%s/%d", c.Name, c.Arity)
}

var builtinConstants = map[string]bool{"e": true, "pi": true, "true": true, "false": true}

func analyzeProgram(program *ast.Program) ProgramInsights {
	insights := ProgramInsights{Assigned: eval.AssignedNames(program)}
	assigned := make(map[string]bool, len(insights.Assigned))
	for _, name := range insights.Assigned {
		assigned[name] = true
	}

	free := map[string]bool{}
	calls := map[CallInfo]bool{}
	callees := map[*ast.Identifier]bool{}
	ast.Walk(program, func(node ast.Node) {
		switch n := node.(type) {
		case *ast.Identifier:
			if !callees[n] && !assigned[n.Value] && !builtinConstants[n.Value] {
				free[n.Value] = true
			}
		case *ast.CallExpression:
			callees[n.Function] = true
			calls[CallInfo{Name: n.Function.Value, Arity: len(n.Arguments)}] = true
		case *ast.WhileStatement, *ast.DoWhileStatement, *ast.ForStatement, *ast.RangeForStatement:
			insights.Loops++
		}
	})

	for name := range free {
		insights.Free = append(insights.Free, name)
	}
	sort.Strings(insights.Free)
	for c := range calls {
		insights.Calls = append(insights.Calls, c)
	}
	sort.Slice(insights.Calls, func(i, j int) bool {
		a, b := insights.Calls[i], insights.Calls[j]
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		return a.Arity < b.Arity
	})
	return insights
}

func inspectCode(source string, out io.Writer) int {
	program, err := parse(source)
	if err != nil {
		printError(out, source, err)
		return 1
	}
	printInsights(out, analyzeProgram(program))
	return 0
}

func printInsights(out io.Writer, insights ProgramInsights) {
	printNames(out, "Assigned", insights.Assigned)
	printNames(out, "Parameters", insights.Free)

	fmt.Fprintf(out, "Calls (%d)\n", len(insights.Calls))
	for _, c := range insights.Calls {
		fmt.Fprintf(out, "  · %s\n", c)
	}
	fmt.Fprintf(out, "Loops: %d\n", insights.Loops)
}

func printNames(out io.Writer, title string, names []string) {
	fmt.Fprintf(out, "%s (%d)\n", title, len(names))
	if len(names) > 0 {
		fmt.Fprintf(out, "  · %s\n", strings.Join(names, ", "))
	}
}
