package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"blockexpr/pkg/ast"
	"blockexpr/pkg/config"
	"blockexpr/pkg/exprerr"
	"blockexpr/pkg/expression"
	"blockexpr/pkg/lexer"
	"blockexpr/pkg/parser"
	"blockexpr/pkg/token"
	"blockexpr/pkg/version"

	"fortio.org/log"
)

const PROMPT = ">>> "

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(0)
	}

	command := os.Args[1]
	switch command {
	case "--version", "-v", "version":
		printVersion()
		return
	case "--help", "-h", "help":
		printHelp()
		return
	}

	cfg, err := config.FindAndLoad(".")
	if err != nil {
		log.Errf("Configuration error: %v", err)
		os.Exit(1)
	}
	if err := cfg.SetupLogging(); err != nil {
		log.Errf("Configuration error: %v", err)
		os.Exit(1)
	}
	log.LogVf("settings from %s: %+v", cfg.Dir, cfg)

	args := os.Args[2:]
	switch command {
	case "repl":
		startREPL(cfg, os.Stdin, os.Stdout)
	case "eval":
		requireArgs(args, 1, "blockexpr eval '<expression>' [name=value ...]")
		os.Exit(evalCode(cfg, args[0], args[1:], os.Stdout))
	case "check":
		requireArgs(args, 1, "blockexpr check '<expression>' [name ...]")
		os.Exit(checkCode(cfg, args[0], args[1:], os.Stdout))
	case "ast":
		requireArgs(args, 1, "blockexpr ast '<expression>'")
		os.Exit(printAST(args[0], os.Stdout))
	case "tokens":
		requireArgs(args, 1, "blockexpr tokens '<expression>'")
		printTokens(args[0], os.Stdout)
	case "inspect":
		requireArgs(args, 1, "blockexpr inspect '<expression>'")
		os.Exit(inspectCode(args[0], os.Stdout))
	case "sample":
		requireArgs(args, 1, "blockexpr sample '<expression>' [radius]")
		os.Exit(sampleCode(cfg, args[0], args[1:], os.Stdout))
	default:
		fmt.Printf("Unknown command: %s\n\n", command)
		printHelp()
		os.Exit(1)
	}
}

func requireArgs(args []string, n int, usage string) {
	if len(args) < n {
		fmt.Println("Usage: " + usage)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("blockexpr expression language v" + version.Version)
	fmt.Println("\nUsage:")
	fmt.Println("  blockexpr eval '<expr>' [x=1 ...]   Evaluate an expression")
	fmt.Println("  blockexpr repl                      Start interactive REPL")
	fmt.Println("  blockexpr help                      Show all commands")
}

func printHelp() {
	fmt.Println("blockexpr: formulas for world editing")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  blockexpr eval '<expr>' [name=value ...]  Compile with the given parameters and evaluate")
	fmt.Println("  blockexpr check '<expr>' [name ...]       Parse and validate only")
	fmt.Println("  blockexpr ast '<expr>'                    Print the syntax tree")
	fmt.Println("  blockexpr tokens '<expr>'                 Print the token stream")
	fmt.Println("  blockexpr inspect '<expr>'                Summarize variables, calls and loops")
	fmt.Println("  blockexpr sample '<expr>' [radius]        Count the x, y, z in a cube where the expression holds")
	fmt.Println("  blockexpr repl                            Start the interactive REPL")
	fmt.Println("  blockexpr version                         Display build metadata")
	fmt.Println("  blockexpr help                            Show this help message")
	fmt.Println()
	fmt.Println("Settings come from blockexpr.toml, .env and BLOCKEXPR_* variables.")
}

func printVersion() {
	fmt.Printf("blockexpr %s\n", version.Version)
	fmt.Printf("Build Date: %s\n", version.BuildDate)
	fmt.Printf("Git Commit: %s\n", version.GitCommit)
}

// parseBindings splits name=value arguments.
func parseBindings(args []string) ([]string, []float64, error) {
	names := make([]string, 0, len(args))
	values := make([]float64, 0, len(args))
	for _, arg := range args {
		name, raw, ok := strings.Cut(arg, "=")
		if !ok || name == "" {
			return nil, nil, fmt.Errorf("expected name=value, got %q", arg)
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, nil, fmt.Errorf("bad value for %s: %w", name, err)
		}
		names = append(names, name)
		values = append(values, v)
	}
	return names, values, nil
}

func evalCode(cfg *config.Config, source string, bindings []string, out io.Writer) int {
	names, values, err := parseBindings(bindings)
	if err != nil {
		log.Errf("%v", err)
		return 1
	}
	expr, err := cfg.Compiler().Compile(source, names...)
	if err != nil {
		printError(out, source, err)
		return 1
	}
	v, err := expr.Evaluate(values...)
	if err != nil {
		printError(out, source, err)
		return 1
	}
	fmt.Fprintln(out, formatValue(v))
	return 0
}

func checkCode(cfg *config.Config, source string, names []string, out io.Writer) int {
	if _, err := cfg.Compiler().Compile(source, names...); err != nil {
		printError(out, source, err)
		return 1
	}
	fmt.Fprintln(out, "ok")
	return 0
}

func printAST(source string, out io.Writer) int {
	program, err := parse(source)
	if err != nil {
		printError(out, source, err)
		return 1
	}
	fmt.Fprintln(out, program.String())
	return 0
}

func printTokens(source string, out io.Writer) {
	l := lexer.New(source)
	for {
		tok := l.NextToken()
		fmt.Fprintf(out, "%-10s %-12s (line %d, col %d)\n", tok.Type, fmt.Sprintf("'%s'", tok.Literal), tok.Line, tok.Column)
		if tok.Type == token.EOF || tok.Type == token.ILLEGAL {
			break
		}
	}
}

func parse(source string) (*ast.Program, error) {
	p := parser.New(lexer.New(source))
	program := p.ParseProgram()
	if errs := p.Errors(); len(errs) != 0 {
		return nil, errs[0]
	}
	return program, nil
}

// printError shows err and, when it has a position, points at it.
func printError(out io.Writer, source string, err error) {
	fmt.Fprintln(out, err)
	var e *exprerr.Error
	if !errors.As(err, &e) || e.Pos < 0 || strings.Contains(source, "\n") {
		return
	}
	fmt.Fprintln(out, "  "+source)
	fmt.Fprintln(out, "  "+strings.Repeat(" ", e.Column-1)+"^")
}

func formatValue(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// startREPL evaluates one line at a time. Variables assigned on a line are
// passed to the following lines as parameters.
func startREPL(cfg *config.Config, in io.Reader, out io.Writer) {
	scanner := bufio.NewScanner(in)
	compiler := cfg.Compiler()
	vars := map[string]float64{}

	fmt.Fprintf(out, "blockexpr REPL v%s\n", version.Version)
	fmt.Fprintln(out, "Type expressions and press Enter")

	for {
		fmt.Fprint(out, PROMPT)
		if !scanner.Scan() {
			return
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		v, err := replLine(compiler, line, vars)
		if err != nil {
			printError(out, line, err)
			continue
		}
		fmt.Fprintln(out, formatValue(v))
	}
}

func replLine(compiler *expression.Compiler, line string, vars map[string]float64) (float64, error) {
	names := make([]string, 0, len(vars))
	for name := range vars {
		names = append(names, name)
	}
	sort.Strings(names)
	values := make([]float64, len(names))
	for i, name := range names {
		values[i] = vars[name]
	}

	expr, err := compiler.Compile(line, names...)
	if err != nil {
		return 0, err
	}
	v, err := expr.Evaluate(values...)
	for name, value := range expr.Variables() {
		vars[name] = value
	}
	return v, err
}
