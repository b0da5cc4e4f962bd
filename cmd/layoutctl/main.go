package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/wippyai/bespoke-runtime/dispatch"
	"github.com/wippyai/bespoke-runtime/runtime"
)

func main() {
	var (
		witFile     = flag.String("wit", "", "WIT package set in JSON form (wasm-tools component wit --json)")
		typeExpr    = flag.String("type", "", "Array type to dispatch on, e.g. dict@User or vec|dict@bespoke")
		opName      = flag.String("op", "", "Single op to resolve (default: the whole table)")
		keyName     = flag.String("key", "str", "Key type for -op: int, str or static-str")
		throw       = flag.Bool("throw", false, "Resolve the throwing form of Elem")
		sampleRate  = flag.Uint("sample", 0, "Logging array sample rate")
		useWazero   = flag.Bool("wazero", false, "Back the heap with wazero linear memory")
		verbose     = flag.Bool("v", false, "Debug logging to stderr")
		interactive = flag.Bool("i", false, "Interactive mode with TUI")
	)
	flag.Parse()

	opts := []runtime.Option{runtime.WithLoggingSampleRate(uint32(*sampleRate))}
	if *useWazero {
		opts = append(opts, runtime.WithWazeroMemory())
	}
	if *verbose {
		logger, err := zap.NewDevelopment()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer logger.Sync()
		opts = append(opts, runtime.WithLogger(logger))
	}

	if *interactive {
		if !term.IsTerminal(int(os.Stdout.Fd())) {
			fmt.Fprintln(os.Stderr, "Error: interactive mode needs a terminal")
			os.Exit(1)
		}
		if err := runInteractive(*witFile, opts); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	q := query{typeExpr: *typeExpr, op: *opName, key: *keyName, throw: *throw}
	if err := run(os.Stdout, *witFile, q, opts); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

type query struct {
	typeExpr string
	op       string
	key      string
	throw    bool
}

// load creates a runtime, declares the WIT schema or the demo layouts and
// finalizes the registry.
func load(ctx context.Context, witFile string, opts []runtime.Option) (*runtime.Runtime, error) {
	rt, err := runtime.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create runtime: %w", err)
	}
	if witFile == "" {
		err = declareDemo(rt)
	} else {
		err = declareWIT(rt, witFile)
	}
	if err != nil {
		rt.Close(ctx)
		return nil, err
	}
	rt.Finalize()
	return rt, nil
}

func declareWIT(rt *runtime.Runtime, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open schema: %w", err)
	}
	defer f.Close()
	if _, err := rt.DeclareWIT(f); err != nil {
		return fmt.Errorf("declare %s: %w", path, err)
	}
	return nil
}

func run(w io.Writer, witFile string, q query, opts []runtime.Option) error {
	ctx := context.Background()
	rt, err := load(ctx, witFile, opts)
	if err != nil {
		return err
	}
	defer rt.Close(ctx)

	styled := false
	if f, ok := w.(*os.File); ok {
		styled = term.IsTerminal(int(f.Fd()))
	}

	if q.typeExpr == "" {
		printLayouts(w, layoutRows(rt), styled)
		return nil
	}

	typ, err := dispatch.ParseType(rt.Registry(), q.typeExpr)
	if err != nil {
		return fmt.Errorf("parse type: %w", err)
	}
	d := rt.Dispatcher()

	if q.op == "" {
		fmt.Fprintf(w, "Type: %s\n\n", typ)
		printTargets(w, dispatchTable(d, typ), styled)
		return nil
	}

	op, err := dispatch.ParseOp(q.op)
	if err != nil {
		return err
	}
	var key dispatch.KeyType
	if op.Keyed() {
		if key, err = dispatch.ParseKeyType(q.key); err != nil {
			return err
		}
	}
	c, err := d.Lower(rt.Heap().Strings, dispatch.Inst{Op: op, Arr: typ, Key: key, ThrowOnMissing: q.throw, Reason: "layoutctl"}, make([]uint64, op.Params())...)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "Type:    %s\n", typ)
	if op.Keyed() {
		fmt.Fprintf(w, "Op:      %s (%s key)\n", op, key)
	} else {
		fmt.Fprintf(w, "Op:      %s\n", op)
	}
	fmt.Fprintf(w, "Target:  %s\n", c.Target.Symbol)
	fmt.Fprintf(w, "Source:  %s\n", c.Target.Source)
	fmt.Fprintf(w, "Sync:    %s\n", c.Sync)
	fmt.Fprintf(w, "Arity:   %d -> %d\n", c.Target.Params, c.Target.Results)
	return nil
}

func printLayouts(w io.Writer, rows []layoutRow, styled bool) {
	cells := make([][]string, len(rows))
	for i, r := range rows {
		cells[i] = []string{r.index.String(), r.name, r.class, r.kinds, r.detail}
	}
	printTable(w, styled, []string{"INDEX", "NAME", "CLASS", "KINDS", "DETAIL"}, cells, func(row, col int) lipgloss.Style {
		if col == 1 {
			return funcStyle
		}
		return lipgloss.NewStyle()
	})
}

func printTargets(w io.Writer, rows []targetRow, styled bool) {
	cells := make([][]string, len(rows))
	for i, r := range rows {
		cells[i] = []string{r.op, r.symbol, r.source.String(), r.sync.String()}
	}
	printTable(w, styled, []string{"OP", "TARGET", "SOURCE", "SYNC"}, cells, func(row, col int) lipgloss.Style {
		switch col {
		case 1:
			return funcStyle
		case 2:
			return sourceStyle(rows[row].source)
		case 3:
			if rows[row].sync == dispatch.SyncPoint {
				return syncStyle
			}
		}
		return lipgloss.NewStyle()
	})
}

// printTable renders a bordered lipgloss table on terminals and a plain
// tab-aligned one otherwise. style is called for data rows only.
func printTable(w io.Writer, styled bool, headers []string, rows [][]string, style func(row, col int) lipgloss.Style) {
	if styled {
		t := table.New().
			Border(lipgloss.RoundedBorder()).
			BorderStyle(helpStyle).
			Headers(headers...).
			Rows(rows...).
			StyleFunc(func(row, col int) lipgloss.Style {
				if row == table.HeaderRow {
					return lipgloss.NewStyle().Bold(true).Padding(0, 1)
				}
				if row < 0 || row >= len(rows) {
					return lipgloss.NewStyle().Padding(0, 1)
				}
				return style(row, col).Padding(0, 1)
			})
		fmt.Fprintln(w, t.Render())
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(headers, "\t"))
	for _, r := range rows {
		fmt.Fprintln(tw, strings.Join(r, "\t"))
	}
	tw.Flush()
}
