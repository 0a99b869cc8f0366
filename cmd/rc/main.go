// Command rc drives the whole pipeline end to end: it parses a source
// file, lowers every function to a CFG, infers each function's
// ownership/allocation graph, inserts the Dup/Drop management
// statements that graph implies, and emits C — in that order, for
// every function in the file, in declaration order (spec.md §5
// Ordering; SPEC_FULL.md §4 Driver CLI).
//
// Usage: rc [-o dir] [-html] [-v] input.rc
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/rc-lang/rc/emit"
	"github.com/rc-lang/rc/frontend"
	"github.com/rc-lang/rc/internal/depgraph"
	"github.com/rc-lang/rc/internal/lva"
	"github.com/rc-lang/rc/internal/mmgmt"
	"github.com/rc-lang/rc/internal/report"
	"github.com/rc-lang/rc/lower"
)

func main() {
	outDir := flag.String("o", "out", "output directory for generated C")
	writeHTML := flag.Bool("html", false, "also write an HTML analysis report to <outdir>/report.html")
	verbose := flag.Bool("v", false, "log pass-by-pass tracing (fixed-point iteration counts, convergence) as each function is processed")
	flag.Parse()

	if flag.NArg() != 1 {
		log.Fatal("usage: rc [-o dir] [-html] [-v] input.rc")
	}
	inputPath := flag.Arg(0)

	depgraph.Verbose = *verbose

	if err := run(inputPath, *outDir, *writeHTML); err != nil {
		log.Fatal(err)
	}
}

// run is the pipeline's recover boundary: internal/ir.Verify and
// the lowering/inference core assert and abort on an internal
// invariant violation (spec.md §7), which is appropriate mid-pipeline
// but not as a user-facing crash — recover it here and report it as an
// ordinary fatal error instead.
func run(inputPath, outDir string, writeHTML bool) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s: %v", inputPath, r)
		}
	}()

	src, readErr := os.ReadFile(inputPath)
	if readErr != nil {
		return readErr
	}

	prog, parseErr := frontend.Parse(filepath.Base(inputPath), string(src))
	if parseErr != nil {
		return parseErr
	}

	ctx := depgraph.NewContext()
	for _, td := range prog.Types {
		ctx.AddConstructor(td.Name)
	}

	funcs := lower.Program(prog)
	for _, f := range funcs {
		ctx.AddFunc(f)
	}

	var md strings.Builder
	for _, f := range funcs {
		if err := mmgmt.InsertManagement(ctx, f); err != nil {
			return err
		}
		g := ctx.GraphFor(f.Name)
		sets := lva.Analyze(f)

		section := report.Function(f, g, sets)
		md.WriteString(section)
	}

	if err := emit.ToDir(outDir, funcs); err != nil {
		return err
	}

	if writeHTML {
		html, htmlErr := report.HTML(md.String())
		if htmlErr != nil {
			return htmlErr
		}
		if err := os.WriteFile(filepath.Join(outDir, "report.html"), []byte(html), 0o644); err != nil {
			return err
		}
	}

	return nil
}
