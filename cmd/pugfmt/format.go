package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/grindlemire/go-pugfmt/internal/log"
	"github.com/grindlemire/go-pugfmt/pkg/element"
	"github.com/grindlemire/go-pugfmt/pkg/formatter"
)

// config holds the parsed command line of format and check.
type config struct {
	format  string
	pretty  bool
	indent  string
	debug   bool
	srcMap  bool
	stdout  bool
	storage string
	logPath string
	verbose bool
	check   bool
	paths   []string
}

// parseArgs reads flags and paths. Flags taking a value accept both
// "-flag value" and "-flag=value".
func parseArgs(args []string) (*config, error) {
	cfg := &config{}
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if !strings.HasPrefix(arg, "-") || arg == "-" {
			cfg.paths = append(cfg.paths, arg)
			continue
		}

		name, value, hasValue := strings.Cut(strings.TrimLeft(arg, "-"), "=")
		takeValue := func() (string, error) {
			if hasValue {
				return value, nil
			}
			if i+1 >= len(args) {
				return "", fmt.Errorf("flag -%s requires a value", name)
			}
			i++
			return args[i], nil
		}

		var err error
		switch name {
		case "format":
			cfg.format, err = takeValue()
		case "indent":
			cfg.indent, err = takeValue()
		case "storage":
			cfg.storage, err = takeValue()
		case "log":
			cfg.logPath, err = takeValue()
		case "pretty":
			cfg.pretty = true
		case "debug":
			cfg.debug = true
		case "map":
			cfg.srcMap = true
		case "stdout":
			cfg.stdout = true
		case "v", "verbose":
			cfg.verbose = true
		default:
			return nil, fmt.Errorf("unknown flag: %s", arg)
		}
		if err != nil {
			return nil, err
		}
	}

	if len(cfg.paths) == 0 {
		cfg.paths = []string{"."}
	}
	return cfg, nil
}

// options converts the parsed flags to formatter options.
func (c *config) options(source string) []formatter.Option {
	opts := []formatter.Option{
		formatter.WithPretty(c.pretty),
		formatter.WithDebug(c.debug),
		formatter.WithSourceFile(source),
	}
	if c.indent != "" {
		opts = append(opts, formatter.WithIndent(c.indent))
	}
	if c.storage != "" {
		opts = append(opts, formatter.WithDependenciesStorage(c.storage))
	}
	return opts
}

// runFormat implements the format and check subcommands.
func runFormat(args []string, check bool) error {
	cfg, err := parseArgs(args)
	if err != nil {
		return err
	}
	cfg.check = check

	if cfg.logPath != "" {
		closer, err := log.Open(cfg.logPath)
		if err != nil {
			return err
		}
		defer closer.Close()
	}

	files, err := collectTreeFiles(cfg.paths)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no .json files found")
	}
	if cfg.verbose {
		fmt.Printf("Found %d .json file(s)\n", len(files))
	}

	results, err := compileAll(context.Background(), cfg, files)
	if err != nil {
		return err
	}
	return report(cfg, results, os.Stdout, os.Stderr)
}

// result is the outcome of compiling one file.
type result struct {
	input  string
	output string
	php    string
	srcMap []byte
	err    error
}

// compileAll compiles files concurrently, one Formatter each. Compile
// errors are kept per file; only I/O failures while writing stop the run.
func compileAll(ctx context.Context, cfg *config, files []string) ([]*result, error) {
	results := make([]*result, len(files))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))

	for i, path := range files {
		i, path := i, path
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			r := compileFile(cfg, path)
			results[i] = r
			if r.err != nil || cfg.check || cfg.stdout {
				return nil
			}
			return writeResult(cfg, r)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// compileFile decodes the element tree at path and renders the helper
// preamble followed by the template.
func compileFile(cfg *config, path string) *result {
	r := &result{input: path, output: outputFileName(path)}
	log.CLI("compiling %s", path)

	data, err := os.ReadFile(path)
	if err != nil {
		r.err = fmt.Errorf("reading file: %w", err)
		return r
	}
	tree, err := element.Decode(data)
	if err != nil {
		r.err = fmt.Errorf("decoding tree: %w", err)
		return r
	}

	f, err := formatter.New(cfg.options(sourceFileName(path))...)
	if err != nil {
		r.err = err
		return r
	}
	var selector any
	if cfg.format != "" {
		selector = cfg.format
	}
	body, err := f.Format(tree, selector)
	if err != nil {
		r.err = err
		return r
	}
	deps, err := f.FormatDependencies()
	if err != nil {
		r.err = err
		return r
	}
	r.php = deps + body + "\n"

	if cfg.srcMap {
		sm := f.SourceMap()
		// The preamble shifts every template line down.
		shift := strings.Count(deps, "\n")
		for i := range sm.Mappings {
			sm.Mappings[i].OutputLine += shift
		}
		if r.srcMap, err = sm.ToJSON(); err != nil {
			r.err = fmt.Errorf("encoding source map: %w", err)
		}
	}
	return r
}

func writeResult(cfg *config, r *result) error {
	if err := os.WriteFile(r.output, []byte(r.php), 0644); err != nil {
		return fmt.Errorf("writing %s: %w", r.output, err)
	}
	if cfg.srcMap {
		mapPath := formatter.SourceMapFileName(r.output)
		if err := os.WriteFile(mapPath, r.srcMap, 0644); err != nil {
			return fmt.Errorf("writing %s: %w", mapPath, err)
		}
	}
	log.CLI("wrote %s", r.output)
	return nil
}

// report prints diagnostics in input order and, with -stdout, the
// compiled templates.
func report(cfg *config, results []*result, stdout, stderr io.Writer) error {
	label := errorLabel(stderr)
	var errorCount int
	for _, r := range results {
		if r.err != nil {
			errorCount++
			var fe formatter.FormatterError
			if errors.As(r.err, &fe) {
				fmt.Fprintf(stderr, "%s: %v\n", r.input, r.err)
			} else {
				fmt.Fprintf(stderr, "%s %s: %v\n", label, r.input, r.err)
			}
			continue
		}
		switch {
		case cfg.stdout && !cfg.check:
			fmt.Fprint(stdout, r.php)
		case cfg.verbose && cfg.check:
			fmt.Fprintf(stdout, "ok %s\n", r.input)
		case cfg.verbose:
			fmt.Fprintf(stdout, "%s -> %s\n", r.input, r.output)
		}
	}

	if errorCount > 0 {
		return fmt.Errorf("%d file(s) had errors", errorCount)
	}
	return nil
}

// collectTreeFiles finds all .json element trees from the given paths.
// Supports:
//   - Direct file paths: "page.json"
//   - Directory paths: "./views"
//   - Recursive pattern: "./..."
func collectTreeFiles(paths []string) ([]string, error) {
	var files []string

	for _, path := range paths {
		if strings.HasSuffix(path, "/...") {
			root := strings.TrimSuffix(path, "/...")
			if root == "" {
				root = "."
			}
			err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
				if err != nil {
					return err
				}
				if !d.IsDir() && isTreeFile(p) {
					files = append(files, p)
				}
				return nil
			})
			if err != nil {
				return nil, fmt.Errorf("walking %s: %w", root, err)
			}
			continue
		}

		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", path, err)
		}
		if info.IsDir() {
			entries, err := os.ReadDir(path)
			if err != nil {
				return nil, fmt.Errorf("reading directory %s: %w", path, err)
			}
			for _, entry := range entries {
				if !entry.IsDir() && isTreeFile(entry.Name()) {
					files = append(files, filepath.Join(path, entry.Name()))
				}
			}
		} else if isTreeFile(path) {
			files = append(files, path)
		}
	}

	return files, nil
}

func isTreeFile(path string) bool {
	return strings.HasSuffix(path, ".json")
}

// outputFileName converts a tree filename to its template filename.
// Examples:
//
//	page.json      -> page.php
//	page.pug.json  -> page.php
func outputFileName(inputPath string) string {
	name := strings.TrimSuffix(inputPath, ".json")
	name = strings.TrimSuffix(name, ".pug")
	return name + ".php"
}

// sourceFileName is the template name recorded in diagnostics and source
// maps.
func sourceFileName(inputPath string) string {
	name := filepath.Base(strings.TrimSuffix(inputPath, ".json"))
	if !strings.HasSuffix(name, ".pug") {
		name += ".pug"
	}
	return name
}
