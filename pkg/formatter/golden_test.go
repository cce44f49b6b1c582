package formatter

import (
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"golang.org/x/tools/txtar"

	"github.com/grindlemire/go-pugfmt/pkg/element"
)

// goldenCase is one testdata/*.txtar archive. The archive comment holds
// "key: value" settings (format, pretty, debug, source). Files:
//
//	input.json  element tree
//	output.php  expected Format output, without the final newline
//	deps.txt    helpers expected from FormatDependencies, one per line
//	error.txt   expected error substring instead of output.php
type goldenCase struct {
	settings map[string]string
	files    map[string]string
}

func loadGolden(t *testing.T, path string) goldenCase {
	t.Helper()
	ar, err := txtar.ParseFile(path)
	if err != nil {
		t.Fatalf("parse %s: %v", path, err)
	}
	gc := goldenCase{settings: make(map[string]string), files: make(map[string]string)}
	for _, line := range strings.Split(string(ar.Comment), "\n") {
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		gc.settings[strings.TrimSpace(key)] = strings.TrimSpace(value)
	}
	for _, f := range ar.Files {
		gc.files[f.Name] = string(f.Data)
	}
	return gc
}

func (gc goldenCase) options(t *testing.T) []Option {
	t.Helper()
	var opts []Option
	flag := func(key string) bool {
		v, ok := gc.settings[key]
		if !ok {
			return false
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			t.Fatalf("setting %s: %v", key, err)
		}
		return b
	}
	if flag("pretty") {
		opts = append(opts, WithPretty(true))
	}
	if flag("debug") {
		opts = append(opts, WithDebug(true))
	}
	if src, ok := gc.settings["source"]; ok {
		opts = append(opts, WithSourceFile(src))
	}
	return opts
}

func TestGolden(t *testing.T) {
	paths, err := filepath.Glob(filepath.Join("testdata", "*.txtar"))
	if err != nil {
		t.Fatal(err)
	}
	if len(paths) == 0 {
		t.Fatal("no golden files found")
	}

	for _, path := range paths {
		name := strings.TrimSuffix(filepath.Base(path), ".txtar")
		t.Run(name, func(t *testing.T) {
			gc := loadGolden(t, path)
			n, err := element.Decode([]byte(gc.files["input.json"]))
			if err != nil {
				t.Fatalf("Decode() error: %v", err)
			}

			var selector any
			if format, ok := gc.settings["format"]; ok {
				selector = format
			}
			f := newFormatter(t, gc.options(t)...)
			got, err := f.Format(n, selector)

			if want, ok := gc.files["error.txt"]; ok {
				want = strings.TrimSpace(want)
				if err == nil || !strings.Contains(err.Error(), want) {
					t.Fatalf("Format() error = %v, want %q", err, want)
				}
				return
			}
			if err != nil {
				t.Fatalf("Format() error: %v", err)
			}
			want := strings.TrimSuffix(gc.files["output.php"], "\n")
			if got != want {
				t.Errorf("Format() =\n%s\nwant\n%s", got, want)
			}

			deps, err := f.FormatDependencies()
			if err != nil {
				t.Fatalf("FormatDependencies() error: %v", err)
			}
			wantDeps := strings.Fields(gc.files["deps.txt"])
			if len(wantDeps) == 0 && deps != "" {
				t.Errorf("FormatDependencies() = %q, want none", deps)
			}
			last := -1
			for _, h := range wantDeps {
				at := strings.Index(deps, f.reg.Accessor(h)+" = ")
				if at < 0 {
					t.Errorf("FormatDependencies() missing %s", h)
					continue
				}
				if at < last {
					t.Errorf("FormatDependencies() declares %s out of order", h)
				}
				last = at
			}
		})
	}
}
