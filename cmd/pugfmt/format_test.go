package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/grindlemire/go-pugfmt/pkg/formatter"
)

func TestParseArgs(t *testing.T) {
	type tc struct {
		args    []string
		want    *config
		wantErr string
	}

	tests := map[string]tc{
		"defaults to current directory": {
			args: nil,
			want: &config{paths: []string{"."}},
		},
		"flags and paths": {
			args: []string{"-pretty", "-format", "xml", "a.json", "--map", "views"},
			want: &config{format: "xml", pretty: true, srcMap: true, paths: []string{"a.json", "views"}},
		},
		"inline value": {
			args: []string{"-indent=\t", "-storage=helpers", "-debug", "-v"},
			want: &config{indent: "\t", storage: "helpers", debug: true, verbose: true, paths: []string{"."}},
		},
		"missing value": {
			args:    []string{"-format"},
			wantErr: "flag -format requires a value",
		},
		"unknown flag": {
			args:    []string{"-fast"},
			wantErr: "unknown flag: -fast",
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			got, err := parseArgs(tt.args)
			if tt.wantErr != "" {
				if err == nil || err.Error() != tt.wantErr {
					t.Fatalf("parseArgs() error = %v, want %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseArgs() error: %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("parseArgs() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestOutputFileName(t *testing.T) {
	type tc struct {
		input      string
		wantOutput string
		wantSource string
	}

	tests := map[string]tc{
		"plain":       {input: "views/page.json", wantOutput: "views/page.php", wantSource: "page.pug"},
		"pug infix":   {input: "views/page.pug.json", wantOutput: "views/page.php", wantSource: "page.pug"},
		"nested dots": {input: "a.b.json", wantOutput: "a.b.php", wantSource: "a.b.pug"},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			if got := outputFileName(tt.input); got != tt.wantOutput {
				t.Errorf("outputFileName() = %q, want %q", got, tt.wantOutput)
			}
			if got := sourceFileName(tt.input); got != tt.wantSource {
				t.Errorf("sourceFileName() = %q, want %q", got, tt.wantSource)
			}
		})
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestCollectTreeFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.json"), "{}")
	writeFile(t, filepath.Join(dir, "a.php.map"), "{}")
	writeFile(t, filepath.Join(dir, "notes.txt"), "")
	writeFile(t, filepath.Join(dir, "sub", "b.json"), "{}")

	flat, err := collectTreeFiles([]string{dir})
	if err != nil {
		t.Fatalf("collectTreeFiles() error: %v", err)
	}
	if want := []string{filepath.Join(dir, "a.json")}; !reflect.DeepEqual(flat, want) {
		t.Errorf("directory = %v, want %v", flat, want)
	}

	deep, err := collectTreeFiles([]string{dir + "/..."})
	if err != nil {
		t.Fatalf("collectTreeFiles() error: %v", err)
	}
	if len(deep) != 2 {
		t.Errorf("recursive = %v, want 2 files", deep)
	}

	if _, err := collectTreeFiles([]string{filepath.Join(dir, "missing.json")}); err == nil {
		t.Error("collectTreeFiles() expected an error for a missing path")
	}
}

const dynamicTree = `{"type": "markup", "name": "p",
  "origin": {"line": 1, "offset": 0},
  "attributes": [{"name": "class", "value": {"type": "expression", "value": "$cls"}}],
  "assignments": [{"name": "attributes", "expressions": [{"type": "expression", "value": "$extra"}]}],
  "children": [{"type": "text", "value": "hi"}]}`

func TestCompileAll(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.json")
	bad := filepath.Join(dir, "bad.json")
	broken := filepath.Join(dir, "broken.json")
	writeFile(t, good, dynamicTree)
	writeFile(t, bad, `{"type": "markup", "name": "br", "children": [{"type": "text", "value": "x"}]}`)
	writeFile(t, broken, `{"type": `)

	cfg := &config{format: "html", srcMap: true}
	results, err := compileAll(context.Background(), cfg, []string{good, bad, broken})
	if err != nil {
		t.Fatalf("compileAll() error: %v", err)
	}

	php, err := os.ReadFile(filepath.Join(dir, "good.php"))
	if err != nil {
		t.Fatalf("template not written: %v", err)
	}
	out := string(php)
	if !strings.HasPrefix(out, "<?php\n$pugModule = [];\n") {
		t.Errorf("template must start with the helper preamble:\n%s", out)
	}
	if !strings.HasSuffix(out, "<p<?= $pugModule['attributes_assignment'](['class' => (isset($cls) ? $cls : '')], (isset($extra) ? $extra : '')) ?>>hi</p>\n") {
		t.Errorf("unexpected template body:\n%s", out)
	}

	data, err := os.ReadFile(filepath.Join(dir, "good.php.map"))
	if err != nil {
		t.Fatalf("source map not written: %v", err)
	}
	sm, err := formatter.ParseSourceMap(data)
	if err != nil {
		t.Fatalf("ParseSourceMap() error: %v", err)
	}
	if sm.SourceFile != "good.pug" || len(sm.Mappings) == 0 {
		t.Fatalf("source map = %+v", sm)
	}
	bodyLine := strings.Count(out, "\n") - 1
	if sm.Mappings[0].OutputLine != bodyLine {
		t.Errorf("mapping line = %d, want %d", sm.Mappings[0].OutputLine, bodyLine)
	}

	if results[1].err == nil || !strings.Contains(results[1].err.Error(), "<br> is self-closing") {
		t.Errorf("bad.json error = %v", results[1].err)
	}
	if results[2].err == nil || !strings.Contains(results[2].err.Error(), "decoding tree") {
		t.Errorf("broken.json error = %v", results[2].err)
	}
	if _, err := os.Stat(filepath.Join(dir, "bad.php")); !os.IsNotExist(err) {
		t.Error("a failed file must not be written")
	}

	var stdout, stderr bytes.Buffer
	err = report(cfg, results, &stdout, &stderr)
	if err == nil || err.Error() != "2 file(s) had errors" {
		t.Errorf("report() error = %v", err)
	}
	if lines := strings.Count(stderr.String(), "\n"); lines != 2 {
		t.Errorf("report() wrote %d diagnostics:\n%s", lines, stderr.String())
	}
	if !strings.Contains(stderr.String(), "error: "+broken+": decoding tree") {
		t.Errorf("plain errors must carry the error label:\n%s", stderr.String())
	}
}

func TestCompileAll_CheckWritesNothing(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "page.json")
	writeFile(t, in, dynamicTree)

	cfg := &config{check: true, verbose: true}
	results, err := compileAll(context.Background(), cfg, []string{in})
	if err != nil {
		t.Fatalf("compileAll() error: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "page.php")); !os.IsNotExist(err) {
		t.Error("check must not write templates")
	}

	var stdout, stderr bytes.Buffer
	if err := report(cfg, results, &stdout, &stderr); err != nil {
		t.Fatalf("report() error: %v", err)
	}
	if got := stdout.String(); got != "ok "+in+"\n" {
		t.Errorf("report() stdout = %q", got)
	}
}

func TestReport_Stdout(t *testing.T) {
	cfg := &config{stdout: true}
	results := []*result{{input: "a.json", php: "<p></p>\n"}, {input: "b.json", php: "<br>\n"}}

	var stdout, stderr bytes.Buffer
	if err := report(cfg, results, &stdout, &stderr); err != nil {
		t.Fatalf("report() error: %v", err)
	}
	if got := stdout.String(); got != "<p></p>\n<br>\n" {
		t.Errorf("report() stdout = %q", got)
	}
	if stderr.Len() != 0 {
		t.Errorf("report() stderr = %q", stderr.String())
	}
}

func TestErrorLabel_NotTerminal(t *testing.T) {
	var buf bytes.Buffer
	if got := errorLabel(&buf); got != "error:" {
		t.Errorf("errorLabel() = %q", got)
	}
}
