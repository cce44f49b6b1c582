package registry

import (
	"errors"
	"strings"
	"testing"
)

func TestSprintf(t *testing.T) {
	type tc struct {
		tmpl string
		args []string
		want string
	}

	tests := map[string]tc{
		"sequential":       {tmpl: "<%s>%s</%s>", args: []string{"a", "b", "a"}, want: "<a>b</a>"},
		"positional":       {tmpl: "(isset(%1$s) ? %1$s : %2$s)", args: []string{"$x", "''"}, want: "(isset($x) ? $x : '')"},
		"missing argument": {tmpl: ` %s="%s"`, args: []string{"checked"}, want: ` checked=""`},
		"surplus argument": {tmpl: " %s", args: []string{"checked", "checked"}, want: " checked"},
		"literal percent":  {tmpl: "100%% %s", args: []string{"done"}, want: "100% done"},
		"digit verb":       {tmpl: "line %d", args: []string{"3"}, want: "line 3"},
		"unknown verb":     {tmpl: "%x %s", args: []string{"a"}, want: "%x a"},
		"trailing percent": {tmpl: "50%", want: "50%"},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			if got := Sprintf(tt.tmpl, tt.args...); got != tt.want {
				t.Errorf("Sprintf(%q) = %q, want %q", tt.tmpl, got, tt.want)
			}
		})
	}
}

func TestRegistry_Pattern(t *testing.T) {
	r := New(DefaultStorage)
	r.RegisterPattern("open", "<%s>")
	r.RegisterPattern("close", "</%s>")
	r.RegisterPatternFunc("pair", []string{"open", "close"}, func(in []string, args ...string) string {
		return Sprintf(in[0], args[0]) + args[1] + Sprintf(in[1], args[0])
	})

	got, err := r.Pattern("pair", "p", "hi")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "<p>hi</p>" {
		t.Errorf("pair = %q, want %q", got, "<p>hi</p>")
	}

	// Inputs are resolved at call time.
	r.RegisterPattern("open", "[%s]")
	got, _ = r.Pattern("pair", "p", "hi")
	if got != "[p]hi</p>" {
		t.Errorf("late-bound pair = %q, want %q", got, "[p]hi</p>")
	}

	raw, _ := r.Pattern("close")
	if raw != "</%s>" {
		t.Errorf("raw pattern = %q, want verbatim template", raw)
	}

	r.RegisterPattern("percent", "100%%")
	if raw, _ := r.Pattern("percent"); raw != "100%%" {
		t.Errorf("raw percent = %q, want %q", raw, "100%%")
	}
	if got, _ := r.Render("percent"); got != "100%" {
		t.Errorf("Render(percent) = %q, want %q", got, "100%")
	}
	if got, _ := r.Render("pair", "p", "hi"); got != "[p]hi</p>" {
		t.Errorf("Render(pair) = %q", got)
	}
	if _, err := r.Render("nope"); err == nil {
		t.Error("Render() expected an error for an unknown pattern")
	}
}

func TestRegistry_PatternErrors(t *testing.T) {
	r := New(DefaultStorage)
	r.RegisterPatternFunc("a", []string{"b"}, func(in []string, _ ...string) string { return in[0] })
	r.RegisterPatternFunc("b", []string{"c"}, func(in []string, _ ...string) string { return in[0] })
	r.RegisterPatternFunc("c", []string{"a"}, func(in []string, _ ...string) string { return in[0] })
	r.RegisterPatternFunc("d", []string{"missing"}, func(in []string, _ ...string) string { return in[0] })

	_, err := r.Pattern("a")
	var cyc *CyclicPatternError
	if !errors.As(err, &cyc) {
		t.Fatalf("expected CyclicPatternError, got %v", err)
	}
	if strings.Join(cyc.Chain, ",") != "a,b,c,a" {
		t.Errorf("chain = %v", cyc.Chain)
	}

	_, err = r.Pattern("d")
	var unknown *UnknownPatternError
	if !errors.As(err, &unknown) || unknown.Name != "missing" {
		t.Errorf("expected UnknownPatternError for missing, got %v", err)
	}

	// The registry recovers after a failed resolution.
	r.RegisterPattern("ok", "fine")
	if v, err := r.Pattern("ok"); err != nil || v != "fine" {
		t.Errorf("Pattern(ok) = %q, %v", v, err)
	}
}

func newHelperRegistry() *Registry {
	r := New(DefaultStorage)
	code := func(name string) HelperFunc {
		return func(deps []string) string {
			return name + "(" + strings.Join(deps, ",") + ")"
		}
	}
	r.RegisterHelper("a", code("a"))
	r.RegisterHelper("b", code("b"), "a")
	r.RegisterHelper("h", code("h"), "a", "b")
	r.RegisterHelper("other", code("other"))
	return r
}

func helperNames(hs []Helper) string {
	names := make([]string, len(hs))
	for i, h := range hs {
		names[i] = h.Name
	}
	return strings.Join(names, ",")
}

func TestRegistry_Dependencies(t *testing.T) {
	type tc struct {
		require []string
		want    string
	}

	tests := map[string]tc{
		"nothing required":     {want: ""},
		"transitive closure":   {require: []string{"h"}, want: "a,b,h"},
		"required many times":  {require: []string{"h", "h", "b", "h"}, want: "a,b,h"},
		"dependency first":     {require: []string{"a", "h"}, want: "a,b,h"},
		"independent helpers":  {require: []string{"other", "b"}, want: "other,a,b"},
		"unrelated not pulled": {require: []string{"b"}, want: "a,b"},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			r := newHelperRegistry()
			for _, name := range tt.require {
				if _, err := r.RequireHelper(name); err != nil {
					t.Fatalf("RequireHelper(%s): %v", name, err)
				}
			}
			hs, err := r.Dependencies()
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got := helperNames(hs); got != tt.want {
				t.Errorf("order = %q, want %q", got, tt.want)
			}

			// Idempotent within one cycle.
			again, _ := r.Dependencies()
			if helperNames(again) != helperNames(hs) {
				t.Errorf("second call = %q, want %q", helperNames(again), helperNames(hs))
			}
		})
	}
}

func TestRegistry_HelperReceivesAccessors(t *testing.T) {
	r := newHelperRegistry()
	accessor, err := r.RequireHelper("b")
	if err != nil {
		t.Fatal(err)
	}
	if accessor != "$pugModule['b']" {
		t.Errorf("accessor = %q", accessor)
	}
	hs, _ := r.Dependencies()
	if hs[1].Code != "b($pugModule['a'])" {
		t.Errorf("code = %q", hs[1].Code)
	}
}

func TestRegistry_CustomStorage(t *testing.T) {
	r := New(Storage{
		Name:   "helpers",
		Getter: func(storage, name string) string { return "$" + storage + "->" + name },
	})
	r.RegisterHelper("x", func([]string) string { return "1" })
	accessor, _ := r.RequireHelper("x")
	if accessor != "$helpers->x" {
		t.Errorf("accessor = %q", accessor)
	}
	if r.StorageName() != "helpers" {
		t.Errorf("storage = %q", r.StorageName())
	}
}

func TestRegistry_InitDependencies(t *testing.T) {
	r := newHelperRegistry()
	r.RequireHelper("h")
	r.InitDependencies()
	if r.IsRequired("h") {
		t.Error("h still required after reset")
	}
	r.RequireHelper("other")
	hs, _ := r.Dependencies()
	if got := helperNames(hs); got != "other" {
		t.Errorf("after reset = %q, want %q", got, "other")
	}
}

func TestRegistry_Rollback(t *testing.T) {
	r := newHelperRegistry()
	r.RequireHelper("b")
	mark := r.Checkpoint()
	r.RequireHelper("h")
	r.RequireHelper("other")
	r.RequireHelper("b")

	r.Rollback(mark)
	if r.IsRequired("h") || r.IsRequired("other") {
		t.Error("helpers required after the checkpoint are still required")
	}
	if !r.IsRequired("b") {
		t.Error("b was required before the checkpoint and must stay")
	}
	hs, _ := r.Dependencies()
	if got := helperNames(hs); got != "a,b" {
		t.Errorf("after rollback = %q, want %q", got, "a,b")
	}

	r.Rollback(10)
	if got := r.Required(); len(got) != 1 || got[0] != "b" {
		t.Errorf("Rollback past the end changed Required() = %v", got)
	}
}

func TestRegistry_HelperErrors(t *testing.T) {
	r := New(DefaultStorage)
	if _, err := r.RequireHelper("nope"); err == nil {
		t.Error("expected error requiring unknown helper")
	}

	r.RegisterHelper("x", func([]string) string { return "" }, "y")
	r.RegisterHelper("y", func([]string) string { return "" }, "x")
	r.RegisterHelper("z", func([]string) string { return "" }, "ghost")

	r.RequireHelper("x")
	_, err := r.Dependencies()
	var cyc *CyclicPatternError
	if !errors.As(err, &cyc) {
		t.Fatalf("expected CyclicPatternError, got %v", err)
	}

	r.InitDependencies()
	r.RequireHelper("z")
	_, err = r.Dependencies()
	var unknown *UnknownHelperError
	if !errors.As(err, &unknown) || unknown.Name != "ghost" || unknown.RequiredBy != "z" {
		t.Errorf("expected UnknownHelperError ghost <- z, got %v", err)
	}
}
