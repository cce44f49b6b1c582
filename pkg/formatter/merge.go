package formatter

import (
	"strings"

	"github.com/grindlemire/go-pugfmt/pkg/phpexpr"
)

// MergeClasses flattens class contributions into one space separated list.
//
// Strings are split on whitespace. In arrays, integer keyed entries
// contribute their values and string keyed entries contribute their key when
// the value is truthy. Each class appears once, at its first position.
func MergeClasses(values ...phpexpr.Value) string {
	var classes []string
	seen := make(map[string]bool)
	add := func(v phpexpr.Value) {
		for _, c := range strings.Fields(phpexpr.ToString(v)) {
			if !seen[c] {
				seen[c] = true
				classes = append(classes, c)
			}
		}
	}
	for _, v := range values {
		switch x := v.(type) {
		case *phpexpr.Array:
			x.Each(func(key any, item phpexpr.Value) {
				if name, ok := key.(string); ok {
					if phpexpr.Truthy(item) {
						add(name)
					}
					return
				}
				if sub, ok := item.(*phpexpr.Array); ok {
					sub.Each(func(_ any, s phpexpr.Value) { add(s) })
					return
				}
				add(item)
			})
		case nil, bool:
			if x == true {
				add(x)
			}
		default:
			add(x)
		}
	}
	return strings.Join(classes, " ")
}

// MergeStyles joins style contributions with ";".
//
// Strings pass through trimmed of surrounding space and trailing ";". In
// arrays, string keyed entries become key:value and integer keyed entries
// pass through like strings. Empty contributions are skipped.
func MergeStyles(values ...phpexpr.Value) string {
	var styles []string
	add := func(s string) {
		if s = strings.TrimRight(strings.TrimSpace(s), ";"); s != "" {
			styles = append(styles, s)
		}
	}
	for _, v := range values {
		arr, ok := v.(*phpexpr.Array)
		if !ok {
			add(phpexpr.ToString(v))
			continue
		}
		arr.Each(func(key any, item phpexpr.Value) {
			name, isName := key.(string)
			if !isName {
				add(phpexpr.ToString(item))
				return
			}
			if value := phpexpr.ToString(item); value != "" {
				styles = append(styles, name+":"+value)
			}
		})
	}
	return strings.Join(styles, ";")
}

// MergeAttributes merges attribute arrays left to right. A later value
// replaces an earlier one except for class and style, which are merged with
// MergeClasses and MergeStyles. Keys keep their first position.
func MergeAttributes(sets ...*phpexpr.Array) *phpexpr.Array {
	out := phpexpr.NewArray()
	for _, set := range sets {
		if set == nil {
			continue
		}
		set.Each(func(key any, v phpexpr.Value) {
			switch key {
			case "class":
				prev, _ := out.Get("class")
				v = MergeClasses(prev, v)
			case "style":
				prev, _ := out.Get("style")
				v = MergeStyles(prev, v)
			}
			out.Set(key, v)
		})
	}
	return out
}
