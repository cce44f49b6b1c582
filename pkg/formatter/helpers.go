package formatter

import (
	"sort"
	"strconv"
	"strings"

	"github.com/grindlemire/go-pugfmt/internal/registry"
	"github.com/grindlemire/go-pugfmt/pkg/element"
)

// Runtime helper names.
const (
	helperMergeClasses         = "merge_classes"
	helperMergeStyles          = "merge_styles"
	helperMergeAttributes      = "merge_attributes"
	helperAttributesAssignment = "attributes_assignment"
	helperDebugMap             = "debug_map"
	helperDebugRethrow         = "debug_rethrow"
)

// registerHelpers declares the runtime helpers. They are emitted only once
// required.
func (f *Formatter) registerHelpers() {
	f.reg.RegisterHelper(helperMergeClasses, func([]string) string {
		return `function (...$values) {
    $classes = [];
    foreach ($values as $value) {
        if (is_array($value)) {
            foreach ($value as $key => $item) {
                if (is_string($key)) {
                    if ($item) {
                        $classes[] = $key;
                    }
                    continue;
                }
                foreach ((array) $item as $sub) {
                    $classes = array_merge($classes, preg_split('/\s+/', (string) $sub));
                }
            }
            continue;
        }
        if ($value !== null && $value !== false) {
            $classes = array_merge($classes, preg_split('/\s+/', (string) $value));
        }
    }
    return implode(' ', array_values(array_unique(array_filter($classes, 'strlen'))));
}`
	})

	f.reg.RegisterHelper(helperMergeStyles, func([]string) string {
		return `function (...$values) {
    $styles = [];
    foreach ($values as $value) {
        if (!is_array($value)) {
            $value = [(string) $value];
        }
        foreach ($value as $key => $item) {
            if (is_string($key)) {
                if ((string) $item !== '') {
                    $styles[] = $key . ':' . $item;
                }
                continue;
            }
            $item = rtrim(trim((string) $item), ';');
            if ($item !== '') {
                $styles[] = $item;
            }
        }
    }
    return implode(';', $styles);
}`
	})

	f.reg.RegisterHelper(helperMergeAttributes, func(deps []string) string {
		return `function (...$sets) use (&$` + f.reg.StorageName() + `) {
    $attributes = [];
    foreach ($sets as $set) {
        foreach ((array) $set as $key => $value) {
            if ($key === 'class') {
                $value = ` + deps[0] + `(isset($attributes['class']) ? $attributes['class'] : null, $value);
            } elseif ($key === 'style') {
                $value = ` + deps[1] + `(isset($attributes['style']) ? $attributes['style'] : null, $value);
            }
            $attributes[$key] = $value;
        }
    }
    return $attributes;
}`
	}, helperMergeClasses, helperMergeStyles)

	f.reg.RegisterHelper(helperAttributesAssignment, func(deps []string) string {
		escaped := registry.Sprintf(f.syntax.escape, "(string) $value")
		return `function (...$sets) use (&$` + f.reg.StorageName() + `) {
    $output = '';
    foreach (` + deps[0] + `(...$sets) as $key => $value) {
        if ($value === null || $value === false || (($key === 'class' || $key === 'style') && $value === '')) {
            continue;
        }
        if ($value === true) {
            $output .= sprintf(` + registry.Quote(f.syntax.boolean) + `, $key, $key);
            continue;
        }
        $output .= sprintf(` + registry.Quote(f.syntax.attribute) + `, $key, ` + escaped + `);
    }
    return $output;
}`
	}, helperMergeAttributes)

	f.reg.RegisterHelper(helperDebugMap, func([]string) string {
		return f.debugTable()
	})

	f.reg.RegisterHelper(helperDebugRethrow, func(deps []string) string {
		return `function ($error, $id) use (&$` + f.reg.StorageName() + `) {
    $map = ` + deps[0] + `;
    if (!isset($map[$id])) {
        throw $error;
    }
    list($file, $line, $offset) = $map[$id];
    throw new \ErrorException(
        $error->getMessage() . ' (' . $file . ':' . $line . ':' . $offset . ')',
        (int) $error->getCode(),
        E_ERROR,
        $file,
        $line,
        $error
    );
}`
	}, helperDebugMap)
}

// debugTable renders the fragment id to origin table as a PHP array.
func (f *Formatter) debugTable() string {
	ids := make([]int, 0, len(f.fragments))
	for id := range f.fragments {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	var sb strings.Builder
	sb.WriteString("[")
	for i, id := range ids {
		o := f.fragments[id]
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString("\n    ")
		sb.WriteString(strconv.Itoa(id))
		sb.WriteString(" => [")
		sb.WriteString(registry.Quote(o.File))
		sb.WriteString(", ")
		sb.WriteString(strconv.Itoa(o.Line))
		sb.WriteString(", ")
		sb.WriteString(strconv.Itoa(o.Offset))
		sb.WriteString("]")
	}
	if len(ids) > 0 {
		sb.WriteString(",\n")
	}
	sb.WriteString("]")
	return sb.String()
}

// FormatDependencies renders the preamble declaring every helper required
// since the last InitDependencies, or "" when none was required.
func (f *Formatter) FormatDependencies() (string, error) {
	helpers, err := f.reg.Dependencies()
	if err != nil {
		return "", wrapRegistryError(nil, err)
	}
	if len(helpers) == 0 {
		return "", nil
	}

	var out output
	out.write("<?php\n")
	if f.storage.Getter == nil {
		out.write("$" + f.reg.StorageName() + " = [];\n")
	}
	for _, h := range helpers {
		out.write(f.reg.Accessor(h.Name) + " = " + h.Code + ";\n")
	}
	out.write("?>\n")
	return out.String(), nil
}

// InitDependencies forgets the required helpers and the debug side table,
// starting a fresh emission bundle.
func (f *Formatter) InitDependencies() {
	f.reg.InitDependencies()
	f.fragments = make(map[int]element.Origin)
	f.nextFragment = 0
}

// RequireHelper flags a runtime helper for emission and returns the PHP
// expression calling it. Assignment handlers use it to unlock helpers.
func (f *Formatter) RequireHelper(name string) (string, error) {
	accessor, err := f.reg.RequireHelper(name)
	if err != nil {
		return "", wrapRegistryError(nil, err)
	}
	return accessor, nil
}

// RegisterHelper declares a runtime helper. code receives the access
// expressions of deps.
func (f *Formatter) RegisterHelper(name string, code func(deps []string) string, deps ...string) {
	f.reg.RegisterHelper(name, code, deps...)
}
