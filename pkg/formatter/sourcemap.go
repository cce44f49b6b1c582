package formatter

import (
	"encoding/json"

	"github.com/grindlemire/go-pugfmt/pkg/element"
)

// SourceMap links fragments of a rendered output to the template nodes that
// produced them. Output positions are 0-indexed; template lines are 1-based
// as in element.Origin.
type SourceMap struct {
	// SourceFile is the template path given with WithSourceFile
	SourceFile string `json:"sourceFile"`

	// Mappings are ordered by output position
	Mappings []SourceMapping `json:"mappings"`
}

// SourceMapping is the start of one node's output.
type SourceMapping struct {
	// ID is the fragment id written by debug markers
	ID int `json:"id"`
	// OutputLine is the line in the rendered output (0-indexed)
	OutputLine int `json:"outputLine"`
	// OutputCol is the byte column in the rendered output (0-indexed)
	OutputCol int `json:"outputCol"`
	// File is the template holding the node
	File string `json:"file,omitempty"`
	// Line is the template line (1-based)
	Line int `json:"line"`
	// Offset is the column offset on Line (0-based)
	Offset int `json:"offset"`
}

// NewSourceMap creates a new empty source map.
func NewSourceMap(sourceFile string) *SourceMap {
	return &SourceMap{
		SourceFile: sourceFile,
		Mappings:   make([]SourceMapping, 0),
	}
}

// AddMapping adds a new position mapping.
func (sm *SourceMap) AddMapping(m SourceMapping) {
	sm.Mappings = append(sm.Mappings, m)
}

// Lookup returns the template origin of fragment id.
func (sm *SourceMap) Lookup(id int) (element.Origin, bool) {
	for _, m := range sm.Mappings {
		if m.ID == id {
			return m.origin(), true
		}
	}
	return element.Origin{}, false
}

// Locate attaches the origin of fragment id to cause. It returns cause
// unchanged when id is unknown.
func (sm *SourceMap) Locate(id int, cause error) error {
	o, ok := sm.Lookup(id)
	if !ok {
		return cause
	}
	return &LocatedError{Origin: o, Err: cause}
}

// OutputToSource returns the origin of the node whose output contains the
// given output position: the last mapping starting at or before it.
func (sm *SourceMap) OutputToSource(line, col int) (element.Origin, bool) {
	var best *SourceMapping
	for i := range sm.Mappings {
		m := &sm.Mappings[i]
		if m.OutputLine > line || (m.OutputLine == line && m.OutputCol > col) {
			continue
		}
		if best == nil || m.OutputLine > best.OutputLine ||
			(m.OutputLine == best.OutputLine && m.OutputCol >= best.OutputCol) {
			best = m
		}
	}
	if best == nil {
		return element.Origin{}, false
	}
	return best.origin(), true
}

func (m SourceMapping) origin() element.Origin {
	return element.Origin{File: m.File, Line: m.Line, Offset: m.Offset}
}

// ToJSON serializes the source map to JSON.
func (sm *SourceMap) ToJSON() ([]byte, error) {
	return json.MarshalIndent(sm, "", "  ")
}

// ParseSourceMap parses a source map from JSON.
func ParseSourceMap(data []byte) (*SourceMap, error) {
	var sm SourceMap
	if err := json.Unmarshal(data, &sm); err != nil {
		return nil, err
	}
	return &sm, nil
}

// SourceMapFileName returns the source map filename for a rendered file.
// e.g., "page.php" -> "page.php.map"
func SourceMapFileName(outputFile string) string {
	return outputFile + ".map"
}
