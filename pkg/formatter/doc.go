// Package formatter turns an element tree into PHP-embedded markup.
//
// A Formatter owns one compilation session: the pattern table, the lazily
// required runtime helpers and the debug side table. Format renders a tree
// with a selected output Format (Basic, XML, HTML or XHTML) and
// FormatDependencies renders the preamble declaring the helpers the
// rendered code needs:
//
//	f, err := formatter.New(formatter.WithPretty(true))
//	if err != nil {
//		return err
//	}
//	body, err := f.Format(doc, "html")
//	if err != nil {
//		return err
//	}
//	preamble, err := f.FormatDependencies()
//	if err != nil {
//		return err
//	}
//	php := preamble + body
//
// A Formatter is not safe for concurrent use. Independent Formatters share no
// state and may run in parallel.
package formatter
