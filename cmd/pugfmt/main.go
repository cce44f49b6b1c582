// Package main provides the CLI driver for the pug template formatter.
//
// Usage:
//
//	pugfmt format [options] [path...]    Compile element trees to PHP templates
//	pugfmt check [options] [path...]     Compile without writing output
//	pugfmt help                          Show help
//
// Element trees are read as JSON documents (see element.Decode). Each
// page.json compiles to page.php next to it.
package main

import (
	"fmt"
	"os"

	"github.com/grindlemire/go-pugfmt/internal/log"
)

const version = "0.1.0"

const usage = `pugfmt - compile pug element trees to PHP templates

Usage:
  pugfmt <command> [options] [path...]

Commands:
  format      Compile .json element trees to .php templates
  check       Compile without writing output
  version     Print version information
  help        Show this help message

Options:
  -format <alias>   Output format (html, xhtml, xml, basic, 5, transitional, ...)
  -pretty           Indent block tags
  -indent <string>  Indentation unit used with -pretty (default two spaces)
  -debug            Wrap templates with source-mapped error reporting
  -map              Also write a .php.map source map next to each template
  -stdout           Print templates to stdout instead of writing files
  -storage <name>   PHP variable holding the runtime helpers (default pugModule)
  -log <path>       Append debug logs to path
  -v                Verbose output

Examples:
  pugfmt format ./...                 Recursively compile all .json trees
  pugfmt format -pretty views         Compile a directory with indentation
  pugfmt format -format xml feed.json Force the XML format
  pugfmt check -debug ./...           Validate every tree

Set PUGFMT_DEBUG to a file path to enable debug logging.
`

func main() {
	if len(os.Args) < 2 {
		fmt.Print(usage)
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	if path := os.Getenv("PUGFMT_DEBUG"); path != "" {
		closer, err := log.Open(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: %v\n", err)
		} else {
			defer closer.Close()
		}
	}

	switch command {
	case "format":
		exitOnError(runFormat(args, false))
	case "check":
		exitOnError(runFormat(args, true))
	case "version":
		fmt.Printf("pugfmt version %s\n", version)
	case "help", "-h", "--help":
		fmt.Print(usage)
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", command)
		fmt.Print(usage)
		os.Exit(1)
	}
}

func exitOnError(err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "%s %v\n", errorLabel(os.Stderr), err)
	os.Exit(1)
}
