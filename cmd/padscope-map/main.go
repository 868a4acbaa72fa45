// Command padscope-map reconciles captured keypad layouts against a
// reference sprite image and prints the token-to-class candidate mapping.
//
// Usage:
//
//	padscope-map [flags] <layout.json> [layout2.json ...]
//
// Examples:
//
//	# Single capture, dimensions taken from the capture itself
//	padscope-map layout.json
//
//	# Use the actual decoded sprite dimensions
//	padscope-map -sprite keypad.png layout.json
//
//	# Two captures of the same session, cross-checked for token conflicts
//	padscope-map -format json layout1.json layout2.json
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"padscope/internal/artifact"
	"padscope/internal/capture"
	"padscope/internal/imagemeta"
	"padscope/internal/reconcile"
)

func main() {
	spritePath := flag.String("sprite", "", "reference sprite image; its decoded dimensions override the transmitted ones")
	partitions := flag.Int("pages", 0, "sprite page count override (0 = distinct pages observed in the capture)")
	formatStr := flag.String("format", "text", "output format: text, json")
	output := flag.String("output", "", "output file (default: stdout)")
	validate := flag.Bool("validate", true, "validate artifact files against the JSON schema before parsing")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "padscope-map - reconcile keypad layout captures\n\n")
		fmt.Fprintf(os.Stderr, "Usage: %s [flags] <layout.json> [layout2.json ...]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Flags:\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() < 1 {
		fmt.Fprintf(os.Stderr, "Error: layout capture file required\n\n")
		flag.Usage()
		os.Exit(2)
	}

	var layouts []*capture.LayoutCapture
	for _, path := range flag.Args() {
		layout, err := loadLayout(path, *validate)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading %s: %v\n", path, err)
			os.Exit(1)
		}
		layouts = append(layouts, layout)
	}

	sprite := layouts[0].Dimensions()
	if *spritePath != "" {
		w, h, err := imagemeta.DimensionsFile(*spritePath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading sprite: %v\n", err)
			os.Exit(1)
		}
		sprite.TotalWidth = w
		sprite.TotalHeight = h
	}

	var reports []*reconcile.MappingReport
	for _, layout := range layouts {
		report, err := reconcile.ReconcileWithPartition(layout, sprite, *partitions)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Reconcile error: %v\n", err)
			os.Exit(1)
		}
		reports = append(reports, report)
	}

	report := reports[0]
	if len(reports) > 1 {
		merged, err := reconcile.MergeReports(reports...)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Merge error: %v\n", err)
			os.Exit(1)
		}
		report = merged
	}

	w, cleanup, err := openOutput(*output)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer cleanup()

	switch *formatStr {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			fmt.Fprintf(os.Stderr, "Error encoding report: %v\n", err)
			os.Exit(1)
		}
	case "text":
		reconcile.PrintReport(w, report)
	default:
		fmt.Fprintf(os.Stderr, "Error: unknown format %q (use text or json)\n", *formatStr)
		os.Exit(2)
	}

	if len(report.Conflicts) > 0 {
		os.Exit(1)
	}
}

func loadLayout(path string, validate bool) (*capture.LayoutCapture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if validate {
		if err := artifact.Validate(artifact.SchemaLayout, data); err != nil {
			return nil, err
		}
	}
	return artifact.ParseLayout(data)
}

func openOutput(path string) (io.Writer, func(), error) {
	if path == "" {
		return os.Stdout, func() {}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, err
	}
	return f, func() { f.Close() }, nil
}
