// Command padscope-diff compares two protocol submissions captured under
// different input methods and reports the field-level diff.
//
// Usage:
//
//	padscope-diff [flags] <run.json>
//	padscope-diff [flags] -virtual body-a.txt -hardware body-b.txt
//
// The first form reads a persisted diff run; the second builds one from two
// raw intercepted request bodies. With -save, the diff run (captures plus
// analysis) is written back in the persisted shape.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"padscope/internal/artifact"
	"padscope/internal/capture"
	"padscope/internal/subdiff"
)

func main() {
	virtualPath := flag.String("virtual", "", "raw body file for the virtual-input capture")
	hardwarePath := flag.String("hardware", "", "raw body file for the hardware-input capture")
	denylist := flag.String("expected", strings.Join(subdiff.DefaultConfig().ExpectedDivergent, ","), "comma-separated field names expected to diverge")
	formatStr := flag.String("format", "text", "output format: text, json")
	savePath := flag.String("save", "", "write the diff run (captures + analysis) to this file")
	validate := flag.Bool("validate", true, "validate diff run files against the JSON schema before parsing")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "padscope-diff - diff two submission captures\n\n")
		fmt.Fprintf(os.Stderr, "Usage: %s [flags] <run.json>\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "       %s [flags] -virtual body-a.txt -hardware body-b.txt\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Flags:\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	run, err := loadRun(*virtualPath, *hardwarePath, flag.Args(), *validate)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	cfg := subdiff.Config{ExpectedDivergent: splitList(*denylist)}
	report, err := subdiff.New(cfg).Diff(run.Virtual, run.Hardware)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Diff error: %v\n", err)
		os.Exit(1)
	}
	run.Analysis = report

	switch *formatStr {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			fmt.Fprintf(os.Stderr, "Error encoding report: %v\n", err)
			os.Exit(1)
		}
	case "text":
		subdiff.PrintReport(os.Stdout, report)
	default:
		fmt.Fprintf(os.Stderr, "Error: unknown format %q (use text or json)\n", *formatStr)
		os.Exit(2)
	}

	if *savePath != "" {
		if err := artifact.SaveDiffRun(*savePath, run); err != nil {
			fmt.Fprintf(os.Stderr, "Error saving run: %v\n", err)
			os.Exit(1)
		}
	}

	if len(report.Divergences) > 0 {
		os.Exit(1)
	}
}

// loadRun builds a diff run either from a persisted file or from two raw
// body files.
func loadRun(virtualPath, hardwarePath string, args []string, validate bool) (*artifact.DiffRun, error) {
	if virtualPath != "" || hardwarePath != "" {
		if virtualPath == "" || hardwarePath == "" {
			return nil, fmt.Errorf("both -virtual and -hardware are required")
		}
		virtual, err := parseBody(capture.LabelVirtual, virtualPath)
		if err != nil {
			return nil, err
		}
		hardware, err := parseBody(capture.LabelHardware, hardwarePath)
		if err != nil {
			return nil, err
		}
		return &artifact.DiffRun{Virtual: virtual, Hardware: hardware}, nil
	}

	if len(args) != 1 {
		return nil, fmt.Errorf("exactly one diff run file required")
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return nil, err
	}
	if validate {
		if err := artifact.Validate(artifact.SchemaDiffRun, data); err != nil {
			return nil, err
		}
	}
	return artifact.ParseDiffRun(data)
}

func parseBody(label capture.InputLabel, path string) (*capture.SubmissionCapture, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	observed := info.ModTime()
	if observed.IsZero() {
		observed = time.Now()
	}
	body, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return capture.ParseSubmission(label, observed, body)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
