// Command padscope-derive tests derivation hypotheses for an opaque
// submission field against a known plaintext credential.
//
// Usage:
//
//	padscope-derive [flags] -plaintext-file secret.txt <run.json>
//
// Examples:
//
//	# Default: virtual branch, field and width from flags
//	padscope-derive -field encPwd -width 64 -plaintext-file secret.txt run.json
//
//	# Parallel evaluation over a large hypothesis set
//	padscope-derive -workers 8 -plaintext-file secret.txt run.json
//
// The plaintext is the credential that was deliberately typed during the
// controlled capture; it is read from a file rather than argv so it does
// not leak into shell history or the process table.
package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"padscope/internal/artifact"
	"padscope/internal/capture"
	"padscope/internal/derive"
)

func main() {
	plaintextFile := flag.String("plaintext-file", "", "file holding the known plaintext credential (trailing newline ignored)")
	field := flag.String("field", "encPwd", "opaque submission field under test")
	width := flag.Int("width", 64, "fixed segment width in characters")
	branch := flag.String("branch", "virtual", "capture branch to test: virtual, hardware")
	sessionKeys := flag.String("session-keys", "id,keypadUuid", "comma-separated submission fields used as session material keys")
	workers := flag.Int("workers", 1, "parallel hypothesis evaluators (1 = sequential)")
	formatStr := flag.String("format", "text", "output format: text, json")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "padscope-derive - test opaque field derivation hypotheses\n\n")
		fmt.Fprintf(os.Stderr, "Usage: %s [flags] -plaintext-file secret.txt <run.json>\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Flags:\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 1 || *plaintextFile == "" {
		flag.Usage()
		os.Exit(2)
	}

	plaintextBytes, err := os.ReadFile(*plaintextFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading plaintext: %v\n", err)
		os.Exit(1)
	}
	plaintext := strings.TrimRight(string(plaintextBytes), "\r\n")

	run, err := artifact.LoadDiffRun(flag.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading run: %v\n", err)
		os.Exit(1)
	}

	var sub *capture.SubmissionCapture
	switch *branch {
	case "virtual":
		sub = run.Virtual
	case "hardware":
		sub = run.Hardware
	default:
		fmt.Fprintf(os.Stderr, "Error: unknown branch %q (use virtual or hardware)\n", *branch)
		os.Exit(2)
	}

	hypotheses := derive.StandardHypotheses(*width, splitList(*sessionKeys))
	if len(hypotheses) == 0 {
		fmt.Fprintf(os.Stderr, "Error: no hypothesis family produces %d-character segments\n", *width)
		os.Exit(2)
	}

	var result *derive.Result
	if *workers > 1 {
		result, err = derive.TestParallel(sub, plaintext, *field, *width, hypotheses, *workers)
	} else {
		result, err = derive.Test(sub, plaintext, *field, *width, hypotheses)
	}
	if err != nil {
		var mismatch *derive.SegmentCountMismatchError
		if errors.As(err, &mismatch) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			fmt.Fprintln(os.Stderr, "The width assumption is likely wrong; try a different -width.")
			os.Exit(1)
		}
		fmt.Fprintf(os.Stderr, "Derivation error: %v\n", err)
		os.Exit(1)
	}

	switch *formatStr {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(result); err != nil {
			fmt.Fprintf(os.Stderr, "Error encoding result: %v\n", err)
			os.Exit(1)
		}
	case "text":
		derive.PrintReport(os.Stdout, result)
	default:
		fmt.Fprintf(os.Stderr, "Error: unknown format %q (use text or json)\n", *formatStr)
		os.Exit(2)
	}

	if !result.FullyResolved {
		os.Exit(1)
	}
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
