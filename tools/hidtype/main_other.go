//go:build !linux

package main

import (
	"fmt"
	"os"
)

func main() {
	fmt.Fprintln(os.Stderr, "hidtype requires Linux uinput support")
	os.Exit(1)
}
