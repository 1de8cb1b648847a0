package main

import (
	"fmt"
	"os"

	"github.com/Iron-Ham/rsyncsync/internal/cmd"
	"github.com/Iron-Ham/rsyncsync/internal/errors"
)

func main() {
	err := cmd.Execute()
	if err == nil {
		return
	}

	fmt.Fprintln(os.Stderr, "Error:", err)
	var exitErr *cmd.ExitError
	if errors.As(err, &exitErr) {
		os.Exit(exitErr.Code)
	}
	os.Exit(1)
}
