package main

import (
	"context"
	"fmt"
	"os"
)

func main() {
	root := newRootCommand(os.Stdout)
	if err := root.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "newsdigest:", err)
		os.Exit(exitCode(err))
	}
}
