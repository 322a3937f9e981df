// Command myquran is the offline-first command line client.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/heartmarshall/myquran/internal/cli"
)

func main() {
	root := cli.NewRootCmd(cli.Options{})
	if err := root.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
