package main

import (
	"fmt"
	"os"

	"github.com/zlovtnik/graphqlScala-sub003/cmd/ssf/cli"
)

// Overridden via -ldflags at release time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := cli.Execute(version, commit, date); err != nil {
		fmt.Fprintln(os.Stderr, "ssf:", err)
		os.Exit(1)
	}
}
