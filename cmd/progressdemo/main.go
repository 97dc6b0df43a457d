// Command progressdemo tracks a simulated level load until it completes.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/GoCodeAlone/stepper/cmd/progressdemo/cmd"
)

func main() {
	rootCmd := cmd.NewRootCommand()
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}
