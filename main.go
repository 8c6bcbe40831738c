package main

import (
	"os"

	"github.com/attune-labs/conversation-pipeline/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
