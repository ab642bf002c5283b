package main

import (
	"os"

	"github.com/tanpawarit/gram-sahayak/cmd"
	_ "github.com/tanpawarit/gram-sahayak/pkg/logger/autoload"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
