package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	root := &cobra.Command{
		Use:          "careboard",
		Short:        "Multi-agent healthcare conversation orchestrator",
		Version:      version,
		SilenceUsage: true,
	}
	root.AddCommand(newServeCommand())
	root.AddCommand(newMCPCommand())
	root.AddCommand(newDoctorCommand())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
