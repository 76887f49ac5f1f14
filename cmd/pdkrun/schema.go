package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/reglet-dev/pdk/host"
	adapter "github.com/reglet-dev/pdk/infrastructure/wazero"
)

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Print the manifest JSON Schema",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		data, err := host.ManifestSchema()
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return err
	},
}

var importsCmd = &cobra.Command{
	Use:   "imports",
	Short: "List the host functions plugins may import",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		for _, name := range adapter.ImportNames() {
			fmt.Fprintln(cmd.OutOrStdout(), name)
		}
	},
}

func init() {
	rootCmd.AddCommand(schemaCmd, importsCmd)
}
