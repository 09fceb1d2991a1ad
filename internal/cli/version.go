package cli

import (
	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/catalogue/pkg/catalogue"
)

type versionInfo struct {
	Version string `json:"version" yaml:"version"`
	Module  string `json:"module" yaml:"module"`
}

func newVersionCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the catalogue version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.print(cmd, versionInfo{Version: catalogue.Version, Module: catalogue.ModulePath})
		},
	}
}
