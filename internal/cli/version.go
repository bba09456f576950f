package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/sigevent/internal/monitor"
)

// Version and Tag are set at build time:
//
//	go build -ldflags "-X github.com/roach88/sigevent/internal/cli.Version=1.2.0"
var (
	Version = "0.1.0-dev"
	Tag     = "unknown"
)

// Notice is printed after the version line.
const Notice = `  This program is distributed in the hope that it will be useful,
  but WITHOUT ANY WARRANTY; without even the implied warranty of
  MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.`

// VersionInfo is the payload of the version command.
type VersionInfo struct {
	Version   string `json:"version"`
	Tag       string `json:"tag"`
	Attribute string `json:"attribute"`
	Notice    string `json:"notice"`
}

// NewVersionCommand creates the version command.
func NewVersionCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "version",
		Short:         "Print version and license notice",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := NewOutputFormatter(rootOpts, cmd.OutOrStdout(), cmd.ErrOrStderr())
			if rootOpts.Format == "json" {
				return f.Success(VersionInfo{
					Version:   Version,
					Tag:       Tag,
					Attribute: monitor.AttributeName,
					Notice:    Notice,
				})
			}
			return f.Success(fmt.Sprintf("sigevent version %s (%s)\n\n%s", Version, Tag, Notice))
		},
	}
}
