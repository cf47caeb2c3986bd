package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/zhouruiyy/framework-auto-builder/pkg/toolchain"
)

// newCheckCmd creates the check command: verify the build environment.
func newCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Verify the toolchain and list platform targets",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := loggerFromContext(ctx)

			tc := toolchain.NewXcodebuild(logger)
			if err := tc.Check(ctx); err != nil {
				fmt.Fprintf(os.Stdout, "%s %s\n",
					styleError.Render(iconError),
					"toolchain unavailable")
				return err
			}
			fmt.Fprintf(os.Stdout, "%s %s\n",
				styleSuccess.Render(iconSuccess),
				"toolchain available")

			fmt.Fprintf(os.Stdout, "\n%s\n", styleTitle.Render("platform targets"))
			for _, t := range toolchain.DefaultTargets() {
				fmt.Fprintf(os.Stdout, "  %s %s %s\n",
					styleDim.Render(iconInfo),
					styleValue.Render(t.ID),
					styleDim.Render(fmt.Sprintf("sdk=%s min-os=%s archs=%s",
						t.SDK, t.MinOSVersion, strings.Join(t.Archs, ","))))
			}
			return nil
		},
	}
}
