package cli

import (
	"github.com/spf13/cobra"

	"github.com/matzehuels/bandmap/pkg/layout"
)

// completionCommand prints a shell completion script for bandmap.
func (c *CLI) completionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Print a shell completion script",
		Long: `Print a shell completion script for bandmap to stdout.

The script completes subcommands, flags and the values of --strategy.

Try it in the current shell:
  $ source <(bandmap completion bash)        # bash
  $ source <(bandmap completion zsh)         # zsh
  $ bandmap completion fish | source         # fish
  PS> bandmap completion powershell | Out-String | Invoke-Expression

Keep it across sessions by saving the script where your shell looks for
completions, for example:
  $ bandmap completion bash > ~/.local/share/bash-completion/completions/bandmap
  $ bandmap completion zsh > "${fpath[1]}/_bandmap"
  $ bandmap completion fish > ~/.config/fish/completions/bandmap.fish
`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletionV2(out, true)
			case "zsh":
				return cmd.Root().GenZshCompletion(out)
			case "fish":
				return cmd.Root().GenFishCompletion(out, true)
			default:
				return cmd.Root().GenPowerShellCompletionWithDesc(out)
			}
		},
	}
	return cmd
}

// completeStrategy offers the layout strategy names for --strategy.
func completeStrategy(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
	names := make([]string, len(layout.Strategies))
	for i, s := range layout.Strategies {
		names[i] = string(s)
	}
	return names, cobra.ShellCompDirectiveNoFileComp
}
