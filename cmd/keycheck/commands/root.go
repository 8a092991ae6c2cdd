// Package commands implements the keycheck operator CLI.
package commands

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/pulsesparkai/SparkOrchestra-sub001/internal/adapter/driven/providers"
	"github.com/pulsesparkai/SparkOrchestra-sub001/internal/application"
	"github.com/pulsesparkai/SparkOrchestra-sub001/internal/config"
)

// Exit codes reported by validate.
const (
	exitValid   = 0
	exitInvalid = 1
	exitInfra   = 2
)

// Execute runs the root command and exits with its status.
func Execute() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	v := viper.New()
	cmd := newRootCmd(v)
	cmd.SetArgs(args)
	cmd.SetIn(stdin)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	if err := cmd.Execute(); err != nil {
		var ec exitCodeError
		if errors.As(err, &ec) {
			return ec.code
		}
		fmt.Fprintln(stderr, err)
		return exitInvalid
	}
	return exitValid
}

// newRootCmd builds a fresh command tree bound to v.
func newRootCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keycheck",
		Short: "Check provider API keys and attribution decisions",
		Long: `keycheck validates a provider API key with one low-cost request and
evaluates the execution attribution policy, without a running server.

Settings may also be supplied as KEYGATE_* environment variables.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	v.SetEnvPrefix("KEYGATE")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	bindProviderFlags(v, cmd.PersistentFlags())

	cmd.AddCommand(newValidateCmd(v), newDecideCmd(), newProvidersCmd(v))
	return cmd
}

// bindProviderFlags registers the provider settings on fs and binds them to v,
// so a flag wins over the matching KEYGATE_* variable. Defaults come from
// config.Default, the same table the server starts from.
func bindProviderFlags(v *viper.Viper, fs *pflag.FlagSet) {
	d := config.Default()
	fs.Duration("probe-timeout", d.ProbeTimeout, "timeout for the remote key check")
	fs.String("anthropic-base-url", d.AnthropicBaseURL, "Anthropic API base URL (defaults to api.anthropic.com)")
	fs.String("anthropic-model", d.AnthropicModel, "model used for the Anthropic key check")
	fs.Int("anthropic-max-tokens", d.AnthropicMaxTokens,
		fmt.Sprintf("output token budget for the Anthropic key check (1-%d)", config.MaxAnthropicMaxTokens))
	fs.String("github-base-url", d.GitHubBaseURL, "GitHub API base URL (defaults to api.github.com)")
	_ = v.BindPFlags(fs)
}

// newRegistry wires both providers the same way the server does.
func newRegistry(v *viper.Viper) (*application.ProbeRegistry, error) {
	cfg := config.Default()
	cfg.ProbeTimeout = v.GetDuration("probe-timeout")
	cfg.AnthropicBaseURL = v.GetString("anthropic-base-url")
	cfg.AnthropicModel = v.GetString("anthropic-model")
	cfg.AnthropicMaxTokens = v.GetInt("anthropic-max-tokens")
	cfg.GitHubBaseURL = v.GetString("github-base-url")
	return providers.NewRegistry(cfg)
}

// exitCodeError carries a non-zero exit status for an outcome that was
// already reported to the user.
type exitCodeError struct {
	code int
}

func (e exitCodeError) Error() string {
	return fmt.Sprintf("exit status %d", e.code)
}
