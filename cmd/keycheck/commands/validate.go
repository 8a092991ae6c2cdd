package commands

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	slogctx "github.com/veqryn/slog-context"

	"github.com/pulsesparkai/SparkOrchestra-sub001/internal/application"
	"github.com/pulsesparkai/SparkOrchestra-sub001/internal/domain/model"
)

func newValidateCmd(v *viper.Viper) *cobra.Command {
	var (
		provider string
		verbose  bool
	)

	cmd := &cobra.Command{
		Use:   "validate [key|-]",
		Short: "Validate an API key with a single provider request",
		Long: `Validate checks the key format and, when it passes, sends one request to the
provider. With no argument or "-" the key is read from the first line of stdin.

Exit status is 0 for a valid key, 1 for an invalid key and 2 when the
provider could not be reached.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			candidate, err := readCandidate(args, cmd.InOrStdin())
			if err != nil {
				return err
			}

			registry, err := newRegistry(v)
			if err != nil {
				return err
			}

			handler := slog.DiscardHandler
			if verbose {
				handler = slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: slog.LevelDebug})
			}
			ctx := slogctx.NewCtx(cmd.Context(), slog.New(handler))

			validator := application.NewCredentialValidationService(registry)
			return validate(ctx, cmd.OutOrStdout(), validator, model.Provider(strings.ToLower(provider)), candidate)
		},
	}

	cmd.Flags().StringVarP(&provider, "provider", "p", string(model.ProviderAnthropic), "provider the key belongs to")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "log request details to stderr")
	return cmd
}

func validate(ctx context.Context, out io.Writer, validator *application.CredentialValidationService, provider model.Provider, candidate string) error {
	verdict, err := validator.ValidateFor(ctx, provider, candidate)
	if err != nil {
		var infraErr *model.InfrastructureError
		if errors.As(err, &infraErr) {
			fmt.Fprintf(out, "error: %v\n", err)
			return exitCodeError{code: exitInfra}
		}
		return err
	}

	if verdict.Valid {
		fmt.Fprintf(out, "valid (%s, key %s)\n", provider, model.MaskKey(candidate))
		return nil
	}

	fmt.Fprintf(out, "invalid: %s (%s)\n", verdict.Reason, verdict.Outcome)
	return exitCodeError{code: exitInvalid}
}

// readCandidate returns the key from args, or the first stdin line when the
// argument is absent or "-".
func readCandidate(args []string, in io.Reader) (string, error) {
	if len(args) == 1 && args[0] != "-" {
		return args[0], nil
	}

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read key from stdin: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}
