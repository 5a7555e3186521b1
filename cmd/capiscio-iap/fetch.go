package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/capiscio/capiscio-iap/pkg/iap"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch <uri>",
	Short: "GET a protected resource and print its body",
	Long: `Runs the whole flow: load the key, sign an assertion, exchange it for an
ID token and GET <uri> with "Authorization: Bearer <id_token>".

The response body is written to stdout unchanged.`,
	Example: `  capiscio-iap fetch https://example.com/protected \
    --audience 1234.apps.googleusercontent.com \
    --credentials ./key.json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireAudience(); err != nil {
			return err
		}
		return runFetch(cmd.Context(), cmd.OutOrStdout(), newClient(), iap.Request{
			TargetAudience:  targetAudience,
			CredentialsFile: credentialsFile,
			URI:             args[0],
		})
	},
}

func runFetch(ctx context.Context, out io.Writer, client *iap.Client, req iap.Request) error {
	if ctx == nil {
		ctx = context.Background()
	}

	body, err := client.InvokeRequest(ctx, req)
	if err != nil {
		if iap.IsAuthError(err) {
			return fmt.Errorf("could not obtain an ID token: %w", err)
		}
		return err
	}

	_, err = io.WriteString(out, body)
	return err
}

func init() {
	rootCmd.AddCommand(fetchCmd)
}
