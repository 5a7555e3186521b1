package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"google.golang.org/api/idtoken"

	"github.com/capiscio/capiscio-iap/pkg/iap"
)

var tokenDecode bool

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Print an ID token for the target audience",
	Long: `Signs an assertion and exchanges it for an ID token without calling any
protected resource. The token is printed on stdout.

With --decode the token's payload is printed instead. The signature is not
verified.`,
	Example: `  # Use the token with curl
  curl -H "Authorization: Bearer $(capiscio-iap token --audience 1234.apps.googleusercontent.com)" https://example.com/protected

  # Inspect the claims
  capiscio-iap token --audience 1234.apps.googleusercontent.com --decode`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := requireAudience(); err != nil {
			return err
		}

		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}

		cred, err := newClient().IDToken(ctx, iap.Request{
			TargetAudience:  targetAudience,
			CredentialsFile: credentialsFile,
		})
		if err != nil {
			return err
		}

		if tokenDecode {
			return describeIDToken(cmd.OutOrStdout(), string(cred), time.Now())
		}
		fmt.Fprintln(cmd.OutOrStdout(), cred)
		return nil
	},
}

// describeIDToken prints the payload of an ID token followed by a
// human-readable expiry.
func describeIDToken(w io.Writer, token string, now time.Time) error {
	payload, err := idtoken.ParsePayload(token)
	if err != nil {
		return fmt.Errorf("failed to decode ID token: %w", err)
	}

	out, err := json.MarshalIndent(payload.Claims, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(w, string(out))

	if payload.Expires != 0 {
		exp := time.Unix(payload.Expires, 0)
		fmt.Fprintf(w, "expires %s (%s)\n", humanize.RelTime(exp, now, "ago", "from now"), exp.UTC().Format(time.RFC3339))
	}
	return nil
}

func init() {
	rootCmd.AddCommand(tokenCmd)
	tokenCmd.Flags().BoolVar(&tokenDecode, "decode", false, "Print the decoded token payload instead of the token")
}
