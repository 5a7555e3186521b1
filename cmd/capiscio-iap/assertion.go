package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/capiscio/capiscio-iap/pkg/iap"
)

var assertionCmd = &cobra.Command{
	Use:   "assertion",
	Short: "Print the signed assertion that would be sent to the token endpoint",
	Long: `Loads the key and prints the RS256-signed JWT-bearer assertion for the
target audience. No network call is made. Useful for debugging rejected
exchanges.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := requireAudience(); err != nil {
			return err
		}

		assertion, err := newClient().Assertion(iap.Request{
			TargetAudience:  targetAudience,
			CredentialsFile: credentialsFile,
		})
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), assertion)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(assertionCmd)
}
