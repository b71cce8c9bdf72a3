package cli

import (
	"fmt"
	"net/url"

	"github.com/spf13/cobra"
)

func newIdentityCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "identity",
		Short: "Check-in and key progress commands",
	}

	cmd.AddCommand(newIdentitySubmitCmd())
	cmd.AddCommand(newIdentityGetCmd())
	cmd.AddCommand(newIdentityUpdateKeyCmd())
	cmd.AddCommand(newIdentityRedeemCmd())

	return cmd
}

func newIdentitySubmitCmd() *cobra.Command {
	var email, lastName string

	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Check in (registering on first visit)",
		RunE: func(cmd *cobra.Command, args []string) error {
			req := map[string]any{
				"fields": map[string]string{
					"email":    email,
					"lastname": lastName,
				},
			}
			var result SubmitResult

			if err := client.Post("/identity/submit", req, &result); err != nil {
				return err
			}

			output(cmd).Print(result)
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Email address (required)")
	cmd.Flags().StringVar(&lastName, "lastname", "", "Last name (required)")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("lastname")

	return cmd
}

func newIdentityGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <email>",
		Short: "Show a record and its key progress",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result RecordResult

			if err := client.Get("/identity/"+url.PathEscape(args[0]), &result); err != nil {
				return err
			}

			output(cmd).Print(result)
			return nil
		},
	}
}

func newIdentityUpdateKeyCmd() *cobra.Command {
	var recordID, key, status string

	cmd := &cobra.Command{
		Use:   "update-key",
		Short: "Mark a key as scanned or not scanned",
		RunE: func(cmd *cobra.Command, args []string) error {
			req := map[string]string{
				"recordId": recordID,
				"keyField": key,
				"status":   status,
			}
			var result UpdateKeyResult

			if err := client.Post("/identity/update-key", req, &result); err != nil {
				return err
			}

			output(cmd).Print(result)
			return nil
		},
	}

	cmd.Flags().StringVar(&recordID, "record", "", "Record ID (required)")
	cmd.Flags().StringVar(&key, "key", "", "Key field: key1, key2, key3 or key4 (required)")
	cmd.Flags().StringVar(&status, "status", "scanned", "Key status: scanned or not_scanned")
	_ = cmd.MarkFlagRequired("record")
	_ = cmd.MarkFlagRequired("key")

	return cmd
}

func newIdentityRedeemCmd() *cobra.Command {
	var email string

	cmd := &cobra.Command{
		Use:   "redeem",
		Short: "Issue (or show) the redeem code",
		RunE: func(cmd *cobra.Command, args []string) error {
			req := map[string]string{"email": email}
			var result RedeemResult

			if err := client.Post("/identity/redeem", req, &result); err != nil {
				return fmt.Errorf("redeem failed: %w", err)
			}

			output(cmd).Print(result)
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Email address (required)")
	_ = cmd.MarkFlagRequired("email")

	return cmd
}
