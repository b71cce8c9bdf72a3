package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

func newSessionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "AR game session commands",
		Long: `Game session commands. Commands other than create act on the session
given by --id, or on the last session created from this machine.`,
	}

	cmd.AddCommand(newSessionCreateCmd())
	cmd.AddCommand(newSessionValidateCmd())
	cmd.AddCommand(newSessionCollectCmd())
	cmd.AddCommand(newSessionInteractCmd())
	cmd.AddCommand(newSessionProgressCmd())

	return cmd
}

// resolveSession returns the explicit ID or the saved one
func resolveSession(id string) (string, error) {
	if id != "" {
		return id, nil
	}
	saved, err := cfg.LoadSession()
	if err != nil {
		return "", fmt.Errorf("failed to read session file: %w", err)
	}
	if saved == "" {
		return "", errors.New("no session: pass --id or run 'session create' first")
	}
	return saved, nil
}

func newSessionCreateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "create",
		Short: "Start a new game session",
		RunE: func(cmd *cobra.Command, args []string) error {
			var result SessionResult

			if err := client.Post("/session/create", nil, &result); err != nil {
				return err
			}

			// Save session
			if err := cfg.SaveSession(result.SessionID); err != nil {
				return fmt.Errorf("failed to save session: %w", err)
			}

			output(cmd).Print(result)
			return nil
		},
	}
}

func newSessionValidateCmd() *cobra.Command {
	var id string

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check that a session exists",
		RunE: func(cmd *cobra.Command, args []string) error {
			sessionID, err := resolveSession(id)
			if err != nil {
				return err
			}

			var result ValidateResult
			if err := client.Get("/session/"+sessionID+"/validate", &result); err != nil {
				return err
			}

			output(cmd).Print(result)
			return nil
		},
	}

	cmd.Flags().StringVar(&id, "id", "", "Session ID (default: last created)")
	return cmd
}

func newSessionCollectCmd() *cobra.Command {
	var id, key, targetType, method string

	cmd := &cobra.Command{
		Use:   "collect",
		Short: "Collect a key",
		RunE: func(cmd *cobra.Command, args []string) error {
			sessionID, err := resolveSession(id)
			if err != nil {
				return err
			}

			req := map[string]string{
				"keyName":    key,
				"targetType": targetType,
				"method":     method,
			}
			var result CollectResult

			if err := client.Post("/session/"+sessionID+"/collect-key", req, &result); err != nil {
				return err
			}

			output(cmd).Print(result)
			return nil
		},
	}

	cmd.Flags().StringVar(&id, "id", "", "Session ID (default: last created)")
	cmd.Flags().StringVar(&key, "key", "", "Key name (required)")
	cmd.Flags().StringVar(&targetType, "target", "", "Target type the key was found on")
	cmd.Flags().StringVar(&method, "method", "", "Collection method")
	_ = cmd.MarkFlagRequired("key")

	return cmd
}

func newSessionInteractCmd() *cobra.Command {
	var id, interactionType, data string

	cmd := &cobra.Command{
		Use:   "interact",
		Short: "Record an interaction",
		RunE: func(cmd *cobra.Command, args []string) error {
			sessionID, err := resolveSession(id)
			if err != nil {
				return err
			}

			req := map[string]any{"type": interactionType}
			if data != "" {
				var payload map[string]any
				if err := json.Unmarshal([]byte(data), &payload); err != nil {
					return fmt.Errorf("--data must be a JSON object: %w", err)
				}
				req["data"] = payload
			}
			var result InteractionResult

			if err := client.Post("/session/"+sessionID+"/interaction", req, &result); err != nil {
				return err
			}

			output(cmd).Print(result)
			return nil
		},
	}

	cmd.Flags().StringVar(&id, "id", "", "Session ID (default: last created)")
	cmd.Flags().StringVar(&interactionType, "type", "", "Interaction type (required)")
	cmd.Flags().StringVar(&data, "data", "", "Interaction data as a JSON object")
	_ = cmd.MarkFlagRequired("type")

	return cmd
}

func newSessionProgressCmd() *cobra.Command {
	var id string

	cmd := &cobra.Command{
		Use:   "progress",
		Short: "Show session progress",
		RunE: func(cmd *cobra.Command, args []string) error {
			sessionID, err := resolveSession(id)
			if err != nil {
				return err
			}

			var result ProgressResult
			if err := client.Get("/session/"+sessionID+"/progress", &result); err != nil {
				return err
			}

			output(cmd).Print(result)
			return nil
		},
	}

	cmd.Flags().StringVar(&id, "id", "", "Session ID (default: last created)")
	return cmd
}
