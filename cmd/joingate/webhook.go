package main

import (
	"fmt"
	"time"

	"github.com/flemzord/joingate/internal/telegram"
	"github.com/flemzord/joingate/pkg/app"
	"github.com/spf13/cobra"
)

// allowedUpdates are the only update kinds the dispatcher acts on.
var allowedUpdates = []string{"message", "callback_query"}

func webhookCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "webhook",
		Short: "Manage the bot's webhook registration",
	}
	cmd.PersistentFlags().StringP("config", "c", "", "Path to configuration file")
	cmd.AddCommand(webhookSetCmd(), webhookDeleteCmd(), webhookInfoCmd())
	return cmd
}

func webhookClient(cmd *cobra.Command) (*telegram.Client, string, error) {
	cfgPath, _ := cmd.Flags().GetString("config")
	cfg, _, err := app.LoadConfig(cfgPath)
	if err != nil {
		return nil, "", err
	}
	return app.NewClient(cfg), cfg.Telegram.WebhookSecret, nil
}

func webhookSetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "set <url>",
		Short: "Point Telegram at the given public webhook URL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, secret, err := webhookClient(cmd)
			if err != nil {
				return err
			}
			drop, _ := cmd.Flags().GetBool("drop-pending")
			maxConns, _ := cmd.Flags().GetInt("max-connections")

			err = client.SetWebhook(cmd.Context(), telegram.SetWebhookRequest{
				URL:                args[0],
				AllowedUpdates:     allowedUpdates,
				MaxConnections:     maxConns,
				DropPendingUpdates: drop,
				SecretToken:        secret,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Webhook set to %s\n", args[0])
			return nil
		},
	}
	cmd.Flags().Bool("drop-pending", false, "Drop updates queued while no webhook was set")
	cmd.Flags().Int("max-connections", 0, "Maximum concurrent webhook connections (1-100, 0 for Telegram's default)")
	return cmd
}

func webhookDeleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Remove the webhook registration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, _, err := webhookClient(cmd)
			if err != nil {
				return err
			}
			drop, _ := cmd.Flags().GetBool("drop-pending")
			if err := client.DeleteWebhook(cmd.Context(), telegram.DeleteWebhookRequest{DropPendingUpdates: drop}); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Webhook deleted")
			return nil
		},
	}
	cmd.Flags().Bool("drop-pending", false, "Drop updates still queued")
	return cmd
}

func webhookInfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Show the bot identity and current webhook registration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, _, err := webhookClient(cmd)
			if err != nil {
				return err
			}
			me, err := client.GetMe(cmd.Context())
			if err != nil {
				return err
			}
			info, err := client.GetWebhookInfo(cmd.Context())
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "Bot:              @%s (id %d)\n", me.Username, me.ID)
			if info.URL == "" {
				fmt.Fprintln(w, "Webhook:          not set")
			} else {
				fmt.Fprintf(w, "Webhook:          %s\n", info.URL)
			}
			fmt.Fprintf(w, "Pending updates:  %d\n", info.PendingUpdateCount)
			if info.LastErrorMessage != "" {
				at := time.Unix(int64(info.LastErrorDate), 0).UTC().Format(time.RFC3339)
				fmt.Fprintf(w, "Last error:       %s (%s)\n", info.LastErrorMessage, at)
			}
			return nil
		},
	}
}
