package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/flemzord/joingate/internal/config"
	"github.com/spf13/cobra"
)

// initAnswers holds what the wizard asks for.
type initAnswers struct {
	Token           string
	AdminID         string
	RequiredChannel string
	JoinURL         string
	Bind            string
	WebhookPath     string
	LogFormat       string
	UseEnvToken     bool
}

func initCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Interactively create a configuration file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out, _ := cmd.Flags().GetString("output")
			force, _ := cmd.Flags().GetBool("force")

			if !force {
				if _, err := os.Stat(out); err == nil {
					return fmt.Errorf("%s already exists (use --force to overwrite)", out)
				}
			}

			answers := initAnswers{
				Bind:        "127.0.0.1:8080",
				WebhookPath: "/webhook",
				LogFormat:   "text",
				UseEnvToken: true,
			}
			if err := newInitForm(&answers).RunWithContext(cmd.Context()); err != nil {
				if errors.Is(err, huh.ErrUserAborted) {
					return errors.New("init aborted")
				}
				return err
			}

			if err := writeConfigFile(out, answers.config(), force); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\nNext: joingate config check %s\n", out, out)
			return nil
		},
	}
	cmd.Flags().StringP("output", "o", config.FileName, "Where to write the configuration")
	cmd.Flags().Bool("force", false, "Overwrite an existing file")
	return cmd
}

func newInitForm(a *initAnswers) *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Read the bot token from $BOT_TOKEN at runtime?").
				Description("Keeps the secret out of the file.").
				Value(&a.UseEnvToken),
			huh.NewInput().
				Title("Bot token").
				Description("Only used when not reading from $BOT_TOKEN.").
				EchoMode(huh.EchoModePassword).
				Value(&a.Token).
				Validate(func(s string) error {
					if a.UseEnvToken || s == "" {
						return nil
					}
					return validateToken(s)
				}),
		).Title("Credentials"),
		huh.NewGroup(
			huh.NewInput().
				Title("Admin user id").
				Value(&a.AdminID).
				Validate(required("admin id")),
			huh.NewInput().
				Title("Required channel").
				Description(`"@username" or a numeric id such as -1001234567890.`).
				Value(&a.RequiredChannel).
				Validate(required("channel")),
			huh.NewInput().
				Title("Join URL (optional)").
				Description("Invite link for private channels.").
				Value(&a.JoinURL),
		).Title("Channel"),
		huh.NewGroup(
			huh.NewInput().
				Title("Listen address").
				Value(&a.Bind).
				Validate(required("listen address")),
			huh.NewInput().
				Title("Webhook path").
				Value(&a.WebhookPath).
				Validate(func(s string) error {
					if !strings.HasPrefix(s, "/") {
						return errors.New("must start with /")
					}
					return nil
				}),
			huh.NewSelect[string]().
				Title("Log format").
				Options(huh.NewOptions("text", "json")...).
				Value(&a.LogFormat),
		).Title("Server"),
	)
}

func required(name string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", name)
		}
		return nil
	}
}

func validateToken(s string) error {
	if !config.ValidToken(s) {
		return errors.New("expected <bot_id>:<hash>")
	}
	return nil
}

// config turns the answers into a configuration. A token read from the
// environment is written as a ${BOT_TOKEN} reference.
func (a initAnswers) config() *config.Config {
	token := strings.TrimSpace(a.Token)
	if a.UseEnvToken || token == "" {
		token = "${" + config.EnvBotToken + "}"
	}

	cfg := &config.Config{
		Version: config.CurrentVersion,
		Telegram: config.TelegramConfig{
			Token:           token,
			AdminID:         strings.TrimSpace(a.AdminID),
			RequiredChannel: strings.TrimSpace(a.RequiredChannel),
			JoinURL:         strings.TrimSpace(a.JoinURL),
		},
		Gateway: config.GatewayConfig{
			Bind:        a.Bind,
			WebhookPath: a.WebhookPath,
		},
		Log: config.LogConfig{Format: a.LogFormat},
	}
	cfg.ApplyDefaults()
	return cfg
}

// writeConfigFile renders cfg to path with owner-only permissions.
func writeConfigFile(path string, cfg *config.Config, force bool) error {
	out, err := config.Marshal(cfg)
	if err != nil {
		return err
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("creating %s: %w", dir, err)
		}
	}

	flags := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	if !force {
		flags |= os.O_EXCL
	}
	f, err := os.OpenFile(path, flags, 0o600)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		}
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if _, err := f.Write(out); err != nil {
		_ = f.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return f.Close()
}
