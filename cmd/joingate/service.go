package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/flemzord/joingate/pkg/app"
	"github.com/kardianos/service"
	"github.com/spf13/cobra"
)

const serviceName = "joingate"

// program adapts app.RunContext to service.Interface. Start must return
// promptly, so the application runs in its own goroutine.
type program struct {
	params app.RunParams
	cancel context.CancelFunc
	done   chan error
}

func (p *program) Start(service.Service) error {
	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.done = make(chan error, 1)
	go func() {
		p.done <- app.RunContext(ctx, p.params)
	}()
	return nil
}

func (p *program) Stop(service.Service) error {
	if p.cancel == nil {
		return nil
	}
	p.cancel()
	return <-p.done
}

// serviceConfig describes the installed unit. The config path is made
// absolute because services do not start in the caller's directory.
func serviceConfig(cfgPath string) (*service.Config, error) {
	args := []string{"service", "run"}
	if cfgPath != "" {
		abs, err := filepath.Abs(cfgPath)
		if err != nil {
			return nil, fmt.Errorf("resolving %s: %w", cfgPath, err)
		}
		args = append(args, "--config", abs)
	}

	wd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("resolving working directory: %w", err)
	}

	return &service.Config{
		Name:             serviceName,
		DisplayName:      "JoinGate",
		Description:      "Telegram channel membership gate (webhook server).",
		Arguments:        args,
		WorkingDirectory: wd,
		Dependencies:     []string{"After=network-online.target", "Wants=network-online.target"},
	}, nil
}

func newService(cmd *cobra.Command) (service.Service, error) {
	cfgPath, _ := cmd.Flags().GetString("config")
	sc, err := serviceConfig(cfgPath)
	if err != nil {
		return nil, err
	}
	return service.New(&program{params: runParams(cfgPath)}, sc)
}

func serviceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "service",
		Short: "Run joingate as an OS service",
	}
	cmd.PersistentFlags().StringP("config", "c", "", "Path to configuration file")

	for _, action := range []string{"install", "uninstall", "start", "stop", "restart"} {
		cmd.AddCommand(&cobra.Command{
			Use:   action,
			Short: fmt.Sprintf("%s the %s service", action, serviceName),
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				s, err := newService(cmd)
				if err != nil {
					return err
				}
				if err := service.Control(s, action); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Service %s: %s done\n", serviceName, action)
				return nil
			},
		})
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Report whether the service is running",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := newService(cmd)
			if err != nil {
				return err
			}
			st, err := s.Status()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Service %s: %s\n", serviceName, statusName(st))
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:    "run",
		Short:  "Run under the service manager (used by the installed unit)",
		Args:   cobra.NoArgs,
		Hidden: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := newService(cmd)
			if err != nil {
				return err
			}
			return s.Run()
		},
	})

	return cmd
}

func statusName(st service.Status) string {
	switch st {
	case service.StatusRunning:
		return "running"
	case service.StatusStopped:
		return "stopped"
	default:
		return "unknown"
	}
}
