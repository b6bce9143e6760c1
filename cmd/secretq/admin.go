package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	goSecretQ "github.com/MrEthical07/goSecretQ"
	"github.com/MrEthical07/goSecretQ/internal/appconfig"
)

func newSessionCmd(load configLoader) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Open authentication sessions for testing a deployment",
	}

	var (
		realm string
		notes []string
	)
	create := &cobra.Command{
		Use:   "create <user>",
		Short: "Create an authentication session and print its id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load(cmd)
			if err != nil {
				return err
			}
			parsed, err := parseNotes(notes)
			if err != nil {
				return err
			}

			b, err := openBackend(cmd.Context(), cfg, newLogger(cmd, false))
			if err != nil {
				return err
			}
			defer b.Close()

			sess, err := b.sessions.Create(cmd.Context(), args[0], realm, parsed)
			if err != nil {
				return err
			}
			b.log.Debug("session created", "user", args[0], "realm", realm)
			fmt.Fprintln(cmd.OutOrStdout(), sess.SessionID)
			return nil
		},
	}
	create.Flags().StringVar(&realm, "realm", "master", "realm the session belongs to")
	create.Flags().StringArrayVar(&notes, "note", nil, "client note name=value (repeatable)")
	cmd.AddCommand(create)

	return cmd
}

func parseNotes(raw []string) (map[string]string, error) {
	out := make(map[string]string, len(raw))
	for _, kv := range raw {
		name, value, ok := strings.Cut(kv, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid note %q, want name=value", kv)
		}
		out[name] = value
	}
	return out, nil
}

func newReportCmd(load configLoader) *cobra.Command {
	return &cobra.Command{
		Use:   "report",
		Short: "Print the effective security posture and config warnings",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withEngine(cmd, load, func(e *goSecretQ.Engine, _ *backend) error {
				r := e.SecurityReport()
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "answer strategy:      %s\n", r.AnswerStrategy)
				fmt.Fprintf(out, "marker signed:        %t\n", r.MarkerSigned)
				fmt.Fprintf(out, "marker secure cookie: %t\n", r.MarkerSecureCookie)
				fmt.Fprintf(out, "marker max age:       %s\n", r.MarkerDefaultMaxAge)
				fmt.Fprintf(out, "marker skips step:    %t\n", r.MarkerSkipsChallenge)
				fmt.Fprintf(out, "custom questions:     %t\n", r.CustomQuestions)
				fmt.Fprintf(out, "device binding:       %t\n", r.DeviceBindingWired)
				fmt.Fprintf(out, "audit:                %t\n", r.AuditEnabled)
				fmt.Fprintf(out, "metrics:              %t\n", r.MetricsEnabled)
				for _, code := range r.LintWarningCodes {
					fmt.Fprintf(out, "warning: %s\n", code)
				}
				return nil
			})
		},
	}
}

func newConfigCmd(load configLoader) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect configuration",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration as YAML",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := load(cmd)
			if err != nil {
				return err
			}
			if cfg.Marker.SigningKey != "" {
				cfg.Marker.SigningKey = "<redacted>"
			}
			return appconfig.Write(cmd.OutOrStdout(), cfg)
		},
	})
	return cmd
}
