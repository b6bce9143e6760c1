package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	goSecretQ "github.com/MrEthical07/goSecretQ"
)

// withEngine opens the configured backend, builds an engine, and runs fn.
func withEngine(cmd *cobra.Command, load configLoader, fn func(*goSecretQ.Engine, *backend) error) error {
	cfg, err := load(cmd)
	if err != nil {
		return err
	}
	b, err := openBackend(cmd.Context(), cfg, newLogger(cmd, false))
	if err != nil {
		return err
	}
	defer b.Close()

	engine, err := b.engine(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer engine.Close()

	return fn(engine, b)
}

func newCredentialCmd(load configLoader) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "credential",
		Aliases: []string{"cred"},
		Short:   "Manage stored secret question credentials",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "add <user> <question> <answer>",
		Short: "Enroll a secret question for a user",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd, load, func(e *goSecretQ.Engine, b *backend) error {
				rec, err := e.CreateCredential(cmd.Context(), args[0], args[1], args[2])
				if err != nil {
					return err
				}
				b.log.Debug("credential enrolled", "user", args[0], "id", rec.ID)
				fmt.Fprintln(cmd.OutOrStdout(), rec.ID)
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "list <user>",
		Short: "List a user's secret questions, default first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd, load, func(e *goSecretQ.Engine, _ *backend) error {
				recs, err := e.Credentials(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return printCredentials(cmd.OutOrStdout(), e, recs)
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "delete <user> <credential-id>",
		Short: "Remove one of a user's secret questions",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd, load, func(e *goSecretQ.Engine, b *backend) error {
				deleted, err := e.DeleteCredential(cmd.Context(), args[0], args[1])
				if err != nil {
					return err
				}
				if !deleted {
					return fmt.Errorf("credential %s not found for %s", args[1], args[0])
				}
				b.log.Debug("credential deleted", "user", args[0], "id", args[1])
				fmt.Fprintln(cmd.OutOrStdout(), "deleted")
				return nil
			})
		},
	})

	var credentialID string
	verify := &cobra.Command{
		Use:   "verify <user> <answer>",
		Short: "Check an answer against the user's secret question",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd, load, func(e *goSecretQ.Engine, b *backend) error {
				ok, err := e.Validate(cmd.Context(), args[0], credentialID, args[1])
				if err != nil {
					return err
				}
				if !ok {
					b.log.Warn("answer rejected", "user", args[0])
					return goSecretQ.ErrInvalidAnswer
				}
				fmt.Fprintln(cmd.OutOrStdout(), "ok")
				return nil
			})
		},
	}
	verify.Flags().StringVar(&credentialID, "id", "", "credential id (default: the user's default credential)")
	cmd.AddCommand(verify)

	return cmd
}

func printCredentials(out io.Writer, e *goSecretQ.Engine, recs []goSecretQ.CredentialRecord) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tCREATED\tQUESTION")
	for _, rec := range recs {
		q, err := e.Question(rec)
		if err != nil {
			q = "<malformed>"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", rec.ID, rec.CreatedAt.UTC().Format(time.RFC3339), q)
	}
	return tw.Flush()
}
