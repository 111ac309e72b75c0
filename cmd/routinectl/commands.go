package main

import (
	"fmt"
	"github.com/burenotti/go_routines_backend/internal/adapter/interchange"
	"github.com/burenotti/go_routines_backend/internal/app/identity"
	"github.com/burenotti/go_routines_backend/internal/config"
	"github.com/burenotti/go_routines_backend/internal/domain/profile"
	"github.com/burenotti/go_routines_backend/internal/domain/routine"
	"github.com/spf13/cobra"
	"os"
	"path/filepath"
	"strings"
	"time"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "routinectl",
		Short:         "Operator tool for the routine service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newConvertCmd(), newTokenCmd())
	return root
}

func newConvertCmd() *cobra.Command {
	var (
		to  string
		out string
	)

	cmd := &cobra.Command{
		Use:   "convert <file>",
		Short: "Convert a routine file between json and csv",
		Long: `Read a routine file the way the import endpoint does and write it
back in the requested format. Assigned athletes are not part of the output.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := interchange.ParseFormat(to)
			if err != nil {
				return err
			}

			content, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			doc, err := interchange.Import(filepath.Base(args[0]), content, interchange.Defaults{})
			if err != nil {
				return err
			}

			f, err := interchange.Export(&routine.Routine{
				Title:       doc.Title,
				Description: doc.Description,
				StartDate:   doc.StartDate,
				EndDate:     doc.EndDate,
				Exercises:   doc.Exercises,
			}, nil, format)
			if err != nil {
				return err
			}

			if out == "" {
				_, err = cmd.OutOrStdout().Write(f.Content)
				return err
			}
			if err := os.WriteFile(out, f.Content, 0o644); err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "wrote %d exercises to %s\n", len(doc.Exercises), out)
			return nil
		},
	}

	cmd.Flags().StringVar(&to, "to", "json", "output format, json or csv")
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file, stdout when empty")
	return cmd
}

func newTokenCmd() *cobra.Command {
	var (
		configPath string
		userID     string
		role       string
		ttl        time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue an access token signed with the configured secret",
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := profile.ParseRole(role)
			if err != nil {
				return err
			}
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}

			authorizer := &identity.Authorizer{
				Secret:         cfg.JWT.Secret,
				AccessTokenTTL: cfg.JWT.AccessTokenTTL,
			}
			if ttl > 0 {
				authorizer.AccessTokenTTL = ttl
			}

			token, err := authorizer.IssueAccessToken(strings.TrimSpace(userID), r)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "config/config.yaml", "path to config file")
	cmd.Flags().StringVar(&userID, "user", "", "subject of the token")
	cmd.Flags().StringVar(&role, "role", string(profile.RoleTrainer), "athlete, trainer or administrator")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "token lifetime, the configured one when zero")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}
