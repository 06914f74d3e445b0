package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/noah-isme/substitute-finder/internal/app"
	"github.com/noah-isme/substitute-finder/internal/dto"
	"github.com/noah-isme/substitute-finder/internal/models"
	"github.com/noah-isme/substitute-finder/pkg/config"
	"github.com/noah-isme/substitute-finder/pkg/database"
	"github.com/noah-isme/substitute-finder/pkg/logger"
	"github.com/noah-isme/substitute-finder/pkg/storage"
)

var readPasswordFunc = term.ReadPassword // mockable

type cli struct {
	cfg    *config.Config
	logger *zap.Logger
}

func newRootCmd() *cobra.Command {
	c := &cli{}
	root := &cobra.Command{
		Use:           "substitute-admin",
		Short:         "Operator tasks for the substitute finder store",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			l, err := logger.New(cfg)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			c.cfg, c.logger = cfg, l
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if c.logger != nil {
				_ = c.logger.Sync()
			}
		},
	}
	root.AddCommand(c.migrateCmd(), c.seedCmd(), c.createUserCmd(), c.setPasswordCmd(), c.exportCmd())
	return root
}

// withApp runs fn against a freshly wired application and closes it after.
func (c *cli) withApp(ctx context.Context, fn func(a *app.App) error) error {
	a, err := app.New(ctx, c.cfg, c.logger)
	if err != nil {
		return err
	}
	defer a.Close() //nolint:errcheck
	return fn(a)
}

func (c *cli) migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			version, err := database.Migrate(c.cfg.Database)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "schema at version %d (%s)\n", version, c.cfg.Database.Driver)
			return nil
		},
	}
}

func (c *cli) seedCmd() *cobra.Command {
	var password string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load the demo district unless an admin already exists",
		RunE: func(cmd *cobra.Command, args []string) error {
			if password == "" {
				password = c.cfg.Seed.AdminPassword
			}
			return c.withApp(cmd.Context(), func(a *app.App) error {
				res, err := a.Seed.Seed(cmd.Context(), password)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if !res.Seeded {
					fmt.Fprintln(out, "already seeded, nothing to do")
					return nil
				}
				fmt.Fprintf(out, "created users %s and %d requests\n", strings.Join(res.Usernames, ", "), res.Requests)
				if res.Password != "" {
					fmt.Fprintf(out, "generated password: %s\n", res.Password)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&password, "password", "", "password for every demo account (default SEED_ADMIN_PASSWORD, else generated)")
	return cmd
}

func (c *cli) createUserCmd() *cobra.Command {
	var req dto.CreateUserRequest
	var org string
	cmd := &cobra.Command{
		Use:   "create-user",
		Short: "Register a user; the password is prompted",
		RunE: func(cmd *cobra.Command, args []string) error {
			password, err := promptPassword(cmd)
			if err != nil {
				return err
			}
			req.Password = password
			if org != "" {
				req.OrganizationID = &org
			}
			return c.withApp(cmd.Context(), func(a *app.App) error {
				user, err := a.Users.Create(cmd.Context(), req)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "created %s (%s) id=%s\n", user.Username, user.Role, user.ID)
				return nil
			})
		},
	}
	f := cmd.Flags()
	f.StringVar(&req.Username, "username", "", "login name")
	f.StringVar(&req.Email, "email", "", "email address")
	f.StringVar(&req.FirstName, "first-name", "", "first name")
	f.StringVar(&req.LastName, "last-name", "", "last name")
	f.StringVar(&req.Role, "role", string(models.RoleSubstitute), "admin, org_manager or substitute")
	f.StringVar(&org, "organization", "", "organization id")
	for _, name := range []string{"username", "email", "first-name", "last-name"} {
		_ = cmd.MarkFlagRequired(name)
	}
	return cmd
}

func (c *cli) setPasswordCmd() *cobra.Command {
	var username string
	cmd := &cobra.Command{
		Use:   "set-password",
		Short: "Replace a user's password; the new password is prompted",
		RunE: func(cmd *cobra.Command, args []string) error {
			password, err := promptPassword(cmd)
			if err != nil {
				return err
			}
			return c.withApp(cmd.Context(), func(a *app.App) error {
				users, err := a.Users.List(cmd.Context(), models.UserFilter{})
				if err != nil {
					return err
				}
				for _, u := range users {
					if u.Username == username {
						if err := a.Users.SetPassword(cmd.Context(), u.ID, password); err != nil {
							return err
						}
						fmt.Fprintf(cmd.OutOrStdout(), "password updated for %s\n", username)
						return nil
					}
				}
				return fmt.Errorf("user %q not found", username)
			})
		},
	}
	cmd.Flags().StringVar(&username, "username", "", "login name")
	_ = cmd.MarkFlagRequired("username")
	return cmd
}

func (c *cli) exportCmd() *cobra.Command {
	var format, status, outDir string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write substitute requests to a CSV or PDF file",
		RunE: func(cmd *cobra.Command, args []string) error {
			var filter models.SubstituteRequestFilter
			if status != "" {
				s, err := models.ParseRequestStatus(status)
				if err != nil {
					return err
				}
				filter.Status = &s
			}
			if outDir == "" {
				outDir = filepath.Join(c.cfg.DataDir, "exports")
			}
			store, err := storage.NewLocalStorage(outDir)
			if err != nil {
				return err
			}
			return c.withApp(cmd.Context(), func(a *app.App) error {
				res, err := a.Export.ExportRequests(cmd.Context(), format, filter)
				if err != nil {
					return err
				}
				path, err := store.Save(res.Filename, res.Data)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "wrote %d requests to %s\n", res.Rows, path)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&format, "format", "csv", "csv or pdf")
	cmd.Flags().StringVar(&status, "status", "", "only requests in this status")
	cmd.Flags().StringVar(&outDir, "out", "", "output directory (default <DATA_DIR>/exports)")
	return cmd
}

func promptPassword(cmd *cobra.Command) (string, error) {
	fmt.Fprint(cmd.OutOrStdout(), "Enter password: ")
	pwd, err := readPasswordFunc(int(syscall.Stdin))
	fmt.Fprintln(cmd.OutOrStdout())
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	if len(pwd) == 0 {
		return "", errors.New("password must not be empty")
	}
	return string(pwd), nil
}
