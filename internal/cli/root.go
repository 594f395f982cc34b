// Package cli implements the storyclient command line.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/patric-chuzhbe/hackorsnooze/internal/app"
	"github.com/patric-chuzhbe/hackorsnooze/internal/config"
	"github.com/patric-chuzhbe/hackorsnooze/internal/models"
	"github.com/patric-chuzhbe/hackorsnooze/internal/user"
)

// cliState carries the App built by the root command to its subcommands.
type cliState struct {
	app           *app.App
	configOptions []config.InitOption
}

func (r *cliState) close() error {
	if r.app == nil {
		return nil
	}
	err := r.app.Close()
	r.app = nil

	return err
}

// currentUser restores the stored session and returns its user.
func (r *cliState) currentUser(ctx context.Context) (*user.User, error) {
	s := r.app.Session()
	if u, ok := s.CurrentUser(); ok {
		return u, nil
	}
	if !s.Bootstrap(ctx) {
		return nil, models.NewAPIError(models.ErrAuth, 0, "not logged in, run `storyclient login` first", nil)
	}
	u, _ := s.CurrentUser()

	return u, nil
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt := &cliState{}
	err := newRootCmd(rt).ExecuteContext(ctx)
	if closeErr := rt.close(); closeErr != nil {
		fmt.Fprintln(os.Stderr, "Error:", closeErr)
	}
	if err != nil {
		os.Exit(1)
	}
}

func newRootCmd(rt *cliState) *cobra.Command {
	cmd := &cobra.Command{
		Use:          "storyclient",
		Short:        "Read, post and favorite stories on a Hack-or-Snooze server",
		SilenceUsage: true,
		PersistentPreRunE: func(c *cobra.Command, _ []string) error {
			options := append([]config.InitOption{config.WithFlagSet(c.Flags())}, rt.configOptions...)
			cfg, err := config.New(options...)
			if err != nil {
				return err
			}

			rt.app, err = app.New(c.Context(), cfg)
			return err
		},
	}

	config.RegisterFlags(cmd.PersistentFlags())

	cmd.AddCommand(
		storiesCmd(rt),
		submitCmd(rt),
		removeCmd(rt),
		favoriteCmd(rt),
		favoritesCmd(rt),
		mineCmd(rt),
		whoamiCmd(rt),
		signupCmd(rt),
		loginCmd(rt),
		logoutCmd(rt),
	)

	return cmd
}
