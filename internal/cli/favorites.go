package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/patric-chuzhbe/hackorsnooze/internal/models"
	"github.com/patric-chuzhbe/hackorsnooze/internal/user"
)

func favoriteCmd(rt *cliState) *cobra.Command {
	c := &cobra.Command{
		Use:   "favorite",
		Short: "Change your favorite stories",
	}

	c.AddCommand(
		favoriteChangeCmd(rt, "add", "Favorite a story", (*user.User).AddFavorite),
		favoriteChangeCmd(rt, "remove", "Unfavorite a story", (*user.User).RemoveFavorite),
		favoriteToggleCmd(rt),
	)
	return c
}

func favoriteChangeCmd(
	rt *cliState,
	use, short string,
	change func(u *user.User, ctx context.Context, storyID string) error,
) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <storyId>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			u, err := rt.currentUser(c.Context())
			if err != nil {
				return err
			}
			if err := change(u, c.Context(), args[0]); err != nil {
				return err
			}

			fmt.Fprintf(c.OutOrStdout(), "You have %d favorite(s)\n", len(u.Favorites()))
			return nil
		},
	}
}

func favoriteToggleCmd(rt *cliState) *cobra.Command {
	return &cobra.Command{
		Use:   "toggle <storyId>",
		Short: "Favorite a story from the feed, or unfavorite it if it already is",
		Args:  cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			list, err := rt.app.Start(c.Context())
			if err != nil {
				return err
			}
			u, err := rt.currentUser(c.Context())
			if err != nil {
				return err
			}

			s, found := list.Find(args[0])
			if !found {
				return models.NewAPIError(models.ErrNotFound, 0, "no such story in the feed: "+args[0], nil)
			}
			if err := s.ToggleFavorite(c.Context(), u); err != nil {
				return err
			}

			state := "unfavorited"
			if u.IsFavorite(s) {
				state = "favorited"
			}
			fmt.Fprintf(c.OutOrStdout(), "%s %q\n", state, s.Title)
			return nil
		},
	}
}

func favoritesCmd(rt *cliState) *cobra.Command {
	return &cobra.Command{
		Use:   "favorites",
		Short: "List your favorite stories",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, _ []string) error {
			u, err := rt.currentUser(c.Context())
			if err != nil {
				return err
			}

			printStories(c.OutOrStdout(), u.Favorites(), u, "(no favorites yet)")
			return nil
		},
	}
}
