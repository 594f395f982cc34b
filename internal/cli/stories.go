package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/patric-chuzhbe/hackorsnooze/internal/models"
	"github.com/patric-chuzhbe/hackorsnooze/internal/story"
	"github.com/patric-chuzhbe/hackorsnooze/internal/user"
)

func printStory(w io.Writer, s story.Story, u *user.User) {
	host, err := s.Hostname()
	if err != nil {
		host = "invalid url"
	}

	marker := " "
	if u != nil && u.IsFavorite(s) {
		marker = "*"
	}

	fmt.Fprintf(w, "%s %s (%s)\n    by %s, posted by %s  [%s]\n", marker, s.Title, host, s.Author, s.Username, s.StoryID)
}

func printStories(w io.Writer, stories []story.Story, u *user.User, empty string) {
	if len(stories) == 0 {
		fmt.Fprintln(w, empty)
		return
	}
	for _, s := range stories {
		printStory(w, s, u)
	}
}

func storiesCmd(rt *cliState) *cobra.Command {
	return &cobra.Command{
		Use:   "stories",
		Short: "List the most recent stories",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, _ []string) error {
			list, err := rt.app.Start(c.Context())
			if err != nil {
				return err
			}

			u, _ := rt.app.Session().CurrentUser()
			printStories(c.OutOrStdout(), list.Stories(), u, "(no stories yet)")
			return nil
		},
	}
}

func submitCmd(rt *cliState) *cobra.Command {
	var fields models.NewStory

	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Post a new story",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, _ []string) error {
			u, err := rt.currentUser(c.Context())
			if err != nil {
				return err
			}

			list := story.NewList(rt.app.Client(), nil)
			created, err := list.AddStory(c.Context(), rt.app.Session(), fields)
			if err != nil {
				return err
			}
			if err := u.Refresh(c.Context()); err != nil {
				return err
			}

			fmt.Fprintf(c.OutOrStdout(), "Posted %q [%s], you now have %d stories\n", created.Title, created.StoryID, len(u.OwnStories()))
			return nil
		},
	}

	cmd.Flags().StringVar(&fields.Title, "title", "", "story title")
	cmd.Flags().StringVar(&fields.Author, "author", "", "story author")
	cmd.Flags().StringVar(&fields.URL, "url", "", "story URL")
	return cmd
}

func removeCmd(rt *cliState) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <storyId>",
		Short: "Delete one of your stories",
		Args:  cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			u, err := rt.currentUser(c.Context())
			if err != nil {
				return err
			}
			if err := u.RemoveOwnStory(c.Context(), args[0]); err != nil {
				return err
			}

			fmt.Fprintf(c.OutOrStdout(), "Removed %s\n", args[0])
			return nil
		},
	}
}

func mineCmd(rt *cliState) *cobra.Command {
	return &cobra.Command{
		Use:   "mine",
		Short: "List the stories you posted",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, _ []string) error {
			u, err := rt.currentUser(c.Context())
			if err != nil {
				return err
			}

			printStories(c.OutOrStdout(), u.OwnStories(), u, "(you have not posted any stories)")
			return nil
		},
	}
}
