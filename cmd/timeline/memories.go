package main

import (
	"fmt"

	"github.com/anonto42/memorylane/backend/internal/models"
	"github.com/anonto42/memorylane/backend/internal/repositories"
	"github.com/spf13/cobra"
)

func timelineCmd(get func() *app) *cobra.Command {
	var opts repositories.FetchOptions
	cmd := &cobra.Command{
		Use:   "timeline",
		Short: "List the memories you can see, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			a := get()
			memories, err := a.memories.FetchMany(cmd.Context(), a.viewer, opts)
			if err != nil {
				return err
			}
			return printJSON(cmd, memories)
		},
	}
	cmd.Flags().BoolVar(&opts.PublicOnly, "public", false, "Only public memories")
	cmd.Flags().StringVar(&opts.AuthorID, "author", "", "Only memories by this user ID")
	return cmd
}

func memoryCmd(get func() *app) *cobra.Command {
	memCmd := &cobra.Command{Use: "memory", Short: "Memory operations"}

	showCmd := &cobra.Command{
		Use:   "show MEMORY_ID",
		Short: "Show one memory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := get()
			m, err := a.memories.FetchOne(cmd.Context(), a.viewer, args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd, m)
		},
	}
	memCmd.AddCommand(showCmd)

	var req models.CreateMemoryRequest
	var category, location string
	var public, private bool
	var images, tags []string
	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create a memory",
		RunE: func(cmd *cobra.Command, args []string) error {
			if public && private {
				return fmt.Errorf("--public and --private are exclusive")
			}
			a := get()
			req.Category = models.Category(category)
			if cmd.Flags().Changed("location") {
				req.Location = &location
			}
			if public || private {
				req.IsPublic = &public
			}
			for _, id := range tags {
				req.Participants = append(req.Participants, models.ParticipantInput{UserID: id})
			}
			files, err := readImages(images)
			if err != nil {
				return err
			}
			m, err := a.memories.Create(cmd.Context(), a.viewer, req, files)
			if err != nil {
				return err
			}
			return printJSON(cmd, m)
		},
	}
	createCmd.Flags().StringVarP(&req.Title, "title", "t", "", "Title (required)")
	createCmd.Flags().StringVarP(&req.Description, "desc", "d", "", "Description")
	createCmd.Flags().StringVar(&req.Date, "date", "", "Date as YYYY-MM-DD (required)")
	createCmd.Flags().StringVarP(&category, "category", "c", string(models.CategoryEveryday), "Category")
	createCmd.Flags().StringVarP(&location, "location", "l", "", "Location")
	createCmd.Flags().BoolVar(&public, "public", false, "Visible to everyone")
	createCmd.Flags().BoolVar(&private, "private", false, "Visible to you and tagged partners only")
	createCmd.Flags().StringSliceVarP(&images, "image", "i", nil, "Image file to attach (repeatable)")
	createCmd.Flags().StringSliceVar(&tags, "tag", nil, "User ID of a partner to tag (repeatable)")
	memCmd.AddCommand(createCmd)

	memCmd.AddCommand(updateCmd(get))

	deleteCmd := &cobra.Command{
		Use:   "delete MEMORY_ID",
		Short: "Delete one of your memories and its images",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := get()
			if err := a.memories.Delete(cmd.Context(), a.viewer, args[0]); err != nil {
				return err
			}
			_, err := fmt.Fprintln(cmd.OutOrStdout(), "deleted", args[0])
			return err
		},
	}
	memCmd.AddCommand(deleteCmd)
	return memCmd
}

func updateCmd(get func() *app) *cobra.Command {
	var title, desc, date, location, category string
	var public, private, clearTags bool
	var keep, images, tags []string
	cmd := &cobra.Command{
		Use:   "update MEMORY_ID",
		Short: "Edit one of your memories",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if public && private {
				return fmt.Errorf("--public and --private are exclusive")
			}
			a := get()
			flags := cmd.Flags()

			var req models.UpdateMemoryRequest
			if flags.Changed("title") {
				req.Title = &title
			}
			if flags.Changed("desc") {
				req.Description = &desc
			}
			if flags.Changed("date") {
				req.Date = &date
			}
			if flags.Changed("location") {
				req.Location = &location
			}
			if flags.Changed("category") {
				c := models.Category(category)
				req.Category = &c
			}
			if public || private {
				req.IsPublic = &public
			}
			if clearTags || flags.Changed("tag") {
				participants := make([]models.ParticipantInput, 0, len(tags))
				for _, id := range tags {
					participants = append(participants, models.ParticipantInput{UserID: id})
				}
				req.Participants = &participants
			}

			var desired []string
			if flags.Changed("keep") {
				desired = append([]string{}, keep...)
			}
			files, err := readImages(images)
			if err != nil {
				return err
			}

			m, err := a.memories.Update(cmd.Context(), a.viewer, args[0], req, desired, files)
			if err != nil {
				return err
			}
			return printJSON(cmd, m)
		},
	}
	cmd.Flags().StringVarP(&title, "title", "t", "", "New title")
	cmd.Flags().StringVarP(&desc, "desc", "d", "", "New description")
	cmd.Flags().StringVar(&date, "date", "", "New date as YYYY-MM-DD")
	cmd.Flags().StringVarP(&location, "location", "l", "", "New location")
	cmd.Flags().StringVarP(&category, "category", "c", "", "New category")
	cmd.Flags().BoolVar(&public, "public", false, "Make visible to everyone")
	cmd.Flags().BoolVar(&private, "private", false, "Make visible to you and tagged partners only")
	cmd.Flags().StringSliceVar(&keep, "keep", nil, "Image URL to keep; images not listed are deleted (repeatable)")
	cmd.Flags().StringSliceVarP(&images, "image", "i", nil, "Image file to add (repeatable)")
	cmd.Flags().StringSliceVar(&tags, "tag", nil, "Replace tagged partners with these user IDs (repeatable)")
	cmd.Flags().BoolVar(&clearTags, "clear-tags", false, "Remove every tagged partner")
	return cmd
}

func reactCmd(get func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "react MEMORY_ID heart|smile|celebration",
		Short: "Toggle a reaction on a memory",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := get()
			ctx := cmd.Context()
			// Load the memory first so the toggle knows whether the reaction is held.
			if _, err := a.memories.FetchOne(ctx, a.viewer, args[0]); err != nil {
				return err
			}
			if err := a.memories.Reactions().Toggle(ctx, a.viewer, args[0], models.ReactionType(args[1])); err != nil {
				return err
			}
			for _, m := range a.memories.Memories() {
				if m.ID == args[0] {
					return printJSON(cmd, m.Reactions)
				}
			}
			return nil
		},
	}
}

func commentCmd(get func() *app) *cobra.Command {
	cmd := &cobra.Command{Use: "comment", Short: "Comment operations"}

	cmd.AddCommand(&cobra.Command{
		Use:   "add MEMORY_ID TEXT",
		Short: "Comment on a memory",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := get()
			c, err := a.memories.Comments().Add(cmd.Context(), a.viewer, args[0], args[1])
			if err != nil {
				return err
			}
			return printJSON(cmd, c)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "delete MEMORY_ID COMMENT_ID",
		Short: "Delete one of your comments",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := get()
			ctx := cmd.Context()
			if _, err := a.memories.FetchOne(ctx, a.viewer, args[0]); err != nil {
				return err
			}
			if err := a.memories.Comments().Remove(ctx, a.viewer, args[1]); err != nil {
				return err
			}
			_, err := fmt.Fprintln(cmd.OutOrStdout(), "deleted", args[1])
			return err
		},
	})
	return cmd
}
