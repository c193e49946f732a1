package main

import (
	"fmt"

	"github.com/anonto42/memorylane/backend/internal/models"
	"github.com/spf13/cobra"
)

func profileCmd(get func() *app) *cobra.Command {
	cmd := &cobra.Command{Use: "profile", Short: "Profile operations"}

	cmd.AddCommand(&cobra.Command{
		Use:   "show [USER_ID]",
		Short: "Show a profile, yours by default",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := get()
			id := ""
			if a.viewer != nil {
				id = a.viewer.ID
			}
			if len(args) == 1 {
				id = args[0]
			}
			if id == "" {
				return fmt.Errorf("USER_ID required when signed out")
			}
			p, err := a.profiles.Get(cmd.Context(), a.viewer, id)
			if err != nil {
				return err
			}
			return printJSON(cmd, p)
		},
	})

	var name, privacy, status, bio string
	var public bool
	updateCmd := &cobra.Command{
		Use:   "update",
		Short: "Edit your profile",
		RunE: func(cmd *cobra.Command, args []string) error {
			a := get()
			flags := cmd.Flags()
			var upd models.ProfileUpdate
			if flags.Changed("name") {
				upd.DisplayName = &name
			}
			if flags.Changed("public-profile") {
				upd.IsPublicProfile = &public
			}
			if flags.Changed("default-privacy") {
				p := models.PostPrivacy(privacy)
				upd.DefaultPostPrivacy = &p
			}
			if flags.Changed("status") {
				upd.RelationshipStatus = &status
			}
			if flags.Changed("bio") {
				upd.Bio = &bio
			}
			p, err := a.profiles.Update(cmd.Context(), a.viewer, upd)
			if err != nil {
				return err
			}
			return printJSON(cmd, p)
		},
	}
	updateCmd.Flags().StringVar(&name, "name", "", "Display name")
	updateCmd.Flags().BoolVar(&public, "public-profile", false, "Whether the profile is public")
	updateCmd.Flags().StringVar(&privacy, "default-privacy", "", "public or private")
	updateCmd.Flags().StringVar(&status, "status", "", "Relationship status")
	updateCmd.Flags().StringVar(&bio, "bio", "", "Bio")
	cmd.AddCommand(updateCmd)
	return cmd
}

func deleteAccountCmd(get func() *app) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "delete-account",
		Short: "Delete your account, memories and images",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return fmt.Errorf("this cannot be undone; pass --yes to confirm")
			}
			a := get()
			if err := a.account.DeleteUserData(cmd.Context(), a.viewer); err != nil {
				return err
			}
			_, err := fmt.Fprintln(cmd.OutOrStdout(), "account deleted")
			return err
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "Confirm deletion")
	return cmd
}
