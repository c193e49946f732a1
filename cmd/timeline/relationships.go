package main

import (
	"fmt"

	"github.com/anonto42/memorylane/backend/internal/models"
	"github.com/anonto42/memorylane/backend/internal/repositories"
	"github.com/spf13/cobra"
)

type relationshipOut struct {
	ID          string                    `json:"id"`
	PartnerID   string                    `json:"partner_id"`
	PartnerName string                    `json:"partner_name"`
	Type        models.RelationshipType   `json:"relationship_type"`
	Status      models.RelationshipStatus `json:"status"`
}

func viewOut(v *repositories.RelationshipView) map[string][]relationshipOut {
	conv := func(rels []models.Relationship) []relationshipOut {
		out := make([]relationshipOut, 0, len(rels))
		for _, r := range rels {
			out = append(out, relationshipOut{ID: r.ID, PartnerID: r.PartnerID, PartnerName: r.PartnerName, Type: r.RelationshipType, Status: r.Status})
		}
		return out
	}
	return map[string][]relationshipOut{"accepted": conv(v.Accepted), "pending": conv(v.Pending)}
}

func relationshipsCmd(get func() *app) *cobra.Command {
	cmd := &cobra.Command{Use: "relationships", Aliases: []string{"rel"}, Short: "Relationship operations"}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List accepted relationships and requests waiting for you",
		RunE: func(cmd *cobra.Command, args []string) error {
			a := get()
			v, err := a.relationships.List(cmd.Context(), a.viewer)
			if err != nil {
				return err
			}
			return printJSON(cmd, viewOut(v))
		},
	})

	var relType string
	sendCmd := &cobra.Command{
		Use:   "send EMAIL_OR_NAME",
		Short: "Ask someone to connect",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := get()
			rel, err := a.relationships.Send(cmd.Context(), a.viewer, args[0], models.RelationshipType(relType))
			if err != nil {
				return err
			}
			return printJSON(cmd, relationshipOut{ID: rel.ID, PartnerID: rel.PartnerID, PartnerName: rel.PartnerName, Type: rel.RelationshipType, Status: rel.Status})
		},
	}
	sendCmd.Flags().StringVarP(&relType, "type", "t", string(models.RelationshipFriendship), "romantic, partnership, friendship or other")
	cmd.AddCommand(sendCmd)

	var accept, decline bool
	respondCmd := &cobra.Command{
		Use:   "respond RELATIONSHIP_ID",
		Short: "Accept or decline a request",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if accept == decline {
				return fmt.Errorf("exactly one of --accept or --decline is required")
			}
			a := get()
			v, err := a.relationships.Respond(cmd.Context(), a.viewer, args[0], accept)
			if err != nil {
				return err
			}
			return printJSON(cmd, viewOut(v))
		},
	}
	respondCmd.Flags().BoolVar(&accept, "accept", false, "Accept the request")
	respondCmd.Flags().BoolVar(&decline, "decline", false, "Decline the request")
	cmd.AddCommand(respondCmd)

	cmd.AddCommand(&cobra.Command{
		Use:   "remove RELATIONSHIP_ID",
		Short: "End an accepted relationship",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := get()
			if err := a.relationships.Remove(cmd.Context(), a.viewer, args[0]); err != nil {
				return err
			}
			_, err := fmt.Fprintln(cmd.OutOrStdout(), "removed", args[0])
			return err
		},
	})
	return cmd
}
