package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/ersonp/relmap/internal/application/handlers"
	"github.com/ersonp/relmap/internal/domain/entities"
)

type relationsFlags struct {
	entityID int
	property string
	format   string
}

func newRelationsCmd() *cobra.Command {
	var flags relationsFlags

	cmd := &cobra.Command{
		Use:   "relations <relation-type>",
		Short: "List relations of a relation type",
		Long: `Shows the relations of a relation type with the picker metadata stored on each.

Examples:
  relmap relations relatedArticles
  relmap relations relatedArticles --entity 4 --property related
  relmap relations relatedArticles --format json`,
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: completeRelationTypes,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRelations(cmd, args[0], flags)
		},
	}

	cmd.Flags().IntVar(&flags.entityID, "entity", 0, "Only relations involving this entity id")
	cmd.Flags().StringVar(&flags.property, "property", "", "Only relations written by this property alias")
	cmd.Flags().StringVar(&flags.format, "format", "table", "Output format: table, json")

	cmd.AddCommand(newRelationsDeleteCmd(), newRelationsHistoryCmd())

	return cmd
}

func runRelations(cmd *cobra.Command, alias string, flags relationsFlags) error {
	if err := validateFormat(flags.format); err != nil {
		return err
	}

	return withDeps(cmd.Context(), func(d *Deps) error {
		result, err := d.Relations.HandleList(cmd.Context(), alias, handlers.RelationListOptions{
			EntityID: flags.entityID,
			Property: flags.property,
		})
		if err != nil {
			return fmt.Errorf("listing relations: %w", err)
		}

		if flags.format == "json" {
			return writeJSON(os.Stdout, result)
		}

		if len(result.Relations) == 0 {
			fmt.Printf("No relations found for type: %s\n", alias)
			return nil
		}

		w := newTable()
		fmt.Fprintln(w, "ID\tPARENT\tCHILD\tPROPERTY\tPARENT ORDER\tCHILD ORDER")
		for _, m := range result.Relations {
			property := m.Metadata.PropertyAlias
			if property == "" {
				property = "-"
			}
			fmt.Fprintf(w, "%d\t%d\t%d\t%s\t%s\t%s\n",
				m.Relation.ID, m.Relation.ParentID, m.Relation.ChildID, property,
				sortOrder(m.Metadata.ParentSortOrder), sortOrder(m.Metadata.ChildSortOrder))
		}
		return w.Flush()
	})
}

func sortOrder(n int) string {
	if n == entities.SortOrderUnset {
		return "-"
	}
	return strconv.Itoa(n)
}

func newRelationsDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <relation-id>",
		Short: "Delete a relation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid relation id %q", args[0])
			}
			return withDeps(cmd.Context(), func(d *Deps) error {
				if err := d.Relations.HandleDelete(cmd.Context(), id); err != nil {
					return err
				}
				fmt.Printf("Deleted relation %d\n", id)
				return nil
			})
		},
	}
}

func newRelationsHistoryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "history <relation-id>",
		Short: "Show the audit trail of a relation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid relation id %q", args[0])
			}
			return withDeps(cmd.Context(), func(d *Deps) error {
				entries, err := d.Relations.HandleHistory(cmd.Context(), id)
				if err != nil {
					return err
				}
				return printAudit(entries)
			})
		},
	}
}

type auditFlags struct {
	action string
	limit  int
	format string
}

func newAuditCmd() *cobra.Command {
	var flags auditFlags

	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Show recent reconciliation audit entries",
		Long: `Shows the newest audit entries first.

Actions: relation_created, relation_updated, relation_deleted, kind_mismatch`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAudit(cmd, flags)
		},
	}

	cmd.Flags().StringVar(&flags.action, "action", "", "Only entries with this action")
	cmd.Flags().IntVar(&flags.limit, "limit", DefaultAuditLimit, "Maximum number of entries")
	cmd.Flags().StringVar(&flags.format, "format", "table", "Output format: table, json")

	return cmd
}

func runAudit(cmd *cobra.Command, flags auditFlags) error {
	if flags.limit < 1 || flags.limit > MaxAuditLimit {
		return fmt.Errorf("limit must be between 1 and %d", MaxAuditLimit)
	}
	if err := validateFormat(flags.format); err != nil {
		return err
	}

	return withDeps(cmd.Context(), func(d *Deps) error {
		entries, err := d.Relations.HandleAudit(cmd.Context(), flags.action, flags.limit)
		if err != nil {
			return err
		}
		if flags.format == "json" {
			return writeJSON(os.Stdout, entries)
		}
		return printAudit(entries)
	})
}

func printAudit(entries []entities.AuditEntry) error {
	if len(entries) == 0 {
		fmt.Println("No audit entries.")
		return nil
	}

	w := newTable()
	fmt.Fprintln(w, "ID\tTIME\tACTION\tRELATION\tDETAILS")
	for _, e := range entries {
		relation := "-"
		if e.RelationID != 0 {
			relation = strconv.Itoa(e.RelationID)
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n",
			e.ID, e.CreatedAt.Format("2006-01-02 15:04:05"), e.Action, relation, truncate(formatDetails(e.Details), 60))
	}
	return w.Flush()
}
