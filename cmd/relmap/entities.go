package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/ersonp/relmap/internal/application/handlers"
)

type saveFlags struct {
	id       int
	kind     string
	typ      string
	name     string
	parentID int
	values   []string
	picks    []string
	clear    []string
	format   string
}

func newSaveCmd() *cobra.Command {
	var flags saveFlags

	cmd := &cobra.Command{
		Use:   "save",
		Short: "Create or update an entity",
		Long: `Saves an entity through the host save service. Picker properties with a relation
type have their selection mirrored into relations once the save completes.

Picked keys are the ids or keys of other entities, listed in picker order.

Examples:
  relmap save --type article --name "Hello" --set title="Hello world"
  relmap save --id 4 --pick related=7,3,9
  relmap save --id 4 --pick related=
  relmap save --id 4 --clear related`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSave(cmd, flags)
		},
	}

	cmd.Flags().IntVar(&flags.id, "id", 0, "Entity id to update (default: create)")
	cmd.Flags().StringVar(&flags.kind, "kind", "", "Entity kind for new entities (default: from content type)")
	cmd.Flags().StringVar(&flags.typ, "type", "", "Content type alias for new entities")
	cmd.Flags().StringVar(&flags.name, "name", "", "Entity name")
	cmd.Flags().IntVar(&flags.parentID, "parent", 0, "Parent entity id")
	cmd.Flags().StringArrayVar(&flags.values, "set", nil, "Set a property value (alias=value, repeatable)")
	cmd.Flags().StringArrayVar(&flags.picks, "pick", nil, "Set picker keys in order (alias=k1,k2, repeatable)")
	cmd.Flags().StringArrayVar(&flags.clear, "clear", nil, "Set a property to null (repeatable)")
	cmd.Flags().StringVar(&flags.format, "format", "table", "Output format: table, json")

	return cmd
}

func runSave(cmd *cobra.Command, flags saveFlags) error {
	if err := validateFormat(flags.format); err != nil {
		return err
	}

	values, err := parseAssignments(flags.values)
	if err != nil {
		return fmt.Errorf("parsing --set: %w", err)
	}
	picks, err := parsePicks(flags.picks)
	if err != nil {
		return fmt.Errorf("parsing --pick: %w", err)
	}

	return withDeps(cmd.Context(), func(d *Deps) error {
		outcome, err := d.Entities.HandleSave(cmd.Context(), handlers.EntityInput{
			ID:          flags.id,
			Kind:        flags.kind,
			ContentType: flags.typ,
			Name:        flags.name,
			ParentID:    flags.parentID,
			Values:      values,
			Picks:       picks,
			Clear:       flags.clear,
		})
		if err != nil {
			return err
		}

		if flags.format == "json" {
			return writeJSON(os.Stdout, outcome)
		}

		e := outcome.Entity
		fmt.Printf("Saved %s %d: %s (%s)\n", e.Kind, e.ID, e.Name, e.ContentType)
		for _, w := range outcome.Warnings {
			fmt.Fprintf(os.Stderr, "warning: %s\n", w)
		}
		return nil
	})
}

// parseAssignments turns alias=value pairs into a map. Later pairs win.
func parseAssignments(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	out := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		alias, value, ok := strings.Cut(pair, "=")
		alias = strings.TrimSpace(alias)
		if !ok || alias == "" {
			return nil, fmt.Errorf("expected alias=value, got %q", pair)
		}
		out[alias] = value
	}
	return out, nil
}

// parsePicks turns alias=k1,k2 pairs into ordered key lists. An empty list after the
// equals sign is a valid empty selection.
func parsePicks(pairs []string) (map[string][]string, error) {
	assignments, err := parseAssignments(pairs)
	if err != nil || assignments == nil {
		return nil, err
	}
	out := make(map[string][]string, len(assignments))
	for alias, value := range assignments {
		keys := []string{}
		for _, k := range strings.Split(value, ",") {
			if k = strings.TrimSpace(k); k != "" {
				keys = append(keys, k)
			}
		}
		out[alias] = keys
	}
	return out, nil
}

func newShowCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "show <id|key>",
		Short: "Show an entity with its properties and related ids",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShow(cmd, args[0], format)
		},
	}

	cmd.Flags().StringVar(&format, "format", "table", "Output format: table, json")
	return cmd
}

func runShow(cmd *cobra.Command, arg, format string) error {
	if err := validateFormat(format); err != nil {
		return err
	}
	return withDeps(cmd.Context(), func(d *Deps) error {
		var view *handlers.EntityView
		var err error
		if key, parseErr := uuid.Parse(arg); parseErr == nil {
			view, err = d.Entities.HandleShowByKey(cmd.Context(), key)
		} else if id, atoiErr := strconv.Atoi(arg); atoiErr == nil {
			view, err = d.Entities.HandleShow(cmd.Context(), id)
		} else {
			return fmt.Errorf("invalid entity id or key %q", arg)
		}
		if err != nil {
			return err
		}
		if view == nil {
			return fmt.Errorf("entity %s not found", arg)
		}

		if format == "json" {
			return writeJSON(os.Stdout, view)
		}

		e := view.Entity
		fmt.Printf("ID:           %d\n", e.ID)
		fmt.Printf("Key:          %s\n", e.Key)
		fmt.Printf("Kind:         %s\n", e.Kind)
		fmt.Printf("Content type: %s\n", e.ContentType)
		fmt.Printf("Name:         %s\n", e.Name)
		if e.ParentID != 0 {
			fmt.Printf("Parent:       %d\n", e.ParentID)
		}
		if len(view.Properties) == 0 {
			return nil
		}

		fmt.Println()
		w := newTable()
		fmt.Fprintln(w, "PROPERTY\tVALUE\tRELATION TYPE\tRELATED")
		for _, p := range view.Properties {
			relType, related := "-", "-"
			if p.RelationType != "" {
				relType = p.RelationType
				related = joinInts(p.RelatedIDs)
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", p.Alias, truncate(deref(p.Value), 50), relType, related)
		}
		return w.Flush()
	})
}

func newListCmd() *cobra.Command {
	var kind string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List entities",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDeps(cmd.Context(), func(d *Deps) error {
				list, err := d.Entities.HandleList(cmd.Context(), kind)
				if err != nil {
					return err
				}
				if len(list) == 0 {
					fmt.Println("No entities found.")
					return nil
				}

				w := newTable()
				fmt.Fprintln(w, "ID\tKIND\tTYPE\tNAME")
				for _, e := range list {
					fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", e.ID, e.Kind, e.ContentType, truncate(e.Name, 50))
				}
				return w.Flush()
			})
		},
	}

	cmd.Flags().StringVar(&kind, "kind", "", "Only entities of this kind: content, media, member")
	return cmd
}

func joinInts(ids []int) string {
	if len(ids) == 0 {
		return "-"
	}
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.Itoa(id)
	}
	return strings.Join(parts, ",")
}
