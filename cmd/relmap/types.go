package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ersonp/relmap/internal/application/handlers"
)

func newTypesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "types",
		Short: "Manage relation types",
		Long:  "List, add, remove and describe the relation types pickers can map into.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTypesList(cmd)
		},
	}

	cmd.AddCommand(
		newTypesListCmd(),
		newTypesAddCmd(),
		newTypesRemoveCmd(),
		newTypesDescribeCmd(),
	)

	return cmd
}

func newTypesListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all relation types",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTypesList(cmd)
		},
	}
}

func runTypesList(cmd *cobra.Command) error {
	return withDeps(cmd.Context(), func(d *Deps) error {
		types, err := d.RelationTypes.HandleList(cmd.Context())
		if err != nil {
			return fmt.Errorf("listing relation types: %w", err)
		}

		if len(types) == 0 {
			fmt.Println("No relation types defined.")
			return nil
		}

		w := newTable()
		fmt.Fprintln(w, "ALIAS\tNAME\tPARENT\tCHILD\tBIDIRECTIONAL")
		for i := range types {
			rt := types[i]
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%v\n",
				rt.Alias, truncate(rt.Name, 40), rt.ParentKind, rt.ChildKind, rt.Bidirectional)
		}
		return w.Flush()
	})
}

type typesAddFlags struct {
	name          string
	parent        string
	child         string
	bidirectional bool
}

func newTypesAddCmd() *cobra.Command {
	var flags typesAddFlags

	cmd := &cobra.Command{
		Use:   "add <alias>",
		Short: "Add a relation type",
		Long: `Adds a relation type. Parent and child kinds are content, media or member.

Examples:
  relmap types add relatedArticles --parent content --child content --bidirectional
  relmap types add articleImages --name "Article images" --child media`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTypesAdd(cmd, args[0], flags)
		},
	}

	cmd.Flags().StringVar(&flags.name, "name", "", "Display name (default: alias)")
	cmd.Flags().StringVar(&flags.parent, "parent", "content", "Parent kind: content, media, member")
	cmd.Flags().StringVar(&flags.child, "child", "content", "Child kind: content, media, member")
	cmd.Flags().BoolVar(&flags.bidirectional, "bidirectional", false, "Relations read the same from both ends")

	return cmd
}

func runTypesAdd(cmd *cobra.Command, alias string, flags typesAddFlags) error {
	return withDeps(cmd.Context(), func(d *Deps) error {
		rt, err := d.RelationTypes.HandleAdd(cmd.Context(), handlers.RelationTypeInput{
			Alias:         alias,
			Name:          flags.name,
			ParentKind:    flags.parent,
			ChildKind:     flags.child,
			Bidirectional: flags.bidirectional,
		})
		if err != nil {
			return err
		}

		fmt.Printf("Added relation type: %s (%s -> %s)\n", rt.Alias, rt.ParentKind, rt.ChildKind)
		return nil
	})
}

func newTypesRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:               "remove <alias>",
		Short:             "Remove a relation type and all of its relations",
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: completeRelationTypes,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDeps(cmd.Context(), func(d *Deps) error {
				if err := d.RelationTypes.HandleRemove(cmd.Context(), args[0]); err != nil {
					return err
				}
				fmt.Printf("Removed relation type: %s\n", args[0])
				return nil
			})
		},
	}
}

func newTypesDescribeCmd() *cobra.Command {
	return &cobra.Command{
		Use:               "describe <alias>",
		Short:             "Show details of a relation type",
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: completeRelationTypes,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTypesDescribe(cmd, args[0])
		},
	}
}

func runTypesDescribe(cmd *cobra.Command, alias string) error {
	return withDeps(cmd.Context(), func(d *Deps) error {
		info, err := d.RelationTypes.HandleDescribe(cmd.Context(), alias)
		if err != nil {
			return err
		}
		if info == nil {
			return fmt.Errorf("relation type '%s' not found", alias)
		}

		fmt.Printf("Alias:         %s\n", info.Type.Alias)
		fmt.Printf("Name:          %s\n", info.Type.Name)
		fmt.Printf("Parent kind:   %s\n", info.Type.ParentKind)
		fmt.Printf("Child kind:    %s\n", info.Type.ChildKind)
		fmt.Printf("Bidirectional: %v\n", info.Type.Bidirectional)
		fmt.Printf("Default:       %v\n", info.Default)
		fmt.Printf("Relations:     %d\n", info.Relations)
		return nil
	})
}

// completeRelationTypes offers relation type aliases for the first argument.
func completeRelationTypes(cmd *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	var aliases []string
	err := withDeps(ctx, func(d *Deps) error {
		var err error
		aliases, err = d.RelationTypes.HandleAliases(ctx)
		return err
	})
	if err != nil {
		return nil, cobra.ShellCompDirectiveError
	}
	return aliases, cobra.ShellCompDirectiveNoFileComp
}
