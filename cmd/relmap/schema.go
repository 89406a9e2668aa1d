package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ersonp/relmap/internal/application/handlers"
)

func newContentTypesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "contenttypes",
		Short: "Manage content types",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runContentTypesList(cmd)
		},
	}

	var kind, name string
	add := &cobra.Command{
		Use:   "add <alias>",
		Short: "Add or update a content type",
		Long: `Adds a content type that entities of one kind are created from.

Example:
  relmap contenttypes add article --name Article
  relmap contenttypes add image --kind media`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDeps(cmd.Context(), func(d *Deps) error {
				ct, err := d.Schema.HandleAddContentType(cmd.Context(), args[0], kind, name)
				if err != nil {
					return err
				}
				fmt.Printf("Saved content type: %s (%s)\n", ct.Alias, ct.Kind)
				return nil
			})
		},
	}
	add.Flags().StringVar(&kind, "kind", "content", "Entity kind: content, media, member")
	add.Flags().StringVar(&name, "name", "", "Display name (default: alias)")

	list := &cobra.Command{
		Use:   "list",
		Short: "List content types",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runContentTypesList(cmd)
		},
	}

	cmd.AddCommand(list, add)
	return cmd
}

func runContentTypesList(cmd *cobra.Command) error {
	return withDeps(cmd.Context(), func(d *Deps) error {
		types, err := d.Schema.HandleListContentTypes(cmd.Context())
		if err != nil {
			return fmt.Errorf("listing content types: %w", err)
		}
		if len(types) == 0 {
			fmt.Println("No content types defined.")
			return nil
		}

		w := newTable()
		fmt.Fprintln(w, "ALIAS\tKIND\tNAME")
		for _, ct := range types {
			fmt.Fprintf(w, "%s\t%s\t%s\n", ct.Alias, ct.Kind, truncate(ct.Name, 40))
		}
		return w.Flush()
	})
}

type dataTypesAddFlags struct {
	editor       string
	relationType string
	format       string
}

func newDataTypesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "datatypes",
		Short: "Manage data types (editor configurations)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDataTypesList(cmd)
		},
	}

	var flags dataTypesAddFlags
	add := &cobra.Command{
		Use:   "add <name>",
		Short: "Add a data type",
		Long: `Adds a data type. Picker editors with a relation type mirror their selection
into relations of that type; the save format controls how the selection is stored
on the property itself (csv, json, xml, relationsOnly).

Examples:
  relmap datatypes add "Related articles" --editor nuPickers.JsonCheckBoxPicker --relation-type relatedArticles
  relmap datatypes add "Image picker" --editor nuPickers.JsonCheckBoxPicker --relation-type articleImages --format relationsOnly`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDataTypesAdd(cmd, args[0], flags)
		},
	}
	add.Flags().StringVar(&flags.editor, "editor", "", "Property editor alias")
	add.Flags().StringVar(&flags.relationType, "relation-type", "", "Relation type alias picks are mirrored into")
	add.Flags().StringVar(&flags.format, "format", "", "Save format: csv, json, xml, relationsOnly (default: csv)")
	_ = add.MarkFlagRequired("editor")
	_ = add.RegisterFlagCompletionFunc("relation-type", func(cmd *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return completeRelationTypes(cmd, nil, "")
	})

	list := &cobra.Command{
		Use:   "list",
		Short: "List data types",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDataTypesList(cmd)
		},
	}

	cmd.AddCommand(list, add)
	return cmd
}

func runDataTypesAdd(cmd *cobra.Command, name string, flags dataTypesAddFlags) error {
	return withDeps(cmd.Context(), func(d *Deps) error {
		dt, err := d.Schema.HandleAddDataType(cmd.Context(), handlers.DataTypeInput{
			Name:              name,
			EditorAlias:       flags.editor,
			RelationTypeAlias: flags.relationType,
			SaveFormat:        flags.format,
		})
		if err != nil {
			return err
		}
		fmt.Printf("Added data type %d: %s (%s, %s)\n", dt.ID, dt.Name, dt.EditorAlias, dt.SaveFormat)
		return nil
	})
}

func runDataTypesList(cmd *cobra.Command) error {
	return withDeps(cmd.Context(), func(d *Deps) error {
		types, err := d.Schema.HandleListDataTypes(cmd.Context())
		if err != nil {
			return fmt.Errorf("listing data types: %w", err)
		}
		if len(types) == 0 {
			fmt.Println("No data types defined.")
			return nil
		}

		w := newTable()
		fmt.Fprintln(w, "ID\tNAME\tEDITOR\tRELATION TYPE\tFORMAT")
		for _, dt := range types {
			relType := dt.RelationTypeAlias
			if relType == "" {
				relType = "-"
			}
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n", dt.ID, truncate(dt.Name, 30), dt.EditorAlias, relType, dt.SaveFormat)
		}
		return w.Flush()
	})
}

func newPropertiesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "properties",
		Short: "Manage properties of content types",
	}

	list := &cobra.Command{
		Use:   "list <content-type>",
		Short: "List the properties of a content type",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPropertiesList(cmd, args[0])
		},
	}

	add := &cobra.Command{
		Use:   "add <content-type> <alias> <data-type>",
		Short: "Add a property to a content type",
		Long: `Adds a property that uses an existing data type.

Example:
  relmap properties add article related "Related articles"`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDeps(cmd.Context(), func(d *Deps) error {
				prop, err := d.Schema.HandleAddProperty(cmd.Context(), args[0], args[1], args[2])
				if err != nil {
					return err
				}
				fmt.Printf("Added property %d: %s.%s (%s)\n", prop.ID, prop.ContentType, prop.Alias, prop.EditorAlias)
				return nil
			})
		},
	}

	cmd.AddCommand(list, add)
	return cmd
}

func runPropertiesList(cmd *cobra.Command, contentType string) error {
	return withDeps(cmd.Context(), func(d *Deps) error {
		props, err := d.Schema.HandleListProperties(cmd.Context(), contentType)
		if err != nil {
			return err
		}
		if len(props) == 0 {
			fmt.Printf("No properties defined for %s.\n", contentType)
			return nil
		}

		w := newTable()
		fmt.Fprintln(w, "ID\tALIAS\tEDITOR\tDATA TYPE\tPICKER")
		for _, p := range props {
			dataType := "-"
			if p.DataType != nil {
				dataType = p.DataType.Name
			}
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%v\n", p.Property.ID, p.Property.Alias, p.Property.EditorAlias, dataType, p.Picker)
		}
		return w.Flush()
	})
}
