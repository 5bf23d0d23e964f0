package commands

import (
	"github.com/spf13/cobra"

	"kanban/internal/board"
)

func (a *app) listCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Create, rename and delete lists",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "create NAME",
		Short: "Append a new list",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(cmd.Context(), func(s *board.Store) error {
				list, err := s.CreateList(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				a.out.Printf("%s\n", list.ID)
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "rename LIST_ID NAME",
		Short: "Rename a list",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(cmd.Context(), func(s *board.Store) error {
				return s.RenameList(cmd.Context(), args[0], args[1])
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "delete LIST_ID",
		Short: "Delete a list and its projects",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(cmd.Context(), func(s *board.Store) error {
				return s.DeleteList(cmd.Context(), args[0])
			})
		},
	})

	return cmd
}
