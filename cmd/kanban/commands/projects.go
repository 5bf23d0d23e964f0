package commands

import (
	"github.com/spf13/cobra"

	"kanban/internal/board"
)

func (a *app) projectCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "project",
		Short: "Create, edit, delete and move projects",
	}
	cmd.AddCommand(
		a.projectCreateCommand(),
		a.projectUpdateCommand(),
		a.projectDeleteCommand(),
		a.projectMoveCommand(),
	)
	return cmd
}

func (a *app) projectCreateCommand() *cobra.Command {
	var title, description string
	cmd := &cobra.Command{
		Use:   "create LIST_ID",
		Short: "Add a project to the end of a list",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(cmd.Context(), func(s *board.Store) error {
				p, err := s.CreateProject(cmd.Context(), title, description, args[0])
				if err != nil {
					return err
				}
				a.out.Printf("%s\n", p.ID)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&title, "title", "t", "", "project title")
	cmd.Flags().StringVarP(&description, "description", "d", "", "project description")
	return cmd
}

func (a *app) projectUpdateCommand() *cobra.Command {
	var title, description string
	cmd := &cobra.Command{
		Use:   "update LIST_ID PROJECT_ID",
		Short: "Change a project's title or description",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var upd board.ProjectUpdate
			if cmd.Flags().Changed("title") {
				upd.Title = &title
			}
			if cmd.Flags().Changed("description") {
				upd.Description = &description
			}
			return a.withStore(cmd.Context(), func(s *board.Store) error {
				return s.UpdateProject(cmd.Context(), args[0], args[1], upd)
			})
		},
	}
	cmd.Flags().StringVarP(&title, "title", "t", "", "new title")
	cmd.Flags().StringVarP(&description, "description", "d", "", "new description")
	return cmd
}

func (a *app) projectDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete LIST_ID PROJECT_ID",
		Short: "Remove a project",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(cmd.Context(), func(s *board.Store) error {
				return s.DeleteProject(cmd.Context(), args[0], args[1])
			})
		},
	}
}

func (a *app) projectMoveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "move PROJECT_ID FROM_LIST_ID TO_LIST_ID",
		Short: "Move a project to the end of another list",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(cmd.Context(), func(s *board.Store) error {
				return s.MoveProject(cmd.Context(), args[0], args[1], args[2])
			})
		},
	}
}
