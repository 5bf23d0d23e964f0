package commands

import (
	"github.com/spf13/cobra"

	"kanban/internal/board"
)

func (a *app) boardCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "board",
		Short: "Print the user's board",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withStore(cmd.Context(), func(s *board.Store) error {
				lists := s.Lists()
				if s.UserID() == "" {
					var err error
					if lists, err = s.LoadBoard(cmd.Context()); err != nil {
						return err
					}
				}
				a.out.Board(lists)
				return nil
			})
		},
	}
}
