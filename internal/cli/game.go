package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func (a *app) newCreateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "create",
		Short: "Create a game and print both seat secrets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := a.context(cmd)
			defer cancel()
			g, err := a.client.CreateGame(ctx)
			if err != nil {
				return err
			}
			a.output(cmd).Print(*g)
			return nil
		},
	}
}

func (a *app) newGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show a game",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseGameID(args[0])
			if err != nil {
				return err
			}
			ctx, cancel := a.context(cmd)
			defer cancel()
			v, err := a.client.Game(ctx, id)
			if err != nil {
				return err
			}
			a.output(cmd).Print(*v)
			return nil
		},
	}
}

func (a *app) newListCmd() *cobra.Command {
	var offset, limit int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List games, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := a.context(cmd)
			defer cancel()
			page, err := a.client.List(ctx, offset, limit)
			if err != nil {
				return err
			}
			a.output(cmd).Print(*page)
			return nil
		},
	}
	cmd.Flags().IntVar(&offset, "offset", 0, "Games to skip")
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum games to return")
	return cmd
}

func (a *app) newJoinCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "join <id> <secret>",
		Short: "Claim a seat with a one-time secret",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseGameID(args[0])
			if err != nil {
				return err
			}
			ctx, cancel := a.context(cmd)
			defer cancel()
			v, err := a.client.Join(ctx, id, args[1])
			if err != nil {
				return err
			}
			a.output(cmd).Print(*v)
			return nil
		},
	}
}

func (a *app) newMoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "move <id> <move>",
		Short: "Play a move in SAN (Nf3) or coordinate form (g1f3)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseGameID(args[0])
			if err != nil {
				return err
			}
			ctx, cancel := a.context(cmd)
			defer cancel()
			v, err := a.client.Move(ctx, id, args[1])
			if err != nil {
				return err
			}
			a.output(cmd).Print(*v)
			return nil
		},
	}
}

func (a *app) newResignCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "resign <id>",
		Short: "Resign the game",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseGameID(args[0])
			if err != nil {
				return err
			}
			ctx, cancel := a.context(cmd)
			defer cancel()
			v, err := a.client.Resign(ctx, id)
			if err != nil {
				return err
			}
			a.output(cmd).Print(*v)
			return nil
		},
	}
}

func (a *app) newRoleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "role <id>",
		Short: "Show the caller's role in a game",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseGameID(args[0])
			if err != nil {
				return err
			}
			ctx, cancel := a.context(cmd)
			defer cancel()
			role, err := a.client.Role(ctx, id)
			if err != nil {
				return err
			}
			out := a.output(cmd)
			if out.format == "json" {
				out.Print(map[string]any{"id": id, "role": role})
				return nil
			}
			msg, err := a.cat.Render("roles."+role, nil)
			if err != nil {
				msg = role
			}
			out.PrintMessage(msg)
			return nil
		},
	}
}

func (a *app) newPGNCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "pgn <id>",
		Short: "Print the game record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseGameID(args[0])
			if err != nil {
				return err
			}
			ctx, cancel := a.context(cmd)
			defer cancel()
			text, err := a.client.PGN(ctx, id)
			if err != nil {
				return err
			}
			a.output(cmd).PrintMessage(text)
			return nil
		},
	}
}

func (a *app) newBoardCmd() *cobra.Command {
	var out, orientation string
	cmd := &cobra.Command{
		Use:   "board <id>",
		Short: "Save the board image as PNG",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseGameID(args[0])
			if err != nil {
				return err
			}
			if orientation != "" && orientation != "white" && orientation != "black" {
				return fmt.Errorf("orientation must be white or black")
			}
			ctx, cancel := a.context(cmd)
			defer cancel()
			img, err := a.client.BoardPNG(ctx, id, orientation)
			if err != nil {
				return err
			}
			path := out
			if path == "" {
				path = fmt.Sprintf("game-%d.png", id)
			}
			if err := os.WriteFile(path, img, 0o644); err != nil {
				return err
			}
			a.output(cmd).PrintMessage(fmt.Sprintf("wrote %s (%d bytes)", path, len(img)))
			return nil
		},
	}
	cmd.Flags().StringVar(&out, "out", "", "Output file (default game-<id>.png)")
	cmd.Flags().StringVar(&orientation, "orientation", "", "Board side: white or black")
	return cmd
}
