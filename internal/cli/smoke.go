package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/park285/chess-arbiter/internal/apiclient"
)

// newSmokeCmd plays fool's mate between two actors and checks every reply.
func (a *app) newSmokeCmd() *cobra.Command {
	var whiteID, blackID string
	cmd := &cobra.Command{
		Use:   "smoke",
		Short: "Play a scripted game end to end and verify the replies",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := a.context(cmd)
			defer cancel()
			out := a.output(cmd)

			g, err := a.client.CreateGame(ctx)
			if err != nil {
				return fmt.Errorf("create: %w", err)
			}
			out.PrintMessage(fmt.Sprintf("create ok: game %d", g.ID))

			white, black := a.client.Actor(whiteID), a.client.Actor(blackID)
			if _, err := white.Join(ctx, g.ID, g.WhiteSecret); err != nil {
				return fmt.Errorf("join white: %w", err)
			}
			if _, err := black.Join(ctx, g.ID, g.BlackSecret); err != nil {
				return fmt.Errorf("join black: %w", err)
			}
			if err := expectCode(func() error { _, err := black.Join(ctx, g.ID, g.WhiteSecret); return err }, "ALREADY_SEATED"); err != nil {
				return fmt.Errorf("rejoin: %w", err)
			}
			out.PrintMessage("join ok")

			if err := expectCode(func() error { _, err := black.Move(ctx, g.ID, "e5"); return err }, "WRONG_TURN"); err != nil {
				return fmt.Errorf("out of turn: %w", err)
			}

			script := []struct {
				player *apiclient.Client
				move   string
			}{
				{white, "f2f3"}, {black, "e5"}, {white, "g4"}, {black, "Qh4#"},
			}
			for _, step := range script {
				v, err := step.player.Move(ctx, g.ID, step.move)
				if err != nil {
					return fmt.Errorf("move %s: %w", step.move, err)
				}
				out.PrintMessage(fmt.Sprintf("move %s ok: %s", step.move, v.Status.Kind))
			}

			final, err := a.client.Game(ctx, g.ID)
			if err != nil {
				return fmt.Errorf("get: %w", err)
			}
			if final.Status.Kind != "CHECKMATE" || final.Status.Winner != "black" {
				return fmt.Errorf("expected black to win by checkmate, got %s/%s", final.Status.Kind, final.Status.Winner)
			}
			if err := expectCode(func() error { _, err := white.Move(ctx, g.ID, "a3"); return err }, "GAME_FINISHED"); err != nil {
				return fmt.Errorf("move after mate: %w", err)
			}

			text, err := a.client.PGN(ctx, g.ID)
			if err != nil {
				return fmt.Errorf("pgn: %w", err)
			}
			out.PrintMessage(text)
			out.PrintMessage("smoke ok")
			return nil
		},
	}
	cmd.Flags().StringVar(&whiteID, "white", "chesscheck-white", "Actor id for white")
	cmd.Flags().StringVar(&blackID, "black", "chesscheck-black", "Actor id for black")
	return cmd
}

func expectCode(call func() error, code string) error {
	err := call()
	var apiErr *apiclient.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != code {
		return fmt.Errorf("expected %s, got %v", code, err)
	}
	return nil
}
