package main

import (
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/PabloGalante/sourcechat/internal/adapters/terminal"
	"github.com/PabloGalante/sourcechat/internal/app/chat"
	"github.com/PabloGalante/sourcechat/internal/domain"
)

var (
	chatUser  string
	chatAgent string
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Chat with an agent in the terminal",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		a, err := buildApp(ctx, cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		out, err := a.svc.StartSession(ctx, chat.StartSessionInput{
			UserID:  domain.UserID(chatUser),
			AgentID: domain.AgentID(chatAgent),
		})
		if err != nil {
			return err
		}
		defer a.svc.EndSession(ctx, out.Session.ID())

		return terminal.New(out.Session, cmd.InOrStdin(), cmd.OutOrStdout()).Run(ctx)
	},
}

func init() {
	chatCmd.Flags().StringVar(&chatUser, "user", string(demoUser), "user id to ask as")
	chatCmd.Flags().StringVar(&chatAgent, "agent", string(demoAgent), "agent whose sources to use")
}
