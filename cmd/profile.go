package cmd

import (
	"fmt"
	"time"

	"github.com/booknook/bookfeed/internal/nav"
	"github.com/booknook/bookfeed/internal/session"
	"github.com/booknook/bookfeed/internal/ui"
	"github.com/spf13/cobra"
)

func newProfileCmd() *cobra.Command {
	return &cobra.Command{
		Use:         "profile",
		Short:       "Show the signed-in account",
		Annotations: screen(nav.Profile),
		RunE: func(cmd *cobra.Command, args []string) error {
			state := mustApp(cmd).Session.State()

			var expiry time.Time
			if exp, ok := session.TokenExpiry(state.Token); ok {
				expiry = exp
			}

			fmt.Fprintln(cmd.OutOrStdout(), ui.Screen("Profile", "",
				ui.Profile(state.User, expiry),
				ui.Button("bookfeed logout", ui.Primary, false),
			))
			return nil
		},
	}
}
