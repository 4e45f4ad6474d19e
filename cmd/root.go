package cmd

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/booknook/bookfeed/internal/app"
	"github.com/booknook/bookfeed/internal/config"
	"github.com/booknook/bookfeed/internal/nav"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

const (
	// screenAnnotation names the nav.Screen a command renders
	screenAnnotation = "screen"
	// standaloneAnnotation marks commands that run without the client app
	standaloneAnnotation = "standalone"
)

func NewRootCmd() *cobra.Command {
	var (
		overrides config.Overrides
		verbose   bool
	)

	cmd := &cobra.Command{
		Use:   "bookfeed",
		Short: "Share and browse book recommendations from the terminal",
		Long: `Bookfeed is a client for a shared feed of book recommendations.

Sign in or register, browse what others are reading, and post your own
recommendation with a star rating, a caption and a cover image.

Running bookfeed without a subcommand shows the feed when you are signed
in and the sign-in hint otherwise.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Load .env file if present (ignore errors)
			_ = godotenv.Load()
			setupLogging(cmd.ErrOrStderr(), verbose)

			if cmd.Annotations[standaloneAnnotation] == "true" {
				return nil
			}

			cfg, err := config.Load(overrides)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			a, err := app.New(cfg)
			if err != nil {
				return err
			}
			if screen, ok := cmd.Annotations[screenAnnotation]; ok {
				if err := nav.Allowed(a.Session.State().User, nav.Screen(screen)); err != nil {
					return err
				}
			}
			cmd.SetContext(app.WithApp(cmd.Context(), a))
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			a := mustApp(cmd)
			flow := nav.Resolve(a.Session.State().User)
			slog.Debug("Rendering initial route", "flow", flow.Name, "screen", flow.Initial())
			switch flow.Initial() {
			case nav.Home:
				return executeBooks(cmd, a, "text", "")
			default:
				renderSignedOut(cmd.OutOrStdout())
				return nil
			}
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&overrides.APIURL, "api-url", "", "Backend base URL (env BOOKFEED_API_URL)")
	flags.StringVar(&overrides.StateDir, "state-dir", "", "Directory for the session and image cache (env BOOKFEED_STATE_DIR)")
	flags.DurationVar(&overrides.Timeout, "timeout", 0, "HTTP timeout (env BOOKFEED_TIMEOUT)")
	flags.BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	// Add subcommands
	cmd.AddCommand(newLoginCmd())
	cmd.AddCommand(newRegisterCmd())
	cmd.AddCommand(newLogoutCmd())
	cmd.AddCommand(newBooksCmd())
	cmd.AddCommand(newCreateCmd())
	cmd.AddCommand(newProfileCmd())
	cmd.AddCommand(newServeCmd())

	return cmd
}

func setupLogging(w io.Writer, verbose bool) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})))
}

// mustApp returns the App set up by the root PersistentPreRunE
func mustApp(cmd *cobra.Command) *app.App {
	a, ok := app.FromContext(cmd.Context())
	if !ok {
		panic("bookfeed: command ran without an app in its context")
	}
	return a
}

func screen(s nav.Screen) map[string]string {
	return map[string]string{screenAnnotation: string(s)}
}
