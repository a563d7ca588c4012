// Command unsaid is a terminal front-end for the confession board. It runs
// the same client stack the app does: remote data access, local session,
// optimistic mutations and the capture flow.
package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/unsaidapp/unsaid/ai"
	"github.com/unsaidapp/unsaid/client"
	"github.com/unsaidapp/unsaid/internal/config"
	"github.com/unsaidapp/unsaid/models"
)

var (
	serverURL string
	stateDir  string
	verbose   bool

	postKind    string
	postOptions []string
	snapStyle   string
	snapSave    bool
	galleryRm   string

	logger zerolog.Logger
	remote *client.Remote
	local  *client.LocalStore
	svc    *ai.Service
	state  *client.AppState
)

var rootCmd = &cobra.Command{
	Use:   "unsaid",
	Short: "Anonymous confessions from the terminal",
	Long: `unsaid posts, reads and reacts to anonymous confessions.

Identity is a random avatar kept in a local state directory; there are no
accounts. Set GEMINI_API_KEY to get AI mood analysis and photo styling,
without it posts fall back to a neutral mood.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level := zerolog.WarnLevel
		if verbose {
			level = zerolog.DebugLevel
		}
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(level).With().Timestamp().Logger()

		remote = client.NewRemote(serverURL, logger).WithAdminToken(os.Getenv("X_ADMIN_TOKEN"))

		var err error
		local, err = client.NewLocalStore(stateDir, logger)
		if err != nil {
			return err
		}

		svc, err = ai.New(cmd.Context(), &config.AIConfig{
			APIKey:        os.Getenv("GEMINI_API_KEY"),
			AnalysisModel: envOr("UNSAID_ANALYSIS_MODEL", "gemini-2.5-flash"),
			ImageModel:    envOr("UNSAID_IMAGE_MODEL", "gemini-2.5-flash-image-preview"),
		}, logger)
		if err != nil {
			return err
		}

		state = client.NewAppState(remote, svc, local, logger)
		state.UnsafeConfirm = confirmUnsafe
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if local != nil {
			local.Close()
		}
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "Show the feed",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		state.Refresh(cmd.Context())
		printConfessions(state.Confessions())
		return nil
	},
}

var trendingCmd = &cobra.Command{
	Use:   "trending",
	Short: "Show the most-reacted confessions",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		printConfessions(remote.FetchTrending(cmd.Context()))
		return nil
	},
}

var tagsCmd = &cobra.Command{
	Use:   "tags",
	Short: "Show trending tags",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, tc := range remote.FetchTrendingTags(cmd.Context()) {
			fmt.Printf("%4d  #%s\n", tc.Count, tc.Tag)
		}
		return nil
	},
}

var postCmd = &cobra.Command{
	Use:   "post [text]",
	Short: "Post a confession",
	Long: `Posts an anonymous confession. The text is analyzed for mood and tags
before it goes out. Polls take two or more --option flags:

  unsaid post --kind poll --option "yes" --option "no" "skip the 8am?"`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		conf, err := state.CreateConfession(cmd.Context(), client.Draft{
			Kind:        models.PostKind(postKind),
			Text:        strings.Join(args, " "),
			PollOptions: postOptions,
		})
		if err != nil {
			return err
		}
		fmt.Printf("posted %s  %s %s\n", shortID(conf.ID), conf.Emoji, conf.Text)
		if conf.Kind == models.KindPoll {
			for _, o := range conf.PollOptions {
				fmt.Printf("  option %s  %s\n", shortID(o.ID), o.Text)
			}
		}
		return nil
	},
}

var reactCmd = &cobra.Command{
	Use:   "react <id> <heart|hug|laugh|wow|sad>",
	Short: "React to a confession, or clear the same reaction",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		state.Refresh(cmd.Context())
		id, err := resolveID(state, args[0])
		if err != nil {
			return err
		}
		if err := state.ToggleReaction(cmd.Context(), id, models.ReactionKind(args[1])); err != nil {
			return err
		}
		fmt.Println("ok")
		return nil
	},
}

var commentCmd = &cobra.Command{
	Use:   "comment <id> <text>",
	Short: "Comment on a confession",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		state.Refresh(cmd.Context())
		id, err := resolveID(state, args[0])
		if err != nil {
			return err
		}
		c, err := state.AddComment(cmd.Context(), id, strings.Join(args[1:], " "))
		if err != nil {
			return err
		}
		fmt.Printf("commented as %s %s\n", c.Avatar.Emoji, c.Avatar.Name)
		return nil
	},
}

var voteCmd = &cobra.Command{
	Use:   "vote <id> <option-id>",
	Short: "Vote on a poll, once",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		state.Refresh(cmd.Context())
		id, err := resolveID(state, args[0])
		if err != nil {
			return err
		}
		optionID := args[1]
		for _, c := range state.Confessions() {
			if c.ID != id {
				continue
			}
			for _, o := range c.PollOptions {
				if strings.HasPrefix(o.ID, optionID) {
					optionID = o.ID
				}
			}
		}
		if err := state.CastVote(cmd.Context(), id, optionID); err != nil {
			return err
		}
		fmt.Println("voted")
		return nil
	},
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Stream live pushes until interrupted",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Println("watching for pushes, ctrl-c to stop")
		return remote.Subscribe(cmd.Context(), client.SubscribeHandlers{
			OnInsert: func(c models.Confession) {
				state.HandleInsert(c)
				fmt.Printf("new     %s  %s %s\n", shortID(c.ID), c.Emoji, firstLine(c.Text))
			},
			OnUpdate: func(c models.Confession) {
				state.HandleUpdate(c)
				fmt.Printf("update  %s  %d reactions, %d comments\n", shortID(c.ID), c.TotalReactions(), len(c.Comments))
			},
			OnHide: func(id string) {
				state.HandleHide(id)
				fmt.Printf("hidden  %s\n", shortID(id))
			},
		})
	},
}

var snapCmd = &cobra.Command{
	Use:   "snap <image-file>",
	Short: "Run an image through the capture-and-style flow",
	Long: `Treats the image file as a camera frame: mirrors it like a live preview,
then applies an AI style when --style is set. Styling failures keep the
raw capture.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sess := client.NewCaptureSession(client.NewFileFrameSource(args[0]), svc, logger)
		snap, err := sess.CaptureStyled(cmd.Context(), ai.Style(snapStyle))
		if err != nil {
			return err
		}

		styled := snap.Style
		if styled == "" {
			styled = "raw"
		}
		fmt.Printf("snapped %s  %s  %d bytes\n", shortID(snap.ID), styled, len(snap.Image))
		if snapSave {
			if err := client.NewGallery(local, logger).Add(snap); err != nil {
				return err
			}
			fmt.Println("saved to gallery")
		}
		return nil
	},
}

var galleryCmd = &cobra.Command{
	Use:   "gallery",
	Short: "List saved snapshots, or delete one with --rm",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		gallery := client.NewGallery(local, logger)
		if galleryRm != "" {
			for _, s := range gallery.List() {
				if strings.HasPrefix(s.ID, galleryRm) {
					if err := gallery.Remove(s.ID); err != nil {
						return err
					}
					fmt.Println("removed", shortID(s.ID))
					return nil
				}
			}
			return fmt.Errorf("no snapshot with id %s", galleryRm)
		}
		for _, s := range gallery.List() {
			styled := s.Style
			if styled == "" {
				styled = "raw"
			}
			fmt.Printf("%s  %-12s  %d bytes\n", shortID(s.ID), styled, len(s.Image))
		}
		return nil
	},
}

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Show avatar, points and level",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s := state.Session()
		fmt.Printf("%s %s\n", s.Avatar.Emoji, s.Avatar.Name)
		fmt.Printf("level %d, %d points\n", s.Level(), s.Points)
		fmt.Printf("theme %s, %d reactions, %d votes\n", s.Theme, len(s.Reactions), len(s.Votes))
		return nil
	},
}

var themeCmd = &cobra.Command{
	Use:       "theme <dark|light>",
	Short:     "Set the theme preference",
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{"dark", "light"},
	RunE: func(cmd *cobra.Command, args []string) error {
		state.SetTheme(args[0])
		fmt.Println("theme set to", args[0])
		return nil
	},
}

var hideCmd = &cobra.Command{
	Use:   "hide <id>",
	Short: "Hide a confession (needs X_ADMIN_TOKEN)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := remote.HideConfession(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Println("hidden")
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", envOr("UNSAID_SERVER", "http://localhost:8080"), "server base URL")
	rootCmd.PersistentFlags().StringVar(&stateDir, "state", client.DefaultStateDir(), "state directory")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	postCmd.Flags().StringVar(&postKind, "kind", "text", "confession kind: text or poll")
	postCmd.Flags().StringSliceVar(&postOptions, "option", nil, "poll option text (repeat for each option)")
	snapCmd.Flags().StringVar(&snapStyle, "style", "", "style preset: renaissance, anime, cyberpunk or noir")
	snapCmd.Flags().BoolVar(&snapSave, "save", false, "save the snapshot to the gallery")
	galleryCmd.Flags().StringVar(&galleryRm, "rm", "", "delete a snapshot by id")

	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(trendingCmd)
	rootCmd.AddCommand(tagsCmd)
	rootCmd.AddCommand(postCmd)
	rootCmd.AddCommand(reactCmd)
	rootCmd.AddCommand(commentCmd)
	rootCmd.AddCommand(voteCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(snapCmd)
	rootCmd.AddCommand(galleryCmd)
	rootCmd.AddCommand(profileCmd)
	rootCmd.AddCommand(themeCmd)
	rootCmd.AddCommand(hideCmd)
}

func main() {
	_ = godotenv.Load()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// confirmUnsafe is the posting gate for flagged confessions.
func confirmUnsafe(reason string) bool {
	fmt.Printf("this confession was flagged (%s). post anyway? [y/N] ", reason)
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}

// resolveID expands an ID prefix against the loaded feed.
func resolveID(state *client.AppState, prefix string) (string, error) {
	for _, c := range state.Confessions() {
		if strings.HasPrefix(c.ID, prefix) {
			return c.ID, nil
		}
	}
	return "", fmt.Errorf("no confession with id %s", prefix)
}

func printConfessions(list []models.Confession) {
	if len(list) == 0 {
		fmt.Println("nothing here yet")
		return
	}
	for _, c := range list {
		fmt.Printf("%s  %s %-40s  %d reactions  %s\n",
			shortID(c.ID), c.Emoji, firstLine(c.Text), c.TotalReactions(), strings.Join(hashTags(c.Tags), " "))
		if c.Kind == models.KindPoll {
			for _, o := range c.PollOptions {
				fmt.Printf("      [%s] %s  %d votes\n", shortID(o.ID), o.Text, o.Votes)
			}
		}
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	if len(s) > 40 {
		return s[:37] + "..."
	}
	return s
}

func hashTags(tags []string) []string {
	out := make([]string, len(tags))
	for i, t := range tags {
		out[i] = "#" + t
	}
	return out
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
