package main

import (
	"fmt"

	"github.com/Belphemur/HlsGrab/internal/config"
	"github.com/Belphemur/HlsGrab/internal/models"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// flagKeys maps command-line flags to configuration keys. Flags override the
// config file and environment when set.
var flagKeys = map[string]string{
	"media-root":    "media_root",
	"anime":         "anime_name",
	"concurrency":   "concurrency",
	"keep-segments": "keep_segments",
	"log-level":     "log_level",
}

type rootCommand struct {
	*cobra.Command

	configFile string
	quiet      bool
	app        *app
}

func newRootCommand() *rootCommand {
	root := &rootCommand{}
	root.Command = &cobra.Command{
		Use:           "hlsgrab",
		Short:         "Download HLS episodes and merge their segments into one video",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return root.setup(cmd)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&root.configFile, "config", "", "Path to the config file (default: ./config.yaml or ./config/config.yaml)")
	flags.String("media-root", "", "Directory anime folders are created in (default: the user's video directory)")
	flags.String("anime", "", "Anime name, used as the folder below the media root")
	flags.String("log-level", "", "Log level (trace, debug, info, warn, error)")
	flags.BoolVarP(&root.quiet, "quiet", "q", false, "Disable the progress bar")

	root.AddCommand(
		root.newDownloadCommand(),
		root.newBatchCommand(),
		root.newMergeCommand(),
	)
	return root
}

// setup resolves the configuration once, then builds every component from it.
func (r *rootCommand) setup(cmd *cobra.Command) error {
	v := config.NewViper(r.configFile)
	var bindErr error
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if key, ok := flagKeys[f.Name]; ok && bindErr == nil {
			bindErr = v.BindPFlag(key, f)
		}
	})
	if bindErr != nil {
		return bindErr
	}

	cfg, err := config.FromViper(v)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	config.ConfigureLogger(cfg.LogLevel)

	a, err := newApp(cfg, !r.quiet)
	if err != nil {
		return fmt.Errorf("initialize: %w", err)
	}
	r.app = a
	return nil
}

func (r *rootCommand) newDownloadCommand() *cobra.Command {
	var ep models.EpisodeDescriptor

	cmd := &cobra.Command{
		Use:   "download",
		Short: "Download and merge a single episode",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if ep.PlaylistURL == "" && ep.SourceURL == "" {
				return fmt.Errorf("one of --playlist or --source is required")
			}
			_, err := r.app.processEpisode(cmd.Context(), ep)
			return err
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&ep.Name, "episode", "", "Episode name, used as its folder and video file name")
	flags.StringVar(&ep.PlaylistURL, "playlist", "", "Media playlist (.m3u8) URL")
	flags.StringVar(&ep.SourceURL, "source", "", "Episode page to find the playlist URL in")
	flags.Int("concurrency", 0, "Maximum number of segments downloaded in parallel")
	flags.Bool("keep-segments", false, "Keep segment files after merging")
	_ = cmd.MarkFlagRequired("episode")
	return cmd
}

func (r *rootCommand) newBatchCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Download every episode listed in the config file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return r.app.processAnime(cmd.Context())
		},
	}

	flags := cmd.Flags()
	flags.Int("concurrency", 0, "Maximum number of segments downloaded in parallel")
	flags.Bool("keep-segments", false, "Keep segment files after merging")
	return cmd
}

func (r *rootCommand) newMergeCommand() *cobra.Command {
	var episode string

	cmd := &cobra.Command{
		Use:   "merge",
		Short: "Merge the segments already downloaded for an episode",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return r.app.remerge(episode)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&episode, "episode", "", "Episode name")
	flags.Bool("keep-segments", false, "Keep segment files after merging")
	_ = cmd.MarkFlagRequired("episode")
	return cmd
}
