// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

func configFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to configuration file",
		Value:   defaultConfigPath,
	}
}

func outputFlags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{
			Name:  "json",
			Usage: "Output raw JSON",
		},
		&cli.BoolFlag{
			Name:  "pretty",
			Usage: "Pretty-print output",
			Value: true,
		},
	}
}

// setupCommand handles setup operations for configuration and storage.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "setup",
		Usage:  "Create the config file and initialize storage",
		Flags:  []cli.Flag{configFlag()},
		Action: r.Setup,
	}
}

// authCommand runs the Spotify authorization flow.
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Authenticate with Spotify using OAuth2",
		Flags: []cli.Flag{
			configFlag(),
			&cli.DurationFlag{
				Name:  "timeout",
				Usage: "How long to wait for the browser callback",
				Value: authTimeout,
			},
			&cli.BoolFlag{
				Name:  "no-browser",
				Usage: "Print the authorization URL instead of opening a browser",
			},
		},
		Action: r.Auth,
	}
}

// playerCommand handles playback control.
func playerCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "player",
		Aliases: []string{"p"},
		Usage:   "Inspect and control playback",
		Commands: []*cli.Command{
			{
				Name:   "status",
				Usage:  "Show the current playback state",
				Flags:  outputFlags(),
				Action: r.PlayerStatus,
			},
			{
				Name:  "watch",
				Usage: "Follow playback state changes",
				Flags: []cli.Flag{
					&cli.DurationFlag{
						Name:  "for",
						Usage: "Stop after this long (0 runs until interrupted)",
					},
					&cli.BoolFlag{
						Name:  "progress",
						Usage: "Also print progress ticks",
					},
				},
				Action: r.PlayerWatch,
			},
			{
				Name:  "play",
				Usage: "Resume playback, or start a context URI",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "uri"},
				},
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "offset",
						Usage: "Track URI to start the context at",
					},
				},
				Action: r.PlayerPlay,
			},
			{
				Name:   "pause",
				Usage:  "Pause playback",
				Action: r.PlayerPause,
			},
			{
				Name:   "next",
				Usage:  "Skip to the next track",
				Action: r.PlayerNext,
			},
			{
				Name:    "previous",
				Aliases: []string{"prev"},
				Usage:   "Skip to the previous track",
				Action:  r.PlayerPrevious,
			},
			{
				Name:  "seek",
				Usage: "Seek to a position (90s, 1m30s or 1:30)",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "position"},
				},
				Action: r.PlayerSeek,
			},
			{
				Name:  "shuffle",
				Usage: "Turn shuffle on or off",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "state"},
				},
				Action: r.PlayerShuffle,
			},
			{
				Name:  "repeat",
				Usage: "Set the repeat mode (off, context, track)",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "mode"},
				},
				Action: r.PlayerRepeat,
			},
			{
				Name:  "volume",
				Usage: "Set the volume (0-100)",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "percent"},
				},
				Action: r.PlayerVolume,
			},
			{
				Name:   "devices",
				Usage:  "List available playback devices",
				Flags:  outputFlags(),
				Action: r.PlayerDevices,
			},
			{
				Name:  "transfer",
				Usage: "Move playback to a device",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "device"},
				},
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "play",
						Usage: "Start playing on the new device",
					},
				},
				Action: r.PlayerTransfer,
			},
		},
	}
}

// libraryCommand handles saved-track operations.
func libraryCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "library",
		Aliases: []string{"lib"},
		Usage:   "Saved-track library operations",
		Commands: []*cli.Command{
			{
				Name:   "sync",
				Usage:  "Load the saved tracks, downloading them when storage is stale",
				Action: r.LibrarySync,
			},
			{
				Name:   "count",
				Usage:  "Compare the remote and stored saved-track counts",
				Flags:  outputFlags(),
				Action: r.LibraryCount,
			},
			{
				Name:  "search",
				Usage: "Fuzzy search the saved tracks",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "query"},
				},
				Flags: append([]cli.Flag{
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of results",
						Value: 20,
					},
				}, outputFlags()...),
				Action: r.LibrarySearch,
			},
			{
				Name:  "export",
				Usage: "Export the saved tracks",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Usage:   "Export format (json, csv, markdown, text)",
						Value:   "json",
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output file path",
					},
				},
				Action: r.LibraryExport,
			},
		},
	}
}

// tuiCommand returns the top-level TUI command.
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "tui",
		Aliases: []string{"interactive", "ui"},
		Usage:   "Launch the interactive now-playing view",
		Action:  r.TUI,
	}
}
