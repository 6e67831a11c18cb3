package cmd

import (
	"fmt"
	"io"
	"os"
	"os/user"

	"github.com/abiosoft/readline"
	"github.com/josephlewis42/flowsh/core"
	"github.com/josephlewis42/flowsh/core/ttylog"
	"github.com/spf13/cobra"
)

const defaultHeight = 24

var recordPath string

// replCmd runs an interactive shell on the local terminal.
var replCmd = &cobra.Command{
	Use:   "repl",
	Short: "Start an interactive shell.",
	Args:  cobra.ExactArgs(0),
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true

		configuration, err := loadConfig()
		if err != nil {
			return err
		}

		events, closer, err := openEvents(configuration)
		if err != nil {
			return err
		}
		defer closer.Close()

		term := core.Terminal{
			Stdin:      os.Stdin,
			Stdout:     cmd.OutOrStdout(),
			Stderr:     cmd.ErrOrStderr(),
			IsTerminal: readline.DefaultIsTerminal(),
			Width:      readline.GetScreenWidth,
		}

		if recordPath != "" {
			fd, err := os.Create(recordPath)
			if err != nil {
				return err
			}
			defer fd.Close()

			width := readline.GetScreenWidth()
			if width <= 0 {
				width = 80
			}
			sink := ttylog.NewSynchronizedSink(ttylog.NewAsciicastLogSink(fd, width, defaultHeight))
			term.Stdin = io.TeeReader(term.Stdin, ttylog.NewRecorder(ttylog.FDStdin, sink, nil))
			term.Stdout = io.MultiWriter(term.Stdout, ttylog.NewRecorder(ttylog.FDStdout, sink, nil))
			term.Stderr = io.MultiWriter(term.Stderr, ttylog.NewRecorder(ttylog.FDStderr, sink, nil))
		}

		username, hostname := "", "localhost"
		if u, err := user.Current(); err == nil {
			username = u.Username
		}
		if h, err := os.Hostname(); err == nil {
			hostname = h
		}

		opts := core.SessionOptions{
			User:     username,
			Hostname: hostname,
			Environ:  os.Environ(),
			Terminal: term,
		}
		if events != nil {
			opts.Events = events
		}

		session, err := core.NewSession(configuration, opts)
		if err != nil {
			return err
		}

		status := session.Run()
		if recordPath != "" {
			fmt.Fprintf(cmd.ErrOrStderr(), "Recorded session to %s\n", recordPath)
		}
		if status != 0 {
			closer.Close()
			os.Exit(status)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(replCmd)
	replCmd.Flags().StringVar(&recordPath, "record", "", "record the session to an asciicast file")
}
