package cmd

import (
	"bufio"
	"fmt"
	"io"
	"log"
	"os"
	"os/user"
	"strings"

	"github.com/fatih/color"
	"github.com/josephlewis42/flowsh/core/logger"
	"github.com/josephlewis42/flowsh/core/shell"
	"github.com/spf13/cobra"
)

var runCommandString string

// runCmd feeds commands through the shell without a prompt.
var runCmd = &cobra.Command{
	Use:   "run [-c COMMAND] [SCRIPT...]",
	Short: "Run commands non-interactively.",
	Long: `Run a command string, script files or standard input line by line.
The process exits with the status of the last command.`,
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

		cfg := shell.Config{
			Environ: os.Environ(),
			Stdin:   cmd.InOrStdin(),
			Stdout:  cmd.OutOrStdout(),
			Stderr:  cmd.ErrOrStderr(),
			Color:   configuration.ShouldColor(!color.NoColor),
		}
		if events != nil {
			cfg.Events = events
			username := ""
			if u, err := user.Current(); err == nil {
				username = u.Username
			}
			recordEvent(events, &logger.SessionStart{User: username})
		}
		sh := shell.New(cfg)

		switch {
		case runCommandString != "":
			err = runLines(sh, "-c", strings.NewReader(runCommandString))
		case len(args) == 0:
			err = runLines(sh, "stdin", cmd.InOrStdin())
		default:
			for _, path := range args {
				if err = runScript(sh, path); err != nil || sh.Quit {
					break
				}
			}
		}
		if err != nil {
			return err
		}

		status := sh.PreviousStatus()
		if sh.Quit {
			status = sh.ExitStatus
		}
		if events != nil {
			recordEvent(events, &logger.SessionEnd{Status: status})
		}
		if status != shell.StatusSuccess {
			closer.Close()
			os.Exit(status)
		}
		return nil
	},
}

func runScript(sh *shell.Shell, path string) error {
	fd, err := os.Open(path)
	if err != nil {
		return err
	}
	defer fd.Close()

	return runLines(sh, path, fd)
}

func recordEvent(events *logger.SessionLogger, event logger.Event) {
	if err := events.Record(event); err != nil {
		log.Printf("Couldn't record event: %v", err)
	}
}

// runLines feeds r to the shell a line at a time, the way a terminal would.
// Lines ending in a backslash are joined with the next one. A block still
// open at the end of the input is reported and discarded.
func runLines(sh *shell.Shell, name string, r io.Reader) error {
	var continued []string

	scanner := bufio.NewScanner(r)
	for !sh.Quit && scanner.Scan() {
		line := scanner.Text()
		if continuesLine(line) {
			continued = append(continued, line)
			continue
		}

		sh.OnCommand(strings.Join(append(continued, line), "\n"))
		continued = nil
	}
	if err := scanner.Err(); err != nil {
		return err
	}

	if len(continued) > 0 && !sh.Quit {
		sh.OnCommand(strings.Join(continued, "\n"))
	}

	if sh.Flow.Pending() {
		fmt.Fprintf(sh.Stderr, "flowsh: %s: unterminated block\n", name)
		sh.ResetFlowControl()
	}
	return nil
}

// continuesLine reports whether line ends in an unescaped backslash.
func continuesLine(line string) bool {
	trailing := len(line) - len(strings.TrimRight(line, `\`))
	return trailing%2 == 1
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().StringVarP(&runCommandString, "command", "c", "", "command to run")
}
