package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/huangsam/folio/core/egg"
	"github.com/huangsam/folio/internal/contract"
	"github.com/huangsam/folio/internal/outwriter"
	"github.com/huangsam/folio/schema"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// newSequencer creates a sequencer over the default saga using the configured gesture window.
func newSequencer() *egg.Sequencer {
	return egg.NewDefault(egg.WithGestureWindow(cfg.GestureWindow))
}

// eggsCmd groups the easter-egg commands.
var eggsCmd = &cobra.Command{
	Use:   "eggs",
	Short: "Play the hidden easter-egg saga",
	Long: `Unlock five chapters strictly in order.

The first chapter wakes after five quick logo taps. Every later chapter is unlocked by typing
a secret word. Each unlocked chapter reveals the hint for the next one.

Subcommands:
  play     - Interactive terminal player
  simulate - Replay a scripted input

Examples:
  folio eggs play
  folio eggs simulate --input '@@@@@vercetti'`,
}

// eggsPlayCmd runs the saga in a raw-mode terminal.
var eggsPlayCmd = &cobra.Command{
	Use:   "play",
	Short: "Play the saga interactively",
	Long: `Play the saga in the terminal.

Keys:
  * or Enter  tap the logo
  a-z         type secrets
  Esc         clear typed input
  Ctrl-C/D    quit`,
	PreRunE: configSetup,
	RunE: func(_ *cobra.Command, _ []string) error {
		fd := int(os.Stdin.Fd())
		if !term.IsTerminal(fd) {
			return errors.New("eggs play needs an interactive terminal. Use eggs simulate instead")
		}
		oldState, err := term.MakeRaw(fd)
		if err != nil {
			return fmt.Errorf("failed to enter raw mode: %w", err)
		}
		defer func() { _ = term.Restore(fd, oldState) }()

		out := crlfWriter{w: os.Stdout}
		ow := outwriter.NewOutWriterTo(out, crlfWriter{w: os.Stderr})
		seq := newSequencer()
		printHint(out, seq.Hint())
		_, _ = fmt.Fprintln(out, "Tap with * or Enter, type secrets, Esc clears input, Ctrl-C quits.")

		onChapter := func(active egg.ActiveChapter, progress egg.Progress) {
			ow.WriteChapter(active, progress, cfg)
			if !progress.Complete() {
				printHint(out, seq.Hint())
			}
		}

		reader := bufio.NewReader(os.Stdin)
		for {
			b, err := reader.ReadByte()
			if errors.Is(err, io.EOF) {
				return nil
			}
			if err != nil {
				return fmt.Errorf("failed to read input: %w", err)
			}
			if playKey(seq, b, onChapter) {
				_, _ = fmt.Fprintln(out, seq.Progress())
				return nil
			}
		}
	},
}

// eggsSimulateCmd replays a script against a fresh saga.
var eggsSimulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Replay scripted input against the saga",
	Long: `Replay a script against a fresh saga and print every unlocked chapter followed by the final state.

Script symbols:
  @  tap the logo
  ~  clear typed input
  anything else is a keystroke (only a-z counts)

Examples:
  folio eggs simulate --input '@@@@@vercetti~tailungwaynekrypton'
  folio eggs simulate --input '@@@@@' --output json`,
	PreRunE: configSetup,
	RunE: func(cmd *cobra.Command, _ []string) error {
		script, err := cmd.Flags().GetString("input")
		if err != nil {
			return err
		}
		if script == "" {
			return errors.New("--input is required for simulate command")
		}

		ow := outwriter.NewOutWriter()
		seq := newSequencer()
		replayScript(seq, script, func(active egg.ActiveChapter, progress egg.Progress) {
			// Structured output carries only the final state
			if cfg.Output == schema.TextOut {
				ow.WriteChapter(active, progress, cfg)
			}
		})
		return ow.WriteEggState(seq.Snapshot(), cfg)
	},
}

func printHint(w io.Writer, hint string) {
	_, _ = fmt.Fprintln(w, contract.HintColor.Sprint("Hint: "+hint))
}
