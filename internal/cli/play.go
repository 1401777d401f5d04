package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"quickrev/internal/app"
	"quickrev/internal/config"
	"quickrev/internal/domain"

	"github.com/spf13/cobra"
)

// NewPlayCmd studies a flashcard file in the terminal.
func NewPlayCmd(configPath *string) *cobra.Command {
	var fileID, mode, user string
	cmd := &cobra.Command{
		Use:   "play",
		Short: "Study a flashcard file in the terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			return runPlay(cmd.Context(), cfg, playOptions{
				fileID: fileID,
				mode:   mode,
				user:   user,
				in:     cmd.InOrStdin(),
				out:    cmd.OutOrStdout(),
			})
		},
	}
	cmd.Flags().StringVar(&fileID, "file-id", "sample", "flashcard file to study")
	cmd.Flags().StringVar(&mode, "mode", "", "normal, quiz, shuffle-normal or shuffle-quiz")
	cmd.Flags().StringVar(&user, "user", os.Getenv("USER"), "user id for the session")
	return cmd
}

type playOptions struct {
	fileID string
	mode   string
	user   string
	in     io.Reader
	out    io.Writer
}

const playHelp = `commands: :next :prev :check :flip :slot N text :restart :quit (anything else is your answer)`

var errQuit = errors.New("quit")

type player struct {
	in      *bufio.Scanner
	out     io.Writer
	step    time.Duration
	session *app.Session
}

func runPlay(ctx context.Context, cfg config.Config, opts playOptions) error {
	if opts.user == "" {
		opts.user = "local"
	}
	st, err := buildStack(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	p := &player{
		in:   bufio.NewScanner(opts.in),
		out:  opts.out,
		step: config.TTLDuration(cfg.Session.CountdownStep, time.Second),
	}

	session, err := p.open(ctx, st.service, opts.user, opts.fileID)
	if err != nil {
		return err
	}
	p.session = session
	defer closeSession(st.service, session.ID())

	mode := opts.mode
	for {
		if err := p.start(ctx, mode); err != nil {
			if errors.Is(err, errQuit) {
				return nil
			}
			return err
		}
		mode = ""
		if err := p.loop(); err != nil {
			if errors.Is(err, errQuit) {
				return nil
			}
			return err
		}
	}
}

func closeSession(service *app.StudyService, id string) {
	if err := service.Close(id); err != nil {
		log.Printf("close session %s: %v", id, err)
	}
}

// open loads the file, offering a retry for retryable failures.
func (p *player) open(ctx context.Context, service *app.StudyService, user, fileID string) (*app.Session, error) {
	for {
		session, err := service.Open(ctx, user, fileID, terminalCue{out: p.out})
		if err == nil {
			fmt.Fprintf(p.out, "loaded %d cards from %s\n", session.Snapshot().Total, fileID)
			return session, nil
		}
		fmt.Fprintf(p.out, "error: %v\n", err)
		if !domain.Retryable(err) {
			return nil, err
		}
		fmt.Fprint(p.out, "retry? [y/N] ")
		line, ok := p.readLine()
		if !ok || !strings.EqualFold(line, "y") {
			return nil, err
		}
	}
}

func (p *player) start(ctx context.Context, raw string) error {
	for {
		if raw == "" {
			fmt.Fprintf(p.out, "choose a mode (%s): ", joinModes())
			line, ok := p.readLine()
			if !ok || line == ":quit" || line == ":q" {
				return errQuit
			}
			raw = line
		}
		mode, err := domain.ParseMode(raw)
		if err == nil {
			err = p.session.SelectMode(mode)
		}
		if err != nil {
			fmt.Fprintf(p.out, "error: %v\n", err)
			raw = ""
			continue
		}
		break
	}

	return app.RunCountdown(ctx, p.session, p.step, func(remaining int) {
		if remaining == 0 {
			fmt.Fprintln(p.out, "Go!")
			return
		}
		fmt.Fprintf(p.out, "%d...\n", remaining)
	})
}

// loop runs until the quiz is scored (nil, back to mode selection) or the user quits.
func (p *player) loop() error {
	fmt.Fprintln(p.out, playHelp)
	p.render()
	for {
		line, ok := p.readLine()
		if !ok {
			return errQuit
		}
		if err := p.handle(line); err != nil {
			if errors.Is(err, errQuit) {
				return err
			}
			fmt.Fprintf(p.out, "error: %v\n", err)
			continue
		}
		if p.session.Phase() == app.PhaseModeSelection {
			return nil
		}
		p.render()
	}
}

func (p *player) handle(line string) error {
	s := p.session
	switch {
	case line == ":quit" || line == ":q":
		return errQuit
	case line == ":next" || line == ":n":
		return s.Navigate(1)
	case line == ":prev" || line == ":p":
		return s.Navigate(-1)
	case line == ":check" || line == ":c":
		_, err := s.Check()
		return err
	case line == ":flip" || line == ":f":
		return s.Flip()
	case line == ":restart":
		return s.Restart()
	case strings.HasPrefix(line, ":slot "):
		fields := strings.SplitN(strings.TrimPrefix(line, ":slot "), " ", 2)
		slot, err := strconv.Atoi(fields[0])
		if err != nil || len(fields) != 2 {
			return fmt.Errorf("usage: :slot N text")
		}
		if s.InputLocked() {
			return errors.New("answer is locked after checking")
		}
		return s.SubmitSlot(slot-1, fields[1])
	default:
		if s.InputLocked() {
			return errors.New("answer is locked after checking")
		}
		return s.SubmitAnswer(line)
	}
}

func (p *player) render() {
	snap := p.session.Snapshot()
	switch {
	case snap.Phase == app.PhaseComplete && snap.Score != nil:
		percent := 0
		if snap.Percent != nil {
			percent = *snap.Percent
		}
		fmt.Fprintf(p.out, "quiz complete: %d/%d (%d%%). :restart or :quit\n", *snap.Score, snap.Total, percent)
		return
	case snap.Finished:
		fmt.Fprintln(p.out, "end of deck. :prev to go back or :quit")
		return
	case snap.Card == nil:
		return
	}

	card := snap.Card
	fmt.Fprintf(p.out, "\n[%d/%d] %s (%s)\n", snap.Index+1, snap.Total, card.Question, card.Type)
	for i, choice := range card.Choices {
		fmt.Fprintf(p.out, "  %c) %s\n", 'a'+i, choice)
	}
	if card.Slots > 0 {
		for i := 0; i < card.Slots; i++ {
			fmt.Fprintf(p.out, "  %d: %s\n", i+1, card.State.Answer.Slots[i])
		}
	} else if card.State.Answer.Text != "" {
		fmt.Fprintf(p.out, "  your answer: %s\n", card.State.Answer.Text)
	}
	if card.CorrectAnswer != nil {
		fmt.Fprintf(p.out, "  answer: %s\n", card.CorrectAnswer)
	}
}

func (p *player) readLine() (string, bool) {
	if !p.in.Scan() {
		return "", false
	}
	return strings.TrimSpace(p.in.Text()), true
}

func joinModes() string {
	names := make([]string, len(domain.Modes))
	for i, m := range domain.Modes {
		names[i] = string(m)
	}
	return strings.Join(names, ", ")
}

// terminalCue prints distinguishable feedback lines instead of tones.
type terminalCue struct {
	out io.Writer
}

func (c terminalCue) Correct()     { fmt.Fprintln(c.out, "♪ correct!") }
func (c terminalCue) Wrong()       { fmt.Fprintln(c.out, "♪ wrong") }
func (c terminalCue) Close() error { return nil }
