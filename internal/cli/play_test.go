package cli

import (
	"bytes"
	"context"
	"log"
	"os"
	"strings"
	"testing"

	"quickrev/internal/app"
	"quickrev/internal/config"
	"quickrev/internal/infra/memory"
)

func playScript(t *testing.T, mode string, lines ...string) string {
	t.Helper()
	var cfg config.Config
	cfg.Session.CountdownStep = "0s"

	var out bytes.Buffer
	err := runPlay(context.Background(), cfg, playOptions{
		fileID: "sample",
		mode:   mode,
		user:   "tester",
		in:     strings.NewReader(strings.Join(lines, "\n") + "\n"),
		out:    &out,
	})
	if err != nil {
		t.Fatalf("runPlay: %v\noutput:\n%s", err, out.String())
	}
	return out.String()
}

func TestPlayQuizScoresSession(t *testing.T) {
	out := playScript(t, "quiz",
		"Mitochondria", ":next",
		"False", ":next",
		"photosynthesis", ":next",
		":slot 1 central nervous system",
		":slot 2 Peripheral Nervous System",
		":next",
		":quit",
	)

	for _, want := range []string{"loaded 4 cards", "3...", "Go!", "[1/4]", "quiz complete: 3/4 (75%)"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output:\n%s", want, out)
		}
	}
}

func TestPlayNormalCheckLocksInput(t *testing.T) {
	out := playScript(t, "normal",
		"Nucleus",
		":check",
		"Mitochondria",
		":quit",
	)

	if !strings.Contains(out, "♪ wrong") {
		t.Fatalf("expected wrong cue:\n%s", out)
	}
	if !strings.Contains(out, "answer: Mitochondria") {
		t.Fatalf("expected answer face after check:\n%s", out)
	}
	if !strings.Contains(out, "answer is locked") {
		t.Fatalf("expected locked input error:\n%s", out)
	}
}

func TestPlayPromptsForModeAndRestarts(t *testing.T) {
	out := playScript(t, "",
		"bogus",
		"shuffle-quiz",
		":next", ":next", ":next", ":next",
		":restart",
		"normal",
		":quit",
	)

	if !strings.Contains(out, "error: ") {
		t.Fatalf("expected unknown mode error:\n%s", out)
	}
	if !strings.Contains(out, "quiz complete: 0/4 (0%)") {
		t.Fatalf("expected empty quiz score:\n%s", out)
	}
	if strings.Count(out, "choose a mode") != 3 {
		t.Fatalf("expected three mode prompts:\n%s", out)
	}
}

func TestPlayUnknownFile(t *testing.T) {
	var cfg config.Config
	var out bytes.Buffer
	err := runPlay(context.Background(), cfg, playOptions{
		fileID: "missing",
		mode:   "normal",
		in:     strings.NewReader(""),
		out:    &out,
	})
	if err == nil {
		t.Fatal("expected error for unknown file")
	}
}

func TestCloseSessionLogsFailure(t *testing.T) {
	var logs bytes.Buffer
	log.SetOutput(&logs)
	defer log.SetOutput(os.Stderr)

	service := app.NewStudyService(memory.NewSessionStore(), memory.NewRecordRepository(memory.NewStaticRecordLoader(sampleFiles()), 0))
	session, err := service.Open(context.Background(), "tester", "sample", app.NopCue{})
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	closeSession(service, session.ID())
	if logs.Len() != 0 {
		t.Fatalf("expected clean close, got log %q", logs.String())
	}

	closeSession(service, session.ID())
	if !strings.Contains(logs.String(), "close session "+session.ID()) {
		t.Fatalf("expected failed close to be logged, got %q", logs.String())
	}
}
