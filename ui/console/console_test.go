package console

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/soocke/lipread-go/domain/pipeline"
	"github.com/soocke/lipread-go/domain/stage"
)

func TestConsole_ResultAndStatus(t *testing.T) {
	var buf bytes.Buffer
	c := New(&buf, true, false)
	at := time.Date(2024, 1, 1, 12, 30, 5, 0, time.Local)
	c.Result(pipeline.Event{Kind: pipeline.EventResult, Original: "Bom dia!", Translated: "Good morning!", Confidence: 0.9, Source: "pt", Target: "en", At: at})
	c.Result(pipeline.Event{Kind: pipeline.EventEmpty, At: at})
	c.Status(pipeline.Status{Kind: pipeline.StatusProcessing, At: at})
	c.Status(pipeline.Status{Kind: pipeline.StatusError, Stage: stage.Recognition, Err: errors.New("offline"), At: at})

	out := buf.String()
	for _, want := range []string{"12:30:05", "Bom dia!", "Good morning!", "pt→en", "(90%)", "(no face)", "recognition error: offline"} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "processing") {
		t.Fatalf("processing status should be hidden when not verbose")
	}
	if n := strings.Count(out, "\n"); n != 3 {
		t.Fatalf("expected 3 lines, got %d", n)
	}
}
