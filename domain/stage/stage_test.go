package stage

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestWrap_MatchesSentinelAndCause(t *testing.T) {
	cause := context.DeadlineExceeded
	err := Wrap(Translation, cause)
	if !errors.Is(err, ErrTranslation) {
		t.Fatalf("expected ErrTranslation match, got %v", err)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected cause to stay reachable")
	}
	if errors.Is(err, ErrRecognition) {
		t.Fatalf("unexpected match on other kind")
	}
	if KindOf(fmt.Errorf("outer: %w", err)) != Translation {
		t.Fatalf("expected kind through wrapping")
	}
}

func TestWrap_NilAndIdempotent(t *testing.T) {
	if Wrap(Detection, nil) != nil {
		t.Fatalf("nil should stay nil")
	}
	first := Wrap(Detection, errors.New("bad frame"))
	if again := Wrap(Detection, first); again != first {
		t.Fatalf("expected same error back when already tagged")
	}
	if KindOf(errors.New("plain")) != 0 {
		t.Fatalf("untagged error should have no kind")
	}
}
