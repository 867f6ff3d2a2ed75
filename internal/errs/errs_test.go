package errs

import (
	"errors"
	"strings"
	"testing"
)

func TestCollisionErrorMessage(t *testing.T) {
	err := &CollisionError{Path: "out/castle.LOD0.glb"}
	msg := err.Error()
	if !strings.Contains(msg, "out/castle.LOD0.glb") {
		t.Errorf("message missing path: %q", msg)
	}
	if got := strings.Count(msg, "-force"); got != 1 {
		t.Errorf("overwrite hint appears %d times in %q, want 1", got, msg)
	}
}

func TestInvalidfMessage(t *testing.T) {
	err := Invalidf("ratio %g out of range", 1.5)
	msg := err.Error()
	if msg != "invalid input: ratio 1.5 out of range" {
		t.Errorf("unexpected message %q", msg)
	}
	if got := strings.Count(msg, "invalid input:"); got != 1 {
		t.Errorf("prefix appears %d times", got)
	}
}

func TestToolErrorUnwrap(t *testing.T) {
	base := errors.New("exit status 3")
	err := &ToolError{Tool: "engine", Detail: "boom", Err: base}
	if !errors.Is(err, base) {
		t.Error("ToolError should unwrap to the underlying error")
	}
	if !strings.Contains(err.Error(), "boom") {
		t.Errorf("message missing detail: %q", err.Error())
	}
}
