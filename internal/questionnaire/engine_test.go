package questionnaire

import (
	"errors"
	"testing"
)

func newTestEngine(t *testing.T, n int) *Engine {
	t.Helper()
	ids := make([]string, n)
	options := make(map[string][]string, n)
	for i := range ids {
		ids[i] = string(rune('p' + i))
		options[ids[i]] = []string{"yes", "no"}
	}
	e, err := newEngine(ids, options)
	if err != nil {
		t.Fatalf("newEngine: %v", err)
	}
	return e
}

func TestAdvanceRequiresAnswer(t *testing.T) {
	e := newTestEngine(t, 3)
	if err := e.Advance(); !errors.Is(err, ErrMissingAnswer) {
		t.Fatalf("Advance err = %v, want ErrMissingAnswer", err)
	}
	if e.Position() != 0 {
		t.Errorf("position = %d, want 0", e.Position())
	}

	// An answer for another question does not unlock the current one.
	e.SelectAnswer("q", "yes")
	if err := e.Advance(); !errors.Is(err, ErrMissingAnswer) {
		t.Fatalf("Advance err = %v, want ErrMissingAnswer", err)
	}

	e.SelectAnswer("p", "yes")
	if err := e.Advance(); err != nil {
		t.Fatalf("Advance: %v", err)
	}
	if e.Position() != 1 {
		t.Errorf("position = %d, want 1", e.Position())
	}
}

func TestAdvanceAtLastQuestionIsNoop(t *testing.T) {
	e := newTestEngine(t, 2)
	e.SelectAnswer("p", "yes")
	e.SelectAnswer("q", "no")
	_ = e.Advance()
	if !e.IsLast() {
		t.Fatal("expected last question")
	}
	if err := e.Advance(); err != nil {
		t.Fatalf("Advance at last: %v", err)
	}
	if e.Position() != 1 {
		t.Errorf("position = %d, want 1", e.Position())
	}
	if e.Submitted() {
		t.Error("Advance must not submit")
	}
}

func TestRetreat(t *testing.T) {
	e := newTestEngine(t, 3)
	e.Retreat()
	if e.Position() != 0 {
		t.Fatalf("retreat at start moved to %d", e.Position())
	}

	e.SelectAnswer("p", "yes")
	e.SelectAnswer("q", "no")
	_ = e.Advance()
	_ = e.Advance()
	start := e.Position()

	e.Retreat()
	if e.Position() != start-1 {
		t.Fatalf("position = %d, want %d", e.Position(), start-1)
	}
	if _, ok := e.Answer("p"); !ok {
		t.Error("retreat must keep answers")
	}
	if err := e.Advance(); err != nil {
		t.Fatalf("Advance: %v", err)
	}
	if e.Position() != start {
		t.Errorf("retreat then advance: position = %d, want %d", e.Position(), start)
	}
}

func TestSelectCurrent(t *testing.T) {
	e := newTestEngine(t, 2)
	if err := e.SelectCurrent("maybe"); !errors.Is(err, ErrUnknownOption) {
		t.Fatalf("SelectCurrent err = %v, want ErrUnknownOption", err)
	}
	if _, ok := e.Answer("p"); ok {
		t.Fatal("rejected option must not be recorded")
	}
	if err := e.SelectCurrent("no"); err != nil {
		t.Fatalf("SelectCurrent: %v", err)
	}
	if got, _ := e.Answer("p"); got != "no" {
		t.Errorf("answer = %q, want no", got)
	}
	// Overwrite.
	if err := e.SelectCurrent("yes"); err != nil {
		t.Fatalf("SelectCurrent: %v", err)
	}
	if got, _ := e.Answer("p"); got != "yes" {
		t.Errorf("answer = %q, want yes", got)
	}
}

func TestSubmittedEngineIsReadOnly(t *testing.T) {
	e := newTestEngine(t, 2)
	e.SelectAnswer("p", "yes")
	if err := e.markSubmitted(); err != nil {
		t.Fatalf("markSubmitted: %v", err)
	}
	e.SelectAnswer("p", "no")
	if got, _ := e.Answer("p"); got != "yes" {
		t.Errorf("answer changed after submit: %q", got)
	}
	if err := e.Advance(); !errors.Is(err, ErrSubmitted) {
		t.Errorf("Advance err = %v, want ErrSubmitted", err)
	}
	if err := e.SelectCurrent("no"); !errors.Is(err, ErrSubmitted) {
		t.Errorf("SelectCurrent err = %v, want ErrSubmitted", err)
	}
}

func TestProgress(t *testing.T) {
	e := newTestEngine(t, 3)
	want := []int{33, 67, 100}
	for i, w := range want {
		if got := e.Progress(); got != w {
			t.Errorf("step %d: progress = %d, want %d", i, got, w)
		}
		e.SelectAnswer(e.ids[e.position], "yes")
		_ = e.Advance()
	}
}

func TestAnswersReturnsCopy(t *testing.T) {
	e := newTestEngine(t, 1)
	e.SelectAnswer("p", "yes")
	m := e.Answers()
	m["p"] = "no"
	if got, _ := e.Answer("p"); got != "yes" {
		t.Errorf("Answers leaked internal map: answer = %q", got)
	}
}

func TestIndependentEngines(t *testing.T) {
	a := newTestEngine(t, 2)
	b := newTestEngine(t, 2)
	a.SelectAnswer("p", "yes")
	if _, ok := b.Answer("p"); ok {
		t.Error("engines share answer state")
	}
}
