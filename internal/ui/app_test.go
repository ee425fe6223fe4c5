package ui

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea/v2"
	"github.com/sttts/kubexp/internal/explain"
	kxtesting "github.com/sttts/kubexp/internal/testing"
)

// fakeExplainer answers from a map. When block is set, Explain waits for it
// to close or for the lookup context to be cancelled.
type fakeExplainer struct {
	mu        sync.Mutex
	resources string
	answers   map[string]string
	block     chan struct{}
	queries   []string
	ctxErr    error
}

func (f *fakeExplainer) APIResources(ctx context.Context) string {
	return f.resources
}

func (f *fakeExplainer) Explain(ctx context.Context, path string) string {
	f.mu.Lock()
	f.queries = append(f.queries, path)
	block := f.block
	f.mu.Unlock()
	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			f.mu.Lock()
			f.ctxErr = ctx.Err()
			f.mu.Unlock()
			return "cancelled"
		}
	}
	return f.answers[path]
}

func press(code rune, text string, mod tea.KeyMod) tea.KeyPressMsg {
	return tea.KeyPressMsg{Code: code, Text: text, Mod: mod}
}

func typeText(a *App, s string) {
	for _, r := range s {
		a.Update(press(r, string(r), 0))
	}
}

func update(a *App, msg tea.Msg) tea.Cmd {
	_, cmd := a.Update(msg)
	return cmd
}

// runCmd executes cmd and everything it batches, synchronously, and returns
// the produced messages. Ticks are real, so this takes at least busyDelay
// when a lookup was started.
func runCmd(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		var out []tea.Msg
		for _, c := range batch {
			out = append(out, runCmd(c)...)
		}
		return out
	}
	return []tea.Msg{msg}
}

func lookupResult(t *testing.T, cmd tea.Cmd) lookupResultMsg {
	t.Helper()
	if cmd == nil {
		t.Fatalf("expected a lookup command, got nil")
	}
	for _, m := range runCmd(cmd) {
		if r, ok := m.(lookupResultMsg); ok {
			return r
		}
	}
	t.Fatalf("command produced no lookup result")
	return lookupResultMsg{}
}

func newTestApp(ex Explainer) *App {
	return NewApp(context.Background(), Options{Explainer: ex, HistoryLimit: 10})
}

func TestNewAppStartsEditing(t *testing.T) {
	a := newTestApp(&fakeExplainer{})
	if a.Mode() != ModeEditing {
		t.Fatalf("expected editing mode, got %s", a.Mode())
	}
	if a.Input() != "" || a.Output() != "" {
		t.Fatalf("expected empty buffers, got input=%q output=%q", a.Input(), a.Output())
	}
}

func TestInitPrefetchesResources(t *testing.T) {
	a := newTestApp(&fakeExplainer{resources: "pods\nservices\n"})
	cmd := a.Init()
	if !a.Pending() {
		t.Fatalf("expected prefetch to be pending")
	}
	update(a, lookupResult(t, cmd))
	if a.Output() != "pods\nservices\n" {
		t.Fatalf("unexpected output %q", a.Output())
	}
	if a.Pending() {
		t.Fatalf("expected lookup to be finished")
	}
}

func TestTypingAppends(t *testing.T) {
	a := newTestApp(&fakeExplainer{})
	typeText(a, "pod.spec")
	if a.Input() != "pod.spec" {
		t.Fatalf("expected %q, got %q", "pod.spec", a.Input())
	}
}

func TestBackspace(t *testing.T) {
	a := newTestApp(&fakeExplainer{})
	update(a, press(tea.KeyBackspace, "", 0))
	if a.Input() != "" {
		t.Fatalf("backspace on empty input changed it to %q", a.Input())
	}
	typeText(a, "héllo")
	update(a, press(tea.KeyBackspace, "", 0))
	if a.Input() != "héll" {
		t.Fatalf("expected %q, got %q", "héll", a.Input())
	}
}

func TestModifiedKeysAreNotTyped(t *testing.T) {
	a := newTestApp(&fakeExplainer{})
	update(a, press('a', "a", tea.ModCtrl))
	update(a, press('b', "b", tea.ModAlt))
	if a.Input() != "" {
		t.Fatalf("expected modified keys to be ignored, got %q", a.Input())
	}
	update(a, press('A', "A", tea.ModShift))
	if a.Input() != "A" {
		t.Fatalf("expected shifted key to be typed, got %q", a.Input())
	}
}

func TestShortcutsAreTypedWhileEditing(t *testing.T) {
	a := newTestApp(&fakeExplainer{})
	for _, r := range "iq" {
		if cmd := update(a, press(r, string(r), 0)); cmd != nil {
			t.Fatalf("%q returned a command while editing", r)
		}
	}
	if a.Input() != "iq" || a.Mode() != ModeEditing {
		t.Fatalf("expected literal input in editing mode, got %q in %s", a.Input(), a.Mode())
	}
}

func TestModeSwitching(t *testing.T) {
	a := newTestApp(&fakeExplainer{})
	typeText(a, "svc")

	update(a, press(tea.KeyEsc, "", 0))
	if a.Mode() != ModeNormal {
		t.Fatalf("expected normal mode after Esc, got %s", a.Mode())
	}
	if a.Input() != "svc" {
		t.Fatalf("Esc must keep the input, got %q", a.Input())
	}

	// In normal mode other keys do nothing
	for _, k := range []tea.KeyPressMsg{press('x', "x", 0), press(tea.KeyEnter, "", 0), press(tea.KeyBackspace, "", 0)} {
		if cmd := update(a, k); cmd != nil {
			t.Fatalf("key %q returned a command in normal mode", k.String())
		}
	}
	if a.Input() != "svc" || a.Mode() != ModeNormal {
		t.Fatalf("normal mode keys changed state: input=%q mode=%s", a.Input(), a.Mode())
	}

	update(a, press('i', "i", 0))
	if a.Mode() != ModeEditing {
		t.Fatalf("expected editing mode after i, got %s", a.Mode())
	}
	if a.Input() != "svc" {
		t.Fatalf("i must not be typed when entering edit mode, got %q", a.Input())
	}
}

func TestQuitInNormalMode(t *testing.T) {
	a := newTestApp(&fakeExplainer{})
	update(a, press(tea.KeyEsc, "", 0))
	cmd := update(a, press('q', "q", 0))
	if cmd == nil {
		t.Fatalf("expected a quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatalf("expected tea.QuitMsg")
	}
}

func TestSubmitShowsExplainOutput(t *testing.T) {
	ex := &fakeExplainer{answers: map[string]string{"pod": "kind: Pod"}}
	a := newTestApp(ex)
	typeText(a, "pod")

	cmd := update(a, press(tea.KeyEnter, "", 0))
	if !a.Pending() {
		t.Fatalf("expected lookup to be pending")
	}
	update(a, lookupResult(t, cmd))

	if a.Output() != "kind: Pod" {
		t.Fatalf("expected %q, got %q", "kind: Pod", a.Output())
	}
	if a.Mode() != ModeEditing {
		t.Fatalf("expected to stay in editing mode, got %s", a.Mode())
	}
	if a.Input() != "pod" {
		t.Fatalf("submit must keep the input, got %q", a.Input())
	}
	if h := a.History(); len(h) != 1 || h[0] != "pod" {
		t.Fatalf("expected history [pod], got %v", h)
	}
}

type failingRunner struct{}

func (failingRunner) Run(ctx context.Context, name string, args ...string) (explain.Output, error) {
	return explain.Output{}, context.DeadlineExceeded
}

func TestSubmitLaunchFailureShowsText(t *testing.T) {
	a := newTestApp(explain.NewClient(failingRunner{}, explain.Options{}))
	typeText(a, "pod")
	update(a, lookupResult(t, update(a, press(tea.KeyEnter, "", 0))))
	if a.Output() == "" {
		t.Fatalf("expected failure text in output")
	}
	if !strings.Contains(a.Output(), "kubectl explain pod") {
		t.Fatalf("expected command line in failure text, got %q", a.Output())
	}
}

func TestEnterWhilePendingIsIgnored(t *testing.T) {
	ex := &fakeExplainer{answers: map[string]string{"pod": "kind: Pod"}}
	a := newTestApp(ex)
	typeText(a, "pod")
	first := update(a, press(tea.KeyEnter, "", 0))
	if cmd := update(a, press(tea.KeyEnter, "", 0)); cmd != nil {
		t.Fatalf("second Enter started another lookup")
	}
	update(a, lookupResult(t, first))
	if a.Output() != "kind: Pod" {
		t.Fatalf("unexpected output %q", a.Output())
	}
}

func TestStaleResultIsDropped(t *testing.T) {
	a := newTestApp(&fakeExplainer{})
	a.output = "current"
	update(a, lookupResultMsg{token: 42, text: "stale"})
	if a.Output() != "current" {
		t.Fatalf("stale result replaced output: %q", a.Output())
	}
}

func TestCtrlCCancelsLookup(t *testing.T) {
	ex := &fakeExplainer{block: make(chan struct{})}
	a := newTestApp(ex)
	typeText(a, "pod")
	cmd := update(a, press(tea.KeyEnter, "", 0))

	results := make(chan lookupResultMsg, 1)
	go func() {
		for _, m := range runCmd(cmd) {
			if r, ok := m.(lookupResultMsg); ok {
				results <- r
			}
		}
	}()

	kxtesting.Eventually(t, 5*time.Second, 10*time.Millisecond, func() bool {
		ex.mu.Lock()
		defer ex.mu.Unlock()
		return len(ex.queries) == 1
	}, "explainer was never called")

	update(a, press('c', "", tea.ModCtrl))
	select {
	case r := <-results:
		update(a, r)
	case <-time.After(5 * time.Second):
		close(ex.block)
		t.Fatalf("lookup was not cancelled")
	}
	if a.Output() != "cancelled" {
		t.Fatalf("expected cancellation text, got %q", a.Output())
	}
	ex.mu.Lock()
	defer ex.mu.Unlock()
	if ex.ctxErr != context.Canceled {
		t.Fatalf("expected context.Canceled, got %v", ex.ctxErr)
	}
}

func TestBusyMessagesFollowPendingLookup(t *testing.T) {
	a := newTestApp(&fakeExplainer{})
	a.Init()
	tok := a.pending

	if cmd := update(a, busyShowMsg{token: tok}); cmd == nil {
		t.Fatalf("expected spinner tick to be scheduled")
	}
	if !a.busyVisible {
		t.Fatalf("expected spinner to be visible")
	}
	update(a, busyTickMsg{token: tok})
	if a.busyFrame != 1 {
		t.Fatalf("expected frame 1, got %d", a.busyFrame)
	}

	update(a, lookupResultMsg{token: tok, text: "done"})
	if a.busyVisible {
		t.Fatalf("spinner still visible after result")
	}
	if cmd := update(a, busyTickMsg{token: tok}); cmd != nil {
		t.Fatalf("tick for a finished lookup rescheduled itself")
	}
}

func TestHistoryRecall(t *testing.T) {
	ex := &fakeExplainer{answers: map[string]string{}}
	a := newTestApp(ex)
	for _, q := range []string{"pod", "svc"} {
		a.input = []rune(q)
		update(a, lookupResult(t, update(a, press(tea.KeyEnter, "", 0))))
	}
	a.input = []rune("dra")

	update(a, press(tea.KeyUp, "", 0))
	if a.Input() != "svc" {
		t.Fatalf("expected svc, got %q", a.Input())
	}
	update(a, press(tea.KeyUp, "", 0))
	update(a, press(tea.KeyUp, "", 0))
	if a.Input() != "pod" {
		t.Fatalf("expected pod, got %q", a.Input())
	}
	update(a, press(tea.KeyDown, "", 0))
	update(a, press(tea.KeyDown, "", 0))
	if a.Input() != "dra" {
		t.Fatalf("expected draft to be restored, got %q", a.Input())
	}
}

func TestPageScrolling(t *testing.T) {
	a := newTestApp(&fakeExplainer{})
	update(a, tea.WindowSizeMsg{Width: 40, Height: 14})
	var lines []string
	for i := 0; i < 30; i++ {
		lines = append(lines, "line")
	}
	a.output = strings.Join(lines, "\n")

	// output box is 14-4-1-3 = 6 rows, 4 visible, page is 3
	update(a, press(tea.KeyPgDown, "", 0))
	if a.scroll != 3 {
		t.Fatalf("expected scroll 3, got %d", a.scroll)
	}
	for i := 0; i < 20; i++ {
		update(a, press(tea.KeyPgDown, "", 0))
	}
	if a.scroll != 26 {
		t.Fatalf("expected scroll to stop at 26, got %d", a.scroll)
	}
	update(a, press(tea.KeyEsc, "", 0))
	for i := 0; i < 20; i++ {
		update(a, press(tea.KeyPgUp, "", 0))
	}
	if a.scroll != 0 {
		t.Fatalf("expected scroll 0, got %d", a.scroll)
	}
}

func TestSubmitReplacesRunningPrefetch(t *testing.T) {
	ex := &fakeExplainer{resources: "pods\n", answers: map[string]string{"pod": "kind: Pod"}}
	a := newTestApp(ex)
	prefetch := a.Init()
	typeText(a, "pod")

	cmd := update(a, press(tea.KeyEnter, "", 0))
	if cmd == nil {
		t.Fatalf("Enter during the prefetch did not start a lookup")
	}
	if h := a.History(); len(h) != 1 || h[0] != "pod" {
		t.Fatalf("expected history [pod], got %v", h)
	}

	// the prefetch finishes late and must not overwrite the explain result
	late := lookupResult(t, prefetch)
	update(a, lookupResult(t, cmd))
	update(a, late)
	if a.Output() != "kind: Pod" {
		t.Fatalf("expected %q, got %q", "kind: Pod", a.Output())
	}
	ex.mu.Lock()
	defer ex.mu.Unlock()
	if len(ex.queries) != 1 || ex.queries[0] != "pod" {
		t.Fatalf("expected one explain call for pod, got %v", ex.queries)
	}
}

func TestSecondEnterDuringPrefetchTakeoverIsIgnored(t *testing.T) {
	a := newTestApp(&fakeExplainer{})
	a.Init()
	typeText(a, "pod")
	if cmd := update(a, press(tea.KeyEnter, "", 0)); cmd == nil {
		t.Fatalf("expected the first Enter to submit")
	}
	if cmd := update(a, press(tea.KeyEnter, "", 0)); cmd != nil {
		t.Fatalf("second Enter started another lookup")
	}
}

func TestPasteAppendsWhileEditing(t *testing.T) {
	a := newTestApp(&fakeExplainer{})
	typeText(a, "po")
	update(a, tea.PasteMsg("d.spec\tx\nsecond line"))
	if a.Input() != "pod.specx" {
		t.Fatalf("expected %q, got %q", "pod.specx", a.Input())
	}

	update(a, press(tea.KeyEsc, "", 0))
	update(a, tea.PasteMsg("ignored"))
	if a.Input() != "pod.specx" {
		t.Fatalf("paste in normal mode changed the input to %q", a.Input())
	}
}

func TestEmptySubmitIsNotRemembered(t *testing.T) {
	ex := &fakeExplainer{answers: map[string]string{}}
	a := newTestApp(ex)
	update(a, lookupResult(t, update(a, press(tea.KeyEnter, "", 0))))
	if h := a.History(); len(h) != 0 {
		t.Fatalf("expected empty history, got %v", h)
	}
	ex.mu.Lock()
	defer ex.mu.Unlock()
	if len(ex.queries) != 1 || ex.queries[0] != "" {
		t.Fatalf("empty input must still be explained, got %v", ex.queries)
	}
}
