package ui

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"
	"unicode"

	tea "github.com/charmbracelet/bubbletea/v2"
	"github.com/go-logr/logr"
	"github.com/sttts/kubexp/pkg/kubeconfig"
	crlog "sigs.k8s.io/controller-runtime/pkg/log"
)

// Explainer produces the text shown in the output pane. Implementations turn
// every failure into text; they never fail the UI.
type Explainer interface {
	APIResources(ctx context.Context) string
	Explain(ctx context.Context, path string) string
}

// Options wires the UI to its collaborators.
type Options struct {
	Explainer Explainer
	// Context is the resolved kubeconfig context, nil when unknown.
	Context      *kubeconfig.Context
	HistoryLimit int
}

// lookupResultMsg carries the text of a finished kubectl call back to Update.
type lookupResultMsg struct {
	token int
	text  string
}

// App holds the session state. It is only mutated from Update (and Init,
// which bubbletea calls before the first Update).
type App struct {
	ctx       context.Context
	explainer Explainer
	kubeCtx   *kubeconfig.Context

	mode    InputMode
	input   []rune
	output  string
	history *History

	// token of the in-flight lookup, 0 when idle
	pending      int
	pendingLabel string
	// the pending lookup is the startup prefetch, which a submission may replace
	prefetching bool
	lastToken   int
	cancel      context.CancelFunc
	// Busy spinner state; shown only when a lookup outlives busyDelay
	busyVisible bool
	busyFrame   int

	width  int
	height int
	scroll int
}

// NewApp creates the model in edit mode with empty input and output.
func NewApp(ctx context.Context, opts Options) *App {
	return &App{
		ctx:       ctx,
		explainer: opts.Explainer,
		kubeCtx:   opts.Context,
		mode:      ModeEditing,
		history:   NewHistory(opts.HistoryLimit),
	}
}

// Init prefetches the resource names; the result becomes the initial output.
func (a *App) Init() tea.Cmd {
	ex := a.explainer
	cmd := a.startLookup("kubectl api-resources", func(ctx context.Context) string {
		return ex.APIResources(ctx)
	})
	a.prefetching = true
	return cmd
}

// Update applies one message to the session state.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.clampScroll()
		return a, nil
	case lookupResultMsg:
		a.finishLookup(msg)
		return a, nil
	case busyShowMsg:
		if msg.token == a.pending {
			a.busyVisible = true
			a.busyFrame = 0
			return a, busyTick(msg.token)
		}
		return a, nil
	case busyTickMsg:
		if msg.token == a.pending && a.busyVisible {
			a.busyFrame = (a.busyFrame + 1) % len(busyFrames)
			return a, busyTick(msg.token)
		}
		return a, nil
	case tea.KeyPressMsg:
		return a, a.handleKey(msg)
	case tea.PasteMsg:
		if a.mode == ModeEditing {
			a.paste(string(msg))
		}
		return a, nil
	}
	return a, nil
}

func (a *App) handleKey(k tea.KeyPressMsg) tea.Cmd {
	// Keys that behave the same in both modes
	switch k.String() {
	case "ctrl+c":
		a.cancelLookup()
		return nil
	case "pgup":
		a.scroll -= a.page()
		a.clampScroll()
		return nil
	case "pgdown":
		a.scroll += a.page()
		a.clampScroll()
		return nil
	}

	switch a.mode {
	case ModeNormal:
		return a.handleNormalKey(k)
	case ModeEditing:
		return a.handleEditingKey(k)
	}
	return nil
}

func (a *App) handleNormalKey(k tea.KeyPressMsg) tea.Cmd {
	switch k.String() {
	case "i":
		a.mode = ModeEditing
	case "q":
		a.cancelLookup()
		return tea.Quit
	}
	return nil
}

func (a *App) handleEditingKey(k tea.KeyPressMsg) tea.Cmd {
	switch k.Code {
	case tea.KeyEnter:
		return a.submit()
	case tea.KeyBackspace:
		if n := len(a.input); n > 0 {
			a.input = a.input[:n-1]
		}
		return nil
	case tea.KeyEsc:
		a.mode = ModeNormal
		return nil
	case tea.KeyUp:
		if q, ok := a.history.Prev(string(a.input)); ok {
			a.input = []rune(q)
		}
		return nil
	case tea.KeyDown:
		if q, ok := a.history.Next(string(a.input)); ok {
			a.input = []rune(q)
		}
		return nil
	}
	if k.Text != "" && k.Mod&(tea.ModCtrl|tea.ModAlt|tea.ModMeta|tea.ModSuper|tea.ModHyper) == 0 {
		a.input = append(a.input, []rune(k.Text)...)
	}
	return nil
}

// paste appends the printable runes of s up to the first line break; the
// input is a single line.
func (a *App) paste(s string) {
	if i := strings.IndexAny(s, "\r\n"); i >= 0 {
		s = s[:i]
	}
	for _, r := range s {
		if unicode.IsPrint(r) {
			a.input = append(a.input, r)
		}
	}
}

// submit explains the current input. Only one explain runs at a time; a
// running prefetch is cancelled and its result dropped.
func (a *App) submit() tea.Cmd {
	if a.pending != 0 {
		if !a.prefetching {
			return nil
		}
		a.cancelLookup()
	}
	query := string(a.input)
	a.history.Add(query)
	a.logger().V(1).Info("explain", "query", query)
	ex := a.explainer
	return a.startLookup("kubectl explain "+query, func(ctx context.Context) string {
		return ex.Explain(ctx, query)
	})
}

// startLookup runs work in a background command. The spinner only appears if
// the result takes longer than busyDelay.
func (a *App) startLookup(label string, work func(context.Context) string) tea.Cmd {
	a.lastToken++
	tok := a.lastToken
	ctx, cancel := context.WithCancel(a.baseContext())
	a.pending = tok
	a.pendingLabel = label
	a.prefetching = false
	a.cancel = cancel
	a.busyVisible = false

	show := tea.Tick(busyDelay, func(time.Time) tea.Msg { return busyShowMsg{token: tok} })
	run := func() tea.Msg {
		defer cancel()
		return lookupResultMsg{token: tok, text: work(ctx)}
	}
	return tea.Batch(show, run)
}

func (a *App) finishLookup(msg lookupResultMsg) {
	if msg.token != a.pending {
		a.logger().V(2).Info("dropping stale lookup result", "token", msg.token, "pending", a.pending)
		return
	}
	a.output = msg.text
	a.scroll = 0
	a.pending = 0
	a.pendingLabel = ""
	a.prefetching = false
	a.cancel = nil
	a.busyVisible = false
}

func (a *App) cancelLookup() {
	if a.cancel != nil {
		a.logger().V(1).Info("cancelling lookup", "label", a.pendingLabel)
		a.cancel()
	}
}

// Close cancels a lookup that is still running.
func (a *App) Close() {
	a.cancelLookup()
}

func (a *App) baseContext() context.Context {
	if a.ctx == nil {
		return context.Background()
	}
	return a.ctx
}

func (a *App) logger() logr.Logger {
	return crlog.FromContext(a.baseContext()).WithName("ui")
}

// page is the scroll distance of PgUp/PgDn: one screen minus a line of overlap.
func (a *App) page() int {
	return max(1, a.layout().output.h-2-1)
}

func (a *App) clampScroll() {
	a.scroll = clampScroll(a.scroll, a.output, a.layout().output.h-2)
}

// Mode returns the current input mode.
func (a *App) Mode() InputMode { return a.mode }

// Input returns the unsubmitted text.
func (a *App) Input() string { return string(a.input) }

// Output returns the text of the last lookup.
func (a *App) Output() string { return a.output }

// History returns the submitted queries, oldest first.
func (a *App) History() []string { return a.history.Entries() }

// Pending reports whether a lookup is in flight.
func (a *App) Pending() bool { return a.pending != 0 }

// Run starts the terminal UI and blocks until the user quits or ctx is done.
func Run(ctx context.Context, opts Options) error {
	app := NewApp(ctx, opts)
	defer app.Close()

	p := tea.NewProgram(
		app,
		tea.WithAltScreen(),
		tea.WithoutSignalHandler(), // Handle signals ourselves
	)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-sigChan:
			p.Quit()
		case <-ctx.Done():
			p.Quit()
		case <-done:
		}
	}()

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("run terminal UI: %w", err)
	}
	return nil
}
