package terminal

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/PabloGalante/sourcechat/internal/app/chat"
	"github.com/PabloGalante/sourcechat/internal/domain"
	"github.com/PabloGalante/sourcechat/internal/observability"
)

var (
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("243"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	pendingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true)
	titleStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("63")).Bold(true)
)

// REPL is a line based chat over one session. Output is driven by session
// updates, so auto-confirmed answers show up without any input.
type REPL struct {
	sess     *chat.Session
	in       io.Reader
	out      io.Writer
	renderer *glamour.TermRenderer

	mu      sync.Mutex
	printed map[domain.MessageID]bool
	seen    map[domain.MessageID]string
	pending domain.MessageID
}

type Option func(*REPL)

// WithRenderer replaces the markdown renderer. A nil renderer prints answers raw.
func WithRenderer(r *glamour.TermRenderer) Option {
	return func(p *REPL) { p.renderer = r }
}

func New(sess *chat.Session, in io.Reader, out io.Writer, opts ...Option) *REPL {
	r := &REPL{
		sess:    sess,
		in:      in,
		out:     out,
		printed: make(map[domain.MessageID]bool),
		seen:    make(map[domain.MessageID]string),
	}
	r.renderer, _ = glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(80),
	)
	for _, o := range opts {
		o(r)
	}
	return r
}

// Run reads lines until /quit, EOF or ctx is done.
func (r *REPL) Run(ctx context.Context) error {
	unsubscribe := r.sess.Subscribe(r.onMessage)
	defer unsubscribe()

	r.printf("%s\n", titleStyle.Render("sourcechat"))
	r.printf("%s\n\n", dimStyle.Render("Mention a source with @nickname. Commands: /sources /pick [n] /use <label> /quit"))

	scanner := bufio.NewScanner(r.in)
	for {
		if err := ctx.Err(); err != nil {
			return nil
		}
		r.printf("%s ", dimStyle.Render(">"))
		if !scanner.Scan() {
			return scanner.Err()
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "/") {
			quit, err := r.command(ctx, line)
			if err != nil {
				r.printf("%s\n", errorStyle.Render(err.Error()))
			}
			if quit {
				return nil
			}
			continue
		}

		if _, err := r.sess.Send(ctx, line); err != nil {
			observability.LoggerFromContext(ctx).Warn("send failed", zap.Error(err))
			r.printf("%s\n", errorStyle.Render(err.Error()))
		}
	}
}

func (r *REPL) command(ctx context.Context, line string) (quit bool, err error) {
	name, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)

	switch name {
	case "/quit", "/exit":
		return true, nil

	case "/sources":
		r.printSources(r.sess.Sources())
		return false, nil

	case "/pick":
		id, ok := r.pendingID()
		if !ok {
			return false, fmt.Errorf("nothing waiting for a source")
		}
		if arg == "" {
			sources, err := r.sess.OpenPicker(id)
			if err != nil {
				return false, err
			}
			r.printSources(sources)
			return false, nil
		}
		n, err := strconv.Atoi(arg)
		sources := r.sess.Sources()
		if err != nil || n < 1 || n > len(sources) {
			return false, fmt.Errorf("pick a number between 1 and %d", len(sources))
		}
		_, err = r.sess.ConfirmSource(ctx, id, sources[n-1].Label())
		return false, err

	case "/use":
		id, ok := r.pendingID()
		if !ok {
			return false, fmt.Errorf("nothing waiting for a source")
		}
		_, err := r.sess.ConfirmSource(ctx, id, arg)
		return false, err

	default:
		return false, fmt.Errorf("unknown command %s", name)
	}
}

func (r *REPL) pendingID() (domain.MessageID, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pending, r.pending != ""
}

// onMessage prints every assistant update once.
func (r *REPL) onMessage(m domain.Message) {
	if m.Role != domain.RoleAssistant {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if p := m.Pending; p != nil {
		key := fmt.Sprintf("%s/%d", p.State, p.SecondsRemaining)
		prev, known := r.seen[m.ID]
		if prev == key {
			return
		}
		r.seen[m.ID] = key
		r.pending = m.ID

		switch p.State {
		case domain.CountdownRunning:
			if !known {
				fmt.Fprintf(r.out, "%s\n", pendingStyle.Render(m.Content))
			}
			fmt.Fprintf(r.out, "%s\n", dimStyle.Render(fmt.Sprintf("  answering with @%s in %ds", p.SuggestedLabel, p.SecondsRemaining)))
		case domain.CountdownCancelledByUser:
			fmt.Fprintf(r.out, "%s\n", dimStyle.Render("  countdown stopped, /pick <n> or /use <label> to answer"))
		case domain.CountdownConfirming:
			fmt.Fprintf(r.out, "%s\n", dimStyle.Render("  asking..."))
		}
		return
	}

	if r.printed[m.ID] {
		return
	}
	r.printed[m.ID] = true
	delete(r.seen, m.ID)
	if r.pending == m.ID {
		r.pending = ""
	}

	if m.Failed {
		fmt.Fprintf(r.out, "%s\n", errorStyle.Render("! "+m.Content))
		return
	}
	fmt.Fprint(r.out, r.render(answerMarkdown(m)))
	if m.Resolution != "" {
		fmt.Fprintf(r.out, "%s\n", dimStyle.Render(fmt.Sprintf("  source: @%s (%s)", m.ChosenSource, m.Resolution)))
	}
}

func (r *REPL) render(md string) string {
	if r.renderer == nil {
		return md + "\n"
	}
	out, err := r.renderer.Render(md)
	if err != nil {
		return md + "\n"
	}
	return out
}

func (r *REPL) printSources(sources []domain.Source) {
	if len(sources) == 0 {
		r.printf("%s\n", dimStyle.Render("no sources for this agent"))
		return
	}
	for i, s := range sources {
		line := fmt.Sprintf("%d. @%s", i+1, s.Label())
		if s.Type != "" {
			line += dimStyle.Render(" " + string(s.Type))
		}
		r.printf("%s\n", line)
	}
}

func (r *REPL) printf(format string, args ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintf(r.out, format, args...)
}

// answerMarkdown folds the SQL and the result table into the answer text.
func answerMarkdown(m domain.Message) string {
	var b strings.Builder
	b.WriteString(m.Content)

	if m.SQL != "" {
		b.WriteString("\n\n```sql\n")
		b.WriteString(m.SQL)
		b.WriteString("\n```\n")
	}

	if t := m.Table; t != nil && len(t.Columns) > 0 {
		b.WriteString("\n\n| ")
		b.WriteString(strings.Join(t.Columns, " | "))
		b.WriteString(" |\n|")
		b.WriteString(strings.Repeat(" --- |", len(t.Columns)))
		b.WriteString("\n")
		for _, row := range t.Rows {
			cells := make([]string, len(row))
			for i, v := range row {
				cells[i] = fmt.Sprint(v)
			}
			b.WriteString("| ")
			b.WriteString(strings.Join(cells, " | "))
			b.WriteString(" |\n")
		}
	}

	if md := m.Metadata; md != nil && len(md.Chunks) > 0 {
		b.WriteString("\n\n")
		for _, c := range md.Chunks {
			if c.Source != "" {
				fmt.Fprintf(&b, "- _%s_\n", c.Source)
			}
		}
	}
	return b.String()
}
