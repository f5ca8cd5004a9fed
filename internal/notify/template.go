package notify

import (
	"context"
	"fmt"
	"html"
	"html/template"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"remindbot/internal/remind"
	logx "remindbot/pkg/logx"
)

// dateLayout matches the source's default date filter format.
const dateLayout = "02.01.2006 15:04:05"

// formatDate is exposed to templates as the formatDate function. An
// optional second argument selects a Go time layout, e.g.
// {{formatDate .Date "2006-01-02"}}. A zero time renders as the empty
// string.
func formatDate(t time.Time, layout ...string) string {
	if t.IsZero() {
		return ""
	}
	l := dateLayout
	if len(layout) > 0 && layout[0] != "" {
		l = layout[0]
	}
	return t.Format(l)
}

// templateData is the field set available to the message template.
type templateData struct {
	Summary     string
	Description string
	Location    string
	Date        time.Time
	URL         string
}

// Renderer turns a reminder into an HTML message body.
//
// When a template file is configured and present, it is parsed once,
// cached, and re-parsed after the file changes on disk (fsnotify).
// Without one, a fixed two-line fallback is used: bold summary, then
// the formatted start time.
type Renderer struct {
	path string
	log  logx.Logger

	mu     sync.Mutex
	cached *template.Template
}

func NewRenderer(path string, log logx.Logger) *Renderer {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Renderer{path: path, log: log}
}

// Render produces the message body for one reminder. Blank lines are
// stripped from template output and the result is trimmed.
func (r *Renderer) Render(rem remind.Reminder) (string, error) {
	if r.path == "" {
		return r.fallback(rem), nil
	}
	tmpl, err := r.load()
	if err != nil {
		if os.IsNotExist(err) {
			return r.fallback(rem), nil
		}
		return "", fmt.Errorf("template: %w", err)
	}

	var sb strings.Builder
	data := templateData{
		Summary:     rem.Event.Summary,
		Description: rem.Event.Description,
		Location:    rem.Event.Location,
		Date:        rem.Event.Start,
		URL:         rem.URL,
	}
	if err := tmpl.Execute(&sb, data); err != nil {
		return "", fmt.Errorf("template: %w", err)
	}
	return stripBlankLines(sb.String()), nil
}

func (r *Renderer) fallback(rem remind.Reminder) string {
	return fmt.Sprintf("<b>%s</b>\r\n%s",
		html.EscapeString(rem.Event.Summary), formatDate(rem.Event.Start))
}

func (r *Renderer) load() (*template.Template, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cached != nil {
		return r.cached, nil
	}
	b, err := os.ReadFile(r.path)
	if err != nil {
		return nil, err
	}
	tmpl, err := template.New(filepath.Base(r.path)).
		Funcs(template.FuncMap{"formatDate": formatDate}).
		Parse(string(b))
	if err != nil {
		return nil, err
	}
	r.cached = tmpl
	return tmpl, nil
}

func (r *Renderer) invalidate() {
	r.mu.Lock()
	r.cached = nil
	r.mu.Unlock()
}

// Watch invalidates the cached template when the file changes. It
// returns promptly when no template is configured and runs until the
// context is cancelled otherwise. Watching the directory (not the file)
// survives editors that replace the file on save.
func (r *Renderer) Watch(ctx context.Context) error {
	if r.path == "" {
		return nil
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("template watcher: %w", err)
	}
	defer w.Close()

	dir := filepath.Dir(r.path)
	if err := w.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	base := filepath.Base(r.path)

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Base(ev.Name) != base {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) != 0 {
				r.invalidate()
				r.log.Debug("template reloaded", logx.String("path", r.path), logx.String("op", ev.Op.String()))
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			r.log.Warn("template watcher error", logx.Err(err))
		}
	}
}

// stripBlankLines removes empty and whitespace-only lines, then trims
// the result.
func stripBlankLines(s string) string {
	lines := strings.Split(s, "\n")
	kept := lines[:0]
	for _, line := range lines {
		if strings.TrimSpace(line) != "" {
			kept = append(kept, line)
		}
	}
	return strings.TrimSpace(strings.Join(kept, "\n"))
}
