// Package tui provides a Bubble Tea terminal user interface for khinsider-downloader.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/handiism/khinsider-downloader/internal/config"
	"github.com/handiism/khinsider-downloader/internal/download"
	ioutils "github.com/handiism/khinsider-downloader/internal/io"
	"github.com/handiism/khinsider-downloader/internal/model"
)

// Styles for the TUI
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FF6B6B")).
			MarginBottom(1)

	subtitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#4ECDC4"))

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#95E1A3"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFE66D"))

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#A8DADC"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6C757D"))

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#4ECDC4")).
			Padding(1, 2)

	albumStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F8B500"))
)

// State represents the current UI state.
type State int

const (
	StateInput State = iota
	StateDownloading
	StateComplete
	StateError
)

// maxLogs is how many progress lines stay on screen.
const maxLogs = 10

var outputFormats = []ioutils.Format{ioutils.FormatDirectory, ioutils.FormatTar, ioutils.FormatZip}

// LogEntry represents a log message in the UI.
type LogEntry struct {
	Message string
	Level   download.ProgressLevel
}

// Model is the Bubble Tea model for the TUI.
type Model struct {
	state     State
	textInput textinput.Model
	spinner   spinner.Model
	progress  progress.Model
	settings  *config.Settings
	logger    *zap.Logger
	logs      []LogEntry
	outcome   *model.BatchOutcome
	err       error

	ctx    context.Context
	cancel context.CancelFunc

	manager *download.Manager
	events  chan download.ProgressEvent

	totalFiles      int32
	downloadedFiles int32
	receivedBytes   int64

	// Options
	preferFlac   bool
	playlist     bool
	verbose      bool
	outputFormat int

	width  int
	height int
}

// NewModel creates a new TUI model. Options start from settings.
func NewModel(settings *config.Settings, logger *zap.Logger) Model {
	if logger == nil {
		logger = zap.NewNop()
	}

	ti := textinput.New()
	ti.Placeholder = "https://downloads.khinsider.com/game-soundtracks/album/name"
	ti.Focus()
	ti.CharLimit = 2000
	ti.Width = 60

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B"))

	prog := progress.New(progress.WithDefaultGradient())
	prog.Width = 50

	ctx, cancel := context.WithCancel(context.Background())

	format := 0
	for i, f := range outputFormats {
		if f == settings.Format() {
			format = i
		}
	}

	return Model{
		state:        StateInput,
		textInput:    ti,
		spinner:      sp,
		progress:     prog,
		settings:     settings,
		logger:       logger,
		ctx:          ctx,
		cancel:       cancel,
		preferFlac:   settings.PreferFlac,
		playlist:     settings.CreatePlaylist,
		outputFormat: format,
	}
}

// Init initializes the model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick)
}

// Message types
type (
	// ProgressMsg is sent when the manager reports progress.
	ProgressMsg struct {
		Event download.ProgressEvent
	}

	// DownloadDoneMsg is sent when all downloads complete.
	DownloadDoneMsg struct {
		Outcome *model.BatchOutcome
		Err     error
	}

	// TickMsg is for periodic progress updates.
	TickMsg struct{}
)

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.progress.Width = min(max(msg.Width-20, 20), 80)
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			m.cancel()
			return m, tea.Quit

		case "esc":
			if m.state == StateInput {
				return m, tea.Quit
			}
			if m.state == StateDownloading {
				m.cancel()
			}

		case "enter":
			if m.state == StateInput {
				urls := m.inputURLs()
				if len(urls) == 0 {
					m.err = fmt.Errorf("no http(s) URL entered")
					break
				}
				m.err = nil
				m.state = StateDownloading
				m.events = make(chan download.ProgressEvent, 64)
				m.manager = download.NewManager(m.downloadSettings(), m.logger, m.sendEvent(m.events))
				return m, tea.Batch(
					m.startDownload(urls),
					waitForEvent(m.events),
					m.tickProgress(),
					m.spinner.Tick,
				)
			}

		case "ctrl+f":
			if m.state == StateInput {
				m.preferFlac = !m.preferFlac
				return m, nil
			}

		case "ctrl+p":
			if m.state == StateInput {
				m.playlist = !m.playlist
				return m, nil
			}

		case "ctrl+o":
			if m.state == StateInput {
				m.outputFormat = (m.outputFormat + 1) % len(outputFormats)
				return m, nil
			}

		case "ctrl+l":
			if m.state == StateInput {
				m.verbose = !m.verbose
				return m, nil
			}

		case "q":
			if m.state == StateComplete || m.state == StateError {
				return m, tea.Quit
			}

		case "r":
			if m.state == StateComplete || m.state == StateError {
				m.state = StateInput
				m.logs = nil
				m.outcome = nil
				m.err = nil
				m.downloadedFiles = 0
				m.totalFiles = 0
				m.receivedBytes = 0
				m.manager = nil
				m.events = nil
				m.ctx, m.cancel = context.WithCancel(context.Background())
				m.textInput.SetValue("")
				m.textInput.Focus()
				return m, nil
			}
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)

	case ProgressMsg:
		if msg.Event.Level != download.LevelVerbose || m.verbose {
			m.logs = append(m.logs, LogEntry{Message: msg.Event.Message, Level: msg.Event.Level})
			if len(m.logs) > maxLogs {
				m.logs = m.logs[len(m.logs)-maxLogs:]
			}
		}
		if m.state == StateDownloading {
			cmds = append(cmds, waitForEvent(m.events))
		}

	case DownloadDoneMsg:
		m.outcome = msg.Outcome
		if m.manager != nil {
			m.receivedBytes, m.downloadedFiles, m.totalFiles = m.manager.GetProgress()
		}
		switch {
		case m.ctx.Err() != nil:
			m.state = StateError
			m.err = fmt.Errorf("cancelled by user")
		case msg.Outcome != nil && msg.Outcome.Committed() == 0 && msg.Err != nil:
			m.state = StateError
			m.err = msg.Err
		default:
			m.state = StateComplete
		}

	case TickMsg:
		if m.manager != nil && m.state == StateDownloading {
			m.receivedBytes, m.downloadedFiles, m.totalFiles = m.manager.GetProgress()

			var percent float64
			if m.totalFiles > 0 {
				percent = float64(m.downloadedFiles) / float64(m.totalFiles)
			}
			cmds = append(cmds, m.progress.SetPercent(percent), m.tickProgress())
		}

	case progress.FrameMsg:
		progressModel, cmd := m.progress.Update(msg)
		m.progress = progressModel.(progress.Model)
		cmds = append(cmds, cmd)
	}

	if m.state == StateInput {
		var cmd tea.Cmd
		m.textInput, cmd = m.textInput.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

// inputURLs splits the text input on spaces and commas.
func (m Model) inputURLs() []string {
	fields := strings.FieldsFunc(m.textInput.Value(), func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t'
	})
	return download.ParseInputURLs(strings.Join(fields, "\n"))
}

// downloadSettings applies the UI toggles to a copy of the settings.
func (m Model) downloadSettings() *config.Settings {
	s := *m.settings
	s.PreferFlac = m.preferFlac
	s.CreatePlaylist = m.playlist
	s.OutputFormat = string(outputFormats[m.outputFormat])
	return &s
}

// sendEvent forwards manager events to the UI. Events are dropped while
// the UI is behind.
func (m Model) sendEvent(ch chan<- download.ProgressEvent) func(download.ProgressEvent) {
	return func(event download.ProgressEvent) {
		select {
		case ch <- event:
		default:
		}
	}
}

// waitForEvent delivers the next manager event. It yields nothing once
// the channel is closed.
func waitForEvent(ch <-chan download.ProgressEvent) tea.Cmd {
	return func() tea.Msg {
		event, ok := <-ch
		if !ok {
			return nil
		}
		return ProgressMsg{Event: event}
	}
}

// tickProgress returns a command to tick progress updates.
func (m Model) tickProgress() tea.Cmd {
	return tea.Tick(200*time.Millisecond, func(_ time.Time) tea.Msg {
		return TickMsg{}
	})
}

// startDownload runs the batch in the background and closes the event
// channel when it returns.
func (m Model) startDownload(urls []string) tea.Cmd {
	manager, ctx, events := m.manager, m.ctx, m.events
	return func() tea.Msg {
		outcome, err := manager.DownloadAlbums(ctx, urls)
		close(events)
		return DownloadDoneMsg{Outcome: outcome, Err: err}
	}
}

// View renders the UI.
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("♫ KHInsider Downloader"))
	b.WriteString("\n")
	b.WriteString(dimStyle.Render("Download game soundtracks from KHInsider"))
	b.WriteString("\n\n")

	switch m.state {
	case StateInput:
		b.WriteString(m.viewInput())
	case StateDownloading:
		b.WriteString(m.viewDownloading())
	case StateComplete:
		b.WriteString(m.viewComplete())
	case StateError:
		b.WriteString(m.viewError())
	}

	b.WriteString("\n")
	b.WriteString(dimStyle.Render(m.getHelpText()))

	return b.String()
}

func checkbox(on bool) string {
	if on {
		return "[×]"
	}
	return "[ ]"
}

func (m Model) viewInput() string {
	var b strings.Builder

	b.WriteString(subtitleStyle.Render("Enter album URL(s):"))
	b.WriteString("\n\n")
	b.WriteString(m.textInput.View())
	b.WriteString("\n\n")

	if m.err != nil {
		b.WriteString(errorStyle.Render(m.err.Error()))
		b.WriteString("\n\n")
	}

	b.WriteString(infoStyle.Render("Options:"))
	b.WriteString("\n")
	fmt.Fprintf(&b, "  %s Prefer FLAC (ctrl+f)\n", checkbox(m.preferFlac))
	fmt.Fprintf(&b, "  %s Create playlist (ctrl+p)\n", checkbox(m.playlist))
	fmt.Fprintf(&b, "  %s Verbose output (ctrl+l)\n", checkbox(m.verbose))
	fmt.Fprintf(&b, "  Output format: %s (ctrl+o)\n", outputFormats[m.outputFormat])
	b.WriteString("\n")
	b.WriteString(dimStyle.Render(fmt.Sprintf("Output directory: %s", m.settings.OutputDirectory)))
	b.WriteString("\n")

	return b.String()
}

func (m Model) viewDownloading() string {
	var b strings.Builder

	b.WriteString(m.spinner.View())
	b.WriteString(" ")
	b.WriteString(subtitleStyle.Render("Downloading..."))
	b.WriteString("\n\n")

	var percent float64
	if m.totalFiles > 0 {
		percent = float64(m.downloadedFiles) / float64(m.totalFiles)
	}
	b.WriteString(m.progress.ViewAs(percent))
	b.WriteString("\n")

	b.WriteString(infoStyle.Render(fmt.Sprintf(
		"Files: %d/%d | Downloaded: %.2f MB",
		m.downloadedFiles,
		m.totalFiles,
		float64(m.receivedBytes)/1024/1024,
	)))
	b.WriteString("\n\n")

	b.WriteString(m.renderLogs())

	return b.String()
}

func (m Model) viewComplete() string {
	var b strings.Builder

	albums := 0
	if m.outcome != nil {
		albums = len(m.outcome.Albums)
	}
	committed := 0
	if m.outcome != nil {
		committed = m.outcome.Committed()
	}

	b.WriteString(boxStyle.Render(fmt.Sprintf(
		"✨ Download Complete!\n\n"+
			"Albums: %d/%d\n"+
			"Files: %d\n"+
			"Size: %.2f MB",
		committed,
		albums,
		m.downloadedFiles,
		float64(m.receivedBytes)/1024/1024,
	)))
	b.WriteString("\n\n")
	b.WriteString(m.renderAlbums())

	return b.String()
}

func (m Model) viewError() string {
	var b strings.Builder

	b.WriteString(errorStyle.Render("✗ Error occurred:"))
	b.WriteString("\n\n")
	if m.err != nil {
		fmt.Fprintf(&b, "  %s\n\n", m.err.Error())
	}
	b.WriteString(m.renderAlbums())

	return b.String()
}

func (m Model) renderAlbums() string {
	if m.outcome == nil {
		return ""
	}

	var b strings.Builder
	for _, a := range m.outcome.Albums {
		if a == nil {
			continue
		}
		name := a.Name
		if name == "" {
			name = a.URL
		}
		if a.Committed {
			b.WriteString(albumStyle.Render(fmt.Sprintf("  ♪ %s (%d tracks)", name, len(a.Tracks))))
		} else {
			b.WriteString(errorStyle.Render(fmt.Sprintf("  ✗ %s: %d of %d tracks failed", name, len(a.Failed()), len(a.Tracks))))
		}
		b.WriteString("\n")
	}
	return b.String()
}

func (m Model) renderLogs() string {
	var b strings.Builder

	for _, log := range m.logs {
		var style lipgloss.Style
		prefix := "•"
		switch log.Level {
		case download.LevelError:
			style = errorStyle
			prefix = "✗"
		case download.LevelWarning:
			style = warningStyle
			prefix = "!"
		case download.LevelSuccess:
			style = successStyle
			prefix = "✓"
		case download.LevelInfo:
			style = infoStyle
			prefix = "›"
		default:
			style = dimStyle
		}
		b.WriteString(style.Render(prefix + " " + log.Message))
		b.WriteString("\n")
	}

	return b.String()
}

func (m Model) getHelpText() string {
	switch m.state {
	case StateInput:
		return "enter: start • ctrl+f: flac • ctrl+p: playlist • ctrl+o: format • ctrl+l: verbose • esc: quit"
	case StateDownloading:
		return "esc: cancel"
	case StateComplete, StateError:
		return "r: new download • q: quit"
	}
	return ""
}

// Run starts the TUI application.
func Run(settings *config.Settings, logger *zap.Logger) error {
	p := tea.NewProgram(NewModel(settings, logger), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
