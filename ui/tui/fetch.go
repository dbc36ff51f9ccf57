// Copyright (c) 2026 Mediabot Team
// Mediabot - Telegram media relay bot
// This source code is licensed under the MIT license found in the LICENSE file.

// Package tui holds the terminal views of the CLI. The fetch view shows a
// single download with a progress bar until it finishes or is aborted.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	doneStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
)

// ErrAborted is returned by RunFetch when the user quit before the
// download finished.
var ErrAborted = errors.New("download aborted")

const maxBarWidth = 60

// ProgressMsg reports a new download percentage.
type ProgressMsg int

// DoneMsg ends the view with the downloaded path or the failure.
type DoneMsg struct {
	Path string
	Err  error
}

// FetchModel is the bubbletea model of the fetch view.
type FetchModel struct {
	title   string
	bar     progress.Model
	help    help.Model
	keys    KeyMap
	percent int
	path    string
	err     error
	done    bool
	aborted bool
	cancel  context.CancelFunc
}

// NewFetchModel creates the view for title. cancel is called when the user
// aborts; it may be nil.
func NewFetchModel(title string, cancel context.CancelFunc) FetchModel {
	return FetchModel{
		title:  title,
		bar:    progress.New(progress.WithDefaultGradient(), progress.WithWidth(40)),
		help:   help.New(),
		keys:   FetchKeyMap,
		cancel: cancel,
	}
}

func (m FetchModel) Init() tea.Cmd { return nil }

func (m FetchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if key.Matches(msg, m.keys.Abort) {
			m.aborted = true
			if m.cancel != nil {
				m.cancel()
			}
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.bar.Width = min(msg.Width-4, maxBarWidth)
		m.help.Width = msg.Width
		return m, nil
	case ProgressMsg:
		pct := int(msg)
		if pct < m.percent {
			return m, nil
		}
		m.percent = min(pct, 100)
		return m, m.bar.SetPercent(float64(m.percent) / 100)
	case DoneMsg:
		m.done = true
		m.path = msg.Path
		m.err = msg.Err
		if msg.Err == nil {
			m.percent = 100
		}
		return m, tea.Quit
	case progress.FrameMsg:
		bar, cmd := m.bar.Update(msg)
		m.bar = bar.(progress.Model)
		return m, cmd
	}
	return m, nil
}

func (m FetchModel) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(m.title))
	b.WriteString("\n\n")
	switch {
	case m.err != nil:
		b.WriteString(errorStyle.Render(fmt.Sprintf("❌ %v", m.err)))
	case m.done:
		b.WriteString(m.bar.ViewAs(1))
		b.WriteString("\n")
		b.WriteString(doneStyle.Render("✅ " + m.path))
	default:
		b.WriteString(m.bar.View())
		b.WriteString(fmt.Sprintf(" %3d%%", m.percent))
		b.WriteString("\n\n")
		b.WriteString(m.help.View(m.keys))
	}
	b.WriteString("\n")
	return b.String()
}

// Percent is the last reported percentage.
func (m FetchModel) Percent() int { return m.percent }

// Result returns the downloaded path, or the error that ended the view.
func (m FetchModel) Result() (string, error) {
	if m.aborted && !m.done {
		return "", ErrAborted
	}
	return m.path, m.err
}

// FetchFunc performs the download, reporting progress through the callback.
type FetchFunc func(ctx context.Context, progress func(int)) (string, error)

// RunFetch shows the fetch view on the terminal while fn runs. opts are
// passed to the bubbletea program.
func RunFetch(ctx context.Context, title string, fn FetchFunc, opts ...tea.ProgramOption) (string, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	opts = append([]tea.ProgramOption{tea.WithContext(ctx)}, opts...)
	p := tea.NewProgram(NewFetchModel(title, cancel), opts...)

	go func() {
		path, err := fn(ctx, func(pct int) { p.Send(ProgressMsg(pct)) })
		p.Send(DoneMsg{Path: path, Err: err})
	}()

	final, err := p.Run()
	if err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return "", err
	}
	if m, ok := final.(FetchModel); ok {
		if errors.Is(err, tea.ErrProgramKilled) && !m.done {
			return "", ErrAborted
		}
		return m.Result()
	}
	return "", ErrAborted
}
