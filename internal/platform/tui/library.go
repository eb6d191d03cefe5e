package tui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/vovakirdan/tui-quest/internal/storage"
)

// LibraryEntry is one playable row of the library screen.
type LibraryEntry struct {
	ID     string
	Title  string
	Author string
	Dir    string
	File   string
	Demo   bool
}

// LibraryModel lists the installed games with their play history and
// lets the player pick one to run.
type LibraryModel struct {
	store *storage.Store
	demo  *LibraryEntry

	entries []LibraryEntry
	table   table.Model
	keys    LibraryKeyMap
	help    help.Model
	theme   Theme

	loadErr  error
	width    int
	height   int
	selected *LibraryEntry
	quitting bool
}

// NewLibraryModel builds the library screen. The store may be nil when
// the database is unavailable; a non-nil demo entry is pinned first.
func NewLibraryModel(store *storage.Store, demo *LibraryEntry) LibraryModel {
	t := table.New(
		table.WithFocused(true),
		table.WithHeight(10),
	)
	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		BorderBottom(true).
		Bold(false)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("229")).
		Background(lipgloss.Color("57")).
		Bold(false)
	t.SetStyles(s)

	m := LibraryModel{
		store: store,
		demo:  demo,
		table: t,
		keys:  DefaultLibraryKeyMap(),
		help:  help.New(),
		theme: DefaultTheme(),
	}
	return m.refresh()
}

// TakeSelection consumes and returns the picked entry, if any.
func (m LibraryModel) TakeSelection() (LibraryModel, *LibraryEntry) {
	sel := m.selected
	m.selected = nil
	return m, sel
}

// IsQuitting reports that the player asked to leave.
func (m LibraryModel) IsQuitting() bool {
	return m.quitting
}

// refresh reloads the entries from the store and rebuilds the rows.
func (m LibraryModel) refresh() LibraryModel {
	m.entries = m.entries[:0]
	m.loadErr = nil
	if m.demo != nil {
		m.entries = append(m.entries, *m.demo)
	}
	var stats map[string]*storage.PlayStats
	if m.store != nil {
		games, err := m.store.Games()
		if err != nil {
			m.loadErr = err
		}
		stats, _ = m.store.AllStats()
		for _, g := range games {
			m.entries = append(m.entries, LibraryEntry{
				ID:     g.ID,
				Title:  g.Title,
				Author: g.Author,
				Dir:    g.Dir,
				File:   g.File,
			})
		}
	}

	rows := make([]table.Row, len(m.entries))
	for i, e := range m.entries {
		title := e.Title
		if e.Demo {
			title += " (demo)"
		}
		plays, played, last := "-", "-", "-"
		if st, ok := stats[e.ID]; ok && st.Plays > 0 {
			plays = fmt.Sprintf("%d", st.Plays)
			played = (time.Duration(st.TotalSecs) * time.Second).Truncate(time.Minute).String()
			if !st.LastPlayed.IsZero() {
				last = st.LastPlayed.Format("2006-01-02")
			}
		}
		if m.wide() {
			rows[i] = table.Row{title, e.Author, plays, played, last}
		} else {
			rows[i] = table.Row{title, plays}
		}
	}
	m.table.SetColumns(m.columns())
	m.table.SetRows(rows)
	return m
}

func (m LibraryModel) wide() bool {
	return m.width >= 70
}

func (m LibraryModel) columns() []table.Column {
	if !m.wide() {
		titleW := m.width - 12
		if titleW < 16 {
			titleW = 16
		}
		return []table.Column{
			{Title: "Game", Width: titleW},
			{Title: "Plays", Width: 5},
		}
	}
	titleW := m.width - 49
	if titleW < 20 {
		titleW = 20
	}
	if titleW > 48 {
		titleW = 48
	}
	return []table.Column{
		{Title: "Game", Width: titleW},
		{Title: "Author", Width: 16},
		{Title: "Plays", Width: 5},
		{Title: "Played", Width: 8},
		{Title: "Last", Width: 10},
	}
}

func (m LibraryModel) Init() tea.Cmd {
	return nil
}

func (m LibraryModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		h := msg.Height - 8
		if h < 3 {
			h = 3
		}
		m.table.SetHeight(h)
		return m.refresh(), nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			m.quitting = true
			return m, tea.Quit

		case key.Matches(msg, m.keys.Select):
			if cursor := m.table.Cursor(); cursor >= 0 && cursor < len(m.entries) {
				entry := m.entries[cursor]
				m.selected = &entry
			}
			return m, nil

		case key.Matches(msg, m.keys.Refresh):
			return m.refresh(), nil

		case key.Matches(msg, m.keys.Help):
			m.help.ShowAll = !m.help.ShowAll
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m LibraryModel) View() string {
	if m.quitting {
		return ""
	}
	var sections []string
	sections = append(sections, m.theme.Title.Render(" Game library"))
	sections = append(sections, "")
	sections = append(sections, m.table.View())
	if m.loadErr != nil {
		sections = append(sections, m.theme.Error.Render("library: "+m.loadErr.Error()))
	}
	if len(m.entries) <= 1 {
		sections = append(sections, m.theme.Dim.Render("No installed games yet. Try 'quest stock' to browse the catalog."))
	}
	sections = append(sections, "")
	sections = append(sections, m.help.View(m.keys))
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}
