package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/Sternrassler/catalog-select/pkg/pagination"
	"github.com/Sternrassler/catalog-select/pkg/session"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// selector is the part of a session the UI drives.
type selector interface {
	Open(ctx context.Context) error
	GoTo(ctx context.Context, page int) error
	Toggle(id string, selected bool) error
	SelectAll(selected bool) error
	BulkSelect(ctx context.Context, count int) error
	View() (session.Snapshot, error)
}

// loadedMsg reports the end of an operation that may have fetched pages.
type loadedMsg struct {
	snap  session.Snapshot
	ok    bool
	err   error
	event string
}

type styles struct {
	base    lipgloss.Style
	title   lipgloss.Style
	muted   lipgloss.Style
	accent  lipgloss.Style
	danger  lipgloss.Style
	chip    lipgloss.Style
	prompt  lipgloss.Style
	wrapper lipgloss.Style
}

var ui = styles{
	base: lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("238")),
	title:   lipgloss.NewStyle().Foreground(lipgloss.Color("86")).Bold(true),
	muted:   lipgloss.NewStyle().Foreground(lipgloss.Color("242")),
	accent:  lipgloss.NewStyle().Foreground(lipgloss.Color("86")).Bold(true),
	danger:  lipgloss.NewStyle().Foreground(lipgloss.Color("203")).Bold(true),
	chip:    lipgloss.NewStyle().Foreground(lipgloss.Color("231")).Background(lipgloss.Color("62")).Padding(0, 1),
	prompt:  lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true),
	wrapper: lipgloss.NewStyle().Padding(0, 1),
}

type model struct {
	ctx     context.Context
	sel     selector
	table   table.Model
	spinner spinner.Model
	help    help.Model
	input   textinput.Model
	keys    keyMap

	snap      session.Snapshot
	loaded    bool
	loading   bool
	prompting bool
	err       error
	lastEvent string
	width     int
	height    int
}

func newModel(ctx context.Context, sel selector) model {
	t := table.New(
		table.WithColumns(columns(100)),
		table.WithFocused(true),
		table.WithHeight(14),
		table.WithKeyMap(tableKeyMap()),
	)

	st := table.DefaultStyles()
	st.Header = st.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("238")).
		BorderBottom(true).
		Bold(true)
	st.Selected = st.Selected.
		Foreground(lipgloss.Color("229")).
		Background(lipgloss.Color("57")).
		Bold(true)
	t.SetStyles(st)

	sp := spinner.New()
	sp.Spinner = spinner.MiniDot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("86"))

	ti := textinput.New()
	ti.Placeholder = "number of records"
	ti.CharLimit = 7
	ti.Validate = func(s string) error {
		for _, r := range s {
			if r < '0' || r > '9' {
				return errors.New("digits only")
			}
		}
		return nil
	}

	return model{
		ctx:     ctx,
		sel:     sel,
		table:   t,
		spinner: sp,
		help:    help.New(),
		input:   ti,
		keys:    newKeyMap(),
		loading: true,
	}
}

// columns sizes the table for a terminal width. Title and inscriptions
// share what the fixed columns leave.
func columns(width int) []table.Column {
	const checkWidth, idWidth, originWidth, artistWidth, dateWidth = 3, 8, 14, 24, 11
	free := max(width-checkWidth-idWidth-originWidth-artistWidth-dateWidth-18, 32)
	titleWidth := free * 3 / 5
	return []table.Column{
		{Title: "", Width: checkWidth},
		{Title: "ID", Width: idWidth},
		{Title: "Title", Width: titleWidth},
		{Title: "Origin", Width: originWidth},
		{Title: "Artist", Width: artistWidth},
		{Title: "Inscriptions", Width: free - titleWidth},
		{Title: "Date", Width: dateWidth},
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.run(func(ctx context.Context) error {
		return m.sel.Open(ctx)
	}, "Catalog opened"))
}

// run performs a page-loading operation off the UI loop.
func (m model) run(op func(ctx context.Context) error, event string) tea.Cmd {
	ctx, sel := m.ctx, m.sel
	return func() tea.Msg {
		err := op(ctx)
		snap, viewErr := sel.View()
		return loadedMsg{snap: snap, ok: viewErr == nil, err: err, event: event}
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.table.SetColumns(columns(msg.Width))
		m.table.SetHeight(max(msg.Height-9, 5))
		m.help.Width = msg.Width

	case spinner.TickMsg:
		if m.loading {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			cmds = append(cmds, cmd)
		}

	case loadedMsg:
		m.loading = false
		m.err = msg.err
		if msg.ok {
			m.setSnapshot(msg.snap)
		}
		if msg.err != nil {
			m.lastEvent = fmt.Sprintf("Error: %v", msg.err)
		} else {
			m.lastEvent = msg.event
		}

	case tea.KeyMsg:
		if m.prompting {
			return m.updatePrompt(msg)
		}

		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case m.loading:
			return m, nil
		case key.Matches(msg, m.keys.Help):
			m.help.ShowAll = !m.help.ShowAll
		case key.Matches(msg, m.keys.Toggle):
			m.toggleCurrent()
		case key.Matches(msg, m.keys.SelectAll):
			m.selectAll()
		case key.Matches(msg, m.keys.Bulk):
			if m.loaded {
				m.prompting = true
				m.input.SetValue("")
				cmds = append(cmds, m.input.Focus(), textinput.Blink)
			}
		case key.Matches(msg, m.keys.NextPage):
			if cmd := m.goTo(m.snap.Page + 1); cmd != nil {
				cmds = append(cmds, cmd)
			}
		case key.Matches(msg, m.keys.PrevPage):
			if cmd := m.goTo(m.snap.Page - 1); cmd != nil {
				cmds = append(cmds, cmd)
			}
		default:
			var cmd tea.Cmd
			m.table, cmd = m.table.Update(msg)
			cmds = append(cmds, cmd)
		}
	}

	return m, tea.Batch(cmds...)
}

// updatePrompt handles keys while the bulk-select count is being typed.
func (m model) updatePrompt(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.prompting = false
		m.input.Blur()
		m.lastEvent = "Bulk select cancelled"
		return m, nil
	case tea.KeyEnter:
		m.prompting = false
		m.input.Blur()
		count, err := strconv.Atoi(strings.TrimSpace(m.input.Value()))
		if err != nil || count < 0 {
			m.lastEvent = "Bulk select needs a number"
			return m, nil
		}
		event := fmt.Sprintf("Bulk selected %d records", count)
		if count == 0 {
			event = "Bulk request cleared"
		}
		sel := m.sel
		m.loading = true
		return m, tea.Batch(m.spinner.Tick, m.run(func(ctx context.Context) error {
			return sel.BulkSelect(ctx, count)
		}, event))
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *model) goTo(page int) tea.Cmd {
	if !m.loaded || page < 1 || (m.snap.TotalPages > 0 && page > m.snap.TotalPages) {
		return nil
	}
	sel := m.sel
	m.loading = true
	return tea.Batch(m.spinner.Tick, m.run(func(ctx context.Context) error {
		return sel.GoTo(ctx, page)
	}, fmt.Sprintf("Page %d", page)))
}

func (m *model) toggleCurrent() {
	i := m.table.Cursor()
	if !m.loaded || i < 0 || i >= len(m.snap.Rows) {
		return
	}
	row := m.snap.Rows[i]
	if err := m.sel.Toggle(row.Record.ID, !row.Selected); err != nil {
		m.err = err
		m.lastEvent = fmt.Sprintf("Error: %v", err)
		return
	}
	m.refresh()
}

// selectAll flips the page: everything selected unless it already is.
func (m *model) selectAll() {
	if !m.loaded {
		return
	}
	if err := m.sel.SelectAll(!m.snap.AllSelected); err != nil {
		m.err = err
		m.lastEvent = fmt.Sprintf("Error: %v", err)
		return
	}
	m.refresh()
}

func (m *model) refresh() {
	snap, err := m.sel.View()
	if err != nil {
		m.err = err
		return
	}
	m.setSnapshot(snap)
}

func (m *model) setSnapshot(snap session.Snapshot) {
	pageChanged := !m.loaded || snap.Page != m.snap.Page
	m.snap = snap
	m.loaded = true

	rows := make([]table.Row, 0, len(snap.Rows))
	for _, r := range snap.Rows {
		rows = append(rows, table.Row{
			checkbox(r.Selected),
			r.Record.ID,
			field(r.Record, "title"),
			field(r.Record, "place_of_origin"),
			field(r.Record, "artist_display"),
			field(r.Record, "inscriptions"),
			dates(r.Record),
		})
	}
	m.table.SetRows(rows)
	if pageChanged {
		m.table.SetCursor(0)
	}
}

func checkbox(on bool) string {
	if on {
		return "[x]"
	}
	return "[ ]"
}

// field renders an upstream attribute on one line.
func field(r pagination.Record, name string) string {
	v := r.Field(name)
	if v == nil {
		return ""
	}
	return strings.Join(strings.Fields(fmt.Sprint(v)), " ")
}

func dates(r pagination.Record) string {
	start, end := field(r, "date_start"), field(r, "date_end")
	if end == "" || end == start {
		return start
	}
	return start + "–" + end
}

func (m model) View() string {
	view := lipgloss.JoinVertical(
		lipgloss.Left,
		m.headerView(),
		ui.base.Render(m.table.View()),
		m.statusView(),
		m.help.View(m.keys),
	)
	return ui.wrapper.Render(view)
}

func (m model) headerView() string {
	title := ui.title.Render("Artworks")
	if !m.loaded {
		return lipgloss.JoinHorizontal(lipgloss.Center, title, "  ", m.spinner.View())
	}

	page := ui.chip.Render(fmt.Sprintf("page %d/%d", m.snap.Page, m.snap.TotalPages))
	all := ui.muted.Render(checkbox(m.snap.AllSelected) + " all on page")
	if m.snap.AllSelected {
		all = ui.accent.Render(checkbox(true) + " all on page")
	}
	count := ui.muted.Render(fmt.Sprintf("%d selected", m.snap.SelectedTotal))

	parts := []string{title, "  ", page, "  ", all, "  ", count}
	if m.snap.Quota.Active() {
		parts = append(parts, "  ", ui.prompt.Render(fmt.Sprintf("%d pending from page %d",
			m.snap.Quota.Remaining, m.snap.Quota.ResumePage)))
	}
	return lipgloss.JoinHorizontal(lipgloss.Center, parts...)
}

func (m model) statusView() string {
	switch {
	case m.prompting:
		return ui.prompt.Render("Select how many? ") + m.input.View()
	case m.loading:
		return m.spinner.View() + " " + ui.muted.Render("Loading…")
	case m.err != nil:
		return ui.danger.Render(m.lastEvent)
	default:
		return ui.muted.Render(m.lastEvent)
	}
}
