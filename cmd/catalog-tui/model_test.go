package main

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/Sternrassler/catalog-select/pkg/pagination"
	"github.com/Sternrassler/catalog-select/pkg/session"
	tea "github.com/charmbracelet/bubbletea"
)

type stubCatalog struct{ total int }

func (c stubCatalog) FetchPage(ctx context.Context, page, limit int) (*pagination.Page, error) {
	p := &pagination.Page{Index: page, Limit: limit, TotalPages: (c.total + limit - 1) / limit, Total: c.total}
	for i := (page - 1) * limit; i < page*limit && i < c.total; i++ {
		p.Records = append(p.Records, pagination.Record{
			ID:     fmt.Sprint(i + 1),
			Fields: map[string]any{
				"title":           fmt.Sprintf("Artwork\n%d", i+1),
				"place_of_origin": "Chicago",
				"inscriptions":    "signed lower right",
				"date_start":      1900,
				"date_end":        1901,
			},
		})
	}
	return p, nil
}

// openModel returns a model whose first page has been loaded.
func openModel(t *testing.T, total int) model {
	t.Helper()

	cache := pagination.NewPageCache()
	nav := pagination.NewNavigator(stubCatalog{total: total}, cache, pagination.Config{Limit: 12})
	sess := session.New(nav, cache, session.DefaultConfig())
	t.Cleanup(sess.Close)

	m := newModel(context.Background(), sess)
	msg := m.run(func(ctx context.Context) error { return sess.Open(ctx) }, "opened")()
	return update(t, m, msg)
}

func update(t *testing.T, m model, msg tea.Msg) model {
	t.Helper()
	next, _ := m.Update(msg)
	return next.(model)
}

// press sends a key and runs any resulting page load to completion.
func press(t *testing.T, m model, k tea.KeyMsg) model {
	t.Helper()
	next, cmd := m.Update(k)
	m = next.(model)
	return settle(t, m, cmd)
}

func settle(t *testing.T, m model, cmd tea.Cmd) model {
	t.Helper()
	if cmd == nil {
		return m
	}
	switch msg := cmd().(type) {
	case tea.BatchMsg:
		for _, c := range msg {
			m = settle(t, m, c)
		}
	case loadedMsg:
		m = update(t, m, msg)
	}
	return m
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestModel_Open(t *testing.T) {
	m := openModel(t, 30)

	if m.loading || !m.loaded {
		t.Fatalf("loading=%v loaded=%v after open", m.loading, m.loaded)
	}
	if len(m.table.Rows()) != 12 {
		t.Errorf("table rows = %d, want 12", len(m.table.Rows()))
	}
	if got := m.table.Rows()[0][2]; got != "Artwork 1" {
		t.Errorf("title cell = %q, want single-line title", got)
	}
	if got := m.table.Rows()[0][3]; got != "Chicago" {
		t.Errorf("origin cell = %q", got)
	}
	if got := m.table.Rows()[0][5]; got != "signed lower right" {
		t.Errorf("inscriptions cell = %q", got)
	}
	if got := m.table.Rows()[0][6]; got != "1900–1901" {
		t.Errorf("date cell = %q", got)
	}
}

func TestModel_ToggleAndSelectAll(t *testing.T) {
	m := openModel(t, 30)

	m = press(t, m, tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}})
	if !m.snap.Rows[0].Selected || m.table.Rows()[0][0] != "[x]" {
		t.Error("space did not select the row under the cursor")
	}

	m = press(t, m, runes("a"))
	if !m.snap.AllSelected || m.snap.SelectedTotal != 12 {
		t.Errorf("after a: all=%v selected=%d", m.snap.AllSelected, m.snap.SelectedTotal)
	}
	if !strings.Contains(m.View(), "[x] all on page") {
		t.Error("header does not show the page indicator")
	}

	m = press(t, m, runes("a"))
	if m.snap.AllSelected || m.snap.SelectedTotal != 0 {
		t.Errorf("second a did not clear the page: selected=%d", m.snap.SelectedTotal)
	}
}

func TestModel_Paging(t *testing.T) {
	m := openModel(t, 30)

	m = press(t, m, tea.KeyMsg{Type: tea.KeyRight})
	if m.snap.Page != 2 {
		t.Fatalf("page = %d after right, want 2", m.snap.Page)
	}
	m = press(t, m, runes("n"))
	m = press(t, m, runes("n"))
	if m.snap.Page != 3 {
		t.Errorf("page = %d, want to stop at 3", m.snap.Page)
	}
	m = press(t, m, runes("p"))
	m = press(t, m, tea.KeyMsg{Type: tea.KeyLeft})
	m = press(t, m, tea.KeyMsg{Type: tea.KeyLeft})
	if m.snap.Page != 1 {
		t.Errorf("page = %d, want to stop at 1", m.snap.Page)
	}
}

func TestModel_BulkPrompt(t *testing.T) {
	m := openModel(t, 40)

	m = update(t, m, runes("b"))
	if !m.prompting {
		t.Fatal("b did not open the prompt")
	}
	m = update(t, m, runes("25"))
	m = press(t, m, tea.KeyMsg{Type: tea.KeyEnter})

	if m.prompting {
		t.Error("prompt still open after enter")
	}
	if m.snap.Page != 3 || m.snap.SelectedTotal != 25 {
		t.Errorf("after bulk select: page %d, %d selected", m.snap.Page, m.snap.SelectedTotal)
	}
	if m.lastEvent != "Bulk selected 25 records" {
		t.Errorf("lastEvent = %q", m.lastEvent)
	}
}

func TestModel_BulkPromptRejects(t *testing.T) {
	m := openModel(t, 40)

	m = update(t, m, runes("b"))
	m = update(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	if m.prompting || m.snap.SelectedTotal != 0 {
		t.Error("esc did not cancel the prompt")
	}

	m = update(t, m, runes("b"))
	m = press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if m.snap.SelectedTotal != 0 || m.lastEvent != "Bulk select needs a number" {
		t.Errorf("empty count accepted: selected=%d event=%q", m.snap.SelectedTotal, m.lastEvent)
	}

	m = update(t, m, runes("b"))
	m = update(t, m, runes("-3"))
	m = press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if m.snap.SelectedTotal != 0 || m.lastEvent != "Bulk select needs a number" {
		t.Errorf("negative count accepted: selected=%d event=%q", m.snap.SelectedTotal, m.lastEvent)
	}
}

func TestModel_BulkZeroClears(t *testing.T) {
	m := openModel(t, 40)

	m = update(t, m, runes("b"))
	m = update(t, m, runes("0"))
	m = press(t, m, tea.KeyMsg{Type: tea.KeyEnter})

	if m.lastEvent != "Bulk request cleared" {
		t.Errorf("lastEvent = %q", m.lastEvent)
	}
	if m.snap.SelectedTotal != 0 || m.snap.Quota.Remaining != 0 {
		t.Errorf("zero count selected records: %d, quota %+v", m.snap.SelectedTotal, m.snap.Quota)
	}
}

func TestModel_KeysIgnoredWhileLoading(t *testing.T) {
	m := openModel(t, 30)
	m.loading = true

	m = update(t, m, tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}})
	if m.snap.SelectedTotal != 0 {
		t.Error("toggle applied while a page was loading")
	}

	_, cmd := m.Update(runes("q"))
	if cmd == nil {
		t.Fatal("q returned no command while loading")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("q did not quit while loading")
	}
}

func TestColumns(t *testing.T) {
	for _, width := range []int{40, 100, 200} {
		cols := columns(width)

		var titles []string
		for _, c := range cols {
			titles = append(titles, c.Title)
			if c.Width < 1 {
				t.Errorf("width %d: column %q has width %d", width, c.Title, c.Width)
			}
		}
		if got := strings.Join(titles, ","); got != ",ID,Title,Origin,Artist,Inscriptions,Date" {
			t.Errorf("width %d: columns = %s", width, got)
		}
	}
}
