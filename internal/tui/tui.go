// Package tui is a terminal month calendar over the same planner state the
// web UI uses.
package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"taskcal/internal/model"
	"taskcal/internal/planner"
	"taskcal/internal/schedule"
	"taskcal/internal/storage"
)

type mode int

const (
	modeBrowse mode = iota
	modeAdd
	modeSearch
	modeConfirmDelete
)

var (
	todayStyle   = lipgloss.NewStyle().Reverse(true)
	holidayStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	weekendStyle = lipgloss.NewStyle().Faint(true)
	dueSoonStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true)
	doneStyle    = lipgloss.NewStyle().Strikethrough(true).Faint(true)
	headerStyle  = lipgloss.NewStyle().Bold(true)
	panelStyle   = lipgloss.NewStyle().Border(lipgloss.NormalBorder()).Padding(0, 1)

	priorityStyles = map[model.Priority]lipgloss.Style{
		model.PriorityHigh:   lipgloss.NewStyle().Foreground(lipgloss.Color("9")),
		model.PriorityMedium: lipgloss.NewStyle().Foreground(lipgloss.Color("11")),
		model.PriorityLow:    lipgloss.NewStyle().Foreground(lipgloss.Color("10")),
	}

	accents = map[storage.Mode]lipgloss.Color{
		storage.ModeLight: lipgloss.Color("33"),
		storage.ModeDark:  lipgloss.Color("111"),
		storage.ModeGray:  lipgloss.Color("245"),
	}
)

type Model struct {
	app       *planner.App
	weekStart time.Weekday

	cursor   model.Date
	view     planner.MonthView
	day      []model.Occurrence
	selected int

	mode   mode
	input  textinput.Model
	status string
}

// New builds the model with the cursor on today.
func New(app *planner.App, weekStart time.Weekday) Model {
	ti := textinput.New()
	ti.CharLimit = 256
	ti.Width = 40

	m := Model{
		app:       app,
		weekStart: weekStart,
		cursor:    app.Today(),
		input:     ti,
		status:    "Press 'a' to add, space to toggle, 'd' to delete, '?' for keys.",
	}
	m.reload()
	return m
}

// Run starts the program on the alternate screen and blocks until quit.
func Run(app *planner.App, weekStart time.Weekday) error {
	_, err := tea.NewProgram(New(app, weekStart), tea.WithAltScreen()).Run()
	return err
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m *Model) reload() {
	m.view = m.app.Month(m.cursor.Year, m.cursor.Month)
	m.day = m.app.Day(m.cursor)
	m.selected = clampCursor(m.selected, len(m.day))
}

func (m Model) current() (model.Occurrence, bool) {
	if len(m.day) == 0 {
		return model.Occurrence{}, false
	}
	return m.day[clampCursor(m.selected, len(m.day))], true
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch m.mode {
		case modeAdd:
			return m.updateAdd(msg)
		case modeSearch:
			return m.updateSearch(msg)
		case modeConfirmDelete:
			return m.updateConfirmDelete(msg.String())
		}
		return m.updateBrowse(msg.String())
	case tea.WindowSizeMsg:
		m.input.Width = max(msg.Width-10, 10)
	}
	return m, nil
}

func (m Model) moveCursor(to model.Date) Model {
	if to != m.cursor {
		m.selected = 0
	}
	m.cursor = to
	m.reload()
	return m
}

func (m Model) updateBrowse(key string) (tea.Model, tea.Cmd) {
	switch key {
	case "ctrl+c", "q":
		return m, tea.Quit
	case "left", "h":
		return m.moveCursor(m.cursor.AddDays(-1)), nil
	case "right", "l":
		return m.moveCursor(m.cursor.AddDays(1)), nil
	case "up", "k":
		return m.moveCursor(m.cursor.AddDays(-7)), nil
	case "down", "j":
		return m.moveCursor(m.cursor.AddDays(7)), nil
	case "[":
		return m.moveCursor(shiftMonth(m.cursor, -1)), nil
	case "]":
		return m.moveCursor(shiftMonth(m.cursor, 1)), nil
	case "t":
		return m.moveCursor(m.app.Today()), nil
	case "tab":
		if len(m.day) > 0 {
			m.selected = (m.selected + 1) % len(m.day)
		}
	case "shift+tab":
		if len(m.day) > 0 {
			m.selected = wrapIndex(m.selected-1, len(m.day))
		}
	case "a":
		m.mode = modeAdd
		m.input.Placeholder = "Task (optional leading HH:MM)"
		m.input.SetValue("")
		m.status = "Add mode: type a description and press Enter"
		cmd := m.input.Focus()
		return m, cmd
	case "/":
		m.mode = modeSearch
		m.input.Placeholder = "Search"
		m.input.SetValue(m.app.Filter().Search)
		m.status = "Search: Enter to apply, Esc to cancel"
		cmd := m.input.Focus()
		return m, cmd
	case " ", "x":
		occ, ok := m.current()
		if !ok {
			m.status = "No task selected"
			return m, nil
		}
		def, err := m.app.ToggleCompleted(occ.Ref())
		if err != nil {
			m.status = fmt.Sprintf("toggle failed: %v", err)
			return m, nil
		}
		m.status = fmt.Sprintf("%q marked %s", def.Description, humanDone(def.Completed))
		m.reload()
	case "d":
		occ, ok := m.current()
		if !ok {
			m.status = "No task selected"
			return m, nil
		}
		m.mode = modeConfirmDelete
		if occ.IsRecurring() {
			m.status = fmt.Sprintf("Delete %q: [i]nstance, [s]eries or [n]o?", occ.Description)
		} else {
			m.status = fmt.Sprintf("Delete %q? y/n", occ.Description)
		}
	case ">", "<", ")", "(":
		occ, ok := m.current()
		if !ok {
			m.status = "No task selected"
			return m, nil
		}
		delta := 1
		if key == "<" || key == "(" {
			delta = -1
		}
		series := key == ")" || key == "("
		to := m.cursor.AddDays(delta)
		if _, err := m.app.Move(occ.Ref(), to, series); err != nil {
			m.status = fmt.Sprintf("move failed: %v", err)
			return m, nil
		}
		if series && occ.IsRecurring() {
			m.status = fmt.Sprintf("Series %q now starts %s", occ.Description, to)
		} else {
			m.status = fmt.Sprintf("Moved %q to %s", occ.Description, to)
		}
		m.selected = 0
		m.cursor = to
		m.reload()
	case "H":
		if m.app.ToggleHoliday(m.cursor) {
			m.status = m.cursor.String() + " marked as holiday"
		} else {
			m.status = m.cursor.String() + " is no longer a holiday"
		}
		m.reload()
	case "c":
		f := m.app.Filter()
		f.Completion = nextCompletion(f.Completion)
		m.app.SetFilter(f)
		m.status = "Showing " + string(f.Completion) + " tasks"
		m.reload()
	case "C":
		f := m.app.Filter()
		f.HideCompleted = !f.HideCompleted
		m.app.SetFilter(f)
		if f.HideCompleted {
			m.status = "Hiding completed tasks"
		} else {
			m.status = "Showing completed tasks"
		}
		m.reload()
	case "m":
		m.status = "Mode: " + string(m.app.CycleMode())
	case "?":
		m.status = renderHelp()
	}
	return m, nil
}

func (m Model) leaveInput(status string) Model {
	m.mode = modeBrowse
	m.input.SetValue("")
	m.input.Blur()
	m.status = status
	return m
}

func (m Model) updateAdd(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		return m.leaveInput("Cancelled"), nil
	case "enter":
		desc, tm := splitTime(m.input.Value())
		def, err := m.app.AddTask(model.DefinitionInput{
			Description: desc,
			Time:        tm,
			Date:        m.cursor.String(),
		})
		if err != nil {
			m.status = fmt.Sprintf("add failed: %v", err)
			return m, nil
		}
		m = m.leaveInput(fmt.Sprintf("Added %q", def.Description))
		m.reload()
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) updateSearch(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		return m.leaveInput("Search cancelled"), nil
	case "enter":
		f := m.app.Filter()
		f.Search = strings.TrimSpace(m.input.Value())
		m.app.SetFilter(f)
		status := "Search cleared"
		if f.Search != "" {
			status = fmt.Sprintf("Filtering by %q", f.Search)
		}
		m = m.leaveInput(status)
		m.selected = 0
		m.reload()
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) updateConfirmDelete(key string) (tea.Model, tea.Cmd) {
	occ, ok := m.current()
	if !ok {
		m.mode = modeBrowse
		m.status = "Nothing to delete"
		return m, nil
	}

	var instance bool
	switch key {
	case "y", "Y", "s", "S":
	case "i", "I":
		if !occ.IsRecurring() {
			return m, nil
		}
		instance = true
	case "n", "N", "esc":
		m.mode = modeBrowse
		m.status = "Delete cancelled"
		return m, nil
	default:
		return m, nil
	}

	m.mode = modeBrowse
	if err := m.app.Delete(occ.Ref(), instance); err != nil {
		m.status = fmt.Sprintf("delete failed: %v", err)
		return m, nil
	}
	if instance {
		m.status = "Deleted this occurrence"
	} else {
		m.status = fmt.Sprintf("Deleted %q", occ.Description)
	}
	m.reload()
	return m, nil
}

func (m Model) View() string {
	var b strings.Builder

	accent := lipgloss.NewStyle().Foreground(accents[m.app.Preferences().Mode]).Bold(true)
	title := time.Date(m.cursor.Year, m.cursor.Month, 1, 0, 0, 0, 0, time.UTC).Format("January 2006")
	b.WriteString(accent.Render(title))
	b.WriteString("\n\n")
	b.WriteString(m.renderGrid())
	b.WriteString("\n")
	b.WriteString(panelStyle.Render(m.renderDay()))
	b.WriteString("\n")

	if m.mode == modeAdd || m.mode == modeSearch {
		b.WriteString(m.input.View())
		b.WriteString("\n")
	}
	b.WriteString(m.status)
	b.WriteString("\n")
	return b.String()
}

func (m Model) renderGrid() string {
	var b strings.Builder
	for i := 0; i < 7; i++ {
		wd := time.Weekday((int(m.weekStart) + i) % 7)
		b.WriteString(headerStyle.Render(fmt.Sprintf(" %-4s", wd.String()[:2])))
	}
	b.WriteString("\n")

	if len(m.view.Cells) == 0 {
		return b.String()
	}
	lead := (int(m.view.Cells[0].Date.Weekday()) - int(m.weekStart) + 7) % 7
	b.WriteString(strings.Repeat("     ", lead))
	col := lead
	for _, c := range m.view.Cells {
		b.WriteString(m.renderCell(c))
		col++
		if col == 7 {
			b.WriteString("\n")
			col = 0
		}
	}
	if col != 0 {
		b.WriteString("\n")
	}
	return b.String()
}

// renderCell draws one five-column cell: brackets mark the cursor, "*" a
// day with tasks and "!" a busy day.
func (m Model) renderCell(c planner.Cell) string {
	marker := " "
	switch {
	case c.Flags.HighDensity:
		marker = "!"
	case c.Flags.HasTask:
		marker = "*"
	}
	num := fmt.Sprintf("%2d", c.Date.Day)

	style := lipgloss.NewStyle()
	switch {
	case c.Flags.IsToday:
		style = todayStyle
	case c.Flags.IsHoliday:
		style = holidayStyle
	case c.Flags.DueSoon:
		style = dueSoonStyle
	case c.Flags.IsWeekend:
		style = weekendStyle
	}
	num = style.Render(num)

	if c.Date == m.cursor {
		return "[" + num + marker + "]"
	}
	return " " + num + marker + " "
}

func (m Model) renderDay() string {
	var b strings.Builder
	b.WriteString(headerStyle.Render(m.cursor.Long()))
	if m.app.IsHoliday(m.cursor) {
		b.WriteString(holidayStyle.Render(" (holiday)"))
	}
	b.WriteString("\n")

	if len(m.day) == 0 {
		b.WriteString("No tasks. Press 'a' to add one.")
		return b.String()
	}
	for i, o := range m.day {
		cursor := " "
		if i == m.selected {
			cursor = ">"
		}
		checkbox := "[ ]"
		if o.Completed {
			checkbox = "[x]"
		}
		desc := o.Description
		if o.Completed {
			desc = doneStyle.Render(desc)
		}
		line := fmt.Sprintf("%s %s ", cursor, checkbox)
		if o.Time != "" {
			line += o.Time + " "
		}
		line += desc
		line += " " + priorityStyles[o.Priority].Render("["+string(o.Priority)+"]")
		line += " " + o.Category
		if o.IsRecurring() {
			line += " (" + string(o.Recurrence) + ")"
		}
		b.WriteString(line)
		if i < len(m.day)-1 {
			b.WriteString("\n")
		}
	}
	return b.String()
}

func renderHelp() string {
	return "hjkl/arrows move • [ ] month • t today • tab select • a add • space toggle • d delete • < > move task • ( ) move series • H holiday • / search • c completion • C hide done • m mode • q quit"
}

// splitTime peels an optional leading "HH:MM" off an add-mode entry.
func splitTime(v string) (desc, tm string) {
	v = strings.TrimSpace(v)
	head, rest, ok := strings.Cut(v, " ")
	if ok {
		if t, err := model.ParseTime(head); err == nil && t != "" {
			return strings.TrimSpace(rest), t
		}
	}
	return v, ""
}

func shiftMonth(d model.Date, delta int) model.Date {
	first := time.Date(d.Year, d.Month+time.Month(delta), 1, 0, 0, 0, 0, time.UTC)
	day := min(d.Day, model.DaysInMonth(first.Year(), first.Month()))
	return model.Date{Year: first.Year(), Month: first.Month(), Day: day}
}

func nextCompletion(c schedule.Completion) schedule.Completion {
	switch c {
	case schedule.CompletionAll:
		return schedule.CompletionIncomplete
	case schedule.CompletionIncomplete:
		return schedule.CompletionCompleted
	default:
		return schedule.CompletionAll
	}
}

func wrapIndex(idx, n int) int {
	if n <= 0 {
		return 0
	}
	idx %= n
	if idx < 0 {
		idx += n
	}
	return idx
}

func clampCursor(cur, n int) int {
	if n <= 0 {
		return 0
	}
	if cur < 0 {
		return 0
	}
	if cur >= n {
		return n - 1
	}
	return cur
}

func humanDone(done bool) string {
	if done {
		return "done"
	}
	return "pending"
}
