package cli

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	coreapp "rds/internal/core/app"
	"rds/internal/engine/graph"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const maxActivity = 200

var (
	titleStyle = lipgloss.NewStyle().
			MarginLeft(2).
			Foreground(lipgloss.Color("#3B82F6")).
			Bold(true).
			Render

	docStyle = lipgloss.NewStyle().Margin(1, 2)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F87171")).
			Bold(true)

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#10B981")).
			Bold(true)

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#64748B")).
			Italic(true)
)

type item struct {
	title, desc string
}

func (i item) Title() string       { return i.title }
func (i item) Description() string { return i.desc }
func (i item) FilterValue() string { return i.title + i.desc }

type panelMode int

const (
	panelActivity panelMode = iota
	panelModules
)

// updateMsg carries one app update plus a graph snapshot taken with it.
type updateMsg struct {
	update  coreapp.Update
	modules []graph.Node
	clients int
}

type sourceJumpResultMsg struct {
	target string
	err    error
}

type model struct {
	activityList list.Model
	moduleList   list.Model
	mode         panelMode
	root         string
	addr         string

	activity   []item
	modules    []graph.Node
	last       coreapp.Update
	lastUpdate time.Time
	clients    int

	showDetails      bool
	selectedDepIndex int
	sourceJumpStatus string
}

func initialModel(root, addr string) model {
	activityList := list.New([]list.Item{}, list.NewDefaultDelegate(), 0, 0)
	activityList.Title = "Activity"
	activityList.SetShowStatusBar(false)
	activityList.SetFilteringEnabled(true)

	moduleList := list.New([]list.Item{}, list.NewDefaultDelegate(), 0, 0)
	moduleList.Title = "Module Graph"
	moduleList.SetShowStatusBar(false)
	moduleList.SetFilteringEnabled(true)

	return model{
		activityList: activityList,
		moduleList:   moduleList,
		mode:         panelActivity,
		root:         root,
		addr:         addr,
		lastUpdate:   time.Now(),
	}
}

func (m model) Init() tea.Cmd {
	return nil
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return handleKeyActions(msg, m)
	case tea.WindowSizeMsg:
		h, v := docStyle.GetFrameSize()
		width := msg.Width - h
		height := msg.Height - v - 10
		if height < 5 {
			height = 5
		}
		m.activityList.SetSize(width, height)
		m.moduleList.SetSize(width, height)
	case updateMsg:
		m = m.apply(msg)
	case sourceJumpResultMsg:
		if msg.err != nil {
			m.sourceJumpStatus = statusStyle.Render(fmt.Sprintf("Source jump failed: %v", msg.err))
		} else {
			m.sourceJumpStatus = statusStyle.Render(fmt.Sprintf("Opened source: %s", msg.target))
		}
	}

	var cmd tea.Cmd
	if m.mode == panelActivity {
		m.activityList, cmd = m.activityList.Update(msg)
	} else {
		m.moduleList, cmd = m.moduleList.Update(msg)
	}
	return m, cmd
}

func (m model) apply(msg updateMsg) model {
	m.last = msg.update
	m.modules = msg.modules
	m.clients = msg.clients
	m.lastUpdate = time.Now()

	if len(msg.update.Changed) > 0 {
		entry := item{
			title: m.lastUpdate.Format("15:04:05") + "  " + m.shortNames(msg.update.Changed),
			desc:  describeMessages(msg.update),
		}
		m.activity = append([]item{entry}, m.activity...)
		if len(m.activity) > maxActivity {
			m.activity = m.activity[:maxActivity]
		}
		items := make([]list.Item, 0, len(m.activity))
		for _, it := range m.activity {
			items = append(items, it)
		}
		m.activityList.SetItems(items)
	}

	moduleItems := make([]list.Item, 0, len(m.modules))
	for _, n := range m.modules {
		moduleItems = append(moduleItems, item{
			title: m.shortName(n.URL),
			desc:  describeNode(n),
		})
	}
	m.moduleList.SetItems(moduleItems)
	if m.selectedDepIndex >= len(m.selectedImports()) {
		m.selectedDepIndex = 0
	}
	return m
}

func (m model) View() string {
	status := statusStyle.Render(fmt.Sprintf("Last update: %v | %d modules | %d edges | %d clients | %s",
		m.lastUpdate.Format("15:04:05"), m.last.Modules, m.last.Edges, m.clients, m.addr))

	summary := successStyle.Render("Overlay clear")
	if m.last.Failing {
		summary = errorStyle.Render("Compile error shown in browser")
	}

	header := fmt.Sprintf("%s\n%s | %s\n", titleStyle("rds dev server"), status, summary)
	help := renderHelp(m)

	body := m.activityList.View()
	if m.mode == panelModules {
		body = renderModulePanel(m)
	}
	if m.sourceJumpStatus != "" {
		body += "\n\n" + m.sourceJumpStatus
	}
	return docStyle.Render(header + "\n" + help + "\n\n" + body)
}

// shortName shows files relative to the project root.
func (m model) shortName(id string) string {
	if m.root == "" || !filepath.IsAbs(id) {
		return id
	}
	rel, err := filepath.Rel(m.root, id)
	if err != nil || strings.HasPrefix(rel, "..") {
		return id
	}
	return filepath.ToSlash(rel)
}

func (m model) shortNames(ids []string) string {
	names := make([]string, 0, len(ids))
	for _, id := range ids {
		names = append(names, m.shortName(id))
	}
	if len(names) > 3 {
		return strings.Join(names[:3], ", ") + fmt.Sprintf(" +%d", len(names)-3)
	}
	return strings.Join(names, ", ")
}

func (m model) selectedNode() (graph.Node, bool) {
	if len(m.modules) == 0 {
		return graph.Node{}, false
	}
	idx := m.moduleList.Index()
	if idx < 0 || idx >= len(m.modules) {
		idx = 0
	}
	return m.modules[idx], true
}

func (m model) selectedImports() []string {
	n, ok := m.selectedNode()
	if !ok {
		return nil
	}
	return n.SrcImports
}

func describeMessages(u coreapp.Update) string {
	parts := make([]string, 0, len(u.Messages)+1)
	for _, t := range u.Messages {
		parts = append(parts, string(t))
	}
	if len(parts) == 0 {
		parts = append(parts, "no clients affected")
	}
	return fmt.Sprintf("%s in %s", strings.Join(parts, ", "), u.Duration.Round(time.Millisecond))
}

func describeNode(n graph.Node) string {
	desc := fmt.Sprintf("%s imports=%d importers=%d", n.Kind, len(n.SrcImports), len(n.Importers))
	if n.SelfUpdate {
		desc += " self-update"
	}
	if n.Entry {
		desc += " entry"
	}
	return desc
}
