package cli

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
)

func handleKeyActions(msg tea.KeyMsg, m model) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q":
		return m, tea.Quit
	case "tab":
		if m.mode == panelActivity {
			m.mode = panelModules
		} else {
			m.mode = panelActivity
		}
		return m, nil
	}

	if m.mode != panelModules {
		var cmd tea.Cmd
		m.activityList, cmd = m.activityList.Update(msg)
		return m, cmd
	}

	switch msg.String() {
	case "enter":
		if _, ok := m.selectedNode(); ok {
			m.showDetails = true
			m.selectedDepIndex = 0
		}
		return m, nil
	case "esc", "backspace":
		m.showDetails = false
		m.selectedDepIndex = 0
		return m, nil
	case "j":
		if imports := m.selectedImports(); m.showDetails && len(imports) > 0 {
			if m.selectedDepIndex < len(imports)-1 {
				m.selectedDepIndex++
			}
			return m, nil
		}
	case "k":
		if m.showDetails && m.selectedDepIndex > 0 {
			m.selectedDepIndex--
			return m, nil
		}
	case "o":
		target, ok := selectedSourceTarget(m)
		if !ok {
			m.sourceJumpStatus = statusStyle.Render("No source file for this module.")
			return m, nil
		}
		return m, jumpToSourceCmd(target)
	}

	var cmd tea.Cmd
	m.moduleList, cmd = m.moduleList.Update(msg)
	if !m.showDetails {
		m.selectedDepIndex = 0
	}
	return m, cmd
}

// selectedSourceTarget picks the highlighted import in the detail view, or
// the selected module itself. Virtual modules have no file.
func selectedSourceTarget(m model) (string, bool) {
	n, ok := m.selectedNode()
	if !ok {
		return "", false
	}
	target := n.URL
	if m.showDetails && len(n.SrcImports) > 0 {
		idx := min(max(m.selectedDepIndex, 0), len(n.SrcImports)-1)
		target = n.SrcImports[idx]
	}
	return target, filepath.IsAbs(target) && !strings.HasPrefix(target, "/@")
}

func jumpToSourceCmd(target string) tea.Cmd {
	editor := strings.TrimSpace(os.Getenv("EDITOR"))
	if editor == "" {
		editor = "vi"
	}
	cmd := exec.Command(editor, target)
	return tea.ExecProcess(cmd, func(err error) tea.Msg {
		return sourceJumpResultMsg{target: target, err: err}
	})
}
