package cli

import (
	"context"
	"errors"

	coreapp "rds/internal/core/app"

	tea "github.com/charmbracelet/bubbletea"
)

func runUI(ctx context.Context, app *coreapp.App, addr string) error {
	m := initialModel(app.Paths.Root, addr)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))

	sendUpdate := func(update coreapp.Update) {
		p.Send(updateMsg{
			update:  update,
			modules: app.Graph.Nodes(),
			clients: app.Health(ctx).Clients,
		})
	}
	app.SetUpdateHandler(sendUpdate)

	go func() {
		nodes, edges := app.Graph.Stats()
		sendUpdate(coreapp.Update{Modules: nodes, Edges: edges, Failing: app.HMR.Failing()})
	}()

	_, err := p.Run()
	app.SetUpdateHandler(nil)
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
