package ime

import (
	"errors"
	"log/slog"
)

// CandidatePanel exists only while the user is choosing among
// candidates. Selected indexes the engine's current candidate list.
type CandidatePanel struct {
	Selected int
}

// PanelView is what a renderer draws: one page of the current list.
type PanelView struct {
	Candidates []string
	// Selected indexes Candidates.
	Selected int
	Page     int
	Pages    int
	Total    int
}

// buildPanelView pages the engine's current candidate list around the
// selected index.
func buildPanelView(e Engine, selected int) PanelView {
	total := e.CandidateTotal()
	perPage := e.CandidatesPerPage()
	if perPage <= 0 {
		perPage = 10
	}
	if total == 0 {
		return PanelView{}
	}

	page := selected / perPage
	start := page * perPage
	end := min(start+perPage, total)

	view := PanelView{
		Candidates: make([]string, 0, end-start),
		Selected:   selected - start,
		Page:       page,
		Pages:      (total + perPage - 1) / perPage,
		Total:      total,
	}
	for i := start; i < end; i++ {
		view.Candidates = append(view.Candidates, e.CandidateString(i))
	}
	return view
}

// LogRenderer writes panel updates to a logger. It stands in for a
// graphical panel.
type LogRenderer struct {
	Logger *slog.Logger
}

func (r LogRenderer) logger() *slog.Logger {
	if r.Logger == nil {
		return slog.Default()
	}
	return r.Logger
}

// Render logs the visible page.
func (r LogRenderer) Render(view PanelView) error {
	r.logger().Debug("candidate panel",
		"candidates", view.Candidates,
		"selected", view.Selected,
		"page", view.Page+1,
		"pages", view.Pages,
	)
	return nil
}

// Hide logs that the panel closed.
func (r LogRenderer) Hide() error {
	r.logger().Debug("candidate panel closed")
	return nil
}

// MultiRenderer fans panel updates out to several renderers.
type MultiRenderer []PanelRenderer

func (m MultiRenderer) Render(view PanelView) error {
	var errs []error
	for _, r := range m {
		if err := r.Render(view); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m MultiRenderer) Hide() error {
	var errs []error
	for _, r := range m {
		if err := r.Hide(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
