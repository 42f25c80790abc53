package http

import (
	"errors"
	"net/http"

	"expensetracker/internal/core"
	"expensetracker/internal/log"
	"expensetracker/internal/services"
)

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet, http.MethodHead:
		s.renderCategories(w, r, http.StatusOK, formState{})
	case http.MethodPost:
		s.handleCreateCategory(w, r)
	default:
		MethodNotAllowedError("GET, POST").Write(w)
	}
}

func (s *Server) renderCategories(w http.ResponseWriter, r *http.Request, status int, form formState) {
	view, err := s.ledger.Categories(r.Context())
	if err != nil {
		s.renderViewError(w, r, "categories", err)
		return
	}
	data := categoriesPage{page: s.newPage("Categories", "categories", form), View: view}
	if status == http.StatusOK {
		data.Notice = noticeFor(r)
	}
	s.render(w, r, status, "categories.html", data)
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		BadRequestError("Invalid request format").Write(w)
		return
	}

	in := services.CreateCategoryInput{
		Name:     p.Get("name"),
		ColorHex: p.Get("colorHex"),
	}
	if _, err := s.ledger.CreateCategory(r.Context(), in); err != nil {
		s.writeCommandError(w, r, log.OpCreate, err, formState{Values: p.Values()}, func(status int, form formState) {
			s.renderCategories(w, r, status, form)
		})
		return
	}
	s.appMetrics.categoriesCreated.Add(1)

	s.writeCommandSuccess(w, r, services.CategoryCreated.String(), core.YearMonth{},
		"Category added.", withNotice("/categories", "category-created"))
}

// handleDeleteCategory refuses, with 409 and nothing changed, while any
// transaction references the category.
func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	if resp := RequireDeleteOrPOST(r); resp != nil {
		resp.Write(w)
		return
	}
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		BadRequestError("Invalid request format").Write(w)
		return
	}

	if err := s.ledger.DeleteCategory(r.Context(), p.Get("id")); err != nil {
		if errors.Is(err, core.ErrCategoryInUse) {
			s.appMetrics.categoryDeletesHeld.Add(1)
		}
		s.writeCommandError(w, r, log.OpDelete, err, formState{}, func(status int, form formState) {
			s.renderCategories(w, r, status, form)
		})
		return
	}
	s.appMetrics.categoriesDeleted.Add(1)

	s.writeCommandSuccess(w, r, services.CategoryDeleted.String(), core.YearMonth{},
		"Category deleted.", withNotice("/categories", "category-deleted"))
}
