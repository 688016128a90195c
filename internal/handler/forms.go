package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/matthewbaird/edidform/internal/binding"
	"github.com/matthewbaird/edidform/internal/httputil"
	"github.com/matthewbaird/edidform/internal/ruleset"
	"github.com/matthewbaird/edidform/internal/visibility"
)

// FormHandler serves one-shot evaluation and cleaning of form state.
type FormHandler struct {
	registry *ruleset.Registry
	binders  map[string]*binding.Binder
}

// NewFormHandler creates a handler with one binder per registered form.
func NewFormHandler(registry *ruleset.Registry) *FormHandler {
	h := &FormHandler{
		registry: registry,
		binders:  make(map[string]*binding.Binder),
	}
	for _, f := range registry.Forms() {
		sets, _ := registry.FormSections(f.Name)
		h.binders[f.Name] = binding.New(sets)
	}
	return h
}

// RegisterRoutes mounts the REST endpoints on r.
func RegisterRoutes(r chi.Router, registry *ruleset.Registry) {
	h := NewFormHandler(registry)
	r.Route("/api", func(r chi.Router) {
		r.Get("/forms", h.ListForms)
		r.Get("/forms/{form}", h.GetForm)
		r.Post("/forms/{form}/evaluate", h.EvaluateForm)
		r.Post("/forms/{form}/clean", h.CleanForm)
		r.Get("/sections", h.ListSections)
		r.Get("/sections/{section}", h.GetSection)
		r.Post("/sections/{section}/evaluate", h.EvaluateSection)
	})
}

// FormView describes a form and the fields that drive it.
type FormView struct {
	ruleset.Form
	Drivers []string `json:"drivers"`
}

// SectionView is a rule set plus its derived field lists.
type SectionView struct {
	visibility.RuleSet
	Drivers    []string `json:"drivers"`
	Dependents []string `json:"dependents"`
}

// EvaluateRequest is the body of the evaluate endpoints. Field, when set,
// names the driver that changed; otherwise the form is evaluated as on
// first display.
type EvaluateRequest struct {
	Field string          `json:"field,omitempty"`
	Form  visibility.Form `json:"form"`
}

// EvaluateFormResponse carries directives per section.
type EvaluateFormResponse struct {
	Sections binding.Result `json:"sections"`
}

// EvaluateSectionResponse carries one section's directives and the rules
// that were skipped or fell back.
type EvaluateSectionResponse struct {
	State       visibility.State        `json:"state"`
	Diagnostics []visibility.Diagnostic `json:"diagnostics"`
}

// CleanRequest is the body of the clean endpoint.
type CleanRequest struct {
	Form visibility.Form `json:"form"`
}

// CleanResponse carries the submit-ready form.
type CleanResponse struct {
	Form   visibility.Form         `json:"form"`
	Errors []visibility.FieldError `json:"errors"`
}

func (h *FormHandler) formView(f ruleset.Form) FormView {
	return FormView{Form: f, Drivers: h.binders[f.Name].Drivers()}
}

func sectionView(rs visibility.RuleSet) SectionView {
	return SectionView{RuleSet: rs, Drivers: rs.Drivers(), Dependents: rs.Dependents()}
}

func (h *FormHandler) ListForms(w http.ResponseWriter, r *http.Request) {
	forms := h.registry.Forms()
	out := make([]FormView, 0, len(forms))
	for _, f := range forms {
		out = append(out, h.formView(f))
	}
	httputil.WriteJSON(w, http.StatusOK, out)
}

func (h *FormHandler) GetForm(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "form")
	f, ok := h.registry.Form(name)
	if !ok {
		httputil.WriteError(w, http.StatusNotFound, "NOT_FOUND", "unknown form: "+name)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, h.formView(f))
}

func (h *FormHandler) ListSections(w http.ResponseWriter, r *http.Request) {
	sets := h.registry.Sections()
	out := make([]SectionView, 0, len(sets))
	for _, rs := range sets {
		out = append(out, sectionView(rs))
	}
	httputil.WriteJSON(w, http.StatusOK, out)
}

func (h *FormHandler) GetSection(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "section")
	rs, ok := h.registry.Section(name)
	if !ok {
		httputil.WriteError(w, http.StatusNotFound, "NOT_FOUND", "unknown section: "+name)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, sectionView(rs))
}

func (h *FormHandler) EvaluateForm(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "form")
	b, ok := h.binders[name]
	if !ok {
		httputil.WriteError(w, http.StatusNotFound, "NOT_FOUND", "unknown form: "+name)
		return
	}
	var req EvaluateRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "INVALID_JSON", err.Error())
		return
	}

	var res binding.Result
	if req.Field != "" {
		res = b.Change(r.Context(), req.Field, req.Form)
	} else {
		res = b.Ready(r.Context(), req.Form)
	}
	httputil.WriteJSON(w, http.StatusOK, EvaluateFormResponse{Sections: res})
}

func (h *FormHandler) EvaluateSection(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "section")
	rs, ok := h.registry.Section(name)
	if !ok {
		httputil.WriteError(w, http.StatusNotFound, "NOT_FOUND", "unknown section: "+name)
		return
	}
	var req EvaluateRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "INVALID_JSON", err.Error())
		return
	}

	st, diags := visibility.Explain(rs, req.Form)
	if diags == nil {
		diags = []visibility.Diagnostic{}
	}
	httputil.WriteJSON(w, http.StatusOK, EvaluateSectionResponse{State: st, Diagnostics: diags})
}

func (h *FormHandler) CleanForm(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "form")
	sets, ok := h.registry.FormSections(name)
	if !ok {
		httputil.WriteError(w, http.StatusNotFound, "NOT_FOUND", "unknown form: "+name)
		return
	}
	var req CleanRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "INVALID_JSON", err.Error())
		return
	}

	form, errs := visibility.CleanAll(sets, req.Form)
	status := http.StatusOK
	if len(errs) > 0 {
		status = http.StatusUnprocessableEntity
	} else {
		errs = []visibility.FieldError{}
	}
	httputil.WriteJSON(w, status, CleanResponse{Form: form, Errors: errs})
}
