package main

import (
	"bytes"
	"mime"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Simplici0/sweetcost/internal/calculations"
	"github.com/Simplici0/sweetcost/internal/export"
	"github.com/Simplici0/sweetcost/internal/pricing"
)

type previewLine struct {
	Name   string  `json:"name"`
	Priced bool    `json:"priced"`
	Cost   float64 `json:"cost"`
}

type totalsView struct {
	IngredientsCost float64 `json:"ingredientsCost"`
	LaborCost       float64 `json:"laborCost"`
	TotalCost       float64 `json:"totalCost"`
	MarkupPercent   float64 `json:"markupPercent"`
	SellingPrice    float64 `json:"sellingPrice"`
	PricePerPortion float64 `json:"pricePerPortion"`
	Profit          float64 `json:"profit"`
}

type previewResponse struct {
	Lines    []previewLine `json:"lines"`
	Unpriced []string      `json:"unpriced"`
	Totals   totalsView    `json:"totals"`
}

func newTotalsView(t pricing.Totals) totalsView {
	return totalsView{
		IngredientsCost: t.IngredientsCost,
		LaborCost:       t.LaborCost,
		TotalCost:       t.TotalCost,
		MarkupPercent:   t.MarkupPercent,
		SellingPrice:    t.SellingPrice,
		PricePerPortion: t.PricePerPortion,
		Profit:          t.Profit(),
	}
}

func newPreviewResponse(res pricing.Result) previewResponse {
	out := previewResponse{
		Lines:    make([]previewLine, 0, len(res.Lines)),
		Unpriced: res.Unpriced(),
		Totals:   newTotalsView(res.Totals),
	}
	if out.Unpriced == nil {
		out.Unpriced = []string{}
	}
	for _, line := range res.Lines {
		out.Lines = append(out.Lines, previewLine{
			Name:   line.Ingredient.Name,
			Priced: line.Priced,
			Cost:   line.Cost,
		})
	}
	return out
}

func (s *server) handleNewDraft(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.store.NewDraft())
}

type applyDraftRequest struct {
	Draft calculations.Draft      `json:"draft"`
	Patch calculations.DraftPatch `json:"patch"`
}

// handleApplyDraftPatch runs one editing step. Nothing is validated or saved;
// the client previews or saves the returned draft.
func (s *server) handleApplyDraftPatch(w http.ResponseWriter, r *http.Request) {
	var req applyDraftRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeBadRequest(w, err)
		return
	}
	writeJSON(w, http.StatusOK, req.Draft.Apply(req.Patch))
}

func (s *server) handlePreview(w http.ResponseWriter, r *http.Request) {
	var draft calculations.Draft
	if err := decodeJSON(w, r, &draft); err != nil {
		writeBadRequest(w, err)
		return
	}

	res, err := draft.Preview()
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newPreviewResponse(res))
}

func (s *server) handleListCalculations(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.store.List())
}

func (s *server) handleCreateCalculation(w http.ResponseWriter, r *http.Request) {
	var draft calculations.Draft
	if err := decodeJSON(w, r, &draft); err != nil {
		writeBadRequest(w, err)
		return
	}
	draft.EditingID = ""

	saved, err := s.store.Save(r.Context(), draft)
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Location", "/api/calculations/"+saved.ID)
	writeJSON(w, http.StatusCreated, saved)
}

func (s *server) handleGetCalculation(w http.ResponseWriter, r *http.Request) {
	calc, ok := s.store.Get(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, r, calculations.ErrNotFound)
		return
	}
	writeJSON(w, http.StatusOK, calc)
}

func (s *server) handleUpdateCalculation(w http.ResponseWriter, r *http.Request) {
	var draft calculations.Draft
	if err := decodeJSON(w, r, &draft); err != nil {
		writeBadRequest(w, err)
		return
	}
	draft.EditingID = chi.URLParam(r, "id")

	saved, err := s.store.Save(r.Context(), draft)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

func (s *server) handleDeleteCalculation(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *server) handleEditDraft(w http.ResponseWriter, r *http.Request) {
	draft, ok := s.store.Edit(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, r, calculations.ErrNotFound)
		return
	}
	writeJSON(w, http.StatusOK, draft)
}

func (s *server) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	calc, ok := s.store.Get(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, r, calculations.ErrNotFound)
		return
	}

	var buf bytes.Buffer
	if err := export.CSV(&buf, calc, s.currency); err != nil {
		writeError(w, r, err)
		return
	}

	disposition := mime.FormatMediaType("attachment", map[string]string{"filename": export.FileName(calc)})
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", disposition)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (s *server) handleExportText(w http.ResponseWriter, r *http.Request) {
	calc, ok := s.store.Get(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, r, calculations.ErrNotFound)
		return
	}

	var buf bytes.Buffer
	if err := export.Text(&buf, calc, s.currency); err != nil {
		writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}
