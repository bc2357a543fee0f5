package http

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"khata/internal/core"
	"khata/internal/engine"
	"khata/internal/log"
	"khata/internal/services"
	"khata/internal/storage"
)

type recordView struct {
	ID         string  `json:"id"`
	Category   string  `json:"category"`
	Amount     float64 `json:"amount"`
	Merchant   string  `json:"merchant,omitempty"`
	Note       string  `json:"note,omitempty"`
	OccurredAt string  `json:"occurred_at"`
}

type assessmentView struct {
	Verdict string   `json:"verdict"`
	Reason  string   `json:"reason"`
	Tips    []string `json:"tips"`
}

type receiptResponse struct {
	Record         recordView     `json:"record"`
	Assessment     assessmentView `json:"assessment"`
	AmountDetected bool           `json:"amount_detected"`
}

type settingsView struct {
	Owner         string             `json:"owner"`
	MonthlyBudget float64            `json:"monthly_budget"`
	SavingsGoal   float64            `json:"savings_goal"`
	CategoryCaps  map[string]float64 `json:"category_caps"`
}

func viewRecord(rec core.ExpenseRecord) recordView {
	return recordView{
		ID:         rec.ID,
		Category:   string(rec.Category),
		Amount:     rec.Amount,
		Merchant:   rec.Merchant,
		Note:       rec.Note,
		OccurredAt: rec.OccurredAt.Format(core.TimestampLayout),
	}
}

func viewResult(res services.ReceiptResult) receiptResponse {
	tips := res.Assessment.Tips
	if tips == nil {
		tips = []string{}
	}
	return receiptResponse{
		Record: viewRecord(res.Record),
		Assessment: assessmentView{
			Verdict: string(res.Assessment.Verdict),
			Reason:  res.Assessment.Reason,
			Tips:    tips,
		},
		AmountDetected: res.AmountDetected,
	}
}

func viewSettings(s core.Settings) settingsView {
	caps := make(map[string]float64, len(s.CategoryCaps))
	for cat, v := range s.CategoryCaps {
		caps[string(cat)] = v
	}
	return settingsView{
		Owner:         s.Owner,
		MonthlyBudget: s.MonthlyBudget,
		SavingsGoal:   s.SavingsGoal,
		CategoryCaps:  caps,
	}
}

// handleProcessReceipt ingests OCR text and returns the stored record with
// its assessment.
func (s *Server) handleProcessReceipt(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}
	owner, err := ownerFromRequest(r)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req struct {
		Text     string `json:"text"`
		Filename string `json:"filename"`
	}
	if err := decodeJSONBody(r, &req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	res, err := s.svc.ProcessReceipt(r.Context(), owner, req.Text, sanitizeInput(req.Filename))
	if err != nil {
		if errors.Is(err, services.ErrEmptyText) {
			writeJSONError(w, http.StatusUnprocessableEntity, "receipt text is empty")
			return
		}
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Receipt processing failed", "error", err, "owner", owner)
		writeJSONError(w, http.StatusInternalServerError, "failed to process receipt")
		return
	}

	s.invalidateOwner(owner)
	writeJSON(w, http.StatusCreated, viewResult(res))
}

// handleAddExpense records a manually entered expense.
func (s *Server) handleAddExpense(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}
	owner, err := ownerFromRequest(r)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req struct {
		Amount     float64 `json:"amount"`
		Category   string  `json:"category"`
		Merchant   string  `json:"merchant"`
		Note       string  `json:"note"`
		OccurredAt string  `json:"occurred_at"`
	}
	if err := decodeJSONBody(r, &req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	res, err := s.svc.AddManual(r.Context(), owner, services.ManualEntry{
		Amount:     req.Amount,
		Category:   sanitizeInput(req.Category),
		Merchant:   sanitizeInput(req.Merchant),
		Note:       sanitizeInput(req.Note),
		OccurredAt: req.OccurredAt,
	})
	if err != nil {
		if errors.Is(err, services.ErrBadAmount) {
			writeJSONError(w, http.StatusUnprocessableEntity, "amount must be greater than zero")
			return
		}
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Manual expense failed", "error", err, "owner", owner)
		writeJSONError(w, http.StatusInternalServerError, "failed to save expense")
		return
	}

	s.invalidateOwner(owner)
	writeJSON(w, http.StatusCreated, viewResult(res))
}

// handleSummary serves the current-month overview, cached per owner.
func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	if !requireGet(w, r) {
		return
	}
	owner, err := ownerFromRequest(r)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	key := "summary:" + owner + ":"
	if cached, found := s.summaryCache.Get(key); found {
		writeJSON(w, http.StatusOK, cached)
		return
	}

	summary, err := s.svc.Summary(r.Context(), owner, time.Now())
	if err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Summary failed", "error", err, "owner", owner)
		writeJSONError(w, http.StatusInternalServerError, "failed to build summary")
		return
	}

	s.summaryCache.Set(key, summary)
	writeJSON(w, http.StatusOK, summary)
}

// handleCategoryBreakdown serves the all-time per-category ranking as
// parallel category and total arrays.
func (s *Server) handleCategoryBreakdown(w http.ResponseWriter, r *http.Request) {
	if !requireGet(w, r) {
		return
	}
	owner, err := ownerFromRequest(r)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	breakdown, err := s.svc.CategoryBreakdown(r.Context(), owner)
	if err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Category breakdown failed", "error", err, "owner", owner)
		writeJSONError(w, http.StatusInternalServerError, "failed to build category breakdown")
		return
	}

	categories := make([]string, 0, len(breakdown))
	totals := make([]float64, 0, len(breakdown))
	for _, ct := range breakdown {
		categories = append(categories, string(ct.Category))
		totals = append(totals, ct.Total)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"categories": categories,
		"totals":     totals,
	})
}

// handleAnalysis serves trend, category and forecast views for a range.
func (s *Server) handleAnalysis(w http.ResponseWriter, r *http.Request) {
	if !requireGet(w, r) {
		return
	}
	owner, err := ownerFromRequest(r)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	start := strings.TrimSpace(r.URL.Query().Get("start"))
	end := strings.TrimSpace(r.URL.Query().Get("end"))

	key := "analysis:" + owner + ":" + start + ":" + end
	if cached, found := s.analysisCache.Get(key); found {
		writeJSON(w, http.StatusOK, cached)
		return
	}

	analysis, err := s.svc.Analysis(r.Context(), owner, start, end, time.Now())
	if err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Analysis failed", "error", err, "owner", owner)
		writeJSONError(w, http.StatusInternalServerError, "failed to build analysis")
		return
	}

	s.analysisCache.Set(key, analysis)
	writeJSON(w, http.StatusOK, analysis)
}

// handleSetBudget updates the monthly budget and savings goal.
func (s *Server) handleSetBudget(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}
	owner, err := ownerFromRequest(r)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req struct {
		MonthlyBudget float64 `json:"monthly_budget"`
		SavingsGoal   float64 `json:"savings_goal"`
	}
	if err := decodeJSONBody(r, &req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.MonthlyBudget < 0 || req.SavingsGoal < 0 {
		writeJSONError(w, http.StatusUnprocessableEntity, "budget values must not be negative")
		return
	}

	settings, err := s.svc.SetBudget(r.Context(), owner, req.MonthlyBudget, req.SavingsGoal)
	if err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Budget update failed", "error", err, "owner", owner)
		writeJSONError(w, http.StatusInternalServerError, "failed to save budget")
		return
	}

	s.invalidateOwner(owner)
	writeJSON(w, http.StatusOK, viewSettings(settings))
}

// handleSetCaps replaces the per-category spending caps.
func (s *Server) handleSetCaps(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}
	owner, err := ownerFromRequest(r)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req struct {
		Caps map[string]float64 `json:"caps"`
	}
	if err := decodeJSONBody(r, &req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	caps := make(map[core.Category]float64, len(req.Caps))
	for name, amount := range req.Caps {
		cat := core.ParseCategory(name)
		if !strings.EqualFold(string(cat), strings.TrimSpace(name)) {
			writeJSONError(w, http.StatusUnprocessableEntity, "unknown category: "+name)
			return
		}
		if amount < 0 {
			writeJSONError(w, http.StatusUnprocessableEntity, "cap must not be negative: "+name)
			return
		}
		caps[cat] = amount
	}

	settings, err := s.svc.SetCategoryCaps(r.Context(), owner, caps)
	if err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Caps update failed", "error", err, "owner", owner)
		writeJSONError(w, http.StatusInternalServerError, "failed to save caps")
		return
	}

	s.invalidateOwner(owner)
	writeJSON(w, http.StatusOK, viewSettings(settings))
}

// handleDeleteLast removes the owner's most recent record.
func (s *Server) handleDeleteLast(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}
	owner, err := ownerFromRequest(r)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	deleted, err := s.svc.DeleteLast(r.Context(), owner)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeJSONError(w, http.StatusNotFound, "no expenses to delete")
			return
		}
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Delete last failed", "error", err, "owner", owner)
		writeJSONError(w, http.StatusInternalServerError, "failed to delete expense")
		return
	}

	s.invalidateOwner(owner)
	writeJSON(w, http.StatusOK, map[string]any{"deleted": viewRecord(deleted)})
}

// handleClear wipes all records and settings for the owner.
func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}
	owner, err := ownerFromRequest(r)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	count, err := s.svc.ClearData(r.Context(), owner)
	if err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Clear failed", "error", err, "owner", owner)
		writeJSONError(w, http.StatusInternalServerError, "failed to clear data")
		return
	}

	s.invalidateOwner(owner)
	writeJSON(w, http.StatusOK, map[string]int64{"deleted": count})
}

// handleTaxTips returns the static India-specific tax saving tips.
func (s *Server) handleTaxTips(w http.ResponseWriter, r *http.Request) {
	if !requireGet(w, r) {
		return
	}
	writeJSON(w, http.StatusOK, map[string][]string{"tips": engine.TaxTipsIndia})
}

// invalidateOwner drops every cached view of one owner after a write. The
// trailing delimiter keeps "bob" from matching "bob2" keys.
func (s *Server) invalidateOwner(owner string) {
	s.summaryCache.DeletePrefix("summary:" + owner + ":")
	s.analysisCache.DeletePrefix("analysis:" + owner + ":")
}
