package http

import (
	"bytes"
	"errors"
	"net/http"
	"sync/atomic"

	"github.com/shopspring/decimal"

	"smartbudget/internal/core"
	"smartbudget/internal/export"
	"smartbudget/internal/log"
	"smartbudget/internal/services"
	"smartbudget/internal/wizard"
)

type filterJSON struct {
	Essentials bool `json:"essentials"`
	Lifestyle  bool `json:"lifestyle"`
	Savings    bool `json:"savings"`
}

type groupsJSON struct {
	Essentials map[string]string `json:"essentials"`
	Lifestyle  map[string]string `json:"lifestyle"`
	Savings    map[string]string `json:"savings"`
	Other      map[string]string `json:"other"`
}

type shareJSON struct {
	Category string `json:"category"`
	Amount   string `json:"amount"`
	Percent  string `json:"percent"`
}

type dashboardJSON struct {
	SetUp           bool              `json:"set_up"`
	Filter          filterJSON        `json:"filter"`
	Income          map[string]string `json:"income"`
	Expenses        map[string]string `json:"expenses"`
	Groups          groupsJSON        `json:"groups"`
	Totals          totalsJSON        `json:"totals"`
	VisibleExpense  string            `json:"visible_expense"`
	Profile         profileJSON       `json:"profile"`
	Breakdown       []shareJSON       `json:"breakdown"`
	Recommendations []core.Tip        `json:"recommendations"`
}

func toDashboardJSON(d services.Dashboard) dashboardJSON {
	shares := export.Breakdown(d.Visible)
	breakdown := make([]shareJSON, len(shares))
	for i, sh := range shares {
		breakdown[i] = shareJSON{Category: sh.Category, Amount: amountJSON(sh.Amount), Percent: sh.Percent.StringFixed(2)}
	}
	return dashboardJSON{
		SetUp:    d.SetUp(),
		Filter:   filterJSON(d.Filter),
		Income:   amountsJSON(d.Budget.Income),
		Expenses: amountsJSON(d.Visible),
		Groups: groupsJSON{
			Essentials: amountsJSON(d.Essentials),
			Lifestyle:  amountsJSON(d.Lifestyle),
			Savings:    amountsJSON(d.Savings),
			Other:      amountsJSON(d.Other),
		},
		Totals:          toTotalsJSON(d.Totals),
		VisibleExpense:  amountJSON(d.VisibleExpense),
		Profile:         toProfileJSON(d.Budget.Profile),
		Breakdown:       breakdown,
		Recommendations: d.Tips,
	}
}

type profileRequest struct {
	Dependents     int         `json:"dependents"`
	SavingsPercent AmountInput `json:"savings_percent"`
}

func (p profileRequest) profile() (core.Profile, error) {
	pct := decimal.Zero
	if p.SavingsPercent != "" {
		d, err := p.SavingsPercent.Decimal()
		if err != nil {
			return core.Profile{}, err
		}
		pct = d
	}
	return core.Profile{Dependents: p.Dependents, SavingsPercent: pct}, nil
}

type budgetRequest struct {
	Income   map[string]AmountInput `json:"income"`
	Expenses map[string]AmountInput `json:"expenses"`
	Profile  *profileRequest        `json:"profile,omitempty"`
}

func (s *Server) handleGetBudget(w http.ResponseWriter, r *http.Request) {
	filter, err := ParseFilter(r.URL.Query())
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	s.writeDashboard(w, r, filter, http.StatusOK)
}

func (s *Server) writeDashboard(w http.ResponseWriter, r *http.Request, filter core.Filter, status int) {
	dash, err := s.budgets.Dashboard(r.Context(), sessionFrom(r.Context()).UserID, filter)
	if err != nil {
		s.internalError(w, r, "Dashboard load failed", err, log.ComponentBudget, log.OpRead)
		return
	}
	NewJSONResponse().Status(status).Data(toDashboardJSON(dash)).Write(w)
}

// handlePutBudget replaces the income and expenses wholesale.
func (s *Server) handlePutBudget(w http.ResponseWriter, r *http.Request) {
	var req budgetRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeDecodeError(w, err)
		return
	}
	in, err := parseAmounts("income", req.Income)
	if err != nil {
		UnprocessableEntityError(err.Error()).Write(w)
		return
	}
	ex, err := parseAmounts("expense", req.Expenses)
	if err != nil {
		UnprocessableEntityError(err.Error()).Write(w)
		return
	}
	var profile *core.Profile
	if req.Profile != nil {
		p, err := req.Profile.profile()
		if err != nil {
			UnprocessableEntityError("savings_percent: " + err.Error()).Write(w)
			return
		}
		profile = &p
	}
	s.saveBudget(w, r, core.Income(in), core.Expenses(ex), profile)
}

func (s *Server) saveBudget(w http.ResponseWriter, r *http.Request, in core.Income, ex core.Expenses, profile *core.Profile) {
	userID := sessionFrom(r.Context()).UserID
	if err := s.budgets.SaveBudget(r.Context(), userID, in, ex, profile); err != nil {
		s.writeBudgetError(w, r, "Budget save failed", err)
		return
	}
	atomic.AddInt64(&s.appMetrics.budgetsSaved, 1)
	s.events.LogBudgetSaved(r.Context(), userID, len(in), len(ex))
	s.writeDashboard(w, r, core.ShowAll(), http.StatusOK)
}

func (s *Server) writeBudgetError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	if errors.Is(err, services.ErrInvalidBudget) {
		UnprocessableEntityError(err.Error()).Write(w)
		return
	}
	s.internalError(w, r, msg, err, log.ComponentBudget, log.OpReplace)
}

func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	p, err := s.budgets.Profile(r.Context(), sessionFrom(r.Context()).UserID)
	if err != nil {
		s.internalError(w, r, "Profile load failed", err, log.ComponentBudget, log.OpRead)
		return
	}
	NewJSONResponse().Data(toProfileJSON(p)).Write(w)
}

func (s *Server) handlePutProfile(w http.ResponseWriter, r *http.Request) {
	var req profileRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeDecodeError(w, err)
		return
	}
	p, err := req.profile()
	if err != nil {
		UnprocessableEntityError("savings_percent: " + err.Error()).Write(w)
		return
	}
	if err := s.budgets.UpdateProfile(r.Context(), sessionFrom(r.Context()).UserID, p); err != nil {
		s.writeBudgetError(w, r, "Profile update failed", err)
		return
	}
	NewJSONResponse().Data(toProfileJSON(p)).Write(w)
}

func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	filter, err := ParseFilter(r.URL.Query())
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	b, err := s.budgets.Snapshot(r.Context(), sessionFrom(r.Context()).UserID)
	if err != nil {
		s.internalError(w, r, "Budget load failed", err, log.ComponentExport, log.OpExport)
		return
	}
	var buf bytes.Buffer
	if err := export.WriteCSV(&buf, b, filter); err != nil {
		s.internalError(w, r, "CSV export failed", err, log.ComponentExport, log.OpExport)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="budget.csv"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	filter, err := ParseFilter(r.URL.Query())
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	b, err := s.budgets.Snapshot(r.Context(), sessionFrom(r.Context()).UserID)
	if err != nil {
		s.internalError(w, r, "Budget load failed", err, log.ComponentExport, log.OpExport)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(export.Report(b, filter)))
}

// handleSync pushes the budget to the spreadsheet right away instead of
// waiting for the background sync.
func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	userID := sessionFrom(r.Context()).UserID
	err := services.SyncReport(r.Context(), s.budgets, s.exporter, userID)
	switch {
	case err == nil:
		atomic.AddInt64(&s.appMetrics.exports, 1)
		NewJSONResponse().Data(map[string]any{"status": "synced"}).Write(w)
	case errors.Is(err, services.ErrSyncDisabled):
		ServiceUnavailableError(err.Error()).Write(w)
	default:
		log.NewStructuredLogger(log.FromContext(r.Context())).LogError(r.Context(), "Report sync failed", err,
			log.ComponentSheets, log.OpSync, log.NewFields().WithUser(userID).WithErrorType(log.ErrorTypeNetwork))
		BadGatewayError("report sync failed").Write(w)
	}
}

type incomeStreamJSON struct {
	Name   string      `json:"name"`
	Amount AmountInput `json:"amount"`
}

type setupRequest struct {
	Incomes        []incomeStreamJSON     `json:"incomes"`
	Essentials     map[string]AmountInput `json:"essentials"`
	Lifestyle      map[string]AmountInput `json:"lifestyle"`
	Dependents     int                    `json:"dependents"`
	SavingsPercent AmountInput            `json:"savings_percent"`
}

type setupStateJSON struct {
	Incomes        []map[string]string `json:"incomes"`
	Essentials     map[string]string   `json:"essentials"`
	Lifestyle      map[string]string   `json:"lifestyle"`
	Dependents     int                 `json:"dependents"`
	SavingsPercent string              `json:"savings_percent"`
}

type reviewJSON struct {
	TotalIncome      string `json:"total_income"`
	SavingsAmount    string `json:"savings_amount"`
	EstimatedExpense string `json:"estimated_expense"`
	EstimatedBalance string `json:"estimated_balance"`
}

type previewJSON struct {
	Income          map[string]string `json:"income"`
	Expenses        map[string]string `json:"expenses"`
	Profile         profileJSON       `json:"profile"`
	Review          reviewJSON        `json:"review"`
	Recommendations []core.Tip        `json:"recommendations"`
}

// runWizard drives a setup wizard from the first step to review with the
// answers of req.
func runWizard(req setupRequest) (wizard.Plan, error) {
	st := wizard.New()
	var err error
	if n := len(req.Incomes); n > 0 {
		if st, err = st.SetIncomeCount(n); err != nil {
			return wizard.Plan{}, err
		}
	}
	if st, err = st.Next(); err != nil {
		return wizard.Plan{}, err
	}
	for i, inc := range req.Incomes {
		amt, err := inc.Amount.Decimal()
		if err != nil {
			return wizard.Plan{}, err
		}
		if st, err = st.SetIncome(i, sanitizeInput(inc.Name), amt); err != nil {
			return wizard.Plan{}, err
		}
	}
	if st, err = st.Next(); err != nil {
		return wizard.Plan{}, err
	}
	for cat, raw := range req.Essentials {
		amt, err := raw.Decimal()
		if err != nil {
			return wizard.Plan{}, err
		}
		if st, err = st.SetEssential(cat, amt); err != nil {
			return wizard.Plan{}, err
		}
	}
	if st, err = st.Next(); err != nil {
		return wizard.Plan{}, err
	}
	for cat, raw := range req.Lifestyle {
		amt, err := raw.Decimal()
		if err != nil {
			return wizard.Plan{}, err
		}
		if st, err = st.SetLifestyle(cat, amt); err != nil {
			return wizard.Plan{}, err
		}
	}
	if st, err = st.Next(); err != nil {
		return wizard.Plan{}, err
	}
	pct := st.SavingsPercent()
	if req.SavingsPercent != "" {
		if pct, err = req.SavingsPercent.Decimal(); err != nil {
			return wizard.Plan{}, err
		}
	}
	if st, err = st.SetProfile(req.Dependents, pct); err != nil {
		return wizard.Plan{}, err
	}
	if st, err = st.Next(); err != nil {
		return wizard.Plan{}, err
	}
	return st.Complete()
}

func toPreviewJSON(p wizard.Plan) previewJSON {
	rv := p.Review()
	return previewJSON{
		Income:   amountsJSON(p.Income),
		Expenses: amountsJSON(p.Expenses),
		Profile:  toProfileJSON(p.Profile),
		Review: reviewJSON{
			TotalIncome:      amountJSON(rv.TotalIncome),
			SavingsAmount:    amountJSON(rv.SavingsAmount),
			EstimatedExpense: amountJSON(rv.EstimatedExpense),
			EstimatedBalance: amountJSON(rv.EstimatedBalance),
		},
		Recommendations: core.Advise(p.Profile, p.Income, p.Expenses),
	}
}

// handleGetSetup returns the wizard answers seeded from the saved budget.
func (s *Server) handleGetSetup(w http.ResponseWriter, r *http.Request) {
	b, err := s.budgets.Snapshot(r.Context(), sessionFrom(r.Context()).UserID)
	if err != nil {
		s.internalError(w, r, "Budget load failed", err, log.ComponentBudget, log.OpRead)
		return
	}
	st := wizard.FromBudget(b)
	out := setupStateJSON{
		Dependents:     st.Dependents(),
		SavingsPercent: st.SavingsPercent().String(),
	}
	for _, inc := range st.Incomes() {
		out.Incomes = append(out.Incomes, map[string]string{"name": inc.Name, "amount": amountJSON(inc.Amount)})
	}
	plan := st.Plan()
	ess, life, _, _ := core.SplitExpenses(plan.Expenses)
	out.Essentials = amountsJSON(ess)
	out.Lifestyle = amountsJSON(life)
	NewJSONResponse().Data(out).Write(w)
}

func (s *Server) handleSetupPreview(w http.ResponseWriter, r *http.Request) {
	var req setupRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeDecodeError(w, err)
		return
	}
	plan, err := runWizard(req)
	if err != nil {
		UnprocessableEntityError(err.Error()).Write(w)
		return
	}
	NewJSONResponse().Data(toPreviewJSON(plan)).Write(w)
}

// handleSetupSave completes the wizard and saves its plan, profile included.
func (s *Server) handleSetupSave(w http.ResponseWriter, r *http.Request) {
	var req setupRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeDecodeError(w, err)
		return
	}
	plan, err := runWizard(req)
	if err != nil {
		UnprocessableEntityError(err.Error()).Write(w)
		return
	}
	s.saveBudget(w, r, plan.Income, plan.Expenses, &plan.Profile)
}
