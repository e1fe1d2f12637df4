package handlers

import (
	"github.com/labstack/echo/v4"
	"github.com/nsvirk/financeapi/internal/api/middleware"
	"github.com/nsvirk/financeapi/internal/apperror"
	"github.com/nsvirk/financeapi/internal/models"
	"github.com/nsvirk/financeapi/internal/service"
	"github.com/nsvirk/financeapi/pkg/utils/response"
)

// BudgetRequest is the body of a budget upsert
type BudgetRequest struct {
	Budgets []models.BudgetLine `json:"budgets" validate:"required,min=1,dive"`
}

// ReportHandler serves the dashboard, budget and spend reports
type ReportHandler struct {
	auth    *service.AuthService
	reports *service.ReportService
}

// NewReportHandler creates a new report handler
func NewReportHandler(auth *service.AuthService, reports *service.ReportService) *ReportHandler {
	return &ReportHandler{auth: auth, reports: reports}
}

// Dashboard returns the caller's username, first name and balance
func (h *ReportHandler) Dashboard(c echo.Context) error {
	claims := middleware.ClaimsFrom(c)
	if claims == nil {
		return response.FromError(c, apperror.Authentication("missing credentials"))
	}
	dashboard, err := h.auth.Dashboard(c.Request().Context(), claims.UserID)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.SuccessResponse(c, dashboard)
}

// GetBudgets returns the budget lines of /:userId/:year/:month
func (h *ReportHandler) GetBudgets(c echo.Context) error {
	year, month, err := service.ParseYearMonth(c.Param("year"), c.Param("month"))
	if err != nil {
		return response.FromError(c, err)
	}
	rows, err := h.reports.Budgets(c.Request().Context(), c.Param("userId"), year, month)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.SuccessResponse(c, rows)
}

// UpsertBudgets sets the budget lines of /:userId/:year/:month
func (h *ReportHandler) UpsertBudgets(c echo.Context) error {
	year, month, err := service.ParseYearMonth(c.Param("year"), c.Param("month"))
	if err != nil {
		return response.FromError(c, err)
	}
	var req BudgetRequest
	if err := bindBody(c, &req); err != nil {
		return response.FromError(c, err)
	}
	if err := c.Validate(&req); err != nil {
		return response.FromError(c, err)
	}

	rows, err := h.reports.UpsertBudgets(c.Request().Context(), c.Param("userId"), year, month, req.Budgets)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.SuccessResponse(c, rows)
}

// GetTotalSpendByType returns the withdrawals of /:userId/:year/:month per expense type
func (h *ReportHandler) GetTotalSpendByType(c echo.Context) error {
	year, month, err := service.ParseYearMonth(c.Param("year"), c.Param("month"))
	if err != nil {
		return response.FromError(c, err)
	}
	rows, err := h.reports.TotalSpendByType(c.Request().Context(), c.Param("userId"), year, month)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.SuccessResponse(c, rows)
}

// GetTransactions returns all transactions of /:accountId
func (h *ReportHandler) GetTransactions(c echo.Context) error {
	rows, err := h.reports.Transactions(c.Request().Context(), c.Param("accountId"))
	if err != nil {
		return response.FromError(c, err)
	}
	return response.SuccessResponse(c, rows)
}

// GetSummary returns the income and expense totals of /:accountId for
// ?year=&month= or ?start_date=&end_date=
func (h *ReportHandler) GetSummary(c echo.Context) error {
	period, err := periodFromQuery(c)
	if err != nil {
		return response.FromError(c, err)
	}
	summary, err := h.reports.Summary(c.Request().Context(), c.Param("accountId"), period)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.SuccessResponse(c, summary)
}

// GetSpendingByCategory returns the withdrawals of /:accountId per expense type
func (h *ReportHandler) GetSpendingByCategory(c echo.Context) error {
	period, err := periodFromQuery(c)
	if err != nil {
		return response.FromError(c, err)
	}
	rows, err := h.reports.SpendingByCategory(c.Request().Context(), c.Param("accountId"), period)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.SuccessResponse(c, rows)
}

func periodFromQuery(c echo.Context) (service.Period, error) {
	return service.ParsePeriod(
		c.QueryParam("year"),
		c.QueryParam("month"),
		c.QueryParam("start_date"),
		c.QueryParam("end_date"),
	)
}
