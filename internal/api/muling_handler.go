package api

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/banking/muling-detector/internal/ledger"
	"github.com/banking/muling-detector/internal/service"
)

// MulingHandler exposes the analysis engine over HTTP: submit a
// transaction batch for analysis, then retrieve a stored run's
// summary and rings, or its rings alone.
type MulingHandler struct {
	service *service.MulingService
}

func NewMulingHandler(svc *service.MulingService) *MulingHandler {
	return &MulingHandler{service: svc}
}

type analyzeRequest struct {
	Transactions []transactionPayload `json:"transactions"`
}

type transactionPayload struct {
	TxID     string  `json:"tx_id"`
	Sender   string  `json:"sender"`
	Receiver string  `json:"receiver"`
	Amount   string  `json:"amount"`
	Ts       int64   `json:"timestamp_ms"`
}

// Analyze handles POST /muling/analyze: run the engine synchronously
// over the posted batch and return the exported report.
func (h *MulingHandler) Analyze(c echo.Context) error {
	var req analyzeRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if len(req.Transactions) == 0 {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "no transactions in input"})
	}

	txs := make([]ledger.Transaction, 0, len(req.Transactions))
	for i, p := range req.Transactions {
		amount, err := ledger.ParseMoney(p.Amount)
		if err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid amount at index " + strconv.Itoa(i)})
		}
		txs = append(txs, ledger.Transaction{
			TxID:     p.TxID,
			Sender:   ledger.AcctID(p.Sender),
			Receiver: ledger.AcctID(p.Receiver),
			Amount:   amount,
			Ts:       ledger.EpochMs(p.Ts),
		})
	}

	result, err := h.service.AnalyzeAndStore(c.Request().Context(), txs)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "analysis failed"})
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"run_id":    result.RunID,
		"signature": result.Signature,
		"report":    result.Export,
	})
}

// GetReport handles GET /muling/reports/:run_id.
func (h *MulingHandler) GetReport(c echo.Context) error {
	runID := c.Param("run_id")
	summary, rings, err := h.service.GetRun(c.Request().Context(), runID)
	if err != nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "run not found"})
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"run_id":  runID,
		"summary": summary,
		"rings":   rings,
	})
}

// GetRings handles GET /muling/reports/:run_id/rings.
func (h *MulingHandler) GetRings(c echo.Context) error {
	runID := c.Param("run_id")
	_, rings, err := h.service.GetRun(c.Request().Context(), runID)
	if err != nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "run not found"})
	}
	return c.JSON(http.StatusOK, rings)
}

// RegisterRoutes registers the API routes.
func (h *MulingHandler) RegisterRoutes(e *echo.Group) {
	e.POST("/analyze", h.Analyze)
	e.GET("/reports/:run_id", h.GetReport)
	e.GET("/reports/:run_id/rings", h.GetRings)
}
