package controllers

import (
	"errors"
	"io"
	"net/http"

	"github.com/Redshadow31/tenf-v2-sub004/internal/app/services"
	"github.com/Redshadow31/tenf-v2-sub004/internal/domain/evaluation"
)

type ReconciliationController struct {
	service services.ReconciliationService
}

func NewReconciliationController(s services.ReconciliationService) *ReconciliationController {
	return &ReconciliationController{service: s}
}

// Body vazio ou lista de meses vazia cobre todos os meses legados.
type reconcileInput struct {
	Months []evaluation.MonthKey `json:"months"`
}

func (c *ReconciliationController) readInput(r *http.Request) (reconcileInput, error) {
	var in reconcileInput
	if err := decodeBody(r, &in); err != nil && !errors.Is(err, io.EOF) {
		return in, err
	}
	return in, nil
}

func (c *ReconciliationController) Months(w http.ResponseWriter, r *http.Request) {
	months, err := c.service.Months(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"months": months})
}

func (c *ReconciliationController) Run(w http.ResponseWriter, r *http.Request) {
	in, err := c.readInput(r)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	report, err := c.service.Reconcile(requestContext(r).Context(), in.Months...)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (c *ReconciliationController) Check(w http.ResponseWriter, r *http.Request) {
	in, err := c.readInput(r)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	report, err := c.service.Check(r.Context(), in.Months...)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}
