package controllers

import (
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/Redshadow31/tenf-v2-sub004/internal/app/services"
	"github.com/Redshadow31/tenf-v2-sub004/pkg/engagement"
)

// maxExportBytes bounds a pasted activity export.
const maxExportBytes = 4 << 20

type EngagementController struct {
	service services.EngagementService
}

func NewEngagementController(s services.EngagementService) *EngagementController {
	return &EngagementController{service: s}
}

// POST /engagement/{month}/import lê o export bruto do body. ?kind= escolhe o
// contador e ?dryRun=true apenas reporta o match.
func (c *EngagementController) Import(w http.ResponseWriter, r *http.Request, rawMonth string) {
	month, err := parseMonth(rawMonth)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	q := r.URL.Query()
	dryRun := false
	if v := q.Get("dryRun"); v != "" {
		if dryRun, err = strconv.ParseBool(v); err != nil {
			writeServiceError(w, fmt.Errorf("%w: dryRun: %v", ErrInvalidBody, err))
			return
		}
	}
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxExportBytes))
	if err != nil {
		writeServiceError(w, fmt.Errorf("%w: %v", ErrInvalidBody, err))
		return
	}

	r = requestContext(r)
	kind := engagement.CounterKind(q.Get("kind"))
	var res *services.ImportResult
	if dryRun {
		res, err = c.service.Preview(r.Context(), month, kind, string(raw))
	} else {
		res, err = c.service.Import(r.Context(), month, kind, string(raw))
	}
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
