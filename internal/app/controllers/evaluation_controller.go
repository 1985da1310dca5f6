package controllers

import (
	"context"
	"net/http"
	"net/url"

	"github.com/Redshadow31/tenf-v2-sub004/internal/app/services"
	"github.com/Redshadow31/tenf-v2-sub004/internal/domain/evaluation"
)

type EvaluationController struct {
	service services.EvaluationService
}

func NewEvaluationController(s services.EvaluationService) *EvaluationController {
	return &EvaluationController{service: s}
}

type pointsInput struct {
	Login  string `json:"login"`
	Points int    `json:"points"`
}

type bonusInput struct {
	Login string           `json:"login"`
	Bonus evaluation.Bonus `json:"bonus"`
}

type followInput struct {
	Login      string                      `json:"login"`
	Validation evaluation.FollowValidation `json:"validation"`
}

func (c *EvaluationController) ListMonth(w http.ResponseWriter, r *http.Request, rawMonth string) {
	month, err := parseMonth(rawMonth)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	rows, err := c.service.ListMonth(r.Context(), month)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

func (c *EvaluationController) Get(w http.ResponseWriter, r *http.Request, rawMonth, login string) {
	month, err := parseMonth(rawMonth)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	row, err := c.service.Get(r.Context(), month, decodePathSegment(login))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, row)
}

func (c *EvaluationController) SectionA(w http.ResponseWriter, r *http.Request, rawMonth string) {
	month, err := parseMonth(rawMonth)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	section, err := c.service.ReadSectionA(r.Context(), month)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, section)
}

func (c *EvaluationController) AddSpotlight(w http.ResponseWriter, r *http.Request, rawMonth string) {
	month, err := parseMonth(rawMonth)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	var in evaluation.SpotlightAttendance
	if err := decodeBody(r, &in); err != nil {
		writeServiceError(w, err)
		return
	}
	r = requestContext(r)
	res, err := c.service.AddOrUpdateSpotlight(r.Context(), month, in)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (c *EvaluationController) AddEvent(w http.ResponseWriter, r *http.Request, rawMonth string) {
	month, err := parseMonth(rawMonth)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	var in evaluation.EventAttendance
	if err := decodeBody(r, &in); err != nil {
		writeServiceError(w, err)
		return
	}
	r = requestContext(r)
	res, err := c.service.AddOrUpdateEvent(r.Context(), month, in)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (c *EvaluationController) RemoveSpotlight(w http.ResponseWriter, r *http.Request, rawMonth, id string) {
	c.removeEntry(w, r, rawMonth, id, c.service.RemoveSpotlight)
}

func (c *EvaluationController) RemoveEvent(w http.ResponseWriter, r *http.Request, rawMonth, id string) {
	c.removeEntry(w, r, rawMonth, id, c.service.RemoveEvent)
}

func (c *EvaluationController) removeEntry(w http.ResponseWriter, r *http.Request, rawMonth, id string, remove func(ctx context.Context, month evaluation.MonthKey, id string) (int, error)) {
	month, err := parseMonth(rawMonth)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	r = requestContext(r)
	removed, err := remove(r.Context(), month, decodePathSegment(id))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"removed": removed})
}

// RecordRaids accepts a batch of per-member raid point values.
func (c *EvaluationController) RecordRaids(w http.ResponseWriter, r *http.Request, rawMonth string) {
	c.recordPoints(w, r, rawMonth, c.service.RecordRaidPoints)
}

func (c *EvaluationController) RecordSpotlightBonus(w http.ResponseWriter, r *http.Request, rawMonth string) {
	c.recordPoints(w, r, rawMonth, c.service.RecordSpotlightBonus)
}

func (c *EvaluationController) recordPoints(w http.ResponseWriter, r *http.Request, rawMonth string, record func(ctx context.Context, month evaluation.MonthKey, login string, points int) (*evaluation.Evaluation, error)) {
	month, err := parseMonth(rawMonth)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	var in []pointsInput
	if err := decodeBody(r, &in); err != nil {
		writeServiceError(w, err)
		return
	}
	r = requestContext(r)
	rows := make([]*evaluation.Evaluation, 0, len(in))
	for _, item := range in {
		row, err := record(r.Context(), month, item.Login, item.Points)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		rows = append(rows, row)
	}
	writeJSON(w, http.StatusOK, rows)
}

func (c *EvaluationController) UpsertFollow(w http.ResponseWriter, r *http.Request, rawMonth string) {
	month, err := parseMonth(rawMonth)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	var in followInput
	if err := decodeBody(r, &in); err != nil {
		writeServiceError(w, err)
		return
	}
	r = requestContext(r)
	row, err := c.service.UpsertFollowValidation(r.Context(), month, in.Login, in.Validation)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, row)
}

func (c *EvaluationController) AwardBonus(w http.ResponseWriter, r *http.Request, rawMonth string) {
	month, err := parseMonth(rawMonth)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	var in bonusInput
	if err := decodeBody(r, &in); err != nil {
		writeServiceError(w, err)
		return
	}
	r = requestContext(r)
	row, err := c.service.AwardBonus(r.Context(), month, in.Login, in.Bonus)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, row)
}

func (c *EvaluationController) RemoveBonus(w http.ResponseWriter, r *http.Request, rawMonth, login, id string) {
	month, err := parseMonth(rawMonth)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	r = requestContext(r)
	row, err := c.service.RemoveBonus(r.Context(), month, decodePathSegment(login), decodePathSegment(id))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, row)
}

func (c *EvaluationController) Recompute(w http.ResponseWriter, r *http.Request, rawMonth string) {
	month, err := parseMonth(rawMonth)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	r = requestContext(r)
	res, err := c.service.Recompute(r.Context(), month)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (c *EvaluationController) Reset(w http.ResponseWriter, r *http.Request, rawMonth string) {
	month, err := parseMonth(rawMonth)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	r = requestContext(r)
	removed, err := c.service.ResetMonth(r.Context(), month)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"removed": removed})
}

func decodePathSegment(raw string) string {
	value, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return value
}
