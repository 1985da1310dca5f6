package controllers

import (
	"net/http"

	"github.com/Redshadow31/tenf-v2-sub004/internal/app/services"
	"github.com/Redshadow31/tenf-v2-sub004/internal/domain/member"
)

type MemberController struct {
	members    services.MemberService
	duplicates services.DuplicateService
}

func NewMemberController(members services.MemberService, duplicates services.DuplicateService) *MemberController {
	return &MemberController{members: members, duplicates: duplicates}
}

func (c *MemberController) List(w http.ResponseWriter, r *http.Request) {
	items, err := c.members.List(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (c *MemberController) Create(w http.ResponseWriter, r *http.Request) {
	var in member.CreateInput
	if err := decodeBody(r, &in); err != nil {
		writeServiceError(w, err)
		return
	}
	m, err := c.members.Create(requestContext(r).Context(), in)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, m)
}

func (c *MemberController) Get(w http.ResponseWriter, r *http.Request, login string) {
	m, err := c.members.Get(r.Context(), decodePathSegment(login))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (c *MemberController) Update(w http.ResponseWriter, r *http.Request, login string) {
	var in member.UpdateInput
	if err := decodeBody(r, &in); err != nil {
		writeServiceError(w, err)
		return
	}
	m, err := c.members.Update(requestContext(r).Context(), decodePathSegment(login), in)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (c *MemberController) SyncPlatformIDs(w http.ResponseWriter, r *http.Request) {
	res, err := c.members.SyncPlatformIDs(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (c *MemberController) SyncChatHandles(w http.ResponseWriter, r *http.Request) {
	res, err := c.members.SyncChatHandles(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (c *MemberController) Duplicates(w http.ResponseWriter, r *http.Request) {
	groups, err := c.duplicates.Detect(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"groups": groups, "count": len(groups)})
}

func (c *MemberController) Merge(w http.ResponseWriter, r *http.Request) {
	var in member.MergeInput
	if err := decodeBody(r, &in); err != nil {
		writeServiceError(w, err)
		return
	}
	res, err := c.duplicates.Merge(requestContext(r).Context(), in)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
