package server

import (
	"fmt"
	"net/http"

	"github.com/OsatohanmwenT/expense-tracker-api/internal/ledger"
	"github.com/OsatohanmwenT/expense-tracker-api/internal/middleware"
	"github.com/OsatohanmwenT/expense-tracker-api/internal/models"
	"github.com/OsatohanmwenT/expense-tracker-api/internal/storage"
)

type createGroupRequest struct {
	Name    string   `json:"name"`
	Members []string `json:"members"`
}

type addMembersRequest struct {
	Members []string `json:"members"`
}

type groupView struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	CreatedBy string   `json:"createdBy"`
	Members   []string `json:"members"`
	CreatedAt int64    `json:"createdAt"`
}

func viewGroup(g *models.Group) groupView {
	return groupView{
		ID:        g.ID,
		Name:      g.Name,
		CreatedBy: g.CreatedBy,
		Members:   g.Members,
		CreatedAt: g.CreatedAt,
	}
}

func (s *Server) handleCreateGroup(w http.ResponseWriter, r *http.Request) {
	var req createGroupRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}
	if req.Name == "" {
		respondError(w, fmt.Errorf("%w: group name required", ledger.ErrValidation))
		return
	}

	group := &models.Group{
		Name:      req.Name,
		CreatedBy: middleware.GetUserID(r.Context()),
		Members:   req.Members,
	}
	if err := s.store.CreateGroup(r.Context(), group); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, viewGroup(group))
}

func (s *Server) handleListGroups(w http.ResponseWriter, r *http.Request) {
	groups, err := s.store.ListGroupsByUser(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		respondError(w, err)
		return
	}
	views := make([]groupView, 0, len(groups))
	for _, g := range groups {
		views = append(views, viewGroup(g))
	}
	respondJSON(w, http.StatusOK, map[string]any{"groups": views})
}

func (s *Server) handleGetGroup(w http.ResponseWriter, r *http.Request) {
	group, err := s.memberGroup(r)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, viewGroup(group))
}

func (s *Server) handleAddGroupMembers(w http.ResponseWriter, r *http.Request) {
	group, err := s.memberGroup(r)
	if err != nil {
		respondError(w, err)
		return
	}

	var req addMembersRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}
	if len(req.Members) == 0 {
		respondError(w, fmt.Errorf("%w: no members given", ledger.ErrValidation))
		return
	}

	if err := s.store.AddGroupMembers(r.Context(), group.ID, req.Members); err != nil {
		respondError(w, err)
		return
	}
	group, err = s.store.GetGroup(r.Context(), group.ID)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, viewGroup(group))
}

// memberGroup loads the path group and verifies the authenticated user
// belongs to it. Foreign groups read as not found.
func (s *Server) memberGroup(r *http.Request) (*models.Group, error) {
	group, err := s.store.GetGroup(r.Context(), r.PathValue("id"))
	if err != nil {
		return nil, err
	}
	if !group.HasMember(middleware.GetUserID(r.Context())) {
		return nil, storage.ErrNotFound
	}
	return group, nil
}
