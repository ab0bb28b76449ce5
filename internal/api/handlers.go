package api

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"editorial/internal/journal"
	"editorial/internal/workflow"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) error {
	if err := s.store.Ping(r.Context()); err != nil {
		return fmt.Errorf("database unreachable: %w", err)
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	return nil
}

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) error {
	users, err := s.store.ListUsers(r.Context())
	if err != nil {
		return err
	}
	out := make([]User, 0, len(users))
	for _, u := range users {
		out = append(out, FromUser(*u))
	}
	s.writeJSON(w, http.StatusOK, out)
	return nil
}

func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) error {
	var req CreateUserRequest
	if err := decodeJSON(r, &req); err != nil {
		return err
	}
	if strings.TrimSpace(req.Username) == "" {
		return badRequest("username is required", nil)
	}
	u := &journal.User{
		Username:   strings.TrimSpace(req.Username),
		FirstName:  req.FirstName,
		LastName:   req.LastName,
		Email:      req.Email,
		IsAuthor:   req.IsAuthor,
		IsReviewer: req.IsReviewer,
		IsEditor:   req.IsEditor,
	}
	if err := s.store.CreateUser(r.Context(), u); err != nil {
		return err
	}
	s.writeJSON(w, http.StatusCreated, FromUser(*u))
	return nil
}

func (s *Server) handleListManuscripts(w http.ResponseWriter, r *http.Request) error {
	list, err := s.store.ListManuscripts(r.Context())
	if err != nil {
		return err
	}
	out := make([]Manuscript, 0, len(list))
	for _, m := range list {
		out = append(out, FromManuscript(m))
	}
	s.writeJSON(w, http.StatusOK, out)
	return nil
}

func (s *Server) handleCreateManuscript(w http.ResponseWriter, r *http.Request) error {
	actor, err := actorID(r)
	if err != nil {
		return err
	}
	var req CreateManuscriptRequest
	if err := decodeJSON(r, &req); err != nil {
		return err
	}
	res, err := s.svc.CreateManuscript(r.Context(), actor, workflow.Draft{
		Title:       req.Title,
		Text:        req.Text,
		CoauthorIDs: req.CoauthorIDs,
	})
	if err != nil {
		return err
	}
	s.writeJSON(w, http.StatusCreated, FromResult(res))
	return nil
}

func (s *Server) handleGetManuscript(w http.ResponseWriter, r *http.Request) error {
	id, err := idParam(r, "id")
	if err != nil {
		return err
	}
	m, err := s.store.GetManuscript(r.Context(), id)
	if err != nil {
		return err
	}
	s.writeJSON(w, http.StatusOK, FromManuscript(m))
	return nil
}

func (s *Server) handleAcknowledge(w http.ResponseWriter, r *http.Request) error {
	id, err := idParam(r, "id")
	if err != nil {
		return err
	}
	author, err := idParam(r, "author")
	if err != nil {
		return err
	}
	res, err := s.svc.AcknowledgeAuthorship(r.Context(), author, id)
	if err != nil {
		return err
	}
	s.writeJSON(w, http.StatusOK, FromResult(res))
	return nil
}

func (s *Server) handleAssignReviewer(w http.ResponseWriter, r *http.Request) error {
	id, err := idParam(r, "id")
	if err != nil {
		return err
	}
	actor, err := actorID(r)
	if err != nil {
		return err
	}
	var req AssignReviewerRequest
	if err := decodeJSON(r, &req); err != nil {
		return err
	}
	res, err := s.svc.AssignReviewer(r.Context(), actor, id, req.ReviewerID)
	if err != nil {
		return err
	}
	s.writeJSON(w, http.StatusOK, FromResult(res))
	return nil
}

func (s *Server) handleGetRevision(w http.ResponseWriter, r *http.Request) error {
	id, err := idParam(r, "id")
	if err != nil {
		return err
	}
	rev, err := s.store.GetRevision(r.Context(), id)
	if err != nil {
		return err
	}
	s.writeJSON(w, http.StatusOK, FromRevision(rev))
	return nil
}

func (s *Server) handleRevisionAllowed(w http.ResponseWriter, r *http.Request) error {
	id, err := idParam(r, "id")
	if err != nil {
		return err
	}
	rev, err := s.store.GetRevision(r.Context(), id)
	if err != nil {
		return err
	}
	allowed, err := s.svc.AllowedRevisionTransitions(r.Context(), id)
	if err != nil {
		return err
	}
	s.writeJSON(w, http.StatusOK, AllowedResponse{From: string(rev.Status), Allowed: statusStrings(allowed)})
	return nil
}

func (s *Server) handleRevisionTransition(w http.ResponseWriter, r *http.Request) error {
	id, err := idParam(r, "id")
	if err != nil {
		return err
	}
	actor, err := actorID(r)
	if err != nil {
		return err
	}
	var req RevisionTransitionRequest
	if err := decodeJSON(r, &req); err != nil {
		return err
	}
	to, ok := journal.ParseRevisionStatus(req.To)
	if !ok {
		return badRequest(fmt.Sprintf("unknown revision status %q", req.To), nil)
	}

	res, err := s.svc.MoveRevision(r.Context(), actor, id, to, req.RevisionNote, req.EditorialReview)
	if err != nil {
		return err
	}
	s.writeJSON(w, http.StatusOK, FromResult(res))
	return nil
}

func (s *Server) handleNewRevision(w http.ResponseWriter, r *http.Request) error {
	id, err := idParam(r, "id")
	if err != nil {
		return err
	}
	actor, err := actorID(r)
	if err != nil {
		return err
	}
	res, err := s.svc.CreateNewRevision(r.Context(), actor, id)
	if err != nil {
		return err
	}
	s.writeJSON(w, http.StatusCreated, FromResult(res))
	return nil
}

func (s *Server) handleGetReview(w http.ResponseWriter, r *http.Request) error {
	id, err := idParam(r, "id")
	if err != nil {
		return err
	}
	review, err := s.store.GetReview(r.Context(), id)
	if err != nil {
		return err
	}
	s.writeJSON(w, http.StatusOK, FromReview(review))
	return nil
}

func (s *Server) handleReviewAllowed(w http.ResponseWriter, r *http.Request) error {
	id, err := idParam(r, "id")
	if err != nil {
		return err
	}
	review, err := s.store.GetReview(r.Context(), id)
	if err != nil {
		return err
	}
	allowed, err := s.svc.AllowedReviewTransitions(r.Context(), id)
	if err != nil {
		return err
	}
	s.writeJSON(w, http.StatusOK, AllowedResponse{From: string(review.Status), Allowed: statusStrings(allowed)})
	return nil
}

func (s *Server) handleReviewTransition(w http.ResponseWriter, r *http.Request) error {
	id, err := idParam(r, "id")
	if err != nil {
		return err
	}
	actor, err := actorID(r)
	if err != nil {
		return err
	}
	var req ReviewTransitionRequest
	if err := decodeJSON(r, &req); err != nil {
		return err
	}
	to, ok := journal.ParseReviewStatus(req.To)
	if !ok {
		return badRequest(fmt.Sprintf("unknown review status %q", req.To), nil)
	}

	res, err := s.svc.MoveReview(r.Context(), actor, id, to, req.Feedback)
	if err != nil {
		return err
	}
	s.writeJSON(w, http.StatusOK, FromResult(res))
	return nil
}

func (s *Server) handleSubmitReview(w http.ResponseWriter, r *http.Request) error {
	id, err := idParam(r, "id")
	if err != nil {
		return err
	}
	actor, err := actorID(r)
	if err != nil {
		return err
	}
	var req SubmitReviewRequest
	if err := decodeJSON(r, &req); err != nil {
		return err
	}
	recommendation, ok := journal.ParseRecommendation(req.Recommendation)
	if !ok {
		return badRequest(fmt.Sprintf("unknown recommendation %q", req.Recommendation), nil)
	}
	res, err := s.svc.SubmitReview(r.Context(), actor, id, req.Text, recommendation)
	if err != nil {
		return err
	}
	s.writeJSON(w, http.StatusOK, FromResult(res))
	return nil
}

func (s *Server) handleExpire(w http.ResponseWriter, r *http.Request) error {
	results, err := s.svc.ExpireOverdueReviews(r.Context())
	resp := ExpireResponse{Expired: make([]Result, 0, len(results))}
	for _, res := range results {
		resp.Expired = append(resp.Expired, FromResult(res))
	}
	if err != nil {
		resp.Errors = []string{err.Error()}
	}
	s.writeJSON(w, http.StatusOK, resp)
	return nil
}

func (s *Server) handleRankReviewers(w http.ResponseWriter, r *http.Request) error {
	raw := r.URL.Query().Get("manuscript")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return badRequest(fmt.Sprintf("invalid manuscript %q", raw), err)
	}
	ranked, err := s.svc.RankReviewers(r.Context(), id)
	if err != nil {
		return err
	}
	s.writeJSON(w, http.StatusOK, FromRanked(ranked))
	return nil
}

func (s *Server) handleHistory(entity string) appHandler {
	return func(w http.ResponseWriter, r *http.Request) error {
		id, err := idParam(r, "id")
		if err != nil {
			return err
		}
		entries, err := s.store.History(r.Context(), entity, id)
		if err != nil {
			return err
		}
		s.writeJSON(w, http.StatusOK, FromHistory(entries))
		return nil
	}
}

func (s *Server) handleRecentHistory(w http.ResponseWriter, r *http.Request) error {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			return badRequest(fmt.Sprintf("invalid limit %q", raw), err)
		}
		limit = parsed
	}
	entries, err := s.store.RecentHistory(r.Context(), limit)
	if err != nil {
		return err
	}
	s.writeJSON(w, http.StatusOK, FromHistory(entries))
	return nil
}
