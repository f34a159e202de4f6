package server

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/lorecast/lorecast/internal/lore"
)

type voteRequest struct {
	Voter string `json:"voter"`
	Value int    `json:"value"`
}

type tipRequest struct {
	TxHash string `json:"txHash"`
}

// handleListLore lists entries by score.
//
// @Summary  List lore entries
// @Tags     lore
// @Produce  json
// @Param    canon  query     bool  false  "only canon entries"
// @Param    limit  query     int   false  "maximum entries, default 50"
// @Success  200    {array}   lore.Entry
// @Failure  400    {object}  errorResponse
// @Router   /api/lore [get]
func (s *Server) handleListLore(w http.ResponseWriter, r *http.Request) {
	filter := lore.ListFilter{CanonOnly: r.URL.Query().Get("canon") == "true"}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			writeError(w, r, fmt.Errorf("%w: limit must be a positive number", lore.ErrInvalid))
			return
		}
		filter.Limit = limit
	}

	entries, err := s.deps.Store.List(r.Context(), filter)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// handleCreateLore stores a new entry.
//
// @Summary  Submit a lore entry
// @Tags     lore
// @Accept   json
// @Produce  json
// @Param    entry  body      lore.NewEntry  true  "entry"
// @Success  201    {object}  lore.Entry
// @Failure  400    {object}  errorResponse
// @Router   /api/lore [post]
func (s *Server) handleCreateLore(w http.ResponseWriter, r *http.Request) {
	var in lore.NewEntry
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	entry, err := s.deps.Store.Create(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	slog.Info("lore entry created", "id", entry.ID, "title", entry.Title)
	writeJSON(w, http.StatusCreated, entry)
}

// handleGetLore returns one entry.
//
// @Summary  Get a lore entry
// @Tags     lore
// @Produce  json
// @Param    id   path      string  true  "entry id"
// @Success  200  {object}  lore.Entry
// @Failure  404  {object}  errorResponse
// @Router   /api/lore/{id} [get]
func (s *Server) handleGetLore(w http.ResponseWriter, r *http.Request) {
	entry, err := s.deps.Store.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

// handleVote records an up or down vote.
//
// @Summary  Vote on a lore entry
// @Tags     lore
// @Accept   json
// @Produce  json
// @Param    id    path      string       true  "entry id"
// @Param    vote  body      voteRequest  true  "value is 1 or -1"
// @Success  200   {object}  lore.Entry
// @Failure  400   {object}  errorResponse
// @Failure  404   {object}  errorResponse
// @Router   /api/lore/{id}/vote [post]
func (s *Server) handleVote(w http.ResponseWriter, r *http.Request) {
	var req voteRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	entry, err := s.deps.Store.Vote(r.Context(), r.PathValue("id"), req.Voter, req.Value)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

// handleCanonize promotes an entry regardless of votes.
//
// @Summary  Promote a lore entry to canon
// @Tags     lore
// @Produce  json
// @Param    id             path      string  true  "entry id"
// @Param    X-Admin-Token  header    string  true  "admin token"
// @Success  200            {object}  lore.Entry
// @Failure  401            {object}  errorResponse
// @Failure  404            {object}  errorResponse
// @Router   /api/lore/{id}/canon [post]
func (s *Server) handleCanonize(w http.ResponseWriter, r *http.Request) {
	entry, err := s.deps.Store.Canonize(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	slog.Info("lore entry canonized", "id", entry.ID)
	writeJSON(w, http.StatusOK, entry)
}

// handleListTips lists verified tips of an entry.
//
// @Summary  List tips for a lore entry
// @Tags     tips
// @Produce  json
// @Param    id   path      string  true  "entry id"
// @Success  200  {array}   lore.Tip
// @Failure  404  {object}  errorResponse
// @Router   /api/lore/{id}/tips [get]
func (s *Server) handleListTips(w http.ResponseWriter, r *http.Request) {
	list, err := s.deps.Store.Tips(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// handleRecordTip verifies a transaction against the author's wallet and records it.
//
// @Summary  Record an on-chain tip
// @Tags     tips
// @Accept   json
// @Produce  json
// @Param    id   path      string      true  "entry id"
// @Param    tip  body      tipRequest  true  "transaction hash"
// @Success  201  {object}  lore.Tip
// @Failure  400  {object}  errorResponse
// @Failure  409  {object}  errorResponse
// @Failure  422  {object}  errorResponse
// @Router   /api/lore/{id}/tips [post]
func (s *Server) handleRecordTip(w http.ResponseWriter, r *http.Request) {
	if s.deps.Verifier == nil {
		writeError(w, r, fmt.Errorf("tip verification %w", errUnavailable))
		return
	}
	var req tipRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	entry, err := s.deps.Store.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if entry.AuthorWallet == "" {
		writeError(w, r, fmt.Errorf("%w: entry author has no wallet", lore.ErrInvalid))
		return
	}

	amount, err := s.deps.Verifier.Verify(r.Context(), req.TxHash, entry.AuthorWallet)
	if err != nil {
		writeError(w, r, err)
		return
	}

	tip, err := s.deps.Store.RecordTip(r.Context(), lore.Tip{
		TxHash:    req.TxHash,
		EntryID:   entry.ID,
		Recipient: entry.AuthorWallet,
		Amount:    amount.String(),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	slog.Info("tip recorded", "entry", entry.ID, "tx", tip.TxHash, "amount", tip.Amount)
	writeJSON(w, http.StatusCreated, tip)
}
