package handlers

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/ericyum/tour-agent-frontend/internal/httpx"
	"github.com/ericyum/tour-agent-frontend/internal/itinerary"
)

type courseResponse struct {
	Items []itinerary.Item `json:"items"`
	Count int              `json:"count"`
}

type mutationResponse struct {
	courseResponse
	Changed bool `json:"changed"`
}

type reorderRequest struct {
	From *int `json:"from"`
	To   *int `json:"to"`
}

func listResponse(st *itinerary.Store, changed bool) mutationResponse {
	items := st.Items()
	if items == nil {
		items = []itinerary.Item{}
	}
	return mutationResponse{courseResponse: courseResponse{Items: items, Count: len(items)}, Changed: changed}
}

func (s *server) apiStore(w http.ResponseWriter, r *http.Request) (*itinerary.Store, bool) {
	st, err := s.store(r)
	if err != nil {
		httpx.WriteError(r.Context(), w, httpx.NewError("session_unavailable", "visitor session is unavailable", http.StatusInternalServerError))
		return nil, false
	}
	return st, true
}

func (s *server) apiList(w http.ResponseWriter, r *http.Request) {
	st, ok := s.apiStore(w, r)
	if !ok {
		return
	}
	httpx.WriteJSON(w, http.StatusOK, listResponse(st, false).courseResponse)
}

// apiAdd accepts the item object itself: a title, an optional type and any
// attributes, which are kept verbatim. An existing title answers 200 with
// changed=false.
func (s *server) apiAdd(w http.ResponseWriter, r *http.Request) {
	var item itinerary.Item
	if err := httpx.DecodeJSON(r, httpx.DefaultBodyLimit, &item); err != nil {
		if errors.Is(err, itinerary.ErrMissingTitle) {
			httpx.WriteError(r.Context(), w, httpx.NewError("invalid_item", "title is required", http.StatusUnprocessableEntity))
			return
		}
		httpx.WriteError(r.Context(), w, httpx.BodyError(err))
		return
	}
	if item.Kind != "" {
		kind, err := itinerary.ParseKind(string(item.Kind))
		if err != nil {
			httpx.WriteError(r.Context(), w, httpx.NewError("invalid_item", "type must be festival, facility or course", http.StatusUnprocessableEntity))
			return
		}
		item.Kind = kind
	}
	st, ok := s.apiStore(w, r)
	if !ok {
		return
	}
	changed := st.Add(item)
	status := http.StatusOK
	if changed {
		status = http.StatusCreated
	}
	httpx.WriteJSON(w, status, listResponse(st, changed))
}

func (s *server) apiRemove(w http.ResponseWriter, r *http.Request) {
	title, err := url.PathUnescape(chi.URLParam(r, "title"))
	if err != nil || title == "" {
		httpx.WriteError(r.Context(), w, httpx.NewError("invalid_request", "title is malformed", http.StatusBadRequest))
		return
	}
	st, ok := s.apiStore(w, r)
	if !ok {
		return
	}
	changed := st.Remove(title)
	httpx.WriteJSON(w, http.StatusOK, listResponse(st, changed))
}

func (s *server) apiClear(w http.ResponseWriter, r *http.Request) {
	st, ok := s.apiStore(w, r)
	if !ok {
		return
	}
	changed := st.Len() > 0
	st.Clear()
	httpx.WriteJSON(w, http.StatusOK, listResponse(st, changed))
}

func (s *server) apiReorder(w http.ResponseWriter, r *http.Request) {
	var req reorderRequest
	if err := httpx.DecodeJSON(r, httpx.DefaultBodyLimit, &req); err != nil {
		httpx.WriteError(r.Context(), w, httpx.BodyError(err))
		return
	}
	if req.From == nil || req.To == nil {
		httpx.WriteError(r.Context(), w, httpx.NewError("invalid_request", "from and to are required", http.StatusUnprocessableEntity))
		return
	}
	st, ok := s.apiStore(w, r)
	if !ok {
		return
	}
	changed := st.Reorder(*req.From, *req.To)
	httpx.WriteJSON(w, http.StatusOK, listResponse(st, changed))
}
