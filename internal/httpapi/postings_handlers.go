package httpapi

import (
	"net/http"

	"jobscout-engine/internal/domain"
	"jobscout-engine/internal/store"
)

type PostingsHandler struct {
	DB *store.DB
}

func (h PostingsHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	status := domain.Status(q.Get("status"))
	if status != "" && !status.Valid() {
		WriteError(w, r, http.StatusBadRequest, "invalid_status", "status must be draft, published or expired")
		return
	}

	posts, err := h.DB.ListPostings(r.Context(), store.ListPostingsOpts{
		Status: status,
		Portal: q.Get("portal"),
		Limit:  queryInt(r, "limit", 500),
	})
	if err != nil {
		writeErr(w, r, err)
		return
	}
	if posts == nil {
		posts = []domain.Posting{}
	}
	WriteJSON(w, http.StatusOK, posts)
}
