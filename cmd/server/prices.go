package main

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/Simplici0/sweetcost/internal/pricing"
)

// priceName returns the ingredient named in the URL. chi matches on the raw
// path when it contains escapes such as %2F, so the param is decoded here.
func priceName(r *http.Request) (string, error) {
	name := chi.URLParam(r, "name")
	if r.URL.RawPath != "" {
		decoded, err := url.PathUnescape(name)
		if err != nil {
			return "", fmt.Errorf("invalid ingredient name %q: %w", name, err)
		}
		name = decoded
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return "", errors.New("ingredient name is required")
	}
	return name, nil
}

func (s *server) handleListPrices(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.store.Prices())
}

func (s *server) handlePatchPrice(w http.ResponseWriter, r *http.Request) {
	name, err := priceName(r)
	if err != nil {
		writeBadRequest(w, err)
		return
	}

	var patch pricing.PricePatch
	if err := decodeJSON(w, r, &patch); err != nil {
		writeBadRequest(w, err)
		return
	}

	rec, err := s.store.SetPrice(r.Context(), name, patch)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *server) handleDeletePrice(w http.ResponseWriter, r *http.Request) {
	name, err := priceName(r)
	if err != nil {
		writeBadRequest(w, err)
		return
	}

	if err := s.store.DeletePrice(r.Context(), name); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
