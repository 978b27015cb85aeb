package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/msomdec/recipe-box/internal/domain"
)

// pathID parses the {id} URL parameter. It writes a 400 and reports false
// when the value is not a positive integer.
func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "Validation failed (numeric string is expected)")
		return 0, false
	}
	return id, true
}

// pageQuery reads the optional limit and offset query parameters. Range
// checks are left to the services.
func pageQuery(w http.ResponseWriter, r *http.Request) (domain.Page, bool) {
	var page domain.Page
	q := r.URL.Query()
	for _, p := range []struct {
		name string
		dst  *int
	}{
		{"limit", &page.Limit},
		{"offset", &page.Offset},
	} {
		raw := q.Get(p.name)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, p.name+" must be a number")
			return domain.Page{}, false
		}
		*p.dst = n
	}
	if q.Get("limit") != "" && page.Limit <= 0 {
		writeError(w, http.StatusBadRequest, "limit must be a positive number")
		return domain.Page{}, false
	}
	return page, true
}

// listQuery splits a comma separated query parameter. Repeated parameters
// are accepted too.
func listQuery(r *http.Request, name string) []string {
	var out []string
	for _, v := range r.URL.Query()[name] {
		for _, item := range strings.Split(v, ",") {
			if item = strings.TrimSpace(item); item != "" {
				out = append(out, item)
			}
		}
	}
	return out
}

// decodeValid reads the JSON body into dst and validates it, writing a 400
// on failure.
func decodeValid(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := readJSON(w, r, dst); err != nil {
		loggerFrom(r.Context()).Debug("decode request", "error", err)
		writeError(w, http.StatusBadRequest, msgInvalidRequest)
		return false
	}
	if msg := validateStruct(dst); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return false
	}
	return true
}
