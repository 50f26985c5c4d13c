package api

import (
	"net/http"
	"strings"
)

// pagePaths are the browser routes. The frontend owns their rendering; the
// server only answers with a placeholder once the route guard let the request
// through.
var pagePaths = []string{
	"/login",
	"/unauthorized",
	"/impressum",
	"/dashboard",
	"/tasks",
	"/teams",
	"/member",
	"/manager",
	"/admin",
}

// guardedPrefixes also serve their sub-pages, e.g. /admin/users.
var guardedPrefixes = []string{"/member", "/manager", "/admin", "/tasks", "/teams"}

func PageHandler(w http.ResponseWriter, r *http.Request) {
	name := strings.Trim(r.URL.Path, "/")
	resp := map[string]string{"page": name}
	if from := r.URL.Query().Get("redirectedFrom"); from != "" {
		resp["redirectedFrom"] = from
	}
	writeJSON(w, http.StatusOK, resp)
}
