package http

import (
	"net/http"
	"runtime"
	"strings"
)

// VersionInfo is the JSON body of HandleVersion.
type VersionInfo struct {
	Version   string `json:"version"`
	GoVersion string `json:"go_version"`
}

// HandleVersion responds with the version of the running binary. Clients
// accepting application/json also get the Go version it was built with.
func HandleVersion(version string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.Header.Get("Accept"), "application/json") {
			WriteJSON(w, http.StatusOK, VersionInfo{
				Version:   version,
				GoVersion: runtime.Version(),
			})
			return
		}

		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(version))
	}
}
