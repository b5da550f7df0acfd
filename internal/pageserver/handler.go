package pageserver

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/yomiyougu/core/internal/yomerr"
)

// Handler adapts Server to HTTP, for embedding in a local UI shell's web
// view. Routes: GET /book/{id}/page/{n}.
type Handler struct {
	server *Server
}

func NewHandler(server *Server) *Handler {
	return &Handler{server: server}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	bookID, pageIndex, ok := parsePagePath(r.URL.Path)
	if !ok {
		http.Error(w, "bad request: expected /book/{id}/page/{n}", http.StatusBadRequest)
		return
	}

	page, err := h.server.GetPage(r.Context(), bookID, pageIndex)
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", page.Mime)
	w.Header().Set("Cache-Control", page.CacheControl)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(page.Bytes)
}

func parsePagePath(path string) (bookID int64, pageIndex int, ok bool) {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) != 4 || parts[0] != "book" || parts[2] != "page" {
		return 0, 0, false
	}

	id, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return 0, 0, false
	}

	page, err := strconv.Atoi(parts[3])
	if err != nil {
		return 0, 0, false
	}

	return id, page, true
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError

	var ye *yomerr.Error
	if errors.As(err, &ye) {
		switch ye.Code {
		case yomerr.CodePageOutOfRange:
			status = http.StatusNotFound
		case yomerr.CodeFormatUnsupported:
			status = http.StatusBadRequest
		case yomerr.CodeIOError:
			status = http.StatusInternalServerError
		}
	}

	http.Error(w, err.Error(), status)
}
