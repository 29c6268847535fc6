package serve

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// clientShim forwards clicks to POST /v1/click as a child-index path from
// <body> and reloads the page when the document changes. It is appended as
// the last body child so it never shifts the index of a dialog element.
const clientShim = `<script>
(function () {
  function pathOf(el) {
    var path = [];
    while (el && el !== document.body) {
      var i = 0, s = el;
      while ((s = s.previousElementSibling)) i++;
      path.unshift(i);
      el = el.parentElement;
    }
    return el ? path : null;
  }
  document.addEventListener('click', function (e) {
    var path = pathOf(e.target);
    if (!path) return;
    e.preventDefault();
    fetch('/v1/click', {
      method: 'POST',
      headers: {'Content-Type': 'application/json'},
      body: JSON.stringify({path: path})
    });
  }, true);
  var events = new EventSource('/v1/events');
  events.addEventListener('refresh', function () { location.reload(); });
})();
</script>`

// ============================================================================
// GET /
// ============================================================================

// handlePage serves the dialog document with the client shim.
func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	page, err := s.page(r.Context())
	if err != nil {
		slog.Error("render page", "err", err)
		WriteError(w, ErrInternal, "failed to render page", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(withShim(page))); err != nil {
		slog.Debug("write page", "err", err)
	}
}

// page renders the current document on the loop.
func (s *Server) page(ctx context.Context) (string, error) {
	var (
		page      string
		renderErr error
	)
	if err := s.onLoop(ctx, func() {
		page, renderErr = s.ui.Document().HTML()
	}); err != nil {
		return "", err
	}
	return page, renderErr
}

// revision identifies the current document state. It changes whenever the
// rendered page does.
func (s *Server) revision(ctx context.Context) (string, error) {
	page, err := s.page(ctx)
	if err != nil {
		return "", err
	}
	return strconv.FormatUint(xxhash.Sum64String(page), 16), nil
}

func withShim(page string) string {
	idx := strings.LastIndex(page, "</body>")
	if idx < 0 {
		return page + clientShim
	}
	return page[:idx] + clientShim + page[idx:]
}
