package handlers

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"

	"github.com/AnshRaj112/visitor-backend/internal/services"
)

// Export streams an Excel workbook of visitors created between ?start and ?end.
func (h *Handlers) Export(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var buf bytes.Buffer
	filename, err := h.Reports.WriteRange(r.Context(), &buf, q.Get("start"), q.Get("end"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", services.XLSXContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	buf.WriteTo(w)
}
