package api

import (
	"html/template"
	"net/http"

	"github.com/warp/payslip-engine/artifact"
)

var browseTemplate = template.Must(template.New("browse").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>Archives</title></head>
<body style="font-family: system-ui; max-width: 900px; margin: 40px auto; padding: 0 20px;">
<h1>Archives</h1>
{{range .}}
<h2>{{.Title}}</h2>
{{if .Files}}
<table cellpadding="6">
<tr><th align="left">Name</th><th align="right">Size</th><th align="left">Modified</th></tr>
{{range .Files}}<tr><td><a href="{{.URL}}">{{.Name}}</a></td><td align="right">{{.Size}}</td><td>{{.Modified.Format "2006-01-02 15:04:05"}}</td></tr>
{{end}}</table>
{{else}}<p>No files.</p>{{end}}
{{end}}
</body>
</html>
`))

type browseSection struct {
	Title string
	Files []artifact.FileInfo
}

// BrowseArchives renders the archive listing for people.
// GET /api/archives/browse
func (h *Handler) BrowseArchives(w http.ResponseWriter, r *http.Request) {
	listing, ok := h.teamArchives(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	err := browseTemplate.Execute(w, []browseSection{
		{Title: "Team reports (CSV)", Files: listing.CSV},
		{Title: "Salary slips (PDF)", Files: listing.PDF},
	})
	if err != nil {
		h.Logger.ErrorContext(r.Context(), "render archive page", "error", err)
	}
}
