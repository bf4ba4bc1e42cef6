package export

import (
	"bytes"
	"html/template"
	"time"
)

var sheetTemplate = template.Must(template.New("sheet").Funcs(template.FuncMap{
	"formatDate": func(t time.Time, layout string) string {
		return t.Format(layout)
	},
}).Parse(sheetTemplateHTML))

// RenderSheetHTML renders the bookmark sheet template.
func RenderSheetHTML(sheet Sheet) (string, error) {
	var buf bytes.Buffer
	if err := sheetTemplate.Execute(&buf, sheet); err != nil {
		return "", err
	}
	return buf.String(), nil
}

const sheetTemplateHTML = `<!DOCTYPE html>
<html>
<head>
  <meta charset="UTF-8">
  <title>Bookmarks</title>
  <style>
    body { font-family: Arial, sans-serif; line-height: 1.5; max-width: 800px; margin: 2rem auto; }
    h1 { border-bottom: 2px solid #333; padding-bottom: 0.5rem; }
    h2 { margin-top: 1.5rem; margin-bottom: 0.25rem; }
    .meta { color: #666; font-size: 0.9em; margin-bottom: 2rem; }
    ol { margin-top: 0.25rem; }
    li { margin-bottom: 0.25rem; }
    .url { color: #666; font-size: 0.85em; word-break: break-all; }
    .empty { color: #999; font-style: italic; }
  </style>
</head>
<body>
  <h1>Bookmarks</h1>
  <div class="meta">{{.Owner}} | {{formatDate .GeneratedAt "Jan 2, 2006"}}</div>
  {{if .Categories}}
  {{range .Categories}}
  <h2>{{.Name}}</h2>
  {{if .Links}}
  <ol>
    {{range .Links}}<li>{{.Name}} <span class="url">{{.URL}}</span></li>
    {{end}}
  </ol>
  {{else}}<p class="empty">No links</p>{{end}}
  {{end}}
  {{else}}<p class="empty">No bookmarks yet</p>{{end}}
</body>
</html>`
