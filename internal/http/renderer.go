package httpx

import (
	"bytes"
	"html/template"
	"log/slog"
	"net/http"

	domainauth "github.com/target/mmk-storefront/internal/domain/auth"
)

var pages = template.Must(template.New("pages").Parse(`
{{define "head"}}<!doctype html>
<html lang="en"><head><meta charset="utf-8"><title>{{.Title}} · Storefront</title></head><body>{{end}}
{{define "foot"}}</body></html>{{end}}

{{define "login"}}{{template "head" .}}
<h1>Sign in</h1>
{{with .Error}}<p role="alert">{{.}}</p>{{end}}
<form method="post" action="/auth/login">
  <input type="hidden" name="csrf_token" value="{{.CSRFToken}}">
  <input type="hidden" name="redirect_uri" value="{{.RedirectURI}}">
  <label>Username <input name="username" value="{{.Username}}" autocomplete="username" required></label>
  <label>Password <input type="password" name="password" autocomplete="current-password" required></label>
  <button type="submit">Sign in</button>
</form>
{{template "foot" .}}{{end}}

{{define "unauthorized"}}{{template "head" .}}
<h1>Access denied</h1>
<p>Your account does not have access to this page.</p>
<p><a href="/">Back to the storefront</a></p>
{{template "foot" .}}{{end}}

{{define "page"}}{{template "head" .}}
<h1>{{.Title}}</h1>
{{with .Error}}<p role="alert">{{.}}</p>{{end}}
{{with .Principal}}<p>Signed in as {{.Username}} ({{.Role}}){{with .Profile.Business}} for {{.Name}}{{end}}.</p>
<form method="post" action="/auth/logout"><input type="hidden" name="csrf_token" value="{{$.CSRFToken}}"><button type="submit">Sign out</button></form>
{{else}}<p><a href="{{.LoginPath}}">Sign in</a></p>{{end}}
{{template "foot" .}}{{end}}
`))

type pageData struct {
	Title       string
	Principal   *domainauth.Principal
	Error       string
	Username    string
	RedirectURI string
	LoginPath   string
	CSRFToken   string
}

// render executes a page into a buffer first so a template error never
// leaves a half-written response.
func render(w http.ResponseWriter, logger *slog.Logger, status int, name string, data pageData) {
	var buf bytes.Buffer
	if err := pages.ExecuteTemplate(&buf, name, data); err != nil {
		logger.Error("render page", slog.String("page", name), slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}
