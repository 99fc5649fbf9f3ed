package server

import (
	"html/template"
	"net/http"

	"golang.org/x/sync/errgroup"
	"k8s.io/klog/v2"

	"github.com/ishaan812/changelog/internal/github"
	"github.com/ishaan812/changelog/internal/summarizer"
)

const publicSummaryConcurrency = 4

var publicReposTmpl = template.Must(template.New("public").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>Public Repositories</title></head>
<body>
<h1>Public Repositories</h1>
<ul>
{{- range .}}
  <li>
    <a href="{{.URL}}" target="_blank" rel="noopener">{{.Name}}</a>
    {{- with .Summary}}
    <p><strong>{{.Name}}</strong>: {{.Description}}</p>
    {{- if .Tags}}
    <p>{{range $i, $t := .Tags}}{{if $i}}, {{end}}{{$t}}{{end}}</p>
    {{- end}}
    {{- end}}
  </li>
{{- end}}
</ul>
</body>
</html>
`))

type publicRepoView struct {
	Name    string
	URL     string
	Summary *summarizer.Artifact
}

// handlePublicRepos renders the configured public repositories together with
// the summary of whatever history has been stored for each.
func (s *Server) handlePublicRepos(w http.ResponseWriter, r *http.Request) {
	views := make([]publicRepoView, len(s.opts.PublicRepos))

	var g errgroup.Group
	g.SetLimit(publicSummaryConcurrency)
	for i, pr := range s.opts.PublicRepos {
		views[i] = publicRepoView{Name: pr.Name, URL: pr.URL}
		repo, err := github.ParseRepoRef(pr.FullName)
		if err != nil {
			klog.Warningf("Skipping summary for public repo %q: %v", pr.FullName, err)
			continue
		}
		g.Go(func() error {
			artifact, _, err := s.pipeline.Summary(r.Context(), repo, false)
			if err != nil {
				klog.ErrorS(err, "Failed to summarize public repo", "repo", repo)
				return nil
			}
			if !artifact.IsError() {
				views[i].Summary = &artifact
			}
			return nil
		})
	}
	_ = g.Wait()

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := publicReposTmpl.Execute(w, views); err != nil {
		klog.ErrorS(err, "Failed to render public repos")
	}
}
