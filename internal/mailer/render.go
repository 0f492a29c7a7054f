package mailer

import (
	"bytes"
	"fmt"
	htmltemplate "html/template"
	texttemplate "text/template"

	"github.com/octopus/bulletin-digest/internal/bulletin"
	"github.com/octopus/bulletin-digest/internal/domain"
)

const defaultSubject = "Your Octopus bulletin"

var sectionTitles = map[domain.ActionType]string{
	domain.ActionBookmarkVersionCreated:   "New versions of publications you bookmarked",
	domain.ActionBookmarkRedFlagRaised:    "Red flags raised on publications you bookmarked",
	domain.ActionBookmarkRedFlagResolved:  "Red flags resolved on publications you bookmarked",
	domain.ActionBookmarkRedFlagComment:   "New comments on red flags of publications you bookmarked",
	domain.ActionVersionRedFlagRaised:     "Publications with red flags you raised have a new version",
	domain.ActionVersionPeerReviewed:      "Publications you authored were peer reviewed",
	domain.ActionVersionLinkedPredecessor: "New publications linked from your work",
	domain.ActionVersionLinkedSuccessor:   "New versions of publications linked to your work",
}

// SectionTitle returns the heading used for an action type's section.
func SectionTitle(a domain.ActionType) string {
	if t, ok := sectionTitles[a]; ok {
		return t
	}
	return string(a)
}

type section struct {
	Title string
	Items []item
}

type item struct {
	Title string
	URL   string
	First bool
}

type view struct {
	Subject  string
	Sections []section
	BaseURL  string
}

var textTmpl = texttemplate.Must(texttemplate.New("text").Parse(
	`{{range .Sections}}{{.Title}}
{{range .Items}}  - {{.Title}}{{if .First}} (first version){{end}}: {{.URL}}
{{end}}
{{end}}{{if .BaseURL}}Manage your notification settings at {{.BaseURL}}/account
{{end}}`))

var htmlTmpl = htmltemplate.Must(htmltemplate.New("html").Parse(
	`<!DOCTYPE html>
<html><head><meta charset="utf-8"><title>{{.Subject}}</title></head>
<body>
{{range .Sections}}<h2>{{.Title}}</h2>
<ul>
{{range .Items}}<li><a href="{{.URL}}">{{.Title}}</a>{{if .First}} <em>(first version)</em>{{end}}</li>
{{end}}</ul>
{{end}}{{if .BaseURL}}<p><a href="{{.BaseURL}}/account">Manage your notification settings</a></p>
{{end}}</body></html>
`))

// Rendered is a digest turned into email content.
type Rendered struct {
	Subject string
	Text    string
	HTML    string
}

// Renderer turns digests into email bodies.
type Renderer struct {
	subject string
	baseURL string
}

// NewRenderer returns a Renderer. baseURL is used for the settings link and
// may be empty.
func NewRenderer(baseURL string) *Renderer {
	return &Renderer{subject: defaultSubject, baseURL: baseURL}
}

func (r *Renderer) Render(d bulletin.Digest) (*Rendered, error) {
	v := view{Subject: r.subject, BaseURL: r.baseURL}
	for _, g := range d.Groups {
		if len(g.Notifications) == 0 {
			continue
		}
		s := section{Title: SectionTitle(g.ActionType)}
		for _, n := range g.Notifications {
			s.Items = append(s.Items, item{Title: n.Payload.Title, URL: n.Payload.URL, First: n.Payload.IsFirst()})
		}
		v.Sections = append(v.Sections, s)
	}

	var text, html bytes.Buffer
	if err := textTmpl.Execute(&text, v); err != nil {
		return nil, fmt.Errorf("render text body: %w", err)
	}
	if err := htmlTmpl.Execute(&html, v); err != nil {
		return nil, fmt.Errorf("render html body: %w", err)
	}
	return &Rendered{Subject: r.subject, Text: text.String(), HTML: html.String()}, nil
}
