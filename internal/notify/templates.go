package notify

import (
	"bytes"
	"fmt"
	"html/template"
)

var templates = template.Must(template.New("mail").Parse(`
{{define "lead"}}<h2>New enquiry{{if .ProjectTitle}} for {{.ProjectTitle}}{{end}}</h2>
<p><strong>{{.Name}}</strong> ({{.Phone}}{{if .Email}}, {{.Email}}{{end}}) via {{.Source}}.</p>
{{if .Message}}<blockquote>{{.Message}}</blockquote>{{end}}
<p><a href="{{.SiteURL}}/admin/leads">Open leads</a></p>{{end}}

{{define "submission_admin"}}<h2>New listing submitted</h2>
<p>{{.Title}} ({{.ListingType}}) in {{.Location}}{{if .City}}, {{.City}}{{end}} is waiting for approval.</p>
<p><a href="{{.SiteURL}}/admin/approvals">Review submissions</a></p>{{end}}

{{define "submission_owner"}}<h2>We received your listing</h2>
<p>Thanks for submitting <strong>{{.Title}}</strong>. Our team will review it shortly and let you know once it is live.</p>{{end}}

{{define "decision"}}{{if .Approved}}<h2>Your listing is live</h2>
<p><strong>{{.Title}}</strong> has been approved. <a href="{{.SiteURL}}/projects/{{.Slug}}">View it here</a>.</p>
{{else}}<h2>Your listing needs changes</h2>
<p><strong>{{.Title}}</strong> was not approved{{if .Reason}}: {{.Reason}}{{end}}.</p>{{end}}{{end}}
`))

func render(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return buf.String(), nil
}
