package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/garnizeh/realty/pkg/models"
)

// Notifier composes the site's emails and hands them to a Mailer.
type Notifier struct {
	mailer  Mailer
	admins  []string
	siteURL string
}

func NewNotifier(m Mailer, adminRecipients []string, siteURL string) *Notifier {
	if m == nil {
		m = LogMailer{}
	}
	return &Notifier{mailer: m, admins: adminRecipients, siteURL: strings.TrimRight(siteURL, "/")}
}

// LeadEmail is the payload of a lead notification.
type LeadEmail struct {
	Name         string `json:"name"`
	Phone        string `json:"phone"`
	Email        string `json:"email,omitempty"`
	Message      string `json:"message,omitempty"`
	Source       string `json:"source"`
	ProjectTitle string `json:"project_title,omitempty"`
}

// SubmissionEmail is the payload sent when a listing is submitted.
type SubmissionEmail struct {
	Title       string `json:"title"`
	ListingType string `json:"listing_type"`
	Location    string `json:"location"`
	City        string `json:"city,omitempty"`
	OwnerEmail  string `json:"owner_email,omitempty"`
}

// DecisionEmail is the payload sent after an approval decision.
type DecisionEmail struct {
	To       string `json:"to"`
	Title    string `json:"title"`
	Slug     string `json:"slug"`
	Approved bool   `json:"approved"`
	Reason   string `json:"reason,omitempty"`
}

// LeadFrom builds the payload for a stored lead.
func LeadFrom(l models.Lead) LeadEmail {
	return LeadEmail{Name: l.Name, Phone: l.Phone, Email: l.Email, Message: l.Message, Source: l.Source, ProjectTitle: l.ProjectTitle}
}

// LeadReceived tells the admins about a new enquiry. With no admin
// recipients configured it does nothing.
func (n *Notifier) LeadReceived(ctx context.Context, e LeadEmail) error {
	if len(n.admins) == 0 {
		return nil
	}
	html, err := render("lead", struct {
		LeadEmail
		SiteURL string
	}{e, n.siteURL})
	if err != nil {
		return err
	}
	subject := "New enquiry from " + e.Name
	if e.ProjectTitle != "" {
		subject += " for " + e.ProjectTitle
	}
	return n.mailer.Send(ctx, Message{To: n.admins, Subject: subject, HTML: html, Text: fmt.Sprintf("%s (%s) sent an enquiry.", e.Name, e.Phone)})
}

// SubmissionReceived notifies the admins and, when known, the owner.
func (n *Notifier) SubmissionReceived(ctx context.Context, e SubmissionEmail) error {
	data := struct {
		SubmissionEmail
		SiteURL string
	}{e, n.siteURL}

	if len(n.admins) > 0 {
		html, err := render("submission_admin", data)
		if err != nil {
			return err
		}
		if err := n.mailer.Send(ctx, Message{To: n.admins, Subject: "Listing awaiting approval: " + e.Title, HTML: html}); err != nil {
			return err
		}
	}
	if e.OwnerEmail == "" {
		return nil
	}
	html, err := render("submission_owner", data)
	if err != nil {
		return err
	}
	return n.mailer.Send(ctx, Message{To: []string{e.OwnerEmail}, Subject: "We received your listing", HTML: html})
}

// ListingDecision tells the owner whether the listing was approved.
func (n *Notifier) ListingDecision(ctx context.Context, e DecisionEmail) error {
	if e.To == "" {
		return nil
	}
	html, err := render("decision", struct {
		DecisionEmail
		SiteURL string
	}{e, n.siteURL})
	if err != nil {
		return err
	}
	subject := "Your listing was approved"
	if !e.Approved {
		subject = "Your listing was not approved"
	}
	return n.mailer.Send(ctx, Message{To: []string{e.To}, Subject: subject, HTML: html})
}
