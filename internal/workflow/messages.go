package workflow

import (
	"fmt"
	"strings"

	"editorial/internal/journal"
	"editorial/internal/notifications"
)

type authorMessage int

const (
	authorAcknowledgementRequested authorMessage = iota
	authorAllAcknowledged
	authorSubmitted
	authorResubmitted
	authorWithdrawn
	authorDecision
	authorPublished
)

var authorSubjects = map[authorMessage]string{
	authorAcknowledgementRequested: "You were listed as a co-author",
	authorAllAcknowledged:          "All authors acknowledged your manuscript",
	authorSubmitted:                "Your manuscript was submitted",
	authorResubmitted:              "Your manuscript was resubmitted",
	authorWithdrawn:                "Your manuscript was withdrawn",
	authorDecision:                 "Your manuscript has a decision",
	authorPublished:                "Your manuscript was published",
}

func (s *Service) revisionURL(t *revisionTarget) string {
	return s.cfg.URL(fmt.Sprintf("/revisions/%d", t.revision.ID))
}

func (s *Service) authorMessage(kind authorMessage, author journal.User, t *revisionTarget) notifications.Message {
	var body string
	switch kind {
	case authorAcknowledgementRequested:
		body = fmt.Sprintf("You were listed as a co-author of the manuscript %q. If you agree to be a co-author, "+
			"please log in to %s and acknowledge authorship. Thanks!", t.revision.Title, s.revisionURL(t))
	case authorAllAcknowledged:
		body = fmt.Sprintf("All authors have now acknowledged authorship of %q. It can be submitted at %s.",
			t.revision.Title, s.revisionURL(t))
	case authorSubmitted:
		body = fmt.Sprintf("Your manuscript %q has been submitted and reviewers have been assigned.\n"+
			"You will be notified once the reviews have been received. Thanks!", t.revision.Title)
	case authorResubmitted:
		body = fmt.Sprintf("Your manuscript %q has been resubmitted and is under review again.\n"+
			"You will be notified once reviewers provide new feedback. Thanks!", t.revision.Title)
	case authorWithdrawn:
		body = fmt.Sprintf("Your manuscript %q has been withdrawn and will not be reviewed.", t.revision.Title)
	case authorDecision:
		body = fmt.Sprintf("The reviews are in for your manuscript %q and a decision has been\n"+
			"returned. Please log in to %s to read the reviews and take any necessary\nactions. Thanks!",
			t.revision.Title, s.revisionURL(t))
	case authorPublished:
		body = fmt.Sprintf("Your manuscript %q has been published in the %s. Congratulations!",
			t.revision.Title, s.cfg.Journal.Name)
	}
	return personal(author, authorSubjects[kind], body)
}

func (s *Service) reviewAssignedMessage(reviewer *journal.User, review *journal.Review) notifications.Message {
	body := fmt.Sprintf("You have been assigned to review a manuscript for the %s. The review is due %s.\n"+
		"To write the review, please log in at %s.",
		s.cfg.Journal.Name,
		review.DueAt.Format("January 2, 3:04 PM"),
		s.cfg.URL(fmt.Sprintf("/reviews/%d", review.ID)),
	)
	return personal(*reviewer, "You have been assigned as a reviewer", body)
}

type reviewerMessage int

const (
	reviewSubmitted reviewerMessage = iota
	reviewResubmitted
	reviewExpired
	reviewEditExpired
	reviewWithdrawn
	reviewNotNeeded
	reviewCompleted
	reviewEditRequested
	reviewExtended
)

type reviewerNote struct {
	subject string
	flash   string
}

var reviewerNotes = map[reviewerMessage]reviewerNote{
	reviewSubmitted: {
		subject: "Your review was submitted",
		flash:   "Your review was submitted. Awaiting an editor decision.",
	},
	reviewResubmitted: {
		subject: "Your review was resubmitted",
		flash:   "You resubmitted your review.",
	},
	reviewExpired: {
		subject: "Your review expired",
		flash:   "Your assigned review expired. You may contact the editor to request an extension.",
	},
	reviewEditExpired: {
		subject: "Your review expired",
		flash:   "A review with edits requested has passed its deadline. You may contact the editor to request an extension.",
	},
	reviewWithdrawn: {
		subject: "A manuscript you were reviewing was withdrawn",
		flash:   "The manuscript you were assigned to review was withdrawn by its author.",
	},
	reviewNotNeeded: {
		subject: "Your review is no longer needed",
		flash:   "The editor made a decision on this manuscript before your review was submitted.",
	},
	reviewCompleted: {
		subject: "A manuscript you reviewed has a decision",
		flash:   "A manuscript you reviewed received an editorial decision.",
	},
	reviewEditRequested: {
		subject: "The editor requested changes to your review",
		flash:   "The editor requested that you edit your review.",
	},
	reviewExtended: {
		subject: "Your review deadline was extended",
		flash:   "The editor extended the deadline for an expired review.",
	},
}

func (s *Service) reviewerMessage(kind reviewerMessage, t *reviewTarget) notifications.Message {
	note := reviewerNotes[kind]
	var b strings.Builder
	b.WriteString(note.flash)
	fmt.Fprintf(&b, "\n\nManuscript: %q", t.revision.Title)
	switch kind {
	case reviewEditRequested, reviewExtended:
		fmt.Fprintf(&b, "\nThe review is now due %s.", t.review.DueAt.Format("January 2, 3:04 PM"))
		if feedback := strings.TrimSpace(t.review.EditorFeedback); feedback != "" && kind == reviewEditRequested {
			fmt.Fprintf(&b, "\n\nEditor feedback:\n%s", feedback)
		}
	}
	fmt.Fprintf(&b, "\n\nView the review at %s.", s.cfg.URL(fmt.Sprintf("/reviews/%d", t.review.ID)))
	return personal(*t.reviewer, note.subject, b.String())
}

// personal addresses body to one user. Users without an email address get
// no recipients, which the outbox drops.
func personal(user journal.User, subject, body string) notifications.Message {
	greeting := user.FirstName
	if greeting == "" {
		greeting = user.DisplayName()
	}
	msg := notifications.Message{
		Subject: subject,
		Body:    fmt.Sprintf("Dear %s,\n\n%s", greeting, body),
	}
	if email := strings.TrimSpace(user.Email); email != "" {
		msg.Recipients = []string{email}
	}
	return msg
}
