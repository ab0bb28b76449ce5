package journal

import (
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// RevisionStatus is the lifecycle state of a manuscript revision.
type RevisionStatus string

const (
	RevisionUnsubmitted       RevisionStatus = "UNSUBMITTED"
	RevisionWaitingForAuthors RevisionStatus = "WAITING_FOR_AUTHORS"
	RevisionWithdrawn         RevisionStatus = "WITHDRAWN"
	RevisionPending           RevisionStatus = "PENDING"
	RevisionAccept            RevisionStatus = "ACCEPT"
	RevisionMinorRevision     RevisionStatus = "MINOR_REVISION"
	RevisionMajorRevision     RevisionStatus = "MAJOR_REVISION"
	RevisionReject            RevisionStatus = "REJECT"
	RevisionPublished         RevisionStatus = "PUBLISHED"
)

// RevisionStatuses lists every revision status in lifecycle order.
var RevisionStatuses = []RevisionStatus{
	RevisionUnsubmitted,
	RevisionWaitingForAuthors,
	RevisionWithdrawn,
	RevisionPending,
	RevisionAccept,
	RevisionMinorRevision,
	RevisionMajorRevision,
	RevisionReject,
	RevisionPublished,
}

// decidedStatuses mark a revision whose manuscript has received a decision.
var decidedStatuses = map[RevisionStatus]struct{}{
	RevisionReject:        {},
	RevisionMinorRevision: {},
	RevisionMajorRevision: {},
	RevisionAccept:        {},
	RevisionPublished:     {},
}

// respawnableStatuses allow a follow-up revision to be created.
var respawnableStatuses = map[RevisionStatus]struct{}{
	RevisionWithdrawn:     {},
	RevisionMinorRevision: {},
	RevisionMajorRevision: {},
}

// ParseRevisionStatus converts user input such as "minor-revision" into a
// RevisionStatus.
func ParseRevisionStatus(value string) (RevisionStatus, bool) {
	normalized := RevisionStatus(normalizeEnum(value))
	for _, status := range RevisionStatuses {
		if status == normalized {
			return status, true
		}
	}
	return "", false
}

// Label returns a human readable form, e.g. "Waiting for authors".
func (s RevisionStatus) Label() string { return enumLabel(string(s)) }

// IsDecision reports whether s is one of the editor decisions.
func (s RevisionStatus) IsDecision() bool {
	switch s {
	case RevisionAccept, RevisionMinorRevision, RevisionMajorRevision, RevisionReject:
		return true
	}
	return false
}

// ReviewStatus is the lifecycle state of a single review assignment.
type ReviewStatus string

const (
	ReviewAssigned      ReviewStatus = "ASSIGNED"
	ReviewSubmitted     ReviewStatus = "SUBMITTED"
	ReviewEditRequested ReviewStatus = "EDIT_REQUESTED"
	ReviewExpired       ReviewStatus = "EXPIRED"
	ReviewWithdrawn     ReviewStatus = "WITHDRAWN"
	ReviewNotNeeded     ReviewStatus = "NOT_NEEDED"
	ReviewComplete      ReviewStatus = "COMPLETE"
)

// ReviewStatuses lists every review status.
var ReviewStatuses = []ReviewStatus{
	ReviewAssigned,
	ReviewSubmitted,
	ReviewEditRequested,
	ReviewExpired,
	ReviewWithdrawn,
	ReviewNotNeeded,
	ReviewComplete,
}

// ParseReviewStatus converts user input into a ReviewStatus.
func ParseReviewStatus(value string) (ReviewStatus, bool) {
	normalized := ReviewStatus(normalizeEnum(value))
	for _, status := range ReviewStatuses {
		if status == normalized {
			return status, true
		}
	}
	return "", false
}

func (s ReviewStatus) Label() string { return enumLabel(string(s)) }

// Underway reports whether a reviewer has produced work in this state.
func (s ReviewStatus) Underway() bool {
	switch s {
	case ReviewSubmitted, ReviewComplete, ReviewEditRequested:
		return true
	}
	return false
}

// Recommendation is a reviewer's suggested decision.
type Recommendation string

const (
	RecommendAccept Recommendation = "ACCEPT"
	RecommendMinor  Recommendation = "MINOR"
	RecommendMajor  Recommendation = "MAJOR"
	RecommendReject Recommendation = "REJECT"
)

// ParseRecommendation converts user input into a Recommendation.
func ParseRecommendation(value string) (Recommendation, bool) {
	switch r := Recommendation(normalizeEnum(value)); r {
	case RecommendAccept, RecommendMinor, RecommendMajor, RecommendReject:
		return r, true
	}
	return "", false
}

func normalizeEnum(value string) string {
	value = strings.ToUpper(strings.TrimSpace(value))
	value = strings.ReplaceAll(value, "-", "_")
	return strings.ReplaceAll(value, " ", "_")
}

var titleCaser = cases.Title(language.English)

func enumLabel(value string) string {
	words := strings.Fields(strings.ToLower(strings.ReplaceAll(value, "_", " ")))
	if len(words) == 0 {
		return ""
	}
	words[0] = titleCaser.String(words[0])
	return strings.Join(words, " ")
}

// User is any person known to the journal: author, reviewer or editor.
type User struct {
	ID         int64
	Username   string
	FirstName  string
	LastName   string
	Email      string
	IsAuthor   bool
	IsReviewer bool
	IsEditor   bool
	CreatedAt  time.Time
}

// DisplayName returns "First Last", falling back to the username.
func (u User) DisplayName() string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		return u.Username
	}
	return name
}

// Authorship links an author to a manuscript.
type Authorship struct {
	ManuscriptID int64
	Author       User
	Acknowledged bool
}

// Manuscript is the aggregate root owning revisions, authorships and the
// assigned reviewer set.
type Manuscript struct {
	ID          int64
	Deleted     bool
	CreatedAt   time.Time
	Authorships []Authorship
	ReviewerIDs []int64
	// Revisions are ordered by increasing revision number.
	Revisions []*Revision
}

// Current returns the revision with the highest number, or nil.
func (m *Manuscript) Current() *Revision {
	if m == nil || len(m.Revisions) == 0 {
		return nil
	}
	return m.Revisions[len(m.Revisions)-1]
}

// Revision returns the revision with the given id, or nil.
func (m *Manuscript) Revision(id int64) *Revision {
	for _, rev := range m.Revisions {
		if rev.ID == id {
			return rev
		}
	}
	return nil
}

// Authors returns every author in authorship order.
func (m *Manuscript) Authors() []User {
	authors := make([]User, 0, len(m.Authorships))
	for _, a := range m.Authorships {
		authors = append(authors, a.Author)
	}
	return authors
}

// AuthorIDs returns the ids of every author.
func (m *Manuscript) AuthorIDs() []int64 {
	ids := make([]int64, 0, len(m.Authorships))
	for _, a := range m.Authorships {
		ids = append(ids, a.Author.ID)
	}
	return ids
}

// UnacknowledgedAuthors returns authors who have not confirmed authorship.
func (m *Manuscript) UnacknowledgedAuthors() []User {
	var authors []User
	for _, a := range m.Authorships {
		if !a.Acknowledged {
			authors = append(authors, a.Author)
		}
	}
	return authors
}

func (m *Manuscript) HasUnacknowledgedAuthors() bool {
	return len(m.UnacknowledgedAuthors()) > 0
}

// IsAuthor reports whether userID holds an authorship.
func (m *Manuscript) IsAuthor(userID int64) bool {
	for _, a := range m.Authorships {
		if a.Author.ID == userID {
			return true
		}
	}
	return false
}

// HasReviewer reports whether userID is in the assigned reviewer set.
func (m *Manuscript) HasReviewer(userID int64) bool {
	for _, id := range m.ReviewerIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// CanAssignReviewer is true while the current revision is under review.
func (m *Manuscript) CanAssignReviewer() bool {
	current := m.Current()
	return current != nil && current.Status == RevisionPending
}

// AuthorNames renders "A", "A and B" or "A, B and C".
func (m *Manuscript) AuthorNames() string {
	names := make([]string, 0, len(m.Authorships))
	for _, a := range m.Authorships {
		names = append(names, a.Author.DisplayName())
	}
	switch len(names) {
	case 0:
		return ""
	case 1:
		return names[0]
	default:
		return strings.Join(names[:len(names)-1], ", ") + " and " + names[len(names)-1]
	}
}

// HasPriorDecision reports whether any revision numbered below rev reached a
// decision.
func (m *Manuscript) HasPriorDecision(rev *Revision) bool {
	for _, other := range m.Revisions {
		if other.Number >= rev.Number {
			continue
		}
		if _, ok := decidedStatuses[other.Status]; ok {
			return true
		}
	}
	return false
}

// CanSubmit reports whether rev may move to PENDING: it must be unsubmitted
// and either carry a revision note or follow no earlier decision.
func (m *Manuscript) CanSubmit(rev *Revision) bool {
	if rev.Status != RevisionUnsubmitted {
		return false
	}
	return strings.TrimSpace(rev.RevisionNote) != "" || !m.HasPriorDecision(rev)
}

// CanCreateNewRevision is true when rev ended without acceptance and is the
// latest revision.
func (m *Manuscript) CanCreateNewRevision(rev *Revision) bool {
	if _, ok := respawnableStatuses[rev.Status]; !ok {
		return false
	}
	for _, other := range m.Revisions {
		if other.Number > rev.Number {
			return false
		}
	}
	return true
}

// NextRevision builds the follow-up to rev: title and text are copied, the
// number incremented, and the status depends on authorship acknowledgement.
// The result is not persisted.
func (m *Manuscript) NextRevision(rev *Revision, now time.Time) *Revision {
	status := RevisionUnsubmitted
	if m.HasUnacknowledgedAuthors() {
		status = RevisionWaitingForAuthors
	}
	return &Revision{
		ManuscriptID: m.ID,
		Title:        rev.Title,
		Text:         rev.Text,
		Number:       rev.Number + 1,
		Status:       status,
		CreatedAt:    now,
	}
}

// Revision is one version of a manuscript.
type Revision struct {
	ID              int64
	ManuscriptID    int64
	Title           string
	Text            string
	RevisionNote    string
	EditorialReview string
	Number          int
	Status          RevisionStatus
	Deleted         bool
	CreatedAt       time.Time
	SubmittedAt     *time.Time
	DecidedAt       *time.Time
	PublishedAt     *time.Time
	// Reviews is populated by GetRevision.
	Reviews []*Review
}

// CanWithdraw is true while pending and no reviewer has produced work.
func (r *Revision) CanWithdraw() bool {
	if r.Status != RevisionPending {
		return false
	}
	for _, review := range r.Reviews {
		if review.Status.Underway() {
			return false
		}
	}
	return true
}

// CanEdit is true while the revision has not been submitted.
func (r *Revision) CanEdit() bool {
	return r.Status == RevisionUnsubmitted || r.Status == RevisionWaitingForAuthors
}

// Review returns the review held by reviewerID, or nil.
func (r *Revision) Review(reviewerID int64) *Review {
	for _, review := range r.Reviews {
		if review.ReviewerID == reviewerID {
			return review
		}
	}
	return nil
}

// Column groups statuses into board columns.
type Column string

const (
	ColumnInPreparation Column = "IN_PREPARATION"
	ColumnInSubmission  Column = "IN_SUBMISSION"
	ColumnDecided       Column = "DECIDED"
	ColumnPublished     Column = "PUBLISHED"
)

func (r *Revision) Column() Column {
	switch r.Status {
	case RevisionUnsubmitted, RevisionWaitingForAuthors:
		return ColumnInPreparation
	case RevisionPending:
		return ColumnInSubmission
	case RevisionPublished:
		return ColumnPublished
	default:
		return ColumnDecided
	}
}

const statusTimeLayout = "Monday January 2, 2006 at 3:04 PM"

// StatusMessage describes the status along with the timestamp that set it,
// e.g. "Submitted Monday March 3, 2025 at 4:05 PM".
func (r *Revision) StatusMessage() string {
	stamp := func(prefix string, t *time.Time) string {
		if t == nil {
			return r.Status.Label()
		}
		return prefix + " " + t.Format(statusTimeLayout)
	}
	switch r.Status {
	case RevisionUnsubmitted:
		return "Created " + r.CreatedAt.Format(statusTimeLayout)
	case RevisionWaitingForAuthors:
		return "Waiting for all authors to acknowledge"
	case RevisionPending:
		return stamp("Submitted", r.SubmittedAt)
	case RevisionWithdrawn:
		return stamp("Withdrawn", r.DecidedAt)
	case RevisionPublished:
		return stamp("Published", r.PublishedAt)
	default:
		return stamp(r.Status.Label()+" decision on", r.DecidedAt)
	}
}

// Review is one reviewer's assignment against a revision.
type Review struct {
	ID             int64
	RevisionID     int64
	ReviewerID     int64
	Status         ReviewStatus
	Recommendation Recommendation
	Text           string
	EditorFeedback string
	DueAt          time.Time
	SubmittedAt    *time.Time
	ClosedAt       *time.Time
	CreatedAt      time.Time
}

// CanSubmit is true while the reviewer still owes a review.
func (r *Review) CanSubmit() bool {
	return r.Status == ReviewAssigned || r.Status == ReviewEditRequested
}

// Overdue reports whether the review is still owed past its due date.
func (r *Review) Overdue(now time.Time) bool {
	return r.CanSubmit() && r.DueAt.Before(now)
}

// HistoryEntry is one persisted transition.
type HistoryEntry struct {
	ID        int64
	UnitID    string
	Entity    string
	EntityID  int64
	From      string
	To        string
	ActorID   *int64
	CreatedAt time.Time
}
