package api

import (
	"time"

	"editorial/internal/journal"
	"editorial/internal/ranking"
	"editorial/internal/workflow"
)

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// User is the transport form of journal.User.
type User struct {
	ID         int64  `json:"id"`
	Username   string `json:"username"`
	Name       string `json:"name"`
	Email      string `json:"email,omitempty"`
	IsAuthor   bool   `json:"isAuthor"`
	IsReviewer bool   `json:"isReviewer"`
	IsEditor   bool   `json:"isEditor"`
}

// Author is one authorship on a manuscript.
type Author struct {
	User
	Acknowledged bool `json:"acknowledged"`
}

// Manuscript summarizes a manuscript and its revisions.
type Manuscript struct {
	ID          int64      `json:"id"`
	Title       string     `json:"title"`
	AuthorNames string     `json:"authorNames"`
	Authors     []Author   `json:"authors"`
	ReviewerIDs []int64    `json:"reviewerIds"`
	Revisions   []Revision `json:"revisions"`
	CreatedAt   string     `json:"createdAt,omitempty"`
}

// Revision is the transport form of journal.Revision.
type Revision struct {
	ID              int64    `json:"id"`
	ManuscriptID    int64    `json:"manuscriptId"`
	Number          int      `json:"number"`
	Title           string   `json:"title"`
	Text            string   `json:"text,omitempty"`
	Status          string   `json:"status"`
	StatusLabel     string   `json:"statusLabel"`
	StatusMessage   string   `json:"statusMessage"`
	Column          string   `json:"column"`
	RevisionNote    string   `json:"revisionNote,omitempty"`
	EditorialReview string   `json:"editorialReview,omitempty"`
	CreatedAt       string   `json:"createdAt,omitempty"`
	SubmittedAt     string   `json:"submittedAt,omitempty"`
	DecidedAt       string   `json:"decidedAt,omitempty"`
	PublishedAt     string   `json:"publishedAt,omitempty"`
	Reviews         []Review `json:"reviews,omitempty"`
}

// Review is the transport form of journal.Review.
type Review struct {
	ID             int64  `json:"id"`
	RevisionID     int64  `json:"revisionId"`
	ReviewerID     int64  `json:"reviewerId"`
	Status         string `json:"status"`
	Recommendation string `json:"recommendation,omitempty"`
	Text           string `json:"text,omitempty"`
	EditorFeedback string `json:"editorFeedback,omitempty"`
	DueAt          string `json:"dueAt"`
	SubmittedAt    string `json:"submittedAt,omitempty"`
	ClosedAt       string `json:"closedAt,omitempty"`
}

// Result reports the outcome of a workflow action.
type Result struct {
	UnitID   string   `json:"unitId"`
	EntityID int64    `json:"entityId"`
	State    string   `json:"state"`
	Messages []string `json:"messages"`
	Warnings []string `json:"warnings,omitempty"`
	Notified int      `json:"notified"`
}

// AllowedResponse lists reachable states.
type AllowedResponse struct {
	From    string   `json:"from"`
	Allowed []string `json:"allowed"`
}

// RankedReviewer is one entry of a reviewer ranking.
type RankedReviewer struct {
	ReviewerID    int64   `json:"reviewerId"`
	TotalReviews  int     `json:"totalReviews"`
	AuthorReviews int     `json:"authorReviews"`
	Score         float64 `json:"score"`
}

// HistoryEntry is one persisted transition.
type HistoryEntry struct {
	ID        int64  `json:"id"`
	UnitID    string `json:"unitId"`
	Entity    string `json:"entity"`
	EntityID  int64  `json:"entityId"`
	From      string `json:"from"`
	To        string `json:"to"`
	ActorID   *int64 `json:"actorId,omitempty"`
	CreatedAt string `json:"createdAt"`
}

// ExpireResponse reports an expiry sweep.
type ExpireResponse struct {
	Expired []Result `json:"expired"`
	Errors  []string `json:"errors,omitempty"`
}

// CreateManuscriptRequest is the body of POST /manuscripts.
type CreateManuscriptRequest struct {
	Title       string  `json:"title"`
	Text        string  `json:"text"`
	CoauthorIDs []int64 `json:"coauthorIds"`
}

// CreateUserRequest is the body of POST /users.
type CreateUserRequest struct {
	Username   string `json:"username"`
	FirstName  string `json:"firstName"`
	LastName   string `json:"lastName"`
	Email      string `json:"email"`
	IsAuthor   bool   `json:"isAuthor"`
	IsReviewer bool   `json:"isReviewer"`
	IsEditor   bool   `json:"isEditor"`
}

// AssignReviewerRequest is the body of POST /manuscripts/{id}/reviewers.
type AssignReviewerRequest struct {
	ReviewerID int64 `json:"reviewerId"`
}

// RevisionTransitionRequest is the body of POST /revisions/{id}/transitions.
type RevisionTransitionRequest struct {
	To              string `json:"to"`
	RevisionNote    string `json:"revisionNote,omitempty"`
	EditorialReview string `json:"editorialReview,omitempty"`
}

// ReviewTransitionRequest is the body of POST /reviews/{id}/transitions.
type ReviewTransitionRequest struct {
	To       string `json:"to"`
	Feedback string `json:"feedback,omitempty"`
}

// SubmitReviewRequest is the body of POST /reviews/{id}/submit.
type SubmitReviewRequest struct {
	Text           string `json:"text"`
	Recommendation string `json:"recommendation"`
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateTimeFormat)
}

func formatTimePtr(t *time.Time) string {
	if t == nil {
		return ""
	}
	return formatTime(*t)
}

// FromUser converts a journal user.
func FromUser(u journal.User) User {
	return User{
		ID:         u.ID,
		Username:   u.Username,
		Name:       u.DisplayName(),
		Email:      u.Email,
		IsAuthor:   u.IsAuthor,
		IsReviewer: u.IsReviewer,
		IsEditor:   u.IsEditor,
	}
}

// FromManuscript converts a manuscript. The title is the current revision's.
func FromManuscript(m *journal.Manuscript) Manuscript {
	out := Manuscript{
		ID:          m.ID,
		AuthorNames: m.AuthorNames(),
		Authors:     make([]Author, 0, len(m.Authorships)),
		ReviewerIDs: append([]int64{}, m.ReviewerIDs...),
		Revisions:   make([]Revision, 0, len(m.Revisions)),
		CreatedAt:   formatTime(m.CreatedAt),
	}
	if current := m.Current(); current != nil {
		out.Title = current.Title
	}
	for _, a := range m.Authorships {
		out.Authors = append(out.Authors, Author{User: FromUser(a.Author), Acknowledged: a.Acknowledged})
	}
	for _, rev := range m.Revisions {
		out.Revisions = append(out.Revisions, FromRevision(rev))
	}
	return out
}

// FromRevision converts a revision with whatever reviews it carries.
func FromRevision(r *journal.Revision) Revision {
	out := Revision{
		ID:              r.ID,
		ManuscriptID:    r.ManuscriptID,
		Number:          r.Number,
		Title:           r.Title,
		Text:            r.Text,
		Status:          string(r.Status),
		StatusLabel:     r.Status.Label(),
		StatusMessage:   r.StatusMessage(),
		Column:          string(r.Column()),
		RevisionNote:    r.RevisionNote,
		EditorialReview: r.EditorialReview,
		CreatedAt:       formatTime(r.CreatedAt),
		SubmittedAt:     formatTimePtr(r.SubmittedAt),
		DecidedAt:       formatTimePtr(r.DecidedAt),
		PublishedAt:     formatTimePtr(r.PublishedAt),
	}
	for _, review := range r.Reviews {
		out.Reviews = append(out.Reviews, FromReview(review))
	}
	return out
}

// FromReview converts a review.
func FromReview(r *journal.Review) Review {
	return Review{
		ID:             r.ID,
		RevisionID:     r.RevisionID,
		ReviewerID:     r.ReviewerID,
		Status:         string(r.Status),
		Recommendation: string(r.Recommendation),
		Text:           r.Text,
		EditorFeedback: r.EditorFeedback,
		DueAt:          formatTime(r.DueAt),
		SubmittedAt:    formatTimePtr(r.SubmittedAt),
		ClosedAt:       formatTimePtr(r.ClosedAt),
	}
}

// FromResult converts a workflow result.
func FromResult(res workflow.Result) Result {
	out := Result{
		UnitID:   res.UnitID,
		EntityID: res.EntityID,
		State:    res.State,
		Messages: res.Messages,
		Notified: res.Notified,
	}
	if out.Messages == nil {
		out.Messages = []string{}
	}
	for _, w := range res.Warnings {
		out.Warnings = append(out.Warnings, w.Error())
	}
	return out
}

// FromRanked converts a reviewer ranking.
func FromRanked(ranked []ranking.Ranked) []RankedReviewer {
	out := make([]RankedReviewer, 0, len(ranked))
	for _, r := range ranked {
		out = append(out, RankedReviewer{
			ReviewerID:    r.ReviewerID,
			TotalReviews:  r.TotalReviews,
			AuthorReviews: r.AuthorReviews,
			Score:         r.Score,
		})
	}
	return out
}

// FromHistory converts history entries.
func FromHistory(entries []*journal.HistoryEntry) []HistoryEntry {
	out := make([]HistoryEntry, 0, len(entries))
	for _, e := range entries {
		out = append(out, HistoryEntry{
			ID:        e.ID,
			UnitID:    e.UnitID,
			Entity:    e.Entity,
			EntityID:  e.EntityID,
			From:      e.From,
			To:        e.To,
			ActorID:   e.ActorID,
			CreatedAt: formatTime(e.CreatedAt),
		})
	}
	return out
}

func statusStrings[S ~string](states []S) []string {
	out := make([]string, 0, len(states))
	for _, s := range states {
		out = append(out, string(s))
	}
	return out
}
