package httpapi

import (
	"time"

	"github.com/classtrack/classtrack/internal/app/domain/assignment"
	"github.com/classtrack/classtrack/internal/app/domain/subject"
)

// AssignmentView is the template-ready shape of an assignment: the subject
// name is embedded and the due date is pre-formatted for display.
type AssignmentView struct {
	ID             string     `json:"id"`
	Title          string     `json:"title"`
	Description    string     `json:"description"`
	Priority       string     `json:"priority"`
	SubjectID      string     `json:"subject_id"`
	SubjectName    string     `json:"subject_name,omitempty"`
	DueDate        *time.Time `json:"due_date,omitempty"`
	DueDateDisplay string     `json:"due_date_display,omitempty"`
	Overdue        bool       `json:"overdue"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// SubjectView is the template-ready shape of a subject.
type SubjectView struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

const dueDateDisplayFormat = "Mon, 02 Jan 2006 15:04 MST"

func bindAssignment(a assignment.Assignment, subjectName string) AssignmentView {
	view := AssignmentView{
		ID:          a.ID,
		Title:       a.Title,
		Description: a.Description,
		Priority:    string(a.Priority),
		SubjectID:   a.SubjectID,
		SubjectName: subjectName,
		Overdue:     a.Overdue,
		CreatedAt:   a.CreatedAt,
		UpdatedAt:   a.UpdatedAt,
	}
	if !a.DueDate.IsZero() {
		due := a.DueDate
		view.DueDate = &due
		view.DueDateDisplay = due.Format(dueDateDisplayFormat)
	}
	return view
}

func bindAssignments(items []assignment.Assignment, subjects []subject.Subject) []AssignmentView {
	names := make(map[string]string, len(subjects))
	for _, s := range subjects {
		names[s.ID] = s.Name
	}

	views := make([]AssignmentView, 0, len(items))
	for _, a := range items {
		views = append(views, bindAssignment(a, names[a.SubjectID]))
	}
	return views
}

func bindSubject(s subject.Subject) SubjectView {
	return SubjectView{ID: s.ID, Name: s.Name, CreatedAt: s.CreatedAt}
}

func bindSubjects(items []subject.Subject) []SubjectView {
	views := make([]SubjectView, 0, len(items))
	for _, s := range items {
		views = append(views, bindSubject(s))
	}
	return views
}
