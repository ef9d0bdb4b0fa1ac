package models

import (
	"math"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Status values a complaint can hold
const (
	StatusReceived   = "Received"
	StatusInReview   = "In Review"
	StatusInProgress = "In Progress"
	StatusResolved   = "Resolved"
	StatusClosed     = "Closed"
)

// Vote actions recognized by the voting endpoint
const (
	VoteUp   = "upvote"
	VoteDown = "downvote"
)

// Categories is the closed set of complaint categories
var Categories = []string{"Infrastructure", "Roads", "Public Safety", "Environment", "Public Transport", "Other"}

// Priorities is the closed set of complaint priorities
var Priorities = []string{"Low", "Medium", "High", "Critical"}

// Statuses is the closed set of complaint statuses
var Statuses = []string{StatusReceived, StatusInReview, StatusInProgress, StatusResolved, StatusClosed}

// ValidCategory reports whether category is a recognized category
func ValidCategory(category string) bool {
	return contains(Categories, category)
}

// ValidPriority reports whether priority is a recognized priority
func ValidPriority(priority string) bool {
	return contains(Priorities, priority)
}

// ValidStatus reports whether status is a recognized status
func ValidStatus(status string) bool {
	return contains(Statuses, status)
}

func contains(set []string, v string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}

// Complaint holds the structure for the complaints collection in mongo
type Complaint struct {
	ID          primitive.ObjectID `json:"_id" bson:"_id,omitempty"`
	Title       string             `json:"title" bson:"title"`
	Category    string             `json:"category" bson:"category"`
	Priority    string             `json:"priority" bson:"priority"`
	Location    string             `json:"location" bson:"location"`
	Description string             `json:"description" bson:"description"`
	Status      string             `json:"status" bson:"status"`
	Photo       string             `json:"photo,omitempty" bson:"photo,omitempty"`
	SubmittedAt time.Time          `json:"submittedAt" bson:"submittedAt"`

	// ReportedBy is set once at creation and never reassigned. The JSON
	// rendering is the populated Reporter object instead of the raw id.
	ReportedBy primitive.ObjectID `json:"-" bson:"reportedBy"`
	Reporter   *Reporter          `json:"reportedBy,omitempty" bson:"-"`

	AssignedTo *Assignment `json:"assignedTo,omitempty" bson:"assignedTo,omitempty"`
	AdminNotes string      `json:"adminNotes,omitempty" bson:"adminNotes,omitempty"`
	ResolvedAt *time.Time  `json:"resolvedAt,omitempty" bson:"resolvedAt,omitempty"`

	Voters    []Voter   `json:"voters" bson:"voters"`
	Votes     int       `json:"votes" bson:"votes"`
	Downvotes int       `json:"downvotes" bson:"downvotes"`
	Comments  []Comment `json:"comments" bson:"comments"`

	// Computed from SubmittedAt at read time, never stored
	DaysSinceSubmission int `json:"daysSinceSubmission" bson:"-"`

	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt" bson:"updatedAt"`
}

// Reporter is the populated owner reference returned with complaints
type Reporter struct {
	ID    primitive.ObjectID `json:"_id"`
	Name  string             `json:"name"`
	Email string             `json:"email"`
}

// Assignment records which user a complaint is assigned to
type Assignment struct {
	UserID     primitive.ObjectID `json:"userId" bson:"userId"`
	Name       string             `json:"name" bson:"name"`
	AssignedAt time.Time          `json:"assignedAt" bson:"assignedAt"`
}

// Voter records the single vote a user currently holds on a complaint
type Voter struct {
	UserID primitive.ObjectID `json:"userId" bson:"userId"`
	Type   string             `json:"type" bson:"type"`
}

// Comment is an embedded, append-only complaint comment
type Comment struct {
	ID        primitive.ObjectID `json:"_id" bson:"_id"`
	UserID    primitive.ObjectID `json:"-" bson:"userId"`
	Author    *Reporter          `json:"user,omitempty" bson:"-"`
	Text      string             `json:"text" bson:"text"`
	CreatedAt time.Time          `json:"createdAt" bson:"createdAt"`
}

// ComputeDerived fills the derived fields before marshaling
func (c *Complaint) ComputeDerived(now time.Time) {
	if c.SubmittedAt.IsZero() {
		c.DaysSinceSubmission = 0
		return
	}
	diff := now.Sub(c.SubmittedAt).Hours() / 24
	c.DaysSinceSubmission = int(math.Ceil(math.Abs(diff)))
}

// FindVoter returns the voter entry for userID, or nil when the user has not voted
func (c *Complaint) FindVoter(userID primitive.ObjectID) *Voter {
	for i := range c.Voters {
		if c.Voters[i].UserID == userID {
			return &c.Voters[i]
		}
	}
	return nil
}

// FindComment returns the comment with the given id, or nil
func (c *Complaint) FindComment(commentID primitive.ObjectID) *Comment {
	for i := range c.Comments {
		if c.Comments[i].ID == commentID {
			return &c.Comments[i]
		}
	}
	return nil
}
