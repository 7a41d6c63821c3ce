package models

import "time"

// LinkState is the soft-delete state of a link.
type LinkState int

const (
	LinkActive LinkState = iota
	LinkDeleted
)

func (s LinkState) String() string {
	if s == LinkDeleted {
		return "deleted"
	}
	return "active"
}

// Link represents a shortened link in the store.
// The same struct is mapped by GORM (table "links") and by the MongoDB
// driver (collection "links").
type Link struct {
	ID            uint       `gorm:"primaryKey" json:"-" bson:"-"`
	Code          string     `gorm:"uniqueIndex;size:8;not null" json:"code" bson:"code"`
	Target        string     `gorm:"type:text;not null" json:"target" bson:"target"`
	CreatedAt     time.Time  `gorm:"index;not null" json:"createdAt" bson:"createdAt"`
	LastClickedAt *time.Time `json:"lastClickedAt" bson:"lastClickedAt"`
	TotalClicks   int64      `gorm:"not null;default:0" json:"totalClicks" bson:"totalClicks"`
	Deleted       bool       `gorm:"not null;default:false;index" json:"deleted" bson:"deleted"`
}

// TableName returns the table name for Link
func (Link) TableName() string { return "links" }

// State returns the soft-delete state of the link.
func (l *Link) State() LinkState {
	if l.Deleted {
		return LinkDeleted
	}
	return LinkActive
}

// ShortPath is the path-only short link, e.g. "/Abc123".
func (l *Link) ShortPath() string {
	return "/" + l.Code
}
