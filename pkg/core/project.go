// pkg/core/project.go
package core

import "time"

// Project is a design engagement between a client and a designer.
type Project struct {
	ID           string            `json:"id" yaml:"id"`
	Title        string            `json:"title" yaml:"title"`
	Brief        string            `json:"brief,omitempty" yaml:"brief,omitempty"`
	ClientName   string            `json:"clientName,omitempty" yaml:"clientName,omitempty"`
	DesignerName string            `json:"designerName,omitempty" yaml:"designerName,omitempty"`
	Status       string            `json:"status,omitempty" yaml:"status,omitempty"`
	CreatedAt    time.Time         `json:"createdAt" yaml:"createdAt"`
	UpdatedAt    time.Time         `json:"updatedAt" yaml:"updatedAt"`
	Revisions    []RevisionSummary `json:"revisions,omitempty" yaml:"revisions,omitempty"`
	Payments     []Payment         `json:"payments,omitempty" yaml:"payments,omitempty"`
}

// CreateProjectRequest is the body of a project creation call.
type CreateProjectRequest struct {
	Title        string `json:"title"`
	Brief        string `json:"brief,omitempty"`
	ClientEmail  string `json:"clientEmail,omitempty"`
	DesignerName string `json:"designerName,omitempty"`
}

// PaymentStatus is the state of a payment milestone
type PaymentStatus string

const (
	PaymentPending PaymentStatus = "pending"
	PaymentPaid    PaymentStatus = "paid"
)

// Payment is a billing milestone attached to a project.
type Payment struct {
	ID       string        `json:"id" yaml:"id"`
	Title    string        `json:"title" yaml:"title"`
	Amount   int64         `json:"amount" yaml:"amount"` // minor currency units
	Currency string        `json:"currency,omitempty" yaml:"currency,omitempty"`
	DueDate  *time.Time    `json:"dueDate,omitempty" yaml:"dueDate,omitempty"`
	Status   PaymentStatus `json:"status" yaml:"status"`
}

// Outstanding sums the amount of every unpaid milestone.
func (p Project) Outstanding() int64 {
	var total int64
	for _, pay := range p.Payments {
		if pay.Status != PaymentPaid {
			total += pay.Amount
		}
	}
	return total
}

// HistoryEntry is one file in a project's revision history listing.
type HistoryEntry struct {
	RevisionID     string    `json:"revisionId" yaml:"revisionId"`
	RevisionNumber int       `json:"revisionNumber" yaml:"revisionNumber"`
	TrackID        string    `json:"trackId" yaml:"trackId"`
	TrackName      string    `json:"trackName" yaml:"trackName"`
	File           TrackFile `json:"file" yaml:"file"`
}
