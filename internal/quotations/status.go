package quotations

import (
	"fmt"
	"strings"

	"github.com/track-invoice/track-invoice/internal/shared"
)

// Status is the lifecycle state of a quotation.
type Status string

const (
	StatusDraft    Status = "draft"
	StatusSent     Status = "sent"
	StatusRevised  Status = "revised"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// ParseStatus validates a raw status value.
func ParseStatus(raw string) (Status, error) {
	s := Status(strings.ToLower(strings.TrimSpace(raw)))
	switch s {
	case StatusDraft, StatusSent, StatusRevised, StatusApproved, StatusRejected:
		return s, nil
	}
	return "", fmt.Errorf("%w: unknown quotation status %q", shared.ErrValidation, raw)
}

// InitialStatus is the status of a new quotation. Callers may only ask for
// sent; anything else starts as draft.
func InitialStatus(requested Status) Status {
	if requested == StatusSent {
		return StatusSent
	}
	return StatusDraft
}

// Edit returns the status after an edit. Rejected quotations become revised;
// draft and revised quotations may be sent in the same edit.
func Edit(from Status, wantSend bool) (Status, error) {
	switch from {
	case StatusRejected:
		return StatusRevised, nil
	case StatusDraft, StatusRevised:
		if wantSend {
			return StatusSent, nil
		}
		return from, nil
	}
	return "", transitionError("edit", from)
}

// Send moves a draft or revised quotation to sent.
func Send(from Status) (Status, error) {
	if from == StatusDraft || from == StatusRevised {
		return StatusSent, nil
	}
	return "", transitionError("send", from)
}

// Approve records the client's acceptance.
func Approve(from Status) (Status, error) {
	if from == StatusSent || from == StatusRevised {
		return StatusApproved, nil
	}
	return "", transitionError("approve", from)
}

// Reject records the client's refusal.
func Reject(from Status) (Status, error) {
	if from == StatusSent {
		return StatusRejected, nil
	}
	return "", transitionError("reject", from)
}

// CanDelete reports whether a quotation in status from may be removed.
func CanDelete(from Status) error {
	if from == StatusDraft {
		return nil
	}
	return transitionError("delete", from)
}

// CanConvert reports whether a quotation in status from may become an invoice.
func CanConvert(from Status) error {
	if from == StatusApproved {
		return nil
	}
	return transitionError("convert", from)
}

func transitionError(action string, from Status) error {
	return fmt.Errorf("%w: cannot %s a quotation in status %q", shared.ErrInvalidStatus, action, from)
}
