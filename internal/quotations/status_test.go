package quotations

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/track-invoice/track-invoice/internal/shared"
)

var allStatuses = []Status{StatusDraft, StatusSent, StatusRevised, StatusApproved, StatusRejected}

func TestInitialStatus(t *testing.T) {
	assert.Equal(t, StatusSent, InitialStatus(StatusSent))
	assert.Equal(t, StatusDraft, InitialStatus(StatusDraft))
	assert.Equal(t, StatusDraft, InitialStatus(StatusApproved))
	assert.Equal(t, StatusDraft, InitialStatus(""))
}

func TestTransitionTable(t *testing.T) {
	cases := []struct {
		name    string
		step    func(Status) (Status, error)
		allowed map[Status]Status
	}{
		{"send", Send, map[Status]Status{StatusDraft: StatusSent, StatusRevised: StatusSent}},
		{"approve", Approve, map[Status]Status{StatusSent: StatusApproved, StatusRevised: StatusApproved}},
		{"reject", Reject, map[Status]Status{StatusSent: StatusRejected}},
	}
	for _, tc := range cases {
		for _, from := range allStatuses {
			next, err := tc.step(from)
			if want, ok := tc.allowed[from]; ok {
				require.NoError(t, err, "%s from %s", tc.name, from)
				assert.Equal(t, want, next, "%s from %s", tc.name, from)
				continue
			}
			assert.ErrorIs(t, err, shared.ErrInvalidStatus, "%s from %s", tc.name, from)
		}
	}
}

func TestApproveFromDraftIsRejected(t *testing.T) {
	_, err := Approve(StatusDraft)
	assert.ErrorIs(t, err, shared.ErrInvalidStatus)
}

func TestEdit(t *testing.T) {
	next, err := Edit(StatusRejected, false)
	require.NoError(t, err)
	assert.Equal(t, StatusRevised, next)

	next, err = Edit(StatusRejected, true)
	require.NoError(t, err)
	assert.Equal(t, StatusRevised, next)

	next, err = Edit(StatusDraft, true)
	require.NoError(t, err)
	assert.Equal(t, StatusSent, next)

	next, err = Edit(StatusRevised, false)
	require.NoError(t, err)
	assert.Equal(t, StatusRevised, next)

	for _, frozen := range []Status{StatusSent, StatusApproved} {
		_, err := Edit(frozen, false)
		assert.ErrorIs(t, err, shared.ErrInvalidStatus, frozen)
	}
}

func TestDeleteAndConvertGuards(t *testing.T) {
	for _, s := range allStatuses {
		if s == StatusDraft {
			assert.NoError(t, CanDelete(s))
		} else {
			assert.ErrorIs(t, CanDelete(s), shared.ErrInvalidStatus)
		}
		if s == StatusApproved {
			assert.NoError(t, CanConvert(s))
		} else {
			assert.ErrorIs(t, CanConvert(s), shared.ErrInvalidStatus)
		}
	}
}

func TestParseStatus(t *testing.T) {
	s, err := ParseStatus(" Sent ")
	require.NoError(t, err)
	assert.Equal(t, StatusSent, s)

	_, err = ParseStatus("paid")
	assert.ErrorIs(t, err, shared.ErrValidation)
}
