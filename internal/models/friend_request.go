package models

import (
	"time"

	"github.com/google/uuid"
)

type FriendRequestStatus string

const (
	FriendRequestStatusPending  FriendRequestStatus = "pending"
	FriendRequestStatusAccepted FriendRequestStatus = "accepted"
	FriendRequestStatusRejected FriendRequestStatus = "rejected"
)

// IsTerminal reports whether no further transition is allowed.
func (s FriendRequestStatus) IsTerminal() bool {
	return s == FriendRequestStatusAccepted || s == FriendRequestStatusRejected
}

// CanTransitionTo reports whether s -> next is a legal lifecycle step.
func (s FriendRequestStatus) CanTransitionTo(next FriendRequestStatus) bool {
	return s == FriendRequestStatusPending && next.IsTerminal()
}

type FriendRequest struct {
	ID          uuid.UUID           `json:"id"`
	SenderID    uuid.UUID           `json:"sender_id"`
	ReceiverID  uuid.UUID           `json:"receiver_id"`
	Status      FriendRequestStatus `json:"status"`
	CreatedAt   time.Time           `json:"created_at"`
	RespondedAt *time.Time          `json:"responded_at,omitempty"`
}

// OtherParty returns the participant that is not userID.
func (r *FriendRequest) OtherParty(userID uuid.UUID) uuid.UUID {
	if r.ReceiverID == userID {
		return r.SenderID
	}
	return r.ReceiverID
}

// Involves reports whether userID is the sender or the receiver.
func (r *FriendRequest) Involves(userID uuid.UUID) bool {
	return r.SenderID == userID || r.ReceiverID == userID
}

type PendingFriendRequest struct {
	Request FriendRequest
	Sender  User
}
