package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/HammerMeetNail/socialgraph/internal/models"
	"github.com/HammerMeetNail/socialgraph/internal/services"
)

type FriendHandler struct {
	friendService services.FriendServiceInterface
}

func NewFriendHandler(friendService services.FriendServiceInterface) *FriendHandler {
	return &FriendHandler{friendService: friendService}
}

type SendFriendRequestRequest struct {
	ReceiverID string `json:"receiver_id"`
}

type SendFriendRequestResponse struct {
	Message string    `json:"message"`
	ID      uuid.UUID `json:"id"`
}

// PendingRequestResponse is a sender of a pending request, together with the
// request id needed to accept or reject it.
type PendingRequestResponse struct {
	models.PublicUser
	RequestID uuid.UUID `json:"request_id"`
}

func (h *FriendHandler) SendRequest(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	var req SendFriendRequestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	receiverID, err := uuid.Parse(req.ReceiverID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid receiver ID")
		return
	}

	created, err := h.friendService.SendRequest(r.Context(), user.ID, receiverID)
	switch {
	case errors.Is(err, services.ErrUserNotFound):
		writeError(w, http.StatusNotFound, "User not found")
		return
	case errors.Is(err, services.ErrCannotFriendSelf):
		writeError(w, http.StatusBadRequest, "Cannot send friend request to yourself")
		return
	case errors.Is(err, services.ErrFriendRequestExists):
		writeError(w, http.StatusBadRequest, "Friend request already exists")
		return
	case err != nil:
		writeInternalError(w, r, "send friend request", err)
		return
	}

	writeJSON(w, http.StatusCreated, SendFriendRequestResponse{
		Message: "Friend request sent",
		ID:      created.ID,
	})
}

func (h *FriendHandler) AcceptRequest(w http.ResponseWriter, r *http.Request) {
	h.resolve(w, r, h.friendService.AcceptRequest, "Friend request accepted")
}

func (h *FriendHandler) RejectRequest(w http.ResponseWriter, r *http.Request) {
	h.resolve(w, r, h.friendService.RejectRequest, "Friend request rejected")
}

type resolveFunc func(ctx context.Context, callerID, requestID uuid.UUID) (*models.FriendRequest, error)

func (h *FriendHandler) resolve(w http.ResponseWriter, r *http.Request, fn resolveFunc, message string) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	// Malformed ids cannot name any request.
	requestID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusNotFound, "Friend request not found")
		return
	}

	_, err = fn(r.Context(), user.ID, requestID)
	if errors.Is(err, services.ErrFriendRequestNotFound) {
		writeError(w, http.StatusNotFound, "Friend request not found")
		return
	}
	if err != nil {
		writeInternalError(w, r, "resolve friend request", err)
		return
	}

	writeJSON(w, http.StatusOK, MessageResponse{Message: message})
}

func (h *FriendHandler) List(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	friends, err := h.friendService.ListFriends(r.Context(), user.ID)
	if err != nil {
		writeInternalError(w, r, "list friends", err)
		return
	}

	response := make([]models.PublicUser, 0, len(friends))
	for i := range friends {
		response = append(response, friends[i].Public())
	}
	writeJSON(w, http.StatusOK, response)
}

func (h *FriendHandler) Pending(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	pending, err := h.friendService.ListPending(r.Context(), user.ID)
	if err != nil {
		writeInternalError(w, r, "list pending friend requests", err)
		return
	}

	response := make([]PendingRequestResponse, 0, len(pending))
	for i := range pending {
		response = append(response, PendingRequestResponse{
			PublicUser: pending[i].Sender.Public(),
			RequestID:  pending[i].Request.ID,
		})
	}
	writeJSON(w, http.StatusOK, response)
}
