package handlers

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/HammerMeetNail/socialgraph/internal/models"
	"github.com/HammerMeetNail/socialgraph/internal/services"
)

type UserHandler struct {
	userService services.UserServiceInterface
}

func NewUserHandler(userService services.UserServiceInterface) *UserHandler {
	return &UserHandler{userService: userService}
}

// UserSearchResponse is a page of search results. Next and Previous are
// absolute URLs, or null at either end.
type UserSearchResponse struct {
	Count    int                 `json:"count"`
	Next     *string             `json:"next"`
	Previous *string             `json:"previous"`
	Results  []models.PublicUser `json:"results"`
}

func (h *UserHandler) Search(w http.ResponseWriter, r *http.Request) {
	if GetUserFromContext(r.Context()) == nil {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	query := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("q")))
	if query == "" {
		writeError(w, http.StatusBadRequest, "Query is required")
		return
	}

	page := 1
	if raw := r.URL.Query().Get("page"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			writeError(w, http.StatusNotFound, "Invalid page")
			return
		}
		page = parsed
	}

	result, err := h.userService.Search(r.Context(), query, page)
	if errors.Is(err, services.ErrInvalidPage) {
		writeError(w, http.StatusNotFound, "Invalid page")
		return
	}
	if err != nil {
		writeInternalError(w, r, "search users", err)
		return
	}

	response := UserSearchResponse{
		Count:   result.Count,
		Results: make([]models.PublicUser, 0, len(result.Users)),
	}
	for i := range result.Users {
		response.Results = append(response.Results, result.Users[i].Public())
	}
	if result.HasNext() {
		next := pageURL(r, result.Page+1)
		response.Next = &next
	}
	if result.HasPrevious() {
		prev := pageURL(r, result.Page-1)
		response.Previous = &prev
	}

	writeJSON(w, http.StatusOK, response)
}

// pageURL rebuilds the request URL pointing at page. The first page carries
// no page parameter.
func pageURL(r *http.Request, page int) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = strings.TrimSpace(strings.SplitN(proto, ",", 2)[0])
	}

	query := r.URL.Query()
	if page <= 1 {
		query.Del("page")
	} else {
		query.Set("page", strconv.Itoa(page))
	}

	u := url.URL{
		Scheme:   scheme,
		Host:     r.Host,
		Path:     r.URL.Path,
		RawQuery: query.Encode(),
	}
	return u.String()
}
