package server

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"example.com/tweetfeed/internal/apperr"
	"example.com/tweetfeed/internal/ident"
	"example.com/tweetfeed/internal/response"
)

// --- HTTP Handlers ---

const msgInvalidBody = "Invalid request body"

// decodeBody reads a JSON body into dst and answers 400 on failure.
func decodeBody(w http.ResponseWriter, r *http.Request, module string, dst any) bool {
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		logg.Info(module, "Invalid request body: "+err.Error())
		response.BadRequest(w, msgInvalidBody)
		return false
	}
	return true
}

// writeError answers with the status of err's kind. Internal failures are
// logged and their cause replaced by a generic detail.
func writeError(w http.ResponseWriter, r *http.Request, module, op string, err error) {
	kind := apperr.KindOf(err)
	if kind == apperr.Internal {
		logg.Error(module, "Error "+op+" (request_id="+chimw.GetReqID(r.Context())+")", err)
		response.Error(w, kind.HTTPStatus(), "Error "+op, apperr.PublicMessage(err))
		return
	}
	msg := apperr.PublicMessage(err)
	response.Error(w, kind.HTTPStatus(), msg, msg)
}

func (s *Server) pingHandler(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, http.StatusOK, "pong", "pong")
}

// createUserHandler registers a user.
// Expects JSON body: {"username": "example", "email": "e@example.com"}
// Answers 201 for a new user and 200 when the username is already taken.
func (s *Server) createUserHandler(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Username string `json:"username"`
		Email    string `json:"email"`
	}
	if !decodeBody(w, r, "http/users", &body) {
		return
	}

	u, created, err := s.svc.CreateUser(r.Context(), body.Username, body.Email)
	if err != nil {
		writeError(w, r, "http/users", "creating user", err)
		return
	}
	if !created {
		logg.Info("http/users", "User already exists, returning existing user_id="+u.ID)
		response.JSON(w, http.StatusOK, "User already exists", u)
		return
	}

	logg.Info("http/users", "User created successfully with user_id="+u.ID)
	response.JSON(w, http.StatusCreated, "User created successfully", u)
}

func (s *Server) listUsersHandler(w http.ResponseWriter, r *http.Request) {
	users, err := s.svc.ListUsers(r.Context())
	if err != nil {
		writeError(w, r, "http/users", "retrieving users", err)
		return
	}
	response.JSON(w, http.StatusOK, "Users retrieved successfully", users)
}

func (s *Server) getUserHandler(w http.ResponseWriter, r *http.Request) {
	profile, err := s.svc.GetUser(r.Context(), chi.URLParam(r, "user_id"))
	if err != nil {
		writeError(w, r, "http/users", "retrieving user", err)
		return
	}
	response.JSON(w, http.StatusOK, "User retrieved successfully", profile)
}

// createTweetHandler stores a tweet.
// Expects JSON body: {"author_id": "<uuid>", "text": "..."}; "user_id" is
// accepted in place of "author_id".
func (s *Server) createTweetHandler(w http.ResponseWriter, r *http.Request) {
	var body struct {
		AuthorID string `json:"author_id"`
		UserID   string `json:"user_id"`
		Text     string `json:"text"`
	}
	if !decodeBody(w, r, "http/tweets", &body) {
		return
	}
	authorID := body.AuthorID
	if authorID == "" {
		authorID = body.UserID
	}

	tweet, err := s.svc.CreateTweet(r.Context(), authorID, body.Text)
	if err != nil {
		writeError(w, r, "http/tweets", "creating tweet", err)
		return
	}

	logg.Info("http/tweets", "Tweet created successfully by user_id="+authorID)
	response.JSON(w, http.StatusCreated, "Tweet created successfully", tweet)
}

func (s *Server) listTweetsHandler(w http.ResponseWriter, r *http.Request) {
	tweets, err := s.svc.ListTweets(r.Context())
	if err != nil {
		writeError(w, r, "http/tweets", "retrieving tweets", err)
		return
	}
	response.JSON(w, http.StatusOK, "Tweets retrieved successfully", tweets)
}

// followHandler makes the body's follower follow the user in the path.
// Expects JSON body: {"follower_id": "<uuid>"}; "current_user_id" is
// accepted in place of "follower_id".
func (s *Server) followHandler(w http.ResponseWriter, r *http.Request) {
	var body struct {
		FollowerID    string `json:"follower_id"`
		CurrentUserID string `json:"current_user_id"`
	}
	if !decodeBody(w, r, "http/follow", &body) {
		return
	}
	followerID := body.FollowerID
	if followerID == "" {
		followerID = body.CurrentUserID
	}
	targetID := chi.URLParam(r, "user_id")

	if err := s.svc.Follow(r.Context(), targetID, followerID); err != nil {
		writeError(w, r, "http/follow", "following user", err)
		return
	}

	if id, err := ident.Normalize("user_id", targetID); err == nil {
		targetID = id
	}
	logg.Info("http/follow", "User "+followerID+" followed "+targetID)
	response.JSON(w, http.StatusOK, "User followed successfully", map[string]string{"user_id": targetID})
}

// timelineHandler returns the tweets of everyone the user follows, newest first.
func (s *Server) timelineHandler(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "user_id")

	tweets, err := s.svc.GetTimeline(r.Context(), userID)
	if err != nil {
		writeError(w, r, "http/timeline", "retrieving timeline", err)
		return
	}

	logg.Debug("http/timeline", "Timeline retrieved for user_id="+userID+" with "+strconv.Itoa(len(tweets))+" tweets")
	response.JSON(w, http.StatusOK, "Timeline retrieved successfully", tweets)
}
