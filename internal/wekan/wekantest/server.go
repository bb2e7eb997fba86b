// Package wekantest provides an in-memory fake of the Wekan REST API
// for tests.
package wekantest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
)

// Credentials accepted by the fake.
const (
	Username = "admin"
	Password = "admin123"
	Token    = "test-token"
	UserID   = "test-user"
)

// Board is a provisioned board with its children.
type Board struct {
	ID        string
	Title     string
	Lists     []List
	Swimlanes []Swimlane
	Cards     []Card
	Comments  []Comment
}

type List struct {
	ID    string
	Title string
}

type Swimlane struct {
	ID    string
	Title string
}

type Card struct {
	ID          string
	Title       string
	Description string
	ListID      string
	SwimlaneID  string
	AuthorID    string
}

type Comment struct {
	CardID   string
	Text     string
	AuthorID string
}

// Server fakes the subset of the Wekan API the client uses. All state
// is in memory and guarded by one mutex.
type Server struct {
	*httptest.Server

	mu     sync.Mutex
	seq    int
	boards map[string]*Board
	order  []string

	// LoginCalls counts authentications, so tests can assert on
	// refresh behavior.
	LoginCalls int

	// FailLists makes list creation fail for the given titles, to
	// exercise best-effort provisioning.
	FailLists map[string]bool
}

// New starts a fake Wekan server.
func New() *Server {
	s := &Server{boards: make(map[string]*Board)}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /users/login", s.handleLogin)
	mux.HandleFunc("POST /api/boards", s.handleCreateBoard)
	mux.HandleFunc("GET /api/boards/{board}/lists", s.handleGetLists)
	mux.HandleFunc("POST /api/boards/{board}/lists", s.handleCreateList)
	mux.HandleFunc("GET /api/boards/{board}/swimlanes", s.handleGetSwimlanes)
	mux.HandleFunc("POST /api/boards/{board}/lists/{list}/cards", s.handleCreateCard)
	mux.HandleFunc("PUT /api/boards/{board}/lists/{list}/cards/{card}", s.handleMoveCard)
	mux.HandleFunc("POST /api/boards/{board}/cards/{card}/comments", s.handleAddComment)

	s.Server = httptest.NewServer(mux)
	return s
}

func (s *Server) nextID(prefix string) string {
	s.seq++
	return fmt.Sprintf("%s-%d", prefix, s.seq)
}

func (s *Server) authorized(r *http.Request) bool {
	return r.Header.Get("Authorization") == "Bearer "+Token
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.LoginCalls++
	s.mu.Unlock()

	r.ParseForm()
	if r.PostForm.Get("username") != Username || r.PostForm.Get("password") != Password {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"token":        Token,
		"id":           UserID,
		"tokenExpires": "2099-01-01T00:00:00Z",
	})
}

func (s *Server) handleCreateBoard(w http.ResponseWriter, r *http.Request) {
	if !s.authorized(r) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
		return
	}

	var body struct {
		Title string `json:"title"`
	}
	json.NewDecoder(r.Body).Decode(&body)

	s.mu.Lock()
	defer s.mu.Unlock()
	board := &Board{
		ID:    s.nextID("board"),
		Title: body.Title,
		// Wekan creates a default swimlane with every board.
		Swimlanes: []Swimlane{{ID: s.nextID("swimlane"), Title: "Default"}},
	}
	s.boards[board.ID] = board
	s.order = append(s.order, board.ID)
	writeJSON(w, http.StatusOK, map[string]string{"_id": board.ID, "title": board.Title})
}

func (s *Server) handleCreateList(w http.ResponseWriter, r *http.Request) {
	if !s.authorized(r) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
		return
	}

	var body struct {
		Title string `json:"title"`
	}
	json.NewDecoder(r.Body).Decode(&body)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailLists[body.Title] {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "list creation failed"})
		return
	}
	board, ok := s.boards[r.PathValue("board")]
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "board not found"})
		return
	}
	list := List{ID: s.nextID("list"), Title: body.Title}
	board.Lists = append(board.Lists, list)
	writeJSON(w, http.StatusOK, map[string]string{"_id": list.ID, "title": list.Title})
}

func (s *Server) handleGetLists(w http.ResponseWriter, r *http.Request) {
	if !s.authorized(r) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	board, ok := s.boards[r.PathValue("board")]
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "board not found"})
		return
	}
	out := make([]map[string]string, 0, len(board.Lists))
	for _, l := range board.Lists {
		out = append(out, map[string]string{"_id": l.ID, "title": l.Title})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetSwimlanes(w http.ResponseWriter, r *http.Request) {
	if !s.authorized(r) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	board, ok := s.boards[r.PathValue("board")]
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "board not found"})
		return
	}
	out := make([]map[string]string, 0, len(board.Swimlanes))
	for _, sl := range board.Swimlanes {
		out = append(out, map[string]string{"_id": sl.ID, "title": sl.Title})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateCard(w http.ResponseWriter, r *http.Request) {
	if !s.authorized(r) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
		return
	}

	var body struct {
		Title       string `json:"title"`
		Description string `json:"description"`
		AuthorID    string `json:"authorId"`
		SwimlaneID  string `json:"swimlaneId"`
	}
	json.NewDecoder(r.Body).Decode(&body)

	s.mu.Lock()
	defer s.mu.Unlock()
	board, ok := s.boards[r.PathValue("board")]
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "board not found"})
		return
	}
	if body.SwimlaneID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "swimlaneId required"})
		return
	}
	card := Card{
		ID:          s.nextID("card"),
		Title:       body.Title,
		Description: body.Description,
		ListID:      r.PathValue("list"),
		SwimlaneID:  body.SwimlaneID,
		AuthorID:    body.AuthorID,
	}
	board.Cards = append(board.Cards, card)
	writeJSON(w, http.StatusOK, map[string]string{"_id": card.ID, "title": card.Title})
}

func (s *Server) handleMoveCard(w http.ResponseWriter, r *http.Request) {
	if !s.authorized(r) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
		return
	}

	var body struct {
		ListID   string `json:"listId"`
		AuthorID string `json:"authorId"`
	}
	json.NewDecoder(r.Body).Decode(&body)

	s.mu.Lock()
	defer s.mu.Unlock()
	board, ok := s.boards[r.PathValue("board")]
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "board not found"})
		return
	}
	for i := range board.Cards {
		if board.Cards[i].ID == r.PathValue("card") {
			board.Cards[i].ListID = body.ListID
			board.Cards[i].AuthorID = body.AuthorID
			writeJSON(w, http.StatusOK, map[string]string{"_id": board.Cards[i].ID})
			return
		}
	}
	writeJSON(w, http.StatusNotFound, map[string]string{"error": "card not found"})
}

func (s *Server) handleAddComment(w http.ResponseWriter, r *http.Request) {
	if !s.authorized(r) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
		return
	}

	var body struct {
		Comment  string `json:"comment"`
		AuthorID string `json:"authorId"`
	}
	json.NewDecoder(r.Body).Decode(&body)

	s.mu.Lock()
	defer s.mu.Unlock()
	board, ok := s.boards[r.PathValue("board")]
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "board not found"})
		return
	}
	board.Comments = append(board.Comments, Comment{
		CardID:   r.PathValue("card"),
		Text:     body.Comment,
		AuthorID: body.AuthorID,
	})
	writeJSON(w, http.StatusOK, map[string]string{"_id": s.nextID("comment")})
}

// Boards returns a snapshot of all boards in creation order.
func (s *Server) Boards() []Board {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Board, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, *s.boards[id])
	}
	return out
}

// Board returns a snapshot of one board.
func (s *Server) Board(id string) (Board, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.boards[id]
	if !ok {
		return Board{}, false
	}
	return *b, true
}

// CardsInList returns the cards of a board whose list has the given
// title.
func (s *Server) CardsInList(boardID, listTitle string) []Card {
	s.mu.Lock()
	defer s.mu.Unlock()
	board, ok := s.boards[boardID]
	if !ok {
		return nil
	}
	listID := ""
	for _, l := range board.Lists {
		if l.Title == listTitle {
			listID = l.ID
			break
		}
	}
	var out []Card
	for _, c := range board.Cards {
		if c.ListID == listID {
			out = append(out, c)
		}
	}
	return out
}
