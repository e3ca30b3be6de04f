package library

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/readlevel/backend/internal/apperr"
	"github.com/readlevel/backend/internal/middleware"
	"github.com/readlevel/backend/internal/models"
	"go.uber.org/zap"
)

type memRepo struct {
	users     map[int64]*models.User
	books     map[int64]*models.Book
	interests map[int64]models.GenreInterestMap
	nextBook  int64
}

func newMemRepo() *memRepo {
	return &memRepo{
		users: map[int64]*models.User{
			1: {ID: 1, Role: models.RoleStudent},
			2: {ID: 2, Role: models.RoleStudent},
			9: {ID: 9, Role: models.RoleAdmin},
		},
		books:     map[int64]*models.Book{},
		interests: map[int64]models.GenreInterestMap{},
	}
}

func (m *memRepo) GetUser(_ context.Context, id int64) (*models.User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, apperr.NotFound("user %d not found", id)
	}
	return u, nil
}

func (m *memRepo) CreateBook(_ context.Context, b *models.Book) error {
	m.nextBook++
	b.ID = m.nextBook
	cp := *b
	m.books[b.ID] = &cp
	return nil
}

func (m *memRepo) GetBook(_ context.Context, id int64) (*models.Book, error) {
	b, ok := m.books[id]
	if !ok {
		return nil, apperr.NotFound("book %d not found", id)
	}
	return b, nil
}

func (m *memRepo) ListBooks(context.Context) ([]models.Book, error) {
	var out []models.Book
	for i := int64(1); i <= m.nextBook; i++ {
		if b, ok := m.books[i]; ok {
			out = append(out, *b)
		}
	}
	return out, nil
}

func (m *memRepo) GetGenreInterests(_ context.Context, id int64) (models.GenreInterestMap, error) {
	if in, ok := m.interests[id]; ok {
		return in, nil
	}
	return models.GenreInterestMap{}, nil
}

func (m *memRepo) ReplaceGenreInterests(_ context.Context, id int64, in models.GenreInterestMap) error {
	m.interests[id] = in
	return nil
}

var (
	student = models.Principal{UserID: 1, Role: models.RoleStudent}
	admin   = models.Principal{UserID: 9, Role: models.RoleAdmin}
)

func TestCreateBook(t *testing.T) {
	svc := NewService(newMemRepo(), zap.NewNop())

	book, err := svc.CreateBook(context.Background(), models.CreateBookRequest{
		Title:            "  Charlotte's Web ",
		AmazonPopularity: 4.5,
		LexileMeasure:    680,
		Genres:           []string{"Fantasy", " classics", "fantasy", ""},
	})
	if err != nil {
		t.Fatalf("CreateBook() error = %v", err)
	}
	if book.Title != "Charlotte's Web" {
		t.Errorf("Title = %q", book.Title)
	}
	if want := []string{"classics", "fantasy"}; !reflect.DeepEqual(book.Genres, want) {
		t.Errorf("Genres = %v, want %v", book.Genres, want)
	}

	tests := []struct {
		name string
		req  models.CreateBookRequest
	}{
		{"no title", models.CreateBookRequest{AmazonPopularity: 3}},
		{"popularity above 5", models.CreateBookRequest{Title: "x", AmazonPopularity: 5.5}},
		{"negative popularity", models.CreateBookRequest{Title: "x", AmazonPopularity: -1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateBook(context.Background(), tt.req)
			if apperr.KindOf(err) != apperr.KindInvalidInput {
				t.Errorf("error = %v, want invalid input", err)
			}
		})
	}
}

func TestSetGenreInterests(t *testing.T) {
	repo := newMemRepo()
	svc := NewService(repo, zap.NewNop())
	ctx := context.Background()

	got, err := svc.SetGenreInterests(ctx, student, 1, models.GenreInterestMap{" Mystery ": 4, "history": 1})
	if err != nil {
		t.Fatalf("SetGenreInterests() error = %v", err)
	}
	if want := (models.GenreInterestMap{"mystery": 4, "history": 1}); !reflect.DeepEqual(got, want) {
		t.Errorf("stored %v, want %v", got, want)
	}

	tests := []struct {
		name      string
		actor     models.Principal
		studentID int64
		in        models.GenreInterestMap
		wantKind  apperr.Kind
	}{
		{"level too high", student, 1, models.GenreInterestMap{"mystery": 5}, apperr.KindInvalidInput},
		{"level zero", student, 1, models.GenreInterestMap{"mystery": 0}, apperr.KindInvalidInput},
		{"blank genre", student, 1, models.GenreInterestMap{" ": 2}, apperr.KindInvalidInput},
		{"other student", student, 2, models.GenreInterestMap{"mystery": 2}, apperr.KindPolicyViolation},
		{"admin target is not a student", admin, 9, models.GenreInterestMap{"mystery": 2}, apperr.KindNotFound},
		{"missing student", admin, 404, models.GenreInterestMap{"mystery": 2}, apperr.KindNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.SetGenreInterests(ctx, tt.actor, tt.studentID, tt.in)
			if apperr.KindOf(err) != tt.wantKind {
				t.Errorf("error = %v, want kind %v", err, tt.wantKind)
			}
		})
	}

	if _, err := svc.SetGenreInterests(ctx, admin, 2, models.GenreInterestMap{"poetry": 3}); err != nil {
		t.Errorf("admin acting for student: %v", err)
	}
}

func TestHandler_GetBook(t *testing.T) {
	repo := newMemRepo()
	svc := NewService(repo, zap.NewNop())
	if _, err := svc.CreateBook(context.Background(), models.CreateBookRequest{Title: "Holes", AmazonPopularity: 4}); err != nil {
		t.Fatal(err)
	}
	h := NewHandler(svc, zap.NewNop())

	r := mux.NewRouter()
	r.HandleFunc("/books/{id}", h.GetBook).Methods("GET")

	tests := []struct {
		path string
		want int
	}{
		{"/books/1", http.StatusOK},
		{"/books/2", http.StatusNotFound},
		{"/books/abc", http.StatusBadRequest},
	}
	for _, tt := range tests {
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, tt.path, nil))
		if rr.Code != tt.want {
			t.Errorf("GET %s = %d, want %d", tt.path, rr.Code, tt.want)
		}
	}
}

func TestHandler_PutGenreInterests(t *testing.T) {
	h := NewHandler(NewService(newMemRepo(), zap.NewNop()), zap.NewNop())
	r := mux.NewRouter()
	r.HandleFunc("/students/{id}/genre-interests", h.PutGenreInterests).Methods("PUT")

	req := httptest.NewRequest(http.MethodPut, "/students/1/genre-interests", strings.NewReader(`{"fantasy":4}`))
	req = req.WithContext(middleware.WithPrincipal(req.Context(), student))
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rr.Code, rr.Body.String())
	}
	var got models.GenreInterestMap
	if err := json.NewDecoder(rr.Body).Decode(&got); err != nil {
		t.Fatal(err)
	}
	if got["fantasy"] != 4 {
		t.Errorf("response = %v", got)
	}

	req = httptest.NewRequest(http.MethodPut, "/students/2/genre-interests", strings.NewReader(`{"fantasy":4}`))
	req = req.WithContext(middleware.WithPrincipal(req.Context(), student))
	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	if rr.Code != http.StatusForbidden {
		t.Errorf("cross-student status = %d, want 403", rr.Code)
	}
}
