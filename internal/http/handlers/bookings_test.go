package handlers_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/baybe/cleanbook/internal/auth"
	"github.com/baybe/cleanbook/internal/domain/booking"
	"github.com/baybe/cleanbook/internal/http/handlers"
	"github.com/baybe/cleanbook/internal/http/middlewares"
)

// memBookings mirrors the bookings repo: owner-scoped status updates,
// newest-first listing.
type memBookings struct {
	mu   sync.Mutex
	byID map[string]booking.Booking
}

func newMemBookings() *memBookings {
	return &memBookings{byID: make(map[string]booking.Booking)}
}

func (s *memBookings) Create(ctx context.Context, userID string, req booking.CreateBookingRequest) (booking.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b := booking.Booking{
		ID:            uuid.NewString(),
		UserID:        userID,
		FirstName:     req.FirstName,
		LastName:      req.LastName,
		Email:         req.Email,
		Phone:         req.Phone,
		Bedrooms:      req.Bedrooms,
		Bathrooms:     req.Bathrooms,
		ServiceType:   req.ServiceType,
		Frequency:     req.Frequency,
		Price:         req.Price,
		Status:        booking.StatusPending,
		ScheduledDate: req.ScheduledDate,
		CreatedAt:     time.Now().UTC(),
	}

	s.byID[b.ID] = b

	return b, nil
}

func (s *memBookings) ListByUser(ctx context.Context, userID string) ([]booking.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []booking.Booking

	for _, b := range s.byID {
		if b.UserID == userID {
			out = append(out, b)
		}
	}

	return out, nil
}

func (s *memBookings) GetByID(ctx context.Context, id string) (booking.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.byID[id]
	if !ok {
		return booking.Booking{}, booking.ErrNotFound
	}

	return b, nil
}

func (s *memBookings) UpdateStatus(ctx context.Context, id, userID, status string) (booking.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.byID[id]
	if !ok || b.UserID != userID {
		return booking.Booking{}, booking.ErrNotFound
	}

	b.Status = status
	s.byID[id] = b

	return b, nil
}

type bookingFixture struct {
	router   *gin.Engine
	users    *memUsers
	bookings *memBookings
	jwt      *auth.Manager
}

func setupBookings(t *testing.T) *bookingFixture {
	t.Helper()

	cfg := testConfig()

	users := newMemUsers()
	bookings := newMemBookings()
	manager := auth.NewManager(cfg.JWTSecret, cfg.SessionTTL)
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	h := handlers.NewBookingsHandler(bookings, log)
	guard := middlewares.NewAuthMiddleware(manager, users)

	booking.RegisterValidations()

	r := gin.New()

	g := r.Group("/api/bookings", guard.RequireAuth())
	g.POST("", h.CreateBooking)
	g.GET("", h.ListBookings)
	g.GET("/:id", h.GetBooking)
	g.PUT("/:id/status", h.UpdateBookingStatus)
	g.DELETE("/:id", h.CancelBooking)

	return &bookingFixture{router: r, users: users, bookings: bookings, jwt: manager}
}

// addUser registers a user directly in the store and returns a session
// token for them.
func (fx *bookingFixture) addUser(t *testing.T, email string) (id, token string) {
	t.Helper()

	u, err := fx.users.Create(context.Background(), email, "irrelevant-hash")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}

	token, err = fx.jwt.GenerateSessionToken(u.ID)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}

	return u.ID, token
}

func validBookingBody(email string) string {
	return fmt.Sprintf(`{
		"firstName": "Ada",
		"lastName": "Lovelace",
		"email": %q,
		"bedrooms": 2,
		"bathrooms": 1,
		"serviceType": "standard",
		"frequency": "weekly",
		"price": 120.50
	}`, email)
}

func TestCreateBooking(t *testing.T) {
	tests := []struct {
		name       string
		body       func(ownEmail string) string
		wantStatus int
	}{
		{
			name:       "creates pending booking",
			body:       validBookingBody,
			wantStatus: http.StatusCreated,
		},
		{
			name: "email case differs but matches",
			body: func(ownEmail string) string {
				return validBookingBody(strings.ToUpper(ownEmail))
			},
			wantStatus: http.StatusCreated,
		},
		{
			name: "email of someone else",
			body: func(string) string {
				return validBookingBody("other@x.com")
			},
			wantStatus: http.StatusForbidden,
		},
		{
			name: "bedrooms out of range",
			body: func(ownEmail string) string {
				return strings.Replace(validBookingBody(ownEmail), `"bedrooms": 2`, `"bedrooms": 9`, 1)
			},
			wantStatus: http.StatusBadRequest,
		},
		{
			name: "unknown service type",
			body: func(ownEmail string) string {
				return strings.Replace(validBookingBody(ownEmail), `"standard"`, `"sparkle"`, 1)
			},
			wantStatus: http.StatusBadRequest,
		},
		{
			name: "malformed phone",
			body: func(ownEmail string) string {
				return strings.Replace(validBookingBody(ownEmail),
					`"bedrooms": 2`, `"phone": "call me maybe", "bedrooms": 2`, 1)
			},
			wantStatus: http.StatusBadRequest,
		},
		{
			name: "zero price",
			body: func(ownEmail string) string {
				return strings.Replace(validBookingBody(ownEmail), `"price": 120.50`, `"price": 0`, 1)
			},
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			fx := setupBookings(t)

			_, token := fx.addUser(t, "ada@x.com")

			rec := doJSON(fx.router, http.MethodPost, "/api/bookings", tc.body("ada@x.com"),
				"Authorization", "Bearer "+token)

			if rec.Code != tc.wantStatus {
				t.Fatalf("got status %d, want %d (body %s)", rec.Code, tc.wantStatus, rec.Body.String())
			}

			if tc.wantStatus == http.StatusCreated &&
				!strings.Contains(rec.Body.String(), `"status":"pending"`) {
				t.Errorf("new booking should start pending: %s", rec.Body.String())
			}
		})
	}
}

func TestCreateBookingRequiresAuth(t *testing.T) {
	fx := setupBookings(t)

	rec := doJSON(fx.router, http.MethodPost, "/api/bookings", validBookingBody("ada@x.com"))

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("got %d, want 401", rec.Code)
	}
}

func TestListBookingsScopedToCaller(t *testing.T) {
	fx := setupBookings(t)

	adaID, adaToken := fx.addUser(t, "ada@x.com")
	_, bobToken := fx.addUser(t, "bob@x.com")

	for range 3 {
		if _, err := fx.bookings.Create(context.Background(), adaID, booking.CreateBookingRequest{
			FirstName: "Ada", LastName: "Lovelace", Email: "ada@x.com",
			Bedrooms: 1, Bathrooms: 1, ServiceType: "standard", Frequency: "weekly", Price: 50,
		}); err != nil {
			t.Fatalf("seed booking: %v", err)
		}
	}

	adaList := doJSON(fx.router, http.MethodGet, "/api/bookings", "", "Authorization", "Bearer "+adaToken)
	if adaList.Code != http.StatusOK {
		t.Fatalf("ada list: got %d", adaList.Code)
	}

	if got := strings.Count(adaList.Body.String(), `"id"`); got != 3 {
		t.Errorf("ada sees %d bookings, want 3: %s", got, adaList.Body.String())
	}

	// bob sees none of ada's rows
	bobList := doJSON(fx.router, http.MethodGet, "/api/bookings", "", "Authorization", "Bearer "+bobToken)
	if bobList.Code != http.StatusOK {
		t.Fatalf("bob list: got %d", bobList.Code)
	}

	if strings.Contains(bobList.Body.String(), "ada@x.com") {
		t.Errorf("bob's list leaks ada's bookings: %s", bobList.Body.String())
	}
}

func TestGetBooking(t *testing.T) {
	fx := setupBookings(t)

	adaID, adaToken := fx.addUser(t, "ada@x.com")
	_, bobToken := fx.addUser(t, "bob@x.com")

	b, err := fx.bookings.Create(context.Background(), adaID, booking.CreateBookingRequest{
		FirstName: "Ada", LastName: "Lovelace", Email: "ada@x.com",
		Bedrooms: 1, Bathrooms: 1, ServiceType: "deep", Frequency: "one_time", Price: 200,
	})
	if err != nil {
		t.Fatalf("seed booking: %v", err)
	}

	tests := []struct {
		name       string
		id         string
		token      string
		wantStatus int
	}{
		{"owner reads own booking", b.ID, adaToken, http.StatusOK},
		{"stranger is refused", b.ID, bobToken, http.StatusForbidden},
		{"unknown id", uuid.NewString(), adaToken, http.StatusNotFound},
		{"malformed id", "not-a-uuid", adaToken, http.StatusNotFound},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := doJSON(fx.router, http.MethodGet, "/api/bookings/"+tc.id, "",
				"Authorization", "Bearer "+tc.token)

			if rec.Code != tc.wantStatus {
				t.Fatalf("got %d, want %d (body %s)", rec.Code, tc.wantStatus, rec.Body.String())
			}
		})
	}
}

func TestUpdateBookingStatus(t *testing.T) {
	fx := setupBookings(t)

	adaID, adaToken := fx.addUser(t, "ada@x.com")
	_, bobToken := fx.addUser(t, "bob@x.com")

	seed := func(t *testing.T) booking.Booking {
		t.Helper()

		b, err := fx.bookings.Create(context.Background(), adaID, booking.CreateBookingRequest{
			FirstName: "Ada", LastName: "Lovelace", Email: "ada@x.com",
			Bedrooms: 2, Bathrooms: 2, ServiceType: "standard", Frequency: "four_weeks", Price: 90,
		})
		if err != nil {
			t.Fatalf("seed booking: %v", err)
		}

		return b
	}

	t.Run("owner marks booking done", func(t *testing.T) {
		b := seed(t)

		rec := doJSON(fx.router, http.MethodPut, "/api/bookings/"+b.ID+"/status",
			`{"status":"done"}`, "Authorization", "Bearer "+adaToken)

		if rec.Code != http.StatusOK {
			t.Fatalf("got %d (body %s)", rec.Code, rec.Body.String())
		}

		stored, _ := fx.bookings.GetByID(context.Background(), b.ID)
		if stored.Status != booking.StatusDone {
			t.Errorf("stored status %q, want done", stored.Status)
		}
	})

	t.Run("unknown status is rejected", func(t *testing.T) {
		b := seed(t)

		rec := doJSON(fx.router, http.MethodPut, "/api/bookings/"+b.ID+"/status",
			`{"status":"exploded"}`, "Authorization", "Bearer "+adaToken)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("got %d, want 400", rec.Code)
		}
	})

	t.Run("missing status is rejected", func(t *testing.T) {
		b := seed(t)

		rec := doJSON(fx.router, http.MethodPut, "/api/bookings/"+b.ID+"/status",
			`{}`, "Authorization", "Bearer "+adaToken)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("got %d, want 400", rec.Code)
		}
	})

	t.Run("stranger cannot touch the booking", func(t *testing.T) {
		b := seed(t)

		rec := doJSON(fx.router, http.MethodPut, "/api/bookings/"+b.ID+"/status",
			`{"status":"done"}`, "Authorization", "Bearer "+bobToken)

		if rec.Code != http.StatusForbidden {
			t.Fatalf("got %d, want 403", rec.Code)
		}

		stored, _ := fx.bookings.GetByID(context.Background(), b.ID)
		if stored.Status != booking.StatusPending {
			t.Errorf("stranger changed the status to %q", stored.Status)
		}
	})
}

func TestCancelBooking(t *testing.T) {
	fx := setupBookings(t)

	adaID, adaToken := fx.addUser(t, "ada@x.com")
	_, bobToken := fx.addUser(t, "bob@x.com")

	b, err := fx.bookings.Create(context.Background(), adaID, booking.CreateBookingRequest{
		FirstName: "Ada", LastName: "Lovelace", Email: "ada@x.com",
		Bedrooms: 1, Bathrooms: 1, ServiceType: "post_construction", Frequency: "one_time", Price: 400,
	})
	if err != nil {
		t.Fatalf("seed booking: %v", err)
	}

	stranger := doJSON(fx.router, http.MethodDelete, "/api/bookings/"+b.ID, `{}`,
		"Authorization", "Bearer "+bobToken)
	if stranger.Code != http.StatusForbidden {
		t.Fatalf("stranger cancel: got %d, want 403", stranger.Code)
	}

	rec := doJSON(fx.router, http.MethodDelete, "/api/bookings/"+b.ID, `{}`,
		"Authorization", "Bearer "+adaToken)
	if rec.Code != http.StatusOK {
		t.Fatalf("owner cancel: got %d (body %s)", rec.Code, rec.Body.String())
	}

	// cancel keeps the row, only the status flips
	stored, err := fx.bookings.GetByID(context.Background(), b.ID)
	if err != nil {
		t.Fatalf("booking row vanished: %v", err)
	}

	if stored.Status != booking.StatusCancelled {
		t.Errorf("stored status %q, want cancelled", stored.Status)
	}
}
