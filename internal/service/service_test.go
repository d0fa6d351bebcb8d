package service

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"connectrpc.com/connect"

	"github.com/mmynk/splitbill/internal/auth"
	"github.com/mmynk/splitbill/internal/middleware"
	"github.com/mmynk/splitbill/internal/storage/sqlite"
	"github.com/mmynk/splitbill/pkg/api/apiconnect"
)

const testUserID = "user-alice"

var discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

// testAuthInterceptor returns a Connect interceptor that sets a test user in the context.
// Requests carrying "X-Test-User" act as that user instead; "anonymous" clears it.
func testAuthInterceptor() connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			userID := testUserID
			if override := req.Header().Get("X-Test-User"); override != "" {
				userID = override
			}
			if userID != "anonymous" {
				ctx = middleware.WithSession(ctx, &auth.Session{UserID: userID})
			}
			return next(ctx, req)
		}
	}
}

// newTestStore creates a SQLite store in a temp file removed at cleanup.
func newTestStore(t *testing.T) *sqlite.SQLiteStore {
	t.Helper()

	tmpFile, err := os.CreateTemp("", "test-*.db")
	if err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}
	tmpFile.Close()

	store, err := sqlite.New(tmpFile.Name())
	if err != nil {
		os.Remove(tmpFile.Name())
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
		os.Remove(tmpFile.Name())
	})
	return store
}

// setupBillServer starts a BillService behind the test auth interceptor.
func setupBillServer(t *testing.T) *apiconnect.BillServiceClient {
	t.Helper()
	store := newTestStore(t)

	path, handler := apiconnect.NewBillServiceHandler(
		NewBillService(store),
		connect.WithInterceptors(testAuthInterceptor()),
	)
	mux := http.NewServeMux()
	mux.Handle(path, handler)

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	return apiconnect.NewBillServiceClient(http.DefaultClient, server.URL)
}

// setupAuthServer starts the auth and bill services behind the real JWT interceptor.
func setupAuthServer(t *testing.T) (*apiconnect.AuthServiceClient, *apiconnect.BillServiceClient) {
	t.Helper()
	store := newTestStore(t)
	jwtManager := auth.NewJWTManager("test-secret", time.Hour)

	interceptors := connect.WithInterceptors(
		middleware.LoggingInterceptor(discardLogger),
		middleware.RequireAuth(jwtManager, apiconnect.PublicProcedures...),
	)

	authSvc := NewAuthService(auth.NewPasswordAuthenticator(store), store, jwtManager, discardLogger)
	authPath, authHandler := apiconnect.NewAuthServiceHandler(authSvc, interceptors)
	billPath, billHandler := apiconnect.NewBillServiceHandler(NewBillService(store), interceptors)

	mux := http.NewServeMux()
	mux.Handle(authPath, authHandler)
	mux.Handle(billPath, billHandler)

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	return apiconnect.NewAuthServiceClient(http.DefaultClient, server.URL),
		apiconnect.NewBillServiceClient(http.DefaultClient, server.URL)
}
