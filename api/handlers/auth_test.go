package handlers_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/crypto/bcrypt"

	"github.com/cleancity/waste-collection-api/api/handlers"
	"github.com/cleancity/waste-collection-api/databases"
	"github.com/cleancity/waste-collection-api/databases/mocks"
	"github.com/cleancity/waste-collection-api/models"
)

var authTestSecret = []byte("handler-test-secret")

func newAuthHandler(db *mocks.DatabaseHelper) handlers.Auth {
	return handlers.Auth{DB: databases.NewUserDatabase(db), Secret: authTestSecret}
}

func TestAuth_RegisterDuplicateEmail(t *testing.T) {
	db := &mocks.DatabaseHelper{}
	conn := &mocks.CollectionHelper{}
	singleResult := &mocks.SingleResultHelper{}

	// Decode succeeding means a user with that email already exists
	singleResult.On("Decode", mock.Anything).Return(nil)
	conn.On("FindOne", mock.Anything, mock.Anything).Return(singleResult)
	db.On("Collection", "users").Return(conn)

	body := `{"username":"jo","email":"jo@example.com","password":"hunter22"}`
	req, _ := http.NewRequest("POST", "/api/auth/register", bytes.NewBufferString(body))
	rr := httptest.NewRecorder()

	newAuthHandler(db).RegisterHandler(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "User already exists") {
		t.Errorf("expected duplicate user message, got %q", rr.Body.String())
	}
}

func TestAuth_RegisterMissingFields(t *testing.T) {
	db := &mocks.DatabaseHelper{}

	body := `{"username":"jo","email":"","password":"hunter22"}`
	req, _ := http.NewRequest("POST", "/api/auth/register", bytes.NewBufferString(body))
	rr := httptest.NewRecorder()

	newAuthHandler(db).RegisterHandler(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rr.Code)
	}
}

func TestAuth_RegisterInvalidContactNumber(t *testing.T) {
	db := &mocks.DatabaseHelper{}

	body := `{"username":"jo","email":"jo@example.com","password":"hunter22","contactNumber":"12ab"}`
	req, _ := http.NewRequest("POST", "/api/auth/register", bytes.NewBufferString(body))
	rr := httptest.NewRecorder()

	newAuthHandler(db).RegisterHandler(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "contactNumber") {
		t.Errorf("expected contact number message, got %q", rr.Body.String())
	}
}

func TestAuth_RegisterInvalidRole(t *testing.T) {
	db := &mocks.DatabaseHelper{}

	body := `{"username":"jo","email":"jo@example.com","password":"hunter22","role":"superuser"}`
	req, _ := http.NewRequest("POST", "/api/auth/register", bytes.NewBufferString(body))
	rr := httptest.NewRecorder()

	newAuthHandler(db).RegisterHandler(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rr.Code)
	}
}

func TestAuth_RegisterSuccess(t *testing.T) {
	db := &mocks.DatabaseHelper{}
	conn := &mocks.CollectionHelper{}
	singleResult := &mocks.SingleResultHelper{}
	insertResult := &mocks.InsertOneResultHelper{}

	singleResult.On("Decode", mock.Anything).Return(mongo.ErrNoDocuments)
	conn.On("FindOne", mock.Anything, mock.Anything).Return(singleResult)
	insertResult.On("Decode").Return(nil)
	conn.On("InsertOne", mock.Anything, mock.Anything).Return(insertResult, nil)
	db.On("Collection", "users").Return(conn)

	body := `{"username":"jo","email":"Jo@Example.com","password":"hunter22","contactNumber":"5551234567"}`
	req, _ := http.NewRequest("POST", "/api/auth/register", bytes.NewBufferString(body))
	rr := httptest.NewRecorder()

	newAuthHandler(db).RegisterHandler(rr, req)

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
	}

	var resp struct {
		Token string      `json:"token"`
		User  models.User `json:"user"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("response is not valid json: %v", err)
	}
	if resp.Token == "" {
		t.Error("expected a signed token in the response")
	}
	if resp.User.Role != models.RoleCitizen {
		t.Errorf("expected default role citizen, got %q", resp.User.Role)
	}
	if resp.User.Email != "jo@example.com" {
		t.Errorf("expected normalized email, got %q", resp.User.Email)
	}
	if strings.Contains(rr.Body.String(), "hunter22") || strings.Contains(rr.Body.String(), "$2a$") {
		t.Error("password material must not appear in the response")
	}
}

func TestAuth_LoginUnknownEmail(t *testing.T) {
	db := &mocks.DatabaseHelper{}
	conn := &mocks.CollectionHelper{}
	singleResult := &mocks.SingleResultHelper{}

	singleResult.On("Decode", mock.Anything).Return(mongo.ErrNoDocuments)
	conn.On("FindOne", mock.Anything, mock.Anything).Return(singleResult)
	db.On("Collection", "users").Return(conn)

	body := `{"email":"nobody@example.com","password":"whatever"}`
	req, _ := http.NewRequest("POST", "/api/auth/login", bytes.NewBufferString(body))
	rr := httptest.NewRecorder()

	newAuthHandler(db).LoginHandler(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "Invalid credentials") {
		t.Errorf("expected invalid credentials message, got %q", rr.Body.String())
	}
}

func TestAuth_LoginWrongPassword(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("correct-horse"), bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}

	db := &mocks.DatabaseHelper{}
	conn := &mocks.CollectionHelper{}
	singleResult := &mocks.SingleResultHelper{}

	singleResult.On("Decode", mock.Anything).Return(nil).Run(func(args mock.Arguments) {
		arg := args.Get(0).(**models.User)
		(*arg).Email = "jo@example.com"
		(*arg).Password = string(hash)
		(*arg).Role = models.RoleCitizen
	})
	conn.On("FindOne", mock.Anything, mock.Anything).Return(singleResult)
	db.On("Collection", "users").Return(conn)

	body := `{"email":"jo@example.com","password":"battery-staple"}`
	req, _ := http.NewRequest("POST", "/api/auth/login", bytes.NewBufferString(body))
	rr := httptest.NewRecorder()

	newAuthHandler(db).LoginHandler(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "Invalid credentials") {
		t.Errorf("expected invalid credentials message, got %q", rr.Body.String())
	}
}

func TestAuth_LoginSuccess(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("correct-horse"), bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}

	db := &mocks.DatabaseHelper{}
	conn := &mocks.CollectionHelper{}
	singleResult := &mocks.SingleResultHelper{}

	singleResult.On("Decode", mock.Anything).Return(nil).Run(func(args mock.Arguments) {
		arg := args.Get(0).(**models.User)
		(*arg).Email = "jo@example.com"
		(*arg).Password = string(hash)
		(*arg).Role = models.RoleDriver
	})
	conn.On("FindOne", mock.Anything, mock.Anything).Return(singleResult)
	db.On("Collection", "users").Return(conn)

	body := `{"email":"jo@example.com","password":"correct-horse"}`
	req, _ := http.NewRequest("POST", "/api/auth/login", bytes.NewBufferString(body))
	rr := httptest.NewRecorder()

	newAuthHandler(db).LoginHandler(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var resp struct {
		Token string      `json:"token"`
		User  models.User `json:"user"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("response is not valid json: %v", err)
	}
	if resp.Token == "" {
		t.Error("expected a signed token in the response")
	}
	if resp.User.Role != models.RoleDriver {
		t.Errorf("expected driver role, got %q", resp.User.Role)
	}
}
