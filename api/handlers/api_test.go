package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/cleancity/waste-collection-api/api"
	"github.com/cleancity/waste-collection-api/config"
	"github.com/cleancity/waste-collection-api/databases/mocks"
	"github.com/cleancity/waste-collection-api/models"
)

var a App

func testConfig() config.Config {
	return config.Config{
		JWTSecret:      "api-test-secret",
		AllowedOrigins: []string{"http://localhost:3000"},
	}
}

func executeRequest(req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	a.Router.ServeHTTP(rr, req)
	return rr
}

func checkResponseCode(t *testing.T, expected, actual int) {
	if expected != actual {
		t.Errorf("Expected response code %d. Got %d\n", expected, actual)
	}
}

func bearerFor(t *testing.T, role models.Role) string {
	t.Helper()
	token, err := api.NewCredential(primitive.NewObjectID().Hex(), role, []byte(a.Config.JWTSecret))
	if err != nil {
		t.Fatalf("failed to issue test credential: %v", err)
	}
	return "Bearer " + token
}

func TestUnknownRoute(t *testing.T) {
	a.Config = testConfig()
	a.Router = a.New()
	req, _ := http.NewRequest("GET", "/asdf", nil)
	response := executeRequest(req)

	checkResponseCode(t, http.StatusNotFound, response.Code)
}

func TestHealthCheckRoute(t *testing.T) {
	a.Config = testConfig()
	a.Router = a.New()
	req, _ := http.NewRequest("GET", "/health", nil)
	response := executeRequest(req)

	checkResponseCode(t, http.StatusOK, response.Code)

	if !strings.Contains(response.Body.String(), "alive") {
		t.Errorf("Expected 'alive' in the response. Got '%s'", response.Body.String())
	}
}

func TestApp_RoutesUnauthorized(t *testing.T) {
	a.Config = testConfig()
	a.Router = a.New()
	req, _ := http.NewRequest("GET", "/api/routes", nil)
	response := executeRequest(req)

	checkResponseCode(t, http.StatusUnauthorized, response.Code)
}

func TestApp_RoutesInvalidToken(t *testing.T) {
	a.Config = testConfig()
	a.Router = a.New()
	req, _ := http.NewRequest("GET", "/api/routes", nil)
	req.Header.Add("Authorization", "Bearer asdfasdf")
	response := executeRequest(req)

	checkResponseCode(t, http.StatusUnauthorized, response.Code)
}

func TestApp_UserListForbiddenForCitizen(t *testing.T) {
	a.Config = testConfig()
	a.Router = a.New()
	req, _ := http.NewRequest("GET", "/api/users", nil)
	req.Header.Add("Authorization", bearerFor(t, models.RoleCitizen))
	response := executeRequest(req)

	checkResponseCode(t, http.StatusForbidden, response.Code)

	if !strings.Contains(response.Body.String(), "Access denied. Required role(s): admin") {
		t.Errorf("Expected access denied message. Got '%s'", response.Body.String())
	}
}

func TestApp_BinCreateForbiddenForDriver(t *testing.T) {
	a.Config = testConfig()
	a.Router = a.New()
	req, _ := http.NewRequest("POST", "/api/bins", strings.NewReader(`{}`))
	req.Header.Add("Authorization", bearerFor(t, models.RoleDriver))
	response := executeRequest(req)

	checkResponseCode(t, http.StatusForbidden, response.Code)
}

func TestApp_NearbyMissingCoordinates(t *testing.T) {
	a.Config = testConfig()
	a.Router = a.New()
	req, _ := http.NewRequest("GET", "/api/bins/nearby", nil)
	response := executeRequest(req)

	checkResponseCode(t, http.StatusBadRequest, response.Code)
}

func TestApp_BinListThroughRouter(t *testing.T) {
	db := &mocks.DatabaseHelper{}
	conn := &mocks.CollectionHelper{}
	cursor := &mocks.CursorHelper{}

	cursor.On("Decode", mock.Anything).Return(nil).Run(func(args mock.Arguments) {
		arg := args.Get(0).(*[]models.Bin)
		*arg = []models.Bin{{
			ID:     primitive.NewObjectID(),
			Zone:   "north",
			Status: models.BinStatusEmpty,
			Type:   models.BinTypeGeneral,
		}}
	})
	conn.On("Find", mock.Anything, mock.Anything, mock.Anything).Return(cursor, nil)
	db.On("Collection", "bins").Return(conn)

	a.Config = testConfig()
	a.dbHelper = db
	a.Router = a.New()

	req, _ := http.NewRequest("GET", "/api/bins?limit=10", nil)
	response := executeRequest(req)

	checkResponseCode(t, http.StatusOK, response.Code)

	if !strings.Contains(response.Body.String(), `"zone":"north"`) {
		t.Errorf("Expected bin zone in the response. Got '%s'", response.Body.String())
	}
}

func TestApp_LiveRequiresToken(t *testing.T) {
	a.Config = testConfig()
	a.Router = a.New()
	req, _ := http.NewRequest("GET", "/api/live", nil)
	response := executeRequest(req)

	checkResponseCode(t, http.StatusUnauthorized, response.Code)
}
