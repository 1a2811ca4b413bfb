package controllers_test

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yeremiapane/restaurant-reservations/controllers"
	"github.com/yeremiapane/restaurant-reservations/middlewares"
	"github.com/yeremiapane/restaurant-reservations/models"
	"github.com/yeremiapane/restaurant-reservations/realtime"
	"github.com/yeremiapane/restaurant-reservations/services"
	"github.com/yeremiapane/restaurant-reservations/storage"
	"github.com/yeremiapane/restaurant-reservations/testutil"
	"gorm.io/datatypes"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// as stands in for AuthMiddleware.
func as(userID uint, role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middlewares.ContextUserID, userID)
		c.Set(middlewares.ContextRole, role)
		c.Next()
	}
}

func TestMenuImageUpload(t *testing.T) {
	db := testutil.NewDB(t)
	dir := t.TempDir()
	store, err := storage.NewLocalStore(dir, "/uploads")
	require.NoError(t, err)

	restaurant := models.Restaurant{Name: "La Cocina", Location: "Centro",
		OpeningTime: datatypes.NewTime(12, 0, 0, 0), ClosingTime: datatypes.NewTime(23, 0, 0, 0)}
	require.NoError(t, db.Create(&restaurant).Error)
	item := models.MenuItem{RestaurantID: restaurant.ID, Name: "Flan", Category: models.CategoryDessert, IsAvailable: true}
	require.NoError(t, db.Create(&item).Error)

	mc := controllers.NewMenuController(services.NewMenuService(db, store))
	r := gin.New()
	r.POST("/admin/menu/:item_id/image", as(1, models.RoleAdmin), mc.UploadImage)

	upload := func(path, contentType string, data []byte) *httptest.ResponseRecorder {
		var body bytes.Buffer
		mw := multipart.NewWriter(&body)
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="image"; filename="flan.png"`)
		h.Set("Content-Type", contentType)
		part, err := mw.CreatePart(h)
		require.NoError(t, err)
		_, err = part.Write(data)
		require.NoError(t, err)
		require.NoError(t, mw.Close())

		req := httptest.NewRequest(http.MethodPost, path, &body)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	w := upload("/admin/menu/1/image", "text/plain", []byte("hi"))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = upload("/admin/menu/999/image", "image/png", []byte("png"))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = upload("/admin/menu/1/image", "image/png", []byte("png-bytes"))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		Data models.MenuItem `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.True(t, strings.HasPrefix(resp.Data.ImageURL, "/uploads/menu/"))

	stored, err := os.ReadFile(filepath.Join(dir, strings.TrimPrefix(resp.Data.ImageURL, "/uploads/")))
	require.NoError(t, err)
	assert.Equal(t, []byte("png-bytes"), stored)

	req := httptest.NewRequest(http.MethodPost, "/admin/menu/1/image", nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code, "missing file")
}

func TestBadInputIsRejectedBeforeTheService(t *testing.T) {
	db := testutil.NewDB(t)
	now := func() time.Time { return time.Date(2023, 12, 31, 10, 0, 0, 0, time.UTC) }

	rc := controllers.NewReservationController(services.NewReservationService(db, nil, services.WithClock(now)))
	tc := controllers.NewTableController(services.NewRestaurantService(db, now))
	dc := controllers.NewDashboardController(services.NewDashboardService(db, now))

	r := gin.New()
	r.POST("/reservations", as(2, models.RoleClient), rc.CreateReservation)
	r.GET("/reservations/:id", as(2, models.RoleClient), rc.GetReservation)
	r.GET("/admin/reservations", as(1, models.RoleAdmin), rc.FilterReservations)
	r.GET("/restaurants/:id/tables", tc.ListTables)
	r.GET("/client/dashboard", as(2, models.RoleClient), dc.Occupancy)

	cases := []struct {
		name   string
		method string
		path   string
		body   string
		want   int
	}{
		{"non-numeric id", http.MethodGet, "/reservations/x", "", http.StatusBadRequest},
		{"zero id", http.MethodGet, "/reservations/0", "", http.StatusBadRequest},
		{"unknown reservation", http.MethodGet, "/reservations/42", "", http.StatusNotFound},
		{"malformed json", http.MethodPost, "/reservations", "{", http.StatusBadRequest},
		{"missing fields", http.MethodPost, "/reservations", `{"num_guests":2}`, http.StatusBadRequest},
		{"bad date", http.MethodGet, "/admin/reservations?date=2024-13-01", "", http.StatusBadRequest},
		{"bad restaurant id", http.MethodGet, "/admin/reservations?restaurant_id=-1", "", http.StatusBadRequest},
		{"empty filter", http.MethodGet, "/admin/reservations", "", http.StatusOK},
		{"bad min_capacity", http.MethodGet, "/restaurants/1/tables?min_capacity=big", "", http.StatusBadRequest},
		{"unknown restaurant", http.MethodGet, "/restaurants/1/tables", "", http.StatusNotFound},
		{"client on dashboard", http.MethodGet, "/client/dashboard", "", http.StatusForbidden},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(tc.method, tc.path, strings.NewReader(tc.body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, tc.want, w.Code, w.Body.String())
		})
	}
}

func TestFeedDeliversBroadcasts(t *testing.T) {
	hub := realtime.NewHub()
	fc := controllers.NewFeedController(hub, func(*http.Request) bool { return true })

	r := gin.New()
	r.GET("/admin/ws", as(1, models.RoleAdmin), fc.HandleWebSocket)
	srv := httptest.NewServer(r)
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/admin/ws", nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 10*time.Millisecond)

	sent, err := hub.Broadcast(realtime.Message{Event: "reservation.created", Data: map[string]int{"id": 7}})
	require.NoError(t, err)
	assert.Equal(t, 1, sent)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg realtime.Message
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "reservation.created", msg.Event)
}
