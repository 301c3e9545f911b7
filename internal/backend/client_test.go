package backend_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Rrens/greenbite/internal/backend"
	"github.com/Rrens/greenbite/internal/domain"
	"github.com/Rrens/greenbite/internal/listingform"
	"github.com/Rrens/greenbite/internal/marketplace"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newServer(t *testing.T, h http.HandlerFunc) *backend.Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return backend.NewClient(srv.URL+"/", time.Second)
}

func TestLogin(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/auth/login/", r.URL.Path)

		var creds domain.UserLogin
		require.NoError(t, json.NewDecoder(r.Body).Decode(&creds))
		assert.Equal(t, "sara@example.com", creds.Email)

		w.Write([]byte(`{"access":"a.b.c","refresh":"r.s.t"}`))
	})

	pair, err := c.Login(context.Background(), domain.UserLogin{Email: "sara@example.com", Password: "secret"})
	require.NoError(t, err)
	assert.Equal(t, "a.b.c", pair.AccessToken)
	assert.Equal(t, "r.s.t", pair.RefreshToken)
}

func TestListListings_Paginated(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "cookie", r.URL.Query().Get("search"))
		assert.Equal(t, "100", r.URL.Query().Get("min_price"))
		assert.Empty(t, r.URL.Query().Get("max_price"))

		w.Write([]byte(`{"count":1,"results":[{"id":1,"title":"Cookies","price":"150.00","status":"Active","quantity":2}]}`))
	})

	lower := decimal.NewFromInt(100)
	page, err := c.ListListings(context.Background(), domain.FilterCriteria{Search: "cookie", MinPrice: &lower})
	require.NoError(t, err)

	require.Len(t, page.Results, 1)
	l := page.Results[0]
	assert.Equal(t, domain.ID("1"), l.ID)
	assert.Equal(t, domain.StatusActive, l.Status)
	assert.True(t, l.Price.Equal(decimal.NewFromInt(150)))
	assert.Equal(t, 1, page.Count)
}

func TestListListings_BareArray(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"id":"a","title":"Jam","price":120,"status":"ACTIVE"},{"id":"b","title":"Veg","price":80,"status":"expired"}]`))
	})

	page, err := c.ListListings(context.Background(), domain.FilterCriteria{})
	require.NoError(t, err)
	assert.Equal(t, 2, page.Count)
	assert.Equal(t, domain.StatusExpired, page.Results[1].Status)
}

func TestBearerToken(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		w.Write([]byte(`{"id":3,"title":"Homemade Jam","price":"120"}`))
	})

	plain := c
	authed := c.WithToken("tok")

	l, err := authed.GetListing(context.Background(), "3")
	require.NoError(t, err)
	assert.Equal(t, "Homemade Jam", l.Title)
	assert.NotSame(t, plain, authed)
}

func TestCreateListing_Multipart(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, r.ParseMultipartForm(1<<20))

		assert.Equal(t, "Homemade Jam", r.FormValue("title"))
		assert.Equal(t, "120.5", r.FormValue("price"))
		assert.Equal(t, "EGP", r.FormValue("currency"))
		assert.Equal(t, "3", r.FormValue("quantity"))
		_, hasDesc := r.MultipartForm.Value["description"]
		assert.False(t, hasDesc)

		file, header, err := r.FormFile("featured_image")
		require.NoError(t, err)
		defer file.Close()
		data, _ := io.ReadAll(file)
		assert.Equal(t, "jam.png", header.Filename)
		assert.Equal(t, []byte("png"), data)

		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"id":9,"title":"Homemade Jam","price":"120.50"}`))
	})

	l, err := c.CreateListing(context.Background(), &listingform.Payload{
		Title:          "Homemade Jam",
		Price:          decimal.RequireFromString("120.5"),
		Currency:       "EGP",
		Quantity:       3,
		Unit:           "jar",
		AvailableUntil: "2026-02-01",
		Image:          &listingform.Image{Filename: "jam.png", Data: []byte("png")},
	})
	require.NoError(t, err)
	assert.Equal(t, domain.ID("9"), l.ID)
}

func TestUpdateListing_WithoutImage(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "/api/community/market/9/", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Empty(t, r.MultipartForm.File)
		assert.Equal(t, "fresh", r.FormValue("description"))
		w.Write([]byte(`{"id":9}`))
	})

	desc := "fresh"
	_, err := c.UpdateListing(context.Background(), "9", &listingform.Payload{
		Title: "Jam", Description: &desc, Price: decimal.NewFromInt(1), Currency: "EGP", Quantity: 1, Unit: "jar", AvailableUntil: "2026-02-01",
	})
	assert.NoError(t, err)
}

func TestDeleteListing_NoContent(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		w.WriteHeader(http.StatusNoContent)
	})
	assert.NoError(t, c.DeleteListing(context.Background(), "9"))
}

func TestCreateOrder(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/community/market/orders/", r.URL.Path)
		var order map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&order))
		assert.Equal(t, "COD", order["payment_method"])
		assert.Equal(t, float64(3), order["market_id"])

		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"order_id":41,"status":"PENDING","created_at":"2026-01-10T09:00:00Z"}`))
	})

	receipt, err := c.CreateOrder(context.Background(), domain.OrderCreate{MarketID: 3, Quantity: 1, PaymentMethod: "COD"})
	require.NoError(t, err)
	assert.Equal(t, domain.ID("41"), receipt.OrderID)
	assert.Equal(t, "PENDING", receipt.Status)
}

func TestReviewAndReport(t *testing.T) {
	var paths []string
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{}`))
	})

	ctx := context.Background()
	require.NoError(t, c.SubmitReview(ctx, "3", domain.ReviewCreate{Rating: 5}))
	require.NoError(t, c.SubmitReport(ctx, domain.ReportCreate{TargetType: domain.ReportTargetMarket, TargetID: "3", Reason: "spam"}))
	assert.Equal(t, []string{"/api/community/market/3/reviews/", "/api/community/reports/"}, paths)
}

func TestErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		display string
		fields  bool
	}{
		{"detail", http.StatusUnauthorized, `{"detail":"Given token not valid for any token type"}`, "Given token not valid for any token type", false},
		{"message", http.StatusInternalServerError, `{"message":"database unavailable"}`, "database unavailable", false},
		{"non field errors", http.StatusBadRequest, `{"non_field_errors":["You have already reported this target."]}`, "You have already reported this target.", false},
		{"message over error", http.StatusBadRequest, `{"error":"bad_request","message":"price must be positive"}`, "price must be positive", false},
		{"non field errors first", http.StatusBadRequest, `{"message":"m","error":"e","non_field_errors":["Listing is closed."]}`, "Listing is closed.", false},
		{"field errors", http.StatusBadRequest, `{"quantity":["Not enough stock."],"city":["This field is required."]}`, "city: This field is required.; quantity: Not enough stock.", true},
		{"html body", http.StatusBadGateway, `<html>bad gateway</html>`, "Bad Gateway", false},
		{"plain text", http.StatusServiceUnavailable, `maintenance`, "maintenance", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			})

			_, err := c.GetListing(context.Background(), "1")
			var apiErr *domain.APIError
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, tt.status, apiErr.StatusCode)
			assert.Equal(t, tt.display, marketplace.ErrorMessage(err))
			assert.Equal(t, tt.fields, len(apiErr.Fields) > 0)
		})
	}
}

func TestTransportError(t *testing.T) {
	c := backend.NewClient("http://127.0.0.1:1", 200*time.Millisecond)
	_, err := c.ListListings(context.Background(), domain.FilterCriteria{})
	require.Error(t, err)
	assert.Contains(t, marketplace.ErrorMessage(err), "request failed")
}
