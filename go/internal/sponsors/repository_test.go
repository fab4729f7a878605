package sponsors

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingQuerier struct{}

func (failingQuerier) ListActiveCampaigns(context.Context) ([]Campaign, error) {
	return nil, errors.New("connection refused")
}

func TestActiveSponsors(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	repo := NewRepository(StaticQueries{Campaigns: []Campaign{
		{Slot: SlotTable, Name: "First", Logo: "/a.svg", URL: "https://a.example", Callout: "hi", CreatedAt: now},
		{Slot: SlotTable, Name: "Second", CreatedAt: now.Add(time.Hour)},
		{Slot: SlotFood, Name: "Snacks", CreatedAt: now},
		{Slot: "billboard", Name: "Unknown slot", CreatedAt: now},
	}})

	got, err := repo.ActiveSponsors(context.Background())
	require.NoError(t, err)

	assert.Len(t, got, len(Slots))
	assert.Equal(t, Sponsor{Enabled: true, Name: "First", Logo: "/a.svg", URL: "https://a.example", Callout: "hi"}, got[SlotTable])
	assert.Equal(t, Sponsor{Enabled: true, Name: "Snacks"}, got[SlotFood])
	assert.Equal(t, Sponsor{}, got[SlotDrink])
	assert.NotContains(t, got, Slot("billboard"))
}

func TestActiveSponsorsError(t *testing.T) {
	_, err := NewRepository(failingQuerier{}).ActiveSponsors(context.Background())
	assert.ErrorContains(t, err, "connection refused")
}

func TestHandleList(t *testing.T) {
	tests := []struct {
		name       string
		querier    Querier
		wantStatus int
	}{
		{name: "no campaigns", querier: StaticQueries{}, wantStatus: http.StatusOK},
		{name: "store failure", querier: failingQuerier{}, wantStatus: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mux := http.NewServeMux()
			NewHandler(NewRepository(tt.querier)).RegisterRoutes(mux)

			w := httptest.NewRecorder()
			mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/sponsors", nil))

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
			if tt.wantStatus != http.StatusOK {
				return
			}

			var body map[string]Sponsor
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			for _, s := range Slots {
				require.Contains(t, body, string(s))
				assert.False(t, body[string(s)].Enabled)
			}
		})
	}
}

func TestHandleListRejectsWrites(t *testing.T) {
	mux := http.NewServeMux()
	NewHandler(NewRepository(StaticQueries{})).RegisterRoutes(mux)

	w := httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/sponsors", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}
