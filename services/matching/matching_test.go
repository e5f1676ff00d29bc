package matching

import (
	"errors"
	"testing"

	providerRepo "molbhav/database/repository/provider"
	"molbhav/models"

	"go.mongodb.org/mongo-driver/bson"
)

// fakeProviderRepo implements providerRepo.ProviderRepository for testing.
type fakeProviderRepo struct {
	providers []models.Provider
	err       error
}

func (f *fakeProviderRepo) GetByIDWithProjection(id string, projection bson.M) (*models.Provider, error) {
	for i := range f.providers {
		if f.providers[i].ID == id {
			return &f.providers[i], nil
		}
	}
	return nil, nil
}

func (f *fakeProviderRepo) SearchNearby(criteria providerRepo.ProviderSearchCriteria) ([]models.Provider, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.providers, nil
}

func testProvider(id string, lon, lat float64, services []string, identity string) models.Provider {
	return models.Provider{
		ID: id,
		Profile: models.ProviderProfile{
			Name:            "Provider " + id,
			Status:          models.ProviderStatusActive,
			Verified:        true,
			ProfileComplete: true,
			LocationGeo:     models.GeoPoint{Type: "Point", Coordinates: []float64{lon, lat}},
		},
		Services:          services,
		MessagingIdentity: identity,
	}
}

func testRequest(categories []string) *models.ServiceRequest {
	return &models.ServiceRequest{
		ID:                "req-1",
		ServiceCategories: categories,
		LocationGeo:       models.GeoPoint{Type: "Point", Coordinates: []float64{77.0, 28.0}},
		CustomerBudget:    2000,
	}
}

func TestMatchProviders_NearestFirst(t *testing.T) {
	repo := &fakeProviderRepo{providers: []models.Provider{
		testProvider("far", 77.0, 28.03, []string{"plumbing"}, "telegram:3"),
		testProvider("near", 77.0, 28.001, []string{"plumbing"}, "telegram:1"),
		testProvider("mid", 77.0, 28.01, []string{"plumbing"}, "telegram:2"),
	}}
	svc := &DefaultMatchingService{ProviderRepo: repo}

	result, err := svc.MatchProviders(testRequest([]string{"plumbing"}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Reachable) != 3 {
		t.Fatalf("expected 3 reachable providers, got %d", len(result.Reachable))
	}
	order := []string{result.Reachable[0].ID, result.Reachable[1].ID, result.Reachable[2].ID}
	want := []string{"near", "mid", "far"}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("expected order %v, got %v", want, order)
		}
	}
}

func TestMatchProviders_CategoryFilter(t *testing.T) {
	repo := &fakeProviderRepo{providers: []models.Provider{
		testProvider("plumber", 77.0, 28.001, []string{"Plumbing", "Pipe Repair"}, "telegram:1"),
		testProvider("electrician", 77.0, 28.001, []string{"electrical"}, "telegram:2"),
	}}
	svc := &DefaultMatchingService{ProviderRepo: repo}

	result, err := svc.MatchProviders(testRequest([]string{"plumbing"}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Reachable) != 1 || result.Reachable[0].ID != "plumber" {
		t.Fatalf("expected only the plumber to match, got %+v", result.Reachable)
	}
}

func TestMatchProviders_SubstringBothDirections(t *testing.T) {
	repo := &fakeProviderRepo{providers: []models.Provider{
		testProvider("a", 77.0, 28.001, []string{"pipe repair and fitting"}, "telegram:1"),
		testProvider("b", 77.0, 28.002, []string{"repair"}, "telegram:2"),
	}}
	svc := &DefaultMatchingService{ProviderRepo: repo}

	// "pipe repair" is contained in a's service and contains b's service.
	result, err := svc.MatchProviders(testRequest([]string{"Pipe Repair"}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Reachable) != 2 {
		t.Fatalf("expected both providers to match, got %d", len(result.Reachable))
	}
}

func TestMatchProviders_SplitsUnreachable(t *testing.T) {
	repo := &fakeProviderRepo{providers: []models.Provider{
		testProvider("chat", 77.0, 28.001, []string{"plumbing"}, "telegram:1"),
		testProvider("nochat", 77.0, 28.002, []string{"plumbing"}, ""),
	}}
	svc := &DefaultMatchingService{ProviderRepo: repo}

	result, err := svc.MatchProviders(testRequest([]string{"plumbing"}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Reachable) != 1 || result.Reachable[0].ID != "chat" {
		t.Fatalf("expected one reachable provider, got %+v", result.Reachable)
	}
	if len(result.Unreachable) != 1 || result.Unreachable[0].ID != "nochat" {
		t.Fatalf("expected one unreachable provider, got %+v", result.Unreachable)
	}
}

func TestMatchProviders_EmptyResultIsNotAnError(t *testing.T) {
	svc := &DefaultMatchingService{ProviderRepo: &fakeProviderRepo{}}

	result, err := svc.MatchProviders(testRequest([]string{"plumbing"}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Reachable) != 0 || len(result.Unreachable) != 0 {
		t.Fatalf("expected empty result, got %+v", result)
	}
}

func TestMatchProviders_SearchErrorPropagates(t *testing.T) {
	svc := &DefaultMatchingService{ProviderRepo: &fakeProviderRepo{err: errors.New("mongo down")}}

	if _, err := svc.MatchProviders(testRequest([]string{"plumbing"})); err == nil {
		t.Fatal("expected error from search failure")
	}
}
