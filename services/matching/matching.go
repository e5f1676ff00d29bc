package matching

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"

	"molbhav/config"
	providerRepo "molbhav/database/repository/provider"
	"molbhav/models"
	"molbhav/utils"

	"go.uber.org/zap"
)

// MatchResult splits candidates by how the system can reach them. Reachable
// providers are ordered nearest first; unreachable ones only get an in-app
// invitation and never a negotiation session.
type MatchResult struct {
	Reachable   []models.Provider
	Unreachable []models.Provider
}

// MatchingService defines the interface for finding negotiation candidates.
type MatchingService interface {
	MatchProviders(req *models.ServiceRequest) (MatchResult, error)
}

// DefaultMatchingService implements MatchingService.
type DefaultMatchingService struct {
	ProviderRepo providerRepo.ProviderRepository
}

// MatchProviders finds active, verified, profile-complete providers around
// the request's location that advertise at least one requested category.
// Zero matches is a valid result, not an error.
func (s *DefaultMatchingService) MatchProviders(req *models.ServiceRequest) (MatchResult, error) {
	logger := utils.GetLogger()

	radius := config.AppConfig.NegotiationSearchRadiusKM
	if radius <= 0 {
		radius = 5
	}
	criteria := providerRepo.ProviderSearchCriteria{
		LocationGeo:   req.LocationGeo,
		MaxDistanceKm: radius,
	}
	providers, err := s.ProviderRepo.SearchNearby(criteria)
	if err != nil {
		return MatchResult{}, fmt.Errorf("provider search failed: %w", err)
	}
	if len(providers) == 0 {
		logger.Info("No providers in range", zap.String("requestId", req.ID))
		return MatchResult{}, nil
	}

	if len(req.LocationGeo.Coordinates) < 2 {
		return MatchResult{}, fmt.Errorf("invalid request coordinates")
	}
	centerLon := req.LocationGeo.Coordinates[0]
	centerLat := req.LocationGeo.Coordinates[1]

	// rankedProvider pairs a candidate with its computed distance.
	type rankedProvider struct {
		Provider   models.Provider
		DistanceKm float64
	}

	resultsCh := make(chan rankedProvider, len(providers))
	var wg sync.WaitGroup

	for _, p := range providers {
		if !advertisesAny(p.Services, req.ServiceCategories) {
			continue
		}
		wg.Add(1)
		go func(p models.Provider) {
			defer wg.Done()
			var provLat, provLon float64
			if len(p.Profile.LocationGeo.Coordinates) >= 2 {
				provLon = p.Profile.LocationGeo.Coordinates[0]
				provLat = p.Profile.LocationGeo.Coordinates[1]
			}
			resultsCh <- rankedProvider{
				Provider:   p,
				DistanceKm: haversine(centerLat, centerLon, provLat, provLon),
			}
		}(p)
	}

	wg.Wait()
	close(resultsCh)

	var ranked []rankedProvider
	for r := range resultsCh {
		ranked = append(ranked, r)
	}

	sort.Slice(ranked, func(i, j int) bool {
		return ranked[i].DistanceKm < ranked[j].DistanceKm
	})

	var result MatchResult
	for _, r := range ranked {
		if r.Provider.Reachable() {
			result.Reachable = append(result.Reachable, r.Provider)
		} else {
			result.Unreachable = append(result.Unreachable, r.Provider)
		}
	}

	logger.Info("Matched providers",
		zap.String("requestId", req.ID),
		zap.Int("reachable", len(result.Reachable)),
		zap.Int("unreachable", len(result.Unreachable)),
	)
	return result, nil
}

// advertisesAny reports whether any advertised service matches any requested
// category. Matching is case-insensitive and tolerant in both directions, so
// "pipe repair" matches a provider advertising "repair" and vice versa.
func advertisesAny(services, categories []string) bool {
	for _, svc := range services {
		s := strings.ToLower(strings.TrimSpace(svc))
		if s == "" {
			continue
		}
		for _, cat := range categories {
			c := strings.ToLower(strings.TrimSpace(cat))
			if c == "" {
				continue
			}
			if strings.Contains(s, c) || strings.Contains(c, s) {
				return true
			}
		}
	}
	return false
}

func haversine(lat1, lon1, lat2, lon2 float64) float64 {
	const R = 6371
	dLat := (lat2 - lat1) * (math.Pi / 180)
	dLon := (lon2 - lon1) * (math.Pi / 180)
	lat1Rad := lat1 * (math.Pi / 180)
	lat2Rad := lat2 * (math.Pi / 180)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1Rad)*math.Cos(lat2Rad)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return R * c
}
