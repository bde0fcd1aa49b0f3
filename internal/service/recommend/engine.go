// Package recommend ranks active SMEs for a service request by expertise
// match, proximity, reputation score, recent rejections and current workload.
package recommend

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	prommetrics "github.com/aimd54/sme-dispatch/internal/metrics"
	"github.com/aimd54/sme-dispatch/internal/models"
	"github.com/aimd54/sme-dispatch/internal/repository"
	"github.com/aimd54/sme-dispatch/internal/service/geo"
	"github.com/aimd54/sme-dispatch/internal/service/reputation"
	"github.com/aimd54/sme-dispatch/pkg/logger"
)

const (
	// RejectionWindow is how far back recent rejections are counted.
	RejectionWindow = 30 * 24 * time.Hour
	// CompletionWindow is how far back the completion rate looks.
	CompletionWindow = 90 * 24 * time.Hour
)

// Recommendation is one ranked SME candidate.
type Recommendation struct {
	SmeUserID              uint     `json:"sme_user_id"`
	SmeUserName            string   `json:"sme_user_name"`
	Specialization         *string  `json:"specialization,omitempty"`
	SmeScore               int      `json:"sme_score"`
	ActiveAssignmentsCount int      `json:"active_assignments_count"`
	RecentRejectionsCount  int      `json:"recent_rejections_count"`
	CompletionRate         float64  `json:"completion_rate"`
	ExpertiseMatchCount    int      `json:"expertise_match_count"`
	TotalExpertiseRequired int      `json:"total_expertise_required"`
	DistanceMiles          *float64 `json:"distance_miles,omitempty"`
	RecommendationReason   string   `json:"recommendation_reason"`
}

// ServiceRequestRepository interface for service request lookups.
type ServiceRequestRepository interface {
	GetActive(id uint) (*models.ServiceRequest, error)
}

// UserRepository interface for SME candidate listing.
type UserRepository interface {
	ListSmes(specialization string) ([]models.User, error)
}

// AssignmentRepository interface for per-candidate history counts.
type AssignmentRepository interface {
	CountActiveBySme(smeUserID uint) (int64, error)
	CountRejectionsSince(smeUserID uint, since time.Time) (int64, error)
	CountBySmeSince(smeUserID uint, since time.Time) (int64, error)
	CountCompletedBySmeSince(smeUserID uint, since time.Time) (int64, error)
}

// ZipCodeRepository interface for geocoding zip codes.
type ZipCodeRepository interface {
	Lookup(zip string) (*models.ZipCode, error)
}

// ScoreProvider interface for reading reputation scores.
type ScoreProvider interface {
	GetScore(ctx context.Context, smeUserID uint) int
}

// Engine produces ranked SME recommendations.
type Engine struct {
	serviceRequests ServiceRequestRepository
	users           UserRepository
	assignments     AssignmentRepository
	zipCodes        ZipCodeRepository
	scores          ScoreProvider
	log             *logger.Logger
}

// NewEngine creates a new recommendation engine with concrete repository types.
func NewEngine(
	serviceRequests *repository.ServiceRequestRepository,
	users *repository.UserRepository,
	assignments *repository.AssignmentRepository,
	zipCodes *repository.ZipCodeRepository,
	scores *reputation.Ledger,
	log *logger.Logger,
) *Engine {
	return &Engine{
		serviceRequests: serviceRequests,
		users:           users,
		assignments:     assignments,
		zipCodes:        zipCodes,
		scores:          scores,
		log:             log,
	}
}

// NewEngineWithInterfaces creates a new recommendation engine with interface dependencies (useful for testing).
func NewEngineWithInterfaces(
	serviceRequests ServiceRequestRepository,
	users UserRepository,
	assignments AssignmentRepository,
	zipCodes ZipCodeRepository,
	scores ScoreProvider,
	log *logger.Logger,
) *Engine {
	return &Engine{
		serviceRequests: serviceRequests,
		users:           users,
		assignments:     assignments,
		zipCodes:        zipCodes,
		scores:          scores,
		log:             log,
	}
}

// Recommend returns ranked SME candidates for a service request, optionally
// narrowed by specialization. It never fails hard: missing data or store
// errors degrade to an empty list, and a candidate whose history cannot be
// read is skipped rather than aborting the whole request.
func (e *Engine) Recommend(ctx context.Context, serviceRequestID uint, specialization string) []Recommendation {
	start := time.Now()
	defer func() {
		prommetrics.ObserveRecommendationDuration(time.Since(start).Seconds())
	}()

	serviceRequest, err := e.serviceRequests.GetActive(serviceRequestID)
	if err != nil {
		e.log.Warn().Err(err).Uint("service_request_id", serviceRequestID).Msg("Recommendation request for unknown service request")
		prommetrics.RecordRecommendationRequest("not_found")
		return []Recommendation{}
	}

	requiredExpertise := serviceRequest.RequiredExpertiseIDs()

	serviceLat, serviceLon, hasLocation := e.resolveServiceLocation(serviceRequest)

	smes, err := e.users.ListSmes(specialization)
	if err != nil {
		e.log.Error().Err(err).Uint("service_request_id", serviceRequestID).Msg("Failed to list SME candidates")
		prommetrics.RecordRecommendationRequest("error")
		return []Recommendation{}
	}

	recommendations := make([]Recommendation, 0, len(smes))

	for i := range smes {
		sme := &smes[i]

		matchCount := 0
		for expertiseID := range sme.ActiveExpertiseIDs() {
			if requiredExpertise[expertiseID] {
				matchCount++
			}
		}
		if len(requiredExpertise) > 0 && matchCount == 0 {
			continue
		}

		var distance *float64
		if hasLocation && sme.Latitude != nil && sme.Longitude != nil {
			d := geo.DistanceMiles(serviceLat, serviceLon, *sme.Latitude, *sme.Longitude)
			distance = &d

			if serviceRequest.MaxDistanceMiles > 0 && d > serviceRequest.MaxDistanceMiles {
				// The SME's own travel radius can widen the request's cap.
				if sme.MaxTravelMiles == nil || d > *sme.MaxTravelMiles {
					continue
				}
			}
		}

		rec, err := e.buildCandidate(ctx, sme, matchCount, len(requiredExpertise), distance)
		if err != nil {
			e.log.Warn().Err(err).Uint("sme_user_id", sme.ID).Msg("Skipping SME candidate, history unavailable")
			continue
		}

		recommendations = append(recommendations, *rec)
	}

	preferredSmeUserID := serviceRequest.PreferredSmeUserID
	sort.Slice(recommendations, func(i, j int) bool {
		a, b := recommendations[i], recommendations[j]

		if preferredSmeUserID != nil {
			aPreferred := a.SmeUserID == *preferredSmeUserID
			bPreferred := b.SmeUserID == *preferredSmeUserID
			if aPreferred != bPreferred {
				return aPreferred
			}
		}
		if a.ExpertiseMatchCount != b.ExpertiseMatchCount {
			return a.ExpertiseMatchCount > b.ExpertiseMatchCount
		}
		aDist, bDist := distanceOrMax(a.DistanceMiles), distanceOrMax(b.DistanceMiles)
		if aDist != bDist {
			return aDist < bDist
		}
		if a.SmeScore != b.SmeScore {
			return a.SmeScore > b.SmeScore
		}
		if a.RecentRejectionsCount != b.RecentRejectionsCount {
			return a.RecentRejectionsCount < b.RecentRejectionsCount
		}
		return a.ActiveAssignmentsCount < b.ActiveAssignmentsCount
	})

	prommetrics.RecordRecommendationRequest("success")
	prommetrics.ObserveRecommendationCandidates(len(recommendations))
	e.log.Debug().
		Uint("service_request_id", serviceRequestID).
		Int("candidates", len(recommendations)).
		Msg("Built SME recommendations")

	return recommendations
}

// resolveServiceLocation geocodes the request's service zip code, falling
// back to the client's zip code when the request has none.
func (e *Engine) resolveServiceLocation(serviceRequest *models.ServiceRequest) (lat, lon float64, ok bool) {
	zip := serviceRequest.ServiceZipCode
	if zip == nil {
		zip = serviceRequest.Client.ZipCode
	}
	if zip == nil || *zip == "" {
		return 0, 0, false
	}

	zipCode, err := e.zipCodes.Lookup(*zip)
	if err != nil {
		e.log.Warn().Err(err).Str("zip", *zip).Msg("Zip code lookup failed")
		return 0, 0, false
	}
	if zipCode == nil {
		return 0, 0, false
	}
	return zipCode.Latitude, zipCode.Longitude, true
}

func (e *Engine) buildCandidate(ctx context.Context, sme *models.User, matchCount, totalRequired int, distance *float64) (*Recommendation, error) {
	activeAssignments, err := e.assignments.CountActiveBySme(sme.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to count active assignments: %w", err)
	}

	now := time.Now().UTC()
	recentRejections, err := e.assignments.CountRejectionsSince(sme.ID, now.Add(-RejectionWindow))
	if err != nil {
		return nil, fmt.Errorf("failed to count recent rejections: %w", err)
	}

	totalRecent, err := e.assignments.CountBySmeSince(sme.ID, now.Add(-CompletionWindow))
	if err != nil {
		return nil, fmt.Errorf("failed to count recent assignments: %w", err)
	}
	completedRecent, err := e.assignments.CountCompletedBySmeSince(sme.ID, now.Add(-CompletionWindow))
	if err != nil {
		return nil, fmt.Errorf("failed to count recent completions: %w", err)
	}

	// No history reads as a perfect record rather than an unknown one.
	completionRate := 1.0
	if totalRecent > 0 {
		completionRate = float64(completedRecent) / float64(totalRecent)
	}

	score := e.scores.GetScore(ctx, sme.ID)

	return &Recommendation{
		SmeUserID:              sme.ID,
		SmeUserName:            sme.FullName(),
		Specialization:         sme.Specialization,
		SmeScore:               score,
		ActiveAssignmentsCount: int(activeAssignments),
		RecentRejectionsCount:  int(recentRejections),
		CompletionRate:         completionRate,
		ExpertiseMatchCount:    matchCount,
		TotalExpertiseRequired: totalRequired,
		DistanceMiles:          distance,
		RecommendationReason:   buildReason(score, int(activeAssignments), int(recentRejections), completionRate, matchCount, totalRequired, distance),
	}, nil
}

func distanceOrMax(d *float64) float64 {
	if d == nil {
		return math.MaxFloat64
	}
	return *d
}

// buildReason assembles the human-readable explanation shown next to each
// candidate.
func buildReason(score, activeAssignments, recentRejections int, completionRate float64, matchCount, totalRequired int, distance *float64) string {
	var reasons []string

	if totalRequired > 0 {
		switch {
		case matchCount == totalRequired:
			reasons = append(reasons, fmt.Sprintf("Perfect match (%d/%d expertise)", matchCount, totalRequired))
		case matchCount > 0:
			reasons = append(reasons, fmt.Sprintf("Partial match (%d/%d expertise)", matchCount, totalRequired))
		default:
			reasons = append(reasons, "No expertise match")
		}
	}

	if distance != nil {
		switch {
		case *distance <= 25:
			reasons = append(reasons, fmt.Sprintf("Very close (%.1f mi)", *distance))
		case *distance <= 50:
			reasons = append(reasons, fmt.Sprintf("Close (%.1f mi)", *distance))
		case *distance <= 100:
			reasons = append(reasons, fmt.Sprintf("Moderate distance (%.1f mi)", *distance))
		default:
			reasons = append(reasons, fmt.Sprintf("Far (%.1f mi)", *distance))
		}
	}

	if score >= 120 {
		reasons = append(reasons, "Excellent score")
	} else if score >= 100 {
		reasons = append(reasons, "Good score")
	} else if score < 80 {
		reasons = append(reasons, "Low score")
	}

	if activeAssignments < 5 {
		reasons = append(reasons, "Low workload")
	} else if activeAssignments > 15 {
		reasons = append(reasons, "High workload")
	}

	if recentRejections == 0 {
		reasons = append(reasons, "No recent rejections")
	} else if recentRejections > 3 {
		reasons = append(reasons, "Multiple recent rejections")
	}

	if completionRate >= 0.9 {
		reasons = append(reasons, "High completion rate")
	} else if completionRate < 0.7 {
		reasons = append(reasons, "Low completion rate")
	}

	return strings.Join(reasons, ", ")
}
