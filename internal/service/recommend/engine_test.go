package recommend

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/aimd54/sme-dispatch/internal/models"
	"github.com/aimd54/sme-dispatch/pkg/logger"
)

// Mock repositories for testing
type mockServiceRequestRepository struct {
	requests map[uint]*models.ServiceRequest
}

func (m *mockServiceRequestRepository) GetActive(id uint) (*models.ServiceRequest, error) {
	if sr, ok := m.requests[id]; ok {
		return sr, nil
	}
	return nil, fmt.Errorf("service request not found")
}

type mockUserRepository struct {
	smes    []models.User
	listErr error
}

func (m *mockUserRepository) ListSmes(specialization string) ([]models.User, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	if specialization == "" {
		return m.smes, nil
	}
	var filtered []models.User
	for _, sme := range m.smes {
		if sme.Specialization != nil && *sme.Specialization == specialization {
			filtered = append(filtered, sme)
		}
	}
	return filtered, nil
}

type smeHistory struct {
	active     int64
	rejections int64
	total      int64
	completed  int64
	countErr   error
}

type mockAssignmentRepository struct {
	history map[uint]smeHistory
}

func (m *mockAssignmentRepository) CountActiveBySme(smeUserID uint) (int64, error) {
	h := m.history[smeUserID]
	return h.active, h.countErr
}

func (m *mockAssignmentRepository) CountRejectionsSince(smeUserID uint, since time.Time) (int64, error) {
	h := m.history[smeUserID]
	return h.rejections, h.countErr
}

func (m *mockAssignmentRepository) CountBySmeSince(smeUserID uint, since time.Time) (int64, error) {
	h := m.history[smeUserID]
	return h.total, h.countErr
}

func (m *mockAssignmentRepository) CountCompletedBySmeSince(smeUserID uint, since time.Time) (int64, error) {
	h := m.history[smeUserID]
	return h.completed, h.countErr
}

type mockZipCodeRepository struct {
	zips map[string]*models.ZipCode
}

func (m *mockZipCodeRepository) Lookup(zip string) (*models.ZipCode, error) {
	return m.zips[zip], nil
}

type mockScoreProvider struct {
	scores map[uint]int
}

func (m *mockScoreProvider) GetScore(ctx context.Context, smeUserID uint) int {
	if score, ok := m.scores[smeUserID]; ok {
		return score
	}
	return 100
}

type testFixture struct {
	engine          *Engine
	serviceRequests *mockServiceRequestRepository
	users           *mockUserRepository
	assignments     *mockAssignmentRepository
	zipCodes        *mockZipCodeRepository
	scores          *mockScoreProvider
}

func setupTestEngine() *testFixture {
	f := &testFixture{
		serviceRequests: &mockServiceRequestRepository{requests: make(map[uint]*models.ServiceRequest)},
		users:           &mockUserRepository{},
		assignments:     &mockAssignmentRepository{history: make(map[uint]smeHistory)},
		zipCodes:        &mockZipCodeRepository{zips: make(map[string]*models.ZipCode)},
		scores:          &mockScoreProvider{scores: make(map[uint]int)},
	}
	log := logger.New("debug", "text", "stdout")
	f.engine = NewEngineWithInterfaces(f.serviceRequests, f.users, f.assignments, f.zipCodes, f.scores, log)
	return f
}

func sme(id uint, firstName string, expertiseIDs ...uint) models.User {
	u := models.User{
		ID:        id,
		FirstName: firstName,
		LastName:  "Tester",
		Role:      models.RoleSme,
		IsActive:  true,
	}
	for _, expertiseID := range expertiseIDs {
		u.Expertises = append(u.Expertises, models.SmeExpertise{
			UserID:      id,
			ExpertiseID: expertiseID,
			IsActive:    true,
		})
	}
	return u
}

func requestWithExpertise(id uint, expertiseIDs ...uint) *models.ServiceRequest {
	sr := &models.ServiceRequest{ID: id, Status: models.RequestStatusActive}
	for _, expertiseID := range expertiseIDs {
		sr.Expertises = append(sr.Expertises, models.ServiceRequestExpertise{
			ServiceRequestID: id,
			ExpertiseID:      expertiseID,
		})
	}
	return sr
}

func orderedIDs(recs []Recommendation) []uint {
	ids := make([]uint, len(recs))
	for i, r := range recs {
		ids[i] = r.SmeUserID
	}
	return ids
}

func TestRecommend_UnknownServiceRequest(t *testing.T) {
	f := setupTestEngine()

	recs := f.engine.Recommend(context.Background(), 99, "")
	if len(recs) != 0 {
		t.Errorf("Expected empty list for unknown service request, got %d", len(recs))
	}
}

func TestRecommend_ListSmesErrorReturnsEmpty(t *testing.T) {
	f := setupTestEngine()
	f.serviceRequests.requests[1] = requestWithExpertise(1)
	f.users.listErr = fmt.Errorf("database unavailable")

	recs := f.engine.Recommend(context.Background(), 1, "")
	if len(recs) != 0 {
		t.Errorf("Expected empty list on candidate listing error, got %d", len(recs))
	}
}

func TestRecommend_ExpertiseFilter(t *testing.T) {
	f := setupTestEngine()
	f.serviceRequests.requests[1] = requestWithExpertise(1, 7, 8)
	f.users.smes = []models.User{
		sme(1, "Match", 7),
		sme(2, "NoMatch", 9),
		sme(3, "Generalist"), // no expertise rows at all
	}

	recs := f.engine.Recommend(context.Background(), 1, "")
	if len(recs) != 1 {
		t.Fatalf("Expected only the matching SME, got %d", len(recs))
	}
	if recs[0].SmeUserID != 1 {
		t.Errorf("Expected SME 1, got %d", recs[0].SmeUserID)
	}
	if recs[0].ExpertiseMatchCount != 1 || recs[0].TotalExpertiseRequired != 2 {
		t.Errorf("Expected 1/2 expertise match, got %d/%d", recs[0].ExpertiseMatchCount, recs[0].TotalExpertiseRequired)
	}
}

func TestRecommend_NoRequiredExpertiseKeepsEveryone(t *testing.T) {
	f := setupTestEngine()
	f.serviceRequests.requests[1] = requestWithExpertise(1)
	f.users.smes = []models.User{
		sme(1, "Alpha", 7),
		sme(2, "Beta"),
	}

	recs := f.engine.Recommend(context.Background(), 1, "")
	if len(recs) != 2 {
		t.Errorf("Expected both SMEs when request has no expertise, got %d", len(recs))
	}
}

func TestRecommend_MatchCountOrdering(t *testing.T) {
	f := setupTestEngine()
	f.serviceRequests.requests[1] = requestWithExpertise(1, 7, 8)
	f.users.smes = []models.User{
		sme(1, "Partial", 7),
		sme(2, "Perfect", 7, 8),
	}

	recs := f.engine.Recommend(context.Background(), 1, "")
	ids := orderedIDs(recs)
	if len(ids) != 2 || ids[0] != 2 || ids[1] != 1 {
		t.Errorf("Expected perfect match first, got order %v", ids)
	}
}

func TestRecommend_PreferredSmeFirst(t *testing.T) {
	f := setupTestEngine()
	sr := requestWithExpertise(1, 7)
	preferred := uint(1)
	sr.PreferredSmeUserID = &preferred
	f.serviceRequests.requests[1] = sr

	f.users.smes = []models.User{
		sme(1, "Preferred", 7),
		sme(2, "Stronger", 7),
	}
	// SME 2 beats SME 1 on every other key.
	f.scores.scores[1] = 80
	f.scores.scores[2] = 140

	recs := f.engine.Recommend(context.Background(), 1, "")
	ids := orderedIDs(recs)
	if len(ids) != 2 || ids[0] != 1 {
		t.Errorf("Expected preferred SME first despite lower score, got order %v", ids)
	}
}

func TestRecommend_DistanceBeatsScore(t *testing.T) {
	f := setupTestEngine()
	sr := requestWithExpertise(1, 7)
	zip := "10001"
	sr.ServiceZipCode = &zip
	f.serviceRequests.requests[1] = sr
	f.zipCodes.zips[zip] = &models.ZipCode{Zip: zip, Latitude: 40.75, Longitude: -73.99}

	near := sme(1, "Near", 7)
	nearLat, nearLon := 40.80, -73.95
	near.Latitude, near.Longitude = &nearLat, &nearLon

	far := sme(2, "Far", 7)
	farLat, farLon := 42.36, -71.06
	far.Latitude, far.Longitude = &farLat, &farLon

	f.users.smes = []models.User{far, near}
	f.scores.scores[1] = 90
	f.scores.scores[2] = 150

	recs := f.engine.Recommend(context.Background(), 1, "")
	ids := orderedIDs(recs)
	if len(ids) != 2 || ids[0] != 1 {
		t.Errorf("Expected closer SME first despite lower score, got order %v", ids)
	}
}

func TestRecommend_NilDistanceSortsLast(t *testing.T) {
	f := setupTestEngine()
	sr := requestWithExpertise(1, 7)
	zip := "10001"
	sr.ServiceZipCode = &zip
	f.serviceRequests.requests[1] = sr
	f.zipCodes.zips[zip] = &models.ZipCode{Zip: zip, Latitude: 40.75, Longitude: -73.99}

	located := sme(1, "Located", 7)
	lat, lon := 42.36, -71.06
	located.Latitude, located.Longitude = &lat, &lon

	unlocated := sme(2, "Unlocated", 7)
	f.scores.scores[2] = 150

	f.users.smes = []models.User{unlocated, located}

	recs := f.engine.Recommend(context.Background(), 1, "")
	ids := orderedIDs(recs)
	if len(ids) != 2 || ids[0] != 1 {
		t.Errorf("Expected SME with a known distance first, got order %v", ids)
	}
	if recs[1].DistanceMiles != nil {
		t.Error("Expected nil distance for SME without coordinates")
	}
}

func TestRecommend_MaxDistanceFilter(t *testing.T) {
	f := setupTestEngine()
	sr := requestWithExpertise(1, 7)
	zip := "10001"
	sr.ServiceZipCode = &zip
	sr.MaxDistanceMiles = 50
	f.serviceRequests.requests[1] = sr
	f.zipCodes.zips[zip] = &models.ZipCode{Zip: zip, Latitude: 40.75, Longitude: -73.99}

	far := sme(1, "Far", 7)
	farLat, farLon := 42.36, -71.06 // Boston, ~190 mi
	far.Latitude, far.Longitude = &farLat, &farLon

	f.users.smes = []models.User{far}

	recs := f.engine.Recommend(context.Background(), 1, "")
	if len(recs) != 0 {
		t.Errorf("Expected SME beyond max distance to be excluded, got %d", len(recs))
	}
}

func TestRecommend_SmeTravelRadiusOverridesCap(t *testing.T) {
	f := setupTestEngine()
	sr := requestWithExpertise(1, 7)
	zip := "10001"
	sr.ServiceZipCode = &zip
	sr.MaxDistanceMiles = 50
	f.serviceRequests.requests[1] = sr
	f.zipCodes.zips[zip] = &models.ZipCode{Zip: zip, Latitude: 40.75, Longitude: -73.99}

	willing := sme(1, "Willing", 7)
	lat, lon := 42.36, -71.06
	willing.Latitude, willing.Longitude = &lat, &lon
	travel := 250.0
	willing.MaxTravelMiles = &travel

	f.users.smes = []models.User{willing}

	recs := f.engine.Recommend(context.Background(), 1, "")
	if len(recs) != 1 {
		t.Fatalf("Expected SME with a wide travel radius to be kept, got %d", len(recs))
	}
	if recs[0].DistanceMiles == nil || *recs[0].DistanceMiles <= 50 {
		t.Error("Expected a computed distance beyond the request cap")
	}
}

func TestRecommend_SkipsCandidateOnHistoryError(t *testing.T) {
	f := setupTestEngine()
	f.serviceRequests.requests[1] = requestWithExpertise(1, 7)
	f.users.smes = []models.User{
		sme(1, "Broken", 7),
		sme(2, "Healthy", 7),
	}
	f.assignments.history[1] = smeHistory{countErr: fmt.Errorf("query timeout")}

	recs := f.engine.Recommend(context.Background(), 1, "")
	if len(recs) != 1 {
		t.Fatalf("Expected broken candidate to be skipped, got %d", len(recs))
	}
	if recs[0].SmeUserID != 2 {
		t.Errorf("Expected SME 2, got %d", recs[0].SmeUserID)
	}
}

func TestRecommend_RejectionAndWorkloadTieBreaks(t *testing.T) {
	f := setupTestEngine()
	f.serviceRequests.requests[1] = requestWithExpertise(1, 7)
	f.users.smes = []models.User{
		sme(1, "Busy", 7),
		sme(2, "Idle", 7),
		sme(3, "Rejector", 7),
	}
	f.assignments.history[1] = smeHistory{active: 10}
	f.assignments.history[2] = smeHistory{active: 1}
	f.assignments.history[3] = smeHistory{active: 1, rejections: 4}

	recs := f.engine.Recommend(context.Background(), 1, "")
	ids := orderedIDs(recs)
	// Same match count and score, no distance: fewest rejections wins, then
	// lowest workload.
	want := []uint{2, 1, 3}
	for i := range want {
		if ids[i] != want[i] {
			t.Fatalf("Expected order %v, got %v", want, ids)
		}
	}
}

func TestRecommend_CompletionRateDefaultsToPerfect(t *testing.T) {
	f := setupTestEngine()
	f.serviceRequests.requests[1] = requestWithExpertise(1, 7)
	f.users.smes = []models.User{sme(1, "Fresh", 7)}

	recs := f.engine.Recommend(context.Background(), 1, "")
	if len(recs) != 1 {
		t.Fatalf("Expected 1 recommendation, got %d", len(recs))
	}
	if recs[0].CompletionRate != 1.0 {
		t.Errorf("Expected completion rate 1.0 with no history, got %f", recs[0].CompletionRate)
	}
}

func TestBuildReason(t *testing.T) {
	tenMiles := 10.0
	twoHundredMiles := 200.0

	tests := []struct {
		name     string
		score    int
		active   int
		rejected int
		rate     float64
		match    int
		required int
		distance *float64
		want     string
	}{
		{
			name:  "Strong nearby candidate",
			score: 125, active: 2, rejected: 0, rate: 0.95, match: 2, required: 2, distance: &tenMiles,
			want: "Perfect match (2/2 expertise), Very close (10.0 mi), Excellent score, Low workload, No recent rejections, High completion rate",
		},
		{
			name:  "Weak distant candidate",
			score: 70, active: 20, rejected: 5, rate: 0.5, match: 1, required: 3, distance: &twoHundredMiles,
			want: "Partial match (1/3 expertise), Far (200.0 mi), Low score, High workload, Multiple recent rejections, Low completion rate",
		},
		{
			name:  "Middling candidate without location",
			score: 100, active: 8, rejected: 1, rate: 0.8, match: 0, required: 0, distance: nil,
			want: "Good score",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := buildReason(tt.score, tt.active, tt.rejected, tt.rate, tt.match, tt.required, tt.distance)
			if got != tt.want {
				t.Errorf("Expected reason %q, got %q", tt.want, got)
			}
		})
	}
}
