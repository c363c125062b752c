package matchcore

import (
	"sort"
	"strings"
	"time"
)

// RankWeights is the weight set (out of 100) for profile-vs-profile
// recommendation ranking. Independent from FactorWeights: the ranker
// compares two profiles directly instead of a profile against a
// declared preference.
type RankWeights struct {
	Location     float64
	AgeProximity float64
	Education    float64
	Occupation   float64
	Culture      float64 // religion + mother tongue + caste (caste at half weight)
	Lifestyle    float64 // diet + family type
	Completeness float64
	Activity     float64
}

// DefaultRankWeights returns the standard production weight set.
func DefaultRankWeights() RankWeights {
	return RankWeights{
		Location:     25,
		AgeProximity: 20,
		Education:    15,
		Occupation:   15,
		Culture:      15,
		Lifestyle:    10,
		Completeness: 5,
		Activity:     5,
	}
}

// RankScore is a ranked candidate's total with its per-factor
// contributions.
type RankScore struct {
	Total     float64
	Breakdown map[string]float64
}

// RecommendationRanker scores candidate profiles against the viewer's
// own profile, preference-independent. Pure function, safe for
// concurrent use.
type RecommendationRanker struct {
	weights RankWeights
}

// NewRecommendationRanker builds a ranker with the given weights.
func NewRecommendationRanker(w RankWeights) *RecommendationRanker {
	return &RecommendationRanker{weights: w}
}

// Score compares the candidate against the viewer's profile.
func (r *RecommendationRanker) Score(viewer, candidate Profile) RankScore {
	return r.ScoreAt(time.Now(), viewer, candidate)
}

// ScoreAt is Score with an explicit reference time for age and
// recent-activity calculations.
func (r *RecommendationRanker) ScoreAt(now time.Time, viewer, candidate Profile) RankScore {
	b := map[string]float64{
		"location":     r.weights.Location * proximityFraction(viewer, candidate),
		"age":          r.weights.AgeProximity * ageProximityFraction(viewer.Age(now), candidate.Age(now)),
		"education":    r.weights.Education * educationFraction(viewer.Education, candidate.Education),
		"occupation":   r.weights.Occupation * occupationFraction(viewer.Occupation, candidate.Occupation),
		"culture":      r.weights.Culture * cultureFraction(viewer, candidate),
		"lifestyle":    r.weights.Lifestyle * lifestyleFraction(viewer, candidate),
		"completeness": r.weights.Completeness * completenessFraction(candidate),
		"activity":     r.weights.Activity * activityFraction(now, candidate.UpdatedAt),
	}
	total := 0.0
	for _, v := range b {
		total += v
	}
	return RankScore{Total: total, Breakdown: b}
}

// SortRecommendations orders results descending by total; ties break
// deterministically by candidate id ascending.
func SortRecommendations(recs []Recommendation) {
	sort.Slice(recs, func(i, j int) bool {
		if recs[i].Total != recs[j].Total {
			return recs[i].Total > recs[j].Total
		}
		return recs[i].UserID < recs[j].UserID
	})
}

func proximityFraction(a, b Profile) float64 {
	switch {
	case equalNonEmptyFold(a.City, b.City):
		return 1.0
	case equalNonEmptyFold(a.State, b.State):
		return 0.75
	case equalNonEmptyFold(a.Country, b.Country):
		return 0.5
	default:
		return 0.25
	}
}

// ageProximityFraction steps down on absolute year difference. Distinct
// policy from the preference-based linear age rule in compatibility.go.
func ageProximityFraction(viewerAge, candidateAge int) float64 {
	if viewerAge == 0 || candidateAge == 0 {
		return 0
	}
	switch diff := absInt(viewerAge - candidateAge); {
	case diff <= 2:
		return 1.0
	case diff <= 5:
		return 0.8
	case diff <= 8:
		return 0.6
	case diff <= 12:
		return 0.4
	case diff <= 15:
		return 0.2
	default:
		return 0
	}
}

func educationFraction(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	if strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b)) {
		return 1.0
	}
	switch absInt(educationBucket(a) - educationBucket(b)) {
	case 0:
		return 0.8
	case 1:
		return 0.6
	default:
		return 0.3
	}
}

func occupationFraction(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	if strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b)) {
		return 1.0
	}
	if occupationsRelated(a, b) {
		return 0.7
	}
	return 0.3
}

// cultureFraction blends religion, mother tongue and caste matches,
// caste at half the weight of the other two.
func cultureFraction(a, b Profile) float64 {
	const (
		religionShare = 0.4
		tongueShare   = 0.4
		casteShare    = 0.2
	)
	f := 0.0
	if equalNonEmptyFold(a.Religion, b.Religion) {
		f += religionShare
	}
	if equalNonEmptyFold(a.MotherTongue, b.MotherTongue) {
		f += tongueShare
	}
	if equalNonEmptyFold(a.Caste, b.Caste) {
		f += casteShare
	}
	return f
}

func lifestyleFraction(a, b Profile) float64 {
	f := 0.0
	if equalNonEmptyFold(a.Diet, b.Diet) {
		f += 0.5
	}
	if equalNonEmptyFold(a.FamilyType, b.FamilyType) {
		f += 0.5
	}
	return f
}

// completenessFraction is the filled share of the tracked profile
// attributes, photo presence included.
func completenessFraction(p Profile) float64 {
	filled := 0
	checks := []bool{
		!p.BirthDate.IsZero(),
		p.Gender != "",
		p.HeightCm > 0,
		p.MaritalStatus != "",
		p.Religion != "",
		p.Caste != "",
		p.MotherTongue != "",
		p.Education != "",
		p.Occupation != "",
		p.AnnualIncome > 0,
		p.City != "",
		p.AboutMe != "",
		p.FamilyType != "",
		p.Diet != "",
		p.PhotoCount > 0,
	}
	for _, ok := range checks {
		if ok {
			filled++
		}
	}
	return float64(filled) / float64(len(checks))
}

// activityFraction steps down on days since the profile was last
// updated.
func activityFraction(now time.Time, updatedAt time.Time) float64 {
	if updatedAt.IsZero() {
		return 0.1
	}
	days := int(now.Sub(updatedAt).Hours() / 24)
	switch {
	case days <= 7:
		return 1.0
	case days <= 30:
		return 0.7
	case days <= 90:
		return 0.4
	default:
		return 0.1
	}
}

func equalNonEmptyFold(a, b string) bool {
	a = strings.TrimSpace(a)
	b = strings.TrimSpace(b)
	return a != "" && b != "" && strings.EqualFold(a, b)
}
