package matchcore

import (
	"strings"
	"time"
)

// FactorWeights is the immutable weight configuration for the
// compatibility scorer. Weights are relative; the weighted average
// renormalizes over whichever factors were actually comparable.
type FactorWeights struct {
	Age          float64
	Location     float64
	Religion     float64
	Caste        float64
	Education    float64
	Occupation   float64
	MotherTongue float64
}

// DefaultFactorWeights returns the standard production weight set.
func DefaultFactorWeights() FactorWeights {
	return FactorWeights{
		Age:          0.20,
		Location:     0.15,
		Religion:     0.25,
		Caste:        0.10,
		Education:    0.15,
		Occupation:   0.05,
		MotherTongue: 0.10,
	}
}

// agePenaltyPerYear is the linear penalty applied for every year a
// candidate falls outside the preferred age range.
const agePenaltyPerYear = 10.0

// neutralScore is used when a factor applies but neither side expressed
// a usable constraint.
const neutralScore = 50.0

// CompatibilityScorer scores a candidate profile against a viewer's
// declared preference. It is a pure function over its inputs: no
// persistence, no ordering dependence, safe for concurrent use.
type CompatibilityScorer struct {
	weights FactorWeights
}

// NewCompatibilityScorer builds a scorer with the given weights. Zero
// or negative weights disable their factor.
func NewCompatibilityScorer(w FactorWeights) *CompatibilityScorer {
	return &CompatibilityScorer{weights: w}
}

// Score returns the candidate's compatibility against the preference in
// [0,100], 0 meaning excluded.
func (s *CompatibilityScorer) Score(candidate Profile, pref Preference) float64 {
	return s.ScoreAt(time.Now(), candidate, pref)
}

// ScoreAt is Score with an explicit reference time for age calculation.
func (s *CompatibilityScorer) ScoreAt(now time.Time, candidate Profile, pref Preference) float64 {
	type factor struct {
		weight float64
		score  float64
		ok     bool
	}

	// Religion is a hard gate: a stated preference that the candidate
	// does not meet excludes the candidate outright.
	religionScore, religionOK := scoreReligion(candidate, pref)
	if religionOK && religionScore == 0 {
		return 0
	}

	ageScore, ageOK := scoreAge(candidate.Age(now), pref)
	locScore, locOK := scoreLocation(candidate, pref)
	casteScore, casteOK := scoreCaste(candidate, pref)
	eduScore, eduOK := scoreEducation(candidate.Education, pref.Education)
	occScore, occOK := scoreOccupation(candidate.Occupation, pref.Occupation)
	tongueScore, tongueOK := scoreMotherTongue(candidate.MotherTongue, pref.MotherTongue)

	factors := []factor{
		{s.weights.Age, ageScore, ageOK},
		{s.weights.Location, locScore, locOK},
		{s.weights.Religion, religionScore, religionOK},
		{s.weights.Caste, casteScore, casteOK},
		{s.weights.Education, eduScore, eduOK},
		{s.weights.Occupation, occScore, occOK},
		{s.weights.MotherTongue, tongueScore, tongueOK},
	}

	var sum, weightSum float64
	for _, f := range factors {
		if !f.ok || f.weight <= 0 {
			continue
		}
		sum += f.weight * f.score
		weightSum += f.weight
	}
	if weightSum == 0 {
		// Nothing comparable at all: excluded rather than guessed.
		return 0
	}
	return clampScore(sum / weightSum)
}

func clampScore(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

// scoreAge: inside [min,max] scores 100, outside loses
// agePenaltyPerYear per year past the nearer bound, floored at 0.
// No preference set scores the neutral default.
func scoreAge(age int, pref Preference) (float64, bool) {
	if age == 0 {
		// Candidate birth date unknown: factor not comparable.
		return 0, false
	}
	if pref.AgeMin == 0 && pref.AgeMax == 0 {
		return neutralScore, true
	}
	yearsOut := 0
	switch {
	case pref.AgeMin > 0 && age < pref.AgeMin:
		yearsOut = pref.AgeMin - age
	case pref.AgeMax > 0 && age > pref.AgeMax:
		yearsOut = age - pref.AgeMax
	default:
		return 100, true
	}
	score := 100 - agePenaltyPerYear*float64(yearsOut)
	if score < 0 {
		score = 0
	}
	return score, true
}

// scoreLocation: preferred city 100, state 75, country 50, else 25.
func scoreLocation(candidate Profile, pref Preference) (float64, bool) {
	cities := SplitSet(pref.Cities)
	states := SplitSet(pref.States)
	countries := SplitSet(pref.Countries)
	if len(cities) == 0 && len(states) == 0 && len(countries) == 0 {
		return 0, false
	}
	if inSet(candidate.City, cities) {
		return 100, true
	}
	if inSet(candidate.State, states) {
		return 75, true
	}
	if inSet(candidate.Country, countries) {
		return 50, true
	}
	return 25, true
}

// scoreReligion: exact match 100, else 0. The caller treats 0 as a hard
// gate over the whole score.
func scoreReligion(candidate Profile, pref Preference) (float64, bool) {
	if pref.Religion == "" || candidate.Religion == "" {
		return 0, false
	}
	if strings.EqualFold(strings.TrimSpace(candidate.Religion), strings.TrimSpace(pref.Religion)) {
		return 100, true
	}
	return 0, true
}

// scoreCaste: exact 100, sub-caste-only 75, unspecified on either side
// neutral, otherwise 25.
func scoreCaste(candidate Profile, pref Preference) (float64, bool) {
	if pref.Caste == "" || candidate.Caste == "" {
		return neutralScore, true
	}
	if strings.EqualFold(strings.TrimSpace(candidate.Caste), strings.TrimSpace(pref.Caste)) {
		return 100, true
	}
	if pref.SubCaste != "" && candidate.SubCaste != "" &&
		strings.EqualFold(strings.TrimSpace(candidate.SubCaste), strings.TrimSpace(pref.SubCaste)) {
		return 75, true
	}
	return 25, true
}

// Education buckets, coarsest to finest degree level.
const (
	eduBelowGraduate = iota
	eduGraduate
	eduPostGraduate
	eduDoctorate
)

var educationBuckets = []struct {
	bucket   int
	keywords []string
}{
	{eduDoctorate, []string{"phd", "ph.d", "doctorate", "doctoral", "post doc"}},
	{eduPostGraduate, []string{"master", "post graduate", "post-graduate", "mba", "m.tech", "mtech", "m.sc", "msc", "mca", "m.com", "pgdm"}},
	{eduGraduate, []string{"bachelor", "graduate", "b.tech", "btech", "b.e", "b.sc", "bsc", "bca", "b.com", "bba", "degree", "engineering"}},
}

func educationBucket(s string) int {
	s = strings.ToLower(s)
	for _, b := range educationBuckets {
		for _, kw := range b.keywords {
			if strings.Contains(s, kw) {
				return b.bucket
			}
		}
	}
	return eduBelowGraduate
}

// scoreEducation: exact string match 100; otherwise bucket the two
// values by keyword containment and score by bucket distance.
func scoreEducation(candidateEdu, prefEdu string) (float64, bool) {
	prefs := SplitSet(prefEdu)
	if candidateEdu == "" || len(prefs) == 0 {
		return 0, false
	}
	candBucket := educationBucket(candidateEdu)
	best := 0.0
	for _, p := range prefs {
		if strings.EqualFold(strings.TrimSpace(candidateEdu), p) {
			return 100, true
		}
		var score float64
		switch diff := absInt(candBucket - educationBucket(p)); diff {
		case 0:
			score = 80
		case 1:
			score = 60
		default:
			score = 30
		}
		if score > best {
			best = score
		}
	}
	return best, true
}

// Curated occupation similarity groups; membership on both sides counts
// as a near match.
var occupationGroups = map[string][]string{
	"tech":       {"software", "engineer", "developer", "programmer", "it professional", "data", "devops"},
	"medical":    {"doctor", "physician", "surgeon", "dentist", "nurse", "pharmacist", "medical"},
	"business":   {"business", "entrepreneur", "manager", "sales", "marketing", "consultant"},
	"finance":    {"accountant", "banker", "finance", "auditor", "analyst", "chartered"},
	"education":  {"teacher", "professor", "lecturer", "tutor", "academic"},
	"government": {"government", "civil service", "officer", "police", "defence", "army", "navy"},
	"creative":   {"designer", "artist", "writer", "journalist", "photographer", "media"},
	"legal":      {"lawyer", "advocate", "legal", "judge"},
}

func occupationsRelated(a, b string) bool {
	a = strings.ToLower(a)
	b = strings.ToLower(b)
	for _, group := range occupationGroups {
		aIn, bIn := false, false
		for _, kw := range group {
			if strings.Contains(a, kw) {
				aIn = true
			}
			if strings.Contains(b, kw) {
				bIn = true
			}
		}
		if aIn && bIn {
			return true
		}
	}
	return false
}

// scoreOccupation: exact 100, same similarity group 70, else 30.
func scoreOccupation(candidateOcc, prefOcc string) (float64, bool) {
	prefs := SplitSet(prefOcc)
	if candidateOcc == "" || len(prefs) == 0 {
		return 0, false
	}
	best := 30.0
	for _, p := range prefs {
		if strings.EqualFold(strings.TrimSpace(candidateOcc), p) {
			return 100, true
		}
		if occupationsRelated(candidateOcc, p) && best < 70 {
			best = 70
		}
	}
	return best, true
}

// scoreMotherTongue: exact 100 else 20.
func scoreMotherTongue(candidateTongue, prefTongue string) (float64, bool) {
	if candidateTongue == "" || prefTongue == "" {
		return 0, false
	}
	if strings.EqualFold(strings.TrimSpace(candidateTongue), strings.TrimSpace(prefTongue)) {
		return 100, true
	}
	return 20, true
}

func inSet(v string, set []string) bool {
	v = strings.ToLower(strings.TrimSpace(v))
	if v == "" {
		return false
	}
	for _, s := range set {
		if v == s {
			return true
		}
	}
	return false
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
