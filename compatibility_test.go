package matchcore

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScoreAge(t *testing.T) {
	tests := []struct {
		name  string
		age   int
		pref  Preference
		want  float64
		okay  bool
	}{
		{"no preference is neutral", 30, Preference{}, neutralScore, true},
		{"inside range", 30, Preference{AgeMin: 28, AgeMax: 35}, 100, true},
		{"at lower bound", 28, Preference{AgeMin: 28, AgeMax: 35}, 100, true},
		{"at upper bound", 35, Preference{AgeMin: 28, AgeMax: 35}, 100, true},
		{"two years under", 26, Preference{AgeMin: 28, AgeMax: 35}, 80, true},
		{"three years over", 38, Preference{AgeMin: 28, AgeMax: 35}, 70, true},
		{"far outside floors at zero", 50, Preference{AgeMin: 28, AgeMax: 35}, 0, true},
		{"only minimum set", 40, Preference{AgeMin: 28}, 100, true},
		{"unknown age not comparable", 0, Preference{AgeMin: 28, AgeMax: 35}, 0, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := scoreAge(tc.age, tc.pref)
			assert.Equal(t, tc.okay, ok)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestScoreLocation(t *testing.T) {
	pref := Preference{Cities: "Mumbai, Pune", States: "Maharashtra", Countries: "India"}

	tests := []struct {
		name      string
		candidate Profile
		want      float64
	}{
		{"preferred city", Profile{City: "Pune", State: "Goa", Country: "India"}, 100},
		{"city match is case insensitive", Profile{City: "  MUMBAI ", Country: "India"}, 100},
		{"preferred state only", Profile{City: "Nagpur", State: "Maharashtra", Country: "India"}, 75},
		{"preferred country only", Profile{City: "Chennai", State: "Tamil Nadu", Country: "India"}, 50},
		{"no overlap", Profile{City: "Dubai", State: "", Country: "UAE"}, 25},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := scoreLocation(tc.candidate, pref)
			require.True(t, ok)
			assert.Equal(t, tc.want, got)
		})
	}

	t.Run("no location preference not comparable", func(t *testing.T) {
		_, ok := scoreLocation(Profile{City: "Mumbai"}, Preference{})
		assert.False(t, ok)
	})
}

func TestScoreCaste(t *testing.T) {
	tests := []struct {
		name      string
		candidate Profile
		pref      Preference
		want      float64
	}{
		{"exact match", Profile{Caste: "Brahmin"}, Preference{Caste: "Brahmin"}, 100},
		{"sub-caste match", Profile{Caste: "Other", SubCaste: "Iyer"}, Preference{Caste: "Brahmin", SubCaste: "Iyer"}, 75},
		{"unspecified is neutral", Profile{}, Preference{Caste: "Brahmin"}, neutralScore},
		{"mismatch", Profile{Caste: "Rajput"}, Preference{Caste: "Brahmin"}, 25},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := scoreCaste(tc.candidate, tc.pref)
			require.True(t, ok)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestScoreEducation(t *testing.T) {
	tests := []struct {
		name      string
		candidate string
		pref      string
		want      float64
	}{
		{"exact match", "MBA", "MBA", 100},
		{"same bucket", "M.Tech", "MBA", 80},
		{"adjacent bucket", "B.Tech Computer Science", "Master of Science", 60},
		{"distant bucket", "High School", "PhD", 30},
		{"best over preference set", "B.Sc Physics", "PhD, bachelor", 80},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := scoreEducation(tc.candidate, tc.pref)
			require.True(t, ok)
			assert.Equal(t, tc.want, got)
		})
	}

	t.Run("missing either side not comparable", func(t *testing.T) {
		_, ok := scoreEducation("", "MBA")
		assert.False(t, ok)
		_, ok = scoreEducation("MBA", "")
		assert.False(t, ok)
	})
}

func TestScoreOccupation(t *testing.T) {
	tests := []struct {
		name      string
		candidate string
		pref      string
		want      float64
	}{
		{"exact match", "Software Engineer", "Software Engineer", 100},
		{"same group", "DevOps Engineer", "Data Scientist", 70},
		{"cross group", "Surgeon", "Lawyer", 30},
		{"related beats unrelated in set", "Dentist", "Lawyer, Doctor", 70},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := scoreOccupation(tc.candidate, tc.pref)
			require.True(t, ok)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestScoreMotherTongue(t *testing.T) {
	got, ok := scoreMotherTongue("Hindi", "hindi")
	require.True(t, ok)
	assert.Equal(t, 100.0, got)

	got, ok = scoreMotherTongue("Tamil", "Hindi")
	require.True(t, ok)
	assert.Equal(t, 20.0, got)

	_, ok = scoreMotherTongue("", "Hindi")
	assert.False(t, ok)
}

func TestCompatibilityScore(t *testing.T) {
	scorer := NewCompatibilityScorer(DefaultFactorWeights())

	base := func() Profile {
		return Profile{
			UserID:       10,
			BirthDate:    testNow.AddDate(-30, 0, -30),
			Religion:     "Hindu",
			Caste:        "Brahmin",
			MotherTongue: "Hindi",
			Education:    "B.Tech Computer Science",
			Occupation:   "Software Engineer",
			City:         "Mumbai",
			State:        "Maharashtra",
			Country:      "India",
		}
	}
	pref := Preference{
		AgeMin:       28,
		AgeMax:       35,
		Religion:     "Hindu",
		Caste:        "Brahmin",
		MotherTongue: "Hindi",
		Education:    "B.Tech Computer Science",
		Occupation:   "Software Engineer",
		Cities:       "Mumbai",
		States:       "Maharashtra",
		Countries:    "India",
	}

	t.Run("full alignment scores the maximum", func(t *testing.T) {
		got := scorer.ScoreAt(testNow, base(), pref)
		assert.Equal(t, 100.0, got)
	})

	t.Run("religion mismatch excludes outright", func(t *testing.T) {
		c := base()
		c.Religion = "Christian"
		assert.Equal(t, 0.0, scorer.ScoreAt(testNow, c, pref))
	})

	t.Run("closer candidate outranks a farther one", func(t *testing.T) {
		near := base()
		far := base()
		far.BirthDate = testNow.AddDate(-40, 0, -30)
		far.City = "Dubai"
		far.State = ""
		far.Country = "UAE"

		nearScore := scorer.ScoreAt(testNow, near, pref)
		farScore := scorer.ScoreAt(testNow, far, pref)
		assert.Greater(t, nearScore, farScore)
		assert.Greater(t, farScore, 0.0)
	})

	t.Run("empty profile against empty preference is excluded", func(t *testing.T) {
		assert.Equal(t, 0.0, scorer.ScoreAt(testNow, Profile{}, Preference{}))
	})

	t.Run("result stays within bounds", func(t *testing.T) {
		ages := []int{0, 18, 26, 30, 40, 60}
		cities := []string{"", "Mumbai", "Dubai"}
		religions := []string{"", "Hindu", "Christian"}
		for _, age := range ages {
			for _, city := range cities {
				for _, rel := range religions {
					c := base()
					if age == 0 {
						c.BirthDate = time.Time{}
					} else {
						c.BirthDate = testNow.AddDate(-age, 0, -30)
					}
					c.City = city
					c.Religion = rel
					got := scorer.ScoreAt(testNow, c, pref)
					label := fmt.Sprintf("age=%d city=%q religion=%q", age, city, rel)
					assert.GreaterOrEqual(t, got, 0.0, label)
					assert.LessOrEqual(t, got, 100.0, label)
				}
			}
		}
	})

	t.Run("order independence", func(t *testing.T) {
		a := base()
		b := base()
		b.UserID = 11
		b.City = "Pune"
		// Scoring one candidate never changes the result for another.
		first := scorer.ScoreAt(testNow, a, pref)
		_ = scorer.ScoreAt(testNow, b, pref)
		assert.Equal(t, first, scorer.ScoreAt(testNow, a, pref))
	})
}
