package matchcore

import (
	"context"
	"database/sql"
	"errors"
)

// PGProfileStore is a reference ProfileStore over the same Postgres
// database. Production deployments usually point the orchestrator at
// their own profile service instead; this adapter exists for the seeder
// and for integrators who keep profiles alongside the ledger.
type PGProfileStore struct {
	db *sql.DB
}

// NewPGProfileStore wraps an open database handle.
func NewPGProfileStore(db *sql.DB) *PGProfileStore {
	return &PGProfileStore{db: db}
}

const profileColumns = `
	user_id, birth_date, gender, height_cm, weight_kg, marital_status,
	religion, caste, sub_caste, mother_tongue, education, occupation,
	annual_income, city, state, country, about_me, family_type,
	family_values, diet, photo_count, active, hidden, created_at, updated_at`

// GetProfile returns the user's profile or a NotFound error.
func (s *PGProfileStore) GetProfile(ctx context.Context, userID int) (Profile, error) {
	const op = "PGProfileStore.GetProfile"
	p, err := scanProfile(s.db.QueryRowContext(ctx,
		`SELECT `+profileColumns+` FROM profiles WHERE user_id = $1`, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return Profile{}, &DomainError{Kind: KindNotFound, Op: op, Reason: "profile not found", UserID: userID}
	}
	if err != nil {
		return Profile{}, internalErr(op, err)
	}
	return p, nil
}

// GetPreference returns the user's declared preference or a NotFound
// error.
func (s *PGProfileStore) GetPreference(ctx context.Context, userID int) (Preference, error) {
	const op = "PGProfileStore.GetPreference"
	var p Preference
	err := s.db.QueryRowContext(ctx, `
		SELECT user_id, age_min, age_max, height_min_cm, height_max_cm,
		       marital_status, religion, caste, sub_caste, mother_tongue,
		       education, occupation, income_min, income_max,
		       cities, states, countries, gender
		FROM preferences WHERE user_id = $1
	`, userID).Scan(
		&p.UserID, &p.AgeMin, &p.AgeMax, &p.HeightMinCm, &p.HeightMaxCm,
		&p.MaritalStatus, &p.Religion, &p.Caste, &p.SubCaste, &p.MotherTongue,
		&p.Education, &p.Occupation, &p.IncomeMin, &p.IncomeMax,
		&p.Cities, &p.States, &p.Countries, &p.Gender,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return Preference{}, &DomainError{Kind: KindNotFound, Op: op, Reason: "preference not found", UserID: userID}
	}
	if err != nil {
		return Preference{}, internalErr(op, err)
	}
	return p, nil
}

// ListActiveCandidates returns all active, non-hidden profiles
// excluding the given user.
func (s *PGProfileStore) ListActiveCandidates(ctx context.Context, excludeUserID int) ([]Profile, error) {
	const op = "PGProfileStore.ListActiveCandidates"
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+profileColumns+`
		FROM profiles
		WHERE active = TRUE AND hidden = FALSE AND user_id <> $1
		ORDER BY user_id
	`, excludeUserID)
	if err != nil {
		return nil, internalErr(op, err)
	}
	defer rows.Close()

	var out []Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, internalErr(op, err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// UpsertProfile writes a profile row. Used by the seeder; the engine
// itself never writes profiles.
func (s *PGProfileStore) UpsertProfile(ctx context.Context, p Profile) error {
	const op = "PGProfileStore.UpsertProfile"
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO profiles (
			user_id, birth_date, gender, height_cm, weight_kg, marital_status,
			religion, caste, sub_caste, mother_tongue, education, occupation,
			annual_income, city, state, country, about_me, family_type,
			family_values, diet, photo_count, active, hidden
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23)
		ON CONFLICT (user_id) DO UPDATE SET
			birth_date = EXCLUDED.birth_date,
			gender = EXCLUDED.gender,
			height_cm = EXCLUDED.height_cm,
			weight_kg = EXCLUDED.weight_kg,
			marital_status = EXCLUDED.marital_status,
			religion = EXCLUDED.religion,
			caste = EXCLUDED.caste,
			sub_caste = EXCLUDED.sub_caste,
			mother_tongue = EXCLUDED.mother_tongue,
			education = EXCLUDED.education,
			occupation = EXCLUDED.occupation,
			annual_income = EXCLUDED.annual_income,
			city = EXCLUDED.city,
			state = EXCLUDED.state,
			country = EXCLUDED.country,
			about_me = EXCLUDED.about_me,
			family_type = EXCLUDED.family_type,
			family_values = EXCLUDED.family_values,
			diet = EXCLUDED.diet,
			photo_count = EXCLUDED.photo_count,
			active = EXCLUDED.active,
			hidden = EXCLUDED.hidden,
			updated_at = now()
	`,
		p.UserID, p.BirthDate, p.Gender, p.HeightCm, p.WeightKg, p.MaritalStatus,
		p.Religion, p.Caste, p.SubCaste, p.MotherTongue, p.Education, p.Occupation,
		p.AnnualIncome, p.City, p.State, p.Country, p.AboutMe, p.FamilyType,
		p.FamilyValues, p.Diet, p.PhotoCount, p.Active, p.Hidden,
	)
	if err != nil {
		return internalErr(op, err)
	}
	return nil
}

// UpsertPreference writes a preference row. Seeder use only.
func (s *PGProfileStore) UpsertPreference(ctx context.Context, p Preference) error {
	const op = "PGProfileStore.UpsertPreference"
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO preferences (
			user_id, age_min, age_max, height_min_cm, height_max_cm,
			marital_status, religion, caste, sub_caste, mother_tongue,
			education, occupation, income_min, income_max,
			cities, states, countries, gender
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18)
		ON CONFLICT (user_id) DO UPDATE SET
			age_min = EXCLUDED.age_min,
			age_max = EXCLUDED.age_max,
			height_min_cm = EXCLUDED.height_min_cm,
			height_max_cm = EXCLUDED.height_max_cm,
			marital_status = EXCLUDED.marital_status,
			religion = EXCLUDED.religion,
			caste = EXCLUDED.caste,
			sub_caste = EXCLUDED.sub_caste,
			mother_tongue = EXCLUDED.mother_tongue,
			education = EXCLUDED.education,
			occupation = EXCLUDED.occupation,
			income_min = EXCLUDED.income_min,
			income_max = EXCLUDED.income_max,
			cities = EXCLUDED.cities,
			states = EXCLUDED.states,
			countries = EXCLUDED.countries,
			gender = EXCLUDED.gender
	`,
		p.UserID, p.AgeMin, p.AgeMax, p.HeightMinCm, p.HeightMaxCm,
		p.MaritalStatus, p.Religion, p.Caste, p.SubCaste, p.MotherTongue,
		p.Education, p.Occupation, p.IncomeMin, p.IncomeMax,
		p.Cities, p.States, p.Countries, p.Gender,
	)
	if err != nil {
		return internalErr(op, err)
	}
	return nil
}

// InitSchema creates the profile and preference tables. Safe to run
// repeatedly.
func (s *PGProfileStore) InitSchema(ctx context.Context) error {
	const op = "PGProfileStore.InitSchema"
	for _, stmt := range profileSchemaStatements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return internalErr(op, err)
		}
	}
	return nil
}

var profileSchemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS profiles (
		user_id        INTEGER PRIMARY KEY,
		birth_date     DATE,
		gender         TEXT NOT NULL DEFAULT '',
		height_cm      INTEGER NOT NULL DEFAULT 0,
		weight_kg      INTEGER NOT NULL DEFAULT 0,
		marital_status TEXT NOT NULL DEFAULT '',
		religion       TEXT NOT NULL DEFAULT '',
		caste          TEXT NOT NULL DEFAULT '',
		sub_caste      TEXT NOT NULL DEFAULT '',
		mother_tongue  TEXT NOT NULL DEFAULT '',
		education      TEXT NOT NULL DEFAULT '',
		occupation     TEXT NOT NULL DEFAULT '',
		annual_income  INTEGER NOT NULL DEFAULT 0,
		city           TEXT NOT NULL DEFAULT '',
		state          TEXT NOT NULL DEFAULT '',
		country        TEXT NOT NULL DEFAULT '',
		about_me       TEXT NOT NULL DEFAULT '',
		family_type    TEXT NOT NULL DEFAULT '',
		family_values  TEXT NOT NULL DEFAULT '',
		diet           TEXT NOT NULL DEFAULT '',
		photo_count    INTEGER NOT NULL DEFAULT 0,
		active         BOOLEAN NOT NULL DEFAULT TRUE,
		hidden         BOOLEAN NOT NULL DEFAULT FALSE,
		created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at     TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS preferences (
		user_id        INTEGER PRIMARY KEY,
		age_min        INTEGER NOT NULL DEFAULT 0,
		age_max        INTEGER NOT NULL DEFAULT 0,
		height_min_cm  INTEGER NOT NULL DEFAULT 0,
		height_max_cm  INTEGER NOT NULL DEFAULT 0,
		marital_status TEXT NOT NULL DEFAULT '',
		religion       TEXT NOT NULL DEFAULT '',
		caste          TEXT NOT NULL DEFAULT '',
		sub_caste      TEXT NOT NULL DEFAULT '',
		mother_tongue  TEXT NOT NULL DEFAULT '',
		education      TEXT NOT NULL DEFAULT '',
		occupation     TEXT NOT NULL DEFAULT '',
		income_min     INTEGER NOT NULL DEFAULT 0,
		income_max     INTEGER NOT NULL DEFAULT 0,
		cities         TEXT NOT NULL DEFAULT '',
		states         TEXT NOT NULL DEFAULT '',
		countries      TEXT NOT NULL DEFAULT '',
		gender         TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE INDEX IF NOT EXISTS profiles_active_idx ON profiles (active, hidden)`,
}

func scanProfile(r rowScanner) (Profile, error) {
	var p Profile
	var birth sql.NullTime
	err := r.Scan(
		&p.UserID, &birth, &p.Gender, &p.HeightCm, &p.WeightKg, &p.MaritalStatus,
		&p.Religion, &p.Caste, &p.SubCaste, &p.MotherTongue, &p.Education, &p.Occupation,
		&p.AnnualIncome, &p.City, &p.State, &p.Country, &p.AboutMe, &p.FamilyType,
		&p.FamilyValues, &p.Diet, &p.PhotoCount, &p.Active, &p.Hidden, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return Profile{}, err
	}
	if birth.Valid {
		p.BirthDate = birth.Time
	}
	return p, nil
}
