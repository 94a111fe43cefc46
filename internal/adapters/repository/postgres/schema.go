package postgres

// schema creates the tables used by Store. Statements are idempotent.
const schema = `
CREATE TABLE IF NOT EXISTS rubrics (
	id            TEXT PRIMARY KEY,
	challenge_id  TEXT NOT NULL,
	nombre        TEXT NOT NULL,
	escala_minima DOUBLE PRECISION NOT NULL,
	escala_maxima DOUBLE PRECISION NOT NULL,
	porcentaje    DOUBLE PRECISION NOT NULL
);
CREATE INDEX IF NOT EXISTS rubrics_challenge_idx ON rubrics (challenge_id);

CREATE TABLE IF NOT EXISTS submissions (
	id            TEXT PRIMARY KEY,
	team_id       TEXT NOT NULL,
	challenge_id  TEXT NOT NULL,
	status        TEXT NOT NULL,
	created_at    TIMESTAMPTZ NOT NULL,
	puntaje_final DOUBLE PRECISION
);
CREATE INDEX IF NOT EXISTS submissions_challenge_team_idx ON submissions (challenge_id, team_id);

CREATE TABLE IF NOT EXISTS evaluations (
	id            TEXT PRIMARY KEY,
	rubric_id     TEXT NOT NULL REFERENCES rubrics (id),
	team_id       TEXT NOT NULL,
	submission_id TEXT NOT NULL DEFAULT '',
	juez_id       TEXT NOT NULL,
	calificacion  DOUBLE PRECISION NOT NULL,
	comentarios   TEXT NOT NULL DEFAULT '',
	created_at    TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS evaluations_rubric_team_idx ON evaluations (rubric_id, team_id);
`
