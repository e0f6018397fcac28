package sqlite

const schemaSQL = `
-- Normalized job listings. Immutable after insert.
CREATE TABLE IF NOT EXISTS jobs (
	id TEXT PRIMARY KEY,
	site_id TEXT NOT NULL,
	title TEXT NOT NULL,
	company TEXT NOT NULL,
	location TEXT NOT NULL,
	country TEXT NOT NULL,
	url TEXT NOT NULL,
	salary TEXT,
	description TEXT,
	requirements TEXT,
	posted_date TEXT,
	scraped_at INTEGER NOT NULL,
	run_id TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_jobs_run ON jobs(run_id);
CREATE INDEX IF NOT EXISTS idx_jobs_site ON jobs(site_id, scraped_at DESC);
CREATE INDEX IF NOT EXISTS idx_jobs_company ON jobs(company);

-- Prior-seen hashes; the hash is the job id. Inserted exactly once.
CREATE TABLE IF NOT EXISTS seen_jobs (
	hash TEXT PRIMARY KEY,
	first_seen_at INTEGER NOT NULL
);

-- LLM match scores. One row per job for the lifetime of the store.
CREATE TABLE IF NOT EXISTS scores (
	job_id TEXT PRIMARY KEY,
	score INTEGER NOT NULL CHECK (score BETWEEN 0 AND 100),
	reasoning TEXT NOT NULL,
	provider TEXT NOT NULL,
	scored_at INTEGER NOT NULL,
	FOREIGN KEY (job_id) REFERENCES jobs(id)
);

-- Tailored resume records. One row per job.
CREATE TABLE IF NOT EXISTS resumes (
	job_id TEXT PRIMARY KEY,
	html_path TEXT NOT NULL,
	pdf_path TEXT NOT NULL,
	verified INTEGER NOT NULL DEFAULT 0,
	verification_issues TEXT NOT NULL DEFAULT '[]',
	generated_at INTEGER NOT NULL,
	run_id TEXT NOT NULL,
	FOREIGN KEY (job_id) REFERENCES jobs(id)
);

-- Application tracking, created in 'matched' state by the pipeline
CREATE TABLE IF NOT EXISTS applications (
	id TEXT PRIMARY KEY,
	job_id TEXT NOT NULL UNIQUE,
	company TEXT NOT NULL,
	role TEXT NOT NULL,
	country TEXT NOT NULL,
	applied_date INTEGER,
	resume_version TEXT,
	status TEXT NOT NULL,
	status_updated INTEGER NOT NULL,
	notes TEXT,
	source_site TEXT NOT NULL,
	FOREIGN KEY (job_id) REFERENCES jobs(id)
);

CREATE INDEX IF NOT EXISTS idx_applications_company ON applications(company, status_updated DESC);

-- Append-only user feedback
CREATE TABLE IF NOT EXISTS feedback (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	job_id TEXT NOT NULL,
	score INTEGER NOT NULL,
	action TEXT NOT NULL,
	reason TEXT,
	timestamp INTEGER NOT NULL,
	FOREIGN KEY (job_id) REFERENCES jobs(id)
);

CREATE INDEX IF NOT EXISTS idx_feedback_job ON feedback(job_id, timestamp DESC);

-- Pipeline run history with aggregate statistics as JSON
CREATE TABLE IF NOT EXISTS pipeline_runs (
	run_id TEXT PRIMARY KEY,
	started_at INTEGER NOT NULL,
	completed_at INTEGER,
	status TEXT NOT NULL,
	stats_json TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_runs_started ON pipeline_runs(started_at DESC);

-- Notification routing outcomes. One row per job.
CREATE TABLE IF NOT EXISTS notifications (
	job_id TEXT PRIMARY KEY,
	channel TEXT NOT NULL,
	telegram_sent INTEGER NOT NULL DEFAULT 0,
	sent_at INTEGER NOT NULL,
	run_id TEXT NOT NULL,
	FOREIGN KEY (job_id) REFERENCES jobs(id)
);

-- Small operational state (feedback poll cursor)
CREATE TABLE IF NOT EXISTS key_value_store (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL,
	updated_at INTEGER NOT NULL
);
`

// InitSchema initializes the database schema
func (s *SQLiteDB) InitSchema() error {
	if _, err := s.db.Exec(schemaSQL); err != nil {
		return err
	}
	s.logger.Debug().Msg("Database schema initialized")
	return nil
}
