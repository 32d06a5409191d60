package db

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/Authority98/feedo-sub000/internal/api"
	"github.com/Authority98/feedo-sub000/internal/models"
	"github.com/Authority98/feedo-sub000/internal/services"
)

const profileTypeCacheSize = 128

// SQLiteStore persists profile types and answer documents as JSON rows.
// Profile types are read on every section load and progress report, so they
// sit behind a small LRU that schema writes invalidate.
type SQLiteStore struct {
	db    *sql.DB
	cache *lru.Cache[string, *models.ProfileType]
}

func NewSQLiteStore(db *sql.DB) (*SQLiteStore, error) {
	if db == nil {
		return nil, errors.New("nil db")
	}
	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
	}
	for _, stmt := range pragmas {
		if _, err := db.Exec(stmt); err != nil {
			return nil, fmt.Errorf("apply sqlite pragma %q: %w", stmt, err)
		}
	}
	cache, err := lru.New[string, *models.ProfileType](profileTypeCacheSize)
	if err != nil {
		return nil, err
	}
	return &SQLiteStore{db: db, cache: cache}, nil
}

func NewStore(db *sql.DB) (api.Store, error) {
	return NewSQLiteStore(db)
}

func (s *SQLiteStore) logErr(prefix string, err error) {
	if err != nil {
		log.Printf("sqlite store: %s: %v", prefix, err)
	}
}

func nowStamp() string { return time.Now().UTC().Format(time.RFC3339Nano) }

func toNullString(v string) sql.NullString {
	if strings.TrimSpace(v) == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: v, Valid: true}
}

func decodeProfileType(data string) *models.ProfileType {
	var pt models.ProfileType
	if err := json.Unmarshal([]byte(data), &pt); err != nil {
		log.Printf("sqlite store: decode profile type: %v", err)
		return nil
	}
	return &pt
}

func decodeAnswerDoc(sectionID, data string, version int64) *models.SectionAnswerDocument {
	var doc models.SectionAnswerDocument
	if err := json.Unmarshal([]byte(data), &doc); err != nil {
		log.Printf("sqlite store: decode answers: %v", err)
		return nil
	}
	// the row is authoritative for id and version
	doc.ID = sectionID
	doc.Version = version
	return &doc
}

// --- Profile types ---

func (s *SQLiteStore) AddProfileType(pt *models.ProfileType) {
	if pt == nil || strings.TrimSpace(pt.ID) == "" {
		return
	}
	data, err := json.Marshal(pt)
	if err != nil {
		s.logErr("AddProfileType encode", err)
		return
	}
	_, err = s.db.Exec(`INSERT INTO profile_types (id, data, updated_at) VALUES (?, ?, ?)
      ON CONFLICT(id) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		pt.ID, string(data), nowStamp())
	if err != nil {
		s.logErr("AddProfileType insert", err)
		return
	}
	s.cache.Add(pt.ID, pt)
}

func (s *SQLiteStore) GetProfileType(id string) *models.ProfileType {
	if strings.TrimSpace(id) == "" {
		return nil
	}
	if pt, ok := s.cache.Get(id); ok {
		return pt
	}
	var data string
	err := s.db.QueryRow(`SELECT data FROM profile_types WHERE id = ?`, id).Scan(&data)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			s.logErr("GetProfileType", err)
		}
		return nil
	}
	pt := decodeProfileType(data)
	if pt != nil {
		s.cache.Add(id, pt)
	}
	return pt
}

func (s *SQLiteStore) ListProfileTypes() []*models.ProfileType {
	rows, err := s.db.Query(`SELECT data FROM profile_types ORDER BY id ASC`)
	if err != nil {
		s.logErr("ListProfileTypes", err)
		return nil
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			s.logErr("ListProfileTypes rows.Close", cerr)
		}
	}()
	out := []*models.ProfileType{}
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			s.logErr("ListProfileTypes scan", err)
			continue
		}
		if pt := decodeProfileType(data); pt != nil {
			out = append(out, pt)
		}
	}
	if err := rows.Err(); err != nil {
		s.logErr("ListProfileTypes rows.Err", err)
	}
	return out
}

func (s *SQLiteStore) UpdateProfileType(pt *models.ProfileType) bool {
	if pt == nil || strings.TrimSpace(pt.ID) == "" {
		return false
	}
	data, err := json.Marshal(pt)
	if err != nil {
		s.logErr("UpdateProfileType encode", err)
		return false
	}
	res, err := s.db.Exec(`UPDATE profile_types SET data = ?, updated_at = ? WHERE id = ?`,
		string(data), nowStamp(), pt.ID)
	if err != nil {
		s.logErr("UpdateProfileType", err)
		return false
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return false
	}
	s.cache.Add(pt.ID, pt)
	return true
}

func (s *SQLiteStore) DeleteProfileType(id string) bool {
	res, err := s.db.Exec(`DELETE FROM profile_types WHERE id = ?`, id)
	if err != nil {
		s.logErr("DeleteProfileType", err)
		return false
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return false
	}
	s.cache.Remove(id)
	return true
}

// --- Section answers ---

func (s *SQLiteStore) GetSectionAnswers(userID, sectionID string) *models.SectionAnswerDocument {
	if strings.TrimSpace(userID) == "" || strings.TrimSpace(sectionID) == "" {
		return nil
	}
	var (
		data    string
		version int64
	)
	err := s.db.QueryRow(`SELECT data, version FROM section_answers WHERE user_id = ? AND section_id = ?`,
		userID, sectionID).Scan(&data, &version)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			s.logErr("GetSectionAnswers", err)
		}
		return nil
	}
	return decodeAnswerDoc(sectionID, data, version)
}

func (s *SQLiteStore) PutSectionAnswers(userID string, doc *models.SectionAnswerDocument, expectedVersion int64) (*models.SectionAnswerDocument, bool) {
	if doc == nil || strings.TrimSpace(userID) == "" || strings.TrimSpace(doc.ID) == "" {
		return nil, false
	}
	tx, err := s.db.Begin()
	if err != nil {
		s.logErr("PutSectionAnswers begin", err)
		return nil, false
	}
	defer func() { _ = tx.Rollback() }()

	var current int64
	err = tx.QueryRow(`SELECT version FROM section_answers WHERE user_id = ? AND section_id = ?`,
		userID, doc.ID).Scan(&current)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		s.logErr("PutSectionAnswers read version", err)
		return nil, false
	}
	if expectedVersion != current {
		return nil, false
	}
	stored := *doc
	stored.Version = current + 1
	data, err := json.Marshal(&stored)
	if err != nil {
		s.logErr("PutSectionAnswers encode", err)
		return nil, false
	}
	_, err = tx.Exec(`INSERT INTO section_answers (user_id, section_id, profile_type, data, version, updated_at)
      VALUES (?, ?, ?, ?, ?, ?)
      ON CONFLICT(user_id, section_id) DO UPDATE SET
        profile_type = excluded.profile_type,
        data = excluded.data,
        version = excluded.version,
        updated_at = excluded.updated_at`,
		userID, stored.ID, stored.ProfileType, string(data), stored.Version, nowStamp())
	if err != nil {
		s.logErr("PutSectionAnswers upsert", err)
		return nil, false
	}
	if err := tx.Commit(); err != nil {
		s.logErr("PutSectionAnswers commit", err)
		return nil, false
	}
	return &stored, true
}

func (s *SQLiteStore) ListSectionAnswers(userID string) map[string]*models.SectionAnswerDocument {
	out := map[string]*models.SectionAnswerDocument{}
	if strings.TrimSpace(userID) == "" {
		return out
	}
	rows, err := s.db.Query(`SELECT section_id, data, version FROM section_answers WHERE user_id = ?`, userID)
	if err != nil {
		s.logErr("ListSectionAnswers", err)
		return out
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			s.logErr("ListSectionAnswers rows.Close", cerr)
		}
	}()
	for rows.Next() {
		var (
			sectionID, data string
			version         int64
		)
		if err := rows.Scan(&sectionID, &data, &version); err != nil {
			s.logErr("ListSectionAnswers scan", err)
			continue
		}
		if doc := decodeAnswerDoc(sectionID, data, version); doc != nil {
			out[sectionID] = doc
		}
	}
	if err := rows.Err(); err != nil {
		s.logErr("ListSectionAnswers rows.Err", err)
	}
	return out
}

// RenameAnswerSections lifts affected rows out, rewrites their section ids
// and reinserts them inside one transaction, so even swapped ids cannot
// collide on the primary key mid-move.
func (s *SQLiteStore) RenameAnswerSections(profileTypeID string, mappings map[string]string) int {
	if len(mappings) == 0 {
		return 0
	}
	tx, err := s.db.Begin()
	if err != nil {
		s.logErr("RenameAnswerSections begin", err)
		return 0
	}
	defer func() { _ = tx.Rollback() }()

	type movedRow struct {
		userID  string
		newID   string
		doc     *models.SectionAnswerDocument
		version int64
	}
	var moves []movedRow
	for oldID, newID := range mappings {
		rows, err := tx.Query(`SELECT user_id, data, version FROM section_answers
          WHERE profile_type = ? AND section_id = ?`, profileTypeID, oldID)
		if err != nil {
			s.logErr("RenameAnswerSections select", err)
			return 0
		}
		for rows.Next() {
			var (
				userID, data string
				version      int64
			)
			if err := rows.Scan(&userID, &data, &version); err != nil {
				s.logErr("RenameAnswerSections scan", err)
				continue
			}
			if doc := decodeAnswerDoc(oldID, data, version); doc != nil {
				moves = append(moves, movedRow{userID: userID, newID: newID, doc: doc, version: version})
			}
		}
		if cerr := rows.Close(); cerr != nil {
			s.logErr("RenameAnswerSections rows.Close", cerr)
		}
		if err := rows.Err(); err != nil {
			s.logErr("RenameAnswerSections rows.Err", err)
			return 0
		}
		if _, err := tx.Exec(`DELETE FROM section_answers WHERE profile_type = ? AND section_id = ?`,
			profileTypeID, oldID); err != nil {
			s.logErr("RenameAnswerSections delete", err)
			return 0
		}
	}
	for _, m := range moves {
		m.doc.ID = m.newID
		data, err := json.Marshal(m.doc)
		if err != nil {
			s.logErr("RenameAnswerSections encode", err)
			return 0
		}
		if _, err := tx.Exec(`INSERT INTO section_answers (user_id, section_id, profile_type, data, version, updated_at)
          VALUES (?, ?, ?, ?, ?, ?)`,
			m.userID, m.newID, profileTypeID, string(data), m.version, nowStamp()); err != nil {
			s.logErr("RenameAnswerSections insert", err)
			return 0
		}
	}
	if err := tx.Commit(); err != nil {
		s.logErr("RenameAnswerSections commit", err)
		return 0
	}
	return len(moves)
}

func (s *SQLiteStore) PurgeAnswerSections(profileTypeID string, keep map[string]bool) int {
	rows, err := s.db.Query(`SELECT DISTINCT section_id FROM section_answers WHERE profile_type = ?`, profileTypeID)
	if err != nil {
		s.logErr("PurgeAnswerSections select", err)
		return 0
	}
	var orphans []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			s.logErr("PurgeAnswerSections scan", err)
			continue
		}
		if !keep[id] {
			orphans = append(orphans, id)
		}
	}
	if cerr := rows.Close(); cerr != nil {
		s.logErr("PurgeAnswerSections rows.Close", cerr)
	}
	if err := rows.Err(); err != nil {
		s.logErr("PurgeAnswerSections rows.Err", err)
		return 0
	}
	removed := 0
	for _, id := range orphans {
		res, err := s.db.Exec(`DELETE FROM section_answers WHERE profile_type = ? AND section_id = ?`,
			profileTypeID, id)
		if err != nil {
			s.logErr("PurgeAnswerSections delete", err)
			continue
		}
		n, _ := res.RowsAffected()
		removed += int(n)
	}
	return removed
}

// --- Users ---

func (s *SQLiteStore) AddUser(u *models.User) {
	if u == nil {
		return
	}
	created := u.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}
	_, err := s.db.Exec(`INSERT INTO users (id, email, pass_hash, created_at) VALUES (?, ?, ?, ?)`,
		u.ID, u.Email, u.PassHash, created.Format(time.RFC3339Nano))
	s.logErr("AddUser", err)
}

func (s *SQLiteStore) FindUserByEmail(email string) *models.User {
	if strings.TrimSpace(email) == "" {
		return nil
	}
	var (
		u       models.User
		created string
	)
	err := s.db.QueryRow(`SELECT id, email, pass_hash, created_at FROM users WHERE email = ?`, email).
		Scan(&u.ID, &u.Email, &u.PassHash, &created)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			s.logErr("FindUserByEmail", err)
		}
		return nil
	}
	if t, perr := time.Parse(time.RFC3339Nano, created); perr == nil {
		u.CreatedAt = t
	}
	return &u
}

// --- Audit log ---

func (s *SQLiteStore) AddAudit(e services.AuditEntry) {
	ts := e.Time
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	_, err := s.db.Exec(`INSERT INTO audit_log (ts, actor, action, target, note) VALUES (?, ?, ?, ?, ?)`,
		ts.Format(time.RFC3339Nano), e.Actor, e.Action, toNullString(e.Target), toNullString(e.Note))
	s.logErr("AddAudit", err)
}

func (s *SQLiteStore) ListAudit() []services.AuditEntry {
	rows, err := s.db.Query(`SELECT ts, actor, action, target, note FROM audit_log ORDER BY id DESC LIMIT 500`)
	if err != nil {
		s.logErr("ListAudit", err)
		return nil
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			s.logErr("ListAudit rows.Close", cerr)
		}
	}()
	out := []services.AuditEntry{}
	for rows.Next() {
		var (
			e            services.AuditEntry
			ts           string
			target, note sql.NullString
		)
		if err := rows.Scan(&ts, &e.Actor, &e.Action, &target, &note); err != nil {
			s.logErr("ListAudit scan", err)
			continue
		}
		if t, perr := time.Parse(time.RFC3339Nano, ts); perr == nil {
			e.Time = t
		}
		e.Target = target.String
		e.Note = note.String
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		s.logErr("ListAudit rows.Err", err)
	}
	return out
}

var _ api.Store = (*SQLiteStore)(nil)
