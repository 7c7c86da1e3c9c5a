package database

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"montage/pkg/models"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// SaveProject stores snap under name, creating the project or replacing the
// content of the existing project with that name. It returns the project id.
func (db *Database) SaveProject(name string, fps float64, snap models.Snapshot) (string, error) {
	tx, err := db.conn.Begin()
	if err != nil {
		return "", err
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	var id string
	err = tx.QueryRow("SELECT id FROM projects WHERE name = ?", name).Scan(&id)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		id = uuid.NewString()
		_, err = tx.Exec(`
			INSERT INTO projects (id, name, fps, duration, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?)`, id, name, fps, snap.Duration, now, now)
	case err == nil:
		_, err = tx.Exec(`UPDATE projects SET fps = ?, duration = ?, updated_at = ? WHERE id = ?`,
			fps, snap.Duration, now, id)
		if err == nil {
			err = clearProject(tx, id)
		}
	}
	if err != nil {
		return "", fmt.Errorf("save project %q: %w", name, err)
	}

	if err := writeSnapshot(tx, id, snap); err != nil {
		return "", fmt.Errorf("save project %q: %w", name, err)
	}
	if err := tx.Commit(); err != nil {
		return "", err
	}

	db.logger.WithFields(logrus.Fields{
		"project": id,
		"name":    name,
		"tracks":  len(snap.Tracks),
		"clips":   len(snap.Clips),
	}).Info("Project saved")
	return id, nil
}

func clearProject(tx *sql.Tx, id string) error {
	for _, table := range []string{"project_tracks", "project_clips", "project_compositions", "project_groups"} {
		if _, err := tx.Exec("DELETE FROM "+table+" WHERE project_id = ?", id); err != nil {
			return err
		}
	}
	return nil
}

func writeSnapshot(tx *sql.Tx, id string, snap models.Snapshot) error {
	trackStmt, err := tx.Prepare(`INSERT INTO project_tracks (project_id, track_id, position) VALUES (?, ?, ?)`)
	if err != nil {
		return err
	}
	defer trackStmt.Close()
	for _, t := range snap.Tracks {
		if _, err := trackStmt.Exec(id, t.ID, t.Position); err != nil {
			return err
		}
	}

	clipStmt, err := tx.Prepare(`
		INSERT INTO project_clips (project_id, clip_id, source_id, track_id, position, in_point, playtime)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer clipStmt.Close()
	for _, c := range snap.Clips {
		if _, err := clipStmt.Exec(id, c.ID, c.SourceID, c.TrackID, c.Position, c.In, c.Playtime); err != nil {
			return err
		}
	}

	compoStmt, err := tx.Prepare(`
		INSERT INTO project_compositions (project_id, composition_id, kind, track_id, a_track, position, playtime)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer compoStmt.Close()
	for _, c := range snap.Compositions {
		if _, err := compoStmt.Exec(id, c.ID, c.Kind, c.TrackID, c.ATrack, c.Position, c.Playtime); err != nil {
			return err
		}
	}

	groupStmt, err := tx.Prepare(`INSERT INTO project_groups (project_id, group_id, child_id) VALUES (?, ?, ?)`)
	if err != nil {
		return err
	}
	defer groupStmt.Close()
	for _, g := range snap.Groups {
		for _, child := range g.Children {
			if _, err := groupStmt.Exec(id, g.ID, child); err != nil {
				return err
			}
		}
	}
	return nil
}

// GetProject looks a project up by id or name
func (db *Database) GetProject(ref string) (*models.Project, error) {
	var p models.Project
	err := db.getProjectStmt.QueryRow(ref, ref).Scan(
		&p.ID, &p.Name, &p.FPS, &p.Duration, &p.CreatedAt, &p.UpdatedAt, &p.Tracks, &p.Clips)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", ref, ErrProjectNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// LoadProject returns a project and its timeline snapshot
func (db *Database) LoadProject(ref string) (*models.Project, models.Snapshot, error) {
	project, err := db.GetProject(ref)
	if err != nil {
		return nil, models.Snapshot{}, err
	}
	snap := models.Snapshot{Duration: project.Duration}

	rows, err := db.conn.Query(`SELECT track_id, position FROM project_tracks WHERE project_id = ? ORDER BY position`, project.ID)
	if err != nil {
		return nil, snap, err
	}
	for rows.Next() {
		var t models.Track
		if err := rows.Scan(&t.ID, &t.Position); err != nil {
			rows.Close()
			return nil, snap, err
		}
		snap.Tracks = append(snap.Tracks, t)
	}
	rows.Close()

	rows, err = db.conn.Query(`
		SELECT clip_id, source_id, track_id, position, in_point, playtime
		FROM project_clips WHERE project_id = ? ORDER BY clip_id`, project.ID)
	if err != nil {
		return nil, snap, err
	}
	for rows.Next() {
		var c models.Clip
		if err := rows.Scan(&c.ID, &c.SourceID, &c.TrackID, &c.Position, &c.In, &c.Playtime); err != nil {
			rows.Close()
			return nil, snap, err
		}
		snap.Clips = append(snap.Clips, c)
	}
	rows.Close()

	rows, err = db.conn.Query(`
		SELECT composition_id, kind, track_id, a_track, position, playtime
		FROM project_compositions WHERE project_id = ? ORDER BY composition_id`, project.ID)
	if err != nil {
		return nil, snap, err
	}
	for rows.Next() {
		var c models.Composition
		if err := rows.Scan(&c.ID, &c.Kind, &c.TrackID, &c.ATrack, &c.Position, &c.Playtime); err != nil {
			rows.Close()
			return nil, snap, err
		}
		snap.Compositions = append(snap.Compositions, c)
	}
	rows.Close()

	rows, err = db.conn.Query(`
		SELECT group_id, child_id FROM project_groups
		WHERE project_id = ? ORDER BY group_id, child_id`, project.ID)
	if err != nil {
		return nil, snap, err
	}
	defer rows.Close()
	for rows.Next() {
		var gid, child int
		if err := rows.Scan(&gid, &child); err != nil {
			return nil, snap, err
		}
		if n := len(snap.Groups); n > 0 && snap.Groups[n-1].ID == gid {
			snap.Groups[n-1].Children = append(snap.Groups[n-1].Children, child)
			continue
		}
		snap.Groups = append(snap.Groups, models.Group{ID: gid, Children: []int{child}})
	}
	return project, snap, rows.Err()
}

// ListProjects returns all projects, most recently updated first
func (db *Database) ListProjects() ([]models.Project, error) {
	rows, err := db.conn.Query(`
		SELECT p.id, p.name, p.fps, p.duration, p.created_at, p.updated_at,
			(SELECT COUNT(*) FROM project_tracks t WHERE t.project_id = p.id),
			(SELECT COUNT(*) FROM project_clips c WHERE c.project_id = p.id)
		FROM projects p ORDER BY p.updated_at DESC, p.name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var projects []models.Project
	for rows.Next() {
		var p models.Project
		if err := rows.Scan(&p.ID, &p.Name, &p.FPS, &p.Duration, &p.CreatedAt, &p.UpdatedAt, &p.Tracks, &p.Clips); err != nil {
			return nil, err
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

// DeleteProject removes a project and its content
func (db *Database) DeleteProject(ref string) error {
	project, err := db.GetProject(ref)
	if err != nil {
		return err
	}

	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := clearProject(tx, project.ID); err != nil {
		return err
	}
	if _, err := tx.Exec("DELETE FROM projects WHERE id = ?", project.ID); err != nil {
		return err
	}
	return tx.Commit()
}
