package database

import (
	"time"

	"montage/pkg/models"
)

// UpsertSource records a media source, replacing any previous entry with
// the same id.
func (db *Database) UpsertSource(s models.Source) error {
	_, err := db.upsertSourceStmt.Exec(s.ID, s.Title, s.Artist, s.Album, s.Format, s.Length, s.FilePath, s.FileSize, time.Now().UTC())
	if err != nil {
		db.logger.WithError(err).WithField("source", s.ID).Error("Failed to store source")
	}
	return err
}

func (db *Database) RemoveSource(id string) error {
	_, err := db.removeSourceStmt.Exec(id)
	return err
}

// GetAllSources returns the catalog ordered by id
func (db *Database) GetAllSources() ([]models.Source, error) {
	rows, err := db.conn.Query(`
		SELECT id, title, artist, album, format, length, file_path, file_size
		FROM sources ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sources []models.Source
	for rows.Next() {
		var s models.Source
		if err := rows.Scan(&s.ID, &s.Title, &s.Artist, &s.Album, &s.Format, &s.Length, &s.FilePath, &s.FileSize); err != nil {
			return nil, err
		}
		sources = append(sources, s)
	}
	return sources, rows.Err()
}
