package database

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/anuj67851/graph-rag-metadata/helper"
	"github.com/anuj67851/graph-rag-metadata/model"
	"github.com/anuj67851/graph-rag-metadata/sql"
)

// FilesDBHandlerFunctions defines the interface for ingested file metadata operations.
type FilesDBHandlerFunctions interface {
	InsertFile(file *model.IngestedFile) error
	SelectFile(id int) (*model.IngestedFile, error)
	SelectFileByFilename(filename string) (*model.IngestedFile, error)
	SelectAllFiles() ([]*model.IngestedFile, error)
	UpdateFileStatus(filename string, status model.FileStatus, errorMessage string) (*model.IngestedFile, error)
	UpdateFileCounts(filename string, chunkCount int, entitiesAdded int, relationshipsAdded int) (*model.IngestedFile, error)
	DeleteFile(filename string) (bool, error)
}

// FilesDBHandler handles ingested file metadata database operations
type FilesDBHandler struct {
	db *helper.Database
}

// NewFilesDBHandler creates a new files database handler.
// It initializes the database connection and loads file-related SQL functions.
// If force is true, it will reload the SQL functions even if they already exist.
func NewFilesDBHandler(db *helper.Database, force bool) (*FilesDBHandler, error) {
	if db == nil {
		return nil, helper.NewError("database connection validation", fmt.Errorf("database connection is nil"))
	}

	filesDbHandler := &FilesDBHandler{
		db: db,
	}

	err := sql.LoadFilesSql(filesDbHandler.db.Instance, force)
	if err != nil {
		return nil, helper.NewError("load files sql", err)
	}

	err = filesDbHandler.CreateTable()
	if err != nil {
		return nil, helper.NewError("create table", err)
	}

	db.Logger.Info("Initialized FilesDBHandler")

	return filesDbHandler, nil
}

// CreateTable creates the 'files' table in the database.
// If the table already exists, it does not create it again.
// It also creates all necessary indexes.
func (h *FilesDBHandler) CreateTable() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Use the SQL init() function to create all tables and indexes
	_, err := h.db.Instance.ExecContext(ctx, `SELECT init_files();`)
	if err != nil {
		log.Panicf("error initializing files table: %#v", err)
	}

	h.db.Logger.Info("Checked/created table files")

	return nil
}

// InsertFile upserts a file record by filename.
// Re-inserting a known filename resets status and counters for a fresh ingestion run.
func (h *FilesDBHandler) InsertFile(file *model.IngestedFile) error {
	row := h.db.Instance.QueryRow(
		`SELECT * FROM insert_file($1, $2, $3)`,
		file.Filename,
		file.Filepath,
		file.Filesize,
	)

	err := row.Scan(
		&file.ID,
		&file.RID,
		&file.Filename,
		&file.Filepath,
		&file.Filesize,
		&file.Status,
		&file.IngestedAt,
		&file.ChunkCount,
		&file.EntitiesAdded,
		&file.RelationshipsAdded,
		&file.ErrorMessage,
	)
	if err != nil {
		return helper.NewError("scan", err)
	}

	return nil
}

// SelectFile retrieves a file record by ID
func (h *FilesDBHandler) SelectFile(id int) (*model.IngestedFile, error) {
	file := &model.IngestedFile{}
	row := h.db.Instance.QueryRow(
		`SELECT * FROM select_file($1)`,
		id,
	)

	err := row.Scan(
		&file.ID,
		&file.RID,
		&file.Filename,
		&file.Filepath,
		&file.Filesize,
		&file.Status,
		&file.IngestedAt,
		&file.ChunkCount,
		&file.EntitiesAdded,
		&file.RelationshipsAdded,
		&file.ErrorMessage,
	)
	if err != nil {
		return nil, helper.NewError("scan", err)
	}

	return file, nil
}

// SelectFileByFilename retrieves a file record by its unique filename
func (h *FilesDBHandler) SelectFileByFilename(filename string) (*model.IngestedFile, error) {
	file := &model.IngestedFile{}
	row := h.db.Instance.QueryRow(
		`SELECT * FROM select_file_by_filename($1)`,
		filename,
	)

	err := row.Scan(
		&file.ID,
		&file.RID,
		&file.Filename,
		&file.Filepath,
		&file.Filesize,
		&file.Status,
		&file.IngestedAt,
		&file.ChunkCount,
		&file.EntitiesAdded,
		&file.RelationshipsAdded,
		&file.ErrorMessage,
	)
	if err != nil {
		return nil, helper.NewError("scan", err)
	}

	return file, nil
}

// SelectAllFiles retrieves all file records, newest first
func (h *FilesDBHandler) SelectAllFiles() ([]*model.IngestedFile, error) {
	rows, err := h.db.Instance.Query(
		`SELECT * FROM select_all_files()`,
	)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	var files []*model.IngestedFile
	for rows.Next() {
		file := &model.IngestedFile{}
		err := rows.Scan(
			&file.ID,
			&file.RID,
			&file.Filename,
			&file.Filepath,
			&file.Filesize,
			&file.Status,
			&file.IngestedAt,
			&file.ChunkCount,
			&file.EntitiesAdded,
			&file.RelationshipsAdded,
			&file.ErrorMessage,
		)
		if err != nil {
			return nil, helper.NewError("scan", err)
		}

		files = append(files, file)
	}

	err = rows.Err()
	if err != nil {
		return nil, helper.NewError("rows error", err)
	}

	return files, nil
}

// UpdateFileStatus updates the ingestion status and error message of a file
func (h *FilesDBHandler) UpdateFileStatus(filename string, status model.FileStatus, errorMessage string) (*model.IngestedFile, error) {
	file := &model.IngestedFile{}
	row := h.db.Instance.QueryRow(
		`SELECT * FROM update_file_status($1, $2, $3)`,
		filename,
		string(status),
		errorMessage,
	)

	err := row.Scan(
		&file.ID,
		&file.RID,
		&file.Filename,
		&file.Filepath,
		&file.Filesize,
		&file.Status,
		&file.IngestedAt,
		&file.ChunkCount,
		&file.EntitiesAdded,
		&file.RelationshipsAdded,
		&file.ErrorMessage,
	)
	if err != nil {
		return nil, helper.NewError("scan", err)
	}

	return file, nil
}

// UpdateFileCounts updates the ingestion result counters of a file
func (h *FilesDBHandler) UpdateFileCounts(filename string, chunkCount int, entitiesAdded int, relationshipsAdded int) (*model.IngestedFile, error) {
	file := &model.IngestedFile{}
	row := h.db.Instance.QueryRow(
		`SELECT * FROM update_file_counts($1, $2, $3, $4)`,
		filename,
		chunkCount,
		entitiesAdded,
		relationshipsAdded,
	)

	err := row.Scan(
		&file.ID,
		&file.RID,
		&file.Filename,
		&file.Filepath,
		&file.Filesize,
		&file.Status,
		&file.IngestedAt,
		&file.ChunkCount,
		&file.EntitiesAdded,
		&file.RelationshipsAdded,
		&file.ErrorMessage,
	)
	if err != nil {
		return nil, helper.NewError("scan", err)
	}

	return file, nil
}

// DeleteFile deletes a file record by filename.
// Returns whether a record was deleted.
func (h *FilesDBHandler) DeleteFile(filename string) (bool, error) {
	var deleted bool
	err := h.db.Instance.QueryRow(
		`SELECT delete_file($1)`,
		filename,
	).Scan(&deleted)
	if err != nil {
		return false, helper.NewError("scan", err)
	}

	return deleted, nil
}
