package sql

import (
	"database/sql"
	_ "embed"
	"fmt"
	"log"
)

//go:embed init.sql
var initSQL string

//go:embed files.sql
var filesSQL string

//go:embed search_chunks.sql
var searchChunksSQL string

// Function lists for verification
var FilesFunctions = []string{
	"init_files",
	"insert_file",
	"select_file",
	"select_file_by_filename",
	"select_all_files",
	"update_file_status",
	"update_file_counts",
	"delete_file",
}

var SearchChunksFunctions = []string{
	"init_search_chunks",
	"insert_search_chunk",
	"select_search_chunks_by_similarity",
	"select_search_chunks_by_hybrid",
	"delete_search_chunks_by_document",
	"count_search_chunks",
}

// Init intializes db extensions
func Init(db *sql.DB) error {
	_, err := db.Exec(initSQL)
	if err != nil {
		return fmt.Errorf("error executing schema SQL: %w", err)
	}

	log.Println("Database extensions initialized successfully")
	return nil
}

// LoadFilesSql loads the ingested files SQL functions
func LoadFilesSql(db *sql.DB, force bool) error {
	if !force {
		exist, err := checkFunctions(db, FilesFunctions)
		if err != nil {
			return fmt.Errorf("error checking existing files functions: %w", err)
		}
		if exist {
			return nil
		}
	}

	_, err := db.Exec(filesSQL)
	if err != nil {
		return fmt.Errorf("error executing files SQL: %w", err)
	}

	exist, err := checkFunctions(db, FilesFunctions)
	if err != nil {
		return fmt.Errorf("error checking existing functions: %w", err)
	}
	if !exist {
		return fmt.Errorf("not all required SQL functions were created")
	}

	log.Println("SQL files functions loaded successfully")
	return nil
}

// LoadSearchChunksSql loads the search chunk SQL functions
func LoadSearchChunksSql(db *sql.DB, force bool) error {
	if !force {
		exist, err := checkFunctions(db, SearchChunksFunctions)
		if err != nil {
			return fmt.Errorf("error checking existing search chunks functions: %w", err)
		}
		if exist {
			return nil
		}
	}

	_, err := db.Exec(searchChunksSQL)
	if err != nil {
		return fmt.Errorf("error executing search chunks SQL: %w", err)
	}

	exist, err := checkFunctions(db, SearchChunksFunctions)
	if err != nil {
		return fmt.Errorf("error checking existing functions: %w", err)
	}
	if !exist {
		return fmt.Errorf("not all required SQL functions were created")
	}

	log.Println("SQL search chunks functions loaded successfully")
	return nil
}

// LoadAllSql loads all SQL functions
func LoadAllSql(db *sql.DB, force bool) error {
	if err := LoadFilesSql(db, force); err != nil {
		return err
	}

	if err := LoadSearchChunksSql(db, force); err != nil {
		return err
	}

	return nil
}

// checkFunctions verifies that all required functions exist in the database
func checkFunctions(db *sql.DB, sqlFunctions []string) (bool, error) {
	var allExist bool
	for _, f := range sqlFunctions {
		err := db.QueryRow(
			`SELECT EXISTS(SELECT 1 FROM pg_proc WHERE proname = $1);`,
			f,
		).Scan(&allExist)
		if err != nil {
			return false, fmt.Errorf("error checking existence of function %s: %w", f, err)
		}
		if !allExist {
			log.Printf("Function %s does not exist", f)
			break
		}
	}
	return allExist, nil
}
