package sql

import (
	"database/sql"
	_ "embed"
	"fmt"
	"log"
)

//go:embed init.sql
var initSQL string

//go:embed entities.sql
var entitiesSQL string

//go:embed relationships.sql
var relationshipsSQL string

//go:embed embeddings.sql
var embeddingsSQL string

// Function lists for verification
var EntitiesFunctions = []string{
	"init_code_entities",
	"merge_code_entity",
	"select_code_entity",
	"select_code_entities_by_file",
	"select_code_entity_neighborhoods",
	"select_all_code_entity_neighborhoods",
	"select_code_entity_counts",
	"delete_code_entity",
	"delete_code_entities_by_file",
}

var RelationshipsFunctions = []string{
	"init_code_relationships",
	"merge_code_relationship",
	"select_code_relationships_connected_to_entity",
	"select_code_relationship_counts",
	"delete_code_relationship",
}

var EmbeddingsFunctions = []string{
	"init_code_embeddings",
	"insert_code_embedding",
	"delete_all_code_embeddings",
	"select_all_code_embeddings",
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

// LoadEntitiesSql loads code entity SQL functions
func LoadEntitiesSql(db *sql.DB, force bool) error {
	return load(db, "entities", entitiesSQL, EntitiesFunctions, force)
}

// LoadRelationshipsSql loads code relationship SQL functions
func LoadRelationshipsSql(db *sql.DB, force bool) error {
	return load(db, "relationships", relationshipsSQL, RelationshipsFunctions, force)
}

// LoadEmbeddingsSql loads embedding SQL functions
func LoadEmbeddingsSql(db *sql.DB, force bool) error {
	return load(db, "embeddings", embeddingsSQL, EmbeddingsFunctions, force)
}

func load(db *sql.DB, name string, source string, functions []string, force bool) error {
	if !force {
		exist, err := checkFunctions(db, functions)
		if err != nil {
			return fmt.Errorf("error checking existing %s functions: %w", name, err)
		}
		if exist {
			return nil
		}
	}

	_, err := db.Exec(source)
	if err != nil {
		return fmt.Errorf("error executing %s SQL: %w", name, err)
	}

	exist, err := checkFunctions(db, functions)
	if err != nil {
		return fmt.Errorf("error checking existing functions: %w", err)
	}
	if !exist {
		return fmt.Errorf("not all required %s SQL functions were created", name)
	}

	log.Printf("SQL %s functions loaded successfully", name)
	return nil
}

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
