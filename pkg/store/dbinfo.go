package store

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

const dbInfoFileName = "dbinfo"

type databaseInfo struct {
	Engine string `toml:"databaseEngine"`
}

// DatabaseExists checks if the database folder exists and is not empty.
func DatabaseExists(dbPath string) (bool, error) {
	dir, err := os.Open(dbPath)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("unable to check database path (%s): %w", dbPath, err)
	}
	defer dir.Close() //nolint:errcheck // read-only directory handle

	// directory exists, but maybe database doesn't exist.
	// check if the directory is empty (needed for example in docker environments)
	_, err = dir.Readdirnames(1)
	if errors.Is(err, io.EOF) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("unable to check database path (%s): %w", dbPath, err)
	}
	return true, nil
}

// checkDatabaseEngine resolves the engine to open dbPath with. A "database
// info file" inside the folder pins the engine the database was created
// with, an explicitly requested engine has to match it.
func checkDatabaseEngine(dbPath string, o *options) (engine Engine, infoMissing bool, err error) {
	dbExists, err := DatabaseExists(dbPath)
	if err != nil {
		return EngineUnknown, false, err
	}
	if !dbExists && o.readOnly {
		return EngineUnknown, false, fmt.Errorf("%w (%s)", ErrDatabaseNotFound, dbPath)
	}

	dbInfoFilePath := filepath.Join(dbPath, dbInfoFileName)
	if _, err := os.Stat(dbInfoFilePath); err != nil {
		if !os.IsNotExist(err) {
			return EngineUnknown, false, fmt.Errorf("unable to check database info file (%s): %w", dbInfoFilePath, err)
		}
		return o.engine, true, nil
	}

	fromFile, err := LoadDatabaseEngineFromFile(dbInfoFilePath)
	if err != nil {
		return EngineUnknown, false, err
	}
	if o.engineSet && fromFile != o.engine {
		return EngineUnknown, false, fmt.Errorf("%w: '%v' != '%v'", ErrEngineMismatch, fromFile, o.engine)
	}
	return fromFile, false, nil
}

// LoadDatabaseEngineFromFile returns the engine from the "database info file".
func LoadDatabaseEngineFromFile(path string) (Engine, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return EngineUnknown, fmt.Errorf("unable to read database info file: %w", err)
	}

	var info databaseInfo
	if err := toml.Unmarshal(data, &info); err != nil {
		return EngineUnknown, fmt.Errorf("unable to parse database info file: %w", err)
	}
	return ParseEngine(info.Engine)
}

// storeDatabaseInfoToFile stores the used engine in a "database info file".
func storeDatabaseInfoToFile(dbPath string, engine Engine) error {
	if err := os.MkdirAll(dbPath, 0o700); err != nil {
		return fmt.Errorf("could not create database dir '%s': %w", dbPath, err)
	}

	data, err := toml.Marshal(&databaseInfo{Engine: string(engine)})
	if err != nil {
		return fmt.Errorf("unable to encode database info file: %w", err)
	}
	content := append([]byte("# auto-generated\n# !!! do not modify this file !!!\n"), data...)

	return os.WriteFile(filepath.Join(dbPath, dbInfoFileName), content, 0o660)
}
