package scanner

import (
	"io"

	"imagededup/engine"
	"imagededup/imageprocessor"
	"imagededup/logging"
)

// DuplicatesDirName is the folder, inside the scanned folder, that receives
// the duplicates.
const DuplicatesDirName = "duplicates"

// ScanOptions defines the options for scanning
type ScanOptions struct {
	FolderPath string
	Extensions []string
	// DuplicatesDir defaults to FolderPath/duplicates.
	DuplicatesDir string
	Threshold     int
	DryRun        bool

	Registry *imageprocessor.ImageLoaderRegistry
	Logger   *logging.Logger
	// Progress receives the progress bar. Nil hides it.
	Progress io.Writer
	// EngineOptions are passed to engine.New; the reporter is set here.
	EngineOptions []engine.Option
}

// ScanReport is what a scan found and did.
type ScanReport struct {
	Files  []string
	Result *engine.Result
	Moves  MoveStats
}
