// Package paths defines where the sleuth tools read and write data, relative
// to a project root.
package paths

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	OutputDir      = "datasets_ibm"
	DistillDir     = "distill_ibm"
	GraniteLCoTDir = "granite_longcot_data"
	DomainSeedDir  = "domain_seed_ibm"
	MetadataDir    = "rits_metadata"
)

// Layout holds the resolved data folders for one project root.
type Layout struct {
	Root        string
	Output      string
	Distill     string
	GraniteLCoT string
	DomainSeed  string
	Metadata    string
}

func New(root string) Layout {
	return Layout{
		Root:        root,
		Output:      filepath.Join(root, OutputDir),
		Distill:     filepath.Join(root, DistillDir),
		GraniteLCoT: filepath.Join(root, GraniteLCoTDir),
		DomainSeed:  filepath.Join(root, DomainSeedDir),
		Metadata:    filepath.Join(root, MetadataDir),
	}
}

// Ensure creates the given directories if they do not exist.
func Ensure(dirs ...string) error {
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	return nil
}
