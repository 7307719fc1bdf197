package cardmap

import (
	"os"
	"path/filepath"

	"github.com/goccy/go-yaml"

	"github.com/rewardsense/cardmap/pkg/errors"
	"github.com/rewardsense/cardmap/pkg/reconcile"
)

// Artifact file names written by SaveResult.
const (
	CatalogFile    = "catalog.yaml"
	AuditFile      = "audit.yaml"
	ProvenanceFile = "provenance.yaml"
)

// SaveResult writes a run's artifacts into dir: the catalog, the audit
// log, and the provenance map when tracking was enabled. The directory
// is created if missing.
func SaveResult(result *reconcile.Result, dir string) error {
	if result == nil {
		return errors.New("result cannot be nil")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.WrapIO("mkdir", dir, err)
	}

	if err := result.Catalog.Save(filepath.Join(dir, CatalogFile)); err != nil {
		return err
	}
	if err := result.Audit.Save(filepath.Join(dir, AuditFile)); err != nil {
		return err
	}

	if len(result.Provenance) > 0 {
		path := filepath.Join(dir, ProvenanceFile)
		data, err := yaml.Marshal(result.Provenance)
		if err != nil {
			return errors.WrapParse("yaml", path, err)
		}
		if err := os.WriteFile(path, data, 0o600); err != nil {
			return errors.WrapIO("write", path, err)
		}
	}
	return nil
}
