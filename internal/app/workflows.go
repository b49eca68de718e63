package app

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/MrKriegler/policy-admin/internal/core"
)

// LoadWorkflows registers every workflow definition under dir with the
// provider. <tenant>/<product>.json applies to all releases of a product,
// <tenant>/<product>/<release>.json to one release. It returns the number
// of definitions registered.
func LoadWorkflows(dir string, provider *core.ReleaseWorkflowProvider, log *slog.Logger) (int, error) {
	if dir == "" {
		return 0, nil
	}
	loaded := 0
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || filepath.Ext(path) != ".json" {
			return nil
		}

		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		parts := strings.Split(strings.TrimSuffix(filepath.ToSlash(rel), ".json"), "/")
		var tenantID, productID, releaseID string
		switch len(parts) {
		case 2:
			tenantID, productID = parts[0], parts[1]
		case 3:
			tenantID, productID, releaseID = parts[0], parts[1], parts[2]
		default:
			log.Warn("skipping workflow file outside tenant/product layout", "path", rel)
			return nil
		}

		wf, err := loadWorkflowFile(path)
		if err != nil {
			return fmt.Errorf("workflow %s: %w", rel, err)
		}
		provider.Register(tenantID, productID, releaseID, wf)
		loaded++
		log.Info("workflow registered", "tenant_id", tenantID, "product_id", productID, "release_id", releaseID)
		return nil
	})
	if err != nil {
		return loaded, fmt.Errorf("load workflows from %s: %w", dir, err)
	}
	return loaded, nil
}

func loadWorkflowFile(path string) (core.QuoteWorkflow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return core.LoadQuoteWorkflow(f)
}
