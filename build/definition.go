package build

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"cssel/misc"
	"cssel/state"
	"cssel/stylesheet"
)

// prepareDefinition reads and parses a stylesheet definition and sets up its
// work directory. The raw input is preserved there when a report is requested.
func prepareDefinition(ctx context.Context, r io.Reader, srcName string, log *zap.Logger) (*stylesheet.Definition, string, error) {
	if err := ctx.Err(); err != nil {
		return nil, "", err
	}
	env := state.EnvFromContext(ctx)

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, "", fmt.Errorf("unable to read definition: %w", err)
	}

	def, err := stylesheet.LoadDefinition(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("unable to parse definition: %w", err)
	}

	// Make sure definition ID is not empty and is valid UUID
	if _, err := uuid.Parse(def.ID); err != nil {
		refID, err := uuid.NewV7()
		if err != nil {
			return nil, "", fmt.Errorf("unable to generate new definition UUID: %w", err)
		}
		if len(def.ID) == 0 {
			log.Debug("Definition has no ID, assigning", zap.Stringer("id", refID))
		} else {
			log.Warn("Definition has invalid ID, correcting", zap.String("old_id", def.ID), zap.Stringer("new_id", refID))
		}
		def.ID = refID.String()
	}

	tmpDir, err := os.MkdirTemp("", misc.GetAppName()+"-")
	if err != nil {
		return nil, "", fmt.Errorf("unable to create temporary directory: %w", err)
	}
	env.Rpt.Store(fmt.Sprintf("%s-%s", misc.GetAppName(), def.ID), tmpDir)

	// Save input for debugging
	if env.Rpt != nil {
		if err := os.WriteFile(filepath.Join(tmpDir, filepath.Base(srcName)), data, 0644); err != nil {
			return nil, "", fmt.Errorf("unable to write input definition for debugging: %w", err)
		}
	}

	return def, tmpDir, nil
}
