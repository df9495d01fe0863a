package fixturegen

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/okian/scoreboard/internal/adapters/repository"
	"github.com/okian/scoreboard/pkg/logger"
)

const yamlIndent = 2

// SaveFixture writes f as YAML and returns the file name used. An empty
// OutputFile picks a timestamped name in the working directory.
func SaveFixture(ctx context.Context, config *Config, f *repository.Fixture) (string, error) {
	if f == nil || len(f.Contests) == 0 {
		return "", fmt.Errorf("no contests to save")
	}

	filename := config.OutputFile
	if filename == "" {
		filename = "fixture_" + time.Now().Format("20060102_150405") + ".yaml"
	}

	if dir := filepath.Dir(filename); dir != "." {
		if err := os.MkdirAll(dir, directoryPerm); err != nil {
			return "", fmt.Errorf("failed to create directory: %w", err)
		}
	}

	file, err := os.OpenFile(filename, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, filePerm)
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}
	defer func() {
		if err := file.Close(); err != nil {
			logger.Get().Error(context.Background(), "failed to close file", logger.Error(err))
		}
	}()

	enc := yaml.NewEncoder(file)
	enc.SetIndent(yamlIndent)
	if err := enc.Encode(f); err != nil {
		return "", fmt.Errorf("failed to encode fixture: %w", err)
	}
	if err := enc.Close(); err != nil {
		return "", fmt.Errorf("failed to flush fixture: %w", err)
	}

	logger.Get().Info(ctx, "fixture saved to file", logger.String("filename", filename))
	return filename, nil
}
