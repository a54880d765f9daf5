package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

// LoadEnv loads environment variables from a .env file. Variables already set
// in the process environment win over the file.
//
// Search order (stops at the first file found):
//  1. Explicit paths passed as arguments.
//  2. Directory of the running executable and up to three parents.
//  3. Current working directory, for `go run ./cmd/pocketflow`.
//
// It returns the file that was loaded, or "" when the process environment is used as is.
func LoadEnv(logger *zap.Logger, paths ...string) string {
	if logger == nil {
		logger = zap.L()
	}
	logger = logger.With(zap.String("component", "config"))

	if len(paths) > 0 {
		if err := godotenv.Load(paths...); err != nil {
			logger.Info("no .env file at specified path(s), using system environment variables",
				zap.Strings("paths", paths))
			return ""
		}
		return paths[0]
	}

	candidates := resolveEnvCandidates()
	for _, p := range candidates {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			logger.Warn("failed to load .env", zap.String("path", p), zap.Error(err))
			return ""
		}
		logger.Info("loaded .env", zap.String("path", p))
		return p
	}

	logger.Debug("no .env file found, using system environment variables",
		zap.Strings("searched", candidates))
	return ""
}

// resolveEnvCandidates returns the ordered list of .env paths to probe.
func resolveEnvCandidates() []string {
	var candidates []string
	seen := map[string]bool{}

	add := func(p string) {
		p = filepath.Clean(p)
		if !seen[p] {
			seen[p] = true
			candidates = append(candidates, p)
		}
	}

	// bin/pocketflow finds the project-root .env without extra flags.
	if exe, err := os.Executable(); err == nil {
		if real, err := filepath.EvalSymlinks(exe); err == nil {
			exe = real
		}
		dir := filepath.Dir(exe)
		for i := 0; i <= 3; i++ {
			add(filepath.Join(dir, ".env"))
			parent := filepath.Dir(dir)
			if parent == dir {
				break
			}
			dir = parent
		}
	}

	if cwd, err := os.Getwd(); err == nil {
		add(filepath.Join(cwd, ".env"))
	}

	return candidates
}

// EnvFilePath describes where .env will be loaded from, for startup messages.
func EnvFilePath() string {
	for _, p := range resolveEnvCandidates() {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return fmt.Sprintf("(not found; searched %v)", resolveEnvCandidates())
}
