package launcher

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/hashicorp/go-hclog"

	"github.com/pspf/flavorpack/pkg/pspf/format"
)

// applyEnvPolicy builds the child's environment from parentEnv (the
// "KEY=value" slice the launcher itself runs with) according to policy,
// processing unset → pass → set → map in that order (§4.11). `pass` reads
// from parentEnv itself rather than the in-progress result, so a variable
// cleared by `unset "*"` can still be restored by a later `pass` entry.
func applyEnvPolicy(parentEnv []string, policy format.EnvPolicy, logger hclog.Logger) []string {
	parentMap := envToMap(parentEnv)
	result := envToMap(parentEnv)

	applyUnset(result, policy.Unset, logger)
	applyPass(result, parentMap, policy.Pass, logger)
	applySet(result, policy.Set, logger)
	applyMap(result, policy.Map, logger)

	out := make([]string, 0, len(result))
	for k, v := range result {
		out = append(out, fmt.Sprintf("%s=%s", k, v))
	}
	return out
}

func envToMap(env []string) map[string]string {
	m := make(map[string]string, len(env))
	for _, e := range env {
		if k, v, ok := strings.Cut(e, "="); ok {
			m[k] = v
		}
	}
	return m
}

func applyUnset(result map[string]string, patterns []string, logger hclog.Logger) {
	for _, pattern := range patterns {
		if pattern == "*" {
			for k := range result {
				delete(result, k)
			}
			logger.Debug("unset: cleared entire environment")
			continue
		}
		for k := range result {
			if matches(pattern, k) {
				delete(result, k)
				logger.Trace("unset", "key", k, "pattern", pattern)
			}
		}
	}
}

func applyPass(result, parent map[string]string, patterns []string, logger hclog.Logger) {
	for _, pattern := range patterns {
		matched := false
		for k, v := range parent {
			if matches(pattern, k) {
				result[k] = v
				matched = true
				logger.Trace("pass", "key", k, "pattern", pattern)
			}
		}
		if !matched {
			logger.Debug("pass pattern matched nothing", "pattern", pattern)
		}
	}
}

func applySet(result map[string]string, sets map[string]string, logger hclog.Logger) {
	for k, v := range sets {
		result[k] = v
		logger.Trace("set", "key", k)
	}
}

func applyMap(result map[string]string, renames map[string]string, logger hclog.Logger) {
	for from, to := range renames {
		v, ok := result[from]
		if !ok {
			continue
		}
		result[to] = v
		if to != from {
			delete(result, from)
		}
		logger.Trace("map", "from", from, "to", to)
	}
}

// matches reports whether key matches pattern, treating pattern as a glob
// (filepath.Match) when it contains '*' or '?', and as an exact name
// otherwise.
func matches(pattern, key string) bool {
	if strings.ContainsAny(pattern, "*?") {
		ok, _ := filepath.Match(pattern, key)
		return ok
	}
	return pattern == key
}
