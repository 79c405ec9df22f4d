package launcher

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	pspferrors "github.com/pspf/flavorpack/pkg/pspf/errors"
)

var slotPlaceholder = regexp.MustCompile(`\{slot:(\d+)\}`)

// substitutePlaceholders expands {workenv} and {slot:N} in s (§4.11).
// slotPaths maps a slot index to its extracted artifact's absolute path;
// a reference to an index missing from that map is a MissingSlot error.
func substitutePlaceholders(s, workenvRoot string, slotPaths map[int]string) (string, error) {
	s = strings.ReplaceAll(s, "{workenv}", workenvRoot)

	var outerErr error
	result := slotPlaceholder.ReplaceAllStringFunc(s, func(match string) string {
		idxStr := slotPlaceholder.FindStringSubmatch(match)[1]
		idx, err := strconv.Atoi(idxStr)
		if err != nil {
			outerErr = fmt.Errorf("%w: malformed slot reference %q", pspferrors.ErrBadPlaceholder, match)
			return match
		}
		path, ok := slotPaths[idx]
		if !ok {
			outerErr = fmt.Errorf("%w: slot %d", pspferrors.ErrMissingSlot, idx)
			return match
		}
		return path
	})
	if outerErr != nil {
		return "", outerErr
	}
	return result, nil
}

// substituteAll applies substitutePlaceholders across a command and its
// arguments, failing on the first unresolvable reference.
func substituteAll(command string, args []string, workenvRoot string, slotPaths map[int]string) (string, []string, error) {
	resolvedCmd, err := substitutePlaceholders(command, workenvRoot, slotPaths)
	if err != nil {
		return "", nil, err
	}
	resolvedArgs := make([]string, len(args))
	for i, a := range args {
		resolvedArgs[i], err = substitutePlaceholders(a, workenvRoot, slotPaths)
		if err != nil {
			return "", nil, err
		}
	}
	return resolvedCmd, resolvedArgs, nil
}
