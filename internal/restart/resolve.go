package restart

import (
	"sort"

	"jobmedic/internal/failure"
)

// Resolve returns the names of the targets that may be resubmitted as
// endpoints, sorted.
//
// Every failed target seeds one of two sets together with all of its
// transitive dependents: restartable when its failure type is recoverable,
// non-restartable otherwise. The result is restartable minus
// non-restartable, so a target reachable from any non-recoverable failure is
// excluded even when a recoverable failure also reaches it.
//
// dependents may contain cycles; the walk visits each name at most once per
// set and does not recurse.
func Resolve(dependents map[string][]string, failures map[string]failure.Type) []string {
	restartable := make(map[string]struct{})
	nonRestartable := make(map[string]struct{})

	for _, name := range sortedFailures(failures) {
		if failures[name].Recoverable() {
			Closure(dependents, name, restartable)
		} else {
			Closure(dependents, name, nonRestartable)
		}
	}

	out := make([]string, 0, len(restartable))
	for name := range restartable {
		if _, excluded := nonRestartable[name]; excluded {
			continue
		}
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Closure adds start and every target transitively depending on it to acc.
// Names already in acc are not expanded again. It returns the number of
// names it added.
func Closure(dependents map[string][]string, start string, acc map[string]struct{}) int {
	if _, seen := acc[start]; seen {
		return 0
	}
	acc[start] = struct{}{}
	added := 1

	stack := []string{start}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		for _, d := range dependents[n] {
			if _, seen := acc[d]; seen {
				continue
			}
			acc[d] = struct{}{}
			added++
			stack = append(stack, d)
		}
	}
	return added
}

func sortedFailures(failures map[string]failure.Type) []string {
	names := make([]string, 0, len(failures))
	for n := range failures {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
