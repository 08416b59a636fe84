// Package citation maps [Source N] markers in generated text back to the
// retrieved passages of the same call.
package citation

import (
	"regexp"
	"strconv"

	"github.com/AbdulwahidHusein/LawChat/internal/domain"
)

var markerRe = regexp.MustCompile(`\[Source (\d+)\]`)

// Citation ties one marker occurrence to the passage it references. Index is
// the 1-based position within the source list the answer was generated
// against; markers are never resolved across calls.
type Citation struct {
	Index  int
	Source domain.RetrievedSource
}

// Resolve extracts every distinct [Source N] marker from answer and resolves
// it against sources, in order of first appearance. Markers whose index
// falls outside the list are returned separately as unresolved.
func Resolve(answer string, sources []domain.RetrievedSource) (cited []Citation, unresolved []int) {
	seen := map[int]bool{}
	for _, m := range markerRe.FindAllStringSubmatch(answer, -1) {
		n, err := strconv.Atoi(m[1])
		if err != nil || seen[n] {
			continue
		}
		seen[n] = true
		if n < 1 || n > len(sources) {
			unresolved = append(unresolved, n)
			continue
		}
		cited = append(cited, Citation{Index: n, Source: sources[n-1]})
	}
	return cited, unresolved
}
