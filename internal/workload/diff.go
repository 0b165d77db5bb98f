package workload

import (
	"strconv"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// dumpLines renders values one per line.
func dumpLines(values []int) string {
	var builder strings.Builder

	for _, value := range values {
		builder.WriteString(strconv.Itoa(value))
		builder.WriteByte('\n')
	}

	return builder.String()
}

// lineDiff returns the changed lines between expected and actual, prefixed
// with "-" for lines only in expected and "+" for lines only in actual.
// Unchanged lines are omitted.
func lineDiff(expected, actual string) string {
	dmp := diffmatchpatch.New()
	src, dst, lines := dmp.DiffLinesToRunes(expected, actual)
	diffs := dmp.DiffCharsToLines(dmp.DiffMainRunes(src, dst, false), lines)

	var builder strings.Builder

	for _, diff := range diffs {
		var prefix string

		switch diff.Type {
		case diffmatchpatch.DiffDelete:
			prefix = "-"
		case diffmatchpatch.DiffInsert:
			prefix = "+"
		case diffmatchpatch.DiffEqual:
			continue
		}

		for line := range strings.SplitSeq(diff.Text, "\n") {
			if line == "" {
				continue
			}

			builder.WriteString(prefix)
			builder.WriteString(line)
			builder.WriteByte('\n')
		}
	}

	return builder.String()
}
