package diff

import (
	"strings"

	"github.com/procledger/procledger/internal/models"
)

// TextDiff computes a word-level diff between two strings. Both inputs are
// tokenized on whitespace; the longest common subsequence of the token
// arrays anchors the unchanged runs, and everything else is emitted as
// removed (from a) or added (from b) segments in order. The result is a
// human-reviewable before/after stream, not a minimal edit script.
func TextDiff(a, b string) []models.TextSegment {
	tokensA := strings.Fields(a)
	tokensB := strings.Fields(b)

	if len(tokensA) == 0 && len(tokensB) == 0 {
		return nil
	}

	common := lcs(tokensA, tokensB)

	var segments []models.TextSegment

	appendRun := func(kind models.TextSegmentKind, tokens []string) {
		if len(tokens) == 0 {
			return
		}

		text := strings.Join(tokens, " ")
		if n := len(segments); n > 0 && segments[n-1].Kind == kind {
			segments[n-1].Text += " " + text

			return
		}

		segments = append(segments, models.TextSegment{Kind: kind, Text: text})
	}

	i, j := 0, 0

	for _, anchor := range common {
		var removed, added []string

		for i < len(tokensA) && tokensA[i] != anchor {
			removed = append(removed, tokensA[i])
			i++
		}

		for j < len(tokensB) && tokensB[j] != anchor {
			added = append(added, tokensB[j])
			j++
		}

		appendRun(models.TextRemoved, removed)
		appendRun(models.TextAdded, added)
		appendRun(models.TextUnchanged, []string{anchor})
		i++
		j++
	}

	appendRun(models.TextRemoved, tokensA[i:])
	appendRun(models.TextAdded, tokensB[j:])

	return segments
}

// lcs returns the longest common subsequence of two token slices using the
// classic O(n*m) dynamic programming table with backtracking.
func lcs(a, b []string) []string {
	n, m := len(a), len(b)
	if n == 0 || m == 0 {
		return nil
	}

	table := make([][]int, n+1)
	for i := range table {
		table[i] = make([]int, m+1)
	}

	for i := 1; i <= n; i++ {
		for j := 1; j <= m; j++ {
			if a[i-1] == b[j-1] {
				table[i][j] = table[i-1][j-1] + 1
			} else if table[i-1][j] >= table[i][j-1] {
				table[i][j] = table[i-1][j]
			} else {
				table[i][j] = table[i][j-1]
			}
		}
	}

	out := make([]string, 0, table[n][m])

	for i, j := n, m; i > 0 && j > 0; {
		switch {
		case a[i-1] == b[j-1]:
			out = append(out, a[i-1])
			i--
			j--
		case table[i-1][j] >= table[i][j-1]:
			i--
		default:
			j--
		}
	}

	// Backtracking emits in reverse order.
	for l, r := 0, len(out)-1; l < r; l, r = l+1, r-1 {
		out[l], out[r] = out[r], out[l]
	}

	return out
}
