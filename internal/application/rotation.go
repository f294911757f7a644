package application

import (
	"regexp"
	"sort"

	"github.com/ericfisherdev/credpool/internal/domain/model"
)

var numberedAccountPattern = regexp.MustCompile(`^Account \d+$`)

// labelRank orders never-used credentials by account label. Lower ranks are
// handed out first: "Account 2", then "Account 1", then any other numbered
// account, then the primary account and any unrecognized label.
func labelRank(label string) int {
	switch {
	case label == model.NumberedAccountLabel(2):
		return 0
	case label == model.NumberedAccountLabel(1):
		return 1
	case numberedAccountPattern.MatchString(label):
		return 2
	default:
		return 3
	}
}

// OrderForRotation returns creds in the order they should be offered to
// callers. Credentials that were never used come first, ranked by account
// label; already-used credentials follow, least recently used first. Both
// sorts are stable, so ties keep the input (creation) order. The input slice is
// not modified.
func OrderForRotation(creds []model.Credential) []model.Credential {
	unused := make([]model.Credential, 0, len(creds))
	used := make([]model.Credential, 0, len(creds))
	for _, c := range creds {
		if c.Unused() {
			unused = append(unused, c)
		} else {
			used = append(used, c)
		}
	}

	sort.SliceStable(unused, func(i, j int) bool {
		return labelRank(unused[i].AccountLabel) < labelRank(unused[j].AccountLabel)
	})
	sort.SliceStable(used, func(i, j int) bool {
		return used[i].LastUsed.Before(*used[j].LastUsed)
	})

	return append(unused, used...)
}
