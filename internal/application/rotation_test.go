package application_test

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"

	"github.com/ericfisherdev/credpool/internal/application"
	"github.com/ericfisherdev/credpool/internal/domain/model"
)

func cred(id int64, label string, lastUsed *time.Time) model.Credential {
	return model.Credential{ID: id, Value: "sk-" + label, Decrypted: true, AccountLabel: label, LastUsed: lastUsed}
}

func ids(creds []model.Credential) []int64 {
	out := make([]int64, len(creds))
	for i, c := range creds {
		out[i] = c.ID
	}
	return out
}

func TestOrderForRotation_UnusedByLabel(t *testing.T) {
	creds := []model.Credential{
		cred(1, model.PrimaryAccountLabel, nil),
		cred(2, "Account 1", nil),
		cred(3, "Account 2", nil),
	}

	got := application.OrderForRotation(creds)

	if diff := cmp.Diff([]int64{3, 2, 1}, ids(got)); diff != "" {
		t.Errorf("rotation order mismatch (-want +got):\n%s", diff)
	}
}

func TestOrderForRotation_OtherNumberedAccountsBeforePrimary(t *testing.T) {
	creds := []model.Credential{
		cred(1, model.PrimaryAccountLabel, nil),
		cred(2, "Account 7", nil),
		cred(3, "backup", nil),
		cred(4, "Account 1", nil),
		cred(5, "Account 3", nil),
		cred(6, "Account 2", nil),
	}

	got := application.OrderForRotation(creds)

	// Ties keep creation order: Account 7 before Account 3; Primary before "backup".
	if diff := cmp.Diff([]int64{6, 4, 2, 5, 1, 3}, ids(got)); diff != "" {
		t.Errorf("rotation order mismatch (-want +got):\n%s", diff)
	}
}

func TestOrderForRotation_UnusedBeforeUsedRegardlessOfLabel(t *testing.T) {
	t1 := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	creds := []model.Credential{
		cred(1, "Account 2", &t1),
		cred(2, model.PrimaryAccountLabel, nil),
	}

	got := application.OrderForRotation(creds)

	assert.Equal(t, []int64{2, 1}, ids(got))
}

func TestOrderForRotation_UsedLeastRecentlyFirst(t *testing.T) {
	base := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	late, mid, early := base.Add(2*time.Hour), base.Add(time.Hour), base

	creds := []model.Credential{
		cred(1, "Account 2", &late),
		cred(2, "Account 1", &early),
		cred(3, model.PrimaryAccountLabel, &mid),
	}

	got := application.OrderForRotation(creds)

	assert.Equal(t, []int64{2, 3, 1}, ids(got))
}

func TestOrderForRotation_DoesNotModifyInput(t *testing.T) {
	creds := []model.Credential{
		cred(1, model.PrimaryAccountLabel, nil),
		cred(2, "Account 2", nil),
	}
	before := append([]model.Credential(nil), creds...)

	application.OrderForRotation(creds)

	if diff := cmp.Diff(before, creds); diff != "" {
		t.Errorf("input modified (-before +after):\n%s", diff)
	}
}

func TestOrderForRotation_Empty(t *testing.T) {
	assert.Empty(t, application.OrderForRotation(nil))
}

func TestOrderForRotation_Properties(t *testing.T) {
	labels := []string{"Account 1", "Account 2", "Account 3", model.PrimaryAccountLabel, "other"}
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	// Each element encodes a label index and a last-used offset in minutes;
	// a negative offset means never used.
	genCreds := gen.SliceOf(gen.IntRange(-60, 60*24)).Map(func(offsets []int) []model.Credential {
		out := make([]model.Credential, len(offsets))
		for i, off := range offsets {
			var lu *time.Time
			if off >= 0 {
				t := base.Add(time.Duration(off) * time.Minute)
				lu = &t
			}
			out[i] = cred(int64(i+1), labels[(i*7+off+60)%len(labels)], lu)
		}
		return out
	})

	properties := gopter.NewProperties(nil)

	properties.Property("ordering is a permutation of the input", prop.ForAll(
		func(creds []model.Credential) bool {
			got := application.OrderForRotation(creds)
			if len(got) != len(creds) {
				return false
			}
			seen := map[int64]bool{}
			for _, c := range got {
				seen[c.ID] = true
			}
			return len(seen) == len(creds)
		},
		genCreds,
	))

	properties.Property("unused credentials precede used ones", prop.ForAll(
		func(creds []model.Credential) bool {
			sawUsed := false
			for _, c := range application.OrderForRotation(creds) {
				if !c.Unused() {
					sawUsed = true
				} else if sawUsed {
					return false
				}
			}
			return true
		},
		genCreds,
	))

	properties.Property("used credentials are ordered by last use", prop.ForAll(
		func(creds []model.Credential) bool {
			var prev *time.Time
			for _, c := range application.OrderForRotation(creds) {
				if c.Unused() {
					continue
				}
				if prev != nil && c.LastUsed.Before(*prev) {
					return false
				}
				prev = c.LastUsed
			}
			return true
		},
		genCreds,
	))

	properties.TestingRun(t)
}
