package application_test

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ericfisherdev/credpool/internal/cipherbox"
	"github.com/ericfisherdev/credpool/internal/domain/model"
	"github.com/ericfisherdev/credpool/internal/domain/port/driven"
)

// --- Mock implementations ---

// memCredentialStore is an in-memory CredentialStore keyed by value hash.
type memCredentialStore struct {
	mu     sync.Mutex
	nextID int64
	rows   []model.Credential

	schemaCalls int
	schemaErr   error
	addErr      map[string]error // plaintext -> error
	listErr     error
	resetErr    error
	resetCalls  int
	undecrypted map[string]bool // plaintext -> stored but unreadable
}

func newMemCredentialStore() *memCredentialStore {
	return &memCredentialStore{addErr: map[string]error{}, undecrypted: map[string]bool{}}
}

func (m *memCredentialStore) EnsureSchema(_ context.Context) error {
	m.schemaCalls++
	return m.schemaErr
}

func (m *memCredentialStore) Add(_ context.Context, plaintext, accountLabel, provider string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	plaintext = strings.TrimSpace(plaintext)
	if plaintext == "" {
		return false, driven.ErrEmptyCredential
	}
	if err := m.addErr[plaintext]; err != nil {
		return false, err
	}
	hash := cipherbox.Hash(plaintext)
	for _, r := range m.rows {
		if r.ValueHash == hash {
			return false, nil
		}
	}
	m.nextID++
	m.rows = append(m.rows, model.Credential{
		ID:           m.nextID,
		Provider:     provider,
		Value:        plaintext,
		Decrypted:    true,
		ValueHash:    hash,
		AccountLabel: accountLabel,
		Status:       model.CredentialStatusActive,
	})
	return true, nil
}

func (m *memCredentialStore) snapshot(keep func(model.Credential) bool) []model.Credential {
	var out []model.Credential
	for _, r := range m.rows {
		if !keep(r) {
			continue
		}
		if m.undecrypted[r.Value] {
			r.Value = ""
			r.Decrypted = false
		}
		out = append(out, r)
	}
	return out
}

func (m *memCredentialStore) ListAll(_ context.Context, provider string) ([]model.Credential, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshot(func(c model.Credential) bool { return provider == "" || c.Provider == provider }), nil
}

func (m *memCredentialStore) ListActive(_ context.Context, provider string) ([]model.Credential, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	return m.snapshot(func(c model.Credential) bool {
		return c.Provider == provider && c.Status == model.CredentialStatusActive
	}), nil
}

func (m *memCredentialStore) UpdateStatus(_ context.Context, id int64, status model.CredentialStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !status.Valid() {
		return driven.ErrInvalidStatus
	}
	for i := range m.rows {
		if m.rows[i].ID == id {
			m.rows[i].Status = status
			return nil
		}
	}
	return driven.ErrCredentialNotFound
}

func (m *memCredentialStore) Remove(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.rows {
		if m.rows[i].ID == id {
			m.rows = append(m.rows[:i], m.rows[i+1:]...)
			return nil
		}
	}
	return driven.ErrCredentialNotFound
}

func (m *memCredentialStore) update(hash string, fn func(*model.Credential)) (model.AccountRef, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.rows {
		if m.rows[i].ValueHash == hash {
			fn(&m.rows[i])
			return model.AccountRef{Provider: m.rows[i].Provider, AccountLabel: m.rows[i].AccountLabel}, true
		}
	}
	return model.AccountRef{}, false
}

func (m *memCredentialStore) IncrementUsage(_ context.Context, hash string, at time.Time) (model.AccountRef, bool, error) {
	ref, ok := m.update(hash, func(c *model.Credential) {
		c.UsageCount++
		t := at
		c.LastUsed = &t
	})
	return ref, ok, nil
}

func (m *memCredentialStore) IncrementErrors(_ context.Context, hash string) (model.AccountRef, bool, error) {
	ref, ok := m.update(hash, func(c *model.Credential) { c.ErrorCount++ })
	return ref, ok, nil
}

func (m *memCredentialStore) ResetUsage(_ context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resetCalls++
	if m.resetErr != nil {
		return 0, m.resetErr
	}
	var n int64
	for i := range m.rows {
		if m.rows[i].UsageCount != 0 {
			m.rows[i].UsageCount = 0
			n++
		}
	}
	return n, nil
}

func (m *memCredentialStore) Stats(_ context.Context) ([]model.AccountStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	byLabel := map[string]*model.AccountStats{}
	for _, r := range m.rows {
		s, ok := byLabel[r.AccountLabel]
		if !ok {
			s = &model.AccountStats{AccountLabel: r.AccountLabel}
			byLabel[r.AccountLabel] = s
		}
		s.TotalKeys++
		if r.Status == model.CredentialStatusActive {
			s.ActiveKeys++
		}
		s.TotalUsage += r.UsageCount
		s.TotalErrors += r.ErrorCount
	}
	out := make([]model.AccountStats, 0, len(byLabel))
	for _, s := range byLabel {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AccountLabel < out[j].AccountLabel })
	return out, nil
}

// setLastUsed marks the stored credential with plaintext value as used at t.
func (m *memCredentialStore) setLastUsed(value string, t time.Time) {
	m.update(cipherbox.Hash(value), func(c *model.Credential) { c.LastUsed = &t })
}

func (m *memCredentialStore) byValue(value string) (model.Credential, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.rows {
		if r.Value == value {
			return r, nil
		}
	}
	return model.Credential{}, fmt.Errorf("no credential %q", value)
}

// memStateStore is an in-memory StateStore.
type memStateStore struct {
	values  map[string]string
	getErr  error
	setErr  error
	setCall int
}

func newMemStateStore() *memStateStore {
	return &memStateStore{values: map[string]string{}}
}

func (m *memStateStore) GetState(_ context.Context, key string) (string, bool, error) {
	if m.getErr != nil {
		return "", false, m.getErr
	}
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *memStateStore) SetState(_ context.Context, key, value string) error {
	m.setCall++
	if m.setErr != nil {
		return m.setErr
	}
	m.values[key] = value
	return nil
}

// recordingMetrics counts PoolMetrics events.
type recordingMetrics struct {
	used     map[string]int // "provider/account"
	errored  map[string]int
	imported map[string]int
	decrypt  int
	resets   int
	active   map[string]int
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{
		used:     map[string]int{},
		errored:  map[string]int{},
		imported: map[string]int{},
		active:   map[string]int{},
	}
}

func (r *recordingMetrics) CredentialUsed(provider, account string) {
	r.used[provider+"/"+account]++
}

func (r *recordingMetrics) CredentialErrored(provider, account string) {
	r.errored[provider+"/"+account]++
}

func (r *recordingMetrics) CredentialsImported(account string, n int) { r.imported[account] += n }
func (r *recordingMetrics) DecryptFailed()                            { r.decrypt++ }
func (r *recordingMetrics) DailyReset()                               { r.resets++ }
func (r *recordingMetrics) ActiveCredentials(provider string, n int)  { r.active[provider] = n }

var errBoom = errors.New("boom")

// fixedClock returns a clock pinned to t.
func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func hashOf(value string) string {
	return cipherbox.Hash(value)
}
