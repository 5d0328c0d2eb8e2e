package store

import (
	"os"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/calloway/swgate/internal/swg/domain"
)

// loadPolicy reads the operator-editable policy file into memory at startup.
// Missing files are created empty; unreadable files degrade to an empty
// table so classification can still auto-register categories.
func (s *Store) loadPolicy() {
	if _, err := os.Stat(s.policyPath); os.IsNotExist(err) {
		s.policyMu.Lock()
		if werr := s.persistPolicyLocked(); werr != nil {
			s.logger.Warn(map[string]any{"error": werr, "file": s.policyPath}, "Could not create policy file")
		}
		s.policyMu.Unlock()
		s.logger.Info(map[string]any{"file": s.policyPath}, "Policy file not found, created empty policy")
		return
	}
	if err := s.ReloadPolicy(); err != nil {
		s.logger.Error(map[string]any{
			"error":      err,
			"error_kind": string(domain.ErrorKindStoreReadFailure),
			"file":       s.policyPath,
		}, "Policy file unreadable, starting with empty policy")
	}
}

// ReloadPolicy re-reads the policy file, replacing the in-memory table.
// Entries with unrecognized verdict values are reported and skipped, never
// silently coerced: the category stays unresolved until a decision
// re-registers it.
func (s *Store) ReloadPolicy() error {
	k := koanf.New(".")
	if err := k.Load(file.Provider(s.policyPath), json.Parser()); err != nil {
		return err
	}

	table := make(map[domain.Category]domain.Verdict)
	for name, raw := range k.Raw() {
		value, ok := raw.(string)
		if !ok {
			s.logger.Warn(map[string]any{
				"category":   name,
				"value":      raw,
				"error_kind": string(domain.ErrorKindInvalidPolicyValue),
			}, "Policy entry is not a string, skipping")
			continue
		}
		v, err := domain.ParseVerdict(value)
		if err != nil {
			s.logger.Warn(map[string]any{
				"category":   name,
				"value":      value,
				"error_kind": string(domain.ErrorKindInvalidPolicyValue),
			}, "Policy entry has invalid verdict, skipping")
			continue
		}
		table[domain.Category(name).Normalized()] = v
	}

	s.policyMu.Lock()
	s.policy = table
	if st, err := os.Stat(s.policyPath); err == nil {
		s.policyStamp = st.ModTime()
	}
	s.policyMu.Unlock()

	s.logger.Debug(map[string]any{"file": s.policyPath, "categories": len(table)}, "Policy table reloaded")
	return nil
}

// policyChanged reports whether the policy file's mtime differs from the
// last loaded version, letting the refresh ticker skip redundant reloads.
func (s *Store) policyChanged() bool {
	st, err := os.Stat(s.policyPath)
	if err != nil {
		return false
	}
	s.policyMu.RLock()
	defer s.policyMu.RUnlock()
	return !st.ModTime().Equal(s.policyStamp)
}
