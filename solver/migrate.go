package solver

import "fmt"

// Migrate upgrades a snapshot to the current format in place. The only
// change between versions 1 and 2 is the infoset key encoding: v1 keys are
// slash-separated with unpadded history tokens, v2 keys use fixed-width
// tokens so prefix scans and range queries stay aligned. Entry values are
// untouched. Calling Migrate on a current-format snapshot is a no-op, so a
// retried migration after a partial failure is safe.
func Migrate(s *Snapshot) error {
	switch s.FormatVersion {
	case checkpointFormatVersion:
		return nil
	case 1:
	default:
		return fmt.Errorf("cannot migrate checkpoint format version %d", s.FormatVersion)
	}

	migrated := make(map[string]EntrySnapshot, len(s.Entries))
	for old, entry := range s.Entries {
		key, err := ParseKeyV1(old)
		if err != nil {
			return fmt.Errorf("migrating entry: %w", err)
		}
		renamed := key.String()
		if _, dup := migrated[renamed]; dup {
			return fmt.Errorf("migration collision: keys map to %q twice", renamed)
		}
		migrated[renamed] = entry
	}
	s.Entries = migrated
	s.FormatVersion = checkpointFormatVersion
	return nil
}
